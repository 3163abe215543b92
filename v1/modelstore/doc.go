// Package modelstore keeps model files in a MinIO or S3 bucket.
//
// A Store uploads the .bin and .vec files produced by training and fetches
// them back to local disk. Opener streams a model directly from the bucket
// and can be handed to fasttext.Engine.WithFileOpener:
//
//	store, err := modelstore.NewClient(modelstore.NewConfig(), log)
//	if err != nil {
//	    return err
//	}
//	engine := fasttext.NewEngine("wiki.en.bin").WithFileOpener(store.Opener(ctx))
//
// Object names are resolved below Config.Prefix. A missing object is
// reported as ErrObjectNotFound.
package modelstore

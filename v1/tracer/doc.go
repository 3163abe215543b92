// Package tracer configures OpenTelemetry tracing for the wordembed services.
//
// NewClient installs a global TracerProvider, so instrumented packages that
// start spans through Global (the fasttext client without an explicit
// tracer, for one) report as soon as the tracer exists. Spans are exported over OTLP HTTP
// when Config.EnableExport is set.
//
//	t, err := tracer.NewClient(tracer.NewConfig(), log)
//	if err != nil {
//	    return err
//	}
//	defer t.Shutdown(ctx)
//
//	ctx, span := t.StartSpan(ctx, "train")
//	defer span.End()
//	if err := client.Train(ctx, opts); err != nil {
//	    t.RecordErrorOnSpan(span, err)
//	}
package tracer

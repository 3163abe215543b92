package modelstore

import (
	"time"

	"github.com/Aleph-Alpha/wordembed/v1/observability"
)

// observeOperation reports an operation to the observer, if any.
// The bucket is the resource and the object key the sub-resource.
func (s *Store) observeOperation(operation, key string, start time.Time, err error, size int64, metadata map[string]interface{}) {
	if s == nil || s.observer == nil {
		return
	}
	s.observer.ObserveOperation(observability.OperationContext{
		Component:   "modelstore",
		Operation:   operation,
		Resource:    s.cfg.Connection.BucketName,
		SubResource: key,
		Duration:    time.Since(start),
		Error:       err,
		Size:        size,
		Metadata:    metadata,
	})
}

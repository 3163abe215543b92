package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObserverFunc(t *testing.T) {
	var got []OperationContext
	var o Observer = ObserverFunc(func(ctx OperationContext) { got = append(got, ctx) })

	o.ObserveOperation(OperationContext{Component: "fasttext", Operation: "nn", Duration: time.Millisecond, Error: errors.New("x")})

	assert.Len(t, got, 1)
	assert.Equal(t, "nn", got[0].Operation)
	assert.EqualError(t, got[0].Error, "x")
}

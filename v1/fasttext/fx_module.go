package fasttext

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/wordembed/v1/observability"
	"github.com/Aleph-Alpha/wordembed/v1/tracer"
)

// FXModule wires the embedding engine into Fx.
//
// It provides:
//   - *Config  (NewConfig)
//   - *Client  (NewClientWithDI)
//
// and registers RegisterClientLifecycle. A Logger, an
// observability.Observer and a *tracer.Tracer are picked up from the graph
// when present.
var FXModule = fx.Module("fasttext",
	fx.Provide(
		NewConfig,
		NewClientWithDI,
	),
	fx.Invoke(RegisterClientLifecycle),
)

// ClientParams groups the dependencies needed to create a Client.
type ClientParams struct {
	fx.In

	Config   *Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Tracer   *tracer.Tracer         `optional:"true"`
}

// NewClientWithDI creates a Client from injected dependencies.
func NewClientWithDI(p ClientParams) (*Client, error) {
	c, err := NewClient(p.Config, p.Logger)
	if err != nil {
		return nil, err
	}
	if p.Observer != nil {
		c.WithObserver(p.Observer)
	}
	if p.Tracer != nil {
		c.WithTracer(p.Tracer)
	}
	return c, nil
}

// RegisterClientLifecycle loads the model on start when Config.Preload is
// set and releases the client on stop.
func RegisterClientLifecycle(lc fx.Lifecycle, client *Client) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !client.cfg.Preload {
				return nil
			}
			return client.Load(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
}

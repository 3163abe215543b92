package modelstore

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/wordembed/v1/observability"
)

// FXModule provides *Config from the environment and a connected *Store.
var FXModule = fx.Module("modelstore",
	fx.Provide(
		NewConfig,
		NewClientWithDI,
	),
)

// StoreParams groups the dependencies of NewClientWithDI.
type StoreParams struct {
	fx.In

	Config   *Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewClientWithDI builds a Store from fx-provided dependencies.
func NewClientWithDI(p StoreParams) (*Store, error) {
	s, err := NewClient(p.Config, p.Logger)
	if err != nil {
		return nil, err
	}
	if p.Observer != nil {
		s.WithObserver(p.Observer)
	}
	return s, nil
}

package vectorexport

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/wordembed/v1/metrics"
	"github.com/Aleph-Alpha/wordembed/v1/observability"
)

// FXModule provides *Config from the environment and an *Exporter that is
// closed when the application stops.
var FXModule = fx.Module("vectorexport",
	fx.Provide(
		NewConfig,
		NewExporterWithDI,
	),
	fx.Invoke(RegisterExporterLifecycle),
)

type ExporterParams struct {
	fx.In

	Config   *Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Metrics  *metrics.Metrics       `optional:"true"`
}

func NewExporterWithDI(p ExporterParams) (*Exporter, error) {
	e, err := NewExporter(p.Config, p.Logger)
	if err != nil {
		return nil, err
	}
	if p.Observer != nil {
		e.WithObserver(p.Observer)
	}
	if p.Metrics != nil {
		e.WithMetrics(p.Metrics)
	}
	return e, nil
}

func RegisterExporterLifecycle(lc fx.Lifecycle, e *Exporter) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return e.Close()
		},
	})
}

// Package logger provides structured logging for the wordembed services.
//
// It wraps Uber's zap behind a small map based API that the engine packages
// accept through their own Logger interfaces, so no package below the
// application layer imports zap directly.
//
// # Direct Usage (Without FX)
//
//	log := logger.NewLoggerClient(logger.Config{
//		Level:       "info",
//		ServiceName: "wordembed",
//	})
//
//	log.Info("model loaded", nil, map[string]interface{}{
//		"path":   "wiki.en.bin",
//		"nwords": 2519370,
//	})
//
//	// Trace correlation (adds trace_id and span_id when EnableTracing is set)
//	log.InfoWithContext(ctx, "training started", nil, map[string]interface{}{
//		"threads": 12,
//	})
//
// # FX Module Integration
//
//	app := fx.New(
//		fx.Supply(logger.NewConfig()),
//		logger.FXModule,
//		fx.Invoke(func(log *logger.Logger) {
//			log.Info("service started", nil, nil)
//		}),
//	)
//
// # Configuration
//
//	ZAP_LOGGER_LEVEL=debug          # debug, info, warning, error
//	LOGGER_SERVICE_NAME=wordembed   # "service" field on every entry
//	LOGGER_ENCODING=console         # json (default) or console
//	LOGGER_ENABLE_TRACING=true      # trace ids on *WithContext methods
//
// # Thread Safety
//
// All methods are safe for concurrent use by multiple goroutines.
package logger

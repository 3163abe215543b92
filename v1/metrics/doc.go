// Package metrics provides Prometheus-based monitoring for the wordembed
// services.
//
// # Architecture
//
// This package follows the "accept interfaces, return structs" design pattern:
//   - MetricsCollector interface: the operations the rest of the code needs
//   - Metrics struct: concrete implementation backed by a private registry
//   - NewMetrics constructor: returns *Metrics
//
// Metrics implements observability.Observer and
// observability.ProgressObserver. Attaching it to an engine or storage
// client is all the instrumentation those packages need:
//
//	m := metrics.NewMetrics(metrics.NewConfig())
//	engine := fasttext.NewEngine("model.bin").WithObserver(m)
//
// # Exposed Metrics
//
//	operations_total{component,operation,status}
//	operation_duration_seconds{component,operation}
//	operation_result_size{component,operation}
//	training_progress_ratio{component,resource}
//	training_tokens{component,resource}
//	training_loss{component,resource}
//	training_learning_rate{component,resource}
//	training_words_per_second_per_thread{component,resource}
//
// Every metric carries the constant label service="<ServiceName>" and the
// optional Namespace prefix.
//
// # FX Module Integration
//
//	app := fx.New(
//		fx.Supply(metrics.NewConfig()),
//		metrics.FXModule, // *Metrics and observability.Observer
//	)
//
// The server listens on Config.Address and serves /metrics.
//
// # Configuration
//
//	METRICS_ADDRESS=:9090
//	METRICS_ENABLE_DEFAULT_COLLECTORS=true
//	METRICS_NAMESPACE=wordembed
//	METRICS_SERVICE_NAME=embedder
package metrics

/*
Package observability exports process lifecycle activity as Prometheus metrics.

Metrics is fed through domain.LifecycleHooks, so it can be composed with any
other hook set (for example structured logging) via domain.ComposeHooks:

	m := observability.NewMetrics()
	svc := atsim.New(models, atsim.WithHooks(m.Hooks()), atsim.WithMetrics(m))
	http.Handle("/metrics", m.Handler())
*/
package observability

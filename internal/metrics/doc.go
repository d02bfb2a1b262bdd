// Package metrics records pipeline observability data.
//
// Components receive a Recorder through their constructors and default to
// NoopRecorder, so metrics cost nothing unless a Prometheus registry is
// configured:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	http.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics

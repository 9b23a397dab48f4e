// Package api hosts the status server for a running prober. Routes:
//   - GET /healthz and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/targets lists the supported sites.
//   - GET /v1/progress reports the live counters of the current run.
//   - GET /v1/runs, /v1/runs/last and /v1/runs/{run_id} report run history.
package api

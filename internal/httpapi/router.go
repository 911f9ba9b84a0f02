package httpapi

import (
	"expvar"
	"net/http"

	"counterstrike/internal/core"
)

// NewRouter registers routes and wraps them with request-id and access-log
// middleware. metrics may be nil to omit /metrics.
func NewRouter(app *App, metrics http.Handler) http.Handler {
	if app.Logger == nil {
		app.Logger = core.NopLogger()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /invoke", app.invokeHandler)
	mux.HandleFunc("GET /products", app.listProductsHandler)
	mux.HandleFunc("GET /products/{id}", app.getProductHandler)
	mux.HandleFunc("POST /snapshots", app.exportHandler)
	mux.HandleFunc("GET /snapshots", app.listSnapshotsHandler)
	mux.HandleFunc("GET /snapshots/latest", app.latestSnapshotHandler)
	mux.HandleFunc("GET /healthz", app.healthHandler)
	mux.Handle("GET /debug/vars", expvar.Handler())
	mux.HandleFunc("GET /openapi.yaml", openAPIHandler)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return WithRequestID(WithLogging(app.Logger, mux))
}

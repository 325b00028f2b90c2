// internal/httpapi/router.go
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires every API route. The websocket endpoint and the metrics
// exporter are passed in as plain handlers so this package stays free of
// their dependencies' setup.
func NewRouter(h *Handlers, wsHandler, metricsHandler http.Handler) *mux.Router {
	r := mux.NewRouter()

	wrap := func(route string, fn http.HandlerFunc) http.Handler {
		return h.Metrics.WrapHandler(route, fn)
	}

	r.Handle("/health", wrap("/health", h.Health)).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/units/status", wrap("/api/units/status", h.AllUnitStatus)).Methods("GET")
	api.Handle("/units/status/{unit}", wrap("/api/units/status/{unit}", h.UnitStatus)).Methods("GET")
	api.Handle("/units/{unit}/history", wrap("/api/units/{unit}/history", h.UnitHistory)).Methods("GET")
	api.Handle("/sensors/snapshot", wrap("/api/sensors/snapshot", h.Snapshot)).Methods("POST")
	api.Handle("/agents/communications", wrap("/api/agents/communications", h.Communications)).Methods("GET")
	api.Handle("/fuels", wrap("/api/fuels", h.Fuels)).Methods("GET")
	api.Handle("/optimize/fuel-mix", wrap("/api/optimize/fuel-mix", h.OptimizeFuelMix)).Methods("POST")
	api.Handle("/optimize/process", wrap("/api/optimize/process", h.OptimizeProcess)).Methods("POST")
	api.Handle("/analytics/context", wrap("/api/analytics/context", h.AnalyticsContext)).Methods("GET")
	api.Handle("/analytics/query", wrap("/api/analytics/query", h.AnalyticsQuery)).Methods("POST")
	api.Handle("/maintenance/forecast/{unit}", wrap("/api/maintenance/forecast/{unit}", h.MaintenanceForecast)).Methods("GET")
	api.Handle("/maintenance/dashboard", wrap("/api/maintenance/dashboard", h.MaintenanceDashboard)).Methods("GET")
	api.Handle("/carbon/realtime", wrap("/api/carbon/realtime", h.CarbonRealtime)).Methods("GET")
	api.Handle("/carbon/monthly", wrap("/api/carbon/monthly", h.CarbonMonthly)).Methods("GET")
	api.Handle("/carbon/sustainability-score", wrap("/api/carbon/sustainability-score", h.CarbonScore)).Methods("GET")
	api.Handle("/carbon/benchmarks", wrap("/api/carbon/benchmarks", h.CarbonBenchmarks)).Methods("GET")

	if wsHandler != nil {
		r.Handle("/ws", wsHandler)
	}
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods("GET")
	}

	return r
}

// internal/httpapi/handlers.go
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Raaghu1804/hackathon-zss/internal/carbon"
	"github.com/Raaghu1804/hackathon-zss/internal/config"
	"github.com/Raaghu1804/hackathon-zss/internal/coord"
	"github.com/Raaghu1804/hackathon-zss/internal/insights"
	"github.com/Raaghu1804/hackathon-zss/internal/maintenance"
	"github.com/Raaghu1804/hackathon-zss/internal/model"
	"github.com/Raaghu1804/hackathon-zss/internal/observability"
	"github.com/Raaghu1804/hackathon-zss/internal/optimize"
	"github.com/Raaghu1804/hackathon-zss/internal/store"
)

const (
	defaultMessageLimit  = 50
	defaultForecastHours = 24
	maxForecastHours     = 168
)

type Handlers struct {
	Log         *slog.Logger
	Cfg         *config.AppConfig
	Engine      *coord.Engine
	Insights    *insights.Client
	Store       *store.Store // optional; history endpoints 404 without it
	Maintenance *maintenance.Engine
	Carbon      *carbon.Tracker
	Metrics     *observability.Metrics
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "ts": time.Now().UTC()})
}

func (h *Handlers) AllUnitStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.AllUnitStatus())
}

func (h *Handlers) UnitStatus(w http.ResponseWriter, r *http.Request) {
	unit := model.UnitID(mux.Vars(r)["unit"])
	uh, err := h.Engine.UnitStatus(unit)
	if err != nil {
		if errors.Is(err, model.ErrUnknownUnit) {
			h.notFound(w, "unknown unit: "+string(unit))
			return
		}
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uh)
}

// snapshotRequest carries one tick's worth of readings, grouped by unit.
type snapshotRequest struct {
	Readings map[model.UnitID][]model.SensorReading `json:"readings"`
}

type snapshotResponse struct {
	Units    []model.UnitHealth   `json:"units"`
	Messages []model.AgentMessage `json:"messages"`
	Rejected []string             `json:"rejected,omitempty"`
}

func (h *Handlers) Snapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid snapshot body: "+err.Error())
		return
	}
	if len(req.Readings) == 0 {
		h.badRequest(w, "snapshot contains no readings")
		return
	}

	res, err := h.Engine.ProcessTick(req.Readings, time.Now().UTC())
	if err != nil {
		if errors.Is(err, model.ErrUnknownUnit) {
			h.notFound(w, err.Error())
			return
		}
		h.internalError(w, err)
		return
	}

	if h.Store != nil {
		go h.persistSnapshot(req.Readings)
	}

	resp := snapshotResponse{Messages: res.Messages}
	for _, u := range model.UnitPriority {
		if uh, ok := res.Healths[u]; ok {
			resp.Units = append(resp.Units, uh)
			h.Metrics.SetUnitHealth(string(u), uh.HealthScore)
		}
	}
	for _, rej := range res.Rejected {
		resp.Rejected = append(resp.Rejected, rej.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) persistSnapshot(readings map[model.UnitID][]model.SensorReading) {
	for unit := range readings {
		uh, err := h.Engine.UnitStatus(unit)
		if err != nil {
			continue
		}
		if err := h.Store.SaveStates(uh.Sensors); err != nil {
			h.Log.Warn("persist snapshot failed", "unit", unit, "error", err)
		}
	}
}

func (h *Handlers) Communications(w http.ResponseWriter, r *http.Request) {
	limit := defaultMessageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.badRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	msgs := h.Engine.RecentMessages(limit)
	if msgs == nil {
		msgs = []model.AgentMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *Handlers) Fuels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Cfg.Fuels)
}

func (h *Handlers) OptimizeFuelMix(w http.ResponseWriter, r *http.Request) {
	var req model.OptimizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid optimization request: "+err.Error())
		return
	}

	ctx, cancel := h.optimizeContext(r.Context())
	defer cancel()

	start := time.Now()
	res, err := optimize.OptimizeFuelMix(ctx, req, h.Cfg.Fuels)
	h.Metrics.OptimizationDone("fuel_mix", time.Since(start), err == nil)
	if err != nil {
		h.optimizeError(w, "fuel-mix", err)
		return
	}
	if h.Carbon != nil {
		h.Carbon.ObserveBlend(*res)
	}
	h.Log.Info("fuel blend optimized",
		"energyGJ", req.TotalEnergyRequiredGJ,
		"costPriority", req.CostPriority,
		"confidence", res.Confidence)
	writeJSON(w, http.StatusOK, res)
}

// processRequest names the units to optimize (all when empty) and carries
// optional ambient conditions.
type processRequest struct {
	Units           []model.UnitID         `json:"units,omitempty"`
	ExternalContext *model.ExternalContext `json:"externalContext,omitempty"`
}

func (h *Handlers) OptimizeProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.badRequest(w, "invalid process request: "+err.Error())
			return
		}
	}

	var units []model.UnitHealth
	if len(req.Units) == 0 {
		units = h.Engine.AllUnitStatus()
	} else {
		for _, u := range req.Units {
			uh, err := h.Engine.UnitStatus(u)
			if err != nil {
				h.notFound(w, "unknown unit: "+string(u))
				return
			}
			units = append(units, uh)
		}
	}

	ctx, cancel := h.optimizeContext(r.Context())
	defer cancel()

	start := time.Now()
	res, err := optimize.OptimizeProcess(ctx, units, req.ExternalContext, h.Cfg)
	h.Metrics.OptimizationDone("process", time.Since(start), err == nil)
	if err != nil {
		h.optimizeError(w, "process", err)
		return
	}
	h.Log.Info("process set-points optimized", "setpoints", len(res.Setpoints), "confidence", res.Confidence)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) AnalyticsContext(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Context(defaultMessageLimit))
}

type analyticsQuery struct {
	Question string `json:"question"`
}

func (h *Handlers) AnalyticsQuery(w http.ResponseWriter, r *http.Request) {
	var q analyticsQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil || q.Question == "" {
		h.badRequest(w, "question is required")
		return
	}
	answer, err := h.Insights.Query(r.Context(), q.Question, h.Engine.Context(defaultMessageLimit))
	if err != nil {
		if errors.Is(err, insights.ErrDisabled) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "analytics is not configured"})
			return
		}
		h.Log.Error("analytics query failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "analytics backend unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (h *Handlers) UnitHistory(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		h.notFound(w, "history is not enabled")
		return
	}
	unit := model.UnitID(mux.Vars(r)["unit"])
	if _, ok := h.Cfg.Envelopes[unit]; !ok {
		h.notFound(w, "unknown unit: "+string(unit))
		return
	}
	since := time.Now().Add(-time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.badRequest(w, "since must be RFC3339")
			return
		}
		since = t
	}
	readings, err := h.Store.HistoricalReadings(unit, since)
	if err != nil {
		h.internalError(w, err)
		return
	}
	if readings == nil {
		readings = []model.SensorState{}
	}
	writeJSON(w, http.StatusOK, readings)
}

func (h *Handlers) MaintenanceForecast(w http.ResponseWriter, r *http.Request) {
	if h.Maintenance == nil {
		h.notFound(w, "maintenance forecasting is not enabled")
		return
	}
	unit := model.UnitID(mux.Vars(r)["unit"])
	if _, ok := h.Cfg.Envelopes[unit]; !ok {
		h.notFound(w, "unknown unit: "+string(unit))
		return
	}
	hours := defaultForecastHours
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxForecastHours {
			h.badRequest(w, "hours must be between 1 and 168")
			return
		}
		hours = n
	}
	f, err := h.Maintenance.Forecast(unit, hours, time.Now().UTC())
	if err != nil {
		h.historyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *Handlers) MaintenanceDashboard(w http.ResponseWriter, _ *http.Request) {
	if h.Maintenance == nil {
		h.notFound(w, "maintenance forecasting is not enabled")
		return
	}
	writeJSON(w, http.StatusOK, h.Maintenance.DashboardAll(defaultForecastHours, time.Now().UTC()))
}

func (h *Handlers) CarbonRealtime(w http.ResponseWriter, r *http.Request) {
	if h.Carbon == nil {
		h.notFound(w, "carbon tracking is not enabled")
		return
	}
	unit := model.UnitID(r.URL.Query().Get("unit"))
	if unit != "" {
		if _, ok := h.Cfg.Envelopes[unit]; !ok {
			h.notFound(w, "unknown unit: "+string(unit))
			return
		}
	}
	rep, err := h.Carbon.Realtime(unit, time.Now().UTC())
	if err != nil {
		h.historyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handlers) CarbonMonthly(w http.ResponseWriter, r *http.Request) {
	if h.Carbon == nil {
		h.notFound(w, "carbon tracking is not enabled")
		return
	}
	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())
	if raw := r.URL.Query().Get("year"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 2020 || n > 2100 {
			h.badRequest(w, "year must be a four-digit year from 2020 on")
			return
		}
		year = n
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 12 {
			h.badRequest(w, "month must be between 1 and 12")
			return
		}
		month = n
	}
	rep, err := h.Carbon.Monthly(year, time.Month(month), now)
	if err != nil {
		h.historyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handlers) CarbonScore(w http.ResponseWriter, _ *http.Request) {
	if h.Carbon == nil {
		h.notFound(w, "carbon tracking is not enabled")
		return
	}
	rep, err := h.Carbon.Realtime("", time.Now().UTC())
	if err != nil {
		h.historyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep.Sustainability)
}

func (h *Handlers) CarbonBenchmarks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"benchmarks":  carbon.Benchmarks,
		"unit":        "kg CO2 per tonne cement",
		"description": "industry carbon intensity reference values",
	})
}

// historyError maps trend-computation failures onto HTTP statuses.
func (h *Handlers) historyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInsufficientHistory):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, model.ErrUnknownUnit):
		h.notFound(w, err.Error())
	default:
		h.internalError(w, err)
	}
}

func (h *Handlers) optimizeContext(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(h.Cfg.OptimizeTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(parent, timeout)
}

func (h *Handlers) optimizeError(w http.ResponseWriter, kind string, err error) {
	var inf *model.InfeasibleError
	switch {
	case errors.As(err, &inf):
		h.Log.Warn("optimization infeasible", "kind", kind, "constraint", inf.Constraint, "detail", inf.Detail)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":      "no feasible solution",
			"constraint": inf.Constraint,
			"detail":     inf.Detail,
		})
	case errors.Is(err, model.ErrTimeout):
		h.Log.Warn("optimization timed out", "kind", kind)
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "optimization timed out"})
	case errors.Is(err, model.ErrUnknownUnit):
		h.notFound(w, err.Error())
	default:
		h.badRequest(w, err.Error())
	}
}

func (h *Handlers) badRequest(w http.ResponseWriter, msg string) {
	h.Log.Warn("bad request", "error", msg)
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func (h *Handlers) notFound(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": msg})
}

func (h *Handlers) internalError(w http.ResponseWriter, err error) {
	h.Log.Error("internal error", "err", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

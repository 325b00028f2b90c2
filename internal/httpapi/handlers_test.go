// internal/httpapi/handlers_test.go
package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Raaghu1804/hackathon-zss/internal/carbon"
	"github.com/Raaghu1804/hackathon-zss/internal/config"
	"github.com/Raaghu1804/hackathon-zss/internal/coord"
	"github.com/Raaghu1804/hackathon-zss/internal/insights"
	"github.com/Raaghu1804/hackathon-zss/internal/maintenance"
	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

func newTestRouter(t *testing.T) (*Handlers, http.Handler) {
	t.Helper()
	t.Setenv("PROPERTIES_PATH", "/nonexistent/plant.properties")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Handlers{
		Log:      lg,
		Cfg:      cfg,
		Engine:   coord.NewEngine(cfg, lg, nil),
		Insights: insights.NewClient("", "test-model", lg),
	}
	return h, NewRouter(h, nil, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	_, router := newTestRouter(t)
	rr := doJSON(t, router, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("health returned %d", rr.Code)
	}
}

func TestUnitStatusRoutes(t *testing.T) {
	_, router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/units/status", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("all-units returned %d", rr.Code)
	}
	var units []model.UnitHealth
	if err := json.Unmarshal(rr.Body.Bytes(), &units); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("got %d units, want 3", len(units))
	}

	rr = doJSON(t, router, http.MethodGet, "/api/units/status/rotary_kiln", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("kiln status returned %d", rr.Code)
	}
	rr = doJSON(t, router, http.MethodGet, "/api/units/status/raw_mill", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown unit returned %d, want 404", rr.Code)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	_, router := newTestRouter(t)

	now := time.Now().UTC().Format(time.RFC3339)
	body := `{"readings":{"rotary_kiln":[{"unit":"rotary_kiln","sensorName":"burning_zone_temp","value":1530,"timestamp":"` + now + `"}]}}`
	rr := doJSON(t, router, http.MethodPost, "/api/sensors/snapshot", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("snapshot returned %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Units    []model.UnitHealth   `json:"units"`
		Messages []model.AgentMessage `json:"messages"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Units) != 1 {
		t.Fatalf("got %d unit healths, want 1", len(resp.Units))
	}
	if len(resp.Messages) == 0 {
		t.Fatal("an out-of-envelope reading produced no messages")
	}

	rr = doJSON(t, router, http.MethodPost, "/api/sensors/snapshot", `{"readings":{}}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty snapshot returned %d, want 400", rr.Code)
	}
	rr = doJSON(t, router, http.MethodPost, "/api/sensors/snapshot", `{"readings":{"raw_mill":[]}}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown-unit snapshot returned %d, want 404", rr.Code)
	}
}

func TestCommunicationsLimit(t *testing.T) {
	_, router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/agents/communications?limit=abc", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad limit returned %d, want 400", rr.Code)
	}
	rr = doJSON(t, router, http.MethodGet, "/api/agents/communications?limit=5", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("communications returned %d", rr.Code)
	}
	var msgs []model.AgentMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestFuelMixEndpoint(t *testing.T) {
	_, router := newTestRouter(t)

	body := `{"totalEnergyRequiredGJ":10000,"costPriority":0.5,"maxAlternativeFuelRate":0.65}`
	rr := doJSON(t, router, http.MethodPost, "/api/optimize/fuel-mix", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("fuel-mix returned %d: %s", rr.Code, rr.Body.String())
	}
	var res model.OptimizationResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Confidence <= 0 {
		t.Fatal("result missing confidence")
	}

	infeasible := `{"totalEnergyRequiredGJ":10000,"costPriority":0.5,"maxAlternativeFuelRate":0.65,"qualityConstraints":{"minCalorificValueMJPerKg":40}}`
	rr = doJSON(t, router, http.MethodPost, "/api/optimize/fuel-mix", infeasible)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("infeasible request returned %d, want 422", rr.Code)
	}
	var errBody map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody["constraint"] != "min_calorific_value" {
		t.Fatalf("constraint named %q, want min_calorific_value", errBody["constraint"])
	}
}

func TestProcessEndpoint(t *testing.T) {
	_, router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/optimize/process", `{}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("process returned %d: %s", rr.Code, rr.Body.String())
	}
	var res model.ProcessResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Setpoints) == 0 {
		t.Fatal("no set-points proposed")
	}

	rr = doJSON(t, router, http.MethodPost, "/api/optimize/process", `{"units":["raw_mill"]}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown unit returned %d, want 404", rr.Code)
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	_, router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/analytics/context", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("analytics context returned %d", rr.Code)
	}
	var ctx coord.AnalyticsContext
	if err := json.Unmarshal(rr.Body.Bytes(), &ctx); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ctx.Units) != 3 {
		t.Fatalf("context carries %d units, want 3", len(ctx.Units))
	}

	rr = doJSON(t, router, http.MethodPost, "/api/analytics/query", `{"question":"how is the kiln?"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("query without an API key returned %d, want 503", rr.Code)
	}
	rr = doJSON(t, router, http.MethodPost, "/api/analytics/query", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty question returned %d, want 400", rr.Code)
	}
}

func TestFuelsEndpoint(t *testing.T) {
	_, router := newTestRouter(t)
	rr := doJSON(t, router, http.MethodGet, "/api/fuels", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("fuels returned %d", rr.Code)
	}
	var fuels []model.FuelSpec
	if err := json.Unmarshal(rr.Body.Bytes(), &fuels); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(fuels) != 6 {
		t.Fatalf("got %d fuels, want the 6 defaults", len(fuels))
	}
}

// histStub feeds the maintenance and carbon collaborators in-memory history.
type histStub struct {
	data map[model.UnitID][]model.SensorState
}

func (s *histStub) HistoricalReadings(unit model.UnitID, since time.Time) ([]model.SensorState, error) {
	var out []model.SensorState
	for _, st := range s.data[unit] {
		if !st.Reading.Timestamp.Before(since) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *histStub) ReadingsBetween(from, to time.Time) ([]model.SensorState, error) {
	var out []model.SensorState
	for _, states := range s.data {
		for _, st := range states {
			ts := st.Reading.Timestamp
			if !ts.Before(from) && ts.Before(to) {
				out = append(out, st)
			}
		}
	}
	return out, nil
}

func kilnHistory(now time.Time) *histStub {
	s := &histStub{data: map[model.UnitID][]model.SensorState{}}
	for i := 0; i < 150; i++ {
		ts := now.Add(-time.Duration(149-i) * time.Hour)
		s.data[model.UnitRotaryKiln] = append(s.data[model.UnitRotaryKiln], model.SensorState{
			Reading: model.SensorReading{
				Unit:       model.UnitRotaryKiln,
				SensorName: "fuel_rate",
				Value:      12,
				Timestamp:  ts,
			},
			Severity: model.SeverityNormal,
		})
	}
	return s
}

func TestMaintenanceRoutesDisabledWithoutStore(t *testing.T) {
	_, router := newTestRouter(t)
	for _, path := range []string{
		"/api/maintenance/forecast/rotary_kiln",
		"/api/maintenance/dashboard",
		"/api/carbon/realtime",
		"/api/carbon/sustainability-score",
	} {
		rr := doJSON(t, router, http.MethodGet, path, "")
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s returned %d without a store, want 404", path, rr.Code)
		}
	}
}

func TestMaintenanceForecastRoute(t *testing.T) {
	h, router := newTestRouter(t)
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Now().UTC()
	h.Maintenance = maintenance.New(kilnHistory(now), h.Cfg, lg)

	rr := doJSON(t, router, http.MethodGet, "/api/maintenance/forecast/rotary_kiln", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("forecast returned %d: %s", rr.Code, rr.Body.String())
	}
	var f maintenance.Forecast
	if err := json.Unmarshal(rr.Body.Bytes(), &f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Unit != model.UnitRotaryKiln || f.HorizonHours != 24 {
		t.Fatalf("forecast %s over %d hours, want the kiln over 24", f.Unit, f.HorizonHours)
	}

	rr = doJSON(t, router, http.MethodGet, "/api/maintenance/forecast/rotary_kiln?hours=999", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range hours returned %d, want 400", rr.Code)
	}
	rr = doJSON(t, router, http.MethodGet, "/api/maintenance/forecast/raw_mill", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown unit returned %d, want 404", rr.Code)
	}
	rr = doJSON(t, router, http.MethodGet, "/api/maintenance/forecast/precalciner", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unit without history returned %d, want 422", rr.Code)
	}

	rr = doJSON(t, router, http.MethodGet, "/api/maintenance/dashboard", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard returned %d", rr.Code)
	}
}

func TestCarbonRoutes(t *testing.T) {
	h, router := newTestRouter(t)
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Now().UTC()
	h.Carbon = carbon.New(kilnHistory(now), lg)

	rr := doJSON(t, router, http.MethodGet, "/api/carbon/realtime", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("realtime returned %d: %s", rr.Code, rr.Body.String())
	}
	var rep carbon.Report
	if err := json.Unmarshal(rr.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.Emissions.TotalKgPerHour <= 0 {
		t.Fatal("realtime report has no emissions")
	}

	rr = doJSON(t, router, http.MethodGet, "/api/carbon/realtime?unit=raw_mill", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown unit returned %d, want 404", rr.Code)
	}
	rr = doJSON(t, router, http.MethodGet, "/api/carbon/monthly?month=13", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("month=13 returned %d, want 400", rr.Code)
	}
	rr = doJSON(t, router, http.MethodGet, "/api/carbon/benchmarks", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("benchmarks returned %d", rr.Code)
	}

	rr = doJSON(t, router, http.MethodGet, "/api/carbon/sustainability-score", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("score returned %d", rr.Code)
	}
	var score carbon.SustainabilityScore
	if err := json.Unmarshal(rr.Body.Bytes(), &score); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if score.ComponentScores["alternative_fuel_rate"] != 60 {
		t.Fatalf("AFR component %.1f before any blend, want the 60-point default",
			score.ComponentScores["alternative_fuel_rate"])
	}

	// A successful blend optimization feeds the tracker.
	body := `{"totalEnergyRequiredGJ":10000,"costPriority":0.5,"maxAlternativeFuelRate":0.65}`
	rr = doJSON(t, router, http.MethodPost, "/api/optimize/fuel-mix", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("fuel-mix returned %d: %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, router, http.MethodGet, "/api/carbon/sustainability-score", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("score after blend returned %d", rr.Code)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &score); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if score.ComponentScores["alternative_fuel_rate"] <= 60 {
		t.Fatalf("AFR component %.1f after a high-alternative blend, want above the default",
			score.ComponentScores["alternative_fuel_rate"])
	}
}

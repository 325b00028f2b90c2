// internal/maintenance/maintenance.go
package maintenance

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Raaghu1804/hackathon-zss/internal/agent"
	"github.com/Raaghu1804/hackathon-zss/internal/config"
	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

// History is the persisted-readings view the forecaster works from. The live
// engine keeps only the latest snapshot; trends need the external store.
type History interface {
	HistoricalReadings(unit model.UnitID, since time.Time) ([]model.SensorState, error)
}

const (
	lookback     = 7 * 24 * time.Hour
	minReadings  = 100
	recentWindow = 50

	maintenanceCostPerHour  = 5000.0 // USD
	productionTonnesPerHour = 285.0
	clinkerPricePerTonne    = 50.0
	reactiveCostMultiplier  = 3.0
)

// componentThresholds are the wear-component score floors per unit. A score
// below its floor opens a maintenance window.
var componentThresholds = map[model.UnitID]map[string]float64{
	model.UnitPreCalciner: {
		"refractory_wear":   0.75,
		"burner_efficiency": 0.80,
		"coating_stability": 0.70,
	},
	model.UnitRotaryKiln: {
		"refractory_life":   0.80,
		"bearing_condition": 0.85,
		"shell_integrity":   0.75,
	},
	model.UnitClinkerCooler: {
		"grate_wear":      0.70,
		"fan_bearing":     0.85,
		"plate_integrity": 0.80,
	},
}

// componentDurations estimates work hours per component overhaul.
var componentDurations = map[string]int{
	"refractory_wear":   120,
	"refractory_life":   120,
	"burner_efficiency": 8,
	"bearing_condition": 16,
	"fan_bearing":       16,
	"grate_wear":        24,
	"shell_integrity":   48,
	"coating_stability": 12,
	"plate_integrity":   12,
}

const defaultDurationHours = 12

// PredictedAnomaly is one sensor expected to leave its envelope inside the
// forecast horizon, extrapolated from the persisted trend.
type PredictedAnomaly struct {
	SensorName       string         `json:"sensorName"`
	EstimatedHours   float64        `json:"estimatedHours"`
	Severity         model.Severity `json:"severity"`
	Probability      float64        `json:"probability"`
	RootCause        string         `json:"rootCause"`
	PreventiveAction string         `json:"preventiveAction"`
}

// Window is one recommended maintenance slot, most urgent first.
type Window struct {
	Component              string  `json:"component"`
	CurrentScore           float64 `json:"currentScore"`
	Urgency                string  `json:"urgency"`
	RecommendedWindowDays  int     `json:"recommendedWindowDays"`
	EstimatedDurationHours int     `json:"estimatedDurationHours"`
	PreventiveAction       string  `json:"preventiveAction,omitempty"`
}

// CostImpact compares planned maintenance against letting the component fail.
type CostImpact struct {
	MaintenanceCostUSD float64 `json:"maintenanceCostUsd"`
	ProductionLossUSD  float64 `json:"productionLossUsd"`
	TotalCostUSD       float64 `json:"totalCostUsd"`
	CostIfFailureUSD   float64 `json:"costIfFailureUsd"`
}

// Forecast is the per-unit maintenance outlook.
type Forecast struct {
	Unit                   model.UnitID       `json:"unit"`
	HorizonHours           int                `json:"forecastHorizonHours"`
	PredictedAnomalies     []PredictedAnomaly `json:"predictedAnomalies"`
	ComponentScores        map[string]float64 `json:"componentScores"`
	RecommendedWindows     []Window           `json:"recommendedWindows"`
	EstimatedDowntimeHours float64            `json:"estimatedDowntimeHours"`
	CostImpact             CostImpact         `json:"costImpact"`
	Confidence             float64            `json:"confidence"`
	GeneratedAt            time.Time          `json:"generatedAt"`
}

// DashboardUnit carries one unit's forecast, or why it has none.
type DashboardUnit struct {
	Forecast *Forecast `json:"forecast,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Dashboard aggregates every unit's outlook.
type Dashboard struct {
	Units              map[model.UnitID]DashboardUnit `json:"units"`
	TotalDowntimeHours float64                        `json:"totalDowntimeHours"`
	TotalCostUSD       float64                        `json:"totalCostUsd"`
	GeneratedAt        time.Time                      `json:"generatedAt"`
}

// Engine derives maintenance forecasts from persisted sensor history. It is a
// read-only consumer of the store and never feeds back into the tick path.
type Engine struct {
	hist History
	cfg  *config.AppConfig
	lg   *slog.Logger
}

func New(hist History, cfg *config.AppConfig, lg *slog.Logger) *Engine {
	return &Engine{hist: hist, cfg: cfg, lg: lg.With(slog.String("component", "maintenance"))}
}

// Forecast computes the maintenance outlook for one unit over horizonHours.
// It needs at least a hundred persisted readings from the last seven days.
func (e *Engine) Forecast(unit model.UnitID, horizonHours int, now time.Time) (Forecast, error) {
	envelopes, ok := e.cfg.Envelopes[unit]
	if !ok {
		return Forecast{}, fmt.Errorf("%w: %s", model.ErrUnknownUnit, unit)
	}
	states, err := e.hist.HistoricalReadings(unit, now.Add(-lookback))
	if err != nil {
		return Forecast{}, fmt.Errorf("read history: %w", err)
	}
	if len(states) < minReadings {
		return Forecast{}, fmt.Errorf("%w: %d readings for %s, need %d",
			model.ErrInsufficientHistory, len(states), unit, minReadings)
	}

	bySensor := groupBySensor(states)
	predicted := predictAnomalies(bySensor, envelopes, horizonHours)
	scores := componentScores(unit, bySensor)
	windows := maintenanceWindows(unit, scores, predicted)
	downtime := 0.0
	for _, w := range windows {
		downtime += float64(w.EstimatedDurationHours)
	}

	f := Forecast{
		Unit:                   unit,
		HorizonHours:           horizonHours,
		PredictedAnomalies:     predicted,
		ComponentScores:        scores,
		RecommendedWindows:     windows,
		EstimatedDowntimeHours: downtime,
		CostImpact:             costImpact(downtime),
		Confidence:             confidence(len(states)),
		GeneratedAt:            now,
	}
	e.lg.Info("maintenance forecast",
		"unit", unit,
		"horizonHours", horizonHours,
		"predicted", len(predicted),
		"windows", len(windows))
	return f, nil
}

// DashboardAll builds the outlook for every unit. Units without enough
// history are reported with their error instead of failing the whole view.
func (e *Engine) DashboardAll(horizonHours int, now time.Time) Dashboard {
	d := Dashboard{
		Units:       make(map[model.UnitID]DashboardUnit, len(model.UnitPriority)),
		GeneratedAt: now,
	}
	for _, u := range model.UnitPriority {
		f, err := e.Forecast(u, horizonHours, now)
		if err != nil {
			d.Units[u] = DashboardUnit{Error: err.Error()}
			continue
		}
		d.Units[u] = DashboardUnit{Forecast: &f}
		d.TotalDowntimeHours += f.EstimatedDowntimeHours
		d.TotalCostUSD += f.CostImpact.TotalCostUSD
	}
	return d
}

// series is the per-sensor ordered value history.
type series struct {
	values    []float64
	times     []time.Time
	anomalies int
}

func (s series) recent() []float64 {
	if len(s.values) <= recentWindow {
		return s.values
	}
	return s.values[len(s.values)-recentWindow:]
}

func (s series) recentTimes() []time.Time {
	if len(s.times) <= recentWindow {
		return s.times
	}
	return s.times[len(s.times)-recentWindow:]
}

func (s series) anomalyRate() float64 {
	if len(s.values) == 0 {
		return 0
	}
	return float64(s.anomalies) / float64(len(s.values))
}

func groupBySensor(states []model.SensorState) map[string]*series {
	out := make(map[string]*series)
	for _, st := range states {
		sr, ok := out[st.Reading.SensorName]
		if !ok {
			sr = &series{}
			out[st.Reading.SensorName] = sr
		}
		sr.values = append(sr.values, st.Reading.Value)
		sr.times = append(sr.times, st.Reading.Timestamp)
		if st.IsAnomaly {
			sr.anomalies++
		}
	}
	return out
}

// predictAnomalies extrapolates each sensor's recent trend and reports the
// ones crossing their envelope inside the horizon.
func predictAnomalies(bySensor map[string]*series, envelopes map[string]config.SensorEnvelope, horizonHours int) []PredictedAnomaly {
	var out []PredictedAnomaly
	for name, sr := range bySensor {
		env, ok := envelopes[name]
		if !ok || len(sr.values) < 2 {
			continue
		}
		values := sr.recent()
		times := sr.recentTimes()
		slope := slopePerHour(times, values)
		latest := values[len(values)-1]

		hours, rising := hoursToEdge(latest, slope, env.Low, env.High)
		if hours < 0 || hours > float64(horizonHours) {
			continue
		}
		severity := model.SeverityWarning
		if critHours, _ := hoursToEdge(latest, slope, env.Low-env.CriticalMargin, env.High+env.CriticalMargin); critHours >= 0 && critHours <= float64(horizonHours) {
			severity = model.SeverityCritical
		}
		direction := "downward"
		edge := "lower"
		if rising {
			direction = "upward"
			edge = "upper"
		}
		out = append(out, PredictedAnomaly{
			SensorName:     name,
			EstimatedHours: hours,
			Severity:       severity,
			Probability:    math.Min(0.95, 0.5+sr.anomalyRate()),
			RootCause: fmt.Sprintf("sustained %s trend toward the %s operating limit (%.3g %s per hour)",
				direction, edge, math.Abs(slope), env.UnitOfMeasure),
			PreventiveAction: agent.SuggestAction(name),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EstimatedHours != out[j].EstimatedHours {
			return out[i].EstimatedHours < out[j].EstimatedHours
		}
		return out[i].SensorName < out[j].SensorName
	})
	return out
}

// hoursToEdge returns how many hours until the extrapolated value crosses
// the band, and whether the trend is rising. Negative means never inside a
// finite horizon. A value already outside crosses immediately.
func hoursToEdge(latest, slope, low, high float64) (float64, bool) {
	if latest > high {
		return 0, true
	}
	if latest < low {
		return 0, false
	}
	const minSlope = 1e-9
	switch {
	case slope > minSlope:
		return (high - latest) / slope, true
	case slope < -minSlope:
		return (latest - low) / -slope, false
	}
	return -1, slope > 0
}

func componentScores(unit model.UnitID, bySensor map[string]*series) map[string]float64 {
	scores := make(map[string]float64)
	switch unit {
	case model.UnitPreCalciner:
		scores["refractory_wear"] = assessRefractory(bySensor)
		scores["burner_efficiency"] = assessBurner(bySensor)
		scores["coating_stability"] = assessCoating(bySensor)
	case model.UnitRotaryKiln:
		scores["refractory_life"] = assessRefractory(bySensor)
		scores["bearing_condition"] = assessBearing(bySensor)
		scores["shell_integrity"] = assessShellIntegrity(bySensor)
	case model.UnitClinkerCooler:
		scores["grate_wear"] = assessGrateWear(bySensor)
		scores["fan_bearing"] = assessBearing(bySensor)
		scores["plate_integrity"] = assessPlateIntegrity(bySensor)
	}
	return scores
}

// assessRefractory scores the lining from average shell temperature: 200 °C is
// sound, 350 °C is critical wear.
func assessRefractory(bySensor map[string]*series) float64 {
	sr, ok := bySensor["shell_temp"]
	if !ok {
		return 0.9
	}
	avg := mean(sr.recent())
	return clamp01(1 - (avg-200)/150)
}

// assessBurner flags efficiency loss when fuel trends up while temperature
// trends down.
func assessBurner(bySensor map[string]*series) float64 {
	fuel := firstSeries(bySensor, "fuel_flow", "fuel_rate")
	temp := firstSeries(bySensor, "temperature", "burning_zone_temp")
	if fuel == nil || temp == nil {
		return 0.85
	}
	fuelTrend := slopePerHour(fuel.recentTimes(), fuel.recent())
	tempTrend := slopePerHour(temp.recentTimes(), temp.recent())
	if fuelTrend > 0 && tempTrend < 0 {
		return 0.6
	}
	return 0.9
}

// assessCoating scores coating stability from temperature volatility.
func assessCoating(bySensor map[string]*series) float64 {
	temp := firstSeries(bySensor, "temperature", "burning_zone_temp")
	if temp == nil {
		return 0.85
	}
	return clamp01(1 - stddev(temp.recent())/50)
}

// assessBearing looks for irregular step-to-step speed variation.
func assessBearing(bySensor map[string]*series) float64 {
	var names []string
	for name := range bySensor {
		if strings.Contains(strings.ToLower(name), "speed") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return 0.9
	}
	sort.Strings(names)
	recent := bySensor[names[0]].recent()
	if len(recent) < 2 {
		return 0.9
	}
	diffs := make([]float64, len(recent)-1)
	for i := 1; i < len(recent); i++ {
		diffs[i-1] = recent[i] - recent[i-1]
	}
	return clamp01(1 - stddev(diffs)/2)
}

func assessShellIntegrity(bySensor map[string]*series) float64 {
	sr, ok := bySensor["shell_temp"]
	if !ok {
		return 0.85
	}
	return clamp01(1 - stddev(sr.recent())/100)
}

func assessGrateWear(bySensor map[string]*series) float64 {
	sr, ok := bySensor["grate_speed"]
	if !ok {
		return 0.85
	}
	return math.Min(1, mean(sr.recent())/20)
}

func assessPlateIntegrity(bySensor map[string]*series) float64 {
	sr, ok := bySensor["cooler_efficiency"]
	if !ok {
		return 0.8
	}
	return math.Min(1, mean(sr.recent())/85)
}

func maintenanceWindows(unit model.UnitID, scores map[string]float64, predicted []PredictedAnomaly) []Window {
	var out []Window
	thresholds := componentThresholds[unit]
	for component, score := range scores {
		threshold, ok := thresholds[component]
		if !ok {
			threshold = 0.75
		}
		if score >= threshold {
			continue
		}
		urgency := "medium"
		days := 30
		switch {
		case score < 0.6:
			urgency = "critical"
			days = 7
		case score < 0.7:
			urgency = "high"
			days = 14
		}
		duration, ok := componentDurations[component]
		if !ok {
			duration = defaultDurationHours
		}
		out = append(out, Window{
			Component:              component,
			CurrentScore:           score,
			Urgency:                urgency,
			RecommendedWindowDays:  days,
			EstimatedDurationHours: duration,
		})
	}
	for _, p := range predicted {
		if p.Severity != model.SeverityCritical {
			continue
		}
		out = append(out, Window{
			Component:              p.SensorName,
			CurrentScore:           1 - p.Probability,
			Urgency:                string(p.Severity),
			RecommendedWindowDays:  max(1, int(p.EstimatedHours/24)),
			EstimatedDurationHours: 8,
			PreventiveAction:       p.PreventiveAction,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CurrentScore != out[j].CurrentScore {
			return out[i].CurrentScore < out[j].CurrentScore
		}
		return out[i].Component < out[j].Component
	})
	return out
}

func costImpact(downtimeHours float64) CostImpact {
	maintenance := downtimeHours * maintenanceCostPerHour
	loss := downtimeHours * productionTonnesPerHour * clinkerPricePerTonne
	return CostImpact{
		MaintenanceCostUSD: maintenance,
		ProductionLossUSD:  loss,
		TotalCostUSD:       maintenance + loss,
		CostIfFailureUSD:   (maintenance + loss) * reactiveCostMultiplier,
	}
}

// confidence grows with sample count and saturates at 0.9.
func confidence(samples int) float64 {
	return math.Min(0.9, 0.5+float64(samples)/5000)
}

func firstSeries(bySensor map[string]*series, names ...string) *series {
	for _, n := range names {
		if sr, ok := bySensor[n]; ok {
			return sr
		}
	}
	return nil
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func stddev(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	m := mean(v)
	sum := 0.0
	for _, x := range v {
		sum += (x - m) * (x - m)
	}
	return math.Sqrt(sum / float64(len(v)))
}

// slopePerHour is the least-squares slope of values over hours elapsed.
func slopePerHour(times []time.Time, values []float64) float64 {
	if len(values) < 2 || len(times) != len(values) {
		return 0
	}
	t0 := times[0]
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := times[i].Sub(t0).Hours()
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	n := float64(len(values))
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

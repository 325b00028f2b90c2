// internal/carbon/carbon.go
package carbon

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

// History is the persisted-readings view the tracker reports over.
type History interface {
	HistoricalReadings(unit model.UnitID, since time.Time) ([]model.SensorState, error)
	ReadingsBetween(from, to time.Time) ([]model.SensorState, error)
}

// Emission factors in kg CO2 per unit.
const (
	electricityFactorKgPerKWh = 0.82  // India grid average
	coalFactorKgPerGJ         = 94.6  // default until a blend is observed
	calcinationFactorKgPerT   = 525.0 // process emissions per tonne clinker

	coalGJPerTonne          = 25.5
	plantPowerKW            = 30000.0
	feedConversionFactor    = 0.9
	fallbackProductionTPerH = 285.0
	defaultAltFuelRatePct   = 30.0
)

// Benchmarks are industry carbon intensities in kg CO2 per tonne cement.
var Benchmarks = map[string]float64{
	"world_average":     650,
	"india_average":     720,
	"best_in_class":     550,
	"european_standard": 600,
	"target_2030":       520,
}

var sustainabilityWeights = map[string]float64{
	"carbon_intensity":      0.35,
	"alternative_fuel_rate": 0.25,
	"energy_efficiency":     0.20,
	"waste_heat_recovery":   0.10,
	"circular_economy":      0.10,
}

// carbonPriceScenarios are USD per tonne CO2.
var carbonPriceScenarios = map[string]float64{
	"current_india": 0,
	"eu_ets":        85,
	"social_cost":   51,
	"paris_aligned": 120,
}

// EmissionsBreakdown splits hourly emissions by source.
type EmissionsBreakdown struct {
	FuelCombustionKgPerHour float64            `json:"fuelCombustionKgPerHour"`
	ElectricityKgPerHour    float64            `json:"electricityKgPerHour"`
	ProcessKgPerHour        float64            `json:"processKgPerHour"`
	TotalKgPerHour          float64            `json:"totalKgPerHour"`
	BreakdownPercent        map[string]float64 `json:"breakdownPercent"`
}

// BenchmarkComparison positions the current intensity against one benchmark.
type BenchmarkComparison struct {
	Value                float64 `json:"value"`
	Difference           float64 `json:"difference"`
	PercentageDifference float64 `json:"percentageDifference"`
	Status               string  `json:"status"`
}

// SustainabilityScore is the weighted 0-100 score with its letter grade.
type SustainabilityScore struct {
	TotalScore      float64            `json:"totalScore"`
	Grade           string             `json:"grade"`
	ComponentScores map[string]float64 `json:"componentScores"`
	Interpretation  string             `json:"interpretation"`
}

// Report is the real-time footprint over the last hour of readings.
type Report struct {
	Unit                       string                         `json:"unit"`
	Emissions                  EmissionsBreakdown             `json:"emissionsBreakdown"`
	ProductionTonnesPerHour    float64                        `json:"productionRateTonnesPerHour"`
	CarbonIntensityKgPerTonne  float64                        `json:"carbonIntensityKgCo2PerTonne"`
	BenchmarkComparison        map[string]BenchmarkComparison `json:"benchmarkComparison"`
	Insights                   []string                       `json:"insights"`
	Sustainability             SustainabilityScore            `json:"sustainabilityScore"`
	AvoidedEmissionsTonnesYear float64                        `json:"avoidedEmissionsTonnesPerYear"`
	GeneratedAt                time.Time                      `json:"generatedAt"`
}

// MonthlyReport aggregates a closed calendar month.
type MonthlyReport struct {
	Month   string `json:"month"`
	Summary struct {
		TotalEmissionsTonnes   float64 `json:"totalEmissionsTonnes"`
		TotalProductionTonnes  float64 `json:"totalProductionTonnes"`
		AverageCarbonIntensity float64 `json:"averageCarbonIntensity"`
		BestDayIntensity       float64 `json:"bestDayIntensity"`
		WorstDayIntensity      float64 `json:"worstDayIntensity"`
	} `json:"summary"`
	Trends struct {
		IntensityTrend        string  `json:"intensityTrend"`
		DailyVariationPercent float64 `json:"dailyVariationPercent"`
	} `json:"trends"`
	BenchmarkComparison map[string]BenchmarkComparison `json:"benchmarkComparison"`
	CostOfCarbonUSD     map[string]float64             `json:"costOfCarbon"`
	Recommendations     []string                       `json:"recommendations"`
	GeneratedAt         time.Time                      `json:"generatedAt"`
}

// Tracker computes emissions, benchmark standing and the sustainability score
// from persisted readings. The fuel factor and alternative-fuel rate follow
// the latest observed blend; until one is observed, all-coal firing is
// assumed.
type Tracker struct {
	hist History
	lg   *slog.Logger

	mu                sync.RWMutex
	hasBlend          bool
	fuelFactorKgPerGJ float64
	altFuelRatePct    float64
}

func New(hist History, lg *slog.Logger) *Tracker {
	return &Tracker{
		hist:              hist,
		lg:                lg.With(slog.String("component", "carbon")),
		fuelFactorKgPerGJ: coalFactorKgPerGJ,
		altFuelRatePct:    defaultAltFuelRatePct,
	}
}

// ObserveBlend updates the effective fuel emission factor and the
// alternative-fuel rate from a fresh optimization result.
func (t *Tracker) ObserveBlend(res model.OptimizationResult) {
	energy := 0.0
	for _, gj := range res.EnergyBreakdownGJ {
		energy += gj
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.altFuelRatePct = res.AlternativeFuelRatePct
	if energy > 0 {
		t.fuelFactorKgPerGJ = res.Environmental.TotalCO2Tonnes * 1000 / energy
	}
	t.hasBlend = true
}

// Realtime reports the footprint over the last hour. An empty unit covers the
// whole plant.
func (t *Tracker) Realtime(unit model.UnitID, now time.Time) (Report, error) {
	states, err := t.readings(unit, now.Add(-time.Hour))
	if err != nil {
		return Report{}, err
	}
	if len(states) == 0 {
		return Report{}, fmt.Errorf("%w: no readings in the last hour", model.ErrInsufficientHistory)
	}

	fuelFactor, afr := t.blend()
	bySensor := averagesBySensor(states)
	emissions := emissionsBreakdown(bySensor, fuelFactor)
	production := productionRate(bySensor)
	intensity := 0.0
	if production > 0 {
		intensity = emissions.TotalKgPerHour / production
	}

	label := string(unit)
	if unit == "" {
		label = "all"
	}
	r := Report{
		Unit:                       label,
		Emissions:                  emissions,
		ProductionTonnesPerHour:    production,
		CarbonIntensityKgPerTonne:  intensity,
		BenchmarkComparison:        compareBenchmarks(intensity),
		Insights:                   insights(intensity, emissions),
		Sustainability:             sustainabilityScore(intensity, afr),
		AvoidedEmissionsTonnesYear: avoidedEmissions(intensity),
		GeneratedAt:                now,
	}
	t.lg.Info("carbon footprint",
		"unit", label,
		"intensityKgPerTonne", intensity,
		"score", r.Sustainability.TotalScore)
	return r, nil
}

// Monthly aggregates one calendar month across the whole plant.
func (t *Tracker) Monthly(year int, month time.Month, now time.Time) (MonthlyReport, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	states, err := t.hist.ReadingsBetween(start, end)
	if err != nil {
		return MonthlyReport{}, err
	}
	if len(states) == 0 {
		return MonthlyReport{}, fmt.Errorf("%w: no readings in %04d-%02d", model.ErrInsufficientHistory, year, month)
	}

	fuelFactor, _ := t.blend()
	byDay := make(map[string][]model.SensorState)
	for _, st := range states {
		day := st.Reading.Timestamp.UTC().Format("2006-01-02")
		byDay[day] = append(byDay[day], st)
	}
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	var totalEmissions, totalProduction float64
	var dailyIntensities []float64
	for _, day := range days {
		bySensor := averagesBySensor(byDay[day])
		emissions := emissionsBreakdown(bySensor, fuelFactor).TotalKgPerHour * 24
		production := productionRate(bySensor) * 24
		totalEmissions += emissions
		totalProduction += production
		if production > 0 {
			dailyIntensities = append(dailyIntensities, emissions/production)
		}
	}
	avgIntensity := 0.0
	if totalProduction > 0 {
		avgIntensity = totalEmissions / totalProduction
	}

	var r MonthlyReport
	r.Month = fmt.Sprintf("%04d-%02d", year, month)
	r.Summary.TotalEmissionsTonnes = totalEmissions / 1000
	r.Summary.TotalProductionTonnes = totalProduction
	r.Summary.AverageCarbonIntensity = avgIntensity
	if len(dailyIntensities) > 0 {
		best, worst := dailyIntensities[0], dailyIntensities[0]
		for _, v := range dailyIntensities {
			best = math.Min(best, v)
			worst = math.Max(worst, v)
		}
		r.Summary.BestDayIntensity = best
		r.Summary.WorstDayIntensity = worst
	}
	r.Trends.IntensityTrend = "stable"
	if len(dailyIntensities) > 1 && dailyIntensities[len(dailyIntensities)-1] < dailyIntensities[0] {
		r.Trends.IntensityTrend = "improving"
	}
	if m := mean(dailyIntensities); m > 0 {
		r.Trends.DailyVariationPercent = stddev(dailyIntensities) / m * 100
	}
	r.BenchmarkComparison = compareBenchmarks(avgIntensity)
	r.CostOfCarbonUSD = carbonCost(totalEmissions)
	r.Recommendations = monthlyRecommendations(avgIntensity, dailyIntensities)
	r.GeneratedAt = now
	return r, nil
}

func (t *Tracker) blend() (fuelFactor, afrPct float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fuelFactorKgPerGJ, t.altFuelRatePct
}

func (t *Tracker) readings(unit model.UnitID, since time.Time) ([]model.SensorState, error) {
	if unit != "" {
		return t.hist.HistoricalReadings(unit, since)
	}
	var out []model.SensorState
	for _, u := range model.UnitPriority {
		states, err := t.hist.HistoricalReadings(u, since)
		if err != nil {
			return nil, err
		}
		out = append(out, states...)
	}
	return out, nil
}

func averagesBySensor(states []model.SensorState) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, st := range states {
		sums[st.Reading.SensorName] += st.Reading.Value
		counts[st.Reading.SensorName]++
	}
	out := make(map[string]float64, len(sums))
	for name, sum := range sums {
		out[name] = sum / float64(counts[name])
	}
	return out
}

func emissionsBreakdown(bySensor map[string]float64, fuelFactorKgPerGJ float64) EmissionsBreakdown {
	var e EmissionsBreakdown
	for _, sensor := range []string{"fuel_flow", "fuel_rate"} {
		if rate, ok := bySensor[sensor]; ok {
			e.FuelCombustionKgPerHour += rate * coalGJPerTonne * fuelFactorKgPerGJ
		}
	}
	e.ElectricityKgPerHour = plantPowerKW * electricityFactorKgPerKWh
	e.ProcessKgPerHour = productionRate(bySensor) * calcinationFactorKgPerT
	e.TotalKgPerHour = e.FuelCombustionKgPerHour + e.ElectricityKgPerHour + e.ProcessKgPerHour

	e.BreakdownPercent = map[string]float64{}
	if e.TotalKgPerHour > 0 {
		e.BreakdownPercent["fuel_combustion"] = e.FuelCombustionKgPerHour / e.TotalKgPerHour * 100
		e.BreakdownPercent["electricity"] = e.ElectricityKgPerHour / e.TotalKgPerHour * 100
		e.BreakdownPercent["process_emissions"] = e.ProcessKgPerHour / e.TotalKgPerHour * 100
	}
	return e
}

func productionRate(bySensor map[string]float64) float64 {
	if feed, ok := bySensor["feed_rate"]; ok {
		return feed * feedConversionFactor
	}
	return fallbackProductionTPerH
}

func compareBenchmarks(intensity float64) map[string]BenchmarkComparison {
	out := make(map[string]BenchmarkComparison, len(Benchmarks))
	for name, value := range Benchmarks {
		diff := intensity - value
		status := "worse"
		if diff < 0 {
			status = "better"
		}
		out[name] = BenchmarkComparison{
			Value:                value,
			Difference:           diff,
			PercentageDifference: diff / value * 100,
			Status:               status,
		}
	}
	return out
}

func insights(intensity float64, e EmissionsBreakdown) []string {
	var out []string
	switch {
	case intensity < Benchmarks["best_in_class"]:
		out = append(out, fmt.Sprintf("Carbon intensity (%.0f kg/tonne) is better than the best-in-class benchmark", intensity))
	case intensity > Benchmarks["india_average"]:
		out = append(out, fmt.Sprintf("Carbon intensity (%.0f kg/tonne) exceeds the India average; focus on efficiency improvements", intensity))
	}
	b := e.BreakdownPercent
	if b["fuel_combustion"] > 50 {
		out = append(out, "Fuel combustion is the largest emission source; consider raising the alternative fuel rate")
	}
	if b["process_emissions"] > 45 {
		out = append(out, "Process emissions are high; explore clinker substitution (slag, fly ash)")
	}
	if b["electricity"] > 20 {
		out = append(out, "Electrical consumption is significant; optimize motor efficiency and waste heat recovery")
	}
	out = append(out, fmt.Sprintf("Current operation avoids %.0f tonnes CO2 per year versus the India average", avoidedEmissions(intensity)))
	return out
}

// avoidedEmissions is annual tonnes saved against the India-average intensity
// at nameplate production.
func avoidedEmissions(intensity float64) float64 {
	annualProduction := fallbackProductionTPerH * 24 * 330
	avoided := (Benchmarks["india_average"] - intensity) * annualProduction / 1000
	return math.Max(0, avoided)
}

func sustainabilityScore(intensity, afrPct float64) SustainabilityScore {
	scores := map[string]float64{
		// 550 kg/tonne scores 100, 800 scores 0.
		"carbon_intensity":      clampScore((800 - intensity) / (800 - 550) * 100),
		"alternative_fuel_rate": clampScore(afrPct * 2),
		// Specific energy near 100 kWh/tonne against a 95 target.
		"energy_efficiency":   clampScore((120 - 100) / (120 - 95) * 100),
		"waste_heat_recovery": 70,
		"circular_economy":    50,
	}
	total := 0.0
	for key, score := range scores {
		total += score * sustainabilityWeights[key]
	}
	return SustainabilityScore{
		TotalScore:      total,
		Grade:           grade(total),
		ComponentScores: scores,
		Interpretation:  interpret(total),
	}
}

func grade(score float64) string {
	switch {
	case score >= 90:
		return "A+"
	case score >= 80:
		return "A"
	case score >= 70:
		return "B+"
	case score >= 60:
		return "B"
	case score >= 50:
		return "C"
	}
	return "D"
}

func interpret(score float64) string {
	switch {
	case score >= 80:
		return "Outstanding sustainability performance, leading industry standards"
	case score >= 70:
		return "Good sustainability practices, above average performance"
	case score >= 60:
		return "Moderate sustainability, room for improvement in key areas"
	}
	return "Sustainability improvement needed, focus on emissions reduction"
}

func carbonCost(totalEmissionsKg float64) map[string]float64 {
	tonnes := totalEmissionsKg / 1000
	out := make(map[string]float64, len(carbonPriceScenarios))
	for scenario, price := range carbonPriceScenarios {
		out[scenario] = tonnes * price
	}
	return out
}

func monthlyRecommendations(avgIntensity float64, daily []float64) []string {
	var out []string
	if m := mean(daily); m > 0 && stddev(daily)/m > 0.15 {
		out = append(out, "High day-to-day variability detected; focus on process stabilization")
	}
	if avgIntensity > Benchmarks["india_average"] {
		out = append(out, "Carbon intensity above the India average; raise the alternative fuel rate and improve thermal efficiency")
	}
	if gap := avgIntensity - Benchmarks["target_2030"]; gap > 0 {
		out = append(out, fmt.Sprintf("Reduce intensity by %.0f kg/tonne to meet the 2030 target", gap))
	}
	if avgIntensity < Benchmarks["world_average"] {
		out = append(out, "Below the world average; continue current optimization strategies")
	}
	return out
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
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

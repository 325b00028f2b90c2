// internal/model/models.go
package model

import "time"

// UnitID identifies one of the three monitored production stages.
type UnitID string

const (
	UnitPreCalciner   UnitID = "precalciner"
	UnitRotaryKiln    UnitID = "rotary_kiln"
	UnitClinkerCooler UnitID = "clinker_cooler"
)

// UnitPriority is the fixed ordering used to break ties when several units
// raise messages within the same tick.
var UnitPriority = []UnitID{UnitPreCalciner, UnitRotaryKiln, UnitClinkerCooler}

// AgentName maps a unit to the display name used on the communication log.
func AgentName(u UnitID) string {
	switch u {
	case UnitPreCalciner:
		return "PreCalciner-AI"
	case UnitRotaryKiln:
		return "RotaryKiln-AI"
	case UnitClinkerCooler:
		return "ClinkerCooler-AI"
	}
	return string(u)
}

// Severity classifies how far a reading sits from its operating envelope.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank orders severities so comparisons do not depend on string values.
func (s Severity) Rank() int {
	switch s {
	case SeverityWarning:
		return 1
	case SeverityCritical:
		return 2
	}
	return 0
}

// OptimalRange is the declared normal operating envelope for one sensor.
type OptimalRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Width returns the envelope span.
func (r OptimalRange) Width() float64 { return r.High - r.Low }

// SensorReading is one immutable measurement produced by the telemetry feed.
type SensorReading struct {
	Unit          UnitID       `json:"unit"`
	SensorName    string       `json:"sensorName"`
	Value         float64      `json:"value"`
	UnitOfMeasure string       `json:"unitOfMeasure"`
	Timestamp     time.Time    `json:"timestamp"`
	OptimalRange  OptimalRange `json:"optimalRange"`
}

// SensorState is the classified view of a single reading. It is recomputed on
// every new reading and never mutated in place.
type SensorState struct {
	Reading   SensorReading `json:"reading"`
	Severity  Severity      `json:"severity"`
	IsAnomaly bool          `json:"isAnomaly"`
}

// UnitHealth is the per-unit summary derived from the latest snapshot plus any
// still-open cross-unit flags. It is not a running average.
type UnitHealth struct {
	Unit          UnitID        `json:"unit"`
	Status        Severity      `json:"status"`
	HealthScore   float64       `json:"healthScore"`
	Efficiency    float64       `json:"efficiency"`
	AnomalyCount  int           `json:"anomalyCount"`
	CriticalCount int           `json:"criticalCount"`
	OpenFlags     []string      `json:"openFlags,omitempty"`
	Sensors       []SensorState `json:"sensors"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// AgentMessage is one append-only entry on the coordinator's communication
// log. The log is the audit trail and is never edited or deleted.
type AgentMessage struct {
	ID          string    `json:"id"`
	FromAgent   string    `json:"fromAgent"`
	ToAgent     string    `json:"toAgent"`
	Severity    Severity  `json:"severity"`
	MessageText string    `json:"messageText"`
	ActionTaken string    `json:"actionTaken,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// FuelSpec is static reference data for one fuel type. Costs are per tonne of
// fuel; the CO2 factor is per GJ of thermal energy delivered.
type FuelSpec struct {
	Name                  string  `json:"name"`
	CalorificValueMJPerKg float64 `json:"calorificValueMJPerKg"`
	AshContentPct         float64 `json:"ashContentPct"`
	CostPerTonne          float64 `json:"costPerTonne"`
	CO2FactorKgPerGJ      float64 `json:"co2FactorKgPerGJ"`
	MaxAvailabilityTonnes float64 `json:"maxAvailabilityTonnes"`
	Primary               bool    `json:"primary"`
}

// CostPerGJ converts the per-tonne price into a per-GJ price. Calorific value
// in MJ/kg equals GJ per tonne.
func (f FuelSpec) CostPerGJ() float64 {
	if f.CalorificValueMJPerKg <= 0 {
		return 0
	}
	return f.CostPerTonne / f.CalorificValueMJPerKg
}

// QualityConstraints are the hard product-quality ceilings for a fuel blend.
type QualityConstraints struct {
	MaxAshContentPct         float64 `json:"maxAshContentPct"`
	MinCalorificValueMJPerKg float64 `json:"minCalorificValueMJPerKg"`
}

// OptimizationRequest describes one fuel-mix optimization call.
type OptimizationRequest struct {
	TotalEnergyRequiredGJ  float64            `json:"totalEnergyRequiredGJ"`
	CostPriority           float64            `json:"costPriority"`
	MaxAlternativeFuelRate float64            `json:"maxAlternativeFuelRate"`
	Quality                QualityConstraints `json:"qualityConstraints"`
}

// Economics compares the optimized blend against the fixed all-primary
// baseline.
type Economics struct {
	TotalCost    float64 `json:"totalCost"`
	BaselineCost float64 `json:"baselineCost"`
	SavingsPct   float64 `json:"savingsPct"`
}

// Environmental reports CO2 in tonnes against the all-primary baseline.
type Environmental struct {
	TotalCO2Tonnes    float64 `json:"totalCo2Tonnes"`
	BaselineCO2Tonnes float64 `json:"baselineCo2Tonnes"`
	ReductionPct      float64 `json:"reductionPct"`
}

// QualityMetrics summarizes the blended fuel quality.
type QualityMetrics struct {
	WeightedAshPct           float64 `json:"weightedAshPct"`
	WeightedCalorificMJPerKg float64 `json:"weightedCalorificMJPerKg"`
}

// OptimizationResult is produced fresh on every optimization call and never
// mutated after construction.
type OptimizationResult struct {
	FuelFractions          map[string]float64 `json:"fuelFractions"`
	AlternativeFuelRatePct float64            `json:"alternativeFuelRatePct"`
	EnergyBreakdownGJ      map[string]float64 `json:"energyBreakdownGJ"`
	Economics              Economics          `json:"economics"`
	Environmental          Environmental      `json:"environmental"`
	Quality                QualityMetrics     `json:"quality"`
	Confidence             float64            `json:"confidence"`
	Recommendations        []string           `json:"recommendations"`
	GeneratedAt            time.Time          `json:"generatedAt"`
}

// SetpointProposal is one suggested process-parameter adjustment.
type SetpointProposal struct {
	Unit      UnitID  `json:"unit"`
	Parameter string  `json:"parameter"`
	Current   float64 `json:"current"`
	Suggested float64 `json:"suggested"`
	Low       float64 `json:"low"`
	High      float64 `json:"high"`
	Reason    string  `json:"reason"`
}

// ObjectiveBreakdown reports the weighted components of the process objective.
type ObjectiveBreakdown struct {
	EnergyEfficiency   float64 `json:"energyEfficiency"`
	QualityScore       float64 `json:"qualityScore"`
	EnvironmentalScore float64 `json:"environmentalScore"`
	WeatherPenalty     float64 `json:"weatherPenalty"`
	Total              float64 `json:"total"`
}

// ProcessResult is the OptimizationResult-shaped output for set-point
// optimization, restricted to process parameters rather than fuel fractions.
type ProcessResult struct {
	Setpoints       []SetpointProposal `json:"setpoints"`
	Objective       ObjectiveBreakdown `json:"objective"`
	Confidence      float64            `json:"confidence"`
	Recommendations []string           `json:"recommendations"`
	GeneratedAt     time.Time          `json:"generatedAt"`
}

// ExternalContext carries optional ambient conditions supplied by an external
// collaborator. Absence of context never fails a call.
type ExternalContext struct {
	AmbientTempC       float64 `json:"ambientTempC"`
	AmbientHumidityPct float64 `json:"ambientHumidityPct"`
}

// Event is the outbound payload emitted to the broadcast layer on every state
// transition or newly logged message.
type Event struct {
	Type      string    `json:"type"`
	Unit      UnitID    `json:"unit,omitempty"`
	Severity  Severity  `json:"severity,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventSensorUpdate    = "sensor_update"
	EventStateTransition = "state_transition"
	EventAgentMessage    = "agent_message"
)

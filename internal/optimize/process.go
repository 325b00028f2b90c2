// internal/optimize/process.go
package optimize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Raaghu1804/hackathon-zss/internal/config"
	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

// paramKind selects how the preferred set-point inside the band is chosen.
type paramKind int

const (
	// kindIdeal targets a declared ideal operating point.
	kindIdeal paramKind = iota
	// kindLean targets the low quarter of the band (consumption-type
	// parameters where less is cheaper).
	kindLean
	// kindCenter targets the band midpoint.
	kindCenter
)

type paramSpec struct {
	Unit  model.UnitID
	Name  string
	Kind  paramKind
	Ideal float64
}

// processParams are the controllable set-points considered by the process
// optimizer, with their targeting strategy.
var processParams = []paramSpec{
	{Unit: model.UnitPreCalciner, Name: "fuel_flow", Kind: kindLean},
	{Unit: model.UnitPreCalciner, Name: "feed_rate", Kind: kindCenter},
	{Unit: model.UnitPreCalciner, Name: "tertiary_air_temp", Kind: kindCenter},
	{Unit: model.UnitRotaryKiln, Name: "burning_zone_temp", Kind: kindIdeal, Ideal: 1450},
	{Unit: model.UnitRotaryKiln, Name: "kiln_speed", Kind: kindIdeal, Ideal: 4.0},
	{Unit: model.UnitRotaryKiln, Name: "fuel_rate", Kind: kindLean},
	{Unit: model.UnitClinkerCooler, Name: "grate_speed", Kind: kindCenter},
	{Unit: model.UnitClinkerCooler, Name: "cooling_air_flow", Kind: kindCenter},
}

// humidityNarrowPct shrinks the tertiary-air band on each side when ambient
// humidity is high: moist combustion air limits the achievable temperature.
const (
	highHumidityPct   = 70.0
	humidityNarrowPct = 0.15
)

// OptimizeProcess proposes set-point adjustments for the supplied units using
// the same weighted-objective structure as the fuel blend, with bounds taken
// from each unit's declared envelope. External context perturbs the bounds but
// is never required; its absence only lowers the reported confidence.
func OptimizeProcess(ctx context.Context, units []model.UnitHealth, ext *model.ExternalContext, cfg *config.AppConfig) (*model.ProcessResult, error) {
	if err := deadlineErr(ctx); err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, errors.New("process optimizer: no unit states supplied")
	}

	byUnit := make(map[model.UnitID]model.UnitHealth, len(units))
	for _, u := range units {
		if _, ok := cfg.Envelopes[u.Unit]; !ok {
			return nil, fmt.Errorf("%w: %s", model.ErrUnknownUnit, u.Unit)
		}
		byUnit[u.Unit] = u
	}

	var (
		proposals []model.SetpointProposal
		clamped   int
		worst     model.Severity = model.SeverityNormal
	)
	suggested := map[string]float64{}

	for _, p := range processParams {
		uh, ok := byUnit[p.Unit]
		if !ok {
			continue
		}
		env, ok := cfg.Envelope(p.Unit, p.Name)
		if !ok {
			continue
		}
		low, high := env.Low, env.High
		if ext != nil && p.Name == "tertiary_air_temp" && ext.AmbientHumidityPct > highHumidityPct {
			span := high - low
			low += span * humidityNarrowPct
			high -= span * humidityNarrowPct
		}

		target := preferredValue(p, low, high)
		if uh.Status != model.SeverityNormal {
			// A degraded unit is steered conservatively toward the
			// band center.
			target = (target + (low+high)/2) / 2
		}
		value := clamp(target, low, high)
		if value == low || value == high {
			clamped++
		}
		if uh.Status.Rank() > worst.Rank() {
			worst = uh.Status
		}

		current := currentValue(uh, p.Name, (low+high)/2)
		proposals = append(proposals, model.SetpointProposal{
			Unit:      p.Unit,
			Parameter: p.Name,
			Current:   current,
			Suggested: value,
			Low:       low,
			High:      high,
			Reason:    proposalReason(p, uh.Status),
		})
		suggested[string(p.Unit)+"/"+p.Name] = value
	}
	if len(proposals) == 0 {
		return nil, errors.New("process optimizer: no controllable parameters for the supplied units")
	}
	if err := deadlineErr(ctx); err != nil {
		return nil, err
	}

	obj := processObjective(suggested, ext)
	conf := processConfidence(ext, clamped, worst)

	res := &model.ProcessResult{
		Setpoints:       proposals,
		Objective:       obj,
		Confidence:      conf,
		Recommendations: processRecommendations(proposals, ext),
		GeneratedAt:     time.Now().UTC(),
	}
	return res, nil
}

func preferredValue(p paramSpec, low, high float64) float64 {
	switch p.Kind {
	case kindIdeal:
		return p.Ideal
	case kindLean:
		return low + 0.25*(high-low)
	}
	return (low + high) / 2
}

func currentValue(uh model.UnitHealth, sensor string, fallback float64) float64 {
	for _, st := range uh.Sensors {
		if st.Reading.SensorName == sensor {
			return st.Reading.Value
		}
	}
	return fallback
}

func proposalReason(p paramSpec, status model.Severity) string {
	base := ""
	switch p.Kind {
	case kindIdeal:
		base = fmt.Sprintf("hold near the %.1f optimum", p.Ideal)
	case kindLean:
		base = "run lean to cut specific energy"
	default:
		base = "hold the band center"
	}
	if status != model.SeverityNormal {
		return base + ", biased conservative while the unit is " + string(status)
	}
	return base
}

// processObjective evaluates the weighted objective at the suggested
// set-points: energy efficiency 0.40, clinker quality 0.35, environment 0.25,
// minus an ambient-weather penalty.
func processObjective(s map[string]float64, ext *model.ExternalContext) model.ObjectiveBreakdown {
	temp := s[string(model.UnitRotaryKiln)+"/burning_zone_temp"]
	speed := s[string(model.UnitRotaryKiln)+"/kiln_speed"]
	fuel := s[string(model.UnitRotaryKiln)+"/fuel_rate"]

	energy := 0.0
	if temp > 0 {
		energy += clamp01(1 - math.Abs(temp-1450)/150)
	}
	if fuel > 0 {
		energy += clamp01(1 - (fuel-8)/7)
	}
	if temp > 0 && fuel > 0 {
		energy /= 2
	}

	quality := 0.0
	n := 0
	if temp > 0 {
		quality += clamp01(1 - math.Abs(temp-1450)/100)
		n++
	}
	if speed > 0 {
		quality += clamp01(1 - math.Abs(speed-4)/2)
		n++
	}
	if n > 0 {
		quality /= float64(n)
	}

	env := 0.5
	if fuel > 0 {
		env = clamp01(1 - fuel/20)
	}

	penalty := 0.0
	if ext != nil {
		penalty = math.Abs(ext.AmbientTempC-25) * 0.001
	}

	return model.ObjectiveBreakdown{
		EnergyEfficiency:   energy,
		QualityScore:       quality,
		EnvironmentalScore: env,
		WeatherPenalty:     penalty,
		Total:              0.4*energy + 0.35*quality + 0.25*env - penalty,
	}
}

// processConfidence degrades with missing context, clamped set-points and the
// worst unit status: a proposal pinned against its bounds for a critical unit
// is worth much less than one with room to move.
func processConfidence(ext *model.ExternalContext, clamped int, worst model.Severity) float64 {
	conf := 0.9
	if ext == nil {
		conf -= 0.2
	}
	conf -= 0.05 * float64(clamped)
	if worst == model.SeverityCritical {
		conf -= 0.1
	}
	return math.Max(conf, 0.3)
}

func processRecommendations(proposals []model.SetpointProposal, ext *model.ExternalContext) []string {
	var recs []string
	for _, p := range proposals {
		span := p.High - p.Low
		if span <= 0 {
			continue
		}
		if math.Abs(p.Suggested-p.Current) > 0.01*span {
			recs = append(recs, fmt.Sprintf("Move %s/%s from %.2f to %.2f (%s)",
				p.Unit, p.Parameter, p.Current, p.Suggested, p.Reason))
		}
	}
	if ext == nil {
		recs = append(recs, "No ambient context supplied; bounds taken directly from the operating envelopes")
	} else if ext.AmbientHumidityPct > highHumidityPct {
		recs = append(recs, "High ambient humidity narrows the tertiary-air temperature band")
	}
	if len(recs) == 0 {
		recs = append(recs, "Current set-points already sit at their targets")
	}
	return recs
}

func clamp(v, low, high float64) float64 {
	return math.Min(math.Max(v, low), high)
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

// internal/optimize/fuelmix.go
package optimize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

const (
	// fractionTol is the tolerance on the blend fraction sum and on
	// objective ties.
	fractionTol = 1e-6
	// altBias nudges the objective toward alternative fuels so that ties
	// within fractionTol resolve to the higher alternative-fuel blend.
	altBias = 1e-7

	defaultMaxAshPct = 14.0
	defaultMinCVMJKg = 20.0
)

// OptimizeFuelMix solves the constrained fuel-blend program: minimize the
// cost/emissions weighted objective over mass fractions summing to one,
// subject to availability caps, the alternative-fuel-rate ceiling and the hard
// quality constraints. The call is pure and reentrant; identical inputs yield
// identical fractions.
func OptimizeFuelMix(ctx context.Context, req model.OptimizationRequest, fuels []model.FuelSpec) (*model.OptimizationResult, error) {
	if err := deadlineErr(ctx); err != nil {
		return nil, err
	}
	if err := validateRequest(req, fuels); err != nil {
		return nil, err
	}

	quality := req.Quality
	if quality.MaxAshContentPct <= 0 {
		quality.MaxAshContentPct = defaultMaxAshPct
	}
	if quality.MinCalorificValueMJPerKg <= 0 {
		quality.MinCalorificValueMJPerKg = defaultMinCVMJKg
	}

	primary, err := primaryFuel(fuels)
	if err != nil {
		return nil, err
	}

	caps := availabilityCaps(req, fuels, quality.MinCalorificValueMJPerKg)
	if err := preflight(req, fuels, caps, quality); err != nil {
		return nil, err
	}

	x, err := solveBlend(ctx, req, fuels, caps, quality)
	if err != nil {
		return nil, err
	}

	return buildResult(req, fuels, primary, caps, quality, x), nil
}

func validateRequest(req model.OptimizationRequest, fuels []model.FuelSpec) error {
	if len(fuels) == 0 {
		return errors.New("fuel mix: no fuels supplied")
	}
	if req.TotalEnergyRequiredGJ <= 0 {
		return fmt.Errorf("fuel mix: total energy %.2f GJ must be positive", req.TotalEnergyRequiredGJ)
	}
	if req.CostPriority < 0 || req.CostPriority > 1 {
		return fmt.Errorf("fuel mix: cost priority %.2f outside [0,1]", req.CostPriority)
	}
	if req.MaxAlternativeFuelRate < 0 || req.MaxAlternativeFuelRate > 1 {
		return fmt.Errorf("fuel mix: max alternative fuel rate %.2f outside [0,1]", req.MaxAlternativeFuelRate)
	}
	for _, f := range fuels {
		if f.CalorificValueMJPerKg <= 0 {
			return fmt.Errorf("fuel mix: fuel %s has non-positive calorific value", f.Name)
		}
	}
	return nil
}

func primaryFuel(fuels []model.FuelSpec) (model.FuelSpec, error) {
	for _, f := range fuels {
		if f.Primary {
			return f, nil
		}
	}
	return model.FuelSpec{}, errors.New("fuel mix: no primary fuel declared for the baseline")
}

// availabilityCaps normalizes per-fuel tonnage limits into fraction caps. The
// blend tonnage is estimated from the minimum acceptable calorific value,
// which keeps the program linear and errs on the conservative side.
func availabilityCaps(req model.OptimizationRequest, fuels []model.FuelSpec, minCV float64) []float64 {
	estTonnes := req.TotalEnergyRequiredGJ / minCV
	caps := make([]float64, len(fuels))
	for i, f := range fuels {
		cap := 1.0
		if f.MaxAvailabilityTonnes > 0 && estTonnes > 0 {
			cap = math.Min(1, f.MaxAvailabilityTonnes/estTonnes)
		}
		caps[i] = cap
	}
	return caps
}

// preflight runs necessary-condition checks so infeasibility can be reported
// with the binding constraint named instead of a generic solver error.
func preflight(req model.OptimizationRequest, fuels []model.FuelSpec, caps []float64, quality model.QualityConstraints) error {
	sumCaps, primaryCaps := 0.0, 0.0
	for i, f := range fuels {
		sumCaps += caps[i]
		if f.Primary {
			primaryCaps += caps[i]
		}
	}
	if sumCaps < 1-fractionTol {
		return &model.InfeasibleError{
			Constraint: "fuel_availability",
			Detail:     fmt.Sprintf("availability caps cover only %.3f of the blend", sumCaps),
		}
	}
	if primaryCaps+req.MaxAlternativeFuelRate < 1-fractionTol {
		return &model.InfeasibleError{
			Constraint: "max_alternative_fuel_rate",
			Detail: fmt.Sprintf("primary caps %.3f plus AFR limit %.2f cannot cover the blend",
				primaryCaps, req.MaxAlternativeFuelRate),
		}
	}

	cvs := make([]float64, len(fuels))
	for i, f := range fuels {
		cvs[i] = f.CalorificValueMJPerKg
	}
	maxCV, ok := extremalBlend(cvs, fuels, caps, req.MaxAlternativeFuelRate)
	if ok && maxCV < quality.MinCalorificValueMJPerKg-fractionTol {
		return &model.InfeasibleError{
			Constraint: "min_calorific_value",
			Detail: fmt.Sprintf("best achievable blend calorific value %.2f MJ/kg below required %.2f",
				maxCV, quality.MinCalorificValueMJPerKg),
		}
	}

	negAsh := make([]float64, len(fuels))
	for i, f := range fuels {
		negAsh[i] = -f.AshContentPct
	}
	minNegAsh, ok := extremalBlend(negAsh, fuels, caps, req.MaxAlternativeFuelRate)
	if ok && -minNegAsh > quality.MaxAshContentPct+fractionTol {
		return &model.InfeasibleError{
			Constraint: "max_ash_content",
			Detail: fmt.Sprintf("lowest achievable blend ash %.2f%% exceeds ceiling %.2f%%",
				-minNegAsh, quality.MaxAshContentPct),
		}
	}
	return nil
}

// extremalBlend maximizes Σ v_i·x_i over the simplex with per-fuel caps and
// the alternative-fuel group bound. Greedy by value is optimal here because
// the feasible set is a polymatroid.
func extremalBlend(values []float64, fuels []model.FuelSpec, caps []float64, afrMax float64) (float64, bool) {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] > values[idx[b]] })

	remTotal, altBudget, total := 1.0, afrMax, 0.0
	for _, i := range idx {
		take := math.Min(caps[i], remTotal)
		if !fuels[i].Primary {
			take = math.Min(take, altBudget)
		}
		if take <= 0 {
			continue
		}
		total += take * values[i]
		remTotal -= take
		if !fuels[i].Primary {
			altBudget -= take
		}
		if remTotal <= fractionTol {
			return total, true
		}
	}
	return 0, false
}

// solveBlend builds the standard-form program (slack variables for every
// inequality) and runs the simplex method.
func solveBlend(ctx context.Context, req model.OptimizationRequest, fuels []model.FuelSpec, caps []float64, quality model.QualityConstraints) ([]float64, error) {
	n := len(fuels)

	maxCost, maxCO2 := 0.0, 0.0
	for _, f := range fuels {
		maxCost = math.Max(maxCost, f.CostPerGJ())
		maxCO2 = math.Max(maxCO2, f.CO2FactorKgPerGJ)
	}
	if maxCost <= 0 {
		maxCost = 1
	}
	if maxCO2 <= 0 {
		maxCO2 = 1
	}

	// Rows: sum=1, AFR, ash ceiling, min calorific (surplus), one cap per
	// fuel. Columns: n fractions plus one slack per inequality row.
	rows := 4 + n
	cols := n + 3 + n

	c := make([]float64, cols)
	for i, f := range fuels {
		c[i] = req.CostPriority*(f.CostPerGJ()/maxCost) + (1-req.CostPriority)*(f.CO2FactorKgPerGJ/maxCO2)
		if !f.Primary {
			c[i] -= altBias
		}
	}

	a := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)

	for i := range fuels {
		a.Set(0, i, 1)
	}
	b[0] = 1

	for i, f := range fuels {
		if !f.Primary {
			a.Set(1, i, 1)
		}
	}
	a.Set(1, n, 1)
	b[1] = req.MaxAlternativeFuelRate

	for i, f := range fuels {
		a.Set(2, i, f.AshContentPct)
	}
	a.Set(2, n+1, 1)
	b[2] = quality.MaxAshContentPct

	for i, f := range fuels {
		a.Set(3, i, f.CalorificValueMJPerKg)
	}
	a.Set(3, n+2, -1)
	b[3] = quality.MinCalorificValueMJPerKg

	for i := range fuels {
		a.Set(4+i, i, 1)
		a.Set(4+i, n+3+i, 1)
		b[4+i] = caps[i]
	}

	if err := deadlineErr(ctx); err != nil {
		return nil, err
	}
	_, x, err := lp.Simplex(c, a, b, 0, nil)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return nil, &model.InfeasibleError{
				Constraint: "constraint_set",
				Detail:     "no fraction vector satisfies the joint constraint set",
			}
		}
		return nil, fmt.Errorf("fuel mix solver: %w", err)
	}
	if err := deadlineErr(ctx); err != nil {
		return nil, err
	}
	return x[:n], nil
}

func buildResult(req model.OptimizationRequest, fuels []model.FuelSpec, primary model.FuelSpec, caps []float64, quality model.QualityConstraints, x []float64) *model.OptimizationResult {
	energy := req.TotalEnergyRequiredGJ

	wCV, wAsh, altFrac := 0.0, 0.0, 0.0
	for i, f := range fuels {
		wCV += x[i] * f.CalorificValueMJPerKg
		wAsh += x[i] * f.AshContentPct
		if !f.Primary {
			altFrac += x[i]
		}
	}

	// Calorific value in MJ/kg equals GJ per tonne, so blend tonnage is
	// energy over the weighted calorific value.
	tonnes := energy / wCV
	fractions := make(map[string]float64, len(fuels))
	breakdown := make(map[string]float64, len(fuels))
	totalCost, totalCO2Kg := 0.0, 0.0
	for i, f := range fuels {
		if x[i] < 1e-9 {
			continue
		}
		fractions[f.Name] = x[i]
		fuelEnergy := x[i] * f.CalorificValueMJPerKg * tonnes
		breakdown[f.Name] = fuelEnergy
		totalCost += x[i] * tonnes * f.CostPerTonne
		totalCO2Kg += fuelEnergy * f.CO2FactorKgPerGJ
	}

	baselineCost := energy / primary.CalorificValueMJPerKg * primary.CostPerTonne
	baselineCO2Kg := energy * primary.CO2FactorKgPerGJ

	res := &model.OptimizationResult{
		FuelFractions:          fractions,
		AlternativeFuelRatePct: altFrac * 100,
		EnergyBreakdownGJ:      breakdown,
		Economics: model.Economics{
			TotalCost:    totalCost,
			BaselineCost: baselineCost,
			SavingsPct:   pct(baselineCost-totalCost, baselineCost),
		},
		Environmental: model.Environmental{
			TotalCO2Tonnes:    totalCO2Kg / 1000,
			BaselineCO2Tonnes: baselineCO2Kg / 1000,
			ReductionPct:      pct(baselineCO2Kg-totalCO2Kg, baselineCO2Kg),
		},
		Quality: model.QualityMetrics{
			WeightedAshPct:           wAsh,
			WeightedCalorificMJPerKg: wCV,
		},
		Confidence:  blendConfidence(req, fuels, caps, quality, x, altFrac, wAsh, wCV),
		GeneratedAt: time.Now().UTC(),
	}
	res.Recommendations = blendRecommendations(req, fuels, res)
	return res
}

// blendConfidence reports how much slack the solution keeps against its
// constraints: a blend sitting on a binding constraint scores low, generous
// margins score high. This is not solver convergence.
func blendConfidence(req model.OptimizationRequest, fuels []model.FuelSpec, caps []float64, quality model.QualityConstraints, x []float64, altFrac, wAsh, wCV float64) float64 {
	minSlack := math.Inf(1)
	observe := func(slack float64) {
		if slack < minSlack {
			minSlack = slack
		}
	}
	observe(req.MaxAlternativeFuelRate - altFrac)
	if quality.MaxAshContentPct > 0 {
		observe((quality.MaxAshContentPct - wAsh) / quality.MaxAshContentPct)
	}
	if quality.MinCalorificValueMJPerKg > 0 {
		observe((wCV - quality.MinCalorificValueMJPerKg) / quality.MinCalorificValueMJPerKg)
	}
	for i := range fuels {
		if x[i] > fractionTol {
			observe(caps[i] - x[i])
		}
	}
	if minSlack < 0 {
		minSlack = 0
	}
	conf := 0.4 + 0.6*math.Min(1, minSlack*4)
	return math.Min(conf, 1)
}

func blendRecommendations(req model.OptimizationRequest, fuels []model.FuelSpec, res *model.OptimizationResult) []string {
	var recs []string
	if res.AlternativeFuelRatePct < req.MaxAlternativeFuelRate*100-5 {
		recs = append(recs, "Alternative fuel rate has headroom; review RDF and rice husk supply contracts")
	}
	if req.Quality.MaxAshContentPct > 0 && res.Quality.WeightedAshPct > 0.9*req.Quality.MaxAshContentPct {
		recs = append(recs, "Blended ash content is near its ceiling; sample clinker quality more frequently")
	}
	if res.FuelFractions["rdf"] > 0.2 {
		recs = append(recs, "Monitor ash content closely with RDF above 20% of the blend")
	}
	if res.FuelFractions["biomass"]+res.FuelFractions["plastic_waste"] > 0 {
		recs = append(recs, "Blend high-moisture alternative fuels gradually to keep flame stability")
	}
	if res.Economics.SavingsPct <= 0 {
		recs = append(recs, "Optimized blend offers no cost saving over the baseline at current prices")
	}
	if len(recs) == 0 {
		recs = append(recs, "Current blend is well inside its constraints; revisit when fuel prices move")
	}
	return recs
}

func pct(delta, base float64) float64 {
	if base == 0 {
		return 0
	}
	return delta / base * 100
}

func deadlineErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", model.ErrTimeout, err)
	}
	return nil
}

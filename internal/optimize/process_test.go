// internal/optimize/process_test.go
package optimize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Raaghu1804/hackathon-zss/internal/config"
	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

func processConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	t.Setenv("PROPERTIES_PATH", "/nonexistent/plant.properties")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func healthyUnits() []model.UnitHealth {
	var units []model.UnitHealth
	for _, u := range model.UnitPriority {
		units = append(units, model.UnitHealth{
			Unit:        u,
			Status:      model.SeverityNormal,
			HealthScore: 100,
			UpdatedAt:   time.Now().UTC(),
		})
	}
	return units
}

func TestProcessProposalsStayInsideEnvelopes(t *testing.T) {
	cfg := processConfig(t)
	res, err := OptimizeProcess(context.Background(), healthyUnits(), nil, cfg)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if len(res.Setpoints) == 0 {
		t.Fatal("no set-point proposals produced")
	}
	for _, p := range res.Setpoints {
		if p.Suggested < p.Low || p.Suggested > p.High {
			t.Fatalf("%s/%s suggested %.2f outside [%.2f, %.2f]", p.Unit, p.Parameter, p.Suggested, p.Low, p.High)
		}
	}
}

func TestMissingContextLowersConfidenceOnly(t *testing.T) {
	cfg := processConfig(t)
	bare, err := OptimizeProcess(context.Background(), healthyUnits(), nil, cfg)
	if err != nil {
		t.Fatalf("optimize without context: %v", err)
	}
	ext := &model.ExternalContext{AmbientTempC: 25, AmbientHumidityPct: 50}
	full, err := OptimizeProcess(context.Background(), healthyUnits(), ext, cfg)
	if err != nil {
		t.Fatalf("optimize with context: %v", err)
	}
	if bare.Confidence >= full.Confidence {
		t.Fatalf("confidence without context (%.2f) should be lower than with (%.2f)", bare.Confidence, full.Confidence)
	}
	if len(bare.Setpoints) != len(full.Setpoints) {
		t.Fatalf("context changed the proposal count: %d vs %d", len(bare.Setpoints), len(full.Setpoints))
	}
}

func TestHighHumidityNarrowsTertiaryAirBand(t *testing.T) {
	cfg := processConfig(t)
	env, ok := cfg.Envelope(model.UnitPreCalciner, "tertiary_air_temp")
	if !ok {
		t.Fatal("tertiary_air_temp envelope missing from defaults")
	}

	humid := &model.ExternalContext{AmbientTempC: 25, AmbientHumidityPct: 85}
	res, err := OptimizeProcess(context.Background(), healthyUnits(), humid, cfg)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	for _, p := range res.Setpoints {
		if p.Unit == model.UnitPreCalciner && p.Parameter == "tertiary_air_temp" {
			if p.Low <= env.Low || p.High >= env.High {
				t.Fatalf("humid bounds [%.1f, %.1f] not narrowed inside [%.1f, %.1f]", p.Low, p.High, env.Low, env.High)
			}
			return
		}
	}
	t.Fatal("no tertiary_air_temp proposal found")
}

func TestKilnIdealsTargeted(t *testing.T) {
	cfg := processConfig(t)
	res, err := OptimizeProcess(context.Background(), healthyUnits(), nil, cfg)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	found := map[string]float64{}
	for _, p := range res.Setpoints {
		if p.Unit == model.UnitRotaryKiln {
			found[p.Parameter] = p.Suggested
		}
	}
	if v, ok := found["burning_zone_temp"]; !ok || v != 1450 {
		t.Fatalf("burning_zone_temp suggested %.1f, want the 1450 optimum", v)
	}
	if v, ok := found["kiln_speed"]; !ok || v != 4.0 {
		t.Fatalf("kiln_speed suggested %.1f, want the 4.0 optimum", v)
	}
}

func TestDegradedUnitBiasedConservative(t *testing.T) {
	cfg := processConfig(t)
	units := healthyUnits()
	for i := range units {
		if units[i].Unit == model.UnitRotaryKiln {
			units[i].Status = model.SeverityCritical
		}
	}
	res, err := OptimizeProcess(context.Background(), units, nil, cfg)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	env, _ := cfg.Envelope(model.UnitRotaryKiln, "fuel_rate")
	lean := env.Low + 0.25*(env.High-env.Low)
	for _, p := range res.Setpoints {
		if p.Unit == model.UnitRotaryKiln && p.Parameter == "fuel_rate" {
			if p.Suggested <= lean {
				t.Fatalf("critical kiln fuel_rate %.2f not biased toward the band center from the lean target %.2f", p.Suggested, lean)
			}
			return
		}
	}
	t.Fatal("no fuel_rate proposal found")
}

func TestProcessUnknownUnitRejected(t *testing.T) {
	cfg := processConfig(t)
	units := []model.UnitHealth{{Unit: "raw_mill", Status: model.SeverityNormal}}
	_, err := OptimizeProcess(context.Background(), units, nil, cfg)
	if !errors.Is(err, model.ErrUnknownUnit) {
		t.Fatalf("error %v does not wrap ErrUnknownUnit", err)
	}
}

func TestProcessObjectiveWeatherPenalty(t *testing.T) {
	cfg := processConfig(t)
	mild := &model.ExternalContext{AmbientTempC: 25}
	hot := &model.ExternalContext{AmbientTempC: 45}

	a, err := OptimizeProcess(context.Background(), healthyUnits(), mild, cfg)
	if err != nil {
		t.Fatalf("mild: %v", err)
	}
	b, err := OptimizeProcess(context.Background(), healthyUnits(), hot, cfg)
	if err != nil {
		t.Fatalf("hot: %v", err)
	}
	if a.Objective.WeatherPenalty != 0 {
		t.Fatalf("penalty at 25°C = %f, want 0", a.Objective.WeatherPenalty)
	}
	if b.Objective.WeatherPenalty <= a.Objective.WeatherPenalty {
		t.Fatal("hotter ambient must raise the weather penalty")
	}
	if b.Objective.Total >= a.Objective.Total {
		t.Fatal("weather penalty must lower the total objective")
	}
}

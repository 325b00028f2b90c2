// internal/agent/agent_test.go
package agent

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func state(sensor string, value float64, sev model.Severity) model.SensorState {
	return model.SensorState{
		Reading: model.SensorReading{
			Unit:         model.UnitRotaryKiln,
			SensorName:   sensor,
			Value:        value,
			OptimalRange: model.OptimalRange{Low: 1400, High: 1500},
			Timestamp:    time.Now().UTC(),
		},
		Severity:  sev,
		IsAnomaly: sev != model.SeverityNormal,
	}
}

func TestThreeCriticalsScoreSeventy(t *testing.T) {
	a := New(model.UnitRotaryKiln, 2.0, nil, testLogger())
	states := []model.SensorState{
		state("burning_zone_temp", 1510, model.SeverityCritical),
		state("shell_temp", 1510, model.SeverityCritical),
		state("kiln_speed", 1510, model.SeverityCritical),
		state("fuel_rate", 1450, model.SeverityNormal),
	}
	ev := a.Observe(states, time.Now().UTC())
	if ev.Health.HealthScore != 70 {
		t.Fatalf("health score = %.1f, want exactly 70", ev.Health.HealthScore)
	}
	if ev.Current != StateCritical {
		t.Fatalf("three criticals left the agent %s, want critical", ev.Current)
	}
}

func TestHealthScoreFloor(t *testing.T) {
	a := New(model.UnitRotaryKiln, 2.0, nil, testLogger())
	var states []model.SensorState
	for _, s := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		states = append(states, state(s, 1510, model.SeverityCritical))
	}
	ev := a.Observe(states, time.Now().UTC())
	if ev.Health.HealthScore != 50 {
		t.Fatalf("health score = %.1f, want the floor 50", ev.Health.HealthScore)
	}
}

func TestHardFaultForcesCritical(t *testing.T) {
	a := New(model.UnitRotaryKiln, 2.0, nil, testLogger())
	// A single warning whose deviation exceeds twice the envelope width.
	warn := state("burning_zone_temp", 1710, model.SeverityWarning)
	ev := a.Observe([]model.SensorState{warn}, time.Now().UTC())
	if ev.Current != StateCritical {
		t.Fatalf("hard fault left the agent %s, want critical", ev.Current)
	}
}

func TestPerTickPolicyRecoversImmediately(t *testing.T) {
	a := New(model.UnitRotaryKiln, 2.0, nil, testLogger())
	now := time.Now().UTC()

	ev := a.Observe([]model.SensorState{state("burning_zone_temp", 1520, model.SeverityWarning)}, now)
	if ev.Current != StateDegraded || !ev.Transitioned {
		t.Fatalf("warning tick: state %s transitioned=%v, want degraded transition", ev.Current, ev.Transitioned)
	}

	ev = a.Observe([]model.SensorState{state("burning_zone_temp", 1450, model.SeverityNormal)}, now.Add(time.Second))
	if ev.Current != StateNominal || !ev.Transitioned {
		t.Fatalf("clean tick: state %s transitioned=%v, want nominal transition", ev.Current, ev.Transitioned)
	}
}

func TestEfficiencyTracksAnomalyShare(t *testing.T) {
	a := New(model.UnitRotaryKiln, 2.0, nil, testLogger())
	states := []model.SensorState{
		state("burning_zone_temp", 1520, model.SeverityWarning),
		state("shell_temp", 1450, model.SeverityNormal),
		state("kiln_speed", 1450, model.SeverityNormal),
		state("fuel_rate", 1450, model.SeverityNormal),
	}
	ev := a.Observe(states, time.Now().UTC())
	want := 85 + 10*(1-0.25)
	if ev.Health.Efficiency != want {
		t.Fatalf("efficiency = %.2f, want %.2f", ev.Health.Efficiency, want)
	}
}

func TestApplyFlagsCostsFivePointsEach(t *testing.T) {
	a := New(model.UnitClinkerCooler, 2.0, nil, testLogger())
	a.Observe([]model.SensorState{state("inlet_temp", 1200, model.SeverityNormal)}, time.Now().UTC())

	h := a.ApplyFlags([]string{"kiln_burning_zone", "kiln_shell"})
	if h.HealthScore != 90 {
		t.Fatalf("health with two flags = %.1f, want 90", h.HealthScore)
	}
	if h.Status != model.SeverityWarning {
		t.Fatalf("status with open flags = %s, want warning", h.Status)
	}

	h = a.ApplyFlags(nil)
	if h.HealthScore != 100 {
		t.Fatalf("health after flags cleared = %.1f, want 100", h.HealthScore)
	}
}

func TestLocalMessagesCarrySuggestedActions(t *testing.T) {
	a := New(model.UnitRotaryKiln, 2.0, nil, testLogger())
	ev := a.Observe([]model.SensorState{state("burning_zone_temp", 1520, model.SeverityWarning)}, time.Now().UTC())
	if len(ev.Local) != 1 {
		t.Fatalf("got %d local messages, want 1", len(ev.Local))
	}
	m := ev.Local[0]
	if m.FromAgent != model.AgentName(model.UnitRotaryKiln) || m.ToAgent != m.FromAgent {
		t.Fatalf("local message should be self-addressed, got %s -> %s", m.FromAgent, m.ToAgent)
	}
	if m.ActionTaken == "" {
		t.Fatal("local message missing suggested action")
	}
}

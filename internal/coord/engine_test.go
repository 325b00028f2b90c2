// internal/coord/engine_test.go
package coord

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Raaghu1804/hackathon-zss/internal/config"
	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	t.Setenv("PROPERTIES_PATH", "/nonexistent/plant.properties")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(cfg, lg, nil)
}

func reading(unit model.UnitID, sensor string, value float64, now time.Time) model.SensorReading {
	return model.SensorReading{Unit: unit, SensorName: sensor, Value: value, Timestamp: now}
}

func TestKilnAnomalyNotifiesCooler(t *testing.T) {
	e := testEngine(t)
	now := time.Now().UTC()

	res, err := e.ProcessTick(map[model.UnitID][]model.SensorReading{
		model.UnitRotaryKiln: {reading(model.UnitRotaryKiln, "burning_zone_temp", 1530, now)},
	}, now)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}

	var cross *model.AgentMessage
	for i, m := range res.Messages {
		if m.ToAgent == model.AgentName(model.UnitClinkerCooler) {
			cross = &res.Messages[i]
		}
	}
	if cross == nil {
		t.Fatal("no cross-unit message reached the clinker cooler agent")
	}
	if cross.FromAgent != model.AgentName(model.UnitRotaryKiln) {
		t.Fatalf("cross-unit message from %s, want the kiln agent", cross.FromAgent)
	}
	if cross.ID == "" {
		t.Fatal("logged message never received an ID")
	}
	if !strings.Contains(cross.MessageText, "burning_zone_temp") {
		t.Fatalf("message text %q does not name the sensor", cross.MessageText)
	}
}

func TestLocalMessagesPrecedeCrossUnit(t *testing.T) {
	e := testEngine(t)
	now := time.Now().UTC()

	res, err := e.ProcessTick(map[model.UnitID][]model.SensorReading{
		model.UnitRotaryKiln: {
			reading(model.UnitRotaryKiln, "burning_zone_temp", 1530, now),
		},
	}, now)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(res.Messages) < 2 {
		t.Fatalf("got %d messages, want local plus cross-unit", len(res.Messages))
	}
	if res.Messages[0].ToAgent != res.Messages[0].FromAgent {
		t.Fatal("first message should be the agent's own local anomaly report")
	}
	if res.Messages[1].ToAgent != model.AgentName(model.UnitClinkerCooler) {
		t.Fatalf("second message addressed to %s, want the cooler", res.Messages[1].ToAgent)
	}
}

func TestUnitPriorityOrdersMessages(t *testing.T) {
	e := testEngine(t)
	now := time.Now().UTC()

	// Anomalies on the cooler and the pre-calciner in one tick: the
	// pre-calciner's messages must come first regardless of map iteration.
	res, err := e.ProcessTick(map[model.UnitID][]model.SensorReading{
		model.UnitClinkerCooler: {reading(model.UnitClinkerCooler, "cooler_efficiency", 70, now)},
		model.UnitPreCalciner:   {reading(model.UnitPreCalciner, "temperature", 910, now)},
	}, now)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(res.Messages) == 0 {
		t.Fatal("expected messages from both units")
	}
	firstCooler := -1
	lastPrecalc := -1
	for i, m := range res.Messages {
		if m.FromAgent == model.AgentName(model.UnitClinkerCooler) && firstCooler == -1 {
			firstCooler = i
		}
		if m.FromAgent == model.AgentName(model.UnitPreCalciner) {
			lastPrecalc = i
		}
	}
	if firstCooler == -1 || lastPrecalc == -1 {
		t.Fatalf("missing messages: cooler index %d, precalciner index %d", firstCooler, lastPrecalc)
	}
	if lastPrecalc > firstCooler {
		t.Fatal("pre-calciner messages must precede the cooler's in one tick")
	}
}

func TestInvalidReadingDoesNotAbortSnapshot(t *testing.T) {
	e := testEngine(t)
	now := time.Now().UTC()

	res, err := e.SubmitSnapshot(model.UnitRotaryKiln, []model.SensorReading{
		reading(model.UnitRotaryKiln, "burning_zone_temp", math.NaN(), now),
		reading(model.UnitRotaryKiln, "kiln_speed", 4.0, now),
	}, now)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(res.Rejected) != 1 {
		t.Fatalf("got %d rejections, want 1", len(res.Rejected))
	}
	if !errors.Is(res.Rejected[0], model.ErrInvalidReading) {
		t.Fatalf("rejection %v does not wrap ErrInvalidReading", res.Rejected[0])
	}
	h := res.Healths[model.UnitRotaryKiln]
	if len(h.Sensors) != 1 {
		t.Fatalf("valid reading lost: %d sensors tracked, want 1", len(h.Sensors))
	}
}

func TestUnknownUnitRejected(t *testing.T) {
	e := testEngine(t)
	now := time.Now().UTC()
	_, err := e.SubmitSnapshot("raw_mill", nil, now)
	if !errors.Is(err, model.ErrUnknownUnit) {
		t.Fatalf("error %v does not wrap ErrUnknownUnit", err)
	}
	if _, err := e.UnitStatus("raw_mill"); !errors.Is(err, model.ErrUnknownUnit) {
		t.Fatalf("status error %v does not wrap ErrUnknownUnit", err)
	}
}

func TestCrossUnitFlagClearsWhenOriginRecovers(t *testing.T) {
	e := testEngine(t)
	now := time.Now().UTC()

	_, err := e.ProcessTick(map[model.UnitID][]model.SensorReading{
		model.UnitRotaryKiln:    {reading(model.UnitRotaryKiln, "burning_zone_temp", 1530, now)},
		model.UnitClinkerCooler: {reading(model.UnitClinkerCooler, "inlet_temp", 1200, now)},
	}, now)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	h, _ := e.UnitStatus(model.UnitClinkerCooler)
	if len(h.OpenFlags) != 1 {
		t.Fatalf("cooler has %d open flags after kiln anomaly, want 1", len(h.OpenFlags))
	}
	if h.HealthScore != 95 {
		t.Fatalf("cooler health = %.1f with one flag, want 95", h.HealthScore)
	}

	later := now.Add(5 * time.Second)
	_, err = e.ProcessTick(map[model.UnitID][]model.SensorReading{
		model.UnitRotaryKiln:    {reading(model.UnitRotaryKiln, "burning_zone_temp", 1450, later)},
		model.UnitClinkerCooler: {reading(model.UnitClinkerCooler, "inlet_temp", 1200, later)},
	}, later)
	if err != nil {
		t.Fatalf("recovery tick: %v", err)
	}
	h, _ = e.UnitStatus(model.UnitClinkerCooler)
	if len(h.OpenFlags) != 0 {
		t.Fatalf("flag still open after origin sensor recovered: %v", h.OpenFlags)
	}
	if h.HealthScore != 100 {
		t.Fatalf("cooler health = %.1f after recovery, want 100", h.HealthScore)
	}
}

func TestFlagSurvivesWhenOriginAbsentFromTick(t *testing.T) {
	e := testEngine(t)
	now := time.Now().UTC()

	_, err := e.ProcessTick(map[model.UnitID][]model.SensorReading{
		model.UnitRotaryKiln: {reading(model.UnitRotaryKiln, "burning_zone_temp", 1530, now)},
	}, now)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}

	later := now.Add(5 * time.Second)
	_, err = e.ProcessTick(map[model.UnitID][]model.SensorReading{
		model.UnitClinkerCooler: {reading(model.UnitClinkerCooler, "inlet_temp", 1200, later)},
	}, later)
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	h, _ := e.UnitStatus(model.UnitClinkerCooler)
	if len(h.OpenFlags) != 1 {
		t.Fatalf("flag should stay open while the origin is silent, got %v", h.OpenFlags)
	}
}

type captureNotifier struct {
	events []model.Event
}

func (c *captureNotifier) Notify(ev model.Event) { c.events = append(c.events, ev) }

func TestTickEmitsSensorUpdateEvent(t *testing.T) {
	e := testEngine(t)
	cap := &captureNotifier{}
	e.AddNotifier(cap)
	now := time.Now().UTC()

	_, err := e.ProcessTick(map[model.UnitID][]model.SensorReading{
		model.UnitRotaryKiln: {reading(model.UnitRotaryKiln, "burning_zone_temp", 1450, now)},
	}, now)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	found := false
	for _, ev := range cap.events {
		if ev.Type == model.EventSensorUpdate {
			found = true
		}
	}
	if !found {
		t.Fatal("tick completed without a sensor_update event")
	}
}

func TestMessageLogBounded(t *testing.T) {
	l := NewMessageLog(3)
	for i := 0; i < 10; i++ {
		l.Append(model.AgentMessage{MessageText: "m"})
	}
	if l.Len() != 3 {
		t.Fatalf("log retains %d messages, want 3", l.Len())
	}
	if got := len(l.Recent(100)); got != 3 {
		t.Fatalf("Recent(100) returned %d messages, want 3", got)
	}
	if got := len(l.Recent(2)); got != 2 {
		t.Fatalf("Recent(2) returned %d messages, want 2", got)
	}
}

func TestEffectMatchIgnoresNormalSeverity(t *testing.T) {
	st := model.SensorState{
		Reading:  model.SensorReading{Unit: model.UnitRotaryKiln, SensorName: "burning_zone_temp"},
		Severity: model.SeverityNormal,
	}
	if _, ok := Match(DefaultEffectTable, st); ok {
		t.Fatal("normal severity must not cross unit boundaries")
	}
	st.Severity = model.SeverityWarning
	eff, ok := Match(DefaultEffectTable, st)
	if !ok {
		t.Fatal("warning on burning_zone_temp should match the kiln->cooler effect")
	}
	if eff.Target != model.UnitClinkerCooler {
		t.Fatalf("effect targets %s, want the clinker cooler", eff.Target)
	}
}

func TestOpenFlagsAreSorted(t *testing.T) {
	e := testEngine(t)
	now := time.Now().UTC()

	// Two kiln anomalies in one tick open two flags against the cooler.
	_, err := e.ProcessTick(map[model.UnitID][]model.SensorReading{
		model.UnitRotaryKiln: {
			reading(model.UnitRotaryKiln, "burning_zone_temp", 1530, now),
			reading(model.UnitRotaryKiln, "shell_temp", 370, now),
		},
	}, now)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}

	// Repeated identical cooler ticks must fold the open flags into its
	// health in the same order every time.
	want := []string{"kiln_burning_zone", "kiln_shell"}
	for i := 0; i < 5; i++ {
		_, err := e.ProcessTick(map[model.UnitID][]model.SensorReading{
			model.UnitClinkerCooler: {reading(model.UnitClinkerCooler, "inlet_temp", 1200, now)},
		}, now)
		if err != nil {
			t.Fatalf("cooler tick: %v", err)
		}
		uh, err := e.UnitStatus(model.UnitClinkerCooler)
		if err != nil {
			t.Fatalf("unit status: %v", err)
		}
		if len(uh.OpenFlags) != len(want) {
			t.Fatalf("got %d open flags %v, want %v", len(uh.OpenFlags), uh.OpenFlags, want)
		}
		for j := range want {
			if uh.OpenFlags[j] != want[j] {
				t.Fatalf("open flags %v not in sorted order, want %v", uh.OpenFlags, want)
			}
		}
	}
}

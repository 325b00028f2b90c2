// internal/store/sqlite_test.go
package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(filepath.Join(t.TempDir(), "plant.db"), lg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReadingsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	states := []model.SensorState{
		{
			Reading: model.SensorReading{
				Unit:          model.UnitRotaryKiln,
				SensorName:    "burning_zone_temp",
				Value:         1530,
				UnitOfMeasure: "°C",
				Timestamp:     now,
			},
			Severity:  model.SeverityWarning,
			IsAnomaly: true,
		},
		{
			Reading: model.SensorReading{
				Unit:       model.UnitRotaryKiln,
				SensorName: "kiln_speed",
				Value:      4.0,
				Timestamp:  now,
			},
			Severity: model.SeverityNormal,
		},
	}
	if err := s.SaveStates(states); err != nil {
		t.Fatalf("save states: %v", err)
	}

	got, err := s.HistoricalReadings(model.UnitRotaryKiln, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("load readings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d readings, want 2", len(got))
	}
	for _, st := range got {
		if st.Reading.Unit != model.UnitRotaryKiln {
			t.Fatalf("reading unit %s, want rotary_kiln", st.Reading.Unit)
		}
	}

	// Cutoff excludes everything.
	got, err = s.HistoricalReadings(model.UnitRotaryKiln, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("load with future cutoff: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("future cutoff returned %d readings, want 0", len(got))
	}
}

func TestAgentMessagePersistedViaNotify(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()

	m := model.AgentMessage{
		ID:          "msg-1",
		FromAgent:   "RotaryKiln-AI",
		ToAgent:     "ClinkerCooler-AI",
		Severity:    model.SeverityWarning,
		MessageText: "burning zone drifting high",
		ActionTaken: "Prepare for higher clinker inlet temperature",
		Timestamp:   now,
	}
	s.Notify(model.Event{Type: model.EventAgentMessage, Payload: m, Timestamp: now})
	// Non-message events are ignored without error.
	s.Notify(model.Event{Type: model.EventSensorUpdate, Payload: "not a message", Timestamp: now})

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM agent_communications`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("stored %d messages, want 1", count)
	}

	// Duplicate IDs are ignored, not errors.
	if err := s.SaveMessage(m); err != nil {
		t.Fatalf("duplicate save: %v", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM agent_communications`).Scan(&count); err != nil {
		t.Fatalf("recount: %v", err)
	}
	if count != 1 {
		t.Fatalf("duplicate insert changed the count to %d", count)
	}
}

func TestReadingsBetweenBoundsBoth(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

	var states []model.SensorState
	for i, offset := range []time.Duration{-48 * time.Hour, 0, 48 * time.Hour} {
		unit := model.UnitRotaryKiln
		if i == 0 {
			unit = model.UnitPreCalciner
		}
		states = append(states, model.SensorState{
			Reading: model.SensorReading{
				Unit:       unit,
				SensorName: "fuel_rate",
				Value:      12,
				Timestamp:  base.Add(offset),
			},
			Severity: model.SeverityNormal,
		})
	}
	if err := s.SaveStates(states); err != nil {
		t.Fatalf("save states: %v", err)
	}

	// The window captures only the middle reading, across all units.
	got, err := s.ReadingsBetween(base.Add(-time.Hour), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("readings between: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d readings, want 1", len(got))
	}
	if !got[0].Reading.Timestamp.Equal(base) {
		t.Fatalf("reading at %v, want %v", got[0].Reading.Timestamp, base)
	}

	// A window covering everything returns all three, oldest first.
	got, err = s.ReadingsBetween(base.Add(-72*time.Hour), base.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("wide window: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("wide window returned %d readings, want 3", len(got))
	}
	if got[0].Reading.Unit != model.UnitPreCalciner {
		t.Fatalf("oldest reading from %s, want the pre-calciner", got[0].Reading.Unit)
	}
}

// internal/store/sqlite.go
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

// Store persists sensor readings and agent messages in SQLite. The core keeps
// only its bounded in-memory window; everything older lives here.
type Store struct {
	db *sql.DB
	lg *slog.Logger
}

// Open creates the database file (and its directory) if needed and applies
// the schema.
func Open(path string, lg *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Store{db: db, lg: lg.With(slog.String("component", "store"))}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS sensor_readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	unit TEXT NOT NULL,
	sensor_name TEXT NOT NULL,
	value REAL NOT NULL,
	unit_measure TEXT,
	is_anomaly INTEGER NOT NULL DEFAULT 0,
	severity TEXT NOT NULL,
	timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_readings_unit_ts ON sensor_readings(unit, timestamp);

CREATE TABLE IF NOT EXISTS agent_communications (
	id TEXT PRIMARY KEY,
	from_agent TEXT NOT NULL,
	to_agent TEXT NOT NULL,
	severity TEXT NOT NULL,
	message TEXT NOT NULL,
	action_taken TEXT,
	timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comms_ts ON agent_communications(timestamp);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveStates persists one classified snapshot.
func (s *Store) SaveStates(states []model.SensorState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO sensor_readings
		(unit, sensor_name, value, unit_measure, is_anomaly, severity, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, st := range states {
		r := st.Reading
		anomaly := 0
		if st.IsAnomaly {
			anomaly = 1
		}
		if _, err := stmt.Exec(string(r.Unit), r.SensorName, r.Value, r.UnitOfMeasure, anomaly, string(st.Severity), r.Timestamp); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SaveMessage persists one communication-log entry.
func (s *Store) SaveMessage(m model.AgentMessage) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO agent_communications
		(id, from_agent, to_agent, severity, message, action_taken, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.FromAgent, m.ToAgent, string(m.Severity), m.MessageText, m.ActionTaken, m.Timestamp)
	return err
}

// HistoricalReadings returns readings for one unit newer than the cutoff,
// oldest first, grouped by sensor on the caller's side.
func (s *Store) HistoricalReadings(unit model.UnitID, since time.Time) ([]model.SensorState, error) {
	rows, err := s.db.Query(`SELECT unit, sensor_name, value, unit_measure, is_anomaly, severity, timestamp
		FROM sensor_readings WHERE unit = ? AND timestamp >= ? ORDER BY timestamp`, string(unit), since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SensorState
	for rows.Next() {
		var (
			st      model.SensorState
			unitStr string
			anomaly int
			sev     string
		)
		if err := rows.Scan(&unitStr, &st.Reading.SensorName, &st.Reading.Value, &st.Reading.UnitOfMeasure, &anomaly, &sev, &st.Reading.Timestamp); err != nil {
			return nil, err
		}
		st.Reading.Unit = model.UnitID(unitStr)
		st.IsAnomaly = anomaly == 1
		st.Severity = model.Severity(sev)
		out = append(out, st)
	}
	return out, rows.Err()
}

// ReadingsBetween returns every unit's readings inside [from, to), oldest
// first. Reporting over closed periods uses this instead of the live window.
func (s *Store) ReadingsBetween(from, to time.Time) ([]model.SensorState, error) {
	rows, err := s.db.Query(`SELECT unit, sensor_name, value, unit_measure, is_anomaly, severity, timestamp
		FROM sensor_readings WHERE timestamp >= ? AND timestamp < ? ORDER BY timestamp`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SensorState
	for rows.Next() {
		var (
			st      model.SensorState
			unitStr string
			anomaly int
			sev     string
		)
		if err := rows.Scan(&unitStr, &st.Reading.SensorName, &st.Reading.Value, &st.Reading.UnitOfMeasure, &anomaly, &sev, &st.Reading.Timestamp); err != nil {
			return nil, err
		}
		st.Reading.Unit = model.UnitID(unitStr)
		st.IsAnomaly = anomaly == 1
		st.Severity = model.Severity(sev)
		out = append(out, st)
	}
	return out, rows.Err()
}

// Notify implements coord.Notifier: agent messages are stored as they are
// logged. Sensor snapshots arrive via SaveStates from the intake path.
func (s *Store) Notify(ev model.Event) {
	if ev.Type != model.EventAgentMessage {
		return
	}
	m, ok := ev.Payload.(model.AgentMessage)
	if !ok {
		return
	}
	if err := s.SaveMessage(m); err != nil {
		s.lg.Warn("persist message failed", "id", m.ID, "error", err)
	}
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// internal/classify/classifier.go
package classify

import (
	"math"

	"github.com/Raaghu1804/hackathon-zss/internal/config"
	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

// fallbackMarginFrac sizes the critical band for sensors that have no declared
// margin: 15% of the envelope width.
const fallbackMarginFrac = 0.15

// Classifier maps readings to sensor states against the declared operating
// envelopes. It holds no mutable state; Classify is pure and deterministic for
// a fixed envelope configuration.
type Classifier struct {
	cfg *config.AppConfig
}

func New(cfg *config.AppConfig) *Classifier { return &Classifier{cfg: cfg} }

// Classify validates the reading and derives its severity. A reading is
// critical outside [low-margin, high+margin], warning outside [low, high] but
// inside the critical band, normal otherwise.
func (c *Classifier) Classify(r model.SensorReading) (model.SensorState, error) {
	if r.Unit == "" {
		return model.SensorState{}, &model.InvalidReadingError{Unit: r.Unit, Sensor: r.SensorName, Reason: "missing unit"}
	}
	if r.SensorName == "" {
		return model.SensorState{}, &model.InvalidReadingError{Unit: r.Unit, Sensor: r.SensorName, Reason: "missing sensor name"}
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return model.SensorState{}, &model.InvalidReadingError{Unit: r.Unit, Sensor: r.SensorName, Reason: "non-finite value"}
	}
	if r.Timestamp.IsZero() {
		return model.SensorState{}, &model.InvalidReadingError{Unit: r.Unit, Sensor: r.SensorName, Reason: "missing timestamp"}
	}

	rng, margin := c.resolveEnvelope(r)
	if rng.Width() <= 0 {
		return model.SensorState{}, &model.InvalidReadingError{Unit: r.Unit, Sensor: r.SensorName, Reason: "no operating envelope declared"}
	}
	r.OptimalRange = rng

	sev := model.SeverityNormal
	switch {
	case r.Value < rng.Low-margin || r.Value > rng.High+margin:
		sev = model.SeverityCritical
	case r.Value < rng.Low || r.Value > rng.High:
		sev = model.SeverityWarning
	}

	return model.SensorState{
		Reading:   r,
		Severity:  sev,
		IsAnomaly: sev != model.SeverityNormal,
	}, nil
}

// Deviation returns how far a state's value sits outside its envelope, in
// multiples of the envelope width. Zero for in-envelope readings.
func Deviation(st model.SensorState) float64 {
	rng := st.Reading.OptimalRange
	w := rng.Width()
	if w <= 0 {
		return 0
	}
	switch {
	case st.Reading.Value > rng.High:
		return (st.Reading.Value - rng.High) / w
	case st.Reading.Value < rng.Low:
		return (rng.Low - st.Reading.Value) / w
	}
	return 0
}

// resolveEnvelope prefers the envelope declared in configuration; a reading
// that carries its own range is honored when the sensor is not configured.
func (c *Classifier) resolveEnvelope(r model.SensorReading) (model.OptimalRange, float64) {
	if env, ok := c.cfg.Envelope(r.Unit, r.SensorName); ok {
		return env.Range(), env.CriticalMargin
	}
	if r.OptimalRange.Width() > 0 {
		return r.OptimalRange, r.OptimalRange.Width() * fallbackMarginFrac
	}
	return model.OptimalRange{}, 0
}

// internal/sim/simulator.go
package sim

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Raaghu1804/hackathon-zss/internal/config"
	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

const (
	// anomalyChance is the per-sensor probability of pushing a value outside
	// its envelope on any given tick.
	anomalyChance = 0.05
	// meanPull is the damping factor drawing each walk back toward the band
	// center so values do not drift away permanently.
	meanPull = 0.1
)

// Simulator publishes a damped random walk for every configured sensor of
// every unit, with occasional envelope excursions to exercise the anomaly
// path downstream.
type Simulator struct {
	client   mqtt.Client
	cfg      *config.AppConfig
	prefix   string
	interval time.Duration
	rng      *rand.Rand
	lg       *slog.Logger

	values map[model.UnitID]map[string]float64

	ticker *time.Ticker
	quit   chan struct{}
	done   chan struct{}
}

func New(broker, topicPrefix string, interval time.Duration, cfg *config.AppConfig, seed int64, lg *slog.Logger) (*Simulator, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("sensorsim-%d", time.Now().UnixNano())).
		SetAutoReconnect(true)
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", broker, token.Error())
	}

	s := &Simulator{
		client:   c,
		cfg:      cfg,
		prefix:   strings.TrimSuffix(topicPrefix, "/"),
		interval: interval,
		rng:      rand.New(rand.NewSource(seed)),
		lg:       lg.With(slog.String("component", "sim")),
		values:   make(map[model.UnitID]map[string]float64),
		ticker:   time.NewTicker(interval),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for unit, sensors := range cfg.Envelopes {
		s.values[unit] = make(map[string]float64, len(sensors))
		for name, env := range sensors {
			s.values[unit][name] = (env.Low + env.High) / 2
		}
	}
	return s, nil
}

// Start begins publishing one batch per unit per interval.
func (s *Simulator) Start() {
	go func() {
		defer close(s.done)
		for {
			select {
			case <-s.quit:
				return
			case t := <-s.ticker.C:
				s.publishAll(t.UTC())
			}
		}
	}()
}

// Stop halts publishing and disconnects.
func (s *Simulator) Stop() {
	close(s.quit)
	<-s.done
	s.ticker.Stop()
	s.client.Disconnect(250)
}

func (s *Simulator) publishAll(now time.Time) {
	for _, unit := range model.UnitPriority {
		sensors, ok := s.cfg.Envelopes[unit]
		if !ok {
			continue
		}
		batch := make([]model.SensorReading, 0, len(sensors))
		for name, env := range sensors {
			batch = append(batch, model.SensorReading{
				Unit:          unit,
				SensorName:    name,
				Value:         s.next(unit, name, env),
				UnitOfMeasure: env.UnitOfMeasure,
				Timestamp:     now,
				OptimalRange:  model.OptimalRange{Low: env.Low, High: env.High},
			})
		}
		payload, err := json.Marshal(batch)
		if err != nil {
			s.lg.Error("marshal batch", "unit", unit, "error", err)
			continue
		}
		topic := s.prefix + "/" + string(unit)
		token := s.client.Publish(topic, 0, false, payload)
		token.Wait()
		if token.Error() != nil {
			s.lg.Warn("publish failed", "topic", topic, "error", token.Error())
		}
	}
}

func (s *Simulator) next(unit model.UnitID, name string, env config.SensorEnvelope) float64 {
	cur := s.values[unit][name]
	span := env.High - env.Low
	center := (env.Low + env.High) / 2

	if s.rng.Float64() < anomalyChance {
		// Excursion past an envelope edge, occasionally past the critical
		// margin too.
		excess := span * (0.05 + s.rng.Float64()*0.3)
		if s.rng.Float64() < 0.5 {
			cur = env.High + excess
		} else {
			cur = env.Low - excess
		}
	} else {
		step := (s.rng.Float64()*2 - 1) * span * 0.04
		cur += step + (center-cur)*meanPull
	}

	s.values[unit][name] = cur
	return cur
}

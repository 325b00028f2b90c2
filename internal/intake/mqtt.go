// internal/intake/mqtt.go
package intake

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Raaghu1804/hackathon-zss/internal/coord"
	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

// Subscriber receives telemetry over MQTT and drives the coordination engine.
// Readings are buffered per unit and sensor; a ticker flushes the latest
// buffered value of every sensor as one tick, so a chatty publisher cannot
// force more than one evaluation per interval.
type Subscriber struct {
	client   mqtt.Client
	engine   *coord.Engine
	topic    string
	interval time.Duration
	lg       *slog.Logger

	mu      sync.Mutex
	pending map[model.UnitID]map[string]model.SensorReading

	quit chan struct{}
	done chan struct{}
}

func NewSubscriber(broker, topicPrefix string, interval time.Duration, engine *coord.Engine, lg *slog.Logger) (*Subscriber, error) {
	s := &Subscriber{
		engine:   engine,
		topic:    strings.TrimSuffix(topicPrefix, "/") + "/+",
		interval: interval,
		lg:       lg.With(slog.String("component", "intake")),
		pending:  make(map[model.UnitID]map[string]model.SensorReading),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("plantd-intake").
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			s.lg.Warn("mqtt connection lost", "error", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			if token := c.Subscribe(s.topic, 0, s.onMessage); token.Wait() && token.Error() != nil {
				s.lg.Error("mqtt subscribe failed", "topic", s.topic, "error", token.Error())
			}
		})
	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", broker, token.Error())
	}
	s.lg.Info("mqtt intake connected", "broker", broker, "topic", s.topic)
	return s, nil
}

// Start runs the flush loop until Stop is called.
func (s *Subscriber) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.quit:
				return
			case now := <-ticker.C:
				s.flush(now.UTC())
			}
		}
	}()
}

// Stop halts the flush loop and disconnects from the broker.
func (s *Subscriber) Stop() {
	close(s.quit)
	<-s.done
	s.client.Disconnect(250)
}

func (s *Subscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// Topic layout is <prefix>/<unit>; the payload carries the unit too, but
	// the topic segment wins so misdirected readings are visible in the log.
	parts := strings.Split(msg.Topic(), "/")
	unit := model.UnitID(parts[len(parts)-1])
	if !knownUnit(unit) {
		s.lg.Warn("telemetry for unknown unit dropped", "topic", msg.Topic())
		return
	}

	var readings []model.SensorReading
	if err := json.Unmarshal(msg.Payload(), &readings); err != nil {
		var single model.SensorReading
		if err := json.Unmarshal(msg.Payload(), &single); err != nil {
			s.lg.Warn("undecodable telemetry payload", "topic", msg.Topic(), "error", err)
			return
		}
		readings = []model.SensorReading{single}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range readings {
		if r.Unit != "" && r.Unit != unit {
			s.lg.Warn("reading unit does not match topic", "topic", msg.Topic(), "unit", r.Unit)
		}
		r.Unit = unit
		if s.pending[unit] == nil {
			s.pending[unit] = make(map[string]model.SensorReading)
		}
		s.pending[unit][r.SensorName] = r
	}
}

func knownUnit(u model.UnitID) bool {
	for _, known := range model.UnitPriority {
		if u == known {
			return true
		}
	}
	return false
}

func (s *Subscriber) flush(now time.Time) {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	snapshots := make(map[model.UnitID][]model.SensorReading, len(s.pending))
	for unit, sensors := range s.pending {
		batch := make([]model.SensorReading, 0, len(sensors))
		for _, r := range sensors {
			batch = append(batch, r)
		}
		snapshots[unit] = batch
	}
	s.pending = make(map[model.UnitID]map[string]model.SensorReading)
	s.mu.Unlock()

	res, err := s.engine.ProcessTick(snapshots, now)
	if err != nil {
		s.lg.Error("tick failed", "error", err)
		return
	}
	if len(res.Rejected) > 0 {
		s.lg.Warn("tick processed with rejected readings", "rejected", len(res.Rejected))
	}
}

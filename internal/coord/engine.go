// internal/coord/engine.go
package coord

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Raaghu1804/hackathon-zss/internal/agent"
	"github.com/Raaghu1804/hackathon-zss/internal/classify"
	"github.com/Raaghu1804/hackathon-zss/internal/config"
	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

// Notifier receives outbound events for the external broadcast layer. The
// engine does not manage listener lifecycles.
type Notifier interface {
	Notify(model.Event)
}

// Metrics is the minimal instrumentation surface the engine reports into.
type Metrics interface {
	TickProcessed()
	AnomalyDetected(unit, severity string)
	MessageLogged(kind string)
	ReadingRejected(unit string)
}

// coordinatorName labels internal diagnostic messages on the log.
const coordinatorName = "Coordinator"

// TickResult is the outcome of one classification-and-coordination pass.
type TickResult struct {
	Healths  map[model.UnitID]model.UnitHealth
	Messages []model.AgentMessage
	Rejected []error
}

type openFlag struct {
	origin model.UnitID
	sensor string
	target model.UnitID
	label  string
}

// unitPass carries one unit's classified snapshot and agent evaluation across
// the parallel and sequential halves of a tick.
type unitPass struct {
	eval     agent.Evaluation
	states   []model.SensorState
	rejected []error
	ran      bool
}

// Engine drives the per-tick pipeline: classify readings, evaluate unit
// agents in parallel, then coordinate cross-unit implications in the fixed
// unit priority order. It is invoked externally; it runs no timer of its own.
type Engine struct {
	cfg       *config.AppConfig
	lg        *slog.Logger
	cls       *classify.Classifier
	agents    map[model.UnitID]*agent.Agent
	log       *MessageLog
	effects   []Effect
	notifiers []Notifier
	metrics   Metrics

	// mu serializes ticks so the coordination pass observes a consistent
	// snapshot across all three agents.
	mu    sync.Mutex
	flags map[string]openFlag
}

// NewEngine wires the classifier, the three unit agents, and the message log.
func NewEngine(cfg *config.AppConfig, lg *slog.Logger, policy agent.Policy) *Engine {
	e := &Engine{
		cfg:     cfg,
		lg:      lg.With(slog.String("component", "coordinator")),
		cls:     classify.New(cfg),
		agents:  make(map[model.UnitID]*agent.Agent, len(model.UnitPriority)),
		log:     NewMessageLog(cfg.MessageLogCap),
		effects: DefaultEffectTable,
		flags:   map[string]openFlag{},
	}
	for _, u := range model.UnitPriority {
		e.agents[u] = agent.New(u, cfg.HardFaultMultiplier, policy, lg)
	}
	return e
}

// AddNotifier registers an outbound event sink.
func (e *Engine) AddNotifier(n Notifier) { e.notifiers = append(e.notifiers, n) }

// SetMetrics attaches instrumentation.
func (e *Engine) SetMetrics(m Metrics) { e.metrics = m }

// Log exposes the communication log for read-back queries.
func (e *Engine) Log() *MessageLog { return e.log }

// SubmitSnapshot runs one pass for a single unit's snapshot. Invalid readings
// are rejected individually and never abort the rest of the snapshot.
func (e *Engine) SubmitSnapshot(unit model.UnitID, readings []model.SensorReading, now time.Time) (TickResult, error) {
	if _, ok := e.agents[unit]; !ok {
		return TickResult{}, fmt.Errorf("%w: %s", model.ErrUnknownUnit, unit)
	}
	return e.ProcessTick(map[model.UnitID][]model.SensorReading{unit: readings}, now)
}

// ProcessTick classifies and coordinates a full multi-unit tick. Per-unit work
// runs in parallel; the coordination pass is sequential in unit priority order
// so the log ordering guarantee holds.
func (e *Engine) ProcessTick(snapshots map[model.UnitID][]model.SensorReading, now time.Time) (TickResult, error) {
	for u := range snapshots {
		if _, ok := e.agents[u]; !ok {
			return TickResult{}, fmt.Errorf("%w: %s", model.ErrUnknownUnit, u)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	passes := make(map[model.UnitID]*unitPass, len(snapshots))
	var wg sync.WaitGroup
	var pmu sync.Mutex
	for u, readings := range snapshots {
		wg.Add(1)
		go func(u model.UnitID, readings []model.SensorReading) {
			defer wg.Done()
			p := &unitPass{ran: true}
			for _, r := range readings {
				st, err := e.cls.Classify(r)
				if err != nil {
					p.rejected = append(p.rejected, err)
					continue
				}
				p.states = append(p.states, st)
			}
			p.eval = e.agents[u].Observe(p.states, now)
			pmu.Lock()
			passes[u] = p
			pmu.Unlock()
		}(u, readings)
	}
	wg.Wait()

	res := TickResult{Healths: make(map[model.UnitID]model.UnitHealth, len(passes))}

	// Coordination pass: fixed unit priority, local messages before the
	// unit's own cross-unit messages.
	for _, u := range model.UnitPriority {
		p, ok := passes[u]
		if !ok || !p.ran {
			continue
		}
		res.Rejected = append(res.Rejected, p.rejected...)
		if e.metrics != nil {
			for range p.rejected {
				e.metrics.ReadingRejected(string(u))
			}
			for _, st := range p.eval.Anomalies {
				e.metrics.AnomalyDetected(string(u), string(st.Severity))
			}
		}

		if p.eval.Transitioned {
			e.emit(model.Event{
				Type:      model.EventStateTransition,
				Unit:      u,
				Severity:  p.eval.Current.Severity(),
				Payload:   map[string]any{"from": p.eval.Previous, "to": p.eval.Current},
				Timestamp: now,
			})
		}

		for _, m := range p.eval.Local {
			res.Messages = append(res.Messages, e.appendAndEmit(m, "local", now))
		}
		for _, st := range p.eval.Anomalies {
			eff, ok := Match(e.effects, st)
			if !ok {
				continue
			}
			target, tracked := e.agents[eff.Target]
			if !tracked {
				// Coordination never fails silently: an unroutable
				// effect is logged as an internal diagnostic.
				diag := model.AgentMessage{
					FromAgent:   coordinatorName,
					ToAgent:     coordinatorName,
					Severity:    model.SeverityWarning,
					MessageText: fmt.Sprintf("cannot route effect for %s/%s: unknown target unit %s", u, st.Reading.SensorName, eff.Target),
					Timestamp:   now,
				}
				res.Messages = append(res.Messages, e.appendAndEmit(diag, "diagnostic", now))
				continue
			}
			m := model.AgentMessage{
				FromAgent:   e.agents[u].Name(),
				ToAgent:     target.Name(),
				Severity:    st.Severity,
				MessageText: fmt.Sprintf(eff.Template, st.Reading.SensorName, st.Reading.Value),
				ActionTaken: eff.Action,
				Timestamp:   now,
			}
			res.Messages = append(res.Messages, e.appendAndEmit(m, "cross_unit", now))
			e.flags[flagKey(u, st.Reading.SensorName)] = openFlag{
				origin: u, sensor: st.Reading.SensorName, target: eff.Target, label: eff.Flag,
			}
		}
	}

	e.clearResolvedFlags(passes)

	// Fold the surviving flags into each evaluated unit's health.
	for _, u := range model.UnitPriority {
		if _, ok := passes[u]; !ok {
			continue
		}
		res.Healths[u] = e.agents[u].ApplyFlags(e.flagsFor(u))
	}

	e.emit(model.Event{
		Type:      model.EventSensorUpdate,
		Payload:   res.Healths,
		Timestamp: now,
	})
	if e.metrics != nil {
		e.metrics.TickProcessed()
	}
	return res, nil
}

// UnitStatus returns the current health for one unit.
func (e *Engine) UnitStatus(unit model.UnitID) (model.UnitHealth, error) {
	a, ok := e.agents[unit]
	if !ok {
		return model.UnitHealth{}, fmt.Errorf("%w: %s", model.ErrUnknownUnit, unit)
	}
	return a.Health(), nil
}

// AllUnitStatus returns every unit's health in priority order.
func (e *Engine) AllUnitStatus() []model.UnitHealth {
	out := make([]model.UnitHealth, 0, len(model.UnitPriority))
	for _, u := range model.UnitPriority {
		out = append(out, e.agents[u].Health())
	}
	return out
}

// RecentMessages returns up to limit log entries, most recent last.
func (e *Engine) RecentMessages(limit int) []model.AgentMessage {
	return e.log.Recent(limit)
}

// AnalyticsContext is the structured view handed to the external
// language-answering collaborator. The engine never calls that collaborator.
type AnalyticsContext struct {
	Units    []model.UnitHealth   `json:"units"`
	Messages []model.AgentMessage `json:"messages"`
}

// Context snapshots current health and the recent communication window.
func (e *Engine) Context(messageLimit int) AnalyticsContext {
	return AnalyticsContext{
		Units:    e.AllUnitStatus(),
		Messages: e.log.Recent(messageLimit),
	}
}

func (e *Engine) appendAndEmit(m model.AgentMessage, kind string, now time.Time) model.AgentMessage {
	stored := e.log.Append(m)
	if e.metrics != nil {
		e.metrics.MessageLogged(kind)
	}
	e.emit(model.Event{
		Type:      model.EventAgentMessage,
		Unit:      unitForAgent(stored.FromAgent),
		Severity:  stored.Severity,
		Payload:   stored,
		Timestamp: now,
	})
	return stored
}

func (e *Engine) emit(ev model.Event) {
	for _, n := range e.notifiers {
		n.Notify(ev)
	}
}

// clearResolvedFlags drops flags whose origin sensor reported normal in this
// tick. Units absent from the tick keep their flags open.
func (e *Engine) clearResolvedFlags(passes map[model.UnitID]*unitPass) {
	for key, f := range e.flags {
		p, ok := passes[f.origin]
		if !ok {
			continue
		}
		resolved := false
		for _, st := range p.states {
			if st.Reading.SensorName == f.sensor {
				resolved = !st.IsAnomaly
				break
			}
		}
		if resolved {
			delete(e.flags, key)
		}
	}
}

func (e *Engine) flagsFor(unit model.UnitID) []string {
	var out []string
	for _, f := range e.flags {
		if f.target == unit {
			out = append(out, f.label)
		}
	}
	sort.Strings(out)
	return out
}

func flagKey(u model.UnitID, sensor string) string { return string(u) + "|" + sensor }

func unitForAgent(name string) model.UnitID {
	for _, u := range model.UnitPriority {
		if model.AgentName(u) == name {
			return u
		}
	}
	return ""
}

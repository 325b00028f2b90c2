// internal/agent/agent.go
package agent

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Raaghu1804/hackathon-zss/internal/classify"
	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

// State is the unit agent's operating state.
type State string

const (
	StateNominal  State = "nominal"
	StateDegraded State = "degraded"
	StateCritical State = "critical"
)

// Severity maps an agent state onto the reported unit status.
func (s State) Severity() model.Severity {
	switch s {
	case StateDegraded:
		return model.SeverityWarning
	case StateCritical:
		return model.SeverityCritical
	}
	return model.SeverityNormal
}

// Policy decides the next state from the current snapshot. The default policy
// re-evaluates every tick from scratch; a hysteresis strategy can be injected
// here without changing the agent contract.
type Policy interface {
	Next(prev State, criticals, warnings int, hardFault bool) State
}

// perTickPolicy is the default stateless policy: a tick showing the triggering
// condition resolved transitions back immediately.
type perTickPolicy struct{}

func (perTickPolicy) Next(_ State, criticals, warnings int, hardFault bool) State {
	switch {
	case criticals > 2 || hardFault:
		return StateCritical
	case criticals > 0 || warnings > 0:
		return StateDegraded
	}
	return StateNominal
}

// Evaluation is the outcome of one snapshot pass through an agent.
type Evaluation struct {
	Unit         model.UnitID
	Previous     State
	Current      State
	Transitioned bool
	Health       model.UnitHealth
	Anomalies    []model.SensorState
	// Local holds the candidate messages describing each anomaly with its
	// heuristic corrective action. The coordinator owns appending them.
	Local []model.AgentMessage
}

// Agent owns the health state of a single production unit. It consumes
// classified readings and exclusively owns its UnitHealth.
type Agent struct {
	unit          model.UnitID
	name          string
	hardFaultMult float64
	policy        Policy
	lg            *slog.Logger

	mu     sync.RWMutex
	state  State
	health model.UnitHealth
	flags  []string
}

// New builds an agent in the nominal state. A nil policy selects the default
// per-tick re-evaluation.
func New(unit model.UnitID, hardFaultMult float64, policy Policy, lg *slog.Logger) *Agent {
	if policy == nil {
		policy = perTickPolicy{}
	}
	return &Agent{
		unit:          unit,
		name:          model.AgentName(unit),
		hardFaultMult: hardFaultMult,
		policy:        policy,
		lg:            lg.With(slog.String("component", "agent"), slog.String("unit", string(unit))),
		state:         StateNominal,
		health: model.UnitHealth{
			Unit:        unit,
			Status:      model.SeverityNormal,
			HealthScore: 100,
			Efficiency:  100,
		},
	}
}

func (a *Agent) Unit() model.UnitID { return a.unit }
func (a *Agent) Name() string       { return a.name }

// Observe processes the latest classified snapshot, derives the next state
// and health, and returns the candidate local messages. Health reflects only
// this snapshot plus the flags currently open against the unit.
func (a *Agent) Observe(states []model.SensorState, now time.Time) Evaluation {
	var criticals, warnings int
	var anomalies []model.SensorState
	hardFault := false
	for _, st := range states {
		switch st.Severity {
		case model.SeverityCritical:
			criticals++
		case model.SeverityWarning:
			warnings++
		}
		if st.IsAnomaly {
			anomalies = append(anomalies, st)
			if classify.Deviation(st) > a.hardFaultMult {
				hardFault = true
			}
		}
	}

	a.mu.Lock()
	prev := a.state
	next := a.policy.Next(prev, criticals, warnings, hardFault)
	a.state = next
	a.health = a.buildHealth(states, anomalies, criticals, next, now)
	health := a.health
	a.mu.Unlock()

	ev := Evaluation{
		Unit:         a.unit,
		Previous:     prev,
		Current:      next,
		Transitioned: prev != next,
		Health:       health,
		Anomalies:    anomalies,
	}
	for _, st := range anomalies {
		ev.Local = append(ev.Local, a.localMessage(st, now))
	}
	if ev.Transitioned {
		a.lg.Info("state transition", "from", prev, "to", next, "criticals", criticals, "warnings", warnings, "hardFault", hardFault)
	}
	return ev
}

// ApplyFlags replaces the unit's open cross-unit flags and folds them into the
// reported health. Each open flag costs five points; the floor of 50 still
// holds so a running unit never reads as fully failed.
func (a *Agent) ApplyFlags(flags []string) model.UnitHealth {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.flags = append([]string(nil), flags...)
	score := 100 - 10*float64(a.health.CriticalCount) - 5*float64(len(flags))
	if score < 50 {
		score = 50
	}
	a.health.HealthScore = score
	a.health.OpenFlags = a.flags
	if len(flags) > 0 && a.health.Status == model.SeverityNormal {
		a.health.Status = model.SeverityWarning
	}
	return a.health
}

// Health returns a copy of the current unit health.
func (a *Agent) Health() model.UnitHealth {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.health
}

// State returns the agent's current operating state.
func (a *Agent) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Agent) buildHealth(states []model.SensorState, anomalies []model.SensorState, criticals int, st State, now time.Time) model.UnitHealth {
	score := 100 - 10*float64(criticals) - 5*float64(len(a.flags))
	if score < 50 {
		score = 50
	}
	eff := 100.0
	if len(states) > 0 {
		eff = 85 + 10*(1-float64(len(anomalies))/float64(len(states)))
	}
	if eff > 100 {
		eff = 100
	}
	if eff < 0 {
		eff = 0
	}
	return model.UnitHealth{
		Unit:          a.unit,
		Status:        st.Severity(),
		HealthScore:   score,
		Efficiency:    eff,
		AnomalyCount:  len(anomalies),
		CriticalCount: criticals,
		OpenFlags:     a.flags,
		Sensors:       states,
		UpdatedAt:     now,
	}
}

func (a *Agent) localMessage(st model.SensorState, now time.Time) model.AgentMessage {
	r := st.Reading
	text := fmt.Sprintf("%s at %.2f %s outside envelope [%.2f, %.2f]",
		r.SensorName, r.Value, r.UnitOfMeasure, r.OptimalRange.Low, r.OptimalRange.High)
	return model.AgentMessage{
		FromAgent:   a.name,
		ToAgent:     a.name,
		Severity:    st.Severity,
		MessageText: text,
		ActionTaken: SuggestAction(r.SensorName),
		Timestamp:   now,
	}
}

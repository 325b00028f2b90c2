// internal/agent/actions.go
package agent

import "strings"

// ActionRule pairs a sensor-name substring with its heuristic corrective
// action. The table is ordered; the first matching keyword wins.
type ActionRule struct {
	Keyword string
	Action  string
}

// DefaultActionTable is the fixed keyword table used to pick corrective
// actions. It is a coarse heuristic, kept as an inspectable table so rules can
// be extended without touching agent logic.
var DefaultActionTable = []ActionRule{
	{Keyword: "temp", Action: "Adjust fuel rate and check cooling circuit"},
	{Keyword: "pressure", Action: "Check dampers and inspect for blockages"},
	{Keyword: "oxygen", Action: "Adjust air flow rate and check for air leaks"},
	{Keyword: "co_level", Action: "Improve combustion conditions and check fuel quality"},
	{Keyword: "nox", Action: "Optimize combustion temperature and air staging"},
	{Keyword: "flow", Action: "Inspect valves and calibrate feeders"},
	{Keyword: "feed", Action: "Adjust feed rate control and check material flow"},
	{Keyword: "speed", Action: "Check drive system and mechanical condition"},
	{Keyword: "efficiency", Action: "Review heat recovery and process parameters"},
}

// defaultAction covers sensors no rule matches.
const defaultAction = "Monitor closely and check related parameters"

// SuggestAction returns the corrective action for a sensor name.
func SuggestAction(sensorName string) string {
	name := strings.ToLower(sensorName)
	for _, rule := range DefaultActionTable {
		if strings.Contains(name, rule.Keyword) {
			return rule.Action
		}
	}
	return defaultAction
}

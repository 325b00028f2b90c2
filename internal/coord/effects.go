// internal/coord/effects.go
package coord

import (
	"strings"

	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

// Effect declares one row of the static cross-unit effect table: an anomaly on
// the origin unit whose sensor name contains the keyword has a downstream
// effect on the target unit. The table is data, not dispatch, so extending the
// coordinator means adding rows rather than new types.
type Effect struct {
	Origin        model.UnitID
	SensorKeyword string
	Target        model.UnitID
	// Template is the message text; %s is the sensor name, %.2f the value.
	Template string
	Action   string
	Flag     string
}

// DefaultEffectTable maps the known downstream couplings between the three
// units.
var DefaultEffectTable = []Effect{
	{
		Origin:        model.UnitRotaryKiln,
		SensorKeyword: "burning_zone_temp",
		Target:        model.UnitClinkerCooler,
		Template:      "Kiln %s at %.2f will shift clinker cooler inlet load",
		Action:        "Prepare for higher clinker inlet temperature",
		Flag:          "kiln_burning_zone",
	},
	{
		Origin:        model.UnitRotaryKiln,
		SensorKeyword: "shell_temp",
		Target:        model.UnitClinkerCooler,
		Template:      "High kiln %s at %.2f, potential refractory damage ahead of cooler",
		Action:        "Prepare for higher clinker temperature",
		Flag:          "kiln_shell",
	},
	{
		Origin:        model.UnitPreCalciner,
		SensorKeyword: "calcination_degree",
		Target:        model.UnitRotaryKiln,
		Template:      "Pre-calciner %s at %.2f raises kiln fuel demand",
		Action:        "Adjust kiln fuel rate to compensate",
		Flag:          "under_calcination",
	},
	{
		Origin:        model.UnitPreCalciner,
		SensorKeyword: "temperature",
		Target:        model.UnitRotaryKiln,
		Template:      "Pre-calciner %s anomaly at %.2f affects kiln feed preparation",
		Action:        "Adjust feed rate to compensate",
		Flag:          "precalciner_temperature",
	},
	{
		Origin:        model.UnitClinkerCooler,
		SensorKeyword: "cooler_efficiency",
		Target:        model.UnitPreCalciner,
		Template:      "Cooler %s at %.2f, tertiary air temperature may be affected",
		Action:        "Watch tertiary air temperature",
		Flag:          "cooler_efficiency",
	},
}

// Match returns the first effect applying to the given anomalous state. Only
// warning and critical severities cross unit boundaries.
func Match(table []Effect, st model.SensorState) (Effect, bool) {
	if st.Severity.Rank() < model.SeverityWarning.Rank() {
		return Effect{}, false
	}
	name := strings.ToLower(st.Reading.SensorName)
	for _, e := range table {
		if e.Origin == st.Reading.Unit && strings.Contains(name, e.SensorKeyword) {
			return e, true
		}
	}
	return Effect{}, false
}

// internal/config/defaults.go
package config

import "github.com/Raaghu1804/hackathon-zss/internal/model"

// defaultEnvelopes describes the reference plant: a pre-calciner, a rotary
// kiln and a clinker cooler with their declared operating ranges. Critical
// margins are per sensor; a reading beyond low-margin or high+margin is
// classified critical.
func defaultEnvelopes() map[model.UnitID]map[string]SensorEnvelope {
	return map[model.UnitID]map[string]SensorEnvelope{
		model.UnitPreCalciner: {
			"temperature":        {Low: 820, High: 900, CriticalMargin: 40, UnitOfMeasure: "°C"},
			"pressure":           {Low: -5, High: -2, CriticalMargin: 1, UnitOfMeasure: "mbar"},
			"oxygen_level":       {Low: 2.0, High: 4.0, CriticalMargin: 0.5, UnitOfMeasure: "%"},
			"co_level":           {Low: 0, High: 0.1, CriticalMargin: 0.05, UnitOfMeasure: "%"},
			"nox_level":          {Low: 0, High: 800, CriticalMargin: 100, UnitOfMeasure: "mg/Nm³"},
			"fuel_flow":          {Low: 8, High: 12, CriticalMargin: 1, UnitOfMeasure: "t/h"},
			"feed_rate":          {Low: 250, High: 350, CriticalMargin: 20, UnitOfMeasure: "t/h"},
			"tertiary_air_temp":  {Low: 600, High: 900, CriticalMargin: 50, UnitOfMeasure: "°C"},
			"calcination_degree": {Low: 85, High: 95, CriticalMargin: 3, UnitOfMeasure: "%"},
		},
		model.UnitRotaryKiln: {
			"burning_zone_temp":  {Low: 1400, High: 1500, CriticalMargin: 50, UnitOfMeasure: "°C"},
			"back_end_temp":      {Low: 800, High: 1200, CriticalMargin: 60, UnitOfMeasure: "°C"},
			"shell_temp":         {Low: 200, High: 350, CriticalMargin: 30, UnitOfMeasure: "°C"},
			"oxygen_level":       {Low: 1.0, High: 3.0, CriticalMargin: 0.5, UnitOfMeasure: "%"},
			"nox_level":          {Low: 0, High: 1200, CriticalMargin: 150, UnitOfMeasure: "mg/Nm³"},
			"co_level":           {Low: 0, High: 0.05, CriticalMargin: 0.03, UnitOfMeasure: "%"},
			"kiln_speed":         {Low: 3.0, High: 5.0, CriticalMargin: 0.4, UnitOfMeasure: "rpm"},
			"fuel_rate":          {Low: 10, High: 15, CriticalMargin: 1, UnitOfMeasure: "t/h"},
			"clinker_exit_temp":  {Low: 1100, High: 1300, CriticalMargin: 60, UnitOfMeasure: "°C"},
			"secondary_air_temp": {Low: 600, High: 1000, CriticalMargin: 60, UnitOfMeasure: "°C"},
		},
		model.UnitClinkerCooler: {
			"inlet_temp":          {Low: 1100, High: 1300, CriticalMargin: 60, UnitOfMeasure: "°C"},
			"outlet_temp":         {Low: 100, High: 150, CriticalMargin: 15, UnitOfMeasure: "°C"},
			"secondary_air_temp":  {Low: 600, High: 1000, CriticalMargin: 60, UnitOfMeasure: "°C"},
			"tertiary_air_temp":   {Low: 600, High: 900, CriticalMargin: 50, UnitOfMeasure: "°C"},
			"grate_speed":         {Low: 10, High: 30, CriticalMargin: 3, UnitOfMeasure: "strokes/min"},
			"undergrate_pressure": {Low: 40, High: 80, CriticalMargin: 8, UnitOfMeasure: "mbar"},
			"cooling_air_flow":    {Low: 2.3, High: 3.3, CriticalMargin: 0.3, UnitOfMeasure: "kg/kg"},
			"bed_height":          {Low: 500, High: 800, CriticalMargin: 50, UnitOfMeasure: "mm"},
			"cooler_efficiency":   {Low: 75, High: 85, CriticalMargin: 4, UnitOfMeasure: "%"},
		},
	}
}

// defaultFuels is the reference fuel database. Prices are per tonne; coal is
// the primary fossil fuel used as the fixed optimization baseline.
func defaultFuels() []model.FuelSpec {
	return []model.FuelSpec{
		{Name: "coal", CalorificValueMJPerKg: 25.5, AshContentPct: 12.0, CostPerTonne: 81.6, CO2FactorKgPerGJ: 94.6, MaxAvailabilityTonnes: 1e9, Primary: true},
		{Name: "petcoke", CalorificValueMJPerKg: 32.0, AshContentPct: 4.0, CostPerTonne: 89.6, CO2FactorKgPerGJ: 102.0, MaxAvailabilityTonnes: 1e8},
		{Name: "rice_husk", CalorificValueMJPerKg: 16.2, AshContentPct: 18.0, CostPerTonne: 29.2, CO2FactorKgPerGJ: 9.5, MaxAvailabilityTonnes: 3.14e7},
		{Name: "rdf", CalorificValueMJPerKg: 18.5, AshContentPct: 15.0, CostPerTonne: 9.3, CO2FactorKgPerGJ: 37.8, MaxAvailabilityTonnes: 6.2e7},
		{Name: "biomass", CalorificValueMJPerKg: 14.8, AshContentPct: 8.0, CostPerTonne: 31.1, CO2FactorKgPerGJ: 4.7, MaxAvailabilityTonnes: 5e6},
		{Name: "plastic_waste", CalorificValueMJPerKg: 28.0, AshContentPct: 10.0, CostPerTonne: 22.4, CO2FactorKgPerGJ: 50.0, MaxAvailabilityTonnes: 2e7},
	}
}

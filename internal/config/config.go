// internal/config/config.go
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

// SensorEnvelope declares the normal operating range and the per-sensor
// critical margin. Margins are per sensor because scales differ by an order of
// magnitude between, say, burning-zone temperature and oxygen percentage.
type SensorEnvelope struct {
	Low            float64
	High           float64
	CriticalMargin float64
	UnitOfMeasure  string
}

// Range returns the envelope as the model's optimal range.
func (e SensorEnvelope) Range() model.OptimalRange {
	return model.OptimalRange{Low: e.Low, High: e.High}
}

// AppConfig is the full runtime configuration, loaded from environment
// variables plus an optional .properties file.
type AppConfig struct {
	HTTPBind string
	LogDir   string

	KafkaBrokers []string
	LedgerTopic  string

	MQTTBroker      string
	MQTTTopicPrefix string

	SQLitePath string

	GeminiAPIKey string
	GeminiModel  string

	PropertiesPath string

	TickIntervalMs    int
	MessageLogCap     int
	OptimizeTimeoutMs int

	// HardFaultMultiplier is the envelope-width multiplier beyond which a
	// single sensor deviation forces a unit straight to critical.
	HardFaultMultiplier float64

	Envelopes map[model.UnitID]map[string]SensorEnvelope
	Fuels     []model.FuelSpec
}

// Load reads environment variables, seeds the built-in plant defaults, and
// applies any overrides from the properties file. A missing properties file is
// not an error; the defaults describe a complete plant.
func Load() (*AppConfig, error) {
	c := &AppConfig{
		HTTPBind:            getenv("HTTP_BIND", ":8080"),
		LogDir:              getenv("LOG_DIR", "./logs"),
		KafkaBrokers:        split(getenv("KAFKA_BROKERS", ""), ","),
		LedgerTopic:         getenv("LEDGER_TOPIC", "plant.audit.events"),
		MQTTBroker:          getenv("MQTT_BROKER", ""),
		MQTTTopicPrefix:     getenv("MQTT_TOPIC_PREFIX", "plant/telemetry/"),
		SQLitePath:          getenv("SQLITE_PATH", "./data/cement_plant.db"),
		GeminiAPIKey:        getenv("GEMINI_API_KEY", ""),
		GeminiModel:         getenv("GEMINI_MODEL", "gemini-2.0-flash"),
		PropertiesPath:      getenv("PROPERTIES_PATH", "./configs/plant.properties"),
		TickIntervalMs:      geti("TICK_INTERVAL_MS", 5000),
		MessageLogCap:       geti("MESSAGE_LOG_CAP", 500),
		OptimizeTimeoutMs:   geti("OPTIMIZE_TIMEOUT_MS", 2000),
		HardFaultMultiplier: getf("HARD_FAULT_MULTIPLIER", 2.0),
		Envelopes:           defaultEnvelopes(),
		Fuels:               defaultFuels(),
	}
	if err := c.loadProperties(c.PropertiesPath); err != nil {
		return nil, err
	}
	return c, nil
}

// ReloadProperties re-applies the properties file on top of the defaults.
func (c *AppConfig) ReloadProperties() error {
	c.Envelopes = defaultEnvelopes()
	c.Fuels = defaultFuels()
	return c.loadProperties(c.PropertiesPath)
}

// Envelope returns the declared envelope for one sensor. The boolean reports
// whether the sensor is known for that unit.
func (c *AppConfig) Envelope(unit model.UnitID, sensor string) (SensorEnvelope, bool) {
	m, ok := c.Envelopes[unit]
	if !ok {
		return SensorEnvelope{}, false
	}
	env, ok := m[sensor]
	return env, ok
}

// FuelByName looks a fuel up in the configured database.
func (c *AppConfig) FuelByName(name string) (model.FuelSpec, bool) {
	for _, f := range c.Fuels {
		if f.Name == name {
			return f, true
		}
	}
	return model.FuelSpec{}, false
}

// loadProperties parses key=value lines. Recognized keys:
//
//	envelope.<unit>.<sensor> = low,high,criticalMargin,unitOfMeasure
//	fuel.<name>              = calorific,ash,costPerTonne,co2PerGJ,availabilityTonnes,primary
//	hardfault.multiplier     = float
//	messagelog.cap           = int
func (c *AppConfig) loadProperties(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		switch {
		case strings.HasPrefix(k, "envelope."):
			if err := c.applyEnvelope(strings.TrimPrefix(k, "envelope."), v); err != nil {
				return fmt.Errorf("property %s: %w", k, err)
			}
		case strings.HasPrefix(k, "fuel."):
			if err := c.applyFuel(strings.TrimPrefix(k, "fuel."), v); err != nil {
				return fmt.Errorf("property %s: %w", k, err)
			}
		case k == "hardfault.multiplier":
			if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
				c.HardFaultMultiplier = f
			}
		case k == "messagelog.cap":
			if i, err := strconv.Atoi(v); err == nil && i > 0 {
				c.MessageLogCap = i
			}
		}
	}
	return s.Err()
}

func (c *AppConfig) applyEnvelope(key, val string) error {
	unit, sensor, ok := strings.Cut(key, ".")
	if !ok {
		return fmt.Errorf("expected envelope.<unit>.<sensor>")
	}
	parts := split(val, ",")
	if len(parts) < 3 {
		return fmt.Errorf("expected low,high,criticalMargin[,unitOfMeasure]")
	}
	low, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return err
	}
	high, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return err
	}
	margin, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return err
	}
	if high <= low {
		return fmt.Errorf("high %.2f must exceed low %.2f", high, low)
	}
	uom := ""
	if len(parts) > 3 {
		uom = parts[3]
	}
	u := model.UnitID(unit)
	if c.Envelopes[u] == nil {
		c.Envelopes[u] = map[string]SensorEnvelope{}
	}
	if uom == "" {
		if prev, ok := c.Envelopes[u][sensor]; ok {
			uom = prev.UnitOfMeasure
		}
	}
	c.Envelopes[u][sensor] = SensorEnvelope{Low: low, High: high, CriticalMargin: margin, UnitOfMeasure: uom}
	return nil
}

func (c *AppConfig) applyFuel(name, val string) error {
	parts := split(val, ",")
	if len(parts) < 5 {
		return fmt.Errorf("expected calorific,ash,costPerTonne,co2PerGJ,availabilityTonnes[,primary]")
	}
	nums := make([]float64, 5)
	for i := 0; i < 5; i++ {
		f, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return err
		}
		nums[i] = f
	}
	spec := model.FuelSpec{
		Name:                  name,
		CalorificValueMJPerKg: nums[0],
		AshContentPct:         nums[1],
		CostPerTonne:          nums[2],
		CO2FactorKgPerGJ:      nums[3],
		MaxAvailabilityTonnes: nums[4],
		Primary:               len(parts) > 5 && parts[5] == "primary",
	}
	for i, f := range c.Fuels {
		if f.Name == name {
			c.Fuels[i] = spec
			return nil
		}
	}
	c.Fuels = append(c.Fuels, spec)
	return nil
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func geti(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return d
}

func getf(k string, d float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return d
}

func split(s, sep string) []string {
	if s == "" {
		return nil
	}
	p := strings.Split(s, sep)
	out := make([]string, 0, len(p))
	for _, x := range p {
		x = strings.TrimSpace(x)
		if x != "" {
			out = append(out, x)
		}
	}
	return out
}

// Package config holds the engine configuration. Values come from built-in
// defaults, an optional YAML file, then environment variable overrides, in
// that order.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DeviceID    string `yaml:"device_id"`
	MissionsDir string `yaml:"missions_dir"`

	MQTT    MQTTConfig    `yaml:"mqtt"`
	Engine  EngineConfig  `yaml:"engine"`
	Monitor MonitorConfig `yaml:"monitor"`
}

type MQTTConfig struct {
	BrokerURL  string `yaml:"broker_url"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	TLSEnabled bool   `yaml:"tls_enabled"`
	CACertPath string `yaml:"ca_cert_path"`

	// JWT-signed password auth (GCP IoT style). Used when the key path
	// is set; Username/Password are ignored in that mode.
	JWTKeyPath   string `yaml:"jwt_key_path"`
	JWTAlgorithm string `yaml:"jwt_algorithm"`
	JWTAudience  string `yaml:"jwt_audience"`
}

type EngineConfig struct {
	TickPeriod          time.Duration `yaml:"tick_period"`
	ArrivalEpsilonM     float64       `yaml:"arrival_epsilon_m"`
	ConfidenceThreshold float64       `yaml:"obstacle_confidence_threshold"`
	ClimbRateMS         float64       `yaml:"climb_rate_ms"`
	DefaultSpeedMS      float64       `yaml:"default_speed_ms"`
	DefaultAltitudeM    float64       `yaml:"default_altitude_m"`
	StatusInterval      time.Duration `yaml:"status_interval"`
	TelemetryInterval   time.Duration `yaml:"telemetry_interval"`
}

type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

func Default() Config {
	return Config{
		DeviceID:    "pi-drone-01",
		MissionsDir: "missions",
		MQTT: MQTTConfig{
			BrokerURL:    "tcp://localhost:1883",
			JWTAlgorithm: "RS256",
		},
		Engine: EngineConfig{
			TickPeriod:          500 * time.Millisecond,
			ArrivalEpsilonM:     2.0,
			ConfidenceThreshold: 0.7,
			ClimbRateMS:         2.0,
			DefaultSpeedMS:      5.0,
			DefaultAltitudeM:    50.0,
			StatusInterval:      2 * time.Second,
			TelemetryInterval:   time.Second,
		},
		Monitor: MonitorConfig{
			Enabled: true,
			Addr:    ":9102",
		},
	}
}

// Load builds the configuration. path may be empty to skip the file layer.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WithMessage(err, "reading config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.WithMessage(err, "decoding config file")
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.DeviceID, "DEVICE_ID")
	setString(&cfg.MissionsDir, "MISSIONS_DIR")
	setString(&cfg.MQTT.BrokerURL, "MQTT_BROKER")
	setString(&cfg.MQTT.Username, "MQTT_USERNAME")
	setString(&cfg.MQTT.Password, "MQTT_PASSWORD")
	setString(&cfg.MQTT.CACertPath, "MQTT_CA_CERT")
	setBool(&cfg.MQTT.TLSEnabled, "MQTT_TLS_ENABLED")
	setFloat(&cfg.Engine.DefaultSpeedMS, "MISSION_SPEED")
	setFloat(&cfg.Engine.DefaultAltitudeM, "MISSION_ALTITUDE")
	setString(&cfg.Monitor.Addr, "MONITOR_ADDR")
}

func (cfg *Config) validate() error {
	if cfg.Engine.TickPeriod <= 0 {
		return errors.Errorf("tick_period must be positive, got %v", cfg.Engine.TickPeriod)
	}
	if cfg.Engine.ConfidenceThreshold < 0 || cfg.Engine.ConfidenceThreshold > 1 {
		return errors.Errorf("obstacle_confidence_threshold must be in [0, 1], got %v", cfg.Engine.ConfidenceThreshold)
	}
	if cfg.Engine.ArrivalEpsilonM <= 0 {
		return errors.Errorf("arrival_epsilon_m must be positive, got %v", cfg.Engine.ArrivalEpsilonM)
	}
	if cfg.Engine.DefaultSpeedMS <= 0 {
		return errors.Errorf("default_speed_ms must be positive, got %v", cfg.Engine.DefaultSpeedMS)
	}
	return nil
}

func setString(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*target = v
	}
}

func setBool(target *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*target = v == "true" || v == "1"
	}
}

func setFloat(target *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

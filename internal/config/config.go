package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// ConfigEnv names the environment variable holding the default config path.
const ConfigEnv = "TRIAGE_CONFIG"

type Config struct {
	Logger         Logger         `yaml:"logger"`
	HTTPClient     HTTPClient     `yaml:"http_client"`
	SecurityGate   SecurityGate   `yaml:"security_gate"`
	RiskAcceptance RiskAcceptance `yaml:"risk_acceptance"`
	Notifications  Notifications  `yaml:"notifications"`
	Tasks          Tasks          `yaml:"tasks"`
	Simulation     Simulation     `yaml:"simulation"`
}

type Logger struct {
	Level           string `yaml:"level"`
	JSONFormat      *bool  `yaml:"json_format"`
	DisableTime     *bool  `yaml:"disable_time"`
	IncludeLocation *bool  `yaml:"include_location"`
}

type HTTPClient struct {
	Debug            *bool           `yaml:"debug"`
	RetryCount       int             `yaml:"retry_count"`
	RetryWaitTime    time.Duration   `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration   `yaml:"retry_max_wait_time"`
	Timeout          time.Duration   `yaml:"timeout"`
	TLSClientConfig  TLSClientConfig `yaml:"tls_client_config"`
	Proxy            Proxy           `yaml:"proxy"`
}

type TLSClientConfig struct {
	Verify *bool `yaml:"verify"`
}

type Proxy struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// SecurityGate is the gate of products that do not configure their own. A nil
// threshold takes its default.
type SecurityGate struct {
	Active            *bool `yaml:"active"`
	ThresholdCritical *int  `yaml:"threshold_critical"`
	ThresholdHigh     *int  `yaml:"threshold_high"`
	ThresholdMedium   *int  `yaml:"threshold_medium"`
	ThresholdLow      *int  `yaml:"threshold_low"`
	ThresholdNone     *int  `yaml:"threshold_none"`
	ThresholdUnknown  *int  `yaml:"threshold_unknown"`
}

type RiskAcceptance struct {
	// ExpiryDays of 0 disables expiry, nil means DefaultRiskAcceptanceExpiryDays.
	ExpiryDays *int `yaml:"expiry_days"`
}

type Notifications struct {
	IssueTrackerWebhook string `yaml:"issue_tracker_webhook"`
	SecurityGateWebhook string `yaml:"security_gate_webhook"`
}

type Tasks struct {
	Workers int `yaml:"workers"`
}

type Simulation struct {
	MaxObservations int `yaml:"max_observations"`
}

func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

func LoadYAML(path string, data interface{}) error {
	if err := ValidateConfigPath(path); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// LoadConfig reads and validates the config at path. An empty path falls back to
// TRIAGE_CONFIG; without either the defaults apply.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}

	cfg := &Config{}
	if path != "" {
		if err := LoadYAML(path, cfg); err != nil {
			return nil, fmt.Errorf("loading config %q: %w", path, err)
		}
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

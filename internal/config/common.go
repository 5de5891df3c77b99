package config

import (
	"crypto/tls"
	"time"

	"github.com/scan-io-git/triage/pkg/product"
)

// Defaults of the triage settings.
const (
	DefaultRiskAcceptanceExpiryDays = 30
	DefaultWorkers                  = 1
	DefaultSimulationObservations   = 100

	DefaultThresholdCritical = 0
	DefaultThresholdHigh     = 0
	DefaultThresholdOther    = 99999
)

// BaseHTTPConfig holds common HTTP client configuration settings.
type BaseHTTPConfig struct {
	RetryCount       int           // Number of retries for failed requests
	RetryWaitTime    time.Duration // Wait time between retries
	RetryMaxWaitTime time.Duration // Maximum wait time for retries
	Timeout          time.Duration // Timeout for requests
	TLSClientConfig  *tls.Config   // TLS configuration
	Proxy            string        // Proxy address
}

// RestyHTTPClientConfig holds additional configuration settings for the Resty HTTP client.
type RestyHTTPClientConfig struct {
	BaseHTTPConfig
	Debug bool // Flag to enable Resty debug mode
}

// DefaultHTTPConfig returns a base configuration for HTTP clients with default values.
func DefaultHTTPConfig() BaseHTTPConfig {
	return BaseHTTPConfig{
		RetryCount:       5,
		RetryWaitTime:    1 * time.Second,
		RetryMaxWaitTime: 5 * time.Second,
		Timeout:          30 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: false,
		},
		Proxy: "",
	}
}

// DefaultRestyConfig returns a default configuration for the Resty HTTP client, extending the base HTTP configuration.
func DefaultRestyConfig() RestyHTTPClientConfig {
	return RestyHTTPClientConfig{
		BaseHTTPConfig: DefaultHTTPConfig(),
		Debug:          false,
	}
}

// ExpiryDays returns the global risk acceptance period.
func (c *Config) ExpiryDays() int {
	return IntOr(c.RiskAcceptance.ExpiryDays, DefaultRiskAcceptanceExpiryDays)
}

// Workers returns how many products bulk tasks process at once.
func (c *Config) Workers() int {
	return SetThen(c.Tasks.Workers, DefaultWorkers)
}

// MaxSimulationObservations caps the sample a simulation returns.
func (c *Config) MaxSimulationObservations() int {
	return SetThen(c.Simulation.MaxObservations, DefaultSimulationObservations)
}

// GateActive reports whether products without own gate settings have a gate.
func (c *Config) GateActive() bool {
	return GetBoolValue(c, "SecurityGate.Active", true)
}

// GateThresholds returns the global thresholds, defaults filled in.
func (c *Config) GateThresholds() product.GateThresholds {
	threshold := func(value *int, defaultValue int) *int {
		v := IntOr(value, defaultValue)
		return &v
	}
	g := c.SecurityGate
	return product.GateThresholds{
		Critical: threshold(g.ThresholdCritical, DefaultThresholdCritical),
		High:     threshold(g.ThresholdHigh, DefaultThresholdHigh),
		Medium:   threshold(g.ThresholdMedium, DefaultThresholdOther),
		Low:      threshold(g.ThresholdLow, DefaultThresholdOther),
		None:     threshold(g.ThresholdNone, DefaultThresholdOther),
		Unknown:  threshold(g.ThresholdUnknown, DefaultThresholdOther),
	}
}

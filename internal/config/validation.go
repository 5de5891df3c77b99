package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidateConfig checks if the global configurations have valid values.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateHTTPConfig(&cfg.HTTPClient); err != nil {
		return fmt.Errorf("YAML global config: http_client directive is invalid: %w", err)
	}
	if err := ValidateSecurityGateConfig(&cfg.SecurityGate); err != nil {
		return fmt.Errorf("YAML global config: security_gate directive is invalid: %w", err)
	}
	if days := cfg.RiskAcceptance.ExpiryDays; days != nil && *days < 0 {
		return fmt.Errorf("YAML global config: risk_acceptance directive is invalid: expiry_days cannot be negative: %d", *days)
	}
	if err := validateURL(cfg.Notifications.IssueTrackerWebhook, "issue_tracker_webhook"); err != nil {
		return fmt.Errorf("YAML global config: notifications directive is invalid: %w", err)
	}
	if err := validateURL(cfg.Notifications.SecurityGateWebhook, "security_gate_webhook"); err != nil {
		return fmt.Errorf("YAML global config: notifications directive is invalid: %w", err)
	}
	if cfg.Tasks.Workers < 0 || cfg.Tasks.Workers > 64 {
		return fmt.Errorf("YAML global config: tasks directive is invalid: workers must be between 0 and 64: %d", cfg.Tasks.Workers)
	}
	if cfg.Simulation.MaxObservations < 0 {
		return fmt.Errorf("YAML global config: simulation directive is invalid: max_observations cannot be negative: %d", cfg.Simulation.MaxObservations)
	}
	return nil
}

// ValidateSecurityGateConfig checks that no threshold is negative.
func ValidateSecurityGateConfig(gate *SecurityGate) error {
	if gate == nil {
		return fmt.Errorf("security gate configuration is nil")
	}
	thresholds := map[string]*int{
		"threshold_critical": gate.ThresholdCritical,
		"threshold_high":     gate.ThresholdHigh,
		"threshold_medium":   gate.ThresholdMedium,
		"threshold_low":      gate.ThresholdLow,
		"threshold_none":     gate.ThresholdNone,
		"threshold_unknown":  gate.ThresholdUnknown,
	}
	for name, threshold := range thresholds {
		if threshold != nil && *threshold < 0 {
			return fmt.Errorf("%s cannot be negative: %d", name, *threshold)
		}
	}
	return nil
}

// ValidateHTTPConfig checks if the HTTP configurations have valid values.
func ValidateHTTPConfig(httpConfig *HTTPClient) error {
	if httpConfig == nil {
		return fmt.Errorf("HTTP configuration is nil")
	}
	if httpConfig.RetryCount < 0 || httpConfig.RetryCount > 20 {
		return fmt.Errorf("retry_count must be between 0 and 20: %d", httpConfig.RetryCount)
	}

	durations := map[string]time.Duration{
		"RetryMaxWaitTime": httpConfig.RetryMaxWaitTime,
		"RetryWaitTime":    httpConfig.RetryWaitTime,
		"Timeout":          httpConfig.Timeout,
	}
	for name, duration := range durations {
		if err := validateDuration(duration, name, 100*time.Second); err != nil {
			return err
		}
	}

	if err := validateProxy(&httpConfig.Proxy); err != nil {
		return err
	}

	return nil
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %s: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%s duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}

// validateProxy checks if the given Proxy settings are valid.
func validateProxy(proxy *Proxy) error {
	if proxy == nil {
		return fmt.Errorf("proxy configuration is nil")
	}

	// If host or port is not set, skip further validation
	if proxy.Host == "" || proxy.Port == 0 {
		return nil
	}

	if err := validateHost(&proxy.Host); err != nil {
		return err
	}

	if err := validatePort(proxy.Port); err != nil {
		return err
	}

	return nil
}

// validateHost checks if the host part of the proxy configuration is valid.
// It ensures the host includes a scheme; adds "http" if missing.
func validateHost(host *string) error {
	if host == nil {
		return fmt.Errorf("host string pointer is nil")
	}

	if !strings.Contains(*host, "://") {
		*host = "http://" + *host
	}
	*host = strings.TrimRight(*host, "/")

	_, err := url.Parse(*host)
	if err != nil {
		return fmt.Errorf("invalid host URL: %w", err)
	}

	return nil
}

// validatePort checks if the port part of the proxy configuration is valid.
func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// validateURL accepts an empty value or an absolute http(s) URL.
func validateURL(raw, name string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https: %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", name, raw)
	}
	return nil
}

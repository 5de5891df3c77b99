// Package metrics counts rule engine and security gate events with Prometheus.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "triage"

// Metrics implements the recorders of the rule engine and the security gate.
type Metrics struct {
	registry     *prometheus.Registry
	ruleMatches  *prometheus.CounterVec
	ruleFailures *prometheus.CounterVec
	gateChanges  *prometheus.CounterVec
}

// New creates the counters and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ruleMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_matches_total",
			Help:      "Observations changed by a rule",
		}, []string{"type", "scope"}),
		ruleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_evaluation_errors_total",
			Help:      "Rule evaluations that failed",
		}, []string{"type"}),
		gateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_gate_changes_total",
			Help:      "Security gate results that changed, by new result",
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.ruleMatches, m.ruleFailures, m.gateChanges)
	return m
}

// Registry exposes the registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RuleMatched(ruleType string, scope string) {
	m.ruleMatches.WithLabelValues(ruleType, scope).Inc()
}

func (m *Metrics) RuleFailed(ruleType string) {
	m.ruleFailures.WithLabelValues(ruleType).Inc()
}

func (m *Metrics) GateChanged(passed *bool) {
	result := "disabled"
	if passed != nil {
		result = "failed"
		if *passed {
			result = "passed"
		}
	}
	m.gateChanges.WithLabelValues(result).Inc()
}

// WriteSummary prints every non-zero counter as "name{labels} value", sorted.
func (m *Metrics) WriteSummary(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	var lines []string
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			value := metric.GetCounter().GetValue()
			if value == 0 {
				continue
			}
			var labels []string
			for _, label := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", label.GetName(), label.GetValue()))
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g", family.GetName(), strings.Join(labels, ","), value))
		}
	}
	sort.Strings(lines)

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

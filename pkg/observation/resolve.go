package observation

// Layer is one input of a precedence chain. Set reports whether the layer holds a value.
type Layer[T any] struct {
	Name  string
	Value T
	Set   bool
}

// Resolve walks layers top to bottom and returns the first set value together with the
// name of the layer it came from. If no layer is set, fallback and "default" are returned.
func Resolve[T any](fallback T, layers ...Layer[T]) (T, string) {
	for _, l := range layers {
		if l.Set {
			return l.Value, l.Name
		}
	}
	return fallback, "default"
}

func text(name, value string) Layer[string] {
	return Layer[string]{Name: name, Value: value, Set: value != ""}
}

func number(name string, value *int) Layer[*int] {
	return Layer[*int]{Name: name, Value: value, Set: value != nil}
}

func cvss(name string, score *float64) Layer[string] {
	if score == nil {
		return Layer[string]{Name: name}
	}
	return Layer[string]{Name: name, Value: CVSSSeverity(score), Set: true}
}

// CurrentSeverity resolves the effective severity:
// assessment, rule, policy rule, parser (unless Unknown), CVSS v4, CVSS v3, Unknown.
func CurrentSeverity(o *Observation) string {
	parser := text("parser", o.ParserSeverity)
	if o.ParserSeverity == SeverityUnknown {
		parser.Set = false
	}
	severity, _ := Resolve(SeverityUnknown,
		text("assessment", o.AssessmentSeverity),
		text("rule", o.RuleSeverity),
		text("rule_rego", o.RuleRegoSeverity),
		parser,
		cvss("cvss4", o.CVSS4Score),
		cvss("cvss3", o.CVSS3Score),
	)
	return severity
}

// CVSSSeverity buckets a CVSS base score. A nil score is Unknown.
func CVSSSeverity(score *float64) string {
	switch {
	case score == nil:
		return SeverityUnknown
	case *score >= 9:
		return SeverityCritical
	case *score >= 7:
		return SeverityHigh
	case *score >= 4:
		return SeverityMedium
	case *score >= 0.1:
		return SeverityLow
	default:
		return SeverityNone
	}
}

// CurrentStatus resolves the effective status. A parser status of Resolved always wins,
// a scanner that no longer reports the finding overrides every assessment.
func CurrentStatus(o *Observation) string {
	if o.ParserStatus == StatusResolved {
		return StatusResolved
	}
	status, _ := Resolve(StatusOpen,
		text("assessment", o.AssessmentStatus),
		text("rule", o.RuleStatus),
		text("rule_rego", o.RuleRegoStatus),
		text("vex", o.VEXStatus),
		text("parser", o.ParserStatus),
	)
	return status
}

// CurrentVEXJustification resolves the effective VEX justification, empty if no layer is set.
func CurrentVEXJustification(o *Observation) string {
	justification, _ := Resolve("",
		text("assessment", o.AssessmentVEXJustification),
		text("rule", o.RuleVEXJustification),
		text("rule_rego", o.RuleRegoVEXJustification),
		text("vex", o.VEXVEXJustification),
		text("parser", o.ParserVEXJustification),
	)
	return justification
}

// CurrentPriority resolves the effective priority, nil if no layer is set.
func CurrentPriority(o *Observation) *int {
	priority, _ := Resolve[*int](nil,
		number("assessment", o.AssessmentPriority),
		number("rule", o.RulePriority),
		number("rule_rego", o.RuleRegoPriority),
	)
	return clonePtr(priority)
}

// NumericalSeverity maps a severity to its sort order, unrecognised values sort as Unknown.
func NumericalSeverity(severity string) int {
	if n, ok := NumericalSeverities[severity]; ok {
		return n
	}
	return NumericalSeverities[SeverityUnknown]
}

// ResolveAll recomputes every current_* field and the numerical severity.
func ResolveAll(o *Observation) {
	o.CurrentSeverity = CurrentSeverity(o)
	o.NumericalSeverity = NumericalSeverity(o.CurrentSeverity)
	o.CurrentStatus = CurrentStatus(o)
	o.CurrentVEXJustification = CurrentVEXJustification(o)
	o.CurrentPriority = CurrentPriority(o)
}

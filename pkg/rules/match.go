package rules

import (
	"regexp"
	"strings"

	"github.com/scan-io-git/triage/pkg/observation"
)

type patternField struct {
	name    string
	pattern func(r *Rule) string
	value   func(o *observation.Observation) string
}

var patternFields = []patternField{
	{"title", func(r *Rule) string { return r.Title }, func(o *observation.Observation) string { return o.Title }},
	{"description", func(r *Rule) string { return r.DescriptionObservation }, func(o *observation.Observation) string { return o.Description }},
	{"component name version", func(r *Rule) string { return r.OriginComponentNameVersion }, func(o *observation.Observation) string { return o.OriginComponentNameVersion }},
	{"component purl", func(r *Rule) string { return r.OriginComponentPURL }, func(o *observation.Observation) string { return o.OriginComponentPURL }},
	{"docker image name tag", func(r *Rule) string { return r.OriginDockerImageNameTag }, func(o *observation.Observation) string { return o.OriginDockerImageNameTag }},
	{"endpoint url", func(r *Rule) string { return r.OriginEndpointURL }, func(o *observation.Observation) string { return o.OriginEndpointURL }},
	{"service name", func(r *Rule) string { return r.OriginServiceName }, func(o *observation.Observation) string { return o.OriginServiceName }},
	{"source file", func(r *Rule) string { return r.OriginSourceFile }, func(o *observation.Observation) string { return o.OriginSourceFile }},
	{"cloud qualified resource", func(r *Rule) string { return r.OriginCloudQualifiedResource }, func(o *observation.Observation) string { return o.OriginCloudQualifiedResource }},
	{"kubernetes qualified resource", func(r *Rule) string { return r.OriginKubernetesQualifiedResource }, func(o *observation.Observation) string { return o.OriginKubernetesQualifiedResource }},
}

type compiledPattern struct {
	re    *regexp.Regexp
	value func(o *observation.Observation) string
}

// compilePatterns compiles the non-empty field patterns of r. Patterns are case-insensitive
// and anchored at the start of the value only.
func compilePatterns(r *Rule) ([]compiledPattern, error) {
	var compiled []compiledPattern
	for _, f := range patternFields {
		p := f.pattern(r)
		if p == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)^(?:` + p + `)`)
		if err != nil {
			return nil, &PatternError{Rule: r.Name, Field: f.name, Pattern: p, Err: err}
		}
		compiled = append(compiled, compiledPattern{re: re, value: f.value})
	}
	return compiled, nil
}

// matchFields reports whether o is in the parser and scanner scope of r and every
// compiled pattern matches its field. A pattern never matches an empty value.
func matchFields(r *Rule, patterns []compiledPattern, o *observation.Observation) bool {
	if r.Parser != "" && o.Parser != r.Parser {
		return false
	}
	if r.ScannerPrefix != "" && !strings.HasPrefix(strings.ToLower(o.Scanner), strings.ToLower(r.ScannerPrefix)) {
		return false
	}
	for _, p := range patterns {
		v := p.value(o)
		if v == "" || !p.re.MatchString(v) {
			return false
		}
	}
	return true
}

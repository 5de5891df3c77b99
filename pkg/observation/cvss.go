package observation

import (
	"strings"

	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"
	gocvss40 "github.com/pandatix/go-cvss/40"
)

// cvss3BaseScore returns the base score of a CVSS v3.0 or v3.1 vector.
func cvss3BaseScore(vector string) (float64, bool) {
	switch {
	case strings.HasPrefix(vector, "CVSS:3.1/"):
		c, err := gocvss31.ParseVector(vector)
		if err != nil {
			return 0, false
		}
		return c.BaseScore(), true
	case strings.HasPrefix(vector, "CVSS:3.0/"):
		c, err := gocvss30.ParseVector(vector)
		if err != nil {
			return 0, false
		}
		return c.BaseScore(), true
	default:
		return 0, false
	}
}

func cvss4BaseScore(vector string) (float64, bool) {
	c, err := gocvss40.ParseVector(vector)
	if err != nil {
		return 0, false
	}
	return c.Score(), true
}

// normalizeCVSS recomputes the scores from the vectors. An unparsable vector keeps the
// score delivered by the parser.
func normalizeCVSS(o *Observation) {
	o.CVSS3Vector = strings.TrimSpace(o.CVSS3Vector)
	o.CVSS4Vector = strings.TrimSpace(o.CVSS4Vector)

	if o.CVSS3Vector != "" {
		if score, ok := cvss3BaseScore(o.CVSS3Vector); ok {
			o.CVSS3Score = &score
		}
	}
	if o.CVSS4Vector != "" {
		if score, ok := cvss4BaseScore(o.CVSS4Vector); ok {
			o.CVSS4Score = &score
		}
	}
}

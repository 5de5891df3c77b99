package observation

import (
	"regexp"
	"strconv"
	"strings"
)

// versionPattern finds version-looking tokens: optional epoch, optional "v", digits and dots.
const versionPattern = `(?:^|\s)(?:\d+:)?v?(\d+[.\d]*)`

var (
	versionRegex = regexp.MustCompile(versionPattern)
	epochRegex   = regexp.MustCompile(`:\d+`)
)

// normalizeFix sets FixAvailable and UpdateImpactScore. Both stay nil if the
// observation has no component.
func normalizeFix(o *Observation) {
	o.FixAvailable = nil
	o.UpdateImpactScore = nil

	if o.OriginComponentName == "" {
		return
	}

	recommendationMatches := findVersions(versionRegex, o.Recommendation)
	componentMatches := findVersions(versionRegex, o.OriginComponentVersion)

	fixAvailable := len(recommendationMatches) > 0
	o.FixAvailable = &fixAvailable

	if len(recommendationMatches) == 0 || len(componentMatches) == 0 {
		return
	}

	var recommended string
	if len(recommendationMatches) == 1 {
		recommended = recommendationMatches[0]
	} else {
		// the recommendation covers several components, look for the one of this observation
		name := regexp.QuoteMeta(epochRegex.ReplaceAllString(o.OriginComponentName, ""))
		upgrade, err := regexp.Compile(`(?:Upgrade (?:\S+:)?` + name + ` to version)` + versionPattern)
		if err != nil {
			return
		}
		if matches := findVersions(upgrade, o.Recommendation); len(matches) > 0 {
			recommended = matches[0]
		}
	}
	if recommended == "" {
		return
	}

	score := UpdateImpactScore(parseVersion(componentMatches[0]), parseVersion(recommended))
	o.UpdateImpactScore = &score
}

func findVersions(re *regexp.Regexp, s string) []string {
	if s == "" {
		return nil
	}
	var versions []string
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		versions = append(versions, m[1])
	}
	return versions
}

// parseVersion reads the first three dot separated parts as integers, missing parts are 0.
func parseVersion(version string) [3]int {
	var parsed [3]int
	parts := strings.SplitN(version, ".", 4)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	i := 0
	for _, part := range parts {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			break
		}
		parsed[i] = n
		i++
	}
	return parsed
}

// UpdateImpactScore estimates how disruptive an upgrade is: 100 per major
// version, 10 per minor version, 1 per patch version. Downgrades count as 0.
func UpdateImpactScore(current, recommended [3]int) int {
	majorDiff := max(recommended[0]-current[0], 0)
	minorDiff := max(recommended[1]-current[1], 0)
	patchDiff := max(recommended[2]-current[2], 0)

	switch {
	case majorDiff > 0:
		return majorDiff * 100
	case minorDiff > 0:
		return minorDiff * 10
	default:
		return patchDiff
	}
}

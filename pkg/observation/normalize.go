package observation

import (
	"net/url"
	"strconv"
	"strings"

	packageurl "github.com/package-url/packageurl-go"
)

// NullReplacement replaces NUL characters in descriptions, storage backends reject them.
const NullReplacement = "REDACTED_NULL"

const (
	cloudPartLength            = 122
	kubernetesClusterLength    = 53
	kubernetesNamespaceLength  = 53
	kubernetesResourceLength   = 143
	qualifiedResourceSeparator = " / "
	truncationMarker           = "..."
)

// Normalize brings an observation into its canonical shape and resolves all current_*
// values. It never fails: malformed purls and URLs degrade to empty values.
// Normalize is idempotent.
func Normalize(o *Observation) {
	normalizeComponent(o)
	normalizeDocker(o)
	normalizeEndpoint(o)
	normalizeCloud(o)
	normalizeKubernetes(o)

	normalizeCVSS(o)
	normalizeParserSeverity(o)
	ResolveAll(o)

	normalizeDescription(o)
	normalizeFix(o)
}

// normalizeParserSeverity maps a severity the parser reported outside the known set to Unknown.
func normalizeParserSeverity(o *Observation) {
	if o.ParserSeverity == "" {
		return
	}
	if _, ok := NumericalSeverities[o.ParserSeverity]; !ok {
		o.ParserSeverity = SeverityUnknown
	}
}

func normalizeComponent(o *Observation) {
	if o.OriginComponentNameVersion == "" {
		switch {
		case o.OriginComponentName != "" && o.OriginComponentVersion != "":
			o.OriginComponentNameVersion = o.OriginComponentName + ":" + o.OriginComponentVersion
		case o.OriginComponentName != "":
			o.OriginComponentNameVersion = o.OriginComponentName
		}
	} else {
		parts := strings.Split(o.OriginComponentNameVersion, ":")
		switch len(parts) {
		case 3:
			// either name:version:extra or group:name:version
			if parts[0] == o.OriginComponentName {
				o.OriginComponentVersion = parts[1] + ":" + parts[2]
			} else {
				o.OriginComponentName = parts[0] + ":" + parts[1]
				o.OriginComponentVersion = parts[2]
			}
		case 2:
			o.OriginComponentName = parts[0]
			o.OriginComponentVersion = parts[1]
		case 1:
			o.OriginComponentName = o.OriginComponentNameVersion
			o.OriginComponentVersion = ""
		}
	}

	o.OriginComponentPURLType = ""
	if o.OriginComponentPURL != "" {
		purl, err := packageurl.FromString(o.OriginComponentPURL)
		if err != nil {
			o.OriginComponentPURL = ""
		} else {
			o.OriginComponentPURLType = purl.Type
		}
	}
}

func normalizeDocker(o *Observation) {
	if o.OriginDockerImageNameTag == "" {
		if o.OriginDockerImageName != "" && o.OriginDockerImageTag == "" {
			if parts := strings.Split(o.OriginDockerImageName, ":"); len(parts) == 2 {
				o.OriginDockerImageName = parts[0]
				o.OriginDockerImageTag = parts[1]
			}
		}
		if o.OriginDockerImageName != "" && o.OriginDockerImageTag != "" {
			o.OriginDockerImageNameTag = o.OriginDockerImageName + ":" + o.OriginDockerImageTag
		} else {
			o.OriginDockerImageNameTag = o.OriginDockerImageName
		}
	} else {
		if parts := strings.Split(o.OriginDockerImageNameTag, ":"); len(parts) == 2 {
			o.OriginDockerImageName = parts[0]
			o.OriginDockerImageTag = parts[1]
		} else {
			o.OriginDockerImageName = o.OriginDockerImageNameTag
		}
	}

	o.OriginDockerImageNameTagShort = ""
	if o.OriginDockerImageNameTag != "" {
		parts := strings.Split(o.OriginDockerImageNameTag, "/")
		o.OriginDockerImageNameTagShort = strings.TrimSpace(parts[len(parts)-1])
	}
}

func normalizeEndpoint(o *Observation) {
	o.OriginEndpointScheme = ""
	o.OriginEndpointHostname = ""
	o.OriginEndpointPort = nil
	o.OriginEndpointPath = ""
	o.OriginEndpointParams = ""
	o.OriginEndpointQuery = ""
	o.OriginEndpointFragment = ""

	if o.OriginEndpointURL == "" {
		return
	}
	u, err := url.Parse(o.OriginEndpointURL)
	if err != nil {
		return
	}

	o.OriginEndpointScheme = u.Scheme
	o.OriginEndpointHostname = u.Hostname()
	if port, err := strconv.Atoi(u.Port()); err == nil {
		o.OriginEndpointPort = &port
	}
	o.OriginEndpointPath, o.OriginEndpointParams = splitParams(u.EscapedPath())
	o.OriginEndpointQuery = u.RawQuery
	o.OriginEndpointFragment = u.Fragment
}

// splitParams separates the ";params" of the last path segment.
func splitParams(path string) (string, string) {
	lastSegment := strings.LastIndex(path, "/")
	if i := strings.Index(path[lastSegment+1:], ";"); i >= 0 {
		i += lastSegment + 1
		return path[:i], path[i+1:]
	}
	return path, ""
}

func normalizeCloud(o *Observation) {
	o.OriginCloudQualifiedResource = qualifiedResource(
		truncate(o.OriginCloudAccountSubscriptionProject, cloudPartLength),
		truncate(o.OriginCloudResource, cloudPartLength),
	)
}

func normalizeKubernetes(o *Observation) {
	o.OriginKubernetesQualifiedResource = qualifiedResource(
		truncate(o.OriginKubernetesCluster, kubernetesClusterLength),
		truncate(o.OriginKubernetesNamespace, kubernetesNamespaceLength),
		truncate(o.OriginKubernetesResourceName, kubernetesResourceLength),
	)
}

func qualifiedResource(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, qualifiedResourceSeparator)
}

// truncate shortens s to at most length runes, the last three being the truncation marker.
func truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length-len(truncationMarker)]) + truncationMarker
}

func normalizeDescription(o *Observation) {
	o.Description = strings.TrimRight(o.Description, "\n")
	o.Description = strings.ReplaceAll(o.Description, "\x00", NullReplacement)
}

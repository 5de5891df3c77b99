package observation

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// IdentityHash fingerprints an observation from its title and origin. Importers use it
// to recognise the same finding across uploads.
func IdentityHash(o *Observation) string {
	folded := cases.Fold().String(identityString(o))
	sum := sha256.Sum256([]byte(strings.TrimSpace(folded)))
	return hex.EncodeToString(sum[:])
}

func identityString(o *Observation) string {
	var b strings.Builder
	b.WriteString(o.Title)

	if o.OriginComponentNameVersion != "" {
		b.WriteString(o.OriginComponentNameVersion)
	} else {
		b.WriteString(o.OriginComponentName)
		b.WriteString(o.OriginComponentVersion)
	}

	if o.OriginDockerImageName != "" {
		b.WriteString(o.OriginDockerImageName)
	} else {
		b.WriteString(o.OriginDockerImageNameTag)
	}

	b.WriteString(o.OriginEndpointURL)
	b.WriteString(o.OriginServiceName)

	b.WriteString(o.OriginSourceFile)
	writeLine(&b, o.OriginSourceLineStart)
	writeLine(&b, o.OriginSourceLineEnd)
	b.WriteString(o.OriginSourceFileLink)

	b.WriteString(o.OriginCloudProvider)
	b.WriteString(o.OriginCloudAccountSubscriptionProject)
	b.WriteString(o.OriginCloudResource)

	b.WriteString(o.OriginKubernetesCluster)
	b.WriteString(o.OriginKubernetesNamespace)
	b.WriteString(o.OriginKubernetesResourceType)
	b.WriteString(o.OriginKubernetesResourceName)

	return b.String()
}

func writeLine(b *strings.Builder, line *int) {
	if line != nil && *line != 0 {
		b.WriteString(strconv.Itoa(*line))
	}
}

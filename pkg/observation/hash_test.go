package observation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityHash_Known(t *testing.T) {
	assert.Equal(t, "2e1cfa82b035c26cbbbdae632cea070514eb8b773f616aaeaf668e2f0be8f10d", IdentityHash(&Observation{Title: "empty"}))

	o := &Observation{Title: "Title_1", OriginComponentName: "Component", OriginComponentVersion: "1.0.0"}
	Normalize(o)
	assert.Equal(t, "e8f357e9cf0dfdf0b654002f4931bdb39ff269d971c0a328461cb3636955f946", IdentityHash(o))
}

func TestIdentityHash_IgnoresNonIdentityFields(t *testing.T) {
	a := &Observation{Title: "t", OriginEndpointURL: "https://example.com", Description: "one", ParserSeverity: SeverityHigh}
	b := &Observation{Title: "t", OriginEndpointURL: "https://example.com", Description: "two", AssessmentStatus: StatusFalsePositive, Recommendation: "x"}
	assert.Equal(t, IdentityHash(a), IdentityHash(b))
}

func TestIdentityHash_EveryFieldContributes(t *testing.T) {
	base := Observation{Title: "t"}
	baseHash := IdentityHash(&base)

	edits := map[string]func(o *Observation){
		"title":                func(o *Observation) { o.Title = "u" },
		"component":            func(o *Observation) { o.OriginComponentNameVersion = "c:1" },
		"component name":       func(o *Observation) { o.OriginComponentName = "c" },
		"component version":    func(o *Observation) { o.OriginComponentVersion = "1" },
		"docker image":         func(o *Observation) { o.OriginDockerImageName = "img" },
		"docker image tag":     func(o *Observation) { o.OriginDockerImageNameTag = "img:1" },
		"endpoint":             func(o *Observation) { o.OriginEndpointURL = "https://e" },
		"service":              func(o *Observation) { o.OriginServiceName = "svc" },
		"source file":          func(o *Observation) { o.OriginSourceFile = "main.go" },
		"line start":           func(o *Observation) { o.OriginSourceLineStart = intPtr(5) },
		"line end":             func(o *Observation) { o.OriginSourceLineEnd = intPtr(7) },
		"source link":          func(o *Observation) { o.OriginSourceFileLink = "https://l" },
		"cloud provider":       func(o *Observation) { o.OriginCloudProvider = "aws" },
		"cloud account":        func(o *Observation) { o.OriginCloudAccountSubscriptionProject = "acc" },
		"cloud resource":       func(o *Observation) { o.OriginCloudResource = "bucket" },
		"kubernetes cluster":   func(o *Observation) { o.OriginKubernetesCluster = "k" },
		"kubernetes namespace": func(o *Observation) { o.OriginKubernetesNamespace = "ns" },
		"kubernetes type":      func(o *Observation) { o.OriginKubernetesResourceType = "Pod" },
		"kubernetes name":      func(o *Observation) { o.OriginKubernetesResourceName = "p" },
	}

	for name, edit := range edits {
		t.Run(name, func(t *testing.T) {
			o := base
			edit(&o)
			assert.NotEqual(t, baseHash, IdentityHash(&o))
		})
	}
}

func TestIdentityHash_CaseInsensitive(t *testing.T) {
	assert.Equal(t,
		IdentityHash(&Observation{Title: "SQL Injection", OriginSourceFile: "Main.go"}),
		IdentityHash(&Observation{Title: "sql injection", OriginSourceFile: "main.go"}),
	)
}

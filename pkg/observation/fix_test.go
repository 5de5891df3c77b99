package observation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFix(t *testing.T) {
	tests := []struct {
		name      string
		obs       Observation
		wantFix   *bool
		wantScore *int
	}{
		{
			name:    "no component",
			obs:     Observation{Recommendation: "Upgrade to version 2.0.0"},
			wantFix: nil,
		},
		{
			name:      "major upgrade",
			obs:       Observation{OriginComponentName: "c", OriginComponentVersion: "1.0.0", Recommendation: "Upgrade to version 2.0.0"},
			wantFix:   boolPtr(true),
			wantScore: intPtr(100),
		},
		{
			name:      "minor upgrade",
			obs:       Observation{OriginComponentName: "c", OriginComponentVersion: "1.0.0", Recommendation: "Upgrade to version 1.3.0"},
			wantFix:   boolPtr(true),
			wantScore: intPtr(30),
		},
		{
			name:      "patch upgrade",
			obs:       Observation{OriginComponentName: "c", OriginComponentVersion: "1.0.0", Recommendation: "Upgrade to version 1.0.5"},
			wantFix:   boolPtr(true),
			wantScore: intPtr(5),
		},
		{
			name:      "downgrade counts nothing",
			obs:       Observation{OriginComponentName: "c", OriginComponentVersion: "2.1.0", Recommendation: "Upgrade to version 2.0.0"},
			wantFix:   boolPtr(true),
			wantScore: intPtr(0),
		},
		{
			name:      "epoch and v prefix",
			obs:       Observation{OriginComponentName: "c", OriginComponentVersion: "1:v1.2", Recommendation: "Use 1:v3"},
			wantFix:   boolPtr(true),
			wantScore: intPtr(200),
		},
		{
			name:    "no component version",
			obs:     Observation{OriginComponentName: "c", Recommendation: "Upgrade to version 2.0.0"},
			wantFix: boolPtr(true),
		},
		{
			name:    "no version in recommendation",
			obs:     Observation{OriginComponentName: "c", OriginComponentVersion: "1.0.0", Recommendation: "Replace the library"},
			wantFix: boolPtr(false),
		},
		{
			name: "several components in recommendation",
			obs: Observation{
				OriginComponentName:    "foo",
				OriginComponentVersion: "2.0.0",
				Recommendation:         "Upgrade bar to version 5.0.0\nUpgrade foo to version 2.1.0",
			},
			wantFix:   boolPtr(true),
			wantScore: intPtr(10),
		},
		{
			name: "several components without matching phrase",
			obs: Observation{
				OriginComponentName:    "foo",
				OriginComponentVersion: "2.0.0",
				Recommendation:         "Upgrade bar to version 5.0.0\nUpgrade baz to version 2.1.0",
			},
			wantFix: boolPtr(true),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.obs
			normalizeFix(&o)
			if tt.wantFix == nil {
				assert.Nil(t, o.FixAvailable)
			} else {
				require.NotNil(t, o.FixAvailable)
				assert.Equal(t, *tt.wantFix, *o.FixAvailable)
			}
			if tt.wantScore == nil {
				assert.Nil(t, o.UpdateImpactScore)
			} else {
				require.NotNil(t, o.UpdateImpactScore)
				assert.Equal(t, *tt.wantScore, *o.UpdateImpactScore)
			}
		})
	}
}

func TestParseVersion(t *testing.T) {
	assert.Equal(t, [3]int{1, 2, 3}, parseVersion("1.2.3.4"))
	assert.Equal(t, [3]int{1, 0, 0}, parseVersion("1"))
	assert.Equal(t, [3]int{1, 2, 0}, parseVersion("1.2."))
}

func boolPtr(b bool) *bool { return &b }

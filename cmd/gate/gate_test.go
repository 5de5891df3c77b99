package gate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scan-io-git/triage/pkg/product"
)

func TestResults(t *testing.T) {
	passed, failed := true, false
	results := toResults([]*product.Product{
		{ID: 1, Name: "api", SecurityGatePassed: &passed},
		{ID: 2, Name: "web", SecurityGatePassed: &failed},
		{ID: 3, Name: "docs"},
	})

	assert.Equal(t, []string{"web"}, failedProducts(results))

	var out bytes.Buffer
	printResults(&out, results)
	assert.Equal(t, "api: passed\nweb: failed\ndocs: disabled\n", out.String())
}

func TestValidateGateArgs(t *testing.T) {
	assert.EqualError(t, validateGateArgs(&RunOptionsGate{}, nil), "the 'dataset' flag must be specified")
	assert.EqualError(t, validateGateArgs(&RunOptionsGate{}, []string{"a"}), "unexpected positional arguments: [a]")
}

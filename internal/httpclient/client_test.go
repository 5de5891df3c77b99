package httpclient

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"

	"github.com/scan-io-git/triage/internal/config"
)

func TestApplyHTTPClientConfig_Defaults(t *testing.T) {
	cfg := applyHTTPClientConfig(nil)
	assert.Equal(t, config.DefaultRestyConfig().RetryCount, cfg.RetryCount)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.False(t, cfg.TLSClientConfig.InsecureSkipVerify)
	assert.Empty(t, cfg.Proxy)
}

func TestApplyHTTPClientConfig(t *testing.T) {
	no := false
	cfg := applyHTTPClientConfig(&config.HTTPClient{
		RetryCount:      2,
		Timeout:         5 * time.Second,
		TLSClientConfig: config.TLSClientConfig{Verify: &no},
		Proxy:           config.Proxy{Host: "http://proxy", Port: 3128},
	})
	assert.Equal(t, 2, cfg.RetryCount)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, config.DefaultRestyConfig().RetryWaitTime, cfg.RetryWaitTime)
	assert.True(t, cfg.TLSClientConfig.InsecureSkipVerify)
	assert.Equal(t, "http://proxy:3128", cfg.Proxy)
}

func TestInitializeRestyClient(t *testing.T) {
	client := InitializeRestyClient(hclog.NewNullLogger(), &config.Config{HTTPClient: config.HTTPClient{RetryCount: 1}})
	assert.Equal(t, 1, client.RetryCount)
	assert.Equal(t, 30*time.Second, client.GetClient().Timeout)
}

package httpclient

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"

	"github.com/explainify/explainify/pkg/shared/config"
)

func TestApplyHttpClientConfigDefaults(t *testing.T) {
	got := ApplyHttpClientConfig(nil)
	assert.Equal(t, config.DefaultRestyConfig().RetryCount, got.RetryCount)
	assert.Equal(t, config.DefaultRestyConfig().Timeout, got.Timeout)
}

func TestApplyHttpClientConfigOverrides(t *testing.T) {
	verify := false
	got := ApplyHttpClientConfig(&config.HTTPClient{
		RetryCount:      1,
		Timeout:         5 * time.Second,
		TLSClientConfig: config.TLSClientConfig{Verify: &verify},
		Proxy:           config.Proxy{Host: "http://proxy", Port: 3128},
	})

	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, 5*time.Second, got.Timeout)
	assert.Equal(t, config.DefaultRestyConfig().RetryWaitTime, got.RetryWaitTime)
	assert.True(t, got.TLSClientConfig.InsecureSkipVerify)
	assert.Equal(t, "http://proxy:3128", got.Proxy)
}

func TestInitializeRestyClient(t *testing.T) {
	client := InitializeRestyClient(hclog.NewNullLogger(), config.Default())
	assert.Equal(t, config.DefaultRestyConfig().RetryCount, client.RetryCount)
}

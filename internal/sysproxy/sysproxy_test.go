package sysproxy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"proxyswitch/internal/sysproxy"
)

func TestConfigString(t *testing.T) {
	assert.Equal(t, "direct", sysproxy.Direct().String())
	assert.Equal(t, "http://127.0.0.1:8080", sysproxy.Fixed("http", "127.0.0.1", 8080).String())
	assert.Equal(t, "socks5://127.0.0.1:9050", sysproxy.Fixed("socks5", "127.0.0.1", 9050).String())
}

func TestConfigComparable(t *testing.T) {
	// Reconciliation relies on plain equality to detect no-op applies.
	assert.Equal(t, sysproxy.Fixed("http", "h", 1), sysproxy.Fixed("http", "h", 1))
	assert.NotEqual(t, sysproxy.Fixed("http", "h", 1), sysproxy.Fixed("socks5", "h", 1))
	assert.NotEqual(t, sysproxy.Direct(), sysproxy.Fixed("http", "h", 1))
}

package clickhouse

import (
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(WithAuth("stocksense", "", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host is required")
}

func TestDriverOptions(t *testing.T) {
	cfg := defaultClientConfig()
	for _, opt := range []ClientOption{
		WithAddr("ch.local", 0),
		WithAuth("stocksense", "", "pw"),
		WithPool(0, 2),
		WithTimeouts(0, 30*time.Second, time.Minute),
		WithHTTP(true),
		WithAsyncInsert(true),
	} {
		opt(cfg)
	}
	require.NoError(t, cfg.validate())
	assert.Equal(t, 10, cfg.MaxOpenConns)
	assert.Equal(t, 2, cfg.MaxIdleConns)

	o := cfg.driverOptions()
	assert.Equal(t, []string{"ch.local:9000"}, o.Addr)
	assert.Equal(t, clickhouse.HTTP, o.Protocol)
	assert.Equal(t, "stocksense", o.Auth.Database)
	assert.Equal(t, "default", o.Auth.Username)
	assert.Equal(t, 5*time.Second, o.DialTimeout)
	assert.Equal(t, 30*time.Second, o.ReadTimeout)
	assert.Equal(t, 60, o.Settings["max_execution_time"])
	assert.Equal(t, 1, o.Settings["async_insert"])
}

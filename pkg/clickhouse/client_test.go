package clickhouse

import (
	"context"
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	opts := Options(ClientConfig{
		Host:         "ch.local",
		Port:         8123,
		Database:     "bondpanel",
		User:         "reader",
		Password:     "pw",
		UseHTTP:      true,
		AsyncInsert:  true,
		WaitForAsync: true,
		MaxExecTime:  90 * time.Second,
		DialTimeout:  time.Second,
	})

	assert.Equal(t, []string{"ch.local:8123"}, opts.Addr)
	assert.Equal(t, ch.HTTP, opts.Protocol)
	assert.Equal(t, "bondpanel", opts.Auth.Database)
	assert.Equal(t, "reader", opts.Auth.Username)
	assert.Equal(t, 90, opts.Settings["max_execution_time"])
	assert.Equal(t, 1, opts.Settings["async_insert"])
	assert.Equal(t, 1, opts.Settings["wait_for_async_insert"])
	assert.Equal(t, time.Second, opts.DialTimeout)
}

func TestOptions_NativeWithoutAsync(t *testing.T) {
	opts := Options(ClientConfig{Host: "localhost", Port: 9000})
	assert.Equal(t, ch.Native, opts.Protocol)
	assert.NotContains(t, opts.Settings, "async_insert")
	assert.NotContains(t, opts.Settings, "max_execution_time")
}

func TestNewClient_RequiresHost(t *testing.T) {
	_, err := NewClient(context.Background())
	require.Error(t, err)
}

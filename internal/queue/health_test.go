package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHealthMonitor_StartsUnavailable(t *testing.T) {
	m := NewHealthMonitor("email-processing", time.Second, zap.NewNop())

	assert.False(t, m.IsAvailable())
	assert.Nil(t, m.Queue())
	assert.Nil(t, m.Client())
}

func TestHealthMonitor_ProbeSuccess(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	m := NewHealthMonitor("email-processing", time.Second, zap.NewNop())
	m.Probe(context.Background(), client)

	require.True(t, m.IsAvailable())
	require.NotNil(t, m.Queue())
	assert.Equal(t, "email-processing", m.Queue().Name())
	assert.Same(t, client, m.Client())
}

func TestHealthMonitor_ProbeFailure(t *testing.T) {
	// Nothing listens on this address; the probe must fail fast and leave
	// the monitor unavailable rather than erroring out.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { client.Close() })

	m := NewHealthMonitor("email-processing", 500*time.Millisecond, zap.NewNop())
	m.Probe(context.Background(), client)

	assert.False(t, m.IsAvailable())
	assert.Nil(t, m.Queue())
}

func TestHealthMonitor_ReportErrorFlipsAvailability(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	m := NewHealthMonitor("email-processing", time.Second, zap.NewNop())
	m.Probe(context.Background(), client)
	require.True(t, m.IsAvailable())

	m.ReportError(errors.New("connection reset by peer"))

	assert.False(t, m.IsAvailable())
	assert.Nil(t, m.Queue())
	assert.Nil(t, m.Client())

	// A later probe restores service.
	m.Probe(context.Background(), client)
	assert.True(t, m.IsAvailable())
}

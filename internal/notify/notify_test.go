// internal/notify/notify_test.go
package notify

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawcare-back/internal/config"
	"pawcare-back/internal/models"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestMemoryBus_FanOut(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())

	a, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, Event{HealthLogID: 7, Status: models.AnalysisCompleted}))
	assert.Equal(t, uint(7), receive(t, a).HealthLogID)
	assert.Equal(t, models.AnalysisCompleted, receive(t, b).Status)

	cancel()
	assert.Eventually(t, func() bool {
		_, ok := <-a
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryBus_FullSubscriberDoesNotBlock(t *testing.T) {
	bus := NewMemoryBus()
	ch, err := bus.Subscribe(t.Context())
	require.NoError(t, err)

	for i := 0; i < subscriberBuffer+10; i++ {
		require.NoError(t, bus.Publish(t.Context(), Event{HealthLogID: uint(i)}))
	}
	assert.Len(t, ch, subscriberBuffer)
}

// Runs against a live Redis when REDIS_TEST_ADDR (host:port) is set.
func TestRedisBus_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	bus, err := NewRedisBus(t.Context(), &config.RedisConfig{Host: host, Port: port, Channel: "healthlog:test"})
	require.NoError(t, err)
	defer bus.Close()

	ch, err := bus.Subscribe(t.Context())
	require.NoError(t, err)

	require.NoError(t, bus.Publish(t.Context(), Event{HealthLogID: 3, OwnerID: 1, Status: models.AnalysisFailed, Error: "boom"}))
	ev := receive(t, ch)
	assert.Equal(t, uint(3), ev.HealthLogID)
	assert.Equal(t, "boom", ev.Error)
}

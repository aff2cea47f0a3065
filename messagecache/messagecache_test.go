package messagecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/internal/clock"
)

func TestPutReportsNewVsSeen(t *testing.T) {
	c := New(10, time.Minute)

	require.True(t, c.Put("m1"), "first Put of m1 should report newly inserted")
	require.False(t, c.Put("m1"), "second Put of m1 should report already seen")
	require.True(t, c.Contains("m1"))
}

func TestCapacityEvictsOldestFirst(t *testing.T) {
	c := New(2, time.Minute)

	c.Put("a")
	c.Put("b")
	c.Put("c") // evicts "a"

	require.False(t, c.Contains("a"), "expected oldest entry a to be evicted once capacity exceeded")
	require.True(t, c.Contains("b"))
	require.True(t, c.Contains("c"))
	require.Equal(t, 2, c.Len())
}

func TestTTLExpiryAndReinstatement(t *testing.T) {
	mc := clock.NewMock()
	c := NewWithClock(10, 5*time.Second, mc)

	c.Put("m1")
	mc.Advance(6 * time.Second)

	require.False(t, c.Contains("m1"), "m1 should be expired after exceeding TTL")

	// Reinstating an expired-but-still-tracked entry reports "newly
	// inserted" again, since timecache-style fixed maps cannot do this.
	require.True(t, c.Put("m1"), "Put on an expired entry should report true (reinstated)")
	require.True(t, c.Contains("m1"))
}

func TestClearExpiredStopsAtFirstLiveEntry(t *testing.T) {
	mc := clock.NewMock()
	c := NewWithClock(10, 5*time.Second, mc)

	c.Put("old")
	mc.Advance(6 * time.Second)
	c.Put("new")

	removed := c.ClearExpired()
	require.Equal(t, 1, removed)
	require.False(t, c.Contains("old"))
	require.True(t, c.Contains("new"))
}

func TestHeartbeatClearsExpiredOnTick(t *testing.T) {
	mc := clock.NewMock()
	c := NewWithClock(10, time.Millisecond, mc)
	c.Put(core.MessageId("m1"))
	mc.Advance(2 * time.Millisecond)

	hb := NewHeartbeat(c, time.Millisecond, 0)
	defer hb.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hb.Poll() {
			break
		}
		time.Sleep(time.Millisecond)
	}

	require.False(t, c.Contains("m1"), "heartbeat tick should have cleared the expired entry")
	require.Equal(t, 0, c.Len(), "heartbeat tick should have removed the expired entry from the cache")
}

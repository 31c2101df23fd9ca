package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ping = "ping"

// waitRegistered returns once the hub delivers a direct message to c.
func waitRegistered(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	require.Eventually(t, func() bool {
		hub.SendToClient(c, []byte(ping))
		select {
		case <-c.Send:
			return true
		case <-time.After(10 * time.Millisecond):
			return false
		}
	}, time.Second, 20*time.Millisecond)
}

// next returns the first message that is not a registration ping.
func next(t *testing.T, c *Client) (string, bool) {
	t.Helper()
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				return "", false
			}
			if string(msg) == ping {
				continue
			}
			return string(msg), true
		case <-time.After(time.Second):
			t.Fatal("no message received")
			return "", false
		}
	}
}

func TestHub_BroadcastByTopic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	a := hub.NewClient(nil, "a", "product-1", nil)
	b := hub.NewClient(nil, "b", "product-2", nil)
	hub.RegisterClient(a)
	hub.RegisterClient(b)
	waitRegistered(t, hub, a)
	waitRegistered(t, hub, b)

	require.True(t, hub.Broadcast("product-1", []byte("bid")))
	msg, ok := next(t, a)
	require.True(t, ok)
	assert.Equal(t, "bid", msg)

	time.Sleep(50 * time.Millisecond)
	for len(b.Send) > 0 {
		assert.Equal(t, ping, string(<-b.Send), "client of another topic got a broadcast")
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	c := hub.NewClient(nil, "c", "product-1", nil)
	hub.RegisterClient(c)
	waitRegistered(t, hub, c)
	hub.UnregisterClient(c)

	_, ok := next(t, c)
	assert.False(t, ok)

	// a direct message to a dropped client is skipped
	assert.True(t, hub.SendToClient(c, []byte("late")))
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	c := hub.NewClient(nil, "c", "product-1", "identity")
	hub.RegisterClient(c)
	waitRegistered(t, hub, c)
	cancel()
	<-done

	_, ok := next(t, c)
	assert.False(t, ok)
	assert.Equal(t, "identity", c.Identity)
}

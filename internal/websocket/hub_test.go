package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"restaurant-booking-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_SendReachesEveryDeviceOfTheUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	alice, bob := uuid.New(), uuid.New()
	phone := &Client{Hub: hub, UserID: alice, Send: make(chan []byte, 1)}
	laptop := &Client{Hub: hub, UserID: alice, Send: make(chan []byte, 1)}
	other := &Client{Hub: hub, UserID: bob, Send: make(chan []byte, 1)}
	hub.register <- phone
	hub.register <- laptop
	hub.register <- other

	require.Eventually(t, func() bool { return hub.Connected(alice) && hub.Connected(bob) }, time.Second, 5*time.Millisecond)

	hub.Send(alice, Message{Type: "booking.created", Data: map[string]string{"booking_reference": "ABC1234"}})

	for _, c := range []*Client{phone, laptop} {
		select {
		case raw := <-c.Send:
			var got Message
			require.NoError(t, json.Unmarshal(raw, &got))
			assert.Equal(t, "booking.created", got.Type)
		case <-time.After(time.Second):
			t.Fatal("frame not delivered")
		}
	}
	assert.Empty(t, other.Send)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	user := uuid.New()
	c := &Client{Hub: hub, UserID: user, Send: make(chan []byte, 1)}
	hub.register <- c
	hub.unregister <- c

	require.Eventually(t, func() bool { return !hub.Connected(user) }, time.Second, 5*time.Millisecond)
	_, open := <-c.Send
	assert.False(t, open)
}

func TestHub_SendWhileUnregistering(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	user := uuid.New()
	for round := 0; round < 50; round++ {
		c := &Client{Hub: hub, UserID: user, Send: make(chan []byte, 64)}
		hub.register <- c
		require.Eventually(t, func() bool { return hub.Connected(user) }, time.Second, time.Millisecond)

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					hub.Send(user, Message{Type: "booking.updated"})
				}
			}()
		}
		hub.unregister <- c
		wg.Wait()

		require.Eventually(t, func() bool { return !hub.Connected(user) }, time.Second, time.Millisecond)
	}
}

func TestHub_FullBufferDropsClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	user := uuid.New()
	c := &Client{Hub: hub, UserID: user, Send: make(chan []byte, 1)}
	hub.register <- c
	require.Eventually(t, func() bool { return hub.Connected(user) }, time.Second, time.Millisecond)

	hub.Send(user, Message{Type: "first"})
	hub.Send(user, Message{Type: "second"})

	assert.False(t, hub.Connected(user))
	<-c.Send
	_, open := <-c.Send
	assert.False(t, open)

	// The socket's own unregister afterwards is a no-op.
	hub.unregister <- c
}

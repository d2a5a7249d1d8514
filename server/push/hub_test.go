package push

import (
	"testing"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
)

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}

	hub.Register(1, conn1)
	hub.Register(1, conn2)
	require.Equal(t, 2, hub.SubscriberCount(1))
	require.Equal(t, 0, hub.SubscriberCount(2))

	hub.Unregister(1, conn1)
	require.Equal(t, 1, hub.SubscriberCount(1))

	hub.Unregister(1, conn2)
	require.Equal(t, 0, hub.SubscriberCount(1))
}

func TestHubUnregisterUnknownIsNoop(t *testing.T) {
	hub := NewHub()
	hub.Unregister(42, &websocket.Conn{})
	require.Equal(t, 0, hub.SubscriberCount(42))
}

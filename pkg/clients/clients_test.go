package clients

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

type nopConn struct{}

func (nopConn) Write(ctx context.Context, typ websocket.MessageType, p []byte) error {
	return nil
}

func TestClientManager(t *testing.T) {
	cm := NewClientManager()

	a, err := cm.AddClient("owner-1", nopConn{})
	require.NoError(t, err)
	b, err := cm.AddClient("owner-1", nopConn{})
	require.NoError(t, err)
	c, err := cm.AddClient("guest-2", nopConn{})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, cm.Watching("owner-1"))
	assert.Len(t, cm.GetClients("owner-1"), 2)
	assert.Len(t, cm.GetClients("guest-2"), 1)
	assert.Empty(t, cm.GetClients("nobody"))

	cm.RemoveClient(a)
	assert.False(t, cm.Exists(a))
	assert.True(t, cm.Exists(c))
	assert.Equal(t, "guest-2", cm.GetClients("guest-2")[0].SessionKey)
	assert.Len(t, cm.GetClients("owner-1"), 1)

	cm.RemoveClient(b)
	cm.RemoveClient(b)
	assert.Zero(t, cm.Watching("owner-1"))
	assert.NotContains(t, cm.watchers, "owner-1")
}

func TestGenerateUniqueIDSkipsTakenIDs(t *testing.T) {
	cm := NewClientManager()
	cm.clients[1] = &Client{ID: 1}
	cm.clients[2] = &Client{ID: 2}

	id, err := cm.generateUniqueID(ClientIDMaxRetries)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), id)

	full := NewClientManager()
	full.clients[1] = &Client{ID: 1}
	_, err = full.generateUniqueID(1)
	assert.Error(t, err)
}

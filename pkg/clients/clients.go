package clients

import (
	"context"
	"fmt"
	"sync"

	"nhooyr.io/websocket"
)

const (
	// ClientIDMaxRetries represents the maximum number of retries when generating a unique ID
	ClientIDMaxRetries = 1024
)

// Conn is the write side of a websocket connection.
type Conn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
}

// Client is a websocket connection watching one session.
type Client struct {
	ID         uint32
	SessionKey string
	Conn       Conn
}

// ClientManager tracks the connected clients of every loaded session.
type ClientManager struct {
	lock sync.RWMutex
	// clients by id
	clients map[uint32]*Client
	// client ids by session key
	watchers map[string]map[uint32]struct{}
	nextID   uint32
}

func NewClientManager() *ClientManager {
	return &ClientManager{
		clients:  make(map[uint32]*Client),
		watchers: make(map[string]map[uint32]struct{}),
		nextID:   1,
	}
}

// GetClients returns the clients watching the session
func (cm *ClientManager) GetClients(sessionKey string) []*Client {
	cm.lock.RLock()
	defer cm.lock.RUnlock()
	ids := cm.watchers[sessionKey]
	clients := make([]*Client, 0, len(ids))
	for id := range ids {
		clients = append(clients, cm.clients[id])
	}
	return clients
}

// Watching returns the number of clients watching the session.
func (cm *ClientManager) Watching(sessionKey string) int {
	cm.lock.RLock()
	defer cm.lock.RUnlock()
	return len(cm.watchers[sessionKey])
}

// AddClient registers conn as a watcher of the session and returns its ID
func (cm *ClientManager) AddClient(sessionKey string, conn Conn) (uint32, error) {
	cm.lock.Lock()
	defer cm.lock.Unlock()
	clientID, err := cm.generateUniqueID(ClientIDMaxRetries)
	if err != nil {
		return 0, fmt.Errorf("failed to generate a unique ID: %w", err)
	}
	cm.clients[clientID] = &Client{
		ID:         clientID,
		SessionKey: sessionKey,
		Conn:       conn,
	}
	ids, ok := cm.watchers[sessionKey]
	if !ok {
		ids = make(map[uint32]struct{})
		cm.watchers[sessionKey] = ids
	}
	ids[clientID] = struct{}{}
	return clientID, nil
}

// RemoveClient removes a client from the manager. Removing an unknown
// client is a no-op.
func (cm *ClientManager) RemoveClient(clientID uint32) {
	cm.lock.Lock()
	defer cm.lock.Unlock()
	client, ok := cm.clients[clientID]
	if !ok {
		return
	}
	delete(cm.clients, clientID)
	ids := cm.watchers[client.SessionKey]
	delete(ids, clientID)
	if len(ids) == 0 {
		delete(cm.watchers, client.SessionKey)
	}
}

func (cm *ClientManager) Exists(clientID uint32) bool {
	cm.lock.RLock()
	defer cm.lock.RUnlock()
	_, ok := cm.clients[clientID]
	return ok
}

// generateUniqueID must be called with the lock held.
func (cm *ClientManager) generateUniqueID(maxRetries int) (uint32, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		id := cm.nextID
		cm.nextID++
		if id == 0 {
			continue
		}
		if _, ok := cm.clients[id]; !ok {
			return id, nil
		}
	}

	return 0, fmt.Errorf("failed to generate a unique ID after %d attempts", maxRetries)
}

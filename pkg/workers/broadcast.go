package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/cbodonnell/platespotter/pkg/clients"
	"github.com/cbodonnell/platespotter/pkg/log"
	"github.com/cbodonnell/platespotter/pkg/messages"
	"nhooyr.io/websocket"
)

const (
	// BroadcastWriteTimeout bounds a single websocket write
	BroadcastWriteTimeout = 5 * time.Second
)

type BroadcastMessageWorker struct {
	clientManager        *clients.ClientManager
	sessionKey           string
	broadcastMessageChan <-chan BroadcastMessage
}

type BroadcastMessage struct {
	Type    string
	Message interface{}
}

type NewBroadcastMessageWorkerOptions struct {
	ClientManager *clients.ClientManager
	// SessionKey selects the clients that receive the messages
	SessionKey           string
	BroadcastMessageChan <-chan BroadcastMessage
}

// NewBroadcastMessageWorker creates a worker that pushes messages for one
// session to every client watching it.
func NewBroadcastMessageWorker(opts NewBroadcastMessageWorkerOptions) *BroadcastMessageWorker {
	return &BroadcastMessageWorker{
		clientManager:        opts.ClientManager,
		sessionKey:           opts.SessionKey,
		broadcastMessageChan: opts.BroadcastMessageChan,
	}
}

// Start sends messages until ctx is done or the channel is closed.
func (w *BroadcastMessageWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.broadcastMessageChan:
			if !ok {
				return
			}
			switch msg.Type {
			case messages.MessageTypeSessionSnapshot, messages.MessageTypeWarning:
				if err := w.broadcast(ctx, msg); err != nil {
					log.Error("Failed to broadcast %s message: %v", msg.Type, err)
				}
			default:
				log.Error("Unknown broadcast message type: %v", msg.Type)
			}
		}
	}
}

func (w *BroadcastMessageWorker) broadcast(ctx context.Context, b BroadcastMessage) error {
	msg, err := messages.NewMessage(b.Type, b.Message)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	payload, err := messages.SerializeMessage(msg)
	if err != nil {
		return err
	}

	for _, client := range w.clientManager.GetClients(w.sessionKey) {
		writeCtx, cancel := context.WithTimeout(ctx, BroadcastWriteTimeout)
		err := client.Conn.Write(writeCtx, websocket.MessageBinary, payload)
		cancel()
		if err != nil {
			log.Warn("Failed to send %s to client %d, dropping it: %v", b.Type, client.ID, err)
			w.clientManager.RemoveClient(client.ID)
		}
	}
	return nil
}

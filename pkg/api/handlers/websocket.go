package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cbodonnell/platespotter/pkg/api/middleware"
	"github.com/cbodonnell/platespotter/pkg/log"
	"github.com/cbodonnell/platespotter/pkg/messages"
	"github.com/cbodonnell/platespotter/pkg/session"
	"nhooyr.io/websocket"
)

const initialSnapshotTimeout = 5 * time.Second

// HandleSessionSocket upgrades to a websocket that receives a snapshot of
// the caller's session on connect and after every change. Anything the
// client sends is ignored.
func HandleSessionSocket(registry *session.Registry, acceptOptions *websocket.AcceptOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := loadManager(w, r, registry)
		if !ok {
			return
		}
		identity, _ := middleware.IdentityFromContext(r.Context())
		key := identity.SessionKey()

		conn, err := websocket.Accept(w, r, acceptOptions)
		if err != nil {
			log.Error("Failed to upgrade to WebSocket: %v", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "")

		clientManager := registry.ClientManager()
		clientID, err := clientManager.AddClient(key, conn)
		if err != nil {
			log.Error("Failed to add client: %v", err)
			conn.Close(websocket.StatusTryAgainLater, "too many clients")
			return
		}
		defer clientManager.RemoveClient(clientID)
		log.Debug("Client %d watching session %s", clientID, key)

		if err := sendSnapshot(r.Context(), conn, registry, m); err != nil {
			log.Warn("Failed to send initial snapshot to client %d: %v", clientID, err)
			return
		}

		// CloseRead discards incoming frames and cancels on close
		ctx := conn.CloseRead(r.Context())
		<-ctx.Done()
		log.Debug("Client %d disconnected", clientID)
		conn.Close(websocket.StatusNormalClosure, "")
	}
}

func sendSnapshot(ctx context.Context, conn *websocket.Conn, registry *session.Registry, m *session.Manager) error {
	view, err := registry.View(m)
	if err != nil {
		return err
	}
	msg, err := messages.NewMessage(messages.MessageTypeSessionSnapshot, view)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	b, err := messages.SerializeMessage(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, initialSnapshotTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageBinary, b)
}

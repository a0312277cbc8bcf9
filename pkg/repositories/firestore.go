package repositories

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"github.com/cbodonnell/platespotter/pkg/game/types"
	"github.com/cbodonnell/platespotter/pkg/repositories/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	firestoreSessions = "sessions"
	firestorePlayers  = "players"
)

var _ Repository = &FirestoreRepository{}

// FirestoreRepository stores sessions and players as documents in two
// top-level collections. Document ids are the remote keys.
type FirestoreRepository struct {
	client *firestore.Client
}

type firestoreSession struct {
	OwnerID   string    `firestore:"owner_id"`
	CreatedAt time.Time `firestore:"created_at,serverTimestamp"`
	UpdatedAt time.Time `firestore:"updated_at,serverTimestamp"`
}

type firestorePlayer struct {
	SessionID string    `firestore:"session_id"`
	Name      string    `firestore:"name"`
	Claims    []string  `firestore:"claims"`
	Score     int       `firestore:"score"`
	CreatedAt time.Time `firestore:"created_at,serverTimestamp"`
}

// NewFirestoreRepository creates a repository backed by the app's Firestore database.
// The caller is responsible for calling Close() on the repository.
func NewFirestoreRepository(ctx context.Context, app *firebase.App) (*FirestoreRepository, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Firestore client: %w", err)
	}
	return &FirestoreRepository{
		client: client,
	}, nil
}

func (r *FirestoreRepository) Close(ctx context.Context) error {
	return r.client.Close()
}

func isFirestoreNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (r *FirestoreRepository) CreateSession(ctx context.Context, ownerID string) (types.SessionID, error) {
	ref := r.client.Collection(firestoreSessions).NewDoc()
	if _, err := ref.Create(ctx, firestoreSession{OwnerID: ownerID}); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return types.SessionID(ref.ID), nil
}

func (r *FirestoreRepository) FindLatestSession(ctx context.Context, ownerID string) (types.SessionID, error) {
	docs, err := r.client.Collection(firestoreSessions).
		Where("owner_id", "==", ownerID).
		OrderBy("updated_at", firestore.Desc).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return "", fmt.Errorf("failed to query sessions: %w", err)
	}
	if len(docs) == 0 {
		return "", &ErrNotFound{Kind: "session"}
	}
	return types.SessionID(docs[0].Ref.ID), nil
}

func (r *FirestoreRepository) ListPlayers(ctx context.Context, sessionID types.SessionID) ([]models.PlayerRecord, error) {
	docs, err := r.client.Collection(firestorePlayers).
		Where("session_id", "==", string(sessionID)).
		OrderBy("created_at", firestore.Asc).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}

	players := make([]models.PlayerRecord, 0, len(docs))
	for _, doc := range docs {
		var p firestorePlayer
		if err := doc.DataTo(&p); err != nil {
			return nil, fmt.Errorf("failed to decode player %s: %w", doc.Ref.ID, err)
		}
		if p.Claims == nil {
			p.Claims = []string{}
		}
		players = append(players, models.PlayerRecord{
			ID:        types.RemoteID(doc.Ref.ID),
			SessionID: sessionID,
			Name:      p.Name,
			Claims:    p.Claims,
			Score:     p.Score,
		})
	}
	return players, nil
}

func (r *FirestoreRepository) touch(tx *firestore.Transaction, sessionID string) error {
	ref := r.client.Collection(firestoreSessions).Doc(sessionID)
	return tx.Update(ref, []firestore.Update{{Path: "updated_at", Value: firestore.ServerTimestamp}})
}

func (r *FirestoreRepository) CreatePlayer(ctx context.Context, sessionID types.SessionID, name string) (*models.PlayerRecord, error) {
	ref := r.client.Collection(firestorePlayers).NewDoc()
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(r.client.Collection(firestoreSessions).Doc(string(sessionID))); err != nil {
			if isFirestoreNotFound(err) {
				return &ErrNotFound{Kind: "session", ID: string(sessionID)}
			}
			return err
		}
		if err := tx.Create(ref, firestorePlayer{SessionID: string(sessionID), Name: name, Claims: []string{}}); err != nil {
			return err
		}
		return r.touch(tx, string(sessionID))
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	return &models.PlayerRecord{
		ID:        types.RemoteID(ref.ID),
		SessionID: sessionID,
		Name:      name,
		Claims:    []string{},
	}, nil
}

func (r *FirestoreRepository) UpdatePlayer(ctx context.Context, id types.RemoteID, update models.PlayerUpdate) error {
	var updates []firestore.Update
	if update.Name != nil {
		updates = append(updates, firestore.Update{Path: "name", Value: *update.Name})
	}
	if update.Claims != nil {
		updates = append(updates, firestore.Update{Path: "claims", Value: update.Claims})
	}
	if update.Score != nil {
		updates = append(updates, firestore.Update{Path: "score", Value: *update.Score})
	}

	ref := r.client.Collection(firestorePlayers).Doc(string(id))
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		sessionID, err := r.playerSession(tx, ref)
		if err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Update(ref, updates); err != nil {
				return err
			}
		}
		return r.touch(tx, sessionID)
	})
	if err != nil {
		if IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to update player: %w", err)
	}
	return nil
}

func (r *FirestoreRepository) DeletePlayer(ctx context.Context, id types.RemoteID) error {
	ref := r.client.Collection(firestorePlayers).Doc(string(id))
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		sessionID, err := r.playerSession(tx, ref)
		if err != nil {
			return err
		}
		if err := tx.Delete(ref); err != nil {
			return err
		}
		return r.touch(tx, sessionID)
	})
	if err != nil {
		if IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to delete player: %w", err)
	}
	return nil
}

func (r *FirestoreRepository) playerSession(tx *firestore.Transaction, ref *firestore.DocumentRef) (string, error) {
	doc, err := tx.Get(ref)
	if err != nil {
		if isFirestoreNotFound(err) {
			return "", &ErrNotFound{Kind: "player", ID: ref.ID}
		}
		return "", err
	}
	var p firestorePlayer
	if err := doc.DataTo(&p); err != nil {
		return "", fmt.Errorf("failed to decode player %s: %w", ref.ID, err)
	}
	return p.SessionID, nil
}

package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cbodonnell/platespotter/pkg/game/types"
	"github.com/cbodonnell/platespotter/pkg/repositories/models"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var _ Repository = &SQLiteRepository{}

// nextUpdatedAt yields a millisecond timestamp strictly greater than any
// stored updated_at, so the latest write always sorts first.
const nextUpdatedAt = `(SELECT MAX(?, COALESCE(MAX(updated_at), 0) + 1) FROM sessions)`

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens the database at path and applies the embedded migrations.
// The caller is responsible for calling Close() on the repository.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY between them
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrateSQLite(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, ownerID string) (types.SessionID, error) {
	id := uuid.NewString()
	now := time.Now().UnixMilli()
	q := `INSERT INTO sessions (id, owner_id, created_at, updated_at) VALUES (?, ?, ?, ` + nextUpdatedAt + `);`
	if _, err := r.db.ExecContext(ctx, q, id, ownerID, now, now); err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}
	return types.SessionID(id), nil
}

func (r *SQLiteRepository) FindLatestSession(ctx context.Context, ownerID string) (types.SessionID, error) {
	q := `SELECT id FROM sessions WHERE owner_id = ? ORDER BY updated_at DESC, rowid DESC LIMIT 1;`
	var id string
	if err := r.db.QueryRowContext(ctx, q, ownerID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", &ErrNotFound{Kind: "session"}
		}
		return "", fmt.Errorf("failed to query session: %w", err)
	}
	return types.SessionID(id), nil
}

func (r *SQLiteRepository) ListPlayers(ctx context.Context, sessionID types.SessionID) ([]models.PlayerRecord, error) {
	q := `SELECT id, name, claims, score FROM players WHERE session_id = ? ORDER BY created_at, rowid;`
	rows, err := r.db.QueryContext(ctx, q, string(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	players := []models.PlayerRecord{}
	for rows.Next() {
		var id, claims string
		record := models.PlayerRecord{SessionID: sessionID}
		if err := rows.Scan(&id, &record.Name, &claims, &record.Score); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		record.ID = types.RemoteID(id)
		if err := json.Unmarshal([]byte(claims), &record.Claims); err != nil {
			return nil, fmt.Errorf("failed to decode claims of player %s: %w", id, err)
		}
		if record.Claims == nil {
			record.Claims = []string{}
		}
		players = append(players, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate players: %w", err)
	}
	return players, nil
}

func (r *SQLiteRepository) CreatePlayer(ctx context.Context, sessionID types.SessionID, name string) (*models.PlayerRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	res, err := tx.ExecContext(ctx, `UPDATE sessions SET updated_at = `+nextUpdatedAt+` WHERE id = ?;`, now, string(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &ErrNotFound{Kind: "session", ID: string(sessionID)}
	}

	record := &models.PlayerRecord{
		ID:        types.RemoteID(uuid.NewString()),
		SessionID: sessionID,
		Name:      name,
		Claims:    []string{},
	}
	q := `INSERT INTO players (id, session_id, name, claims, score, created_at) VALUES (?, ?, ?, '[]', 0, ?);`
	if _, err := tx.ExecContext(ctx, q, string(record.ID), string(sessionID), name, now); err != nil {
		return nil, fmt.Errorf("failed to insert player: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return record, nil
}

func (r *SQLiteRepository) UpdatePlayer(ctx context.Context, id types.RemoteID, update models.PlayerUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var sessionID string
	if err := tx.QueryRowContext(ctx, `SELECT session_id FROM players WHERE id = ?;`, string(id)).Scan(&sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &ErrNotFound{Kind: "player", ID: string(id)}
		}
		return fmt.Errorf("failed to query player: %w", err)
	}

	if update.Name != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE players SET name = ? WHERE id = ?;`, *update.Name, string(id)); err != nil {
			return fmt.Errorf("failed to update player name: %w", err)
		}
	}
	if update.Claims != nil {
		claims, err := json.Marshal(update.Claims)
		if err != nil {
			return fmt.Errorf("failed to encode claims: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE players SET claims = ? WHERE id = ?;`, string(claims), string(id)); err != nil {
			return fmt.Errorf("failed to update player claims: %w", err)
		}
	}
	if update.Score != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE players SET score = ? WHERE id = ?;`, *update.Score, string(id)); err != nil {
			return fmt.Errorf("failed to update player score: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET updated_at = `+nextUpdatedAt+` WHERE id = ?;`, time.Now().UnixMilli(), sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeletePlayer(ctx context.Context, id types.RemoteID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var sessionID string
	if err := tx.QueryRowContext(ctx, `DELETE FROM players WHERE id = ? RETURNING session_id;`, string(id)).Scan(&sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &ErrNotFound{Kind: "player", ID: string(id)}
		}
		return fmt.Errorf("failed to delete player: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET updated_at = `+nextUpdatedAt+` WHERE id = ?;`, time.Now().UnixMilli(), sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/cbodonnell/platespotter/pkg/game/types"
	"github.com/cbodonnell/platespotter/pkg/log"
	"github.com/cbodonnell/platespotter/pkg/repositories/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Repository = &PostgresRepository{}

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to the database and applies the embedded migrations.
// The caller is responsible for calling Close() on the repository.
func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	var username string
	var database string
	err = pool.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to query database: %w", err)
	}
	log.Info("Connected to %s as %s", database, username)

	if err := migratePostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) CreateSession(ctx context.Context, ownerID string) (types.SessionID, error) {
	id := uuid.NewString()
	q := `INSERT INTO sessions (id, owner_id) VALUES ($1, $2);`
	if _, err := r.pool.Exec(ctx, q, id, ownerID); err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}
	return types.SessionID(id), nil
}

func (r *PostgresRepository) FindLatestSession(ctx context.Context, ownerID string) (types.SessionID, error) {
	q := `SELECT id FROM sessions WHERE owner_id = $1 ORDER BY updated_at DESC, created_at DESC LIMIT 1;`
	var id string
	if err := r.pool.QueryRow(ctx, q, ownerID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", &ErrNotFound{Kind: "session"}
		}
		return "", fmt.Errorf("failed to query session: %w", err)
	}
	return types.SessionID(id), nil
}

func (r *PostgresRepository) ListPlayers(ctx context.Context, sessionID types.SessionID) ([]models.PlayerRecord, error) {
	q := `SELECT id, name, claims, score FROM players WHERE session_id = $1 ORDER BY seq;`
	rows, err := r.pool.Query(ctx, q, string(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	players := []models.PlayerRecord{}
	for rows.Next() {
		var id string
		record := models.PlayerRecord{SessionID: sessionID}
		if err := rows.Scan(&id, &record.Name, &record.Claims, &record.Score); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		record.ID = types.RemoteID(id)
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

func (r *PostgresRepository) CreatePlayer(ctx context.Context, sessionID types.SessionID, name string) (*models.PlayerRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE sessions SET updated_at = now() WHERE id = $1;`, string(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &ErrNotFound{Kind: "session", ID: string(sessionID)}
	}

	record := &models.PlayerRecord{
		ID:        types.RemoteID(uuid.NewString()),
		SessionID: sessionID,
		Name:      name,
		Claims:    []string{},
	}
	q := `INSERT INTO players (id, session_id, name) VALUES ($1, $2, $3);`
	if _, err := tx.Exec(ctx, q, string(record.ID), string(sessionID), name); err != nil {
		return nil, fmt.Errorf("failed to insert player: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return record, nil
}

func (r *PostgresRepository) UpdatePlayer(ctx context.Context, id types.RemoteID, update models.PlayerUpdate) error {
	// COALESCE keeps the stored value for every field left nil in the update
	q := `
	WITH updated AS (
		UPDATE players SET
			name = COALESCE($2, name),
			claims = COALESCE($3, claims),
			score = COALESCE($4, score)
		WHERE id = $1
		RETURNING session_id
	)
	UPDATE sessions SET updated_at = now() WHERE id IN (SELECT session_id FROM updated)
	RETURNING id;
	`
	var sessionID string
	if err := r.pool.QueryRow(ctx, q, string(id), update.Name, update.Claims, update.Score).Scan(&sessionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &ErrNotFound{Kind: "player", ID: string(id)}
		}
		return fmt.Errorf("failed to update player: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeletePlayer(ctx context.Context, id types.RemoteID) error {
	q := `
	WITH deleted AS (
		DELETE FROM players WHERE id = $1 RETURNING session_id
	)
	UPDATE sessions SET updated_at = now() WHERE id IN (SELECT session_id FROM deleted)
	RETURNING id;
	`
	var sessionID string
	if err := r.pool.QueryRow(ctx, q, string(id)).Scan(&sessionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &ErrNotFound{Kind: "player", ID: string(id)}
		}
		return fmt.Errorf("failed to delete player: %w", err)
	}
	return nil
}

package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists sessions in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vault_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			input TEXT NOT NULL,
			response TEXT NOT NULL,
			emotion TEXT NOT NULL DEFAULT '',
			soul_name TEXT NOT NULL DEFAULT '',
			relationship TEXT NOT NULL DEFAULT '',
			audio_key TEXT NOT NULL DEFAULT '',
			video_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_vault_sessions_user_created ON vault_sessions (user_id, created_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, session Session) (Session, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO vault_sessions (id, user_id, type, input, response, emotion, soul_name, relationship, audio_key, video_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		session.ID,
		session.UserID,
		session.Type,
		session.Input,
		session.Response,
		session.Emotion,
		session.SoulName,
		session.Relationship,
		session.AudioKey,
		session.VideoURL,
		session.CreatedAt,
	)
	if err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

func (s *PostgresStore) List(ctx context.Context, userID string, filter Filter) ([]Session, error) {
	query := `SELECT id, user_id, type, input, response, emotion, soul_name, relationship, audio_key, video_url, created_at
		 FROM vault_sessions WHERE user_id=$1`
	args := []any{userID}
	if filter.Type != "" {
		query += ` AND type=$2`
		args = append(args, filter.Type)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var session Session
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.Type,
			&session.Input,
			&session.Response,
			&session.Emotion,
			&session.SoulName,
			&session.Relationship,
			&session.AudioKey,
			&session.VideoURL,
			&session.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID, sessionID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM vault_sessions WHERE user_id=$1 AND id=$2`,
		userID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Package repository implements session and expense persistence for each
// store backend.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/egresos-bot/internal/database"
	"gitlab.com/yelinaung/egresos-bot/internal/models"
)

// SessionRepository stores conversation sessions in Postgres.
type SessionRepository struct {
	db database.PGXDB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db database.PGXDB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Get returns the session for phone, or the default idle session if none exists.
func (r *SessionRepository) Get(ctx context.Context, phone string) (models.Session, error) {
	var step string
	var draft []byte
	err := r.db.QueryRow(ctx, `
		SELECT step, draft FROM sessions WHERE phone = $1
	`, phone).Scan(&step, &draft)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.NewSession(), nil
		}
		return models.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	return decodeSession(step, draft)
}

// Set upserts the session. Only step and draft are written; other columns
// of an existing row are kept.
func (r *SessionRepository) Set(ctx context.Context, phone string, sess models.Session) error {
	draft, err := encodeDraft(sess.Draft)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO sessions (phone, step, draft, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW(), NOW())
		ON CONFLICT (phone) DO UPDATE SET
			step = EXCLUDED.step,
			draft = EXCLUDED.draft,
			updated_at = NOW()
	`, phone, string(sess.Step), string(draft))
	if err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}
	return nil
}

func encodeDraft(d models.Draft) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode draft: %w", err)
	}
	return data, nil
}

func decodeSession(step string, draft []byte) (models.Session, error) {
	sess := models.Session{Step: models.Step(step)}
	if len(draft) == 0 {
		return sess, nil
	}
	if err := json.Unmarshal(draft, &sess.Draft); err != nil {
		return models.Session{}, fmt.Errorf("failed to decode draft: %w", err)
	}
	return sess, nil
}

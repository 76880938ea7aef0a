package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/egresos-bot/internal/models"
)

// SQLiteSessionRepository stores conversation sessions in SQLite.
type SQLiteSessionRepository struct {
	db *sql.DB
}

// NewSQLiteSessionRepository creates a new SQLiteSessionRepository.
func NewSQLiteSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

// Get returns the session for phone, or the default idle session if none exists.
func (r *SQLiteSessionRepository) Get(ctx context.Context, phone string) (models.Session, error) {
	var step, draft string
	err := r.db.QueryRowContext(ctx, `
		SELECT step, draft FROM sessions WHERE phone = ?
	`, phone).Scan(&step, &draft)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NewSession(), nil
		}
		return models.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	return decodeSession(step, []byte(draft))
}

// Set upserts the session.
func (r *SQLiteSessionRepository) Set(ctx context.Context, phone string, sess models.Session) error {
	draft, err := encodeDraft(sess.Draft)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (phone, step, draft, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (phone) DO UPDATE SET
			step = excluded.step,
			draft = excluded.draft,
			updated_at = CURRENT_TIMESTAMP
	`, phone, string(sess.Step), string(draft))
	if err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}
	return nil
}

// SQLiteExpenseRepository appends expenses to SQLite.
type SQLiteExpenseRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteExpenseRepository creates a new SQLiteExpenseRepository.
func NewSQLiteExpenseRepository(db *sql.DB) *SQLiteExpenseRepository {
	return &SQLiteExpenseRepository{db: db, now: time.Now}
}

// Append inserts a new expense. A MessageID that was already recorded is
// not inserted again; the stored record's ID and CreatedAt are returned.
func (r *SQLiteExpenseRepository) Append(ctx context.Context, exp *models.Expense) error {
	if exp.ID == "" {
		exp.ID = uuid.NewString()
	}
	createdAt := r.now().UTC()

	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO expenses (id, message_id, amount, date, category, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, exp.ID, nullableString(exp.MessageID), exp.Amount.String(), exp.Date,
		string(exp.Category), exp.Note, createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to append expense: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to append expense: %w", err)
	}
	if n == 1 {
		exp.CreatedAt = createdAt
		return nil
	}
	if exp.MessageID == "" {
		return fmt.Errorf("failed to append expense: id %s already exists", exp.ID)
	}

	existing, err := r.GetByMessageID(ctx, exp.MessageID)
	if err != nil {
		return err
	}
	exp.ID = existing.ID
	exp.CreatedAt = existing.CreatedAt
	return nil
}

// GetByMessageID retrieves the expense committed by the given message.
func (r *SQLiteExpenseRepository) GetByMessageID(ctx context.Context, messageID string) (*models.Expense, error) {
	var exp models.Expense
	var msgID sql.NullString
	var amount, category, createdAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, message_id, amount, date, category, note, created_at
		FROM expenses WHERE message_id = ?
	`, messageID).Scan(&exp.ID, &msgID, &amount, &exp.Date, &category, &exp.Note, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense by message ID: %w", err)
	}

	exp.MessageID = msgID.String
	exp.Category = models.Category(category)
	if exp.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse stored amount %q: %w", amount, err)
	}
	if exp.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse stored created_at %q: %w", createdAt, err)
	}
	return &exp, nil
}

// CountExpenses returns the number of stored expenses.
func (r *SQLiteExpenseRepository) CountExpenses(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count expenses: %w", err)
	}
	return n, nil
}

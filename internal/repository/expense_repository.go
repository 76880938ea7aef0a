package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/egresos-bot/internal/database"
	"gitlab.com/yelinaung/egresos-bot/internal/models"
)

// ExpenseRepository appends expenses to Postgres.
type ExpenseRepository struct {
	db database.PGXDB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db database.PGXDB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Append inserts a new expense and fills in its ID and CreatedAt. An expense
// whose MessageID was already recorded is not inserted again; the stored
// record's ID and CreatedAt are returned instead.
func (r *ExpenseRepository) Append(ctx context.Context, exp *models.Expense) error {
	if exp.ID == "" {
		exp.ID = uuid.NewString()
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO expenses (id, message_id, amount, date, category, note)
		VALUES ($1, $2, $3, CAST($4::text AS DATE), $5, $6)
		ON CONFLICT (message_id) DO NOTHING
		RETURNING created_at
	`, exp.ID, nullableString(exp.MessageID), exp.Amount, exp.Date, string(exp.Category), exp.Note,
	).Scan(&exp.CreatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) || exp.MessageID == "" {
		return fmt.Errorf("failed to append expense: %w", err)
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
func (r *ExpenseRepository) GetByMessageID(ctx context.Context, messageID string) (*models.Expense, error) {
	var exp models.Expense
	var msgID *string
	var date time.Time
	var category string
	err := r.db.QueryRow(ctx, `
		SELECT id::text, message_id, amount, date, category, note, created_at
		FROM expenses WHERE message_id = $1
	`, messageID).Scan(&exp.ID, &msgID, &exp.Amount, &date, &category, &exp.Note, &exp.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense by message ID: %w", err)
	}

	if msgID != nil {
		exp.MessageID = *msgID
	}
	exp.Date = date.Format(models.DateLayout)
	exp.Category = models.Category(category)
	return &exp, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

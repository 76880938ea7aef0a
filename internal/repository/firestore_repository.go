package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/egresos-bot/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore collection names read by the dashboard.
const (
	SessionsCollection = "wh_sessions"
	ExpensesCollection = "egresos"
)

type firestoreSession struct {
	Step  string         `firestore:"step"`
	Draft firestoreDraft `firestore:"draft"`
}

type firestoreDraft struct {
	Amount      *float64 `firestore:"amount,omitempty"`
	Category    string   `firestore:"category,omitempty"`
	Description *string  `firestore:"description,omitempty"`
	Date        string   `firestore:"date,omitempty"`
}

type firestoreExpense struct {
	Amount    float64   `firestore:"amount"`
	Date      string    `firestore:"date"`
	Category  string    `firestore:"category"`
	Note      string    `firestore:"note"`
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`
}

// FirestoreSessionRepository stores sessions as documents keyed by phone.
type FirestoreSessionRepository struct {
	client *firestore.Client
}

// NewFirestoreSessionRepository creates a new FirestoreSessionRepository.
func NewFirestoreSessionRepository(client *firestore.Client) *FirestoreSessionRepository {
	return &FirestoreSessionRepository{client: client}
}

// Get returns the session for phone, or the default idle session if none exists.
func (r *FirestoreSessionRepository) Get(ctx context.Context, phone string) (models.Session, error) {
	snap, err := r.client.Collection(SessionsCollection).Doc(phone).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.NewSession(), nil
		}
		return models.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	var doc firestoreSession
	if err := snap.DataTo(&doc); err != nil {
		return models.Session{}, fmt.Errorf("failed to decode session: %w", err)
	}

	sess := models.Session{
		Step: models.Step(doc.Step),
		Draft: models.Draft{
			Category:    models.Category(doc.Draft.Category),
			Description: doc.Draft.Description,
			Date:        doc.Draft.Date,
		},
	}
	if doc.Draft.Amount != nil {
		amount := decimal.NewFromFloat(*doc.Draft.Amount)
		sess.Draft.Amount = &amount
	}
	return sess, nil
}

// Set merges step and draft into the session document. Other fields of the
// document are kept; draft is replaced as a whole.
func (r *FirestoreSessionRepository) Set(ctx context.Context, phone string, sess models.Session) error {
	doc := firestoreSession{
		Step: string(sess.Step),
		Draft: firestoreDraft{
			Category:    string(sess.Draft.Category),
			Description: sess.Draft.Description,
			Date:        sess.Draft.Date,
		},
	}
	if sess.Draft.Amount != nil {
		amount := sess.Draft.Amount.InexactFloat64()
		doc.Draft.Amount = &amount
	}

	_, err := r.client.Collection(SessionsCollection).Doc(phone).Set(ctx, doc,
		firestore.Merge([]string{"step"}, []string{"draft"}))
	if err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}
	return nil
}

// FirestoreExpenseRepository appends expenses as documents. Documents are
// keyed by message ID when one is present so a redelivered confirmation
// cannot create a second record.
type FirestoreExpenseRepository struct {
	client *firestore.Client
}

// NewFirestoreExpenseRepository creates a new FirestoreExpenseRepository.
func NewFirestoreExpenseRepository(client *firestore.Client) *FirestoreExpenseRepository {
	return &FirestoreExpenseRepository{client: client}
}

// Append creates the expense document and fills in exp.ID.
func (r *FirestoreExpenseRepository) Append(ctx context.Context, exp *models.Expense) error {
	col := r.client.Collection(ExpensesCollection)

	var ref *firestore.DocumentRef
	if exp.MessageID != "" {
		ref = col.Doc(exp.MessageID)
	} else {
		ref = col.NewDoc()
	}

	res, err := ref.Create(ctx, firestoreExpense{
		Amount:   exp.Amount.InexactFloat64(),
		Date:     exp.Date,
		Category: string(exp.Category),
		Note:     exp.Note,
	})
	if err == nil {
		exp.ID = ref.ID
		exp.CreatedAt = res.UpdateTime
		return nil
	}
	if status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("failed to append expense: %w", err)
	}

	existing, err := r.GetByID(ctx, ref.ID)
	if err != nil {
		return err
	}
	exp.ID = existing.ID
	exp.CreatedAt = existing.CreatedAt
	return nil
}

// GetByID retrieves an expense document.
func (r *FirestoreExpenseRepository) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	snap, err := r.client.Collection(ExpensesCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	var doc firestoreExpense
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode expense: %w", err)
	}

	return &models.Expense{
		ID:        snap.Ref.ID,
		Amount:    decimal.NewFromFloat(doc.Amount),
		Date:      doc.Date,
		Category:  models.Category(doc.Category),
		Note:      doc.Note,
		CreatedAt: doc.CreatedAt,
	}, nil
}

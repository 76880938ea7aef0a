// Package models defines the domain entities for the expense bot.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format stored on expenses and read by the dashboard.
const DateLayout = "2006-01-02"

// Step identifies where a sender is in the expense form.
type Step string

// Conversation steps. The form cycles back to StepIdle after every
// confirmation or cancellation.
const (
	StepIdle           Step = "idle"
	StepAskAmount      Step = "ask_amount"
	StepAskCategory    Step = "ask_category"
	StepAskDescription Step = "ask_description"
	StepConfirm        Step = "confirm"
)

// Steps lists every known step in form order.
var Steps = []Step{StepIdle, StepAskAmount, StepAskCategory, StepAskDescription, StepConfirm}

// Valid reports whether s is one of the known steps.
func (s Step) Valid() bool {
	for _, known := range Steps {
		if s == known {
			return true
		}
	}
	return false
}

// Category is one of the fixed expense categories shown on the dashboard.
type Category string

// Expense categories.
const (
	CategoryRacional Category = "Racional"
	CategoryNegocio  Category = "Negocio"
	CategoryRebeca   Category = "Rebeca"
)

// Categories lists the categories in menu order (1, 2, 3).
var Categories = []Category{CategoryRacional, CategoryNegocio, CategoryRebeca}

// Draft is an expense under construction. Fields are filled one step at a time.
type Draft struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    Category         `json:"category,omitempty"`
	Description *string          `json:"description,omitempty"`
	Date        string           `json:"date,omitempty"`
}

// Session is the per-sender conversation state.
type Session struct {
	Step  Step  `json:"step"`
	Draft Draft `json:"draft"`
}

// NewSession returns the default idle session with an empty draft.
func NewSession() Session {
	return Session{Step: StepIdle}
}

// Expense is a confirmed expense record. Records are append-only.
type Expense struct {
	ID        string
	MessageID string
	Amount    decimal.Decimal
	Date      string
	Category  Category
	Note      string
	CreatedAt time.Time
}

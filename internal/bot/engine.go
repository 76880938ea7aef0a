package bot

import (
	"strings"
	"time"

	"gitlab.com/yelinaung/egresos-bot/internal/models"
)

// Input is one inbound text message as seen by the engine.
type Input struct {
	MessageID string
	Name      string
	Text      string
	Now       time.Time
}

// Turn is the outcome of feeding one message to the engine.
// Commit is non-nil only when the sender confirmed a complete draft.
type Turn struct {
	Next   models.Session
	Reply  string
	Commit *models.Expense
}

// stepHandler computes the turn for a message that is neither a reset nor a
// cancel keyword.
type stepHandler func(e *Engine, sess models.Session, in Input) Turn

// transitions is the form's transition table, one handler per step.
var transitions = map[models.Step]stepHandler{
	models.StepIdle:           (*Engine).startForm,
	models.StepAskAmount:      (*Engine).takeAmount,
	models.StepAskCategory:    (*Engine).takeCategory,
	models.StepAskDescription: (*Engine).takeDescription,
	models.StepConfirm:        (*Engine).takeConfirmation,
}

// Engine is the expense form state machine. It has no side effects: the
// caller persists Turn.Next, appends Turn.Commit and sends Turn.Reply.
type Engine struct {
	loc *time.Location
}

// NewEngine creates an Engine that stamps expense dates in loc.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc}
}

// Step applies one message to the session. Reset keywords win over cancel,
// cancel wins over the current step, and unknown steps get the fallback help.
func (e *Engine) Step(sess models.Session, in Input) Turn {
	in.Text = strings.TrimSpace(in.Text)

	switch {
	case isReset(in.Text):
		return e.startForm(sess, in)
	case isCancel(in.Text):
		return Turn{Next: models.NewSession(), Reply: msgCancelled}
	}

	handler, ok := transitions[sess.Step]
	if !ok {
		return Turn{Next: models.NewSession(), Reply: msgFallback}
	}
	return handler(e, sess, in)
}

func (e *Engine) startForm(_ models.Session, in Input) Turn {
	return Turn{
		Next:  models.Session{Step: models.StepAskAmount},
		Reply: askAmountText(in.Name),
	}
}

func (e *Engine) takeAmount(sess models.Session, in Input) Turn {
	amount, err := ParseAmount(in.Text)
	if err != nil {
		return Turn{Next: sess, Reply: msgRetryAmount}
	}

	sess.Draft.Amount = &amount
	sess.Step = models.StepAskCategory
	return Turn{Next: sess, Reply: msgAskCategory}
}

func (e *Engine) takeCategory(sess models.Session, in Input) Turn {
	cat, ok := NormalizeCategory(in.Text)
	if !ok {
		return Turn{Next: sess, Reply: msgRetryCategory}
	}

	sess.Draft.Category = cat
	sess.Step = models.StepAskDescription
	return Turn{Next: sess, Reply: msgAskDescription}
}

func (e *Engine) takeDescription(sess models.Session, in Input) Turn {
	desc := in.Text
	if desc == skipDescSymbol {
		desc = ""
	}

	sess.Draft.Description = &desc
	sess.Draft.Date = e.today(in.Now)
	sess.Step = models.StepConfirm
	return Turn{Next: sess, Reply: confirmText(sess.Draft)}
}

func (e *Engine) takeConfirmation(sess models.Session, in Input) Turn {
	switch {
	case isAffirm(in.Text):
		d := sess.Draft
		if d.Amount == nil || d.Category == "" {
			return Turn{Next: models.NewSession(), Reply: msgFallback}
		}

		exp := &models.Expense{
			MessageID: in.MessageID,
			Amount:    *d.Amount,
			Date:      d.Date,
			Category:  d.Category,
		}
		if exp.Date == "" {
			exp.Date = e.today(in.Now)
		}
		if d.Description != nil {
			exp.Note = *d.Description
		}

		return Turn{
			Next:   models.NewSession(),
			Reply:  savedText(in.Name, exp),
			Commit: exp,
		}

	case isDeny(in.Text):
		return Turn{Next: models.NewSession(), Reply: msgDenied}

	default:
		return Turn{Next: sess, Reply: msgConfirmHelp}
	}
}

// today returns the calendar date of now in the engine's location.
func (e *Engine) today(now time.Time) string {
	if now.IsZero() {
		now = time.Now()
	}
	return now.In(e.loc).Format(models.DateLayout)
}

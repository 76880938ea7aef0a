// Package bot implements the expense form conversation: field parsing, the
// step state machine and the service that drives it for inbound messages.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gitlab.com/yelinaung/egresos-bot/internal/config"
	"gitlab.com/yelinaung/egresos-bot/internal/logger"
	"gitlab.com/yelinaung/egresos-bot/internal/models"
	"gitlab.com/yelinaung/egresos-bot/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "gitlab.com/yelinaung/egresos-bot/internal/bot"

// SessionStore reads and writes per-sender sessions. Get returns the default
// idle session when none is stored.
type SessionStore interface {
	Get(ctx context.Context, phone string) (models.Session, error)
	Set(ctx context.Context, phone string, sess models.Session) error
}

// ExpenseSink appends confirmed expenses.
type ExpenseSink interface {
	Append(ctx context.Context, exp *models.Expense) error
}

// Notifier delivers a reply to a sender.
type Notifier interface {
	Send(ctx context.Context, to, text string) error
}

// Message is one inbound text message. ProfileName is the sender's
// WhatsApp profile name, used when DISPLAY_NAMES has no entry.
type Message struct {
	ID          string
	From        string
	Text        string
	ProfileName string
}

// Bot drives the expense form for allow-listed senders.
type Bot struct {
	cfg      *config.Config
	engine   *Engine
	sessions SessionStore
	expenses ExpenseSink
	notifier Notifier
	dedup    *deliveryCache
	metrics  *telemetry.BotMetrics
	tracer   trace.Tracer
	now      func() time.Time
}

// New creates a new Bot instance.
func New(cfg *config.Config, sessions SessionStore, expenses ExpenseSink, notifier Notifier) *Bot {
	metrics, err := telemetry.NewBotMetrics(otel.Meter(instrumentationName))
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to register bot metrics, using no-op meter")
		metrics, _ = telemetry.NewBotMetrics(noop.NewMeterProvider().Meter(instrumentationName))
	}

	return &Bot{
		cfg:      cfg,
		engine:   NewEngine(cfg.Location()),
		sessions: sessions,
		expenses: expenses,
		notifier: notifier,
		dedup:    newDeliveryCache(cfg.DedupTTL),
		metrics:  metrics,
		tracer:   otel.Tracer(instrumentationName),
		now:      time.Now,
	}
}

// HandleMessage runs one conversation turn: read the session, step the form,
// append the expense if confirmed, persist the session and send the reply.
// Messages from senders outside the allow-list are dropped without touching
// the store. A failed reply is logged and not returned.
func (b *Bot) HandleMessage(ctx context.Context, msg Message) (err error) {
	phoneHash := logger.HashPhone(msg.From)

	if !b.cfg.IsPhoneAllowed(msg.From) {
		logger.Log.Warn().Str("phone_hash", phoneHash).Msg("Blocked message from non-allowed sender")
		b.metrics.MessageRejected(ctx, "not_allowed")
		return nil
	}

	if !b.dedup.Claim(msg.ID) {
		logger.Log.Info().
			Str("phone_hash", phoneHash).
			Str("message_id", msg.ID).
			Msg("Skipping duplicate delivery")
		b.metrics.MessageRejected(ctx, "duplicate")
		return nil
	}
	defer func() {
		if err != nil {
			b.dedup.Release(msg.ID)
		}
	}()

	ctx, span := b.tracer.Start(ctx, "bot.HandleMessage", trace.WithSpanKind(trace.SpanKindInternal))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	sess, err := b.sessions.Get(ctx, msg.From)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	b.metrics.MessageReceived(ctx, string(sess.Step))
	logger.Log.Info().
		Str("phone_hash", phoneHash).
		Str("step", string(sess.Step)).
		Str("text", logger.SanitizeText(msg.Text)).
		Msg("User input")

	turn := b.engine.Step(sess, Input{
		MessageID: msg.ID,
		Name:      b.displayName(msg),
		Text:      msg.Text,
		Now:       b.now(),
	})

	span.SetAttributes(
		attribute.String("bot.step.from", string(sess.Step)),
		attribute.String("bot.step.to", string(turn.Next.Step)),
	)

	// Append before resetting the session: if the append fails the sender is
	// still in confirm and can answer again.
	if turn.Commit != nil {
		if err := b.expenses.Append(ctx, turn.Commit); err != nil {
			return fmt.Errorf("failed to append expense: %w", err)
		}
		b.metrics.ExpenseCommitted(ctx, string(turn.Commit.Category))
		logger.Log.Info().
			Str("phone_hash", phoneHash).
			Str("expense_id", turn.Commit.ID).
			Str("category", string(turn.Commit.Category)).
			Str("note", logger.SanitizeDescription(turn.Commit.Note)).
			Msg("Expense recorded")
	}

	if err := b.sessions.Set(ctx, msg.From, turn.Next); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if err := b.notifier.Send(ctx, msg.From, turn.Reply); err != nil {
		b.metrics.NotifyFailed(ctx)
		logger.Log.Error().
			Err(err).
			Str("phone_hash", phoneHash).
			Str("step", string(turn.Next.Step)).
			Msg("Failed to send reply")
	}

	return nil
}

func (b *Bot) displayName(msg Message) string {
	if name := b.cfg.DisplayName(msg.From); name != "" {
		return name
	}
	return strings.TrimSpace(msg.ProfileName)
}

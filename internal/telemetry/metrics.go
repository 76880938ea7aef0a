package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BotMetrics holds the counters recorded by the conversation service.
type BotMetrics struct {
	received  metric.Int64Counter
	rejected  metric.Int64Counter
	committed metric.Int64Counter
	notifyErr metric.Int64Counter
}

// NewBotMetrics registers the bot counters on meter.
func NewBotMetrics(meter metric.Meter) (*BotMetrics, error) {
	received, err := meter.Int64Counter("bot.messages.received",
		metric.WithDescription("Inbound messages accepted for processing"))
	if err != nil {
		return nil, fmt.Errorf("failed to create received counter: %w", err)
	}

	rejected, err := meter.Int64Counter("bot.messages.rejected",
		metric.WithDescription("Inbound messages dropped before processing"))
	if err != nil {
		return nil, fmt.Errorf("failed to create rejected counter: %w", err)
	}

	committed, err := meter.Int64Counter("bot.expenses.committed",
		metric.WithDescription("Expense records appended"))
	if err != nil {
		return nil, fmt.Errorf("failed to create committed counter: %w", err)
	}

	notifyErr, err := meter.Int64Counter("bot.notify.failures",
		metric.WithDescription("Replies that could not be delivered"))
	if err != nil {
		return nil, fmt.Errorf("failed to create notify failure counter: %w", err)
	}

	return &BotMetrics{
		received:  received,
		rejected:  rejected,
		committed: committed,
		notifyErr: notifyErr,
	}, nil
}

// MessageReceived counts a message that entered the state machine.
func (m *BotMetrics) MessageReceived(ctx context.Context, step string) {
	m.received.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step)))
}

// MessageRejected counts a message dropped for reason ("not_allowed", "duplicate").
func (m *BotMetrics) MessageRejected(ctx context.Context, reason string) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// ExpenseCommitted counts an appended expense record.
func (m *BotMetrics) ExpenseCommitted(ctx context.Context, category string) {
	m.committed.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))
}

// NotifyFailed counts a reply that was dropped after the send failed.
func (m *BotMetrics) NotifyFailed(ctx context.Context) {
	m.notifyErr.Add(ctx, 1)
}

// Package whatsapp talks to the WhatsApp Cloud API: it sends text replies
// through the Graph API and decodes inbound webhook deliveries.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gitlab.com/yelinaung/egresos-bot/internal/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBaseURL is the Graph API version the client targets by default.
const DefaultBaseURL = "https://graph.facebook.com/v20.0"

const (
	defaultTimeout    = 10 * time.Second
	defaultRetryDelay = 500 * time.Millisecond
	maxErrorBody      = 4 << 10
)

// Client sends text messages from one business phone number.
type Client struct {
	baseURL       string
	phoneNumberID string
	token         string
	httpClient    *http.Client
	retryDelay    time.Duration
}

type textBody struct {
	Body string `json:"body"`
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

// StatusError is returned when the Graph API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graph API returned status %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a Graph API client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, phoneNumberID, token string) *Client {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}

	return &Client{
		baseURL:       trimmed,
		phoneNumberID: phoneNumberID,
		token:         token,
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		retryDelay: defaultRetryDelay,
	}
}

// Send delivers text to the given phone number. Network errors and 5xx or
// 429 responses are retried once.
func (c *Client) Send(ctx context.Context, to, text string) error {
	payload, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: text},
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	err = c.post(ctx, payload)
	if err == nil || !shouldRetry(err) {
		return err
	}

	logger.Log.Warn().
		Err(err).
		Str("phone_hash", logger.HashPhone(to)).
		Msg("Send failed, retrying once")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.retryDelay):
	}

	return c.post(ctx, payload)
}

func (c *Client) post(ctx context.Context, payload []byte) error {
	endpoint := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

package whatsapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNoMessage is returned when a delivery carries no inbound message, as
// with status callbacks.
var ErrNoMessage = errors.New("delivery has no message")

// Envelope is the webhook delivery body. Only the fields the bot reads are
// decoded.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups the changes for one business account.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is one webhook field update.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value holds the inbound messages of a change.
type Value struct {
	MessagingProduct string           `json:"messaging_product"`
	Contacts         []Contact        `json:"contacts"`
	Messages         []InboundMessage `json:"messages"`
}

// Contact is the profile of a sender.
type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// InboundMessage is a message received from a user.
type InboundMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

// Body returns the message text, or "" for non-text messages.
func (m InboundMessage) Body() string {
	if m.Text == nil {
		return ""
	}
	return m.Text.Body
}

// DecodeEnvelope reads a webhook delivery body.
func DecodeEnvelope(r io.Reader) (*Envelope, error) {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode webhook body: %w", err)
	}
	return &env, nil
}

// FirstMessage returns the first message of the first change of the first
// entry. Any further messages in the delivery are ignored.
func (e *Envelope) FirstMessage() (InboundMessage, error) {
	if len(e.Entry) == 0 || len(e.Entry[0].Changes) == 0 {
		return InboundMessage{}, ErrNoMessage
	}
	msgs := e.Entry[0].Changes[0].Value.Messages
	if len(msgs) == 0 {
		return InboundMessage{}, ErrNoMessage
	}
	return msgs[0], nil
}

// ProfileName returns the profile name the delivery carries for waID, or ""
// when there is none.
func (e *Envelope) ProfileName(waID string) string {
	if len(e.Entry) == 0 || len(e.Entry[0].Changes) == 0 {
		return ""
	}
	for _, c := range e.Entry[0].Changes[0].Value.Contacts {
		if c.WaID == waID {
			return c.Profile.Name
		}
	}
	return ""
}

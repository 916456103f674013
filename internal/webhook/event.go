package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is one webhook delivery. It lives for the duration of a request.
type Event struct {
	Topic      Topic
	ID         string
	Payload    map[string]any
	ReceivedAt time.Time
	// Verified is set when the delivery signature was checked and matched.
	Verified bool
}

// ParseEvent decodes a delivery body, which must be a JSON object. An
// empty body is an empty payload. Deliveries without an event id get a
// generated one so logs can still be correlated.
func ParseEvent(topic, eventID string, body []byte, receivedAt time.Time) (*Event, error) {
	payload := map[string]any{}
	if len(bytes.TrimSpace(body)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		if payload == nil {
			payload = map[string]any{}
		}
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}
	return &Event{
		Topic:      Topic(strings.TrimSpace(topic)),
		ID:         eventID,
		Payload:    payload,
		ReceivedAt: receivedAt,
	}, nil
}

// String returns a payload field rendered as a string, or "".
func (e *Event) String(key string) string {
	switch v := e.Payload[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return fmt.Sprintf("%t", v)
	}
	return ""
}

// Object returns a nested payload object, or nil.
func (e *Event) Object(key string) map[string]any {
	m, _ := e.Payload[key].(map[string]any)
	return m
}

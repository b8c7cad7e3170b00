package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// RefreshMessage asks every dashboard instance to drop its cached dataset.
type RefreshMessage struct {
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRefreshMessage creates a refresh message stamped with the current time.
func NewRefreshMessage(reason string) *RefreshMessage {
	return &RefreshMessage{
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON decodes a message. A missing timestamp is rejected.
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Timestamp.IsZero() {
		return nil, errors.New("refresh message without timestamp")
	}
	return &msg, nil
}

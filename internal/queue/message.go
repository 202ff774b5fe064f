package queue

import "encoding/json"

// MessageVersion is bumped whenever Message changes shape.
const MessageVersion = 1

// Message announces a saved diagnosis result to downstream consumers.
type Message struct {
	ResultID   string `json:"resultId"`
	UserID     string `json:"userId"`
	SessionID  string `json:"sessionId"`
	Stage      int    `json:"stage"`
	RequestID  string `json:"requestId,omitempty"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

package queue

import (
	"context"

	"scalp-backend/internal/shared/telemetry"
)

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// LogClient writes messages to the structured log instead of a queue.
type LogClient struct{}

// Send logs msg.
func (LogClient) Send(ctx context.Context, msg Message) error {
	telemetry.Info("queue.message", map[string]any{
		"result_id":  msg.ResultID,
		"user_id":    msg.UserID,
		"session_id": msg.SessionID,
		"stage":      msg.Stage,
		"request_id": msg.RequestID,
		"version":    msg.Version,
	})
	return nil
}

var _ Client = LogClient{}

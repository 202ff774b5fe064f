package results

import (
	"errors"
	"time"

	"scalp-backend/internal/dispatch"
	"scalp-backend/internal/survey"
)

var ErrNotFound = errors.New("result not found")

// Record is a diagnosis saved for an authenticated user.
type Record struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	SessionID string          `json:"sessionId"`
	Survey    survey.Answers  `json:"survey"`
	Result    dispatch.Result `json:"result"`
	CreatedAt time.Time       `json:"createdAt"`
}

package results

import "context"

// Repo defines persistence operations for saved results.
type Repo interface {
	Create(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, resultID string) (Record, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Record, error)
}

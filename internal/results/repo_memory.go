package results

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores results in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Record
	byUser map[string][]Record
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Record),
		byUser: make(map[string][]Record),
	}
}

// Create stores the record.
func (r *MemoryRepo) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rec.ID] = rec
	r.byUser[rec.UserID] = append(r.byUser[rec.UserID], rec)
	return nil
}

// GetByID returns a record by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, resultID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[resultID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// ListByUser returns records for a user, newest first, with limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	userRecords := r.byUser[userID]
	r.mu.RUnlock()

	if len(userRecords) == 0 || offset >= len(userRecords) {
		return []Record{}, nil
	}

	out := make([]Record, len(userRecords))
	copy(out, userRecords)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)

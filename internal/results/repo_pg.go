package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new result.
func (r *PGRepo) Create(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO diagnosis_results (id, user_id, session_id, stage, survey, result, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	surveyPayload, err := json.Marshal(rec.Survey)
	if err != nil {
		return fmt.Errorf("encode survey: %w", err)
	}
	resultPayload, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.SessionID,
		rec.Result.Stage,
		string(surveyPayload),
		string(resultPayload),
		rec.CreatedAt,
	)
	return err
}

const selectColumns = `SELECT id, user_id, session_id, survey, result, created_at FROM diagnosis_results`

// GetByID returns a result by ID.
func (r *PGRepo) GetByID(ctx context.Context, resultID string) (Record, error) {
	row := r.DB.QueryRowContext(ctx, selectColumns+` WHERE id = $1 LIMIT 1`, resultID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// ListByUser returns results for a user, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, selectColumns+`
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var rec Record
	var surveyRaw, resultRaw []byte
	if err := s.Scan(&rec.ID, &rec.UserID, &rec.SessionID, &surveyRaw, &resultRaw, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	if len(surveyRaw) > 0 {
		if err := json.Unmarshal(surveyRaw, &rec.Survey); err != nil {
			return Record{}, fmt.Errorf("decode survey: %w", err)
		}
	}
	if len(resultRaw) > 0 {
		if err := json.Unmarshal(resultRaw, &rec.Result); err != nil {
			return Record{}, fmt.Errorf("decode result: %w", err)
		}
	}
	if rec.Result.Advice == nil {
		rec.Result.Advice = []string{}
	}
	return rec, nil
}

var _ Repo = (*PGRepo)(nil)

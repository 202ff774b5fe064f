package profile

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"scalp-backend/internal/shared/auth"
	"scalp-backend/internal/shared/remote"
)

var ErrNotFound = errors.New("profile not found")

// Source loads a stored profile for an authenticated caller.
type Source interface {
	Fetch(ctx context.Context, id auth.Identity) (Record, error)
}

// Writer persists a profile for later pre-fill.
type Writer interface {
	Save(ctx context.Context, userID string, rec Record) error
}

// HTTPSource reads profiles from <BaseURL>/<userID> with the caller's token.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, id auth.Identity) (Record, error) {
	endpoint := strings.TrimRight(s.BaseURL, "/") + "/" + url.PathEscape(id.UserID)
	body, err := remote.Get(ctx, s.Client, "profile fetch", endpoint, id.Bearer())
	if err != nil {
		var statusErr *remote.StatusError
		if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return ParseRecord(body), nil
}

// PGStore keeps profiles in the survey_profiles table.
type PGStore struct {
	DB *sql.DB
}

// Fetch implements Source.
func (s *PGStore) Fetch(ctx context.Context, id auth.Identity) (Record, error) {
	const query = `
SELECT gender, age, family_history, recent_hair_loss, stress_level
FROM survey_profiles
WHERE user_id = $1
LIMIT 1`
	var (
		gender, familyHistory, recentHairLoss, stressLevel sql.NullString
		age                                                sql.NullInt64
	)
	err := s.DB.QueryRowContext(ctx, query, id.UserID).Scan(&gender, &age, &familyHistory, &recentHairLoss, &stressLevel)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}

	rec := Record{
		Gender:                gender.String,
		FamilyHistory:         familyHistory.String,
		RecentHairLossSymptom: recentHairLoss.String,
		StressLevel:           stressLevel.String,
	}
	if age.Valid {
		v := int(age.Int64)
		rec.Age = &v
	}
	return rec, nil
}

// Save implements Writer.
func (s *PGStore) Save(ctx context.Context, userID string, rec Record) error {
	const query = `
INSERT INTO survey_profiles (user_id, gender, age, family_history, recent_hair_loss, stress_level, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id) DO UPDATE SET
	gender = EXCLUDED.gender,
	age = EXCLUDED.age,
	family_history = EXCLUDED.family_history,
	recent_hair_loss = EXCLUDED.recent_hair_loss,
	stress_level = EXCLUDED.stress_level,
	updated_at = EXCLUDED.updated_at`
	var age any
	if rec.Age != nil {
		age = int64(*rec.Age)
	}
	_, err := s.DB.ExecContext(ctx, query,
		userID,
		nullable(rec.Gender),
		age,
		nullable(rec.FamilyHistory),
		nullable(rec.RecentHairLossSymptom),
		nullable(rec.StressLevel),
		time.Now().UTC(),
	)
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var (
	_ Source = (*HTTPSource)(nil)
	_ Source = (*PGStore)(nil)
	_ Writer = (*PGStore)(nil)
)

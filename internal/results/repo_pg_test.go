package results

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"scalp-backend/internal/dispatch"
	"scalp-backend/internal/survey"
)

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	rec := Record{
		ID:        "result-1",
		UserID:    "user-1",
		SessionID: "session-1",
		Survey:    survey.Answers{Gender: "male", Age: "35"},
		Result:    dispatch.Result{Stage: 2, Title: "Moderate", Advice: []string{"a"}},
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO diagnosis_results").
		WithArgs(rec.ID, rec.UserID, rec.SessionID, 2, sqlmock.AnyArg(), sqlmock.AnyArg(), rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "session_id", "survey", "result", "created_at"}).
		AddRow("result-1", "user-1", "session-1",
			[]byte(`{"gender":"female","age":"28"}`),
			[]byte(`{"stage":1,"title":"Early","description":"d","advice":null}`),
			created)
	mock.ExpectQuery("SELECT id, user_id, session_id, survey, result, created_at FROM diagnosis_results").
		WithArgs("result-1").
		WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	rec, err := repo.GetByID(context.Background(), "result-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec.Survey.Gender != "female" || rec.Result.Stage != 1 || rec.Result.Advice == nil {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !rec.CreatedAt.Equal(created) {
		t.Fatalf("unexpected created_at: %v", rec.CreatedAt)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("FROM diagnosis_results").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	repo := &PGRepo{DB: db}
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoListByUserDefaultsLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("FROM diagnosis_results").
		WithArgs("user-1", 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "session_id", "survey", "result", "created_at"}))

	repo := &PGRepo{DB: db}
	out, err := repo.ListByUser(context.Background(), "user-1", 0, -3)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty list, got %d", len(out))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

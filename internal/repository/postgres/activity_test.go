package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kindlight/protection-core/internal/domain"
)

func TestActivityRepo_History(t *testing.T) {
	f, mock := setupFamily(t)
	repo := NewActivityRepo(f)

	at := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, subject_id, occurred_at").
		WithArgs("child-42", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "subject_id", "occurred_at", "entry_type", "metadata"}).
			AddRow("a-1", "child-42", at, "browse", []byte(`{"host":"example.org"}`)))

	got, err := repo.History(context.Background(), "child-42", at.Add(-time.Hour), at.Add(time.Hour))
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 1 || got[0].Metadata["host"] != "example.org" {
		t.Errorf("history = %+v", got)
	}
}

func TestActivityRepo_InsertEntries_SingleTx(t *testing.T) {
	f, mock := setupFamily(t)
	repo := NewActivityRepo(f)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO activity_entries")
	mock.ExpectExec("INSERT INTO activity_entries").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activity_entries").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	at := time.Now().UTC()
	err := repo.InsertEntries(context.Background(), []domain.ActivityEntry{
		{ID: "a-1", SubjectID: "child-42", Timestamp: at, Type: domain.ActivityBrowse},
		{ID: "a-2", SubjectID: "child-42", Timestamp: at.Add(time.Minute), Type: domain.ActivityVideo},
	})
	if err != nil {
		t.Fatalf("InsertEntries: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestActivityRepo_InsertEntries_EmptyIsNoop(t *testing.T) {
	f, mock := setupFamily(t)
	repo := NewActivityRepo(f)

	if err := repo.InsertEntries(context.Background(), nil); err != nil {
		t.Fatalf("InsertEntries: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*AuditRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	repo := NewAuditRepository(db)
	repo.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return repo, mock, func() { _ = db.Close() }
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(schemaLockID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS file_audit").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaRollsBackOnDDLError(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS file_audit").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	if err := repo.EnsureSchema(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordInsertsAnalyzedFile(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	record := domain.AuditRecord{
		RunID:       "run-1",
		FileName:    "report.pdf",
		SourcePath:  "/in/report.pdf",
		Destination: "/out/Documents/Work/report.pdf",
		Attributes: domain.FileAttributes{
			domain.AttrFileSize:     int64(42),
			domain.AttrFileType:     ".pdf",
			domain.AttrMimeType:     "application/pdf",
			domain.AttrIsExecutable: false,
		},
		LLMResponse: "Documents/Work",
		Category:    "Documents",
		Subcategory: "Work",
	}

	mock.ExpectExec("INSERT INTO file_audit").
		WithArgs(
			"run-1", "report.pdf", "/in/report.pdf",
			sql.NullString{String: "/out/Documents/Work/report.pdf", Valid: true},
			sql.NullInt64{Int64: 42, Valid: true},
			sql.NullString{String: ".pdf", Valid: true},
			sql.NullString{String: "application/pdf", Valid: true},
			sql.NullBool{Bool: false, Valid: true},
			sqlmock.AnyArg(), "Documents/Work", "Documents", "Work", false, "",
			time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Record(context.Background(), record); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordStoresNullAttributesForFailedAnalysis(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO file_audit").
		WithArgs(
			"run-1", "broken.bin", "/in/broken.bin", sql.NullString{},
			sql.NullInt64{}, sql.NullString{}, sql.NullString{}, sql.NullBool{},
			sqlmock.AnyArg(), "", "", "", true, "analyze: permission denied", sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Record(context.Background(), domain.AuditRecord{
		RunID:      "run-1",
		FileName:   "broken.bin",
		SourcePath: "/in/broken.bin",
		DryRun:     true,
		Error:      "analyze: permission denied",
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCountByCategory(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT category, COUNT").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"category", "count"}).AddRow("Documents", 3).AddRow("Other", 1))

	counts, err := repo.CountByCategory(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("CountByCategory() error = %v", err)
	}
	if counts["Documents"] != 3 || counts["Other"] != 1 || len(counts) != 2 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

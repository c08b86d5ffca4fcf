package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
)

const schemaLockID = int64(2024061501)

// AuditRepository stores audit records in the file_audit table.
type AuditRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db, now: time.Now}
}

func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Several organizer instances may share one database.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS file_audit (
	id BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	source_path TEXT NOT NULL,
	destination TEXT,
	file_size BIGINT,
	file_type TEXT,
	mime_type TEXT,
	is_executable BOOLEAN,
	file_info JSONB,
	llm_response TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	sub_category TEXT NOT NULL DEFAULT '',
	dry_run BOOLEAN NOT NULL DEFAULT FALSE,
	error TEXT NOT NULL DEFAULT '',
	recorded_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_file_audit_run_id ON file_audit(run_id);
CREATE INDEX IF NOT EXISTS idx_file_audit_recorded_at ON file_audit(recorded_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AuditRepository) Record(ctx context.Context, record domain.AuditRecord) error {
	recordedAt := record.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = r.now()
	}

	var (
		infoJSON   []byte
		size       sql.NullInt64
		fileType   sql.NullString
		mimeType   sql.NullString
		executable sql.NullBool
	)
	if attrs := record.Attributes; attrs != nil {
		raw, err := json.Marshal(attrs)
		if err != nil {
			return fmt.Errorf("marshal file info: %w", err)
		}
		infoJSON = raw
		size = sql.NullInt64{Int64: attrs.Size(), Valid: true}
		fileType = sql.NullString{String: attrs.FileType(), Valid: true}
		mimeType = sql.NullString{String: attrs.MimeType(), Valid: true}
		executable = sql.NullBool{Bool: attrs.IsExecutable(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO file_audit (
	run_id, file_name, source_path, destination, file_size, file_type, mime_type, is_executable,
	file_info, llm_response, category, sub_category, dry_run, error, recorded_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		record.RunID, record.FileName, record.SourcePath, nullString(record.Destination), size, fileType, mimeType, executable,
		infoJSON, record.LLMResponse, record.Category, record.Subcategory, record.DryRun, record.Error, recordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert file audit: %w", err)
	}
	return nil
}

// CountByCategory returns processed file counts for one run, failures excluded.
func (r *AuditRepository) CountByCategory(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT category, COUNT(*)
FROM file_audit
WHERE run_id = $1 AND error = ''
GROUP BY category
`, runID)
	if err != nil {
		return nil, fmt.Errorf("query file audit: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan file audit: %w", err)
		}
		counts[category] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file audit: %w", err)
	}
	return counts, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

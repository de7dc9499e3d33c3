package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fusepool/sedsvc/internal/model"

	_ "modernc.org/sqlite"
)

const createTransformationsTable = `
CREATE TABLE IF NOT EXISTS transformations (
    id           TEXT PRIMARY KEY,
    status       TEXT NOT NULL,
    script       TEXT NOT NULL,
    content_type TEXT,
    output_type  TEXT,
    output_bytes INTEGER NOT NULL DEFAULT 0,
    error        TEXT,
    duration_ms  INTEGER NOT NULL DEFAULT 0,
    created_at   DATETIME NOT NULL,
    finished_at  DATETIME NOT NULL
)`

// Compile-time interface satisfaction check.
var _ Archive = (*SQLiteArchive)(nil)

// SQLiteArchive implements Archive using SQLite.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive opens the SQLite database at dbPath and runs migrations.
func NewSQLiteArchive(dbPath string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createTransformationsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create transformations table: %w", err)
	}

	return &SQLiteArchive{db: db}, nil
}

// Close closes the underlying database connection.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

// Record inserts the outcome of a terminal job. Jobs that have not
// finished yet are rejected: the archive only holds completed history.
func (a *SQLiteArchive) Record(ctx context.Context, job *model.Job) error {
	if !model.Terminal(job.Status) || job.FinishedAt == nil {
		return fmt.Errorf("job %s is not terminal", job.ID)
	}

	durationMS := 0
	if job.DurationMS != nil {
		durationMS = *job.DurationMS
	}

	_, err := a.db.ExecContext(ctx,
		`INSERT INTO transformations (
			id, status, script, content_type, output_type,
			output_bytes, error, duration_ms, created_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Status, job.Script, job.ContentType, job.OutputType,
		len(job.Output), job.Error, durationMS, job.CreatedAt, *job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transformation: %w", err)
	}
	return nil
}

// List returns a paginated list of archived outcomes ordered by created_at
// DESC, along with the total count of all records.
func (a *SQLiteArchive) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	tx, err := a.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM transformations").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transformations: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, status, script, content_type, output_type,
			output_bytes, error, duration_ms, created_at, finished_at
		FROM transformations ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list transformations: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(
			&e.ID, &e.Status, &e.Script, &e.ContentType, &e.OutputType,
			&e.OutputBytes, &e.Error, &e.DurationMS, &e.CreatedAt, &e.FinishedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan transformation: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transformations: %w", err)
	}

	return entries, total, nil
}

// Stats returns aggregate counts and the mean duration across all records.
func (a *SQLiteArchive) Stats(ctx context.Context) (*Stats, error) {
	tx, err := a.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	stats := &Stats{CountByStatus: make(map[string]int)}

	rows, err := tx.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM transformations GROUP BY status",
	)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.CountByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	var avg sql.NullFloat64
	if err := tx.QueryRowContext(ctx,
		"SELECT AVG(duration_ms) FROM transformations",
	).Scan(&avg); err != nil {
		return nil, fmt.Errorf("average duration: %w", err)
	}
	if avg.Valid {
		stats.AvgDurationMS = avg.Float64
	}

	return stats, nil
}

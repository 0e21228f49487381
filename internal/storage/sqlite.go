package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"tenderscan/models"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database tables if they don't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pdf_path TEXT NOT NULL,
		model TEXT,
		page_count INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS run_records (
		run_id INTEGER NOT NULL,
		parameter TEXT NOT NULL,
		answer TEXT,
		details TEXT,
		source TEXT,
		score INTEGER NOT NULL,
		PRIMARY KEY (run_id, parameter),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_pdf_path ON runs(pdf_path);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun stores one analysis run with its output records.
func (s *SQLiteStore) SaveRun(ctx context.Context, pdfPath, model string, pageCount int, records map[string]models.OutputRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs (pdf_path, model, page_count)
		VALUES (?, ?, ?)
	`, pdfPath, model, pageCount)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	for parameter, rec := range records {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_records (run_id, parameter, answer, details, source, score)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, parameter, rec.Answer, rec.Details, rec.Source, rec.Score)
		if err != nil {
			return 0, fmt.Errorf("failed to insert record for %s: %w", parameter, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return runID, nil
}

// ListRuns returns all stored runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pdf_path, model, page_count, created_at
		FROM runs
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.PDFPath, &run.Model, &run.PageCount, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// RunRecords retrieves the output records of one run.
func (s *SQLiteStore) RunRecords(ctx context.Context, runID int64) (map[string]models.OutputRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT parameter, answer, details, source, score
		FROM run_records
		WHERE run_id = ?
		ORDER BY parameter
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run records: %w", err)
	}
	defer rows.Close()

	records := map[string]models.OutputRecord{}
	for rows.Next() {
		var parameter string
		var rec models.OutputRecord
		if err := rows.Scan(&parameter, &rec.Answer, &rec.Details, &rec.Source, &rec.Score); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records[parameter] = rec
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("run not found: %d", runID)
	}

	return records, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)

// Package storage persists analysis run history. Each run records the
// input document, its page count and one row per extracted parameter, so
// repeated analyses of the same tender can be compared over time.
package storage

import (
	"context"

	"tenderscan/models"
)

// Run is one persisted analysis run.
type Run struct {
	ID        int64
	PDFPath   string
	Model     string
	PageCount int
	CreatedAt string
}

// Store defines the interface for persisting analysis runs.
type Store interface {
	// SaveRun stores one analysis run with its output records and returns
	// the run ID.
	SaveRun(ctx context.Context, pdfPath, model string, pageCount int, records map[string]models.OutputRecord) (int64, error)

	// ListRuns returns all stored runs, newest first.
	ListRuns(ctx context.Context) ([]Run, error)

	// RunRecords retrieves the output records of one run.
	RunRecords(ctx context.Context, runID int64) (map[string]models.OutputRecord, error)

	// Close closes the underlying database.
	Close() error
}

package output

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenderscan/internal/logger"
	"tenderscan/models"
)

func sampleResults() []*models.ExtractionResult {
	return []*models.ExtractionResult{
		{
			Parameter:   "client_name",
			Value:       "עיריית חיפה",
			Details:     "הרשות המזמינה",
			Confidence:  0.85,
			SourcePages: []int{3, 1},
		},
		{
			Parameter:   "idea_author",
			Value:       models.NotFound,
			Details:     models.NotFound,
			Confidence:  0.0,
			SourcePages: nil,
		},
	}
}

func TestFormatResults(t *testing.T) {
	records := FormatResults(sampleResults())
	require.Len(t, records, 2)

	found := records["client_name"]
	assert.Equal(t, "עיריית חיפה", found.Answer)
	assert.Equal(t, "הרשות המזמינה", found.Details)
	assert.Equal(t, "עמוד 1, עמוד 3", found.Source)
	assert.Equal(t, 4, found.Score)

	missing := records["idea_author"]
	assert.Empty(t, missing.Answer)
	assert.Empty(t, missing.Details)
	assert.Equal(t, "לא נמצא", missing.Source)
	assert.Equal(t, 0, missing.Score)
}

func TestScoreFromConfidence(t *testing.T) {
	tests := []struct {
		confidence float64
		want       int
	}{
		{0.95, 5}, {0.9, 5},
		{0.85, 4}, {0.8, 4},
		{0.65, 3}, {0.6, 3},
		{0.45, 2}, {0.4, 2},
		{0.25, 1}, {0.2, 1},
		{0.05, 0}, {0.0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScoreFromConfidence(tt.confidence), "confidence %f", tt.confidence)
	}

	// Monotonic over the whole range.
	prev := 0
	for c := 0.0; c <= 1.0; c += 0.01 {
		got := ScoreFromConfidence(c)
		assert.GreaterOrEqual(t, got, prev, "score regressed at confidence %f", c)
		prev = got
	}
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "עמוד 7", SourceLabel(&models.ExtractionResult{
		Value: "v", SourcePages: []int{7},
	}))
	assert.Equal(t, "עמוד 2, עמוד 9, עמוד 14", SourceLabel(&models.ExtractionResult{
		Value: "v", SourcePages: []int{9, 2, 14},
	}))
	assert.Equal(t, "לא נמצא", SourceLabel(&models.ExtractionResult{
		Value: models.NotFound, SourcePages: []int{1},
	}))
	assert.Equal(t, "לא נמצא", SourceLabel(&models.ExtractionResult{
		Value: "v", SourcePages: nil,
	}))
}

func TestValidateJSON(t *testing.T) {
	records := FormatResults(sampleResults())
	assert.NoError(t, ValidateJSON(records))
}

func TestValidateJSON_RejectsOutOfRangeScore(t *testing.T) {
	records := map[string]models.OutputRecord{
		"client_name": {Answer: "a", Details: "d", Source: "s", Score: 9},
	}
	assert.Error(t, ValidateJSON(records))
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	f := NewFormatter(dir, logger.NewNoOpLogger())
	records := FormatResults(sampleResults())

	path, err := f.WriteJSON(records, time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "tender_analysis_results_20250601_123000.json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var back map[string]models.OutputRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, records, back)
	// Hebrew text stays readable, not \u escaped.
	assert.Contains(t, string(data), "עיריית חיפה")
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	f := NewFormatter(dir, logger.NewNoOpLogger())
	records := FormatResults(sampleResults())

	path, err := f.WriteCSV(records, time.Now())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(data), string(utf8BOM)), "CSV missing UTF-8 BOM")
	content := strings.TrimPrefix(string(data), string(utf8BOM))
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Parameter,Answer,Details,Source,Score", lines[0])
	assert.Contains(t, content, "Client Name")
	assert.Contains(t, content, "Idea Author")
	assert.Contains(t, content, "עיריית חיפה")
}

func TestWriteXLSX(t *testing.T) {
	dir := t.TempDir()
	f := NewFormatter(dir, logger.NewNoOpLogger())
	records := FormatResults(sampleResults())

	path, err := f.WriteXLSX(records, time.Now())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
	assert.True(t, strings.HasSuffix(path, ".xlsx"))
}

func TestBuildSummaryReport(t *testing.T) {
	records := FormatResults(sampleResults())
	report := BuildSummaryReport(records, time.Now())

	assert.Contains(t, report, "TENDER DOCUMENT ANALYSIS REPORT")
	assert.Contains(t, report, "Client Name: עיריית חיפה")
	assert.Contains(t, report, "Idea Author: NOT FOUND (Score: 0/5)")
	assert.Contains(t, report, "Total parameters: 2")
	assert.Contains(t, report, "Parameters found: 1")
	assert.Contains(t, report, "Success rate: 50.0%")
}

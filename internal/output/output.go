// Package output turns extraction results into the final per-parameter
// records and persists them: a schema-validated JSON file, a plain-text
// summary report, a CSV export readable by Hebrew-locale spreadsheet tools,
// and an XLSX workbook.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/xuri/excelize/v2"

	"tenderscan/internal/logger"
	"tenderscan/models"
)

// timestampLayout names output files uniquely per run.
const timestampLayout = "20060102_150405"

// utf8BOM makes Excel detect UTF-8 in CSV exports; without it Hebrew text
// renders as mojibake.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FormatResults converts extraction results into the final output records,
// keyed by parameter name. Not-found extractions produce empty answer and
// details fields with score 0.
func FormatResults(results []*models.ExtractionResult) map[string]models.OutputRecord {
	out := make(map[string]models.OutputRecord, len(results))
	for _, r := range results {
		record := models.OutputRecord{
			Source: SourceLabel(r),
			Score:  ScoreFromConfidence(r.Confidence),
		}
		if r.Found() {
			record.Answer = r.Value
			record.Details = r.Details
		}
		out[r.Parameter] = record
	}
	return out
}

// ScoreFromConfidence buckets a confidence in [0,1] into the 0-5 scale.
func ScoreFromConfidence(confidence float64) int {
	switch {
	case confidence >= 0.9:
		return 5
	case confidence >= 0.8:
		return 4
	case confidence >= 0.6:
		return 3
	case confidence >= 0.4:
		return 2
	case confidence >= 0.2:
		return 1
	default:
		return 0
	}
}

// SourceLabel renders the source pages in Hebrew, "עמוד N" per page joined
// with commas. Results with no value or no pages label as not found.
func SourceLabel(r *models.ExtractionResult) string {
	if !r.Found() || len(r.SourcePages) == 0 {
		return "לא נמצא"
	}
	pages := append([]int(nil), r.SourcePages...)
	sort.Ints(pages)

	labels := make([]string, 0, len(pages))
	for _, p := range pages {
		labels = append(labels, fmt.Sprintf("עמוד %d", p))
	}
	return strings.Join(labels, ", ")
}

// recordSchema constrains every output record: the four fields are
// mandatory and score is an integer from 0 to 5.
var recordSchema = map[string]any{
	"type": "object",
	"additionalProperties": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer":  map[string]any{"type": "string"},
			"details": map[string]any{"type": "string"},
			"source":  map[string]any{"type": "string"},
			"score":   map[string]any{"type": "integer", "minimum": 0, "maximum": 5},
		},
		"required":             []any{"answer", "details", "source", "score"},
		"additionalProperties": false,
	},
}

// ValidateJSON checks the formatted records against the output schema.
func ValidateJSON(records map[string]models.OutputRecord) error {
	schemaJSON, err := json.Marshal(recordSchema)
	if err != nil {
		return fmt.Errorf("marshaling output schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("results.json", bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("loading output schema: %w", err)
	}
	schema, err := compiler.Compile("results.json")
	if err != nil {
		return fmt.Errorf("compiling output schema: %w", err)
	}

	// Round-trip through generic JSON so the validator sees the wire shape.
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("unmarshaling results: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		return fmt.Errorf("output validation failed: %w", err)
	}
	return nil
}

// Formatter writes result files into the configured output directory.
type Formatter struct {
	outputDir string
	log       logger.Logger
}

// NewFormatter creates a formatter writing into outputDir.
func NewFormatter(outputDir string, log logger.Logger) *Formatter {
	return &Formatter{outputDir: outputDir, log: log}
}

func (f *Formatter) path(prefix, ext string, now time.Time) (string, error) {
	if err := os.MkdirAll(f.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	name := fmt.Sprintf("%s_%s.%s", prefix, now.Format(timestampLayout), ext)
	return filepath.Join(f.outputDir, name), nil
}

// WriteJSON writes the records as indented UTF-8 JSON and returns the path.
func (f *Formatter) WriteJSON(records map[string]models.OutputRecord, now time.Time) (string, error) {
	path, err := f.path("tender_analysis_results", "json", now)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return "", fmt.Errorf("encoding results: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing results file: %w", err)
	}
	f.log.Info("results written to %s", path)
	return path, nil
}

// WriteSummary writes the human-readable report and returns the path.
func (f *Formatter) WriteSummary(records map[string]models.OutputRecord, now time.Time) (string, error) {
	path, err := f.path("tender_analysis_summary", "txt", now)
	if err != nil {
		return "", err
	}
	report := BuildSummaryReport(records, now)
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return "", fmt.Errorf("writing summary report: %w", err)
	}
	f.log.Info("summary report written to %s", path)
	return path, nil
}

// WriteCSV writes a BOM-prefixed CSV export and returns the path.
func (f *Formatter) WriteCSV(records map[string]models.OutputRecord, now time.Time) (string, error) {
	path, err := f.path("tender_analysis_export", "csv", now)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Parameter", "Answer", "Details", "Source", "Score"}); err != nil {
		return "", fmt.Errorf("writing CSV header: %w", err)
	}
	for _, param := range sortedKeys(records) {
		rec := records[param]
		row := []string{
			displayName(param),
			rec.Answer,
			rec.Details,
			rec.Source,
			fmt.Sprintf("%d", rec.Score),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("writing CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing CSV: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing CSV file: %w", err)
	}
	f.log.Info("CSV export written to %s", path)
	return path, nil
}

// WriteXLSX writes an Excel workbook with one Results sheet and returns the
// path.
func (f *Formatter) WriteXLSX(records map[string]models.OutputRecord, now time.Time) (string, error) {
	path, err := f.path("tender_analysis_export", "xlsx", now)
	if err != nil {
		return "", err
	}

	wb := excelize.NewFile()
	defer wb.Close()

	const sheet = "Results"
	index, err := wb.NewSheet(sheet)
	if err != nil {
		return "", fmt.Errorf("creating worksheet: %w", err)
	}
	wb.SetActiveSheet(index)
	if err := wb.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("removing default worksheet: %w", err)
	}

	header := []any{"Parameter", "Answer", "Details", "Source", "Score"}
	if err := wb.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", fmt.Errorf("writing worksheet header: %w", err)
	}
	for i, param := range sortedKeys(records) {
		rec := records[param]
		row := []any{displayName(param), rec.Answer, rec.Details, rec.Source, rec.Score}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", fmt.Errorf("computing cell name: %w", err)
		}
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			return "", fmt.Errorf("writing worksheet row: %w", err)
		}
	}

	if err := wb.SaveAs(path); err != nil {
		return "", fmt.Errorf("saving workbook: %w", err)
	}
	f.log.Info("XLSX export written to %s", path)
	return path, nil
}

// BuildSummaryReport renders the plain-text analysis report.
func BuildSummaryReport(records map[string]models.OutputRecord, now time.Time) string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)

	b.WriteString(rule + "\n")
	b.WriteString("TENDER DOCUMENT ANALYSIS REPORT\n")
	b.WriteString(rule + "\n\n")
	b.WriteString("Generated: " + now.Format(time.RFC3339) + "\n\n")

	b.WriteString("EXTRACTION RESULTS:\n")
	b.WriteString(strings.Repeat("-", 20) + "\n")
	for _, param := range sortedKeys(records) {
		rec := records[param]
		name := displayName(param)
		if rec.Score > 0 && rec.Answer != "" {
			fmt.Fprintf(&b, "%s: %s\n", name, rec.Answer)
			if rec.Details != "" {
				fmt.Fprintf(&b, "  Details: %s\n", rec.Details)
			}
			fmt.Fprintf(&b, "  Source: %s (Score: %d/5)\n", rec.Source, rec.Score)
		} else {
			fmt.Fprintf(&b, "%s: NOT FOUND (Score: 0/5)\n", name)
		}
		b.WriteString("\n")
	}

	total := len(records)
	found := 0
	scoreSum := 0
	for _, rec := range records {
		if rec.Score > 0 {
			found++
		}
		scoreSum += rec.Score
	}
	successRate := 0.0
	avgScore := 0.0
	if total > 0 {
		successRate = float64(found) / float64(total)
		avgScore = float64(scoreSum) / float64(total)
	}

	b.WriteString("SUMMARY:\n")
	b.WriteString(strings.Repeat("-", 20) + "\n")
	fmt.Fprintf(&b, "Total parameters: %d\n", total)
	fmt.Fprintf(&b, "Parameters found: %d\n", found)
	fmt.Fprintf(&b, "Success rate: %.1f%%\n", successRate*100)
	fmt.Fprintf(&b, "Average score: %.1f/5\n", avgScore)
	b.WriteString("\n" + rule + "\n")
	return b.String()
}

func sortedKeys(records map[string]models.OutputRecord) []string {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// displayName turns a snake_case parameter name into a readable title.
func displayName(parameter string) string {
	words := strings.Split(strings.ReplaceAll(parameter, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

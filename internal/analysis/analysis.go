// Package analysis runs the full tender document pipeline: extract pages,
// classify them, match parameters to pages, build prompts, run the LLM
// extractions, and write the output files.
package analysis

import (
	"context"
	"fmt"
	"time"

	"tenderscan/internal/classify"
	"tenderscan/internal/config"
	"tenderscan/internal/extract"
	"tenderscan/internal/keywords"
	"tenderscan/internal/logger"
	"tenderscan/internal/match"
	"tenderscan/internal/output"
	"tenderscan/internal/pdf"
	"tenderscan/internal/prompt"
	"tenderscan/internal/storage"
	"tenderscan/models"
)

// Result summarizes one completed run for console reporting.
type Result struct {
	Records     map[string]models.OutputRecord
	PageCount   int
	ResultsPath string
	SummaryPath string
	CSVPath     string
	XLSXPath    string
	RunID       int64
	Elapsed     time.Duration
}

// Run executes the complete pipeline for the configured document.
func Run(ctx context.Context, cfg *config.Config, log logger.Logger) (*Result, error) {
	started := time.Now()

	apiKey, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}

	pages, err := pdf.ExtractPages(cfg.PDFInputPath, cfg.PageOverlapChars, log)
	if err != nil {
		return nil, fmt.Errorf("document parsing failed: %w", err)
	}
	summary := pdf.Summarize(pages)
	log.Info("document parsed: %d pages, %d non-empty, %.0f avg words",
		summary.TotalPages, summary.NonEmptyPages, summary.AvgWords)

	parameters, err := match.LoadParameters(cfg.ParametersJSONPath)
	if err != nil {
		return nil, err
	}
	if len(parameters) == 0 {
		return nil, fmt.Errorf("parameters file %s lists no parameters", cfg.ParametersJSONPath)
	}
	log.Info("loaded %d parameters to extract", len(parameters))

	kw := keywords.Load(cfg.KeywordsConfigPath, log)

	classifier := classify.NewClassifier(kw, log)
	classifier.ClassifyPages(pages)
	log.Info("page type distribution: %v", classify.TypeDistribution(pages))

	matcher := match.NewMatcher(kw, log)
	matches := matcher.MatchAll(parameters, pages)

	builder := prompt.NewBuilder(cfg.MaxPagesPerPrompt, cfg.MaxTokensPerPage, log)
	gen := extract.NewOpenAIGenerator(apiKey, cfg.LLMModelName)
	client := extract.NewClient(gen, cfg.RetryAttempts, time.Duration(cfg.TimeoutSeconds)*time.Second, log)

	results, err := client.ExtractAll(ctx, matches, prompt.SystemPrompt, builder.Build)
	if err != nil {
		return nil, fmt.Errorf("extraction interrupted: %w", err)
	}

	records := output.FormatResults(results)
	if err := output.ValidateJSON(records); err != nil {
		return nil, err
	}

	now := time.Now()
	formatter := output.NewFormatter(cfg.OutputDirectory, log)
	res := &Result{Records: records, PageCount: summary.TotalPages}

	if res.ResultsPath, err = formatter.WriteJSON(records, now); err != nil {
		return nil, err
	}
	if res.SummaryPath, err = formatter.WriteSummary(records, now); err != nil {
		return nil, err
	}
	if res.CSVPath, err = formatter.WriteCSV(records, now); err != nil {
		return nil, err
	}
	if res.XLSXPath, err = formatter.WriteXLSX(records, now); err != nil {
		return nil, err
	}

	if cfg.ResultsDBPath != "" {
		store, err := storage.NewSQLiteStore(cfg.ResultsDBPath)
		if err != nil {
			log.Error("failed to open results database: %v", err)
		} else {
			defer store.Close()
			runID, err := store.SaveRun(ctx, cfg.PDFInputPath, cfg.LLMModelName, summary.TotalPages, records)
			if err != nil {
				log.Error("failed to save run history: %v", err)
			} else {
				res.RunID = runID
				log.Info("run saved to history as run %d", runID)
			}
		}
	}

	res.Elapsed = time.Since(started)
	log.Info("analysis completed in %s", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// ConsoleReport renders the end-of-run report printed to stdout.
func ConsoleReport(res *Result) string {
	return output.BuildSummaryReport(res.Records, time.Now()) +
		fmt.Sprintf("\nResults: %s\nSummary: %s\nCSV: %s\nXLSX: %s\nCompleted in %s\n",
			res.ResultsPath, res.SummaryPath, res.CSVPath, res.XLSXPath,
			res.Elapsed.Round(time.Millisecond))
}

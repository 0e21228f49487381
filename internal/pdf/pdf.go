// Package pdf turns the input tender PDF into a page-indexed sequence of
// text pages. pdfcpu validates the document and establishes the page count;
// plain text per page comes from the ledongthuc/pdf reader, since pdfcpu
// splits pages but does not decode their text content.
package pdf

import (
	"bytes"
	"fmt"
	"os"

	ltpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"tenderscan/internal/logger"
	"tenderscan/models"
)

// ExtractPages reads the PDF at path and returns one Page per physical
// page, in order. A page whose text cannot be decoded becomes an empty page
// rather than failing the document. overlapChars controls how much of each
// page's tail is carried onto the next page for cross-boundary context.
func ExtractPages(path string, overlapChars int, log logger.Logger) ([]*models.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PDF file: %w", err)
	}

	pageCount, err := validate(data)
	if err != nil {
		return nil, fmt.Errorf("validating PDF: %w", err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("no pages extracted from PDF")
	}
	log.Info("PDF validated: %s (%d pages)", path, pageCount)

	reader, err := ltpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF for text extraction: %w", err)
	}

	pages := make([]*models.Page, 0, pageCount)
	for num := 1; num <= pageCount; num++ {
		text, err := extractPageText(reader, num)
		if err != nil {
			log.Warn("failed to extract text from page %d: %v", num, err)
			text = ""
		}
		page := models.NewPage(num, text)
		log.Debug("extracted page %d: %d words", num, page.WordCount)
		pages = append(pages, page)
	}

	applyOverlap(pages, overlapChars)
	return pages, nil
}

// validate runs the document through pdfcpu and returns the page count.
func validate(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	pdfContext, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return 0, err
	}
	return pdfContext.PageCount, nil
}

func extractPageText(reader *ltpdf.Reader, num int) (text string, err error) {
	// The underlying reader panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page text extraction panicked: %v", r)
		}
	}()
	if num > reader.NumPage() {
		return "", fmt.Errorf("page %d out of range", num)
	}
	page := reader.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// applyOverlap records the tail of each page's cleaned text on the page
// that follows it.
func applyOverlap(pages []*models.Page, overlapChars int) {
	if overlapChars <= 0 {
		return
	}
	for i := 1; i < len(pages); i++ {
		prev := pages[i-1].CleanedText
		if prev == "" {
			continue
		}
		pages[i].PrevOverlap = tail(prev, overlapChars)
	}
}

// tail returns the last n bytes of s, aligned to a rune boundary.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := len(s) - n
	for cut < len(s) && !isRuneStart(s[cut]) {
		cut++
	}
	return s[cut:]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// Summary describes a parsed document at a glance.
type Summary struct {
	TotalPages    int
	NonEmptyPages int
	TotalWords    int
	AvgWords      float64
}

// Summarize computes document-level statistics for logging and reporting.
func Summarize(pages []*models.Page) Summary {
	s := Summary{TotalPages: len(pages)}
	for _, p := range pages {
		if !p.IsEmpty() {
			s.NonEmptyPages++
			s.TotalWords += p.WordCount
		}
	}
	if s.NonEmptyPages > 0 {
		s.AvgWords = float64(s.TotalWords) / float64(s.NonEmptyPages)
	}
	return s
}

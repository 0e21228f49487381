// Package models holds the shared data types flowing through the tender
// analysis pipeline: document pages, parameter matches, extraction results
// and the final output records.
package models

import (
	"regexp"
	"strings"
	"unicode"
)

// NotFound is the canonical sentinel signaling that no information was
// extracted for a parameter.
const NotFound = "NOT_FOUND"

// PageType is a coarse content classification of one document page.
type PageType int

const (
	PageTypeCover PageType = iota
	PageTypeTableOfContents
	PageTypeGeneralInfo
	PageTypeTechnicalSpecs
	PageTypeFinancialInfo
	PageTypeLegalTerms
	PageTypeEvaluationCriteria
	PageTypeSubmissionRequirements
	PageTypeContactInfo
	PageTypeAppendix
	PageTypeOther
)

// PageTypes lists all page types in enumeration order. Classification ties
// are broken by this order.
var PageTypes = []PageType{
	PageTypeCover,
	PageTypeTableOfContents,
	PageTypeGeneralInfo,
	PageTypeTechnicalSpecs,
	PageTypeFinancialInfo,
	PageTypeLegalTerms,
	PageTypeEvaluationCriteria,
	PageTypeSubmissionRequirements,
	PageTypeContactInfo,
	PageTypeAppendix,
	PageTypeOther,
}

func (t PageType) String() string {
	switch t {
	case PageTypeCover:
		return "cover_page"
	case PageTypeTableOfContents:
		return "table_of_contents"
	case PageTypeGeneralInfo:
		return "general_info"
	case PageTypeTechnicalSpecs:
		return "technical_specs"
	case PageTypeFinancialInfo:
		return "financial_info"
	case PageTypeLegalTerms:
		return "legal_terms"
	case PageTypeEvaluationCriteria:
		return "evaluation_criteria"
	case PageTypeSubmissionRequirements:
		return "submission_requirements"
	case PageTypeContactInfo:
		return "contact_info"
	case PageTypeAppendix:
		return "appendix"
	case PageTypeOther:
		return "other"
	default:
		return "unknown"
	}
}

// ParsePageType converts a string (as it appears in the keyword config file)
// back into a PageType. Unrecognized strings map to PageTypeOther.
func ParsePageType(s string) PageType {
	for _, t := range PageTypes {
		if t.String() == s {
			return t
		}
	}
	return PageTypeOther
}

// Page is one physical document page. RawText is the extracted text as-is;
// CleanedText is normalized for keyword scoring. The classifier fills in
// PageType, RelevantParameters and the confidence maps; the page is treated
// as immutable afterwards.
type Page struct {
	PageNumber  int
	RawText     string
	CleanedText string
	WordCount   int

	// PrevOverlap carries the tail of the preceding physical page, for
	// values that straddle a page break.
	PrevOverlap string

	PageType            PageType
	RelevantParameters  map[string]bool
	TypeConfidence      float64
	ParameterConfidence map[string]float64
}

// NewPage builds a Page from raw extracted text, cleaning it and computing
// the word count.
func NewPage(pageNumber int, rawText string) *Page {
	cleaned := CleanText(rawText)
	return &Page{
		PageNumber:          pageNumber,
		RawText:             rawText,
		CleanedText:         cleaned,
		WordCount:           countWords(cleaned),
		PageType:            PageTypeOther,
		RelevantParameters:  map[string]bool{},
		ParameterConfidence: map[string]float64{},
	}
}

// IsEmpty reports whether the page carries no usable text.
func (p *Page) IsEmpty() bool {
	return p.WordCount == 0
}

var (
	pageOfRe   = regexp.MustCompile(`(?i)page \d+ of \d+`)
	fractionRe = regexp.MustCompile(`\d+/\d+`)
)

// CleanText normalizes raw page text: header/footer patterns and PDF
// artifacts are stripped, whitespace is collapsed. Hebrew text passes
// through untouched.
func CleanText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = pageOfRe.ReplaceAllString(text, "")
	text = fractionRe.ReplaceAllString(text, "")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r):
			b.WriteRune(r)
		case strings.ContainsRune(`-.,;:()[]{}"/\&%$#@!?+=<>|~'`+"`", r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func countWords(s string) int {
	if s == "" {
		return 0
	}
	return len(strings.Fields(s))
}

// ParameterMatch binds one requested parameter to a small set of candidate
// pages. Pages are sorted ascending by page number and contain no
// duplicates.
type ParameterMatch struct {
	Parameter  string
	Pages      []*Page
	Confidence float64
}

// PageNumbers returns the matched page numbers in ascending order.
func (m *ParameterMatch) PageNumbers() []int {
	nums := make([]int, 0, len(m.Pages))
	for _, p := range m.Pages {
		nums = append(nums, p.PageNumber)
	}
	return nums
}

// TotalWords sums the word counts of all matched pages.
func (m *ParameterMatch) TotalWords() int {
	total := 0
	for _, p := range m.Pages {
		total += p.WordCount
	}
	return total
}

// ExtractionResult is the outcome of one extraction call for one parameter.
// Value equals NotFound iff no information was extracted.
type ExtractionResult struct {
	Parameter   string
	Value       string
	Details     string
	Confidence  float64
	SourcePages []int
}

// Found reports whether the extraction produced an actual value.
func (r *ExtractionResult) Found() bool {
	return r.Value != NotFound && r.Value != ""
}

// OutputRecord is the final per-parameter record persisted to the output
// files. Score is a monotonic bucketing of the extraction confidence.
type OutputRecord struct {
	Answer  string `json:"answer"`
	Details string `json:"details"`
	Source  string `json:"source"`
	Score   int    `json:"score"`
}

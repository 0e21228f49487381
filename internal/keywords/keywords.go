// Package keywords owns the keyword configuration driving page
// classification and parameter matching. Keyword lists are bilingual
// (Hebrew and English) and load from a JSON file; a compiled-in fallback
// table takes over when the file is missing or malformed, so a broken
// keyword file degrades matching quality instead of aborting the run.
package keywords

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"tenderscan/internal/logger"
	"tenderscan/models"
)

// GenericRules controls how search keywords are generated for parameters
// that have no configured keyword list.
type GenericRules struct {
	IncludeOriginal    bool     `json:"include_original"`
	ReplaceUnderscore  bool     `json:"replace_underscore"`
	AdditionalPatterns []string `json:"additional_patterns"`
}

// Config is the full keyword configuration, passed explicitly to the
// classifier and matcher at construction. There is no package-level state.
type Config struct {
	PageTypes  map[models.PageType][]string
	Parameters map[string][]string
	Generic    GenericRules
}

// bilingualList is the on-disk shape of one keyword entry.
type bilingualList struct {
	English []string `json:"english"`
	Hebrew  []string `json:"hebrew"`
}

func (b bilingualList) combined() []string {
	out := make([]string, 0, len(b.English)+len(b.Hebrew))
	out = append(out, b.English...)
	out = append(out, b.Hebrew...)
	return out
}

// keywordsFile is the on-disk shape of the keyword configuration file.
type keywordsFile struct {
	PageClassification map[string]bilingualList `json:"page_classification"`
	ParameterMatching  map[string]bilingualList `json:"parameter_matching"`
	GenericSearch      *GenericRules            `json:"generic_search"`
}

// Load reads the keyword configuration from path. On any error it logs a
// warning and returns the fallback table.
func Load(path string, log logger.Logger) *Config {
	cfg, err := loadFile(path)
	if err != nil {
		log.Warn("failed to load keyword config from %s: %v, using fallback keywords", path, err)
		return Fallback()
	}
	log.Info("keyword configuration loaded from %s (%d page types, %d parameters)",
		path, len(cfg.PageTypes), len(cfg.Parameters))
	return cfg
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file keywordsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing keyword config: %w", err)
	}
	if len(file.PageClassification) == 0 && len(file.ParameterMatching) == 0 {
		return nil, fmt.Errorf("keyword config has no page or parameter entries")
	}

	cfg := &Config{
		PageTypes:  make(map[models.PageType][]string, len(file.PageClassification)),
		Parameters: make(map[string][]string, len(file.ParameterMatching)),
		Generic:    defaultGenericRules(),
	}
	for name, list := range file.PageClassification {
		cfg.PageTypes[models.ParsePageType(name)] = lowercase(list.combined())
	}
	for param, list := range file.ParameterMatching {
		cfg.Parameters[param] = lowercase(list.combined())
	}
	if file.GenericSearch != nil {
		cfg.Generic = *file.GenericSearch
	}
	return cfg, nil
}

func defaultGenericRules() GenericRules {
	return GenericRules{IncludeOriginal: true, ReplaceUnderscore: true}
}

func lowercase(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

// GenerateForParameter derives search keywords from a parameter name using
// the generic-search rules: the name itself, the name with underscores
// replaced by spaces, and any configured extra patterns (with %s standing
// for the parameter name).
func (c *Config) GenerateForParameter(parameter string) []string {
	var kws []string
	if c.Generic.IncludeOriginal {
		kws = append(kws, strings.ToLower(parameter))
	}
	if c.Generic.ReplaceUnderscore {
		kws = append(kws, strings.ToLower(strings.ReplaceAll(parameter, "_", " ")))
	}
	for _, pattern := range c.Generic.AdditionalPatterns {
		kws = append(kws, strings.ToLower(fmt.Sprintf(pattern, parameter)))
	}
	return kws
}

// Fallback returns the compiled-in keyword table used when the keyword
// configuration file cannot be read. The lists are intentionally minimal.
func Fallback() *Config {
	return &Config{
		PageTypes: map[models.PageType][]string{
			models.PageTypeCover:           {"tender", "מכרז", "rfp", "הזמנה להציע הצעות"},
			models.PageTypeTableOfContents: {"table of contents", "contents", "תוכן עניינים"},
			models.PageTypeFinancialInfo:   {"price", "payment", "מחיר", "תשלום", "תמורה"},
			models.PageTypeLegalTerms:      {"agreement", "contract", "הסכם", "חוזה"},
			models.PageTypeOther:           {},
		},
		Parameters: map[string][]string{
			"client_name":          {"מזמין", "רשות", "עירייה", "client", "authority"},
			"tender_name":          {"שם המכרז", "מכרז מספר", "tender name", "tender no"},
			"threshold_conditions": {"תנאי סף", "threshold", "eligibility"},
			"contract_period":      {"תקופת ההתקשרות", "תקופת החוזה", "contract period"},
			"evaluation_method":    {"אמות מידה", "שיטת הערכה", "evaluation"},
			"bid_guarantee":        {"ערבות", "ערבות מכרז", "guarantee", "bid bond"},
		},
		Generic: defaultGenericRules(),
	}
}

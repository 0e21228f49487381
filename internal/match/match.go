// Package match selects, for each requested parameter, a small diverse set
// of candidate pages and a heuristic match confidence. Selection runs in
// tiers: parameter keyword search, classifier tags, then a generic
// fallback. One designated parameter is a sentinel that never matches.
package match

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"tenderscan/internal/keywords"
	"tenderscan/internal/logger"
	"tenderscan/models"
)

const (
	// minScoreFraction discards pages scoring below this fraction of the
	// top page's score.
	minScoreFraction = 0.3
	// pageBucketSize groups page numbers for diversity selection, so that
	// matches do not cluster on one physical spread. The same bucket size
	// applies on the primary and fallback paths.
	pageBucketSize = 10

	defaultMaxPages  = 3
	tagLimitTrigger  = 6
	tagLimitKeep     = 4
	fallbackMinWords = 100
	fallbackMaxWords = 800
	anyContentWords  = 50
)

// Matcher maps parameters to candidate pages using an explicit keyword
// configuration and a strategy registry.
type Matcher struct {
	kw         *keywords.Config
	log        logger.Logger
	strategies map[string]Strategy
	sentinels  map[string]bool
}

// NewMatcher creates a matcher with the default strategy registry: named
// page-selection overrides for the known tender parameters and the
// idea_author sentinel, which is unanswerable by design.
func NewMatcher(kw *keywords.Config, log logger.Logger) *Matcher {
	m := &Matcher{
		kw:         kw,
		log:        log,
		strategies: map[string]Strategy{},
		sentinels:  map[string]bool{},
	}
	m.Register("client_name", &KeywordStrategy{Matcher: m, Parameter: "client_name", MaxPages: 3})
	m.Register("tender_name", &EarlyPagesStrategy{Matcher: m, Parameter: "tender_name", EarlyPages: 15, EarlyMax: 2, MaxPages: 3})
	m.Register("threshold_conditions", &KeywordStrategy{Matcher: m, Parameter: "threshold_conditions", MaxPages: 4})
	m.Register("contract_period", &KeywordStrategy{Matcher: m, Parameter: "contract_period", MaxPages: 4})
	m.Register("evaluation_method", &KeywordStrategy{Matcher: m, Parameter: "evaluation_method", MaxPages: 4})
	m.Register("bid_guarantee", &KeywordStrategy{Matcher: m, Parameter: "bid_guarantee", MaxPages: 4})
	m.RegisterSentinel("idea_author")
	return m
}

// Register installs a page-selection strategy override for a parameter.
func (m *Matcher) Register(parameter string, s Strategy) {
	m.strategies[parameter] = s
}

// RegisterSentinel marks a parameter as deliberately unanswerable: it
// always yields an empty match with confidence zero, regardless of the
// document content.
func (m *Matcher) RegisterSentinel(parameter string) {
	m.sentinels[parameter] = true
}

// MatchAll produces one ParameterMatch per requested parameter, in order.
func (m *Matcher) MatchAll(parameters []string, pages []*models.Page) []*models.ParameterMatch {
	m.log.Info("matching %d parameters against %d pages", len(parameters), len(pages))
	matches := make([]*models.ParameterMatch, 0, len(parameters))
	for _, param := range parameters {
		match := m.Match(param, pages)
		m.log.Info("parameter %q matched to pages %v (confidence %.2f)",
			param, match.PageNumbers(), match.Confidence)
		matches = append(matches, match)
	}
	return matches
}

// Match selects candidate pages for one parameter and scores the match.
func (m *Matcher) Match(parameter string, pages []*models.Page) *models.ParameterMatch {
	if m.sentinels[parameter] {
		m.log.Debug("parameter %q is a sentinel, returning empty match", parameter)
		return &models.ParameterMatch{Parameter: parameter}
	}

	var candidates []*models.Page
	if s, ok := m.strategies[parameter]; ok {
		candidates = s.SelectPages(pages)
	} else {
		candidates = m.genericSearch(parameter, pages)
	}

	if len(candidates) == 0 {
		candidates = m.tagFallback(parameter, pages)
	}
	if len(candidates) == 0 {
		candidates = m.contentFallback(parameter, pages)
	}

	confidence := m.confidence(parameter, candidates)
	sortByPageNumber(candidates)

	return &models.ParameterMatch{
		Parameter:  parameter,
		Pages:      dedupe(candidates),
		Confidence: confidence,
	}
}

// genericSearch handles parameters without a registered strategy: search
// with keywords derived from the parameter name.
func (m *Matcher) genericSearch(parameter string, pages []*models.Page) []*models.Page {
	kws := m.kw.Parameters[parameter]
	if len(kws) == 0 {
		kws = m.kw.GenerateForParameter(parameter)
	}
	return m.searchByKeywords(pages, kws, defaultMaxPages)
}

// tagFallback consults the classifier's per-page parameter tags. When too
// many pages carry the tag, only the most content-rich survive.
func (m *Matcher) tagFallback(parameter string, pages []*models.Page) []*models.Page {
	var tagged []*models.Page
	for _, p := range pages {
		if p.RelevantParameters[parameter] {
			tagged = append(tagged, p)
		}
	}
	if len(tagged) > tagLimitTrigger {
		sort.SliceStable(tagged, func(i, j int) bool {
			return tagged[i].WordCount > tagged[j].WordCount
		})
		tagged = tagged[:tagLimitKeep]
	}
	return tagged
}

// contentFallback is the last tier: search by the parameter's own name,
// then fall back to diverse content-rich pages, then to any page with
// meaningful content, then to the first pages of the document.
func (m *Matcher) contentFallback(parameter string, pages []*models.Page) []*models.Page {
	m.log.Warn("using fallback strategy for parameter %q", parameter)

	broad := m.searchByKeywords(pages, m.kw.GenerateForParameter(parameter), defaultMaxPages)
	if len(broad) > 0 {
		return broad
	}

	var content []*models.Page
	for _, p := range pages {
		if p.WordCount >= fallbackMinWords && p.WordCount <= fallbackMaxWords {
			content = append(content, p)
		}
	}
	if len(content) == 0 {
		for _, p := range pages {
			if p.WordCount > anyContentWords {
				content = append(content, p)
			}
		}
	}
	if len(content) == 0 {
		if len(pages) > defaultMaxPages {
			return pages[:defaultMaxPages]
		}
		return pages
	}

	sort.SliceStable(content, func(i, j int) bool {
		return content[i].WordCount > content[j].WordCount
	})
	selected := selectDiverse(content, defaultMaxPages, false)

	// Pad from the remaining content-rich pages when diversity alone
	// cannot fill the quota.
	if len(selected) < defaultMaxPages {
		chosen := map[int]bool{}
		for _, p := range selected {
			chosen[p.PageNumber] = true
		}
		for _, p := range content {
			if len(selected) >= defaultMaxPages {
				break
			}
			if !chosen[p.PageNumber] {
				selected = append(selected, p)
				chosen[p.PageNumber] = true
			}
		}
	}
	return selected
}

// searchByKeywords scores every non-empty page in the candidate window and
// returns a diverse selection of the qualifying pages.
func (m *Matcher) searchByKeywords(pages []*models.Page, kws []string, maxPages int) []*models.Page {
	type scored struct {
		page  *models.Page
		score float64
	}
	var ranked []scored
	for _, page := range pages {
		if page.IsEmpty() {
			continue
		}
		score := pageScore(page, kws)
		if score > 0 {
			ranked = append(ranked, scored{page, score})
		}
	}
	if len(ranked) == 0 {
		return nil
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	threshold := ranked[0].score * minScoreFraction
	if threshold < 1.0 {
		threshold = 1.0
	}
	var qualified []*models.Page
	for _, r := range ranked {
		if r.score >= threshold {
			qualified = append(qualified, r.page)
		}
	}
	return selectDiverse(qualified, maxPages, true)
}

// pageScore sums keyword hits with a word-boundary bonus, weighted extra
// for Hebrew-script keywords.
func pageScore(page *models.Page, kws []string) float64 {
	// Cleaned text keeps original casing; score against a lower-cased view.
	content := strings.ToLower(page.CleanedText)

	score := 0.0
	for _, kw := range kws {
		hits := keywords.Occurrences(content, kw)
		score += float64(hits)
		score += 2 * float64(keywords.BoundaryMatches(content, kw))
		if keywords.HasHebrew(kw) {
			score += 1.5 * float64(hits)
		}
	}
	return score
}

// selectDiverse greedily picks pages in the given priority order, favoring
// pages from page-number buckets not yet represented. When allowRepeats is
// set, a bucket may repeat while fewer than half the quota is filled.
func selectDiverse(ordered []*models.Page, maxPages int, allowRepeats bool) []*models.Page {
	var selected []*models.Page
	usedBuckets := map[int]bool{}

	for _, page := range ordered {
		if len(selected) >= maxPages {
			break
		}
		bucket := page.PageNumber / pageBucketSize
		if !usedBuckets[bucket] || (allowRepeats && len(selected) < maxPages/2) {
			selected = append(selected, page)
			usedBuckets[bucket] = true
		}
	}
	return selected
}

// confidence blends three weak signals into one score: page-count
// sufficiency, average content richness, and the classifier's per-page
// parameter confidence when it exists. The exact weights are heuristic
// placeholders, not calibrated values.
func (m *Matcher) confidence(parameter string, pages []*models.Page) float64 {
	if len(pages) == 0 {
		return 0.0
	}

	var factors []float64

	pageCountScore := float64(len(pages)) / 3.0
	if pageCountScore > 1.0 {
		pageCountScore = 1.0
	}
	factors = append(factors, pageCountScore)

	totalWords := 0
	for _, p := range pages {
		totalWords += p.WordCount
	}
	contentScore := float64(totalWords) / float64(len(pages)) / 500.0
	if contentScore > 1.0 {
		contentScore = 1.0
	}
	factors = append(factors, contentScore)

	var paramConfs []float64
	for _, p := range pages {
		if conf, ok := p.ParameterConfidence[parameter]; ok {
			paramConfs = append(paramConfs, conf)
		}
	}
	if len(paramConfs) > 0 {
		factors = append(factors, mean(paramConfs))
	}

	return mean(factors)
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func sortByPageNumber(pages []*models.Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].PageNumber < pages[j].PageNumber
	})
}

func dedupe(pages []*models.Page) []*models.Page {
	seen := map[int]bool{}
	out := pages[:0]
	for _, p := range pages {
		if !seen[p.PageNumber] {
			out = append(out, p)
			seen[p.PageNumber] = true
		}
	}
	return out
}

// LoadParameters reads the parameter name list from a JSON file.
func LoadParameters(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameters file: %w", err)
	}
	var parameters []string
	if err := json.Unmarshal(data, &parameters); err != nil {
		return nil, fmt.Errorf("parameters file must contain a JSON list of parameter names: %w", err)
	}
	return parameters, nil
}

// Package classify assigns each document page a coarse content type and
// tags it with the parameters it is likely to contain. Classification is a
// pure function of page text and the keyword table; the only side effect is
// populating the tag fields on each page.
package classify

import (
	"strings"

	"tenderscan/internal/keywords"
	"tenderscan/internal/logger"
	"tenderscan/models"
)

// relevanceThreshold is the minimum keyword score for a parameter to be
// considered relevant to a page.
const relevanceThreshold = 2

// Classifier tags pages using an explicit keyword configuration.
type Classifier struct {
	kw  *keywords.Config
	log logger.Logger
}

// NewClassifier creates a classifier over the given keyword configuration.
func NewClassifier(kw *keywords.Config, log logger.Logger) *Classifier {
	return &Classifier{kw: kw, log: log}
}

// ClassifyPages tags every page with its type, relevant parameters and
// confidence scores.
func (c *Classifier) ClassifyPages(pages []*models.Page) {
	c.log.Info("classifying %d pages", len(pages))
	for _, page := range pages {
		c.classifyPage(page)
		c.log.Debug("page %d classified as %s (%d relevant parameters)",
			page.PageNumber, page.PageType, len(page.RelevantParameters))
	}
}

func (c *Classifier) classifyPage(page *models.Page) {
	if page.IsEmpty() {
		page.PageType = models.PageTypeOther
		return
	}
	content := strings.ToLower(page.CleanedText)

	page.PageType, page.TypeConfidence = c.classifyType(content)
	page.RelevantParameters, page.ParameterConfidence = c.relevantParameters(content)
}

// classifyType scores every page type and returns the winner with its
// keyword-coverage confidence. Ties resolve to the earliest type in
// enumeration order; an all-zero scoreboard resolves to Other.
func (c *Classifier) classifyType(content string) (models.PageType, float64) {
	best := models.PageTypeOther
	bestScore := 0

	for _, pageType := range models.PageTypes {
		score := typeScore(content, c.kw.PageTypes[pageType])
		if score > bestScore {
			best = pageType
			bestScore = score
		}
	}
	if bestScore == 0 {
		return models.PageTypeOther, 0
	}
	return best, coverage(content, c.kw.PageTypes[best])
}

// typeScore is the occurrence count of every keyword plus one extra point
// per keyword matched at a word boundary.
func typeScore(content string, kws []string) int {
	score := 0
	for _, kw := range kws {
		score += keywords.Occurrences(content, kw)
		if keywords.BoundaryMatches(content, kw) > 0 {
			score++
		}
	}
	return score
}

// coverage is the fraction of a keyword list present on the page.
func coverage(content string, kws []string) float64 {
	if len(kws) == 0 {
		return 0
	}
	matched := 0
	for _, kw := range kws {
		if keywords.Occurrences(content, kw) > 0 {
			matched++
		}
	}
	return float64(matched) / float64(len(kws))
}

// relevantParameters finds parameters whose keyword score on this page
// clears the relevance threshold, along with per-parameter coverage
// confidence consumed later by the matcher.
func (c *Classifier) relevantParameters(content string) (map[string]bool, map[string]float64) {
	relevant := map[string]bool{}
	confidence := map[string]float64{}

	for param, kws := range c.kw.Parameters {
		score := 0
		for _, kw := range kws {
			if keywords.Occurrences(content, kw) > 0 {
				score++
			}
			if keywords.BoundaryMatches(content, kw) > 0 {
				score++
			}
		}
		if score >= relevanceThreshold {
			relevant[param] = true
			confidence[param] = coverage(content, kws)
		}
	}
	return relevant, confidence
}

// TypeDistribution counts pages per assigned type, for the tagging summary.
func TypeDistribution(pages []*models.Page) map[string]int {
	dist := map[string]int{}
	for _, p := range pages {
		dist[p.PageType.String()]++
	}
	return dist
}

package match

import "tenderscan/models"

// Strategy selects candidate pages for a single parameter. Strategies are
// registered per parameter name; parameters without one fall back to the
// generic keyword search.
type Strategy interface {
	SelectPages(pages []*models.Page) []*models.Page
}

// KeywordStrategy searches the whole document with the parameter's
// configured keyword list, capped at MaxPages.
type KeywordStrategy struct {
	Matcher   *Matcher
	Parameter string
	MaxPages  int
}

func (s *KeywordStrategy) SelectPages(pages []*models.Page) []*models.Page {
	return s.Matcher.searchByKeywords(pages, s.Matcher.kw.Parameters[s.Parameter], s.MaxPages)
}

// EarlyPagesStrategy prefers the front of the document: it first searches
// only the first EarlyPages pages with a tighter EarlyMax cap, widening to
// the full document only when the front yields nothing. Tender titles
// almost always sit on the cover or the opening notice.
type EarlyPagesStrategy struct {
	Matcher    *Matcher
	Parameter  string
	EarlyPages int
	EarlyMax   int
	MaxPages   int
}

func (s *EarlyPagesStrategy) SelectPages(pages []*models.Page) []*models.Page {
	kws := s.Matcher.kw.Parameters[s.Parameter]

	window := pages
	if len(window) > s.EarlyPages {
		window = window[:s.EarlyPages]
	}
	if early := s.Matcher.searchByKeywords(window, kws, s.EarlyMax); len(early) > 0 {
		return early
	}
	return s.Matcher.searchByKeywords(pages, kws, s.MaxPages)
}

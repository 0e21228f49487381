package match

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"tenderscan/internal/keywords"
	"tenderscan/internal/logger"
	"tenderscan/models"
)

func testKeywords() *keywords.Config {
	return &keywords.Config{
		PageTypes: map[models.PageType][]string{},
		Parameters: map[string][]string{
			"client_name":     {"client", "מזמין"},
			"tender_name":     {"tender name", "שם המכרז"},
			"contract_period": {"contract period", "תקופת ההתקשרות"},
			"bid_guarantee":   {"guarantee", "ערבות"},
		},
		Generic: keywords.GenericRules{IncludeOriginal: true, ReplaceUnderscore: true},
	}
}

func newTestMatcher() *Matcher {
	return NewMatcher(testKeywords(), logger.NewNoOpLogger())
}

func pageWithText(num int, text string) *models.Page {
	return models.NewPage(num, text)
}

func TestMatch_SentinelParameter(t *testing.T) {
	m := newTestMatcher()
	pages := []*models.Page{
		pageWithText(1, "הוכן על ידי חברת יעוץ"),
	}

	got := m.Match("idea_author", pages)
	if len(got.Pages) != 0 {
		t.Errorf("sentinel match has %d pages, want 0", len(got.Pages))
	}
	if got.Confidence != 0.0 {
		t.Errorf("sentinel confidence = %f, want 0.0", got.Confidence)
	}
}

func TestMatch_ClientNameFindsKeywordPages(t *testing.T) {
	m := newTestMatcher()
	pages := []*models.Page{
		pageWithText(1, "המזמין: עיריית חיפה. the client is the municipality"),
		pageWithText(2, "unrelated technical appendix content"),
		pageWithText(3, "פניות אל המזמין יוגשו בכתב"),
	}

	got := m.Match("client_name", pages)
	nums := got.PageNumbers()
	if len(nums) == 0 {
		t.Fatal("client_name matched no pages")
	}
	for _, n := range nums {
		if n == 2 {
			t.Error("matched page 2, which has no client keywords")
		}
	}
	if got.Confidence <= 0 {
		t.Errorf("confidence = %f, want > 0", got.Confidence)
	}
}

func TestMatch_PagesSortedAndUnique(t *testing.T) {
	m := newTestMatcher()
	pages := []*models.Page{
		pageWithText(30, "ערבות בנקאית נדרשת guarantee required"),
		pageWithText(5, "ערבות מכרז: guarantee of 2%"),
		pageWithText(18, "תנאי ערבות guarantee terms"),
	}

	got := m.Match("bid_guarantee", pages)
	nums := got.PageNumbers()
	for i := 1; i < len(nums); i++ {
		if nums[i] <= nums[i-1] {
			t.Fatalf("page numbers not strictly ascending: %v", nums)
		}
	}
}

func TestSearchByKeywords_ThresholdFiltersWeakPages(t *testing.T) {
	m := newTestMatcher()
	strong := pageWithText(1, strings.Repeat("ערבות guarantee ", 10))
	// One embedded occurrence with no boundary match scores below
	// max(1.0, 0.3*top).
	weak := pageWithText(25, "ultraguarantees mentioned once")

	got := m.searchByKeywords([]*models.Page{strong, weak}, m.kw.Parameters["bid_guarantee"], 4)
	for _, p := range got {
		if p.PageNumber == 25 {
			t.Error("weak page passed the score threshold")
		}
	}
	if len(got) == 0 {
		t.Error("strong page not selected")
	}
}

func TestSelectDiverse_PrefersDistinctBuckets(t *testing.T) {
	pages := []*models.Page{
		pageWithText(11, "a"), // bucket 1, highest priority
		pageWithText(12, "b"), // bucket 1
		pageWithText(13, "c"), // bucket 1
		pageWithText(47, "d"), // bucket 4
	}

	got := selectDiverse(pages, 2, false)
	if len(got) != 2 {
		t.Fatalf("selected %d pages, want 2", len(got))
	}
	if got[0].PageNumber != 11 || got[1].PageNumber != 47 {
		t.Errorf("selected pages %d and %d, want 11 and 47",
			got[0].PageNumber, got[1].PageNumber)
	}
}

func TestSelectDiverse_AllowsRepeatsEarly(t *testing.T) {
	pages := []*models.Page{
		pageWithText(11, "a"),
		pageWithText(12, "b"),
		pageWithText(47, "c"),
	}

	// With a quota of 4 and repeats allowed, the second bucket-1 page is
	// accepted while fewer than half the quota is filled.
	got := selectDiverse(pages, 4, true)
	if len(got) != 3 {
		t.Fatalf("selected %d pages, want 3: %v", len(got), pageNums(got))
	}
}

func TestTagFallback_TrimsToMostContentRich(t *testing.T) {
	m := newTestMatcher()
	var pages []*models.Page
	for i := 1; i <= 8; i++ {
		p := pageWithText(i, strings.Repeat("word ", i*10))
		p.RelevantParameters["payment_terms"] = true
		pages = append(pages, p)
	}

	got := m.tagFallback("payment_terms", pages)
	if len(got) != tagLimitKeep {
		t.Fatalf("tagFallback kept %d pages, want %d", len(got), tagLimitKeep)
	}
	// The four longest pages are 8, 7, 6, 5.
	for _, p := range got {
		if p.PageNumber < 5 {
			t.Errorf("kept page %d, want only the most content-rich pages", p.PageNumber)
		}
	}
}

func TestContentFallback_PrefersMidLengthPages(t *testing.T) {
	m := newTestMatcher()
	pages := []*models.Page{
		pageWithText(1, strings.Repeat("w ", 20)),   // too short
		pageWithText(2, strings.Repeat("w ", 300)),  // in range
		pageWithText(3, strings.Repeat("w ", 2000)), // too long
		pageWithText(14, strings.Repeat("w ", 200)), // in range
	}

	got := m.contentFallback("unknown_param", pages)
	if len(got) == 0 {
		t.Fatal("contentFallback returned no pages")
	}
	for _, p := range got {
		if p.PageNumber == 1 || p.PageNumber == 3 {
			t.Errorf("selected page %d outside the content-rich word range", p.PageNumber)
		}
	}
}

func TestContentFallback_FirstPagesWhenNothingQualifies(t *testing.T) {
	m := newTestMatcher()
	pages := []*models.Page{
		pageWithText(1, "a b"),
		pageWithText(2, "c d"),
		pageWithText(3, "e f"),
		pageWithText(4, "g h"),
	}

	got := m.contentFallback("unknown_param", pages)
	if !reflect.DeepEqual(pageNums(got), []int{1, 2, 3}) {
		t.Errorf("fallback pages = %v, want first 3", pageNums(got))
	}
}

func TestMatch_UnmatchedParameterFallsBack(t *testing.T) {
	m := newTestMatcher()
	pages := []*models.Page{
		pageWithText(1, strings.Repeat("שירותי ניקיון ", 60)),
		pageWithText(2, strings.Repeat("לוח זמנים ", 60)),
	}

	got := m.Match("payment_terms", pages)
	if len(got.Pages) == 0 {
		t.Error("match returned no pages even with fallbacks available")
	}
}

func TestMatchAll_MixedParameters(t *testing.T) {
	m := newTestMatcher()
	pages := []*models.Page{
		pageWithText(1, "המזמין: עיריית חיפה, the client issuing this tender"),
		pageWithText(2, "הוכן על ידי משרד יעוץ חיצוני"),
	}

	got := m.MatchAll([]string{"client_name", "idea_author"}, pages)
	if len(got) != 2 {
		t.Fatalf("MatchAll returned %d matches, want 2", len(got))
	}
	if got[0].Parameter != "client_name" || len(got[0].Pages) == 0 {
		t.Errorf("client_name match = %+v, want pages selected", got[0])
	}
	if got[1].Parameter != "idea_author" || len(got[1].Pages) != 0 || got[1].Confidence != 0.0 {
		t.Errorf("idea_author match = %+v, want empty sentinel match", got[1])
	}
}

func TestConfidence(t *testing.T) {
	m := newTestMatcher()

	if got := m.confidence("any", nil); got != 0.0 {
		t.Errorf("confidence of empty selection = %f, want 0.0", got)
	}

	// Three pages of 500+ words max out the page-count and content factors.
	var rich []*models.Page
	for i := 1; i <= 3; i++ {
		rich = append(rich, pageWithText(i, strings.Repeat("word ", 600)))
	}
	if got := m.confidence("any", rich); got < 0.99 {
		t.Errorf("confidence of rich selection = %f, want ~1.0", got)
	}

	// Classifier confidence joins the mean when present.
	tagged := pageWithText(9, strings.Repeat("word ", 600))
	tagged.ParameterConfidence["bid_guarantee"] = 0.5
	got := m.confidence("bid_guarantee", []*models.Page{tagged})
	want := (1.0/3.0 + 1.0 + 0.5) / 3.0
	if got < want-0.001 || got > want+0.001 {
		t.Errorf("confidence = %f, want %f", got, want)
	}
}

func TestLoadParameters(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "params.json")
	if err := os.WriteFile(path, []byte(`["client_name", "tender_name"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadParameters(path)
	if err != nil {
		t.Fatalf("LoadParameters() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"client_name", "tender_name"}) {
		t.Errorf("LoadParameters() = %v", got)
	}

	badPath := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(badPath, []byte(`{"not": "a list"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadParameters(badPath); err == nil {
		t.Error("LoadParameters accepted a non-list document")
	}

	if _, err := LoadParameters(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("LoadParameters accepted a missing file")
	}
}

func pageNums(pages []*models.Page) []int {
	nums := make([]int, 0, len(pages))
	for _, p := range pages {
		nums = append(nums, p.PageNumber)
	}
	return nums
}

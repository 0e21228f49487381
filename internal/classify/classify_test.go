package classify

import (
	"testing"

	"tenderscan/internal/keywords"
	"tenderscan/internal/logger"
	"tenderscan/models"
)

func testKeywords() *keywords.Config {
	return &keywords.Config{
		PageTypes: map[models.PageType][]string{
			models.PageTypeCover:         {"tender", "מכרז"},
			models.PageTypeFinancialInfo: {"price", "payment", "תמורה"},
			models.PageTypeLegalTerms:    {"agreement", "contract"},
		},
		Parameters: map[string][]string{
			"contract_period": {"contract period", "תקופת ההתקשרות"},
			"bid_guarantee":   {"guarantee", "ערבות"},
		},
	}
}

func TestClassifyPages_AssignsTypes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.PageType
	}{
		{
			name: "cover page",
			text: "מכרז פומבי: public tender for services",
			want: models.PageTypeCover,
		},
		{
			name: "financial page",
			text: "the price includes payment terms and תמורה",
			want: models.PageTypeFinancialInfo,
		},
		{
			name: "no keywords",
			text: "completely unrelated narrative text",
			want: models.PageTypeOther,
		},
	}

	c := NewClassifier(testKeywords(), logger.NewNoOpLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := models.NewPage(1, tt.text)
			c.ClassifyPages([]*models.Page{page})
			if page.PageType != tt.want {
				t.Errorf("PageType = %v, want %v", page.PageType, tt.want)
			}
		})
	}
}

func TestClassifyPages_EmptyPageIsOther(t *testing.T) {
	c := NewClassifier(testKeywords(), logger.NewNoOpLogger())
	page := models.NewPage(3, "   ")
	c.ClassifyPages([]*models.Page{page})
	if page.PageType != models.PageTypeOther {
		t.Errorf("PageType = %v, want other for empty page", page.PageType)
	}
	if len(page.RelevantParameters) != 0 {
		t.Errorf("RelevantParameters = %v, want none for empty page", page.RelevantParameters)
	}
}

func TestClassifyType_TieResolvesToEarlierType(t *testing.T) {
	// One boundary hit each for cover and legal keywords. Cover comes first
	// in enumeration order and must win the tie.
	kw := &keywords.Config{
		PageTypes: map[models.PageType][]string{
			models.PageTypeCover:      {"tender"},
			models.PageTypeLegalTerms: {"agreement"},
		},
	}
	c := NewClassifier(kw, logger.NewNoOpLogger())
	pageType, _ := c.classifyType("the tender and the agreement")
	if pageType != models.PageTypeCover {
		t.Errorf("classifyType tie = %v, want cover_page", pageType)
	}
}

func TestClassifyType_ConfidenceIsCoverage(t *testing.T) {
	c := NewClassifier(testKeywords(), logger.NewNoOpLogger())
	// Only one of the three financial keywords is present.
	_, conf := c.classifyType("the price is listed in appendix")
	want := 1.0 / 3.0
	if conf < want-0.001 || conf > want+0.001 {
		t.Errorf("confidence = %f, want %f", conf, want)
	}
}

func TestRelevantParameters(t *testing.T) {
	c := NewClassifier(testKeywords(), logger.NewNoOpLogger())
	page := models.NewPage(5, "תקופת ההתקשרות היא 24 חודשים עם אופציה")
	c.ClassifyPages([]*models.Page{page})

	if !page.RelevantParameters["contract_period"] {
		t.Error("contract_period not tagged on a page naming it")
	}
	if page.RelevantParameters["bid_guarantee"] {
		t.Error("bid_guarantee tagged without any keyword on the page")
	}
	if conf := page.ParameterConfidence["contract_period"]; conf <= 0 {
		t.Errorf("ParameterConfidence[contract_period] = %f, want > 0", conf)
	}
}

func TestTypeDistribution(t *testing.T) {
	pages := []*models.Page{
		models.NewPage(1, "a"), models.NewPage(2, "b"), models.NewPage(3, "c"),
	}
	pages[0].PageType = models.PageTypeCover
	pages[1].PageType = models.PageTypeOther
	pages[2].PageType = models.PageTypeOther

	dist := TypeDistribution(pages)
	if dist["cover_page"] != 1 || dist["other"] != 2 {
		t.Errorf("TypeDistribution = %v, want cover_page:1 other:2", dist)
	}
}

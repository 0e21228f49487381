package extract

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"

	"tenderscan/models"
)

var (
	codeFenceOpenRe  = regexp.MustCompile("```json\\s*")
	codeFenceCloseRe = regexp.MustCompile("```\\s*$")

	answerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)answer["\s]*:\s*["\s]*([^"\n]+)`),
		regexp.MustCompile(`(?im)answer["\s]*[:\s]*([^\n]+)`),
		regexp.MustCompile(`(?m)^([^\n]+)`),
	}
	detailsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)details["\s]*:\s*["\s]*([^"\n]+)`),
		regexp.MustCompile(`(?im)details["\s]*[:\s]*([^\n]+)`),
	}
)

// notFoundPhrases are answer texts that mean "nothing extracted" despite not
// being the literal sentinel, in either language.
var notFoundPhrases = []string{
	"not found", "not available", "not specified", "not mentioned",
	"cannot be found", "not provided", "not indicated", "n/a", "na",
	"לא נמצא", "לא צוין", "לא זמין",
}

// ParseResponse extracts the answer and details fields from a raw model
// response. Strict JSON is tried first; free-text responses fall back to
// labeled-line patterns, and finally to the first line as the answer.
func ParseResponse(raw string) (answer, details string) {
	text := cleanResponseText(raw)
	if text == "" {
		return models.NotFound, ""
	}

	var parsed struct {
		Answer  string `json:"answer"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		answer = cleanValue(parsed.Answer)
		if answer == "" {
			answer = models.NotFound
		}
		return answer, cleanValue(parsed.Details)
	}

	answer = models.NotFound
	for _, re := range answerPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			answer = cleanValue(strings.TrimSpace(m[1]))
			break
		}
	}
	for _, re := range detailsPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			details = cleanValue(strings.TrimSpace(m[1]))
			break
		}
	}
	if answer == "" {
		answer = models.NotFound
	}
	return answer, details
}

func cleanResponseText(text string) string {
	text = strings.TrimSpace(text)
	text = codeFenceOpenRe.ReplaceAllString(text, "")
	text = codeFenceCloseRe.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// cleanValue normalizes one extracted field: surrounding quotes are
// unwrapped, not-found phrasings fold to the sentinel, whitespace collapses.
func cleanValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}

	lower := strings.ToLower(strings.TrimSpace(value))
	for _, phrase := range notFoundPhrases {
		if strings.Contains(lower, phrase) {
			return models.NotFound
		}
	}
	return strings.Join(strings.Fields(value), " ")
}

// uncertaintyWords in the answer or details drag the confidence down.
var uncertaintyWords = []string{"maybe", "perhaps", "possibly", "unclear", "ambiguous"}

// ResponseConfidence estimates how trustworthy an extraction is from surface
// features of the response: answer length, details richness, presence of
// digits and proper-noun casing, absence of hedging. A not-found answer is
// always 0.
func ResponseConfidence(answer, details string) float64 {
	if answer == models.NotFound || answer == "" {
		return 0.0
	}

	var factors []float64

	answerWords := len(strings.Fields(answer))
	switch {
	case answerWords >= 2 && answerWords <= 50:
		factors = append(factors, 0.8)
	case answerWords > 0:
		factors = append(factors, 0.6)
	default:
		factors = append(factors, 0.2)
	}

	detailsWords := len(strings.Fields(details))
	switch {
	case detailsWords > 5:
		factors = append(factors, 0.8)
	case detailsWords > 0:
		factors = append(factors, 0.6)
	default:
		factors = append(factors, 0.4)
	}

	if strings.ContainsFunc(answer, unicode.IsDigit) {
		factors = append(factors, 0.7)
	}
	if strings.ContainsFunc(answer, unicode.IsUpper) {
		factors = append(factors, 0.6)
	}

	combined := strings.ToLower(answer + " " + details)
	hedged := false
	for _, w := range uncertaintyWords {
		if strings.Contains(combined, w) {
			hedged = true
			break
		}
	}
	if hedged {
		factors = append(factors, 0.3)
	} else {
		factors = append(factors, 0.8)
	}

	conf := 0.0
	for _, f := range factors {
		conf += f
	}
	conf /= float64(len(factors))
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

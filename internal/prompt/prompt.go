// Package prompt assembles the extraction prompts sent to the language
// model. Each known tender parameter has a dedicated bilingual instruction
// template with few-shot examples; unknown parameters get a generic
// template derived from their name. Prompts are length-capped by a rough
// four-characters-per-token estimate.
package prompt

import (
	"fmt"
	"strings"

	"tenderscan/internal/logger"
	"tenderscan/models"
)

const (
	pageSeparator   = "=================================================="
	truncationMark  = "\n\n[CONTENT TRUNCATED FOR LENGTH]"
	charsPerToken   = 4
	truncationSlack = 0.9
)

// SystemPrompt is the fixed system instruction for every extraction call.
// Answers are required in Hebrew regardless of the document language.
const SystemPrompt = `You are an expert document analyst specializing in tender and procurement documents. Your task is to extract specific information from document pages with high accuracy.

Instructions:
1. Extract the requested information from the provided document pages
2. Provide both a direct answer and additional details/context
3. If the information is not found, respond with "NOT_FOUND" for both answer and details
4. Be precise and base your response only on the document content
5. For details, provide relevant context, expanded wording, or interpretation from the document
6. **IMPORTANT: Respond in Hebrew for both the answer and details fields. Extract information in Hebrew as it appears in the document or translate to Hebrew if the document is in another language.**

Response format: Return your response as JSON with two fields:
{
  "answer": "direct extracted value in Hebrew",
  "details": "additional context and interpretation from document in Hebrew"
}`

// Template is one parameter's extraction instruction plus few-shot examples.
type Template struct {
	Instruction string
	Examples    []string
}

// Builder assembles and length-caps extraction prompts.
type Builder struct {
	maxPagesPerPrompt int
	maxTokensPerPage  int
	templates         map[string]Template
	log               logger.Logger
}

// NewBuilder creates a prompt builder with the built-in parameter templates.
func NewBuilder(maxPagesPerPrompt, maxTokensPerPage int, log logger.Logger) *Builder {
	return &Builder{
		maxPagesPerPrompt: maxPagesPerPrompt,
		maxTokensPerPage:  maxTokensPerPage,
		templates:         builtinTemplates(),
		log:               log,
	}
}

// Build assembles the complete extraction prompt for one parameter match.
// A match with no pages yields an empty prompt: there is nothing to ask.
func (b *Builder) Build(match *models.ParameterMatch) string {
	if len(match.Pages) == 0 {
		return ""
	}

	tmpl, ok := b.templates[match.Parameter]
	if !ok {
		tmpl = genericTemplate(match.Parameter)
	}

	var parts []string
	parts = append(parts, "TASK: "+tmpl.Instruction)

	if len(tmpl.Examples) > 0 {
		parts = append(parts, "\nEXAMPLES:")
		for _, ex := range tmpl.Examples {
			parts = append(parts, "- "+ex)
		}
	}

	parts = append(parts, "\nDOCUMENT CONTENT:")
	parts = append(parts, pageSeparator)

	inMatch := map[int]bool{}
	for _, p := range match.Pages {
		inMatch[p.PageNumber] = true
	}
	for _, page := range match.Pages {
		if page.IsEmpty() {
			continue
		}
		parts = append(parts, fmt.Sprintf("\n--- PAGE %d ---", page.PageNumber))
		// Carry the preceding page's tail when that page is not itself in
		// the match, so values straddling a page break stay visible.
		if page.PrevOverlap != "" && !inMatch[page.PageNumber-1] {
			parts = append(parts, "[...] "+page.PrevOverlap)
		}
		parts = append(parts, page.CleanedText)
	}

	parts = append(parts, pageSeparator)
	parts = append(parts, fmt.Sprintf("\nExtract the %s from the above document content.", titleCase(match.Parameter)))
	parts = append(parts, "Return your response as JSON with 'answer' and 'details' fields.")
	parts = append(parts, "**CRITICAL: Respond in Hebrew for both answer and details fields.**")
	parts = append(parts, "If not found, use 'NOT_FOUND' for both fields.")

	full := strings.Join(parts, "\n")
	b.log.Debug("built prompt for %q: %d characters", match.Parameter, len(full))
	return b.truncate(full)
}

// truncate caps the prompt at the character budget, preferring a paragraph
// boundary, then a sentence boundary, over a hard cut.
func (b *Builder) truncate(prompt string) string {
	maxChars := int(float64(b.maxTokensPerPage*b.maxPagesPerPrompt*charsPerToken) * truncationSlack)
	if len(prompt) <= maxChars {
		return prompt
	}

	truncated := cutAtRune(prompt, maxChars)
	if p := strings.LastIndex(truncated, "\n\n"); p > int(float64(maxChars)*0.7) {
		truncated = truncated[:p]
	} else if s := strings.LastIndex(truncated, ". "); s > int(float64(maxChars)*0.8) {
		truncated = truncated[:s+1]
	}
	truncated += truncationMark

	b.log.Warn("prompt truncated from %d to %d characters", len(prompt), len(truncated))
	return truncated
}

// cutAtRune slices s at or before n bytes, never splitting a rune.
func cutAtRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}

func titleCase(parameter string) string {
	words := strings.Split(strings.ReplaceAll(parameter, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func genericTemplate(parameter string) Template {
	name := strings.ReplaceAll(parameter, "_", " ")
	return Template{
		Instruction: fmt.Sprintf(`Extract the %s from the document.

Look for any information related to "%s" in the document content.

For the answer: Return the relevant information as it appears in the document **in Hebrew**.
For the details: Provide additional context or interpretation about this information from the document **in Hebrew**.`,
			strings.ToUpper(name), name),
		Examples: []string{
			`{"answer": "ערך שחולץ בעברית", "details": "הקשר נוסף מהמסמך בעברית"}`,
		},
	}
}

func builtinTemplates() map[string]Template {
	return map[string]Template{
		"client_name": {
			Instruction: `Extract the CLIENT NAME (שם המזמין) - the organization name that is issuing this tender/procurement.

Hebrew Description: שם הגוף שפרסם את המכרז (למשל: רשות, תאגיד, עירייה)

Look for:
- Organization name, company name, agency name (שם הארגון, שם החברה, שם הרשות)
- Government department or authority (משרד ממשלתי או רשות)
- Contracting party or procuring entity (הגורם המתקשר או הרוכש)
- Client organization mentioned in the document (ארגון הלקוח המוזכר במסמך)

For the answer: Return the full official name as it appears in the document **in Hebrew**.
For the details: Provide any additional context about the organization, their role, or how they are described in the document **in Hebrew**.`,
			Examples: []string{
				`{"answer": "משרד הבריאות", "details": "משרד ממשלתי האחראי על שירותי הבריאות ורכש ציוד רפואי"}`,
				`{"answer": "חברת ABC בע״מ", "details": "חברה פרטית הפועלת כרשות מתקשרת לרכש זה"}`,
				`{"answer": "NOT_FOUND", "details": "NOT_FOUND"}`,
			},
		},
		"tender_name": {
			Instruction: `Extract the TENDER NAME (שם המכרז) - the project title or contract title.

Hebrew Description: שם מלא של המכרז, כולל מספר וסוג (פומבי, דו-שלבי וכו')

Look for:
- Tender title or name (כותרת או שם המכרז)
- Project name or title (שם הפרויקט או הכותרת)
- Contract description (תיאור החוזה)
- RFP title or subject (כותרת הצעת המחיר)
- Work description or service title (תיאור העבודה או שם השירות)

For the answer: Return the complete title as it appears in the document **in Hebrew**.
For the details: Provide any additional description, scope details, or context about the project from the document **in Hebrew**.`,
			Examples: []string{
				`{"answer": "אספקת ציוד רפואי", "details": "רכש ציוד רפואי ברמת בית חולים וציוד אבחון למתקני בריאות אזוריים"}`,
				`{"answer": "בניית גשר כביש ראשי", "details": "פרויקט תשתית לבניית גשר פלדה באורך 200 מטר על מעבר הנהר הראשי"}`,
				`{"answer": "NOT_FOUND", "details": "NOT_FOUND"}`,
			},
		},
		"threshold_conditions": {
			Instruction: `Extract THRESHOLD CONDITIONS (תנאי סף) - qualifying requirements for bidders.

Hebrew Description: דרישות חובה להשתתפות - דוגמה: ניסיון, עמידה בחוקים, רישוי

Look for:
- Minimum qualifications or requirements (כישורים מינימליים או דרישות)
- Eligibility criteria or conditions (קריטריוני זכאות או תנאים)
- Technical thresholds or limits (ספים טכניים או מגבלות)
- Financial requirements or thresholds (דרישות כספיות או ספים)
- Experience requirements or minimum standards (דרישות ניסיון או סטנדרטים מינימליים)

For the answer: Return the specific conditions or requirements as stated **in Hebrew**.
For the details: Provide additional context about why these conditions exist, how they are verified, or related qualification details **in Hebrew**.`,
			Examples: []string{
				`{"answer": "ניסיון מינימלי של 5 שנים בפרויקטים דומים", "details": "הניסיון חייב להיות מוכח באמצעות פרויקטים שהושלמו בהיקף ובמורכבות דומים, מאומת על ידי המלצות לקוחות"}`,
				`{"answer": "מחזור שנתי של לפחות מיליון שקל", "details": "סף כספי להבטחת יכולת המציע, חייב להיות מגובה בדוחות כספיים מבוקרים משלוש השנים האחרונות"}`,
				`{"answer": "NOT_FOUND", "details": "NOT_FOUND"}`,
			},
		},
		"contract_period": {
			Instruction: `Extract the CONTRACT PERIOD (תקופת ההתקשרות) - duration or timeframe for project completion.

Hebrew Description: כמה זמן תימשך ההתקשרות, ואם קיימות אופציות להארכה

Look for:
- Contract duration or period (משך החוזה או התקופה)
- Project timeline or schedule (לוח זמנים של הפרויקט)
- Completion timeframe (מסגרת זמן להשלמה)
- Start and end dates (תאריכי התחלה וסיום)
- Service period or term (תקופת השירות)

For the answer: Return the time period as specified in the document **in Hebrew**.
For the details: Provide additional context about project phases, milestones, or timeline requirements mentioned in the document **in Hebrew**.`,
			Examples: []string{
				`{"answer": "12 חודשים", "details": "משך החוזה כולל שלב הכנה של 3 חודשים, שלב יישום של 8 חודשים ותקופת אחריות של חודש אחד"}`,
				`{"answer": "ינואר 2024 עד דצמבר 2025", "details": "תקופת חוזה של שנתיים עם אופציה להארכה לשנה נוספת על בסיס הערכת ביצועים"}`,
				`{"answer": "NOT_FOUND", "details": "NOT_FOUND"}`,
			},
		},
		"evaluation_method": {
			Instruction: `Extract the EVALUATION METHOD (שיטת הערכה) - criteria used to assess bids.

Hebrew Description: כיצד נשקלות ההצעות - מחיר מול איכות, קריטריונים לניקוד

Look for:
- Evaluation criteria or method (קריטריוני הערכה או שיטה)
- Scoring system or methodology (מערכת ניקוד או מתודולוגיה)
- Assessment approach (גישת הערכה)
- Selection criteria (קריטריוני בחירה)
- Weighting system for bid evaluation (מערכת שקלול להערכת הצעות)

For the answer: Return the evaluation method as described in the document **in Hebrew**.
For the details: Provide additional information about the evaluation process, scoring breakdown, or assessment criteria mentioned **in Hebrew**.`,
			Examples: []string{
				`{"answer": "70% ניקוד טכני, 30% ניקוד כספי", "details": "הערכה טכנית כוללת ניסיון, מתודולוגיה וכישורי הצוות; הערכה כספית מבוססת על עלות כוללת ויחס עלות-תועלת"}`,
				`{"answer": "תהליך הערכה דו-שלבי", "details": "שלב א: בדיקת כישורים טכניים; שלב ב: הערכת הצעה כספית למציעים שעברו הכשרה טכנית בלבד"}`,
				`{"answer": "NOT_FOUND", "details": "NOT_FOUND"}`,
			},
		},
		"bid_guarantee": {
			Instruction: `Extract BID GUARANTEE (ערבות מכרז) - security requirements for submission.

Hebrew Description: סכום הערבות, סוג הערבות, תנאי פירעון, תוקף

Look for:
- Bid security or guarantee amount (סכום ערבות או ביטחון המכרז)
- Bank guarantee requirements (דרישות ערבות בנקאית)
- Performance bond details (פרטי ערבות ביצוע)
- Deposit or security requirements (דרישות פיקדון או ביטחון)
- Financial guarantee specifications (מפרטי ערבות כספית)

For the answer: Return the guarantee requirements as specified **in Hebrew**.
For the details: Provide additional context about the guarantee purpose, validity period, or related security requirements **in Hebrew**.`,
			Examples: []string{
				`{"answer": "2% מערך ההצעה כערבות בנקאית", "details": "ערבות המכרז חייבת להיות בתוקף ל-90 יום ממועד הגשת ההצעה, מונפקת על ידי בנק מורשה, ומכסה התחייבות רצינית להצעה"}`,
				`{"answer": "פיקדון ביטחון של 10,000 שקל", "details": "סכום פיקדון קבוע הנדרש עם הגשת ההצעה, יוחזר למציעים שלא זכו בתוך 30 יום מהזכייה"}`,
				`{"answer": "NOT_FOUND", "details": "NOT_FOUND"}`,
			},
		},
		"idea_author": {
			Instruction: `Extract the IDEA AUTHOR (הוגה הרעיון) - consultant or entity that prepared/designed this tender.

Hebrew Description: פרטי מידע שאינם זמינים במכרז עצמו - אין לצפות שיימצאו במסמך

Look for:
- Consultant name or firm (שם יועץ או משרד)
- Document author or preparer (כותב או מכין המסמך)
- Design firm or architect (משרד תכנון או אדריכל)
- Technical author or expert (כותב טכני או מומחה)
- "Prepared by" or "Designed by" information (מידע "הוכן על ידי" או "תוכנן על ידי")

NOTE: This parameter is typically not present in tender documents.

For the answer: Return the name of the author/consultant as mentioned **in Hebrew**, or "NOT_FOUND" if not present.
For the details: Provide additional context about their role, expertise, or involvement in the project as described in the document **in Hebrew**.`,
			Examples: []string{
				`{"answer": "חברת יעוץ הנדסי XYZ", "details": "משרד יעוץ טכני האחראי על תכנון הפרויקט והכנת מסמכי המכרז, מתמחה בפרויקטי תשתית"}`,
				`{"answer": "NOT_FOUND", "details": "NOT_FOUND"}`,
			},
		},
	}
}

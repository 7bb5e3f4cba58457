package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/stenolabs/demandgen/internal/common/telemetry"
)

const systemPrompt = `You are an expert legal document assistant specializing in demand letters.
Your role is to generate professional, persuasive demand letters based on provided
case information and source documents.

Key principles:
1. Use clear, professional legal language
2. Organize content logically (introduction, facts, liability, damages, demand)
3. Base all arguments on the provided source documents
4. Maintain objective tone while being persuasive
5. Calculate reasonable damages based on evidence
6. Follow standard demand letter format
7. Include appropriate legal disclaimers

CRITICAL - Amount Extraction and Placeholder Replacement:
- Carefully analyze the source documents to extract all monetary amounts (medical bills, repair costs, lost wages, etc.)
- If a template is provided with $[AMOUNT] placeholders, you MUST replace each placeholder with actual dollar amounts extracted from or calculated based on the source documents
- When specific amounts are found in source documents, use those exact figures
- When amounts need to be calculated (e.g., pain and suffering, future damages), provide reasonable estimates based on the evidence and clearly note they are calculated
- NEVER leave $[AMOUNT] or similar placeholders in the final output - every amount must be filled in
- Format all monetary values consistently (e.g., $1,234.56)
- Itemize damages clearly with subtotals and a grand total

Output format:
- Clear section headers
- Professional font-ready formatting
- ALL placeholder variables replaced with actual values - no placeholders in final output
- Word count 800-2000 words

Generate a complete, professional demand letter that can be used immediately after review.`

const (
	maxSourceChars   = 5000
	minContentLength = 500
	maxContentLength = 15000
	maxRepeatRun     = 10

	defaultMaxTokens   = 4096
	defaultTemperature = 0.3

	inputCostPerMillion  = 3.0
	outputCostPerMillion = 15.0
)

var usd = message.NewPrinter(language.AmericanEnglish)

// LetterData is the case metadata fed into the generation prompt.
type LetterData struct {
	ClientName    string
	DefendantName string
	IncidentDate  *time.Time
	DemandAmount  *float64
	CaseReference string
	Injuries      string
	Damages       string
}

// GenerationResult is the immutable outcome of one generation call.
type GenerationResult struct {
	Content      string
	InputTokens  int64
	OutputTokens int64
	Model        string
}

// Generator turns case data, extracted source text and an optional template
// guide into a finished letter body via the configured provider. Single-shot:
// no retries, no intermediate state.
type Generator struct {
	provider    Provider
	timeout     time.Duration
	maxTokens   int64
	temperature float64
}

// NewGenerator wires a generator to a provider. A nil provider is legal and
// yields a ConfigurationError on the first Generate call.
func NewGenerator(provider Provider) *Generator {
	return &Generator{
		provider:    provider,
		timeout:     defaultRequestTimeout,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
	}
}

// Generate produces a validated demand letter body. Errors follow the
// taxonomy in errors.go; validation failures never leak partial content.
func (g *Generator) Generate(ctx context.Context, letter LetterData, sourceTexts []string, templateText string) (*GenerationResult, error) {
	if g.provider == nil {
		telemetry.RecordGenerationFailure("configuration")
		return nil, &ConfigurationError{Reason: "no generation provider configured; set OPENROUTER_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY"}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	ctx, end := telemetry.StartSpan(ctx, "ai.generate")
	defer end("provider", g.provider.Name())

	start := time.Now()
	resp, err := g.provider.Complete(ctx, CompletionRequest{
		System:      systemPrompt,
		Prompt:      BuildPrompt(letter, sourceTexts, templateText),
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		kind := "service"
		if isTimeout(err) {
			kind = "timeout"
		}
		telemetry.RecordGenerationFailure(kind)
		return nil, err
	}

	if qerr := ValidateContent(resp.Content); qerr != nil {
		telemetry.RecordGenerationFailure("quality")
		return nil, qerr
	}

	telemetry.RecordGeneration(resp.InputTokens, resp.OutputTokens, time.Since(start))
	return &GenerationResult{
		Content:      resp.Content,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		Model:        resp.Model,
	}, nil
}

// BuildPrompt assembles the user prompt: case fields, truncated source
// document texts, and the optional template structure guide.
func BuildPrompt(letter LetterData, sourceTexts []string, templateText string) string {
	incidentDate := "Not specified"
	if letter.IncidentDate != nil {
		incidentDate = letter.IncidentDate.Format("January 2, 2006")
	}
	demandAmount := "To be determined"
	if letter.DemandAmount != nil {
		demandAmount = FormatUSD(*letter.DemandAmount)
	}
	caseReference := letter.CaseReference
	if strings.TrimSpace(caseReference) == "" {
		caseReference = "Not specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Generate a professional demand letter with the following information:

CASE INFORMATION:
- Client Name: %s
- Defendant Name: %s
- Incident Date: %s
- Case Reference: %s
- Demand Amount: %s`, letter.ClientName, letter.DefendantName, incidentDate, caseReference, demandAmount)

	if letter.Injuries != "" {
		fmt.Fprintf(&b, "\n- Injuries Sustained: %s", letter.Injuries)
	}
	if letter.Damages != "" {
		fmt.Fprintf(&b, "\n- Damages Description: %s", letter.Damages)
	}

	if len(sourceTexts) > 0 {
		b.WriteString("\n\nSOURCE DOCUMENTS CONTENT:\nThe following documents provide evidence and details about the case:\n")
		for i, text := range sourceTexts {
			fmt.Fprintf(&b, "\n--- Document %d ---\n", i+1)
			if len(text) > maxSourceChars {
				b.WriteString(text[:maxSourceChars])
				b.WriteString("\n[Document truncated for length]")
			} else {
				b.WriteString(text)
			}
			b.WriteString("\n")
		}
	}

	if templateText != "" {
		fmt.Fprintf(&b, `

TEMPLATE STRUCTURE:
Use the following template as a structural guide. IMPORTANT: Replace ALL $[AMOUNT] placeholders with actual dollar amounts based on the source documents above. Extract specific amounts where available, or calculate reasonable estimates where needed.

%s
`, templateText)
	}

	b.WriteString(`

REQUIREMENTS:
1. Professional legal tone and language
2. Clear section structure with the following sections:
   - Opening paragraph (introduce attorney/law firm and purpose)
   - Statement of Facts (what happened, when, where, parties involved)
   - Legal Liability Analysis (why defendant is liable)
   - Damages and Injuries (itemize losses, medical expenses, pain and suffering)
   - Demand for Settlement (specific amount and payment terms)
   - Closing (deadline for response, consequences of non-compliance)
3. Persuasive but factual language based on provided documents
4. Appropriate demand amount justified by damages
5. Standard demand letter format suitable for legal correspondence
6. Include date placeholder [DATE] at the top
7. Include signature line placeholder at the bottom

Generate the complete demand letter now:`)

	return b.String()
}

// ValidateContent applies the quality gates in order and returns the first
// violated rule, or nil when the content passes.
func ValidateContent(content string) *ContentQualityError {
	if len(content) < minContentLength {
		return &ContentQualityError{Rule: "too short", Detail: "generated content too short (< 500 characters)"}
	}
	if len(content) > maxContentLength {
		return &ContentQualityError{Rule: "too long", Detail: "generated content too long (> 15,000 characters)"}
	}
	lower := strings.ToLower(content)
	signals := 0
	for _, group := range [][]string{
		{"fact", "incident"},
		{"liabilit", "responsible"},
		{"damage", "injur"},
		{"demand", "settlement"},
	} {
		for _, word := range group {
			if strings.Contains(lower, word) {
				signals++
				break
			}
		}
	}
	if signals < 2 {
		return &ContentQualityError{Rule: "missing key sections", Detail: "generated content missing key sections"}
	}
	if hasRepeatedRun(content, maxRepeatRun) {
		return &ContentQualityError{Rule: "contains gibberish", Detail: "generated content contains gibberish"}
	}
	return nil
}

// hasRepeatedRun reports whether any character repeats more than limit times
// consecutively. Backreferences are unavailable in RE2, so this is a scan.
func hasRepeatedRun(s string, limit int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if run > 0 && r == prev {
			run++
			if run > limit {
				return true
			}
			continue
		}
		prev = r
		run = 1
	}
	return false
}

// CalculateCost estimates the dollar cost of a generation from token counts
// using fixed per-million rates. Pure function.
func CalculateCost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputCostPerMillion
	outputCost := float64(outputTokens) / 1_000_000 * outputCostPerMillion
	return inputCost + outputCost
}

// FormatUSD renders an amount as a US-locale currency string ($1,234.56).
func FormatUSD(amount float64) string {
	return usd.Sprintf("$%.2f", amount)
}

func isTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type mockProvider struct {
	response *CompletionResponse
	err      error
	lastReq  CompletionRequest
	calls    int
}

func (m *mockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *mockProvider) Name() string { return "mock" }

// plausibleLetter builds content that passes every quality gate.
func plausibleLetter(length int) string {
	base := "The facts of the incident establish that the defendant is responsible. " +
		"Our client suffered damages and injuries. We demand settlement. "
	var b strings.Builder
	for b.Len() < length {
		b.WriteString(base)
	}
	return b.String()[:length]
}

func TestGenerateWithoutProviderFailsFast(t *testing.T) {
	g := NewGenerator(nil)
	_, err := g.Generate(context.Background(), LetterData{ClientName: "Jane Smith"}, nil, "")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestGenerateReturnsUsageAndReportedModel(t *testing.T) {
	provider := &mockProvider{response: &CompletionResponse{
		Content:      plausibleLetter(900),
		Model:        "anthropic/claude-3.5-sonnet:beta",
		InputTokens:  1200,
		OutputTokens: 800,
	}}
	g := NewGenerator(provider)
	result, err := g.Generate(context.Background(), LetterData{ClientName: "Jane Smith", DefendantName: "Acme Corp"}, []string{"medical report text"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Model != "anthropic/claude-3.5-sonnet:beta" {
		t.Fatalf("model = %q, want the service-reported identifier", result.Model)
	}
	if result.InputTokens != 1200 || result.OutputTokens != 800 {
		t.Fatalf("unexpected usage: %+v", result)
	}
	if provider.calls != 1 {
		t.Fatalf("provider called %d times", provider.calls)
	}
	if provider.lastReq.MaxTokens != defaultMaxTokens || provider.lastReq.Temperature != defaultTemperature {
		t.Fatalf("unexpected generation parameters: %+v", provider.lastReq)
	}
}

func TestGenerateRejectsLowQualityContent(t *testing.T) {
	provider := &mockProvider{response: &CompletionResponse{Content: "too short"}}
	g := NewGenerator(provider)
	_, err := g.Generate(context.Background(), LetterData{}, nil, "")
	var qErr *ContentQualityError
	if !errors.As(err, &qErr) {
		t.Fatalf("expected ContentQualityError, got %v", err)
	}
	if qErr.Rule != "too short" {
		t.Fatalf("rule = %q", qErr.Rule)
	}
}

func TestGeneratePropagatesServiceError(t *testing.T) {
	provider := &mockProvider{err: &ServiceError{Status: 429, Message: "rate limited"}}
	g := NewGenerator(provider)
	_, err := g.Generate(context.Background(), LetterData{}, nil, "")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.Status != 429 {
		t.Fatalf("expected ServiceError 429, got %v", err)
	}
	if provider.calls != 1 {
		t.Fatal("service errors must not be retried")
	}
}

func TestTimeoutIsServiceErrorSubtype(t *testing.T) {
	provider := &mockProvider{err: &ServiceError{Message: "deadline", Err: ErrTimeout}}
	g := NewGenerator(provider)
	_, err := g.Generate(context.Background(), LetterData{}, nil, "")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout in chain, got %v", err)
	}
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("timeout must surface as ServiceError, got %v", err)
	}
}

func TestBuildPromptCaseFields(t *testing.T) {
	incident := time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC)
	amount := 125000.50
	prompt := BuildPrompt(LetterData{
		ClientName:    "Jane Smith",
		DefendantName: "Acme Corp",
		IncidentDate:  &incident,
		DemandAmount:  &amount,
		CaseReference: "PI-2025-0042",
		Injuries:      "whiplash",
		Damages:       "vehicle total loss",
	}, nil, "")
	for _, want := range []string{
		"Client Name: Jane Smith",
		"Defendant Name: Acme Corp",
		"Incident Date: March 14, 2025",
		"Demand Amount: $125,000.50",
		"Case Reference: PI-2025-0042",
		"Injuries Sustained: whiplash",
		"Damages Description: vehicle total loss",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptAbsentFieldsUsePlaceholders(t *testing.T) {
	prompt := BuildPrompt(LetterData{ClientName: "A", DefendantName: "B"}, nil, "")
	if !strings.Contains(prompt, "Incident Date: Not specified") {
		t.Fatal("missing incident date placeholder")
	}
	if !strings.Contains(prompt, "Demand Amount: To be determined") {
		t.Fatal("missing demand amount placeholder")
	}
	if !strings.Contains(prompt, "Case Reference: Not specified") {
		t.Fatal("missing case reference placeholder")
	}
	if strings.Contains(prompt, "Injuries Sustained") {
		t.Fatal("injuries line should be omitted when empty")
	}
}

func TestBuildPromptTruncatesSourceTexts(t *testing.T) {
	long := strings.Repeat("evidence ", 1000) // ~9000 chars
	prompt := BuildPrompt(LetterData{}, []string{long, "short document"}, "")
	if !strings.Contains(prompt, "[Document truncated for length]") {
		t.Fatal("missing truncation notice")
	}
	if !strings.Contains(prompt, "--- Document 1 ---") || !strings.Contains(prompt, "--- Document 2 ---") {
		t.Fatal("missing document delimiters")
	}
	if strings.Count(prompt, "[Document truncated for length]") != 1 {
		t.Fatal("short document must not carry a truncation notice")
	}
}

func TestBuildPromptTemplateInstruction(t *testing.T) {
	prompt := BuildPrompt(LetterData{}, nil, "Opening\nDemand $[AMOUNT] now")
	if !strings.Contains(prompt, "TEMPLATE STRUCTURE:") {
		t.Fatal("missing template section")
	}
	if !strings.Contains(prompt, "Replace ALL $[AMOUNT] placeholders") {
		t.Fatal("missing amount resolution instruction")
	}
}

func TestValidateContentLengthBoundaries(t *testing.T) {
	if err := ValidateContent(plausibleLetter(499)); err == nil || err.Rule != "too short" {
		t.Fatalf("499 chars should be too short, got %v", err)
	}
	if err := ValidateContent(plausibleLetter(500)); err != nil {
		t.Fatalf("500 chars should pass the length check, got %v", err)
	}
	if err := ValidateContent(plausibleLetter(15001)); err == nil || err.Rule != "too long" {
		t.Fatalf("15001 chars should be too long, got %v", err)
	}
}

func TestValidateContentMissingSections(t *testing.T) {
	content := strings.Repeat("lorem ipsum dolor sit amet ", 30)
	if err := ValidateContent(content); err == nil || err.Rule != "missing key sections" {
		t.Fatalf("expected missing key sections, got %v", err)
	}
	// one signal group is not enough
	oneSignal := strings.Repeat("the incident happened here ", 30)
	if err := ValidateContent(oneSignal); err == nil || err.Rule != "missing key sections" {
		t.Fatalf("single topical signal should fail, got %v", err)
	}
}

func TestValidateContentGibberish(t *testing.T) {
	content := plausibleLetter(600) + strings.Repeat("z", 11)
	if err := ValidateContent(content); err == nil || err.Rule != "contains gibberish" {
		t.Fatalf("11-run should be gibberish, got %v", err)
	}
	borderline := plausibleLetter(600) + strings.Repeat("z", 10)
	if err := ValidateContent(borderline); err != nil {
		t.Fatalf("10-run should pass, got %v", err)
	}
}

func TestCalculateCostLinearity(t *testing.T) {
	one := CalculateCost(1_000_000, 0)
	two := CalculateCost(2_000_000, 0)
	if two != 2*one {
		t.Fatalf("cost not linear: %v vs %v", one, two)
	}
	if one != 3.0 {
		t.Fatalf("input rate = %v, want 3.0 per million", one)
	}
	if got := CalculateCost(0, 1_000_000); got != 15.0 {
		t.Fatalf("output rate = %v, want 15.0 per million", got)
	}
	if got := CalculateCost(0, 0); got != 0 {
		t.Fatalf("zero usage should cost nothing, got %v", got)
	}
}

func TestFormatUSD(t *testing.T) {
	if got := FormatUSD(1234.5); got != "$1,234.50" {
		t.Fatalf("got %q", got)
	}
	if got := FormatUSD(50); got != "$50.00" {
		t.Fatalf("got %q", got)
	}
}

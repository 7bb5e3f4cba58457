package template

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestExtractVariablesDeduplicates(t *testing.T) {
	content := Content{Sections: []Section{
		{ID: "intro", Title: "Intro", Content: "Dear {{defendant_name}}, re {{client_name}} and {{client_name}}.", Order: 1},
		{ID: "demand", Title: "Demand for {{demand_amount}}", Content: "Pay {{demand_amount}} by {{demand_deadline}}.", Order: 2},
	}}
	got := ExtractVariables(content)
	want := []string{"client_name", "defendant_name", "demand_amount", "demand_deadline"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestExtractVariablesIdempotent(t *testing.T) {
	content := Content{Sections: []Section{
		{ID: "a", Title: "T", Content: "{{client_name}} vs {{defendant_name}}", Order: 1},
	}}
	first := ExtractVariables(content)
	second := ExtractVariables(content)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("extraction not idempotent: %v vs %v", first, second)
	}
}

func TestExtractVariablesFindsTokensOutsideContentField(t *testing.T) {
	content := Content{Sections: []Section{
		{ID: "sec-{{case_reference}}", Title: "Re: {{case_type}}", Content: "no tokens here", Order: 1},
	}}
	got := ExtractVariables(content)
	want := []string{"case_reference", "case_type"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestExtractVariablesEmpty(t *testing.T) {
	if got := ExtractVariables(Content{}); len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
	content := Content{Sections: []Section{{ID: "a", Title: "A", Content: "plain text", Order: 1}}}
	if got := ExtractVariables(content); len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
}

func TestValidateVariablesPartition(t *testing.T) {
	valid, invalid := ValidateVariables([]string{"client_name", "not_a_real_var"})
	if !reflect.DeepEqual(valid, []string{"client_name"}) {
		t.Fatalf("valid = %v", valid)
	}
	if !reflect.DeepEqual(invalid, []string{"not_a_real_var"}) {
		t.Fatalf("invalid = %v", invalid)
	}
}

func TestSubstituteVariablesPartial(t *testing.T) {
	content := Content{Sections: []Section{
		{ID: "a", Title: "A", Content: "Dear {{defendant_name}}, regarding {{client_name}}.", Order: 1},
	}}
	out := SubstituteVariables(content, map[string]string{"client_name": "Jane Smith"})
	got := out.Sections[0].Content
	want := "Dear {{defendant_name}}, regarding Jane Smith."
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	// input untouched
	if content.Sections[0].Content != "Dear {{defendant_name}}, regarding {{client_name}}." {
		t.Fatal("input content was mutated")
	}
}

func TestSubstituteVariablesEmptyMapRoundTrips(t *testing.T) {
	content := Content{Sections: []Section{
		{ID: "a", Title: "Re {{case_reference}}", Content: "Dear {{defendant_name}}", Order: 1},
	}}
	out := SubstituteVariables(content, nil)
	before, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("marshal input: %v", err)
	}
	after, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal output: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("round trip changed serialization:\n%s\n%s", before, after)
	}
}

func TestSubstituteVariablesCompleteMapLeavesNoTokens(t *testing.T) {
	content := Content{Sections: []Section{
		{ID: "a", Title: "Claim of {{client_name}}", Content: "{{client_name}} demands {{demand_amount}} from {{defendant_name}}.", Order: 1},
	}}
	values := map[string]string{}
	for _, name := range ExtractVariables(content) {
		values[name] = "X"
	}
	out := SubstituteVariables(content, values)
	serialized, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if variablePattern.Match(serialized) {
		t.Fatalf("unsubstituted tokens remain: %s", serialized)
	}
}

func TestSubstituteVariablesEmptyStringClearsPlaceholder(t *testing.T) {
	content := Content{Sections: []Section{
		{ID: "a", Title: "A", Content: "Ref: {{case_reference}}.", Order: 1},
	}}
	out := SubstituteVariables(content, map[string]string{"case_reference": ""})
	if got := out.Sections[0].Content; got != "Ref: ." {
		t.Fatalf("empty value should clear placeholder, got %q", got)
	}
}

func TestSubstituteVariablesValueWithControlCharacters(t *testing.T) {
	content := Content{Sections: []Section{
		{ID: "a", Title: "A", Content: "Note: {{damages}}", Order: 1},
	}}
	value := "line one\nline \"two\" \\ end"
	out := SubstituteVariables(content, map[string]string{"damages": value})
	if got := out.Sections[0].Content; got != "Note: "+value {
		t.Fatalf("got %q", got)
	}
}

func TestSubstituteVariablesRefreshesCache(t *testing.T) {
	content := Content{
		Sections:  []Section{{ID: "a", Title: "A", Content: "{{client_name}} and {{defendant_name}}", Order: 1}},
		Variables: []string{"client_name", "defendant_name"},
	}
	out := SubstituteVariables(content, map[string]string{"client_name": "Jane Smith"})
	if !reflect.DeepEqual(out.Variables, []string{"defendant_name"}) {
		t.Fatalf("cache not refreshed: %v", out.Variables)
	}
}

func TestFlattenText(t *testing.T) {
	content := Content{Sections: []Section{
		{ID: "a", Title: "Opening", Content: "Dear sir", Order: 1},
		{ID: "b", Title: "Facts", Content: "It happened", Order: 2},
	}}
	flat := content.FlattenText()
	for _, want := range []string{"Opening", "Dear sir", "Facts", "It happened"} {
		if !strings.Contains(flat, want) {
			t.Fatalf("flattened text missing %q: %s", want, flat)
		}
	}
}

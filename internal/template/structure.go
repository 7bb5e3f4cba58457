package template

import (
	"encoding/json"
	"fmt"
)

// ValidationResult reports every structural violation found in a candidate
// template body, not just the first.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidateStructure checks an arbitrary decoded JSON value against the
// template shape: an object with a non-empty sections array whose entries
// each carry an id, a title, a content field (empty string allowed) and a
// numeric order. Section problems are collected across all sections.
func ValidateStructure(value any) ValidationResult {
	var errs []string

	obj, ok := value.(map[string]any)
	if value == nil || !ok {
		errs = append(errs, "Template content must be an object")
		return ValidationResult{Valid: false, Errors: errs}
	}

	rawSections, ok := obj["sections"].([]any)
	if !ok {
		errs = append(errs, "Template must have a sections array")
		return ValidationResult{Valid: false, Errors: errs}
	}

	if len(rawSections) == 0 {
		errs = append(errs, "Template must have at least one section")
	}

	for i, raw := range rawSections {
		pos := i + 1
		sec, ok := raw.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("Section %d is missing an id", pos))
			errs = append(errs, fmt.Sprintf("Section %d is missing a title", pos))
			errs = append(errs, fmt.Sprintf("Section %d is missing content", pos))
			errs = append(errs, fmt.Sprintf("Section %d is missing a valid order number", pos))
			continue
		}
		if id, _ := sec["id"].(string); id == "" {
			errs = append(errs, fmt.Sprintf("Section %d is missing an id", pos))
		}
		if title, _ := sec["title"].(string); title == "" {
			errs = append(errs, fmt.Sprintf("Section %d is missing a title", pos))
		}
		// Only strict absence is an error; an empty content string is valid.
		if _, present := sec["content"]; !present {
			errs = append(errs, fmt.Sprintf("Section %d is missing content", pos))
		}
		if !isNumber(sec["order"]) {
			errs = append(errs, fmt.Sprintf("Section %d is missing a valid order number", pos))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ParseContent validates a raw JSON template body and decodes it into typed
// form. The returned errors are the validator's full violation list.
func ParseContent(raw json.RawMessage) (Content, ValidationResult, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Content{}, ValidationResult{Valid: false, Errors: []string{"Template content must be an object"}}, nil
	}
	result := ValidateStructure(decoded)
	if !result.Valid {
		return Content{}, result, nil
	}
	var content Content
	if err := json.Unmarshal(raw, &content); err != nil {
		return Content{}, ValidationResult{}, fmt.Errorf("decode template content: %w", err)
	}
	return content, result, nil
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, json.Number:
		return true
	default:
		return false
	}
}

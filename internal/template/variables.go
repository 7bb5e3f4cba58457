package template

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

// variablePattern matches {{name}} placeholder tokens.
var variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// ExtractVariables returns the distinct placeholder names referenced anywhere
// in the content, including ids and titles. Names are sorted so iteration is
// deterministic; callers treat the result as a set.
func ExtractVariables(content Content) []string {
	// Serialize the whole structure so placeholders embedded in any textual
	// field are found, then scan the flat form.
	content.Variables = nil
	serialized, err := json.Marshal(content)
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, match := range variablePattern.FindAllSubmatch(serialized, -1) {
		seen[string(match[1])] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateVariables partitions names into those present in the catalog and
// those unrecognized. Input order and duplicates are preserved.
func ValidateVariables(names []string) (valid, invalid []string) {
	valid = make([]string, 0, len(names))
	invalid = make([]string, 0)
	for _, name := range names {
		if IsKnown(name) {
			valid = append(valid, name)
		} else {
			invalid = append(invalid, name)
		}
	}
	return valid, invalid
}

// SubstituteVariables returns a copy of content with every {{name}} occurrence
// replaced for names present in values. A supplied empty string clears the
// placeholder; only a missing key leaves it intact. The input is not mutated.
//
// Replacement walks string fields directly instead of round-tripping the
// structure through its serialized form, so values containing quotes or
// control characters cannot corrupt anything.
func SubstituteVariables(content Content, values map[string]string) Content {
	out := Content{Sections: make([]Section, len(content.Sections))}
	for i, sec := range content.Sections {
		out.Sections[i] = Section{
			ID:      substituteText(sec.ID, values),
			Title:   substituteText(sec.Title, values),
			Content: substituteText(sec.Content, values),
			Order:   sec.Order,
		}
	}
	// The variables cache is derived state; refresh it when the input was
	// carrying one, otherwise leave it unset so an unchanged template
	// round-trips byte-identically.
	if content.Variables != nil {
		out.Variables = ExtractVariables(out)
	}
	return out
}

func substituteText(text string, values map[string]string) string {
	if len(values) == 0 || !strings.Contains(text, "{{") {
		return text
	}
	return variablePattern.ReplaceAllStringFunc(text, func(token string) string {
		name := token[2 : len(token)-2]
		if value, ok := values[name]; ok {
			return value
		}
		return token
	})
}

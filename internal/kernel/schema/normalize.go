package schema

import "strings"

// enumFields lists the artifact fields that are enumerations and must be
// case-folded to their canonical upper-case form before validation
// (spec.md §4.2 "Normalization": `"create"` -> `"CREATE"`).
var enumFields = map[string]bool{
	"complexity": true,
}

// normalize returns a shallow copy of raw with every known enum field
// case-folded to upper-case. Unknown fields and non-string enum values are
// passed through unchanged; schema validation catches those.
func normalize(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if enumFields[k] {
			if s, ok := v.(string); ok {
				out[k] = strings.ToUpper(s)
				continue
			}
		}
		out[k] = v
	}
	return out
}

package storage

import "time"

// dateFormats is the prioritized list of accepted input date layouts.
var dateFormats = []string{
	"2006/01/02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006-01-02",
}

// canonicalDateLayout is the store-accepted output form.
const canonicalDateLayout = "2006-01-02T15:04:05"

// dateFields are document fields that receive date normalization.
var dateFields = map[string]bool{
	"dt":           true,
	"date_created": true,
}

// excludedFields are transient per-run timing fields that never reach
// the store.
var excludedFields = map[string]bool{
	"time_articut_tagger":   true,
	"time_date_conversion":  true,
	"time_prewrite_summary": true,
	"time_text_embeddings":  true,
	"total_processing_time": true,
}

// NormalizeDate parses a date string against the accepted layouts and
// re-emits it in canonical form. The second return is false when no
// layout matched; callers pass the original value through unchanged.
func NormalizeDate(value string) (string, bool) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(canonicalDateLayout), true
		}
	}
	return value, false
}

// sanitizeValue replaces nil with an empty string at any nesting level
// and recurses into lists and maps. The store normalizes nulls
// inconsistently across field types, so they never leave this package.
func sanitizeValue(value any) any {
	switch v := value.(type) {
	case nil:
		return ""
	case []any:
		cleaned := make([]any, len(v))
		for i, item := range v {
			cleaned[i] = sanitizeValue(item)
		}
		return cleaned
	case map[string]any:
		cleaned := make(map[string]any, len(v))
		for k, item := range v {
			cleaned[k] = sanitizeValue(item)
		}
		return cleaned
	default:
		return v
	}
}

// SanitizeDocument returns a copy of the document with nulls replaced
// by empty strings at every nesting level and transient timing fields
// dropped. Date fields are normalized where parseable; the
// unparseable set is returned so the caller can log a warning.
func SanitizeDocument(document map[string]any) (map[string]any, []string) {
	cleaned := make(map[string]any, len(document))
	var badDates []string

	for key, value := range document {
		if excludedFields[key] {
			continue
		}

		if dateFields[key] {
			if str, ok := value.(string); ok && str != "" {
				normalized, parsed := NormalizeDate(str)
				if !parsed {
					badDates = append(badDates, key)
				}
				cleaned[key] = normalized
				continue
			}
		}

		cleaned[key] = sanitizeValue(value)
	}

	return cleaned, badDates
}

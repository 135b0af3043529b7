package connectors

import "regexp"

var (
	emailRE = regexp.MustCompile(`(?i)\b[A-Z0-9._%+\-]+@[A-Z0-9.\-]+\.[A-Z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?1[-.\s]?)?(?:\(?\d{3}\)?[-.\s]?)\d{3}[-.\s]?\d{4}\b`)
	keyRE   = regexp.MustCompile(`(?i)\b(?:sk|pk|api|token)[_\-]?[A-Za-z0-9]{8,}\b`)
)

// RedactText masks emails, phone numbers and API-key shaped tokens.
func RedactText(value string) string {
	out := emailRE.ReplaceAllString(value, "[REDACTED_EMAIL]")
	out = phoneRE.ReplaceAllString(out, "[REDACTED_PHONE]")
	return keyRE.ReplaceAllString(out, "[REDACTED_KEY]")
}

// RedactValue walks a decoded JSON value, masking every string leaf.
func RedactValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = RedactValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = RedactValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = RedactValue(item)
		}
		return out
	case string:
		return RedactText(v)
	}
	return value
}

// RedactMap redacts a payload map in depth, never mutating the input.
func RedactMap(payload map[string]any) map[string]any {
	if payload == nil {
		return map[string]any{}
	}
	return RedactValue(payload).(map[string]any)
}

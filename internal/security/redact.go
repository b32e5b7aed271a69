package security

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// SecretRedactor masks credentials in text that leaves the process: error
// messages, log lines and chat entries built from service responses.
type SecretRedactor struct {
	// Patterns with one capture group keep the group and mask the rest.
	patterns []*regexp.Regexp
}

// NewSecretRedactor creates a redactor for the providers' key formats.
func NewSecretRedactor() *SecretRedactor {
	return &SecretRedactor{
		patterns: []*regexp.Regexp{
			// key=value and "api_key": "value"
			regexp.MustCompile(`(?i)((?:api[_-]?key|access[_-]?token|auth[_-]?token|secret|password)["']?\s*[:=]\s*["']?)[a-zA-Z0-9_\-\.]{8,}`),
			regexp.MustCompile(`(?i)(Bearer\s+)[a-zA-Z0-9_\-\.]{10,256}`),
			// OpenAI
			regexp.MustCompile(`()sk-(?:proj-)?[a-zA-Z0-9_\-]{16,}`),
			// Google
			regexp.MustCompile(`()AIza[0-9A-Za-z\-_]{35}`),
		},
	}
}

// Redact masks all detected secrets in text.
func (r *SecretRedactor) Redact(text string) string {
	if text == "" {
		return ""
	}
	for _, p := range r.patterns {
		text = p.ReplaceAllString(text, "${1}"+redacted)
	}
	return text
}

// AddPattern adds a pattern. Its first capture group, if any, is kept.
func (r *SecretRedactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	if re.NumSubexp() == 0 {
		re = regexp.MustCompile("()" + pattern)
	}
	r.patterns = append(r.patterns, re)
	return nil
}

// RedactMap redacts string values of a decoded JSON object, recursively.
func (r *SecretRedactor) RedactMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch v := v.(type) {
		case string:
			if isSecretKey(k) && v != "" {
				out[k] = redacted
			} else {
				out[k] = r.Redact(v)
			}
		case map[string]any:
			out[k] = r.RedactMap(v)
		default:
			out[k] = v
		}
	}
	return out
}

func isSecretKey(k string) bool {
	k = strings.ToLower(strings.ReplaceAll(k, "-", "_"))
	return k == "api_key" || k == "apikey" || k == "token" || k == "secret" || k == "password"
}

var defaultRedactor = NewSecretRedactor()

// Redact masks secrets using the default redactor.
func Redact(text string) string {
	return defaultRedactor.Redact(text)
}

// RedactMap masks secrets in m using the default redactor.
func RedactMap(m map[string]any) map[string]any {
	return defaultRedactor.RedactMap(m)
}

package reporter

import (
	"regexp"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const redactedMask = "***********"

const sensitiveKeys = `password|contrase[ñn]a|passwd|pwd|secret|token|credential|clave|api[_-]?key`

var (
	sensitiveKeyPattern = regexp.MustCompile(`(?i)(` + sensitiveKeys + `)`)
	// inlineSecretPattern matches `key=value`, `key: value` and `"key":"value"`
	// pairs in free text. Group 2 is the value.
	inlineSecretPattern = regexp.MustCompile(`(?i)("?[\w-]*(?:` + sensitiveKeys + `)[\w-]*"?\s*[:=]\s*"?)([^"&,;\s}\]]+)`)
)

// IsSensitiveKey reports whether an input named key must never be printed.
func IsSensitiveKey(key string) bool {
	return sensitiveKeyPattern.MatchString(key)
}

// Redactor masks sensitive input values in everything that ends up in a
// persisted report.
type Redactor struct {
	secrets []string
}

func NewRedactor(inputs *orderedmap.OrderedMap[string, string]) *Redactor {
	r := &Redactor{}
	if inputs == nil {
		return r
	}
	for pair := inputs.Oldest(); pair != nil; pair = pair.Next() {
		if IsSensitiveKey(pair.Key) && strings.TrimSpace(pair.Value) != "" {
			r.secrets = append(r.secrets, pair.Value)
		}
	}
	r.sortSecrets()
	return r
}

// ScrubBody masks the values of sensitive keys in a response body. JSON
// documents are walked at any depth; other bodies get key/value matching.
// The returned Redactor holds every masked value for scrubbing related text.
func ScrubBody(body string) (string, *Redactor) {
	r := &Redactor{}
	var doc any
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err == nil {
		switch doc.(type) {
		case map[string]any, []any:
			if out, err := json.Marshal(r.maskJSON(doc)); err == nil {
				r.sortSecrets()
				return string(out), r
			}
		}
	}
	out := r.maskInline(body)
	r.sortSecrets()
	return out, r
}

// ScrubText removes known secrets and any inline sensitive pair from text.
func (r *Redactor) ScrubText(text string) string {
	return inlineSecretPattern.ReplaceAllString(r.Scrub(text), "${1}"+redactedMask)
}

func (r *Redactor) maskJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if IsSensitiveKey(k) {
				t[k] = r.maskAll(child)
				continue
			}
			t[k] = r.maskJSON(child)
		}
	case []any:
		for i := range t {
			t[i] = r.maskJSON(t[i])
		}
	}
	return v
}

// maskAll replaces every scalar under v.
func (r *Redactor) maskAll(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = r.maskAll(child)
		}
		return t
	case []any:
		for i := range t {
			t[i] = r.maskAll(t[i])
		}
		return t
	case nil:
		return nil
	case string:
		r.remember(t)
	}
	return redactedMask
}

func (r *Redactor) maskInline(text string) string {
	for _, m := range inlineSecretPattern.FindAllStringSubmatch(text, -1) {
		r.remember(m[2])
	}
	return inlineSecretPattern.ReplaceAllString(text, "${1}"+redactedMask)
}

func (r *Redactor) remember(secret string) {
	if strings.TrimSpace(secret) != "" && secret != redactedMask {
		r.secrets = append(r.secrets, secret)
	}
}

// sortSecrets puts the longest first so a secret containing another is
// replaced whole.
func (r *Redactor) sortSecrets() {
	sort.SliceStable(r.secrets, func(i, j int) bool {
		return len(r.secrets[i]) > len(r.secrets[j])
	})
}

// Value returns the printable form of an input.
func (r *Redactor) Value(key, value string) string {
	if IsSensitiveKey(key) {
		return redactedMask
	}
	return r.Scrub(value)
}

// Scrub replaces every known secret occurring in text.
func (r *Redactor) Scrub(text string) string {
	if r == nil {
		return text
	}
	for _, s := range r.secrets {
		text = strings.ReplaceAll(text, s, redactedMask)
	}
	return text
}

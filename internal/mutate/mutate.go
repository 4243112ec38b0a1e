// Package mutate holds the pure field mutators: each computes a new field
// value from the current one plus a plan change. Nothing here performs I/O;
// the executor fetches remote state, calls a mutator and writes the result.
package mutate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"storepilot/internal/model"
)

// DefaultLanguage is used for case mapping when a store has no language set.
var DefaultLanguage = language.BrazilianPortuguese

// ForcesWrite reports whether an action must reach the platform even when the
// computed value equals the current one. The mirror may have drifted from the
// remote, so CLEAR, GENERATE, SANITIZE and SET always write.
func ForcesWrite(a model.Action) bool {
	s := string(a)
	for _, p := range []string{"SET", "CLEAR", "GENERATE", "SANITIZE"} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func unsupported(c model.Change) error {
	return model.NewValidationError("action", fmt.Sprintf("%s does not support %s", c.Field, c.Action))
}

// ApplyCase runs one of the supported case transforms over s:
// upper, lower, title or capitalize (first letter only). Unknown types
// leave s untouched.
func ApplyCase(s, caseType string, lang language.Tag) string {
	switch normalizeCase(caseType) {
	case "upper":
		return cases.Upper(lang).String(s)
	case "lower":
		return cases.Lower(lang).String(s)
	case "title":
		return cases.Title(lang).String(s)
	case "capitalize":
		lower := []rune(cases.Lower(lang).String(s))
		for i, r := range lower {
			if unicode.IsLetter(r) {
				lower[i] = unicode.ToUpper(r)
				break
			}
		}
		return string(lower)
	}
	return s
}

func normalizeCase(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	t = strings.TrimSuffix(t, "_case")
	t = strings.TrimSuffix(t, "case")
	switch t {
	case "upper", "uppercase", "maiusculas", "maiúsculas":
		return "upper"
	case "lower", "lowercase", "minusculas", "minúsculas":
		return "lower"
	case "title", "titlecase":
		return "title"
	case "capitalize", "capitalize_first", "sentence", "first":
		return "capitalize"
	}
	return t
}

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and strips diacritics, so "Promoção" and "promocao"
// compare equal.
func Fold(s string) string {
	out, _, err := transform.String(foldChain, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives a URL-safe handle: folded, with runs of other characters
// collapsed to a single hyphen.
func Slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(Fold(s), "-"), "-")
}

// splitList splits a comma-separated parameter, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// values returns Change.Values, falling back to a comma-separated Value.
func values(c model.Change) []string {
	if len(c.Values) > 0 {
		var out []string
		for _, v := range c.Values {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	return splitList(c.Value.String())
}

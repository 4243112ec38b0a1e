package mutate

import (
	"regexp"
	"strings"

	"golang.org/x/text/language"

	"storepilot/internal/model"
)

var (
	markupRe        = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)
	htmlImageRe     = regexp.MustCompile(`(?is)<img\b[^>]*>`)
	markdownImageRe = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	emptyParaRe     = regexp.MustCompile(`(?i)<p>\s*</p>`)
	parensRe        = regexp.MustCompile(`\([^()]*\)`)
	bracketsRe      = regexp.MustCompile(`\[[^\[\]]*\]`)
	bracesRe        = regexp.MustCompile(`\{[^{}]*\}`)
	anySpaceRe      = regexp.MustCompile(`\s+`)
	inlineSpaceRe   = regexp.MustCompile(`[ \t]+`)
)

// Separator returns the joiner APPEND/PREPEND place between the existing text
// and the new fragment. An explicit separator always wins.
func Separator(c model.Change, current string) string {
	if c.Separator != "" {
		return c.Separator
	}
	if c.Field != model.FieldDescription {
		return " "
	}
	if markupRe.MatchString(current) {
		return "<br>"
	}
	return "\n\n"
}

// Text applies a title or description change.
func Text(current string, c model.Change, lang language.Tag) (string, error) {
	value := c.Value.String()

	switch c.Action {
	case model.ActionSet:
		return value, nil

	case model.ActionAppend:
		if value == "" {
			return current, nil
		}
		if strings.TrimSpace(current) == "" {
			return value, nil
		}
		return current + Separator(c, current) + value, nil

	case model.ActionPrepend:
		if value == "" {
			return current, nil
		}
		if strings.TrimSpace(current) == "" {
			return value, nil
		}
		return value + Separator(c, current) + current, nil

	case model.ActionReplace:
		// An empty pattern would match between every rune.
		if c.ReplaceThis == "" {
			return current, nil
		}
		out := strings.ReplaceAll(current, c.ReplaceThis, value)
		if c.Field == model.FieldTitle {
			out = collapse(out, anySpaceRe)
		}
		return out, nil

	case model.ActionRemoveAfter, model.ActionRemoveBefore:
		sep := c.Separator
		if sep == "" {
			sep = value
		}
		if sep == "" {
			return current, nil
		}
		idx := strings.Index(current, sep)
		if idx < 0 {
			return current, nil
		}
		if c.Action == model.ActionRemoveAfter {
			return strings.TrimSpace(current[:idx]), nil
		}
		return strings.TrimSpace(current[idx+len(sep):]), nil

	case model.ActionRemoveImages:
		out := htmlImageRe.ReplaceAllString(current, "")
		out = markdownImageRe.ReplaceAllString(out, "")
		out = emptyParaRe.ReplaceAllString(out, "")
		return strings.TrimSpace(out), nil

	case model.ActionCleanPattern:
		out := CleanPattern(current, c.PatternType)
		if c.Field == model.FieldTitle {
			return collapse(out, anySpaceRe), nil
		}
		return collapse(out, inlineSpaceRe), nil

	case model.ActionFormat:
		if c.Field == model.FieldDescription {
			return caseOutsideMarkup(current, c.Case(), lang), nil
		}
		return ApplyCase(current, c.Case(), lang), nil
	}

	return current, unsupported(c)
}

// CleanPattern removes bracketed spans. patternType is one of parentheses,
// brackets, braces or all (the default).
func CleanPattern(s, patternType string) string {
	var res []*regexp.Regexp
	switch strings.ToLower(strings.TrimSpace(patternType)) {
	case "parentheses", "parenthesis", "parens":
		res = []*regexp.Regexp{parensRe}
	case "brackets", "square_brackets":
		res = []*regexp.Regexp{bracketsRe}
	case "braces", "curly_braces":
		res = []*regexp.Regexp{bracesRe}
	default:
		res = []*regexp.Regexp{parensRe, bracketsRe, bracesRe}
	}
	for _, re := range res {
		// Nested spans need more than one pass.
		for prev := ""; prev != s; {
			prev = s
			s = re.ReplaceAllString(s, "")
		}
	}
	return s
}

func collapse(s string, re *regexp.Regexp) string {
	return strings.TrimSpace(re.ReplaceAllString(s, " "))
}

// caseOutsideMarkup applies a case transform to text segments only, so tag
// names and attributes survive.
func caseOutsideMarkup(s, caseType string, lang language.Tag) string {
	var b strings.Builder
	last := 0
	for _, loc := range markupRe.FindAllStringIndex(s, -1) {
		b.WriteString(ApplyCase(s[last:loc[0]], caseType, lang))
		b.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(ApplyCase(s[last:], caseType, lang))
	return b.String()
}

package mutate

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/language"

	"storepilot/internal/model"
)

// Brand applies a brand change. title is the product name, scanned by
// SET_FROM_TITLE_KEYWORD.
func Brand(cur, title string, c model.Change, lang language.Tag) (string, error) {
	value := strings.TrimSpace(c.Value.String())

	switch c.Action {
	case model.ActionSetBrand:
		return value, nil

	case model.ActionRemoveBrand:
		return "", nil

	case model.ActionReplaceBrand:
		if c.ReplaceThis == "" || !strings.EqualFold(strings.TrimSpace(cur), strings.TrimSpace(c.ReplaceThis)) {
			return cur, nil
		}
		return value, nil

	case model.ActionStandardizeCase:
		ct := c.Case()
		if ct == "" {
			ct = "title"
		}
		return ApplyCase(cur, ct, lang), nil

	case model.ActionSetFromTitleKeyword:
		for _, kw := range values(c) {
			if ContainsWord(title, kw) {
				return kw, nil
			}
		}
		return cur, nil
	}
	return cur, unsupported(c)
}

// ContainsWord reports whether phrase occurs in s on word boundaries,
// ignoring case and accents.
func ContainsWord(s, phrase string) bool {
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(Fold(phrase)) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(Fold(s))
}

// Tags applies a tag change to the comma-joined tag list.
func Tags(cur, title string, c model.Change, lang language.Tag) (string, error) {
	tags := SplitTags(cur)

	switch c.Action {
	case model.ActionAddTag:
		for _, v := range values(c) {
			tags = addTag(tags, v)
		}

	case model.ActionRemoveTag:
		for _, v := range values(c) {
			tags = removeTags(tags, func(t string) bool { return strings.EqualFold(t, v) })
		}

	case model.ActionReplaceTag:
		from := c.ReplaceThis
		to := strings.TrimSpace(c.Value.String())
		if from == "" {
			return cur, nil
		}
		var out []string
		for _, t := range tags {
			if strings.EqualFold(t, from) {
				if to != "" {
					out = addTag(out, to)
				}
				continue
			}
			out = addTag(out, t)
		}
		tags = out

	case model.ActionStandardizeCase:
		ct := c.Case()
		if ct == "" {
			ct = "lower"
		}
		var out []string
		for _, t := range tags {
			out = addTag(out, ApplyCase(t, ct, lang))
		}
		tags = out

	case model.ActionRemoveByPattern:
		pattern := strings.ToLower(strings.TrimSpace(c.Value.String()))
		if pattern == "" {
			return cur, nil
		}
		tags = removeTags(tags, func(t string) bool { return strings.Contains(strings.ToLower(t), pattern) })

	case model.ActionAutoTagFromTitle:
		for _, tok := range TitleKeywords(title) {
			tags = addTag(tags, tok)
		}

	default:
		return cur, unsupported(c)
	}

	return strings.Join(tags, ","), nil
}

// SplitTags splits the platform's comma-joined tag string.
func SplitTags(s string) []string {
	return splitList(s)
}

// addTag appends t unless an equal tag (ignoring case) is already present.
func addTag(tags []string, t string) []string {
	t = strings.TrimSpace(t)
	if t == "" {
		return tags
	}
	for _, existing := range tags {
		if strings.EqualFold(existing, t) {
			return tags
		}
	}
	return append(tags, t)
}

func removeTags(tags []string, drop func(string) bool) []string {
	out := tags[:0:0]
	for _, t := range tags {
		if !drop(t) {
			out = append(out, t)
		}
	}
	return out
}

var stopwords = func() map[string]bool {
	m := make(map[string]bool)
	for _, w := range strings.Fields(`
		para com sem por pelo pela pelos pelas como mais menos muito muita
		entre sobre desde ate apos esse essa este esta isso isto aquele aquela
		todo toda todos todas cada outro outra novo nova seus suas nosso nossa
		uma umas uns dos das nos nas num numa
		para con sin por como mas muy entre sobre desde hasta tras este esta
		esto todo toda todos todas cada otro otra nuevo nueva unos unas del los las
		kit tipo modelo linha linea`) {
		m[w] = true
	}
	return m
}()

// TitleKeywords tokenizes a title into tag candidates: lowercase tokens longer
// than three runes that are not stopwords, in title order, without repeats.
func TitleKeywords(title string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		tok = strings.ToLower(tok)
		if len([]rune(tok)) <= 3 || stopwords[Fold(tok)] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// Published returns the target published flag of a status change.
func Published(c model.Change) (bool, error) {
	switch c.Action {
	case model.ActionPublish:
		return true, nil
	case model.ActionUnpublish:
		return false, nil
	case model.ActionSet:
		s := strings.ToLower(c.Value.String())
		switch s {
		case "published", "active", "ativo", "visible", "publicado":
			return true, nil
		case "draft", "hidden", "inactive", "inativo", "oculto", "unpublished":
			return false, nil
		}
		b, err := c.Value.Bool()
		if err != nil {
			return false, model.NewValidationError("value", err.Error())
		}
		return b, nil
	}
	return false, unsupported(c)
}

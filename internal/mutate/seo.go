package mutate

import (
	"strings"

	"golang.org/x/text/language"

	"storepilot/internal/model"
)

// SEO computes the SEO title and description of a product. The display name
// is only read, as the fallback base when no SEO title exists yet.
//
// A literal set_seo_title overrides every edit rule. Otherwise the base title
// is cleaned, case-mapped and wrapped with prefix and suffix, each added only
// when not already present so repeated runs are stable.
func SEO(curTitle, curDesc, name string, m model.SEOModifications, lang language.Tag) (title, desc string) {
	desc = curDesc
	if m.SetSEODescription != "" {
		desc = m.SetSEODescription
	}

	if m.SetSEOTitle != "" {
		return m.SetSEOTitle, desc
	}

	title = strings.TrimSpace(curTitle)
	if title == "" {
		title = strings.TrimSpace(name)
	}
	if m.PatternType != "" {
		title = collapse(CleanPattern(title, m.PatternType), anySpaceRe)
	}
	if m.CaseType != "" {
		title = ApplyCase(title, m.CaseType, lang)
	}
	if p := strings.TrimSpace(m.TitlePrefix); p != "" && !strings.HasPrefix(Fold(title), Fold(p)) {
		title = strings.TrimSpace(p + " " + title)
	}
	if s := strings.TrimSpace(m.TitleSuffix); s != "" && !strings.HasSuffix(Fold(title), Fold(s)) {
		title = strings.TrimSpace(title + " " + s)
	}
	return title, desc
}

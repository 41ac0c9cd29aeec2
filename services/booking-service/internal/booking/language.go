package booking

import "golang.org/x/text/language"

// DefaultLanguage is used for correspondence when no preference matches.
const DefaultLanguage = "es"

var (
	supportedLanguages = []language.Tag{language.Spanish, language.English}
	languageMatcher    = language.NewMatcher(supportedLanguages)
)

// ResolveLanguage picks es or en from preferences in priority order. Each preference may be
// a single tag or an Accept-Language header value.
func ResolveLanguage(prefs ...string) string {
	var tags []language.Tag
	for _, p := range prefs {
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return DefaultLanguage
	}
	_, idx, conf := languageMatcher.Match(tags...)
	if conf == language.No {
		return DefaultLanguage
	}
	base, _ := supportedLanguages[idx].Base()
	return base.String()
}

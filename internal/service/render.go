package service

import (
	"regexp"
	"sort"
	"strings"
)

// namePlaceholder is the single personalization token used in problem and
// solution text.
const namePlaceholder = "{name}"

// RenderProblemText substitutes the {name} placeholder with the kid's real
// name. Rendering happens once at assignment time; the result is stored and
// never re-substituted.
func RenderProblemText(text, kidName string) string {
	return strings.ReplaceAll(text, namePlaceholder, kidName)
}

// RenderStageContent substitutes every alias in the stage text with the
// matching real name. All aliases are replaced in a single pass using one
// combined pattern on word boundaries, so a substituted real name can never
// be re-matched by a later alias (e.g. alias "Ben" never fires inside an
// already-substituted "Bennett").
func RenderStageContent(content string, aliasToName map[string]string) string {
	if len(aliasToName) == 0 {
		return content
	}

	aliases := make([]string, 0, len(aliasToName))
	for alias := range aliasToName {
		aliases = append(aliases, alias)
	}
	// Longest first, so overlapping aliases resolve to the longest match
	sort.Slice(aliases, func(i, j int) bool {
		if len(aliases[i]) != len(aliases[j]) {
			return len(aliases[i]) > len(aliases[j])
		}
		return aliases[i] < aliases[j]
	})

	quoted := make([]string, len(aliases))
	for i, alias := range aliases {
		quoted[i] = regexp.QuoteMeta(alias)
	}

	pattern, err := regexp.Compile(`\b(` + strings.Join(quoted, "|") + `)\b`)
	if err != nil {
		// Aliases come from a fixed pool; a compile failure means a corrupt
		// alias, in which case the content is returned unrendered.
		return content
	}

	return pattern.ReplaceAllStringFunc(content, func(match string) string {
		if name, ok := aliasToName[match]; ok {
			return name
		}
		return match
	})
}

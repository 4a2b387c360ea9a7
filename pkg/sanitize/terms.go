package sanitize

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeTerms merges the manual sensitive-term list with the keys of the
// replacement mapping (a term that has a replacement is by definition
// sensitive), case-folds each term, collapses internal whitespace, and returns
// the deduplicated set in sorted order.
func NormalizeTerms(terms []string, replacements map[string]string) []string {
	folder := cases.Fold()

	seen := make(map[string]bool)
	out := []string{}
	add := func(raw string) {
		term := folder.String(strings.Join(strings.Fields(raw), " "))
		if term == "" || seen[term] {
			return
		}
		seen[term] = true
		out = append(out, term)
	}

	for _, t := range terms {
		add(t)
	}
	for k := range replacements {
		add(k)
	}
	sort.Strings(out)
	return out
}

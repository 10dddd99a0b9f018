// Package variants generates bounded sets of plausible short forms of a name
package variants

import (
	"sort"
	"strings"

	"github.com/Ramsey-B/sorrel/pkg/normalize"
)

// maxVariants bounds the set size regardless of token count
const maxVariants = 8

// Set is a collection of name variants
type Set map[string]struct{}

// Contains reports whether the set holds the given form
func (s Set) Contains(form string) bool {
	_, ok := s[form]
	return ok
}

// Values returns the variants in sorted order
func (s Set) Values() []string {
	values := make([]string, 0, len(s))
	for v := range s {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// Person generates the variant set for a normalized person name:
// the full form, middle tokens suppressed, first initial plus surname,
// reversed order for two-token names, concatenated initials, and the bare
// surname. Empty forms are excluded and the set is bounded.
func Person(normalized string) Set {
	set := make(Set)
	tokens := normalize.Tokens(normalized)
	if len(tokens) == 0 {
		return set
	}

	add := func(form string) {
		if form != "" && len(set) < maxVariants {
			set[form] = struct{}{}
		}
	}

	add(strings.Join(tokens, " "))

	if len(tokens) >= 2 {
		first := tokens[0]
		last := tokens[len(tokens)-1]

		if len(tokens) > 2 {
			add(first + " " + last)
		}
		add(string([]rune(first)[0]) + " " + last)
		if len(tokens) == 2 {
			add(last + " " + first)
		}

		var initials strings.Builder
		for _, tok := range tokens {
			initials.WriteRune([]rune(tok)[0])
		}
		add(initials.String())

		add(last)
	}

	return set
}

// Organization generates the variant set for a normalized organization
// name. Organizations get no structural variants; abbreviation handling is
// the alias dictionary's concern.
func Organization(normalized string) Set {
	set := make(Set)
	if normalized != "" {
		set[normalized] = struct{}{}
	}
	return set
}

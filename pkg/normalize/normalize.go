// Package normalize provides deterministic name normalization for matching
package normalize

import (
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a raw name
type Normalizer func(string) string

// titles are honorific and professional prefixes stripped from person names
var titles = map[string]struct{}{
	"dr": {}, "mr": {}, "mrs": {}, "ms": {}, "miss": {}, "mx": {},
	"prof": {}, "professor": {}, "rev": {}, "hon": {}, "judge": {},
	"justice": {}, "sir": {}, "dame": {}, "lord": {}, "lady": {},
	"sgt": {}, "det": {}, "insp": {}, "supt": {}, "pc": {}, "dc": {},
	"ds": {}, "di": {},
}

// suffixes are generational and credential tokens stripped from the end of
// person names
var suffixes = map[string]struct{}{
	"jr": {}, "sr": {}, "ii": {}, "iii": {}, "iv": {},
	"phd": {}, "md": {}, "esq": {}, "qc": {}, "kc": {},
	"llb": {}, "llm": {}, "msc": {}, "bsc": {}, "ba": {}, "ma": {},
	"mba": {}, "dds": {}, "rn": {},
}

// designators are corporate forms stripped from the end of organization names
var designators = map[string]struct{}{
	"ltd": {}, "limited": {}, "inc": {}, "incorporated": {},
	"corp": {}, "corporation": {}, "llc": {}, "llp": {}, "plc": {},
	"co": {}, "company": {}, "group": {},
}

// Person normalizes a personal name: lowercase, punctuation folded,
// honorific titles and credential suffixes stripped, whitespace collapsed.
// "Dr. Jane Smith" and "jane  SMITH, PhD" both normalize to "jane smith".
func Person(s string) string {
	tokens := strings.Fields(fold(s))

	for len(tokens) > 0 {
		if _, ok := titles[tokens[0]]; !ok {
			break
		}
		tokens = tokens[1:]
	}
	for len(tokens) > 0 {
		if _, ok := suffixes[tokens[len(tokens)-1]]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}

	return strings.Join(tokens, " ")
}

// Organization normalizes an organization name: lowercase, punctuation
// folded (ampersand becomes "and"), corporate designators stripped from the
// end, whitespace collapsed. Abbreviation expansion is a separate concern;
// see Dictionary.
func Organization(s string) string {
	tokens := strings.Fields(fold(s))

	for len(tokens) > 1 {
		if _, ok := designators[tokens[len(tokens)-1]]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}

	return strings.Join(tokens, " ")
}

// Plain is the bare fold used for names that are neither personal nor
// organizational (locations, document references)
func Plain(s string) string {
	return strings.Join(strings.Fields(fold(s)), " ")
}

// fold lowercases and strips punctuation. Apostrophes are kept so "o'brien"
// survives; hyphens and other punctuation become spaces so hyphenated
// surnames still tokenize.
func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "&", " and ")

	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			result.WriteRune(r)
		default:
			result.WriteRune(' ')
		}
	}
	return result.String()
}

// Tokens splits a normalized name into its tokens
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// Surname returns the last token of a normalized name, or "" when empty
func Surname(normalized string) string {
	tokens := Tokens(normalized)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

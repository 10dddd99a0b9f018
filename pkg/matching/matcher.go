// Package matching compares entity mentions with an ordered set of
// deterministic algorithms and produces linkage proposals.
package matching

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/normalize"
	"github.com/Ramsey-B/sorrel/pkg/variants"
)

const (
	confidenceExact      = 1.0
	confidenceNormalized = 0.95
	confidenceAlias      = 0.9
	confidenceVariant    = 0.8
	confidencePartial    = 0.6
	confidenceComponent  = 0.5

	// levenshtein confidence is scaled from the similarity: the floor maps
	// to the minimum and exact similarity to the cap
	levenshteinFloor = 0.85
	levenshteinMin   = 0.5
	levenshteinCap   = 0.8

	// minimum normalized length for the edit distance and substring
	// algorithms; short forms produce too many false positives
	minFuzzyLen = 4
)

// Match is the outcome of comparing two mentions. Confidence and Algorithm
// come from the single highest-precedence algorithm that fired.
type Match struct {
	Confidence float64
	Algorithm  models.MatchAlgorithm
	Evidence   string
}

// Matcher scores mention pairs. Algorithms are evaluated in strict
// precedence order; the first that fires wins.
type Matcher struct {
	scorer *Scorer
	dict   *normalize.Dictionary
}

// NewMatcher creates a matcher using the given alias dictionary. A nil
// dictionary falls back to the built-in entries.
func NewMatcher(dict *normalize.Dictionary) *Matcher {
	if dict == nil {
		dict = normalize.NewDictionary()
	}
	return &Matcher{
		scorer: NewScorer(),
		dict:   dict,
	}
}

// Score compares two mentions and returns the highest-precedence match, or
// nil when no algorithm fires. Role references and incompatible entity
// kinds never match.
func (m *Matcher) Score(a, b *models.Mention) *Match {
	if a.IsRoleReference || b.IsRoleReference {
		return nil
	}
	kind, ok := compatibleKind(a, b)
	if !ok {
		return nil
	}

	rawA := strings.TrimSpace(a.RawText)
	rawB := strings.TrimSpace(b.RawText)
	if rawA == "" || rawB == "" {
		return nil
	}

	if a.RawText == b.RawText {
		return &Match{
			Confidence: confidenceExact,
			Algorithm:  models.MatchAlgorithmExact,
			Evidence:   fmt.Sprintf("identical text %q", a.RawText),
		}
	}

	normA := Normalize(rawA, kind)
	normB := Normalize(rawB, kind)
	if normA == "" || normB == "" {
		return nil
	}

	if normA == normB {
		return &Match{
			Confidence: confidenceNormalized,
			Algorithm:  models.MatchAlgorithmNormalized,
			Evidence:   fmt.Sprintf("both normalize to %q", normA),
		}
	}

	if kind == models.NameKindOrganization {
		if match := m.aliasMatch(normA, normB); match != nil {
			return match
		}
	}

	if kind == models.NameKindPerson {
		if match := m.variantMatch(normA, normB); match != nil {
			return match
		}
	}

	if match := m.levenshteinMatch(normA, normB); match != nil {
		return match
	}

	if match := m.partialMatch(normA, normB); match != nil {
		return match
	}

	if kind == models.NameKindPerson {
		if match := m.componentMatch(normA, normB); match != nil {
			return match
		}
	}

	return nil
}

// aliasMatch fires when two organization names share a dictionary canonical
// form, e.g. "fbi" and "federal bureau of investigation"
func (m *Matcher) aliasMatch(normA, normB string) *Match {
	canonA := m.dict.Canonical(normA)
	canonB := m.dict.Canonical(normB)
	if canonA != canonB {
		return nil
	}
	return &Match{
		Confidence: confidenceAlias,
		Algorithm:  models.MatchAlgorithmAlias,
		Evidence:   fmt.Sprintf("both are known names for %q", canonA),
	}
}

// variantMatch fires when one side's full normalized form appears in the
// other side's variant set. The check is directional: "j smith" is a
// variant of "jane smith", but "john smith" and "jane smith" merely share
// the weak variants and must not match here.
func (m *Matcher) variantMatch(normA, normB string) *Match {
	var short, long string
	switch {
	case variants.Person(normA).Contains(normB):
		short, long = normB, normA
	case variants.Person(normB).Contains(normA):
		short, long = normA, normB
	default:
		return nil
	}
	return &Match{
		Confidence: confidenceVariant,
		Algorithm:  models.MatchAlgorithmVariant,
		Evidence:   fmt.Sprintf("%q is a short form of %q", short, long),
	}
}

func (m *Matcher) levenshteinMatch(normA, normB string) *Match {
	if len(normA) < minFuzzyLen || len(normB) < minFuzzyLen {
		return nil
	}
	similarity := m.scorer.Levenshtein(normA, normB)
	if similarity < levenshteinFloor {
		return nil
	}
	confidence := levenshteinMin + (similarity-levenshteinFloor)/(1-levenshteinFloor)*(levenshteinCap-levenshteinMin)
	if confidence > levenshteinCap {
		confidence = levenshteinCap
	}
	return &Match{
		Confidence: confidence,
		Algorithm:  models.MatchAlgorithmLevenshtein,
		Evidence:   fmt.Sprintf("edit distance %d between %q and %q (similarity %.2f)", m.scorer.LevenshteinDistance(normA, normB), normA, normB, similarity),
	}
}

func (m *Matcher) partialMatch(normA, normB string) *Match {
	if len(normA) < minFuzzyLen || len(normB) < minFuzzyLen {
		return nil
	}
	var inner, outer string
	switch {
	case strings.Contains(normA, normB):
		inner, outer = normB, normA
	case strings.Contains(normB, normA):
		inner, outer = normA, normB
	default:
		return nil
	}
	return &Match{
		Confidence: confidencePartial,
		Algorithm:  models.MatchAlgorithmPartial,
		Evidence:   fmt.Sprintf("%q is contained in %q", inner, outer),
	}
}

// componentMatch fires for person names that share a surname while the
// given names differ or are absent
func (m *Matcher) componentMatch(normA, normB string) *Match {
	surname := normalize.Surname(normA)
	if surname == "" || surname != normalize.Surname(normB) {
		return nil
	}
	return &Match{
		Confidence: confidenceComponent,
		Algorithm:  models.MatchAlgorithmComponent,
		Evidence:   fmt.Sprintf("shared surname %q", surname),
	}
}

// Normalize applies the normalization path for a name kind
func Normalize(raw string, kind models.NameKind) string {
	switch kind {
	case models.NameKindPerson:
		return normalize.Person(raw)
	case models.NameKindOrganization:
		return normalize.Organization(raw)
	default:
		return normalize.Plain(raw)
	}
}

// compatibleKind returns the shared name kind of two mentions. Person kinds
// match person kinds and organization kinds match organization kinds; the
// remaining types only match themselves.
func compatibleKind(a, b *models.Mention) (models.NameKind, bool) {
	kindA := a.EntityType.Kind()
	kindB := b.EntityType.Kind()
	if kindA != kindB {
		return "", false
	}
	if kindA == models.NameKindOther && a.EntityType != b.EntityType {
		return "", false
	}
	return kindA, true
}

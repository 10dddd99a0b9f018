package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPerson(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain name", "Jane Smith", "jane smith"},
		{"title stripped", "Dr. Jane Smith", "jane smith"},
		{"stacked titles", "Prof Dr Jane Smith", "jane smith"},
		{"suffix stripped", "Jane Smith PhD", "jane smith"},
		{"title and suffix", "Dr. Jane Smith Jr.", "jane smith"},
		{"initial keeps token", "J. Smith", "j smith"},
		{"whitespace collapsed", "  jane   SMITH  ", "jane smith"},
		{"apostrophe kept", "Siobhan O'Brien", "siobhan o'brien"},
		{"hyphen becomes space", "Mary Jones-Smith", "mary jones smith"},
		{"police rank", "DC Sarah Willis", "sarah willis"},
		{"empty", "", ""},
		{"only a title", "Dr", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Person(tt.input))
		})
	}
}

func TestPerson_Deterministic(t *testing.T) {
	a := Person("Dr. Jane  Smith, PhD")
	b := Person("Dr. Jane  Smith, PhD")
	assert.Equal(t, a, b)
}

func TestOrganization(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Acme Corporation", "acme"},
		{"designator stripped", "Acme Ltd", "acme"},
		{"stacked designators", "Acme Holdings Group Ltd", "acme holdings"},
		{"ampersand folded", "Smith & Sons Ltd", "smith and sons"},
		{"abbreviation untouched", "FBI", "fbi"},
		{"designator-only name survives", "Ltd", "ltd"},
		{"punctuation folded", "N.H.S.", "n h s"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Organization(tt.input))
		})
	}
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"jane", "smith"}, Tokens("jane smith"))
	assert.Empty(t, Tokens(""))
}

func TestSurname(t *testing.T) {
	assert.Equal(t, "smith", Surname("jane smith"))
	assert.Equal(t, "smith", Surname("smith"))
	assert.Equal(t, "", Surname(""))
}

func TestDictionary(t *testing.T) {
	d := NewDictionary()

	t.Run("expands built-in abbreviation", func(t *testing.T) {
		assert.Equal(t, "federal bureau of investigation", d.Canonical("fbi"))
		assert.True(t, d.IsAbbreviation("fbi"))
	})

	t.Run("full form is its own canonical", func(t *testing.T) {
		assert.Equal(t, "federal bureau of investigation", d.Canonical("federal bureau of investigation"))
	})

	t.Run("unknown name passes through", func(t *testing.T) {
		assert.Equal(t, "acme widgets", d.Canonical("acme widgets"))
		assert.False(t, d.IsAbbreviation("acme widgets"))
	})

	t.Run("overlay wins over built-ins", func(t *testing.T) {
		scoped := d.WithOverlay(map[string]string{
			"LA":  "local authority",
			"FBI": "fictional bureau",
		})
		assert.Equal(t, "local authority", scoped.Canonical("la"))
		assert.Equal(t, "fictional bureau", scoped.Canonical("fbi"))
		// the base dictionary is untouched
		assert.Equal(t, "federal bureau of investigation", d.Canonical("fbi"))
	})
}

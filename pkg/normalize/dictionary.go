package normalize

// builtinAbbreviations maps normalized organization abbreviations to their
// canonical expanded form. Keys and values are already in normalized form.
var builtinAbbreviations = map[string]string{
	"fbi":     "federal bureau of investigation",
	"cia":     "central intelligence agency",
	"doj":     "department of justice",
	"irs":     "internal revenue service",
	"sec":     "securities and exchange commission",
	"nhs":     "national health service",
	"cps":     "crown prosecution service",
	"met":     "metropolitan police service",
	"gmc":     "general medical council",
	"gdc":     "general dental council",
	"hcpc":    "health and care professions council",
	"sra":     "solicitors regulation authority",
	"nmc":     "nursing and midwifery council",
	"cafcass": "children and family court advisory and support service",
	"nspcc":   "national society for the prevention of cruelty to children",
	"cqc":     "care quality commission",
	"iopc":    "independent office for police conduct",
	"fca":     "financial conduct authority",
	"ico":     "information commissioner's office",
	"ofsted":  "office for standards in education",
	"mi5":     "security service",
	"mi6":     "secret intelligence service",
	"bbc":     "british broadcasting corporation",
	"itv":     "independent television",
}

// Dictionary resolves organization abbreviations to canonical full names.
// A case-scoped overlay can add or override entries; overlay entries win.
type Dictionary struct {
	overlay map[string]string
}

// NewDictionary returns a dictionary with only the built-in entries
func NewDictionary() *Dictionary {
	return &Dictionary{}
}

// WithOverlay returns a dictionary that consults the given entries before
// the built-ins. Keys and values are normalized with Organization before
// storage so lookups stay consistent.
func (d *Dictionary) WithOverlay(entries map[string]string) *Dictionary {
	overlay := make(map[string]string, len(entries))
	for abbr, full := range entries {
		overlay[Organization(abbr)] = Organization(full)
	}
	return &Dictionary{overlay: overlay}
}

// Canonical returns the expanded form of a normalized organization name, or
// the input unchanged when no entry exists
func (d *Dictionary) Canonical(normalized string) string {
	if d.overlay != nil {
		if full, ok := d.overlay[normalized]; ok {
			return full
		}
	}
	if full, ok := builtinAbbreviations[normalized]; ok {
		return full
	}
	return normalized
}

// IsAbbreviation reports whether the normalized name has a dictionary entry
func (d *Dictionary) IsAbbreviation(normalized string) bool {
	if d.overlay != nil {
		if _, ok := d.overlay[normalized]; ok {
			return true
		}
	}
	_, ok := builtinAbbreviations[normalized]
	return ok
}

package citation

import (
	"cmp"
	"strconv"
	"strings"
)

// bgeFirstYear is the publication year of BGE volume 1 minus one, so that
// Year = Volume + bgeFirstYear.
const bgeFirstYear = 1874

// parts lists the BGE parts in order. Until volume 120 the public-law part
// was split into Ia and Ib; since 1995 it is I.
var parts = []string{"I", "Ia", "Ib", "II", "III", "IV", "V"}

var partRank = func() map[string]int {
	m := make(map[string]int, len(parts))
	for i, p := range parts {
		m[p] = i
	}
	return m
}()

// normalizePart maps a part designator to its canonical spelling ("IA" → "Ia").
func normalizePart(s string) (string, bool) {
	for _, p := range parts {
		if strings.EqualFold(p, s) {
			return p, true
		}
	}
	return "", false
}

// comparePart orders known parts by publication order and anything else
// after them, lexically.
func comparePart(a, b string) int {
	ra, oka := partRank[a]
	rb, okb := partRank[b]
	switch {
	case oka && okb:
		return cmp.Compare(ra, rb)
	case oka:
		return -1
	case okb:
		return 1
	}
	return strings.Compare(a, b)
}

// collections maps each language to the name of the official collection of
// federal rulings.
var collections = map[string]string{
	"de": "BGE",
	"fr": "ATF",
	"it": "DTF",
}

// considerationMarkers introduce the cited consideration of a ruling.
var considerationMarkers = map[string]string{
	"de": "E.",
	"fr": "consid.",
	"it": "consid.",
}

// RulingCitation cites a published federal ruling by volume, part and first
// page. Consideration is informative only.
type RulingCitation struct {
	Volume        int
	Part          string
	Page          int
	Consideration string
	Language      string
	Text          string
}

var _ Citation = (*RulingCitation)(nil)

func (*RulingCitation) sealed() {}

// Type implements Citation.
func (c *RulingCitation) Type() Type { return TypeRuling }

// Key implements Citation.
func (c *RulingCitation) Key() Key { return RulingKey(c.Volume, c.Part, c.Page) }

// Hash implements Citation.
func (c *RulingCitation) Hash() uint64 { return c.Key().Hash() }

// Literal implements Citation.
func (c *RulingCitation) Literal() string { return c.Text }

// Year is the publication year of the volume.
func (c *RulingCitation) Year() int { return c.Volume + bgeFirstYear }

// Equal implements Citation.
func (c *RulingCitation) Equal(other Citation) bool { return equalCitations(c, other) }

// Compare orders by volume, part, page and consideration.
func (c *RulingCitation) Compare(other Citation) int {
	o, ok := other.(*RulingCitation)
	if !ok {
		return c.Key().Compare(other.Key())
	}
	if r := c.Key().Compare(o.Key()); r != 0 {
		return r
	}
	return compareOptionalString(c.Consideration, o.Consideration)
}

// String renders e.g. "BGE 121 III 38 E. 2b" or "ATF 121 III 38 consid. 2b".
func (c *RulingCitation) String() string {
	lang := c.Language
	if _, ok := collections[lang]; !ok {
		lang = defaultLanguage
	}
	s := collections[lang] + " " + strconv.Itoa(c.Volume) + " " + c.Part + " " + strconv.Itoa(c.Page)
	if c.Consideration != "" {
		s += " " + considerationMarkers[lang] + " " + c.Consideration
	}
	return s
}

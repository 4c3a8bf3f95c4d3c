package citation

import (
	"sort"
	"strconv"
	"strings"
)

// Law is a statute identity: its SR number plus one abbreviation per
// language. Two Laws are the same statute when their SR numbers match.
//
// Abbreviations is shared with the AbbreviationTable it came from and must
// not be modified.
type Law struct {
	SRNumber      string
	Abbreviations map[string]string
}

// Abbreviation returns the abbreviation for language, falling back to the
// alphabetically first language that has one.
func (l Law) Abbreviation(language string) string {
	if a, ok := l.Abbreviations[language]; ok {
		return a
	}
	langs := make([]string, 0, len(l.Abbreviations))
	for lang := range l.Abbreviations {
		langs = append(langs, lang)
	}
	if len(langs) == 0 {
		return ""
	}
	sort.Strings(langs)
	return l.Abbreviations[langs[0]]
}

// Equal reports whether both values identify the same statute.
func (l Law) Equal(o Law) bool { return l.SRNumber == o.SRNumber }

// Compare orders statutes by SR number.
func (l Law) Compare(o Law) int { return compareNatural(l.SRNumber, o.SRNumber) }

// String renders "SR <number>".
func (l Law) String() string { return "SR " + l.SRNumber }

// LawCitation cites one article of a statute. Paragraph and Numeral are
// informative only: they take part in ordering but not in equality.
type LawCitation struct {
	Law       Law
	Article   string
	Paragraph *int
	Numeral   *int
	Language  string
	Text      string
}

var _ Citation = (*LawCitation)(nil)

func (*LawCitation) sealed() {}

// Type implements Citation.
func (c *LawCitation) Type() Type { return TypeLaw }

// Key implements Citation.
func (c *LawCitation) Key() Key { return LawKey(c.Law.SRNumber, c.Article) }

// Hash implements Citation.
func (c *LawCitation) Hash() uint64 { return c.Key().Hash() }

// Literal implements Citation.
func (c *LawCitation) Literal() string { return c.Text }

// Equal implements Citation.
func (c *LawCitation) Equal(other Citation) bool { return equalCitations(c, other) }

// Compare orders by law, article, paragraph, numeral; a missing paragraph or
// numeral sorts first. Against a ruling it defers to Key.Compare.
func (c *LawCitation) Compare(other Citation) int {
	o, ok := other.(*LawCitation)
	if !ok {
		return c.Key().Compare(other.Key())
	}
	if r := c.Law.Compare(o.Law); r != 0 {
		return r
	}
	if r := compareNatural(c.Article, o.Article); r != 0 {
		return r
	}
	if r := compareOptional(c.Paragraph, o.Paragraph); r != 0 {
		return r
	}
	return compareOptional(c.Numeral, o.Numeral)
}

// String renders the citation with the markers and abbreviation of its
// language, e.g. "Art. 7a Abs. 2 OR".
func (c *LawCitation) String() string {
	m, ok := MarkersFor(c.Language)
	if !ok {
		m = lawMarkers[defaultLanguage]
	}
	var sb strings.Builder
	sb.WriteString(m.Article)
	sb.WriteString(" ")
	sb.WriteString(c.Article)
	if c.Paragraph != nil {
		sb.WriteString(" " + m.Paragraph + " " + strconv.Itoa(*c.Paragraph))
	}
	if c.Numeral != nil {
		sb.WriteString(" " + m.Numeral + " " + strconv.Itoa(*c.Numeral))
	}
	abbr := c.Law.Abbreviation(c.Language)
	if abbr == "" {
		abbr = c.Law.String()
	}
	sb.WriteString(" ")
	sb.WriteString(abbr)
	return sb.String()
}

package citation

import (
	"strconv"
	"strings"
	"unicode"
)

const defaultLanguage = "de"

// Markers are the tokens that introduce the article, paragraph and numeral
// of a law citation in one language.
type Markers struct {
	Article   string
	Paragraph string
	Numeral   string
}

var lawMarkers = map[string]Markers{
	"de": {Article: "Art.", Paragraph: "Abs.", Numeral: "Ziff."},
	"fr": {Article: "art.", Paragraph: "al.", Numeral: "n."},
	"it": {Article: "art.", Paragraph: "al.", Numeral: "cpv."},
}

// MarkersFor returns the law markers of language.
func MarkersFor(language string) (Markers, bool) {
	m, ok := lawMarkers[strings.ToLower(strings.TrimSpace(language))]
	return m, ok
}

// Languages lists the supported citation languages.
func Languages() []string { return []string{"de", "fr", "it"} }

const trailingPunct = ",;:"

// Parser turns raw citation mentions into canonical citations. It only reads
// its reference data and is safe for concurrent use.
type Parser struct {
	table   *AbbreviationTable
	rulings *RulingIndex
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithRulingIndex restricts accepted rulings to those in idx.
func WithRulingIndex(idx *RulingIndex) ParserOption {
	return func(p *Parser) { p.rulings = idx }
}

// NewParser returns a parser resolving law abbreviations through table.
func NewParser(table *AbbreviationTable, opts ...ParserOption) *Parser {
	if table == nil {
		table = NewAbbreviationTable(nil)
	}
	p := &Parser{table: table}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Table returns the abbreviation table the parser resolves against.
func (p *Parser) Table() *AbbreviationTable { return p.table }

// Parse dispatches on t.
func (p *Parser) Parse(t Type, text, language string) (Citation, error) {
	var (
		c   Citation
		err error
	)
	switch t {
	case TypeLaw:
		c, err = p.ParseLaw(text, language)
	case TypeRuling:
		c, err = p.ParseRuling(text, language)
	default:
		return nil, ErrInvalidKey.WithDetailf("unknown citation type %q", string(t))
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ParseLaw parses a statute citation such as "Art. 7a Abs. 2 OR".
//
// Errors wrap ErrMalformedCitation, ErrUnknownAbbreviation or
// ErrAmbiguousAbbreviation.
func (p *Parser) ParseLaw(text, language string) (*LawCitation, error) {
	lang := strings.ToLower(strings.TrimSpace(language))
	m, ok := lawMarkers[lang]
	if !ok {
		return nil, ErrMalformedCitation.WithDetailf("%q: unsupported language %q", text, language)
	}

	s := normalizeLaw(text, m.Article)
	if !hasPrefixFold(s, m.Article) {
		return nil, ErrMalformedCitation.WithDetailf("%q: does not start with %q", text, m.Article)
	}

	tokens := strings.Fields(s)
	if first := tokens[0]; len(first) > len(m.Article) {
		rest := first[len(m.Article):]
		if rest[0] >= '0' && rest[0] <= '9' {
			tokens = append([]string{first[:len(m.Article)], rest}, tokens[1:]...)
		}
	}
	if len(tokens) < 3 {
		return nil, ErrMalformedCitation.WithDetailf("%q: expected marker, article and abbreviation", text)
	}

	article := strings.TrimRight(tokens[1], trailingPunct)
	if article == "" {
		return nil, ErrMalformedCitation.WithDetailf("%q: empty article", text)
	}
	abbreviation := strings.TrimRight(tokens[len(tokens)-1], trailingPunct)

	srs := p.table.Lookup(abbreviation, lang)
	switch len(srs) {
	case 0:
		return nil, ErrUnknownAbbreviation.WithDetailf("%q (%s)", abbreviation, lang)
	case 1:
	default:
		return nil, ErrAmbiguousAbbreviation.WithDetailf("%q (%s) names SR %s", abbreviation, lang, strings.Join(srs, ", "))
	}
	law, _ := p.table.Law(srs[0])

	c := &LawCitation{Law: law, Article: article, Language: lang, Text: text}
	middle := tokens[2 : len(tokens)-1]
	for i := 0; i+1 < len(middle); i++ {
		n, err := strconv.Atoi(strings.TrimRight(middle[i+1], trailingPunct))
		if err != nil {
			continue
		}
		switch {
		case strings.EqualFold(middle[i], m.Paragraph) && c.Paragraph == nil:
			c.Paragraph = &n
			i++
		case strings.EqualFold(middle[i], m.Numeral) && c.Numeral == nil:
			c.Numeral = &n
			i++
		}
	}
	return c, nil
}

// normalizeLaw rewrites "§" to the article marker, turns non-breaking spaces
// into spaces and repairs "Art7a" / "Art 7a" to "Art.7a" / "Art. 7a".
func normalizeLaw(text, article string) string {
	s := strings.ReplaceAll(text, "§", article)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.TrimSpace(s)

	bare := strings.TrimSuffix(article, ".")
	if hasPrefixFold(s, bare) && (len(s) == len(bare) || s[len(bare)] != '.') {
		s = s[:len(bare)] + "." + s[len(bare):]
	}
	return s
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// ParseRuling parses a ruling citation such as "BGE 121 III 38 E. 2b".
//
// Errors wrap ErrMalformedCitation or ErrUnknownAbbreviation. The latter is
// also returned for a well-formed ruling that is missing from the configured
// ruling index.
func (p *Parser) ParseRuling(text, language string) (*RulingCitation, error) {
	tokens := strings.Fields(strings.ReplaceAll(text, "\u00a0", " "))
	if len(tokens) < 4 {
		return nil, ErrMalformedCitation.WithDetailf("%q: expected collection, volume, part and page", text)
	}

	collLang, ok := collectionLanguage(tokens[0])
	if !ok {
		if isAlpha(tokens[0]) {
			return nil, ErrUnknownAbbreviation.WithDetailf("%q: unknown collection %q", text, tokens[0])
		}
		return nil, ErrMalformedCitation.WithDetailf("%q: bad collection %q", text, tokens[0])
	}

	volume, err := strconv.Atoi(tokens[1])
	if err != nil || volume <= 0 {
		return nil, ErrMalformedCitation.WithDetailf("%q: bad volume %q", text, tokens[1])
	}
	part, ok := normalizePart(tokens[2])
	if !ok {
		return nil, ErrMalformedCitation.WithDetailf("%q: bad part %q", text, tokens[2])
	}
	page, err := strconv.Atoi(strings.TrimRight(tokens[3], trailingPunct))
	if err != nil || page <= 0 {
		return nil, ErrMalformedCitation.WithDetailf("%q: bad page %q", text, tokens[3])
	}

	lang := strings.ToLower(strings.TrimSpace(language))
	if _, ok := collections[lang]; !ok {
		lang = collLang
	}
	c := &RulingCitation{Volume: volume, Part: part, Page: page, Language: lang, Text: text}
	rest := tokens[4:]
	for i := 0; i+1 < len(rest); i++ {
		if isConsiderationMarker(rest[i]) {
			c.Consideration = strings.TrimRight(rest[i+1], trailingPunct)
			break
		}
	}

	if !p.rulings.Contains(c.Key()) {
		return nil, ErrUnknownAbbreviation.WithDetailf("%q: %s is not in the ruling index", text, c.Key())
	}
	return c, nil
}

func collectionLanguage(tok string) (string, bool) {
	for lang, name := range collections {
		if strings.EqualFold(tok, name) {
			return lang, true
		}
	}
	return "", false
}

func isConsiderationMarker(tok string) bool {
	switch strings.ToLower(tok) {
	case "e.", "consid.", "cons.":
		return true
	}
	return false
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

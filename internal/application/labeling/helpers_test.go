package labeling

import (
	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/domain/decision"
)

func testRows() []citation.AbbreviationRow {
	return []citation.AbbreviationRow{
		{SRNumber: "220", Abbreviation: "OR", Language: "de", Canton: "ch"},
		{SRNumber: "220", Abbreviation: "CO", Language: "fr", Canton: "ch"},
		{SRNumber: "220", Abbreviation: "CO", Language: "it", Canton: "ch"},
		{SRNumber: "210", Abbreviation: "ZGB", Language: "de", Canton: "ch"},
		{SRNumber: "210", Abbreviation: "CC", Language: "fr", Canton: "ch"},
	}
}

func testParser() *citation.Parser {
	return citation.NewParser(citation.NewAbbreviationTable(testRows()))
}

func newDecision(id, lang string, laws, rulings []string) *decision.Decision {
	d := &decision.Decision{
		ID:       id,
		Language: lang,
		Fields:   map[string]string{},
		Mentions: map[citation.Type][]decision.Mention{},
	}
	for _, l := range laws {
		d.Mentions[citation.TypeLaw] = append(d.Mentions[citation.TypeLaw], decision.Mention{Text: l})
	}
	for _, r := range rulings {
		d.Mentions[citation.TypeRuling] = append(d.Mentions[citation.TypeRuling], decision.Mention{Text: r})
	}
	return d
}

func key220(article string) citation.Key { return citation.LawKey("220", article) }

package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLaw_ArticleWithParagraph(t *testing.T) {
	p := NewParser(testTable())

	c, err := p.ParseLaw("Art. 7a Abs. 2 OR", "de")
	require.NoError(t, err)
	assert.Equal(t, "7a", c.Article)
	assert.Equal(t, "220", c.Law.SRNumber)
	require.NotNil(t, c.Paragraph)
	assert.Equal(t, 2, *c.Paragraph)
	assert.Nil(t, c.Numeral)
	assert.Equal(t, "Art. 7a Abs. 2 OR", c.Literal())
	assert.Equal(t, map[string]string{"de": "OR", "fr": "CO", "it": "CO"}, c.Law.Abbreviations)
}

func TestParseLaw_Repairs(t *testing.T) {
	p := NewParser(testTable())

	cases := []struct {
		name string
		text string
		lang string
	}{
		{"run together", "Art7a OR", "de"},
		{"missing dot", "Art 7a OR", "de"},
		{"glued marker", "Art.7a OR", "de"},
		{"paragraph sign", "§ 7a OR", "de"},
		{"lowercase marker", "art. 7a OR", "de"},
		{"non-breaking space", "Art.\u00a07a OR", "de"},
		{"french", "art. 7a al. 1 CO", "fr"},
		{"italian", "art. 7a cpv. 1 CO", "it"},
		{"trailing comma", "Art. 7a, OR", "de"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := p.ParseLaw(tc.text, tc.lang)
			require.NoError(t, err)
			assert.Equal(t, LawKey("220", "7a"), c.Key())
		})
	}
}

func TestParseLaw_Numeral(t *testing.T) {
	p := NewParser(testTable())

	c, err := p.ParseLaw("Art. 12 Abs. 1 Ziff. 3 ZGB", "de")
	require.NoError(t, err)
	assert.Equal(t, LawKey("210", "12"), c.Key())
	assert.Equal(t, 1, *c.Paragraph)
	assert.Equal(t, 3, *c.Numeral)
}

func TestParseLaw_Failures(t *testing.T) {
	p := NewParser(testTable())

	cases := []struct {
		name string
		text string
		lang string
		want error
	}{
		{"no marker", "OR 7a", "de", ErrMalformedCitation},
		{"too short", "Art. 7a", "de", ErrMalformedCitation},
		{"empty", "", "de", ErrMalformedCitation},
		{"unsupported language", "Art. 7a OR", "en", ErrMalformedCitation},
		{"unknown abbreviation", "Art. 7a XYZ", "de", ErrUnknownAbbreviation},
		{"abbreviation of another language", "Art. 7a OR", "fr", ErrUnknownAbbreviation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.ParseLaw(tc.text, tc.lang)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseLaw_Ambiguous(t *testing.T) {
	rows := append(testRows(), AbbreviationRow{SRNumber: "221.229.1", Abbreviation: "OR", Language: "de"})
	p := NewParser(NewAbbreviationTable(rows))

	_, err := p.ParseLaw("Art. 7a OR", "de")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguousAbbreviation)
	assert.Equal(t, FailureAmbiguous, CategoryOf(err))
	assert.False(t, IsRecoverable(err))
}

func TestParseRuling(t *testing.T) {
	p := NewParser(testTable())

	c, err := p.ParseRuling("BGE 121 III 38 E. 2b", "de")
	require.NoError(t, err)
	assert.Equal(t, RulingKey(121, "III", 38), c.Key())
	assert.Equal(t, "2b", c.Consideration)
	assert.Equal(t, 1995, c.Year())

	c, err = p.ParseRuling("ATF 118 ia 427 consid. 3", "")
	require.NoError(t, err)
	assert.Equal(t, RulingKey(118, "Ia", 427), c.Key())
	assert.Equal(t, "fr", c.Language)
	assert.Equal(t, "3", c.Consideration)
}

func TestParseRuling_Failures(t *testing.T) {
	p := NewParser(testTable())

	cases := []struct {
		name string
		text string
		want error
	}{
		{"too short", "BGE 121 III", ErrMalformedCitation},
		{"unknown collection", "XYZ 121 III 38", ErrUnknownAbbreviation},
		{"numeric collection", "4A_1/2020 121 III 38", ErrMalformedCitation},
		{"bad volume", "BGE abc III 38", ErrMalformedCitation},
		{"zero page", "BGE 121 III 0", ErrMalformedCitation},
		{"bad part", "BGE 121 VI 38", ErrMalformedCitation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.ParseRuling(tc.text, "de")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseRuling_Index(t *testing.T) {
	idx := NewRulingIndex([]Key{RulingKey(121, "III", 38), LawKey("220", "1")})
	p := NewParser(testTable(), WithRulingIndex(idx))
	assert.Equal(t, 1, idx.Len())

	_, err := p.ParseRuling("BGE 121 III 38", "de")
	assert.NoError(t, err)

	_, err = p.ParseRuling("BGE 122 III 38", "de")
	assert.ErrorIs(t, err, ErrUnknownAbbreviation)
}

func TestParse_RoundTrip(t *testing.T) {
	p := NewParser(testTable())

	inputs := []struct {
		typ  Type
		text string
		lang string
	}{
		{TypeLaw, "Art. 7a Abs. 2 Ziff. 1 OR", "de"},
		{TypeLaw, "art. 41 al. 1 CO", "fr"},
		{TypeLaw, "art. 8 cpv. 2 CC", "it"},
		{TypeLaw, "Art. 1 StGB", "de"},
		{TypeRuling, "BGE 121 III 38 E. 2b", "de"},
		{TypeRuling, "ATF 130 II 1 consid. 4", "fr"},
		{TypeRuling, "DTF 99 Ib 5", "it"},
	}
	for _, in := range inputs {
		t.Run(in.text, func(t *testing.T) {
			c, err := p.Parse(in.typ, in.text, in.lang)
			require.NoError(t, err)

			again, err := p.Parse(in.typ, c.String(), in.lang)
			require.NoError(t, err)
			assert.True(t, c.Equal(again))
			assert.Equal(t, 0, c.Compare(again))
			assert.Equal(t, c.String(), again.String())
		})
	}
}

func TestParse_UnknownType(t *testing.T) {
	_, err := NewParser(nil).Parse(Type("statutes"), "Art. 1 OR", "de")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestParse_FailureReturnsNilCitation(t *testing.T) {
	p := NewParser(testTable())

	c, err := p.Parse(TypeLaw, "Art. 7a", "de")
	require.Error(t, err)
	assert.True(t, c == nil, "law failure must not wrap a nil *LawCitation")

	c, err = p.Parse(TypeRuling, "BGE 121 III", "de")
	require.Error(t, err)
	assert.True(t, c == nil, "ruling failure must not wrap a nil *RulingCitation")
}

func TestCategoryOf(t *testing.T) {
	p := NewParser(testTable())

	_, err := p.ParseLaw("nonsense", "de")
	assert.Equal(t, FailureMalformed, CategoryOf(err))
	assert.True(t, IsRecoverable(err))

	_, err = p.ParseLaw("Art. 1 NOPE", "de")
	assert.Equal(t, FailureUnknownAbbreviation, CategoryOf(err))

	assert.Equal(t, FailureOther, CategoryOf(assert.AnError))
}

package citation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_String(t *testing.T) {
	assert.Equal(t, "SR 220 Art. 7a", LawKey("220", "7a").String())
	assert.Equal(t, "BGE 121 III 38", RulingKey(121, "III", 38).String())
	assert.Equal(t, "", Key{}.String())
	assert.True(t, Key{}.IsZero())
}

func TestParseKey(t *testing.T) {
	for _, k := range []Key{LawKey("220", "7a"), LawKey("311.0", "139"), RulingKey(99, "Ib", 5)} {
		got, err := ParseKey(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	for _, bad := range []string{"", "SR 220", "BGE 121 VI 38", "BGE x III 38", "Art. 7a OR"} {
		_, err := ParseKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}

func TestKey_JSONMapKey(t *testing.T) {
	in := map[Key]float64{LawKey("220", "7a"): 0.5, RulingKey(121, "III", 38): 1}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"SR 220 Art. 7a":0.5,"BGE 121 III 38":1}`, string(data))

	var out map[Key]float64
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	_, err = json.Marshal(map[Key]int{{}: 1})
	assert.Error(t, err)
}

func TestKey_Compare(t *testing.T) {
	ordered := []Key{
		LawKey("101", "8"),
		LawKey("210", "2"),
		LawKey("210", "12"),
		LawKey("220", "7"),
		LawKey("220", "7a"),
		LawKey("220", "7b"),
		LawKey("220", "12"),
		LawKey("311.0", "1"),
		LawKey("311.01", "1"),
		RulingKey(99, "Ia", 5),
		RulingKey(121, "I", 400),
		RulingKey(121, "II", 1),
		RulingKey(121, "III", 38),
		RulingKey(121, "III", 100),
		RulingKey(130, "V", 2),
	}
	for i := range ordered {
		for j := range ordered {
			got := ordered[i].Compare(ordered[j])
			switch {
			case i < j:
				assert.Negative(t, got, "%s < %s", ordered[i], ordered[j])
			case i > j:
				assert.Positive(t, got, "%s > %s", ordered[i], ordered[j])
			default:
				assert.Zero(t, got)
			}
		}
	}

	shuffled := []Key{ordered[9], ordered[3], ordered[14], ordered[0], ordered[6], ordered[1],
		ordered[12], ordered[2], ordered[5], ordered[4], ordered[11], ordered[7], ordered[8],
		ordered[13], ordered[10]}
	SortKeys(shuffled)
	assert.Equal(t, ordered, shuffled)
}

func TestCompareNatural(t *testing.T) {
	assert.Negative(t, compareNatural("7", "7a"))
	assert.Negative(t, compareNatural("9", "10"))
	assert.Negative(t, compareNatural("0.101", "173.110"))
	assert.Negative(t, compareNatural("173.110", "220"))
	assert.Negative(t, compareNatural("7", "07"))
	assert.Negative(t, compareNatural("99", "bis"))
	assert.Zero(t, compareNatural("7a", "7a"))
}

func TestComparePart(t *testing.T) {
	for i := 0; i+1 < len(parts); i++ {
		assert.Negative(t, comparePart(parts[i], parts[i+1]))
	}
	assert.Negative(t, comparePart("V", "X"))
	assert.Positive(t, comparePart("X", "I"))

	p, ok := normalizePart("IB")
	assert.True(t, ok)
	assert.Equal(t, "Ib", p)
	_, ok = normalizePart("VI")
	assert.False(t, ok)
}

func TestLawCitation_EqualityIgnoresQualifiers(t *testing.T) {
	law, _ := testTable().Law("220")
	a := &LawCitation{Law: law, Article: "7a", Paragraph: intPtr(1), Language: "de"}
	b := &LawCitation{Law: law, Article: "7a", Paragraph: intPtr(2), Numeral: intPtr(3), Language: "fr"}
	c := &LawCitation{Law: law, Article: "7b", Language: "de"}

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, a.Key(), b.Key())
	assert.False(t, a.Equal(c))
	assert.NotEqual(t, a.Hash(), c.Hash())

	assert.Negative(t, a.Compare(b))
	assert.Negative(t, b.Compare(c))
}

func TestLawCitation_MissingQualifierSortsFirst(t *testing.T) {
	law, _ := testTable().Law("220")
	bare := &LawCitation{Law: law, Article: "7a"}
	withPara := &LawCitation{Law: law, Article: "7a", Paragraph: intPtr(1)}
	withNum := &LawCitation{Law: law, Article: "7a", Paragraph: intPtr(1), Numeral: intPtr(1)}

	assert.Negative(t, bare.Compare(withPara))
	assert.Negative(t, withPara.Compare(withNum))
	assert.Positive(t, withNum.Compare(bare))
}

func TestRulingCitation_Equality(t *testing.T) {
	a := &RulingCitation{Volume: 121, Part: "III", Page: 38, Consideration: "2b", Language: "de"}
	b := &RulingCitation{Volume: 121, Part: "III", Page: 38, Language: "fr"}

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Positive(t, a.Compare(b))
	assert.Equal(t, "BGE 121 III 38 E. 2b", a.String())
	assert.Equal(t, "ATF 121 III 38", b.String())
}

func TestCitation_LawsBeforeRulings(t *testing.T) {
	law, _ := testTable().Law("220")
	l := &LawCitation{Law: law, Article: "999"}
	r := &RulingCitation{Volume: 1, Part: "I", Page: 1}

	assert.Negative(t, l.Compare(r))
	assert.Positive(t, r.Compare(l))
	assert.False(t, l.Equal(r))
	assert.False(t, l.Equal(nil))
}

func TestLawCitation_StringFallsBack(t *testing.T) {
	law := Law{SRNumber: "999", Abbreviations: map[string]string{"fr": "LX"}}
	c := &LawCitation{Law: law, Article: "3", Language: "de"}
	assert.Equal(t, "Art. 3 LX", c.String())

	c = &LawCitation{Law: Law{SRNumber: "999"}, Article: "3", Language: "xx"}
	assert.Equal(t, "Art. 3 SR 999", c.String())
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{"law": TypeLaw, "Laws": TypeLaw, " ruling ": TypeRuling, "rulings": TypeRuling} {
		got, err := ParseType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseType("statutes")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

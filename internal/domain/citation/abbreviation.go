package citation

import (
	"sort"
	"strings"
)

// AbbreviationRow is one entry of the statute abbreviation table.
type AbbreviationRow struct {
	SRNumber     string `json:"sr_number"`
	Abbreviation string `json:"abbreviation"`
	Language     string `json:"language"`
	Canton       string `json:"canton,omitempty"`
}

func (r AbbreviationRow) normalize() AbbreviationRow {
	return AbbreviationRow{
		SRNumber:     strings.TrimSpace(r.SRNumber),
		Abbreviation: strings.TrimSpace(r.Abbreviation),
		Language:     strings.ToLower(strings.TrimSpace(r.Language)),
		Canton:       strings.TrimSpace(r.Canton),
	}
}

// SelectRows keeps the rows whose canton field mentions any of cantons and
// whose abbreviation is longer than one character. Single letters are too
// noisy to resolve a statute.
func SelectRows(rows []AbbreviationRow, cantons []string) []AbbreviationRow {
	out := make([]AbbreviationRow, 0, len(rows))
	for _, r := range rows {
		if len([]rune(strings.TrimSpace(r.Abbreviation))) <= 1 {
			continue
		}
		if len(cantons) > 0 && !containsAny(strings.ToLower(r.Canton), cantons) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub = strings.ToLower(strings.TrimSpace(sub)); sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type abbrKey struct {
	language     string
	abbreviation string
}

// Ambiguity is a (language, abbreviation) pair naming more than one statute.
type Ambiguity struct {
	Language     string   `json:"language"`
	Abbreviation string   `json:"abbreviation"`
	SRNumbers    []string `json:"sr_numbers"`
}

// AbbreviationTable resolves statute abbreviations. It is immutable once
// built and safe for concurrent use.
type AbbreviationTable struct {
	rows      []AbbreviationRow
	index     map[abbrKey][]string
	byStatute map[string]map[string]string
}

// NewAbbreviationTable builds a table from rows. Fields are trimmed, rows
// with an empty field are skipped and identical rows collapse to one.
func NewAbbreviationTable(rows []AbbreviationRow) *AbbreviationTable {
	t := &AbbreviationTable{
		index:     make(map[abbrKey][]string),
		byStatute: make(map[string]map[string]string),
	}
	seen := make(map[AbbreviationRow]struct{}, len(rows))
	for _, raw := range rows {
		r := raw.normalize()
		if r.SRNumber == "" || r.Abbreviation == "" || r.Language == "" {
			continue
		}
		r.Canton = ""
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		t.rows = append(t.rows, r)

		k := abbrKey{language: r.Language, abbreviation: r.Abbreviation}
		if !containsString(t.index[k], r.SRNumber) {
			t.index[k] = append(t.index[k], r.SRNumber)
		}

		langs, ok := t.byStatute[r.SRNumber]
		if !ok {
			langs = make(map[string]string)
			t.byStatute[r.SRNumber] = langs
		}
		if _, ok := langs[r.Language]; !ok {
			langs[r.Language] = r.Abbreviation
		}
	}
	return t
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// Lookup returns the distinct SR numbers that abbreviation names in
// language. The returned slice must not be modified.
func (t *AbbreviationTable) Lookup(abbreviation, language string) []string {
	if t == nil {
		return nil
	}
	return t.index[abbrKey{
		language:     strings.ToLower(strings.TrimSpace(language)),
		abbreviation: strings.TrimSpace(abbreviation),
	}]
}

// Law returns the statute identified by sr with all its abbreviations.
func (t *AbbreviationTable) Law(sr string) (Law, bool) {
	if t == nil {
		return Law{}, false
	}
	langs, ok := t.byStatute[sr]
	if !ok {
		return Law{}, false
	}
	return Law{SRNumber: sr, Abbreviations: langs}, true
}

// Len is the number of distinct rows.
func (t *AbbreviationTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Rows returns a copy of the normalized, deduplicated rows.
func (t *AbbreviationTable) Rows() []AbbreviationRow {
	if t == nil {
		return nil
	}
	return append([]AbbreviationRow(nil), t.rows...)
}

// Ambiguities lists every (language, abbreviation) naming more than one
// statute, sorted by language then abbreviation.
func (t *AbbreviationTable) Ambiguities() []Ambiguity {
	if t == nil {
		return nil
	}
	var out []Ambiguity
	for k, srs := range t.index {
		if len(srs) < 2 {
			continue
		}
		sorted := append([]string(nil), srs...)
		sort.Slice(sorted, func(i, j int) bool { return compareNatural(sorted[i], sorted[j]) < 0 })
		out = append(out, Ambiguity{Language: k.language, Abbreviation: k.abbreviation, SRNumbers: sorted})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Language != out[j].Language {
			return out[i].Language < out[j].Language
		}
		return out[i].Abbreviation < out[j].Abbreviation
	})
	return out
}

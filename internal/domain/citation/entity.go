// Package citation models canonical law and ruling citations and parses raw
// citation mentions into them.
//
// A Citation is a sealed sum type with exactly two variants, *LawCitation and
// *RulingCitation. Both expose a canonical Key that holds only the fields
// taking part in equality; Key is comparable and is used directly as a map
// key for counting and indexing.
package citation

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ─────────────────────────────────────────────────────────────────────────────
// Type
// ─────────────────────────────────────────────────────────────────────────────

// Type distinguishes the two citation variants. Its value doubles as the name
// of the mention list in decision records ("laws", "rulings").
type Type string

const (
	TypeLaw    Type = "laws"
	TypeRuling Type = "rulings"
)

// Types returns every citation type in processing order.
func Types() []Type { return []Type{TypeLaw, TypeRuling} }

// Valid reports whether t is a known type.
func (t Type) Valid() bool { return t == TypeLaw || t == TypeRuling }

// String implements fmt.Stringer.
func (t Type) String() string { return string(t) }

// rank orders law citations before ruling citations.
func (t Type) rank() int {
	switch t {
	case TypeLaw:
		return 0
	case TypeRuling:
		return 1
	}
	return 2
}

// ParseType accepts "law", "laws", "ruling" and "rulings" in any case.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "law", "laws":
		return TypeLaw, nil
	case "ruling", "rulings":
		return TypeRuling, nil
	}
	return "", ErrInvalidKey.WithDetailf("unknown citation type %q", s)
}

// ─────────────────────────────────────────────────────────────────────────────
// Key
// ─────────────────────────────────────────────────────────────────────────────

// Key is the canonical identity of a citation: (statute, article) for laws,
// (volume, part, page) for rulings. Optional qualifiers such as paragraph,
// numeral or consideration are never part of a Key.
type Key struct {
	Type    Type
	Statute string // SR number
	Article string
	Volume  int
	Part    string
	Page    int
}

// LawKey returns the canonical key of article in statute sr.
func LawKey(sr, article string) Key {
	return Key{Type: TypeLaw, Statute: sr, Article: article}
}

// RulingKey returns the canonical key of a BGE ruling.
func RulingKey(volume int, part string, page int) Key {
	return Key{Type: TypeRuling, Volume: volume, Part: part, Page: page}
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool { return k == Key{} }

// String renders the language-independent canonical form:
// "SR 220 Art. 7a" or "BGE 121 III 38".
func (k Key) String() string {
	switch k.Type {
	case TypeLaw:
		return "SR " + k.Statute + " Art. " + k.Article
	case TypeRuling:
		return fmt.Sprintf("BGE %d %s %d", k.Volume, k.Part, k.Page)
	}
	return ""
}

// Hash returns a 64-bit hash of the equality fields. Equal keys always hash
// equally.
func (k Key) Hash() uint64 {
	d := xxhash.New()
	sep := []byte{0}
	_, _ = d.WriteString(string(k.Type))
	_, _ = d.Write(sep)
	_, _ = d.WriteString(k.Statute)
	_, _ = d.Write(sep)
	_, _ = d.WriteString(k.Article)
	_, _ = d.Write(sep)
	_, _ = d.WriteString(strconv.Itoa(k.Volume))
	_, _ = d.Write(sep)
	_, _ = d.WriteString(k.Part)
	_, _ = d.Write(sep)
	_, _ = d.WriteString(strconv.Itoa(k.Page))
	return d.Sum64()
}

// Compare orders keys: laws before rulings; laws by statute then article,
// rulings by volume, part and page. It returns 0 only for equal keys.
func (k Key) Compare(o Key) int {
	if c := cmp.Compare(k.Type.rank(), o.Type.rank()); c != 0 {
		return c
	}
	if c := strings.Compare(string(k.Type), string(o.Type)); c != 0 {
		return c
	}
	if c := compareNatural(k.Statute, o.Statute); c != 0 {
		return c
	}
	if c := compareNatural(k.Article, o.Article); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Volume, o.Volume); c != 0 {
		return c
	}
	if c := comparePart(k.Part, o.Part); c != 0 {
		return c
	}
	return cmp.Compare(k.Page, o.Page)
}

// MarshalText lets Key serve as a JSON object key.
func (k Key) MarshalText() ([]byte, error) {
	if !k.Type.Valid() {
		return nil, ErrInvalidKey.WithDetail("zero or untyped key")
	}
	return []byte(k.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKey parses the canonical form produced by Key.String.
func ParseKey(s string) (Key, error) {
	f := strings.Fields(s)
	if len(f) == 4 && f[0] == "SR" && f[2] == "Art." {
		return LawKey(f[1], f[3]), nil
	}
	if len(f) == 4 && f[0] == "BGE" {
		volume, err1 := strconv.Atoi(f[1])
		page, err2 := strconv.Atoi(f[3])
		part, ok := normalizePart(f[2])
		if err1 == nil && err2 == nil && ok && volume > 0 && page > 0 {
			return RulingKey(volume, part, page), nil
		}
	}
	return Key{}, ErrInvalidKey.WithDetailf("%q", s)
}

// SortKeys sorts keys in place by Key.Compare.
func SortKeys(keys []Key) {
	slices.SortFunc(keys, Key.Compare)
}

// ─────────────────────────────────────────────────────────────────────────────
// Citation
// ─────────────────────────────────────────────────────────────────────────────

// Citation is implemented by *LawCitation and *RulingCitation only.
type Citation interface {
	// Type reports the variant.
	Type() Type
	// Key returns the canonical identity.
	Key() Key
	// Hash is Key().Hash().
	Hash() uint64
	// Equal compares canonical identities.
	Equal(other Citation) bool
	// Compare is the total citation order, including optional qualifiers.
	Compare(other Citation) int
	// String renders the citation in its language.
	String() string
	// Literal is the raw mention the citation was parsed from.
	Literal() string

	sealed()
}

func equalCitations(a, b Citation) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

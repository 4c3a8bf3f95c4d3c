package labeling

import (
	"sort"
	"strings"

	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/domain/decision"
)

// Masker hides citation mentions in the text fields of a decision so that
// the relevance labels cannot be read off the query text.
type Masker struct {
	fields []string
	tokens map[citation.Type]string
}

// NewMasker masks fields, replacing law mentions with lawToken and ruling
// mentions with rulingToken.
func NewMasker(fields []string, lawToken, rulingToken string) *Masker {
	return &Masker{
		fields: append([]string(nil), fields...),
		tokens: map[citation.Type]string{
			citation.TypeLaw:    lawToken,
			citation.TypeRuling: rulingToken,
		},
	}
}

// Mask returns a copy of doc.Fields in which every occurrence of every
// mention literal inside the masked fields is replaced by its type's token.
// Longer literals win over literals they contain. doc is not modified.
func (m *Masker) Mask(doc *decision.Decision) map[string]string {
	out := make(map[string]string, len(doc.Fields))
	for k, v := range doc.Fields {
		out[k] = v
	}

	r := m.replacer(doc)
	if r == nil {
		return out
	}
	for _, f := range m.fields {
		if text, ok := out[f]; ok {
			out[f] = r.Replace(text)
		}
	}
	return out
}

type literal struct {
	text  string
	token string
}

func (m *Masker) replacer(doc *decision.Decision) *strings.Replacer {
	seen := make(map[string]struct{})
	var lits []literal
	for _, t := range citation.Types() {
		for _, mention := range doc.MentionsOf(t) {
			if mention.Text == "" {
				continue
			}
			if _, dup := seen[mention.Text]; dup {
				continue
			}
			seen[mention.Text] = struct{}{}
			lits = append(lits, literal{text: mention.Text, token: m.tokens[t]})
		}
	}
	if len(lits) == 0 {
		return nil
	}

	// strings.Replacer tries old strings in argument order at each position.
	sort.SliceStable(lits, func(i, j int) bool {
		if len(lits[i].text) != len(lits[j].text) {
			return len(lits[i].text) > len(lits[j].text)
		}
		return lits[i].text < lits[j].text
	})
	pairs := make([]string, 0, 2*len(lits))
	for _, l := range lits {
		pairs = append(pairs, l.text, l.token)
	}
	return strings.NewReplacer(pairs...)
}

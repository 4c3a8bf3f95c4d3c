package citation

import (
	"cmp"
	"strings"
)

// compareNatural orders designators by their numeric content, segment by
// segment on '.', so that "7" < "7a" < "12" and "0.101" < "173.110" < "220".
// It returns 0 only when a == b.
func compareNatural(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(as), len(bs))
}

func compareSegment(a, b string) int {
	an, arest := splitDigits(a)
	bn, brest := splitDigits(b)
	switch {
	case an == "" && bn == "":
		return strings.Compare(a, b)
	case an == "":
		return 1
	case bn == "":
		return -1
	}

	at, bt := strings.TrimLeft(an, "0"), strings.TrimLeft(bn, "0")
	if c := cmp.Compare(len(at), len(bt)); c != 0 {
		return c
	}
	if c := strings.Compare(at, bt); c != 0 {
		return c
	}
	if c := cmp.Compare(len(an), len(bn)); c != 0 {
		return c
	}
	return strings.Compare(arest, brest)
}

// splitDigits splits s into its leading ASCII digits and the remainder.
func splitDigits(s string) (digits, rest string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

// compareOptional orders a missing value before any present value.
func compareOptional(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return cmp.Compare(*a, *b)
}

// compareOptionalString is compareOptional for designators, "" meaning
// missing.
func compareOptionalString(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}
	return compareNatural(a, b)
}

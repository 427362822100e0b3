package respond

import (
	"strconv"
	"strings"
)

// mediaRange is one element of an Accept header.
type mediaRange struct {
	typ     string
	subtype string
	q       float64
}

// parseAccept splits an Accept header into media ranges. Malformed or
// out-of-range q values default to 1.0; the last q parameter wins.
func parseAccept(header string) []mediaRange {
	var ranges []mediaRange
	for part := range strings.SplitSeq(header, ",") {
		params := strings.Split(part, ";")
		mt := strings.ToLower(strings.TrimSpace(params[0]))
		if mt == "" {
			continue
		}
		typ, subtype, ok := strings.Cut(mt, "/")
		if !ok {
			subtype = "*"
		}
		mr := mediaRange{typ: strings.TrimSpace(typ), subtype: strings.TrimSpace(subtype), q: 1.0}
		for _, p := range params[1:] {
			k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
			if !ok || strings.TrimSpace(k) != "q" {
				continue
			}
			q, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || q < 0 || q > 1 {
				q = 1.0
			}
			mr.q = q
		}
		ranges = append(ranges, mr)
	}
	return ranges
}

// specificity of r against application/<subtype>; -1 when it does not match.
// problem+ subtypes rank above their base type so an explicit problem
// preference breaks ties.
func (r mediaRange) specificity(subtype string) int {
	switch {
	case r.typ == "*" && r.subtype == "*":
		return 0
	case r.typ != "application":
		return -1
	case r.subtype == "*":
		return 1
	case r.subtype == subtype:
		if strings.HasPrefix(subtype, "problem+") {
			return 4
		}
		return 3
	case strings.HasPrefix(r.subtype, "*+"):
		if _, suffix, ok := strings.Cut(subtype, "+"); ok && r.subtype[2:] == suffix {
			return 2
		}
	}
	return -1
}

// preference returns the q value and specificity of the most specific range
// matching any of subtypes.
func preference(ranges []mediaRange, subtypes ...string) (float64, int) {
	q, best := 0.0, -1
	for _, r := range ranges {
		for _, st := range subtypes {
			if s := r.specificity(st); s > best {
				q, best = r.q, s
			}
		}
	}
	return q, best
}

// selectFormat reports whether CBOR should be used for a problem response.
// q-value ranks first and specificity breaks ties; JSON wins anything else.
func selectFormat(accept string) bool {
	ranges := parseAccept(accept)
	if len(ranges) == 0 {
		return false
	}
	cborQ, cborSpec := preference(ranges, "cbor", "problem+cbor")
	jsonQ, jsonSpec := preference(ranges, "json", "problem+json")
	if cborSpec < 0 || cborQ == 0 {
		return false
	}
	if jsonSpec < 0 || jsonQ == 0 {
		return true
	}
	if cborQ != jsonQ {
		return cborQ > jsonQ
	}
	return cborSpec > jsonSpec
}

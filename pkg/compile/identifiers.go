package compile

import (
	"strconv"
	"strings"
)

// sanitize maps an opaque node or port ID onto characters valid in a C
// identifier. The result alone is not guaranteed unique; identifierSet
// layers injectivity on top.
func sanitize(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		s = "n" + s
	}
	return s
}

// identifierSet hands out sanitized identifiers that are guaranteed unique:
// two distinct raw IDs never collide after sanitization. A collision would
// alias two nodes' persistent state, so this is a correctness property, not
// cosmetics.
type identifierSet struct {
	taken map[string]int
}

func newIdentifierSet() *identifierSet {
	return &identifierSet{taken: make(map[string]int)}
}

// claim returns a unique identifier for raw. Claim order decides suffixing,
// so callers must claim in a deterministic order.
func (s *identifierSet) claim(raw string) string {
	base := sanitize(raw)
	n := s.taken[base]
	s.taken[base] = n + 1
	if n == 0 {
		return base
	}
	// base is taken: suffix until free. The suffixed form is itself
	// claimed so later raw IDs that sanitize to it keep walking.
	for {
		candidate := base + "_" + strconv.Itoa(n+1)
		if s.taken[candidate] == 0 {
			s.taken[candidate] = 1
			return candidate
		}
		n++
	}
}

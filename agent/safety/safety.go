// Package safety holds the local predicate that decides whether a query may be
// routed at all. It never calls out of process.
package safety

import "strings"

// Predicate reports whether a query is safe.
type Predicate func(query string) bool

// Gate applies a Predicate. The zero value treats every query as safe.
type Gate struct {
	predicate Predicate
}

func New(p Predicate) *Gate {
	return &Gate{predicate: p}
}

// Default returns the reference policy: a query is unsafe when it contains
// the token "unsafe".
func Default() *Gate {
	return New(BlocklistPredicate("unsafe"))
}

func (g *Gate) Check(query string) bool {
	if g == nil || g.predicate == nil {
		return true
	}
	return g.predicate(query)
}

// BlocklistPredicate rejects queries containing any of the tokens as a
// substring. Matching is case sensitive, like the reference check.
func BlocklistPredicate(tokens ...string) Predicate {
	blocked := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			blocked = append(blocked, t)
		}
	}
	return func(query string) bool {
		for _, t := range blocked {
			if strings.Contains(query, t) {
				return false
			}
		}
		return true
	}
}

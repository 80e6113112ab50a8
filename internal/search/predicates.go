package search

import (
	"strings"

	"github.com/bryanchriswhite/tabscout/internal/ax"
)

// Role matches any of the given roles
func Role(roles ...string) Predicate {
	set := roleSet(roles)
	return func(acc *ax.Accessor, n ax.Node) bool {
		return set[acc.Role(n)]
	}
}

// Subrole matches any of the given subroles
func Subrole(subroles ...string) Predicate {
	set := roleSet(subroles)
	return func(acc *ax.Accessor, n ax.Node) bool {
		return set[acc.Subrole(n)]
	}
}

// IdentifierContains matches nodes whose identifier contains s, ignoring case
func IdentifierContains(s string) Predicate {
	s = strings.ToLower(s)
	return func(acc *ax.Accessor, n ax.Node) bool {
		return strings.Contains(strings.ToLower(acc.Identifier(n)), s)
	}
}

// HasTitle matches nodes with a non-blank title
func HasTitle() Predicate {
	return func(acc *ax.Accessor, n ax.Node) bool {
		return strings.TrimSpace(acc.Title(n)) != ""
	}
}

// And matches when every predicate does
func And(preds ...Predicate) Predicate {
	return func(acc *ax.Accessor, n ax.Node) bool {
		for _, p := range preds {
			if !p(acc, n) {
				return false
			}
		}
		return true
	}
}

// Or matches when any predicate does
func Or(preds ...Predicate) Predicate {
	return func(acc *ax.Accessor, n ax.Node) bool {
		for _, p := range preds {
			if p(acc, n) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate
func Not(p Predicate) Predicate {
	return func(acc *ax.Accessor, n ax.Node) bool {
		return !p(acc, n)
	}
}

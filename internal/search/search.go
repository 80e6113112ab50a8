// Package search holds the bounded tree traversals shared by every collector.
//
// All traversals are depth-first in children order, stop at an explicit
// depth limit and keep a visited set keyed by node fingerprint, so trees
// whose parent and children references form loops terminate.
package search

import (
	"github.com/cespare/xxhash/v2"

	"github.com/bryanchriswhite/tabscout/internal/ax"
)

// DefaultMaxDepth is used when Options.MaxDepth is not positive
const DefaultMaxDepth = 10

// Predicate decides whether a node matches
type Predicate func(acc *ax.Accessor, n ax.Node) bool

// Options bound a traversal
type Options struct {
	// MaxDepth is the deepest level examined; the root is level 0.
	MaxDepth int
	// FollowRoles, when non-empty, limits descent to nodes with these roles.
	// The root is always expanded.
	FollowRoles []string
	// SkipRoles are never expanded
	SkipRoles []string
	// ChildAttrs are read in order and merged; defaults to children only.
	ChildAttrs []string
	// PruneMatches stops descent below a matching node
	PruneMatches bool
	// Limit stops the traversal after this many matches when positive
	Limit int
}

func (o Options) depth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

func (o Options) childAttrs() []string {
	if len(o.ChildAttrs) == 0 {
		return []string{ax.AttrChildren}
	}
	return o.ChildAttrs
}

// Fingerprint hashes a node's identity
func Fingerprint(n ax.Node) uint64 {
	if n == nil {
		return 0
	}
	return xxhash.Sum64String(n.Key())
}

// Visited is a set of node fingerprints. The zero value is not usable; use NewVisited.
type Visited struct {
	set map[uint64]struct{}
}

// NewVisited returns an empty set
func NewVisited() *Visited {
	return &Visited{set: make(map[uint64]struct{})}
}

// Add records n, reporting false if it was already present
func (v *Visited) Add(n ax.Node) bool {
	fp := Fingerprint(n)
	if _, ok := v.set[fp]; ok {
		return false
	}
	v.set[fp] = struct{}{}
	return true
}

// Has reports whether n was recorded
func (v *Visited) Has(n ax.Node) bool {
	_, ok := v.set[Fingerprint(n)]
	return ok
}

// Len returns the number of recorded nodes
func (v *Visited) Len() int { return len(v.set) }

// Children reads the children of n through each attribute in attrs, merging
// the lists in order and dropping repeats.
func Children(acc *ax.Accessor, n ax.Node, attrs ...string) []ax.Node {
	if len(attrs) == 0 {
		attrs = []string{ax.AttrChildren}
	}
	if len(attrs) == 1 {
		return acc.Nodes(n, attrs[0])
	}
	var out []ax.Node
	seen := NewVisited()
	for _, attr := range attrs {
		for _, c := range acc.Nodes(n, attr) {
			if seen.Add(c) {
				out = append(out, c)
			}
		}
	}
	return out
}

// Ordered returns the children of n in navigation order when the node
// exposes a non-empty one, otherwise in children order.
func Ordered(acc *ax.Accessor, n ax.Node) []ax.Node {
	if nav := acc.NavigationOrder(n); len(nav) > 0 {
		return nav
	}
	return acc.Children(n)
}

// Walk visits every node below root (not root itself) depth-first within
// the options' bounds. fn returns false to skip the node's subtree.
func Walk(acc *ax.Accessor, root ax.Node, opts Options, fn func(n ax.Node, depth int) bool) {
	if root == nil {
		return
	}
	follow := roleSet(opts.FollowRoles)
	skip := roleSet(opts.SkipRoles)
	attrs := opts.childAttrs()
	limit := opts.depth()
	visited := NewVisited()
	visited.Add(root)

	var visit func(n ax.Node, depth int)
	visit = func(n ax.Node, depth int) {
		for _, c := range Children(acc, n, attrs...) {
			if !visited.Add(c) {
				continue
			}
			if !fn(c, depth) {
				continue
			}
			if depth >= limit {
				continue
			}
			if len(follow) > 0 || len(skip) > 0 {
				role := acc.Role(c)
				if skip[role] {
					continue
				}
				if len(follow) > 0 && !follow[role] {
					continue
				}
			}
			visit(c, depth+1)
		}
	}
	visit(root, 1)
}

// FindMatching returns every node below root satisfying pred, in traversal order.
func FindMatching(acc *ax.Accessor, root ax.Node, pred Predicate, opts Options) []ax.Node {
	var out []ax.Node
	done := false
	Walk(acc, root, opts, func(n ax.Node, _ int) bool {
		if done {
			return false
		}
		if pred(acc, n) {
			out = append(out, n)
			if opts.Limit > 0 && len(out) >= opts.Limit {
				done = true
				return false
			}
			return !opts.PruneMatches
		}
		return true
	})
	return out
}

// FindFirst returns the first node below root satisfying pred
func FindFirst(acc *ax.Accessor, root ax.Node, pred Predicate, opts Options) (ax.Node, bool) {
	opts.Limit = 1
	found := FindMatching(acc, root, pred, opts)
	if len(found) == 0 {
		return nil, false
	}
	return found[0], true
}

// FirstDescendant returns the first node below root with the given role
func FirstDescendant(acc *ax.Accessor, root ax.Node, role string, maxDepth int) (ax.Node, bool) {
	return FindFirst(acc, root, Role(role), Options{MaxDepth: maxDepth})
}

// FirstAncestor walks parent references from n (exclusive) and returns the
// first node with the given role.
func FirstAncestor(acc *ax.Accessor, n ax.Node, role string, maxDepth int) (ax.Node, bool) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	visited := NewVisited()
	visited.Add(n)
	cur := n
	for i := 0; i < maxDepth; i++ {
		parent, ok := acc.Parent(cur)
		if !ok || !visited.Add(parent) {
			return nil, false
		}
		if acc.Role(parent) == role {
			return parent, true
		}
		cur = parent
	}
	return nil, false
}

func roleSet(roles []string) map[string]bool {
	if len(roles) == 0 {
		return nil
	}
	m := make(map[string]bool, len(roles))
	for _, r := range roles {
		m[r] = true
	}
	return m
}

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/ax/axtest"
)

func setup(windows ...*axtest.Element) *ax.Accessor {
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 7, ID: "org.example.app", Name: "Example"}, windows...)
	return ax.NewAccessor(p)
}

func titles(acc *ax.Accessor, nodes []ax.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, acc.Title(n))
	}
	return out
}

func chain(depth int, leaf *axtest.Element) *axtest.Element {
	cur := leaf
	for i := 0; i < depth; i++ {
		cur = axtest.New(ax.RoleGroup, "", cur)
	}
	return cur
}

func TestFindMatchingChildrenOrder(t *testing.T) {
	win := axtest.Window("w",
		axtest.New(ax.RoleGroup, "",
			axtest.Tab("a"),
			axtest.New(ax.RoleGroup, "", axtest.Tab("b")),
		),
		axtest.Tab("c"),
	)
	acc := setup(win)

	found := FindMatching(acc, win, Role(ax.RoleRadioButton), Options{})
	assert.Equal(t, []string{"a", "b", "c"}, titles(acc, found))
}

func TestFindMatchingRespectsDepth(t *testing.T) {
	win := axtest.Window("w", chain(4, axtest.Tab("deep")))
	acc := setup(win)

	// tab sits at level 5 below the window
	assert.Empty(t, FindMatching(acc, win, Role(ax.RoleRadioButton), Options{MaxDepth: 4}))
	assert.Len(t, FindMatching(acc, win, Role(ax.RoleRadioButton), Options{MaxDepth: 5}), 1)
}

func TestFindMatchingTerminatesOnCycles(t *testing.T) {
	loop := axtest.New(ax.RoleGroup, "loop")
	tab := axtest.Tab("t")
	win := axtest.Window("w", loop)
	loop.Add(tab, win, loop)
	acc := setup(win)

	found := FindMatching(acc, win, Role(ax.RoleRadioButton), Options{MaxDepth: 50})
	require.Len(t, found, 1)
	assert.Equal(t, "t", acc.Title(found[0]))
}

func TestFindMatchingFollowAndSkipRoles(t *testing.T) {
	win := axtest.Window("w",
		axtest.New(ax.RoleTabGroup, "", axtest.Tab("inside")),
		axtest.New(ax.RoleToolbar, "", axtest.Tab("toolbar")),
	)
	acc := setup(win)

	found := FindMatching(acc, win, Role(ax.RoleRadioButton), Options{FollowRoles: []string{ax.RoleTabGroup}})
	assert.Equal(t, []string{"inside"}, titles(acc, found))

	found = FindMatching(acc, win, Role(ax.RoleRadioButton), Options{SkipRoles: []string{ax.RoleTabGroup}})
	assert.Equal(t, []string{"toolbar"}, titles(acc, found))
}

func TestFindMatchingPruneAndLimit(t *testing.T) {
	outer := axtest.New(ax.RoleGroup, "outer", axtest.New(ax.RoleGroup, "inner"))
	win := axtest.Window("w", outer, axtest.New(ax.RoleGroup, "sibling"))
	acc := setup(win)

	all := FindMatching(acc, win, Role(ax.RoleGroup), Options{})
	assert.Equal(t, []string{"outer", "inner", "sibling"}, titles(acc, all))

	pruned := FindMatching(acc, win, Role(ax.RoleGroup), Options{PruneMatches: true})
	assert.Equal(t, []string{"outer", "sibling"}, titles(acc, pruned))

	first, ok := FindFirst(acc, win, Role(ax.RoleGroup), Options{})
	require.True(t, ok)
	assert.Equal(t, "outer", acc.Title(first))
}

func TestChildrenMergesAttributes(t *testing.T) {
	a, b, c := axtest.Tab("a"), axtest.Tab("b"), axtest.Tab("c")
	win := axtest.Window("w", a, b)
	win.NavOrder = []*axtest.Element{b, c}
	acc := setup(win)

	got := Children(acc, win, ax.AttrChildren, ax.AttrNavigationOrder)
	assert.Equal(t, []string{"a", "b", "c"}, titles(acc, got))
	assert.Equal(t, []string{"b", "c"}, titles(acc, Ordered(acc, win)))

	plain := axtest.Window("p", axtest.Tab("x"))
	acc = setup(plain)
	assert.Equal(t, []string{"x"}, titles(acc, Ordered(acc, plain)))
}

func TestUnsupportedChildrenAreLeaves(t *testing.T) {
	win := axtest.Window("w", axtest.New(ax.RoleButton, "b"))
	win.Children[0].Set(ax.AttrChildren, ax.ErrUnsupported)
	acc := setup(win)

	assert.Len(t, FindMatching(acc, win, func(*ax.Accessor, ax.Node) bool { return true }, Options{}), 1)
}

func TestFirstAncestorAndDescendant(t *testing.T) {
	tab := axtest.Tab("t")
	group := axtest.New(ax.RoleTabGroup, "g", axtest.New(ax.RoleGroup, "", tab))
	win := axtest.Window("w", group)
	acc := setup(win)

	anc, ok := FirstAncestor(acc, tab, ax.RoleTabGroup, 5)
	require.True(t, ok)
	assert.Equal(t, "g", acc.Title(anc))

	anc, ok = FirstAncestor(acc, tab, ax.RoleWindow, 5)
	require.True(t, ok)
	assert.Equal(t, "w", acc.Title(anc))

	_, ok = FirstAncestor(acc, tab, ax.RoleMenu, 5)
	assert.False(t, ok)

	desc, ok := FirstDescendant(acc, win, ax.RoleRadioButton, 5)
	require.True(t, ok)
	assert.Equal(t, "t", acc.Title(desc))
}

func TestFirstAncestorStopsOnParentLoop(t *testing.T) {
	a := axtest.New(ax.RoleGroup, "a")
	b := axtest.New(ax.RoleGroup, "b")
	a.Set(ax.AttrParent, b)
	b.Set(ax.AttrParent, a)
	acc := setup(axtest.Window("w", a, b))

	_, ok := FirstAncestor(acc, a, ax.RoleWindow, 100)
	assert.False(t, ok)
}

func TestPredicates(t *testing.T) {
	e := axtest.Tab("Title")
	e.Identifier = "TabBarTab-3"
	acc := setup(axtest.Window("w", e))

	assert.True(t, IdentifierContains("tabbartab")(acc, e))
	assert.True(t, HasTitle()(acc, e))
	assert.True(t, And(Role(ax.RoleRadioButton), Subrole(ax.SubroleTabButton))(acc, e))
	assert.True(t, Or(Role(ax.RoleTab), Role(ax.RoleRadioButton))(acc, e))
	assert.False(t, Not(Role(ax.RoleRadioButton))(acc, e))
}

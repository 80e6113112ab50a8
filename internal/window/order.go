package window

import (
	"sort"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/search"
)

// RowTolerance is the vertical distance within which tabs share a row
const RowTolerance = 5.0

// Dedupe drops nodes reached more than once, keeping first occurrences
func Dedupe(nodes []ax.Node) []ax.Node {
	seen := search.NewVisited()
	out := make([]ax.Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil && seen.Add(n) {
			out = append(out, n)
		}
	}
	return out
}

// OrderTabs returns tabs in visual order. When container exposes a
// non-empty navigation order, tabs appear in that order (tabs missing from
// it follow, positionally sorted). Otherwise tabs are grouped into rows by
// vertical position and each row is sorted left to right.
func OrderTabs(acc *ax.Accessor, container ax.Node, tabs []ax.Node) []ax.Node {
	tabs = Dedupe(tabs)
	if len(tabs) < 2 {
		return tabs
	}
	if container != nil {
		if nav := acc.NavigationOrder(container); len(nav) > 0 {
			return byNavigation(acc, nav, tabs)
		}
	}
	return ByPosition(acc, tabs)
}

func byNavigation(acc *ax.Accessor, nav, tabs []ax.Node) []ax.Node {
	pos := make(map[uint64]int, len(nav))
	for i, n := range nav {
		fp := search.Fingerprint(n)
		if _, ok := pos[fp]; !ok {
			pos[fp] = i
		}
	}
	var ordered, rest []ax.Node
	for _, t := range tabs {
		if _, ok := pos[search.Fingerprint(t)]; ok {
			ordered = append(ordered, t)
		} else {
			rest = append(rest, t)
		}
	}
	if len(ordered) == 0 {
		return ByPosition(acc, tabs)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return pos[search.Fingerprint(ordered[i])] < pos[search.Fingerprint(ordered[j])]
	})
	return append(ordered, ByPosition(acc, rest)...)
}

// ByPosition sorts nodes into rows (top to bottom) and columns (left to
// right). A node joins the current row while its y is less than
// RowTolerance below the row's first node.
func ByPosition(acc *ax.Accessor, nodes []ax.Node) []ax.Node {
	type placed struct {
		n    ax.Node
		x, y float64
	}
	items := make([]placed, len(nodes))
	for i, n := range nodes {
		f := acc.Frame(n)
		items[i] = placed{n: n, x: f.X, y: f.Y}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].y < items[j].y })

	out := make([]ax.Node, 0, len(items))
	for start := 0; start < len(items); {
		end := start + 1
		for end < len(items) && items[end].y-items[start].y < RowTolerance {
			end++
		}
		row := items[start:end]
		sort.SliceStable(row, func(i, j int) bool { return row[i].x < row[j].x })
		for _, it := range row {
			out = append(out, it.n)
		}
		start = end
	}
	return out
}

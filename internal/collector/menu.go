package collector

import (
	"strings"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/search"
	"github.com/bryanchriswhite/tabscout/internal/window"
)

const menuDepth = 4

var menuScaffolding = []string{
	"window", "pane", "panel", "workspace", "tool", "preferences",
	"settings", "hilfe", "menu", "tab group", "navigation",
}

// MenuItem is one candidate tab read from a menu
type MenuItem struct {
	Node  ax.Node
	Title string
}

// isScaffolding reports whether a menu title is a generic entry rather
// than the name of an open document
func isScaffolding(title string) bool {
	lower := strings.ToLower(title)
	if containsAny(lower, menuScaffolding...) {
		return true
	}
	if strings.HasPrefix(title, "•") || strings.HasPrefix(title, "-") {
		return true
	}
	return strings.HasSuffix(title, "…") || strings.HasSuffix(title, "...")
}

// submenu returns the menu opened by a menu bar item or menu item
func submenu(acc *ax.Accessor, item ax.Node) (ax.Node, bool) {
	if m, ok := acc.NodeAttr(item, ax.AttrMenu); ok {
		return m, true
	}
	for _, c := range acc.Children(item) {
		if acc.Role(c) == ax.RoleMenu {
			return c, true
		}
	}
	return nil, false
}

// MenuTabItems reads candidate tab titles from the application's menus.
// The "Window" menu is preferred; without one every top-level menu is
// scanned. Scaffolding entries are dropped and titles are deduplicated
// in order.
func MenuTabItems(acc *ax.Accessor, app ax.Node) []MenuItem {
	bar, ok := acc.MenuBar(app)
	if !ok {
		return nil
	}
	menus := acc.Children(bar)
	for _, item := range menus {
		if strings.EqualFold(strings.TrimSpace(acc.Title(item)), "window") {
			menus = []ax.Node{item}
			break
		}
	}

	var out []MenuItem
	seen := make(map[string]bool)
	visited := search.NewVisited()
	var walk func(menu ax.Node, depth int)
	walk = func(menu ax.Node, depth int) {
		if depth > menuDepth || !visited.Add(menu) {
			return
		}
		for _, item := range acc.Children(menu) {
			title := strings.TrimSpace(acc.Title(item))
			if title == "" || isScaffolding(title) {
				continue
			}
			if !seen[title] {
				seen[title] = true
				out = append(out, MenuItem{Node: item, Title: title})
			}
			if sub, ok := submenu(acc, item); ok {
				walk(sub, depth+1)
			}
		}
	}
	for _, top := range menus {
		if sub, ok := submenu(acc, top); ok {
			walk(sub, 1)
		}
	}
	return out
}

// menuTabs builds tab records from menu titles. The tabs take the host's
// frame and are identified by their position under the host; the menu item
// is kept as the element to press when the tab is selected.
func menuTabs(env Env, host window.Record) []window.Record {
	app, ok := env.Acc.Application(host.PID)
	if !ok {
		return nil
	}
	items := MenuTabItems(env.Acc, app)
	now := env.Time()
	out := make([]window.Record, 0, len(items))
	for i, it := range items {
		r := window.NewTab(env.Acc, nil, host, i, it.Title, now)
		r.Frame = host.Frame
		r.LastKnownFrame = host.Frame
		r.NodeKey = it.Node.Key()
		out = append(out, r)
	}
	return out
}

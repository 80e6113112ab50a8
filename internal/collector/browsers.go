package collector

import (
	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/search"
	"github.com/bryanchriswhite/tabscout/internal/window"
)

// Orion is the WebKit scan with title, then description naming
type Orion struct{ WebKit }

func (Orion) Name() string { return "orion" }

func (Orion) CollectTabs(env Env, host window.Record) []window.Record {
	n, ok := hostNode(env, host)
	if !ok {
		return nil
	}
	if tabs := webkitTabElements(env.Acc, n); len(tabs) > 0 {
		return buildTabs(env, host, tabs, orionTitle)
	}
	return menuTabs(env, host)
}

func orionTitle(acc *ax.Accessor, n ax.Node) string {
	if t := firstNonEmpty(acc.Title(n), acc.Description(n)); t != "" {
		return t
	}
	return "(Orion Tab)"
}

// TitledChromium is the Chromium scan for builds that label tab buttons
// with their title attribute.
type TitledChromium struct {
	Chromium
	Label       string
	Placeholder string
}

func (c TitledChromium) Name() string { return c.Label }

func (c TitledChromium) CollectTabs(env Env, host window.Record) []window.Record {
	if isDevTools(host.Title) {
		return nil
	}
	n, ok := hostNode(env, host)
	if !ok {
		return nil
	}
	return buildTabs(env, host, chromiumTabElements(env.Acc, n), func(acc *ax.Accessor, t ax.Node) string {
		if title := firstNonEmpty(acc.Title(t)); title != "" {
			return title
		}
		if title := chromiumTitle(acc, t); title != window.UntitledTab {
			return title
		}
		return c.Placeholder
	})
}

const operaDepth = 12

var operaFollow = map[string]bool{
	ax.RoleTabGroup: true,
	ax.RoleTabStrip: true,
	ax.RoleToolbar:  true,
	ax.RoleGroup:    true,
	ax.RoleWindow:   true,
}

// Opera walks strip containers for tab buttons, following navigation
// order near the window, and orders them by the strip.
type Opera struct{ Chromium }

func (Opera) Name() string { return "opera" }

func (Opera) CollectTabs(env Env, host window.Record) []window.Record {
	if isDevTools(host.Title) {
		return nil
	}
	n, ok := hostNode(env, host)
	if !ok {
		return nil
	}
	acc := env.Acc
	var found []ax.Node
	visited := search.NewVisited()
	var visit func(c ax.Node, depth int)
	visit = func(c ax.Node, depth int) {
		if depth >= operaDepth || !visited.Add(c) {
			return
		}
		role := acc.Role(c)
		if role == ax.RoleRadioButton && acc.Subrole(c) == ax.SubroleTabButton {
			found = append(found, c)
			return
		}
		if !operaFollow[role] {
			return
		}
		for _, k := range acc.Children(c) {
			visit(k, depth+1)
		}
		if depth < 3 {
			for _, k := range acc.NavigationOrder(c) {
				visit(k, depth+1)
			}
		}
	}
	visit(n, 0)
	return buildTabs(env, host, operaOrder(acc, n, window.Dedupe(found)), operaTitle)
}

// operaOrder takes the order of the first strip directly under the window
// that lists any of the tabs, by navigation order then children. Without
// one, tabs are sorted by position.
func operaOrder(acc *ax.Accessor, win ax.Node, tabs []ax.Node) []ax.Node {
	want := search.NewVisited()
	for _, t := range tabs {
		want.Add(t)
	}
	pick := func(list []ax.Node) []ax.Node {
		var out []ax.Node
		for _, c := range list {
			if want.Has(c) {
				out = append(out, c)
			}
		}
		return out
	}
	for _, c := range acc.Children(win) {
		switch acc.Role(c) {
		case ax.RoleTabGroup, ax.RoleTabStrip:
		default:
			continue
		}
		if out := pick(acc.NavigationOrder(c)); len(out) > 0 {
			return out
		}
		if out := pick(acc.Children(c)); len(out) > 0 {
			return out
		}
	}
	return window.ByPosition(acc, tabs)
}

func operaTitle(acc *ax.Accessor, n ax.Node) string {
	if t := labelledTitle(acc, n); t != "" {
		return t
	}
	for _, c := range acc.Children(n) {
		switch acc.Role(c) {
		case ax.RoleStaticText, ax.RoleTextField:
			if t := firstNonEmpty(acc.Title(c)); t != "" {
				return t
			}
		}
	}
	return "(Opera Tab)"
}

// labelledTitle reads value, description, then the title element's value
func labelledTitle(acc *ax.Accessor, n ax.Node) string {
	if t := firstNonEmpty(acc.Value(n), acc.Description(n)); t != "" {
		return t
	}
	if label, ok := acc.TitleElement(n); ok {
		return firstNonEmpty(acc.Value(label))
	}
	return ""
}

// OperaGX takes every radio button below a tab group, in tree order
type OperaGX struct{ Chromium }

func (OperaGX) Name() string { return "operagx" }

func (OperaGX) CollectTabs(env Env, host window.Record) []window.Record {
	n, ok := hostNode(env, host)
	if !ok {
		return nil
	}
	acc := env.Acc
	var found []ax.Node
	visited := search.NewVisited()
	var visit func(c ax.Node, inGroup bool)
	visit = func(c ax.Node, inGroup bool) {
		if !visited.Add(c) {
			return
		}
		if acc.Role(c) == ax.RoleTabGroup {
			inGroup = true
		}
		for _, k := range acc.Children(c) {
			if inGroup && acc.Role(k) == ax.RoleRadioButton {
				found = append(found, k)
				continue
			}
			visit(k, inGroup)
		}
	}
	visit(n, false)
	return buildTabs(env, host, window.Dedupe(found), func(acc *ax.Accessor, t ax.Node) string {
		if title := labelledTitle(acc, t); title != "" {
			return title
		}
		return "(untitled)"
	})
}

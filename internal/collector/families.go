package collector

import (
	"strings"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/search"
	"github.com/bryanchriswhite/tabscout/internal/window"
)

// Generic reads the platform tabs attribute and nothing else
type Generic struct{}

func (Generic) Name() string { return string(FamilyGeneric) }

func (Generic) CollectWindows(env Env, app ax.App) []window.Record {
	return collectWindows(env, app, nil)
}

func (Generic) CollectTabs(env Env, host window.Record) []window.Record {
	n, ok := hostNode(env, host)
	if !ok {
		return nil
	}
	tabs := window.Dedupe(env.Acc.Nodes(n, ax.AttrTabs))
	return buildTabs(env, host, tabs, placeholderTitle(window.UntitledTab))
}

// WebKit scans tab groups for tab buttons and falls back to menu titles
type WebKit struct{}

func (WebKit) Name() string { return string(FamilyWebKit) }

func (WebKit) CollectWindows(env Env, app ax.App) []window.Record {
	return collectWindows(env, app, nil)
}

func (WebKit) CollectTabs(env Env, host window.Record) []window.Record {
	n, ok := hostNode(env, host)
	if !ok {
		return nil
	}
	if tabs := webkitTabElements(env.Acc, n); len(tabs) > 0 {
		return buildTabs(env, host, tabs, placeholderTitle(window.UntitledTab))
	}
	return menuTabs(env, host)
}

// webkitTabElements returns the button children of every group below n,
// each group ordered visually.
func webkitTabElements(acc *ax.Accessor, n ax.Node) []ax.Node {
	groups := search.FindMatching(acc, n, search.Role(ax.RoleTabGroup, ax.RoleGroup), search.Options{MaxDepth: 10})
	var out []ax.Node
	for _, g := range groups {
		var buttons []ax.Node
		for _, c := range acc.Children(g) {
			switch acc.Role(c) {
			case ax.RoleRadioButton, ax.RoleButton:
				buttons = append(buttons, c)
			}
		}
		out = append(out, window.OrderTabs(acc, g, buttons)...)
	}
	return window.Dedupe(out)
}

// Chromium finds tab buttons inside tab strips and skips developer tool windows
type Chromium struct{}

func (Chromium) Name() string { return string(FamilyChromium) }

func (Chromium) CollectWindows(env Env, app ax.App) []window.Record {
	return collectWindows(env, app, nil)
}

func (Chromium) CollectTabs(env Env, host window.Record) []window.Record {
	if isDevTools(host.Title) {
		return nil
	}
	n, ok := hostNode(env, host)
	if !ok {
		return nil
	}
	return buildTabs(env, host, chromiumTabElements(env.Acc, n), chromiumTitle)
}

func isDevTools(title string) bool {
	return containsAny(strings.ToLower(title), "devtools", "inspector", "debugger")
}

func chromiumTabElements(acc *ax.Accessor, n ax.Node) []ax.Node {
	isTab := search.And(
		search.Role(ax.RoleRadioButton, ax.RoleTab),
		search.Subrole(ax.SubroleTabButton),
	)
	tabs := search.FindMatching(acc, n, isTab, search.Options{MaxDepth: 20, PruneMatches: true})
	if len(tabs) == 0 {
		return nil
	}
	strip, _ := acc.Parent(tabs[0])
	return window.OrderTabs(acc, strip, tabs)
}

func chromiumTitle(acc *ax.Accessor, n ax.Node) string {
	if t := firstNonEmpty(acc.Title(n), acc.Value(n), acc.Description(n)); t != "" {
		return t
	}
	if label, ok := acc.TitleElement(n); ok {
		if t := firstNonEmpty(acc.Value(label)); t != "" {
			return t
		}
	}
	return window.ResolveTitle(acc, n, window.UntitledTab)
}

// JetBrains scans children, navigation order and visible children for
// labelled radio buttons, skipping editor content.
type JetBrains struct{}

func (JetBrains) Name() string { return string(FamilyJetBrains) }

func (JetBrains) CollectWindows(env Env, app ax.App) []window.Record {
	return collectWindows(env, app, nil)
}

func (JetBrains) CollectTabs(env Env, host window.Record) []window.Record {
	n, ok := hostNode(env, host)
	if !ok {
		return nil
	}
	acc := env.Acc
	ignore := map[string]bool{
		ax.RoleScrollBar:  true,
		ax.RoleTextArea:   true,
		ax.RoleRuler:      true,
		ax.RoleStaticText: true,
	}
	opts := search.Options{
		MaxDepth:   25,
		ChildAttrs: []string{ax.AttrChildren, ax.AttrNavigationOrder, ax.AttrVisibleChildren},
	}
	var found []ax.Node
	search.Walk(acc, n, opts, func(c ax.Node, _ int) bool {
		role := acc.Role(c)
		if ignore[role] {
			return false
		}
		desc := strings.ToLower(acc.Description(c))
		if strings.Contains(desc, "editor") || strings.Contains(desc, "code") {
			return false
		}
		if role == ax.RoleRadioButton && (acc.Title(c) != "" || desc != "") {
			found = append(found, c)
		}
		return true
	})
	return buildTabs(env, host, found, jetbrainsTitle)
}

func jetbrainsTitle(acc *ax.Accessor, n ax.Node) string {
	if t := firstNonEmpty(acc.Title(n), acc.Value(n)); t != "" {
		return t
	}
	for _, c := range acc.Children(n) {
		switch acc.Role(c) {
		case ax.RoleStaticText, ax.RoleTextField:
			if t := firstNonEmpty(acc.Value(c)); t != "" {
				return t
			}
		}
	}
	return window.ResolveTitle(acc, n, "(untitled)")
}

// Terminal finds session tabs: radio buttons and tab-subrole buttons
type Terminal struct{}

func (Terminal) Name() string { return string(FamilyTerminal) }

func (Terminal) CollectWindows(env Env, app ax.App) []window.Record {
	return collectWindows(env, app, nil)
}

func (Terminal) CollectTabs(env Env, host window.Record) []window.Record {
	n, ok := hostNode(env, host)
	if !ok {
		return nil
	}
	isTab := search.Or(
		search.Role(ax.RoleRadioButton),
		search.And(search.Role(ax.RoleButton), search.Subrole(ax.SubroleTabButton)),
	)
	tabs := search.FindMatching(env.Acc, n, isTab, search.Options{MaxDepth: 15, PruneMatches: true})
	return buildTabs(env, host, tabs, terminalTitle)
}

func terminalTitle(acc *ax.Accessor, n ax.Node) string {
	if t := firstNonEmpty(acc.Title(n), acc.Description(n)); t != "" {
		return t
	}
	return window.ResolveTitle(acc, n, "(unnamed session)")
}

// Shell handles file managers and system utilities: tab containers are
// groups identified or described as tabs, or holding radio buttons.
type Shell struct {
	// Placeholder names untitled tabs
	Placeholder string
}

func (Shell) Name() string { return string(FamilyShell) }

func (Shell) CollectWindows(env Env, app ax.App) []window.Record {
	return collectWindows(env, app, func(title string) bool {
		return strings.Contains(title, "dialog")
	})
}

func (s Shell) CollectTabs(env Env, host window.Record) []window.Record {
	n, ok := hostNode(env, host)
	if !ok {
		return nil
	}
	placeholder := s.Placeholder
	if placeholder == "" {
		placeholder = window.UntitledTab
	}
	acc := env.Acc

	var candidates []ax.Node
	for _, container := range shellTabContainers(acc, n) {
		for _, c := range acc.Children(container) {
			switch acc.Role(c) {
			case ax.RoleRadioButton, ax.RoleGroup:
				candidates = append(candidates, c)
			case ax.RoleButton:
				if acc.HasAttribute(c, ax.AttrValue) {
					candidates = append(candidates, c)
				}
			}
		}
	}
	tabs := buildTabs(env, host, window.Dedupe(candidates), func(acc *ax.Accessor, c ax.Node) string {
		t := window.ResolveTitle(acc, c, placeholder)
		if t == "+" {
			return ""
		}
		return t
	})
	if len(tabs) > 0 {
		return tabs
	}
	return menuTabs(env, host)
}

func shellTabContainers(acc *ax.Accessor, n ax.Node) []ax.Node {
	isContainer := func(acc *ax.Accessor, c ax.Node) bool {
		switch acc.Role(c) {
		case ax.RoleTabGroup, ax.RoleGroup:
		default:
			return false
		}
		id := strings.ToLower(acc.Identifier(c))
		desc := strings.ToLower(acc.Description(c))
		if strings.Contains(id, "tab") || strings.Contains(desc, "tab") {
			return true
		}
		for _, k := range acc.Children(c) {
			if acc.Role(k) == ax.RoleRadioButton {
				return true
			}
		}
		return false
	}
	return search.FindMatching(acc, n, isContainer, search.Options{MaxDepth: 10, PruneMatches: true})
}

package collector

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/search"
	"github.com/bryanchriswhite/tabscout/internal/window"
)

// Safari identifies tab buttons by their "tabbartab" identifier
type Safari struct{ WebKit }

func (Safari) Name() string { return "safari" }

func (Safari) CollectTabs(env Env, host window.Record) []window.Record {
	n, ok := hostNode(env, host)
	if !ok {
		return nil
	}
	isTab := search.And(search.Role(ax.RoleRadioButton), search.IdentifierContains("tabbartab"))
	opts := search.Options{
		MaxDepth:     10,
		FollowRoles:  []string{ax.RoleWindow, ax.RoleGroup, ax.RoleTabGroup, ax.RoleRadioButton},
		PruneMatches: true,
	}
	tabs := search.FindMatching(env.Acc, n, isTab, opts)
	if len(tabs) > 0 {
		return buildTabs(env, host, tabs, placeholderTitle("(Safari Tab)"))
	}
	return menuTabs(env, host)
}

var (
	onlyPunct  = regexp.MustCompile(`^[\p{P}\p{S}\p{Z}]+$`)
	wordlike   = regexp.MustCompile(`[\p{L}\p{N}]`)
	firefoxDir = []string{ax.RoleWindow, ax.RoleGroup, ax.RoleToolbar, ax.RoleTabGroup}
)

// Firefox recognizes tabs by their text content rather than their role
type Firefox struct{ Chromium }

func (Firefox) Name() string { return "firefox" }

func (Firefox) CollectTabs(env Env, host window.Record) []window.Record {
	n, ok := hostNode(env, host)
	if !ok {
		return nil
	}
	acc := env.Acc
	opts := search.Options{
		MaxDepth:    15,
		FollowRoles: firefoxDir,
		ChildAttrs:  []string{ax.AttrChildren, ax.AttrNavigationOrder, ax.AttrVisibleChildren},
	}
	isTab := func(acc *ax.Accessor, c ax.Node) bool {
		return acc.Role(c) == ax.RoleRadioButton && hasTabLikeContent(acc, c)
	}
	tabs := search.FindMatching(acc, n, isTab, opts)
	return buildTabs(env, host, window.OrderTabs(acc, nil, tabs), firefoxTitle)
}

func hasTabLikeContent(acc *ax.Accessor, n ax.Node) bool {
	for _, c := range acc.Children(n) {
		if acc.Role(c) != ax.RoleStaticText {
			continue
		}
		v := acc.Value(c)
		if utf8.RuneCountInString(v) > 2 && !isGenericTabLabel(acc, v, n) {
			return true
		}
	}
	return false
}

// isGenericTabLabel rejects text that cannot name a document: too short,
// punctuation only or without any letter or digit. A tab carrying a URL or
// a labelled title element is never generic.
func isGenericTabLabel(acc *ax.Accessor, text string, n ax.Node) bool {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < 3 {
		return true
	}
	if acc.URL(n) != "" {
		return false
	}
	if label, ok := acc.TitleElement(n); ok && acc.Value(label) != "" {
		return false
	}
	if onlyPunct.MatchString(trimmed) {
		return true
	}
	return !wordlike.MatchString(trimmed)
}

func firefoxTitle(acc *ax.Accessor, n ax.Node) string {
	if t := firstNonEmpty(acc.Title(n)); t != "" {
		return t
	}
	if v := acc.Value(n); v != "" && !isGenericTabLabel(acc, v, n) {
		return v
	}
	for _, c := range acc.Children(n) {
		if acc.Role(c) != ax.RoleStaticText {
			continue
		}
		if v := acc.Value(c); v != "" && !isGenericTabLabel(acc, v, n) {
			return v
		}
	}
	return ""
}

// Arc tries the tab-group scan, drops sidebar space switchers, then menus
type Arc struct{ WebKit }

func (Arc) Name() string { return "arc" }

func (Arc) CollectTabs(env Env, host window.Record) []window.Record {
	n, ok := hostNode(env, host)
	if !ok {
		return nil
	}
	title := placeholderTitle("(Arc Tab)")
	var tabs []ax.Node
	for _, c := range webkitTabElements(env.Acc, n) {
		if !strings.Contains(strings.ToLower(title(env.Acc, c)), "space") {
			tabs = append(tabs, c)
		}
	}
	if len(tabs) > 0 {
		return buildTabs(env, host, tabs, title)
	}
	return menuTabs(env, host)
}

var sourceSuffixes = []string{".swift", ".m", ".h", ".cpp", ".c", ".go", ".rs", ".py"}

// Xcode skips alert windows and reads editor tabs left to right
type Xcode struct{ WebKit }

func (Xcode) Name() string { return "xcode" }

func (Xcode) CollectWindows(env Env, app ax.App) []window.Record {
	return collectWindows(env, app, func(title string) bool {
		return title == "" || strings.Contains(title, "alert")
	})
}

func (Xcode) CollectTabs(env Env, host window.Record) []window.Record {
	n, ok := hostNode(env, host)
	if !ok {
		return nil
	}
	acc := env.Acc
	isTab := search.Or(
		search.Role(ax.RoleRadioButton),
		search.And(search.Role(ax.RoleButton), search.Subrole(ax.SubroleTabButton)),
	)
	var tabs []ax.Node
	for _, c := range search.FindMatching(acc, n, isTab, search.Options{MaxDepth: 25, PruneMatches: true}) {
		f := acc.Frame(c)
		if f.Width > 10 && f.Height > 10 && acc.Title(c) != "" {
			tabs = append(tabs, c)
		}
	}
	sort.SliceStable(tabs, func(i, j int) bool { return acc.Frame(tabs[i]).X < acc.Frame(tabs[j]).X })
	return buildTabs(env, host, tabs, xcodeTitle)
}

func xcodeTitle(acc *ax.Accessor, n ax.Node) string {
	if t := firstNonEmpty(acc.Title(n)); t != "" {
		return t
	}
	for _, c := range acc.Children(n) {
		v := acc.Value(c)
		for _, s := range sourceSuffixes {
			if strings.HasSuffix(v, s) {
				return v
			}
		}
		if t := firstNonEmpty(acc.Title(c)); t != "" {
			return t
		}
	}
	return window.ResolveTitle(acc, n, "(Xcode Tab)")
}

// Finder is the shell strategy with Finder naming
type Finder struct{}

func (Finder) Name() string { return "finder" }

func (Finder) CollectWindows(env Env, app ax.App) []window.Record {
	return Shell{}.CollectWindows(env, app)
}

func (Finder) CollectTabs(env Env, host window.Record) []window.Record {
	return Shell{Placeholder: "(Finder Tab)"}.CollectTabs(env, host)
}

var vivaldiBlocked = []string{"toolbar", "address", "buttonbar", "panel", "status", "sidebar", "bookmark"}

// Vivaldi locates tab strips by their developer identifiers
type Vivaldi struct{ Chromium }

func (Vivaldi) Name() string { return "vivaldi" }

func (v Vivaldi) CollectTabs(env Env, host window.Record) []window.Record {
	if isDevTools(host.Title) {
		return nil
	}
	n, ok := hostNode(env, host)
	if !ok {
		return nil
	}
	acc := env.Acc
	var tabs []ax.Node
	var visit func(c ax.Node, depth int, inStrip bool)
	visited := search.NewVisited()
	visit = func(c ax.Node, depth int, inStrip bool) {
		if depth >= 14 || !visited.Add(c) {
			return
		}
		role := acc.Role(c)
		id := strings.ToLower(acc.Identifier(c))
		if containsAny(id, vivaldiBlocked...) {
			return
		}
		if role == ax.RoleGroup && containsAny(id, "tab", "strip") {
			inStrip = true
		}
		if inStrip && depth > 0 {
			switch role {
			case ax.RoleButton, ax.RoleRadioButton, ax.RoleGroup:
				if firstNonEmpty(acc.Title(c), acc.Description(c)) != "" {
					tabs = append(tabs, c)
				}
			}
		}
		for _, k := range acc.Children(c) {
			visit(k, depth+1, inStrip)
		}
	}
	visit(n, 0, false)
	if len(tabs) == 0 {
		return v.Chromium.CollectTabs(env, host)
	}
	return buildTabs(env, host, tabs, chromiumTitle)
}

// CotEditor reports only windows that host document tabs, plus standalone
// windows whose title is not already one of those tabs.
type CotEditor struct{}

func (CotEditor) Name() string { return "coteditor" }

func (CotEditor) CollectWindows(env Env, app ax.App) []window.Record {
	root, ok := env.Acc.Application(app.PID)
	if !ok {
		return nil
	}
	acc := env.Acc
	now := env.Time()
	placer := env.Placement()

	tabTitles := make(map[string]bool)
	seenHosts := make(map[string]bool)
	var hosts, standalone []window.Record
	var standaloneTitles []string

	for _, w := range acc.Windows(root) {
		if !isTopLevel(acc, w) {
			continue
		}
		buttons := cotTabButtons(acc, w)
		if len(buttons) == 0 {
			r := window.FromNode(acc, w, app, now)
			r.Place(placer)
			standalone = append(standalone, r)
			standaloneTitles = append(standaloneTitles, strings.TrimSpace(acc.Title(w)))
			continue
		}
		hostTitle := firstNonEmpty(acc.Title(w), acc.Title(buttons[0]), "(untitled)")
		for _, b := range buttons {
			tabTitles[strings.TrimSpace(acc.Title(b))] = true
		}
		if seenHosts[hostTitle] {
			continue
		}
		seenHosts[hostTitle] = true
		r := window.FromNode(acc, w, app, now)
		r.Place(placer)
		hosts = append(hosts, r)
	}

	out := hosts
	for i, r := range standalone {
		title := standaloneTitles[i]
		if title == "" || tabTitles[title] {
			continue
		}
		out = append(out, r)
	}
	return uniqueRecords(out)
}

func (CotEditor) CollectTabs(env Env, host window.Record) []window.Record {
	n, ok := hostNode(env, host)
	if !ok {
		return nil
	}
	return buildTabs(env, host, cotTabButtons(env.Acc, n), func(acc *ax.Accessor, c ax.Node) string {
		return acc.Title(c)
	})
}

func cotTabButtons(acc *ax.Accessor, w ax.Node) []ax.Node {
	var out []ax.Node
	for _, g := range search.FindMatching(acc, w, search.Role(ax.RoleTabGroup), search.Options{MaxDepth: 10}) {
		for _, b := range acc.Children(g) {
			if acc.Role(b) == ax.RoleRadioButton && strings.TrimSpace(acc.Title(b)) != "" {
				out = append(out, b)
			}
		}
	}
	return window.Dedupe(out)
}

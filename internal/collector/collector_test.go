package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/ax/axtest"
	"github.com/bryanchriswhite/tabscout/internal/window"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newEnv(p *axtest.Platform) Env {
	return Env{Acc: ax.NewAccessor(p), Now: func() time.Time { return fixedNow }}
}

func tabTitles(recs []window.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Title)
	}
	return out
}

func menuBar(menus ...*axtest.Element) *axtest.Element {
	return axtest.New(ax.RoleMenuBar, "", menus...)
}

func menu(title string, items ...string) *axtest.Element {
	m := axtest.New(ax.RoleMenu, "")
	for _, it := range items {
		m.Add(axtest.New(ax.RoleMenuItem, it))
	}
	return axtest.New(ax.RoleMenuBarItem, title, m)
}

func TestClassify(t *testing.T) {
	tests := map[string]Family{
		"com.apple.Safari":            FamilyWebKit,
		"org.gnome.Epiphany":          FamilyWebKit,
		"com.kagi.kagimacOS":          FamilyWebKit,
		"com.google.Chrome":           FamilyChromium,
		"com.brave.Browser":           FamilyChromium,
		"com.operasoftware.Opera":     FamilyChromium,
		"com.microsoft.edgemac":       FamilyChromium,
		"vivaldi-stable":              FamilyChromium,
		"com.jetbrains.intellij":      FamilyJetBrains,
		"jetbrains-idea":              FamilyJetBrains,
		"com.apple.Terminal":          FamilyTerminal,
		"org.gnome.Terminal":          FamilyTerminal,
		"com.googlecode.iterm2":       FamilyTerminal,
		"com.apple.finder":            FamilyShell,
		"org.gnome.Nautilus":          FamilyShell,
		"com.apple.systempreferences": FamilyShell,
		"org.example.notes":           FamilyGeneric,
		"":                            FamilyGeneric,
	}
	for id, want := range tests {
		assert.Equal(t, want, Classify(id), id)
	}
}

func TestRegistryResolutionOrder(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, "safari", r.Resolve("com.apple.safari").Name())
	assert.Equal(t, "firefox", r.Resolve("org.mozilla.firefox").Name())
	assert.Equal(t, "vivaldi", r.Resolve("com.vivaldi.Vivaldi").Name())
	assert.Equal(t, "orion", r.Resolve("com.kagi.kagimacOS").Name())
	assert.Equal(t, "opera", r.Resolve("com.operasoftware.Opera").Name())
	assert.Equal(t, "operagx", r.Resolve("com.operasoftware.OperaGX").Name())
	assert.Equal(t, "brave", r.Resolve("com.brave.Browser").Name())
	assert.Equal(t, "edge", r.Resolve("com.microsoft.edgemac").Name())
	assert.Equal(t, string(FamilyWebKit), r.Resolve("com.apple.mail").Name())
	assert.Equal(t, string(FamilyChromium), r.Resolve("com.google.Chrome").Name())
	assert.Equal(t, string(FamilyJetBrains), r.Resolve("com.jetbrains.goland").Name())
	assert.Equal(t, string(FamilyTerminal), r.Resolve("com.apple.Terminal").Name())
	assert.Equal(t, string(FamilyShell), r.Resolve("org.gnome.Nautilus").Name())
	assert.Equal(t, string(FamilyGeneric), r.Resolve("org.example.notes").Name())

	r.Register(func() Strategy { return Terminal{} }, "org.example.notes")
	assert.Equal(t, string(FamilyTerminal), r.Resolve("ORG.EXAMPLE.NOTES").Name())

	r.RegisterFamily(FamilyChromium, func() Strategy { return Generic{} })
	assert.Equal(t, string(FamilyGeneric), r.Resolve("com.google.Chrome").Name())
}

func TestCollectWindowsFiltersNonStandard(t *testing.T) {
	p := axtest.NewPlatform()
	dialog := axtest.Window("Save?")
	dialog.Subrole = ax.SubroleDialog
	sheet := axtest.New(ax.RoleSheet, "sheet")
	p.AddApp(ax.App{PID: 10, ID: "org.example.notes", Name: "Notes"},
		axtest.Window("Doc One — Notes"), dialog, sheet, axtest.Window("Doc Two"))
	env := newEnv(p)

	recs := DefaultRegistry().CollectWindows(env, "org.example.notes")
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"Doc One", "Doc Two"}, tabTitles(recs))
	for _, r := range recs {
		assert.Equal(t, window.TypeWindow, r.Type)
		assert.Equal(t, 10, r.PID)
		assert.Equal(t, fixedNow, r.LastUpdate)
	}
}

func TestCollectWindowsIsIdempotent(t *testing.T) {
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 10, ID: "org.example.notes", Name: "Notes"}, axtest.Window("A"), axtest.Window("B"))
	env := newEnv(p)
	r := DefaultRegistry()

	first := r.CollectWindows(env, "org.example.notes")
	second := r.CollectWindows(env, "org.example.notes")
	require.Len(t, first, 2)
	require.Len(t, second, 2)
	for i := range first {
		assert.NotEmpty(t, first[i].StableID)
		assert.Equal(t, first[i].StableID, second[i].StableID)
	}
	assert.NotEqual(t, first[0].StableID, first[1].StableID)
}

func TestCollectWindowsAppliesRealWindowFilter(t *testing.T) {
	p := axtest.NewPlatform()
	tiny := axtest.Window("tiny").At(0, 0, 4, 4)
	p.AddApp(ax.App{PID: 10, ID: "org.example.notes", Name: "Notes"}, axtest.Window("big"), tiny)
	env := newEnv(p)
	env.Filter = &window.Filter{MinSize: 10}

	recs := DefaultRegistry().CollectWindows(env, "org.example.notes")
	assert.Equal(t, []string{"big"}, tabTitles(recs))
}

func TestMissingApplicationYieldsEmpty(t *testing.T) {
	env := newEnv(axtest.NewPlatform())
	r := DefaultRegistry()

	assert.Empty(t, r.CollectWindows(env, "com.apple.Safari"))
	assert.Empty(t, r.CollectTabs(env, window.Record{Type: window.TypeWindow, PID: 99, AppID: "com.apple.Safari", NodeKey: "gone"}))
	assert.Empty(t, r.CollectTabs(env, window.Record{Type: window.TypeTab}))
}

func TestGenericReadsTabsAttribute(t *testing.T) {
	a, b := axtest.Tab("first"), axtest.Tab("")
	win := axtest.Window("Editor", a, b)
	win.Set(ax.AttrTabs, []*axtest.Element{a, b, a})
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 11, ID: "org.example.editor"}, win)
	env := newEnv(p)
	r := DefaultRegistry()

	hosts := r.CollectWindows(env, "org.example.editor")
	require.Len(t, hosts, 1)
	tabs := r.CollectTabs(env, hosts[0])
	assert.Equal(t, []string{"first", window.UntitledTab}, tabTitles(tabs))
	for i, tab := range tabs {
		assert.Equal(t, hosts[0].StableID, tab.ParentTabHostID)
		require.NotNil(t, tab.TabIndex)
		assert.Equal(t, i, *tab.TabIndex)
	}
}

func TestSafariTabBarTabs(t *testing.T) {
	t1 := axtest.Tab("Apple")
	t1.Identifier = "TabBarTab"
	t2 := axtest.Tab("")
	t2.Identifier = "TabBarTab"
	t2.Help = "Readme"
	other := axtest.Tab("Bookmarks")
	strip := axtest.New(ax.RoleTabGroup, "", t1, t2, other)
	toolbar := axtest.New(ax.RoleToolbar, "", func() *axtest.Element {
		hidden := axtest.Tab("in toolbar")
		hidden.Identifier = "tabbartab"
		return hidden
	}())
	win := axtest.Window("Apple — Safari", axtest.New(ax.RoleGroup, "", strip), toolbar)
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 12, ID: "com.apple.Safari", Name: "Safari"}, win)
	env := newEnv(p)
	r := DefaultRegistry()

	host := r.CollectWindows(env, "com.apple.Safari")[0]
	assert.Equal(t, "Apple", host.Title)
	tabs := r.CollectTabs(env, host)
	assert.Equal(t, []string{"Apple", "Readme"}, tabTitles(tabs))
}

func TestSafariFallsBackToWindowMenu(t *testing.T) {
	win := axtest.Window("Start Page")
	p := axtest.NewPlatform()
	root := p.AddApp(ax.App{PID: 13, ID: "com.apple.Safari", Name: "Safari"}, win)
	root.Set(ax.AttrMenuBar, menuBar(
		menu("File", "New Window", "Open File…"),
		menu("Window", "Minimize", "Zoom", "• Bullet", "Start Page", "Docs", "Docs", "Move Tab to New Window", "Show All Tabs..."),
	))
	p.Relink(13)
	env := newEnv(p)
	r := DefaultRegistry()

	host := r.CollectWindows(env, "com.apple.Safari")[0]
	tabs := r.CollectTabs(env, host)
	assert.Equal(t, []string{"Minimize", "Zoom", "Start Page", "Docs"}, tabTitles(tabs))
	for _, tab := range tabs {
		assert.Equal(t, host.Frame, tab.Frame)
		assert.NotEmpty(t, tab.NodeKey)
	}
	assert.NotEqual(t, tabs[0].StableID, tabs[1].StableID)
}

func TestMenuTabItemsWithoutWindowMenuScansAll(t *testing.T) {
	p := axtest.NewPlatform()
	root := p.AddApp(ax.App{PID: 14, ID: "org.example.app"}, axtest.Window("w"))
	root.Set(ax.AttrMenuBar, menuBar(
		menu("File", "Report.pdf", "Preferences"),
		menu("Go", "Home", "Report.pdf", "Tool Palette"),
	))
	acc := ax.NewAccessor(p)

	items := MenuTabItems(acc, root)
	var got []string
	for _, it := range items {
		got = append(got, it.Title)
	}
	assert.Equal(t, []string{"Report.pdf", "Home"}, got)
}

func TestChromiumTabs(t *testing.T) {
	mk := func(value string, x float64) *axtest.Element {
		e := axtest.Tab("")
		e.Value = value
		return e.At(x, 0, 100, 30)
	}
	strip := axtest.New(ax.RoleTabGroup, "", mk("Second", 200), mk("First", 100))
	win := axtest.Window("Inbox - Google Chrome", axtest.New(ax.RoleGroup, "", strip))
	devtools := axtest.Window("DevTools - localhost", axtest.New(ax.RoleTabGroup, "", mk("Elements", 0)))
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 15, ID: "com.google.Chrome", Name: "Google Chrome"}, win, devtools)
	env := newEnv(p)
	r := DefaultRegistry()

	hosts := r.CollectWindows(env, "com.google.Chrome")
	require.Len(t, hosts, 2)
	assert.Equal(t, []string{"First", "Second"}, tabTitles(r.CollectTabs(env, hosts[0])))
	assert.Empty(t, r.CollectTabs(env, hosts[1]))
}

func TestJetBrainsSkipsEditorContent(t *testing.T) {
	tabA := axtest.Tab("main.go")
	tabB := axtest.New(ax.RoleRadioButton, "")
	tabB.Description = "README.md"
	editor := axtest.New(ax.RoleGroup, "")
	editor.Description = "Editor for main.go"
	editor.Add(axtest.Tab("inside editor"))
	nav := axtest.New(ax.RoleGroup, "")
	nav.NavOrder = []*axtest.Element{tabB}
	win := axtest.Window("project", axtest.New(ax.RoleGroup, "", tabA), nav, editor,
		axtest.New(ax.RoleScrollBar, "", axtest.Tab("scroll")))
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 16, ID: "com.jetbrains.goland", Name: "GoLand"}, win)
	env := newEnv(p)
	r := DefaultRegistry()

	host := r.CollectWindows(env, "com.jetbrains.goland")[0]
	assert.Equal(t, []string{"main.go", "README.md"}, tabTitles(r.CollectTabs(env, host)))
}

func TestTerminalSessions(t *testing.T) {
	btn := axtest.New(ax.RoleButton, "")
	btn.Subrole = ax.SubroleTabButton
	btn.Add(axtest.New(ax.RoleStaticText, "zsh"))
	win := axtest.Window("Terminal",
		axtest.New(ax.RoleTabGroup, "", axtest.Tab("bash"), btn, axtest.New(ax.RoleButton, "close")))
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 17, ID: "com.apple.Terminal", Name: "Terminal"}, win)
	env := newEnv(p)
	r := DefaultRegistry()

	host := r.CollectWindows(env, "com.apple.Terminal")[0]
	assert.Equal(t, []string{"bash", "zsh"}, tabTitles(r.CollectTabs(env, host)))
}

func TestFinderTabsSkipPlusButton(t *testing.T) {
	plus := axtest.New(ax.RoleButton, "+")
	plus.Value = "+"
	docs := axtest.New(ax.RoleRadioButton, "Documents")
	noValue := axtest.New(ax.RoleButton, "Share")
	bar := axtest.New(ax.RoleGroup, "", docs, axtest.New(ax.RoleRadioButton, "Downloads"), plus, noValue)
	bar.Identifier = "TabBar"
	win := axtest.Window("Documents", bar)
	dialog := axtest.Window("Copy Dialog")
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 18, ID: "com.apple.finder", Name: "Finder"}, win, dialog)
	env := newEnv(p)
	r := DefaultRegistry()

	hosts := r.CollectWindows(env, "com.apple.finder")
	require.Len(t, hosts, 1)
	assert.Equal(t, []string{"Documents", "Downloads"}, tabTitles(r.CollectTabs(env, hosts[0])))
}

func TestFirefoxRejectsGenericLabels(t *testing.T) {
	tab := func(text string, x float64) *axtest.Element {
		e := axtest.New(ax.RoleRadioButton, "")
		st := axtest.New(ax.RoleStaticText, "")
		st.Value = text
		e.Add(st)
		return e.At(x, 0, 100, 20)
	}
	strip := axtest.New(ax.RoleTabGroup, "", tab("Mozilla", 300), tab("×", 0), tab("---", 50), tab("Docs", 100))
	win := axtest.Window("Mozilla Firefox", axtest.New(ax.RoleToolbar, "", strip))
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 19, ID: "org.mozilla.firefox", Name: "Firefox"}, win)
	env := newEnv(p)
	r := DefaultRegistry()

	host := r.CollectWindows(env, "org.mozilla.firefox")[0]
	assert.Equal(t, []string{"Docs", "Mozilla"}, tabTitles(r.CollectTabs(env, host)))
}

func TestArcDropsSpaceButtons(t *testing.T) {
	group := axtest.New(ax.RoleGroup, "",
		axtest.New(ax.RoleButton, "Personal Space"),
		axtest.New(ax.RoleButton, "News"),
	)
	win := axtest.Window("Arc", group)
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 20, ID: "company.thebrowser.Browser", Name: "Arc"}, win)
	env := newEnv(p)
	r := DefaultRegistry()

	host := r.CollectWindows(env, "company.thebrowser.Browser")[0]
	assert.Equal(t, []string{"News"}, tabTitles(r.CollectTabs(env, host)))
}

func TestXcodeOrdersByXAndSkipsAlerts(t *testing.T) {
	b := axtest.New(ax.RoleRadioButton, "B.swift").At(300, 0, 80, 20)
	a := axtest.New(ax.RoleRadioButton, "A.swift").At(100, 0, 80, 20)
	tiny := axtest.New(ax.RoleRadioButton, "tiny").At(0, 0, 5, 5)
	win := axtest.Window("Project", axtest.New(ax.RoleGroup, "", b, a, tiny))
	alert := axtest.Window("Build Alert")
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 21, ID: "com.apple.dt.Xcode", Name: "Xcode"}, win, alert)
	env := newEnv(p)
	r := DefaultRegistry()

	hosts := r.CollectWindows(env, "com.apple.dt.Xcode")
	require.Len(t, hosts, 1)
	assert.Equal(t, []string{"A.swift", "B.swift"}, tabTitles(r.CollectTabs(env, hosts[0])))
}

func TestVivaldiTabStrip(t *testing.T) {
	strip := axtest.New(ax.RoleGroup, "", axtest.New(ax.RoleButton, "Start Page"), axtest.New(ax.RoleButton, "Mail"))
	strip.Identifier = "tab-strip"
	toolbar := axtest.New(ax.RoleGroup, "", axtest.New(ax.RoleButton, "Back"))
	toolbar.Identifier = "toolbar-tabs"
	win := axtest.Window("Vivaldi", strip, toolbar)
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 22, ID: "com.vivaldi.Vivaldi", Name: "Vivaldi"}, win)
	env := newEnv(p)
	r := DefaultRegistry()

	host := r.CollectWindows(env, "com.vivaldi.Vivaldi")[0]
	assert.Equal(t, []string{"Start Page", "Mail"}, tabTitles(r.CollectTabs(env, host)))
}

func TestCotEditorSuppressesTabWindows(t *testing.T) {
	host := axtest.Window("notes.txt", axtest.New(ax.RoleTabGroup, "",
		axtest.New(ax.RoleRadioButton, "notes.txt"),
		axtest.New(ax.RoleRadioButton, "todo.md"),
	))
	dupHost := axtest.Window("notes.txt", axtest.New(ax.RoleTabGroup, "",
		axtest.New(ax.RoleRadioButton, "notes.txt"),
	))
	shadow := axtest.Window("todo.md")
	solo := axtest.Window("scratch.txt")
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 23, ID: "com.coteditor.CotEditor", Name: "CotEditor"}, host, dupHost, shadow, solo)
	env := newEnv(p)
	r := DefaultRegistry()

	wins := r.CollectWindows(env, "com.coteditor.CotEditor")
	assert.Equal(t, []string{"notes.txt", "scratch.txt"}, tabTitles(wins))
	assert.Equal(t, []string{"notes.txt", "todo.md"}, tabTitles(r.CollectTabs(env, wins[0])))
	assert.Empty(t, r.CollectTabs(env, wins[1]))
}

func TestCollectTabsOnStaleHost(t *testing.T) {
	win := axtest.Window("w", axtest.Tab("t"))
	win.Set(ax.AttrTabs, []*axtest.Element{win.Children[0]})
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 24, ID: "org.example.app"}, win)
	env := newEnv(p)
	r := DefaultRegistry()

	host := r.CollectWindows(env, "org.example.app")[0]
	win.Stale = true
	assert.Empty(t, r.CollectTabs(env, host))
}

func TestOrionNamesButtonsByTitleThenDescription(t *testing.T) {
	described := axtest.New(ax.RoleButton, "").At(200, 0, 100, 20)
	described.Description = "Kagi Search"
	group := axtest.New(ax.RoleTabGroup, "",
		described,
		axtest.New(ax.RoleRadioButton, "Start").At(0, 0, 100, 20),
		axtest.New(ax.RoleButton, "").At(400, 0, 100, 20),
	)
	win := axtest.Window("Orion", group)
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 25, ID: "com.kagi.kagimacOS", Name: "Orion"}, win)
	env := newEnv(p)
	r := DefaultRegistry()

	host := r.CollectWindows(env, "com.kagi.kagimacOS")[0]
	assert.Equal(t, []string{"Start", "Kagi Search", "(Orion Tab)"}, tabTitles(r.CollectTabs(env, host)))
}

func TestOrionFallsBackToWindowMenu(t *testing.T) {
	p := axtest.NewPlatform()
	root := p.AddApp(ax.App{PID: 26, ID: "com.kagi.kagimacOS", Name: "Orion"}, axtest.Window("Orion"))
	root.Set(ax.AttrMenuBar, menuBar(menu("Window", "Minimize", "Kagi", "Docs")))
	p.Relink(26)
	env := newEnv(p)
	r := DefaultRegistry()

	host := r.CollectWindows(env, "com.kagi.kagimacOS")[0]
	assert.Equal(t, []string{"Minimize", "Kagi", "Docs"}, tabTitles(r.CollectTabs(env, host)))
}

func TestOperaFollowsStripNavigationOrder(t *testing.T) {
	alpha := axtest.Tab("")
	alpha.Value = "Alpha"
	beta := axtest.Tab("")
	beta.Description = "Beta"
	gamma := axtest.Tab("").Add(axtest.New(ax.RoleStaticText, "Gamma"))
	strip := axtest.New(ax.RoleTabStrip, "", alpha, beta, gamma)
	strip.NavOrder = []*axtest.Element{gamma, alpha, beta}
	page := axtest.New(ax.RoleWebArea, "", axtest.Tab("inside page"))
	win := axtest.Window("Opera", strip, page)
	devtools := axtest.Window("DevTools - opera", axtest.New(ax.RoleTabStrip, "", axtest.Tab("Console")))
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 27, ID: "com.operasoftware.Opera", Name: "Opera"}, win, devtools)
	env := newEnv(p)
	r := DefaultRegistry()

	hosts := r.CollectWindows(env, "com.operasoftware.Opera")
	require.Len(t, hosts, 2)
	tabs := r.CollectTabs(env, hosts[0])
	assert.Equal(t, []string{"Gamma", "Alpha", "Beta"}, tabTitles(tabs))
	for i, tab := range tabs {
		require.NotNil(t, tab.TabIndex)
		assert.Equal(t, i, *tab.TabIndex)
	}
	assert.Empty(t, r.CollectTabs(env, hosts[1]))
}

func TestOperaReachesTabsThroughNavigationOrderOnly(t *testing.T) {
	hidden := axtest.Tab("").At(300, 0, 100, 20)
	hidden.Value = "Hidden"
	shown := axtest.Tab("").At(100, 0, 100, 20)
	shown.Value = "Shown"
	bar := axtest.New(ax.RoleToolbar, "", shown)
	bar.NavOrder = []*axtest.Element{shown, hidden}
	win := axtest.Window("Opera", axtest.New(ax.RoleGroup, "", bar))
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 28, ID: "com.operasoftware.Opera", Name: "Opera"}, win)
	env := newEnv(p)
	r := DefaultRegistry()

	host := r.CollectWindows(env, "com.operasoftware.Opera")[0]
	assert.Equal(t, []string{"Shown", "Hidden"}, tabTitles(r.CollectTabs(env, host)))
}

func TestOperaGXReadsRadioButtonsInsideTabGroups(t *testing.T) {
	label := axtest.New(ax.RoleStaticText, "")
	label.Value = "Mail"
	labelled := axtest.New(ax.RoleRadioButton, "").Set(ax.AttrTitleUIElement, label)
	news := axtest.New(ax.RoleRadioButton, "")
	news.Value = "News"
	group := axtest.New(ax.RoleTabGroup, "", news, axtest.New(ax.RoleGroup, "", labelled),
		axtest.New(ax.RoleRadioButton, ""))
	outside := axtest.New(ax.RoleGroup, "", axtest.New(ax.RoleRadioButton, "Not a tab"))
	win := axtest.Window("Opera GX", outside, group)
	p := axtest.NewPlatform()
	p.AddApp(ax.App{PID: 29, ID: "com.operasoftware.OperaGX", Name: "Opera GX"}, win)
	env := newEnv(p)
	r := DefaultRegistry()

	host := r.CollectWindows(env, "com.operasoftware.OperaGX")[0]
	assert.Equal(t, []string{"News", "Mail", "(untitled)"}, tabTitles(r.CollectTabs(env, host)))
}

func TestBraveAndEdgePreferTabTitles(t *testing.T) {
	for _, tc := range []struct {
		appID, placeholder string
	}{
		{"com.brave.Browser", "(Brave Tab)"},
		{"com.microsoft.edgemac", "(Edge Tab)"},
	} {
		t.Run(tc.appID, func(t *testing.T) {
			titled := axtest.Tab("Search").At(0, 0, 100, 30)
			titled.Value = "https://search.example"
			valued := axtest.Tab("").At(100, 0, 100, 30)
			valued.Value = "Docs"
			blank := axtest.Tab("").At(200, 0, 100, 30)
			win := axtest.Window("Browser", axtest.New(ax.RoleTabGroup, "", titled, valued, blank))
			p := axtest.NewPlatform()
			p.AddApp(ax.App{PID: 30, ID: tc.appID}, win)
			env := newEnv(p)
			r := DefaultRegistry()

			host := r.CollectWindows(env, tc.appID)[0]
			assert.Equal(t, []string{"Search", "Docs", tc.placeholder}, tabTitles(r.CollectTabs(env, host)))
		})
	}
}

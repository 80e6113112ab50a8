package collector

import (
	"strings"
	"sync"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/logger"
	"github.com/bryanchriswhite/tabscout/internal/window"
)

// Family groups applications that share a UI-tree shape
type Family string

const (
	FamilyGeneric   Family = "generic"
	FamilyWebKit    Family = "webkit"
	FamilyChromium  Family = "chromium"
	FamilyJetBrains Family = "jetbrains"
	FamilyTerminal  Family = "terminal"
	FamilyShell     Family = "shell"
)

var (
	webkitIDs = []string{
		"com.apple.safari",
		"com.apple.safaritechnologypreview",
		"com.apple.mail",
		"com.apple.webkit",
		"org.gnome.epiphany",
		"com.kagi.kagimacos",
	}
	chromiumWords = []string{"chrome", "chromium", "brave", "opera", "vivaldi", "edge"}
	terminalWords = []string{
		"terminal", "iterm", "kitty", "alacritty", "wezterm",
		"konsole", "tilix", "ghostty", "xterm", "warp",
	}
	shellIDs = []string{
		"com.apple.finder",
		"com.apple.systemsettings",
		"com.apple.systempreferences",
		"com.apple.preference",
		"com.apple.activitymonitor",
		"com.apple.console",
		"org.gnome.nautilus",
		"org.kde.dolphin",
		"nemo",
		"thunar",
	}
)

// Classify maps an application identifier onto its family
func Classify(appID string) Family {
	id := strings.ToLower(appID)
	switch {
	case id == "":
		return FamilyGeneric
	case contains(webkitIDs, id) || strings.Contains(id, "webkit") || strings.Contains(id, "epiphany"):
		return FamilyWebKit
	case containsAny(id, chromiumWords...):
		return FamilyChromium
	case strings.HasPrefix(id, "com.jetbrains.") || strings.HasPrefix(id, "org.jetbrains.") ||
		strings.HasPrefix(id, "jetbrains-"):
		return FamilyJetBrains
	case containsAny(id, terminalWords...):
		return FamilyTerminal
	case hasAnyPrefix(id, shellIDs...):
		return FamilyShell
	}
	return FamilyGeneric
}

// Factory builds a strategy. It is invoked on every resolution.
type Factory func() Strategy

// Registry resolves application identifiers to strategies
type Registry struct {
	mu       sync.RWMutex
	exact    map[string]Factory
	families map[Family]Factory
	fallback Factory
}

// NewRegistry returns a registry holding only the family bases and the
// generic fallback.
func NewRegistry() *Registry {
	return &Registry{
		exact: make(map[string]Factory),
		families: map[Family]Factory{
			FamilyWebKit:    func() Strategy { return WebKit{} },
			FamilyChromium:  func() Strategy { return Chromium{} },
			FamilyJetBrains: func() Strategy { return JetBrains{} },
			FamilyTerminal:  func() Strategy { return Terminal{} },
			FamilyShell:     func() Strategy { return Shell{} },
		},
		fallback: func() Strategy { return Generic{} },
	}
}

// DefaultRegistry returns a registry with every built-in application strategy
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(func() Strategy { return Safari{} }, "com.apple.Safari", "com.apple.SafariTechnologyPreview")
	r.Register(func() Strategy { return Firefox{} }, "org.mozilla.firefox", "firefox", "org.mozilla.firefoxdeveloperedition")
	r.Register(func() Strategy { return Arc{} }, "company.thebrowser.Browser")
	r.Register(func() Strategy { return Xcode{} }, "com.apple.dt.Xcode")
	r.Register(func() Strategy { return Finder{} }, "com.apple.finder")
	r.Register(func() Strategy { return Vivaldi{} }, "com.vivaldi.Vivaldi", "vivaldi-stable")
	r.Register(func() Strategy { return CotEditor{} }, "com.coteditor.CotEditor")
	r.Register(func() Strategy { return Orion{} }, "com.kagi.kagimacOS")
	r.Register(func() Strategy { return Opera{} }, "com.operasoftware.Opera", "opera")
	r.Register(func() Strategy { return OperaGX{} }, "com.operasoftware.OperaGX")
	r.Register(func() Strategy { return TitledChromium{Label: "brave", Placeholder: "(Brave Tab)"} },
		"com.brave.Browser", "brave-browser")
	r.Register(func() Strategy { return TitledChromium{Label: "edge", Placeholder: "(Edge Tab)"} },
		"com.microsoft.edgemac", "microsoft-edge")
	return r
}

// Register binds application identifiers (case-insensitive) to a factory
func (r *Registry) Register(f Factory, appIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range appIDs {
		r.exact[strings.ToLower(id)] = f
	}
}

// RegisterFamily replaces the base strategy of a family
func (r *Registry) RegisterFamily(fam Family, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.families[fam] = f
}

// Resolve returns a fresh strategy for appID: exact match, then family,
// then the generic default.
func (r *Registry) Resolve(appID string) Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.exact[strings.ToLower(appID)]; ok {
		return f()
	}
	if f, ok := r.families[Classify(appID)]; ok {
		return f()
	}
	return r.fallback()
}

// CollectWindows collects the windows of every running instance of appID
func (r *Registry) CollectWindows(env Env, appID string) []window.Record {
	apps := env.Acc.FindApplication(appID)
	if len(apps) == 0 {
		logger.WithComponent("collector").Debug().Str("app", appID).Msg("application not running")
		return nil
	}
	s := r.Resolve(appID)
	var out []window.Record
	for _, app := range apps {
		out = append(out, r.CollectApp(env, s, app)...)
	}
	return out
}

// CollectApp runs s against one running instance
func (r *Registry) CollectApp(env Env, s Strategy, app ax.App) []window.Record {
	recs := s.CollectWindows(env, app)
	logger.WithComponent("collector").Debug().
		Str("app", app.ID).
		Int("pid", app.PID).
		Str("strategy", s.Name()).
		Int("windows", len(recs)).
		Msg("collected windows")
	return recs
}

// CollectTabs collects the tabs hosted by a window record
func (r *Registry) CollectTabs(env Env, host window.Record) []window.Record {
	if host.Type != window.TypeWindow {
		return nil
	}
	s := r.Resolve(host.AppID)
	tabs := s.CollectTabs(env, host)
	logger.WithComponent("collector").Debug().
		Str("window", host.StableID).
		Str("strategy", s.Name()).
		Int("tabs", len(tabs)).
		Msg("collected tabs")
	return tabs
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

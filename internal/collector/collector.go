// Package collector turns the UI trees of running applications into
// window and tab records.
//
// Every application is handled by a Strategy chosen by the Registry: an
// exact identifier match first, then the application's family, then the
// generic strategy. Strategies are stateless; a missing application, an
// empty tree or a tree without tabs all yield an empty result.
package collector

import (
	"strings"
	"time"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/logger"
	"github.com/bryanchriswhite/tabscout/internal/window"
)

// Strategy collects windows and tabs for one application or family
type Strategy interface {
	Name() string
	// CollectWindows enumerates the top-level windows of one running instance
	CollectWindows(env Env, app ax.App) []window.Record
	// CollectTabs enumerates the tabs hosted by one window record
	CollectTabs(env Env, host window.Record) []window.Record
}

// Env carries the collaborators a strategy reads through
type Env struct {
	Acc *ax.Accessor
	// Placer assigns screens and stacking positions; nil means NoPlacement
	Placer window.Placer
	// Filter, when set, drops windows IsRealWindow rejects
	Filter *window.Filter
	// Now defaults to time.Now
	Now func() time.Time
}

// Time returns the current time through Now
func (e Env) Time() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Placement returns Placer, or NoPlacement when unset
func (e Env) Placement() window.Placer {
	if e.Placer != nil {
		return e.Placer
	}
	return window.NoPlacement{}
}

// hostNode resolves the live element behind a window record
func hostNode(env Env, host window.Record) (ax.Node, bool) {
	if host.Type != window.TypeWindow || host.NodeKey == "" {
		return nil, false
	}
	n, ok := env.Acc.Resolve(host.PID, host.NodeKey)
	if !ok {
		logger.WithComponent("collector").Debug().
			Str("window", host.StableID).
			Msg("host window no longer resolvable")
	}
	return n, ok
}

func isTopLevel(acc *ax.Accessor, n ax.Node) bool {
	role, subrole := acc.Role(n), acc.Subrole(n)
	if role != ax.RoleWindow && subrole != ax.SubroleStandardWindow {
		return false
	}
	switch subrole {
	case ax.SubroleDialog, ax.SubroleSystemDialog, ax.SubroleSheet:
		return false
	}
	return true
}

// collectWindows is the shared window enumeration. skip receives the
// lower-cased raw title and may reject a window.
func collectWindows(env Env, app ax.App, skip func(title string) bool) []window.Record {
	root, ok := env.Acc.Application(app.PID)
	if !ok {
		return nil
	}
	now := env.Time()
	placer := env.Placement()

	var out []window.Record
	for _, n := range env.Acc.Windows(root) {
		if !isTopLevel(env.Acc, n) {
			continue
		}
		if skip != nil && skip(strings.ToLower(env.Acc.Title(n))) {
			continue
		}
		if env.Filter != nil && !env.Filter.IsRealWindow(env.Acc, n, app) {
			continue
		}
		r := window.FromNode(env.Acc, n, app, now)
		r.Place(placer)
		out = append(out, r)
	}
	return uniqueRecords(out)
}

// Window normalizes one window element of app with the checks
// CollectWindows applies. It serves windows reported after discovery.
func Window(env Env, app ax.App, n ax.Node) (window.Record, bool) {
	if !isTopLevel(env.Acc, n) {
		return window.Record{}, false
	}
	if env.Filter != nil && !env.Filter.IsRealWindow(env.Acc, n, app) {
		return window.Record{}, false
	}
	r := window.FromNode(env.Acc, n, app, env.Time())
	r.Place(env.Placement())
	return r, true
}

// titleFunc resolves the text of one tab element; "" drops the element.
type titleFunc func(acc *ax.Accessor, n ax.Node) string

// buildTabs turns ordered tab elements into records under host
func buildTabs(env Env, host window.Record, nodes []ax.Node, title titleFunc) []window.Record {
	now := env.Time()
	out := make([]window.Record, 0, len(nodes))
	for _, n := range nodes {
		t := title(env.Acc, n)
		if strings.TrimSpace(t) == "" {
			continue
		}
		out = append(out, window.NewTab(env.Acc, n, host, len(out), t, now))
	}
	return uniqueRecords(out)
}

// placeholderTitle resolves through the standard fallback chain
func placeholderTitle(placeholder string) titleFunc {
	return func(acc *ax.Accessor, n ax.Node) string {
		return window.ResolveTitle(acc, n, placeholder)
	}
}

// uniqueRecords keeps the first record per stable ID
func uniqueRecords(in []window.Record) []window.Record {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, r := range in {
		if seen[r.StableID] {
			continue
		}
		seen[r.StableID] = true
		out = append(out, r)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

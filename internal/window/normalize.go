package window

import (
	"strings"
	"time"

	"github.com/bryanchriswhite/tabscout/internal/ax"
)

// FromNode builds a window record for n, owned by app. The stable ID is
// derived from the process id and the element key, so collecting the
// same unchanged window twice yields the same ID.
func FromNode(acc *ax.Accessor, n ax.Node, app ax.App, now time.Time) Record {
	pid := app.PID
	if pid <= 0 {
		pid = acc.PID(n)
	}
	frame := acc.Frame(n)
	role := acc.Role(n)
	if role == "" {
		role = ax.RoleWindow
	}

	r := Record{
		PID:            pid,
		AppID:          app.ID,
		AppName:        appDisplayName(app),
		Title:          CleanTitle(windowTitle(acc, n), app.ID),
		Frame:          frame,
		LastKnownFrame: frame,
		Role:           role,
		Subrole:        acc.Subrole(n),
		Flags: Flags{
			Visible:    acc.IsVisible(n),
			Minimized:  acc.IsMinimized(n),
			Fullscreen: acc.IsFullscreen(n),
			Focused:    acc.IsFocused(n),
		},
		Type:       TypeWindow,
		NodeKey:    n.Key(),
		LastUpdate: now,
	}
	EnsureStableID(&r, "", "")
	return r
}

// NewTab builds a tab record under host. title is used as given; callers
// resolve it with ResolveTitle or take it from a menu item. n may be nil
// when the tab has no element of its own.
func NewTab(acc *ax.Accessor, n ax.Node, host Record, index int, title string, now time.Time) Record {
	idx := index
	r := Record{
		PID:             host.PID,
		AppID:           host.AppID,
		AppName:         host.AppName,
		Title:           CleanTitle(title, host.AppID),
		Role:            ax.RoleTab,
		Screen:          host.Screen,
		Type:            TypeTab,
		ParentTabHostID: host.StableID,
		TabIndex:        &idx,
		Flags: Flags{
			Visible:   host.Flags.Visible,
			Minimized: host.Flags.Minimized,
		},
		LastUpdate: now,
	}
	var identifier string
	if n != nil {
		if role := acc.Role(n); role != "" {
			r.Role = role
		}
		r.Subrole = acc.Subrole(n)
		r.Frame = acc.Frame(n)
		r.LastKnownFrame = r.Frame
		r.NodeKey = n.Key()
		identifier = acc.Identifier(n)
	}
	EnsureStableID(&r, host.NodeKey, identifier)
	return r
}

// Refresh re-reads the mutable fields of r from its live node
func Refresh(acc *ax.Accessor, n ax.Node, r Record, now time.Time) Record {
	r.Frame = acc.Frame(n)
	r.LastKnownFrame = r.Frame
	if r.Type == TypeWindow {
		r.Title = CleanTitle(windowTitle(acc, n), r.AppID)
		r.Flags.Visible = acc.IsVisible(n)
		r.Flags.Minimized = acc.IsMinimized(n)
		r.Flags.Fullscreen = acc.IsFullscreen(n)
	}
	r.LastUpdate = now
	return r
}

// CurrentTitle re-reads the cleaned title of the element n behind r
func CurrentTitle(acc *ax.Accessor, n ax.Node, r Record) string {
	if r.Type == TypeTab {
		return CleanTitle(ResolveTitle(acc, n, UntitledTab), r.AppID)
	}
	return CleanTitle(windowTitle(acc, n), r.AppID)
}

// Filter tunes IsRealWindow
type Filter struct {
	MinSize float64
}

// IsRealWindow reports whether n is a user-facing top-level window worth
// tracking: titled, at least MinSize on both axes, a standard window (not
// a dialog or sheet), owned by a regular application and either visible
// or minimized.
func (f Filter) IsRealWindow(acc *ax.Accessor, n ax.Node, app ax.App) bool {
	if strings.TrimSpace(windowTitle(acc, n)) == "" {
		return false
	}
	frame := acc.Frame(n)
	if frame.Width < f.MinSize || frame.Height < f.MinSize {
		return false
	}
	role, subrole := acc.Role(n), acc.Subrole(n)
	if role != ax.RoleWindow && subrole != ax.SubroleStandardWindow {
		return false
	}
	switch subrole {
	case ax.SubroleDialog, ax.SubroleSystemDialog, ax.SubroleSheet:
		return false
	}
	if strings.Contains(app.Name, "Agent") || strings.Contains(app.Name, "Service") {
		return false
	}
	return acc.IsVisible(n) || acc.IsMinimized(n)
}

func windowTitle(acc *ax.Accessor, n ax.Node) string {
	if t := strings.TrimSpace(acc.Title(n)); t != "" {
		return t
	}
	if label, ok := acc.TitleElement(n); ok {
		if t := strings.TrimSpace(acc.Value(label)); t != "" {
			return t
		}
		return strings.TrimSpace(acc.Title(label))
	}
	return ""
}

func appDisplayName(app ax.App) string {
	if app.Name != "" {
		return app.Name
	}
	return AppName(app.ID)
}

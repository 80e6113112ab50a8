package window

import (
	"time"

	"github.com/bryanchriswhite/tabscout/internal/ax"
)

// Type distinguishes top-level windows from tabs
type Type string

const (
	TypeWindow Type = "window"
	TypeTab    Type = "tab"
)

// Flags are the mutable state bits of a record
type Flags struct {
	Visible    bool `json:"visible"`
	Minimized  bool `json:"minimized"`
	Fullscreen bool `json:"fullscreen"`
	Focused    bool `json:"focused"`
}

// Record is the normalized description of one window or tab.
// StableID, PID, AppID, Type and ParentTabHostID never change once the
// record is in the cache.
type Record struct {
	StableID        string    `json:"id"`
	PID             int       `json:"pid"`
	AppID           string    `json:"app_id"`
	AppName         string    `json:"app_name"`
	Title           string    `json:"title"`
	Frame           ax.Rect   `json:"frame"`
	LastKnownFrame  ax.Rect   `json:"last_known_frame"`
	Role            string    `json:"role"`
	Subrole         string    `json:"subrole,omitempty"`
	Screen          int       `json:"screen"`
	ZIndex          int       `json:"z_index"`
	Flags           Flags     `json:"flags"`
	Type            Type      `json:"type"`
	ParentTabHostID string    `json:"parent_id,omitempty"`
	TabIndex        *int      `json:"tab_index,omitempty"`
	NodeKey         string    `json:"node_key,omitempty"`
	LastUpdate      time.Time `json:"last_update"`
}

// IsTab reports whether the record is a tab
func (r Record) IsTab() bool { return r.Type == TypeTab }

// Clone returns a deep copy
func (r Record) Clone() Record {
	if r.TabIndex != nil {
		idx := *r.TabIndex
		r.TabIndex = &idx
	}
	return r
}

// WithIdentityOf copies the immutable fields of o onto r
func (r Record) WithIdentityOf(o Record) Record {
	r.StableID = o.StableID
	r.PID = o.PID
	r.AppID = o.AppID
	r.Type = o.Type
	r.ParentTabHostID = o.ParentTabHostID
	return r
}

// Placer associates frames with screens and stacking positions
type Placer interface {
	// ScreenFor returns the index of the screen containing most of frame
	ScreenFor(frame ax.Rect) int
	// StackIndex returns the stacking position of the window of pid at frame,
	// higher values being closer to the top
	StackIndex(pid int, frame ax.Rect) int
}

// NoPlacement places everything on screen 0 at the bottom of the stack
type NoPlacement struct{}

func (NoPlacement) ScreenFor(ax.Rect) int       { return 0 }
func (NoPlacement) StackIndex(int, ax.Rect) int { return 0 }

// Place refreshes the screen association and stacking position
func (r *Record) Place(p Placer) {
	if p == nil {
		return
	}
	r.Screen = p.ScreenFor(r.Frame)
	if r.Type == TypeWindow {
		r.ZIndex = p.StackIndex(r.PID, r.Frame)
	}
}

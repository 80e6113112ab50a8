// Package display answers the questions about the desktop that the UI tree
// cannot: which screen a frame is on, where a window sits in the stacking
// order and whether a pointer button is held down.
package display

import (
	"math"

	"github.com/bryanchriswhite/tabscout/internal/ax"
)

// Screen is one monitor in desktop coordinates
type Screen struct {
	Index  int     `json:"index"`
	Bounds ax.Rect `json:"bounds"`
}

// StackEntry is one client window in the stacking order
type StackEntry struct {
	PID   int
	Frame ax.Rect
}

// frameTolerance is how far apart a UI-tree frame and a window manager
// frame may be while still naming the same window; decorations account
// for the difference
const frameTolerance = 40

// ScreenIndex returns the index of the screen holding the largest part of
// frame. A frame on no screen belongs to the screen nearest its center.
func ScreenIndex(screens []Screen, frame ax.Rect) int {
	if len(screens) == 0 {
		return 0
	}
	best, bestArea := -1, 0.0
	for _, s := range screens {
		if a := s.Bounds.Intersection(frame).Area(); a > bestArea {
			best, bestArea = s.Index, a
		}
	}
	if best >= 0 {
		return best
	}

	cx, cy := frame.X+frame.Width/2, frame.Y+frame.Height/2
	best, bestDist := screens[0].Index, math.Inf(1)
	for _, s := range screens {
		sx, sy := s.Bounds.X+s.Bounds.Width/2, s.Bounds.Y+s.Bounds.Height/2
		if d := math.Hypot(cx-sx, cy-sy); d < bestDist {
			best, bestDist = s.Index, d
		}
	}
	return best
}

// StackPosition returns the 1-based position of the window of pid at frame
// in stack (bottom to top). The topmost window of pid whose frame is near
// frame wins; failing that, the topmost window of pid. 0 means unknown.
func StackPosition(stack []StackEntry, pid int, frame ax.Rect) int {
	fallback := 0
	for i := len(stack) - 1; i >= 0; i-- {
		e := stack[i]
		if e.PID != pid {
			continue
		}
		if e.Frame.Near(frame, frameTolerance) {
			return i + 1
		}
		if fallback == 0 {
			fallback = i + 1
		}
	}
	return fallback
}

// Headless serves placement without a display server: fixed screens, no
// stacking information and never a held button.
type Headless struct {
	Screens []Screen
}

func (h Headless) ScreenFor(frame ax.Rect) int { return ScreenIndex(h.Screens, frame) }

func (Headless) StackIndex(int, ax.Rect) int { return 0 }

func (Headless) ButtonsHeld() bool { return false }

// Bounds returns the bounds of screen i
func (h Headless) Bounds(i int) (ax.Rect, bool) {
	return boundsOf(h.Screens, i)
}

func boundsOf(screens []Screen, i int) (ax.Rect, bool) {
	for _, s := range screens {
		if s.Index == i {
			return s.Bounds, true
		}
	}
	return ax.Rect{}, false
}

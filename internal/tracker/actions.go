package tracker

import (
	"fmt"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/window"
)

// Action names a window action
type Action string

const (
	ActionFocus    Action = "focus"
	ActionRaise    Action = "raise"
	ActionMinimize Action = "minimize"
	ActionRestore  Action = "restore"
	ActionMaximize Action = "maximize"
	ActionClose    Action = "close"
	ActionSelect   Action = "select"
)

// ParseAction validates an action name
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionFocus, ActionRaise, ActionMinimize, ActionRestore, ActionMaximize, ActionClose, ActionSelect:
		return a, true
	}
	return "", false
}

// target resolves the cached record id to its live element
func (m *Manager) target(id string) (window.Record, ax.Node, error) {
	if !m.Running() {
		return window.Record{}, nil, ErrNotRunning
	}
	rec, ok := m.cache.Get(id)
	if !ok {
		return window.Record{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.NodeKey == "" {
		return rec, nil, fmt.Errorf("%w: %s has no element", ErrUnsupported, id)
	}
	n, ok := m.acc.Resolve(rec.PID, rec.NodeKey)
	if !ok {
		m.log.Debug().Str("id", id).Msg("Element gone, evicting record")
		m.write(func() { m.cache.Remove(id) })
		return rec, nil, fmt.Errorf("%w: %s", ErrStale, id)
	}
	return rec, n, nil
}

// Perform runs a window or tab action and returns the updated record.
// Close returns the record as it was before removal.
func (m *Manager) Perform(id string, action Action) (window.Record, error) {
	rec, n, err := m.target(id)
	if err != nil {
		return window.Record{}, err
	}

	if action == ActionSelect {
		if !rec.IsTab() {
			return window.Record{}, fmt.Errorf("%w: select on a window", ErrUnsupported)
		}
		if !m.acc.Perform(n, ax.ActionPress) {
			return window.Record{}, fmt.Errorf("%w: select %s", ErrActionFailed, id)
		}
		return m.touch(id, n)
	}
	if rec.IsTab() {
		return window.Record{}, fmt.Errorf("%w: %s on a tab", ErrUnsupported, action)
	}

	switch action {
	case ActionFocus:
		raised := m.acc.Perform(n, ax.ActionRaise)
		focused := m.acc.Set(n, ax.AttrFocused, true)
		if !raised && !focused {
			return window.Record{}, fmt.Errorf("%w: focus %s", ErrActionFailed, id)
		}
		m.write(func() { m.cache.SetFocused(id) })
		return m.touch(id, n)

	case ActionRaise:
		if !m.acc.Perform(n, ax.ActionRaise) {
			return window.Record{}, fmt.Errorf("%w: raise %s", ErrActionFailed, id)
		}
		return m.touch(id, n)

	case ActionMinimize, ActionRestore:
		minimize := action == ActionMinimize
		if !m.acc.Set(n, ax.AttrMinimized, minimize) {
			return window.Record{}, fmt.Errorf("%w: %s %s", ErrActionFailed, action, id)
		}
		return m.update(id, func(r *window.Record) {
			r.Flags.Minimized = minimize
			r.Flags.Visible = !minimize
			if minimize {
				r.Flags.Focused = false
			}
		})

	case ActionMaximize:
		return m.maximize(rec, n)

	case ActionClose:
		if !m.acc.Perform(n, ax.ActionClose) {
			return window.Record{}, fmt.Errorf("%w: close %s", ErrActionFailed, id)
		}
		m.write(func() { m.cache.Remove(id) })
		return rec, nil
	}
	return window.Record{}, fmt.Errorf("%w: %q", ErrUnsupported, action)
}

// maximize zooms the window, or fills its screen when the platform cannot
// zoom
func (m *Manager) maximize(rec window.Record, n ax.Node) (window.Record, error) {
	if m.acc.Perform(n, ax.ActionZoom) {
		return m.touch(rec.StableID, n)
	}
	if m.screens == nil {
		return window.Record{}, fmt.Errorf("%w: maximize without screen information", ErrUnsupported)
	}
	bounds, ok := m.screens.Bounds(rec.Screen)
	if !ok {
		return window.Record{}, fmt.Errorf("%w: unknown screen %d", ErrActionFailed, rec.Screen)
	}
	return m.setFrame(rec.StableID, n, bounds)
}

// Move places the window's top-left corner at (x, y)
func (m *Manager) Move(id string, x, y float64) (window.Record, error) {
	rec, n, err := m.target(id)
	if err != nil {
		return window.Record{}, err
	}
	frame := rec.Frame
	frame.X, frame.Y = x, y
	if !m.acc.Set(n, ax.AttrPosition, frame.Origin()) {
		return window.Record{}, fmt.Errorf("%w: move %s", ErrActionFailed, id)
	}
	return m.settle(id, n, frame)
}

// Resize sets the window's size
func (m *Manager) Resize(id string, width, height float64) (window.Record, error) {
	if width <= 0 || height <= 0 {
		return window.Record{}, fmt.Errorf("%w: invalid size %vx%v", ErrActionFailed, width, height)
	}
	rec, n, err := m.target(id)
	if err != nil {
		return window.Record{}, err
	}
	frame := rec.Frame
	frame.Width, frame.Height = width, height
	if !m.acc.Set(n, ax.AttrSize, frame.Size()) {
		return window.Record{}, fmt.Errorf("%w: resize %s", ErrActionFailed, id)
	}
	return m.settle(id, n, frame)
}

// Tabs collects the live tabs of a window, stores them and evicts the
// cached tabs of that window that no longer exist
func (m *Manager) Tabs(id string) ([]window.Record, error) {
	rec, _, err := m.target(id)
	if err != nil {
		return nil, err
	}
	if rec.IsTab() {
		return nil, fmt.Errorf("%w: tabs of a tab", ErrUnsupported)
	}
	tabs := m.reg.CollectTabs(m.env, rec)
	live := make(map[string]bool, len(tabs))
	for i := range tabs {
		m.cache.Admit(&tabs[i])
		live[tabs[i].StableID] = true
	}

	var closed []string
	m.write(func() {
		m.cache.StoreAll(tabs)
		closed = m.cache.RemoveAll(func(r window.Record) bool {
			return r.IsTab() && r.ParentTabHostID == rec.StableID && !live[r.StableID]
		})
	})
	if len(closed) > 0 {
		m.log.Debug().Str("window", id).Strs("closed", closed).Msg("Evicted closed tabs")
	}
	return tabs, nil
}

func (m *Manager) setFrame(id string, n ax.Node, frame ax.Rect) (window.Record, error) {
	if !m.acc.Set(n, ax.AttrPosition, frame.Origin()) || !m.acc.Set(n, ax.AttrSize, frame.Size()) {
		return window.Record{}, fmt.Errorf("%w: set frame of %s", ErrActionFailed, id)
	}
	return m.settle(id, n, frame)
}

// settle stores the frame the element reports after a geometry change,
// falling back to the requested frame
func (m *Manager) settle(id string, n ax.Node, requested ax.Rect) (window.Record, error) {
	frame := m.acc.Frame(n)
	if frame.IsEmpty() {
		frame = requested
	}
	placed, err := m.placed(id, frame)
	if err != nil {
		return window.Record{}, err
	}
	return m.update(id, func(r *window.Record) {
		r.Frame = frame
		r.LastKnownFrame = frame
		r.Screen, r.ZIndex = placed.Screen, placed.ZIndex
	})
}

// placed computes the screen and stacking position of frame for the
// record id without holding the cache lock
func (m *Manager) placed(id string, frame ax.Rect) (window.Record, error) {
	cur, ok := m.cache.Get(id)
	if !ok {
		return window.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cur.Frame = frame
	cur.Place(m.env.Placement())
	return cur, nil
}

// touch re-reads the mutable fields of the record from its element
func (m *Manager) touch(id string, n ax.Node) (window.Record, error) {
	cur, ok := m.cache.Get(id)
	if !ok {
		return window.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fresh := window.Refresh(m.acc, n, cur, m.env.Time())
	if fresh.Frame.IsEmpty() {
		fresh.Frame, fresh.LastKnownFrame = cur.LastKnownFrame, cur.LastKnownFrame
	}
	fresh.Place(m.env.Placement())
	return m.update(id, func(r *window.Record) {
		focused := r.Flags.Focused
		*r = fresh
		r.Flags.Focused = focused
	})
}

func (m *Manager) update(id string, fn func(*window.Record)) (window.Record, error) {
	now := m.env.Time()
	var (
		rec window.Record
		ok  bool
	)
	m.write(func() {
		rec, ok = m.cache.Update(id, func(r *window.Record) {
			fn(r)
			r.LastUpdate = now
		})
	})
	if !ok {
		return window.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

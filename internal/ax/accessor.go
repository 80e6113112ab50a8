package ax

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bryanchriswhite/tabscout/internal/logger"
)

// Accessor is the only way the rest of tabscout reads or writes UI nodes.
// Every read returns a zero value on any failure: a missing attribute, a
// destroyed node, a type mismatch or a panicking backend all look the same
// to callers. The Accessor holds no state of its own and is safe for
// concurrent use when the Platform is.
type Accessor struct {
	p Platform
}

// NewAccessor wraps a platform
func NewAccessor(p Platform) *Accessor {
	return &Accessor{p: p}
}

// Platform returns the wrapped platform
func (a *Accessor) Platform() Platform {
	return a.p
}

// Raw reads an attribute, reporting whether a value was present.
func (a *Accessor) Raw(n Node, attr string) (v any, ok bool) {
	if n == nil || a.p == nil {
		return nil, false
	}
	defer func() {
		if r := recover(); r != nil {
			logger.WithComponent("ax").Debug().
				Str("attr", attr).
				Interface("panic", r).
				Msg("platform panicked reading attribute")
			v, ok = nil, false
		}
	}()
	v, err := a.p.Attribute(n, attr)
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// HasAttribute reports whether attr currently yields a value
func (a *Accessor) HasAttribute(n Node, attr string) bool {
	_, ok := a.Raw(n, attr)
	return ok
}

// String reads a string attribute. Numbers are formatted; anything else is absent.
func (a *Accessor) String(n Node, attr string) string {
	v, ok := a.Raw(n, attr)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case int:
		return strconv.Itoa(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

// Bool reads a boolean attribute
func (a *Accessor) Bool(n Node, attr string) bool {
	v, ok := a.Raw(n, attr)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case int:
		return b != 0
	}
	return false
}

// Int reads an integer attribute
func (a *Accessor) Int(n Node, attr string) (int, bool) {
	v, ok := a.Raw(n, attr)
	if !ok {
		return 0, false
	}
	switch i := v.(type) {
	case int:
		return i, true
	case float64:
		return int(i), true
	}
	return 0, false
}

// NodeAttr reads an attribute that refers to a single node
func (a *Accessor) NodeAttr(n Node, attr string) (Node, bool) {
	v, ok := a.Raw(n, attr)
	if !ok {
		return nil, false
	}
	node, ok := v.(Node)
	if !ok || node == nil {
		return nil, false
	}
	return node, true
}

// Nodes reads an attribute holding an ordered node list. An empty list and
// an unsupported attribute both yield nil.
func (a *Accessor) Nodes(n Node, attr string) []Node {
	v, ok := a.Raw(n, attr)
	if !ok {
		return nil
	}
	nodes, ok := v.([]Node)
	if !ok || len(nodes) == 0 {
		return nil
	}
	out := make([]Node, 0, len(nodes))
	for _, c := range nodes {
		if c != nil {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Role returns the node role or ""
func (a *Accessor) Role(n Node) string { return a.String(n, AttrRole) }

// Subrole returns the node subrole or ""
func (a *Accessor) Subrole(n Node) string { return a.String(n, AttrSubrole) }

// Title returns the title attribute or ""
func (a *Accessor) Title(n Node) string { return a.String(n, AttrTitle) }

// Value returns the value attribute as text or ""
func (a *Accessor) Value(n Node) string { return a.String(n, AttrValue) }

// Description returns the description attribute or ""
func (a *Accessor) Description(n Node) string { return a.String(n, AttrDescription) }

// Help returns the help attribute or ""
func (a *Accessor) Help(n Node) string { return a.String(n, AttrHelp) }

// Identifier returns the developer identifier attribute or ""
func (a *Accessor) Identifier(n Node) string { return a.String(n, AttrIdentifier) }

// URL returns the URL attribute or ""
func (a *Accessor) URL(n Node) string { return a.String(n, AttrURL) }

// Children returns the ordered children, nil when absent or unsupported
func (a *Accessor) Children(n Node) []Node { return a.Nodes(n, AttrChildren) }

// NavigationOrder returns the children in navigation order, nil when absent
func (a *Accessor) NavigationOrder(n Node) []Node { return a.Nodes(n, AttrNavigationOrder) }

// VisibleChildren returns the visible children, nil when absent
func (a *Accessor) VisibleChildren(n Node) []Node { return a.Nodes(n, AttrVisibleChildren) }

// Parent returns the parent node. It is a lookup only; callers never own it.
func (a *Accessor) Parent(n Node) (Node, bool) { return a.NodeAttr(n, AttrParent) }

// Windows returns an application's windows, falling back to its children.
func (a *Accessor) Windows(app Node) []Node {
	if ws := a.Nodes(app, AttrWindows); ws != nil {
		return ws
	}
	return a.Children(app)
}

// MenuBar returns the application's menu bar
func (a *Accessor) MenuBar(n Node) (Node, bool) { return a.NodeAttr(n, AttrMenuBar) }

// TitleElement returns the node labelling n, if any
func (a *Accessor) TitleElement(n Node) (Node, bool) { return a.NodeAttr(n, AttrTitleUIElement) }

// IsFocused reads the focused flag
func (a *Accessor) IsFocused(n Node) bool { return a.Bool(n, AttrFocused) }

// IsMinimized reads the minimized flag
func (a *Accessor) IsMinimized(n Node) bool { return a.Bool(n, AttrMinimized) }

// IsFullscreen reads the fullscreen flag
func (a *Accessor) IsFullscreen(n Node) bool { return a.Bool(n, AttrFullScreen) }

// IsVisible reports a node as visible unless it is hidden or minimized.
// Backends that expose an explicit visibility flag win.
func (a *Accessor) IsVisible(n Node) bool {
	if v, ok := a.Raw(n, AttrVisible); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return !a.Bool(n, AttrHidden) && !a.IsMinimized(n)
}

// Frame returns the node's frame. Missing position or size are zero-filled;
// a negative width or height collapses the whole frame to zero.
func (a *Accessor) Frame(n Node) Rect {
	var r Rect
	if v, ok := a.Raw(n, AttrPosition); ok {
		switch p := v.(type) {
		case Point:
			r.X, r.Y = p.X, p.Y
		case Rect:
			r.X, r.Y = p.X, p.Y
		}
	}
	if v, ok := a.Raw(n, AttrSize); ok {
		switch s := v.(type) {
		case Size:
			r.Width, r.Height = s.Width, s.Height
		case Rect:
			r.Width, r.Height = s.Width, s.Height
		}
	}
	return r.Sanitize()
}

// PID returns the owning process id or 0
func (a *Accessor) PID(n Node) int {
	if n == nil || a.p == nil {
		return 0
	}
	pid, err := a.safe(func() (any, error) { return a.p.PID(n) })
	if err != nil {
		return 0
	}
	if p, ok := pid.(int); ok && p > 0 {
		return p
	}
	return 0
}

// Valid reports whether the node still answers role queries
func (a *Accessor) Valid(n Node) bool {
	return a.Role(n) != ""
}

// Application returns the root node of a running process
func (a *Accessor) Application(pid int) (Node, bool) {
	if pid <= 0 || a.p == nil {
		return nil, false
	}
	v, err := a.safe(func() (any, error) { return a.p.Application(pid) })
	if err != nil {
		return nil, false
	}
	n, ok := v.(Node)
	return n, ok && n != nil
}

// Resolve finds a live node by process and key
func (a *Accessor) Resolve(pid int, key string) (Node, bool) {
	if pid <= 0 || key == "" || a.p == nil {
		return nil, false
	}
	v, err := a.safe(func() (any, error) { return a.p.Resolve(pid, key) })
	if err != nil {
		return nil, false
	}
	n, ok := v.(Node)
	return n, ok && n != nil
}

// Applications lists running applications; failure yields nil
func (a *Accessor) Applications() []App {
	if a.p == nil {
		return nil
	}
	v, err := a.safe(func() (any, error) { return a.p.Applications() })
	if err != nil {
		logger.WithComponent("ax").Debug().Err(err).Msg("application enumeration failed")
		return nil
	}
	apps, _ := v.([]App)
	return apps
}

// FindApplication returns the running instances whose ID matches appID,
// compared case-insensitively.
func (a *Accessor) FindApplication(appID string) []App {
	var found []App
	for _, app := range a.Applications() {
		if strings.EqualFold(app.ID, appID) {
			found = append(found, app)
		}
	}
	return found
}

// Perform runs an action, reporting success. Failure is never fatal.
func (a *Accessor) Perform(n Node, action string) bool {
	if n == nil || a.p == nil {
		return false
	}
	_, err := a.safe(func() (any, error) { return nil, a.p.PerformAction(n, action) })
	if err != nil {
		logger.WithComponent("ax").Debug().Err(err).Str("action", action).Msg("action failed")
		return false
	}
	return true
}

// Set writes an attribute, reporting success
func (a *Accessor) Set(n Node, attr string, value any) bool {
	if n == nil || a.p == nil {
		return false
	}
	_, err := a.safe(func() (any, error) { return nil, a.p.SetAttribute(n, attr, value) })
	if err != nil {
		logger.WithComponent("ax").Debug().Err(err).Str("attr", attr).Msg("set attribute failed")
		return false
	}
	return true
}

func (a *Accessor) safe(fn func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, errors.Join(ErrCannotComplete, errors.New("platform panic"))
		}
	}()
	return fn()
}

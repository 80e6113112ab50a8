// Package axtest provides an in-memory ax.Platform backed by synthetic UI
// trees, for exercising collectors and the pipeline without a desktop.
package axtest

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bryanchriswhite/tabscout/internal/ax"
)

// Element is one synthetic UI node. Zero-valued string fields read as
// absent. Attrs overrides or extends the typed fields; values of type
// *Element and []*Element are converted to ax.Node and []ax.Node.
type Element struct {
	ID          string
	Role        string
	Subrole     string
	Title       string
	Value       string
	Description string
	Help        string
	Identifier  string
	Frame       *ax.Rect
	Children    []*Element
	NavOrder    []*Element
	Attrs       map[string]any
	// Actions restricts the supported actions when non-nil
	Actions []string
	// Stale makes every read fail as if the element was destroyed
	Stale bool
	// Panic makes every read panic inside the platform
	Panic bool

	pid    int
	parent *Element
}

// Key implements ax.Node
func (e *Element) Key() string { return e.ID }

// PID returns the process the element was attached under
func (e *Element) PID() int { return e.pid }

// Parent returns the linked parent, nil for roots
func (e *Element) Parent() *Element { return e.parent }

// Add appends children and returns e for chaining
func (e *Element) Add(children ...*Element) *Element {
	e.Children = append(e.Children, children...)
	return e
}

// Set stores an extra attribute and returns e for chaining
func (e *Element) Set(name string, v any) *Element {
	if e.Attrs == nil {
		e.Attrs = make(map[string]any)
	}
	e.Attrs[name] = v
	return e
}

// At sets the element frame and returns e for chaining
func (e *Element) At(x, y, w, h float64) *Element {
	r := ax.Rect{X: x, Y: y, Width: w, Height: h}
	e.Frame = &r
	return e
}

var nextID atomic.Int64

// New returns an element with a role, a title and a fresh unique ID
func New(role, title string, children ...*Element) *Element {
	id := fmt.Sprintf("n%d", nextID.Add(1))
	return &Element{ID: id, Role: role, Title: title, Children: children}
}

// Window returns a standard window element
func Window(title string, children ...*Element) *Element {
	e := New(ax.RoleWindow, title, children...)
	e.Subrole = ax.SubroleStandardWindow
	return e.At(0, 0, 800, 600)
}

// Tab returns a tab-like radio button element
func Tab(title string) *Element {
	e := New(ax.RoleRadioButton, title)
	e.Subrole = ax.SubroleTabButton
	return e
}

// Call records one mutating platform request
type Call struct {
	Key    string
	Action string
	Attr   string
	Value  any
}

// Platform is an in-memory ax.Platform. It is safe for concurrent use.
type Platform struct {
	mu    sync.RWMutex
	apps  map[int]*Element
	info  map[int]ax.App
	order []int
	calls []Call
	seq   int

	// OnAction, when set, runs after an action is recorded and may mutate the tree.
	OnAction func(e *Element, action string)
	// FailApplications makes Applications return an error
	FailApplications bool
}

// NewPlatform returns an empty platform
func NewPlatform() *Platform {
	return &Platform{
		apps: make(map[int]*Element),
		info: make(map[int]ax.App),
	}
}

// AddApp registers a running application with the given window elements.
// Missing element IDs are assigned, parents are linked and every element
// is stamped with the process id. It returns the application root.
func (p *Platform) AddApp(app ax.App, windows ...*Element) *Element {
	root := &Element{Role: ax.RoleApplication, Title: app.Name, Children: windows}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.link(root, nil, app.PID, make(map[*Element]bool))
	if _, ok := p.apps[app.PID]; !ok {
		p.order = append(p.order, app.PID)
	}
	p.apps[app.PID] = root
	p.info[app.PID] = app
	return root
}

// RemoveApp drops an application and marks its tree stale
func (p *Platform) RemoveApp(pid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	root, ok := p.apps[pid]
	if !ok {
		return
	}
	walk(root, make(map[*Element]bool), func(e *Element) { e.Stale = true })
	delete(p.apps, pid)
	delete(p.info, pid)
	for i, v := range p.order {
		if v == pid {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Relink re-links a subtree that a test mutated after AddApp
func (p *Platform) Relink(pid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if root, ok := p.apps[pid]; ok {
		p.link(root, nil, pid, make(map[*Element]bool))
	}
}

// Calls returns a copy of the recorded mutating requests
func (p *Platform) Calls() []Call {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

// Find returns the first element of pid whose key matches
func (p *Platform) Find(pid int, key string) *Element {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.find(pid, key)
}

func (p *Platform) link(e, parent *Element, pid int, seen map[*Element]bool) {
	if seen[e] {
		return
	}
	seen[e] = true
	if e.ID == "" {
		p.seq++
		e.ID = fmt.Sprintf("e%d", p.seq)
	}
	if e.parent == nil {
		e.parent = parent
	}
	e.pid = pid
	for _, c := range e.Children {
		p.link(c, e, pid, seen)
	}
	for _, c := range e.NavOrder {
		p.link(c, e, pid, seen)
	}
}

func (p *Platform) find(pid int, key string) *Element {
	root, ok := p.apps[pid]
	if !ok {
		return nil
	}
	var found *Element
	walk(root, make(map[*Element]bool), func(e *Element) {
		if found == nil && e.ID == key {
			found = e
		}
	})
	return found
}

func walk(e *Element, seen map[*Element]bool, fn func(*Element)) {
	if e == nil || seen[e] {
		return
	}
	seen[e] = true
	fn(e)
	for _, c := range e.Children {
		walk(c, seen, fn)
	}
	for _, c := range e.NavOrder {
		walk(c, seen, fn)
	}
}

func element(n ax.Node) (*Element, error) {
	e, ok := n.(*Element)
	if !ok || e == nil {
		return nil, ax.ErrInvalidElement
	}
	if e.Panic {
		panic("axtest: element " + e.ID + " panics")
	}
	if e.Stale {
		return nil, ax.ErrInvalidElement
	}
	return e, nil
}

func nodes(es []*Element) []ax.Node {
	out := make([]ax.Node, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

func str(s string) (any, error) {
	if s == "" {
		return nil, ax.ErrNoValue
	}
	return s, nil
}

// Attribute implements ax.Platform
func (p *Platform) Attribute(n ax.Node, name string) (any, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, err := element(n)
	if err != nil {
		return nil, err
	}
	if v, ok := e.Attrs[name]; ok {
		switch t := v.(type) {
		case *Element:
			return t, nil
		case []*Element:
			return nodes(t), nil
		case error:
			return nil, t
		}
		return v, nil
	}

	switch name {
	case ax.AttrRole:
		return str(e.Role)
	case ax.AttrSubrole:
		return str(e.Subrole)
	case ax.AttrTitle:
		return str(e.Title)
	case ax.AttrValue:
		return str(e.Value)
	case ax.AttrDescription:
		return str(e.Description)
	case ax.AttrHelp:
		return str(e.Help)
	case ax.AttrIdentifier:
		return str(e.Identifier)
	case ax.AttrPosition:
		if e.Frame == nil {
			return nil, ax.ErrNoValue
		}
		return e.Frame.Origin(), nil
	case ax.AttrSize:
		if e.Frame == nil {
			return nil, ax.ErrNoValue
		}
		return e.Frame.Size(), nil
	case ax.AttrChildren:
		if e.Children == nil {
			return nil, ax.ErrUnsupported
		}
		return nodes(e.Children), nil
	case ax.AttrNavigationOrder:
		if e.NavOrder == nil {
			return nil, ax.ErrUnsupported
		}
		return nodes(e.NavOrder), nil
	case ax.AttrParent:
		if e.parent == nil {
			return nil, ax.ErrNoValue
		}
		return e.parent, nil
	case ax.AttrWindows:
		if e.Role != ax.RoleApplication {
			return nil, ax.ErrUnsupported
		}
		var ws []*Element
		for _, c := range e.Children {
			if c.Role == ax.RoleWindow && !c.Stale {
				ws = append(ws, c)
			}
		}
		return nodes(ws), nil
	}
	return nil, ax.ErrUnsupported
}

// SetAttribute implements ax.Platform
func (p *Platform) SetAttribute(n ax.Node, name string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, err := element(n)
	if err != nil {
		return err
	}
	p.calls = append(p.calls, Call{Key: e.ID, Attr: name, Value: value})

	switch name {
	case ax.AttrPosition:
		pt, ok := value.(ax.Point)
		if !ok {
			return ax.ErrTypeMismatch
		}
		if e.Frame == nil {
			e.Frame = &ax.Rect{}
		}
		e.Frame.X, e.Frame.Y = pt.X, pt.Y
		return nil
	case ax.AttrSize:
		sz, ok := value.(ax.Size)
		if !ok {
			return ax.ErrTypeMismatch
		}
		if e.Frame == nil {
			e.Frame = &ax.Rect{}
		}
		e.Frame.Width, e.Frame.Height = sz.Width, sz.Height
		return nil
	}
	if e.Attrs == nil {
		e.Attrs = make(map[string]any)
	}
	e.Attrs[name] = value
	return nil
}

// PerformAction implements ax.Platform
func (p *Platform) PerformAction(n ax.Node, action string) error {
	e, err := element(n)
	if err != nil {
		return err
	}
	p.mu.Lock()
	if e.Actions != nil && !contains(e.Actions, action) {
		p.mu.Unlock()
		return ax.ErrUnsupported
	}
	p.calls = append(p.calls, Call{Key: e.ID, Action: action})
	hook := p.OnAction
	p.mu.Unlock()

	if hook != nil {
		hook(e, action)
	}
	return nil
}

// PID implements ax.Platform
func (p *Platform) PID(n ax.Node) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, err := element(n)
	if err != nil {
		return 0, err
	}
	if e.pid == 0 {
		return 0, ax.ErrNoValue
	}
	return e.pid, nil
}

// Application implements ax.Platform
func (p *Platform) Application(pid int) (ax.Node, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	root, ok := p.apps[pid]
	if !ok {
		return nil, ax.ErrNoSuchProcess
	}
	return root, nil
}

// Resolve implements ax.Platform
func (p *Platform) Resolve(pid int, key string) (ax.Node, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.apps[pid]; !ok {
		return nil, ax.ErrNoSuchProcess
	}
	e := p.find(pid, key)
	if e == nil || e.Stale {
		return nil, ax.ErrInvalidElement
	}
	return e, nil
}

// Applications implements ax.Platform
func (p *Platform) Applications() ([]ax.App, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.FailApplications {
		return nil, ax.ErrCannotComplete
	}
	out := make([]ax.App, 0, len(p.order))
	for _, pid := range p.order {
		out = append(out, p.info[pid])
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

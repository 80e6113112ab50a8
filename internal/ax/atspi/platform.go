package atspi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/bryanchriswhite/tabscout/internal/ax"
)

// searchDepth bounds the descendant walks used for tab strips and menu bars
const searchDepth = 6

// maxRoleCache bounds the memoized role names
const maxRoleCache = 8192

var _ ax.Platform = (*Platform)(nil)

func asNode(n ax.Node) (node, error) {
	nd, ok := n.(node)
	if !ok || nd.bus == "" || nd.path == "" {
		return node{}, ax.ErrInvalidElement
	}
	return nd, nil
}

// Attribute reads a named attribute
func (p *Platform) Attribute(n ax.Node, name string) (any, error) {
	nd, err := asNode(n)
	if err != nil {
		return nil, err
	}

	switch name {
	case ax.AttrRole, ax.AttrSubrole:
		rn, err := p.roleName(nd)
		if err != nil {
			return nil, err
		}
		role, subrole := mapRole(rn)
		if name == ax.AttrRole {
			return role, nil
		}
		if subrole == "" {
			return nil, ax.ErrNoValue
		}
		return subrole, nil
	case ax.AttrTitle:
		return p.stringProperty(nd, accessibleInterface+".Name")
	case ax.AttrDescription:
		return p.stringProperty(nd, accessibleInterface+".Description")
	case ax.AttrHelp:
		return p.stringProperty(nd, accessibleInterface+".HelpText")
	case ax.AttrIdentifier:
		if id, err := p.stringProperty(nd, accessibleInterface+".AccessibleId"); err == nil {
			return id, nil
		}
		return p.objectAttribute(nd, "id")
	case ax.AttrURL:
		return p.objectAttribute(nd, "url")
	case ax.AttrValue:
		return p.value(nd)
	case ax.AttrPosition, ax.AttrSize:
		r, err := p.extents(nd)
		if err != nil {
			return nil, err
		}
		if name == ax.AttrPosition {
			return r.Origin(), nil
		}
		return r.Size(), nil
	case ax.AttrChildren:
		return p.children(nd)
	case ax.AttrParent:
		v, err := p.property(nd, accessibleInterface+".Parent")
		if err != nil {
			return nil, err
		}
		r, ok := refFrom(v)
		if !ok {
			return nil, ax.ErrNoValue
		}
		parent, ok := r.node()
		if !ok {
			return nil, ax.ErrNoValue
		}
		return parent, nil
	case ax.AttrWindows:
		return p.windows(nd)
	case ax.AttrTabs:
		return p.tabs(nd)
	case ax.AttrMenuBar:
		bar, ok := p.findRole(nd, "menu bar", searchDepth)
		if !ok {
			return nil, ax.ErrNoValue
		}
		return bar, nil
	case ax.AttrMenu:
		rn, err := p.roleName(nd)
		if err != nil {
			return nil, err
		}
		if !isContainerMenu(rn) {
			return nil, ax.ErrNoValue
		}
		return nd, nil
	case ax.AttrTitleUIElement:
		return p.labelledBy(nd)
	case ax.AttrFocused, ax.AttrMinimized, ax.AttrVisible, ax.AttrSelected:
		st, err := p.states(nd)
		if err != nil {
			return nil, err
		}
		switch name {
		case ax.AttrFocused:
			return st.has(stateActive) || st.has(stateFocused), nil
		case ax.AttrMinimized:
			return st.has(stateIconified), nil
		case ax.AttrVisible:
			return st.has(stateVisible) && st.has(stateShowing) && !st.has(stateIconified), nil
		default:
			return st.has(stateSelected), nil
		}
	}
	return nil, ax.ErrUnsupported
}

// SetAttribute writes position, size or keyboard focus
func (p *Platform) SetAttribute(n ax.Node, name string, value any) error {
	nd, err := asNode(n)
	if err != nil {
		return err
	}

	var ok bool
	switch name {
	case ax.AttrPosition:
		pt, isPoint := value.(ax.Point)
		if !isPoint {
			return ax.ErrTypeMismatch
		}
		err = p.call(nd, componentInterface+".SetPosition", &ok, int32(pt.X), int32(pt.Y), coordTypeScreen)
	case ax.AttrSize:
		sz, isSize := value.(ax.Size)
		if !isSize {
			return ax.ErrTypeMismatch
		}
		err = p.call(nd, componentInterface+".SetSize", &ok, int32(sz.Width), int32(sz.Height))
	case ax.AttrFocused:
		if b, isBool := value.(bool); !isBool || !b {
			return ax.ErrUnsupported
		}
		err = p.call(nd, componentInterface+".GrabFocus", &ok)
	default:
		return ax.ErrUnsupported
	}
	if err != nil {
		return err
	}
	if !ok {
		return ax.ErrCannotComplete
	}
	return nil
}

// PerformAction maps ax actions onto the element's named AT-SPI actions
func (p *Platform) PerformAction(n ax.Node, action string) error {
	nd, err := asNode(n)
	if err != nil {
		return err
	}

	switch action {
	case ax.ActionPress:
		return p.doAction(nd, true, "click", "press", "activate", "jump", "switch")
	case ax.ActionRaise:
		var ok bool
		if err := p.call(nd, componentInterface+".GrabFocus", &ok); err == nil && ok {
			return nil
		}
		return p.doAction(nd, false, "activate", "raise")
	case ax.ActionClose:
		return p.doAction(nd, false, "close")
	case ax.ActionShowMenu:
		return p.doAction(nd, false, "showmenu", "show menu")
	}
	return ax.ErrUnsupported
}

// PID returns the process owning n
func (p *Platform) PID(n ax.Node) (int, error) {
	nd, err := asNode(n)
	if err != nil {
		return 0, err
	}
	return p.pidOf(nd.bus)
}

// Application returns the accessible root of pid
func (p *Platform) Application(pid int) (ax.Node, error) {
	bus, err := p.busFor(pid)
	if err != nil {
		return nil, err
	}
	return node{bus: bus, path: rootPath}, nil
}

// Resolve finds the live element of pid at the object path key
func (p *Platform) Resolve(pid int, key string) (ax.Node, error) {
	path := dbus.ObjectPath(key)
	if !path.IsValid() || path == nullPath {
		return nil, ax.ErrInvalidElement
	}
	bus, err := p.busFor(pid)
	if err != nil {
		return nil, err
	}
	nd := node{bus: bus, path: path}
	st, err := p.states(nd)
	if err != nil {
		return nil, ax.ErrInvalidElement
	}
	if st.has(stateDefunct) {
		return nil, ax.ErrInvalidElement
	}
	return nd, nil
}

// Applications lists the processes registered with the accessibility
// registry
func (p *Platform) Applications() ([]ax.App, error) {
	var refs []ref
	if err := p.call(node{bus: registryService, path: rootPath}, accessibleInterface+".GetChildren", &refs); err != nil {
		return nil, fmt.Errorf("failed to list accessible applications: %w", err)
	}

	apps := make([]ax.App, 0, len(refs))
	pids := make(map[string]int, len(refs))
	buses := make(map[int]string, len(refs))
	infos := make(map[int]ax.App, len(refs))
	for _, r := range refs {
		if r.Bus == "" {
			continue
		}
		pid, err := p.queryPID(r.Bus)
		if err != nil || pid <= 0 {
			p.log.Debug().Err(err).Str("bus", r.Bus).Msg("Skipping application without a process id")
			continue
		}
		name, _ := p.stringProperty(node{bus: r.Bus, path: rootPath}, accessibleInterface+".Name")
		app := ax.App{PID: pid, ID: appID(name), Name: name}
		if app.ID == "" {
			app.ID = fmt.Sprintf("pid-%d", pid)
		}
		apps = append(apps, app)
		pids[r.Bus] = pid
		buses[pid] = r.Bus
		infos[pid] = app
	}

	p.mu.Lock()
	p.pids, p.buses, p.apps = pids, buses, infos
	p.mu.Unlock()
	return apps, nil
}

// appFor returns the cached description of the application on bus
func (p *Platform) appFor(bus string) (ax.App, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pid, ok := p.pids[bus]
	if !ok {
		return ax.App{}, false
	}
	app, ok := p.apps[pid]
	return app, ok
}

// cachedPID returns the pid last seen on bus without a round trip
func (p *Platform) cachedPID(bus string) (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pid, ok := p.pids[bus]
	return pid, ok
}

// forget drops the cached state of a vanished bus name
func (p *Platform) forget(bus string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pid, ok := p.pids[bus]; ok {
		delete(p.buses, pid)
		delete(p.apps, pid)
	}
	delete(p.pids, bus)
	for nd := range p.roles {
		if nd.bus == bus {
			delete(p.roles, nd)
		}
	}
}

func (p *Platform) pidOf(bus string) (int, error) {
	if pid, ok := p.cachedPID(bus); ok {
		return pid, nil
	}
	pid, err := p.queryPID(bus)
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	p.pids[bus] = pid
	if _, ok := p.buses[pid]; !ok {
		p.buses[pid] = bus
	}
	p.mu.Unlock()
	return pid, nil
}

func (p *Platform) queryPID(bus string) (int, error) {
	var pid uint32
	if err := p.conn.BusObject().Call("org.freedesktop.DBus.GetConnectionUnixProcessID", 0, bus).Store(&pid); err != nil {
		return 0, mapError(err)
	}
	return int(pid), nil
}

func (p *Platform) busFor(pid int) (string, error) {
	p.mu.RLock()
	bus, ok := p.buses[pid]
	p.mu.RUnlock()
	if ok {
		return bus, nil
	}
	if _, err := p.Applications(); err != nil {
		return "", err
	}
	p.mu.RLock()
	bus, ok = p.buses[pid]
	p.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %d", ax.ErrNoSuchProcess, pid)
	}
	return bus, nil
}

func (p *Platform) roleName(nd node) (string, error) {
	p.mu.RLock()
	rn, ok := p.roles[nd]
	p.mu.RUnlock()
	if ok {
		return rn, nil
	}
	if err := p.call(nd, accessibleInterface+".GetRoleName", &rn); err != nil {
		return "", err
	}
	p.mu.Lock()
	if len(p.roles) >= maxRoleCache {
		p.roles = make(map[node]string)
	}
	p.roles[nd] = rn
	p.mu.Unlock()
	return rn, nil
}

func (p *Platform) stringProperty(nd node, name string) (string, error) {
	v, err := p.property(nd, name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", ax.ErrTypeMismatch
	}
	if s == "" {
		return "", ax.ErrNoValue
	}
	return s, nil
}

func (p *Platform) objectAttribute(nd node, key string) (string, error) {
	var attrs map[string]string
	if err := p.call(nd, accessibleInterface+".GetAttributes", &attrs); err != nil {
		return "", err
	}
	if v := attrs[key]; v != "" {
		return v, nil
	}
	return "", ax.ErrNoValue
}

// value reads the element's text, falling back to its numeric value
func (p *Platform) value(nd node) (any, error) {
	var text string
	err := p.call(nd, textInterface+".GetText", &text, int32(0), int32(-1))
	if err == nil {
		return text, nil
	}
	if !errors.Is(err, ax.ErrUnsupported) {
		return nil, err
	}
	v, err := p.property(nd, valueInterface+".CurrentValue")
	if err != nil {
		return nil, err
	}
	if f, ok := v.(float64); ok {
		return f, nil
	}
	return nil, ax.ErrTypeMismatch
}

func (p *Platform) extents(nd node) (ax.Rect, error) {
	var ext struct{ X, Y, Width, Height int32 }
	if err := p.call(nd, componentInterface+".GetExtents", &ext, coordTypeScreen); err != nil {
		return ax.Rect{}, err
	}
	return ax.Rect{
		X:      float64(ext.X),
		Y:      float64(ext.Y),
		Width:  float64(ext.Width),
		Height: float64(ext.Height),
	}, nil
}

func (p *Platform) states(nd node) (stateSet, error) {
	var st []uint32
	if err := p.call(nd, accessibleInterface+".GetState", &st); err != nil {
		return nil, err
	}
	return stateSet(st), nil
}

func (p *Platform) children(nd node) ([]ax.Node, error) {
	var refs []ref
	if err := p.call(nd, accessibleInterface+".GetChildren", &refs); err != nil {
		if !errors.Is(err, ax.ErrUnsupported) {
			return nil, err
		}
		return p.childrenByIndex(nd)
	}
	return nodesFrom(refs), nil
}

// childrenByIndex serves toolkits that predate GetChildren
func (p *Platform) childrenByIndex(nd node) ([]ax.Node, error) {
	v, err := p.property(nd, accessibleInterface+".ChildCount")
	if err != nil {
		return nil, err
	}
	count, ok := v.(int32)
	if !ok {
		return nil, ax.ErrTypeMismatch
	}
	refs := make([]ref, 0, count)
	for i := int32(0); i < count; i++ {
		var r ref
		if err := p.call(nd, accessibleInterface+".GetChildAtIndex", &r, i); err != nil {
			continue
		}
		refs = append(refs, r)
	}
	return nodesFrom(refs), nil
}

func nodesFrom(refs []ref) []ax.Node {
	out := make([]ax.Node, 0, len(refs))
	for _, r := range refs {
		if nd, ok := r.node(); ok {
			out = append(out, nd)
		}
	}
	return out
}

// windows returns the children of an application root that are windows
func (p *Platform) windows(nd node) ([]ax.Node, error) {
	kids, err := p.children(nd)
	if err != nil {
		return nil, err
	}
	var out []ax.Node
	for _, k := range kids {
		rn, err := p.roleName(k.(node))
		if err != nil {
			continue
		}
		if role, _ := mapRole(rn); role == ax.RoleWindow {
			out = append(out, k)
		}
	}
	if out == nil {
		return nil, ax.ErrNoValue
	}
	return out, nil
}

// tabs returns the page tabs of the first tab strip below nd
func (p *Platform) tabs(nd node) ([]ax.Node, error) {
	list, ok := p.findRole(nd, "page tab list", searchDepth)
	if !ok {
		return nil, ax.ErrNoValue
	}
	kids, err := p.children(list)
	if err != nil {
		return nil, err
	}
	var out []ax.Node
	for _, k := range kids {
		if rn, err := p.roleName(k.(node)); err == nil && rn == "page tab" {
			out = append(out, k)
		}
	}
	if out == nil {
		return nil, ax.ErrNoValue
	}
	return out, nil
}

// findRole walks breadth-first below nd for the first element with the
// AT-SPI role name want
func (p *Platform) findRole(nd node, want string, depth int) (node, bool) {
	level := []node{nd}
	for d := 0; d < depth && len(level) > 0; d++ {
		var next []node
		for _, n := range level {
			kids, err := p.children(n)
			if err != nil {
				continue
			}
			for _, k := range kids {
				kn := k.(node)
				if rn, err := p.roleName(kn); err == nil && rn == want {
					return kn, true
				}
				next = append(next, kn)
			}
		}
		level = next
	}
	return node{}, false
}

func (p *Platform) labelledBy(nd node) (ax.Node, error) {
	var relations []struct {
		Type    uint32
		Targets []ref
	}
	if err := p.call(nd, accessibleInterface+".GetRelationSet", &relations); err != nil {
		return nil, err
	}
	for _, rel := range relations {
		if rel.Type != relationLabelledBy {
			continue
		}
		for _, t := range rel.Targets {
			if target, ok := t.node(); ok {
				return target, nil
			}
		}
	}
	return nil, ax.ErrNoValue
}

// doAction invokes the first action whose name matches one of names. With
// fallback set, an element with a single unnamed action gets that one.
func (p *Platform) doAction(nd node, fallback bool, names ...string) error {
	var actions []struct{ Name, Description, KeyBinding string }
	if err := p.call(nd, actionInterface+".GetActions", &actions); err != nil {
		return err
	}
	idx := actionIndex(actions, names)
	if idx < 0 {
		if !fallback || len(actions) == 0 {
			return ax.ErrUnsupported
		}
		idx = 0
	}
	var ok bool
	if err := p.call(nd, actionInterface+".DoAction", &ok, int32(idx)); err != nil {
		return err
	}
	if !ok {
		return ax.ErrCannotComplete
	}
	return nil
}

func actionIndex(actions []struct{ Name, Description, KeyBinding string }, names []string) int {
	for _, want := range names {
		for i, a := range actions {
			if strings.EqualFold(strings.TrimSpace(a.Name), want) {
				return i
			}
		}
	}
	return -1
}

// refFrom decodes a (so) value carried in a variant
func refFrom(v any) (ref, bool) {
	switch t := v.(type) {
	case ref:
		return t, true
	case []any:
		if len(t) != 2 {
			return ref{}, false
		}
		bus, ok := t[0].(string)
		if !ok {
			return ref{}, false
		}
		switch path := t[1].(type) {
		case dbus.ObjectPath:
			return ref{Bus: bus, Path: path}, true
		case string:
			return ref{Bus: bus, Path: dbus.ObjectPath(path)}, true
		}
	}
	return ref{}, false
}

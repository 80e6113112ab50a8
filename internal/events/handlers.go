package events

import (
	"time"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/collector"
	"github.com/bryanchriswhite/tabscout/internal/search"
	"github.com/bryanchriswhite/tabscout/internal/window"
)

// ancestorDepth bounds the climb from a focused element to its window
const ancestorDepth = 10

func (p *Pipeline) handle(n Notification, now time.Time) {
	p.touch(now)
	if n.PID == 0 {
		n.PID = n.App.PID
	}

	p.log.Debug().
		Str("kind", string(n.Kind)).
		Int("pid", n.PID).
		Str("key", n.Key).
		Msg("Notification")

	switch n.Kind {
	case KindMoved, KindResized:
		p.onGeometry(n, now)
	case KindFocusChanged:
		p.onFocus(n, now)
	case KindCreated:
		p.onCreated(n, now)
	case KindDestroyed:
		p.onDestroyed(n, now)
	case KindTitleChanged:
		p.onTitle(n, now)
	case KindAppLaunched:
		p.onLaunched(n, now)
	case KindAppTerminated:
		p.onTerminated(n, now)
	default:
		p.log.Debug().Str("kind", string(n.Kind)).Msg("Ignoring unknown notification")
	}
}

// lookup finds the cached record of the element key of pid, windows first
func (p *Pipeline) lookup(pid int, key string) (window.Record, bool) {
	return p.cache.ByNode(pid, key)
}

func (p *Pipeline) resolve(pid int, key string) (ax.Node, bool) {
	if p.opts.Env.Acc == nil || key == "" {
		return nil, false
	}
	return p.opts.Env.Acc.Resolve(pid, key)
}

// appFor names the application owning pid
func (p *Pipeline) appFor(pid int, hint ax.App) ax.App {
	if hint.PID == pid && hint.ID != "" {
		return hint
	}
	if p.opts.Env.Acc != nil {
		for _, app := range p.opts.Env.Acc.Applications() {
			if app.PID == pid {
				return app
			}
		}
	}
	return ax.App{PID: pid, ID: hint.ID, Name: hint.Name}
}

// onGeometry records the latest frame for the debounce flush
func (p *Pipeline) onGeometry(n Notification, now time.Time) {
	rec, ok := p.lookup(n.PID, n.Key)
	if !ok {
		return
	}
	var frame ax.Rect
	switch {
	case n.Frame != nil:
		frame = n.Frame.Sanitize()
	default:
		node, ok := p.resolve(n.PID, n.Key)
		if !ok {
			return
		}
		frame = p.opts.Env.Acc.Frame(node)
	}

	kind := n.Kind
	if prev, ok := p.pending[rec.StableID]; ok && prev.kind == KindResized {
		kind = KindResized
	}
	p.pending[rec.StableID] = pending{kind: kind, pid: rec.PID, frame: frame, at: now}
	p.syncPending()
}

// flush applies every pending change older than the debounce interval,
// unless a pointer button is held.
func (p *Pipeline) flush(now time.Time) int {
	if len(p.pending) == 0 {
		return 0
	}
	if p.opts.Pointer != nil && p.opts.Pointer.ButtonsHeld() {
		p.log.Debug().Int("pending", len(p.pending)).Msg("Pointer button held, deferring flush")
		return 0
	}

	placer := p.opts.Env.Placement()
	applied := 0
	for id, pc := range p.pending {
		if now.Sub(pc.at) < p.opts.Config.DebounceInterval {
			continue
		}
		delete(p.pending, id)

		placed := window.Record{PID: pc.pid, Frame: pc.frame, Type: window.TypeWindow}
		placed.Place(placer)
		rec, ok := p.cache.Update(id, func(r *window.Record) {
			r.Frame = pc.frame
			r.LastKnownFrame = pc.frame
			r.Screen = placed.Screen
			if r.Type == window.TypeWindow {
				r.ZIndex = placed.ZIndex
			}
			r.LastUpdate = now
		})
		if !ok {
			continue
		}
		applied++
		p.emit(Event{Kind: pc.kind, ID: id, PID: rec.PID, Record: &rec, At: now})
	}
	p.syncPending()
	return applied
}

// onFocus applies focus immediately and exclusively
func (p *Pipeline) onFocus(n Notification, now time.Time) {
	rec, ok := p.focusTarget(n, now)
	if !ok {
		p.log.Debug().Int("pid", n.PID).Str("key", n.Key).Msg("Focused element has no record")
		return
	}
	p.cache.SetFocused(rec.StableID)
	updated, _ := p.cache.Update(rec.StableID, func(r *window.Record) { r.LastUpdate = now })
	p.emit(Event{Kind: KindFocusChanged, ID: rec.StableID, PID: rec.PID, Record: &updated, At: now})
}

// focusTarget finds the window a focus notification refers to: the element
// itself, the host of a focused tab, its enclosing window, or a newly
// normalized window.
func (p *Pipeline) focusTarget(n Notification, now time.Time) (window.Record, bool) {
	if rec, ok := p.lookup(n.PID, n.Key); ok {
		if rec.Type == window.TypeWindow {
			return rec, true
		}
		if host, ok := p.cache.Get(rec.ParentTabHostID); ok {
			return host, true
		}
	}
	node, ok := p.resolve(n.PID, n.Key)
	if !ok {
		return window.Record{}, false
	}
	acc := p.opts.Env.Acc
	if acc.Role(node) != ax.RoleWindow {
		w, ok := search.FirstAncestor(acc, node, ax.RoleWindow, ancestorDepth)
		if !ok {
			return window.Record{}, false
		}
		if rec, ok := p.lookup(n.PID, w.Key()); ok {
			return rec, true
		}
		node = w
	}
	return p.adopt(n, node, now)
}

// adopt normalizes and stores a window that appeared after discovery
func (p *Pipeline) adopt(n Notification, node ax.Node, now time.Time) (window.Record, bool) {
	app := p.appFor(n.PID, n.App)
	rec, ok := collector.Window(p.opts.Env, app, node)
	if !ok {
		return window.Record{}, false
	}
	rec.LastUpdate = now
	p.cache.Admit(&rec)
	if !p.cache.Store(rec) {
		return window.Record{}, false
	}
	if p.opts.IncludeTabs {
		p.cache.StoreAll(p.opts.Registry.CollectTabs(p.opts.Env, rec))
	}
	return rec, true
}

func (p *Pipeline) onCreated(n Notification, now time.Time) {
	node, ok := p.resolve(n.PID, n.Key)
	if !ok {
		return
	}
	if existing, ok := p.lookup(n.PID, n.Key); ok {
		rec, ok := p.cache.Update(existing.StableID, func(r *window.Record) {
			*r = window.Refresh(p.opts.Env.Acc, node, *r, now)
		})
		if !ok {
			return
		}
		p.emit(Event{Kind: KindCreated, ID: rec.StableID, PID: rec.PID, Record: &rec, At: now})
		return
	}
	rec, ok := p.adopt(n, node, now)
	if !ok {
		return
	}
	if rec.Flags.Focused {
		p.cache.SetFocused(rec.StableID)
	}
	p.emit(Event{Kind: KindCreated, ID: rec.StableID, PID: rec.PID, Record: &rec, At: now})
}

func (p *Pipeline) onDestroyed(n Notification, now time.Time) {
	rec, ok := p.lookup(n.PID, n.Key)
	if !ok {
		return
	}
	p.cache.Remove(rec.StableID)
	p.dropPending()
	p.emit(Event{Kind: KindDestroyed, ID: rec.StableID, PID: rec.PID, At: now})
}

func (p *Pipeline) onTitle(n Notification, now time.Time) {
	rec, ok := p.lookup(n.PID, n.Key)
	if !ok {
		return
	}
	var title string
	if n.Title != "" {
		title = window.CleanTitle(n.Title, rec.AppID)
	} else {
		node, ok := p.resolve(n.PID, n.Key)
		if !ok {
			return
		}
		title = window.CurrentTitle(p.opts.Env.Acc, node, rec)
	}
	if title == rec.Title {
		return
	}
	updated, ok := p.cache.Update(rec.StableID, func(r *window.Record) {
		r.Title = title
		r.LastUpdate = now
	})
	if ok {
		p.emit(Event{Kind: KindTitleChanged, ID: rec.StableID, PID: rec.PID, Record: &updated, At: now})
	}
}

// onLaunched attaches to the new process and collects its windows
func (p *Pipeline) onLaunched(n Notification, now time.Time) {
	if n.PID <= 0 {
		return
	}
	p.attach(n.PID)
	app := p.appFor(n.PID, n.App)
	reg := p.opts.Registry
	if p.opts.Env.Acc != nil {
		recs := reg.CollectApp(p.opts.Env, reg.Resolve(app.ID), app)
		var tabs []window.Record
		for i := range recs {
			p.cache.Admit(&recs[i])
			if p.opts.IncludeTabs {
				tabs = append(tabs, reg.CollectTabs(p.opts.Env, recs[i])...)
			}
		}
		p.cache.StoreAll(append(recs, tabs...))
	}
	p.emit(Event{Kind: KindAppLaunched, PID: n.PID, At: now})
}

// onTerminated detaches the process and evicts its records
func (p *Pipeline) onTerminated(n Notification, now time.Time) {
	if n.PID <= 0 {
		return
	}
	p.detach(n.PID)
	removed := p.cache.RemoveAll(func(r window.Record) bool { return r.PID == n.PID })
	p.dropPending()
	p.log.Debug().Int("pid", n.PID).Int("removed", len(removed)).Msg("Application terminated")
	p.emit(Event{Kind: KindAppTerminated, PID: n.PID, At: now})
}

// dropPending forgets pending changes of records no longer cached
func (p *Pipeline) dropPending() {
	for id := range p.pending {
		if !p.cache.Contains(id) {
			delete(p.pending, id)
		}
	}
	p.syncPending()
}

func (p *Pipeline) syncPending() {
	p.mu.Lock()
	p.pendingN = len(p.pending)
	p.mu.Unlock()
}

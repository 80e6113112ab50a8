// Package cache holds the authoritative set of normalized window and tab
// records. It stores records only, never UI handles, so its contents stay
// readable after the elements they describe have gone away.
package cache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bryanchriswhite/tabscout/internal/logger"
	"github.com/bryanchriswhite/tabscout/internal/window"
)

// generationSep separates a derived stable ID from its generation
const generationSep = ".g"

// Cache maps stable IDs to records. Reads return copies.
//
// Removed IDs are retired: a record later stored under a retired ID is
// given the next generation of it instead ("win-1-ab" becomes
// "win-1-ab.g1"), so an ID never comes back once removed.
type Cache struct {
	mu       sync.RWMutex
	records  map[string]window.Record
	retired  map[string]int
	revision uint64
}

// New creates an empty cache
func New() *Cache {
	return &Cache{
		records: make(map[string]window.Record),
		retired: make(map[string]int),
	}
}

// splitGeneration splits id into its derived base and generation
func splitGeneration(id string) (string, int) {
	i := strings.LastIndex(id, generationSep)
	if i <= 0 {
		return id, 0
	}
	gen, err := strconv.Atoi(id[i+len(generationSep):])
	if err != nil || gen <= 0 {
		return id, 0
	}
	return id[:i], gen
}

func withGeneration(base string, gen int) string {
	if gen == 0 {
		return base
	}
	return base + generationSep + strconv.Itoa(gen)
}

// current maps a retired id onto the live generation of its base.
// Must be called with the lock held.
func (c *Cache) current(id string) string {
	if id == "" {
		return id
	}
	base, gen := splitGeneration(id)
	next := c.retired[base]
	if gen >= next {
		return id
	}
	return withGeneration(base, next)
}

// retire tombstones id. Must be called with the write lock held.
func (c *Cache) retire(id string) {
	base, gen := splitGeneration(id)
	if c.retired[base] <= gen {
		c.retired[base] = gen + 1
	}
}

// admit rewrites retired identities of r. Must be called with the lock held.
func (c *Cache) admit(r *window.Record) {
	if id := c.current(r.StableID); id != r.StableID {
		logger.WithComponent("cache").Debug().
			Str("retired", r.StableID).
			Str("id", id).
			Msg("Reissued retired stable ID")
		r.StableID = id
	}
	if r.Type == window.TypeTab {
		r.ParentTabHostID = c.current(r.ParentTabHostID)
	}
}

// Admit gives r the identity Store would file it under. Collect tabs only
// after admitting their host so their IDs derive from the live one.
func (c *Cache) Admit(r *window.Record) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.admit(r)
}

// Retired reports whether id was removed and may not be stored again as is
func (c *Cache) Retired(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current(id) != id
}

// Store inserts or replaces r. Records without a stable ID are rejected.
func (c *Cache) Store(r window.Record) bool {
	if r.StableID == "" {
		logger.WithComponent("cache").Debug().Str("title", r.Title).Msg("Rejected record without stable ID")
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r = r.Clone()
	c.admit(&r)
	c.records[r.StableID] = r
	c.revision++
	return true
}

// StoreAll stores a batch under one lock and returns how many were stored
func (c *Cache) StoreAll(recs []window.Record) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range recs {
		if r.StableID == "" {
			continue
		}
		r = r.Clone()
		c.admit(&r)
		c.records[r.StableID] = r
		n++
	}
	if n > 0 {
		c.revision++
	}
	return n
}

// Get returns the record with the given stable ID
func (c *Cache) Get(id string) (window.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[id]
	if !ok {
		return window.Record{}, false
	}
	return r.Clone(), true
}

// All returns every record ordered by stable ID
func (c *Cache) All() []window.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]window.Record, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StableID < out[j].StableID })
	return out
}

// Filter returns the records matching pred, ordered by stable ID
func (c *Cache) Filter(pred func(window.Record) bool) []window.Record {
	all := c.All()
	out := all[:0]
	for _, r := range all {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// ByNode returns the record describing element key of pid. A window wins
// over a tab sharing its element; among tabs the lowest stable ID wins.
func (c *Cache) ByNode(pid int, key string) (window.Record, bool) {
	if key == "" {
		return window.Record{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var (
		best  window.Record
		found bool
	)
	for _, r := range c.records {
		if r.PID != pid || r.NodeKey != key {
			continue
		}
		switch {
		case !found:
		case r.Type == window.TypeWindow && best.Type != window.TypeWindow:
		case r.Type == best.Type && r.StableID < best.StableID:
		default:
			continue
		}
		best, found = r, true
	}
	if !found {
		return window.Record{}, false
	}
	return best.Clone(), true
}

// FocusedWindow returns the focused record. Having none is a normal outcome.
func (c *Cache) FocusedWindow() (window.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var (
		best  window.Record
		found bool
	)
	for _, r := range c.records {
		if !r.Flags.Focused {
			continue
		}
		// Deterministic pick should the invariant ever be broken
		if !found || r.StableID < best.StableID {
			best, found = r, true
		}
	}
	return best.Clone(), found
}

// Remove deletes id together with any tabs it hosts
func (c *Cache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.records[id]; !ok {
		return false
	}
	delete(c.records, id)
	removed := map[string]bool{id: true}
	c.cascade(removed)
	c.retireAll(removed)
	c.revision++
	return true
}

// RemoveAll deletes every record matching pred plus the tabs of any removed
// host, and returns the removed stable IDs.
func (c *Cache) RemoveAll(pred func(window.Record) bool) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := make(map[string]bool)
	for id, r := range c.records {
		if pred(r) {
			removed[id] = true
		}
	}
	for id := range removed {
		delete(c.records, id)
	}
	c.cascade(removed)
	if len(removed) == 0 {
		return nil
	}
	c.retireAll(removed)
	c.revision++
	ids := make([]string, 0, len(removed))
	for id := range removed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// cascade removes tabs whose host is in removed, adding them to it.
// Must be called with the write lock held.
func (c *Cache) cascade(removed map[string]bool) {
	for id, r := range c.records {
		if r.Type == window.TypeTab && r.ParentTabHostID != "" && removed[r.ParentTabHostID] {
			delete(c.records, id)
			removed[id] = true
		}
	}
}

func (c *Cache) retireAll(removed map[string]bool) {
	for id := range removed {
		c.retire(id)
	}
}

// Contains reports whether id is cached
func (c *Cache) Contains(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.records[id]
	return ok
}

// Count returns the number of cached records
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Update applies fn to the record with the given ID under the write lock.
// Identity fields are restored after fn returns.
func (c *Cache) Update(id string, fn func(*window.Record)) (window.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok := c.records[id]
	if !ok {
		return window.Record{}, false
	}
	r := old.Clone()
	fn(&r)
	r = r.WithIdentityOf(old)
	c.records[id] = r
	c.revision++
	return r.Clone(), true
}

// SetFocused marks id focused and clears focus on every other record.
// An unknown id clears focus everywhere and returns false.
func (c *Cache) SetFocused(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, r := range c.records {
		focused := k == id
		if r.Flags.Focused != focused {
			r.Flags.Focused = focused
			c.records[k] = r
		}
	}
	c.revision++
	_, ok := c.records[id]
	return ok
}

// TabsOf returns the tabs hosted by hostID ordered by tab index
func (c *Cache) TabsOf(hostID string) []window.Record {
	c.mu.RLock()
	var out []window.Record
	for _, r := range c.records {
		if r.Type == window.TypeTab && r.ParentTabHostID == hostID {
			out = append(out, r.Clone())
		}
	}
	c.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := tabIndex(out[i]), tabIndex(out[j])
		if a != b {
			return a < b
		}
		return out[i].StableID < out[j].StableID
	})
	return out
}

func tabIndex(r window.Record) int {
	if r.TabIndex == nil {
		return int(^uint(0) >> 1)
	}
	return *r.TabIndex
}

// Clear drops every record, retiring their IDs
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.records {
		c.retire(id)
	}
	c.records = make(map[string]window.Record)
	c.revision++
}

// Revision increases on every mutation
func (c *Cache) Revision() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

// Dump renders the cache as a human-readable listing: windows ordered by
// application and title, each followed by its tabs.
func (c *Cache) Dump() string {
	all := c.All()
	var windows []window.Record
	tabs := make(map[string][]window.Record)
	for _, r := range all {
		if r.Type == window.TypeTab {
			tabs[r.ParentTabHostID] = append(tabs[r.ParentTabHostID], r)
			continue
		}
		windows = append(windows, r)
	}
	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].AppID != windows[j].AppID {
			return windows[i].AppID < windows[j].AppID
		}
		return windows[i].Title < windows[j].Title
	})

	var b strings.Builder
	fmt.Fprintf(&b, "cache: %d records\n", len(all))
	for _, w := range windows {
		focus := ""
		if w.Flags.Focused {
			focus = " *"
		}
		fmt.Fprintf(&b, "%s [%s] %q pid=%d screen=%d z=%d %.0fx%.0f@%.0f,%.0f%s\n",
			w.StableID, w.AppID, w.Title, w.PID, w.Screen, w.ZIndex,
			w.Frame.Width, w.Frame.Height, w.Frame.X, w.Frame.Y, focus)
		hosted := tabs[w.StableID]
		sort.SliceStable(hosted, func(i, j int) bool { return tabIndex(hosted[i]) < tabIndex(hosted[j]) })
		for _, t := range hosted {
			fmt.Fprintf(&b, "  %s %q\n", t.StableID, t.Title)
		}
		delete(tabs, w.StableID)
	}
	var orphans []string
	for host := range tabs {
		orphans = append(orphans, host)
	}
	sort.Strings(orphans)
	for _, host := range orphans {
		for _, t := range tabs[host] {
			fmt.Fprintf(&b, "? %s %q (host %s)\n", t.StableID, t.Title, host)
		}
	}
	return b.String()
}

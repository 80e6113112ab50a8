package cache

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/window"
)

func win(id string, pid int) window.Record {
	return window.Record{StableID: id, PID: pid, AppID: "org.example.app", Title: id, Type: window.TypeWindow}
}

func tab(id, host string, idx int) window.Record {
	i := idx
	return window.Record{StableID: id, Type: window.TypeTab, ParentTabHostID: host, TabIndex: &i, Title: id}
}

func TestStoreGetRemove(t *testing.T) {
	c := New()
	assert.False(t, c.Store(window.Record{Title: "no id"}))
	assert.True(t, c.Store(win("w1", 1)))

	r, ok := c.Get("w1")
	require.True(t, ok)
	assert.Equal(t, "w1", r.Title)
	assert.True(t, c.Contains("w1"))
	assert.Equal(t, 1, c.Count())

	assert.True(t, c.Remove("w1"))
	assert.False(t, c.Remove("w1"))
	_, ok = c.Get("w1")
	assert.False(t, ok)
}

func TestStoreReplacesByID(t *testing.T) {
	c := New()
	c.Store(win("w1", 1))
	r := win("w1", 1)
	r.Title = "renamed"
	c.Store(r)
	assert.Equal(t, 1, c.Count())
	got, _ := c.Get("w1")
	assert.Equal(t, "renamed", got.Title)
}

func TestStoreAllSkipsMissingIDs(t *testing.T) {
	c := New()
	n := c.StoreAll([]window.Record{win("a", 1), {Title: "x"}, win("b", 1)})
	assert.Equal(t, 2, n)
	ids := []string{}
	for _, r := range c.All() {
		ids = append(ids, r.StableID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestReadsReturnCopies(t *testing.T) {
	c := New()
	c.Store(tab("t1", "w1", 3))
	r, _ := c.Get("t1")
	*r.TabIndex = 99
	r.Title = "mutated"
	again, _ := c.Get("t1")
	assert.Equal(t, 3, *again.TabIndex)
	assert.Equal(t, "t1", again.Title)
}

func TestRemoveCascadesToTabs(t *testing.T) {
	c := New()
	c.StoreAll([]window.Record{win("w1", 1), tab("t1", "w1", 0), tab("t2", "w1", 1), win("w2", 1), tab("t3", "w2", 0)})

	require.True(t, c.Remove("w1"))
	assert.False(t, c.Contains("t1"))
	assert.False(t, c.Contains("t2"))
	assert.True(t, c.Contains("t3"))
	assert.Equal(t, 2, c.Count())
}

func TestRemoveAllCascades(t *testing.T) {
	c := New()
	c.StoreAll([]window.Record{win("w1", 1), tab("t1", "w1", 0), win("w2", 2), tab("t2", "w2", 0)})

	removed := c.RemoveAll(func(r window.Record) bool { return r.PID == 1 && r.Type == window.TypeWindow })
	assert.Equal(t, []string{"t1", "w1"}, removed)
	assert.Equal(t, 2, c.Count())
	assert.Nil(t, c.RemoveAll(func(window.Record) bool { return false }))

	for _, r := range c.All() {
		if r.Type == window.TypeTab {
			assert.True(t, c.Contains(r.ParentTabHostID), "orphan tab %s", r.StableID)
		}
	}
}

func TestFocusedWindow(t *testing.T) {
	c := New()
	_, ok := c.FocusedWindow()
	assert.False(t, ok)

	c.StoreAll([]window.Record{win("a", 1), win("b", 1), win("c", 2)})
	assert.True(t, c.SetFocused("b"))
	f, ok := c.FocusedWindow()
	require.True(t, ok)
	assert.Equal(t, "b", f.StableID)

	assert.True(t, c.SetFocused("c"))
	focused := c.Filter(func(r window.Record) bool { return r.Flags.Focused })
	require.Len(t, focused, 1)
	assert.Equal(t, "c", focused[0].StableID)

	assert.False(t, c.SetFocused("missing"))
	_, ok = c.FocusedWindow()
	assert.False(t, ok)
}

func TestUpdateRestoresIdentity(t *testing.T) {
	c := New()
	c.Store(tab("t1", "w1", 0))

	got, ok := c.Update("t1", func(r *window.Record) {
		r.Title = "new title"
		r.Frame = ax.Rect{X: 1, Y: 2, Width: 3, Height: 4}
		r.StableID = "hijack"
		r.Type = window.TypeWindow
		r.ParentTabHostID = ""
		r.PID = 42
	})
	require.True(t, ok)
	assert.Equal(t, "t1", got.StableID)
	assert.Equal(t, window.TypeTab, got.Type)
	assert.Equal(t, "w1", got.ParentTabHostID)
	assert.Equal(t, 0, got.PID)
	assert.Equal(t, "new title", got.Title)
	assert.Equal(t, 3.0, got.Frame.Width)
	assert.False(t, c.Contains("hijack"))

	_, ok = c.Update("missing", func(*window.Record) {})
	assert.False(t, ok)
}

func TestTabsOfOrderedByIndex(t *testing.T) {
	c := New()
	c.StoreAll([]window.Record{win("w1", 1), tab("z", "w1", 0), tab("a", "w1", 2), tab("m", "w1", 1), tab("o", "w2", 0)})
	var ids []string
	for _, r := range c.TabsOf("w1") {
		ids = append(ids, r.StableID)
	}
	assert.Equal(t, []string{"z", "m", "a"}, ids)
	assert.Empty(t, c.TabsOf("nobody"))
}

func TestRevisionAndClear(t *testing.T) {
	c := New()
	r0 := c.Revision()
	c.Store(win("a", 1))
	r1 := c.Revision()
	assert.Greater(t, r1, r0)
	c.Get("a")
	assert.Equal(t, r1, c.Revision())
	c.Clear()
	assert.Greater(t, c.Revision(), r1)
	assert.Zero(t, c.Count())
}

func TestDump(t *testing.T) {
	c := New()
	w := win("w1", 7)
	w.Flags.Focused = true
	c.StoreAll([]window.Record{w, tab("t1", "w1", 0), tab("t9", "gone", 0)})
	out := c.Dump()
	assert.True(t, strings.HasPrefix(out, "cache: 3 records\n"))
	assert.Contains(t, out, "w1 [org.example.app] \"w1\" pid=7")
	assert.Contains(t, out, " *\n")
	assert.Contains(t, out, "  t1 \"t1\"\n")
	assert.Contains(t, out, "? t9 \"t9\" (host gone)")
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("w%d-%d", w, i%10)
				c.Store(win(id, w))
				c.Update(id, func(r *window.Record) { r.Title = "t" })
				c.SetFocused(id)
				_ = c.All()
				_, _ = c.FocusedWindow()
				if i%7 == 0 {
					c.Remove(id)
				}
			}
		}(w)
	}
	wg.Wait()

	focused := c.Filter(func(r window.Record) bool { return r.Flags.Focused })
	assert.LessOrEqual(t, len(focused), 1)
	ids := make(map[string]bool)
	for _, r := range c.All() {
		assert.NotEmpty(t, r.StableID)
		assert.False(t, ids[r.StableID])
		ids[r.StableID] = true
	}
}

func TestRemovedIDsAreReissuedWithNextGeneration(t *testing.T) {
	c := New()
	c.StoreAll([]window.Record{win("w1", 1), tab("t1", "w1", 0)})
	require.True(t, c.Remove("w1"))
	assert.True(t, c.Retired("w1"))
	assert.True(t, c.Retired("t1"))

	require.True(t, c.Store(win("w1", 1)))
	assert.False(t, c.Contains("w1"))
	again, ok := c.Get("w1.g1")
	require.True(t, ok)
	assert.Equal(t, "w1.g1", again.StableID)

	c.Store(tab("t2", "w1", 0))
	tabs := c.TabsOf("w1.g1")
	require.Len(t, tabs, 1)
	assert.Equal(t, "t2", tabs[0].StableID)

	require.True(t, c.Remove("w1.g1"))
	r := win("w1", 1)
	c.Admit(&r)
	assert.Equal(t, "w1.g2", r.StableID)
	assert.False(t, c.Retired("w1.g2"))
}

func TestRemoveAllAndClearRetire(t *testing.T) {
	c := New()
	c.StoreAll([]window.Record{win("a", 1), win("b", 2)})
	c.RemoveAll(func(r window.Record) bool { return r.PID == 1 })
	c.Clear()

	c.StoreAll([]window.Record{win("a", 1), win("b", 2), win("fresh", 3)})
	var ids []string
	for _, r := range c.All() {
		ids = append(ids, r.StableID)
	}
	assert.Equal(t, []string{"a.g1", "b.g1", "fresh"}, ids)
}

func TestByNodePrefersWindows(t *testing.T) {
	c := New()
	w := win("w1", 4)
	w.NodeKey = "k"
	t1 := tab("t1", "w1", 0)
	t1.PID, t1.NodeKey = 4, "k"
	t2 := tab("t0", "w1", 1)
	t2.PID, t2.NodeKey = 4, "tk"
	t3 := tab("t3", "w1", 2)
	t3.PID, t3.NodeKey = 4, "tk"
	c.StoreAll([]window.Record{t1, w, t3, t2})

	got, ok := c.ByNode(4, "k")
	require.True(t, ok)
	assert.Equal(t, "w1", got.StableID)

	got, ok = c.ByNode(4, "tk")
	require.True(t, ok)
	assert.Equal(t, "t0", got.StableID)

	_, ok = c.ByNode(5, "k")
	assert.False(t, ok)
	_, ok = c.ByNode(4, "")
	assert.False(t, ok)
}

package tracker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/window"
)

// Result summarizes one discovery pass
type Result struct {
	Applications int           `json:"applications"`
	Windows      int           `json:"windows"`
	Tabs         int           `json:"tabs"`
	Evicted      int           `json:"evicted"`
	Failed       int           `json:"failed"`
	PIDs         []int         `json:"pids"`
	Duration     time.Duration `json:"duration"`
	At           time.Time     `json:"at"`
}

// appResult is the outcome of one collector task
type appResult struct {
	recs   []window.Record
	failed bool
}

// Discover enumerates every running application, collects its windows
// (and tabs when enabled) with at most discovery.concurrency collectors in
// flight, and replaces the cached records of the scanned processes with
// the fresh batch. A collector that panics is logged; its application
// keeps the records it already had.
//
// Only records cached and unchanged since the pass began are evicted, so a
// window the event pipeline adopts while collectors run survives the pass.
func (m *Manager) Discover(ctx context.Context) (Result, error) {
	return m.discover(ctx, m.write)
}

func (m *Manager) discover(ctx context.Context, apply func(func())) (Result, error) {
	start := time.Now()
	before := make(map[string]time.Time)
	for _, r := range m.cache.All() {
		before[r.StableID] = r.LastUpdate
	}
	apps := m.acc.Applications()

	results := make([]appResult, len(apps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Discovery.Concurrency)
	for i, app := range apps {
		i, app := i, app
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = m.collectApp(app)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("discovery interrupted: %w", err)
	}

	res := Result{Applications: len(apps), At: m.env.Time()}
	running := make(map[int]bool, len(apps))
	failed := make(map[int]bool)
	collected := make(map[string]bool)
	var batch []window.Record
	for i, app := range apps {
		running[app.PID] = true
		if results[i].failed {
			failed[app.PID] = true
			res.Failed++
			continue
		}
		for _, r := range results[i].recs {
			if collected[r.StableID] {
				continue
			}
			collected[r.StableID] = true
			if r.IsTab() {
				res.Tabs++
			} else {
				res.Windows++
			}
			batch = append(batch, r)
		}
	}

	focused := singleFocus(batch)
	apply(func() {
		m.cache.StoreAll(batch)

		// Records of scanned processes that were not collected again are
		// gone; so are the records of processes that no longer run at all.
		evicted := m.cache.RemoveAll(func(r window.Record) bool {
			seen, ok := before[r.StableID]
			if !ok || !seen.Equal(r.LastUpdate) || failed[r.PID] {
				return false
			}
			return !running[r.PID] || !collected[r.StableID]
		})
		res.Evicted = len(evicted)

		if focused != "" {
			m.cache.SetFocused(focused)
		}
	})

	for pid := range running {
		res.PIDs = append(res.PIDs, pid)
	}
	sort.Ints(res.PIDs)
	res.Duration = time.Since(start)

	m.mu.Lock()
	m.lastRun = res
	m.mu.Unlock()

	m.log.Debug().
		Int("applications", res.Applications).
		Int("windows", res.Windows).
		Int("tabs", res.Tabs).
		Int("evicted", res.Evicted).
		Int("failed", res.Failed).
		Dur("took", res.Duration).
		Msg("Discovery pass complete")
	return res, nil
}

// collectApp runs the application's strategy, recovering from panics
func (m *Manager) collectApp(app ax.App) (res appResult) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().
				Interface("panic", r).
				Str("app", app.ID).
				Int("pid", app.PID).
				Msg("Collector panicked")
			res = appResult{failed: true}
		}
	}()

	s := m.reg.Resolve(app.ID)
	recs := m.reg.CollectApp(m.env, s, app)
	var tabs []window.Record
	for i := range recs {
		m.cache.Admit(&recs[i])
		if m.cfg.Discovery.IncludeTabs {
			tabs = append(tabs, m.reg.CollectTabs(m.env, recs[i])...)
		}
	}
	for i := range tabs {
		m.cache.Admit(&tabs[i])
	}
	return appResult{recs: append(recs, tabs...)}
}

// singleFocus clears the focused flag on all but one window of batch and
// returns the ID of the one kept. The topmost focused window wins; ties go
// to the smallest ID.
func singleFocus(batch []window.Record) string {
	best := -1
	for i, r := range batch {
		if r.IsTab() || !r.Flags.Focused {
			continue
		}
		if best < 0 || r.ZIndex > batch[best].ZIndex ||
			(r.ZIndex == batch[best].ZIndex && r.StableID < batch[best].StableID) {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	for i := range batch {
		if i != best && !batch[i].IsTab() {
			batch[i].Flags.Focused = false
		}
	}
	return batch[best].StableID
}

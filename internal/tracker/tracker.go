// Package tracker is the process-wide context object: it owns the cache,
// runs discovery passes, drives the event pipeline and performs window
// actions on behalf of the API.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/cache"
	"github.com/bryanchriswhite/tabscout/internal/collector"
	"github.com/bryanchriswhite/tabscout/internal/config"
	"github.com/bryanchriswhite/tabscout/internal/events"
	"github.com/bryanchriswhite/tabscout/internal/logger"
	"github.com/bryanchriswhite/tabscout/internal/window"
)

// Tracker errors
var (
	ErrNotFound     = errors.New("tracker: no such window or tab")
	ErrStale        = errors.New("tracker: window element no longer exists")
	ErrNotRunning   = errors.New("tracker: not running")
	ErrUnsupported  = errors.New("tracker: action not supported for this record")
	ErrActionFailed = errors.New("tracker: action failed")
)

// Screens looks up monitor bounds by index
type Screens interface {
	Bounds(i int) (ax.Rect, bool)
}

// Options wires a Manager to its collaborators
type Options struct {
	Config   config.Config
	Platform ax.Platform
	// Source feeds the event pipeline; nil disables live updates
	Source   events.Source
	Placer   window.Placer
	Pointer  events.PointerState
	Screens  Screens
	Registry *collector.Registry
	Now      func() time.Time
}

// Manager tracks the windows and tabs of every running application
type Manager struct {
	cfg      config.Config
	acc      *ax.Accessor
	reg      *collector.Registry
	cache    *cache.Cache
	pipeline *events.Pipeline
	screens  Screens
	env      collector.Env
	log      *zerolog.Logger

	mu      sync.Mutex
	running bool
	lastRun Result
}

// New creates a tracker. The configuration is copied and never changes
// afterwards.
func New(opts Options) *Manager {
	if opts.Registry == nil {
		opts.Registry = collector.DefaultRegistry()
	}
	if opts.Config.Discovery.Concurrency <= 0 {
		opts.Config.Discovery.Concurrency = config.Defaults().Discovery.Concurrency
	}

	acc := ax.NewAccessor(opts.Platform)
	m := &Manager{
		cfg:     opts.Config,
		acc:     acc,
		reg:     opts.Registry,
		cache:   cache.New(),
		screens: opts.Screens,
		log:     logger.WithComponent("tracker"),
		env: collector.Env{
			Acc:    acc,
			Placer: opts.Placer,
			Filter: &window.Filter{MinSize: opts.Config.Discovery.MinWindowSize},
			Now:    opts.Now,
		},
	}

	if opts.Source != nil {
		m.pipeline = events.New(opts.Source, m.cache, events.Options{
			Config:             opts.Config.Events,
			NotifyOnMainThread: opts.Config.NotifyOnMainThread,
			Env:                m.env,
			Registry:           opts.Registry,
			IncludeTabs:        opts.Config.Discovery.IncludeTabs,
			Pointer:            opts.Pointer,
			Rediscover:         m.rediscover,
		})
	}
	return m
}

// Start runs the initial discovery pass and starts the event pipeline
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	res, err := m.Discover(ctx)
	if err != nil {
		return fmt.Errorf("initial discovery failed: %w", err)
	}

	if m.pipeline != nil {
		if err := m.pipeline.Start(ctx, res.PIDs); err != nil {
			return fmt.Errorf("failed to start event pipeline: %w", err)
		}
	}

	m.mu.Lock()
	m.running = true
	m.mu.Unlock()

	m.log.Info().
		Int("applications", res.Applications).
		Int("windows", res.Windows).
		Int("tabs", res.Tabs).
		Bool("live_updates", m.pipeline != nil).
		Msg("Tracker started")
	return nil
}

// Stop stops the event pipeline. The cache keeps its last contents.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	if m.pipeline != nil {
		m.pipeline.Stop()
	}
	m.log.Info().Msg("Tracker stopped")
}

// Running reports whether Start succeeded and Stop has not been called
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Cache returns the record cache
func (m *Manager) Cache() *cache.Cache { return m.cache }

// Config returns the configuration the tracker was built with
func (m *Manager) Config() config.Config { return m.cfg }

// Subscribe registers a listener for applied events. The channel is nil
// when live updates are disabled.
func (m *Manager) Subscribe() chan events.Event {
	if m.pipeline == nil {
		return nil
	}
	return m.pipeline.Subscribe()
}

// Unsubscribe removes a listener registered with Subscribe
func (m *Manager) Unsubscribe(ch chan events.Event) {
	if m.pipeline == nil || ch == nil {
		return
	}
	m.pipeline.Unsubscribe(ch)
}

// Status summarizes the tracker and pipeline state
type Status struct {
	Running     bool           `json:"running"`
	LiveUpdates bool           `json:"live_updates"`
	Records     int            `json:"records"`
	Revision    uint64         `json:"revision"`
	LastScan    Result         `json:"last_scan"`
	Events      *events.Health `json:"events,omitempty"`
}

// Status returns a snapshot of the tracker health
func (m *Manager) Status() Status {
	m.mu.Lock()
	st := Status{
		Running:     m.running,
		LiveUpdates: m.pipeline != nil,
		LastScan:    m.lastRun,
	}
	m.mu.Unlock()

	st.Records = m.cache.Count()
	st.Revision = m.cache.Revision()
	if m.pipeline != nil {
		h := m.pipeline.Health()
		st.Events = &h
	}
	return st
}

// Focused returns the focused window record
func (m *Manager) Focused() (window.Record, bool) {
	return m.cache.FocusedWindow()
}

// Windows returns the cached records matching the optional type and
// application filters
func (m *Manager) Windows(typ window.Type, appID string) []window.Record {
	return m.cache.Filter(func(r window.Record) bool {
		if typ != "" && r.Type != typ {
			return false
		}
		return appID == "" || r.AppID == appID
	})
}

// write applies a cache mutation on the pipeline loop while it runs, and
// directly otherwise
func (m *Manager) write(fn func()) {
	if m.pipeline != nil {
		if err := m.pipeline.Do(context.Background(), fn); err == nil {
			return
		}
	}
	fn()
}

// rediscover runs on the pipeline loop, so it applies its pass directly
func (m *Manager) rediscover(ctx context.Context) []int {
	res, err := m.discover(ctx, func(fn func()) { fn() })
	if err != nil {
		m.log.Warn().Err(err).Msg("Rediscovery failed")
		return nil
	}
	return res.PIDs
}

package events

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
	"github.com/bryanchriswhite/tabscout/internal/logger"
)

var (
	// ErrRunning is returned by Start on a pipeline that is already running
	ErrRunning = errors.New("events: pipeline already running")
	// ErrStopped is returned by Do when the loop is not running
	ErrStopped = errors.New("events: pipeline stopped")
)

// Options configures a Pipeline
type Options struct {
	Config config.EventsConfig
	// NotifyOnMainThread delivers subscriber events from the loop itself
	// instead of a dispatcher goroutine
	NotifyOnMainThread bool
	Env                collector.Env
	Registry           *collector.Registry
	// IncludeTabs collects the tabs of windows created after discovery
	IncludeTabs bool
	Pointer     PointerState
	// Rediscover rebuilds the cache and returns the processes to attach to
	Rediscover func(ctx context.Context) []int
}

// pending is a geometry change waiting for the debounce window to pass
type pending struct {
	kind  Kind
	pid   int
	frame ax.Rect
	at    time.Time
}

// Pipeline is the event ingestion loop. All fields below the mutex are
// owned by the loop goroutine while it runs.
type Pipeline struct {
	src   Source
	cache *cache.Cache
	opts  Options
	log   *zerolog.Logger

	mu         sync.RWMutex
	running    bool
	states     map[int]AttachState
	lastEvent  time.Time
	recoveries int
	pendingN   int
	subs       []chan Event

	in       chan Notification
	cmds     chan func()
	dispatch chan Event
	cancel   context.CancelFunc
	done     chan struct{}
	dispDone chan struct{}

	pending       map[string]pending
	recoveryTick  *time.Ticker
	degradedSince time.Time
}

// New creates a pipeline over src writing into c
func New(src Source, c *cache.Cache, opts Options) *Pipeline {
	d := config.Defaults().Events
	if opts.Config.DebounceInterval <= 0 {
		opts.Config.DebounceInterval = d.DebounceInterval
	}
	if opts.Config.HealthWindow <= 0 {
		opts.Config.HealthWindow = d.HealthWindow
	}
	if opts.Config.HealthCheckInterval <= 0 {
		opts.Config.HealthCheckInterval = d.HealthCheckInterval
	}
	if opts.Config.RecoveryInterval <= 0 {
		opts.Config.RecoveryInterval = d.RecoveryInterval
	}
	if opts.Config.QueueSize <= 0 {
		opts.Config.QueueSize = d.QueueSize
	}
	if opts.Registry == nil {
		opts.Registry = collector.DefaultRegistry()
	}
	return &Pipeline{
		src:     src,
		cache:   c,
		opts:    opts,
		log:     logger.WithComponent("events"),
		states:  make(map[int]AttachState),
		cmds:    make(chan func()),
		pending: make(map[string]pending),
	}
}

// Start attaches to pids and runs the loop until ctx is cancelled or Stop
// is called. A process that cannot be attached is logged and left
// Detached; it does not fail Start.
func (p *Pipeline) Start(ctx context.Context, pids []int) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrRunning
	}
	p.in = make(chan Notification, p.opts.Config.QueueSize)
	p.mu.Unlock()

	if err := p.src.Start(p.in); err != nil {
		return fmt.Errorf("failed to start notification source: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	now := p.opts.Env.Time()

	p.mu.Lock()
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})
	p.lastEvent = now
	if !p.opts.NotifyOnMainThread {
		p.dispatch = make(chan Event, p.opts.Config.QueueSize)
		p.dispDone = make(chan struct{})
	}
	p.mu.Unlock()

	for _, pid := range pids {
		p.attach(pid)
	}

	if !p.opts.NotifyOnMainThread {
		go p.dispatcher(p.dispatch, p.dispDone)
	}
	go p.loop(ctx)

	p.log.Info().
		Int("processes", len(pids)).
		Dur("debounce", p.opts.Config.DebounceInterval).
		Bool("notify_on_main_thread", p.opts.NotifyOnMainThread).
		Msg("Event pipeline started")
	return nil
}

// Stop ends the loop, releases every subscription and waits for the
// dispatcher to drain. Stop is a no-op on a stopped pipeline.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
	p.src.Stop()

	p.mu.Lock()
	for pid := range p.states {
		p.states[pid] = Unattached
	}
	dispatch, dispDone := p.dispatch, p.dispDone
	p.dispatch, p.dispDone = nil, nil
	p.mu.Unlock()

	if dispatch != nil {
		close(dispatch)
		<-dispDone
	}
	p.log.Info().Msg("Event pipeline stopped")
}

// Post queues a notification as if the source had delivered it. It
// reports false when the pipeline is stopped or the queue is full.
func (p *Pipeline) Post(n Notification) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running {
		return false
	}
	select {
	case p.in <- n:
		return true
	default:
		p.log.Warn().Str("kind", string(n.Kind)).Msg("Notification queue full, dropping")
		return false
	}
}

// Do runs fn on the loop goroutine between notifications and waits for it
// to return. It must not be called from the loop itself.
func (p *Pipeline) Do(ctx context.Context, fn func()) error {
	p.mu.RLock()
	running, done := p.running, p.done
	p.mu.RUnlock()
	if !running {
		return ErrStopped
	}

	ran := make(chan struct{})
	select {
	case p.cmds <- func() { defer close(ran); fn() }:
	case <-done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-ran
	return nil
}

func (p *Pipeline) loop(ctx context.Context) {
	defer close(p.done)

	debounce := time.NewTicker(p.opts.Config.DebounceInterval)
	defer debounce.Stop()
	health := time.NewTicker(p.opts.Config.HealthCheckInterval)
	defer health.Stop()
	defer p.disarmRecovery()

	for {
		var recoveryC <-chan time.Time
		if p.recoveryTick != nil {
			recoveryC = p.recoveryTick.C
		}

		select {
		case <-ctx.Done():
			return
		case n := <-p.in:
			p.handle(n, p.opts.Env.Time())
		case cmd := <-p.cmds:
			cmd()
		case <-debounce.C:
			p.flush(p.opts.Env.Time())
		case <-health.C:
			p.checkHealth(p.opts.Env.Time())
		case <-recoveryC:
			p.onRecoveryTick(ctx, p.opts.Env.Time())
		}
	}
}

// Subscribe registers a listener for applied events
func (p *Pipeline) Subscribe() chan Event {
	ch := make(chan Event, 64)
	p.mu.Lock()
	p.subs = append(p.subs, ch)
	p.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel
func (p *Pipeline) Unsubscribe(ch chan Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, sub := range p.subs {
		if sub == ch {
			p.subs = append(p.subs[:i], p.subs[i+1:]...)
			close(ch)
			break
		}
	}
}

// emit publishes ev from the loop, directly or through the dispatcher
func (p *Pipeline) emit(ev Event) {
	p.mu.RLock()
	dispatch := p.dispatch
	p.mu.RUnlock()

	if p.opts.NotifyOnMainThread || dispatch == nil {
		p.deliver(ev)
		return
	}
	select {
	case dispatch <- ev:
	default:
		p.log.Warn().Str("kind", string(ev.Kind)).Msg("Dispatch queue full, dropping event")
	}
}

func (p *Pipeline) dispatcher(in <-chan Event, done chan<- struct{}) {
	defer close(done)
	for ev := range in {
		p.deliver(ev)
	}
}

// deliver hands ev to every subscriber without blocking
func (p *Pipeline) deliver(ev Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, sub := range p.subs {
		select {
		case sub <- ev:
		default:
			// Skip if channel is full
		}
	}
}

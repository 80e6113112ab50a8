package atspi

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/events"
	"github.com/bryanchriswhite/tabscout/internal/logger"
)

// registeredEvents are the AT-SPI events the registry is asked to forward
var registeredEvents = []string{
	"window:create",
	"window:destroy",
	"window:activate",
	"window:move",
	"window:resize",
	"object:bounds-changed",
	"object:property-change:accessible-name",
	"object:state-changed:active",
	"object:children-changed",
}

var _ events.Source = (*Source)(nil)

// Source delivers AT-SPI signals as pipeline notifications. Window and
// object signals are matched per attached process; application lifecycle
// is watched on the registry for every process.
type Source struct {
	p   *Platform
	log *zerolog.Logger

	mu       sync.Mutex
	sink     chan<- events.Notification
	signals  chan *dbus.Signal
	attached map[int]string // pid -> bus name
	registry string         // unique name of the registry daemon
	stop     chan struct{}
	done     chan struct{}
}

// NewSource creates a notification source on p's connection
func NewSource(p *Platform) *Source {
	return &Source{
		p:        p,
		log:      logger.WithComponent("atspi-source"),
		attached: make(map[int]string),
	}
}

// Start registers for AT-SPI events and begins forwarding lifecycle
// notifications to sink
func (s *Source) Start(sink chan<- events.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return fmt.Errorf("source already started")
	}

	conn := s.p.conn
	var owner string
	if err := conn.BusObject().Call("org.freedesktop.DBus.GetNameOwner", 0, registryService).Store(&owner); err != nil {
		return fmt.Errorf("failed to find accessibility registry: %w", err)
	}

	registry := conn.Object(registryService, registryPath)
	for _, ev := range registeredEvents {
		if call := registry.Call(registryInterface+".RegisterEvent", 0, ev); call.Err != nil {
			s.log.Debug().Err(call.Err).Str("event", ev).Msg("Registry refused event registration")
		}
	}

	if err := conn.AddMatchSignal(lifecycleMatch(owner)...); err != nil {
		return fmt.Errorf("failed to watch application lifecycle: %w", err)
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		s.log.Warn().Err(err).Msg("Failed to watch bus name changes")
	}

	s.sink = sink
	s.registry = owner
	s.signals = make(chan *dbus.Signal, 256)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	conn.Signal(s.signals)

	go s.run(s.signals, s.stop, s.done)

	s.log.Info().Str("registry", owner).Msg("Watching accessibility events")
	return nil
}

// Attach subscribes to the window and object signals of pid
func (s *Source) Attach(pid int) error {
	bus, err := s.p.busFor(pid)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.attached[pid]; ok && cur == bus {
		return nil
	}
	for _, m := range processMatches(bus) {
		if err := s.p.conn.AddMatchSignal(m...); err != nil {
			return fmt.Errorf("failed to subscribe to process %d: %w", pid, err)
		}
	}
	s.attached[pid] = bus
	s.log.Debug().Int("pid", pid).Str("bus", bus).Msg("Attached")
	return nil
}

// Detach drops the subscriptions of pid
func (s *Source) Detach(pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bus, ok := s.attached[pid]
	if !ok {
		return
	}
	delete(s.attached, pid)
	for _, m := range processMatches(bus) {
		if err := s.p.conn.RemoveMatchSignal(m...); err != nil {
			s.log.Debug().Err(err).Int("pid", pid).Msg("Failed to remove signal match")
		}
	}
	s.log.Debug().Int("pid", pid).Msg("Detached")
}

// Stop stops forwarding and drops every subscription
func (s *Source) Stop() {
	s.mu.Lock()
	stop, done, signals := s.stop, s.done, s.signals
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}

	close(stop)
	<-done
	s.p.conn.RemoveSignal(signals)

	s.mu.Lock()
	pids := make([]int, 0, len(s.attached))
	for pid := range s.attached {
		pids = append(pids, pid)
	}
	registry := s.registry
	s.mu.Unlock()

	for _, pid := range pids {
		s.Detach(pid)
	}
	_ = s.p.conn.RemoveMatchSignal(lifecycleMatch(registry)...)
	s.log.Info().Msg("Stopped watching accessibility events")
}

func (s *Source) run(signals <-chan *dbus.Signal, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			n, ok := s.translate(sig)
			if !ok {
				continue
			}
			select {
			case s.sink <- n:
			case <-stop:
				return
			}
		}
	}
}

// translate turns a signal into a notification for a known process
func (s *Source) translate(sig *dbus.Signal) (events.Notification, bool) {
	s.mu.Lock()
	registry := s.registry
	s.mu.Unlock()

	d, ok := decode(sig, registry)
	if !ok {
		return events.Notification{}, false
	}
	n := events.Notification{Kind: d.kind, Key: string(d.path), Frame: d.frame, Title: d.title, At: time.Now()}

	switch d.kind {
	case events.KindAppLaunched:
		pid, err := s.p.pidOf(d.bus)
		if err != nil || pid <= 0 {
			return events.Notification{}, false
		}
		if _, err := s.p.Applications(); err != nil {
			s.log.Debug().Err(err).Msg("Failed to refresh applications")
		}
		n.PID = pid
		if app, ok := s.p.appFor(d.bus); ok {
			n.App = app
		}
		n.Key = ""
		return n, true
	case events.KindAppTerminated:
		pid, ok := s.p.cachedPID(d.bus)
		if !ok {
			return events.Notification{}, false
		}
		n.PID = pid
		n.App, _ = s.p.appFor(d.bus)
		n.Key = ""
		s.p.forget(d.bus)
		return n, true
	}

	pid, ok := s.attachedPID(d.bus)
	if !ok {
		return events.Notification{}, false
	}
	n.PID = pid
	return n, true
}

func (s *Source) attachedPID(bus string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pid, b := range s.attached {
		if b == bus {
			return pid, true
		}
	}
	return 0, false
}

func lifecycleMatch(registry string) []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchSender(registry),
		dbus.WithMatchObjectPath(rootPath),
		dbus.WithMatchInterface(objectEventInterface),
		dbus.WithMatchMember("ChildrenChanged"),
	}
}

func processMatches(bus string) [][]dbus.MatchOption {
	return [][]dbus.MatchOption{
		{dbus.WithMatchSender(bus), dbus.WithMatchInterface(windowEventInterface)},
		{dbus.WithMatchSender(bus), dbus.WithMatchInterface(objectEventInterface)},
	}
}

// decoded is a signal reduced to what the pipeline needs
type decoded struct {
	kind  events.Kind
	bus   string
	path  dbus.ObjectPath
	frame *ax.Rect
	title string
}

// decode classifies an AT-SPI or bus signal. registry is the unique name
// of the registry daemon, whose root announces applications.
func decode(sig *dbus.Signal, registry string) (decoded, bool) {
	if sig == nil {
		return decoded{}, false
	}
	d := decoded{bus: sig.Sender, path: sig.Path}
	detail, detail1 := eventDetail(sig.Body)

	switch sig.Name {
	case windowEventInterface + ".Create":
		d.kind = events.KindCreated
	case windowEventInterface + ".Destroy":
		d.kind = events.KindDestroyed
	case windowEventInterface + ".Activate":
		d.kind = events.KindFocusChanged
	case windowEventInterface + ".Move":
		d.kind = events.KindMoved
	case windowEventInterface + ".Resize":
		d.kind = events.KindResized
	case objectEventInterface + ".BoundsChanged":
		d.kind = events.KindMoved
		if r, ok := rectFrom(anyData(sig.Body)); ok {
			d.frame = &r
		}
	case objectEventInterface + ".PropertyChange":
		if detail != "accessible-name" {
			return decoded{}, false
		}
		d.kind = events.KindTitleChanged
		d.title, _ = anyData(sig.Body).(string)
	case objectEventInterface + ".StateChanged":
		if detail != "active" || detail1 != 1 {
			return decoded{}, false
		}
		d.kind = events.KindFocusChanged
	case objectEventInterface + ".ChildrenChanged":
		if registry == "" || sig.Sender != registry || sig.Path != rootPath {
			return decoded{}, false
		}
		app, ok := refFrom(anyData(sig.Body))
		if !ok || app.Bus == "" {
			return decoded{}, false
		}
		switch {
		case strings.HasPrefix(detail, "add"):
			d.kind = events.KindAppLaunched
		case strings.HasPrefix(detail, "remove"):
			d.kind = events.KindAppTerminated
		default:
			return decoded{}, false
		}
		d.bus, d.path = app.Bus, ""
	case "org.freedesktop.DBus.NameOwnerChanged":
		if len(sig.Body) < 3 {
			return decoded{}, false
		}
		name, _ := sig.Body[0].(string)
		newOwner, _ := sig.Body[2].(string)
		if !strings.HasPrefix(name, ":") || newOwner != "" {
			return decoded{}, false
		}
		d.kind = events.KindAppTerminated
		d.bus, d.path = name, ""
	default:
		return decoded{}, false
	}
	return d, true
}

// eventDetail returns the detail string and first detail integer of an
// AT-SPI event body (siiv...)
func eventDetail(body []any) (string, int32) {
	var detail string
	var detail1 int32
	if len(body) > 0 {
		detail, _ = body[0].(string)
	}
	if len(body) > 1 {
		detail1, _ = body[1].(int32)
	}
	return detail, detail1
}

// anyData unwraps the variant payload of an AT-SPI event body
func anyData(body []any) any {
	if len(body) < 4 {
		return nil
	}
	if v, ok := body[3].(dbus.Variant); ok {
		return v.Value()
	}
	return body[3]
}

// rectFrom decodes an (iiii) extents value
func rectFrom(v any) (ax.Rect, bool) {
	parts, ok := v.([]any)
	if !ok || len(parts) != 4 {
		return ax.Rect{}, false
	}
	var f [4]float64
	for i, p := range parts {
		n, ok := p.(int32)
		if !ok {
			return ax.Rect{}, false
		}
		f[i] = float64(n)
	}
	return ax.Rect{X: f[0], Y: f[1], Width: f[2], Height: f[3]}.Sanitize(), true
}

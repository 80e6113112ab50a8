// Package atspi implements ax.Platform and events.Source over the AT-SPI2
// accessibility bus, the UI-automation interface of Linux desktops.
//
// Elements are D-Bus objects owned by the application's connection on the
// accessibility bus. An element's Key is its object path; the owning bus
// name is found from the process id.
package atspi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/logger"
)

// AT-SPI D-Bus constants
const (
	a11yBusService   = "org.a11y.Bus"
	a11yBusPath      = "/org/a11y/bus"
	a11yBusInterface = "org.a11y.Bus"

	registryService   = "org.a11y.atspi.Registry"
	registryPath      = "/org/a11y/atspi/registry"
	registryInterface = "org.a11y.atspi.Registry"

	rootPath dbus.ObjectPath = "/org/a11y/atspi/accessible/root"
	nullPath dbus.ObjectPath = "/org/a11y/atspi/null"

	accessibleInterface  = "org.a11y.atspi.Accessible"
	componentInterface   = "org.a11y.atspi.Component"
	actionInterface      = "org.a11y.atspi.Action"
	textInterface        = "org.a11y.atspi.Text"
	valueInterface       = "org.a11y.atspi.Value"
	windowEventInterface = "org.a11y.atspi.Event.Window"
	objectEventInterface = "org.a11y.atspi.Event.Object"

	coordTypeScreen    uint32 = 0
	relationLabelledBy uint32 = 2
)

// callTimeout bounds every round trip to an application
const callTimeout = 2 * time.Second

// node is an accessible object
type node struct {
	bus  string
	path dbus.ObjectPath
}

func (n node) Key() string { return string(n.path) }

// ref is the (so) reference AT-SPI uses for objects
type ref struct {
	Bus  string
	Path dbus.ObjectPath
}

func (r ref) node() (node, bool) {
	if r.Bus == "" || r.Path == "" || r.Path == nullPath {
		return node{}, false
	}
	return node{bus: r.Bus, path: r.Path}, true
}

// Platform is the AT-SPI2 automation interface
type Platform struct {
	conn *dbus.Conn
	log  *zerolog.Logger

	mu    sync.RWMutex
	pids  map[string]int // bus name -> pid
	buses map[int]string // pid -> bus name
	apps  map[int]ax.App
	roles map[node]string
}

// Connect finds the accessibility bus through the session bus and connects
// to it
func Connect() (*Platform, error) {
	session, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer session.Close()

	var addr string
	if err := session.Object(a11yBusService, a11yBusPath).
		Call(a11yBusInterface+".GetAddress", 0).Store(&addr); err != nil {
		return nil, fmt.Errorf("failed to locate accessibility bus: %w", err)
	}

	conn, err := dbus.Connect(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to accessibility bus: %w", err)
	}

	logger.WithComponent("atspi").Info().Str("address", addr).Msg("Connected to accessibility bus")
	return New(conn), nil
}

// New wraps an established accessibility bus connection
func New(conn *dbus.Conn) *Platform {
	return &Platform{
		conn:  conn,
		log:   logger.WithComponent("atspi"),
		pids:  make(map[string]int),
		buses: make(map[int]string),
		apps:  make(map[int]ax.App),
		roles: make(map[node]string),
	}
}

// Close closes the bus connection
func (p *Platform) Close() error {
	return p.conn.Close()
}

func (p *Platform) call(n node, method string, out any, args ...any) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	c := p.conn.Object(n.bus, n.path).CallWithContext(ctx, method, 0, args...)
	if c.Err != nil {
		return mapError(c.Err)
	}
	if out == nil {
		return nil
	}
	if err := c.Store(out); err != nil {
		return fmt.Errorf("%w: %v", ax.ErrTypeMismatch, err)
	}
	return nil
}

func (p *Platform) property(n node, name string) (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	var v dbus.Variant
	err := p.conn.Object(n.bus, n.path).
		CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, interfaceOf(name), memberOf(name)).
		Store(&v)
	if err != nil {
		return nil, mapError(err)
	}
	return v.Value(), nil
}

func interfaceOf(name string) string {
	return name[:strings.LastIndex(name, ".")]
}

func memberOf(name string) string {
	return name[strings.LastIndex(name, ".")+1:]
}

// mapError folds D-Bus errors onto the ax error vocabulary
func mapError(err error) error {
	name := ""
	var de dbus.Error
	var dep *dbus.Error
	switch {
	case errors.As(err, &de):
		name = de.Name
	case errors.As(err, &dep):
		name = dep.Name
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ax.ErrCannotComplete, err)
	}
	switch {
	case strings.HasSuffix(name, ".UnknownMethod"),
		strings.HasSuffix(name, ".UnknownInterface"),
		strings.HasSuffix(name, ".UnknownProperty"),
		strings.HasSuffix(name, ".NotSupported"):
		return fmt.Errorf("%w: %v", ax.ErrUnsupported, err)
	case strings.HasSuffix(name, ".UnknownObject"),
		strings.HasSuffix(name, ".ServiceUnknown"),
		strings.HasSuffix(name, ".NameHasNoOwner"):
		return fmt.Errorf("%w: %v", ax.ErrInvalidElement, err)
	}
	return fmt.Errorf("%w: %v", ax.ErrCannotComplete, err)
}

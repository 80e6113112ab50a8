package display

import (
	"fmt"
	"sync"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xinerama"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/logger"
)

// stackTTL bounds how long a stacking snapshot is reused; a discovery pass
// places many windows in a burst
const stackTTL = 250 * time.Millisecond

const buttonMask = xproto.KeyButMaskButton1 | xproto.KeyButMaskButton2 |
	xproto.KeyButMaskButton3 | xproto.KeyButMaskButton4 | xproto.KeyButMaskButton5

// Manager reads screens, stacking order and pointer state from the X server
type Manager struct {
	conn   *xgb.Conn
	root   xproto.Window
	screen *xproto.ScreenInfo
	log    *zerolog.Logger

	mu        sync.Mutex
	atoms     map[string]xproto.Atom
	screens   []Screen
	stack     []StackEntry
	stackedAt time.Time
	xinerama  bool
}

// NewManager connects to the X server named by $DISPLAY
func NewManager() (*Manager, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	m := &Manager{
		conn:   conn,
		root:   screen.Root,
		screen: screen,
		log:    logger.WithComponent("display"),
		atoms:  make(map[string]xproto.Atom),
	}

	if err := xinerama.Init(conn); err != nil {
		m.log.Debug().Err(err).Msg("Xinerama unavailable, using the root window as the only screen")
	} else {
		m.xinerama = true
	}

	if _, err := m.RefreshScreens(); err != nil {
		m.log.Warn().Err(err).Msg("Failed to read screens")
	}
	return m, nil
}

// Close closes the X connection
func (m *Manager) Close() {
	m.conn.Close()
}

// RefreshScreens re-reads the monitor layout
func (m *Manager) RefreshScreens() ([]Screen, error) {
	var screens []Screen
	if m.xinerama {
		reply, err := xinerama.QueryScreens(m.conn).Reply()
		if err != nil {
			return nil, fmt.Errorf("failed to query xinerama screens: %w", err)
		}
		for i, s := range reply.ScreenInfo {
			screens = append(screens, Screen{
				Index: i,
				Bounds: ax.Rect{
					X:      float64(s.XOrg),
					Y:      float64(s.YOrg),
					Width:  float64(s.Width),
					Height: float64(s.Height),
				},
			})
		}
	}
	if len(screens) == 0 {
		screens = []Screen{{
			Index:  0,
			Bounds: ax.Rect{Width: float64(m.screen.WidthInPixels), Height: float64(m.screen.HeightInPixels)},
		}}
	}

	m.mu.Lock()
	m.screens = screens
	m.mu.Unlock()

	m.log.Debug().Int("count", len(screens)).Msg("Screens refreshed")
	return screens, nil
}

// Screens returns the last known monitor layout
func (m *Manager) Screens() []Screen {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Screen, len(m.screens))
	copy(out, m.screens)
	return out
}

// ScreenFor returns the index of the screen holding most of frame
func (m *Manager) ScreenFor(frame ax.Rect) int {
	return ScreenIndex(m.Screens(), frame)
}

// Bounds returns the bounds of screen i
func (m *Manager) Bounds(i int) (ax.Rect, bool) {
	return boundsOf(m.Screens(), i)
}

// ButtonsHeld reports whether any pointer button is down
func (m *Manager) ButtonsHeld() bool {
	reply, err := xproto.QueryPointer(m.conn, m.root).Reply()
	if err != nil {
		return false
	}
	return reply.Mask&buttonMask != 0
}

// StackIndex returns the stacking position of the window of pid at frame
func (m *Manager) StackIndex(pid int, frame ax.Rect) int {
	return StackPosition(m.stacking(), pid, frame)
}

// stacking returns the client windows bottom to top, from a snapshot no
// older than stackTTL
func (m *Manager) stacking() []StackEntry {
	m.mu.Lock()
	if m.stack != nil && time.Since(m.stackedAt) < stackTTL {
		stack := m.stack
		m.mu.Unlock()
		return stack
	}
	m.mu.Unlock()

	stack, err := m.readStacking()
	if err != nil {
		m.log.Debug().Err(err).Msg("Failed to read stacking order")
		return nil
	}

	m.mu.Lock()
	m.stack = stack
	m.stackedAt = time.Now()
	m.mu.Unlock()
	return stack
}

// readStacking reads _NET_CLIENT_LIST_STACKING and resolves each client's
// pid and root-relative frame
func (m *Manager) readStacking() ([]StackEntry, error) {
	atom, err := m.getAtom("_NET_CLIENT_LIST_STACKING")
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST_STACKING atom: %w", err)
	}
	reply, err := xproto.GetProperty(
		m.conn,
		false,
		m.root,
		atom,
		xproto.GetPropertyTypeAny,
		0,
		(1<<32)-1,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST_STACKING property: %w", err)
	}
	if reply.ValueLen == 0 {
		return nil, fmt.Errorf("_NET_CLIENT_LIST_STACKING is empty")
	}

	pidAtom, err := m.getAtom("_NET_WM_PID")
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_WM_PID atom: %w", err)
	}

	ids := cardinals(reply.Value)
	stack := make([]StackEntry, 0, len(ids))
	for _, id := range ids {
		win := xproto.Window(id)
		stack = append(stack, StackEntry{
			PID:   m.windowPID(win, pidAtom),
			Frame: m.windowFrame(win),
		})
	}
	return stack, nil
}

func (m *Manager) windowPID(win xproto.Window, pidAtom xproto.Atom) int {
	reply, err := xproto.GetProperty(
		m.conn,
		false,
		win,
		pidAtom,
		xproto.AtomCardinal,
		0,
		1,
	).Reply()
	if err != nil {
		return 0
	}
	if v := cardinals(reply.Value); len(v) > 0 {
		return int(v[0])
	}
	return 0
}

// windowFrame returns the frame of win in root coordinates
func (m *Manager) windowFrame(win xproto.Window) ax.Rect {
	geom, err := xproto.GetGeometry(m.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return ax.Rect{}
	}
	frame := ax.Rect{Width: float64(geom.Width), Height: float64(geom.Height)}
	tr, err := xproto.TranslateCoordinates(m.conn, win, m.root, 0, 0).Reply()
	if err == nil {
		frame.X, frame.Y = float64(tr.DstX), float64(tr.DstY)
	} else {
		frame.X, frame.Y = float64(geom.X), float64(geom.Y)
	}
	return frame
}

// getAtom gets an atom ID by name
func (m *Manager) getAtom(name string) (xproto.Atom, error) {
	m.mu.Lock()
	if a, ok := m.atoms[name]; ok {
		m.mu.Unlock()
		return a, nil
	}
	m.mu.Unlock()

	reply, err := xproto.InternAtom(m.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.atoms[name] = reply.Atom
	m.mu.Unlock()
	return reply.Atom, nil
}

// cardinals decodes a property value as little-endian 32-bit values
func cardinals(b []byte) []uint32 {
	out := make([]uint32, 0, len(b)/4)
	for i := 0; i+4 <= len(b); i += 4 {
		out = append(out, uint32(b[i])|
			uint32(b[i+1])<<8|
			uint32(b[i+2])<<16|
			uint32(b[i+3])<<24)
	}
	return out
}

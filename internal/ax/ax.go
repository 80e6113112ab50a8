// Package ax defines the UI-automation contract tabscout consumes and the
// defensive Accessor every other package reads the UI tree through.
//
// Backends (AT-SPI over D-Bus in production, synthetic trees in tests)
// implement Platform and translate their native vocabulary onto the role,
// attribute and action names declared here. Nothing outside a backend ever
// holds a raw platform handle; it holds a Node, which only exposes Key.
package ax

import "errors"

// Platform errors. The Accessor folds all of them into "absent".
var (
	ErrNoValue         = errors.New("ax: attribute has no value")
	ErrUnsupported     = errors.New("ax: attribute or action not supported")
	ErrInvalidElement  = errors.New("ax: element is no longer valid")
	ErrCannotComplete  = errors.New("ax: request could not be completed")
	ErrTypeMismatch    = errors.New("ax: attribute has unexpected type")
	ErrNoSuchProcess   = errors.New("ax: process not found")
	ErrNotImplemented  = errors.New("ax: not implemented by backend")
	ErrPermissionLimit = errors.New("ax: accessibility access denied")
)

// Node is an opaque, borrowed handle into another process's UI tree.
// Key is stable for the lifetime of the element and unique within its
// process; it is the only identity signal exposed.
type Node interface {
	Key() string
}

// App describes one running application instance.
type App struct {
	PID  int    `json:"pid"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Platform is the raw automation interface. Implementations may return any
// error; callers go through Accessor, which never propagates them.
type Platform interface {
	// Attribute reads a named attribute. Values are string, bool, int,
	// float64, Point, Size, Rect, Node or []Node.
	Attribute(n Node, name string) (any, error)
	SetAttribute(n Node, name string, value any) error
	PerformAction(n Node, action string) error
	PID(n Node) (int, error)
	// Application returns the root node of a running process.
	Application(pid int) (Node, error)
	// Resolve finds a live node of pid by its Key.
	Resolve(pid int, key string) (Node, error)
	Applications() ([]App, error)
}

// Attribute names
const (
	AttrRole             = "AXRole"
	AttrSubrole          = "AXSubrole"
	AttrTitle            = "AXTitle"
	AttrValue            = "AXValue"
	AttrDescription      = "AXDescription"
	AttrHelp             = "AXHelp"
	AttrIdentifier       = "AXIdentifier"
	AttrURL              = "AXURL"
	AttrTitleUIElement   = "AXTitleUIElement"
	AttrPosition         = "AXPosition"
	AttrSize             = "AXSize"
	AttrChildren         = "AXChildren"
	AttrNavigationOrder  = "AXChildrenInNavigationOrder"
	AttrVisibleChildren  = "AXVisibleChildren"
	AttrParent           = "AXParent"
	AttrWindows          = "AXWindows"
	AttrFocusedWindow    = "AXFocusedWindow"
	AttrMainWindow       = "AXMainWindow"
	AttrTabs             = "AXTabs"
	AttrMenuBar          = "AXMenuBar"
	AttrMenu             = "AXMenu"
	AttrFocused          = "AXFocused"
	AttrMain             = "AXMain"
	AttrMinimized        = "AXMinimized"
	AttrFullScreen       = "AXFullScreen"
	AttrHidden           = "AXHidden"
	AttrVisible          = "AXVisible"
	AttrSelected         = "AXSelected"
	AttrWindowNumber     = "AXWindowNumber"
	AttrApplicationTitle = "AXApplicationTitle"
)

// Role names
const (
	RoleApplication = "AXApplication"
	RoleWindow      = "AXWindow"
	RoleSheet       = "AXSheet"
	RoleDialog      = "AXDialog"
	RoleDrawer      = "AXDrawer"
	RoleGroup       = "AXGroup"
	RoleTabGroup    = "AXTabGroup"
	RoleTab         = "AXTab"
	RoleTabStrip    = "AXTabStrip"
	RoleRadioButton = "AXRadioButton"
	RoleButton      = "AXButton"
	RoleStaticText  = "AXStaticText"
	RoleTextField   = "AXTextField"
	RoleTextArea    = "AXTextArea"
	RoleScrollBar   = "AXScrollBar"
	RoleRuler       = "AXRuler"
	RoleToolbar     = "AXToolbar"
	RoleWebArea     = "AXWebArea"
	RoleMenuBar     = "AXMenuBar"
	RoleMenuBarItem = "AXMenuBarItem"
	RoleMenu        = "AXMenu"
	RoleMenuItem    = "AXMenuItem"
	RoleUnknown     = "AXUnknown"
)

// Subrole names
const (
	SubroleStandardWindow = "AXStandardWindow"
	SubroleDocumentWindow = "AXDocumentWindow"
	SubroleDialog         = "AXDialog"
	SubroleSystemDialog   = "AXSystemDialog"
	SubroleFloatingWindow = "AXFloatingWindow"
	SubroleUtilityWindow  = "AXUtilityWindow"
	SubroleSheet          = "AXSheet"
	SubroleTabButton      = "AXTabButton"
)

// Action names
const (
	ActionPress    = "AXPress"
	ActionRaise    = "AXRaise"
	ActionClose    = "AXClose"
	ActionZoom     = "AXZoom"
	ActionShowMenu = "AXShowMenu"
)

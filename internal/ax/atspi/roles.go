package atspi

import (
	"strings"

	"github.com/bryanchriswhite/tabscout/internal/ax"
)

// roleNames maps AT-SPI role names onto ax roles
var roleNames = map[string]string{
	"application":   ax.RoleApplication,
	"frame":         ax.RoleWindow,
	"window":        ax.RoleWindow,
	"dialog":        ax.RoleWindow,
	"alert":         ax.RoleWindow,
	"file chooser":  ax.RoleWindow,
	"color chooser": ax.RoleWindow,

	"page tab list":  ax.RoleTabGroup,
	"page tab":       ax.RoleRadioButton,
	"radio button":   ax.RoleRadioButton,
	"push button":    ax.RoleButton,
	"toggle button":  ax.RoleButton,
	"button":         ax.RoleButton,
	"panel":          ax.RoleGroup,
	"filler":         ax.RoleGroup,
	"section":        ax.RoleGroup,
	"grouping":       ax.RoleGroup,
	"scroll pane":    ax.RoleGroup,
	"split pane":     ax.RoleGroup,
	"viewport":       ax.RoleGroup,
	"layered pane":   ax.RoleGroup,
	"internal frame": ax.RoleGroup,

	"label":          ax.RoleStaticText,
	"static":         ax.RoleStaticText,
	"heading":        ax.RoleStaticText,
	"caption":        ax.RoleStaticText,
	"entry":          ax.RoleTextField,
	"password text":  ax.RoleTextField,
	"text":           ax.RoleTextArea,
	"terminal":       ax.RoleTextArea,
	"scroll bar":     ax.RoleScrollBar,
	"ruler":          ax.RoleRuler,
	"tool bar":       ax.RoleToolbar,
	"document web":   ax.RoleWebArea,
	"document frame": ax.RoleWebArea,
	"html container": ax.RoleWebArea,

	"menu bar":           ax.RoleMenuBar,
	"menu":               ax.RoleMenuItem,
	"menu item":          ax.RoleMenuItem,
	"check menu item":    ax.RoleMenuItem,
	"radio menu item":    ax.RoleMenuItem,
	"tear off menu item": ax.RoleMenuItem,
}

// dialogRoles are window roles that are not standard windows
var dialogRoles = map[string]string{
	"dialog":        ax.SubroleDialog,
	"file chooser":  ax.SubroleDialog,
	"color chooser": ax.SubroleDialog,
	"alert":         ax.SubroleSystemDialog,
}

// mapRole translates an AT-SPI role name to an ax role and subrole
func mapRole(name string) (role, subrole string) {
	name = strings.ToLower(strings.TrimSpace(name))
	role, ok := roleNames[name]
	if !ok {
		return ax.RoleUnknown, ""
	}
	switch {
	case role == ax.RoleWindow:
		if s, ok := dialogRoles[name]; ok {
			return role, s
		}
		return role, ax.SubroleStandardWindow
	case name == "page tab":
		return role, ax.SubroleTabButton
	}
	return role, ""
}

// isContainerMenu reports whether an AT-SPI role names a menu that holds
// its items as children
func isContainerMenu(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), "menu")
}

// AT-SPI state bits
const (
	stateActive    = 1
	stateDefunct   = 6
	stateFocused   = 12
	stateIconified = 15
	stateSelected  = 23
	stateShowing   = 25
	stateVisible   = 30
)

// stateSet is the two-word bitfield GetState returns
type stateSet []uint32

func (s stateSet) has(bit uint) bool {
	word := bit / 32
	if int(word) >= len(s) {
		return false
	}
	return s[word]&(1<<(bit%32)) != 0
}

// appID derives an application identifier from the name it registers
// with the accessibility registry
func appID(name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(id), "-")
}

package window

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// InvalidMarker in a stable ID requests recomputation
const InvalidMarker = "invalid"

// WindowID derives a window identity from the owning process and the
// element key.
func WindowID(pid int, key string) string {
	if pid <= 0 || key == "" {
		return ""
	}
	return fmt.Sprintf("win-%d-%016x", pid, xxhash.Sum64String(key))
}

// TabID derives a tab identity. The element key is used when it differs
// from the host's key; otherwise the developer identifier, and as a last
// resort the position of the tab under its host.
func TabID(pid int, hostID, hostKey, key, identifier string, index int) string {
	if pid <= 0 || hostID == "" {
		return ""
	}
	var signal string
	switch {
	case key != "" && key != hostKey:
		signal = "k:" + key
	case identifier != "":
		signal = "i:" + identifier
	case index >= 0:
		signal = "n:" + strconv.Itoa(index)
	default:
		return ""
	}
	h := xxhash.New()
	_, _ = h.WriteString(hostID)
	_, _ = h.WriteString("/")
	_, _ = h.WriteString(signal)
	return fmt.Sprintf("tab-%d-%016x", pid, h.Sum64())
}

// NeedsID reports whether id must be (re)computed
func NeedsID(id string) bool {
	return id == "" || strings.Contains(id, InvalidMarker)
}

// EnsureStableID assigns r an identity unless it already has a valid one.
// hostKey and identifier feed TabID for tab records. When no identity
// signal is available a random one is minted.
func EnsureStableID(r *Record, hostKey, identifier string) {
	if !NeedsID(r.StableID) {
		return
	}
	var id string
	if r.Type == TypeTab {
		idx := -1
		if r.TabIndex != nil {
			idx = *r.TabIndex
		}
		id = TabID(r.PID, r.ParentTabHostID, hostKey, r.NodeKey, identifier, idx)
		if id == "" {
			id = "tab-" + uuid.NewString()
		}
	} else {
		id = WindowID(r.PID, r.NodeKey)
		if id == "" {
			id = "win-" + uuid.NewString()
		}
	}
	r.StableID = id
}

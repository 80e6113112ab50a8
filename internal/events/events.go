// Package events turns raw automation notifications into cache mutations.
//
// A Source pushes Notifications onto a queue that a single loop goroutine
// drains. The loop owns every piece of mutable pipeline state: pending
// geometry changes, per-process attach states and the health clock. Move
// and resize notifications are debounced; focus, create, destroy and title
// notifications apply immediately. Applied changes are published to
// subscribers as Events.
package events

import (
	"time"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/window"
)

// Kind names a notification or applied event
type Kind string

const (
	KindMoved         Kind = "moved"
	KindResized       Kind = "resized"
	KindFocusChanged  Kind = "focus_changed"
	KindCreated       Kind = "created"
	KindDestroyed     Kind = "destroyed"
	KindTitleChanged  Kind = "title_changed"
	KindAppLaunched   Kind = "app_launched"
	KindAppTerminated Kind = "app_terminated"
	KindRecovered     Kind = "recovered"
)

// Notification is one raw observation from a Source. Key identifies the UI
// element the notification concerns; Frame and Title are optional payloads
// the backend may already carry.
type Notification struct {
	Kind  Kind
	PID   int
	Key   string
	App   ax.App
	Frame *ax.Rect
	Title string
	At    time.Time
}

// Event is an applied change, published to subscribers
type Event struct {
	Kind   Kind           `json:"kind"`
	ID     string         `json:"id,omitempty"`
	PID    int            `json:"pid,omitempty"`
	Record *window.Record `json:"record,omitempty"`
	At     time.Time      `json:"at"`
}

// Source delivers raw notifications from the automation backend
type Source interface {
	// Start begins delivering lifecycle notifications to sink. The source
	// must stop sending once Stop returns.
	Start(sink chan<- Notification) error
	// Attach subscribes to the window notifications of one process
	Attach(pid int) error
	// Detach drops the subscriptions of one process
	Detach(pid int)
	Stop()
}

// PointerState reports whether a pointer button is held, which defers
// geometry flushes until a drag completes
type PointerState interface {
	ButtonsHeld() bool
}

// AttachState is the subscription state of one monitored process
type AttachState string

const (
	Unattached AttachState = "unattached"
	Attached   AttachState = "attached"
	Detached   AttachState = "detached"
)

// HealthState is the global pipeline health
type HealthState string

const (
	Healthy  HealthState = "healthy"
	Degraded HealthState = "degraded"
)

// Health is a snapshot of the pipeline health
type Health struct {
	State      HealthState         `json:"state"`
	Attached   int                 `json:"attached"`
	Processes  map[int]AttachState `json:"processes"`
	LastEvent  time.Time           `json:"last_event"`
	Recoveries int                 `json:"recoveries"`
	Pending    int                 `json:"pending"`
	Running    bool                `json:"running"`
}

package controller

import (
	"sync"
	"time"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log"
)

var eventLog = logging.Logger("controller/events")

// Event types emitted by the controller's mutating operations.
const (
	EventConfigUpdated = "config_updated"
	EventEmergencyStop = "emergency_stop"
	EventMintCompleted = "mint_completed"
	EventWithdrawal    = "withdrawal"
	EventRigUpdated    = "rig_updated"
	EventRoleGranted   = "role_granted"
	EventRoleRevoked   = "role_revoked"
)

// Event is one structured change notification, the only observability
// surface the controller defines.
type Event struct {
	ID     string                 `json:"id"`
	Type   string                 `json:"type"`
	At     time.Time              `json:"at"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// Sink receives every emitted event.
type Sink interface {
	Emit(event Event)
}

// Recorder is the default sink: it logs each event and keeps a bounded ring
// of recent ones for the events API.
type Recorder struct {
	mu     sync.Mutex
	buf    []Event
	next   int
	filled bool
}

const recorderCapacity = 128

func NewRecorder() *Recorder {
	return &Recorder{buf: make([]Event, recorderCapacity)}
}

func (r *Recorder) Emit(event Event) {
	eventLog.Infow("event emitted", "type", event.Type, "id", event.ID, "fields", event.Fields)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = event
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.filled = true
	}
}

// Recent returns the recorded events, newest first.
func (r *Recorder) Recent() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.next
	if r.filled {
		n = len(r.buf)
	}
	out := make([]Event, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, r.buf[(r.next-i+len(r.buf))%len(r.buf)])
	}
	return out
}

func (c *Controller) emit(eventType string, fields map[string]interface{}) {
	if c.events == nil {
		return
	}
	c.events.Emit(Event{
		ID:     uuid.NewString(),
		Type:   eventType,
		At:     c.now(),
		Fields: fields,
	})
}

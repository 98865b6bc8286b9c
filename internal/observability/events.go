package observability

import (
	"sync"
	"time"

	"github.com/danmuck/arqlink/internal/protocol"
)

// EventKind names one observable step of the sender or receiver state machine.
type EventKind string

const (
	EventAttemptStarted     EventKind = "attempt_started"
	EventReplyReceived      EventKind = "reply_received"
	EventReplyTimeout       EventKind = "reply_timeout"
	EventDelivered          EventKind = "delivered"
	EventAbandoned          EventKind = "abandoned"
	EventCorruptionInjected EventKind = "corruption_injected"
	EventFrameMalformed     EventKind = "frame_malformed"
	EventIntegrityMismatch  EventKind = "integrity_mismatch"
	EventFrameAccepted      EventKind = "frame_accepted"
	EventFrameDuplicate     EventKind = "frame_duplicate"
)

type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// Event is one structured protocol observation. Fields that do not apply to a
// kind are left zero.
type Event struct {
	Kind        EventKind
	Role        Role
	SessionID   string
	Peer        string
	Sequence    protocol.Bit
	Attempt     int
	MaxAttempts int
	Payload     []byte
	Reply       string
	Err         error
	At          time.Time
}

// Observer receives protocol events. Implementations must not block.
type Observer interface {
	Observe(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) Observe(Event) {}

// Nop discards every event.
var Nop Observer = nopObserver{}

type multiObserver []Observer

func (m multiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}

// Multi fans events out to every non-nil observer in order.
func Multi(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return Nop
	case 1:
		return out[0]
	default:
		return out
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the recorded kinds in arrival order.
func (r *Recorder) Kinds() []EventKind {
	events := r.Events()
	out := make([]EventKind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func (r *Recorder) Count(kind EventKind) int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

package events

import (
	"log"
	"time"

	"github.com/streamgate/controller/internal/gate"
	"github.com/streamgate/controller/internal/params"
	"github.com/streamgate/controller/internal/stream"
)

// #region kinds

// Kind enumerates the event kinds the controller emits.
type Kind string

const (
	KindToken           Kind = "token"
	KindBacktrack       Kind = "backtrack"
	KindSegmentComplete Kind = "segment_complete"
	KindTerminate       Kind = "terminate"
	KindParamsAdjust    Kind = "params_adjust"
)

// #endregion kinds

// #region payloads

// TokenPayload accompanies every processed unit, whether kept or not.
type TokenPayload struct {
	Unit   stream.Unit
	Result gate.Result
}

// BacktrackPayload describes an executed rollback.
type BacktrackPayload struct {
	From    int
	To      int
	Removed int
	Reason  string
}

// SegmentPayload carries a completed segment.
type SegmentPayload struct {
	Segment stream.Segment
}

// TerminatePayload marks the end of the stream.
type TerminatePayload struct {
	Position int
	Reason   string
}

// ParamsPayload carries a parameter change that crossed the epsilon.
type ParamsPayload struct {
	Change params.Change
}

// #endregion payloads

// #region event

// Event is one published occurrence. Payloads hold copies of controller
// state; subscribers can never reach the live objects.
type Event struct {
	Kind      Kind
	Timestamp time.Time
	Payload   any
}

// #endregion event

// #region bus

// Subscriber receives events and reports failure by returning an error.
// A failing subscriber never affects the controller or other subscribers.
type Subscriber func(Event) error

type subscription struct {
	id int
	fn Subscriber
}

// Bus dispatches events to subscribers in registration order with an
// explicit result-collecting loop. Not safe for concurrent use; it lives
// inside the single-threaded controller.
type Bus struct {
	subs   []subscription
	nextID int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a subscriber and returns its id for removal.
func (b *Bus) Subscribe(fn Subscriber) int {
	b.nextID++
	b.subs = append(b.subs, subscription{id: b.nextID, fn: fn})
	return b.nextID
}

// Unsubscribe removes a subscriber; unknown ids are ignored.
func (b *Bus) Unsubscribe(id int) {
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers the event to every subscriber. Errors are logged and
// collected; delivery always continues.
func (b *Bus) Publish(e Event) []error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	var errs []error
	for _, s := range b.subs {
		if err := s.fn(e); err != nil {
			log.Printf("[EVENTS] subscriber %d failed on %s: %v", s.id, e.Kind, err)
			errs = append(errs, err)
		}
	}
	return errs
}

// #endregion bus

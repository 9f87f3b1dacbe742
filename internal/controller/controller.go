package controller

import (
	"errors"
	"log"

	"github.com/streamgate/controller/internal/coherence"
	"github.com/streamgate/controller/internal/confidence"
	"github.com/streamgate/controller/internal/events"
	"github.com/streamgate/controller/internal/gate"
	"github.com/streamgate/controller/internal/params"
	"github.com/streamgate/controller/internal/stance"
	"github.com/streamgate/controller/internal/stream"
	"github.com/streamgate/controller/internal/threshold"
)

// #region errors

// ErrStreamClosed is returned when a unit arrives after termination or
// completion. Termination is terminal; only queries remain valid.
var ErrStreamClosed = errors.New("stream is closed")

// #endregion errors

// #region config

// Config bundles every stage of the pipeline plus the adapter cadence.
type Config struct {
	Gate       gate.Config
	Coherence  coherence.Config
	Stream     stream.Config
	Threshold  threshold.Config
	Params     params.Config
	AdaptEvery int // processed units between threshold adapter runs
}

// DefaultConfig returns defaults for all pipeline stages.
func DefaultConfig() Config {
	return Config{
		Gate:       gate.DefaultConfig(),
		Coherence:  coherence.DefaultConfig(),
		Stream:     stream.DefaultConfig(),
		Threshold:  threshold.DefaultConfig(),
		Params:     params.DefaultConfig(),
		AdaptEvery: 10,
	}
}

// #endregion config

// #region decision

// Decision is returned synchronously per processed unit. Unit is non-nil
// only when the unit was kept (continue or warn).
type Decision struct {
	Result     gate.Result
	Unit       *stream.Unit
	Terminated bool
}

// #endregion decision

// #region controller

// Controller owns one stream and drives the scorer → evaluator → gate
// pipeline for it. Construct one per generation session and pass it by
// handle; there is no shared module-level state. Processing is
// single-threaded: one unit in, one decision out.
type Controller struct {
	config Config

	strm    *stream.Stream
	eval    *coherence.Evaluator
	gt      *gate.Gate
	adapter *threshold.Adapter
	pc      *params.Controller
	bus     *events.Bus

	stance       *stance.Stance
	context      string
	messageCount int
	sinceAdapt   int
}

// New creates a caller-owned controller with a fresh stream.
func New(config Config) *Controller {
	return &Controller{
		config:  config,
		strm:    stream.New(config.Stream),
		eval:    coherence.NewEvaluator(config.Coherence),
		gt:      gate.NewGate(config.Gate),
		adapter: threshold.NewAdapter(config.Threshold),
		pc:      params.NewController(config.Params),
		bus:     events.NewBus(),
	}
}

// Subscribe registers an event subscriber; returns the id for removal.
func (c *Controller) Subscribe(fn events.Subscriber) int {
	return c.bus.Subscribe(fn)
}

// Unsubscribe removes an event subscriber.
func (c *Controller) Unsubscribe(id int) {
	c.bus.Unsubscribe(id)
}

// #endregion controller

// #region context-updates

// UpdateContext installs fresh stance and conversation context and runs
// the threshold adapter immediately (the caller-invoked slow cadence).
func (c *Controller) UpdateContext(st stance.Stance, conversation string, messageCount int) threshold.State {
	clone := st.Clone()
	c.stance = &clone
	c.context = conversation
	c.messageCount = messageCount
	return c.runAdapter()
}

func (c *Controller) runAdapter() threshold.State {
	ctx := threshold.Context{MessageCount: c.messageCount}
	if c.stance != nil {
		ctx.Drift = c.stance.CumulativeDrift
		ctx.Frame = c.stance.Frame
		ctx.Operators = c.stance.Operators
	}
	state := c.adapter.Update(ctx)
	c.gt.SetFloor(state.Floor)
	c.sinceAdapt = 0
	return state
}

// #endregion context-updates

// #region process-unit

// ProcessUnit drives one unit through the full pipeline and returns the
// gate's decision. The state transition is atomic from a subscriber's
// point of view: events fire only after the stream is consistent.
func (c *Controller) ProcessUnit(in confidence.UnitInput) (Decision, error) {
	if c.strm.Terminated() {
		return Decision{}, ErrStreamClosed
	}

	score, err := confidence.ScoreUnit(in)
	if err != nil {
		return Decision{}, err
	}

	coh := c.eval.Evaluate(in.Text, c.strm.Content(), c.context, c.stance)
	res := c.gt.Evaluate(c.strm.UnitCount(), score.Confidence, coh)

	unit := stream.Unit{
		Position:     c.strm.UnitCount(),
		Text:         in.Text,
		Confidence:   score.Confidence,
		LocalScore:   coh.Local,
		GlobalScore:  coh.Global,
		Combined:     coh.Combined,
		Flags:        res.Flags,
		Alternatives: score.Alternatives,
	}

	switch res.Action {
	case gate.ActionContinue, gate.ActionWarn:
		return c.acceptUnit(unit, res)
	case gate.ActionBacktrack:
		return c.executeBacktrack(unit, res)
	case gate.ActionTerminate:
		return c.terminate(unit, res)
	}
	return Decision{Result: res}, nil
}

func (c *Controller) acceptUnit(unit stream.Unit, res gate.Result) (Decision, error) {
	appended, err := c.strm.Append(unit)
	if err != nil {
		return Decision{}, err
	}

	c.pc.ObserveUnit(appended.Confidence)
	c.publish(events.KindToken, events.TokenPayload{Unit: appended.Clone(), Result: res})

	if c.strm.SegmentBoundaryDue() {
		if seg, ok := c.strm.CompleteSegment(); ok {
			c.publish(events.KindSegmentComplete, events.SegmentPayload{Segment: seg})
		}
	}

	c.sinceAdapt++
	if c.config.AdaptEvery > 0 && c.sinceAdapt >= c.config.AdaptEvery {
		c.runAdapter()
	}

	c.deriveParams("unit accepted")

	out := appended.Clone()
	return Decision{Result: res, Unit: &out}, nil
}

func (c *Controller) executeBacktrack(unit stream.Unit, res gate.Result) (Decision, error) {
	// the failing unit is never admitted; the stream rewinds beneath it
	from := c.strm.UnitCount()
	if res.BacktrackTo >= from {
		// nothing behind the failing unit to remove: rejecting it is the
		// whole rollback
		c.eval.ResetBuffer(c.strm.OpenSegmentTexts())
		c.gt.Rebuild(survivingScores(c.strm.Units()))
		c.pc.ObserveBacktrack()
		c.publish(events.KindToken, events.TokenPayload{Unit: unit.Clone(), Result: res})
		c.publish(events.KindBacktrack, events.BacktrackPayload{
			From:   from,
			To:     from,
			Reason: res.Reason,
		})
		c.deriveParams("backtrack executed")
		return Decision{Result: res}, nil
	}
	effective, removed, err := c.strm.Backtrack(res.BacktrackTo)
	if err != nil {
		// rollback unavailable: keep the stream intact and surface the
		// decision so the producer can react
		log.Printf("[CTRL] backtrack to %d failed: %v", res.BacktrackTo, err)
		return Decision{Result: res}, err
	}

	c.eval.ResetBuffer(c.strm.OpenSegmentTexts())
	c.gt.Rebuild(survivingScores(c.strm.Units()))
	c.pc.ObserveBacktrack()

	c.publish(events.KindToken, events.TokenPayload{Unit: unit.Clone(), Result: res})
	c.publish(events.KindBacktrack, events.BacktrackPayload{
		From:    from,
		To:      effective,
		Removed: len(removed),
		Reason:  res.Reason,
	})

	c.deriveParams("backtrack executed")
	return Decision{Result: res}, nil
}

func (c *Controller) terminate(unit stream.Unit, res gate.Result) (Decision, error) {
	position := c.strm.UnitCount()
	if seg, ok := c.strm.CompleteSegment(); ok {
		c.publish(events.KindSegmentComplete, events.SegmentPayload{Segment: seg})
	}
	c.strm.Terminate()
	c.gt.Terminate()

	c.publish(events.KindToken, events.TokenPayload{Unit: unit.Clone(), Result: res})
	c.publish(events.KindTerminate, events.TerminatePayload{Position: position, Reason: res.Reason})

	return Decision{Result: res, Terminated: true}, nil
}

func (c *Controller) deriveParams(reason string) {
	_, change := c.pc.Derive(c.stance, nil, c.adapter.State())
	if change != nil {
		change.Reason = reason
		c.publish(events.KindParamsAdjust, events.ParamsPayload{Change: *change})
	}
}

func (c *Controller) publish(kind events.Kind, payload any) {
	c.bus.Publish(events.Event{Kind: kind, Payload: payload})
}

// survivingScores rebuilds gate score history from surviving units.
func survivingScores(units []stream.Unit) []gate.ScoreEntry {
	out := make([]gate.ScoreEntry, 0, len(units))
	for _, u := range units {
		out = append(out, gate.ScoreEntry{
			Position: u.Position,
			Score:    100 * u.Confidence * u.Combined,
		})
	}
	return out
}

// #endregion process-unit

// #region lifecycle

// Complete finishes the stream normally: flush the open segment, freeze
// the stream, mark the gate completed.
func (c *Controller) Complete() {
	if c.strm.Terminated() {
		return
	}
	if seg, ok := c.strm.CompleteSegment(); ok {
		c.publish(events.KindSegmentComplete, events.SegmentPayload{Segment: seg})
	}
	c.strm.Terminate()
	c.gt.Complete()
}

// Reset discards all stream state and starts a fresh session. Subscribers
// survive the reset.
func (c *Controller) Reset() {
	c.strm = stream.New(c.config.Stream)
	c.eval = coherence.NewEvaluator(c.config.Coherence)
	c.gt = gate.NewGate(c.config.Gate)
	c.adapter = threshold.NewAdapter(c.config.Threshold)
	c.pc.Reset()
	c.stance = nil
	c.context = ""
	c.sinceAdapt = 0
}

// #endregion lifecycle

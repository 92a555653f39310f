// Package orchestrator implements the Initialization Orchestrator
// (component C13): the startup finite-state machine that gates the
// Interceptor, Scrubber, and expiration cleanup until every earlier
// phase has completed, per spec.md §4.13.
//
// No teacher precedent in ble-cookiejar (a leaf library has no startup
// sequence); the publish/subscribe FSM shape here follows the corpus's
// general event-sourced state convention — closest in spirit to
// davseby-sessionup's manager.go lifecycle hooks and
// dmitrymomot-foundation's core/session doc-driven phase model, adapted
// into an explicit State enum with a transition log instead of an
// implicit session-status field, since the orchestrator is itself the
// thing other components gate on rather than a per-entity status.
package orchestrator

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// State is one node of the startup FSM, spec.md §4.13.
type State uint8

const (
	Loading State = iota
	PersistenceReady
	EntitlementReady
	RestoreReady
	ReattachmentReady
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Loading:
		return "Loading"
	case PersistenceReady:
		return "PersistenceReady"
	case EntitlementReady:
		return "EntitlementReady"
	case RestoreReady:
		return "RestoreReady"
	case ReattachmentReady:
		return "ReattachmentReady"
	case Ready:
		return "Ready"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// order is the only legal forward path; Orchestrator rejects any
// transition that skips a phase, except the universal move to Error.
var order = []State{Loading, PersistenceReady, EntitlementReady, RestoreReady, ReattachmentReady, Ready}

// Transition records one FSM move for the UI-facing transition log
// (SPEC_FULL.md "Orchestrator transition log").
type Transition struct {
	From, To State
	At       time.Time
	Err      error
}

// maxTransitionLog bounds the ring buffer of recorded transitions.
const maxTransitionLog = 64

// Orchestrator owns the current startup state and notifies subscribers
// of every transition.
type Orchestrator struct {
	mu          sync.Mutex
	state       State
	log         []Transition
	subscribers []chan<- Transition
	logger      *log.Entry
}

// New returns an Orchestrator in the Loading state.
func New(logger *log.Entry) *Orchestrator {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Orchestrator{
		state:  Loading,
		logger: logger.WithField("component", "orchestrator"),
	}
}

// State returns the current FSM state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Ready reports whether interception, scrubbing, and cleanup may act.
func (o *Orchestrator) Ready() bool {
	return o.State() == Ready
}

// Advance moves the FSM to the next phase in order. It refuses to skip a
// phase; callers drive phases one at a time as each subsystem finishes
// initializing.
func (o *Orchestrator) Advance(next State) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if next == Error {
		return o.transitionLocked(Error, nil)
	}

	idx := indexOf(o.state)
	nextIdx := indexOf(next)
	if idx < 0 || nextIdx != idx+1 {
		err := fmt.Errorf("orchestrator: illegal transition %s -> %s", o.state, next)
		o.logger.WithError(err).Error("rejected phase transition")
		return err
	}
	return o.transitionLocked(next, nil)
}

// Fail transitions directly to Error with the triggering cause recorded.
func (o *Orchestrator) Fail(cause error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_ = o.transitionLocked(Error, cause)
}

func (o *Orchestrator) transitionLocked(next State, err error) error {
	prev := o.state
	o.state = next
	t := Transition{From: prev, To: next, At: time.Now(), Err: err}
	o.log = append(o.log, t)
	if len(o.log) > maxTransitionLog {
		o.log = o.log[len(o.log)-maxTransitionLog:]
	}
	fields := log.Fields{"from": prev.String(), "to": next.String()}
	if err != nil {
		o.logger.WithFields(fields).WithError(err).Warn("orchestrator transition")
	} else {
		o.logger.WithFields(fields).Info("orchestrator transition")
	}
	for _, sub := range o.subscribers {
		select {
		case sub <- t:
		default:
		}
	}
	return nil
}

// Subscribe registers ch to receive every future transition. Sends are
// non-blocking; a slow subscriber misses transitions rather than
// stalling the orchestrator.
func (o *Orchestrator) Subscribe(ch chan<- Transition) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subscribers = append(o.subscribers, ch)
}

// TransitionLog returns a copy of the recorded transition history.
func (o *Orchestrator) TransitionLog() []Transition {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Transition, len(o.log))
	copy(out, o.log)
	return out
}

func indexOf(s State) int {
	for i, st := range order {
		if st == s {
			return i
		}
	}
	return -1
}

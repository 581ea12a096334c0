// Package gate owns the confirmation state machine: the single process-wide
// pending-action slot and the independent in-flight request guard. At most one
// proposed mutation awaits confirmation at any time; a new proposal arriving
// while one is pending is rejected with an explicit message rather than
// silently replacing a user-visible pending operation.
package gate

import (
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

// State of the confirmation machine.
type State string

const (
	StateIdle                 State = "idle"
	StateAwaitingConfirmation State = "awaiting_confirmation"
)

// ErrAlreadyPending is returned when a new proposal arrives while one is
// still awaiting confirmation.
var ErrAlreadyPending = errors.New("another action is awaiting confirmation; confirm or cancel it first")

// ErrNothingPending is returned when confirm or cancel arrives in Idle.
var ErrNothingPending = errors.New("no action is awaiting confirmation")

// ErrBusy is returned by the in-flight guard while a request is processing.
var ErrBusy = errors.New("still processing the previous request")

// Keyword vocabularies, matched exact after trimming and case folding.
var confirmWords = map[string]struct{}{
	"conferma": {}, "confermo": {}, "sì": {}, "si": {},
	"yes": {}, "confirm": {}, "ok": {}, "procedi": {},
}

var cancelWords = map[string]struct{}{
	"annulla": {}, "cancella": {}, "no": {},
	"cancel": {}, "stop": {}, "lascia": {},
}

// Keyword classifies a command body against the fixed vocabularies.
type Keyword int

const (
	KeywordNone Keyword = iota
	KeywordConfirm
	KeywordCancel
)

// ClassifyKeyword recognizes confirmation and cancellation keywords.
// Anything else is KeywordNone and flows through normal processing.
func ClassifyKeyword(body string) Keyword {
	word := strings.ToLower(strings.TrimSpace(body))
	if _, ok := confirmWords[word]; ok {
		return KeywordConfirm
	}
	if _, ok := cancelWords[word]; ok {
		return KeywordCancel
	}
	return KeywordNone
}

// Gate holds the pending slot and in-flight flag for one session. Both are
// shared mutable state; the mutex keeps them coherent even though the host
// delivers chat events one at a time.
type Gate struct {
	mu       sync.Mutex
	pending  *types.PendingConfirmation
	inflight bool
	logger   *zap.Logger
}

// New creates a gate in the Idle state.
func New(logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{logger: logger}
}

// State reports the current machine state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending != nil {
		return StateAwaitingConfirmation
	}
	return StateIdle
}

// Pending returns a copy of the pending confirmation, if any.
func (g *Gate) Pending() (types.PendingConfirmation, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return types.PendingConfirmation{}, false
	}
	return *g.pending, true
}

// Propose stores an action in the pending slot, transitioning to
// AwaitingConfirmation. Returns ErrAlreadyPending if the slot is occupied.
func (g *Gate) Propose(action types.ProposedAction, recap, transcriptRef string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending != nil {
		g.logger.Info("rejecting proposal while another is pending",
			zap.String("pending_kind", string(g.pending.Action.Kind)),
			zap.String("new_kind", string(action.Kind)))
		return ErrAlreadyPending
	}
	g.pending = &types.PendingConfirmation{
		Action:        action,
		RecapText:     recap,
		RequestedAt:   time.Now(),
		TranscriptRef: transcriptRef,
	}
	g.logger.Debug("action awaiting confirmation", zap.String("kind", string(action.Kind)))
	return nil
}

// Confirm consumes the pending slot for execution. The slot is cleared before
// the caller runs the executor, so the transition back to Idle holds
// regardless of the execution outcome.
func (g *Gate) Confirm() (types.PendingConfirmation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil {
		return types.PendingConfirmation{}, ErrNothingPending
	}
	pc := *g.pending
	g.pending = nil
	g.logger.Debug("action confirmed", zap.String("kind", string(pc.Action.Kind)))
	return pc, nil
}

// Cancel discards the pending slot.
func (g *Gate) Cancel() (types.PendingConfirmation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil {
		return types.PendingConfirmation{}, ErrNothingPending
	}
	pc := *g.pending
	g.pending = nil
	g.logger.Debug("action cancelled", zap.String("kind", string(pc.Action.Kind)))
	return pc, nil
}

// Begin claims the in-flight guard. Returns ErrBusy if a request is already
// processing. The guard is independent of the pending-confirmation slot: it
// protects against concurrent double-submission, not confirmation races.
func (g *Gate) Begin() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight {
		return ErrBusy
	}
	g.inflight = true
	return nil
}

// End releases the in-flight guard.
func (g *Gate) End() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inflight = false
}

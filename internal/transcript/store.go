// Package transcript implements the bounded append-only conversation history.
// The transcript is the unit of context for prompt building and the record of
// confirmed action outcomes. It persists as a JSON array under a single
// namespaced key in the host's world-scoped settings.
package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

// DefaultMaxHistory bounds total retention; oldest entries are evicted FIFO.
const DefaultMaxHistory = 100

// StorageKey is the namespaced settings key holding the persisted transcript.
const StorageKey = "ryoma.transcript"

// Store holds the conversation history for one session.
type Store struct {
	mu         sync.Mutex
	messages   []types.Message
	maxHistory int
	settings   types.SettingsStore // nil disables persistence
	logger     *zap.Logger
}

// New creates a transcript store. settings may be nil for an in-memory-only
// transcript. maxHistory <= 0 selects DefaultMaxHistory.
func New(settings types.SettingsStore, maxHistory int, logger *zap.Logger) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		maxHistory: maxHistory,
		settings:   settings,
		logger:     logger,
	}
	s.load()
	return s
}

// Append records a message, evicting the oldest entries once the retention
// bound is exceeded. The bound is enforced on every append.
func (s *Store) Append(msg types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.messages = append(s.messages, msg)
	if over := len(s.messages) - s.maxHistory; over > 0 {
		s.messages = s.messages[over:]
	}
	s.persist()
}

// Recent returns the most recent n messages in chronological order.
func (s *Store) Recent(n int) []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || len(s.messages) == 0 {
		return nil
	}
	if n > len(s.messages) {
		n = len(s.messages)
	}
	out := make([]types.Message, n)
	copy(out, s.messages[len(s.messages)-n:])
	return out
}

// Full returns up to limit messages from the start of retained history.
// limit <= 0 returns everything retained.
func (s *Store) Full(limit int) []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.messages)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]types.Message, n)
	copy(out, s.messages[:n])
	return out
}

// Len returns the number of retained messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Clear discards all retained history.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.persist()
}

// SummarizeOlderActions renders one short clause per action outcome found in
// messages older than the kept window. Plain conversational turns outside the
// window are dropped entirely, keeping prompt growth bounded across long
// sessions.
func (s *Store) SummarizeOlderActions(keepRecentCount int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keepRecentCount < 0 {
		keepRecentCount = 0
	}
	cut := len(s.messages) - keepRecentCount
	if cut <= 0 {
		return ""
	}

	var clauses []string
	for _, msg := range s.messages[:cut] {
		outcome, ok := msg.Outcome()
		if !ok {
			continue
		}
		clauses = append(clauses, renderOutcomeClause(outcome))
	}
	return strings.Join(clauses, "; ")
}

func renderOutcomeClause(o types.ActionOutcome) string {
	name := o.EntityName
	if name == "" {
		name = o.EntityRef
	}
	if name == "" {
		name = "an entity"
	}
	switch o.Status {
	case types.OutcomeCompleted:
		return fmt.Sprintf("created or updated %s", name)
	case types.OutcomeCancelled:
		return fmt.Sprintf("cancelled a change to %s", name)
	case types.OutcomeFailed:
		return fmt.Sprintf("failed to change %s", name)
	default:
		return fmt.Sprintf("acted on %s", name)
	}
}

// load hydrates retained history from the settings store. Entries missing a
// role or content are skipped; there is no schema versioning.
func (s *Store) load() {
	if s.settings == nil {
		return
	}
	raw, ok := s.settings.Get(StorageKey)
	if !ok || raw == "" {
		return
	}

	var stored []types.Message
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn("discarding unreadable stored transcript", zap.Error(err))
		return
	}
	for _, msg := range stored {
		if msg.Role == "" || msg.Content == "" {
			continue
		}
		s.messages = append(s.messages, msg)
	}
	if over := len(s.messages) - s.maxHistory; over > 0 {
		s.messages = s.messages[over:]
	}
}

// persist writes retained history back to the settings store. Callers hold mu.
func (s *Store) persist() {
	if s.settings == nil {
		return
	}
	data, err := json.Marshal(s.messages)
	if err != nil {
		s.logger.Warn("failed to serialize transcript", zap.Error(err))
		return
	}
	if err := s.settings.Set(StorageKey, string(data)); err != nil {
		s.logger.Warn("failed to persist transcript", zap.Error(err))
	}
}

package types

import (
	"time"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of the conversation transcript.
// Messages are immutable once appended; ordering is insertion order.
type Message struct {
	Role      Role                   `json:"role"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	AuthorID  string                 `json:"author_id,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Outcome returns the action outcome attached to the message, if any.
// Outcomes are stored under the "outcome" metadata key by the executor.
func (m Message) Outcome() (ActionOutcome, bool) {
	raw, ok := m.Metadata["outcome"]
	if !ok {
		return ActionOutcome{}, false
	}
	switch v := raw.(type) {
	case ActionOutcome:
		return v, true
	case map[string]interface{}:
		out := ActionOutcome{}
		if s, ok := v["status"].(string); ok {
			out.Status = OutcomeStatus(s)
		}
		if s, ok := v["entity_ref"].(string); ok {
			out.EntityRef = s
		}
		if s, ok := v["entity_name"].(string); ok {
			out.EntityName = s
		}
		if s, ok := v["error"].(string); ok {
			out.ErrorMessage = s
		}
		return out, out.Status != ""
	default:
		return ActionOutcome{}, false
	}
}

// Context is the ephemeral prompt context rebuilt for every request.
type Context struct {
	HistoryWindow      []Message           // most-recent-N, chronological
	PartySummary       string              // one line per configured party member
	AvailableLibraries map[string][]string // category -> library names
	ActionDigest       string              // lossy summary of older action outcomes
}

// ActionKind discriminates the mutation a ProposedAction performs.
type ActionKind string

const (
	ActionCreateEntity    ActionKind = "create_entity"
	ActionModifyEntity    ActionKind = "modify_entity"
	ActionCreateSubEntity ActionKind = "create_sub_entity"
)

// ProposedAction is a single mutation the model asked for. It is produced by
// the interpreter and consumed exactly once by the confirmation gate.
type ProposedAction struct {
	Kind         ActionKind             `json:"kind"`
	TargetID     string                 `json:"target_id,omitempty"` // required for ActionModifyEntity
	Payload      map[string]interface{} `json:"payload"`
	SourceCallID string                 `json:"source_call_id,omitempty"`
}

// PendingConfirmation is the single process-wide slot holding a proposed
// mutation until the user confirms or cancels it.
type PendingConfirmation struct {
	Action        ProposedAction
	RecapText     string
	RequestedAt   time.Time
	TranscriptRef string // id of the transcript message that carried the proposal
}

// IntentKind tags the normalized model output.
type IntentKind string

const (
	IntentPlainReply     IntentKind = "plain_reply"
	IntentActionProposal IntentKind = "action_proposal"
	IntentInfoQuery      IntentKind = "info_query"
)

// Intent is the canonical normalized model output. Exactly one shape is
// populated depending on Kind: Text for PlainReply, Text+Actions for
// ActionProposal, Calls for InfoQuery.
type Intent struct {
	Kind    IntentKind
	Text    string
	Actions []ProposedAction
	Calls   []ToolCall
}

// OutcomeStatus is the terminal state of an executed (or discarded) action.
type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeCancelled OutcomeStatus = "cancelled"
	OutcomeFailed    OutcomeStatus = "failed"
)

// ActionOutcome is recorded into the transcript as action metadata so later
// context builds can refer back to what was created or changed.
type ActionOutcome struct {
	Status       OutcomeStatus `json:"status"`
	EntityRef    string        `json:"entity_ref,omitempty"`
	EntityName   string        `json:"entity_name,omitempty"`
	ErrorMessage string        `json:"error,omitempty"`
	SourceCallID string        `json:"source_call_id,omitempty"`
}

// Entity is a persisted game object managed by the external document store.
// The core treats the payload as opaque beyond id, kind and name.
type Entity struct {
	ID    string                 `json:"id"`
	Kind  string                 `json:"kind"` // "actor" or "item"
	Name  string                 `json:"name"`
	Data  map[string]interface{} `json:"data"`
	Items []SubItem              `json:"items,omitempty"`
}

// SubItem is a nested entity attached to a parent entity, e.g. a weapon on a
// creature.
type SubItem struct {
	Name   string                 `json:"name"`
	Source string                 `json:"source,omitempty"` // library name when cloned, empty when synthesized
	Data   map[string]interface{} `json:"data,omitempty"`
}

// EntityPatch is a sparse update applied to an existing entity.
type EntityPatch struct {
	Name        string                 `json:"name,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
	AddItems    []SubItem              `json:"add_items,omitempty"`
	RemoveItems []string               `json:"remove_items,omitempty"` // by exact case-insensitive name
}

// LibraryEntry is a reference entity inside a content library.
type LibraryEntry struct {
	Name    string                 `json:"name"`
	Library string                 `json:"library"`
	Data    map[string]interface{} `json:"data"`
}

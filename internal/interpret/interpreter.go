// Package interpret normalizes raw model replies into a single canonical
// Intent, regardless of which gateway operating mode produced them. Structured
// tool invocations and the delimited-JSON fallback protocol are two parsing
// strategies behind one Parse entry point; no other component branches on the
// protocol mode.
package interpret

import (
	"go.uber.org/zap"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/gateway"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

// Interpreter maps raw model replies onto the Intent union.
type Interpreter struct {
	logger *zap.Logger
}

// New creates an interpreter.
func New(logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{logger: logger}
}

// Parse normalizes a raw reply. Replies carrying structured tool invocations
// take the structured path; everything else goes through the marker-protocol
// fallback scan of the text.
func (i *Interpreter) Parse(reply *types.LLMToolResponse) types.Intent {
	if reply == nil {
		return types.Intent{Kind: types.IntentPlainReply}
	}
	if len(reply.ToolCalls) > 0 {
		return i.parseStructured(reply)
	}
	return i.parseFallback(reply.Text)
}

// parseStructured classifies structured tool invocations. Mutating calls win:
// a reply containing any create/modify invocation becomes an ActionProposal
// and its read-only calls are dropped. Replies with only read-only calls
// become an InfoQuery. Unknown tool names are logged and skipped.
func (i *Interpreter) parseStructured(reply *types.LLMToolResponse) types.Intent {
	var actions []types.ProposedAction
	var reads []types.ToolCall

	for _, call := range reply.ToolCalls {
		switch {
		case gateway.IsMutatingTool(call.Name):
			actions = append(actions, translateMutation(call))
		case gateway.IsReadOnlyTool(call.Name):
			reads = append(reads, call)
		default:
			i.logger.Warn("skipping unknown tool invocation", zap.String("tool", call.Name))
		}
	}

	if len(actions) > 0 {
		return types.Intent{
			Kind:    types.IntentActionProposal,
			Text:    reply.Text,
			Actions: actions,
		}
	}
	if len(reads) > 0 {
		return types.Intent{
			Kind:  types.IntentInfoQuery,
			Text:  reply.Text,
			Calls: reads,
		}
	}
	return types.Intent{Kind: types.IntentPlainReply, Text: reply.Text}
}

// translateMutation converts a mutating tool invocation into a ProposedAction.
// The kind follows the invocation name; the target reference is taken from the
// uuid parameter for modify operations.
func translateMutation(call types.ToolCall) types.ProposedAction {
	action := types.ProposedAction{
		Payload:      call.Input,
		SourceCallID: call.ID,
	}
	switch call.Name {
	case gateway.ToolModifyEntity:
		action.Kind = types.ActionModifyEntity
		if uuid, ok := call.Input["uuid"].(string); ok {
			action.TargetID = uuid
		}
	default:
		action.Kind = types.ActionCreateEntity
	}
	return action
}

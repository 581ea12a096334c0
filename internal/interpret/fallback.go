package interpret

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

// Marker pair for the text-delimited fallback protocol. The system prompt
// instructs the model to emit human-readable recap text followed by a JSON
// object wrapped in these literal markers.
const (
	MarkerStart = "<<<RYOMA>>>"
	MarkerEnd   = "<<<END>>>"
)

// markerPayload is the JSON object enclosed in the marker pair.
type markerPayload struct {
	Action string                 `json:"action"`
	Data   map[string]interface{} `json:"data"`
}

// parseFallback scans text for the first marker pair. Absent or incomplete
// markers yield a PlainReply with the full text. A well-formed block yields an
// ActionProposal whose displayed text has the block excised. Malformed JSON
// inside the markers degrades to a PlainReply carrying the original unmodified
// text; the model's words are never silently swallowed.
func (i *Interpreter) parseFallback(text string) types.Intent {
	start := strings.Index(text, MarkerStart)
	if start == -1 {
		return types.Intent{Kind: types.IntentPlainReply, Text: text}
	}
	rest := text[start+len(MarkerStart):]
	end := strings.Index(rest, MarkerEnd)
	if end == -1 {
		return types.Intent{Kind: types.IntentPlainReply, Text: text}
	}

	enclosed := rest[:end]
	var payload markerPayload
	if err := json.Unmarshal([]byte(enclosed), &payload); err != nil {
		perr := &types.ParseError{Message: err.Error()}
		i.logger.Warn("malformed marker block, degrading to plain reply", zap.Error(perr))
		return types.Intent{Kind: types.IntentPlainReply, Text: text}
	}
	kind, ok := actionKindFor(payload.Action)
	if !ok {
		i.logger.Warn("marker block with unknown action, degrading to plain reply",
			zap.String("action", payload.Action))
		return types.Intent{Kind: types.IntentPlainReply, Text: text}
	}

	displayed := strings.TrimSpace(text[:start] + rest[end+len(MarkerEnd):])

	action := types.ProposedAction{
		Kind:    kind,
		Payload: payload.Data,
	}
	if uuid, ok := payload.Data["uuid"].(string); ok {
		action.TargetID = uuid
	}

	return types.Intent{
		Kind:    types.IntentActionProposal,
		Text:    displayed,
		Actions: []types.ProposedAction{action},
	}
}

// actionKindFor maps the marker protocol's action strings onto action kinds.
// The model is loose about naming, so common synonyms are accepted.
func actionKindFor(action string) (types.ActionKind, bool) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "create_entity", "create_actor", "create_npc", "create_creature":
		return types.ActionCreateEntity, true
	case "modify_entity", "modify_actor", "update_entity", "update_actor":
		return types.ActionModifyEntity, true
	case "create_sub_entity", "create_item", "add_item":
		return types.ActionCreateSubEntity, true
	default:
		return "", false
	}
}

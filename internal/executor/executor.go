// Package executor applies confirmed actions against the host's entity store.
// Sub-items named in a payload are resolved against the configured content
// libraries by exact case-insensitive name match; entries that do not resolve
// are synthesized from their inline data instead. Every action records an
// outcome into the transcript, and no executor failure propagates past the
// outcome.
package executor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/transcript"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

// Executor dispatches confirmed actions by kind.
type Executor struct {
	entities   types.EntityStore
	libraries  types.LibraryResolver
	transcript *transcript.Store
	logger     *zap.Logger
}

// New creates an executor. libraries may be nil, in which case every sub-item
// is synthesized from inline data.
func New(entities types.EntityStore, libraries types.LibraryResolver, ts *transcript.Store, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		entities:   entities,
		libraries:  libraries,
		transcript: ts,
		logger:     logger,
	}
}

// Execute applies the action and returns its outcome plus a human-readable
// result line. Errors and panics convert to a Failed outcome; nothing
// propagates to the router as an unhandled fault.
func (e *Executor) Execute(ctx context.Context, action types.ProposedAction) (outcome types.ActionOutcome, result string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("executor panic", zap.Any("panic", r), zap.String("kind", string(action.Kind)))
			outcome = types.ActionOutcome{
				Status:       types.OutcomeFailed,
				ErrorMessage: fmt.Sprintf("internal error: %v", r),
				SourceCallID: action.SourceCallID,
			}
			result = "Something went wrong while applying the change: " + outcome.ErrorMessage
		}
		e.record(outcome, result)
	}()

	var err error
	switch action.Kind {
	case types.ActionCreateEntity:
		outcome, result, err = e.createEntity(ctx, action, "actor")
	case types.ActionCreateSubEntity:
		outcome, result, err = e.createSubEntity(ctx, action)
	case types.ActionModifyEntity:
		outcome, result, err = e.modifyEntity(ctx, action)
	default:
		err = &types.ExecutionError{Op: string(action.Kind), Message: "unsupported action kind"}
	}
	if err != nil {
		e.logger.Warn("action failed", zap.String("kind", string(action.Kind)), zap.Error(err))
		outcome = types.ActionOutcome{
			Status:       types.OutcomeFailed,
			ErrorMessage: err.Error(),
			SourceCallID: action.SourceCallID,
		}
		result = "The change could not be applied: " + err.Error()
	}
	return outcome, result
}

// RecordCancelled records a Cancelled outcome for a discarded pending action.
func (e *Executor) RecordCancelled(pc types.PendingConfirmation) {
	outcome := types.ActionOutcome{
		Status:       types.OutcomeCancelled,
		SourceCallID: pc.Action.SourceCallID,
		EntityName:   payloadName(pc.Action.Payload),
	}
	e.record(outcome, "Change cancelled.")
}

func (e *Executor) record(outcome types.ActionOutcome, result string) {
	if e.transcript == nil || outcome.Status == "" {
		return
	}
	e.transcript.Append(types.Message{
		Role:    types.RoleTool,
		Content: result,
		Metadata: map[string]interface{}{
			"outcome": outcome,
		},
	})
}

func (e *Executor) createEntity(ctx context.Context, action types.ProposedAction, defaultKind string) (types.ActionOutcome, string, error) {
	entity := entityFromPayload(action.Payload, defaultKind)
	if entity.Name == "" {
		return types.ActionOutcome{}, "", &types.ExecutionError{Op: "create", Message: "payload has no name"}
	}
	entity.Items = e.resolveSubItems(ctx, subItemsFromPayload(action.Payload))

	created, err := e.entities.Create(ctx, entity.Kind, entity)
	if err != nil {
		return types.ActionOutcome{}, "", &types.ExecutionError{Op: "create", Message: err.Error()}
	}

	outcome := types.ActionOutcome{
		Status:       types.OutcomeCompleted,
		EntityRef:    created.ID,
		EntityName:   created.Name,
		SourceCallID: action.SourceCallID,
	}
	result := fmt.Sprintf("Created %s %q", created.Kind, created.Name)
	if n := len(created.Items); n > 0 {
		result += fmt.Sprintf(" with %d item(s)", n)
	}
	return outcome, result + ".", nil
}

func (e *Executor) createSubEntity(ctx context.Context, action types.ProposedAction) (types.ActionOutcome, string, error) {
	// Without a target the sub-entity stands alone as an item.
	if action.TargetID == "" {
		return e.createEntity(ctx, action, "item")
	}

	parent, err := e.entities.Get(ctx, action.TargetID)
	if err != nil {
		return types.ActionOutcome{}, "", &types.ExecutionError{Op: "attach", Message: err.Error()}
	}
	if parent == nil {
		return types.ActionOutcome{}, "", &types.NotFoundError{Ref: action.TargetID}
	}

	items := subItemsFromPayload(action.Payload)
	if len(items) == 0 {
		if name := payloadName(action.Payload); name != "" {
			items = []rawSubItem{{Name: name, Data: payloadData(action.Payload)}}
		}
	}
	resolved := e.resolveSubItems(ctx, items)
	if len(resolved) == 0 {
		return types.ActionOutcome{}, "", &types.ExecutionError{Op: "attach", Message: "payload has no items"}
	}

	updated, err := e.entities.Update(ctx, parent.ID, types.EntityPatch{AddItems: resolved})
	if err != nil {
		return types.ActionOutcome{}, "", &types.ExecutionError{Op: "attach", Message: err.Error()}
	}

	outcome := types.ActionOutcome{
		Status:       types.OutcomeCompleted,
		EntityRef:    updated.ID,
		EntityName:   updated.Name,
		SourceCallID: action.SourceCallID,
	}
	return outcome, fmt.Sprintf("Added %d item(s) to %q.", len(resolved), updated.Name), nil
}

func (e *Executor) modifyEntity(ctx context.Context, action types.ProposedAction) (types.ActionOutcome, string, error) {
	if action.TargetID == "" {
		return types.ActionOutcome{}, "", &types.ExecutionError{Op: "modify", Message: "missing target reference"}
	}
	target, err := e.entities.Get(ctx, action.TargetID)
	if err != nil {
		return types.ActionOutcome{}, "", &types.ExecutionError{Op: "modify", Message: err.Error()}
	}
	if target == nil {
		return types.ActionOutcome{}, "", &types.NotFoundError{Ref: action.TargetID}
	}

	patch := patchFromPayload(action.Payload)
	patch.AddItems = e.resolveSubItems(ctx, subItemsFromPayload(action.Payload))

	updated, err := e.entities.Update(ctx, target.ID, patch)
	if err != nil {
		return types.ActionOutcome{}, "", &types.ExecutionError{Op: "modify", Message: err.Error()}
	}

	outcome := types.ActionOutcome{
		Status:       types.OutcomeCompleted,
		EntityRef:    updated.ID,
		EntityName:   updated.Name,
		SourceCallID: action.SourceCallID,
	}
	return outcome, fmt.Sprintf("Updated %q.", updated.Name), nil
}

// resolveSubItems clones library entries for names that match and synthesizes
// the rest from inline data. Resolution failures are warned and the sub-item
// falls back to synthesis; one bad sub-item never aborts the remainder.
func (e *Executor) resolveSubItems(ctx context.Context, raws []rawSubItem) []types.SubItem {
	if len(raws) == 0 {
		return nil
	}
	items := make([]types.SubItem, 0, len(raws))
	for _, raw := range raws {
		if raw.Name == "" {
			continue
		}
		if e.libraries != nil {
			entry, err := e.libraries.FindByName(ctx, raw.Category, raw.Name)
			if err != nil {
				e.logger.Warn("library lookup failed, synthesizing sub-item",
					zap.String("name", raw.Name), zap.Error(err))
			} else if entry != nil {
				items = append(items, types.SubItem{
					Name:   entry.Name,
					Source: entry.Library,
					Data:   entry.Data,
				})
				continue
			}
		}
		items = append(items, types.SubItem{Name: raw.Name, Data: raw.Data})
	}
	return items
}

// rawSubItem is a sub-item as named in an action payload, before resolution.
type rawSubItem struct {
	Name     string
	Category string
	Data     map[string]interface{}
}

// entityFromPayload shapes an opaque payload into an entity. Both structured
// payloads ({kind, name, data}) and flat fallback payloads are accepted.
func entityFromPayload(payload map[string]interface{}, defaultKind string) types.Entity {
	entity := types.Entity{
		Kind: defaultKind,
		Name: payloadName(payload),
		Data: payloadData(payload),
	}
	if kind, ok := payload["kind"].(string); ok && kind != "" {
		entity.Kind = strings.ToLower(kind)
	}
	return entity
}

func payloadName(payload map[string]interface{}) string {
	if payload == nil {
		return ""
	}
	if name, ok := payload["name"].(string); ok && name != "" {
		return name
	}
	if data, ok := payload["data"].(map[string]interface{}); ok {
		if name, ok := data["name"].(string); ok {
			return name
		}
	}
	return ""
}

// payloadData returns the entity field data, excluding the items list and the
// envelope keys the executor consumes itself.
func payloadData(payload map[string]interface{}) map[string]interface{} {
	inner := payload
	if data, ok := payload["data"].(map[string]interface{}); ok {
		inner = data
	}
	out := make(map[string]interface{}, len(inner))
	for k, v := range inner {
		switch k {
		case "items", "add_items", "remove_items", "uuid", "kind":
			continue
		}
		out[k] = v
	}
	return out
}

// subItemsFromPayload extracts the sub-item list. Entries may be plain name
// strings or objects carrying name, category and inline custom data.
func subItemsFromPayload(payload map[string]interface{}) []rawSubItem {
	inner := payload
	if data, ok := payload["data"].(map[string]interface{}); ok {
		inner = data
	}
	list, ok := inner["items"].([]interface{})
	if !ok {
		if list, ok = inner["add_items"].([]interface{}); !ok {
			return nil
		}
	}

	raws := make([]rawSubItem, 0, len(list))
	for _, elem := range list {
		switch v := elem.(type) {
		case string:
			raws = append(raws, rawSubItem{Name: v})
		case map[string]interface{}:
			raw := rawSubItem{}
			if name, ok := v["name"].(string); ok {
				raw.Name = name
			}
			if cat, ok := v["category"].(string); ok {
				raw.Category = cat
			}
			if data, ok := v["data"].(map[string]interface{}); ok {
				raw.Data = data
			} else {
				// Inline custom fields double as the synthesized data.
				data := make(map[string]interface{})
				for k, val := range v {
					if k == "name" || k == "category" {
						continue
					}
					data[k] = val
				}
				if len(data) > 0 {
					raw.Data = data
				}
			}
			raws = append(raws, raw)
		}
	}
	return raws
}

// patchFromPayload builds the sparse patch for a modify action.
func patchFromPayload(payload map[string]interface{}) types.EntityPatch {
	patch := types.EntityPatch{
		Data: payloadData(payload),
	}
	inner := payload
	if data, ok := payload["data"].(map[string]interface{}); ok {
		inner = data
	}
	if name, ok := inner["name"].(string); ok {
		patch.Name = name
	}
	if list, ok := inner["remove_items"].([]interface{}); ok {
		for _, elem := range list {
			if name, ok := elem.(string); ok {
				patch.RemoveItems = append(patch.RemoveItems, name)
			}
		}
	}
	return patch
}

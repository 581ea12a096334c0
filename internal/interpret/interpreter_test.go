package interpret

import (
	"testing"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/gateway"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

func TestParseNilReply(t *testing.T) {
	i := New(nil)
	intent := i.Parse(nil)
	if intent.Kind != types.IntentPlainReply {
		t.Fatalf("Expected PlainReply, got %s", intent.Kind)
	}
}

func TestParseNoToolCallsIsPlainReply(t *testing.T) {
	i := New(nil)
	intent := i.Parse(&types.LLMToolResponse{Text: "just chatting"})
	if intent.Kind != types.IntentPlainReply {
		t.Fatalf("Expected PlainReply, got %s", intent.Kind)
	}
	if intent.Text != "just chatting" {
		t.Errorf("Expected text preserved, got %q", intent.Text)
	}
}

func TestParseReadOnlyCallsIsInfoQuery(t *testing.T) {
	i := New(nil)
	intent := i.Parse(&types.LLMToolResponse{
		ToolCalls: []types.ToolCall{
			{ID: "c1", Name: gateway.ToolSearchLibrary, Input: map[string]interface{}{"query": "goblin"}},
			{ID: "c2", Name: gateway.ToolGetPartyInfo},
		},
	})
	if intent.Kind != types.IntentInfoQuery {
		t.Fatalf("Expected InfoQuery, got %s", intent.Kind)
	}
	if len(intent.Calls) != 2 {
		t.Errorf("Expected 2 calls, got %d", len(intent.Calls))
	}
}

func TestParseMutatingCallIsActionProposal(t *testing.T) {
	i := New(nil)
	intent := i.Parse(&types.LLMToolResponse{
		Text: "I'll create a goblin archer.",
		ToolCalls: []types.ToolCall{
			{ID: "c1", Name: gateway.ToolCreateEntity, Input: map[string]interface{}{
				"name": "Goblin Archer",
				"data": map[string]interface{}{"hp": 12.0},
			}},
		},
	})
	if intent.Kind != types.IntentActionProposal {
		t.Fatalf("Expected ActionProposal, got %s", intent.Kind)
	}
	if len(intent.Actions) != 1 {
		t.Fatalf("Expected 1 action, got %d", len(intent.Actions))
	}
	action := intent.Actions[0]
	if action.Kind != types.ActionCreateEntity {
		t.Errorf("Expected create kind, got %s", action.Kind)
	}
	if action.SourceCallID != "c1" {
		t.Errorf("Expected source call id c1, got %q", action.SourceCallID)
	}
	if intent.Text != "I'll create a goblin archer." {
		t.Errorf("Expected accompanying text preserved, got %q", intent.Text)
	}
}

func TestParseModifyExtractsTargetFromUUID(t *testing.T) {
	i := New(nil)
	intent := i.Parse(&types.LLMToolResponse{
		ToolCalls: []types.ToolCall{
			{ID: "c1", Name: gateway.ToolModifyEntity, Input: map[string]interface{}{
				"uuid": "actor-42",
				"data": map[string]interface{}{"hp": 20.0},
			}},
		},
	})
	if intent.Kind != types.IntentActionProposal {
		t.Fatalf("Expected ActionProposal, got %s", intent.Kind)
	}
	action := intent.Actions[0]
	if action.Kind != types.ActionModifyEntity {
		t.Errorf("Expected modify kind, got %s", action.Kind)
	}
	if action.TargetID != "actor-42" {
		t.Errorf("Expected target actor-42, got %q", action.TargetID)
	}
}

func TestParseMutatingWinsOverReadOnly(t *testing.T) {
	i := New(nil)
	intent := i.Parse(&types.LLMToolResponse{
		ToolCalls: []types.ToolCall{
			{ID: "c1", Name: gateway.ToolSearchLibrary, Input: map[string]interface{}{"query": "bow"}},
			{ID: "c2", Name: gateway.ToolCreateEntity, Input: map[string]interface{}{"name": "Archer", "data": map[string]interface{}{}}},
		},
	})
	if intent.Kind != types.IntentActionProposal {
		t.Fatalf("Expected ActionProposal when mutating calls present, got %s", intent.Kind)
	}
	if len(intent.Actions) != 1 {
		t.Errorf("Expected only the mutating call translated, got %d actions", len(intent.Actions))
	}
}

func TestParseUnknownToolsSkipped(t *testing.T) {
	i := New(nil)
	intent := i.Parse(&types.LLMToolResponse{
		Text: "hmm",
		ToolCalls: []types.ToolCall{
			{ID: "c1", Name: "launch_rockets"},
		},
	})
	if intent.Kind != types.IntentPlainReply {
		t.Fatalf("Expected PlainReply when only unknown tools, got %s", intent.Kind)
	}
	if intent.Text != "hmm" {
		t.Errorf("Expected text preserved, got %q", intent.Text)
	}
}

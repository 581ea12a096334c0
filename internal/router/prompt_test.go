package router

import (
	"strings"
	"testing"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/interpret"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

func TestBuildMessagesStructuredMode(t *testing.T) {
	promptCtx := types.Context{
		HistoryWindow: []types.Message{
			{Role: types.RoleUser, Content: "ciao"},
			{Role: types.RoleAssistant, Content: "ciao a te"},
			{Role: types.RoleTool, Content: "Created actor \"Goblin\"."},
		},
		PartySummary:       "- Borin (level 5)",
		AvailableLibraries: map[string][]string{"items": {"srd-items"}, "actors": {"srd-monsters"}},
		ActionDigest:       "created or updated Goblin",
	}

	msgs := buildMessages(promptCtx, true, "crea un orco")
	if len(msgs) != 5 {
		t.Fatalf("Expected system + 3 history + user, got %d", len(msgs))
	}

	system := msgs[0]
	if system.Role != "system" {
		t.Fatalf("First message must be system, got %q", system.Role)
	}
	if strings.Contains(system.Content, interpret.MarkerStart) {
		t.Error("Structured mode must not teach the marker protocol")
	}
	if !strings.Contains(system.Content, "- Borin (level 5)") {
		t.Error("Party summary missing from system prompt")
	}
	if !strings.Contains(system.Content, "- actors: srd-monsters") {
		t.Error("Libraries missing or unsorted in system prompt")
	}
	if !strings.Contains(system.Content, "created or updated Goblin") {
		t.Error("Action digest missing from system prompt")
	}

	// Tool outcomes are presented as assistant statements.
	if msgs[3].Role != "assistant" {
		t.Errorf("Expected tool message rendered as assistant, got %q", msgs[3].Role)
	}

	last := msgs[len(msgs)-1]
	if last.Role != "user" || last.Content != "crea un orco" {
		t.Errorf("Command body must be the trailing user message, got %+v", last)
	}
}

func TestBuildMessagesFallbackModeTeachesMarkers(t *testing.T) {
	msgs := buildMessages(types.Context{}, false, "ciao")
	system := msgs[0].Content
	if !strings.Contains(system, interpret.MarkerStart) || !strings.Contains(system, interpret.MarkerEnd) {
		t.Error("Fallback mode must include the marker protocol instructions")
	}
	if !strings.Contains(system, "create_entity") {
		t.Error("Marker instructions must name the valid actions")
	}
}

package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/interpret"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

const baseSystemPrompt = `You are Ryoma, an assistant for a tabletop-RPG virtual table. ` +
	`You help the game master query content and prepare creatures, characters and items. ` +
	`Answer in the language the user writes in. Be concise. ` +
	`Never claim an entity was created or changed: every change you propose requires the user's explicit confirmation.`

const markerProtocolPrompt = `When the user asks you to create or modify a game entity, first write a short ` +
	`human-readable recap of what you intend to do, then append the machine payload wrapped in literal markers, like this:

` + interpret.MarkerStart + `{"action": "create_entity", "data": {"name": "...", "items": []}}` + interpret.MarkerEnd + `

Valid actions: create_entity, modify_entity (requires "uuid" inside data), create_sub_entity. ` +
	`Emit at most one marker block per reply. For anything else, answer normally without markers.`

// buildMessages assembles the wire messages for one completion: the system
// prompt (with the marker protocol instructions in fallback mode), the
// context digest, the bounded history window, and the new command body.
func buildMessages(promptCtx types.Context, structuredTools bool, body string) []types.ChatMessage {
	var system strings.Builder
	system.WriteString(baseSystemPrompt)
	if !structuredTools {
		system.WriteString("\n\n")
		system.WriteString(markerProtocolPrompt)
	}

	if promptCtx.PartySummary != "" {
		system.WriteString("\n\nParty:\n")
		system.WriteString(promptCtx.PartySummary)
	}
	if len(promptCtx.AvailableLibraries) > 0 {
		system.WriteString("\n\nAvailable content libraries:\n")
		system.WriteString(renderLibraries(promptCtx.AvailableLibraries))
	}
	if promptCtx.ActionDigest != "" {
		system.WriteString("\n\nEarlier in this session: ")
		system.WriteString(promptCtx.ActionDigest)
		system.WriteString(".")
	}

	messages := []types.ChatMessage{{Role: "system", Content: system.String()}}
	for _, msg := range promptCtx.HistoryWindow {
		role := string(msg.Role)
		if msg.Role == types.RoleTool {
			// Tool outcomes read as assistant statements in the prompt.
			role = "assistant"
		}
		messages = append(messages, types.ChatMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, types.ChatMessage{Role: "user", Content: body})
	return messages
}

func renderLibraries(libs map[string][]string) string {
	categories := make([]string, 0, len(libs))
	for category := range libs {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var sb strings.Builder
	for _, category := range categories {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", category, strings.Join(libs[category], ", ")))
	}
	return strings.TrimRight(sb.String(), "\n")
}

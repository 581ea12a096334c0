package gateway

import (
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

// Tool names in the fixed catalog advertised in structured mode.
const (
	ToolSearchLibrary = "search_library"
	ToolGetEntityInfo = "get_entity_info"
	ToolGetPartyInfo  = "get_party_info"
	ToolCreateEntity  = "create_entity"
	ToolModifyEntity  = "modify_entity"
)

// Catalog returns the fixed tool catalog. search_library, get_entity_info and
// get_party_info are read-only; create_entity and modify_entity propose
// mutations that go through the confirmation gate.
func Catalog() []types.ToolDefinition {
	return []types.ToolDefinition{
		{
			Name:        ToolSearchLibrary,
			Description: "Search the configured content libraries for reference entities by name.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"category": map[string]interface{}{
						"type":        "string",
						"description": "Content category, e.g. actors, items, spells.",
					},
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Name or partial name to search for.",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        ToolGetEntityInfo,
			Description: "Fetch an existing entity by its reference.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"uuid": map[string]interface{}{
						"type":        "string",
						"description": "Reference of the entity to fetch.",
					},
				},
				"required": []string{"uuid"},
			},
		},
		{
			Name:        ToolGetPartyInfo,
			Description: "Summarize the configured party composition.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        ToolCreateEntity,
			Description: "Propose creating a new game entity (creature, character or item). The user must confirm before anything is created.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"kind": map[string]interface{}{
						"type":        "string",
						"description": "Entity kind: actor or item.",
					},
					"name": map[string]interface{}{
						"type": "string",
					},
					"data": map[string]interface{}{
						"type":        "object",
						"description": "Entity fields, including an optional items list of sub-items.",
					},
				},
				"required": []string{"name", "data"},
			},
		},
		{
			Name:        ToolModifyEntity,
			Description: "Propose modifying an existing entity. The user must confirm before anything changes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"uuid": map[string]interface{}{
						"type":        "string",
						"description": "Reference of the entity to modify.",
					},
					"data": map[string]interface{}{
						"type":        "object",
						"description": "Sparse patch: fields to change, items to add, item names to remove.",
					},
				},
				"required": []string{"uuid", "data"},
			},
		},
	}
}

// IsReadOnlyTool reports whether a tool name belongs to the read-only half of
// the catalog.
func IsReadOnlyTool(name string) bool {
	switch name {
	case ToolSearchLibrary, ToolGetEntityInfo, ToolGetPartyInfo:
		return true
	default:
		return false
	}
}

// IsMutatingTool reports whether a tool name proposes an entity mutation.
func IsMutatingTool(name string) bool {
	switch name {
	case ToolCreateEntity, ToolModifyEntity:
		return true
	default:
		return false
	}
}

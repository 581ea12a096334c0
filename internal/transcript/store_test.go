package transcript

import (
	"fmt"
	"testing"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/host"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

func TestAppendEnforcesRetentionBound(t *testing.T) {
	s := New(nil, 5, nil)

	for i := 0; i < 8; i++ {
		s.Append(types.Message{Role: types.RoleUser, Content: fmt.Sprintf("msg-%d", i)})
	}

	got := s.Full(0)
	if len(got) != 5 {
		t.Fatalf("Expected 5 retained messages, got %d", len(got))
	}
	// Oldest 3 evicted, order preserved.
	for i, msg := range got {
		want := fmt.Sprintf("msg-%d", i+3)
		if msg.Content != want {
			t.Errorf("message %d: expected %q, got %q", i, want, msg.Content)
		}
	}
}

func TestRecentReturnsChronologicalTail(t *testing.T) {
	s := New(nil, 10, nil)
	for i := 0; i < 4; i++ {
		s.Append(types.Message{Role: types.RoleUser, Content: fmt.Sprintf("msg-%d", i)})
	}

	got := s.Recent(2)
	if len(got) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(got))
	}
	if got[0].Content != "msg-2" || got[1].Content != "msg-3" {
		t.Errorf("Expected [msg-2 msg-3], got [%s %s]", got[0].Content, got[1].Content)
	}

	if more := s.Recent(100); len(more) != 4 {
		t.Errorf("Expected all 4 messages when n exceeds length, got %d", len(more))
	}
	if none := s.Recent(0); none != nil {
		t.Errorf("Expected nil for n=0, got %v", none)
	}
}

func TestSummarizeOlderActionsDropsProse(t *testing.T) {
	s := New(nil, 20, nil)
	s.Append(types.Message{Role: types.RoleUser, Content: "make me a goblin"})
	s.Append(types.Message{
		Role:    types.RoleTool,
		Content: "Created actor \"Goblin\".",
		Metadata: map[string]interface{}{
			"outcome": types.ActionOutcome{Status: types.OutcomeCompleted, EntityName: "Goblin"},
		},
	})
	s.Append(types.Message{Role: types.RoleAssistant, Content: "done"})
	s.Append(types.Message{Role: types.RoleUser, Content: "thanks"})

	digest := s.SummarizeOlderActions(2)
	if digest != "created or updated Goblin" {
		t.Errorf("Unexpected digest: %q", digest)
	}

	// Everything inside the kept window: nothing to summarize.
	if d := s.SummarizeOlderActions(10); d != "" {
		t.Errorf("Expected empty digest, got %q", d)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	settings := host.NewMemorySettings()

	s := New(settings, 10, nil)
	s.Append(types.Message{Role: types.RoleUser, Content: "hello"})
	s.Append(types.Message{Role: types.RoleAssistant, Content: "hi there"})

	reloaded := New(settings, 10, nil)
	got := reloaded.Full(0)
	if len(got) != 2 {
		t.Fatalf("Expected 2 messages after reload, got %d", len(got))
	}
	if got[0].Content != "hello" || got[1].Content != "hi there" {
		t.Errorf("Reload lost content: %+v", got)
	}
}

func TestLoadSkipsEntriesMissingRoleOrContent(t *testing.T) {
	settings := host.NewMemorySettings()
	_ = settings.Set(StorageKey, `[{"role":"user","content":"ok"},{"role":"user"},{"content":"orphan"}]`)

	s := New(settings, 10, nil)
	if s.Len() != 1 {
		t.Fatalf("Expected 1 valid message, got %d", s.Len())
	}
}

func TestLoadDiscardsUnreadableTranscript(t *testing.T) {
	settings := host.NewMemorySettings()
	_ = settings.Set(StorageKey, `{not json`)

	s := New(settings, 10, nil)
	if s.Len() != 0 {
		t.Fatalf("Expected empty transcript, got %d messages", s.Len())
	}
}

func TestClear(t *testing.T) {
	settings := host.NewMemorySettings()
	s := New(settings, 10, nil)
	s.Append(types.Message{Role: types.RoleUser, Content: "hello"})
	s.Clear()

	if s.Len() != 0 {
		t.Fatalf("Expected empty transcript after clear, got %d", s.Len())
	}
	if reloaded := New(settings, 10, nil); reloaded.Len() != 0 {
		t.Errorf("Clear did not persist, reload has %d messages", reloaded.Len())
	}
}

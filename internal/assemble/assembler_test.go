package assemble

import (
	"context"
	"errors"
	"testing"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/config"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/transcript"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

type staticParty struct {
	summary string
	err     error
}

func (p staticParty) Summary(context.Context) (string, error) { return p.summary, p.err }

func TestBuildBoundsHistoryToWindow(t *testing.T) {
	cfg := config.Default()
	cfg.HistoryWindow = 2
	ts := transcript.New(nil, 50, nil)
	for _, content := range []string{"one", "two", "three", "four"} {
		ts.Append(types.Message{Role: types.RoleUser, Content: content})
	}

	out := New(ts, nil, cfg, nil).Build(context.Background())
	if len(out.HistoryWindow) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(out.HistoryWindow))
	}
	if out.HistoryWindow[0].Content != "three" || out.HistoryWindow[1].Content != "four" {
		t.Errorf("Expected the most recent tail, got %+v", out.HistoryWindow)
	}
}

func TestBuildDigestsOlderOutcomes(t *testing.T) {
	cfg := config.Default()
	cfg.HistoryWindow = 1
	ts := transcript.New(nil, 50, nil)
	ts.Append(types.Message{
		Role:    types.RoleTool,
		Content: "Created actor \"Goblin\".",
		Metadata: map[string]interface{}{
			"outcome": types.ActionOutcome{Status: types.OutcomeCompleted, EntityName: "Goblin"},
		},
	})
	ts.Append(types.Message{Role: types.RoleUser, Content: "recent"})

	out := New(ts, nil, cfg, nil).Build(context.Background())
	if out.ActionDigest == "" {
		t.Error("Expected a digest of the older outcome")
	}
}

func TestBuildCarriesPartyAndLibraries(t *testing.T) {
	cfg := config.Default()
	cfg.Libraries = map[string][]string{"items": {"srd-items"}}
	ts := transcript.New(nil, 50, nil)

	out := New(ts, staticParty{summary: "- Borin"}, cfg, nil).Build(context.Background())
	if out.PartySummary != "- Borin" {
		t.Errorf("Party summary not carried: %q", out.PartySummary)
	}
	if len(out.AvailableLibraries["items"]) != 1 {
		t.Errorf("Libraries not carried: %+v", out.AvailableLibraries)
	}
}

func TestBuildDegradesOnPartyFailure(t *testing.T) {
	ts := transcript.New(nil, 50, nil)
	out := New(ts, staticParty{err: errors.New("host gone")}, config.Default(), nil).Build(context.Background())
	if out.PartySummary != "" {
		t.Errorf("Party failure must degrade to empty, got %q", out.PartySummary)
	}
}

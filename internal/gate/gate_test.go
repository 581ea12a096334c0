package gate

import (
	"errors"
	"testing"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

func newAction(kind types.ActionKind) types.ProposedAction {
	return types.ProposedAction{Kind: kind, Payload: map[string]interface{}{"name": "Goblin"}}
}

func TestProposeTransitionsToAwaiting(t *testing.T) {
	g := New(nil)
	if g.State() != StateIdle {
		t.Fatalf("Expected Idle, got %s", g.State())
	}

	if err := g.Propose(newAction(types.ActionCreateEntity), "recap", "ref-1"); err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if g.State() != StateAwaitingConfirmation {
		t.Errorf("Expected AwaitingConfirmation, got %s", g.State())
	}

	pc, ok := g.Pending()
	if !ok {
		t.Fatal("Expected a pending confirmation")
	}
	if pc.RecapText != "recap" || pc.TranscriptRef != "ref-1" {
		t.Errorf("Pending lost fields: %+v", pc)
	}
	if pc.RequestedAt.IsZero() {
		t.Error("Expected RequestedAt to be set")
	}
}

func TestAtMostOnePending(t *testing.T) {
	g := New(nil)
	if err := g.Propose(newAction(types.ActionCreateEntity), "first", ""); err != nil {
		t.Fatalf("First propose failed: %v", err)
	}

	err := g.Propose(newAction(types.ActionModifyEntity), "second", "")
	if !errors.Is(err, ErrAlreadyPending) {
		t.Fatalf("Expected ErrAlreadyPending, got %v", err)
	}

	// The original proposal is untouched.
	pc, ok := g.Pending()
	if !ok || pc.RecapText != "first" {
		t.Errorf("Expected original pending to survive, got %+v ok=%v", pc, ok)
	}
}

func TestConfirmIsTerminal(t *testing.T) {
	g := New(nil)
	action := newAction(types.ActionCreateEntity)
	if err := g.Propose(action, "recap", ""); err != nil {
		t.Fatalf("Propose failed: %v", err)
	}

	pc, err := g.Confirm()
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if pc.Action.Kind != action.Kind {
		t.Errorf("Confirm returned wrong action: %+v", pc.Action)
	}
	if g.State() != StateIdle {
		t.Errorf("Expected Idle after confirm, got %s", g.State())
	}

	if _, err := g.Confirm(); !errors.Is(err, ErrNothingPending) {
		t.Errorf("Expected ErrNothingPending on second confirm, got %v", err)
	}
}

func TestCancelIsTerminal(t *testing.T) {
	g := New(nil)
	if err := g.Propose(newAction(types.ActionCreateEntity), "recap", ""); err != nil {
		t.Fatalf("Propose failed: %v", err)
	}

	if _, err := g.Cancel(); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if g.State() != StateIdle {
		t.Errorf("Expected Idle after cancel, got %s", g.State())
	}
	if _, err := g.Cancel(); !errors.Is(err, ErrNothingPending) {
		t.Errorf("Expected ErrNothingPending on second cancel, got %v", err)
	}
}

func TestConfirmCancelInIdle(t *testing.T) {
	g := New(nil)
	if _, err := g.Confirm(); !errors.Is(err, ErrNothingPending) {
		t.Errorf("Confirm in Idle: expected ErrNothingPending, got %v", err)
	}
	if _, err := g.Cancel(); !errors.Is(err, ErrNothingPending) {
		t.Errorf("Cancel in Idle: expected ErrNothingPending, got %v", err)
	}
}

func TestInFlightGuardIndependentOfPendingSlot(t *testing.T) {
	g := New(nil)
	if err := g.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := g.Begin(); !errors.Is(err, ErrBusy) {
		t.Fatalf("Expected ErrBusy, got %v", err)
	}

	// A pending confirmation can be created and consumed while in flight.
	if err := g.Propose(newAction(types.ActionCreateEntity), "recap", ""); err != nil {
		t.Errorf("Propose during in-flight failed: %v", err)
	}
	if _, err := g.Confirm(); err != nil {
		t.Errorf("Confirm during in-flight failed: %v", err)
	}

	g.End()
	if err := g.Begin(); err != nil {
		t.Errorf("Begin after End failed: %v", err)
	}
}

func TestClassifyKeyword(t *testing.T) {
	cases := []struct {
		input string
		want  Keyword
	}{
		{"conferma", KeywordConfirm},
		{"  CONFERMA  ", KeywordConfirm},
		{"Sì", KeywordConfirm},
		{"si", KeywordConfirm},
		{"ok", KeywordConfirm},
		{"yes", KeywordConfirm},
		{"annulla", KeywordCancel},
		{"Cancel", KeywordCancel},
		{"  no ", KeywordCancel},
		{"stop", KeywordCancel},
		{"conferma per favore", KeywordNone}, // exact match only
		{"crea un goblin", KeywordNone},
		{"", KeywordNone},
	}
	for _, tc := range cases {
		if got := ClassifyKeyword(tc.input); got != tc.want {
			t.Errorf("ClassifyKeyword(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

// Package assemble builds the ephemeral prompt context for each request:
// bounded recent history, a lossy digest of older action outcomes, the party
// summary and the configured content-library handles. Missing collaborator
// data degrades to empty; nothing here fails a request.
package assemble

import (
	"context"

	"go.uber.org/zap"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/config"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/transcript"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

// Assembler gathers prompt context from the transcript and host collaborators.
type Assembler struct {
	transcript *transcript.Store
	party      types.PartyProvider // may be nil
	cfg        config.Config
	logger     *zap.Logger
}

// New creates an assembler.
func New(ts *transcript.Store, party types.PartyProvider, cfg config.Config, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		transcript: ts,
		party:      party,
		cfg:        cfg,
		logger:     logger,
	}
}

// Build assembles the context for one request. No side effects.
func (a *Assembler) Build(ctx context.Context) types.Context {
	window := a.cfg.HistoryWindow

	out := types.Context{
		HistoryWindow:      a.transcript.Recent(window),
		ActionDigest:       a.transcript.SummarizeOlderActions(window),
		AvailableLibraries: a.cfg.Libraries,
	}

	if a.party != nil {
		summary, err := a.party.Summary(ctx)
		if err != nil {
			a.logger.Debug("party summary unavailable", zap.Error(err))
		} else {
			out.PartySummary = summary
		}
	}
	return out
}

// Package router recognizes the chat command prefix, detects confirmation and
// cancellation keywords, and sequences the pipeline: context assembly, the
// remote completion, response interpretation, and gated execution. One user
// request runs end-to-end before the next is admitted.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/assemble"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/config"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/executor"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/gate"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/gateway"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/interpret"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/transcript"
	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

// User-facing notices.
const (
	busyNotice          = "Still processing the previous request, please wait."
	nothingPendingReply = "There is no proposed change to confirm or cancel."
	pendingBlockedReply = "Another change is still awaiting confirmation. Reply 'conferma' to apply it or 'annulla' to discard it first."
	cancelledReply      = "Okay, the proposed change has been discarded."
	confirmPrompt       = "Reply 'conferma' to apply this change or 'annulla' to discard it."
)

// Router wires the pipeline for one session.
type Router struct {
	cfg        config.Config
	assembler  *assemble.Assembler
	llm        types.LLMClient
	interp     *interpret.Interpreter
	gate       *gate.Gate
	exec       *executor.Executor
	transcript *transcript.Store
	entities   types.EntityStore
	libraries  types.LibraryResolver
	party      types.PartyProvider
	logger     *zap.Logger
}

// Deps collects the collaborators the router needs.
type Deps struct {
	Config     config.Config
	Assembler  *assemble.Assembler
	LLM        types.LLMClient
	Gate       *gate.Gate
	Executor   *executor.Executor
	Transcript *transcript.Store
	Entities   types.EntityStore
	Libraries  types.LibraryResolver
	Party      types.PartyProvider
	Logger     *zap.Logger
}

// New creates a router.
func New(deps Deps) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:        deps.Config,
		assembler:  deps.Assembler,
		llm:        deps.LLM,
		interp:     interpret.New(logger),
		gate:       deps.Gate,
		exec:       deps.Executor,
		transcript: deps.Transcript,
		entities:   deps.Entities,
		libraries:  deps.Libraries,
		party:      deps.Party,
		logger:     logger,
	}
}

// HandleChat processes one raw chat line. The returned text is what the host
// should surface; handled reports whether the line carried our prefix at all.
func (r *Router) HandleChat(ctx context.Context, raw, authorID string) (reply string, handled bool) {
	line := strings.TrimSpace(raw)
	prefix := r.cfg.Prefix
	if len(line) < len(prefix) || !strings.EqualFold(line[:len(prefix)], prefix) {
		return "", false
	}
	body := strings.TrimSpace(line[len(prefix):])
	if body == "" {
		return "", false
	}

	// Reserved confirm/cancel bodies short-circuit the pipeline.
	switch gate.ClassifyKeyword(body) {
	case gate.KeywordConfirm:
		return r.handleConfirm(ctx), true
	case gate.KeywordCancel:
		return r.handleCancel(), true
	}

	if err := r.gate.Begin(); err != nil {
		r.logger.Debug("rejecting concurrent request", zap.Error(err))
		return busyNotice, true
	}
	defer r.gate.End()

	return r.handleCommand(ctx, body, authorID), true
}

func (r *Router) handleConfirm(ctx context.Context) string {
	pc, err := r.gate.Confirm()
	if err != nil {
		return nothingPendingReply
	}
	outcome, result := r.exec.Execute(ctx, pc.Action)
	r.logger.Info("confirmed action executed",
		zap.String("kind", string(pc.Action.Kind)),
		zap.String("status", string(outcome.Status)))
	return result
}

func (r *Router) handleCancel() string {
	pc, err := r.gate.Cancel()
	if err != nil {
		return nothingPendingReply
	}
	r.exec.RecordCancelled(pc)
	return cancelledReply
}

// handleCommand runs the full pipeline for an ordinary command body.
func (r *Router) handleCommand(ctx context.Context, body, authorID string) string {
	// Context is built before the new turn is recorded so the command body
	// appears in the prompt exactly once, as the trailing user message.
	promptCtx := r.assembler.Build(ctx)
	r.transcript.Append(types.Message{
		Role:     types.RoleUser,
		Content:  body,
		AuthorID: authorID,
	})
	req := types.CompletionRequest{
		Model:       r.selectModel(body),
		Messages:    buildMessages(promptCtx, r.cfg.UseStructuredTools, body),
		Temperature: r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxTokens,
	}

	var reply *types.LLMToolResponse
	var err error
	if r.cfg.UseStructuredTools {
		reply, err = r.llm.CompleteWithTools(ctx, req, gateway.Catalog())
	} else {
		reply, err = r.llm.Complete(ctx, req)
	}
	if err != nil {
		return r.renderFailure(err)
	}

	intent := r.interp.Parse(reply)
	if intent.Kind == types.IntentInfoQuery {
		intent = r.resolveInfoQuery(ctx, req, intent)
	}
	return r.dispatchIntent(intent)
}

func (r *Router) dispatchIntent(intent types.Intent) string {
	switch intent.Kind {
	case types.IntentActionProposal:
		return r.proposeAction(intent)
	default:
		text := strings.TrimSpace(intent.Text)
		if text == "" {
			text = "I have nothing to add."
		}
		r.transcript.Append(types.Message{Role: types.RoleAssistant, Content: text})
		return text
	}
}

// proposeAction stores the first proposed action in the pending slot and
// emits the recap. Additional actions in the same reply are dropped with a
// notice; the slot holds at most one pending mutation.
func (r *Router) proposeAction(intent types.Intent) string {
	action := intent.Actions[0]

	var sb strings.Builder
	if text := strings.TrimSpace(intent.Text); text != "" {
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Proposed change: ")
	sb.WriteString(describeAction(action))
	if len(intent.Actions) > 1 {
		sb.WriteString(fmt.Sprintf("\n(%d further proposed change(s) were dropped; one change at a time.)", len(intent.Actions)-1))
	}
	sb.WriteString("\n")
	sb.WriteString(confirmPrompt)
	recap := sb.String()

	ref := uuid.NewString()
	if err := r.gate.Propose(action, recap, ref); err != nil {
		if errors.Is(err, gate.ErrAlreadyPending) {
			return pendingBlockedReply
		}
		return r.renderFailure(err)
	}
	r.transcript.Append(types.Message{
		Role:     types.RoleAssistant,
		Content:  recap,
		Metadata: map[string]interface{}{"proposal_ref": ref},
	})
	return recap
}

// resolveInfoQuery executes the read-only calls and performs one follow-up
// completion so the model can answer with the data. The follow-up runs
// without the tool schema; its text goes through the fallback parse, so a
// marker-protocol proposal in the follow-up still becomes an ActionProposal.
func (r *Router) resolveInfoQuery(ctx context.Context, req types.CompletionRequest, intent types.Intent) types.Intent {
	results := make([]string, 0, len(intent.Calls))
	for _, call := range intent.Calls {
		results = append(results, fmt.Sprintf("%s -> %s", call.Name, r.runReadOnlyTool(ctx, call)))
	}

	followup := req
	followup.Messages = append(append([]types.ChatMessage{}, req.Messages...),
		types.ChatMessage{Role: "assistant", Content: strings.TrimSpace(intent.Text)},
		types.ChatMessage{Role: "user", Content: "Tool results:\n" + strings.Join(results, "\n") + "\nAnswer the original request using these results."},
	)

	reply, err := r.llm.Complete(ctx, followup)
	if err != nil {
		r.logger.Warn("info query follow-up failed", zap.Error(err))
		return types.Intent{Kind: types.IntentPlainReply, Text: r.renderFailure(err)}
	}
	return r.interp.Parse(reply)
}

func (r *Router) runReadOnlyTool(ctx context.Context, call types.ToolCall) string {
	switch call.Name {
	case gateway.ToolGetPartyInfo:
		if r.party == nil {
			return "no party configured"
		}
		summary, err := r.party.Summary(ctx)
		if err != nil || summary == "" {
			return "no party configured"
		}
		return summary
	case gateway.ToolGetEntityInfo:
		ref, _ := call.Input["uuid"].(string)
		if ref == "" {
			return "missing uuid"
		}
		entity, err := r.entities.Get(ctx, ref)
		if err != nil {
			return "lookup failed: " + err.Error()
		}
		if entity == nil {
			return "not found"
		}
		return fmt.Sprintf("%s %q with %d item(s)", entity.Kind, entity.Name, len(entity.Items))
	case gateway.ToolSearchLibrary:
		if r.libraries == nil {
			return "no libraries configured"
		}
		category, _ := call.Input["category"].(string)
		query, _ := call.Input["query"].(string)
		entries, err := r.libraries.Search(ctx, category, query, 10)
		if err != nil {
			return "search failed: " + err.Error()
		}
		if len(entries) == 0 {
			return "no matches"
		}
		names := make([]string, len(entries))
		for i, entry := range entries {
			names[i] = fmt.Sprintf("%s (%s)", entry.Name, entry.Library)
		}
		return strings.Join(names, ", ")
	default:
		return "unsupported tool"
	}
}

func (r *Router) selectModel(body string) string {
	if interpret.IsComplex(body) {
		return r.cfg.ComplexModel
	}
	return r.cfg.DefaultModel
}

// renderFailure turns a pipeline error into the user-visible message. Every
// gateway or executor failure is terminal for the request and always surfaced.
func (r *Router) renderFailure(err error) string {
	var authErr *types.AuthenticationError
	var upErr *types.UpstreamError
	switch {
	case errors.As(err, &authErr):
		return "The assistant is not configured: " + authErr.Error()
	case errors.As(err, &upErr):
		return "The assistant could not reach its brain: " + upErr.Error()
	default:
		return "Request failed: " + err.Error()
	}
}

func describeAction(action types.ProposedAction) string {
	name := payloadName(action.Payload)
	switch action.Kind {
	case types.ActionCreateEntity:
		if name != "" {
			return fmt.Sprintf("create %q", name)
		}
		return "create a new entity"
	case types.ActionModifyEntity:
		if action.TargetID != "" {
			return fmt.Sprintf("modify entity %s", action.TargetID)
		}
		return "modify an entity"
	case types.ActionCreateSubEntity:
		if name != "" {
			return fmt.Sprintf("add item %q", name)
		}
		return "add an item"
	default:
		return string(action.Kind)
	}
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

package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lynkup/aitas/agent"
	"github.com/lynkup/aitas/diagnose"
	"github.com/lynkup/aitas/internal/metrics"
	"github.com/lynkup/aitas/llm"
	"github.com/lynkup/aitas/types"
	"github.com/lynkup/aitas/workflow"
)

const (
	genericApology  = "Sorry, an unexpected error occurred. Could you try that again?"
	thinkingApology = "Sorry, I'm having trouble thinking right now. Give me a second and try again."
	stuckApology    = "Sorry, I got stuck on that one. Could you try asking again?"
)

// maxToolRounds bounds the tool-call loop per utterance so a confused model
// cannot spin the session.
const maxToolRounds = 6

// contextTokenBudget caps the history sent per completion. Carryover keeps
// full histories; the cap applies only at the model boundary.
const contextTokenBudget = 96_000

// Runner drives one conversation: it routes each transcribed utterance to
// the active specialist, executes tool calls through a closed per-kind
// behavior table, and performs handoffs. Every path resolves to a spoken
// string; no tool error ever escapes to the conversation loop.
type Runner struct {
	state     *State
	registry  *agent.Registry
	provider  llm.Provider
	diagnoser *diagnose.Controller
	cursor    *workflow.Cursor
	collector *metrics.Collector
	tokens    *agent.TokenCounter
	logger    *zap.Logger
}

// NewRunner wires the conversation loop.
func NewRunner(state *State, registry *agent.Registry, provider llm.Provider, diagnoser *diagnose.Controller, cursor *workflow.Cursor, collector *metrics.Collector, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		state:     state,
		registry:  registry,
		provider:  provider,
		diagnoser: diagnoser,
		cursor:    cursor,
		collector: collector,
		tokens:    agent.NewTokenCounter(""),
		logger:    logger.With(zap.String("component", "runner")),
	}
}

// HandleUtterance processes one user utterance and returns the spoken reply.
func (r *Runner) HandleUtterance(ctx context.Context, text string) string {
	r.collector.IncUtterance()

	active := r.state.Active()
	if active == nil {
		r.logger.Error("no active specialist")
		return genericApology
	}
	active.Append(types.NewUserMessage(text))

	for round := 0; round < maxToolRounds; round++ {
		resp, err := r.provider.Complete(ctx, &llm.Request{
			Instructions: active.Instructions(),
			Items:        agent.TruncateToBudget(active.History(), r.tokens, contextTokenBudget),
			Tools:        toolsFor(active.Kind()),
		})
		if err != nil {
			r.logger.Error("completion failed", zap.Error(err))
			return thinkingApology
		}

		if len(resp.ToolCalls) == 0 {
			if resp.Text == "" {
				return genericApology
			}
			active.Append(types.NewAssistantMessage(resp.Text))
			return resp.Text
		}

		for _, call := range resp.ToolCalls {
			r.collector.IncToolCall(call.Name)
			callItem := types.NewToolCallWithID(call.CallID, call.Name, call.Arguments)
			active.Append(callItem)

			result, next := r.dispatch(ctx, active, callItem, call)
			if next != nil {
				// Handoff: the transition phrase is this turn's reply. The
				// new specialist's context was rebuilt by carryover inside
				// Transfer, so the tool exchange above travels with it.
				return result
			}
		}
	}

	r.logger.Warn("tool loop exhausted", zap.String("agent", string(active.Kind())))
	return stuckApology
}

// toolArgs is the union of every tool's parameters.
type toolArgs struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	Step      int    `json:"step"`
	ErrorCode string `json:"error_code"`
}

// dispatch executes one tool call and appends its result item to the
// calling specialist's history. It is total: unknown tools and malformed
// arguments produce apology strings, never errors. A non-nil second return
// is the newly active specialist after a handoff.
func (r *Runner) dispatch(ctx context.Context, active *agent.Agent, callItem types.ChatItem, call llm.ToolCall) (string, *agent.Agent) {
	var args toolArgs
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			r.logger.Error("malformed tool arguments",
				zap.String("tool", call.Name), zap.Error(err))
			active.Append(types.NewToolResult(callItem.CallID, call.Name, genericApology))
			return genericApology, nil
		}
	}

	if isTransfer(call.Name) {
		return r.transfer(ctx, active, callItem, call.Name)
	}

	result := r.invoke(ctx, active, call.Name, args)
	active.Append(types.NewToolResult(callItem.CallID, call.Name, result))
	return result, nil
}

func isTransfer(name string) bool {
	switch name {
	case toolToMain, toolToVisual, toolToDiagnosis, toolToWorkflow, toolToNote:
		return true
	}
	return false
}

// invoke runs a non-transfer tool from the behavior table.
func (r *Runner) invoke(ctx context.Context, active *agent.Agent, name string, args toolArgs) string {
	switch name {
	case toolRemember:
		return r.state.Remember(args.Key, args.Value)
	case toolRecall:
		return r.state.Recall(args.Key)
	case toolAddNote:
		return r.state.AddNote(args.Content)
	case toolListNotes:
		notes := r.state.Notes()
		if len(notes) == 0 {
			return "There are no notes yet."
		}
		return "Here are the notes so far: " + strings.Join(notes, "; ")
	case toolErrorCodes:
		return fmt.Sprintf("Looking up information for error code %s.", args.ErrorCode)

	case toolDiagnose:
		return r.diagnoser.Diagnose(ctx, r.state)

	case toolListWorkflows:
		return r.cursor.List(ctx)
	case toolLoadWorkflow:
		return r.cursor.LoadByName(ctx, args.Name)
	case toolNextStep:
		return r.cursor.Next()
	case toolPreviousStep:
		return r.cursor.Previous()
	case toolCurrentStep:
		return r.cursor.Current()
	case toolJumpToStep:
		return r.cursor.Jump(args.Step)

	case toolCaptureImage:
		return r.captureImage(ctx, active)

	default:
		r.logger.Error("unknown tool", zap.String("tool", name))
		return genericApology
	}
}

func (r *Runner) transfer(ctx context.Context, active *agent.Agent, callItem types.ChatItem, name string) (string, *agent.Agent) {
	target := strings.TrimPrefix(name, "to_")

	resolved, ok := r.registry.Get(agent.Kind(target))
	if !ok {
		// Transfer on an unknown target keeps the specialist and apologizes.
		_, utterance := r.registry.Transfer(target, active, r.state)
		active.Append(types.NewToolResult(callItem.CallID, name, utterance))
		return utterance, nil
	}

	// The tool result must be in the outgoing history before carryover merges
	// it into the target, or the target would see a dangling tool call.
	active.Append(types.NewToolResult(callItem.CallID, name, agent.TransitionPhrase(resolved.Kind())))

	next, utterance := r.registry.Transfer(target, active, r.state)
	if next == active {
		return utterance, nil
	}
	r.collector.IncHandoff(string(active.Kind()), string(next.Kind()))

	if next.Kind() == agent.KindVisual {
		if note := r.attachFrame(ctx, next); note != "" {
			utterance = utterance + " " + note
		}
	}
	return utterance, next
}

// attachFrame captures the latest camera frame for the visual specialist so
// the image is in context before its first reply. Returns a spoken note when
// capture is unavailable.
func (r *Runner) attachFrame(ctx context.Context, visual *agent.Agent) string {
	rm := r.state.MediaRoom()
	if rm == nil {
		return "I couldn't access the video feed right now."
	}
	frame, err := rm.LatestFrame(ctx)
	if err != nil || len(frame) == 0 {
		r.logger.Warn("frame capture failed", zap.Error(err))
		return "I wasn't able to get the latest image from the video feed, but I'm ready to help otherwise."
	}

	item := types.NewUserMessage("").WithImages([]types.ImageContent{{
		Type: "base64",
		Data: base64.StdEncoding.EncodeToString(frame),
	}})
	visual.Append(item)
	return ""
}

// captureImage grabs a fresh frame mid-conversation so the visual specialist
// can look again at the technician's request.
func (r *Runner) captureImage(ctx context.Context, active *agent.Agent) string {
	rm := r.state.MediaRoom()
	if rm == nil {
		return "I couldn't access the video feed right now."
	}
	frame, err := rm.LatestFrame(ctx)
	if err != nil || len(frame) == 0 {
		r.logger.Warn("frame capture failed", zap.Error(err))
		return "I wasn't able to capture an image from the video feed. Could you try again?"
	}

	active.Append(types.NewUserMessage("").WithImages([]types.ImageContent{{
		Type: "base64",
		Data: base64.StdEncoding.EncodeToString(frame),
	}}))
	return "Okay, I've captured a new image and I'm taking a look."
}

package session

import (
	"encoding/json"
	"fmt"

	"github.com/lynkup/aitas/agent"
	"github.com/lynkup/aitas/llm"
)

// Tool names. Transfer tools are "to_" plus the target specialist kind; the
// runner relies on that shape to route handoffs.
const (
	toolToMain      = "to_main"
	toolToVisual    = "to_visual"
	toolToDiagnosis = "to_diagnosis"
	toolToWorkflow  = "to_workflow"
	toolToNote      = "to_note"

	toolRemember   = "remember_info"
	toolRecall     = "recall_info"
	toolAddNote    = "add_note"
	toolListNotes  = "list_notes"
	toolErrorCodes = "get_error_codes"

	toolDiagnose = "diagnose"

	toolListWorkflows = "list_workflows"
	toolLoadWorkflow  = "load_workflow"
	toolNextStep      = "next_step"
	toolPreviousStep  = "previous_step"
	toolCurrentStep   = "current_step"
	toolJumpToStep    = "jump_to_step"

	toolCaptureImage = "capture_image"
)

func noParams() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

func stringParams(pairs ...string) json.RawMessage {
	props := map[string]any{}
	required := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		props[pairs[i]] = map[string]any{"type": "string", "description": pairs[i+1]}
		required = append(required, pairs[i])
	}
	raw, err := json.Marshal(map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	})
	if err != nil {
		panic(fmt.Sprintf("tool schema: %v", err))
	}
	return raw
}

func def(name, description string, params json.RawMessage) llm.ToolDef {
	return llm.ToolDef{Name: name, Description: description, Parameters: params}
}

var (
	transferMain      = def(toolToMain, "Return to the general conversation when the current task is finished.", noParams())
	transferVisual    = def(toolToVisual, "Hand off when the technician wants something looked at through the camera.", noParams())
	transferDiagnosis = def(toolToDiagnosis, "Hand off when the technician asks for a system diagnosis from the measurement tool.", noParams())
	transferWorkflow  = def(toolToWorkflow, "Hand off when the technician wants to start or continue a step-by-step procedure.", noParams())
	transferNote      = def(toolToNote, "Hand off when the technician wants to record or review job notes.", noParams())

	rememberDef = def(toolRemember, "Store a fact the technician wants remembered for this job.",
		stringParams("key", "Short label for the fact, such as 'truck number'.", "value", "The value to remember."))
	recallDef = def(toolRecall, "Look up a fact stored earlier in this session.",
		stringParams("key", "The label the fact was stored under."))
	errorCodesDef = def(toolErrorCodes, "Look up what a manufacturer error code means.",
		stringParams("error_code", "The error code shown on the equipment."))

	diagnoseDef = def(toolDiagnose, "Pull live readings from the connected measurement tool and score the system.", noParams())

	addNoteDef   = def(toolAddNote, "Record a free-form note about the job.", stringParams("content", "The note text."))
	listNotesDef = def(toolListNotes, "Read back the notes recorded so far.", noParams())

	listWorkflowsDef = def(toolListWorkflows, "List the procedures available to this company.", noParams())
	loadWorkflowDef  = def(toolLoadWorkflow, "Load a procedure by name so its steps can be walked through.",
		stringParams("name", "The procedure name, as close as the technician said it."))
	nextStepDef     = def(toolNextStep, "Advance to the next step of the loaded procedure.", noParams())
	previousStepDef = def(toolPreviousStep, "Go back to the previous step of the loaded procedure.", noParams())
	currentStepDef  = def(toolCurrentStep, "Repeat the current step of the loaded procedure.", noParams())
	jumpToStepDef   = def(toolJumpToStep, "Jump directly to a numbered step of the loaded procedure.",
		json.RawMessage(`{"type":"object","properties":{"step":{"type":"integer","description":"The step number, starting at 1."}},"required":["step"]}`))

	captureImageDef = def(toolCaptureImage, "Capture a fresh image from the technician's camera.", noParams())
)

// toolsFor is the closed behavior table: each specialist is offered exactly
// the tools its role allows, nothing more.
func toolsFor(kind agent.Kind) []llm.ToolDef {
	switch kind {
	case agent.KindMain:
		return []llm.ToolDef{
			transferVisual, transferDiagnosis, transferWorkflow, transferNote,
			diagnoseDef, rememberDef, recallDef, errorCodesDef,
		}
	case agent.KindVisual:
		return []llm.ToolDef{captureImageDef, rememberDef, recallDef, transferMain}
	case agent.KindDiagnosis:
		return []llm.ToolDef{diagnoseDef, rememberDef, recallDef, transferMain}
	case agent.KindWorkflow:
		return []llm.ToolDef{
			listWorkflowsDef, loadWorkflowDef,
			nextStepDef, previousStepDef, currentStepDef, jumpToStepDef,
			rememberDef, recallDef, transferMain,
		}
	case agent.KindNote:
		return []llm.ToolDef{addNoteDef, listNotesDef, rememberDef, recallDef, transferMain}
	}
	return nil
}

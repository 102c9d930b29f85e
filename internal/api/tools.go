package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/medapp/scheduler/internal/scheduling"
)

// ToolDescriptor describes one callable operation for the conversational
// agent: a name, a human description the model reads, and a JSON schema for
// the arguments.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type ToolListResponse struct {
	Tools []ToolDescriptor `json:"tools"`
}

const (
	// ToolGetTimeSlots keeps the operation id the original API exposed.
	ToolGetTimeSlots           = "get_time_slots"
	ToolGetSpecializationSlots = "get_specialization_slots"
)

// toolDescriptors is the fixed set of slot-discovery operations exposed to
// the agent. Write operations stay HTTP-only.
func toolDescriptors() []ToolDescriptor {
	return []ToolDescriptor{
		{
			Name:        ToolGetTimeSlots,
			Description: "List the free time slots of one professional. Times are RFC3339; start defaults to now.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"professional_id": {"type": "string", "description": "Identifier of the professional"},
					"start": {"type": "string", "description": "Window start, RFC3339, optional"},
					"end": {"type": "string", "description": "Window end, RFC3339, optional"}
				},
				"required": ["professional_id"]
			}`),
		},
		{
			Name:        ToolGetSpecializationSlots,
			Description: "List free time slots across every professional of a medical specialization, with the professional offering each slot. Start defaults to now, end to thirty days out.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"specialization": {"type": "string", "description": "One of the known medical specialties, e.g. cardiology"},
					"start": {"type": "string", "description": "Window start, RFC3339, optional"},
					"end": {"type": "string", "description": "Window end, RFC3339, optional"}
				},
				"required": ["specialization"]
			}`),
		},
	}
}

func (h *handlers) listTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ToolListResponse{Tools: toolDescriptors()})
}

type toolWindowArgs struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (a toolWindowArgs) window() (scheduling.TimeWindow, error) {
	var w scheduling.TimeWindow
	if a.Start != "" {
		t, err := time.Parse(time.RFC3339, a.Start)
		if err != nil {
			return w, err
		}
		w.Start = t
	}
	if a.End != "" {
		t, err := time.Parse(time.RFC3339, a.End)
		if err != nil {
			return w, err
		}
		w.End = t
	}
	return w, nil
}

// callTool invokes a tool by operation name. Same semantics and error
// taxonomy as the HTTP routes, addressed by name instead of path.
func (h *handlers) callTool(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "name") {
	case ToolGetTimeSlots:
		var args struct {
			ProfessionalID string `json:"professional_id"`
			toolWindowArgs
		}
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_tool_args", "could not parse JSON arguments")
			return
		}

		id, err := primitive.ObjectIDFromHex(args.ProfessionalID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid object id")
			return
		}
		window, err := args.window()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "start and end must be RFC3339 timestamps")
			return
		}

		slots, err := h.availability.SlotsForProfessional(r.Context(), id, window)
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"slots": newSlotResponses(slots)})

	case ToolGetSpecializationSlots:
		var args struct {
			Specialization string `json:"specialization"`
			toolWindowArgs
		}
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_tool_args", "could not parse JSON arguments")
			return
		}

		spec, err := scheduling.ParseSpecialization(args.Specialization)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown_specialization", "specialization is not one of the known specialties")
			return
		}
		window, err := args.window()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "start and end must be RFC3339 timestamps")
			return
		}

		pairs, err := h.availability.SlotsForSpecialization(r.Context(), spec, window)
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"slots": newSpecializationSlotResponses(pairs)})

	default:
		writeError(w, http.StatusNotFound, "unknown_tool", "no tool with that name")
	}
}

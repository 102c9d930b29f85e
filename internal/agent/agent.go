package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInstructions is the system prompt used when no instructions file
// is configured.
const DefaultInstructions = `You are a scheduling assistant for a medical clinic.
You help patients find free appointment slots with the right professional.
Use the available tools to look up real availability before answering, and
never invent slots. Ask for missing details (specialty, preferred dates)
instead of guessing. Keep replies short and concrete.`

// maxToolRounds bounds how many completion/tool-execution cycles one user
// message may trigger.
const maxToolRounds = 8

// get_current_time is served locally; the model needs it to resolve phrases
// like "tomorrow morning" against real availability windows.
const toolGetCurrentTime = "get_current_time"

// Completer is the LLM dependency, narrowed for tests.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage, tools []Tool) (ChatMessage, error)
}

// ToolCaller executes scheduler tools by name.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// Agent relays conversation turns to the model and executes the tool calls
// it asks for. It holds no per-conversation state; callers own the history.
type Agent struct {
	llm          Completer
	scheduler    ToolCaller
	tools        []Tool
	instructions string
	log          zerolog.Logger
	now          func() time.Time
}

func New(llm Completer, scheduler ToolCaller, schedulerTools []Tool, instructions string, log zerolog.Logger) *Agent {
	if instructions == "" {
		instructions = DefaultInstructions
	}

	tools := make([]Tool, 0, len(schedulerTools)+1)
	tools = append(tools, Tool{
		Type: "function",
		Function: ToolFunction{
			Name:        toolGetCurrentTime,
			Description: "Get the current time in RFC3339 format",
			Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
		},
	})
	tools = append(tools, schedulerTools...)

	return &Agent{
		llm:          llm,
		scheduler:    scheduler,
		tools:        tools,
		instructions: instructions,
		log:          log,
		now:          time.Now,
	}
}

// Respond appends userText to history, runs the completion/tool loop until
// the model produces plain text, and returns the updated history along with
// that final text.
func (a *Agent) Respond(ctx context.Context, history []ChatMessage, userText string) ([]ChatMessage, string, error) {
	if len(history) == 0 {
		history = append(history, ChatMessage{Role: ChatRoleSystem, Content: a.instructions})
	}
	history = append(history, ChatMessage{Role: ChatRoleUser, Content: userText})

	for round := 0; round < maxToolRounds; round++ {
		reply, err := a.llm.Complete(ctx, history, a.tools)
		if err != nil {
			return history, "", err
		}

		history = append(history, reply)

		if len(reply.ToolCalls) == 0 {
			return history, reply.Content, nil
		}

		for _, call := range reply.ToolCalls {
			result := a.executeTool(ctx, call)
			history = append(history, ChatMessage{
				Role:       ChatRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	return history, "", fmt.Errorf("agent: no final answer after %d tool rounds", maxToolRounds)
}

func (a *Agent) executeTool(ctx context.Context, call ToolCall) string {
	name := call.Function.Name

	a.log.Debug().
		Str("tool", name).
		Str("arguments", call.Function.Arguments).
		Msg("executing tool call")

	if name == toolGetCurrentTime {
		return a.now().Format(time.RFC3339)
	}

	result, err := a.scheduler.CallTool(ctx, name, json.RawMessage(call.Function.Arguments))
	if err != nil {
		a.log.Error().Err(err).Str("tool", name).Msg("tool call failed")
		return fmt.Sprintf(`{"error": "tool call failed: %s"}`, name)
	}
	return result
}

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SchedulerClient consumes the scheduling API's tool surface: descriptor
// discovery at /tools, invocation at /tools/{name}.
type SchedulerClient struct {
	baseURL string
	http    *http.Client
}

func NewSchedulerClient(baseURL string) *SchedulerClient {
	return &SchedulerClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type schedulerToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type schedulerToolList struct {
	Tools []schedulerToolDescriptor `json:"tools"`
}

// ListTools fetches the scheduler's tool descriptors, already shaped for the
// model's function-tool format.
func (c *SchedulerClient) ListTools(ctx context.Context) ([]Tool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tools", nil)
	if err != nil {
		return nil, fmt.Errorf("agent: build tool list request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent: fetch scheduler tools: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent: scheduler tool list returned status %d", resp.StatusCode)
	}

	var list schedulerToolList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("agent: decode scheduler tool list: %w", err)
	}

	tools := make([]Tool, 0, len(list.Tools))
	for _, d := range list.Tools {
		tools = append(tools, Tool{
			Type: "function",
			Function: ToolFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return tools, nil
}

// CallTool invokes one named operation with raw JSON arguments and returns
// the response body verbatim; the model reads it as the tool result. Error
// responses are returned as text too, so the model can recover (ask the
// user to correct a date, pick another professional) instead of the whole
// turn failing.
func (c *SchedulerClient) CallTool(ctx context.Context, name string, args json.RawMessage) (string, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tools/"+name, bytes.NewReader(args))
	if err != nil {
		return "", fmt.Errorf("agent: build tool call request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent: call tool %s: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("agent: read tool %s response: %w", name, err)
	}

	return string(raw), nil
}

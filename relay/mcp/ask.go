package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/transcript"
)

var (
	askToolName    = "ask_agent"
	askDescription = "Send a message to the agent service and return the agent's reply. Pass thread_id to continue an earlier conversation."
)

// AskInput represents the input arguments for the ask_agent tool.
type AskInput struct {
	Message  string `json:"message" jsonschema:"the message to send to the agent"`
	ThreadID string `json:"thread_id,omitempty" jsonschema:"conversation thread to continue"`
	Agent    string `json:"agent,omitempty" jsonschema:"agent to ask instead of the relay default"`
	Model    string `json:"model,omitempty" jsonschema:"model the agent should use"`
}

// AskOutput represents the output of the ask_agent tool.
type AskOutput struct {
	Reply    string `json:"reply"`
	ThreadID string `json:"thread_id,omitempty"`
	RunID    string `json:"run_id,omitempty"`
}

// handleAsk invokes the agent service once, without streaming.
func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	logger := s.config.Logger

	message := strings.TrimSpace(input.Message)
	if message == "" {
		return errorResult("message is required"), AskOutput{}, nil
	}

	client := s.config.Client
	if input.Agent != "" {
		client = client.WithAgent(input.Agent)
	}

	logger.Debug("MCP ask request",
		"agent", client.Agent(),
		"thread_id", input.ThreadID,
	)

	start := time.Now()
	res, err := client.Invoke(ctx, agent.Request{
		Message:  message,
		ThreadID: input.ThreadID,
		Model:    input.Model,
	})

	ex := &transcript.Exchange{
		ThreadID:  input.ThreadID,
		Agent:     client.Agent(),
		Prompt:    message,
		CreatedAt: start.UTC(),
	}
	defer func() {
		ex.Duration = time.Since(start)
		if s.config.Record != nil {
			s.config.Record(ex)
		}
	}()

	if err != nil {
		logger.Error("agent invocation failed", "error", err)
		ex.Failed = true
		ex.Error = err.Error()
		return errorResult(fmt.Sprintf("Agent request failed: %v", err)), AskOutput{}, nil
	}

	output := AskOutput{
		Reply:    res.DisplayText(),
		ThreadID: input.ThreadID,
		RunID:    res.RunID(),
	}
	ex.Response = output.Reply
	ex.RunID = output.RunID

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize reply: %v", err)), AskOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

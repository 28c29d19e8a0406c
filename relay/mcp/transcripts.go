package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/agentchat/pkg/transcript"
	"github.com/papercomputeco/agentchat/pkg/utils"
)

var (
	listToolName    = "list_transcripts"
	listDescription = "List exchanges recorded by the relay, newest first, or the exchanges of one thread in order when thread_id is given."
)

// previewLength bounds the response text included per exchange.
const previewLength = 280

// ListTranscriptsInput represents the input arguments for the list_transcripts tool.
type ListTranscriptsInput struct {
	ThreadID string `json:"thread_id,omitempty" jsonschema:"only list exchanges of this thread"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of exchanges to return (default: 20)"`
}

// TranscriptEntry is one exchange in the list_transcripts output.
type TranscriptEntry struct {
	ID        string `json:"id"`
	ThreadID  string `json:"thread_id"`
	Agent     string `json:"agent,omitempty"`
	Prompt    string `json:"prompt"`
	Response  string `json:"response"`
	Failed    bool   `json:"failed,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ListTranscriptsOutput represents the output of the list_transcripts tool.
type ListTranscriptsOutput struct {
	Exchanges []TranscriptEntry `json:"exchanges"`
	Count     int               `json:"count"`
}

func (s *Server) handleListTranscripts(ctx context.Context, _ *mcp.CallToolRequest, input ListTranscriptsInput) (*mcp.CallToolResult, ListTranscriptsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	var (
		exchanges []*transcript.Exchange
		err       error
	)
	if input.ThreadID != "" {
		exchanges, err = s.config.Driver.ListByThread(ctx, input.ThreadID)
		if len(exchanges) > limit {
			exchanges = exchanges[len(exchanges)-limit:]
		}
	} else {
		exchanges, err = s.config.Driver.List(ctx, limit)
	}
	if err != nil {
		s.config.Logger.Error("failed to list transcripts", "error", err)
		return errorResult(fmt.Sprintf("Failed to list transcripts: %v", err)), ListTranscriptsOutput{}, nil
	}

	output := ListTranscriptsOutput{
		Exchanges: make([]TranscriptEntry, 0, len(exchanges)),
	}
	for _, ex := range exchanges {
		output.Exchanges = append(output.Exchanges, TranscriptEntry{
			ID:        ex.ID,
			ThreadID:  ex.ThreadID,
			Agent:     ex.Agent,
			Prompt:    ex.Prompt,
			Response:  utils.Truncate(ex.Response, previewLength),
			Failed:    ex.Failed,
			CreatedAt: ex.CreatedAt.Format(time.RFC3339),
		})
	}
	output.Count = len(output.Exchanges)

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), ListTranscriptsOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

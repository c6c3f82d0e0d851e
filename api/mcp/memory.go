package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/mnemo/pkg/auth"
	"github.com/papercomputeco/mnemo/pkg/memory"
	"github.com/papercomputeco/mnemo/pkg/storage"
)

var (
	rememberToolName    = "remember"
	rememberDescription = "Store a piece of information in memory under a short key. Storing under an existing key replaces the previous value."

	recallToolName    = "recall"
	recallDescription = "Retrieve a previously stored memory by its key."

	forgetToolName    = "forget"
	forgetDescription = "Remove a memory by its key."

	listToolName    = "list_memories"
	listDescription = "List all stored memories."
)

const (
	unauthorizedText = "not authorized"
	unavailableText  = "memory backend unavailable, try again later"
	internalText     = "memory operation failed"
)

// RememberInput represents the input arguments for the remember tool.
type RememberInput struct {
	Key   string `json:"key" jsonschema:"a short identifier for this memory (e.g. favorite_color, birthday)"`
	Value string `json:"value" jsonschema:"the information to remember"`
}

// RememberOutput represents the structured output of the remember tool.
type RememberOutput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// KeyInput represents the input arguments for the recall and forget tools.
type KeyInput struct {
	Key string `json:"key" jsonschema:"the identifier of the memory"`
}

// RecallOutput represents the structured output of the recall tool.
type RecallOutput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// ForgetOutput represents the structured output of the forget tool.
type ForgetOutput struct {
	Key       string `json:"key"`
	Forgotten bool   `json:"forgotten"`
}

// ListInput represents the (empty) input arguments for the list_memories tool.
type ListInput struct{}

// ListOutput represents the structured output of the list_memories tool.
type ListOutput struct {
	Count    int            `json:"count"`
	Memories []memory.Entry `json:"memories"`
}

func (s *Server) handleRemember(ctx context.Context, req *mcp.CallToolRequest, input RememberInput) (*mcp.CallToolResult, RememberOutput, error) {
	res, err := s.config.Service.Remember(ctx, s.token(req), input.Key, input.Value)
	if err != nil {
		return s.errorResult(rememberToolName, err), RememberOutput{}, nil
	}

	return textResult(FormatRemembered(res)), RememberOutput{Key: res.Key, Value: res.Value}, nil
}

func (s *Server) handleRecall(ctx context.Context, req *mcp.CallToolRequest, input KeyInput) (*mcp.CallToolResult, RecallOutput, error) {
	res, err := s.config.Service.Recall(ctx, s.token(req), input.Key)
	if err != nil {
		return s.errorResult(recallToolName, err), RecallOutput{}, nil
	}

	return textResult(FormatRecalled(res)), RecallOutput{Key: res.Key, Value: res.Value, Found: res.Found}, nil
}

func (s *Server) handleForget(ctx context.Context, req *mcp.CallToolRequest, input KeyInput) (*mcp.CallToolResult, ForgetOutput, error) {
	res, err := s.config.Service.Forget(ctx, s.token(req), input.Key)
	if err != nil {
		return s.errorResult(forgetToolName, err), ForgetOutput{}, nil
	}

	return textResult(FormatForgotten(res)), ForgetOutput{Key: res.Key, Forgotten: res.Forgotten}, nil
}

func (s *Server) handleList(ctx context.Context, req *mcp.CallToolRequest, _ ListInput) (*mcp.CallToolResult, ListOutput, error) {
	res, err := s.config.Service.List(ctx, s.token(req))
	if err != nil {
		return s.errorResult(listToolName, err), ListOutput{Memories: []memory.Entry{}}, nil
	}

	entries := SortedEntries(res)
	return textResult(FormatList(entries)), ListOutput{Count: len(entries), Memories: entries}, nil
}

// errorResult maps a service error onto the text a client is allowed to see.
// Authorization failures are uniform so callers cannot tell an unknown token
// from a missing scope.
func (s *Server) errorResult(tool string, err error) *mcp.CallToolResult {
	var text string
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		text = unauthorizedText
	case errors.Is(err, memory.ErrInvalidArgument):
		text = err.Error()
	case errors.Is(err, storage.ErrBackendUnavailable):
		text = unavailableText
	default:
		text = internalText
	}

	s.config.Logger.Debug("MCP tool call failed",
		zap.String("tool", tool),
		zap.Error(err),
	)

	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// FormatRemembered renders a remember result.
func FormatRemembered(res *memory.RememberResult) string {
	return fmt.Sprintf("Remembered '%s' = '%s'", res.Key, res.Value)
}

// FormatRecalled renders a recall result.
func FormatRecalled(res *memory.RecallResult) string {
	if !res.Found {
		return fmt.Sprintf("I don't have any memory of '%s'", res.Key)
	}
	return fmt.Sprintf("'%s' = '%s'", res.Key, res.Value)
}

// FormatForgotten renders a forget result.
func FormatForgotten(res *memory.ForgetResult) string {
	if !res.Forgotten {
		return fmt.Sprintf("I don't have any memory of '%s' to forget", res.Key)
	}
	return fmt.Sprintf("Forgot '%s'", res.Key)
}

// FormatList renders entries, which should already be sorted.
func FormatList(entries []memory.Entry) string {
	if len(entries) == 0 {
		return "No memories stored yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current memories (%d):", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "\n  * %s = %s", e.Key, e.Value)
	}
	return b.String()
}

// SortedEntries returns the list result's entries ordered by key.
func SortedEntries(res *memory.ListResult) []memory.Entry {
	entries := make([]memory.Entry, len(res.Entries))
	copy(entries, res.Entries)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries
}

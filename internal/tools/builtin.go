package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/haasonsaas/agentrunner/pkg/models"
)

// EchoTool returns its "text" argument verbatim. A deterministic tool
// keeps placeholder-chaining tests free of an LM dependency.
type EchoTool struct{}

func (EchoTool) Name() string        { return "echo" }
func (EchoTool) Description() string { return "Returns the given text unchanged." }

func (EchoTool) ParamSchema() Schema {
	return Schema{
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string", "description": "Text to echo back"},
			},
			"required": []string{"text"},
		},
		Returns: map[string]any{"type": "string"},
		Example: map[string]any{"text": "hello"},
	}
}

func (EchoTool) Execute(_ context.Context, args map[string]any) (*models.ToolResult, error) {
	text, _ := args["text"].(string)
	result := models.NewSuccess(text)
	return &result, nil
}

// AdderTool adds two numeric arguments.
type AdderTool struct{}

func (AdderTool) Name() string        { return "adder" }
func (AdderTool) Description() string { return "Adds two numbers and returns the sum." }

func (AdderTool) ParamSchema() Schema {
	return Schema{
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		Returns: map[string]any{"type": "number"},
		Example: map[string]any{"a": 2, "b": 2},
	}
}

func (AdderTool) Execute(_ context.Context, args map[string]any) (*models.ToolResult, error) {
	a, aok := toFloat(args["a"])
	b, bok := toFloat(args["b"])
	if !aok || !bok {
		failure := models.NewFailure("adder: both 'a' and 'b' must be numbers")
		return &failure, nil
	}
	result := models.NewSuccess(a + b)
	return &result, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// ReaderTool fetches the contents of a local file path or http(s) URL, up
// to a fixed byte cap, for steps that need to inspect prior output.
type ReaderTool struct {
	MaxBytes int64
}

const defaultReaderMaxBytes = 1 << 20 // 1MiB

func (ReaderTool) Name() string        { return "reader" }
func (ReaderTool) Description() string { return "Reads a local file path or http(s) URL and returns its contents." }

func (ReaderTool) ParamSchema() Schema {
	return Schema{
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": map[string]any{"type": "string", "description": "File path or URL"},
			},
			"required": []string{"source"},
		},
		Returns: map[string]any{"type": "string"},
	}
}

func (t ReaderTool) Execute(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
	source, _ := args["source"].(string)
	if strings.TrimSpace(source) == "" {
		failure := models.NewFailure("reader: 'source' is required")
		return &failure, nil
	}

	maxBytes := t.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultReaderMaxBytes
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			failure := models.NewFailure(err.Error())
			return &failure, nil
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			failure := models.NewFailure(err.Error())
			return &failure, nil
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			failure := models.NewFailure(fmt.Sprintf("reader: %s returned status %d", source, resp.StatusCode))
			return &failure, nil
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
		if err != nil {
			failure := models.NewFailure(err.Error())
			return &failure, nil
		}
		result := models.NewSuccess(string(data))
		return &result, nil
	}

	f, err := os.Open(source)
	if err != nil {
		failure := models.NewFailure(err.Error())
		return &failure, nil
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxBytes))
	if err != nil {
		failure := models.NewFailure(err.Error())
		return &failure, nil
	}
	result := models.NewSuccess(string(data))
	return &result, nil
}

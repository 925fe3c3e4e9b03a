package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/haasonsaas/agentrunner/pkg/models"
)

// DefaultToolTimeout is the deadline applied to a tool execution when the
// caller doesn't supply one.
const DefaultToolTimeout = 30 * time.Second

// CodeRunnerTool executes a short Python snippet via the system
// interpreter. There is no process sandboxing beyond a wall-clock
// deadline.
type CodeRunnerTool struct {
	Interpreter string // default "python3"
	Timeout     time.Duration
}

func (CodeRunnerTool) Name() string { return "code_runner" }
func (CodeRunnerTool) Description() string {
	return "Runs a Python code snippet and returns its stdout, or an error naming any missing import."
}

func (CodeRunnerTool) ParamSchema() Schema {
	return Schema{
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"code": map[string]any{"type": "string", "description": "Python source to execute"},
			},
			"required": []string{"code"},
		},
		Returns: map[string]any{"type": "string"},
	}
}

func (t CodeRunnerTool) Execute(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
	code, _ := args["code"].(string)
	if code == "" {
		failure := models.NewFailure("code_runner: 'code' is required")
		return &failure, nil
	}

	interpreter := t.Interpreter
	if interpreter == "" {
		interpreter = "python3"
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, interpreter, "-c", code)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			failure := models.NewFailure(fmt.Sprintf("code_runner: timed out after %s", timeout))
			return &failure, nil
		}
		msg := stderr.String()
		if msg == "" {
			msg = err.Error()
		}
		failure := models.NewFailure(msg)
		return &failure, nil
	}

	result := models.NewSuccess(stdout.String())
	return &result, nil
}

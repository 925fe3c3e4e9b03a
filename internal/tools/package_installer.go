package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/haasonsaas/agentrunner/pkg/models"
)

// PackageInstallerTool runs "pip install <packages...>" so a failed
// code_runner step naming a missing module can recover.
type PackageInstallerTool struct {
	PipPath string // default "pip3"
	Timeout time.Duration
}

func (PackageInstallerTool) Name() string { return "package_installer" }
func (PackageInstallerTool) Description() string {
	return "Installs Python packages via pip so a subsequent code_runner retry can import them."
}

func (PackageInstallerTool) ParamSchema() Schema {
	return Schema{
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"packages": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Package names to install",
				},
				"upgrade": map[string]any{"type": "boolean", "description": "Upgrade if already installed"},
			},
			"required": []string{"packages"},
		},
		Returns: map[string]any{"type": "string"},
		Example: map[string]any{"packages": []string{"requests"}},
	}
}

func (t PackageInstallerTool) Execute(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
	packages := stringList(args["packages"])
	if len(packages) == 0 {
		failure := models.NewFailure("package_installer: 'packages' is required")
		return &failure, nil
	}
	upgrade, _ := args["upgrade"].(bool)

	pipPath := t.PipPath
	if pipPath == "" {
		pipPath = "pip3"
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmdArgs := []string{"install"}
	if upgrade {
		cmdArgs = append(cmdArgs, "--upgrade")
	}
	cmdArgs = append(cmdArgs, packages...)

	cmd := exec.CommandContext(runCtx, pipPath, cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			failure := models.NewFailure(fmt.Sprintf("package_installer: timed out installing %s", strings.Join(packages, ", ")))
			return &failure, nil
		}
		msg := stderr.String()
		if msg == "" {
			msg = err.Error()
		}
		failure := models.NewFailure(msg)
		return &failure, nil
	}

	result := models.NewSuccess(fmt.Sprintf("installed %s", strings.Join(packages, ", ")))
	return &result, nil
}

// ErrorHandlers declares the recovery path for a missing Python module: a
// package_installer step installing the module named by the error, after
// which the engine retries the failed step.
func (PackageInstallerTool) ErrorHandlers() []ErrorHandler {
	return []ErrorHandler{
		{
			Pattern:     "No module named",
			Description: "Install the missing Python module named by the error",
			ToolName:    "package_installer",
			ArgGenerator: func(errorText string, _ *models.PlanStep) map[string]any {
				return map[string]any{"packages": []any{extractMissingModule(errorText)}}
			},
		},
	}
}

// extractMissingModule pulls the quoted module name out of a CPython
// "No module named 'foo'" message.
func extractMissingModule(errorText string) string {
	const marker = "No module named"
	idx := strings.Index(errorText, marker)
	if idx < 0 {
		return ""
	}
	rest := errorText[idx+len(marker):]
	start := strings.IndexAny(rest, `'"`)
	if start < 0 {
		return strings.Trim(strings.TrimSpace(rest), `'"`)
	}
	quote := rest[start]
	end := strings.IndexByte(rest[start+1:], quote)
	if end < 0 {
		return strings.Trim(strings.TrimSpace(rest[start+1:]), `'"`)
	}
	return rest[start+1 : start+1+end]
}

// stringList coerces a JSON-decoded array ([]any or []string) into a
// []string, skipping non-string elements.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

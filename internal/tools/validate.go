package tools

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateArgs checks args against a tool's declared parameter schema
// before Execute runs, so malformed plan step arguments surface as a
// clear validation error rather than a confusing runtime failure deep
// inside the tool.
func ValidateArgs(schema Schema, args map[string]any) error {
	if schema.Parameters == nil {
		return nil
	}

	schemaJSON, err := json.Marshal(schema.Parameters)
	if err != nil {
		return fmt.Errorf("tools: marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("tool-args.json", bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("tools: load schema: %w", err)
	}
	compiled, err := compiler.Compile("tool-args.json")
	if err != nil {
		return fmt.Errorf("tools: compile schema: %w", err)
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := compiled.Validate(args); err != nil {
		return &Error{Type: ErrorInvalidInput, Message: err.Error(), Cause: err}
	}
	return nil
}

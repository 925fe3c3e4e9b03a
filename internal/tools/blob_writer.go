package tools

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/haasonsaas/agentrunner/internal/storage"
	"github.com/haasonsaas/agentrunner/pkg/models"
)

// BlobWriterTool persists text content to the configured blob store,
// generalizing the original's file_writer tool (a bare os.WriteFile to a
// caller-given relative path) to the long-term Store abstraction so the
// same tool works against a local filesystem root or an S3 bucket
// without the plan author knowing which backend is configured.
type BlobWriterTool struct {
	Store storage.Store
}

func (BlobWriterTool) Name() string { return "blob_writer" }
func (BlobWriterTool) Description() string {
	return "Writes text content to the configured blob store and returns a reference to it."
}

// blobWriterArgs declares blob_writer's parameters; the schema map is
// reflected from it rather than hand-written.
type blobWriterArgs struct {
	Name     string `json:"name,omitempty" jsonschema:"description=Blob name; a unique id is generated if omitted"`
	Content  string `json:"content" jsonschema:"description=Text content to store"`
	MimeType string `json:"mime_type,omitempty" jsonschema:"description=Content MIME type; e.g. text/plain"`
}

func (BlobWriterTool) ParamSchema() Schema {
	return Schema{
		Parameters: GenerateParameterSchema(blobWriterArgs{}),
		Returns:    map[string]any{"type": "string", "description": "Reference URI of the stored blob"},
	}
}

func (t BlobWriterTool) Execute(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
	if t.Store == nil {
		failure := models.NewFailure("blob_writer: no blob store configured")
		return &failure, nil
	}

	content, _ := args["content"].(string)
	if content == "" {
		failure := models.NewFailure("blob_writer: 'content' is required")
		return &failure, nil
	}

	name, _ := args["name"].(string)
	if strings.TrimSpace(name) == "" {
		name = uuid.NewString()
	}
	mimeType, _ := args["mime_type"].(string)
	if mimeType == "" {
		mimeType = "text/plain"
	}

	ref, err := t.Store.Put(ctx, name, strings.NewReader(content), storage.PutOptions{
		MimeType: mimeType,
		Metadata: map[string]string{"kind": "tool_output"},
	})
	if err != nil {
		failure := models.NewFailure(err.Error())
		return &failure, nil
	}

	result := models.NewSuccess(ref)
	return &result, nil
}

package tools

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/petasbytes/go-mcp-agent/internal/fsops"
)

type ReadFileInput struct {
	Path   string `json:"path" jsonschema_description:"File path relative to the workspace root."`
	Offset int    `json:"offset,omitempty" jsonschema_description:"Line offset (0-based) to start reading from."`
	Limit  int    `json:"limit,omitempty" jsonschema_description:"Maximum lines to return from offset (default 200)."`
}

type ListFilesInput struct {
	Path string `json:"path,omitempty" jsonschema_description:"Directory relative to the workspace root. Defaults to the root."`
}

type EditFileInput struct {
	Path   string `json:"path" jsonschema_description:"Target file path relative to the workspace root."`
	OldStr string `json:"old_str" jsonschema_description:"Exact text to replace. Empty creates the file when it does not exist."`
	NewStr string `json:"new_str" jsonschema_description:"Text to write, or to replace old_str with."`
}

const (
	defaultPageLines = 200
	maxLineRunes     = 2000
	truncatedMarker  = "-- truncated; use offset/limit to fetch more --\n"
)

// WorkspaceTools exposes ws as read_file and list_files, plus edit_file when
// the workspace is writable.
func WorkspaceTools(ws *fsops.Workspace) []ToolDefinition {
	defs := []ToolDefinition{
		{
			Name:        "read_file",
			Description: "Read the contents of a file in the workspace. Use list_files to discover paths.",
			InputSchema: GenerateSchema[ReadFileInput](),
			Function: func(_ context.Context, args map[string]any) (any, error) {
				in, err := decodeArgs[ReadFileInput](args)
				if err != nil {
					return nil, fmt.Errorf("read_file: %w", err)
				}
				if in.Path == "" {
					return nil, fmt.Errorf("read_file: path is required")
				}
				content, err := ws.ReadFile(in.Path)
				if err != nil {
					return nil, err
				}
				return page(content, in.Offset, in.Limit), nil
			},
		},
		{
			Name:        "list_files",
			Description: "List the entries of a workspace directory. Directory names end with a slash.",
			InputSchema: GenerateSchema[ListFilesInput](),
			Function: func(_ context.Context, args map[string]any) (any, error) {
				in, err := decodeArgs[ListFilesInput](args)
				if err != nil {
					return nil, fmt.Errorf("list_files: %w", err)
				}
				return ws.ListFiles(in.Path)
			},
		},
	}
	if !ws.Writable() {
		return defs
	}
	return append(defs, ToolDefinition{
		Name: "edit_file",
		Description: "Create or modify a text file in the workspace. With an empty old_str a missing file is created " +
			"with new_str; otherwise every occurrence of old_str is replaced with new_str.",
		InputSchema: GenerateSchema[EditFileInput](),
		Function: func(_ context.Context, args map[string]any) (any, error) {
			in, err := decodeArgs[EditFileInput](args)
			if err != nil {
				return nil, fmt.Errorf("edit_file: %w", err)
			}
			if in.Path == "" {
				return nil, fmt.Errorf("edit_file: path is required")
			}
			created, err := ws.EditFile(in.Path, in.OldStr, in.NewStr)
			if err != nil {
				return nil, fmt.Errorf("edit_file: %w", err)
			}
			if created {
				return "Created " + in.Path, nil
			}
			return "OK", nil
		},
	})
}

// page selects limit lines starting at offset, clamps over-long lines and
// appends truncatedMarker when anything was left out.
func page(content string, offset, limit int) string {
	if limit <= 0 {
		limit = defaultPageLines
	}
	lines := strings.Split(content, "\n")
	offset = max(0, min(offset, len(lines)))
	end := min(offset+limit, len(lines))

	truncated := end < len(lines)
	window := lines[offset:end]
	for i, line := range window {
		if utf8.RuneCountInString(line) > maxLineRunes {
			window[i] = string([]rune(line)[:maxLineRunes])
			truncated = true
		}
	}

	out := strings.Join(window, "\n")
	if truncated {
		if !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += truncatedMarker
	}
	return out
}

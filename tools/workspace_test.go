package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/go-mcp-agent/internal/fsops"
	"github.com/petasbytes/go-mcp-agent/internal/safety"
	"github.com/petasbytes/go-mcp-agent/tools"
)

func workspaceLocal(t *testing.T) (*tools.Local, string) {
	t.Helper()
	ws, err := fsops.NewWorkspace(t.TempDir(), fsops.Options{})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(ws.Root(), "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(ws.Root(), "docs"), 0o755))
	return tools.NewLocal(tools.WorkspaceTools(ws)...), ws.Root()
}

func TestWorkspaceTools_Declarations(t *testing.T) {
	local, _ := workspaceLocal(t)
	descs, err := local.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, "read_file", descs[0].Name)
	assert.Equal(t, "list_files", descs[1].Name)
	assert.Equal(t, "object", descs[0].InputSchema["type"])
	assert.Equal(t, []any{"path"}, descs[0].InputSchema["required"])
}

func TestWorkspaceTools_ReadAndList(t *testing.T) {
	local, _ := workspaceLocal(t)
	ctx := context.Background()

	got, err := local.CallTool(ctx, "read_file", json.RawMessage(`{"path":"a.txt"}`))
	require.NoError(t, err)
	assert.Equal(t, "alpha", got)

	got, err = local.CallTool(ctx, "list_files", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "docs/"}, got)
}

func TestWorkspaceTools_ReadPaging(t *testing.T) {
	local, root := workspaceLocal(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(root, "lines.txt"), []byte("l0\nl1\nl2\nl3"), 0o644))

	got, err := local.CallTool(ctx, "read_file", json.RawMessage(`{"path":"lines.txt","offset":1,"limit":2}`))
	require.NoError(t, err)
	assert.Equal(t, "l1\nl2\n-- truncated; use offset/limit to fetch more --\n", got)

	got, err = local.CallTool(ctx, "read_file", json.RawMessage(`{"path":"lines.txt","offset":2}`))
	require.NoError(t, err)
	assert.Equal(t, "l2\nl3", got)

	got, err = local.CallTool(ctx, "read_file", json.RawMessage(`{"path":"lines.txt","offset":99}`))
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestWorkspaceTools_LongLineClamped(t *testing.T) {
	local, root := workspaceLocal(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "long.txt"), []byte(strings.Repeat("é", 2500)), 0o644))

	got, err := local.CallTool(context.Background(), "read_file", json.RawMessage(`{"path":"long.txt"}`))
	require.NoError(t, err)
	s := got.(string)
	assert.True(t, strings.HasPrefix(s, strings.Repeat("é", 2000)+"\n-- truncated"))
	assert.Equal(t, 2000, strings.Count(s, "é"))
}

func TestWorkspaceTools_Errors(t *testing.T) {
	local, _ := workspaceLocal(t)
	ctx := context.Background()

	_, err := local.CallTool(ctx, "read_file", json.RawMessage(`{}`))
	assert.Error(t, err)

	_, err = local.CallTool(ctx, "read_file", json.RawMessage(`{"path":"../etc/passwd"}`))
	var pe *safety.PathError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, safety.CodeOutsideRoot, pe.Code)

	_, err = local.CallTool(ctx, "list_files", json.RawMessage(`{"path":"a.txt"}`))
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, safety.CodeNotADir, pe.Code)
}

func TestWorkspaceTools_EditOnlyWhenWritable(t *testing.T) {
	ws, err := fsops.NewWorkspace(t.TempDir(), fsops.Options{Writable: true})
	require.NoError(t, err)
	local := tools.NewLocal(tools.WorkspaceTools(ws)...)
	ctx := context.Background()

	descs, err := local.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, descs, 3)
	assert.Equal(t, "edit_file", descs[2].Name)

	got, err := local.CallTool(ctx, "edit_file", json.RawMessage(`{"path":"dir/new.txt","old_str":"","new_str":"one two"}`))
	require.NoError(t, err)
	assert.Equal(t, "Created dir/new.txt", got)

	got, err = local.CallTool(ctx, "edit_file", json.RawMessage(`{"path":"dir/new.txt","old_str":"two","new_str":"three"}`))
	require.NoError(t, err)
	assert.Equal(t, "OK", got)

	got, err = local.CallTool(ctx, "read_file", json.RawMessage(`{"path":"dir/new.txt"}`))
	require.NoError(t, err)
	assert.Equal(t, "one three", got)

	_, err = local.CallTool(ctx, "edit_file", json.RawMessage(`{"path":"go.mod","old_str":"","new_str":"module x"}`))
	var pe *safety.PathError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, safety.CodeDeniedWrite, pe.Code)
}

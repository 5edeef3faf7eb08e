package fsops_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/go-mcp-agent/internal/fsops"
	"github.com/petasbytes/go-mcp-agent/internal/safety"
)

func setupWorkspace(t *testing.T, maxBytes int64) (*fsops.Workspace, string) {
	t.Helper()
	return openWorkspace(t, fsops.Options{MaxReadBytes: maxBytes})
}

func openWorkspace(t *testing.T, opts fsops.Options) (*fsops.Workspace, string) {
	t.Helper()
	ws, err := fsops.NewWorkspace(t.TempDir(), opts)
	require.NoError(t, err)
	return ws, ws.Root()
}

func write(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func pathCode(t *testing.T, err error) string {
	t.Helper()
	var pe *safety.PathError
	require.True(t, errors.As(err, &pe), "expected *PathError, got %T: %v", err, err)
	return pe.Code
}

func TestReadFile_HappyPath(t *testing.T) {
	ws, dir := setupWorkspace(t, 0)
	write(t, dir, "notes/a.txt", "hello world")

	got, err := ws.ReadFile("notes/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestReadFile_DirectoryIsNotAFile(t *testing.T) {
	ws, dir := setupWorkspace(t, 0)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))

	_, err := ws.ReadFile("sub")
	assert.Equal(t, safety.CodeNotAFile, pathCode(t, err))
}

func TestReadFile_TooLarge(t *testing.T) {
	ws, dir := setupWorkspace(t, 8)
	write(t, dir, "small.txt", "12345678")
	write(t, dir, "big.txt", strings.Repeat("x", 9))

	got, err := ws.ReadFile("small.txt")
	require.NoError(t, err)
	assert.Equal(t, "12345678", got)

	_, err = ws.ReadFile("big.txt")
	assert.Equal(t, safety.CodeTooLarge, pathCode(t, err))
}

func TestReadFile_Missing(t *testing.T) {
	ws, _ := setupWorkspace(t, 0)
	_, err := ws.ReadFile("nope.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadFile_PolicyErrors(t *testing.T) {
	ws, dir := setupWorkspace(t, 0)
	write(t, dir, ".agent/events.jsonl", "{}")

	_, err := ws.ReadFile(".agent/events.jsonl")
	assert.Equal(t, safety.CodeDeniedRead, pathCode(t, err))

	_, err = ws.ReadFile("../../x")
	assert.Equal(t, safety.CodeOutsideRoot, pathCode(t, err))
}

func TestListFiles_SortedWithDirSuffix(t *testing.T) {
	ws, dir := setupWorkspace(t, 0)
	write(t, dir, "b.txt", "x")
	write(t, dir, "a.txt", "x")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))

	names, err := ws.ListFiles("")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "sub/"}, names)

	names, err = ws.ListFiles("sub")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListFiles_FileIsNotADir(t *testing.T) {
	ws, dir := setupWorkspace(t, 0)
	write(t, dir, "a.txt", "x")

	_, err := ws.ListFiles("a.txt")
	assert.Equal(t, safety.CodeNotADir, pathCode(t, err))
}

func TestWriteFile_ReadOnlyByDefault(t *testing.T) {
	ws, dir := setupWorkspace(t, 0)
	assert.False(t, ws.Writable())

	err := ws.WriteFile("out.txt", "x")
	assert.Equal(t, fsops.CodeReadOnly, pathCode(t, err))
	_, statErr := os.Stat(filepath.Join(dir, "out.txt"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))

	_, err = ws.EditFile("out.txt", "", "x")
	assert.Equal(t, fsops.CodeReadOnly, pathCode(t, err))
}

func TestWriteFile_HappyPathNested(t *testing.T) {
	ws, dir := openWorkspace(t, fsops.Options{Writable: true})

	require.NoError(t, ws.WriteFile("nested/dir/out.txt", "hello"))
	b, err := os.ReadFile(filepath.Join(dir, "nested", "dir", "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

func TestWriteFile_PolicyErrors(t *testing.T) {
	ws, dir := openWorkspace(t, fsops.Options{Writable: true})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))

	cases := map[string]string{
		".git/HEAD":      safety.CodeDeniedWrite,
		"go.mod":         safety.CodeDeniedWrite,
		"sub/dir/go.sum": safety.CodeDeniedWrite,
		".":              safety.CodeDeniedWrite,
		"../escape.txt":  safety.CodeOutsideRoot,
		"sub":            safety.CodeNotAFile,
	}
	for rel, want := range cases {
		assert.Equal(t, want, pathCode(t, ws.WriteFile(rel, "x")), rel)
	}
}

func TestEditFile_CreateAndReplace(t *testing.T) {
	ws, dir := openWorkspace(t, fsops.Options{Writable: true})

	created, err := ws.EditFile("notes.txt", "", "a b a")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = ws.EditFile("notes.txt", "a", "c")
	require.NoError(t, err)
	assert.False(t, created)
	b, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "c b c", string(b))
}

func TestEditFile_Errors(t *testing.T) {
	ws, dir := openWorkspace(t, fsops.Options{Writable: true})
	write(t, dir, "a.txt", "alpha")

	_, err := ws.EditFile("a.txt", "x", "x")
	assert.Error(t, err, "old and new must differ")

	_, err = ws.EditFile("a.txt", "", "beta")
	assert.Error(t, err, "existing file needs old_str")

	_, err = ws.EditFile("a.txt", "gamma", "beta")
	assert.EqualError(t, err, "old_str not found in file")

	_, err = ws.EditFile("missing.txt", "alpha", "beta")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	got, err := ws.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "alpha", got)
}

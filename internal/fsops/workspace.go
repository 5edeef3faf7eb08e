// Package fsops implements the file operations behind the workspace tools.
// Writes are refused unless the workspace was opened writable.
package fsops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/petasbytes/go-mcp-agent/internal/safety"
)

// DefaultMaxReadBytes caps a single read_file result.
const DefaultMaxReadBytes int64 = 256 << 10

const CodeReadOnly = "ERR_READ_ONLY"

type Options struct {
	MaxReadBytes int64 // <= 0 selects DefaultMaxReadBytes
	Writable     bool
}

// Workspace reads (and optionally writes) files under a single root.
type Workspace struct {
	root     safety.Root
	maxBytes int64
	writable bool
}

// NewWorkspace opens dir as a workspace.
func NewWorkspace(dir string, opts Options) (*Workspace, error) {
	root, err := safety.NewRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	maxBytes := opts.MaxReadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxReadBytes
	}
	return &Workspace{root: root, maxBytes: maxBytes, writable: opts.Writable}, nil
}

func (w *Workspace) Root() string   { return w.root.Dir() }
func (w *Workspace) Writable() bool { return w.writable }

// ReadFile returns the contents of the file at rel. Files larger than the
// workspace limit are rejected rather than truncated.
func (w *Workspace) ReadFile(rel string) (string, error) {
	abs, err := w.root.Resolve(rel)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", &safety.PathError{Code: safety.CodeNotAFile, Message: "path is a directory"}
	}
	if fi.Size() > w.maxBytes {
		return "", &safety.PathError{
			Code:    safety.CodeTooLarge,
			Message: fmt.Sprintf("file is %d bytes, limit is %d", fi.Size(), w.maxBytes),
		}
	}

	f, err := os.Open(abs)
	if err != nil {
		return "", err
	}
	defer f.Close()
	b, err := io.ReadAll(io.LimitReader(f, w.maxBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ListFiles returns the sorted, non-recursive entries of the directory at
// rel. Directories carry a trailing "/".
func (w *Workspace) ListFiles(rel string) ([]string, error) {
	if rel == "" {
		rel = "."
	}
	abs, err := w.root.Resolve(rel)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, &safety.PathError{Code: safety.CodeNotADir, Message: "path is not a directory"}
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// WriteFile replaces the file at rel with content, creating parent
// directories as needed.
func (w *Workspace) WriteFile(rel, content string) error {
	if !w.writable {
		return &safety.PathError{Code: CodeReadOnly, Message: "workspace is read-only"}
	}
	abs, err := w.root.ResolveWrite(rel)
	if err != nil {
		return err
	}
	if fi, err := os.Stat(abs); err == nil && fi.IsDir() {
		return &safety.PathError{Code: safety.CodeNotAFile, Message: "path is a directory"}
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	return os.WriteFile(abs, []byte(content), 0o644)
}

// EditFile replaces every occurrence of oldStr with newStr in the file at
// rel. An empty oldStr creates the file when it does not exist yet. It
// reports whether the file was created.
func (w *Workspace) EditFile(rel, oldStr, newStr string) (created bool, err error) {
	if oldStr == newStr {
		return false, errors.New("old_str and new_str must differ")
	}
	if !w.writable {
		return false, &safety.PathError{Code: CodeReadOnly, Message: "workspace is read-only"}
	}

	current, err := w.ReadFile(rel)
	switch {
	case errors.Is(err, fs.ErrNotExist) && oldStr == "":
		return true, w.WriteFile(rel, newStr)
	case err != nil:
		return false, err
	case oldStr == "":
		return false, errors.New("old_str must be provided when editing an existing file")
	}

	updated := strings.ReplaceAll(current, oldStr, newStr)
	if updated == current {
		return false, errors.New("old_str not found in file")
	}
	return false, w.WriteFile(rel, updated)
}

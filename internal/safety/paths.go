// Package safety confines file access to a single workspace root.
package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	CodeOutsideRoot = "ERR_PATH_OUTSIDE_ROOT"
	CodeDeniedRead  = "ERR_DENIED_READ"
	CodeDeniedWrite = "ERR_DENIED_WRITE"
	CodeNotAFile    = "ERR_NOT_A_FILE"
	CodeNotADir     = "ERR_NOT_A_DIR"
	CodeTooLarge    = "ERR_FILE_TOO_LARGE"
)

// deniedDirs are top-level directories never exposed to tools.
var deniedDirs = []string{".git", ".agent"}

// protectedFiles may be read but never written, at any depth.
var protectedFiles = []string{"go.mod", "go.sum"}

// PathError is a machine-readable policy violation. Its message is compact
// JSON so the model can act on the code.
type PathError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *PathError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// Root is an absolute, symlink-resolved directory that relative paths are
// checked against.
type Root struct {
	dir string
}

// NewRoot resolves dir (empty means the working directory). The directory
// must exist.
func NewRoot(dir string) (Root, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return Root{}, fmt.Errorf("getwd: %w", err)
		}
		dir = cwd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Root{}, fmt.Errorf("abs(%s): %w", dir, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return Root{}, fmt.Errorf("resolve root: %w", err)
	}
	fi, err := os.Stat(resolved)
	if err != nil {
		return Root{}, fmt.Errorf("stat root: %w", err)
	}
	if !fi.IsDir() {
		return Root{}, fmt.Errorf("root %s is not a directory", resolved)
	}
	return Root{dir: resolved}, nil
}

func (r Root) Dir() string { return r.dir }

// Resolve maps rel onto an absolute path inside the root. Absolute inputs,
// parent traversal and symlinks leading out of the root are rejected, as
// are reads under the denied directories.
func (r Root) Resolve(rel string) (string, error) {
	abs, inside, err := r.locate(rel)
	if err != nil {
		return "", err
	}
	if d, ok := underDenied(inside); ok {
		return "", &PathError{Code: CodeDeniedRead, Message: "reads under " + d + "/ are not allowed"}
	}
	return abs, nil
}

// ResolveWrite is Resolve for a write target. The root itself, the denied
// directories and protected files are refused with CodeDeniedWrite.
func (r Root) ResolveWrite(rel string) (string, error) {
	abs, inside, err := r.locate(rel)
	if err != nil {
		return "", err
	}
	if inside == "." {
		return "", &PathError{Code: CodeDeniedWrite, Message: "the workspace root is not a file"}
	}
	if d, ok := underDenied(inside); ok {
		return "", &PathError{Code: CodeDeniedWrite, Message: "writes under " + d + "/ are not allowed"}
	}
	base := path.Base(inside)
	for _, f := range protectedFiles {
		if base == f {
			return "", &PathError{Code: CodeDeniedWrite, Message: "writes to " + f + " are not allowed"}
		}
	}
	return abs, nil
}

// locate joins rel onto the root and checks containment. It returns the
// resolved path and its slash-separated form relative to the root.
func (r Root) locate(rel string) (string, string, error) {
	if filepath.IsAbs(rel) {
		return "", "", &PathError{Code: CodeOutsideRoot, Message: "absolute paths are not allowed"}
	}
	candidate := filepath.Join(r.dir, filepath.Clean(rel))

	// A missing leaf still has its parent resolved, which exposes escapes
	// through a symlinked ancestor.
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	} else if parent, err := filepath.EvalSymlinks(filepath.Dir(candidate)); err == nil {
		candidate = filepath.Join(parent, filepath.Base(candidate))
	}

	inside, err := filepath.Rel(r.dir, candidate)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) || filepath.IsAbs(inside) {
		return "", "", &PathError{Code: CodeOutsideRoot, Message: "path resolves outside the workspace root"}
	}
	return candidate, filepath.ToSlash(inside), nil
}

func underDenied(slash string) (string, bool) {
	for _, d := range deniedDirs {
		if slash == d || strings.HasPrefix(slash, d+"/") {
			return d, true
		}
	}
	return "", false
}

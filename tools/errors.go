package tools

import (
	"errors"
	"fmt"
)

var ErrToolNotFound = errors.New("tool not found")

// SchemaParseError reports a tool whose declared input schema could not be
// used. It is never fatal: the tool is registered with an empty schema.
type SchemaParseError struct {
	Tool string
	Err  error
}

func (e *SchemaParseError) Error() string {
	return fmt.Sprintf("tools: input schema for %q: %v", e.Tool, e.Err)
}

func (e *SchemaParseError) Unwrap() error { return e.Err }

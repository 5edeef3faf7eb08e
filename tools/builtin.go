package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.starlark.net/starlark"
)

type CalcInput struct {
	Expr string `json:"expr" jsonschema_description:"Arithmetic expression to evaluate, e.g. (2+3)*4."`
}

type EchoInput struct {
	Text string `json:"text" jsonschema_description:"Text to return unchanged."`
}

const calcMaxSteps = 10_000

var CalcDefinition = ToolDefinition{
	Name:        "calc",
	Description: "Evaluate an arithmetic expression and return the result.",
	InputSchema: GenerateSchema[CalcInput](),
	Function:    Calc,
}

var EchoDefinition = ToolDefinition{
	Name:        "echo",
	Description: "Return the given text unchanged.",
	InputSchema: GenerateSchema[EchoInput](),
	Function:    Echo,
}

// Builtins returns the in-process tools used when no MCP server is configured.
func Builtins() []ToolDefinition {
	return []ToolDefinition{CalcDefinition, EchoDefinition}
}

// Calc evaluates a single Starlark expression with a bounded step budget.
func Calc(_ context.Context, args map[string]any) (any, error) {
	in, err := decodeArgs[CalcInput](args)
	if err != nil {
		return nil, fmt.Errorf("calc: %w", err)
	}
	expr := strings.TrimSpace(in.Expr)
	if expr == "" {
		return nil, errors.New("calc: expr is required")
	}

	thread := &starlark.Thread{Name: "calc"}
	thread.SetMaxExecutionSteps(calcMaxSteps)
	v, err := starlark.Eval(thread, "calc", expr, nil)
	if err != nil {
		return nil, fmt.Errorf("calc: %w", err)
	}
	if s, ok := v.(starlark.String); ok {
		return string(s), nil
	}
	return v.String(), nil
}

func Echo(_ context.Context, args map[string]any) (any, error) {
	in, err := decodeArgs[EchoInput](args)
	if err != nil {
		return nil, fmt.Errorf("echo: %w", err)
	}
	return in.Text, nil
}

package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/petasbytes/go-mcp-agent/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalc_EvaluatesArithmetic(t *testing.T) {
	local := tools.NewLocal(tools.Builtins()...)

	cases := map[string]string{
		`{"expr":"2+2"}`:       "4",
		`{"expr":"(2+3)*4"}`:   "20",
		`{"expr":" 7 // 2 "}`:  "3",
		`{"expr":"'a' + 'b'"}`: "ab",
	}
	for args, want := range cases {
		got, err := local.CallTool(context.Background(), "calc", json.RawMessage(args))
		require.NoError(t, err, args)
		assert.Equal(t, want, got, args)
	}
}

func TestCalc_Errors(t *testing.T) {
	local := tools.NewLocal(tools.Builtins()...)

	_, err := local.CallTool(context.Background(), "calc", json.RawMessage(`{"expr":""}`))
	assert.Error(t, err)

	_, err = local.CallTool(context.Background(), "calc", json.RawMessage(`{"expr":"1/0"}`))
	assert.Error(t, err)

	_, err = local.CallTool(context.Background(), "calc", json.RawMessage(`{"expr":"2+2","extra":1}`))
	assert.Error(t, err, "unknown arguments are rejected")
}

func TestLocal_EchoAndNullArgs(t *testing.T) {
	local := tools.NewLocal(tools.Builtins()...)

	got, err := local.CallTool(context.Background(), "echo", json.RawMessage(`{"text":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	got, err = local.CallTool(context.Background(), "echo", json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestLocal_UnknownToolAndBadArgs(t *testing.T) {
	local := tools.NewLocal(tools.Builtins()...)

	_, err := local.CallTool(context.Background(), "nope", nil)
	assert.True(t, errors.Is(err, tools.ErrToolNotFound))

	_, err = local.CallTool(context.Background(), "echo", json.RawMessage(`[1]`))
	assert.Error(t, err)
}

func TestGenerateSchema_NoRefs(t *testing.T) {
	schema := tools.GenerateSchema[tools.CalcInput]()
	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$ref")
	assert.NotContains(t, schema, "$schema")
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "expr")
}

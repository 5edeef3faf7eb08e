// Package tools defines tool contracts, the tool registry and the builtin
// in-process tools.
//
// Includes:
//   - Provider: the tool-provider collaborator (list + call).
//   - Registry: declarations translated for the model provider; bad schemas
//     degrade to an empty schema with a warning.
//   - ToolDefinition / GenerateSchema[T](): in-process tools with JSON Schema
//     derived from Go structs.
//   - Builtins: calc, echo.
//   - WorkspaceTools: read_file, list_files (and edit_file when writable) over
//     a sandboxed root.
package tools

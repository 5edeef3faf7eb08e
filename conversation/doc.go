// Package conversation holds the message model shared by the engine and the
// provider adapters.
//
// Model:
//   - A Message has a role (user or assistant) and an ordered list of blocks.
//   - Block is a closed set: Text, ToolUse, ToolResult.
//   - History is append-only; a ToolResult must answer a ToolUse appended earlier.
package conversation

// Package runner drives one human turn against the model: it sends the full
// history, executes requested tools and loops until the model answers.
//
// Invariants:
//   - every tool_use in an assistant message gets exactly one tool_result,
//     appended as its own user message as soon as it resolves;
//   - identical tool calls (same name, same canonical arguments) within one
//     round share a single invocation; nothing is cached across rounds;
//   - the model is never called concurrently and a throttled request is
//     resent unchanged.
//
// Flow:
//
//	user(text) -> assistant(tool_use...) -> user(tool_result)... -> assistant(text)
package runner

// Package engine decides where each submission runs and records the outcome.
//
// The dispatcher answers markup-only languages without running anything,
// sends everything to the remote provider when local execution is disabled,
// and otherwise runs locally, falling back to the remote provider only when
// the local toolchain is missing. Submissions made through Submit or Run are
// persisted with their output lines, which are also streamed to subscribers
// through the LogBroker.
package engine

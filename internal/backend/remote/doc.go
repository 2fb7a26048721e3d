// Package remote delegates execution to a Piston-compatible code execution
// provider over HTTP. It keeps a time-bounded cache of the provider's runtime
// catalog and maps language identifiers onto the provider's runtimes.
package remote

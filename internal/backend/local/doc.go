// Package local executes submissions as child processes on the host. Each
// execution gets its own temporary workspace which is removed before Run
// returns, whatever the outcome. No isolation beyond wall-clock timeouts is
// applied.
package local

// Package engine provides the asynchronous job admission and execution
// engine: a bounded admission queue, sequential workers running the
// pluggable transformer, and callback-sink result delivery that decouples
// execution from the HTTP callers polling for the outcome.
package engine

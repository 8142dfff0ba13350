// Package api defines the public types of the stride execution core:
// operations, retry policies, batch options, run records, the Executor
// interface, and the Observer callbacks used for logging and metrics.
//
// Most applications import the root stride package instead, which
// re-exports everything here along with the executor constructors.
package api

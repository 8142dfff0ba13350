// Package worker provides an asynchronous consumer for queued operations.
//
// A Worker pulls jobs from a queue and executes them through an Executor,
// applying a default retry policy to jobs that don't carry one. Applications
// typically run one or more workers as background goroutines; the root
// package's LocalPool does exactly that.
package worker

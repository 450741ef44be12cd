// Package workflow defines the durable entities of the execution engine
// and the Store contract its backends implement. See package stepexec
// for how a Step is driven through its state machine, and package
// runworker for how a Run's Steps are driven end to end.
package workflow

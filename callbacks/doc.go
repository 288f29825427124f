// Package callbacks provides assistants.Callback implementations:
// console printer, package logger, run statistics and a fanout.
package callbacks

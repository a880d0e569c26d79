// Package dispatch delivers completed results to the application.
//
// An Executor is the caller's choice of where callbacks run. The database
// layer hands every callback to an Executor after the corresponding Later has
// completed, so callbacks never run on a worker queue goroutine and a slow
// callback never holds up the next read or write.
package dispatch

// Package audit carries goAccount's audit trail: the Event model, sinks, and
// a Dispatcher that records events on the request path and delivers them to
// the sink on its own goroutine.
//
// Sinks receive the recording request's context without its cancellation,
// so trace ids reach log-backed sinks. With DropIfFull set, Record never
// blocks; overflowing events are counted and reported through the drop hook.
package audit

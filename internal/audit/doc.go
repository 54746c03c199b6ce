// Package audit buffers credential lifecycle events and hands them to a Sink
// on a background goroutine.
//
// The engine decides which events exist; this package only queues and
// delivers them. Sinks shipped here write to a channel, to JSON lines on an
// io.Writer, or to a slog.Logger.
package audit

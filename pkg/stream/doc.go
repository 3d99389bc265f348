// Package stream fans tick snapshots out to live observers.
//
// The Hub keeps at most one Channel per (owner, process) pair. Publishing never
// blocks the run loop: each Channel has a bounded queue drained by its own
// goroutine, and a snapshot that does not fit is dropped for that observer only.
package stream

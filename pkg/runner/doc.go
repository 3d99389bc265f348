/*
Package runner drives the tick loop of running processes.

A Controller owns one goroutine per active process. Each iteration of a loop
checks the kill and pause requests, asks the engine for the next snapshot,
records the tick in the registry, publishes the snapshot and waits for the
configured delay. Pause and kill never interrupt a tick in flight: they set an
atomic flag and wake the loop, which acts on them at the next tick boundary.

A paused loop keeps its execution slot and sleeps until it is resumed by a new
run or killed.

# Usage

	ctrl := runner.New(reg,
		runner.WithPublisher(hub),
		runner.WithMaxRunning(64),
	)

	p, err := ctrl.Run(ctx, ownerID, processID, 10, 100*time.Millisecond)
*/
package runner

/*
Package atsim hosts discrete-time simulation processes.

A process is one execution of a simulation model: a set of typed resources
and template usages (irregular events, operations, rules) whose conditions
and bodies are Lua snippets. The Service ties together the pieces a host
needs:

  - a process registry that owns lifecycle state and run slots,
  - a tick engine that computes one snapshot from the previous one,
  - a run controller with one loop per running process,
  - a stream hub that fans snapshots out to live observers.

# Usage

	models, err := file.LoadModels("./models")
	if err != nil {
		log.Fatal(err)
	}

	svc := atsim.New(models)
	defer svc.Shutdown(context.Background())

	p, err := svc.Create(ctx, ownerID, 5, "rush hour")
	if err != nil {
		log.Fatal(err)
	}
	p, err = svc.Run(ctx, ownerID, p.ID, atsim.RunRequest{Ticks: 100, Wait: true})

Snapshots of a running process can be observed by subscribing a
ports.Transport through Subscribe. Observers never slow the run down: a
subscriber that falls behind loses intermediate snapshots instead.
*/
package atsim

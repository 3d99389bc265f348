/*
Package domain contains the core domain models of the atsim simulation host.

It defines the entities shared by the registry, the tick engine, the run
controller and the stream hub. The package is kept free of I/O and persistence
concerns, following Hexagonal Architecture principles.

# Key Entities

  - Process: One runnable instance of a model for one owner, with its lifecycle state.
  - Model: The immutable definition of a simulation (resource types, resources, templates, usages).
  - TickSnapshot: The state of every resource and template usage after one tick.
  - UsageState: Tagged variant over irregular events, operations and rules.
*/
package domain

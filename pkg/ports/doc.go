/*
Package ports defines the driven ports (interfaces) of the atsim host.

These interfaces decouple the registry, run controller and stream hub from
external implementations, allowing the host to work with various storage
backends, model sources, identity providers and streaming transports.

# Key Interfaces

  - ModelStore: Supplies validated, read-only model definitions.
  - IdentityVerifier: Maps an opaque token to an owner identity.
  - ProcessStore: Persists Process records.
  - DistributedLocker: Provides distributed locking for replicas sharing a ProcessStore.
  - Transport: Delivers tick snapshots to one live subscriber.
*/
package ports

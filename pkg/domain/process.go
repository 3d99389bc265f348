package domain

import "time"

// ProcessState is the lifecycle state of a Process.
type ProcessState string

const (
	ProcessCreated   ProcessState = "CREATED"
	ProcessRunning   ProcessState = "RUNNING"
	ProcessPaused    ProcessState = "PAUSED"
	ProcessKilled    ProcessState = "KILLED"
	ProcessCompleted ProcessState = "COMPLETED"
)

var transitions = map[ProcessState][]ProcessState{
	ProcessCreated: {ProcessRunning, ProcessKilled},
	ProcessRunning: {ProcessPaused, ProcessKilled, ProcessCompleted},
	ProcessPaused:  {ProcessRunning, ProcessKilled},
}

// Terminal reports whether no further transitions are possible.
func (s ProcessState) Terminal() bool {
	return s == ProcessKilled || s == ProcessCompleted
}

// CanTransition reports whether next is a legal successor of s.
func (s ProcessState) CanTransition(next ProcessState) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the known lifecycle states.
func (s ProcessState) Valid() bool {
	switch s {
	case ProcessCreated, ProcessRunning, ProcessPaused, ProcessKilled, ProcessCompleted:
		return true
	}
	return false
}

// Process is one runnable instance of a simulation model for one owner.
type Process struct {
	ID          string        `json:"id"`
	OwnerID     int64         `json:"owner_id"`
	ModelID     int64         `json:"model_id"`
	Name        string        `json:"name"`
	State       ProcessState  `json:"state"`
	CurrentTick int64         `json:"current_tick"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	FaultReason string        `json:"fault_reason,omitempty"`
	Snapshot    *TickSnapshot `json:"snapshot,omitempty"`
}

// NewProcess creates a process in the CREATED state at tick 0.
func NewProcess(id string, ownerID, modelID int64, name string, now time.Time) *Process {
	return &Process{
		ID:        id,
		OwnerID:   ownerID,
		ModelID:   modelID,
		Name:      name,
		State:     ProcessCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a copy that callers may mutate freely.
// Snapshots are immutable once published and are shared.
func (p *Process) Clone() *Process {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

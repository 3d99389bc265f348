package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProcessState_CanTransition(t *testing.T) {
	all := []ProcessState{ProcessCreated, ProcessRunning, ProcessPaused, ProcessKilled, ProcessCompleted}
	legal := map[[2]ProcessState]bool{
		{ProcessCreated, ProcessRunning}:   true,
		{ProcessCreated, ProcessKilled}:    true,
		{ProcessRunning, ProcessPaused}:    true,
		{ProcessRunning, ProcessKilled}:    true,
		{ProcessRunning, ProcessCompleted}: true,
		{ProcessPaused, ProcessRunning}:    true,
		{ProcessPaused, ProcessKilled}:     true,
	}

	for _, from := range all {
		for _, to := range all {
			t.Run(fmt.Sprintf("%s->%s", from, to), func(t *testing.T) {
				assert.Equal(t, legal[[2]ProcessState{from, to}], from.CanTransition(to))
			})
		}
	}
}

func TestProcessState_Terminal(t *testing.T) {
	tests := []struct {
		state    ProcessState
		terminal bool
		valid    bool
	}{
		{ProcessCreated, false, true},
		{ProcessRunning, false, true},
		{ProcessPaused, false, true},
		{ProcessKilled, true, true},
		{ProcessCompleted, true, true},
		{"DONE", false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.terminal, tt.state.Terminal(), tt.state)
		assert.Equal(t, tt.valid, tt.state.Valid(), tt.state)
	}
}

func TestProcess_Clone(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewProcess("p1", 1, 5, "demo", now)
	assert.Equal(t, ProcessCreated, p.State)
	assert.Zero(t, p.CurrentTick)

	c := p.Clone()
	c.State = ProcessRunning
	c.CurrentTick = 3
	assert.Equal(t, ProcessCreated, p.State)
	assert.Zero(t, p.CurrentTick)

	var nilProcess *Process
	assert.Nil(t, nilProcess.Clone())
}

func TestEngineFault_Unwrap(t *testing.T) {
	cause := errors.New("attempt to index a nil value")
	err := fmt.Errorf("step: %w", &EngineFault{Tick: 4, Usage: "switch", Err: cause})

	assert.ErrorIs(t, err, ErrEngineFault)
	assert.ErrorIs(t, err, cause)

	var fault *EngineFault
	if assert.ErrorAs(t, err, &fault) {
		assert.Equal(t, int64(4), fault.Tick)
		assert.Equal(t, "switch", fault.Usage)
	}
	assert.Equal(t, `step: engine fault at tick 4 in usage "switch": attempt to index a nil value`, err.Error())
	assert.Equal(t, "engine fault at tick 2: boom", (&EngineFault{Tick: 2, Err: errors.New("boom")}).Error())
}

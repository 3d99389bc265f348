package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTransition EventType = "process_transition"
	EventTick       EventType = "tick"
	EventFault      EventType = "engine_fault"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ProcessID string    `json:"process_id"`
}

// TransitionEvent is emitted after a process changed lifecycle state.
type TransitionEvent struct {
	EventBase
	OwnerID int64        `json:"owner_id"`
	From    ProcessState `json:"from"`
	To      ProcessState `json:"to"`
	Tick    int64        `json:"tick"`
}

// TickEvent is emitted after a tick was computed and recorded.
type TickEvent struct {
	EventBase
	ModelID   int64         `json:"model_id"`
	Tick      int64         `json:"tick"`
	Duration  time.Duration `json:"duration"`
	Triggered int           `json:"triggered"`
}

// FaultEvent is emitted when a tick computation failed and the process was killed.
type FaultEvent struct {
	EventBase
	ModelID int64  `json:"model_id"`
	Tick    int64  `json:"tick"`
	Reason  string `json:"reason"`
}

// LifecycleHooks defines callbacks for process observability.
type LifecycleHooks struct {
	OnTransition func(context.Context, *TransitionEvent)
	OnTick       func(context.Context, *TickEvent)
	OnFault      func(context.Context, *FaultEvent)
}

// ComposeHooks fans every event out to each of the given hooks in order.
func ComposeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTransition: func(ctx context.Context, e *TransitionEvent) {
			for _, h := range hooks {
				if h.OnTransition != nil {
					h.OnTransition(ctx, e)
				}
			}
		},
		OnTick: func(ctx context.Context, e *TickEvent) {
			for _, h := range hooks {
				if h.OnTick != nil {
					h.OnTick(ctx, e)
				}
			}
		},
		OnFault: func(ctx context.Context, e *FaultEvent) {
			for _, h := range hooks {
				if h.OnFault != nil {
					h.OnFault(ctx, e)
				}
			}
		},
	}
}

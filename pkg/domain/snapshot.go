package domain

import (
	"encoding/json"
	"fmt"
)

// ResourceState is the value of one resource at a given tick.
type ResourceState struct {
	ResourceID int64          `json:"resource_id"`
	Name       string         `json:"name"`
	TypeID     int64          `json:"type_id"`
	Traced     bool           `json:"traced"`
	Attributes map[string]any `json:"attributes"`
}

// Clone deep-copies the attribute map.
func (r *ResourceState) Clone() *ResourceState {
	if r == nil {
		return nil
	}
	c := *r
	c.Attributes = make(map[string]any, len(r.Attributes))
	for k, v := range r.Attributes {
		c.Attributes[k] = v
	}
	return &c
}

// UsageState is the per-tick state of one template usage.
// It is implemented by IrregularEventState, OperationState and RuleState.
type UsageState interface {
	UsageID() int64
	UsageName() string
	Kind() UsageKind
	// Triggered reports whether the usage fired in any phase of the tick.
	Triggered() bool
	Clone() UsageState
}

// IrregularEventState tracks an irregular event usage.
type IrregularEventState struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	HasTriggered bool   `json:"has_triggered"`
	// NextTick is the tick at which the event comes due next.
	NextTick int64 `json:"next_tick"`
}

func (s *IrregularEventState) UsageID() int64    { return s.ID }
func (s *IrregularEventState) UsageName() string { return s.Name }
func (s *IrregularEventState) Kind() UsageKind   { return KindIrregularEvent }
func (s *IrregularEventState) Triggered() bool   { return s.HasTriggered }
func (s *IrregularEventState) Clone() UsageState { c := *s; return &c }

// OperationState tracks a two-phase operation usage.
type OperationState struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	HasTriggeredBefore bool   `json:"has_triggered_before"`
	HasTriggeredAfter  bool   `json:"has_triggered_after"`
	InProgress         bool   `json:"in_progress"`
	// Remaining counts the ticks left before the operation finishes.
	Remaining int64 `json:"remaining"`
}

func (s *OperationState) UsageID() int64    { return s.ID }
func (s *OperationState) UsageName() string { return s.Name }
func (s *OperationState) Kind() UsageKind   { return KindOperation }
func (s *OperationState) Triggered() bool   { return s.HasTriggeredBefore || s.HasTriggeredAfter }
func (s *OperationState) Clone() UsageState { c := *s; return &c }

// RuleState tracks a rule usage.
type RuleState struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	HasTriggered bool   `json:"has_triggered"`
}

func (s *RuleState) UsageID() int64    { return s.ID }
func (s *RuleState) UsageName() string { return s.Name }
func (s *RuleState) Kind() UsageKind   { return KindRule }
func (s *RuleState) Triggered() bool   { return s.HasTriggered }
func (s *RuleState) Clone() UsageState { c := *s; return &c }

// TickSnapshot is the published state of all resources and usages after one tick.
// A nil entry in Resources marks a resource absent at that position.
type TickSnapshot struct {
	Tick      int64
	Resources []*ResourceState
	Usages    []UsageState
}

// Clone deep-copies the snapshot so a new tick can be derived from it.
func (s *TickSnapshot) Clone() *TickSnapshot {
	if s == nil {
		return nil
	}
	c := &TickSnapshot{
		Tick:      s.Tick,
		Resources: make([]*ResourceState, len(s.Resources)),
		Usages:    make([]UsageState, len(s.Usages)),
	}
	for i, r := range s.Resources {
		c.Resources[i] = r.Clone()
	}
	for i, u := range s.Usages {
		c.Usages[i] = u.Clone()
	}
	return c
}

// storedSnapshot is the persistence encoding. Usage states are wrapped with
// their kind so they can be decoded back into the right variant.
type storedSnapshot struct {
	Tick      int64            `json:"tick"`
	Resources []*ResourceState `json:"resources"`
	Usages    []storedUsage    `json:"usages"`
}

type storedUsage struct {
	Kind  UsageKind       `json:"kind"`
	State json.RawMessage `json:"state"`
}

// MarshalJSON encodes the snapshot for persistence, including internal
// scheduling fields. The streaming wire format lives in package stream.
func (s *TickSnapshot) MarshalJSON() ([]byte, error) {
	out := storedSnapshot{
		Tick:      s.Tick,
		Resources: s.Resources,
		Usages:    make([]storedUsage, len(s.Usages)),
	}
	for i, u := range s.Usages {
		raw, err := json.Marshal(u)
		if err != nil {
			return nil, err
		}
		out.Usages[i] = storedUsage{Kind: u.Kind(), State: raw}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the persistence encoding.
func (s *TickSnapshot) UnmarshalJSON(data []byte) error {
	var in storedSnapshot
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Tick = in.Tick
	s.Resources = in.Resources
	s.Usages = make([]UsageState, len(in.Usages))
	for i, su := range in.Usages {
		var u UsageState
		switch su.Kind {
		case KindIrregularEvent:
			u = &IrregularEventState{}
		case KindOperation:
			u = &OperationState{}
		case KindRule:
			u = &RuleState{}
		default:
			return fmt.Errorf("unknown usage kind %q", su.Kind)
		}
		if err := json.Unmarshal(su.State, u); err != nil {
			return fmt.Errorf("decode usage %d: %w", i, err)
		}
		s.Usages[i] = u
	}
	return nil
}

package stream

import (
	"encoding/json"

	"github.com/aretw0/atsim/pkg/domain"
)

type wireSnapshot struct {
	CurrentTick int64            `json:"current_tick"`
	Resources   []map[string]any `json:"resources"`
	Usages      []any            `json:"usages"`
}

type wireEvent struct {
	HasTriggered bool             `json:"has_triggered"`
	UsageName    string           `json:"usage_name"`
	UsageType    domain.UsageKind `json:"usage_type"`
}

type wireOperation struct {
	HasTriggeredBefore bool             `json:"has_triggered_before"`
	HasTriggeredAfter  bool             `json:"has_triggered_after"`
	UsageName          string           `json:"usage_name"`
	UsageType          domain.UsageKind `json:"usage_type"`
}

// Encode renders a snapshot in the streaming wire format:
//
//	{"current_tick":N,"resources":[{"resource_name":...,<attr>:<value>}|null],"usages":[...]}
//
// null marks an absent resource, e.g. a destroyed TEMPORAL one. A resource
// that is present but not traced carries only its resource_name. Scheduling
// internals of usages are never exposed.
func Encode(snap *domain.TickSnapshot) ([]byte, error) {
	out := wireSnapshot{
		CurrentTick: snap.Tick,
		Resources:   make([]map[string]any, len(snap.Resources)),
		Usages:      make([]any, len(snap.Usages)),
	}

	for i, r := range snap.Resources {
		if r == nil {
			continue
		}
		flat := make(map[string]any, len(r.Attributes)+1)
		if r.Traced {
			for k, v := range r.Attributes {
				flat[k] = v
			}
		}
		flat["resource_name"] = r.Name
		out.Resources[i] = flat
	}

	for i, u := range snap.Usages {
		switch s := u.(type) {
		case *domain.OperationState:
			out.Usages[i] = wireOperation{
				HasTriggeredBefore: s.HasTriggeredBefore,
				HasTriggeredAfter:  s.HasTriggeredAfter,
				UsageName:          s.Name,
				UsageType:          domain.KindOperation,
			}
		default:
			out.Usages[i] = wireEvent{
				HasTriggered: u.Triggered(),
				UsageName:    u.UsageName(),
				UsageType:    u.Kind(),
			}
		}
	}

	return json.Marshal(out)
}

package domain

import (
	"fmt"

	"go.uber.org/multierr"
)

// AttributeType is the declared type of a resource attribute.
type AttributeType string

const (
	AttributeInt   AttributeType = "INT"
	AttributeFloat AttributeType = "FLOAT"
	AttributeBool  AttributeType = "BOOL"
	AttributeEnum  AttributeType = "ENUM"
)

// ResourceKind tells whether resources of a type may change during a run.
type ResourceKind string

const (
	// ResourceConstant resources are read-only to template bodies.
	ResourceConstant ResourceKind = "CONSTANT"
	// ResourceTemporal resources may be mutated and destroyed.
	ResourceTemporal ResourceKind = "TEMPORAL"
)

// UsageKind discriminates templates and their usage states.
type UsageKind string

const (
	KindIrregularEvent UsageKind = "IRREGULAR_EVENT"
	KindOperation      UsageKind = "OPERATION"
	KindRule           UsageKind = "RULE"
)

// GeneratorType selects the distribution used to schedule irregular events.
type GeneratorType string

const (
	GeneratorPrecise     GeneratorType = "PRECISE"
	GeneratorUniform     GeneratorType = "UNIFORM"
	GeneratorNormal      GeneratorType = "NORMAL"
	GeneratorExponential GeneratorType = "EXPONENTIAL"
)

// Attribute is one typed field of a resource type.
type Attribute struct {
	Name       string        `json:"name" mapstructure:"name"`
	Type       AttributeType `json:"type" mapstructure:"type"`
	EnumValues []string      `json:"enum_values,omitempty" mapstructure:"enum_values"`
	Default    any           `json:"default,omitempty" mapstructure:"default"`
}

// ResourceType is the schema shared by a group of resources.
type ResourceType struct {
	ID         int64        `json:"id" mapstructure:"id"`
	Name       string       `json:"name" mapstructure:"name"`
	Kind       ResourceKind `json:"kind" mapstructure:"kind"`
	Attributes []Attribute  `json:"attributes" mapstructure:"attributes"`
}

// Attribute looks up an attribute declaration by name.
func (rt *ResourceType) Attribute(name string) (Attribute, bool) {
	for _, a := range rt.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Resource is a modeled entity instance.
type Resource struct {
	ID             int64          `json:"id" mapstructure:"id"`
	Name           string         `json:"name" mapstructure:"name"`
	ResourceTypeID int64          `json:"resource_type_id" mapstructure:"resource_type_id"`
	ToBeTraced     bool           `json:"to_be_traced" mapstructure:"to_be_traced"`
	Attributes     map[string]any `json:"attributes" mapstructure:"attributes"`
}

// Function is a helper callable from template scripts.
type Function struct {
	Name   string   `json:"name" mapstructure:"name"`
	Params []string `json:"params" mapstructure:"params"`
	Body   string   `json:"body" mapstructure:"body"`
}

// Generator describes the inter-arrival distribution of an irregular event, in ticks.
type Generator struct {
	Type       GeneratorType `json:"type" mapstructure:"type"`
	Value      float64       `json:"value" mapstructure:"value"`
	Dispersion float64       `json:"dispersion" mapstructure:"dispersion"`
}

// TemplateParam is a named resource slot that usages bind to concrete resources.
type TemplateParam struct {
	Name           string `json:"name" mapstructure:"name"`
	ResourceTypeID int64  `json:"resource_type_id" mapstructure:"resource_type_id"`
}

// Template is a reusable behavior definition.
// Which fields are meaningful depends on Kind:
// irregular events use Generator and Body, operations use Condition, BodyBefore,
// Delay and BodyAfter, rules use Condition and Body.
type Template struct {
	ID         int64           `json:"id" mapstructure:"id"`
	Name       string          `json:"name" mapstructure:"name"`
	Kind       UsageKind       `json:"kind" mapstructure:"kind"`
	Params     []TemplateParam `json:"params" mapstructure:"params"`
	Generator  *Generator      `json:"generator,omitempty" mapstructure:"generator"`
	Condition  string          `json:"condition,omitempty" mapstructure:"condition"`
	Body       string          `json:"body,omitempty" mapstructure:"body"`
	BodyBefore string          `json:"body_before,omitempty" mapstructure:"body_before"`
	BodyAfter  string          `json:"body_after,omitempty" mapstructure:"body_after"`
	Delay      int64           `json:"delay,omitempty" mapstructure:"delay"`
}

// Usage instantiates a template inside a model by binding its parameters.
type Usage struct {
	ID         int64            `json:"id" mapstructure:"id"`
	Name       string           `json:"name" mapstructure:"name"`
	TemplateID int64            `json:"template_id" mapstructure:"template_id"`
	Arguments  map[string]int64 `json:"arguments" mapstructure:"arguments"`
}

// Model is the validated, read-only definition of a simulation.
type Model struct {
	ID            int64          `json:"id" mapstructure:"id"`
	OwnerID       int64          `json:"owner_id" mapstructure:"owner_id"`
	Name          string         `json:"name" mapstructure:"name"`
	ResourceTypes []ResourceType `json:"resource_types" mapstructure:"resource_types"`
	Resources     []Resource     `json:"resources" mapstructure:"resources"`
	Functions     []Function     `json:"functions" mapstructure:"functions"`
	Templates     []Template     `json:"templates" mapstructure:"templates"`
	Usages        []Usage        `json:"usages" mapstructure:"usages"`
}

// ResourceType returns the resource type with the given id.
func (m *Model) ResourceType(id int64) (*ResourceType, bool) {
	for i := range m.ResourceTypes {
		if m.ResourceTypes[i].ID == id {
			return &m.ResourceTypes[i], true
		}
	}
	return nil, false
}

// Template returns the template with the given id.
func (m *Model) Template(id int64) (*Template, bool) {
	for i := range m.Templates {
		if m.Templates[i].ID == id {
			return &m.Templates[i], true
		}
	}
	return nil, false
}

// ResourceIndex returns the stable position of a resource in snapshots.
func (m *Model) ResourceIndex(id int64) (int, bool) {
	for i := range m.Resources {
		if m.Resources[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// Validate checks referential integrity of the model and returns every problem found.
// Attribute values are checked by the engine when the initial snapshot is built.
func (m *Model) Validate() error {
	var errs error

	types := make(map[int64]*ResourceType, len(m.ResourceTypes))
	for i := range m.ResourceTypes {
		rt := &m.ResourceTypes[i]
		if _, dup := types[rt.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("duplicate resource type id %d", rt.ID))
		}
		types[rt.ID] = rt
		if rt.Kind != ResourceConstant && rt.Kind != ResourceTemporal {
			errs = multierr.Append(errs, fmt.Errorf("resource type %q: unknown kind %q", rt.Name, rt.Kind))
		}
		seen := make(map[string]bool, len(rt.Attributes))
		for _, a := range rt.Attributes {
			if seen[a.Name] {
				errs = multierr.Append(errs, fmt.Errorf("resource type %q: duplicate attribute %q", rt.Name, a.Name))
			}
			seen[a.Name] = true
			switch a.Type {
			case AttributeInt, AttributeFloat, AttributeBool:
			case AttributeEnum:
				if len(a.EnumValues) == 0 {
					errs = multierr.Append(errs, fmt.Errorf("resource type %q: enum attribute %q has no values", rt.Name, a.Name))
				}
			default:
				errs = multierr.Append(errs, fmt.Errorf("resource type %q: attribute %q has unknown type %q", rt.Name, a.Name, a.Type))
			}
		}
	}

	resources := make(map[int64]*Resource, len(m.Resources))
	for i := range m.Resources {
		r := &m.Resources[i]
		if _, dup := resources[r.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("duplicate resource id %d", r.ID))
		}
		resources[r.ID] = r
		rt, ok := types[r.ResourceTypeID]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("resource %q: unknown resource type %d", r.Name, r.ResourceTypeID))
			continue
		}
		for name := range r.Attributes {
			if _, ok := rt.Attribute(name); !ok {
				errs = multierr.Append(errs, fmt.Errorf("resource %q: attribute %q not declared by type %q", r.Name, name, rt.Name))
			}
		}
	}

	funcs := make(map[string]bool, len(m.Functions))
	for _, f := range m.Functions {
		if f.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("function without name"))
			continue
		}
		if funcs[f.Name] {
			errs = multierr.Append(errs, fmt.Errorf("duplicate function %q", f.Name))
		}
		funcs[f.Name] = true
	}

	templates := make(map[int64]*Template, len(m.Templates))
	for i := range m.Templates {
		t := &m.Templates[i]
		if _, dup := templates[t.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("duplicate template id %d", t.ID))
		}
		templates[t.ID] = t
		switch t.Kind {
		case KindIrregularEvent:
			if t.Generator == nil {
				errs = multierr.Append(errs, fmt.Errorf("irregular event %q: missing generator", t.Name))
			} else {
				errs = multierr.Append(errs, t.Generator.validate(t.Name))
			}
		case KindOperation:
			if t.Delay < 0 {
				errs = multierr.Append(errs, fmt.Errorf("operation %q: negative delay", t.Name))
			}
		case KindRule:
		default:
			errs = multierr.Append(errs, fmt.Errorf("template %q: unknown kind %q", t.Name, t.Kind))
		}
		for _, p := range t.Params {
			if _, ok := types[p.ResourceTypeID]; !ok {
				errs = multierr.Append(errs, fmt.Errorf("template %q: param %q has unknown resource type %d", t.Name, p.Name, p.ResourceTypeID))
			}
		}
	}

	usageIDs := make(map[int64]bool, len(m.Usages))
	for _, u := range m.Usages {
		if usageIDs[u.ID] {
			errs = multierr.Append(errs, fmt.Errorf("duplicate usage id %d", u.ID))
		}
		usageIDs[u.ID] = true
		t, ok := templates[u.TemplateID]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("usage %q: unknown template %d", u.Name, u.TemplateID))
			continue
		}
		for _, p := range t.Params {
			rid, ok := u.Arguments[p.Name]
			if !ok {
				errs = multierr.Append(errs, fmt.Errorf("usage %q: missing argument %q", u.Name, p.Name))
				continue
			}
			r, ok := resources[rid]
			if !ok {
				errs = multierr.Append(errs, fmt.Errorf("usage %q: argument %q references unknown resource %d", u.Name, p.Name, rid))
				continue
			}
			if r.ResourceTypeID != p.ResourceTypeID {
				errs = multierr.Append(errs, fmt.Errorf("usage %q: argument %q expects resource type %d, got %d", u.Name, p.Name, p.ResourceTypeID, r.ResourceTypeID))
			}
		}
	}

	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, errs)
	}
	return nil
}

func (g *Generator) validate(template string) error {
	switch g.Type {
	case GeneratorPrecise, GeneratorUniform, GeneratorNormal, GeneratorExponential:
	default:
		return fmt.Errorf("irregular event %q: unknown generator %q", template, g.Type)
	}
	if g.Value <= 0 {
		return fmt.Errorf("irregular event %q: generator value must be positive", template)
	}
	if g.Dispersion < 0 {
		return fmt.Errorf("irregular event %q: negative dispersion", template)
	}
	return nil
}

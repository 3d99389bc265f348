package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/atsim/pkg/domain"
	lua "github.com/yuin/gopher-lua"
)

// DefaultScriptTimeout bounds the scripts of a single tick.
const DefaultScriptTimeout = 2 * time.Second

// Engine evaluates ticks of simulation models.
// It is safe for concurrent use by any number of processes.
type Engine struct {
	timeout time.Duration
	cache   *protoCache
}

// Option configures an Engine.
type Option func(*Engine)

// WithScriptTimeout bounds the wall time of all scripts of one tick.
// Zero disables the bound.
func WithScriptTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		timeout: DefaultScriptTimeout,
		cache:   newProtoCache(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initial builds the tick 0 snapshot of a model: every resource with its
// attributes (defaults filled in and coerced) and every usage idle.
func (e *Engine) Initial(m *domain.Model) (*domain.TickSnapshot, error) {
	snap := &domain.TickSnapshot{
		Resources: make([]*domain.ResourceState, len(m.Resources)),
		Usages:    make([]domain.UsageState, len(m.Usages)),
	}

	for i, r := range m.Resources {
		rt, ok := m.ResourceType(r.ResourceTypeID)
		if !ok {
			return nil, fault(0, "", fmt.Errorf("resource %q: unknown resource type %d", r.Name, r.ResourceTypeID))
		}
		st := &domain.ResourceState{
			ResourceID: r.ID,
			Name:       r.Name,
			TypeID:     rt.ID,
			Traced:     r.ToBeTraced,
			Attributes: make(map[string]any, len(rt.Attributes)),
		}
		for _, a := range rt.Attributes {
			if v, ok := r.Attributes[a.Name]; ok {
				st.Attributes[a.Name] = v
			} else if a.Default != nil {
				st.Attributes[a.Name] = a.Default
			}
		}
		if err := normalize(rt, st); err != nil {
			return nil, fault(0, "", err)
		}
		snap.Resources[i] = st
	}

	for i, u := range m.Usages {
		t, ok := m.Template(u.TemplateID)
		if !ok {
			return nil, fault(0, u.Name, fmt.Errorf("unknown template %d", u.TemplateID))
		}
		switch t.Kind {
		case domain.KindIrregularEvent:
			if t.Generator == nil {
				return nil, fault(0, u.Name, fmt.Errorf("irregular event without generator"))
			}
			snap.Usages[i] = &domain.IrregularEventState{
				ID:       u.ID,
				Name:     u.Name,
				NextTick: interval(t.Generator, u.ID, 0),
			}
		case domain.KindOperation:
			snap.Usages[i] = &domain.OperationState{ID: u.ID, Name: u.Name}
		case domain.KindRule:
			snap.Usages[i] = &domain.RuleState{ID: u.ID, Name: u.Name}
		default:
			return nil, fault(0, u.Name, fmt.Errorf("unknown template kind %q", t.Kind))
		}
	}
	return snap, nil
}

// Advance computes the snapshot following prev.
func (e *Engine) Advance(ctx context.Context, m *domain.Model, prev *domain.TickSnapshot) (*domain.TickSnapshot, []int64, error) {
	tick := prev.Tick + 1
	resources, usages, triggered, err := e.Step(ctx, m, prev.Resources, prev.Usages, tick)
	if err != nil {
		return nil, nil, err
	}
	return &domain.TickSnapshot{Tick: tick, Resources: resources, Usages: usages}, triggered, nil
}

// Step computes tick number `tick` from the states of the previous tick.
// The inputs are not modified. It returns the new states and the IDs of the
// usages that fired, in usage order.
func (e *Engine) Step(ctx context.Context, m *domain.Model, resources []*domain.ResourceState, usages []domain.UsageState, tick int64) ([]*domain.ResourceState, []domain.UsageState, []int64, error) {
	if len(resources) != len(m.Resources) {
		return nil, nil, nil, fault(tick, "", fmt.Errorf("snapshot has %d resources, model declares %d", len(resources), len(m.Resources)))
	}
	if len(usages) != len(m.Usages) {
		return nil, nil, nil, fault(tick, "", fmt.Errorf("snapshot has %d usages, model declares %d", len(usages), len(m.Usages)))
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	sb, err := newSandbox(ctx, e.cache, m, tick)
	if err != nil {
		return nil, nil, nil, fault(tick, "", err)
	}
	defer sb.close()

	s := &step{
		model:     m,
		tick:      tick,
		sb:        sb,
		resources: make([]*domain.ResourceState, len(resources)),
		usages:    make([]domain.UsageState, len(usages)),
		bindings:  make([]binding, len(usages)),
	}
	for i, r := range resources {
		s.resources[i] = r.Clone()
	}
	for i, u := range usages {
		b, err := s.resolve(i)
		if err != nil {
			return nil, nil, nil, err
		}
		if u == nil || u.Kind() != b.template.Kind || u.UsageID() != m.Usages[i].ID {
			return nil, nil, nil, fault(tick, m.Usages[i].Name, fmt.Errorf("usage state does not match model"))
		}
		s.bindings[i] = b
		s.usages[i] = u.Clone()
	}

	for _, phase := range []func() error{s.events, s.operationsBegin, s.rules, s.operationsFinish, s.normalize} {
		if err := phase(); err != nil {
			return nil, nil, nil, err
		}
	}

	var triggered []int64
	for _, u := range s.usages {
		if u.Triggered() {
			triggered = append(triggered, u.UsageID())
		}
	}
	return s.resources, s.usages, triggered, nil
}

func fault(tick int64, usage string, err error) error {
	return &domain.EngineFault{Tick: tick, Usage: usage, Err: err}
}

// binding resolves a usage to its template and the resource positions of its arguments.
type binding struct {
	usage    *domain.Usage
	template *domain.Template
	params   []string
	idx      []int
}

// step holds the working state of one Step call.
type step struct {
	model     *domain.Model
	tick      int64
	sb        *sandbox
	resources []*domain.ResourceState
	usages    []domain.UsageState
	bindings  []binding
	begun     []bool
}

func (s *step) resolve(i int) (binding, error) {
	u := &s.model.Usages[i]
	t, ok := s.model.Template(u.TemplateID)
	if !ok {
		return binding{}, fault(s.tick, u.Name, fmt.Errorf("unknown template %d", u.TemplateID))
	}
	b := binding{usage: u, template: t, params: make([]string, len(t.Params)), idx: make([]int, len(t.Params))}
	for j, p := range t.Params {
		rid, ok := u.Arguments[p.Name]
		if !ok {
			return binding{}, fault(s.tick, u.Name, fmt.Errorf("missing argument %q", p.Name))
		}
		pos, ok := s.model.ResourceIndex(rid)
		if !ok {
			return binding{}, fault(s.tick, u.Name, fmt.Errorf("argument %q references unknown resource %d", p.Name, rid))
		}
		b.params[j] = p.Name
		b.idx[j] = pos
	}
	return b, nil
}

// present reports whether every resource bound by the usage exists this tick.
func (s *step) present(b binding) bool {
	for _, pos := range b.idx {
		if s.resources[pos] == nil {
			return false
		}
	}
	return true
}

// condition evaluates a template condition against the bound resources.
func (s *step) condition(b binding, cond string) (bool, error) {
	s.sb.bind(b.params, s.resources, b.idx)
	defer s.sb.unbind(b.params)

	ok, err := s.sb.eval(cond, b.usage.Name)
	if err != nil {
		return false, fault(s.tick, b.usage.Name, err)
	}
	return ok, nil
}

// apply runs a body and writes the bound tables back into the working resources.
func (s *step) apply(b binding, body string) error {
	tables := s.sb.bind(b.params, s.resources, b.idx)
	defer s.sb.unbind(b.params)

	if err := s.sb.exec(body, b.usage.Name); err != nil {
		return fault(s.tick, b.usage.Name, err)
	}

	for pos, t := range tables {
		if err := s.writeBack(pos, t); err != nil {
			return fault(s.tick, b.usage.Name, err)
		}
	}
	return nil
}

func (s *step) writeBack(pos int, t *lua.LTable) error {
	cur := s.resources[pos]
	rt, ok := s.model.ResourceType(cur.TypeID)
	if !ok {
		return fmt.Errorf("resource %q: unknown resource type %d", cur.Name, cur.TypeID)
	}

	if lua.LVAsBool(t.RawGetString(destroyedKey)) {
		if rt.Kind != domain.ResourceTemporal {
			return fmt.Errorf("resource %q: cannot destroy %s resource", cur.Name, rt.Kind)
		}
		s.resources[pos] = nil
		return nil
	}

	next := cur.Clone()
	for _, a := range rt.Attributes {
		raw := fromLua(t.RawGetString(a.Name))
		if raw == nil {
			return fmt.Errorf("resource %q: attribute %q set to nil", cur.Name, a.Name)
		}
		v, err := coerce(a, raw)
		if err != nil {
			return fmt.Errorf("resource %q: %w", cur.Name, err)
		}
		if prev, ok := cur.Attributes[a.Name]; rt.Kind == domain.ResourceConstant && (!ok || !sameValue(prev, v)) {
			return fmt.Errorf("resource %q: attribute %q of %s resource is read-only", cur.Name, a.Name, rt.Kind)
		}
		next.Attributes[a.Name] = v
	}
	s.resources[pos] = next
	return nil
}

func sameValue(a, b any) bool {
	fa, okA := asFloat(a)
	fb, okB := asFloat(b)
	if okA && okB {
		return fa == fb
	}
	return a == b
}

func (s *step) events() error {
	for i, b := range s.bindings {
		st, ok := s.usages[i].(*domain.IrregularEventState)
		if !ok {
			continue
		}
		st.HasTriggered = false
		if s.tick < st.NextTick || !s.present(b) {
			continue
		}
		if err := s.apply(b, b.template.Body); err != nil {
			return err
		}
		st.HasTriggered = true
		st.NextTick = s.tick + interval(b.template.Generator, b.usage.ID, s.tick)
	}
	return nil
}

func (s *step) operationsBegin() error {
	s.begun = make([]bool, len(s.usages))
	for i, b := range s.bindings {
		st, ok := s.usages[i].(*domain.OperationState)
		if !ok {
			continue
		}
		st.HasTriggeredBefore = false
		st.HasTriggeredAfter = false
		if st.InProgress || !s.present(b) {
			continue
		}
		holds, err := s.condition(b, b.template.Condition)
		if err != nil {
			return err
		}
		if holds {
			st.HasTriggeredBefore = true
			st.InProgress = true
			st.Remaining = b.template.Delay
			s.begun[i] = true
		}
	}
	return nil
}

func (s *step) rules() error {
	for i, b := range s.bindings {
		st, ok := s.usages[i].(*domain.RuleState)
		if !ok {
			continue
		}
		st.HasTriggered = false
		if !s.present(b) {
			continue
		}
		holds, err := s.condition(b, b.template.Condition)
		if err != nil {
			return err
		}
		if !holds {
			continue
		}
		if err := s.apply(b, b.template.Body); err != nil {
			return err
		}
		st.HasTriggered = true
	}
	return nil
}

func (s *step) operationsFinish() error {
	for i, b := range s.bindings {
		st, ok := s.usages[i].(*domain.OperationState)
		if !ok || !st.InProgress {
			continue
		}
		if !s.present(b) {
			// A bound resource was destroyed mid-flight.
			st.InProgress = false
			st.Remaining = 0
			continue
		}
		if s.begun[i] {
			if err := s.apply(b, b.template.BodyBefore); err != nil {
				return err
			}
			if !s.present(b) {
				st.InProgress = false
				continue
			}
		} else {
			st.Remaining--
		}
		if st.Remaining > 0 {
			continue
		}
		if err := s.apply(b, b.template.BodyAfter); err != nil {
			return err
		}
		st.InProgress = false
		st.Remaining = 0
		st.HasTriggeredAfter = true
	}
	return nil
}

func (s *step) normalize() error {
	for _, r := range s.resources {
		if r == nil {
			continue
		}
		rt, ok := s.model.ResourceType(r.TypeID)
		if !ok {
			return fault(s.tick, "", fmt.Errorf("resource %q: unknown resource type %d", r.Name, r.TypeID))
		}
		if err := normalize(rt, r); err != nil {
			return fault(s.tick, "", err)
		}
	}
	return nil
}

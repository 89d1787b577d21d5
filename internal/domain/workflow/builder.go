package workflow

import (
	"fmt"
)

// GuardFunc evaluates a precondition against the entity being transitioned
type GuardFunc func(subject interface{}) bool

// EdgeOption configures a single edge of the state graph
type EdgeOption func(*transition)

// By restricts an edge to the given actor roles
func By(roles ...Role) EdgeOption {
	return func(t *transition) {
		t.edge.Roles = append(t.edge.Roles, roles...)
	}
}

// When attaches a named guard to an edge. Guards run in declaration order
// after the graph and role checks pass.
func When(name string, guard GuardFunc) EdgeOption {
	return func(t *transition) {
		t.edge.Guards = append(t.edge.Guards, name)
		t.guards = append(t.guards, namedGuard{name: name, fn: guard})
	}
}

// WithFeedback marks the edge as requiring operator feedback in its audit entry
func WithFeedback() EdgeOption {
	return func(t *transition) {
		t.edge.FeedbackRequired = true
	}
}

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given status
	Configure(status Status) StateConfiguration

	// Build creates an immutable machine
	Build() *Machine
}

// StateConfiguration configures outbound edges for a specific status
type StateConfiguration interface {
	// Permit adds an edge from the configured status to the target status
	Permit(to Status, opts ...EdgeOption) StateConfiguration
}

type namedGuard struct {
	name string
	fn   GuardFunc
}

// transition is an edge plus its guard functions
type transition struct {
	edge   Edge
	guards []namedGuard
}

// stateConfig implements StateConfiguration
type stateConfig struct {
	builder    *stateMachineBuilder
	fromStatus Status
}

// stateMachineBuilder implements StateMachineBuilder
type stateMachineBuilder struct {
	kind        Kind
	initial     Status
	statuses    []Status
	known       map[Status]bool
	transitions map[Status][]transition
}

// NewBuilder creates a new state machine builder for one entity kind
func NewBuilder(kind Kind, initial Status) StateMachineBuilder {
	if initial == "" {
		panic(fmt.Sprintf("%s: empty initial status", kind))
	}

	b := &stateMachineBuilder{
		kind:        kind,
		initial:     initial,
		known:       make(map[Status]bool),
		transitions: make(map[Status][]transition),
	}
	b.register(initial)
	return b
}

func (b *stateMachineBuilder) register(s Status) {
	if !b.known[s] {
		b.known[s] = true
		b.statuses = append(b.statuses, s)
	}
}

// Configure returns a state configuration for the given status
func (b *stateMachineBuilder) Configure(status Status) StateConfiguration {
	if status == "" {
		panic(fmt.Sprintf("%s: empty status", b.kind))
	}
	b.register(status)

	return &stateConfig{builder: b, fromStatus: status}
}

// Permit adds an edge from the configured status to the target status
func (c *stateConfig) Permit(to Status, opts ...EdgeOption) StateConfiguration {
	b := c.builder
	if to == "" {
		panic(fmt.Sprintf("%s: empty target status from %s", b.kind, c.fromStatus))
	}

	t := transition{edge: Edge{From: c.fromStatus, To: to}}
	for _, opt := range opts {
		opt(&t)
	}
	if len(t.edge.Roles) == 0 {
		panic(fmt.Sprintf("%s: edge %s -> %s has no permitted roles", b.kind, c.fromStatus, to))
	}
	for _, existing := range b.transitions[c.fromStatus] {
		if existing.edge.To == to {
			panic(fmt.Sprintf("%s: duplicate edge %s -> %s", b.kind, c.fromStatus, to))
		}
	}

	b.register(to)
	b.transitions[c.fromStatus] = append(b.transitions[c.fromStatus], t)
	return c
}

// Build creates an immutable machine from the configured graph
func (b *stateMachineBuilder) Build() *Machine {
	// Deep copy so later Configure calls cannot mutate a built machine
	transitions := make(map[Status][]transition, len(b.transitions))
	for from, ts := range b.transitions {
		copied := make([]transition, len(ts))
		for i, t := range ts {
			copied[i] = transition{edge: t.edge.clone(), guards: append([]namedGuard{}, t.guards...)}
		}
		transitions[from] = copied
	}

	known := make(map[Status]bool, len(b.known))
	for s := range b.known {
		known[s] = true
	}

	return &Machine{
		kind:        b.kind,
		initial:     b.initial,
		statuses:    append([]Status{}, b.statuses...),
		known:       known,
		transitions: transitions,
	}
}

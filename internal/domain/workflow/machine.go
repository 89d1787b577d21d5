package workflow

// Edge is one legal transition in a kind's state graph
type Edge struct {
	From             Status   `json:"from"`
	To               Status   `json:"to"`
	Roles            []Role   `json:"roles"`
	Guards           []string `json:"guards,omitempty"`
	FeedbackRequired bool     `json:"feedback_required"`
}

func (e Edge) clone() Edge {
	e.Roles = append([]Role{}, e.Roles...)
	e.Guards = append([]string{}, e.Guards...)
	return e
}

// allows returns true if the role may use this edge
func (e Edge) allows(role Role) bool {
	for _, r := range e.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Table is the static directed graph of a kind
type Table struct {
	Kind     Kind     `json:"kind"`
	Initial  Status   `json:"initial"`
	Statuses []Status `json:"statuses"`
	Edges    []Edge   `json:"edges"`
}

// From returns the outbound edges of a status
func (t Table) From(status Status) []Edge {
	var edges []Edge
	for _, e := range t.Edges {
		if e.From == status {
			edges = append(edges, e)
		}
	}
	return edges
}

// Terminal returns the statuses with no outbound edges
func (t Table) Terminal() []Status {
	var terminal []Status
	for _, s := range t.Statuses {
		if len(t.From(s)) == 0 {
			terminal = append(terminal, s)
		}
	}
	return terminal
}

// AuditShape describes the history entry a permitted transition must append
type AuditShape struct {
	From             Status
	To               Status
	ActorRole        Role
	FeedbackRequired bool
}

// Decision is the outcome of asking a machine about a transition
type Decision struct {
	Allowed bool
	Reason  DenyReason
	Guard   string
	Next    Status
	Audit   AuditShape

	kind Kind
	from Status
	to   Status
}

// Err returns nil for an allowed decision and a *DenyError otherwise
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DenyError{Kind: d.kind, From: d.from, To: d.to, Reason: d.Reason, Guard: d.Guard}
}

// Machine is a pure, immutable decision function over one kind's state graph
type Machine struct {
	kind        Kind
	initial     Status
	statuses    []Status
	known       map[Status]bool
	transitions map[Status][]transition
}

// Kind returns the entity kind governed by this machine
func (m *Machine) Kind() Kind {
	return m.kind
}

// Initial returns the status new entities start in
func (m *Machine) Initial() Status {
	return m.initial
}

// IsValid returns true if the status belongs to this machine's graph
func (m *Machine) IsValid(status Status) bool {
	return m.known[status]
}

// IsTerminal returns true if the status has no outbound edges
func (m *Machine) IsTerminal(status Status) bool {
	return m.known[status] && len(m.transitions[status]) == 0
}

// CanTransition checks the graph edge and the actor's role. Guards are not evaluated.
func (m *Machine) CanTransition(current, requested Status, role Role) Decision {
	deny := func(reason DenyReason) Decision {
		return Decision{Reason: reason, kind: m.kind, from: current, to: requested}
	}

	if !m.known[current] || !m.known[requested] {
		return deny(ReasonIllegalTransition)
	}

	t, ok := m.find(current, requested)
	if !ok {
		return deny(ReasonIllegalTransition)
	}
	if !t.edge.allows(role) {
		return deny(ReasonForbiddenRole)
	}

	return Decision{
		Allowed: true,
		Next:    requested,
		Audit: AuditShape{
			From:             current,
			To:               requested,
			ActorRole:        role,
			FeedbackRequired: t.edge.FeedbackRequired,
		},
		kind: m.kind,
		from: current,
		to:   requested,
	}
}

// Evaluate runs CanTransition and then the edge's guards against subject
func (m *Machine) Evaluate(current, requested Status, role Role, subject interface{}) Decision {
	d := m.CanTransition(current, requested, role)
	if !d.Allowed {
		return d
	}

	t, _ := m.find(current, requested)
	for _, g := range t.guards {
		if !g.fn(subject) {
			return Decision{Reason: ReasonGuardFailed, Guard: g.name, kind: m.kind, from: current, to: requested}
		}
	}

	return d
}

// TransitionTable returns a copy of the static graph
func (m *Machine) TransitionTable() Table {
	table := Table{
		Kind:     m.kind,
		Initial:  m.initial,
		Statuses: append([]Status{}, m.statuses...),
	}
	for _, s := range m.statuses {
		for _, t := range m.transitions[s] {
			table.Edges = append(table.Edges, t.edge.clone())
		}
	}
	return table
}

// AvailableTransitions returns the statuses the role may request from current
func (m *Machine) AvailableTransitions(current Status, role Role) []Status {
	next := []Status{}
	for _, t := range m.transitions[current] {
		if t.edge.allows(role) {
			next = append(next, t.edge.To)
		}
	}
	return next
}

func (m *Machine) find(from, to Status) (transition, bool) {
	for _, t := range m.transitions[from] {
		if t.edge.To == to {
			return t, true
		}
	}
	return transition{}, false
}

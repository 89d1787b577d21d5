package workflow

import "fmt"

// DefaultMinProducts is the product count a seller needs before activation
const DefaultMinProducts = 1

// Policy holds the tunable constants guards depend on
type Policy struct {
	MinProducts int
}

// DefaultPolicy returns the policy used when nothing is configured
func DefaultPolicy() Policy {
	return Policy{MinProducts: DefaultMinProducts}
}

// UploadedProductsReporter is implemented by subjects of the minimum-products guard
type UploadedProductsReporter interface {
	UploadedProducts() int
}

// MinimumProductsUploaded returns a guard passing when the subject has at least min products
func MinimumProductsUploaded(min int) GuardFunc {
	return func(subject interface{}) bool {
		r, ok := subject.(UploadedProductsReporter)
		if !ok {
			return false
		}
		return r.UploadedProducts() >= min
	}
}

// NewOrderMachine builds the order fulfillment graph
func NewOrderMachine() *Machine {
	b := NewBuilder(KindOrder, OrderPending)
	b.Configure(OrderPending).
		Permit(OrderProcessing, By(RoleSeller, RoleAdmin)).
		Permit(OrderCancelled, By(RoleSeller, RoleAdmin))
	b.Configure(OrderProcessing).
		Permit(OrderShipped, By(RoleSeller, RoleAdmin)).
		Permit(OrderCancelled, By(RoleSeller, RoleAdmin))
	b.Configure(OrderShipped).
		Permit(OrderDelivered, By(RoleSeller, RoleAdmin))
	b.Configure(OrderDelivered)
	b.Configure(OrderCancelled)
	return b.Build()
}

// NewSellerMachine builds the seller onboarding graph
func NewSellerMachine(policy Policy) *Machine {
	b := NewBuilder(KindSeller, SellerPending)
	b.Configure(SellerPending).
		Permit(SellerActive, By(RoleAdmin), When(GuardMinimumProducts, MinimumProductsUploaded(policy.MinProducts))).
		Permit(SellerRejected, By(RoleAdmin))
	b.Configure(SellerActive).
		Permit(SellerSuspended, By(RoleAdmin), WithFeedback())
	b.Configure(SellerRejected)
	b.Configure(SellerSuspended)
	return b.Build()
}

// NewCulturalApprovalMachine builds the revisable cultural review sub-flow.
// Reviewed outcomes keep outbound edges so admins can re-decide.
func NewCulturalApprovalMachine() *Machine {
	b := NewBuilder(KindCulturalApproval, CulturalUnreviewed)
	b.Configure(CulturalUnreviewed).
		Permit(CulturalApproved, By(RoleAdmin)).
		Permit(CulturalRejected, By(RoleAdmin), WithFeedback())
	b.Configure(CulturalApproved).
		Permit(CulturalApproved, By(RoleAdmin)).
		Permit(CulturalRejected, By(RoleAdmin), WithFeedback())
	b.Configure(CulturalRejected).
		Permit(CulturalApproved, By(RoleAdmin)).
		Permit(CulturalRejected, By(RoleAdmin), WithFeedback())
	return b.Build()
}

// NewCategoryRequestMachine builds the category request graph
func NewCategoryRequestMachine() *Machine {
	b := NewBuilder(KindCategoryRequest, CategoryPending)
	b.Configure(CategoryPending).
		Permit(CategoryApproved, By(RoleAdmin)).
		Permit(CategoryRejected, By(RoleAdmin), WithFeedback())
	b.Configure(CategoryApproved)
	b.Configure(CategoryRejected)
	return b.Build()
}

// Registry looks machines up by kind
type Registry struct {
	machines map[Kind]*Machine
}

// NewRegistry creates a registry from machines, keyed by their kind
func NewRegistry(machines ...*Machine) *Registry {
	r := &Registry{machines: make(map[Kind]*Machine, len(machines))}
	for _, m := range machines {
		if _, dup := r.machines[m.Kind()]; dup {
			panic(fmt.Sprintf("duplicate machine for kind %s", m.Kind()))
		}
		r.machines[m.Kind()] = m
	}
	return r
}

// DefaultRegistry wires the order, seller, cultural approval and category request machines
func DefaultRegistry(policy Policy) *Registry {
	return NewRegistry(
		NewOrderMachine(),
		NewSellerMachine(policy),
		NewCulturalApprovalMachine(),
		NewCategoryRequestMachine(),
	)
}

// Machine returns the machine for a kind
func (r *Registry) Machine(kind Kind) (*Machine, bool) {
	m, ok := r.machines[kind]
	return m, ok
}

// MustMachine returns the machine for a kind and panics if none is registered
func (r *Registry) MustMachine(kind Kind) *Machine {
	m, ok := r.machines[kind]
	if !ok {
		panic(fmt.Sprintf("no machine registered for kind %s", kind))
	}
	return m
}

// CanTransition decides a transition for kind without evaluating guards.
// An unknown kind is an illegal transition.
func (r *Registry) CanTransition(kind Kind, current, requested Status, role Role) Decision {
	m, ok := r.machines[kind]
	if !ok {
		return Decision{Reason: ReasonIllegalTransition, kind: kind, from: current, to: requested}
	}
	return m.CanTransition(current, requested, role)
}

// TransitionTable returns the static graph for kind
func (r *Registry) TransitionTable(kind Kind) (Table, bool) {
	m, ok := r.machines[kind]
	if !ok {
		return Table{}, false
	}
	return m.TransitionTable(), true
}

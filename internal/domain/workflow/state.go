package workflow

// Kind identifies which family of workflow entity a machine governs
type Kind string

const (
	KindOrder            Kind = "ORDER"
	KindSeller           Kind = "SELLER"
	KindCategoryRequest  Kind = "CATEGORY_REQUEST"
	KindCulturalApproval Kind = "SELLER_CULTURAL_APPROVAL"
)

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

// IsValid returns true for the entity kinds that are persisted on their own.
// KindCulturalApproval is a sub-state of a seller and is not one of them.
func (k Kind) IsValid() bool {
	switch k {
	case KindOrder, KindSeller, KindCategoryRequest:
		return true
	default:
		return false
	}
}

// Status is a workflow state. The set of legal values depends on the Kind.
type Status string

// Order statuses
const (
	OrderPending    Status = "pending"
	OrderProcessing Status = "processing"
	OrderShipped    Status = "shipped"
	OrderDelivered  Status = "delivered"
	OrderCancelled  Status = "cancelled"
)

// Seller profile statuses
const (
	SellerPending   Status = "pending"
	SellerActive    Status = "active"
	SellerRejected  Status = "rejected"
	SellerSuspended Status = "suspended"
)

// Cultural approval sub-statuses
const (
	CulturalUnreviewed Status = "unreviewed"
	CulturalApproved   Status = "approved"
	CulturalRejected   Status = "rejected"
)

// Category request statuses
const (
	CategoryPending  Status = "pending"
	CategoryApproved Status = "approved"
	CategoryRejected Status = "rejected"
)

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// Role is the privilege level of the actor requesting a transition
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleSeller   Role = "SELLER"
	RoleCustomer Role = "CUSTOMER"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is one issued by the auth collaborator
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleSeller, RoleCustomer:
		return true
	default:
		return false
	}
}

package event

// Type identifies the type of domain event
type Type string

const (
	TypeEntityCreated      Type = "entity.created"
	TypeStatusChanged      Type = "entity.status_changed"
	TypeTrackingAttached   Type = "order.tracking_attached"
	TypeCulturalReviewed   Type = "seller.cultural_reviewed"
	TypeCategoryCatalogued Type = "category.catalogued"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeEntityCreated,
		TypeStatusChanged,
		TypeTrackingAttached,
		TypeCulturalReviewed,
		TypeCategoryCatalogued:
		return true
	default:
		return false
	}
}

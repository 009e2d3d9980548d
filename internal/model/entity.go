// Package model defines the core domain models used throughout the application.
package model

import "time"

// EntityType identifies what kind of real-world subject an entity is.
type EntityType string

// Entity type constants.
const (
	EntityTypePerson    EntityType = "person"
	EntityTypeVehicle   EntityType = "vehicle"
	EntityTypePet       EntityType = "pet"
	EntityTypeProperty  EntityType = "property"
	EntityTypeBusiness  EntityType = "business"
	EntityTypeHousehold EntityType = "household"
)

// ValidEntityTypes lists every accepted entity type.
var ValidEntityTypes = []EntityType{
	EntityTypePerson,
	EntityTypeVehicle,
	EntityTypePet,
	EntityTypeProperty,
	EntityTypeBusiness,
	EntityTypeHousehold,
}

// IsValid reports whether the entity type is one of the known types.
func (t EntityType) IsValid() bool {
	for _, v := range ValidEntityTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Entity represents a real-world subject that documents can be attributed to:
// a person, a vehicle, a pet, a property, a business, or the shared household
// default.
type Entity struct {
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Metadata   map[string]string
	ID         string
	Name       string
	Identifier string // email, registration plate, address; semantics depend on Type
	OwnerID    string // optional reference to another entity (e.g. a vehicle's owner)
	Type       EntityType
	IsActive   bool
}

// SuggestionStatus tracks the human-review state of a proposed entity.
type SuggestionStatus string

// Suggestion status constants.
const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionRejected SuggestionStatus = "rejected"
)

// EntitySuggestion is a proposed new entity awaiting user approval. The
// resolver emits these when it finds a usable hint that matches no known
// entity; entities are never auto-created from them.
type EntitySuggestion struct {
	CreatedAt  time.Time
	ResolvedAt *time.Time
	ID         string
	DocumentID string
	Name       string
	Identifier string
	Type       EntityType
	Status     SuggestionStatus
}

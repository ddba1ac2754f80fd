package models

import "strings"

// EntityType classifies the kind of entity.
type EntityType string

const (
	EntityTypePerson       EntityType = "Person"
	EntityTypeOrganization EntityType = "Organization"
	EntityTypeLocation     EntityType = "Location"
	EntityTypeDate         EntityType = "Date"
	EntityTypeConcept      EntityType = "Concept"
)

// ValidEntityTypes is the set of all valid entity types.
var ValidEntityTypes = []EntityType{
	EntityTypePerson,
	EntityTypeOrganization,
	EntityTypeLocation,
	EntityTypeDate,
	EntityTypeConcept,
}

// IsValid returns true if the entity type is recognized.
func (et EntityType) IsValid() bool {
	for i := range ValidEntityTypes {
		if et == ValidEntityTypes[i] {
			return true
		}
	}
	return false
}

// ParseEntityType matches s case-insensitively against the valid types and
// returns the canonical spelling.
func ParseEntityType(s string) (EntityType, bool) {
	s = strings.TrimSpace(s)
	for i := range ValidEntityTypes {
		if strings.EqualFold(s, string(ValidEntityTypes[i])) {
			return ValidEntityTypes[i], true
		}
	}
	return "", false
}

// Entity is a typed named concept extracted from text. Two entities with the
// same Name and Type are the same graph node.
type Entity struct {
	Name string     `json:"name"`
	Type EntityType `json:"type"`
}

// Key returns the identity key of the entity.
func (e Entity) Key() EntityKey {
	return EntityKey{Name: e.Name, Type: e.Type}
}

// EntityKey is the (name, type) identity of an Entity.
type EntityKey struct {
	Name string
	Type EntityType
}

// Triple is an inferred relationship before its label is sanitized.
type Triple struct {
	Source string `json:"source"`
	Label  string `json:"label"`
	Target string `json:"target"`
}

// Relationship is a stored, typed edge between two entities.
type Relationship struct {
	Source EntityKey `json:"source"`
	Type   string    `json:"type"`
	Target EntityKey `json:"target"`
}

// GraphStats summarizes the contents of the property graph.
type GraphStats struct {
	Entities      int64 `json:"entities"`
	Documents     int64 `json:"documents"`
	Mentions      int64 `json:"mentions"`
	Relationships int64 `json:"relationships"`
}

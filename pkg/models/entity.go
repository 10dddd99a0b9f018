package models

import (
	"time"
)

// Confidence is the tiered certainty vocabulary used for aliases and
// relationships
type Confidence string

const (
	ConfidenceDefinite    Confidence = "definite"
	ConfidenceHigh        Confidence = "high"
	ConfidenceMedium      Confidence = "medium"
	ConfidenceLow         Confidence = "low"
	ConfidenceSpeculative Confidence = "speculative"
)

// AliasType categorizes why an alternate name refers to the same entity
type AliasType string

const (
	AliasTypeNickname      AliasType = "nickname"
	AliasTypeTitle         AliasType = "title"
	AliasTypeMaidenName    AliasType = "maiden_name"
	AliasTypeAbbreviation  AliasType = "abbreviation"
	AliasTypeMisspelling   AliasType = "misspelling"
	AliasTypeAnonymization AliasType = "anonymization"
	AliasTypeDescription   AliasType = "description"
)

// ResolvedEntity is the golden record for one real-world entity in a case
type ResolvedEntity struct {
	ID                       string     `json:"id" db:"id"`
	CaseID                   string     `json:"case_id" db:"case_id"`
	CanonicalName            string     `json:"canonical_name" db:"canonical_name"`
	EntityType               EntityType `json:"entity_type" db:"entity_type"`
	EntityRole               EntityRole `json:"entity_role" db:"entity_role"`
	MentionCount             int        `json:"mention_count" db:"mention_count"`
	FirstSeen                time.Time  `json:"first_seen" db:"first_seen"`
	LastSeen                 time.Time  `json:"last_seen" db:"last_seen"`
	ProfessionalRegistration *string    `json:"professional_registration,omitempty" db:"professional_registration"`
	Notes                    *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt                time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at" db:"updated_at"`
}

// EntityAlias is a recorded alternate name for a resolved entity
type EntityAlias struct {
	ID         string     `json:"id" db:"id"`
	CaseID     string     `json:"case_id" db:"case_id"`
	EntityID   string     `json:"entity_id" db:"entity_id"`
	Name       string     `json:"name" db:"name"`
	Normalized string     `json:"normalized" db:"normalized"`
	AliasType  AliasType  `json:"alias_type" db:"alias_type"`
	DocumentID *string    `json:"document_id,omitempty" db:"document_id"`
	Confidence Confidence `json:"confidence" db:"confidence"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// EntityRedirect records that an absorbed entity now lives on as survivor.
// Chains are compressed on write so a redirect always points at a live row.
type EntityRedirect struct {
	AbsorbedID string    `json:"absorbed_id" db:"absorbed_id"`
	CaseID     string    `json:"case_id" db:"case_id"`
	SurvivorID string    `json:"survivor_id" db:"survivor_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// RelationshipType categorizes how two entities relate
type RelationshipType string

const (
	RelationshipParentOf         RelationshipType = "parent_of"
	RelationshipEmployerOf       RelationshipType = "employer_of"
	RelationshipRepresentedBy    RelationshipType = "represented_by"
	RelationshipAuthoredReportOn RelationshipType = "authored_report_on"
	RelationshipInvestigated     RelationshipType = "investigated"
	RelationshipAssociatedWith   RelationshipType = "associated_with"
)

// EntityRelationship is a typed, evidenced edge between two resolved entities
type EntityRelationship struct {
	ID               string           `json:"id" db:"id"`
	CaseID           string           `json:"case_id" db:"case_id"`
	SourceEntityID   string           `json:"source_entity_id" db:"source_entity_id"`
	TargetEntityID   string           `json:"target_entity_id" db:"target_entity_id"`
	RelationshipType RelationshipType `json:"relationship_type" db:"relationship_type"`
	Evidence         string           `json:"evidence,omitempty" db:"evidence"`
	DocumentID       *string          `json:"document_id,omitempty" db:"document_id"`
	Confidence       Confidence       `json:"confidence" db:"confidence"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
}

// EntityDetail is an entity with its aliases and mentions attached
type EntityDetail struct {
	Entity   ResolvedEntity `json:"entity"`
	Aliases  []EntityAlias  `json:"aliases"`
	Mentions []Mention      `json:"mentions"`
}

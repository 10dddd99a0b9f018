package models

import (
	"time"
)

// EntityType categorizes what kind of entity a mention refers to
type EntityType string

const (
	EntityTypePerson       EntityType = "person"
	EntityTypeOrganization EntityType = "organization"
	EntityTypeProfessional EntityType = "professional"
	EntityTypeCourt        EntityType = "court"
	EntityTypePolice       EntityType = "police"
	EntityTypeAgency       EntityType = "agency"
	EntityTypeExpert       EntityType = "expert"
	EntityTypeMedia        EntityType = "media"
	EntityTypeLocation     EntityType = "location"
	EntityTypeDocumentRef  EntityType = "document_ref"
	EntityTypeOther        EntityType = "other"
)

// NameKind is the normalization family an entity type belongs to
type NameKind string

const (
	NameKindPerson       NameKind = "person"
	NameKindOrganization NameKind = "organization"
	NameKindOther        NameKind = "other"
)

// Kind maps an entity type to its normalization family. Professionals and
// experts carry personal names; courts, police forces, agencies and media
// outlets carry organizational names.
func (t EntityType) Kind() NameKind {
	switch t {
	case EntityTypePerson, EntityTypeProfessional, EntityTypeExpert:
		return NameKindPerson
	case EntityTypeOrganization, EntityTypeCourt, EntityTypePolice, EntityTypeAgency, EntityTypeMedia:
		return NameKindOrganization
	default:
		return NameKindOther
	}
}

// Valid reports whether the entity type is part of the known vocabulary
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypePerson, EntityTypeOrganization, EntityTypeProfessional,
		EntityTypeCourt, EntityTypePolice, EntityTypeAgency, EntityTypeExpert,
		EntityTypeMedia, EntityTypeLocation, EntityTypeDocumentRef, EntityTypeOther:
		return true
	}
	return false
}

// EntityRole is the role an entity plays in the case
type EntityRole string

const (
	EntityRoleApplicant           EntityRole = "applicant"
	EntityRoleRespondent          EntityRole = "respondent"
	EntityRoleSubject             EntityRole = "subject"
	EntityRoleAdjudicator         EntityRole = "adjudicator"
	EntityRoleExpertWitness       EntityRole = "expert_witness"
	EntityRoleFactWitness         EntityRole = "fact_witness"
	EntityRoleAssessmentAuthor    EntityRole = "assessment_author"
	EntityRoleLegalRepresentative EntityRole = "legal_representative"
	EntityRoleLitigationFriend    EntityRole = "litigation_friend"
	EntityRoleMediaEntity         EntityRole = "media_entity"
	EntityRoleInvestigator        EntityRole = "investigator"
	EntityRoleUnknown             EntityRole = "unknown"
)

// Mention is a single appearance of an entity name in a source document
type Mention struct {
	ID              string     `json:"id" db:"id"`
	CaseID          string     `json:"case_id" db:"case_id"`
	DocumentID      string     `json:"document_id" db:"document_id"`
	RawText         string     `json:"raw_text" db:"raw_text"`
	EntityType      EntityType `json:"entity_type" db:"entity_type"`
	EntityRole      EntityRole `json:"entity_role" db:"entity_role"`
	IsRoleReference bool       `json:"is_role_reference" db:"is_role_reference"`
	Context         string     `json:"context,omitempty" db:"context"`
	Page            *int       `json:"page,omitempty" db:"page"`
	Date            *time.Time `json:"date,omitempty" db:"date"`
	EntityID        *string    `json:"entity_id,omitempty" db:"entity_id"`
	Fingerprint     string     `json:"fingerprint" db:"fingerprint"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// CreateMentionRequest is a single mention in an ingestion batch
type CreateMentionRequest struct {
	DocumentID      string     `json:"document_id" validate:"required,uuid"`
	RawText         string     `json:"raw_text" validate:"required"`
	EntityType      EntityType `json:"entity_type" validate:"required"`
	EntityRole      EntityRole `json:"entity_role,omitempty"`
	IsRoleReference bool       `json:"is_role_reference"`
	Context         string     `json:"context,omitempty"`
	Page            *int       `json:"page,omitempty"`
	// Date is the date the document records for this observation, when the
	// extraction pipeline could determine one
	Date *time.Time `json:"date,omitempty"`
}

// IngestMentionsRequest is a batch of mentions for one case
type IngestMentionsRequest struct {
	Mentions []CreateMentionRequest `json:"mentions" validate:"required,min=1,dive"`
}

// IngestMentionsResult reports what an ingestion batch did
type IngestMentionsResult struct {
	Stored     int `json:"stored"`
	Duplicates int `json:"duplicates"`
}

package events

import (
	"time"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

// EventType defines the type of event
type EventType string

const (
	// Linkage review events
	EventTypeLinkageProposed  EventType = "linkage.proposed"
	EventTypeLinkageConfirmed EventType = "linkage.confirmed"
	EventTypeLinkageRejected  EventType = "linkage.rejected"

	// Entity graph events
	EventTypeEntityMerged EventType = "entity.merged"

	// Resolution run events
	EventTypeScanCompleted  EventType = "resolution.scan.completed"
	EventTypeBuildCompleted EventType = "resolution.build.completed"
)

// LinkageEvent is the payload of linkage.proposed, linkage.confirmed and
// linkage.rejected events
type LinkageEvent struct {
	ProposalID string                `json:"proposal_id"`
	CaseID     string                `json:"case_id"`
	MentionAID string                `json:"mention_a_id"`
	MentionBID string                `json:"mention_b_id"`
	Confidence float64               `json:"confidence"`
	Algorithm  models.MatchAlgorithm `json:"algorithm"`
	Status     models.LinkageStatus  `json:"status"`
	ResolvedBy *string               `json:"resolved_by,omitempty"`
}

// EntityMergedEvent is emitted when two resolved entities fold into one
type EntityMergedEvent struct {
	CaseID     string `json:"case_id"`
	SurvivorID string `json:"survivor_id"`
	AbsorbedID string `json:"absorbed_id"`
}

// ScanCompletedEvent summarizes a finished match scan
type ScanCompletedEvent struct {
	CaseID           string    `json:"case_id"`
	MentionsScanned  int       `json:"mentions_scanned"`
	PairsCompared    int       `json:"pairs_compared"`
	ProposalsCreated int       `json:"proposals_created"`
	CompletedAt      time.Time `json:"completed_at"`
}

// BuildCompletedEvent summarizes a finished graph build
type BuildCompletedEvent struct {
	CaseID           string    `json:"case_id"`
	Entities         int       `json:"entities"`
	MentionsAssigned int       `json:"mentions_assigned"`
	Merges           int       `json:"merges"`
	CompletedAt      time.Time `json:"completed_at"`
}

package models

import (
	"fmt"
	"time"
)

// LinkageStatus is the review state of a linkage proposal
type LinkageStatus string

const (
	// LinkageStatusPending awaits human review
	LinkageStatusPending LinkageStatus = "pending"
	// LinkageStatusConfirmed was accepted by a reviewer; the entities merge
	LinkageStatusConfirmed LinkageStatus = "confirmed"
	// LinkageStatusRejected was declined; the pair is never proposed again
	LinkageStatusRejected LinkageStatus = "rejected"
)

// Terminal reports whether the status permits no further transitions
func (s LinkageStatus) Terminal() bool {
	return s == LinkageStatusConfirmed || s == LinkageStatusRejected
}

// MatchAlgorithm identifies which comparison produced a match
type MatchAlgorithm string

const (
	MatchAlgorithmExact       MatchAlgorithm = "exact"
	MatchAlgorithmNormalized  MatchAlgorithm = "normalized"
	MatchAlgorithmAlias       MatchAlgorithm = "alias"
	MatchAlgorithmVariant     MatchAlgorithm = "variant"
	MatchAlgorithmLevenshtein MatchAlgorithm = "levenshtein"
	MatchAlgorithmPartial     MatchAlgorithm = "partial"
	MatchAlgorithmComponent   MatchAlgorithm = "component"
)

// LinkageProposal is a candidate link between two mentions awaiting review.
// The mention pair is stored canonically with MentionAID < MentionBID so a
// pair has exactly one row regardless of comparison order.
type LinkageProposal struct {
	ID         string         `json:"id" db:"id"`
	CaseID     string         `json:"case_id" db:"case_id"`
	MentionAID string         `json:"mention_a_id" db:"mention_a_id"`
	MentionBID string         `json:"mention_b_id" db:"mention_b_id"`
	EntityAID  *string        `json:"entity_a_id,omitempty" db:"entity_a_id"`
	EntityBID  *string        `json:"entity_b_id,omitempty" db:"entity_b_id"`
	Confidence float64        `json:"confidence" db:"confidence"`
	Algorithm  MatchAlgorithm `json:"algorithm" db:"algorithm"`
	Evidence   string         `json:"evidence,omitempty" db:"evidence"`
	Status     LinkageStatus  `json:"status" db:"status"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy *string        `json:"resolved_by,omitempty" db:"resolved_by"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" db:"updated_at"`
}

// LinkageProposalView is a proposal as presented to reviewers: the stored
// record plus the confidence rendered as a percentage alongside the raw
// score
type LinkageProposalView struct {
	LinkageProposal
	ConfidencePercent string `json:"confidence_percent"`
}

// NewLinkageProposalView builds the reviewer-facing view of a proposal
func NewLinkageProposalView(proposal LinkageProposal) LinkageProposalView {
	return LinkageProposalView{
		LinkageProposal:   proposal,
		ConfidencePercent: fmt.Sprintf("%.0f%%", proposal.Confidence*100),
	}
}

// NewLinkageProposalViews builds reviewer-facing views for a listing
func NewLinkageProposalViews(proposals []LinkageProposal) []LinkageProposalView {
	views := make([]LinkageProposalView, len(proposals))
	for i, proposal := range proposals {
		views[i] = NewLinkageProposalView(proposal)
	}
	return views
}

// PairKey returns the canonical (low, high) ordering of a mention pair
func PairKey(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// ReviewProposalRequest carries the reviewer identity for a confirm/reject
type ReviewProposalRequest struct {
	ReviewedBy string `json:"reviewed_by" validate:"required"`
}

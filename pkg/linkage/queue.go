package linkage

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

// Reviewer is the subset of the manager a review session needs
type Reviewer interface {
	Confirm(ctx context.Context, caseID, proposalID, reviewedBy string) (*models.LinkageProposal, error)
	Reject(ctx context.Context, caseID, proposalID, reviewedBy string) (*models.LinkageProposal, error)
}

// Queue is an in-memory working view of a case's pending proposals for one
// review session. Mutations apply to the view immediately and are then
// committed to the store; a failed commit restores the view from its
// snapshot. A conflict (the proposal was resolved elsewhere) is not rolled
// back: the view drops the proposal, matching server truth.
type Queue struct {
	caseID   string
	reviewer Reviewer

	mu      sync.Mutex
	pending map[string]*models.LinkageProposal
}

// NewQueue builds a review queue over the given pending proposals
func NewQueue(reviewer Reviewer, caseID string, pending []models.LinkageProposal) *Queue {
	view := make(map[string]*models.LinkageProposal, len(pending))
	for i := range pending {
		if pending[i].Status == models.LinkageStatusPending {
			proposal := pending[i]
			view[proposal.ID] = &proposal
		}
	}
	return &Queue{
		caseID:   caseID,
		reviewer: reviewer,
		pending:  view,
	}
}

// Pending returns the current view, highest confidence first
func (q *Queue) Pending() []models.LinkageProposal {
	q.mu.Lock()
	defer q.mu.Unlock()

	proposals := make([]models.LinkageProposal, 0, len(q.pending))
	for _, proposal := range q.pending {
		proposals = append(proposals, *proposal)
	}
	sort.Slice(proposals, func(i, j int) bool {
		if proposals[i].Confidence != proposals[j].Confidence {
			return proposals[i].Confidence > proposals[j].Confidence
		}
		return proposals[i].ID < proposals[j].ID
	})
	return proposals
}

// Confirm optimistically removes the proposal from the view and commits the
// confirmation
func (q *Queue) Confirm(ctx context.Context, proposalID, reviewedBy string) error {
	return q.commit(ctx, proposalID, reviewedBy, q.reviewer.Confirm)
}

// Reject optimistically removes the proposal from the view and commits the
// rejection
func (q *Queue) Reject(ctx context.Context, proposalID, reviewedBy string) error {
	return q.commit(ctx, proposalID, reviewedBy, q.reviewer.Reject)
}

func (q *Queue) commit(
	ctx context.Context,
	proposalID, reviewedBy string,
	action func(ctx context.Context, caseID, proposalID, reviewedBy string) (*models.LinkageProposal, error),
) error {
	q.mu.Lock()
	snapshot, ok := q.pending[proposalID]
	if !ok {
		q.mu.Unlock()
		return httperror.NewHTTPError(http.StatusNotFound, "proposal is not in the review queue")
	}
	delete(q.pending, proposalID)
	q.mu.Unlock()

	_, err := action(ctx, q.caseID, proposalID, reviewedBy)
	if err == nil {
		return nil
	}

	if httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusConflict {
		// resolved elsewhere; the view already matches server truth
		return err
	}

	q.mu.Lock()
	q.pending[proposalID] = snapshot
	q.mu.Unlock()
	return err
}

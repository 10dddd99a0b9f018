package linkage

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

type fakeReviewer struct {
	confirms []string
	rejects  []string
	err      error
}

func (f *fakeReviewer) Confirm(ctx context.Context, caseID, proposalID, reviewedBy string) (*models.LinkageProposal, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.confirms = append(f.confirms, proposalID)
	return &models.LinkageProposal{ID: proposalID, Status: models.LinkageStatusConfirmed}, nil
}

func (f *fakeReviewer) Reject(ctx context.Context, caseID, proposalID, reviewedBy string) (*models.LinkageProposal, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.rejects = append(f.rejects, proposalID)
	return &models.LinkageProposal{ID: proposalID, Status: models.LinkageStatusRejected}, nil
}

func queueProposals() []models.LinkageProposal {
	return []models.LinkageProposal{
		{ID: "p1", CaseID: "case-1", Confidence: 0.95, Status: models.LinkageStatusPending},
		{ID: "p2", CaseID: "case-1", Confidence: 0.8, Status: models.LinkageStatusPending},
		{ID: "p3", CaseID: "case-1", Confidence: 0.5, Status: models.LinkageStatusConfirmed},
	}
}

func TestQueue_PendingOrderedByConfidence(t *testing.T) {
	q := NewQueue(&fakeReviewer{}, "case-1", queueProposals())

	pending := q.Pending()
	require.Len(t, pending, 2, "already resolved proposals never enter the view")
	assert.Equal(t, "p1", pending[0].ID)
	assert.Equal(t, "p2", pending[1].ID)
}

func TestQueue_ConfirmRemovesFromView(t *testing.T) {
	reviewer := &fakeReviewer{}
	q := NewQueue(reviewer, "case-1", queueProposals())

	require.NoError(t, q.Confirm(context.Background(), "p1", "reviewer"))
	assert.Equal(t, []string{"p1"}, reviewer.confirms)

	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "p2", pending[0].ID)
}

func TestQueue_FailedCommitRestoresView(t *testing.T) {
	reviewer := &fakeReviewer{err: errors.New("store unavailable")}
	q := NewQueue(reviewer, "case-1", queueProposals())

	err := q.Reject(context.Background(), "p2", "reviewer")
	require.Error(t, err)

	// the optimistic removal is rolled back
	pending := q.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "p2", pending[1].ID)
}

func TestQueue_ConflictDropsProposal(t *testing.T) {
	reviewer := &fakeReviewer{err: httperror.NewHTTPError(http.StatusConflict, "already resolved")}
	q := NewQueue(reviewer, "case-1", queueProposals())

	err := q.Confirm(context.Background(), "p1", "reviewer")
	require.Error(t, err)

	// server truth wins; the proposal stays out of the view
	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "p2", pending[0].ID)
}

func TestQueue_UnknownProposal(t *testing.T) {
	q := NewQueue(&fakeReviewer{}, "case-1", nil)

	err := q.Confirm(context.Background(), "nope", "reviewer")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

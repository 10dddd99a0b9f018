package handlers

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/sorrel/pkg/context"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Reviewer drives the linkage proposal review lifecycle
type Reviewer interface {
	List(ctx context.Context, caseID string, status models.LinkageStatus) ([]models.LinkageProposal, error)
	Confirm(ctx context.Context, caseID, proposalID, reviewedBy string) (*models.LinkageProposal, error)
	Reject(ctx context.Context, caseID, proposalID, reviewedBy string) (*models.LinkageProposal, error)
}

// ProposalHandler handles linkage proposal review endpoints
type ProposalHandler struct {
	reviewer Reviewer
	logger   ectologger.Logger
}

// NewProposalHandler creates a new proposal handler
func NewProposalHandler(reviewer Reviewer, logger ectologger.Logger) *ProposalHandler {
	return &ProposalHandler{
		reviewer: reviewer,
		logger:   logger,
	}
}

// Register registers proposal routes
func (h *ProposalHandler) Register(g *echo.Group) {
	g.GET("/proposals", h.List)
	g.POST("/proposals/:id/confirm", h.Confirm)
	g.POST("/proposals/:id/reject", h.Reject)
}

// List returns the case's proposals, optionally filtered by status
func (h *ProposalHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ProposalHandler.List")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := caseID(c)
	if err != nil {
		return err
	}

	status := models.LinkageStatus(c.QueryParam("status"))
	switch status {
	case "", models.LinkageStatusPending, models.LinkageStatusConfirmed, models.LinkageStatusRejected:
	default:
		return BadRequest("invalid status filter")
	}

	proposals, err := h.reviewer.List(ctx, id, status)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list proposals")
		return err
	}

	return SuccessResponse(c, models.NewLinkageProposalViews(proposals))
}

// Confirm accepts a proposal; the proposed entities merge
func (h *ProposalHandler) Confirm(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ProposalHandler.Confirm")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	return h.review(c, ctx, h.reviewer.Confirm)
}

// Reject declines a proposal; the pair is never proposed again
func (h *ProposalHandler) Reject(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ProposalHandler.Reject")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	return h.review(c, ctx, h.reviewer.Reject)
}

func (h *ProposalHandler) review(c echo.Context, ctx context.Context, resolve func(ctx context.Context, caseID, proposalID, reviewedBy string) (*models.LinkageProposal, error)) error {
	id, err := caseID(c)
	if err != nil {
		return err
	}

	proposalID := c.Param("id")
	if proposalID == "" {
		return BadRequest("proposal id is required")
	}

	var req models.ReviewProposalRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return BadRequest("invalid request body")
		}
	}

	reviewedBy := req.ReviewedBy
	if reviewedBy == "" {
		reviewedBy = appctx.GetUserID(ctx)
	}
	if reviewedBy == "" {
		return BadRequest("reviewed_by is required")
	}

	proposal, err := resolve(ctx, id, proposalID, reviewedBy)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"proposal_id": proposalID,
		}).Error("Failed to review proposal")
		return err
	}

	return c.JSON(http.StatusOK, models.NewLinkageProposalView(*proposal))
}

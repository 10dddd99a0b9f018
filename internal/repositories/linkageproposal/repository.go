package linkageproposal

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sorrel/pkg/database"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const columns = "id, case_id, mention_a_id, mention_b_id, entity_a_id, entity_b_id, confidence, algorithm, evidence, status, resolved_at, resolved_by, created_at, updated_at"

// Repository handles linkage proposal persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new linkage proposal repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch stores scan proposals. The mention pair is unique per case, so
// a pair that already has a proposal in any status is left untouched.
func (r *Repository) CreateBatch(ctx context.Context, proposals []*models.LinkageProposal) error {
	ctx, span := tracing.StartSpan(ctx, "linkageproposal.Repository.CreateBatch")
	defer span.End()

	if len(proposals) == 0 {
		return nil
	}

	sb := database.NewInsertBuilder()
	sb.InsertInto("linkage_proposals")
	sb.Cols("id", "case_id", "mention_a_id", "mention_b_id", "entity_a_id", "entity_b_id", "confidence", "algorithm", "evidence", "status", "created_at", "updated_at")

	for _, p := range proposals {
		sb.Values(p.ID, p.CaseID, p.MentionAID, p.MentionBID, p.EntityAID, p.EntityBID, p.Confidence, p.Algorithm, p.Evidence, p.Status, p.CreatedAt, p.UpdatedAt)
	}
	sb.OnConflictDoNothing()

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create linkage proposals batch")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create linkage proposals")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(proposals)}).Debug("Created linkage proposals batch")
	return nil
}

// ListPairKeys returns the canonical "low|high" mention pair keys of every
// proposal the case has, in any status
func (r *Repository) ListPairKeys(ctx context.Context, caseID string) (map[string]struct{}, error) {
	ctx, span := tracing.StartSpan(ctx, "linkageproposal.Repository.ListPairKeys")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("mention_a_id", "mention_b_id")
	sb.From("linkage_proposals")
	sb.Where(sb.Equal("case_id", caseID))

	query, args := sb.Build()
	var pairs []struct {
		MentionAID string `db:"mention_a_id"`
		MentionBID string `db:"mention_b_id"`
	}
	if err := r.db.SelectContext(ctx, &pairs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list proposal pair keys")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list proposal pairs")
	}

	keys := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		keys[p.MentionAID+"|"+p.MentionBID] = struct{}{}
	}
	return keys, nil
}

// Get retrieves a proposal by ID. Returns nil when the proposal does not
// exist.
func (r *Repository) Get(ctx context.Context, caseID string, id string) (*models.LinkageProposal, error) {
	ctx, span := tracing.StartSpan(ctx, "linkageproposal.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("linkage_proposals")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("case_id", caseID),
	)

	query, args := sb.Build()
	var proposal models.LinkageProposal
	if err := r.db.GetContext(ctx, &proposal, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get linkage proposal")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get linkage proposal")
	}

	return &proposal, nil
}

// ListByCase retrieves a case's proposals, highest confidence first. An
// empty status returns every proposal.
func (r *Repository) ListByCase(ctx context.Context, caseID string, status models.LinkageStatus) ([]models.LinkageProposal, error) {
	ctx, span := tracing.StartSpan(ctx, "linkageproposal.Repository.ListByCase")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("linkage_proposals")

	where := []string{sb.Equal("case_id", caseID)}
	if status != "" {
		where = append(where, sb.Equal("status", status))
	}
	sb.Where(where...)
	sb.OrderBy("confidence DESC", "created_at", "id")

	query, args := sb.Build()
	var proposals []models.LinkageProposal
	if err := r.db.SelectContext(ctx, &proposals, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list linkage proposals")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list linkage proposals")
	}

	return proposals, nil
}

// ResolveIfPending transitions a pending proposal to a terminal status and
// returns the updated row. Returns nil when the proposal is missing or no
// longer pending, so callers can distinguish a lost race from success.
func (r *Repository) ResolveIfPending(ctx context.Context, caseID string, id string, status models.LinkageStatus, reviewedBy string) (*models.LinkageProposal, error) {
	ctx, span := tracing.StartSpan(ctx, "linkageproposal.Repository.ResolveIfPending")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE linkage_proposals
		SET status = $1, resolved_at = $2, resolved_by = $3, updated_at = $2
		WHERE id = $4
		AND case_id = $5
		AND status = $6
		RETURNING ` + columns

	var proposal models.LinkageProposal
	if err := r.db.GetContext(ctx, &proposal, query, status, now, reviewedBy, id, caseID, models.LinkageStatusPending); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to resolve linkage proposal")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve linkage proposal")
	}

	return &proposal, nil
}

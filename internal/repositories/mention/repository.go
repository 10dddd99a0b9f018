package mention

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sorrel/pkg/database"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const columns = "id, case_id, document_id, raw_text, entity_type, entity_role, is_role_reference, context, page, date, entity_id, fingerprint, created_at"

// Repository handles mention persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new mention repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch stores a batch of mentions. Rows whose fingerprint already
// exists for the case are skipped; the result reports both counts.
func (r *Repository) CreateBatch(ctx context.Context, mentions []*models.Mention) (*models.IngestMentionsResult, error) {
	ctx, span := tracing.StartSpan(ctx, "mention.Repository.CreateBatch")
	defer span.End()

	if len(mentions) == 0 {
		return &models.IngestMentionsResult{}, nil
	}

	now := time.Now().UTC()
	sb := database.NewInsertBuilder()
	sb.InsertInto("mentions")
	sb.Cols("id", "case_id", "document_id", "raw_text", "entity_type", "entity_role", "is_role_reference", "context", "page", "date", "entity_id", "fingerprint", "created_at")

	for _, m := range mentions {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		sb.Values(m.ID, m.CaseID, m.DocumentID, m.RawText, m.EntityType, m.EntityRole, m.IsRoleReference, m.Context, m.Page, m.Date, m.EntityID, m.Fingerprint, m.CreatedAt)
	}
	sb.SQL("ON CONFLICT (case_id, fingerprint) DO NOTHING")
	sb.Returning("id")

	query, args := sb.Build()
	var inserted []string
	if err := r.db.SelectContext(ctx, &inserted, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create mentions batch")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create mentions")
	}

	result := &models.IngestMentionsResult{
		Stored:     len(inserted),
		Duplicates: len(mentions) - len(inserted),
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"stored":     result.Stored,
		"duplicates": result.Duplicates,
	}).Debug("Created mentions batch")

	return result, nil
}

// Get retrieves a mention by ID
func (r *Repository) Get(ctx context.Context, caseID string, id string) (*models.Mention, error) {
	ctx, span := tracing.StartSpan(ctx, "mention.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("mentions")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("case_id", caseID),
	)

	query, args := sb.Build()
	var mention models.Mention
	if err := r.db.GetContext(ctx, &mention, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("mention %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get mention")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get mention")
	}

	return &mention, nil
}

// ListByCase retrieves all mentions for a case
func (r *Repository) ListByCase(ctx context.Context, caseID string) ([]models.Mention, error) {
	ctx, span := tracing.StartSpan(ctx, "mention.Repository.ListByCase")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("mentions")
	sb.Where(sb.Equal("case_id", caseID))
	sb.OrderBy("created_at", "id")

	query, args := sb.Build()
	var mentions []models.Mention
	if err := r.db.SelectContext(ctx, &mentions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list mentions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list mentions")
	}

	return mentions, nil
}

// ListByDocument retrieves a document's mentions
func (r *Repository) ListByDocument(ctx context.Context, caseID string, documentID string) ([]models.Mention, error) {
	ctx, span := tracing.StartSpan(ctx, "mention.Repository.ListByDocument")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("mentions")
	sb.Where(
		sb.Equal("case_id", caseID),
		sb.Equal("document_id", documentID),
	)
	sb.OrderBy("created_at", "id")

	query, args := sb.Build()
	var mentions []models.Mention
	if err := r.db.SelectContext(ctx, &mentions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list mentions by document")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list mentions")
	}

	return mentions, nil
}

// ListByEntity retrieves the mentions assigned to a resolved entity
func (r *Repository) ListByEntity(ctx context.Context, caseID string, entityID string) ([]models.Mention, error) {
	ctx, span := tracing.StartSpan(ctx, "mention.Repository.ListByEntity")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("mentions")
	sb.Where(
		sb.Equal("case_id", caseID),
		sb.Equal("entity_id", entityID),
	)
	sb.OrderBy("created_at", "id")

	query, args := sb.Build()
	var mentions []models.Mention
	if err := r.db.SelectContext(ctx, &mentions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list mentions by entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list mentions")
	}

	return mentions, nil
}

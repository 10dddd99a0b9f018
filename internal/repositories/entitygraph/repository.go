// Package entitygraph persists the resolved entity graph of a case: golden
// records, redirects left behind by merges, aliases, and typed relationships.
package entitygraph

import (
	"context"
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

const (
	entityColumns       = "id, case_id, canonical_name, entity_type, entity_role, mention_count, first_seen, last_seen, professional_registration, notes, created_at, updated_at"
	mentionColumns      = "id, case_id, document_id, raw_text, entity_type, entity_role, is_role_reference, context, page, entity_id, fingerprint, created_at"
	aliasColumns        = "id, case_id, entity_id, name, normalized, alias_type, document_id, confidence, created_at"
	relationshipColumns = "id, case_id, source_entity_id, target_entity_id, relationship_type, evidence, document_id, confidence, created_at"
	proposalColumns     = "id, case_id, mention_a_id, mention_b_id, entity_a_id, entity_b_id, confidence, algorithm, evidence, status, resolved_at, resolved_by, created_at, updated_at"
)

// Repository handles entity graph persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new entity graph repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetEntity retrieves a resolved entity. Returns nil when the entity does
// not exist; merged-away ids are found through GetRedirect instead.
func (r *Repository) GetEntity(ctx context.Context, caseID string, entityID string) (*models.ResolvedEntity, error) {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.GetEntity")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(entityColumns)
	sb.From("resolved_entities")
	sb.Where(
		sb.Equal("id", entityID),
		sb.Equal("case_id", caseID),
	)

	query, args := sb.Build()
	var entity models.ResolvedEntity
	if err := r.db.GetContext(ctx, &entity, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get resolved entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get resolved entity")
	}

	return &entity, nil
}

// ListEntities retrieves every resolved entity of a case
func (r *Repository) ListEntities(ctx context.Context, caseID string) ([]models.ResolvedEntity, error) {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.ListEntities")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(entityColumns)
	sb.From("resolved_entities")
	sb.Where(sb.Equal("case_id", caseID))
	sb.OrderBy("mention_count DESC", "canonical_name", "id")

	query, args := sb.Build()
	var entities []models.ResolvedEntity
	if err := r.db.SelectContext(ctx, &entities, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list resolved entities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list resolved entities")
	}

	return entities, nil
}

// UpsertEntity inserts a resolved entity or refreshes its golden record
// fields in place
func (r *Repository) UpsertEntity(ctx context.Context, entity *models.ResolvedEntity) error {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.UpsertEntity")
	defer span.End()

	now := time.Now().UTC()
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now

	ib := database.NewInsertBuilder()
	ib.InsertInto("resolved_entities")
	ib.Cols("id", "case_id", "canonical_name", "entity_type", "entity_role", "mention_count", "first_seen", "last_seen", "professional_registration", "notes", "created_at", "updated_at")
	ib.Values(entity.ID, entity.CaseID, entity.CanonicalName, entity.EntityType, entity.EntityRole, entity.MentionCount, entity.FirstSeen, entity.LastSeen, entity.ProfessionalRegistration, entity.Notes, entity.CreatedAt, entity.UpdatedAt)

	ub := ib.OnConflict("id")
	ub.Set(
		ub.Assign("canonical_name", database.Excluded("canonical_name")),
		ub.Assign("entity_role", database.Excluded("entity_role")),
		ub.Assign("mention_count", database.Excluded("mention_count")),
		ub.Assign("first_seen", database.Excluded("first_seen")),
		ub.Assign("last_seen", database.Excluded("last_seen")),
		ub.Assign("professional_registration", database.Excluded("professional_registration")),
		ub.Assign("notes", database.Excluded("notes")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": entity.ID}).Error("Failed to upsert resolved entity")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert resolved entity")
	}

	return nil
}

// DeleteEntity removes a resolved entity row. Merges call this for the
// absorbed side after its dependents are repointed.
func (r *Repository) DeleteEntity(ctx context.Context, caseID string, entityID string) error {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.DeleteEntity")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("resolved_entities")
	sb.Where(
		sb.Equal("id", entityID),
		sb.Equal("case_id", caseID),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": entityID}).Error("Failed to delete resolved entity")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete resolved entity")
	}

	return nil
}

// GetRedirect retrieves the redirect left behind when an entity was
// absorbed. Returns nil when the id was never merged away.
func (r *Repository) GetRedirect(ctx context.Context, caseID string, entityID string) (*models.EntityRedirect, error) {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.GetRedirect")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("absorbed_id", "case_id", "survivor_id", "created_at")
	sb.From("entity_redirects")
	sb.Where(
		sb.Equal("absorbed_id", entityID),
		sb.Equal("case_id", caseID),
	)

	query, args := sb.Build()
	var redirect models.EntityRedirect
	if err := r.db.GetContext(ctx, &redirect, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get entity redirect")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get entity redirect")
	}

	return &redirect, nil
}

// CreateRedirect records that an absorbed entity now lives on as its
// survivor
func (r *Repository) CreateRedirect(ctx context.Context, redirect *models.EntityRedirect) error {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.CreateRedirect")
	defer span.End()

	if redirect.CreatedAt.IsZero() {
		redirect.CreatedAt = time.Now().UTC()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto("entity_redirects")
	ib.Cols("absorbed_id", "case_id", "survivor_id", "created_at")
	ib.Values(redirect.AbsorbedID, redirect.CaseID, redirect.SurvivorID, redirect.CreatedAt)

	ub := ib.OnConflict("case_id", "absorbed_id")
	ub.Set(ub.Assign("survivor_id", database.Excluded("survivor_id")))

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create entity redirect")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create entity redirect")
	}

	return nil
}

// RepointRedirects retargets every redirect pointing at fromID to toID so
// chains stay one hop deep
func (r *Repository) RepointRedirects(ctx context.Context, caseID string, fromID string, toID string) error {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.RepointRedirects")
	defer span.End()

	query := `
		UPDATE entity_redirects
		SET survivor_id = $1
		WHERE case_id = $2
		AND survivor_id = $3
	`

	if _, err := r.db.ExecContext(ctx, query, toID, caseID, fromID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to repoint entity redirects")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to repoint entity redirects")
	}

	return nil
}

// ListCaseMentions retrieves every mention of a case
func (r *Repository) ListCaseMentions(ctx context.Context, caseID string) ([]models.Mention, error) {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.ListCaseMentions")
	defer span.End()

	return r.listMentions(ctx, caseID, "")
}

// ListEntityMentions retrieves the mentions assigned to one entity
func (r *Repository) ListEntityMentions(ctx context.Context, caseID string, entityID string) ([]models.Mention, error) {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.ListEntityMentions")
	defer span.End()

	return r.listMentions(ctx, caseID, entityID)
}

func (r *Repository) listMentions(ctx context.Context, caseID string, entityID string) ([]models.Mention, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(mentionColumns)
	sb.From("mentions")

	where := []string{sb.Equal("case_id", caseID)}
	if entityID != "" {
		where = append(where, sb.Equal("entity_id", entityID))
	}
	sb.Where(where...)
	sb.OrderBy("created_at", "id")

	query, args := sb.Build()
	var mentions []models.Mention
	if err := r.db.SelectContext(ctx, &mentions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list mentions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list mentions")
	}

	return mentions, nil
}

// AssignMentions points the given mentions at a resolved entity
func (r *Repository) AssignMentions(ctx context.Context, caseID string, entityID string, mentionIDs []string) error {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.AssignMentions")
	defer span.End()

	if len(mentionIDs) == 0 {
		return nil
	}

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("mentions")
	sb.Set(sb.Assign("entity_id", entityID))
	sb.Where(
		sb.Equal("case_id", caseID),
		sb.In("id", idsToAny(mentionIDs)...),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": entityID}).Error("Failed to assign mentions")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to assign mentions")
	}

	return nil
}

// ReassignMentions moves every mention of one entity to another
func (r *Repository) ReassignMentions(ctx context.Context, caseID string, fromEntityID string, toEntityID string) error {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.ReassignMentions")
	defer span.End()

	query := `
		UPDATE mentions
		SET entity_id = $1
		WHERE case_id = $2
		AND entity_id = $3
	`

	if _, err := r.db.ExecContext(ctx, query, toEntityID, caseID, fromEntityID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to reassign mentions")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to reassign mentions")
	}

	return nil
}

// ListAliases retrieves an entity's recorded alternate names
func (r *Repository) ListAliases(ctx context.Context, caseID string, entityID string) ([]models.EntityAlias, error) {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.ListAliases")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(aliasColumns)
	sb.From("entity_aliases")
	sb.Where(
		sb.Equal("case_id", caseID),
		sb.Equal("entity_id", entityID),
	)
	sb.OrderBy("created_at", "id")

	query, args := sb.Build()
	var aliases []models.EntityAlias
	if err := r.db.SelectContext(ctx, &aliases, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list entity aliases")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list entity aliases")
	}

	return aliases, nil
}

// CreateAlias records an alternate name. The normalized form is unique per
// entity, so re-recording a known alias is a no-op.
func (r *Repository) CreateAlias(ctx context.Context, alias *models.EntityAlias) error {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.CreateAlias")
	defer span.End()

	if alias.ID == "" {
		alias.ID = uuid.New().String()
	}
	if alias.CreatedAt.IsZero() {
		alias.CreatedAt = time.Now().UTC()
	}

	sb := database.NewInsertBuilder()
	sb.InsertInto("entity_aliases")
	sb.Cols("id", "case_id", "entity_id", "name", "normalized", "alias_type", "document_id", "confidence", "created_at")
	sb.Values(alias.ID, alias.CaseID, alias.EntityID, alias.Name, alias.Normalized, alias.AliasType, alias.DocumentID, alias.Confidence, alias.CreatedAt)
	sb.OnConflictDoNothing()

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": alias.EntityID}).Error("Failed to create entity alias")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create entity alias")
	}

	return nil
}

// ReassignAliases moves every alias of one entity to another. Aliases the
// target already knows are dropped rather than duplicated.
func (r *Repository) ReassignAliases(ctx context.Context, caseID string, fromEntityID string, toEntityID string) error {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.ReassignAliases")
	defer span.End()

	// delete the would-be duplicates first so the UPDATE cannot trip the
	// (case_id, entity_id, normalized) unique constraint
	dedupe := `
		DELETE FROM entity_aliases a
		WHERE a.case_id = $1
		AND a.entity_id = $2
		AND EXISTS (
			SELECT 1 FROM entity_aliases b
			WHERE b.case_id = a.case_id
			AND b.entity_id = $3
			AND b.normalized = a.normalized
		)
	`
	if _, err := r.db.ExecContext(ctx, dedupe, caseID, fromEntityID, toEntityID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to dedupe entity aliases")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to reassign entity aliases")
	}

	query := `
		UPDATE entity_aliases
		SET entity_id = $1
		WHERE case_id = $2
		AND entity_id = $3
	`
	if _, err := r.db.ExecContext(ctx, query, toEntityID, caseID, fromEntityID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to reassign entity aliases")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to reassign entity aliases")
	}

	return nil
}

// ListRelationships retrieves the edges touching an entity, in either
// direction
func (r *Repository) ListRelationships(ctx context.Context, caseID string, entityID string) ([]models.EntityRelationship, error) {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.ListRelationships")
	defer span.End()

	query := `
		SELECT ` + relationshipColumns + `
		FROM entity_relationships
		WHERE case_id = $1
		AND (source_entity_id = $2 OR target_entity_id = $2)
		ORDER BY created_at, id
	`

	var relationships []models.EntityRelationship
	if err := r.db.SelectContext(ctx, &relationships, query, caseID, entityID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list entity relationships")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list entity relationships")
	}

	return relationships, nil
}

// UpdateRelationship rewrites an edge's endpoints, evidence and confidence
func (r *Repository) UpdateRelationship(ctx context.Context, relationship *models.EntityRelationship) error {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.UpdateRelationship")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("entity_relationships")
	sb.Set(
		sb.Assign("source_entity_id", relationship.SourceEntityID),
		sb.Assign("target_entity_id", relationship.TargetEntityID),
		sb.Assign("relationship_type", relationship.RelationshipType),
		sb.Assign("evidence", relationship.Evidence),
		sb.Assign("confidence", relationship.Confidence),
	)
	sb.Where(
		sb.Equal("id", relationship.ID),
		sb.Equal("case_id", relationship.CaseID),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update entity relationship")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update entity relationship")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "entity relationship not found")
	}

	return nil
}

// DeleteRelationship removes an edge
func (r *Repository) DeleteRelationship(ctx context.Context, caseID string, relationshipID string) error {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.DeleteRelationship")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("entity_relationships")
	sb.Where(
		sb.Equal("id", relationshipID),
		sb.Equal("case_id", caseID),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete entity relationship")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete entity relationship")
	}

	return nil
}

// CreateRelationship records a new edge between two resolved entities
func (r *Repository) CreateRelationship(ctx context.Context, relationship *models.EntityRelationship) (*models.EntityRelationship, error) {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.CreateRelationship")
	defer span.End()

	if relationship.ID == "" {
		relationship.ID = uuid.New().String()
	}
	relationship.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("entity_relationships")
	sb.Cols("id", "case_id", "source_entity_id", "target_entity_id", "relationship_type", "evidence", "document_id", "confidence", "created_at")
	sb.Values(relationship.ID, relationship.CaseID, relationship.SourceEntityID, relationship.TargetEntityID, relationship.RelationshipType, relationship.Evidence, relationship.DocumentID, relationship.Confidence, relationship.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create entity relationship")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create entity relationship")
	}

	return relationship, nil
}

// ListConfirmedProposals retrieves the confirmed linkage proposals that
// drive a graph build
func (r *Repository) ListConfirmedProposals(ctx context.Context, caseID string) ([]models.LinkageProposal, error) {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.ListConfirmedProposals")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(proposalColumns)
	sb.From("linkage_proposals")
	sb.Where(
		sb.Equal("case_id", caseID),
		sb.Equal("status", models.LinkageStatusConfirmed),
	)
	sb.OrderBy("created_at", "id")

	query, args := sb.Build()
	var proposals []models.LinkageProposal
	if err := r.db.SelectContext(ctx, &proposals, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list confirmed proposals")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list confirmed proposals")
	}

	return proposals, nil
}

// RepointProposalEntities rewrites proposal entity references after a merge
// so old proposals keep pointing at a live entity
func (r *Repository) RepointProposalEntities(ctx context.Context, caseID string, fromEntityID string, toEntityID string) error {
	ctx, span := tracing.StartSpan(ctx, "entitygraph.Repository.RepointProposalEntities")
	defer span.End()

	query := `
		UPDATE linkage_proposals
		SET entity_a_id = CASE WHEN entity_a_id = $1 THEN $2 ELSE entity_a_id END,
			entity_b_id = CASE WHEN entity_b_id = $1 THEN $2 ELSE entity_b_id END,
			updated_at = $3
		WHERE case_id = $4
		AND (entity_a_id = $1 OR entity_b_id = $1)
	`

	if _, err := r.db.ExecContext(ctx, query, fromEntityID, toEntityID, time.Now().UTC(), caseID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to repoint proposal entities")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to repoint proposal entities")
	}

	return nil
}

func idsToAny(ids []string) []any {
	result := make([]any, len(ids))
	for i, id := range ids {
		result[i] = id
	}
	return result
}

package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Projector mirrors resolved entities and their relationships into the
// graph database. Postgres stays the source of truth; the projection only
// serves network queries.
type Projector struct {
	client *Client
	logger ectologger.Logger
}

// NewProjector creates a new graph projector
func NewProjector(client *Client, logger ectologger.Logger) *Projector {
	return &Projector{
		client: client,
		logger: logger,
	}
}

// UpsertEntity creates or updates an entity node, labeled by its entity type
func (p *Projector) UpsertEntity(ctx context.Context, entity *models.ResolvedEntity) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.UpsertEntity")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_id":   entity.ID,
		"entity_type": string(entity.EntityType),
		"case_id":     entity.CaseID,
	})

	props := map[string]any{
		"id":             entity.ID,
		"case_id":        entity.CaseID,
		"canonical_name": entity.CanonicalName,
		"entity_type":    string(entity.EntityType),
		"entity_role":    string(entity.EntityRole),
		"mention_count":  entity.MentionCount,
		"first_seen":     entity.FirstSeen.UTC().Format("2006-01-02T15:04:05Z"),
		"last_seen":      entity.LastSeen.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if entity.ProfessionalRegistration != nil {
		props["professional_registration"] = *entity.ProfessionalRegistration
	}

	cypher := fmt.Sprintf(`
		MERGE (e:%s {id: $id, case_id: $case_id})
		SET e = $props
		RETURN e
	`, entityLabel(entity.EntityType))

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":      entity.ID,
			"case_id": entity.CaseID,
			"props":   props,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		log.WithError(err).Error("Failed to project entity")
		return fmt.Errorf("failed to project entity: %w", err)
	}

	log.Debug("Projected entity")
	return nil
}

// RemoveEntity deletes an entity node and its edges. Called for the
// absorbed side of a merge, so the projection never shows redirected ids.
func (p *Projector) RemoveEntity(ctx context.Context, caseID string, entityID string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.RemoveEntity")
	defer span.End()

	cypher := `
		MATCH (e {id: $id, case_id: $case_id})
		DETACH DELETE e
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":      entityID,
			"case_id": caseID,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to remove projected entity")
		return fmt.Errorf("failed to remove projected entity: %w", err)
	}

	return nil
}

// UpsertRelationship creates or updates a typed edge between two projected
// entities. Both endpoints must already be projected.
func (p *Projector) UpsertRelationship(ctx context.Context, relationship *models.EntityRelationship) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.UpsertRelationship")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"relationship_id":   relationship.ID,
		"relationship_type": string(relationship.RelationshipType),
		"case_id":           relationship.CaseID,
	})

	props := map[string]any{
		"id":         relationship.ID,
		"case_id":    relationship.CaseID,
		"evidence":   relationship.Evidence,
		"confidence": string(relationship.Confidence),
	}

	cypher := fmt.Sprintf(`
		MATCH (from {id: $from_id, case_id: $case_id})
		MATCH (to {id: $to_id, case_id: $case_id})
		MERGE (from)-[r:%s {id: $rel_id, case_id: $case_id}]->(to)
		SET r += $props
		RETURN r
	`, relationshipLabel(relationship.RelationshipType))

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"from_id": relationship.SourceEntityID,
			"to_id":   relationship.TargetEntityID,
			"rel_id":  relationship.ID,
			"case_id": relationship.CaseID,
			"props":   props,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		log.WithError(err).Error("Failed to project relationship")
		return fmt.Errorf("failed to project relationship: %w", err)
	}

	log.Debug("Projected relationship")
	return nil
}

// RemoveRelationship deletes a projected edge
func (p *Projector) RemoveRelationship(ctx context.Context, caseID string, relationshipID string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.RemoveRelationship")
	defer span.End()

	cypher := `
		MATCH ()-[r {id: $id, case_id: $case_id}]->()
		DELETE r
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":      relationshipID,
			"case_id": caseID,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to remove projected relationship")
		return fmt.Errorf("failed to remove projected relationship: %w", err)
	}

	return nil
}

// entityLabel maps an entity type to its node label, e.g. Person, Court,
// DocumentRef
func entityLabel(entityType models.EntityType) string {
	parts := strings.Split(string(entityType), "_")
	label := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		label += strings.ToUpper(part[:1]) + part[1:]
	}
	return sanitizeLabel(label, "Entity")
}

// relationshipLabel maps a relationship type to its edge label, e.g.
// PARENT_OF
func relationshipLabel(relationshipType models.RelationshipType) string {
	return sanitizeLabel(strings.ToUpper(string(relationshipType)), "ASSOCIATED_WITH")
}

// sanitizeLabel ensures a label is safe for Cypher
func sanitizeLabel(label string, fallback string) string {
	result := ""
	for _, c := range label {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			result += string(c)
		}
	}
	if result == "" {
		return fallback
	}
	return result
}

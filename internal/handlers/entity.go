package handlers

import (
	"context"
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sorrel/pkg/graph"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Resolver follows redirects from an entity id to the live entity
type Resolver interface {
	Resolve(ctx context.Context, caseID, entityID string) (*models.ResolvedEntity, error)
}

// EntityReader lists resolved entities and their attached records
type EntityReader interface {
	ListEntities(ctx context.Context, caseID string) ([]models.ResolvedEntity, error)
	ListAliases(ctx context.Context, caseID, entityID string) ([]models.EntityAlias, error)
	ListEntityMentions(ctx context.Context, caseID, entityID string) ([]models.Mention, error)
}

// NetworkReader reads relationship neighborhoods from the graph projection.
// May be nil when the projection is disabled.
type NetworkReader interface {
	Network(ctx context.Context, caseID, entityID string, depth int) (*graph.Network, error)
}

// EntityHandler handles resolved entity read endpoints
type EntityHandler struct {
	resolver Resolver
	reader   EntityReader
	network  NetworkReader
	logger   ectologger.Logger
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(resolver Resolver, reader EntityReader, network NetworkReader, logger ectologger.Logger) *EntityHandler {
	return &EntityHandler{
		resolver: resolver,
		reader:   reader,
		network:  network,
		logger:   logger,
	}
}

// Register registers entity routes
func (h *EntityHandler) Register(g *echo.Group) {
	g.GET("/entities", h.List)
	g.GET("/entities/:id", h.Get)
	g.GET("/entities/:id/network", h.Network)
}

// List returns every live resolved entity in the case
func (h *EntityHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "EntityHandler.List")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := caseID(c)
	if err != nil {
		return err
	}

	entities, err := h.reader.ListEntities(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list entities")
		return err
	}

	return SuccessResponse(c, entities)
}

// Get returns one entity with its aliases and mentions. Ids of absorbed
// entities follow their redirect to the survivor.
func (h *EntityHandler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "EntityHandler.Get")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := caseID(c)
	if err != nil {
		return err
	}

	entityID := c.Param("id")
	if entityID == "" {
		return BadRequest("entity id is required")
	}

	entity, err := h.resolver.Resolve(ctx, id, entityID)
	if err != nil {
		return err
	}

	aliases, err := h.reader.ListAliases(ctx, id, entity.ID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list entity aliases")
		return err
	}

	mentions, err := h.reader.ListEntityMentions(ctx, id, entity.ID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list entity mentions")
		return err
	}

	return SuccessResponse(c, models.EntityDetail{
		Entity:   *entity,
		Aliases:  aliases,
		Mentions: mentions,
	})
}

// Network returns the entity's relationship neighborhood from the graph
// projection
func (h *EntityHandler) Network(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "EntityHandler.Network")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := caseID(c)
	if err != nil {
		return err
	}

	entityID := c.Param("id")
	if entityID == "" {
		return BadRequest("entity id is required")
	}

	if h.network == nil {
		return BadRequest("graph projection is not enabled")
	}

	depth := 2
	if raw := c.QueryParam("depth"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return BadRequest("depth must be a positive integer")
		}
		depth = parsed
	}

	// resolve first so absorbed ids land on the projected survivor
	entity, err := h.resolver.Resolve(ctx, id, entityID)
	if err != nil {
		return err
	}

	network, err := h.network.Network(ctx, id, entity.ID, depth)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to read entity network")
		return err
	}
	if network == nil {
		// entity exists but has not been projected yet
		network = &graph.Network{Nodes: []graph.NetworkNode{}, Edges: []graph.NetworkEdge{}}
	}

	return SuccessResponse(c, network)
}

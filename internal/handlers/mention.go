package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Ingestor stores a mention batch through the fingerprint dedupe path
type Ingestor interface {
	Ingest(ctx context.Context, caseID string, requests []models.CreateMentionRequest) (*models.IngestMentionsResult, error)
}

// MentionHandler handles mention ingestion endpoints
type MentionHandler struct {
	ingestor Ingestor
	logger   ectologger.Logger
}

// NewMentionHandler creates a new mention handler
func NewMentionHandler(ingestor Ingestor, logger ectologger.Logger) *MentionHandler {
	return &MentionHandler{
		ingestor: ingestor,
		logger:   logger,
	}
}

// Register registers mention routes
func (h *MentionHandler) Register(g *echo.Group) {
	g.POST("/mentions", h.Ingest)
}

// Ingest accepts a batch of mentions for a case. Duplicates of already
// stored mentions are dropped, same as the Kafka path.
func (h *MentionHandler) Ingest(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "MentionHandler.Ingest")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := caseID(c)
	if err != nil {
		return err
	}

	var req models.IngestMentionsRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return BadRequest(err.Error())
	}

	result, err := h.ingestor.Ingest(ctx, id, req.Mentions)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to ingest mentions")
		return err
	}

	return CreatedResponse(c, result)
}

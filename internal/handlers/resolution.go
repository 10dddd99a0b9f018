package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sorrel/pkg/matching"
	"github.com/Ramsey-B/sorrel/pkg/resolution"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Scanner runs a matcher pass over a case's mentions
type Scanner interface {
	Run(ctx context.Context, caseID string) (*matching.ScanResult, error)
}

// Builder rebuilds a case's entity graph from confirmed linkages
type Builder interface {
	Build(ctx context.Context, caseID string) (*resolution.BuildResult, error)
}

// BuildEmitter publishes the build completion event. May be nil.
type BuildEmitter interface {
	BuildCompleted(ctx context.Context, caseID string, result *resolution.BuildResult)
}

// ResolutionHandler triggers matcher scans and graph rebuilds
type ResolutionHandler struct {
	scanner Scanner
	builder Builder
	emitter BuildEmitter
	logger  ectologger.Logger
}

// NewResolutionHandler creates a new resolution handler
func NewResolutionHandler(scanner Scanner, builder Builder, emitter BuildEmitter, logger ectologger.Logger) *ResolutionHandler {
	return &ResolutionHandler{
		scanner: scanner,
		builder: builder,
		emitter: emitter,
		logger:  logger,
	}
}

// Register registers resolution routes
func (h *ResolutionHandler) Register(g *echo.Group) {
	g.POST("/resolution/run", h.Run)
	g.POST("/resolution/build", h.Build)
}

// Run triggers a matcher scan over the case's mentions
func (h *ResolutionHandler) Run(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.Run")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := caseID(c)
	if err != nil {
		return err
	}

	result, err := h.scanner.Run(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to run matcher scan")
		return err
	}

	return SuccessResponse(c, result)
}

// Build rebuilds the case's entity graph from confirmed linkages
func (h *ResolutionHandler) Build(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.Build")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := caseID(c)
	if err != nil {
		return err
	}

	result, err := h.builder.Build(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to rebuild entity graph")
		return err
	}

	if h.emitter != nil {
		h.emitter.BuildCompleted(ctx, id, result)
	}

	return SuccessResponse(c, result)
}

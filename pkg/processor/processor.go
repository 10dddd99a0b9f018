// Package processor ingests mention batches: fingerprint dedupe, storage,
// and a matcher scan for each affected case. Batches arrive from the
// mentions topic or from the direct ingestion endpoint; both paths share
// Ingest.
package processor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sorrel/pkg/fingerprint"
	"github.com/Ramsey-B/sorrel/pkg/kafka"
	"github.com/Ramsey-B/sorrel/pkg/matching"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// MentionWriter stores ingested mentions, skipping known fingerprints
type MentionWriter interface {
	CreateBatch(ctx context.Context, mentions []*models.Mention) (*models.IngestMentionsResult, error)
}

// Scanner runs a matcher scan over a case
type Scanner interface {
	Run(ctx context.Context, caseID string) (*matching.ScanResult, error)
}

// Processor handles mention ingestion
type Processor struct {
	logger   ectologger.Logger
	mentions MentionWriter
	scanner  Scanner
}

// NewProcessor creates a new mention processor
func NewProcessor(logger ectologger.Logger, mentions MentionWriter, scanner Scanner) *Processor {
	return &Processor{
		logger:   logger,
		mentions: mentions,
		scanner:  scanner,
	}
}

// HandleMessage processes one mention batch from the mentions topic.
// Returning an error leaves the message uncommitted for redelivery.
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.HandleMessage")
	defer span.End()

	batch := msg.MentionBatch
	if batch == nil {
		return fmt.Errorf("message carries no mention batch")
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"case_id":  batch.CaseID,
		"source":   msg.GetSource(),
		"mentions": len(batch.Mentions),
	})

	result, err := p.Ingest(ctx, batch.CaseID, batch.Mentions)
	if err != nil {
		log.WithError(err).Error("Failed to ingest mention batch")
		return err
	}

	log.WithFields(map[string]any{
		"stored":     result.Stored,
		"duplicates": result.Duplicates,
	}).Info("Ingested mention batch")

	return nil
}

// Ingest validates, fingerprints and stores a batch of mentions for one
// case, then triggers a matcher scan when anything new was stored
func (p *Processor) Ingest(ctx context.Context, caseID string, requests []models.CreateMentionRequest) (*models.IngestMentionsResult, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.Ingest")
	defer span.End()

	if len(requests) == 0 {
		return &models.IngestMentionsResult{}, nil
	}

	now := time.Now().UTC()
	mentions := make([]*models.Mention, 0, len(requests))
	for i := range requests {
		request := &requests[i]
		if !request.EntityType.Valid() {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown entity type %q", request.EntityType))
		}
		role := request.EntityRole
		if role == "" {
			role = models.EntityRoleUnknown
		}

		mentions = append(mentions, &models.Mention{
			CaseID:          caseID,
			DocumentID:      request.DocumentID,
			RawText:         request.RawText,
			EntityType:      request.EntityType,
			EntityRole:      role,
			IsRoleReference: request.IsRoleReference,
			Context:         request.Context,
			Page:            request.Page,
			Date:            request.Date,
			Fingerprint:     fingerprint.Mention(request.DocumentID, request.RawText, request.EntityType, request.Page),
			CreatedAt:       now,
		})
	}

	result, err := p.mentions.CreateBatch(ctx, mentions)
	if err != nil {
		return nil, err
	}

	if result.Stored > 0 && p.scanner != nil {
		if _, err := p.scanner.Run(ctx, caseID); err != nil {
			// stored mentions are not lost; the next scan picks them up
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"case_id": caseID,
			}).Error("Failed to scan case after ingestion")
		}
	}

	return result, nil
}

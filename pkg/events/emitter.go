// Package events publishes resolution lifecycle events to Kafka. Emission
// failures are logged and swallowed: review and resolution outcomes are
// committed to Postgres first, and downstream consumers tolerate gaps.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sorrel/pkg/kafka"
	"github.com/Ramsey-B/sorrel/pkg/matching"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/resolution"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Emitter publishes resolution lifecycle events
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// LinkageProposed emits a linkage.proposed event
func (e *Emitter) LinkageProposed(ctx context.Context, proposal *models.LinkageProposal) {
	e.publishLinkage(ctx, EventTypeLinkageProposed, proposal)
}

// LinkageConfirmed emits a linkage.confirmed event
func (e *Emitter) LinkageConfirmed(ctx context.Context, proposal *models.LinkageProposal) {
	e.publishLinkage(ctx, EventTypeLinkageConfirmed, proposal)
}

// LinkageRejected emits a linkage.rejected event
func (e *Emitter) LinkageRejected(ctx context.Context, proposal *models.LinkageProposal) {
	e.publishLinkage(ctx, EventTypeLinkageRejected, proposal)
}

// EntityMerged emits an entity.merged event
func (e *Emitter) EntityMerged(ctx context.Context, caseID string, survivorID string, absorbedID string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EntityMerged")
	defer span.End()

	e.publish(ctx, EventTypeEntityMerged, caseID, &EntityMergedEvent{
		CaseID:     caseID,
		SurvivorID: survivorID,
		AbsorbedID: absorbedID,
	})
}

// ScanCompleted emits a resolution.scan.completed event
func (e *Emitter) ScanCompleted(ctx context.Context, caseID string, result *matching.ScanResult) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ScanCompleted")
	defer span.End()

	e.publish(ctx, EventTypeScanCompleted, caseID, &ScanCompletedEvent{
		CaseID:           caseID,
		MentionsScanned:  result.MentionsScanned,
		PairsCompared:    result.PairsCompared,
		ProposalsCreated: result.ProposalsCreated,
		CompletedAt:      time.Now().UTC(),
	})
}

// BuildCompleted emits a resolution.build.completed event
func (e *Emitter) BuildCompleted(ctx context.Context, caseID string, result *resolution.BuildResult) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.BuildCompleted")
	defer span.End()

	e.publish(ctx, EventTypeBuildCompleted, caseID, &BuildCompletedEvent{
		CaseID:           caseID,
		Entities:         result.Entities,
		MentionsAssigned: result.MentionsAssigned,
		Merges:           result.EntitiesMerged,
		CompletedAt:      time.Now().UTC(),
	})
}

func (e *Emitter) publishLinkage(ctx context.Context, eventType EventType, proposal *models.LinkageProposal) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.publishLinkage")
	defer span.End()

	e.publish(ctx, eventType, proposal.CaseID, &LinkageEvent{
		ProposalID: proposal.ID,
		CaseID:     proposal.CaseID,
		MentionAID: proposal.MentionAID,
		MentionBID: proposal.MentionBID,
		Confidence: proposal.Confidence,
		Algorithm:  proposal.Algorithm,
		Status:     proposal.Status,
		ResolvedBy: proposal.ResolvedBy,
	})
}

func (e *Emitter) publish(ctx context.Context, eventType EventType, caseID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": string(eventType),
		}).Error("Failed to marshal event payload")
		return
	}

	event := &kafka.Event{
		EventType: string(eventType),
		CaseID:    caseID,
		Data:      data,
	}

	if err := e.producer.PublishEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": string(eventType),
			"case_id":    caseID,
		}).Error("Failed to publish event")
	}
}

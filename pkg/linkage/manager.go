// Package linkage manages the review lifecycle of linkage proposals
package linkage

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Store persists linkage proposals
type Store interface {
	Get(ctx context.Context, caseID, proposalID string) (*models.LinkageProposal, error)
	ListByCase(ctx context.Context, caseID string, status models.LinkageStatus) ([]models.LinkageProposal, error)
	// ResolveIfPending transitions a pending proposal to a terminal status
	// and returns the updated row, or nil when the proposal was no longer
	// pending
	ResolveIfPending(ctx context.Context, caseID, proposalID string, status models.LinkageStatus, reviewedBy string) (*models.LinkageProposal, error)
}

// Merger folds two resolved entities into one. The survivor is chosen by
// the merger; the returned id is the entity that remains.
type Merger interface {
	Merge(ctx context.Context, caseID, entityAID, entityBID string) (string, error)
}

// TxRunner executes a function inside a database transaction carried on the
// context
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Emitter publishes review lifecycle events. May be nil.
type Emitter interface {
	LinkageConfirmed(ctx context.Context, proposal *models.LinkageProposal)
	LinkageRejected(ctx context.Context, proposal *models.LinkageProposal)
	EntityMerged(ctx context.Context, caseID, survivorID, absorbedID string)
}

// Manager drives proposal review. Transitions are pending to confirmed or
// pending to rejected; terminal states never change again. A confirm that
// races a concurrent confirm resolves idempotently.
type Manager struct {
	logger  ectologger.Logger
	store   Store
	merger  Merger
	tx      TxRunner
	emitter Emitter

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a proposal review manager
func NewManager(logger ectologger.Logger, store Store, merger Merger, tx TxRunner, emitter Emitter) *Manager {
	return &Manager{
		logger:  logger,
		store:   store,
		merger:  merger,
		tx:      tx,
		emitter: emitter,
		locks:   make(map[string]*sync.Mutex),
	}
}

// List returns a case's proposals, optionally filtered by status
func (m *Manager) List(ctx context.Context, caseID string, status models.LinkageStatus) ([]models.LinkageProposal, error) {
	return m.store.ListByCase(ctx, caseID, status)
}

// Confirm accepts a proposal and merges its entities. Confirming an already
// confirmed proposal is a no-op returning the stored record; confirming a
// rejected one is a conflict.
func (m *Manager) Confirm(ctx context.Context, caseID, proposalID, reviewedBy string) (*models.LinkageProposal, error) {
	return m.resolve(ctx, caseID, proposalID, reviewedBy, models.LinkageStatusConfirmed)
}

// Reject declines a proposal. The pair is never proposed again. Rejecting
// an already rejected proposal is a no-op; rejecting a confirmed one is a
// conflict.
func (m *Manager) Reject(ctx context.Context, caseID, proposalID, reviewedBy string) (*models.LinkageProposal, error) {
	return m.resolve(ctx, caseID, proposalID, reviewedBy, models.LinkageStatusRejected)
}

func (m *Manager) resolve(ctx context.Context, caseID, proposalID, reviewedBy string, target models.LinkageStatus) (*models.LinkageProposal, error) {
	ctx, span := tracing.StartSpan(ctx, "linkage.Manager.resolve")
	defer span.End()

	log := m.logger.WithContext(ctx).WithFields(map[string]any{
		"case_id":     caseID,
		"proposal_id": proposalID,
		"target":      string(target),
	})

	// one review mutation in flight per proposal
	lock := m.proposalLock(proposalID)
	lock.Lock()
	defer lock.Unlock()

	proposal, err := m.store.Get(ctx, caseID, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("proposal %s not found", proposalID))
	}

	if proposal.Status.Terminal() {
		if proposal.Status == target {
			log.Debug("Proposal already resolved to target status")
			return proposal, nil
		}
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("proposal %s is already %s", proposalID, proposal.Status))
	}

	var updated *models.LinkageProposal
	var survivorID string
	err = m.tx.InTx(ctx, func(ctx context.Context) error {
		updated, err = m.store.ResolveIfPending(ctx, caseID, proposalID, target, reviewedBy)
		if err != nil {
			return err
		}
		if updated == nil {
			// lost the race; the row is terminal now
			current, getErr := m.store.Get(ctx, caseID, proposalID)
			if getErr != nil {
				return getErr
			}
			if current != nil && current.Status == target {
				updated = current
				return nil
			}
			return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("proposal %s was resolved concurrently", proposalID))
		}

		if target == models.LinkageStatusConfirmed {
			survivorID, err = m.mergeEntities(ctx, updated)
			return err
		}
		return nil
	})
	if err != nil {
		// the transaction rolled the status change back; the proposal is
		// still pending
		log.WithError(err).Error("Failed to resolve proposal")
		return nil, err
	}

	m.emit(ctx, updated, target, survivorID)

	log.Info("Resolved proposal")
	return updated, nil
}

// mergeEntities folds the proposal's entities together when both sides are
// already resolved. Pairs whose mentions have no entity yet are folded by
// the next graph build instead.
func (m *Manager) mergeEntities(ctx context.Context, proposal *models.LinkageProposal) (string, error) {
	if proposal.EntityAID == nil || proposal.EntityBID == nil {
		return "", nil
	}
	if *proposal.EntityAID == *proposal.EntityBID {
		return "", nil
	}
	return m.merger.Merge(ctx, proposal.CaseID, *proposal.EntityAID, *proposal.EntityBID)
}

func (m *Manager) emit(ctx context.Context, proposal *models.LinkageProposal, target models.LinkageStatus, survivorID string) {
	if m.emitter == nil {
		return
	}
	switch target {
	case models.LinkageStatusConfirmed:
		m.emitter.LinkageConfirmed(ctx, proposal)
		if survivorID != "" {
			absorbedID := *proposal.EntityAID
			if absorbedID == survivorID {
				absorbedID = *proposal.EntityBID
			}
			m.emitter.EntityMerged(ctx, proposal.CaseID, survivorID, absorbedID)
		}
	case models.LinkageStatusRejected:
		m.emitter.LinkageRejected(ctx, proposal)
	}
}

func (m *Manager) proposalLock(proposalID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[proposalID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[proposalID] = lock
	}
	return lock
}

package matching

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/normalize"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// MentionStore provides the mentions eligible for a scan
type MentionStore interface {
	ListByCase(ctx context.Context, caseID string) ([]models.Mention, error)
}

// ProposalStore persists proposals and reports which pairs have already
// been proposed or reviewed
type ProposalStore interface {
	ListPairKeys(ctx context.Context, caseID string) (map[string]struct{}, error)
	CreateBatch(ctx context.Context, proposals []*models.LinkageProposal) error
}

// EventEmitter publishes scan lifecycle events. May be nil.
type EventEmitter interface {
	LinkageProposed(ctx context.Context, proposal *models.LinkageProposal)
	ScanCompleted(ctx context.Context, caseID string, result *ScanResult)
}

// EngineConfig contains configuration for the scan engine
type EngineConfig struct {
	MinConfidence float64 // Minimum confidence to keep a proposal (default: 0.5)
	WorkerCount   int     // Concurrent scoring workers (default: 4)
}

// DefaultConfig returns default engine configuration
func DefaultConfig() EngineConfig {
	return EngineConfig{
		MinConfidence: 0.5,
		WorkerCount:   4,
	}
}

// ScanResult summarizes one matcher run over a case
type ScanResult struct {
	CaseID           string                    `json:"case_id"`
	MentionsScanned  int                       `json:"mentions_scanned"`
	PairsCompared    int                       `json:"pairs_compared"`
	ProposalsCreated int                       `json:"proposals_created"`
	Proposals        []*models.LinkageProposal `json:"proposals,omitempty"`
}

// Engine scores all eligible mention pairs of a case and records pending
// linkage proposals for the ones above the confidence floor
type Engine struct {
	logger    ectologger.Logger
	matcher   *Matcher
	mentions  MentionStore
	proposals ProposalStore
	emitter   EventEmitter
	config    EngineConfig
}

// NewEngine creates a new scan engine
func NewEngine(
	logger ectologger.Logger,
	matcher *Matcher,
	mentions MentionStore,
	proposals ProposalStore,
	emitter EventEmitter,
	config EngineConfig,
) *Engine {
	if config.MinConfidence <= 0 {
		config.MinConfidence = DefaultConfig().MinConfidence
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}
	return &Engine{
		logger:    logger,
		matcher:   matcher,
		mentions:  mentions,
		proposals: proposals,
		emitter:   emitter,
		config:    config,
	}
}

// candidate is a mention with its normalization precomputed once per scan
type candidate struct {
	mention *models.Mention
	norm    string
}

// pairJob is one comparison handed to a scoring worker
type pairJob struct {
	a, b *candidate
}

// Run scans the case. A pair is skipped when it already has a proposal in
// any status; a rejected pair is therefore never proposed again.
func (e *Engine) Run(ctx context.Context, caseID string) (*ScanResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.Run")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"case_id": caseID,
	})

	mentions, err := e.mentions.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	reviewed, err := e.proposals.ListPairKeys(ctx, caseID)
	if err != nil {
		return nil, err
	}

	buckets := bucketCandidates(mentions, e.matcher.dict)

	result := &ScanResult{CaseID: caseID, MentionsScanned: len(mentions)}

	jobs := make(chan pairJob)
	matches := make(chan *models.LinkageProposal)

	var workers sync.WaitGroup
	for i := 0; i < e.config.WorkerCount; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for job := range jobs {
				if match := e.matcher.Score(job.a.mention, job.b.mention); match != nil && match.Confidence >= e.config.MinConfidence {
					matches <- e.buildProposal(caseID, job.a.mention, job.b.mention, match)
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for proposal := range matches {
			result.Proposals = append(result.Proposals, proposal)
		}
	}()

	pairs := 0
produce:
	for _, bucket := range buckets {
		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				a, b := bucket[i], bucket[j]
				if skipPair(a.mention, b.mention, reviewed) {
					continue
				}
				select {
				case jobs <- pairJob{a: a, b: b}:
					pairs++
				case <-ctx.Done():
					break produce
				}
			}
		}
	}
	close(jobs)
	workers.Wait()
	close(matches)
	<-done

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.PairsCompared = pairs
	result.ProposalsCreated = len(result.Proposals)

	if len(result.Proposals) > 0 {
		if err := e.proposals.CreateBatch(ctx, result.Proposals); err != nil {
			return nil, err
		}
	}

	if e.emitter != nil {
		for _, proposal := range result.Proposals {
			e.emitter.LinkageProposed(ctx, proposal)
		}
		e.emitter.ScanCompleted(ctx, caseID, result)
	}

	log.WithFields(map[string]any{
		"mentions":  result.MentionsScanned,
		"pairs":     result.PairsCompared,
		"proposals": result.ProposalsCreated,
	}).Info("Completed match scan")

	return result, nil
}

func (e *Engine) buildProposal(caseID string, a, b *models.Mention, match *Match) *models.LinkageProposal {
	lowID, highID := models.PairKey(a.ID, b.ID)
	if lowID != a.ID {
		a, b = b, a
	}
	now := time.Now().UTC()
	return &models.LinkageProposal{
		ID:         uuid.NewString(),
		CaseID:     caseID,
		MentionAID: lowID,
		MentionBID: highID,
		EntityAID:  a.EntityID,
		EntityBID:  b.EntityID,
		Confidence: match.Confidence,
		Algorithm:  match.Algorithm,
		Evidence:   match.Evidence,
		Status:     models.LinkageStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// skipPair filters pairs that were already reviewed or already resolve to
// the same entity
func skipPair(a, b *models.Mention, reviewed map[string]struct{}) bool {
	if a.EntityID != nil && b.EntityID != nil && *a.EntityID == *b.EntityID {
		return true
	}
	lowID, highID := models.PairKey(a.ID, b.ID)
	_, seen := reviewed[lowID+"|"+highID]
	return seen
}

// bucketCandidates groups scannable mentions so only plausible pairs are
// compared. Persons bucket on the surname initial, organizations on the
// initial of their dictionary canonical form; the full cartesian product is
// never enumerated.
func bucketCandidates(mentions []models.Mention, dict *normalize.Dictionary) map[string][]*candidate {
	buckets := make(map[string][]*candidate)
	for i := range mentions {
		mention := &mentions[i]
		if mention.IsRoleReference {
			continue
		}

		kind := mention.EntityType.Kind()
		norm := Normalize(mention.RawText, kind)
		if norm == "" {
			continue
		}

		var initial string
		switch kind {
		case models.NameKindPerson:
			initial = firstLetter(normalize.Surname(norm))
		case models.NameKindOrganization:
			initial = firstLetter(dict.Canonical(norm))
		default:
			initial = firstLetter(norm)
		}

		key := string(kind) + ":" + initial
		if kind == models.NameKindOther {
			// mismatched "other" types are filtered again at score time
			key = string(mention.EntityType) + ":" + initial
		}
		buckets[key] = append(buckets[key], &candidate{mention: mention, norm: norm})
	}
	return buckets
}

func firstLetter(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

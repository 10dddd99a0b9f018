package integration

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/linkage"
	"github.com/Ramsey-B/sorrel/pkg/matching"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/normalize"
	"github.com/Ramsey-B/sorrel/pkg/processor"
	"github.com/Ramsey-B/sorrel/pkg/resolution"
)

// state is the shared in-memory backend for the pipeline test. The three
// store types below expose it through the interfaces the engines expect.
type state struct {
	mentions      map[string]*models.Mention
	proposals     map[string]*models.LinkageProposal
	entities      map[string]*models.ResolvedEntity
	redirects     map[string]*models.EntityRedirect
	aliases       map[string]*models.EntityAlias
	relationships map[string]*models.EntityRelationship
}

func newState() *state {
	return &state{
		mentions:      make(map[string]*models.Mention),
		proposals:     make(map[string]*models.LinkageProposal),
		entities:      make(map[string]*models.ResolvedEntity),
		redirects:     make(map[string]*models.EntityRedirect),
		aliases:       make(map[string]*models.EntityAlias),
		relationships: make(map[string]*models.EntityRelationship),
	}
}

type mentionStore struct{ s *state }

func (m *mentionStore) CreateBatch(ctx context.Context, mentions []*models.Mention) (*models.IngestMentionsResult, error) {
	seen := make(map[string]struct{})
	for _, existing := range m.s.mentions {
		seen[existing.CaseID+"|"+existing.Fingerprint] = struct{}{}
	}

	result := &models.IngestMentionsResult{}
	for _, mention := range mentions {
		key := mention.CaseID + "|" + mention.Fingerprint
		if _, ok := seen[key]; ok {
			result.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		copied := *mention
		// the real repository assigns an id when the caller leaves it empty
		if copied.ID == "" {
			copied.ID = uuid.NewString()
		}
		m.s.mentions[copied.ID] = &copied
		result.Stored++
	}
	return result, nil
}

func (m *mentionStore) ListByCase(ctx context.Context, caseID string) ([]models.Mention, error) {
	var out []models.Mention
	for _, mention := range m.s.mentions {
		if mention.CaseID == caseID {
			out = append(out, *mention)
		}
	}
	return out, nil
}

type proposalStore struct{ s *state }

func (p *proposalStore) ListPairKeys(ctx context.Context, caseID string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	for _, proposal := range p.s.proposals {
		if proposal.CaseID == caseID {
			keys[proposal.MentionAID+"|"+proposal.MentionBID] = struct{}{}
		}
	}
	return keys, nil
}

func (p *proposalStore) CreateBatch(ctx context.Context, proposals []*models.LinkageProposal) error {
	for _, proposal := range proposals {
		copied := *proposal
		p.s.proposals[proposal.ID] = &copied
	}
	return nil
}

func (p *proposalStore) Get(ctx context.Context, caseID, proposalID string) (*models.LinkageProposal, error) {
	proposal, ok := p.s.proposals[proposalID]
	if !ok || proposal.CaseID != caseID {
		return nil, nil
	}
	copied := *proposal
	return &copied, nil
}

func (p *proposalStore) ListByCase(ctx context.Context, caseID string, status models.LinkageStatus) ([]models.LinkageProposal, error) {
	var out []models.LinkageProposal
	for _, proposal := range p.s.proposals {
		if proposal.CaseID != caseID {
			continue
		}
		if status != "" && proposal.Status != status {
			continue
		}
		out = append(out, *proposal)
	}
	return out, nil
}

func (p *proposalStore) ResolveIfPending(ctx context.Context, caseID, proposalID string, status models.LinkageStatus, reviewedBy string) (*models.LinkageProposal, error) {
	proposal, ok := p.s.proposals[proposalID]
	if !ok || proposal.CaseID != caseID || proposal.Status != models.LinkageStatusPending {
		return nil, nil
	}
	now := time.Now().UTC()
	proposal.Status = status
	proposal.ResolvedAt = &now
	proposal.ResolvedBy = &reviewedBy
	proposal.UpdatedAt = now
	copied := *proposal
	return &copied, nil
}

type graphStore struct{ s *state }

func (g *graphStore) GetEntity(ctx context.Context, caseID, entityID string) (*models.ResolvedEntity, error) {
	entity, ok := g.s.entities[entityID]
	if !ok || entity.CaseID != caseID {
		return nil, nil
	}
	copied := *entity
	return &copied, nil
}

func (g *graphStore) ListEntities(ctx context.Context, caseID string) ([]models.ResolvedEntity, error) {
	var out []models.ResolvedEntity
	for _, entity := range g.s.entities {
		if entity.CaseID == caseID {
			out = append(out, *entity)
		}
	}
	return out, nil
}

func (g *graphStore) UpsertEntity(ctx context.Context, entity *models.ResolvedEntity) error {
	copied := *entity
	g.s.entities[entity.ID] = &copied
	return nil
}

func (g *graphStore) DeleteEntity(ctx context.Context, caseID, entityID string) error {
	delete(g.s.entities, entityID)
	return nil
}

func (g *graphStore) GetRedirect(ctx context.Context, caseID, entityID string) (*models.EntityRedirect, error) {
	redirect, ok := g.s.redirects[entityID]
	if !ok {
		return nil, nil
	}
	copied := *redirect
	return &copied, nil
}

func (g *graphStore) CreateRedirect(ctx context.Context, redirect *models.EntityRedirect) error {
	copied := *redirect
	g.s.redirects[redirect.AbsorbedID] = &copied
	return nil
}

func (g *graphStore) RepointRedirects(ctx context.Context, caseID, fromID, toID string) error {
	for _, redirect := range g.s.redirects {
		if redirect.SurvivorID == fromID {
			redirect.SurvivorID = toID
		}
	}
	return nil
}

func (g *graphStore) ListCaseMentions(ctx context.Context, caseID string) ([]models.Mention, error) {
	var out []models.Mention
	for _, mention := range g.s.mentions {
		if mention.CaseID == caseID {
			out = append(out, *mention)
		}
	}
	return out, nil
}

func (g *graphStore) ListEntityMentions(ctx context.Context, caseID, entityID string) ([]models.Mention, error) {
	var out []models.Mention
	for _, mention := range g.s.mentions {
		if mention.CaseID == caseID && mention.EntityID != nil && *mention.EntityID == entityID {
			out = append(out, *mention)
		}
	}
	return out, nil
}

func (g *graphStore) AssignMentions(ctx context.Context, caseID, entityID string, mentionIDs []string) error {
	for _, id := range mentionIDs {
		if mention, ok := g.s.mentions[id]; ok {
			assigned := entityID
			mention.EntityID = &assigned
		}
	}
	return nil
}

func (g *graphStore) ReassignMentions(ctx context.Context, caseID, fromEntityID, toEntityID string) error {
	for _, mention := range g.s.mentions {
		if mention.EntityID != nil && *mention.EntityID == fromEntityID {
			assigned := toEntityID
			mention.EntityID = &assigned
		}
	}
	return nil
}

func (g *graphStore) ListAliases(ctx context.Context, caseID, entityID string) ([]models.EntityAlias, error) {
	var out []models.EntityAlias
	for _, alias := range g.s.aliases {
		if alias.CaseID == caseID && alias.EntityID == entityID {
			out = append(out, *alias)
		}
	}
	return out, nil
}

func (g *graphStore) CreateAlias(ctx context.Context, alias *models.EntityAlias) error {
	copied := *alias
	g.s.aliases[alias.ID] = &copied
	return nil
}

func (g *graphStore) ReassignAliases(ctx context.Context, caseID, fromEntityID, toEntityID string) error {
	for _, alias := range g.s.aliases {
		if alias.EntityID == fromEntityID {
			alias.EntityID = toEntityID
		}
	}
	return nil
}

func (g *graphStore) ListRelationships(ctx context.Context, caseID, entityID string) ([]models.EntityRelationship, error) {
	var out []models.EntityRelationship
	for _, relationship := range g.s.relationships {
		if relationship.CaseID == caseID && (relationship.SourceEntityID == entityID || relationship.TargetEntityID == entityID) {
			out = append(out, *relationship)
		}
	}
	return out, nil
}

func (g *graphStore) UpdateRelationship(ctx context.Context, relationship *models.EntityRelationship) error {
	copied := *relationship
	g.s.relationships[relationship.ID] = &copied
	return nil
}

func (g *graphStore) DeleteRelationship(ctx context.Context, caseID, relationshipID string) error {
	delete(g.s.relationships, relationshipID)
	return nil
}

func (g *graphStore) ListConfirmedProposals(ctx context.Context, caseID string) ([]models.LinkageProposal, error) {
	var out []models.LinkageProposal
	for _, proposal := range g.s.proposals {
		if proposal.CaseID == caseID && proposal.Status == models.LinkageStatusConfirmed {
			out = append(out, *proposal)
		}
	}
	return out, nil
}

func (g *graphStore) RepointProposalEntities(ctx context.Context, caseID, fromEntityID, toEntityID string) error {
	for _, proposal := range g.s.proposals {
		if proposal.EntityAID != nil && *proposal.EntityAID == fromEntityID {
			repointed := toEntityID
			proposal.EntityAID = &repointed
		}
		if proposal.EntityBID != nil && *proposal.EntityBID == fromEntityID {
			repointed := toEntityID
			proposal.EntityBID = &repointed
		}
	}
	return nil
}

type passTx struct{}

func (passTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// TestResolutionPipeline drives ingestion, scanning, review and graph
// building end to end against an in-memory backend.
func TestResolutionPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping pipeline test in short mode")
	}

	ctx := context.Background()
	logger := testLogger()
	st := newState()

	mentions := &mentionStore{s: st}
	proposals := &proposalStore{s: st}
	graphRecords := &graphStore{s: st}

	matcher := matching.NewMatcher(normalize.NewDictionary())
	scanner := matching.NewEngine(logger, matcher, mentions, proposals, nil, matching.DefaultConfig())
	builder := resolution.NewEngine(logger, graphRecords, passTx{}, nil)
	manager := linkage.NewManager(logger, proposals, builder, passTx{}, nil)
	ingestor := processor.NewProcessor(logger, mentions, scanner)

	const caseID = "case-hollow-oak"
	docA := "0b9af1e7-8f5a-4a4a-9d27-21a1e9a9f001"
	docB := "0b9af1e7-8f5a-4a4a-9d27-21a1e9a9f002"

	batch := []models.CreateMentionRequest{
		{DocumentID: docA, RawText: "John Smith", EntityType: models.EntityTypePerson},
		{DocumentID: docB, RawText: "John Smith", EntityType: models.EntityTypePerson},
		{DocumentID: docA, RawText: "Acme Ltd", EntityType: models.EntityTypeOrganization},
		{DocumentID: docB, RawText: "ACME Limited", EntityType: models.EntityTypeOrganization},
	}

	result, err := ingestor.Ingest(ctx, caseID, batch)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Stored)
	assert.Equal(t, 0, result.Duplicates)

	// same batch again: every mention is a known fingerprint
	result, err = ingestor.Ingest(ctx, caseID, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stored)
	assert.Equal(t, 4, result.Duplicates)

	// ingestion triggered the scan: one exact person pair, one normalized
	// organization pair
	pending, err := manager.List(ctx, caseID, models.LinkageStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	var personProposal, orgProposal models.LinkageProposal
	for _, proposal := range pending {
		switch proposal.Algorithm {
		case models.MatchAlgorithmExact:
			personProposal = proposal
		case models.MatchAlgorithmNormalized:
			orgProposal = proposal
		default:
			t.Fatalf("unexpected proposal algorithm %s", proposal.Algorithm)
		}
	}
	require.NotEmpty(t, personProposal.ID)
	require.NotEmpty(t, orgProposal.ID)
	assert.InDelta(t, 1.0, personProposal.Confidence, 0.001)
	assert.InDelta(t, 0.95, orgProposal.Confidence, 0.001)

	// confirm the person pair and build: the two John Smith mentions fold
	// onto one entity, the organization mentions stay apart while their
	// pair is unreviewed
	_, err = manager.Confirm(ctx, caseID, personProposal.ID, "analyst-7")
	require.NoError(t, err)

	build, err := builder.Build(ctx, caseID)
	require.NoError(t, err)
	assert.Equal(t, 3, build.Entities)
	assert.Equal(t, 4, build.MentionsAssigned)
	assert.Equal(t, 0, build.EntitiesMerged)

	var orgIDs []string
	for _, entity := range st.entities {
		if entity.EntityType == models.EntityTypeOrganization {
			orgIDs = append(orgIDs, entity.ID)
		}
		if entity.EntityType == models.EntityTypePerson {
			assert.Equal(t, "John Smith", entity.CanonicalName)
			assert.Equal(t, 2, entity.MentionCount)
		}
	}
	require.Len(t, orgIDs, 2)

	// confirming the organization pair after the build folds the two
	// organization entities together on the next build
	_, err = manager.Confirm(ctx, caseID, orgProposal.ID, "analyst-7")
	require.NoError(t, err)

	build, err = builder.Build(ctx, caseID)
	require.NoError(t, err)
	assert.Equal(t, 2, build.Entities)
	assert.Equal(t, 1, build.EntitiesMerged)
	assert.Len(t, st.entities, 2)

	// both original organization ids resolve to the same survivor
	first, err := builder.Resolve(ctx, caseID, orgIDs[0])
	require.NoError(t, err)
	second, err := builder.Resolve(ctx, caseID, orgIDs[1])
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, first.MentionCount)

	// a rebuild is idempotent
	build, err = builder.Build(ctx, caseID)
	require.NoError(t, err)
	assert.Equal(t, 2, build.Entities)
	assert.Equal(t, 0, build.EntitiesMerged)
	assert.Equal(t, 0, build.MentionsAssigned)
}

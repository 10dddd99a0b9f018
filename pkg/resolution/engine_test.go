package resolution

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

type memoryStore struct {
	entities      map[string]*models.ResolvedEntity
	redirects     map[string]*models.EntityRedirect
	mentions      map[string]*models.Mention
	aliases       map[string]*models.EntityAlias
	relationships map[string]*models.EntityRelationship
	proposals     map[string]*models.LinkageProposal
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		entities:      make(map[string]*models.ResolvedEntity),
		redirects:     make(map[string]*models.EntityRedirect),
		mentions:      make(map[string]*models.Mention),
		aliases:       make(map[string]*models.EntityAlias),
		relationships: make(map[string]*models.EntityRelationship),
		proposals:     make(map[string]*models.LinkageProposal),
	}
}

func (s *memoryStore) GetEntity(ctx context.Context, caseID, entityID string) (*models.ResolvedEntity, error) {
	entity, ok := s.entities[entityID]
	if !ok || entity.CaseID != caseID {
		return nil, nil
	}
	copied := *entity
	return &copied, nil
}

func (s *memoryStore) ListEntities(ctx context.Context, caseID string) ([]models.ResolvedEntity, error) {
	var out []models.ResolvedEntity
	for _, entity := range s.entities {
		if entity.CaseID == caseID {
			out = append(out, *entity)
		}
	}
	return out, nil
}

func (s *memoryStore) UpsertEntity(ctx context.Context, entity *models.ResolvedEntity) error {
	copied := *entity
	s.entities[entity.ID] = &copied
	return nil
}

func (s *memoryStore) DeleteEntity(ctx context.Context, caseID, entityID string) error {
	delete(s.entities, entityID)
	return nil
}

func (s *memoryStore) GetRedirect(ctx context.Context, caseID, entityID string) (*models.EntityRedirect, error) {
	redirect, ok := s.redirects[entityID]
	if !ok {
		return nil, nil
	}
	copied := *redirect
	return &copied, nil
}

func (s *memoryStore) CreateRedirect(ctx context.Context, redirect *models.EntityRedirect) error {
	copied := *redirect
	s.redirects[redirect.AbsorbedID] = &copied
	return nil
}

func (s *memoryStore) RepointRedirects(ctx context.Context, caseID, fromID, toID string) error {
	for _, redirect := range s.redirects {
		if redirect.SurvivorID == fromID {
			redirect.SurvivorID = toID
		}
	}
	return nil
}

func (s *memoryStore) ListCaseMentions(ctx context.Context, caseID string) ([]models.Mention, error) {
	var out []models.Mention
	for _, mention := range s.mentions {
		if mention.CaseID == caseID {
			out = append(out, *mention)
		}
	}
	return out, nil
}

func (s *memoryStore) ListEntityMentions(ctx context.Context, caseID, entityID string) ([]models.Mention, error) {
	var out []models.Mention
	for _, mention := range s.mentions {
		if mention.CaseID == caseID && mention.EntityID != nil && *mention.EntityID == entityID {
			out = append(out, *mention)
		}
	}
	return out, nil
}

func (s *memoryStore) AssignMentions(ctx context.Context, caseID, entityID string, mentionIDs []string) error {
	for _, id := range mentionIDs {
		if mention, ok := s.mentions[id]; ok {
			assigned := entityID
			mention.EntityID = &assigned
		}
	}
	return nil
}

func (s *memoryStore) ReassignMentions(ctx context.Context, caseID, fromEntityID, toEntityID string) error {
	for _, mention := range s.mentions {
		if mention.EntityID != nil && *mention.EntityID == fromEntityID {
			assigned := toEntityID
			mention.EntityID = &assigned
		}
	}
	return nil
}

func (s *memoryStore) ListAliases(ctx context.Context, caseID, entityID string) ([]models.EntityAlias, error) {
	var out []models.EntityAlias
	for _, alias := range s.aliases {
		if alias.CaseID == caseID && alias.EntityID == entityID {
			out = append(out, *alias)
		}
	}
	return out, nil
}

func (s *memoryStore) CreateAlias(ctx context.Context, alias *models.EntityAlias) error {
	copied := *alias
	s.aliases[alias.ID] = &copied
	return nil
}

func (s *memoryStore) ReassignAliases(ctx context.Context, caseID, fromEntityID, toEntityID string) error {
	for _, alias := range s.aliases {
		if alias.EntityID == fromEntityID {
			alias.EntityID = toEntityID
		}
	}
	return nil
}

func (s *memoryStore) ListRelationships(ctx context.Context, caseID, entityID string) ([]models.EntityRelationship, error) {
	var out []models.EntityRelationship
	for _, relationship := range s.relationships {
		if relationship.CaseID == caseID && (relationship.SourceEntityID == entityID || relationship.TargetEntityID == entityID) {
			out = append(out, *relationship)
		}
	}
	return out, nil
}

func (s *memoryStore) UpdateRelationship(ctx context.Context, relationship *models.EntityRelationship) error {
	copied := *relationship
	s.relationships[relationship.ID] = &copied
	return nil
}

func (s *memoryStore) DeleteRelationship(ctx context.Context, caseID, relationshipID string) error {
	delete(s.relationships, relationshipID)
	return nil
}

func (s *memoryStore) ListConfirmedProposals(ctx context.Context, caseID string) ([]models.LinkageProposal, error) {
	var out []models.LinkageProposal
	for _, proposal := range s.proposals {
		if proposal.CaseID == caseID && proposal.Status == models.LinkageStatusConfirmed {
			out = append(out, *proposal)
		}
	}
	return out, nil
}

func (s *memoryStore) RepointProposalEntities(ctx context.Context, caseID, fromEntityID, toEntityID string) error {
	for _, proposal := range s.proposals {
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

func newTestEngine(store *memoryStore) *Engine {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewEngine(logger, store, passTx{}, nil)
}

func seedEntity(store *memoryStore, id, name string, created time.Time, mentionCount int) *models.ResolvedEntity {
	entity := &models.ResolvedEntity{
		ID:            id,
		CaseID:        "case-1",
		CanonicalName: name,
		EntityType:    models.EntityTypePerson,
		EntityRole:    models.EntityRoleUnknown,
		MentionCount:  mentionCount,
		FirstSeen:     created,
		LastSeen:      created,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	store.entities[id] = entity
	return entity
}

func seedMention(store *memoryStore, id, raw, entityID string, created time.Time) {
	mention := &models.Mention{
		ID:         id,
		CaseID:     "case-1",
		RawText:    raw,
		EntityType: models.EntityTypePerson,
		EntityRole: models.EntityRoleUnknown,
		CreatedAt:  created,
	}
	if entityID != "" {
		assigned := entityID
		mention.EntityID = &assigned
	}
	store.mentions[id] = mention
}

func TestEngine_Merge(t *testing.T) {
	store := newMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	seedEntity(store, "e1", "Jane Smith", base, 2)
	seedEntity(store, "e2", "J. Smith", base.Add(time.Hour), 1)
	seedMention(store, "m1", "Jane Smith", "e1", base)
	seedMention(store, "m2", "Jane Smith", "e1", base.Add(time.Minute))
	seedMention(store, "m3", "J. Smith", "e2", base.Add(2*time.Minute))

	engine := newTestEngine(store)

	survivorID, err := engine.Merge(context.Background(), "case-1", "e1", "e2")
	require.NoError(t, err)
	assert.Equal(t, "e1", survivorID, "the older entity survives")

	// absorbed entity is gone, replaced by a redirect
	_, exists := store.entities["e2"]
	assert.False(t, exists)
	require.NotNil(t, store.redirects["e2"])
	assert.Equal(t, "e1", store.redirects["e2"].SurvivorID)

	// mentions moved and counters recomputed
	survivor := store.entities["e1"]
	assert.Equal(t, 3, survivor.MentionCount)
	assert.Equal(t, "Jane Smith", survivor.CanonicalName, "most mentioned name wins")

	// the absorbed name lives on as an alias
	aliases, _ := store.ListAliases(context.Background(), "case-1", "e1")
	require.Len(t, aliases, 1)
	assert.Equal(t, "J. Smith", aliases[0].Name)
}

func TestEngine_Merge_Idempotent(t *testing.T) {
	store := newMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedEntity(store, "e1", "Jane Smith", base, 1)
	seedEntity(store, "e2", "J. Smith", base.Add(time.Hour), 1)
	seedMention(store, "m1", "Jane Smith", "e1", base)
	seedMention(store, "m2", "J. Smith", "e2", base)

	engine := newTestEngine(store)

	first, err := engine.Merge(context.Background(), "case-1", "e1", "e2")
	require.NoError(t, err)

	// merging again, in either order, is a no-op on the same survivor
	again, err := engine.Merge(context.Background(), "case-1", "e2", "e1")
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Len(t, store.entities, 1)
}

func TestEngine_Merge_TransitiveConvergence(t *testing.T) {
	store := newMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedEntity(store, "e1", "Jane Smith", base, 1)
	seedEntity(store, "e2", "J. Smith", base.Add(time.Hour), 1)
	seedEntity(store, "e3", "Dr. Jane Smith", base.Add(2*time.Hour), 1)
	seedMention(store, "m1", "Jane Smith", "e1", base)
	seedMention(store, "m2", "J. Smith", "e2", base)
	seedMention(store, "m3", "Dr. Jane Smith", "e3", base)

	engine := newTestEngine(store)

	_, err := engine.Merge(context.Background(), "case-1", "e1", "e2")
	require.NoError(t, err)
	// e2 is already absorbed; merging through it must land on e1
	survivorID, err := engine.Merge(context.Background(), "case-1", "e2", "e3")
	require.NoError(t, err)
	assert.Equal(t, "e1", survivorID)

	assert.Len(t, store.entities, 1)
	assert.Equal(t, 3, store.entities["e1"].MentionCount)

	// every redirect terminates at the live entity
	for _, redirect := range store.redirects {
		assert.Equal(t, "e1", redirect.SurvivorID)
	}
}

// hookedStore lets a test interleave work at redirect-resolution time
type hookedStore struct {
	*memoryStore
	onGetRedirect func(entityID string)
}

func (s *hookedStore) GetRedirect(ctx context.Context, caseID, entityID string) (*models.EntityRedirect, error) {
	if s.onGetRedirect != nil {
		s.onGetRedirect(entityID)
	}
	return s.memoryStore.GetRedirect(ctx, caseID, entityID)
}

func TestEngine_Merge_CompetingMergeMovesRoot(t *testing.T) {
	store := newMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedEntity(store, "e0", "Jane Smith", base, 1)
	seedEntity(store, "e1", "J. Smith", base.Add(time.Hour), 1)
	seedEntity(store, "e3", "Dr. Jane Smith", base.Add(2*time.Hour), 1)
	seedMention(store, "m0", "Jane Smith", "e0", base)
	seedMention(store, "m1", "J. Smith", "e1", base)
	seedMention(store, "m3", "Dr. Jane Smith", "e3", base)

	hooked := &hookedStore{memoryStore: store}
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	engine := NewEngine(logger, hooked, passTx{}, nil)

	// a competing merge absorbs e1 into e0 after Merge(e1, e3) has
	// resolved its roots but before it holds the entity locks; the stale
	// root must be re-resolved, not reported as missing
	fired := false
	hooked.onGetRedirect = func(entityID string) {
		if fired || entityID != "e3" {
			return
		}
		fired = true
		_, err := engine.Merge(context.Background(), "case-1", "e1", "e0")
		require.NoError(t, err)
	}

	survivorID, err := engine.Merge(context.Background(), "case-1", "e1", "e3")
	require.NoError(t, err)
	require.True(t, fired)
	assert.Equal(t, "e0", survivorID)

	assert.Len(t, store.entities, 1)
	assert.Equal(t, 3, store.entities["e0"].MentionCount)
	for _, redirect := range store.redirects {
		assert.Equal(t, "e0", redirect.SurvivorID)
	}
}

func TestEngine_Merge_RelationshipsDeduplicated(t *testing.T) {
	store := newMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedEntity(store, "e1", "Jane Smith", base, 1)
	seedEntity(store, "e2", "J. Smith", base.Add(time.Hour), 1)
	seedEntity(store, "org", "Acme", base, 1)
	seedMention(store, "m1", "Jane Smith", "e1", base)
	seedMention(store, "m2", "J. Smith", "e2", base)

	store.relationships["r1"] = &models.EntityRelationship{
		ID: "r1", CaseID: "case-1",
		SourceEntityID: "org", TargetEntityID: "e1",
		RelationshipType: models.RelationshipEmployerOf,
		Evidence:         "payroll records",
		Confidence:       models.ConfidenceHigh,
	}
	store.relationships["r2"] = &models.EntityRelationship{
		ID: "r2", CaseID: "case-1",
		SourceEntityID: "org", TargetEntityID: "e2",
		RelationshipType: models.RelationshipEmployerOf,
		Evidence:         "staff directory",
		Confidence:       models.ConfidenceMedium,
	}
	store.relationships["r3"] = &models.EntityRelationship{
		ID: "r3", CaseID: "case-1",
		SourceEntityID: "e1", TargetEntityID: "e2",
		RelationshipType: models.RelationshipAssociatedWith,
		Confidence:       models.ConfidenceLow,
	}

	engine := newTestEngine(store)

	_, err := engine.Merge(context.Background(), "case-1", "e1", "e2")
	require.NoError(t, err)

	rels, _ := store.ListRelationships(context.Background(), "case-1", "e1")
	require.Len(t, rels, 1, "duplicate edges collapse and self edges disappear")
	assert.Equal(t, models.RelationshipEmployerOf, rels[0].RelationshipType)
	assert.Equal(t, "payroll records; staff directory", rels[0].Evidence)
}

func TestEngine_Resolve_FollowsRedirects(t *testing.T) {
	store := newMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedEntity(store, "e1", "Jane Smith", base, 1)
	seedEntity(store, "e2", "J. Smith", base.Add(time.Hour), 1)
	seedMention(store, "m1", "Jane Smith", "e1", base)
	seedMention(store, "m2", "J. Smith", "e2", base)

	engine := newTestEngine(store)
	_, err := engine.Merge(context.Background(), "case-1", "e1", "e2")
	require.NoError(t, err)

	entity, err := engine.Resolve(context.Background(), "case-1", "e2")
	require.NoError(t, err)
	assert.Equal(t, "e1", entity.ID)
}

func TestEngine_Build(t *testing.T) {
	store := newMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedMention(store, "m1", "Dr. Jane Smith", "", base)
	seedMention(store, "m2", "J. Smith", "", base.Add(time.Minute))
	seedMention(store, "m3", "Robert Walker", "", base.Add(2*time.Minute))
	store.mentions["m4"] = &models.Mention{
		ID: "m4", CaseID: "case-1",
		RawText: "the mother", EntityType: models.EntityTypePerson,
		IsRoleReference: true, CreatedAt: base,
	}
	store.proposals["p1"] = &models.LinkageProposal{
		ID: "p1", CaseID: "case-1",
		MentionAID: "m1", MentionBID: "m2",
		Status: models.LinkageStatusConfirmed,
	}

	engine := newTestEngine(store)

	result, err := engine.Build(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Entities, "linked pair plus the singleton; role references excluded")
	assert.Equal(t, 3, result.MentionsAssigned)

	// both linked mentions resolve to the same entity
	require.NotNil(t, store.mentions["m1"].EntityID)
	require.NotNil(t, store.mentions["m2"].EntityID)
	assert.Equal(t, *store.mentions["m1"].EntityID, *store.mentions["m2"].EntityID)
	assert.Nil(t, store.mentions["m4"].EntityID, "role references never resolve")
}

func TestEngine_Build_Idempotent(t *testing.T) {
	store := newMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedMention(store, "m1", "Jane Smith", "", base)
	seedMention(store, "m2", "J. Smith", "", base.Add(time.Minute))
	store.proposals["p1"] = &models.LinkageProposal{
		ID: "p1", CaseID: "case-1",
		MentionAID: "m1", MentionBID: "m2",
		Status: models.LinkageStatusConfirmed,
	}

	engine := newTestEngine(store)

	first, err := engine.Build(context.Background(), "case-1")
	require.NoError(t, err)
	entityID := *store.mentions["m1"].EntityID

	second, err := engine.Build(context.Background(), "case-1")
	require.NoError(t, err)

	assert.Equal(t, first.Entities, second.Entities)
	assert.Zero(t, second.MentionsAssigned, "nothing to assign on a rebuild")
	assert.Zero(t, second.EntitiesMerged)
	assert.Equal(t, entityID, *store.mentions["m1"].EntityID, "entity ids are stable across rebuilds")
	assert.Len(t, store.entities, 1)
}

func TestEngine_Build_DocumentDatesDriveObservation(t *testing.T) {
	store := newMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	docEarly := time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)
	docLate := time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)

	// ingestion order is the reverse of the document dates
	seedMention(store, "m1", "Jane Smith", "", base.Add(time.Hour))
	store.mentions["m1"].Date = &docEarly
	seedMention(store, "m2", "J. Smith", "", base)
	store.mentions["m2"].Date = &docLate
	store.proposals["p1"] = &models.LinkageProposal{
		ID: "p1", CaseID: "case-1",
		MentionAID: "m1", MentionBID: "m2",
		Status: models.LinkageStatusConfirmed,
	}

	engine := newTestEngine(store)

	_, err := engine.Build(context.Background(), "case-1")
	require.NoError(t, err)
	require.Len(t, store.entities, 1)

	var entity *models.ResolvedEntity
	for _, e := range store.entities {
		entity = e
	}
	assert.Equal(t, "Jane Smith", entity.CanonicalName, "the earlier document observation wins the tie")
	assert.True(t, entity.FirstSeen.Equal(docEarly), "first seen follows the document date, not ingestion time")
	assert.True(t, entity.LastSeen.Equal(docLate))
}

func TestEngine_Build_FoldsSeparatelyResolvedEntities(t *testing.T) {
	store := newMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedEntity(store, "e1", "Jane Smith", base, 1)
	seedEntity(store, "e2", "J. Smith", base.Add(time.Hour), 1)
	seedMention(store, "m1", "Jane Smith", "e1", base)
	seedMention(store, "m2", "J. Smith", "e2", base.Add(time.Minute))
	store.proposals["p1"] = &models.LinkageProposal{
		ID: "p1", CaseID: "case-1",
		MentionAID: "m1", MentionBID: "m2",
		Status: models.LinkageStatusConfirmed,
	}

	engine := newTestEngine(store)

	result, err := engine.Build(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Entities)
	assert.Equal(t, 1, result.EntitiesMerged)
	assert.Len(t, store.entities, 1, "the entity count never increases")
}

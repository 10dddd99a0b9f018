// Package resolution maintains the resolved entity graph: golden records,
// aliases, redirects and relationships, folded together by confirmed
// linkages.
package resolution

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/sorrel/pkg/matching"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/normalize"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Store persists the entity graph. Methods returning a pointer return
// nil, nil when the record does not exist.
type Store interface {
	GetEntity(ctx context.Context, caseID, entityID string) (*models.ResolvedEntity, error)
	ListEntities(ctx context.Context, caseID string) ([]models.ResolvedEntity, error)
	UpsertEntity(ctx context.Context, entity *models.ResolvedEntity) error
	DeleteEntity(ctx context.Context, caseID, entityID string) error

	GetRedirect(ctx context.Context, caseID, entityID string) (*models.EntityRedirect, error)
	CreateRedirect(ctx context.Context, redirect *models.EntityRedirect) error
	// RepointRedirects retargets every redirect pointing at fromID to toID,
	// keeping chains compressed
	RepointRedirects(ctx context.Context, caseID, fromID, toID string) error

	ListCaseMentions(ctx context.Context, caseID string) ([]models.Mention, error)
	ListEntityMentions(ctx context.Context, caseID, entityID string) ([]models.Mention, error)
	AssignMentions(ctx context.Context, caseID, entityID string, mentionIDs []string) error
	ReassignMentions(ctx context.Context, caseID, fromEntityID, toEntityID string) error

	ListAliases(ctx context.Context, caseID, entityID string) ([]models.EntityAlias, error)
	CreateAlias(ctx context.Context, alias *models.EntityAlias) error
	ReassignAliases(ctx context.Context, caseID, fromEntityID, toEntityID string) error

	ListRelationships(ctx context.Context, caseID, entityID string) ([]models.EntityRelationship, error)
	UpdateRelationship(ctx context.Context, relationship *models.EntityRelationship) error
	DeleteRelationship(ctx context.Context, caseID, relationshipID string) error

	ListConfirmedProposals(ctx context.Context, caseID string) ([]models.LinkageProposal, error)
	RepointProposalEntities(ctx context.Context, caseID, fromEntityID, toEntityID string) error
}

// TxRunner executes a function inside a database transaction carried on the
// context
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Projector mirrors graph changes to a secondary store. Projection failures
// are logged, never fatal. May be nil.
type Projector interface {
	UpsertEntity(ctx context.Context, entity *models.ResolvedEntity) error
	RemoveEntity(ctx context.Context, caseID, entityID string) error
	UpsertRelationship(ctx context.Context, relationship *models.EntityRelationship) error
	RemoveRelationship(ctx context.Context, caseID, relationshipID string) error
}

// foldChanges collects the relationship writes a merge makes inside its
// transaction, so they can be projected after commit
type foldChanges struct {
	updatedRelationships []models.EntityRelationship
	deletedRelationships []string
}

// BuildResult summarizes one full graph build
type BuildResult struct {
	CaseID           string `json:"case_id"`
	Entities         int    `json:"entities"`
	MentionsAssigned int    `json:"mentions_assigned"`
	EntitiesMerged   int    `json:"entities_merged"`
}

// entityGraphNamespace seeds the deterministic entity ids minted by Build
var entityGraphNamespace = uuid.MustParse("f3b5a1c0-4f6e-4f62-9b1a-7c2d8e94d310")

// Engine folds resolved entities together and rebuilds the case graph
type Engine struct {
	logger    ectologger.Logger
	store     Store
	tx        TxRunner
	projector Projector

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates a resolution engine
func NewEngine(logger ectologger.Logger, store Store, tx TxRunner, projector Projector) *Engine {
	return &Engine{
		logger:    logger,
		store:     store,
		tx:        tx,
		projector: projector,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Resolve follows redirects from an entity id to the live entity
func (e *Engine) Resolve(ctx context.Context, caseID, entityID string) (*models.ResolvedEntity, error) {
	ctx, span := tracing.StartSpan(ctx, "resolution.Engine.Resolve")
	defer span.End()

	rootID, err := e.resolveRoot(ctx, caseID, entityID)
	if err != nil {
		return nil, err
	}
	entity, err := e.store.GetEntity(ctx, caseID, rootID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("entity %s not found", entityID))
	}
	return entity, nil
}

// mergeAttempts bounds how often a merge re-resolves its roots when
// competing merges move them
const mergeAttempts = 8

// Merge folds two entities into one and returns the surviving id. Both ids
// are resolved through redirects first; merging an already merged pair is a
// no-op. Competing merges serialize on the per-entity locks: when a root is
// absorbed while the locks are acquired, the merge re-resolves and retries
// from the new roots. The entity count never increases.
func (e *Engine) Merge(ctx context.Context, caseID, entityAID, entityBID string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "resolution.Engine.Merge")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"case_id":  caseID,
		"entity_a": entityAID,
		"entity_b": entityBID,
	})

	for attempt := 0; attempt < mergeAttempts; attempt++ {
		rootA, err := e.resolveRoot(ctx, caseID, entityAID)
		if err != nil {
			return "", err
		}
		rootB, err := e.resolveRoot(ctx, caseID, entityBID)
		if err != nil {
			return "", err
		}
		if rootA == rootB {
			log.Debug("Entities already merged")
			return rootA, nil
		}

		survivorID, retry, err := e.mergeRoots(ctx, log, caseID, rootA, rootB)
		if err != nil {
			return "", err
		}
		if retry {
			continue
		}
		return survivorID, nil
	}

	return "", httperror.NewHTTPError(http.StatusConflict, "merge did not settle, retry")
}

// mergeRoots locks the two roots and folds them. It reports retry when a
// competing merge absorbed either root before the locks were held.
func (e *Engine) mergeRoots(ctx context.Context, log ectologger.Logger, caseID, rootA, rootB string) (string, bool, error) {
	// lock both roots in a stable order
	lowID, highID := models.PairKey(rootA, rootB)
	lockLow, lockHigh := e.entityLock(lowID), e.entityLock(highID)
	lockLow.Lock()
	defer lockLow.Unlock()
	lockHigh.Lock()
	defer lockHigh.Unlock()

	// re-resolve under the locks; stale roots mean a competing merge won
	// the race and the caller must start over from the new roots
	currentA, err := e.resolveRoot(ctx, caseID, rootA)
	if err != nil {
		return "", false, err
	}
	currentB, err := e.resolveRoot(ctx, caseID, rootB)
	if err != nil {
		return "", false, err
	}
	if currentA != rootA || currentB != rootB {
		return "", true, nil
	}

	entityA, err := e.store.GetEntity(ctx, caseID, rootA)
	if err != nil {
		return "", false, err
	}
	entityB, err := e.store.GetEntity(ctx, caseID, rootB)
	if err != nil {
		return "", false, err
	}
	if entityA == nil || entityB == nil {
		return "", false, httperror.NewHTTPError(http.StatusNotFound, "entity to merge not found")
	}

	survivor, absorbed := pickSurvivor(entityA, entityB)

	var changes foldChanges
	err = e.tx.InTx(ctx, func(ctx context.Context) error {
		return e.fold(ctx, survivor, absorbed, &changes)
	})
	if err != nil {
		return "", false, err
	}

	e.project(ctx, survivor, absorbed.ID, &changes)

	log.WithFields(map[string]any{
		"survivor": survivor.ID,
		"absorbed": absorbed.ID,
	}).Info("Merged entities")

	return survivor.ID, false, nil
}

// fold moves everything the absorbed entity owns onto the survivor and
// replaces the absorbed row with a redirect
func (e *Engine) fold(ctx context.Context, survivor, absorbed *models.ResolvedEntity, changes *foldChanges) error {
	caseID := survivor.CaseID

	if err := e.store.ReassignMentions(ctx, caseID, absorbed.ID, survivor.ID); err != nil {
		return err
	}
	if err := e.store.ReassignAliases(ctx, caseID, absorbed.ID, survivor.ID); err != nil {
		return err
	}
	if err := e.foldRelationships(ctx, survivor, absorbed, changes); err != nil {
		return err
	}
	if err := e.recordMergedNameAlias(ctx, survivor, absorbed); err != nil {
		return err
	}
	if err := e.refreshFromMentions(ctx, survivor, absorbed); err != nil {
		return err
	}

	if err := e.store.RepointProposalEntities(ctx, caseID, absorbed.ID, survivor.ID); err != nil {
		return err
	}
	if err := e.store.DeleteEntity(ctx, caseID, absorbed.ID); err != nil {
		return err
	}
	if err := e.store.CreateRedirect(ctx, &models.EntityRedirect{
		AbsorbedID: absorbed.ID,
		CaseID:     caseID,
		SurvivorID: survivor.ID,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return err
	}
	// compress any chain ending at the absorbed entity
	return e.store.RepointRedirects(ctx, caseID, absorbed.ID, survivor.ID)
}

// foldRelationships re-points the absorbed entity's edges at the survivor
// and deduplicates against the survivor's existing edges by type and
// counterpart, concatenating evidence
func (e *Engine) foldRelationships(ctx context.Context, survivor, absorbed *models.ResolvedEntity, changes *foldChanges) error {
	caseID := survivor.CaseID

	existing, err := e.store.ListRelationships(ctx, caseID, survivor.ID)
	if err != nil {
		return err
	}
	byKey := make(map[string]*models.EntityRelationship, len(existing))
	for i := range existing {
		byKey[relationshipKey(&existing[i], survivor.ID)] = &existing[i]
	}

	moved, err := e.store.ListRelationships(ctx, caseID, absorbed.ID)
	if err != nil {
		return err
	}

	for i := range moved {
		relationship := moved[i]
		if relationship.SourceEntityID == absorbed.ID {
			relationship.SourceEntityID = survivor.ID
		}
		if relationship.TargetEntityID == absorbed.ID {
			relationship.TargetEntityID = survivor.ID
		}
		if relationship.SourceEntityID == relationship.TargetEntityID {
			// the edge linked the two merged entities; it collapses away
			if err := e.store.DeleteRelationship(ctx, caseID, relationship.ID); err != nil {
				return err
			}
			changes.deletedRelationships = append(changes.deletedRelationships, relationship.ID)
			continue
		}

		key := relationshipKey(&relationship, survivor.ID)
		if duplicate, ok := byKey[key]; ok {
			duplicate.Evidence = joinEvidence(duplicate.Evidence, relationship.Evidence)
			if err := e.store.UpdateRelationship(ctx, duplicate); err != nil {
				return err
			}
			if err := e.store.DeleteRelationship(ctx, caseID, relationship.ID); err != nil {
				return err
			}
			changes.updatedRelationships = append(changes.updatedRelationships, *duplicate)
			changes.deletedRelationships = append(changes.deletedRelationships, relationship.ID)
			continue
		}

		if err := e.store.UpdateRelationship(ctx, &relationship); err != nil {
			return err
		}
		byKey[key] = &relationship
		changes.updatedRelationships = append(changes.updatedRelationships, relationship)
	}

	return nil
}

// recordMergedNameAlias keeps the absorbed canonical name reachable as an
// alias of the survivor
func (e *Engine) recordMergedNameAlias(ctx context.Context, survivor, absorbed *models.ResolvedEntity) error {
	if absorbed.CanonicalName == survivor.CanonicalName {
		return nil
	}

	kind := survivor.EntityType.Kind()
	normalized := normalizeFor(absorbed.CanonicalName, kind)
	if normalized == normalizeFor(survivor.CanonicalName, kind) {
		return nil
	}

	aliases, err := e.store.ListAliases(ctx, survivor.CaseID, survivor.ID)
	if err != nil {
		return err
	}
	for _, alias := range aliases {
		if alias.Normalized == normalized {
			return nil
		}
	}

	return e.store.CreateAlias(ctx, &models.EntityAlias{
		ID:         uuid.NewString(),
		CaseID:     survivor.CaseID,
		EntityID:   survivor.ID,
		Name:       absorbed.CanonicalName,
		Normalized: normalized,
		AliasType:  classifyAlias(kind, normalized, normalizeFor(survivor.CanonicalName, kind)),
		Confidence: models.ConfidenceHigh,
		CreatedAt:  time.Now().UTC(),
	})
}

// refreshFromMentions re-elects the canonical name and recomputes the
// survivor's counters from its mentions, then persists the row
func (e *Engine) refreshFromMentions(ctx context.Context, survivor, absorbed *models.ResolvedEntity) error {
	mentions, err := e.store.ListEntityMentions(ctx, survivor.CaseID, survivor.ID)
	if err != nil {
		return err
	}

	if name := electCanonicalName(mentions); name != "" {
		survivor.CanonicalName = name
	}
	survivor.MentionCount = len(mentions)
	if first, last, ok := mentionBounds(mentions); ok {
		survivor.FirstSeen = first
		survivor.LastSeen = last
	}
	if survivor.EntityRole == models.EntityRoleUnknown && absorbed.EntityRole != models.EntityRoleUnknown {
		survivor.EntityRole = absorbed.EntityRole
	}
	if survivor.ProfessionalRegistration == nil {
		survivor.ProfessionalRegistration = absorbed.ProfessionalRegistration
	}
	survivor.UpdatedAt = time.Now().UTC()

	return e.store.UpsertEntity(ctx, survivor)
}

// Build recomputes the full case graph from mentions and confirmed
// linkages. The result is deterministic: running it again with no new
// inputs changes nothing.
func (e *Engine) Build(ctx context.Context, caseID string) (*BuildResult, error) {
	ctx, span := tracing.StartSpan(ctx, "resolution.Engine.Build")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"case_id": caseID,
	})

	mentions, err := e.store.ListCaseMentions(ctx, caseID)
	if err != nil {
		return nil, err
	}
	confirmed, err := e.store.ListConfirmedProposals(ctx, caseID)
	if err != nil {
		return nil, err
	}

	components := connectedComponents(mentions, confirmed)

	result := &BuildResult{CaseID: caseID}

	for _, component := range components {
		merged, assignErr := e.buildComponent(ctx, caseID, component, result)
		if assignErr != nil {
			return nil, assignErr
		}
		result.EntitiesMerged += merged
	}
	result.Entities = len(components)

	log.WithFields(map[string]any{
		"entities": result.Entities,
		"assigned": result.MentionsAssigned,
		"merged":   result.EntitiesMerged,
	}).Info("Rebuilt entity graph")

	return result, nil
}

// buildComponent resolves one connected component of mentions onto a single
// entity, creating it deterministically when no member is resolved yet
func (e *Engine) buildComponent(ctx context.Context, caseID string, component []*models.Mention, result *BuildResult) (int, error) {
	// existing entities the members already resolve to
	existingIDs := make([]string, 0, 1)
	seen := make(map[string]struct{})
	for _, mention := range component {
		if mention.EntityID == nil {
			continue
		}
		rootID, err := e.resolveRoot(ctx, caseID, *mention.EntityID)
		if err != nil {
			return 0, err
		}
		if _, ok := seen[rootID]; !ok {
			seen[rootID] = struct{}{}
			existingIDs = append(existingIDs, rootID)
		}
	}
	sort.Strings(existingIDs)

	merges := 0
	var entityID string
	switch len(existingIDs) {
	case 0:
		created, err := e.mintEntity(ctx, caseID, component)
		if err != nil {
			return 0, err
		}
		entityID = created
	case 1:
		entityID = existingIDs[0]
	default:
		// confirmed linkages span entities that were resolved separately;
		// fold them together
		entityID = existingIDs[0]
		for _, otherID := range existingIDs[1:] {
			survivorID, err := e.Merge(ctx, caseID, entityID, otherID)
			if err != nil {
				return 0, err
			}
			entityID = survivorID
			merges++
		}
	}

	assign := make([]string, 0, len(component))
	for _, mention := range component {
		if mention.EntityID == nil || *mention.EntityID != entityID {
			assign = append(assign, mention.ID)
		}
	}
	if len(assign) > 0 {
		if err := e.store.AssignMentions(ctx, caseID, entityID, assign); err != nil {
			return 0, err
		}
		result.MentionsAssigned += len(assign)
	}

	// refresh counters and canonical name from the final membership
	entity, err := e.store.GetEntity(ctx, caseID, entityID)
	if err != nil {
		return 0, err
	}
	if entity != nil {
		if err := e.refreshFromMentions(ctx, entity, entity); err != nil {
			return 0, err
		}
		e.project(ctx, entity, "", nil)
	}

	return merges, nil
}

// mintEntity creates a new resolved entity for a component. The id is
// derived from the case and the smallest member mention id, so rebuilding
// produces the same entity.
func (e *Engine) mintEntity(ctx context.Context, caseID string, component []*models.Mention) (string, error) {
	anchor := component[0]
	for _, mention := range component[1:] {
		if mention.ID < anchor.ID {
			anchor = mention
		}
	}

	id := uuid.NewSHA1(entityGraphNamespace, []byte(caseID+":"+anchor.ID)).String()

	name := electCanonicalName(mentionValues(component))
	if name == "" {
		name = anchor.RawText
	}

	first, last, _ := mentionBounds(mentionValues(component))
	entity := &models.ResolvedEntity{
		ID:            id,
		CaseID:        caseID,
		CanonicalName: name,
		EntityType:    anchor.EntityType,
		EntityRole:    componentRole(component),
		MentionCount:  len(component),
		FirstSeen:     first,
		LastSeen:      last,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	if err := e.store.UpsertEntity(ctx, entity); err != nil {
		return "", err
	}
	return id, nil
}

func (e *Engine) resolveRoot(ctx context.Context, caseID, entityID string) (string, error) {
	current := entityID
	for i := 0; i < 32; i++ {
		redirect, err := e.store.GetRedirect(ctx, caseID, current)
		if err != nil {
			return "", err
		}
		if redirect == nil {
			return current, nil
		}
		current = redirect.SurvivorID
	}
	return "", fmt.Errorf("redirect chain from entity %s does not terminate", entityID)
}

func (e *Engine) project(ctx context.Context, survivor *models.ResolvedEntity, removedID string, changes *foldChanges) {
	if e.projector == nil {
		return
	}
	if err := e.projector.UpsertEntity(ctx, survivor); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": survivor.ID}).Warn("Failed to project entity")
	}
	if removedID != "" {
		if err := e.projector.RemoveEntity(ctx, survivor.CaseID, removedID); err != nil {
			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": removedID}).Warn("Failed to remove projected entity")
		}
	}
	if changes == nil {
		return
	}
	for _, relationshipID := range changes.deletedRelationships {
		if err := e.projector.RemoveRelationship(ctx, survivor.CaseID, relationshipID); err != nil {
			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"relationship_id": relationshipID}).Warn("Failed to remove projected relationship")
		}
	}
	for i := range changes.updatedRelationships {
		if err := e.projector.UpsertRelationship(ctx, &changes.updatedRelationships[i]); err != nil {
			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"relationship_id": changes.updatedRelationships[i].ID}).Warn("Failed to project relationship")
		}
	}
}

func (e *Engine) entityLock(entityID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[entityID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[entityID] = lock
	}
	return lock
}

// pickSurvivor prefers the older entity, with the smaller id breaking ties
func pickSurvivor(a, b *models.ResolvedEntity) (survivor, absorbed *models.ResolvedEntity) {
	if a.CreatedAt.Before(b.CreatedAt) {
		return a, b
	}
	if b.CreatedAt.Before(a.CreatedAt) {
		return b, a
	}
	if a.ID < b.ID {
		return a, b
	}
	return b, a
}

// observedAt is when a mention was observed: the document date when the
// extraction pipeline recorded one, the ingestion time otherwise
func observedAt(mention *models.Mention) time.Time {
	if mention.Date != nil {
		return *mention.Date
	}
	return mention.CreatedAt
}

// electCanonicalName picks the most mentioned raw text; ties fall to the
// earliest observation, then lexical order
func electCanonicalName(mentions []models.Mention) string {
	if len(mentions) == 0 {
		return ""
	}

	type vote struct {
		count int
		first time.Time
	}
	votes := make(map[string]*vote)
	for i := range mentions {
		observed := observedAt(&mentions[i])
		v, ok := votes[mentions[i].RawText]
		if !ok {
			votes[mentions[i].RawText] = &vote{count: 1, first: observed}
			continue
		}
		v.count++
		if observed.Before(v.first) {
			v.first = observed
		}
	}

	var winner string
	var best *vote
	for name, v := range votes {
		switch {
		case best == nil,
			v.count > best.count,
			v.count == best.count && v.first.Before(best.first),
			v.count == best.count && v.first.Equal(best.first) && name < winner:
			winner, best = name, v
		}
	}
	return winner
}

func mentionBounds(mentions []models.Mention) (first, last time.Time, ok bool) {
	for i := range mentions {
		observed := observedAt(&mentions[i])
		if !ok {
			first, last, ok = observed, observed, true
			continue
		}
		if observed.Before(first) {
			first = observed
		}
		if observed.After(last) {
			last = observed
		}
	}
	return first, last, ok
}

func componentRole(component []*models.Mention) models.EntityRole {
	for _, mention := range component {
		if mention.EntityRole != "" && mention.EntityRole != models.EntityRoleUnknown {
			return mention.EntityRole
		}
	}
	return models.EntityRoleUnknown
}

func mentionValues(component []*models.Mention) []models.Mention {
	out := make([]models.Mention, len(component))
	for i, mention := range component {
		out[i] = *mention
	}
	return out
}

// connectedComponents groups scannable mentions by the confirmed linkages
// between them; unlinked mentions form singleton components
func connectedComponents(mentions []models.Mention, confirmed []models.LinkageProposal) [][]*models.Mention {
	byID := make(map[string]*models.Mention, len(mentions))
	order := make([]string, 0, len(mentions))
	for i := range mentions {
		if mentions[i].IsRoleReference {
			continue
		}
		byID[mentions[i].ID] = &mentions[i]
		order = append(order, mentions[i].ID)
	}
	sort.Strings(order)

	parent := make(map[string]string, len(byID))
	for id := range byID {
		parent[id] = id
	}
	var find func(string) string
	find = func(id string) string {
		if parent[id] != id {
			parent[id] = find(parent[id])
		}
		return parent[id]
	}
	union := func(a, b string) {
		rootA, rootB := find(a), find(b)
		if rootA == rootB {
			return
		}
		// smaller root wins so grouping is order independent
		if rootB < rootA {
			rootA, rootB = rootB, rootA
		}
		parent[rootB] = rootA
	}

	for _, proposal := range confirmed {
		if _, okA := byID[proposal.MentionAID]; !okA {
			continue
		}
		if _, okB := byID[proposal.MentionBID]; !okB {
			continue
		}
		union(proposal.MentionAID, proposal.MentionBID)
	}

	grouped := make(map[string][]*models.Mention)
	roots := make([]string, 0)
	for _, id := range order {
		root := find(id)
		if _, ok := grouped[root]; !ok {
			roots = append(roots, root)
		}
		grouped[root] = append(grouped[root], byID[id])
	}
	sort.Strings(roots)

	components := make([][]*models.Mention, 0, len(roots))
	for _, root := range roots {
		components = append(components, grouped[root])
	}
	return components
}

func relationshipKey(relationship *models.EntityRelationship, selfID string) string {
	other := relationship.TargetEntityID
	direction := "out"
	if relationship.TargetEntityID == selfID {
		other = relationship.SourceEntityID
		direction = "in"
	}
	return string(relationship.RelationshipType) + "|" + direction + "|" + other
}

func joinEvidence(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "" || a == b:
		return a
	default:
		return a + "; " + b
	}
}

func normalizeFor(name string, kind models.NameKind) string {
	switch kind {
	case models.NameKindPerson:
		return normalize.Person(name)
	case models.NameKindOrganization:
		return normalize.Organization(name)
	default:
		return normalize.Plain(name)
	}
}

// classifyAlias picks the alias type for a name preserved by a merge
func classifyAlias(kind models.NameKind, aliasNorm, canonicalNorm string) models.AliasType {
	if kind == models.NameKindOrganization && len(aliasNorm) < len(canonicalNorm) && len(aliasNorm) <= 6 {
		return models.AliasTypeAbbreviation
	}
	if matching.NewScorer().LevenshteinDistance(aliasNorm, canonicalNorm) <= 2 {
		return models.AliasTypeMisspelling
	}
	return models.AliasTypeNickname
}

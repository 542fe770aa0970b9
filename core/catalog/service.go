package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound    = errors.New("catalog entry not found")
	ErrOrgNotFound = errors.New("organization not found")
	ErrNameExists  = errors.New("an entry with this name already exists in this scope")
	ErrCodeExists  = errors.New("an entry with this code already exists")
	ErrNotOwner    = errors.New("organization does not own this entry")
)

// RemovalBlockedError is returned by RemoveOrDelete when active records still
// reference the entry at commit time.
type RemovalBlockedError struct {
	Kind       Kind
	UsageCount int
}

func (e *RemovalBlockedError) Error() string {
	return blockedReason(e.Kind, e.UsageCount)
}

func blockedReason(kind Kind, count int) string {
	return fmt.Sprintf("cannot delete this %s: %d active record(s) still reference it", kind.Label(), count)
}

type (
	Repository interface {
		// GetEntity returns the entity with the given id, soft-deleted ones included.
		GetEntity(ctx context.Context, id int, exec ...core.DBExecutor) (Entity, error)
		// QueryVisibleEntities returns the union of the organization's enabled
		// entities and the entities it owns (soft-deleted owned ones included),
		// in a deterministic order.
		QueryVisibleEntities(ctx context.Context, orgID int, exec ...core.DBExecutor) ([]Entity, error)
		// CheckUniqueness checks `ent`'s code against non-deleted entities of the
		// same kind and owner scope, and its name against non-deleted entities of
		// the same kind and placement scope (branch if set, else owner
		// organization, else global). Comparisons are case-insensitive.
		// Returns ErrCodeExists or ErrNameExists on conflict.
		CheckUniqueness(ctx context.Context, ent Entity, excludedIDs []int, exec ...core.DBExecutor) error
		CreateEntity(ctx context.Context, ent Entity, exec ...core.DBExecutor) (Entity, error)
		UpdateEntity(ctx context.Context, ent Entity, exec ...core.DBExecutor) (Entity, error)
		SetEntityDeleted(ctx context.Context, id int, deleted bool, exec ...core.DBExecutor) error
		OrganizationExists(ctx context.Context, orgID int, exec ...core.DBExecutor) (bool, error)
		// AddEnabledEntity makes the entity a member of the organization's
		// enabled set; adding an id already present is a no-op.
		AddEnabledEntity(ctx context.Context, orgID, entityID int, exec ...core.DBExecutor) error
		// RemoveEnabledEntity removes the entity from the organization's enabled
		// set; removing an absent id is a no-op.
		RemoveEnabledEntity(ctx context.Context, orgID, entityID int, exec ...core.DBExecutor) error
		// RemoveEnabledEntityForAll removes the entity from every organization's
		// enabled set.
		RemoveEnabledEntityForAll(ctx context.Context, entityID int, exec ...core.DBExecutor) error
		EntityEnabled(ctx context.Context, orgID, entityID int, exec ...core.DBExecutor) (bool, error)
		// CountActiveUsage counts active operational records referencing the
		// entity (e.g. staff assigned to a department).
		CountActiveUsage(ctx context.Context, kind Kind, entityID int, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		ResolveVisible(ctx context.Context, orgID int) ([]Entity, error)
		// Visible reports whether the entity of the given kind is visible to
		// the organization (owned or enabled); ErrNotFound otherwise.
		Visible(ctx context.Context, orgID int, kind Kind, entityID int) error
		GetByID(ctx context.Context, id int) (Entity, error)
		Create(ctx context.Context, ne NewEntity) (Entity, error)
		Update(ctx context.Context, id int, ue UpdateEntity, actorOrg *int) (Entity, error)
		Restore(ctx context.Context, id int, actorOrg *int) (Entity, error)
		Enable(ctx context.Context, entityID, orgID int) error
		ClassifyRemoval(ctx context.Context, entityID, orgID int) (RemovalPlan, error)
		RemoveOrDelete(ctx context.Context, entityID, orgID int) (RemovalResult, error)
	}

	service struct {
		db   core.DB
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository) Service {
	return &service{db: db, repo: repo}
}

// begin starts a transaction on the backing DB. A nil DB (in-memory repos,
// which do their own locking) yields a nil transactor; repo calls then run
// against the repo's default executor.
func (svc *service) begin(ctx context.Context) (core.DBTransactor, error) {
	if svc.db == nil {
		return nil, nil
	}
	tx, err := svc.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	return tx, nil
}

func asExec(tx core.DBTransactor) []core.DBExecutor {
	if tx == nil {
		return nil
	}
	return []core.DBExecutor{tx}
}

func commit(tx core.DBTransactor) error {
	if tx == nil {
		return nil
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func rollback(tx core.DBTransactor) {
	if tx != nil {
		_ = tx.Rollback()
	}
}

func (svc *service) ResolveVisible(ctx context.Context, orgID int) ([]Entity, error) {
	ok, err := svc.repo.OrganizationExists(ctx, orgID)
	if err != nil {
		return nil, errors.Wrap(err, "checking organization")
	}
	if !ok {
		return nil, ErrOrgNotFound
	}
	return svc.repo.QueryVisibleEntities(ctx, orgID)
}

func (svc *service) Visible(ctx context.Context, orgID int, kind Kind, entityID int) error {
	ent, err := svc.repo.GetEntity(ctx, entityID)
	if err != nil {
		return err
	}
	if ent.IsDeleted || ent.Kind != kind {
		return ErrNotFound
	}
	if ent.OwnedBy(orgID) {
		return nil
	}
	enabled, err := svc.repo.EntityEnabled(ctx, orgID, entityID)
	if err != nil {
		return errors.Wrap(err, "checking enabled set")
	}
	if !enabled {
		return ErrNotFound
	}
	return nil
}

func (svc *service) GetByID(ctx context.Context, id int) (Entity, error) {
	return svc.repo.GetEntity(ctx, id)
}

func (svc *service) Create(ctx context.Context, ne NewEntity) (Entity, error) {
	if err := ne.Validate(); err != nil {
		return Entity{}, err
	}

	now := time.Now().UTC()
	ent := Entity{
		Kind:                ne.Kind,
		Name:                ne.Name,
		Code:                ne.Code,
		Description:         ne.Description,
		OwnerOrganizationID: ne.OwnerOrganizationID,
		BranchID:            ne.BranchID,
		IsPrivate:           ne.OwnerOrganizationID != nil,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if ent.OwnerOrganizationID != nil {
		ok, err := svc.repo.OrganizationExists(ctx, *ent.OwnerOrganizationID)
		if err != nil {
			return Entity{}, errors.Wrap(err, "checking owner organization")
		}
		if !ok {
			return Entity{}, ErrOrgNotFound
		}
	}

	// the insert and the owner enabled-set append must commit together so the
	// entry is never visible-but-unenabled under concurrent readers
	tx, err := svc.begin(ctx)
	if err != nil {
		return Entity{}, err
	}
	ex := asExec(tx)

	if err := svc.repo.CheckUniqueness(ctx, ent, nil, ex...); err != nil {
		rollback(tx)
		return Entity{}, err
	}
	created, err := svc.repo.CreateEntity(ctx, ent, ex...)
	if err != nil {
		rollback(tx)
		return Entity{}, errors.Wrap(err, "creating catalog entry")
	}
	if created.OwnerOrganizationID != nil {
		if err := svc.repo.AddEnabledEntity(ctx, *created.OwnerOrganizationID, created.ID, ex...); err != nil {
			rollback(tx)
			return Entity{}, errors.Wrap(err, "enabling catalog entry for owner")
		}
	}
	if err := commit(tx); err != nil {
		return Entity{}, err
	}
	return created, nil
}

// mutableBy gates name/code/description mutations: private entries may only
// be touched by their owner organization; global entries only by platform
// admins (nil actorOrg).
func mutableBy(ent Entity, actorOrg *int) error {
	if actorOrg == nil {
		return nil
	}
	if !ent.OwnedBy(*actorOrg) {
		return ErrNotOwner
	}
	return nil
}

func (svc *service) Update(ctx context.Context, id int, ue UpdateEntity, actorOrg *int) (Entity, error) {
	if err := ue.Validate(); err != nil {
		return Entity{}, err
	}

	ent, err := svc.repo.GetEntity(ctx, id)
	if err != nil {
		return Entity{}, err
	}
	if ent.IsDeleted {
		return Entity{}, ErrNotFound
	}
	if err := mutableBy(ent, actorOrg); err != nil {
		return Entity{}, err
	}

	if ue.Name != "" {
		ent.Name = ue.Name
	}
	if ue.Code != "" {
		ent.Code = ue.Code
	}
	if ue.Description != "" {
		ent.Description = ue.Description
	}
	ent.UpdatedAt = time.Now().UTC()

	if err := svc.repo.CheckUniqueness(ctx, ent, []int{ent.ID}); err != nil {
		return Entity{}, err
	}
	return svc.repo.UpdateEntity(ctx, ent)
}

func (svc *service) Restore(ctx context.Context, id int, actorOrg *int) (Entity, error) {
	ent, err := svc.repo.GetEntity(ctx, id)
	if err != nil {
		return Entity{}, err
	}
	if err := mutableBy(ent, actorOrg); err != nil {
		return Entity{}, err
	}
	if !ent.IsDeleted {
		return ent, nil // already active
	}

	tx, err := svc.begin(ctx)
	if err != nil {
		return Entity{}, err
	}
	ex := asExec(tx)

	// an active entry may have reused the name/code in the meantime
	if err := svc.repo.CheckUniqueness(ctx, ent, []int{ent.ID}, ex...); err != nil {
		rollback(tx)
		return Entity{}, err
	}
	if err := svc.repo.SetEntityDeleted(ctx, ent.ID, false, ex...); err != nil {
		rollback(tx)
		return Entity{}, errors.Wrap(err, "restoring catalog entry")
	}
	if ent.OwnerOrganizationID != nil {
		if err := svc.repo.AddEnabledEntity(ctx, *ent.OwnerOrganizationID, ent.ID, ex...); err != nil {
			rollback(tx)
			return Entity{}, errors.Wrap(err, "re-enabling catalog entry for owner")
		}
	}
	if err := commit(tx); err != nil {
		return Entity{}, err
	}
	ent.IsDeleted = false
	return ent, nil
}

func (svc *service) Enable(ctx context.Context, entityID, orgID int) error {
	ent, err := svc.repo.GetEntity(ctx, entityID)
	if err != nil {
		return err
	}
	if ent.IsDeleted {
		return ErrNotFound
	}
	// enabling a foreign private entry is not supported
	if ent.IsPrivate && !ent.OwnedBy(orgID) {
		return ErrNotOwner
	}

	ok, err := svc.repo.OrganizationExists(ctx, orgID)
	if err != nil {
		return errors.Wrap(err, "checking organization")
	}
	if !ok {
		return ErrOrgNotFound
	}
	return svc.repo.AddEnabledEntity(ctx, orgID, entityID)
}

func (svc *service) ClassifyRemoval(ctx context.Context, entityID, orgID int) (RemovalPlan, error) {
	_, plan, err := svc.classify(ctx, entityID, orgID)
	return plan, err
}

// classify computes the removal plan without mutating anything. The commit
// path calls it again with its own transaction executor since ownership and
// usage counts may change between the advisory call and the commit.
func (svc *service) classify(ctx context.Context, entityID, orgID int, exec ...core.DBExecutor) (Entity, RemovalPlan, error) {
	ent, err := svc.repo.GetEntity(ctx, entityID, exec...)
	if err != nil {
		return Entity{}, RemovalPlan{}, err
	}
	if ent.IsDeleted {
		return Entity{}, RemovalPlan{}, ErrNotFound
	}

	ok, err := svc.repo.OrganizationExists(ctx, orgID, exec...)
	if err != nil {
		return Entity{}, RemovalPlan{}, errors.Wrap(err, "checking organization")
	}
	if !ok {
		return Entity{}, RemovalPlan{}, ErrOrgNotFound
	}

	// a non-owning organization may not touch a private entry at all
	if ent.IsPrivate && !ent.OwnedBy(orgID) {
		return Entity{}, RemovalPlan{}, ErrNotOwner
	}

	usage, err := svc.repo.CountActiveUsage(ctx, ent.Kind, ent.ID, exec...)
	if err != nil {
		return Entity{}, RemovalPlan{}, errors.Wrap(err, "counting active usage")
	}

	if ent.IsPrivate {
		plan := RemovalPlan{RemovalType: RemovalDelete, CanRemove: usage == 0, UsageCount: usage}
		if !plan.CanRemove {
			plan.Reason = blockedReason(ent.Kind, usage)
		}
		return ent, plan, nil
	}
	// global entries are never deleted here; usage is advisory only since the
	// entry persists and only this organization's enabled set shrinks
	return ent, RemovalPlan{RemovalType: RemovalRemove, CanRemove: true, UsageCount: usage}, nil
}

func (svc *service) RemoveOrDelete(ctx context.Context, entityID, orgID int) (RemovalResult, error) {
	tx, err := svc.begin(ctx)
	if err != nil {
		return RemovalResult{}, err
	}
	ex := asExec(tx)

	ent, plan, err := svc.classify(ctx, entityID, orgID, ex...)
	if err != nil {
		rollback(tx)
		return RemovalResult{}, err
	}
	if !plan.CanRemove {
		rollback(tx)
		return RemovalResult{}, &RemovalBlockedError{Kind: ent.Kind, UsageCount: plan.UsageCount}
	}

	res := RemovalResult{EntityID: entityID, OrganizationID: orgID}
	switch plan.RemovalType {
	case RemovalRemove:
		if err := svc.repo.RemoveEnabledEntity(ctx, orgID, entityID, ex...); err != nil {
			rollback(tx)
			return RemovalResult{}, errors.Wrap(err, "disabling catalog entry")
		}
		res.Action = ActionRemoved
	case RemovalDelete:
		// purge the id from every enabled set first so a private entry is
		// never left orphaned in any organization's list
		if err := svc.repo.RemoveEnabledEntityForAll(ctx, entityID, ex...); err != nil {
			rollback(tx)
			return RemovalResult{}, errors.Wrap(err, "disabling catalog entry for all organizations")
		}
		if err := svc.repo.SetEntityDeleted(ctx, entityID, true, ex...); err != nil {
			rollback(tx)
			return RemovalResult{}, errors.Wrap(err, "deleting catalog entry")
		}
		res.Action = ActionDeleted
	}
	if err := commit(tx); err != nil {
		return RemovalResult{}, err
	}
	return res, nil
}

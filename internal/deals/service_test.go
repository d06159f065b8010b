package deals

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-crm/lattice-crm/internal/access"
	"github.com/lattice-crm/lattice-crm/internal/hierarchy"
	"github.com/lattice-crm/lattice-crm/internal/identity"
	"github.com/lattice-crm/lattice-crm/internal/permissions"
	"github.com/lattice-crm/lattice-crm/internal/shared"
)

type mockRepository struct {
	deals map[uuid.UUID]Deal
}

func newMockRepository() *mockRepository {
	return &mockRepository{deals: make(map[uuid.UUID]Deal)}
}

func (m *mockRepository) GetDeal(ctx context.Context, id uuid.UUID) (Deal, error) {
	d, ok := m.deals[id]
	if !ok {
		return Deal{}, shared.ErrNotFound
	}
	return d, nil
}

func (m *mockRepository) ListDealsByTenant(ctx context.Context, tenantID uuid.UUID) ([]Deal, error) {
	var out []Deal
	for _, d := range m.deals {
		if d.TenantID == tenantID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepositoryPort) error) error {
	return fn(ctx, &mockTxRepository{mock: m})
}

type mockTxRepository struct {
	mock *mockRepository
}

func (t *mockTxRepository) InsertDeal(ctx context.Context, deal Deal) error {
	t.mock.deals[deal.ID] = deal
	return nil
}

func (t *mockTxRepository) GetDealForUpdate(ctx context.Context, id uuid.UUID) (Deal, error) {
	return t.mock.GetDeal(ctx, id)
}

func (t *mockTxRepository) UpdateDeal(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	d, ok := t.mock.deals[id]
	if !ok {
		return shared.ErrNotFound
	}
	for field, value := range updates {
		switch field {
		case "title":
			d.Title = value.(string)
		case "amount":
			d.Amount = value.(float64)
		case "visibility":
			d.Visibility = value.(access.Visibility)
		case "pipeline_id":
			d.PipelineID = value.(*uuid.UUID)
		case "stage_id":
			d.StageID = value.(*uuid.UUID)
		}
	}
	t.mock.deals[id] = d
	return nil
}

func (t *mockTxRepository) DeleteDeal(ctx context.Context, id uuid.UUID) error {
	if _, ok := t.mock.deals[id]; !ok {
		return shared.ErrNotFound
	}
	delete(t.mock.deals, id)
	return nil
}

type mockResolver struct {
	bindings map[uuid.UUID]identity.Binding
}

func (m *mockResolver) Resolve(ctx context.Context, principalID uuid.UUID) (identity.Binding, error) {
	b, ok := m.bindings[principalID]
	if !ok {
		return identity.Binding{}, shared.ErrNotFound
	}
	return b, nil
}

// fixture wires a tenant with an owner > manager > employee chain plus a
// sibling employee under a second manager.
type fixture struct {
	svc      *Service
	repo     *mockRepository
	resolver *mockResolver

	tenantID uuid.UUID
	owner    uuid.UUID
	manager  uuid.UUID
	employee uuid.UUID
	sibling  uuid.UUID

	employeePath hierarchy.Path
}

func allDealPerms() []string {
	return []string{
		permissions.PermDealsCreate,
		permissions.PermDealsRead,
		permissions.PermDealsUpdate,
		permissions.PermDealsDelete,
	}
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newMockRepository(),
		resolver: &mockResolver{bindings: make(map[uuid.UUID]identity.Binding)},
		tenantID: uuid.New(),
	}

	rootID := uuid.New()
	mgr1ID := uuid.New()
	mgr2ID := uuid.New()
	emp1ID := uuid.New()
	emp2ID := uuid.New()

	rootPath := hierarchy.RootPath(rootID)
	mgr1Path := rootPath.Child(mgr1ID)
	mgr2Path := rootPath.Child(mgr2ID)
	f.employeePath = mgr1Path.Child(emp1ID)
	siblingPath := mgr2Path.Child(emp2ID)

	f.owner = f.addPrincipal(rootID, rootPath, allDealPerms())
	f.manager = f.addPrincipal(mgr1ID, mgr1Path, allDealPerms())
	f.employee = f.addPrincipal(emp1ID, f.employeePath, allDealPerms())
	f.sibling = f.addPrincipal(emp2ID, siblingPath, allDealPerms())

	f.svc = NewService(f.repo, f.resolver, nil, nil)
	return f
}

func (f *fixture) addPrincipal(roleID uuid.UUID, path hierarchy.Path, perms []string) uuid.UUID {
	id := uuid.New()
	f.resolver.bindings[id] = identity.Binding{
		PrincipalID: id,
		TenantID:    f.tenantID,
		RoleID:      roleID,
		RolePath:    path,
		Permissions: access.NewPermissionSet(perms),
	}
	return id
}

func (f *fixture) setPermissions(principalID uuid.UUID, perms []string) {
	b := f.resolver.bindings[principalID]
	b.Permissions = access.NewPermissionSet(perms)
	f.resolver.bindings[principalID] = b
}

func (f *fixture) createDeal(t *testing.T, principalID uuid.UUID, visibility string) Deal {
	t.Helper()
	deal, err := f.svc.Create(context.Background(), principalID, CreateDealRequest{
		Title:      "Q3 renewal",
		Amount:     1200,
		Visibility: visibility,
	})
	require.NoError(t, err)
	return deal
}

func TestCreateStampsOwnershipFromBinding(t *testing.T) {
	f := newFixture()

	deal := f.createDeal(t, f.employee, "PRIVATE")

	assert.Equal(t, f.tenantID, deal.TenantID)
	assert.Equal(t, f.employeePath, deal.OwnerRolePath)
	assert.Equal(t, f.employee, deal.CreatedBy)
}

func TestPrivateDealVisibleUpChainOnly(t *testing.T) {
	f := newFixture()
	deal := f.createDeal(t, f.employee, "PRIVATE")

	for _, reader := range []uuid.UUID{f.employee, f.manager, f.owner} {
		got, err := f.svc.Get(context.Background(), reader, deal.ID)
		require.NoError(t, err)
		assert.Equal(t, deal.ID, got.ID)
	}

	_, err := f.svc.Get(context.Background(), f.sibling, deal.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPublicAndControlledReadableAcrossBranches(t *testing.T) {
	f := newFixture()

	for _, visibility := range []string{"PUBLIC", "CONTROLLED"} {
		deal := f.createDeal(t, f.employee, visibility)
		_, err := f.svc.Get(context.Background(), f.sibling, deal.ID)
		assert.NoError(t, err, visibility)
	}
}

func TestCrossTenantReadsAsNotFound(t *testing.T) {
	f := newFixture()
	deal := f.createDeal(t, f.employee, "PUBLIC")

	other := newFixture()
	other.repo = f.repo
	other.svc = NewService(f.repo, other.resolver, nil, nil)

	_, err := other.svc.Get(context.Background(), other.owner, deal.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestEmptyCacheBlocksCreate(t *testing.T) {
	f := newFixture()
	f.setPermissions(f.employee, nil)

	_, err := f.svc.Create(context.Background(), f.employee, CreateDealRequest{
		Title: "blocked", Visibility: "PUBLIC",
	})
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Empty(t, f.repo.deals)
}

func TestUpdateRequiresReachAndPermission(t *testing.T) {
	f := newFixture()
	deal := f.createDeal(t, f.employee, "PUBLIC")
	patch := UpdateDealRequest{Updates: map[string]any{"title": "renamed"}}

	// Sibling holds the permission but has no hierarchy reach. The
	// public visibility lets them read it, so the denial surfaces as
	// forbidden rather than not-found.
	_, err := f.svc.Update(context.Background(), f.sibling, deal.ID, patch)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	// The employee has reach but lost the permission after a revoke.
	f.setPermissions(f.employee, []string{permissions.PermDealsCreate})
	_, err = f.svc.Update(context.Background(), f.employee, deal.ID, patch)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	// The manager has both.
	got, err := f.svc.Update(context.Background(), f.manager, deal.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
}

func TestDeleteMirrorsUpdateRules(t *testing.T) {
	f := newFixture()
	deal := f.createDeal(t, f.employee, "PUBLIC")

	err := f.svc.Delete(context.Background(), f.sibling, deal.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	require.NoError(t, f.svc.Delete(context.Background(), f.owner, deal.ID))
	_, err = f.svc.Get(context.Background(), f.owner, deal.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOwnerRolePathUnsettableThroughUpdates(t *testing.T) {
	f := newFixture()
	deal := f.createDeal(t, f.employee, "PRIVATE")

	got, err := f.svc.Update(context.Background(), f.employee, deal.ID, UpdateDealRequest{
		Updates: map[string]any{
			"title":           "still mine",
			"owner_role_path": "forged.path",
			"tenant_id":       uuid.New().String(),
			"created_by":      uuid.New().String(),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "still mine", got.Title)
	assert.Equal(t, deal.OwnerRolePath, got.OwnerRolePath)
	assert.Equal(t, deal.TenantID, got.TenantID)
	assert.Equal(t, deal.CreatedBy, got.CreatedBy)
}

func TestUpdateRejectsUnknownAndMistypedFields(t *testing.T) {
	f := newFixture()
	deal := f.createDeal(t, f.employee, "PRIVATE")

	_, err := f.svc.Update(context.Background(), f.employee, deal.ID, UpdateDealRequest{
		Updates: map[string]any{"priority": "high"},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = f.svc.Update(context.Background(), f.employee, deal.ID, UpdateDealRequest{
		Updates: map[string]any{"amount": "a lot"},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = f.svc.Update(context.Background(), f.employee, deal.ID, UpdateDealRequest{
		Updates: map[string]any{"visibility": "SECRET"},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	got, err := f.svc.Get(context.Background(), f.employee, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, deal.Title, got.Title)
	assert.Equal(t, deal.Amount, got.Amount)
}

func TestListFiltersByReadability(t *testing.T) {
	f := newFixture()
	f.createDeal(t, f.employee, "PRIVATE")
	public := f.createDeal(t, f.employee, "PUBLIC")

	visible, err := f.svc.List(context.Background(), f.sibling)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, public.ID, visible[0].ID)

	visible, err = f.svc.List(context.Background(), f.manager)
	require.NoError(t, err)
	assert.Len(t, visible, 2)
}

func TestCreateValidatesPayload(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), f.employee, CreateDealRequest{
		Title: "  ", Visibility: "PUBLIC",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = f.svc.Create(context.Background(), f.employee, CreateDealRequest{
		Title: "bad visibility", Visibility: "SECRET",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = f.svc.Create(context.Background(), f.employee, CreateDealRequest{
		Title: "negative", Visibility: "PUBLIC", Amount: -5,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

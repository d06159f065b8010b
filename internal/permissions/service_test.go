package permissions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-crm/lattice-crm/internal/shared"
)

type edge struct {
	roleID       uuid.UUID
	permissionID uuid.UUID
}

type mockRepository struct {
	perms    map[uuid.UUID]Permission
	bySlug   map[string]uuid.UUID
	edges    map[edge]struct{}
	caches   map[uuid.UUID][]string // role id -> cache pushed to profiles
	refreshs int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		perms:  make(map[uuid.UUID]Permission),
		bySlug: make(map[string]uuid.UUID),
		edges:  make(map[edge]struct{}),
		caches: make(map[uuid.UUID][]string),
	}
}

func (m *mockRepository) GetPermissionBySlug(ctx context.Context, slug string) (Permission, error) {
	id, ok := m.bySlug[slug]
	if !ok {
		return Permission{}, shared.ErrNotFound
	}
	return m.perms[id], nil
}

func (m *mockRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	var perms []Permission
	for _, p := range m.perms {
		perms = append(perms, p)
	}
	return perms, nil
}

func (m *mockRepository) CreatePermission(ctx context.Context, perm Permission) error {
	if _, ok := m.bySlug[perm.Slug]; ok {
		return shared.ErrDuplicatePermission
	}
	m.perms[perm.ID] = perm
	m.bySlug[perm.Slug] = perm.ID
	return nil
}

func (m *mockRepository) UpsertPermission(ctx context.Context, perm Permission) (Permission, error) {
	if id, ok := m.bySlug[perm.Slug]; ok {
		existing := m.perms[id]
		existing.Description = perm.Description
		m.perms[id] = existing
		return existing, nil
	}
	m.perms[perm.ID] = perm
	m.bySlug[perm.Slug] = perm.ID
	return perm, nil
}

func (m *mockRepository) ListRolePermissionIDs(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for e := range m.edges {
		if e.roleID == roleID {
			ids = append(ids, e.permissionID)
		}
	}
	return ids, nil
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepositoryPort) error) error {
	return fn(ctx, &mockTxRepository{mock: m})
}

type mockTxRepository struct {
	mock *mockRepository
}

func (t *mockTxRepository) AttachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	t.mock.edges[edge{roleID, permissionID}] = struct{}{}
	return nil
}

func (t *mockTxRepository) DetachPermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	delete(t.mock.edges, edge{roleID, permissionID})
	return nil
}

func (t *mockTxRepository) RoleSlugs(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	slugs := []string{}
	for e := range t.mock.edges {
		if e.roleID == roleID {
			slugs = append(slugs, t.mock.perms[e.permissionID].Slug)
		}
	}
	return slugs, nil
}

func (t *mockTxRepository) RefreshProfileCaches(ctx context.Context, roleID uuid.UUID, slugs []string) error {
	t.mock.caches[roleID] = append([]string{}, slugs...)
	t.mock.refreshs++
	return nil
}

func TestCreatePermissionRejectsDuplicateSlug(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	_, err := svc.CreatePermission(context.Background(), "crm.deals.create", "Create deals")
	require.NoError(t, err)

	_, err = svc.CreatePermission(context.Background(), "CRM.Deals.Create", "again")
	assert.ErrorIs(t, err, shared.ErrDuplicatePermission)

	_, err = svc.CreatePermission(context.Background(), "   ", "")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestGrantRefreshesCachesBeforeReturning(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	roleID := uuid.New()

	perm, err := svc.CreatePermission(context.Background(), PermDealsUpdate, "")
	require.NoError(t, err)

	require.NoError(t, svc.Grant(context.Background(), roleID, perm.ID))
	assert.Equal(t, []string{PermDealsUpdate}, repo.caches[roleID])

	require.NoError(t, svc.Revoke(context.Background(), roleID, perm.ID))
	assert.Empty(t, repo.caches[roleID])
}

func TestSetRolePermissionsDiffsAndRefreshesOnce(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	roleID := uuid.New()

	create, err := svc.CreatePermission(context.Background(), PermDealsCreate, "")
	require.NoError(t, err)
	read, err := svc.CreatePermission(context.Background(), PermDealsRead, "")
	require.NoError(t, err)
	update, err := svc.CreatePermission(context.Background(), PermDealsUpdate, "")
	require.NoError(t, err)

	require.NoError(t, svc.SetRolePermissions(context.Background(), roleID, []uuid.UUID{create.ID, read.ID}))
	assert.ElementsMatch(t, []string{PermDealsCreate, PermDealsRead}, repo.caches[roleID])

	refreshes := repo.refreshs
	require.NoError(t, svc.SetRolePermissions(context.Background(), roleID, []uuid.UUID{read.ID, update.ID}))
	assert.ElementsMatch(t, []string{PermDealsRead, PermDealsUpdate}, repo.caches[roleID])
	assert.Equal(t, refreshes+1, repo.refreshs)

	_, hasCreate := repo.edges[edge{roleID, create.ID}]
	assert.False(t, hasCreate)
}

func TestSeedCatalogIsIdempotent(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	require.NoError(t, svc.SeedCatalog(context.Background()))
	first, err := svc.ListPermissions(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.SeedCatalog(context.Background()))
	second, err := svc.ListPermissions(context.Background())
	require.NoError(t, err)

	assert.Len(t, first, len(Catalog()))
	assert.Len(t, second, len(Catalog()))
}

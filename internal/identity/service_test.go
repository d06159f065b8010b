package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-crm/lattice-crm/internal/hierarchy"
	"github.com/lattice-crm/lattice-crm/internal/shared"
)

type mockRepository struct {
	profiles  map[uuid.UUID]*Profile
	byEmail   map[string]uuid.UUID
	rolePaths map[uuid.UUID]hierarchy.Path
	roleSlugs map[uuid.UUID][]string
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		profiles:  make(map[uuid.UUID]*Profile),
		byEmail:   make(map[string]uuid.UUID),
		rolePaths: make(map[uuid.UUID]hierarchy.Path),
		roleSlugs: make(map[uuid.UUID][]string),
	}
}

func (m *mockRepository) GetProfile(ctx context.Context, id uuid.UUID) (Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return Profile{}, shared.ErrNotFound
	}
	return *p, nil
}

func (m *mockRepository) GetProfileByEmail(ctx context.Context, email string) (Profile, error) {
	id, ok := m.byEmail[email]
	if !ok {
		return Profile{}, shared.ErrNotFound
	}
	return m.GetProfile(ctx, id)
}

func (m *mockRepository) GetRolePath(ctx context.Context, roleID uuid.UUID) (hierarchy.Path, error) {
	path, ok := m.rolePaths[roleID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return path, nil
}

func (m *mockRepository) InsertProfile(ctx context.Context, p Profile) error {
	stored := p
	m.profiles[p.ID] = &stored
	m.byEmail[p.Email] = p.ID
	return nil
}

func (m *mockRepository) ListRoleSlugs(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	return append([]string{}, m.roleSlugs[roleID]...), nil
}

func (m *mockRepository) UpdateCachedPermissions(ctx context.Context, roleID uuid.UUID, slugs []string) (int64, error) {
	var updated int64
	for _, p := range m.profiles {
		if p.RoleID == roleID {
			p.CachedPermissions = append([]string{}, slugs...)
			updated++
		}
	}
	return updated, nil
}

func (m *mockRepository) ListRoleIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id := range m.rolePaths {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockRepository) addRole(path hierarchy.Path, slugs ...string) uuid.UUID {
	id := uuid.New()
	m.rolePaths[id] = path
	m.roleSlugs[id] = slugs
	return id
}

func TestResolveBindsFromStoredProfileOnly(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	tenantID := uuid.New()
	roleID := repo.addRole("root.mgr", "crm.deals.create")

	profile, err := svc.CreateProfile(context.Background(), tenantID, roleID, "Manager@Example.com", "Manager", "hash")
	require.NoError(t, err)
	assert.Equal(t, "manager@example.com", profile.Email)

	binding, err := svc.Resolve(context.Background(), profile.ID)
	require.NoError(t, err)
	assert.Equal(t, tenantID, binding.TenantID)
	assert.Equal(t, roleID, binding.RoleID)
	assert.Equal(t, hierarchy.Path("root.mgr"), binding.RolePath)
	assert.True(t, binding.HasPermission("crm.deals.create"))
}

func TestResolveUnknownOrInactivePrincipal(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	_, err := svc.Resolve(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	roleID := repo.addRole("root")
	profile, err := svc.CreateProfile(context.Background(), uuid.New(), roleID, "x@test.com", "X", "hash")
	require.NoError(t, err)
	repo.profiles[profile.ID].IsActive = false

	_, err = svc.Resolve(context.Background(), profile.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCacheBuiltOnProfileInsert(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	roleID := repo.addRole("root", "crm.deals.create", "crm.deals.read")

	profile, err := svc.CreateProfile(context.Background(), uuid.New(), roleID, "a@test.com", "A", "hash")
	require.NoError(t, err)
	assert.Equal(t, []string{"crm.deals.create", "crm.deals.read"}, profile.CachedPermissions)
}

func TestRecomputeMatchesDirectAssignmentOnly(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	tenantID := uuid.New()

	managerRole := repo.addRole("root.mgr")
	employeeRole := repo.addRole("root.mgr.emp", "crm.deals.create")

	manager, err := svc.CreateProfile(context.Background(), tenantID, managerRole, "m@test.com", "M", "hash")
	require.NoError(t, err)
	employee, err := svc.CreateProfile(context.Background(), tenantID, employeeRole, "e@test.com", "E", "hash")
	require.NoError(t, err)

	// Grant to the employee role and recompute both.
	repo.roleSlugs[employeeRole] = []string{"crm.deals.create", "crm.deals.update"}
	require.NoError(t, svc.RecomputeCacheForRole(context.Background(), employeeRole))
	require.NoError(t, svc.RecomputeCacheForRole(context.Background(), managerRole))

	// Hierarchy never grants: the manager does not inherit the
	// subordinate's permissions, nor the other way around.
	assert.Empty(t, repo.profiles[manager.ID].CachedPermissions)
	assert.Equal(t, []string{"crm.deals.create", "crm.deals.update"}, repo.profiles[employee.ID].CachedPermissions)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	roleID := repo.addRole("root", "a.b.c")

	profile, err := svc.CreateProfile(context.Background(), uuid.New(), roleID, "i@test.com", "I", "hash")
	require.NoError(t, err)

	require.NoError(t, svc.RecomputeCacheForRole(context.Background(), roleID))
	first := append([]string{}, repo.profiles[profile.ID].CachedPermissions...)
	require.NoError(t, svc.RecomputeCacheForRole(context.Background(), roleID))
	assert.Equal(t, first, repo.profiles[profile.ID].CachedPermissions)
}

func TestReconcileAllRepairsDrift(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	roleID := repo.addRole("root", "crm.deals.read")

	profile, err := svc.CreateProfile(context.Background(), uuid.New(), roleID, "d@test.com", "D", "hash")
	require.NoError(t, err)

	// Simulate drift.
	repo.profiles[profile.ID].CachedPermissions = []string{"stale.permission"}

	require.NoError(t, svc.ReconcileAll(context.Background()))
	assert.Equal(t, []string{"crm.deals.read"}, repo.profiles[profile.ID].CachedPermissions)
}

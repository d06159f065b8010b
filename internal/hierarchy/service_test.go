package hierarchy

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-crm/lattice-crm/internal/shared"
)

type mockRepository struct {
	roles       map[uuid.UUID]*Role
	definitions map[string]Definition
	profiles    map[uuid.UUID]int64 // role id -> bound profile count
	seeded      map[uuid.UUID][]string
}

func newMockRepository() *mockRepository {
	m := &mockRepository{
		roles:    make(map[uuid.UUID]*Role),
		profiles: make(map[uuid.UUID]int64),
		seeded:   make(map[uuid.UUID][]string),
		definitions: map[string]Definition{
			DefinitionOwner:    {ID: uuid.New(), Key: DefinitionOwner, Name: "Owner", DefaultPermissions: []string{"crm.deals.create", "crm.deals.read", "crm.deals.update", "crm.deals.delete"}},
			DefinitionManager:  {ID: uuid.New(), Key: DefinitionManager, Name: "Manager"},
			DefinitionEmployee: {ID: uuid.New(), Key: DefinitionEmployee, Name: "Employee"},
		},
	}
	return m
}

func (m *mockRepository) addRoot(tenantID uuid.UUID) Role {
	role := Role{
		ID:           uuid.New(),
		TenantID:     tenantID,
		DefinitionID: m.definitions[DefinitionOwner].ID,
		Name:         "Owner",
	}
	role.Path = RootPath(role.ID)
	m.roles[role.ID] = &role
	return role
}

func (m *mockRepository) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return *role, nil
}

func (m *mockRepository) GetDefinition(ctx context.Context, key string) (Definition, error) {
	def, ok := m.definitions[key]
	if !ok {
		return Definition{}, shared.ErrNotFound
	}
	return def, nil
}

func (m *mockRepository) ListRoles(ctx context.Context, tenantID uuid.UUID) ([]Role, error) {
	var roles []Role
	for _, role := range m.roles {
		if role.TenantID == tenantID {
			roles = append(roles, *role)
		}
	}
	return roles, nil
}

func (m *mockRepository) CountProfiles(ctx context.Context, roleID uuid.UUID) (int64, error) {
	return m.profiles[roleID], nil
}

func (m *mockRepository) CountChildren(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var count int64
	for _, role := range m.roles {
		if role.ParentRoleID != nil && *role.ParentRoleID == roleID {
			count++
		}
	}
	return count, nil
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepositoryPort) error) error {
	return fn(ctx, &mockTxRepository{mock: m})
}

type mockTxRepository struct {
	mock *mockRepository
}

func (t *mockTxRepository) InsertRole(ctx context.Context, role Role) error {
	r := role
	t.mock.roles[role.ID] = &r
	return nil
}

func (t *mockTxRepository) SeedRolePermissions(ctx context.Context, roleID uuid.UUID, slugs []string) error {
	t.mock.seeded[roleID] = slugs
	return nil
}

func (t *mockTxRepository) DeleteRole(ctx context.Context, id uuid.UUID) (int64, error) {
	if _, ok := t.mock.roles[id]; !ok {
		return 0, nil
	}
	delete(t.mock.roles, id)
	return 1, nil
}

func (t *mockTxRepository) UpdateParent(ctx context.Context, roleID, parentID uuid.UUID) error {
	role, ok := t.mock.roles[roleID]
	if !ok {
		return shared.ErrNotFound
	}
	p := parentID
	role.ParentRoleID = &p
	return nil
}

func (t *mockTxRepository) RebasePaths(ctx context.Context, tenantID uuid.UUID, oldPrefix, newPrefix Path) error {
	for _, role := range t.mock.roles {
		if role.TenantID != tenantID {
			continue
		}
		role.Path = role.Path.Rebase(oldPrefix, newPrefix)
	}
	return nil
}

func TestCreateRolePathIsPrefixExtensionOfParent(t *testing.T) {
	repo := newMockRepository()
	tenantID := uuid.New()
	root := repo.addRoot(tenantID)
	svc := NewService(repo)

	manager, err := svc.CreateRole(context.Background(), tenantID, root.ID, "Manager A", DefinitionManager)
	require.NoError(t, err)

	assert.Equal(t, root.Path.Child(manager.ID), manager.Path)
	assert.True(t, root.Path.IsAncestorOrEqual(manager.Path))
	assert.Equal(t, root.Path.Depth()+1, manager.Path.Depth())

	employee, err := svc.CreateRole(context.Background(), tenantID, manager.ID, "Employee A", DefinitionEmployee)
	require.NoError(t, err)
	assert.True(t, manager.Path.IsAncestorOrEqual(employee.Path))
	assert.True(t, root.Path.IsAncestorOrEqual(employee.Path))
}

func TestCreateRoleSeedsDefinitionDefaults(t *testing.T) {
	repo := newMockRepository()
	tenantID := uuid.New()
	root := repo.addRoot(tenantID)
	svc := NewService(repo)

	role, err := svc.CreateRole(context.Background(), tenantID, root.ID, "Second Owner", DefinitionOwner)
	require.NoError(t, err)
	assert.Equal(t, repo.definitions[DefinitionOwner].DefaultPermissions, repo.seeded[role.ID])
}

func TestCreateRoleRejectsForeignParent(t *testing.T) {
	repo := newMockRepository()
	tenantA := uuid.New()
	tenantB := uuid.New()
	rootB := repo.addRoot(tenantB)
	svc := NewService(repo)

	_, err := svc.CreateRole(context.Background(), tenantA, rootB.ID, "Intruder", DefinitionManager)
	assert.ErrorIs(t, err, shared.ErrInvalidParent)
}

func TestCreateRoleRejectsMissingParentAndName(t *testing.T) {
	repo := newMockRepository()
	tenantID := uuid.New()
	root := repo.addRoot(tenantID)
	svc := NewService(repo)

	_, err := svc.CreateRole(context.Background(), tenantID, uuid.New(), "Orphan", DefinitionManager)
	assert.ErrorIs(t, err, shared.ErrInvalidParent)

	_, err = svc.CreateRole(context.Background(), tenantID, root.ID, "   ", DefinitionManager)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.CreateRole(context.Background(), tenantID, root.ID, "Ok", "NO_SUCH_DEFINITION")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestDeleteRoleGuards(t *testing.T) {
	repo := newMockRepository()
	tenantID := uuid.New()
	root := repo.addRoot(tenantID)
	svc := NewService(repo)

	manager, err := svc.CreateRole(context.Background(), tenantID, root.ID, "Manager", DefinitionManager)
	require.NoError(t, err)
	employee, err := svc.CreateRole(context.Background(), tenantID, manager.ID, "Employee", DefinitionEmployee)
	require.NoError(t, err)

	// Role with a bound principal cannot be deleted.
	repo.profiles[employee.ID] = 1
	assert.ErrorIs(t, svc.DeleteRole(context.Background(), employee.ID), shared.ErrRoleInUse)

	// Role with children cannot be deleted.
	assert.ErrorIs(t, svc.DeleteRole(context.Background(), manager.ID), shared.ErrRoleHasDependents)

	// Unbound leaf deletes cleanly.
	repo.profiles[employee.ID] = 0
	require.NoError(t, svc.DeleteRole(context.Background(), employee.ID))
	require.NoError(t, svc.DeleteRole(context.Background(), manager.ID))

	assert.ErrorIs(t, svc.DeleteRole(context.Background(), manager.ID), shared.ErrNotFound)
}

func TestMoveRoleCrossTenantRejected(t *testing.T) {
	repo := newMockRepository()
	tenantA := uuid.New()
	tenantB := uuid.New()
	rootA := repo.addRoot(tenantA)
	rootB := repo.addRoot(tenantB)
	svc := NewService(repo)

	manager, err := svc.CreateRole(context.Background(), tenantA, rootA.ID, "Manager", DefinitionManager)
	require.NoError(t, err)

	_, err = svc.MoveRole(context.Background(), manager.ID, rootB.ID)
	assert.ErrorIs(t, err, shared.ErrCrossTenantForbidden)
}

func TestMoveRoleRecomputesSubtreePaths(t *testing.T) {
	repo := newMockRepository()
	tenantID := uuid.New()
	root := repo.addRoot(tenantID)
	svc := NewService(repo)

	managerA, err := svc.CreateRole(context.Background(), tenantID, root.ID, "Manager A", DefinitionManager)
	require.NoError(t, err)
	managerB, err := svc.CreateRole(context.Background(), tenantID, root.ID, "Manager B", DefinitionManager)
	require.NoError(t, err)
	employee, err := svc.CreateRole(context.Background(), tenantID, managerA.ID, "Employee", DefinitionEmployee)
	require.NoError(t, err)

	moved, err := svc.MoveRole(context.Background(), managerA.ID, managerB.ID)
	require.NoError(t, err)

	assert.Equal(t, managerB.Path.Child(managerA.ID), moved.Path)

	got, err := svc.GetRole(context.Background(), employee.ID)
	require.NoError(t, err)
	assert.True(t, moved.Path.IsAncestorOrEqual(got.Path))
	assert.True(t, managerB.Path.IsAncestorOrEqual(got.Path))
	assert.Equal(t, moved.Path.Child(employee.ID), got.Path)
}

func TestMoveRoleRejectsRootAndCycles(t *testing.T) {
	repo := newMockRepository()
	tenantID := uuid.New()
	root := repo.addRoot(tenantID)
	svc := NewService(repo)

	manager, err := svc.CreateRole(context.Background(), tenantID, root.ID, "Manager", DefinitionManager)
	require.NoError(t, err)
	employee, err := svc.CreateRole(context.Background(), tenantID, manager.ID, "Employee", DefinitionEmployee)
	require.NoError(t, err)

	_, err = svc.MoveRole(context.Background(), root.ID, manager.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidParent)

	// Cannot move a role under its own subtree.
	_, err = svc.MoveRole(context.Background(), manager.ID, employee.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidParent)
}

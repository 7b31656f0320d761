package auth_test

import (
	"context"
	"testing"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	auth "github.com/ledgerly/go-auth"
)

func seedRole(t *testing.T, repo auth.Roles, name string, permissions ...string) *auth.Role {
	t.Helper()
	ctx := context.Background()

	role, err := repo.CreateRole(ctx, &auth.Role{Name: name, IsActive: true})
	require.NoError(t, err)

	for _, permName := range permissions {
		perm, err := repo.FindPermissionByName(ctx, permName)
		if repository.IsRecordNotFound(err) {
			perm, err = repo.CreatePermission(ctx, &auth.Permission{
				Name:     permName,
				Resource: permName,
				Action:   "any",
				IsActive: true,
			})
		}
		require.NoError(t, err)

		_, err = repo.AttachPermission(ctx, role.ID, perm.ID)
		require.NoError(t, err)
	}

	return role
}

func seedUser(t *testing.T, users auth.Users, email string) *auth.User {
	t.Helper()

	user, err := auth.NewUser(email, "", "")
	require.NoError(t, err)
	created, err := users.Create(context.Background(), user)
	require.NoError(t, err)
	return created
}

func TestRolesRepository_Assignments(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := auth.NewRolesRepository(db)
	users := auth.NewUsersRepository(db)
	ctx := context.Background()

	created := seedUser(t, users, "a@b.com")

	editor := seedRole(t, repo, "editor", "reports.edit", "reports.view")
	viewer := seedRole(t, repo, "viewer", "reports.view")

	_, err := repo.Assign(ctx, created.ID, editor.ID, nil)
	require.NoError(t, err)
	_, err = repo.Assign(ctx, created.ID, viewer.ID, nil)
	require.NoError(t, err)

	t.Run("active assignments come back with their role", func(t *testing.T) {
		assignments, err := repo.GetActiveRoleAssignments(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, assignments, 2)

		names := []string{}
		for _, a := range assignments {
			require.NotNil(t, a.Role)
			names = append(names, a.Role.Name)
		}
		assert.ElementsMatch(t, []string{"editor", "viewer"}, names)
	})

	t.Run("deactivated assignment disappears from the active list", func(t *testing.T) {
		assignments, err := repo.GetActiveRoleAssignments(ctx, created.ID)
		require.NoError(t, err)

		var editorAssignment *auth.UserRole
		for _, a := range assignments {
			if a.Role.Name == "editor" {
				editorAssignment = a
			}
		}
		require.NotNil(t, editorAssignment)

		require.NoError(t, repo.DeactivateAssignment(ctx, editorAssignment.ID))

		remaining, err := repo.GetActiveRoleAssignments(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, "viewer", remaining[0].Role.Name)
	})

	t.Run("no assignments for an unknown user", func(t *testing.T) {
		assignments, err := repo.GetActiveRoleAssignments(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, assignments)
	})
}

func TestRolesRepository_Permissions(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := auth.NewRolesRepository(db)
	ctx := context.Background()

	editor := seedRole(t, repo, "editor", "reports.edit", "reports.view")

	t.Run("returns the active permissions of a role", func(t *testing.T) {
		permissions, err := repo.GetRolePermissions(ctx, editor.ID)
		require.NoError(t, err)

		names := []string{}
		for _, p := range permissions {
			names = append(names, p.Name)
		}
		assert.ElementsMatch(t, []string{"reports.edit", "reports.view"}, names)
	})

	t.Run("inactive permission rows are filtered", func(t *testing.T) {
		dormant, err := repo.CreatePermission(ctx, &auth.Permission{
			Name:     "reports.delete",
			Resource: "reports",
			Action:   "delete",
			IsActive: false,
		})
		require.NoError(t, err)
		_, err = repo.AttachPermission(ctx, editor.ID, dormant.ID)
		require.NoError(t, err)

		permissions, err := repo.GetRolePermissions(ctx, editor.ID)
		require.NoError(t, err)
		for _, p := range permissions {
			assert.NotEqual(t, "reports.delete", p.Name)
		}
	})
}

func TestRolesRepository_GrantRole(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := auth.NewRolesRepository(db)
	users := auth.NewUsersRepository(db)
	ctx := context.Background()

	seedRole(t, repo, "member", "profile.read")
	member := seedUser(t, users, "member@b.com")

	t.Run("grants an active role by name", func(t *testing.T) {
		assignment, err := repo.GrantRole(ctx, member.ID, "member")
		require.NoError(t, err)
		assert.Equal(t, member.ID, assignment.UserID)
		assert.True(t, assignment.IsActive)
	})

	t.Run("unknown role is a typed not-found", func(t *testing.T) {
		_, err := repo.GrantRole(ctx, member.ID, "missing")
		assert.True(t, repository.IsRecordNotFound(err), "expected not-found, got %v", err)
	})

	t.Run("deactivated role cannot be granted", func(t *testing.T) {
		retired := seedRole(t, repo, "retired")
		require.NoError(t, repo.DeactivateRole(ctx, retired.ID))

		other := seedUser(t, users, "other@b.com")
		_, err := repo.GrantRole(ctx, other.ID, "retired")
		assert.True(t, repository.IsRecordNotFound(err))
	})
}

func TestRolesRepository_WithResolver(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := auth.NewRolesRepository(db)
	users := auth.NewUsersRepository(db)
	ctx := context.Background()

	subject := seedUser(t, users, "a@b.com")
	editor := seedRole(t, repo, "editor", "reports.edit", "reports.view")
	seedRole(t, repo, "viewer", "reports.view")

	_, err := repo.GrantRole(ctx, subject.ID, "editor")
	require.NoError(t, err)
	_, err = repo.GrantRole(ctx, subject.ID, "viewer")
	require.NoError(t, err)

	clock := newFakeClock(testEpoch)
	resolver := auth.NewPermissionResolver(repo, auth.WithResolverClock(clock.Now))

	access, err := resolver.ResolveAccess(ctx, subject.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"editor", "viewer"}, access.Roles)
	assert.Equal(t, []string{"reports.edit", "reports.view"}, access.Permissions)

	t.Run("expired assignment drops out at resolution time", func(t *testing.T) {
		other := seedUser(t, users, "other@b.com")
		expiry := testEpoch.Add(time.Hour)
		_, err := repo.Assign(ctx, other.ID, editor.ID, &expiry)
		require.NoError(t, err)

		access, err := resolver.ResolveAccess(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"editor"}, access.Roles)

		clock.Advance(2 * time.Hour)
		access, err = resolver.ResolveAccess(ctx, other.ID)
		require.NoError(t, err)
		assert.Empty(t, access.Roles)
		assert.Empty(t, access.Permissions)
	})
}

func TestRepositoryManager(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	manager := auth.NewRepositoryManager(db)
	require.NoError(t, manager.Validate())
	assert.NotNil(t, manager.Users())
	assert.NotNil(t, manager.Roles())

	t.Run("runs work in a transaction", func(t *testing.T) {
		ctx := context.Background()
		err := manager.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			role := &auth.Role{ID: uuid.New(), Name: "tx-role", IsActive: true, Version: 1}
			_, err := tx.NewInsert().Model(role).Exec(ctx)
			return err
		})
		require.NoError(t, err)

		subject := seedUser(t, manager.Users(), "tx@b.com")
		granted, err := manager.Roles().GrantRole(ctx, subject.ID, "tx-role")
		require.NoError(t, err)
		assert.True(t, granted.IsActive)
	})

	t.Run("honors a cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := manager.RunInTx(ctx, nil, func(context.Context, bun.Tx) error {
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

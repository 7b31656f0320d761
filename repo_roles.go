package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles is the bun-backed role/permission store: the resolver's read path
// plus the seeding and assignment operations used by admin workflows.
type Roles interface {
	RoleStore
	RoleGranter

	CreateRole(ctx context.Context, role *Role) (*Role, error)
	CreatePermission(ctx context.Context, permission *Permission) (*Permission, error)
	FindPermissionByName(ctx context.Context, name string) (*Permission, error)
	AttachPermission(ctx context.Context, roleID, permissionID uuid.UUID) (*RolePermission, error)
	Assign(ctx context.Context, userID, roleID uuid.UUID, expiresAt *time.Time) (*UserRole, error)
	DeactivateAssignment(ctx context.Context, assignmentID uuid.UUID) error
	DeactivateRole(ctx context.Context, roleID uuid.UUID) error
}

type roles struct {
	db *bun.DB
}

var (
	_ Roles       = (*roles)(nil)
	_ RoleStore   = (*roles)(nil)
	_ RoleGranter = (*roles)(nil)
)

func NewRolesRepository(db *bun.DB) Roles {
	return &roles{db: db}
}

// GetActiveRoleAssignments returns the user's active assignments with their
// roles loaded. Expiry and role activity are left to the resolver so the
// clock stays injectable.
func (r *roles) GetActiveRoleAssignments(ctx context.Context, userID uuid.UUID) ([]*UserRole, error) {
	var assignments []*UserRole
	err := r.db.NewSelect().
		Model(&assignments).
		Relation("Role").
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.is_active = ?", true).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return assignments, nil
}

// GetRolePermissions returns the active permissions attached to a role
// through active role_permissions links.
func (r *roles) GetRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*Permission, error) {
	var permissions []*Permission
	err := r.db.NewSelect().
		Model(&permissions).
		Join("JOIN role_permissions AS rp ON rp.permission_id = ?TableAlias.id").
		Where("rp.role_id = ?", roleID).
		Where("rp.is_active = ?", true).
		Where("?TableAlias.is_active = ?", true).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return permissions, nil
}

// GrantRole assigns the named active role to the user.
func (r *roles) GrantRole(ctx context.Context, userID uuid.UUID, roleName string) (*UserRole, error) {
	role := &Role{}
	err := r.db.NewSelect().
		Model(role).
		Where("?TableAlias.name = ?", roleName).
		Where("?TableAlias.is_active = ?", true).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"role": roleName,
				})
		}
		return nil, err
	}

	return r.Assign(ctx, userID, role.ID, nil)
}

func (r *roles) Assign(ctx context.Context, userID, roleID uuid.UUID, expiresAt *time.Time) (*UserRole, error) {
	now := time.Now()
	assignment := &UserRole{
		ID:         uuid.New(),
		UserID:     userID,
		RoleID:     roleID,
		AssignedAt: &now,
		ExpiresAt:  expiresAt,
		IsActive:   true,
	}

	if _, err := r.db.NewInsert().Model(assignment).Exec(ctx); err != nil {
		return nil, err
	}

	return assignment, nil
}

func (r *roles) CreateRole(ctx context.Context, role *Role) (*Role, error) {
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	if role.Version == 0 {
		role.Version = 1
	}

	if _, err := r.db.NewInsert().Model(role).Exec(ctx); err != nil {
		return nil, err
	}

	return role, nil
}

func (r *roles) CreatePermission(ctx context.Context, permission *Permission) (*Permission, error) {
	if permission.ID == uuid.Nil {
		permission.ID = uuid.New()
	}

	if _, err := r.db.NewInsert().Model(permission).Exec(ctx); err != nil {
		return nil, err
	}

	return permission, nil
}

// FindPermissionByName looks a permission up by its unique name.
func (r *roles) FindPermissionByName(ctx context.Context, name string) (*Permission, error) {
	permission := &Permission{}
	err := r.db.NewSelect().
		Model(permission).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"permission": name,
				})
		}
		return nil, err
	}

	return permission, nil
}

func (r *roles) AttachPermission(ctx context.Context, roleID, permissionID uuid.UUID) (*RolePermission, error) {
	link := &RolePermission{
		ID:           uuid.New(),
		RoleID:       roleID,
		PermissionID: permissionID,
		IsActive:     true,
	}

	if _, err := r.db.NewInsert().Model(link).Exec(ctx); err != nil {
		return nil, err
	}

	return link, nil
}

// DeactivateAssignment is the normal removal path: the row stays, the flag
// flips, and the next resolution drops the role's exclusive permissions.
func (r *roles) DeactivateAssignment(ctx context.Context, assignmentID uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*UserRole)(nil)).
		Set("is_active = ?", false).
		Where("id = ?", assignmentID).
		Exec(ctx)

	return err
}

func (r *roles) DeactivateRole(ctx context.Context, roleID uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*Role)(nil)).
		Set("is_active = ?", false).
		Where("id = ?", roleID).
		Exec(ctx)

	return err
}

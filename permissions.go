package auth

import (
	"context"
	"sort"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// PermissionResolver walks UserRole -> Role -> RolePermission -> Permission
// and returns the distinct union of permission names. Every hop applies the
// validity rule: assignment active and unexpired, role active, link active,
// permission active. It holds no cache; role changes take effect on the next
// resolution without forcing a logout.
type PermissionResolver struct {
	store RoleStore
	now   Clock
}

// ResolverOption customizes resolver construction.
type ResolverOption func(*PermissionResolver)

// WithResolverClock injects a custom clock (useful for tests).
func WithResolverClock(clock Clock) ResolverOption {
	return func(r *PermissionResolver) {
		if clock != nil {
			r.now = clock
		}
	}
}

// NewPermissionResolver creates a resolver over the given role store.
func NewPermissionResolver(store RoleStore, opts ...ResolverOption) *PermissionResolver {
	r := &PermissionResolver{
		store: store,
		now:   time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// ResolveAccess returns the user's active role names and the union of their
// permission names. Sets are sorted so repeated resolutions compare equal.
func (r *PermissionResolver) ResolveAccess(ctx context.Context, userID uuid.UUID) (*AccessSet, error) {
	assignments, err := r.store.GetActiveRoleAssignments(ctx, userID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load role assignments")
	}

	now := r.now()
	roleSet := map[string]struct{}{}
	permSet := map[string]struct{}{}

	for _, assignment := range assignments {
		if assignment == nil || !assignment.ValidAt(now) {
			continue
		}
		if assignment.Role == nil || !assignment.Role.IsActive {
			continue
		}
		if _, seen := roleSet[assignment.Role.Name]; seen {
			continue
		}
		roleSet[assignment.Role.Name] = struct{}{}

		permissions, err := r.store.GetRolePermissions(ctx, assignment.RoleID)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load role permissions")
		}

		for _, permission := range permissions {
			if permission == nil || !permission.IsActive {
				continue
			}
			permSet[permission.Name] = struct{}{}
		}
	}

	return &AccessSet{
		Roles:       sortedKeys(roleSet),
		Permissions: sortedKeys(permSet),
	}, nil
}

// HasPermission reports whether the user's resolved set contains the named
// permission.
func (r *PermissionResolver) HasPermission(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	access, err := r.ResolveAccess(ctx, userID)
	if err != nil {
		return false, err
	}

	for _, p := range access.Permissions {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

var _ AccessResolver = (*PermissionResolver)(nil)

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

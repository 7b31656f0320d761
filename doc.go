// Package auth implements the credential authentication and RBAC core for
// Ledgerly services: password hashing, JWT access tokens, opaque refresh
// tokens, account lockout, and role/permission resolution.
//
// The package is a library, not a service. HTTP routing, request binding,
// and status-code mapping live at the boundary; this core returns typed
// errors (go-errors categories and text codes) that the boundary translates
// exactly once.
//
// Flows:
//   - Credentials composes the user store, access resolver, hasher, token
//     issuer/validator, and lockout machine into Register, Login, Refresh,
//     and ChangePassword. Each flow is a short request/response cycle; the
//     only persisted mutations are the ones each flow names.
//   - Lockout is timestamp-driven. A user is locked iff IsLocked is set and
//     LockedUntil is in the future; an elapsed lock is treated as unlocked
//     without requiring a write.
//   - Roles and permissions are re-resolved on every token mint so role
//     changes take effect without forcing a logout.
//
// All "now" comparisons go through injectable clocks so expiry behavior is
// deterministic under test.
package auth

package auth

import "time"

// LockoutPolicy is the failure threshold and cool-down applied to repeated
// authentication failures.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// LockoutMachine owns the account-lock transitions on a User. The lock is
// evaluated by timestamp comparison: IsLocked with an elapsed LockedUntil
// counts as unlocked without requiring a write.
type LockoutMachine struct {
	policy LockoutPolicy
	now    Clock
}

// LockoutOption customizes lockout machine construction.
type LockoutOption func(*LockoutMachine)

// WithLockoutClock injects a custom clock (useful for tests).
func WithLockoutClock(clock Clock) LockoutOption {
	return func(lm *LockoutMachine) {
		if clock != nil {
			lm.now = clock
		}
	}
}

// NewLockoutMachine derives the policy from the configuration.
func NewLockoutMachine(cfg Config, opts ...LockoutOption) *LockoutMachine {
	cfg = cfg.withDefaults()

	lm := &LockoutMachine{
		policy: LockoutPolicy{
			Threshold: cfg.LockoutThreshold,
			Duration:  cfg.LockoutDuration(),
		},
		now: time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(lm)
		}
	}

	return lm
}

// Locked reports whether the user is currently locked, and until when.
// `IsLocked && LockedUntil > now` is the single source of truth.
func (lm *LockoutMachine) Locked(u *User) (bool, time.Time) {
	if u == nil || !u.IsLocked || u.LockedUntil == nil {
		return false, time.Time{}
	}
	if u.LockedUntil.After(lm.now()) {
		return true, *u.LockedUntil
	}
	return false, time.Time{}
}

// RegisterFailure records a failed password verification. Reaching the
// threshold transitions the user into Locked(now + cool-down). Returns
// whether the user is locked after the transition. Callers must not invoke
// this while the user is already locked; the orchestrator short-circuits
// first so hammering cannot extend the lock.
func (lm *LockoutMachine) RegisterFailure(u *User) bool {
	u.FailedLoginAttempts++

	if u.FailedLoginAttempts >= lm.policy.Threshold {
		until := lm.now().Add(lm.policy.Duration)
		u.IsLocked = true
		u.LockedUntil = &until
		return true
	}

	return false
}

// RegisterSuccess records a successful password verification: the failure
// counter resets and an elapsed lock is cleared.
func (lm *LockoutMachine) RegisterSuccess(u *User) {
	u.FailedLoginAttempts = 0

	if locked, _ := lm.Locked(u); !locked {
		u.IsLocked = false
		u.LockedUntil = nil
	}
}

// Unlock is the administrative transition: flag, timestamp, and counter are
// cleared unconditionally.
func (lm *LockoutMachine) Unlock(u *User) {
	u.IsLocked = false
	u.LockedUntil = nil
	u.FailedLoginAttempts = 0
}

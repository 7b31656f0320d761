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

// Users is the bun-backed user repository contract. The implementation
// layers the auth-specific finders and the version-guarded update on top of
// the generic repository; the embedded generic methods stay available on the
// struct but the interface exposes only the store contract, since the
// generic Create/Update signatures differ from the guarded ones.
type Users interface {
	UserStore
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users     = (*users)(nil)
	_ UserStore = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.findOne(ctx, "lower(?TableAlias.email) = lower(?)", email)
}

func (a *users) FindByMobile(ctx context.Context, mobile string) (*User, error) {
	return a.findOne(ctx, "?TableAlias.mobile = ?", mobile)
}

func (a *users) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.findOne(ctx, "?TableAlias.id = ?", id)
}

func (a *users) FindByRefreshToken(ctx context.Context, token string) (*User, error) {
	return a.findOne(ctx, "?TableAlias.refresh_token = ?", token)
}

func (a *users) findOne(ctx context.Context, where string, arg any) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where(where, arg).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"criteria": where,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, a.db, record)
}

// Update persists the record with an optimistic-concurrency guard: the row
// is written WHERE version matches what the caller read, and the version is
// incremented on success. Zero rows affected means a concurrent writer won
// the race and the caller gets ErrVersionConflict.
func (a *users) Update(ctx context.Context, record *User) (*User, error) {
	expected := record.Version
	record.Version = expected + 1
	now := time.Now()
	record.UpdatedAt = &now

	res, err := a.db.NewUpdate().
		Model(record).
		WherePK().
		Where("?TableAlias.version = ?", expected).
		Exec(ctx)

	if err != nil {
		record.Version = expected
		return nil, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		record.Version = expected
		return nil, err
	}
	if rows == 0 {
		record.Version = expected
		return nil, ErrVersionConflict
	}

	return record, nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Version == 0 {
		record.Version = 1
	}
}

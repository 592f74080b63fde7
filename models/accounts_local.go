package models

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"checkin/kv"
	"checkin/utils"
)

const KeyUsers = "users"

// LocalAccounts is the on-device account registry: one JSON array of accounts
// with bcrypt password hashes.
type LocalAccounts struct {
	kv  kv.Store
	mu  sync.Mutex
	now func() time.Time
}

var _ AccountRepository = (*LocalAccounts)(nil)

func NewLocalAccounts(store kv.Store) *LocalAccounts {
	return &LocalAccounts{kv: store, now: time.Now}
}

func sameEmail(a, b string) bool { return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) }

func (r *LocalAccounts) Create(ctx context.Context, a *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := loadList[Account](ctx, r.kv, KeyUsers)
	if err != nil {
		return err
	}
	for _, u := range users {
		if sameEmail(u.Email, a.Email) {
			return fmt.Errorf("account %s: %w", a.Email, ErrConflict)
		}
	}

	hashed, err := utils.HashPassword(a.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if a.ID == "" {
		a.ID = NewTimeOrderedID()
	}
	a.Password = hashed
	a.CreatedAt = r.now().UTC()

	return saveList(ctx, r.kv, KeyUsers, append(users, *a))
}

func (r *LocalAccounts) ValidateCredentials(ctx context.Context, email, plain string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := loadList[Account](ctx, r.kv, KeyUsers)
	if err != nil {
		return Account{}, err
	}
	for _, u := range users {
		if sameEmail(u.Email, email) {
			if !utils.CheckPasswordHash(plain, u.Password) {
				return Account{}, ErrInvalidCredentials
			}
			return u, nil
		}
	}
	return Account{}, ErrInvalidCredentials
}

func (r *LocalAccounts) GetByID(ctx context.Context, id string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := loadList[Account](ctx, r.kv, KeyUsers)
	if err != nil {
		return Account{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
}

func (r *LocalAccounts) UpdatePassword(ctx context.Context, id, plain string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := loadList[Account](ctx, r.kv, KeyUsers)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID == id {
			hashed, err := utils.HashPassword(plain)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			users[i].Password = hashed
			return saveList(ctx, r.kv, KeyUsers, users)
		}
	}
	return fmt.Errorf("account %s: %w", id, ErrNotFound)
}

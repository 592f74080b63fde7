package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"checkin/utils"
)

// uniqueViolation is the Postgres SQLSTATE for a UNIQUE constraint failure.
const uniqueViolation = "23505"

// AccountsSchema is applied by db.OpenPostgres; the UNIQUE email constraint is
// what turns a duplicate sign-up into ErrConflict.
const AccountsSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

type SQLAccounts struct {
	db      *sql.DB
	timeout time.Duration
}

var _ AccountRepository = (*SQLAccounts)(nil)

func NewSQLAccounts(db *sql.DB, timeout time.Duration) *SQLAccounts {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &SQLAccounts{db: db, timeout: timeout}
}

func (r *SQLAccounts) Create(ctx context.Context, a *Account) error {
	hashed, err := utils.HashPassword(a.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if a.ID == "" {
		a.ID = NewTimeOrderedID()
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO accounts(id, name, email, password) VALUES ($1,$2,lower($3),$4) RETURNING created_at`,
		a.ID, a.Name, a.Email, hashed,
	).Scan(&a.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("account %s: %w", a.Email, ErrConflict)
	}
	if err != nil {
		return unavailable("insert account", err)
	}
	a.Password = hashed
	return nil
}

func (r *SQLAccounts) ValidateCredentials(ctx context.Context, email, plain string) (Account, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var a Account
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password, created_at FROM accounts WHERE email = lower($1)`, email,
	).Scan(&a.ID, &a.Name, &a.Email, &a.Password, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, unavailable("select account", err)
	}
	if !utils.CheckPasswordHash(plain, a.Password) {
		return Account{}, ErrInvalidCredentials
	}
	return a, nil
}

func (r *SQLAccounts) GetByID(ctx context.Context, id string) (Account, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var a Account
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.Email, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Account{}, unavailable("select account", err)
	}
	return a, nil
}

func (r *SQLAccounts) UpdatePassword(ctx context.Context, id, plain string) error {
	hashed, err := utils.HashPassword(plain)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET password = $1 WHERE id = $2`, hashed, id)
	if err != nil {
		return unavailable("update account", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return nil
}

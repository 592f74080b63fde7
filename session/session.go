// Package session tracks who is signed in on this device.
//
// The signed-in identity survives restarts: it is kept under a fixed key in
// the same kv.Store the local records use. Callers must wait for Init (or the
// Ready channel) before trusting CurrentUser.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"checkin/kv"
	"checkin/models"
)

const KeyAuthUser = "auth_user"

// Identity is the part of an account a session remembers.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func identityOf(a models.Account) Identity {
	return Identity{ID: a.ID, Name: a.Name, Email: a.Email}
}

type Manager struct {
	accounts models.AccountRepository
	kv       kv.Store
	log      zerolog.Logger

	mu      sync.RWMutex
	user    *Identity
	ready   bool
	readyCh chan struct{}
}

func New(accounts models.AccountRepository, store kv.Store, log zerolog.Logger) *Manager {
	return &Manager{
		accounts: accounts,
		kv:       store,
		log:      log.With().Str("component", "session").Logger(),
		readyCh:  make(chan struct{}),
	}
}

// Init restores a persisted session. A missing or unreadable record leaves
// the manager signed out; in both cases the manager becomes ready. The read
// error, if any, is returned so the caller can report it.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ready {
		return nil
	}
	defer func() {
		m.ready = true
		close(m.readyCh)
	}()

	raw, ok, err := m.kv.Get(ctx, KeyAuthUser)
	if err != nil {
		return fmt.Errorf("restore session: %w: %w", models.ErrStorageUnavailable, err)
	}
	if !ok {
		return nil
	}
	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil || id.ID == "" {
		m.log.Warn().Err(err).Msg("discarding unreadable session record")
		return nil
	}
	m.user = &id
	m.log.Debug().Str("user", id.Email).Msg("session restored")
	return nil
}

// Ready is closed once Init has run.
func (m *Manager) Ready() <-chan struct{} { return m.readyCh }

func (m *Manager) IsReady() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

func (m *Manager) CurrentUser() (Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return Identity{}, false
	}
	return *m.user, true
}

func (m *Manager) SignIn(ctx context.Context, email, password string) (Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return Identity{}, models.ErrNotReady
	}

	acc, err := m.accounts.ValidateCredentials(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return Identity{}, fmt.Errorf("sign in: %w", err)
	}
	id := identityOf(acc)
	if err := m.persist(ctx, &id); err != nil {
		return Identity{}, err
	}
	m.log.Info().Str("user", id.Email).Msg("signed in")
	return id, nil
}

// SignUp registers an account and signs it in.
func (m *Manager) SignUp(ctx context.Context, name, email, password string) (Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return Identity{}, models.ErrNotReady
	}
	if err := models.ValidatePassword(password); err != nil {
		return Identity{}, fmt.Errorf("sign up: %w", err)
	}

	acc := models.Account{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email), Password: password}
	if err := m.accounts.Create(ctx, &acc); err != nil {
		return Identity{}, fmt.Errorf("sign up: %w", err)
	}
	id := identityOf(acc)
	if err := m.persist(ctx, &id); err != nil {
		return Identity{}, err
	}
	m.log.Info().Str("user", id.Email).Msg("account created")
	return id, nil
}

func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return models.ErrNotReady
	}
	return m.persist(ctx, nil)
}

// ChangePassword replaces the password of the signed-in account.
func (m *Manager) ChangePassword(ctx context.Context, password string) error {
	m.mu.RLock()
	ready, user := m.ready, m.user
	m.mu.RUnlock()
	if !ready {
		return models.ErrNotReady
	}
	if user == nil {
		return models.ErrUnauthenticated
	}
	if err := models.ValidatePassword(password); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := m.accounts.UpdatePassword(ctx, user.ID, password); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// EnsureAccount creates the account unless the e-mail is already taken.
// It does not touch the current session.
func (m *Manager) EnsureAccount(ctx context.Context, name, email, password string) error {
	acc := models.Account{Name: name, Email: email, Password: password}
	err := m.accounts.Create(ctx, &acc)
	if errors.Is(err, models.ErrConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed account %s: %w", email, err)
	}
	m.log.Info().Str("user", email).Msg("seeded account")
	return nil
}

// persist writes id as the current session, or clears it when id is nil.
// The in-memory state only changes once the write succeeded.
func (m *Manager) persist(ctx context.Context, id *Identity) error {
	if id == nil {
		if err := m.kv.Delete(ctx, KeyAuthUser); err != nil {
			return fmt.Errorf("clear session: %w: %w", models.ErrStorageUnavailable, err)
		}
		m.user = nil
		return nil
	}
	raw, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.kv.Set(ctx, KeyAuthUser, raw); err != nil {
		return fmt.Errorf("save session: %w: %w", models.ErrStorageUnavailable, err)
	}
	m.user = id
	return nil
}

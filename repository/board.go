package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Board is the in-memory presence projection an attendance screen renders.
// Toggle applies the change locally before persisting it; when persisting
// fails the optimistic value stays, the person is marked stale and the error
// is returned. Reload re-reads durable state and clears the stale set.
type Board struct {
	repo    *Repository
	eventID string

	mu      sync.Mutex
	present map[string]bool
	stale   map[string]error
}

func (r *Repository) OpenBoard(ctx context.Context, eventID string) (*Board, error) {
	b := &Board{repo: r, eventID: eventID, stale: map[string]error{}}
	if err := b.Reload(ctx); err != nil {
		return b, err
	}
	return b, nil
}

func (b *Board) EventID() string { return b.eventID }

func (b *Board) Present(personID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.present[personID]
}

// Snapshot copies the projection.
func (b *Board) Snapshot() map[string]bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]bool, len(b.present))
	for k, v := range b.present {
		out[k] = v
	}
	return out
}

func (b *Board) Toggle(ctx context.Context, personID string, present bool) error {
	b.mu.Lock()
	b.present[personID] = present
	b.mu.Unlock()

	_, err := b.repo.SetPresence(ctx, b.eventID, personID, present)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.stale[personID] = err
		return fmt.Errorf("toggle %s: %w", personID, err)
	}
	delete(b.stale, personID)
	return nil
}

// Stale lists people whose displayed value may differ from durable state.
func (b *Board) Stale() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.stale))
	for id := range b.stale {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (b *Board) Reload(ctx context.Context) error {
	m, err := b.repo.PresenceMap(ctx, b.eventID)
	if err != nil {
		b.mu.Lock()
		if b.present == nil {
			b.present = m
		}
		b.mu.Unlock()
		return err
	}
	b.mu.Lock()
	b.present = m
	b.stale = map[string]error{}
	b.mu.Unlock()
	return nil
}

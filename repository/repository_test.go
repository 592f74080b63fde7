package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin/kv"
	"checkin/models"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	store, err := kv.OpenSQLite(filepath.Join(t.TempDir(), "checkin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(models.NewLocalStore(store))
}

// flakyStore fails the operations whose switch is on.
type flakyStore struct {
	models.RecordStore
	failReads    bool
	failPresence bool
}

var errOffline = fmt.Errorf("offline: %w", models.ErrStorageUnavailable)

func (f *flakyStore) ListEvents(ctx context.Context) ([]models.Event, error) {
	if f.failReads {
		return nil, errOffline
	}
	return f.RecordStore.ListEvents(ctx)
}

func (f *flakyStore) ListPeopleByEvent(ctx context.Context, eventID string) ([]models.Person, error) {
	if f.failReads {
		return nil, errOffline
	}
	return f.RecordStore.ListPeopleByEvent(ctx, eventID)
}

func (f *flakyStore) ListAttendanceByEvent(ctx context.Context, eventID string) ([]models.Attendance, error) {
	if f.failReads {
		return nil, errOffline
	}
	return f.RecordStore.ListAttendanceByEvent(ctx, eventID)
}

func (f *flakyStore) SetPresence(ctx context.Context, eventID, personID string, present bool) (models.Attendance, error) {
	if f.failPresence {
		return models.Attendance{}, errOffline
	}
	return f.RecordStore.SetPresence(ctx, eventID, personID, present)
}

func TestCheckInScenario(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	date := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	ev, err := r.SaveEvent(ctx, models.EventPatch{Title: models.Ptr("Kickoff"), Date: &date})
	require.NoError(t, err)
	ana, err := r.SavePerson(ctx, models.PersonPatch{Name: models.Ptr("Ana"), EventID: &ev.ID})
	require.NoError(t, err)

	_, err = r.SetPresence(ctx, ev.ID, ana.ID, true)
	require.NoError(t, err)
	list, err := r.ListAttendanceByEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ev.ID, list[0].EventID)
	assert.Equal(t, ana.ID, list[0].PersonID)
	assert.True(t, list[0].Present)

	_, err = r.SetPresence(ctx, ev.ID, ana.ID, false)
	require.NoError(t, err)
	list, err = r.ListAttendanceByEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Present)
}

func TestSaveEventDefaults(t *testing.T) {
	r := newRepo(t)
	fixed := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	e, err := r.SaveEvent(context.Background(), models.EventPatch{})
	require.NoError(t, err)
	assert.Equal(t, "", e.Title)
	assert.True(t, fixed.Equal(e.Date))
}

func TestSaveEventMergesOntoExisting(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	e, err := r.SaveEvent(ctx, models.EventPatch{Title: models.Ptr("Launch")})
	require.NoError(t, err)
	updated, err := r.SaveEvent(ctx, models.EventPatch{ID: e.ID, Location: models.Ptr("Hall")})
	require.NoError(t, err)
	assert.Equal(t, "Launch", updated.Title)
	assert.Equal(t, "Hall", updated.Location)
	assert.True(t, e.Date.Equal(updated.Date), "date must survive a partial update")
}

func TestSetPhotoOnlyTouchesPhoto(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	p, err := r.SavePerson(ctx, models.PersonPatch{Name: models.Ptr("Ana"), Phone: models.Ptr("555"), EventID: models.Ptr("E1")})
	require.NoError(t, err)
	p, err = r.SetPhoto(ctx, p.ID, "s3://bucket/people/ana.jpg")
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.Name)
	assert.Equal(t, "555", p.Phone)
	assert.Equal(t, "E1", p.EventID)
	assert.Equal(t, "s3://bucket/people/ana.jpg", p.PhotoURI)
}

func TestListPeopleByEventExcludesOthers(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	_, err := r.SavePerson(ctx, models.PersonPatch{Name: models.Ptr("Ana"), EventID: models.Ptr("E1")})
	require.NoError(t, err)
	_, err = r.SavePerson(ctx, models.PersonPatch{Name: models.Ptr("Bia"), EventID: models.Ptr("E2")})
	require.NoError(t, err)
	_, err = r.SavePerson(ctx, models.PersonPatch{Name: models.Ptr("Caio")})
	require.NoError(t, err)

	people, err := r.ListPeopleByEvent(ctx, "E1")
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "Ana", people[0].Name)
}

func TestRosterJoinsPresence(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	ana, err := r.SavePerson(ctx, models.PersonPatch{Name: models.Ptr("Ana"), EventID: models.Ptr("E1")})
	require.NoError(t, err)
	bia, err := r.SavePerson(ctx, models.PersonPatch{Name: models.Ptr("Bia"), EventID: models.Ptr("E1")})
	require.NoError(t, err)
	_, err = r.SetPresence(ctx, "E1", ana.ID, true)
	require.NoError(t, err)

	roster, err := r.Roster(ctx, "E1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	byID := map[string]bool{}
	for _, entry := range roster {
		byID[entry.Person.ID] = entry.Present
	}
	assert.True(t, byID[ana.ID])
	assert.False(t, byID[bia.ID])
}

func TestReadsFailOpen(t *testing.T) {
	r := newRepo(t)
	flaky := &flakyStore{RecordStore: r.store, failReads: true}
	r = New(flaky)

	events, err := r.ListEvents(context.Background())
	require.ErrorIs(t, err, models.ErrStorageUnavailable)
	require.NotNil(t, events)
	assert.Empty(t, events)

	roster, err := r.Roster(context.Background(), "E1")
	require.ErrorIs(t, err, models.ErrStorageUnavailable)
	require.NotNil(t, roster)
}

func TestWritesPropagateFailure(t *testing.T) {
	r := newRepo(t)
	r = New(&flakyStore{RecordStore: r.store, failPresence: true})

	_, err := r.SetPresence(context.Background(), "E1", "P1", true)
	require.ErrorIs(t, err, models.ErrStorageUnavailable)
}

func TestDeleteUnsupportedOnLocalStore(t *testing.T) {
	r := newRepo(t)
	err := r.DeleteEvent(context.Background(), "E1")
	require.True(t, errors.Is(err, models.ErrUnsupported))
}

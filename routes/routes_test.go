package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"checkin/kv"
	"checkin/middlewares"
	"checkin/models"
	"checkin/photos"
	"checkin/repository"
	"checkin/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.PasswordCost = bcrypt.MinCost
	m.Run()
}

type env struct {
	t      *testing.T
	s      *gin.Engine
	store  *models.LocalStore
	mr     *miniredis.Miniredis
	photos string
}

type option func(*Deps)

func newEnv(t *testing.T, wrap func(models.RecordStore) models.RecordStore, opts ...option) *env {
	t.Helper()
	db, err := kv.OpenSQLite(filepath.Join(t.TempDir(), "checkin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	local := models.NewLocalStore(db)
	var store models.RecordStore = local
	if wrap != nil {
		store = wrap(local)
	}

	mr := miniredis.RunT(t)
	photoDir := t.TempDir()
	fsPhotos, err := photos.NewFS(photoDir)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()

	d := Deps{
		Repo:     repository.New(store),
		Accounts: models.NewLocalAccounts(db),
		Signer:   utils.NewTokenSigner("test-secret", time.Hour),
		Photos:   fsPhotos,
		Redis:    redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		Metrics:  middlewares.NewMetrics(reg),
		Gatherer: reg,
		Log:      zerolog.Nop(),
		CacheTTL: time.Minute,
	}
	for _, opt := range opts {
		opt(&d)
	}

	s := gin.New()
	RegisterRoutes(t.Context(), s, d)
	return &env{t: t, s: s, store: local, mr: mr, photos: photoDir}
}

func (e *env) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var r *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(b)
	} else {
		r = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.s.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (e *env) login() string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/signup", gin.H{"name": "Ana", "email": "ana@example.com", "password": "secret1"}, "")
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	w = e.do(http.MethodPost, "/login", gin.H{"email": "ana@example.com", "password": "secret1"}, "")
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	return decode[struct {
		Token string `json:"token"`
	}](e.t, w).Token
}

type eventResp struct {
	Event models.Event `json:"event"`
}

type personResp struct {
	Person models.Person `json:"person"`
}

func TestAccountFlow(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(http.MethodPost, "/signup", gin.H{"email": "ana@example.com", "password": "123"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "at least 6")

	token := e.login()

	w = e.do(http.MethodPost, "/signup", gin.H{"email": "ANA@example.com", "password": "secret1"}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(http.MethodPost, "/login", gin.H{"email": "ana@example.com", "password": "nope-nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodGet, "/account", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana@example.com", decode[accountView](t, w).Email)
	assert.NotContains(t, w.Body.String(), "password")

	w = e.do(http.MethodPut, "/account/password", gin.H{"currentPassword": "wrong", "password": "newsecret"}, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = e.do(http.MethodPut, "/account/password", gin.H{"currentPassword": "secret1", "password": "newsecret"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = e.do(http.MethodPost, "/login", gin.H{"email": "ana@example.com", "password": "newsecret"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	e := newEnv(t, nil)
	for _, path := range []string{"/account", "/people", "/events/E1/roster"} {
		w := e.do(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := e.do(http.MethodPost, "/events", gin.H{"title": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckInOverHTTP(t *testing.T) {
	e := newEnv(t, nil)
	token := e.login()

	w := e.do(http.MethodPost, "/events", gin.H{"title": "Kickoff", "date": "2024-01-01T10:00:00Z"}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ev := decode[eventResp](t, w).Event
	assert.True(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC).Equal(ev.Date))

	w = e.do(http.MethodPost, "/people", gin.H{"name": "Ana", "eventId": ev.ID}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ana := decode[personResp](t, w).Person

	for _, present := range []bool{true, false} {
		w = e.do(http.MethodPut, "/events/"+ev.ID+"/attendance/"+ana.ID, gin.H{"present": present}, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = e.do(http.MethodGet, "/events/"+ev.ID+"/attendance", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		list := decode[[]models.Attendance](t, w)
		require.Len(t, list, 1)
		assert.Equal(t, present, list[0].Present)
	}

	w = e.do(http.MethodGet, "/events/"+ev.ID+"/roster", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	roster := decode[[]repository.RosterEntry](t, w)
	require.Len(t, roster, 1)
	assert.Equal(t, "Ana", roster[0].Person.Name)
	assert.False(t, roster[0].Present)

	w = e.do(http.MethodGet, "/events/"+ev.ID+"/people", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Person](t, w), 1)

	w = e.do(http.MethodPut, "/events/"+ev.ID+"/attendance/"+ana.ID, gin.H{}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "present is required")
}

func TestEventValidationAndMerge(t *testing.T) {
	e := newEnv(t, nil)
	token := e.login()

	w := e.do(http.MethodPost, "/events", gin.H{"location": "Hall"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/events", gin.H{"title": "Launch"}, token)
	require.Equal(t, http.StatusCreated, w.Code)
	ev := decode[eventResp](t, w).Event
	assert.False(t, ev.Date.IsZero(), "date defaults to now")

	w = e.do(http.MethodPut, "/events/"+ev.ID, gin.H{"location": "Hall"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[eventResp](t, w).Event
	assert.Equal(t, "Launch", got.Title)
	assert.Equal(t, "Hall", got.Location)

	w = e.do(http.MethodPut, "/events/"+ev.ID, gin.H{"title": ""}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPut, "/events/missing", gin.H{"title": "x"}, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodGet, "/events/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodDelete, "/events/"+ev.ID, nil, token)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

type deletingStore struct {
	models.RecordStore
	deleted []string
}

func (d *deletingStore) DeleteEvent(_ context.Context, id string) error {
	if id == "missing" {
		return fmt.Errorf("event %s: %w", id, models.ErrNotFound)
	}
	d.deleted = append(d.deleted, id)
	return nil
}

func TestDeleteEventWhenSupported(t *testing.T) {
	ds := &deletingStore{}
	e := newEnv(t, func(s models.RecordStore) models.RecordStore { ds.RecordStore = s; return ds })
	token := e.login()

	w := e.do(http.MethodDelete, "/events/E1", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"E1"}, ds.deleted)

	w = e.do(http.MethodDelete, "/events/missing", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type downStore struct{ models.RecordStore }

var errDown = fmt.Errorf("read events: %w", models.ErrStorageUnavailable)

func (downStore) ListEvents(context.Context) ([]models.Event, error) { return nil, errDown }
func (downStore) GetEvent(context.Context, string) (models.Event, bool, error) {
	return models.Event{}, false, errDown
}
func (downStore) ListPeople(context.Context) ([]models.Person, error) { return nil, errDown }
func (downStore) SetPresence(context.Context, string, string, bool) (models.Attendance, error) {
	return models.Attendance{}, errDown
}

func TestStorageFailureDegradesLists(t *testing.T) {
	e := newEnv(t, func(s models.RecordStore) models.RecordStore { return downStore{s} })
	token := e.login()

	w := e.do(http.MethodGet, "/events", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "storage-unavailable", w.Header().Get(middlewares.DegradedHeader))
	assert.JSONEq(t, "[]", w.Body.String())

	w = e.do(http.MethodGet, "/people", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = e.do(http.MethodGet, "/events/E1", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = e.do(http.MethodPut, "/events/E1/attendance/P1", gin.H{"present": true}, token)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = e.do(http.MethodGet, "/metrics", nil, "")
	assert.Contains(t, w.Body.String(), `checkin_presence_updates_total{present="true",result="error"} 1`)
}

func TestEventListCacheIsPurgedOnWrite(t *testing.T) {
	e := newEnv(t, nil)
	token := e.login()

	w := e.do(http.MethodGet, "/events", nil, "")
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	w = e.do(http.MethodGet, "/events", nil, "")
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.JSONEq(t, "[]", w.Body.String())

	w = e.do(http.MethodPost, "/events", gin.H{"title": "Kickoff"}, token)
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(http.MethodGet, "/events", nil, "")
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Len(t, decode[[]models.Event](t, w), 1)
}

func TestPeopleFilterAndUpdate(t *testing.T) {
	e := newEnv(t, nil)
	token := e.login()

	e.do(http.MethodPost, "/people", gin.H{"name": "Ana", "eventId": "E1"}, token)
	w := e.do(http.MethodPost, "/people", gin.H{"name": "Bia", "eventId": "E2", "phone": "555"}, token)
	bia := decode[personResp](t, w).Person

	w = e.do(http.MethodPost, "/people", gin.H{"name": "Caio", "email": "not-an-email"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, "/people?eventId=E1", nil, token)
	people := decode[[]models.Person](t, w)
	require.Len(t, people, 1)
	assert.Equal(t, "Ana", people[0].Name)

	w = e.do(http.MethodPut, "/people/"+bia.ID, gin.H{"eventId": "E1"}, token)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[personResp](t, w).Person
	assert.Equal(t, "555", got.Phone)
	assert.Equal(t, "E1", got.EventID)

	w = e.do(http.MethodGet, "/people/"+bia.ID, nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(http.MethodGet, "/people/missing", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadPhoto(t *testing.T) {
	e := newEnv(t, nil)
	token := e.login()
	w := e.do(http.MethodPost, "/people", gin.H{"name": "Ana", "phone": "555"}, token)
	ana := decode[personResp](t, w).Person

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("photo", "ana.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/people/"+ana.ID+"/photo", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[personResp](t, rec).Person
	assert.True(t, strings.HasPrefix(got.PhotoURI, "file://"), got.PhotoURI)
	assert.Contains(t, got.PhotoURI, "/people/"+ana.ID+"/")
	assert.Equal(t, "555", got.Phone)

	w = e.do(http.MethodPost, "/people/"+ana.ID+"/photo", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadPhotoWithoutStore(t *testing.T) {
	e := newEnv(t, nil, func(d *Deps) { d.Photos = nil })
	token := e.login()
	w := e.do(http.MethodPost, "/people/P1/photo", nil, token)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestEventICS(t *testing.T) {
	e := newEnv(t, nil)
	token := e.login()
	w := e.do(http.MethodPost, "/events", gin.H{"title": "Kickoff", "date": "2024-01-01T10:00:00Z", "location": "Hall"}, token)
	ev := decode[eventResp](t, w).Event

	w = e.do(http.MethodGet, "/events/"+ev.ID+"/ics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, w.Body.String(), "SUMMARY:Kickoff")
	assert.Contains(t, w.Body.String(), "DTSTART:20240101T100000Z")
}

func TestWorksWithoutRedis(t *testing.T) {
	e := newEnv(t, nil, func(d *Deps) { d.Redis = nil })
	w := e.do(http.MethodGet, "/events", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Cache"))
	assert.Empty(t, e.mr.Keys())
}

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("x: %w", models.ErrNotFound):                        http.StatusNotFound,
		fmt.Errorf("x: %w", models.ErrConflict):                        http.StatusConflict,
		models.ErrWeakPassword:                                         http.StatusBadRequest,
		models.ErrInvalidCredentials:                                   http.StatusUnauthorized,
		models.ErrUnsupported:                                          http.StatusNotImplemented,
		fmt.Errorf("a: %w: %w", models.ErrStorageUnavailable, errDown): http.StatusServiceUnavailable,
		fmt.Errorf("boom"):                                             http.StatusInternalServerError,
	}
	for err, want := range cases {
		got, _ := statusOf(err)
		assert.Equal(t, want, got, err.Error())
	}
}

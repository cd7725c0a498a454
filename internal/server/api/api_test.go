package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mjolnir/internal/hand"
	"github.com/ayusman/mjolnir/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedThrows(t *testing.T, s *store.Store, n int) []*store.Throw {
	t.Helper()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	var out []*store.Throw
	for i := 0; i < n; i++ {
		th := &store.Throw{
			ObjectID:   "obj",
			Side:       hand.Right,
			Kind:       "hammer",
			Linear:     mgl64.Vec3{0, 0, float64(i + 1)},
			Speed:      float64(i + 1),
			Samples:    10,
			ReleasedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, s.Throws().Create(th))
		out = append(out, th)
	}
	return out
}

func do(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestThrowHandler_List(t *testing.T) {
	s := newTestStore(t)
	seedThrows(t, s, 3)
	h := NewThrowHandler(s)

	rec := do(t, h, http.MethodGet, "/api/throws", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listThrowsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Throws, 3)
	assert.Equal(t, 3.0, resp.Throws[0].Speed, "newest first")

	rec = do(t, h, http.MethodGet, "/api/throws?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Throws, 1)

	for _, bad := range []string{"0", "-2", "many"} {
		rec = do(t, h, http.MethodGet, "/api/throws?limit="+bad, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", bad)
	}

	rec = do(t, h, http.MethodPost, "/api/throws", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestThrowHandler_ListEmpty(t *testing.T) {
	h := NewThrowHandler(newTestStore(t))

	rec := do(t, h, http.MethodGet, "/api/throws", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"throws":[]}`, rec.Body.String())
}

func TestThrowHandler_GetDelete(t *testing.T) {
	s := newTestStore(t)
	throws := seedThrows(t, s, 1)
	h := NewThrowHandler(s)
	id := throws[0].ID

	rec := do(t, h, http.MethodGet, "/api/throws/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got store.Throw
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, hand.Right, got.Side)

	rec = do(t, h, http.MethodDelete, "/api/throws/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/throws/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/throws/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/throws/"+id, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestThrowHandler_Stats(t *testing.T) {
	s := newTestStore(t)
	seedThrows(t, s, 4)
	h := NewThrowHandler(s)

	rec := do(t, h, http.MethodGet, "/api/throws/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats store.ThrowStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 4, stats.Count)
	assert.Equal(t, 4.0, stats.MaxSpeed)
	assert.InDelta(t, 2.5, stats.AvgSpeed, 1e-9)
	assert.Equal(t, 4, stats.BySide["right"])
}

type recordingApplier struct {
	applied map[string]string
	err     error
}

func (a *recordingApplier) ApplySetting(key, value string) error {
	if a.err != nil {
		return a.err
	}
	if a.applied == nil {
		a.applied = map[string]string{}
	}
	a.applied[key] = value
	return nil
}

func TestSettingsHandler_PutAndGet(t *testing.T) {
	s := newTestStore(t)
	applier := &recordingApplier{}
	h := NewSettingsHandler(s, applier)

	rec := do(t, h, http.MethodPut, "/api/settings/"+store.SettingObjectKind, []byte(`{"value":"axe"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"key":"object.kind","value":"axe"}`, rec.Body.String())
	assert.Equal(t, "axe", applier.applied[store.SettingObjectKind])

	rec = do(t, h, http.MethodGet, "/api/settings/"+store.SettingObjectKind, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"key":"object.kind","value":"axe"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"object.kind":"axe"}`, rec.Body.String())
}

func TestSettingsHandler_Rejects(t *testing.T) {
	s := newTestStore(t)
	h := NewSettingsHandler(s, &recordingApplier{})

	rec := do(t, h, http.MethodPut, "/api/settings/"+store.SettingObjectKind, []byte(`{"value":"anvil"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unknown object kind")

	rec = do(t, h, http.MethodPut, "/api/settings/x", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	failing := NewSettingsHandler(s, &recordingApplier{err: errors.New("tracking.enabled: invalid syntax")})
	rec = do(t, failing, http.MethodPut, "/api/settings/"+store.SettingTracking, []byte(`{"value":"perhaps"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, err := s.Settings().Get(store.SettingTracking)
	assert.ErrorIs(t, err, store.ErrNotFound, "rejected values are not stored")

	rec = do(t, h, http.MethodGet, "/api/settings/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/settings/x", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/settings", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

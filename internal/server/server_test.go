package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mjolnir/internal/grip"
	"github.com/ayusman/mjolnir/internal/hand"
	"github.com/ayusman/mjolnir/internal/physics"
)

type fakeStatus struct{}

func (fakeStatus) IsEnabled() bool { return true }
func (fakeStatus) Frames() int     { return 42 }

func TestServer_Health(t *testing.T) {
	s := New(Config{Status: fakeStatus{}})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "ok", response["status"])
		assert.Contains(t, response, "uptime")
		assert.Equal(t, true, response["tracking"])
		assert.Equal(t, 42.0, response["frames"])
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "method %s", method)
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/nonexistent", "/api/throws", "/api/bodies", "/api/events", "/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code, "path %s", path)
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()
	testContent := "<html><body>Mjolnir</body></html>"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0o644))

	s := New(Config{StaticDir: tmpDir})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testContent, rec.Body.String())
}

func TestServer_Kinds(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/kinds", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var response struct {
		Kinds []physics.Kind `json:"kinds"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	require.Len(t, response.Kinds, 3)
	assert.Equal(t, "axe", response.Kinds[0].Name)
	assert.Equal(t, 1.5, response.Kinds[2].Mass)
}

func TestServer_Bodies(t *testing.T) {
	world := physics.NewWorld(physics.DefaultConfig(), nil)
	id, err := world.Spawn(context.Background(), "ball")
	require.NoError(t, err)
	world.Follow(id, hand.Transform{Position: mgl64.Vec3{0, 1, 0}, Orientation: mgl64.QuatIdent()})

	s := New(Config{Bodies: world})

	req := httptest.NewRequest(http.MethodGet, "/api/bodies", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var response struct {
		Bodies []physics.Body `json:"bodies"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	require.Len(t, response.Bodies, 1)
	assert.Equal(t, id, response.Bodies[0].ID)
	assert.True(t, response.Bodies[0].Held)
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, response.Bodies[0].Position)
}

func TestHub_Publish(t *testing.T) {
	hub := NewHub(nil)
	ts := httptest.NewServer(New(Config{Hub: hub}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(grip.Event{Type: grip.EventGrip, Side: hand.Left, Kind: "axe", Timestamp: 1.5})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got grip.Event
	require.NoError(t, conn.ReadJSON(&got))

	assert.Equal(t, grip.EventGrip, got.Type)
	assert.Equal(t, hand.Left, got.Side)
	assert.Equal(t, "axe", got.Kind)
	assert.Equal(t, 1.5, got.Timestamp)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PublishWithoutClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Publish(grip.Event{Type: grip.EventRelease})
	assert.Equal(t, 0, hub.Clients())
}

func TestServer_ListenAndServeShutdown(t *testing.T) {
	s := New(Config{Hub: NewHub(nil)})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

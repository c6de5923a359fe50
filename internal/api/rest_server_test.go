package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/game"
	"github.com/annel0/blockverse/internal/input"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

// fakeSimulation записывает команды вместо выполнения тиков
type fakeSimulation struct {
	mu       sync.Mutex
	frame    game.Frame
	chunks   map[vec.Vec2]world.Heights
	events   []input.Event
	facing   *vec.Vec3Float
	settings *game.Settings
}

func newFakeSimulation() *fakeSimulation {
	hf := world.NewHeightField(5)
	return &fakeSimulation{
		frame: game.Frame{
			Tick:           12,
			Position:       vec.Vec3Float{X: 1, Y: 33.8, Z: -2},
			Grounded:       true,
			Facing:         input.DefaultFacing,
			CenterChunk:    vec.Vec2{X: 0, Y: -1},
			ResidentChunks: 2,
			Settings:       game.DefaultSettings(),
		},
		chunks: map[vec.Vec2]world.Heights{
			{X: 0, Y: -1}:  hf.GenerateHeights(vec.Vec2{X: 0, Y: -1}),
			{X: -1, Y: -1}: hf.GenerateHeights(vec.Vec2{X: -1, Y: -1}),
		},
	}
}

func (f *fakeSimulation) Seed() int64       { return 5 }
func (f *fakeSimulation) Frame() game.Frame { return f.frame }

func (f *fakeSimulation) ResidentKeys() []vec.Vec2 {
	keys := make([]vec.Vec2, 0, len(f.chunks))
	for k := range f.chunks {
		keys = append(keys, k)
	}
	world.SortKeys(keys)
	return keys
}

func (f *fakeSimulation) ChunkHeights(key vec.Vec2) (world.Heights, bool) {
	h, ok := f.chunks[key]
	return h, ok
}

func (f *fakeSimulation) Submit(events ...input.Event) {
	f.mu.Lock()
	f.events = append(f.events, events...)
	f.mu.Unlock()
}

func (f *fakeSimulation) SetFacing(dir vec.Vec3Float) error {
	if dir == (vec.Vec3Float{}) {
		return input.ErrInvalidFacing
	}
	f.facing = &dir
	return nil
}

func (f *fakeSimulation) UpdateSettings(settings game.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	f.settings = &settings
	return nil
}

func newTestServer(t *testing.T) (*RestServer, *fakeSimulation, *protocol.ChunkCodec) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	codec, err := protocol.NewChunkCodec()
	require.NoError(t, err)
	t.Cleanup(codec.Close)

	sim := newFakeSimulation()
	rs := NewRestServer(Config{
		Simulation: sim,
		Codec:      codec,
		WorldID:    "world-test",
		Registerer: prometheus.NewRegistry(),
		Logger:     logging.NewWriterLogger("api-test", io.Discard, logging.ERROR),
	})
	return rs, sim, codec
}

func do(rs *RestServer, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	rs.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) GenericResponse {
	t.Helper()
	var resp GenericResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	rs, _, _ := newTestServer(t)
	w := do(rs, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	proc, ok := body["process"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, proc, "uptime")
	assert.Contains(t, proc, "rss_mb")
	assert.Greater(t, proc["goroutines"], float64(0))
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5с"},
		{2*time.Minute + 3*time.Second, "2м 3с"},
		{3*time.Hour + 4*time.Second, "3ч 0м 4с"},
		{50 * time.Hour, "2д 2ч 0м 0с"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatUptime(tt.d))
	}
}

func TestServerInfo(t *testing.T) {
	rs, _, _ := newTestServer(t)
	w := do(rs, http.MethodGet, "/api/server", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := decode(t, w).Data.(map[string]any)
	assert.Equal(t, "world-test", data["world_id"])
	assert.Equal(t, float64(5), data["seed"])
	assert.Equal(t, float64(12), data["tick"])
}

func TestPlayer(t *testing.T) {
	rs, sim, _ := newTestServer(t)
	w := do(rs, http.MethodGet, "/api/player", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data game.Frame `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, sim.frame, resp.Data)
}

func TestInput(t *testing.T) {
	rs, sim, _ := newTestServer(t)

	w := do(rs, http.MethodPost, "/api/input",
		`{"events":[{"action":"pointer_lock","pressed":true},{"action":"move_forward","pressed":true}],"facing":{"x":1,"y":0,"z":0}}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	assert.Equal(t, []input.Event{
		{Action: input.ActionPointerLock, Pressed: true},
		{Action: input.ActionMoveForward, Pressed: true},
	}, sim.events)
	require.NotNil(t, sim.facing)
	assert.Equal(t, vec.Vec3Float{X: 1}, *sim.facing)
}

func TestInput_Rejected(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"events":`},
		{"empty", `{}`},
		{"unknown action", `{"events":[{"action":"fly","pressed":true}]}`},
		{"zero facing", `{"facing":{"x":0,"y":0,"z":0}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, sim, _ := newTestServer(t)
			w := do(rs, http.MethodPost, "/api/input", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, decode(t, w).Success)
			assert.Empty(t, sim.events, "отклонённый запрос не применяется")
		})
	}
}

func TestSettings(t *testing.T) {
	rs, sim, _ := newTestServer(t)

	w := do(rs, http.MethodPut, "/api/settings", `{"fov":90,"render_distance":6}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.NotNil(t, sim.settings)
	assert.Equal(t, game.Settings{FOV: 90, RenderDistance: 6}, *sim.settings)

	w = do(rs, http.MethodPut, "/api/settings", `{"fov":20,"render_distance":6}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(rs, http.MethodPut, "/api/settings", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(rs, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]any)
	assert.Equal(t, float64(game.DefaultSettings().RenderDistance), data["render_distance"])
}

func TestChunks(t *testing.T) {
	rs, _, _ := newTestServer(t)
	w := do(rs, http.MethodGet, "/api/chunks", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Center [2]int   `json:"center"`
			Chunks [][2]int `json:"chunks"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, [2]int{0, -1}, resp.Data.Center)
	assert.Equal(t, [][2]int{{-1, -1}, {0, -1}}, resp.Data.Chunks)
}

func TestChunk(t *testing.T) {
	rs, sim, codec := newTestServer(t)
	key := vec.Vec2{X: -1, Y: -1}

	w := do(rs, http.MethodGet, "/api/chunks/-1/-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data ChunkResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	want := sim.chunks[key]
	assert.Equal(t, want[:], resp.Data.Heights)

	w = do(rs, http.MethodGet, "/api/chunks/-1/-1?format=binary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	gotKey, heights, err := codec.DecodeChunk(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, key, gotKey)
	assert.Equal(t, want, heights)

	assert.Equal(t, http.StatusNotFound, do(rs, http.MethodGet, "/api/chunks/9/9", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(rs, http.MethodGet, "/api/chunks/a/1", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	rs, _, _ := newTestServer(t)
	w := do(rs, http.MethodOptions, "/api/input", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	rs, _, _ := newTestServer(t)
	do(rs, http.MethodGet, "/api/player", "")

	w := do(rs, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rest_api_http_request_duration_seconds")
}

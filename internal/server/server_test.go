package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/taskhub/internal/config"
	"github.com/jonathan/taskhub/internal/preferences"
	"github.com/jonathan/taskhub/internal/server/ratelimit"
	"github.com/jonathan/taskhub/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPersistence struct{}

func (failingPersistence) Load(context.Context, string) (string, bool, error) { return "", false, nil }
func (failingPersistence) Save(context.Context, string, string) error {
	return errors.New("disk full")
}

// flakyPersistence fails the first failLoads reads, then delegates to a memory store.
type flakyPersistence struct {
	*preferences.MemoryPersistence
	mu        sync.Mutex
	failLoads int
}

func (f *flakyPersistence) Load(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	fail := f.failLoads > 0
	if fail {
		f.failLoads--
	}
	f.mu.Unlock()
	if fail {
		return "", false, errors.New("connection reset")
	}
	return f.MemoryPersistence.Load(ctx, key)
}

type testServer struct {
	*Server
	handler http.Handler
	token   string
	userID  uuid.UUID
}

func newTestServer(t *testing.T, persistence preferences.Persistence) *testServer {
	t.Helper()
	s, err := New(Config{
		JWT:         &config.JWTConfig{Secret: testSecret, ExpirationHours: 1, Issuer: config.DefaultJWTIssuer},
		RateLimit:   &ratelimit.Config{Enabled: false},
		Persistence: persistence,
	})
	require.NoError(t, err)
	t.Cleanup(s.rateLimiter.Stop)

	userID := uuid.New()
	token, err := s.JWT().GenerateToken(userID)
	require.NoError(t, err)

	return &testServer{Server: s, handler: s.Handler(), token: token, userID: userID}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return ts.doAs(t, ts.token, method, path, body)
}

func (ts *testServer) doAs(t *testing.T, token, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestNew_RequiresJWT(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHealthEndpoint_NoAuth(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.doAs(t, "", http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody[map[string]string](t, w)["status"])
}

func TestProtectedEndpoints_RequireToken(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, path := range []string{"/models", "/tasks", "/preferences"} {
		w := ts.doAs(t, "", http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)

		w = ts.doAs(t, "forged", http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.doAs(t, "", http.MethodOptions, "/preferences/resume_analysis", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestModelsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/models", "")
	require.Equal(t, http.StatusOK, w.Code)

	groups := decodeBody[[]ProviderModels](t, w)
	require.NotEmpty(t, groups)
	assert.Equal(t, ts.catalog.Providers()[0], groups[0].Provider)

	total := 0
	for _, g := range groups {
		for _, m := range g.Models {
			assert.Equal(t, g.Provider, m.Provider)
			total++
		}
	}
	assert.Equal(t, len(ts.catalog.All()), total)
}

func TestTasksEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)

	tasks := decodeBody[[]TaskInfo](t, w)
	require.Len(t, tasks, len(types.AllTasks))
	assert.Equal(t, types.TaskResumeAnalysis, tasks[0].ID)
	assert.Equal(t, "Resume Analysis", tasks[0].Name)
	assert.Equal(t, types.InputFile, tasks[0].Input)
	assert.Equal(t, "gpt-4o", tasks[0].DefaultModel)
	assert.Equal(t, "gpt-4o", tasks[0].SelectedModel)
}

func TestEstimateEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/estimate", `{"task": "resume_analysis", "content_size": 102400, "model": "gpt-4o"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeBody[EstimateResponse](t, w)
	assert.Equal(t, 45, resp.Credits)
	assert.Equal(t, "gpt-4o", resp.ModelID)
	assert.Nil(t, resp.Sufficient)
}

func TestEstimateEndpoint_UsesSelectedModel(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPut, "/preferences/resume_analysis", `{"model": "claude-3-haiku"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/estimate", `{"task": "resume_analysis", "content_size": 102400}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody[EstimateResponse](t, w)
	assert.Equal(t, "claude-3-haiku", resp.ModelID)
	assert.Equal(t, 5, resp.Credits) // ceil(4500/1000 * 1)
}

func TestEstimateEndpoint_Balance(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/estimate", `{"task": "resume_analysis", "content_size": 102400, "model": "gpt-4o", "balance": 45}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[EstimateResponse](t, w)
	require.NotNil(t, resp.Sufficient)
	assert.True(t, *resp.Sufficient)

	w = ts.do(t, http.MethodPost, "/estimate", `{"task": "resume_analysis", "content_size": 102400, "model": "gpt-4o", "balance": 10}`)
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	body := decodeBody[map[string]any](t, w)
	assert.Equal(t, "insufficient_credits", body["error"])
	assert.Equal(t, float64(45), body["required"])
	assert.Equal(t, float64(10), body["available"])
}

func TestEstimateEndpoint_BadRequests(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{not json`},
		{name: "unknown task", body: `{"task": "translation", "content_size": 10}`},
		{name: "missing task", body: `{"content_size": 10}`},
		{name: "negative size", body: `{"task": "custom_prompt", "content_size": -1}`},
		{name: "negative balance", body: `{"task": "custom_prompt", "content_size": 1, "balance": -5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/estimate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "invalid_request", decodeBody[map[string]string](t, w)["error"])
		})
	}
}

func TestPreferencesEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/preferences", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, preferences.Defaults(), decodeBody[types.PreferenceMap](t, w))

	w = ts.do(t, http.MethodPut, "/preferences/custom_prompt", `{"model": "claude-3-opus"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "claude-3-opus", decodeBody[types.PreferenceMap](t, w)[types.TaskCustomPrompt])

	w = ts.do(t, http.MethodGet, "/preferences", "")
	assert.Equal(t, "claude-3-opus", decodeBody[types.PreferenceMap](t, w)[types.TaskCustomPrompt])

	w = ts.do(t, http.MethodDelete, "/preferences", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, preferences.Defaults(), decodeBody[types.PreferenceMap](t, w))
}

func TestPreferencesEndpoints_Errors(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPut, "/preferences/translation", `{"model": "gpt-4o"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPut, "/preferences/custom_prompt", `{"model": "gpt-9"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, "/preferences/custom_prompt", `{"model": ""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, "/preferences/custom_prompt", `[]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreferencesEndpoints_SaveFailure(t *testing.T) {
	ts := newTestServer(t, failingPersistence{})

	w := ts.do(t, http.MethodPut, "/preferences/custom_prompt", `{"model": "claude-3-opus"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk full")

	w = ts.do(t, http.MethodGet, "/preferences", "")
	assert.Equal(t, "gpt-4o-mini", decodeBody[types.PreferenceMap](t, w)[types.TaskCustomPrompt])
}

func TestPreferences_IsolatedPerUser(t *testing.T) {
	persistence := preferences.NewMemoryPersistence()
	ts := newTestServer(t, persistence)

	other, err := ts.JWT().GenerateToken(uuid.New())
	require.NoError(t, err)

	w := ts.do(t, http.MethodPut, "/preferences/custom_prompt", `{"model": "claude-3-opus"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.doAs(t, other, http.MethodGet, "/preferences", "")
	assert.Equal(t, "gpt-4o-mini", decodeBody[types.PreferenceMap](t, w)[types.TaskCustomPrompt])

	raw, ok, err := persistence.Load(context.Background(), ts.userID.String()+":"+preferences.StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, "claude-3-opus")
}

func TestPreferences_FailedLoadIsNotCached(t *testing.T) {
	persistence := &flakyPersistence{MemoryPersistence: preferences.NewMemoryPersistence()}
	ts := newTestServer(t, persistence)
	key := ts.userID.String() + ":" + preferences.StorageKey
	require.NoError(t, persistence.Save(context.Background(), key,
		`{"resume_analysis":"claude-3-5-sonnet","custom_prompt":"claude-3-5-sonnet"}`))
	persistence.failLoads = 1

	w := ts.do(t, http.MethodGet, "/preferences", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gpt-4o-mini", decodeBody[types.PreferenceMap](t, w)[types.TaskCustomPrompt])

	w = ts.do(t, http.MethodGet, "/preferences", "")
	assert.Equal(t, "claude-3-5-sonnet", decodeBody[types.PreferenceMap](t, w)[types.TaskCustomPrompt])

	w = ts.do(t, http.MethodPut, "/preferences/sentiment_analysis", `{"model": "gpt-4o"}`)
	require.Equal(t, http.StatusOK, w.Code)

	raw, _, err := persistence.MemoryPersistence.Load(context.Background(), key)
	require.NoError(t, err)
	assert.Contains(t, raw, `"resume_analysis":"claude-3-5-sonnet"`)
	assert.Contains(t, raw, `"custom_prompt":"claude-3-5-sonnet"`)
	assert.Contains(t, raw, `"sentiment_analysis":"gpt-4o"`)
}

func TestNormalizeEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	body := `{"task": "Resume Analysis", "model": "gpt-4o", "credits_used": 45,
		"result": {"summary": "Strong fit", "structured_data": {"fit_score": 87, "strengths": ["Go", "SQL"], "red_flags": []}}}`
	w := ts.do(t, http.MethodPost, "/results/normalize", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeBody[map[string]any](t, w)
	assert.Equal(t, "resume_analysis", resp["kind"])
	view := resp["view"].(map[string]any)
	assert.Equal(t, "GPT-4o", view["model_name"])
	score := view["score"].(map[string]any)
	assert.Equal(t, float64(87), score["score"])
}

func TestNormalizeEndpoint_GenericAndStrict(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/results/normalize", `{"task": "Translation", "result": {"summary": "hola"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "generic", decodeBody[map[string]any](t, w)["kind"])

	lenient := `{"task": "Resume Analysis", "result": {"structured_data": {"fit_score": 140}}}`
	w = ts.do(t, http.MethodPost, "/results/normalize", lenient)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/results/normalize?strict=true", lenient)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "fields")

	w = ts.do(t, http.MethodPost, "/results/normalize", `["not", "an", "object"]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNormalizeEndpoint_BodyTooLarge(t *testing.T) {
	ts := newTestServer(t, nil)

	big := `{"task": "Custom Prompt", "result": {"summary": "` + strings.Repeat("a", maxBodyBytes) + `"}}`
	w := ts.do(t, http.MethodPost, "/results/normalize", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	s, err := New(Config{
		JWT: &config.JWTConfig{Secret: testSecret, ExpirationHours: 1, Issuer: config.DefaultJWTIssuer},
		RateLimit: &ratelimit.Config{
			Enabled:       true,
			DefaultLimit:  2,
			DefaultWindow: time.Hour,
		},
	})
	require.NoError(t, err)
	defer s.rateLimiter.Stop()
	h := s.Handler()

	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/models", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	first := call()
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	call()
	w := call()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decodeBody[map[string]any](t, w)["error"])
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ts := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

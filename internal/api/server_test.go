package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/exercise-engine/internal/catalog"
	"github.com/terra-clan/exercise-engine/internal/config"
	"github.com/terra-clan/exercise-engine/internal/exercises"
	"github.com/terra-clan/exercise-engine/internal/grading"
	"github.com/terra-clan/exercise-engine/internal/models"
	"github.com/terra-clan/exercise-engine/internal/services"
	"github.com/terra-clan/exercise-engine/internal/storage"
)

const (
	cardHTML = `<div class="card"><img src="a.png"><h2>Title</h2><p>Body</p><button>Go</button></div>`
	cardCSS  = `.card { border-radius: 8px; box-shadow: 0 1px 2px #000; padding: 16px; }`
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func newTestServer(t *testing.T, auth config.AuthConfig, registry *services.Registry) (*Server, *storage.MemoryRepository) {
	t.Helper()

	c, err := catalog.Load(exercises.Content, exercises.ContentDir, exercises.Verifiers())
	require.NoError(t, err)

	repo := storage.NewMemoryRepository()
	grader := grading.NewGrader(c, nil, repo, grading.Options{MaxSubmissionBytes: 1024})

	return NewServer(config.ServerConfig{RequestTimeout: 5 * time.Second}, auth, grader, registry, repo), repo
}

func do(t *testing.T, s *Server, method, path, body string, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestHealthAndReady(t *testing.T) {
	registry := services.NewRegistry()
	registry.Register("cache", services.NewFuncProvider("redis", func(context.Context) error { return nil }))
	s, _ := newTestServer(t, config.AuthConfig{}, registry)

	rec, env := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, _ = do(t, s, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	registry.Register("db", services.NewFuncProvider("postgres", func(context.Context) error {
		return errors.New("connection refused")
	}))
	rec, env = do(t, s, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_ready", env.Error.Code)
	assert.Contains(t, env.Error.Message, "db")
}

func TestListExercises(t *testing.T) {
	s, _ := newTestServer(t, config.AuthConfig{}, nil)

	rec, env := do(t, s, http.MethodGet, "/api/v1/exercises", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Exercises []models.Summary `json:"exercises"`
		Total     int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 5, data.Total)
	assert.Equal(t, "card", data.Exercises[0].Slug)

	rec, env = do(t, s, http.MethodGet, "/api/v1/exercises?kind=component", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 3, data.Total)
	for _, ex := range data.Exercises {
		assert.Equal(t, models.KindComponent, ex.Kind)
	}

	rec, _ = do(t, s, http.MethodGet, "/api/v1/exercises?kind=video", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetExercise(t *testing.T) {
	s, _ := newTestServer(t, config.AuthConfig{}, nil)

	rec, env := do(t, s, http.MethodGet, "/api/v1/exercises/card", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var ex models.Exercise
	require.NoError(t, json.Unmarshal(env.Data, &ex))
	assert.Equal(t, "card", ex.Slug)
	assert.Equal(t, models.KindMarkupStyle, ex.Kind)
	assert.NotEmpty(t, ex.Starter.HTML)

	rec, env = do(t, s, http.MethodGet, "/api/v1/exercises/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "exercise_not_found", env.Error.Code)
}

func TestVerifyMarkup(t *testing.T) {
	s, repo := newTestServer(t, config.AuthConfig{}, nil)

	body, _ := json.Marshal(map[string]string{"learner_id": "alice", "html": cardHTML, "css": cardCSS})
	rec, env := do(t, s, http.MethodPost, "/api/v1/exercises/card/verify", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var attempt models.Attempt
	require.NoError(t, json.Unmarshal(env.Data, &attempt))
	assert.True(t, attempt.Result.Passed)
	assert.Equal(t, models.StrategyFullChecklist, attempt.Result.Strategy)
	assert.Equal(t, "alice", attempt.LearnerID)

	stored, err := repo.GetAttempt(context.Background(), attempt.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	rec, env = do(t, s, http.MethodGet, "/api/v1/attempts/"+attempt.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/api/v1/attempts/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerifyFailingMarkupStillSucceeds(t *testing.T) {
	s, _ := newTestServer(t, config.AuthConfig{}, nil)

	rec, env := do(t, s, http.MethodPost, "/api/v1/exercises/card/verify", `{"html":"","css":""}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var attempt models.Attempt
	require.NoError(t, json.Unmarshal(env.Data, &attempt))
	assert.False(t, attempt.Result.Passed)
	assert.NotZero(t, attempt.Result.ErrorCount())
}

func TestVerifyComponent(t *testing.T) {
	s, _ := newTestServer(t, config.AuthConfig{}, nil)

	rec, env := do(t, s, http.MethodPost, "/api/v1/exercises/counter/verify",
		`{"component":{"name":"Counter","tree":{"type":"div","children":[{"type":"button","text":"+"}]}}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var attempt models.Attempt
	require.NoError(t, json.Unmarshal(env.Data, &attempt))
	assert.True(t, attempt.Result.Passed)

	rec, env = do(t, s, http.MethodPost, "/api/v1/exercises/counter/verify", `{"component":{"name":"Counter","tree":null}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &attempt))
	assert.False(t, attempt.Result.Passed)
	assert.Equal(t, []models.Message{models.Error("Component must return JSX")}, attempt.Result.Messages)

	rec, env = do(t, s, http.MethodPost, "/api/v1/exercises/counter/verify", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &attempt))
	assert.Equal(t, []models.Message{models.Error("Counter must be a function component")}, attempt.Result.Messages)
}

func TestVerifyErrors(t *testing.T) {
	s, _ := newTestServer(t, config.AuthConfig{}, nil)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{name: "unknown exercise", path: "/api/v1/exercises/nope/verify", body: `{"html":""}`, status: http.StatusNotFound, code: "exercise_not_found"},
		{name: "bad json", path: "/api/v1/exercises/card/verify", body: `{`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "missing markup", path: "/api/v1/exercises/card/verify", body: `{"learner_id":"x"}`, status: http.StatusBadRequest, code: "validation_error"},
		{name: "too large", path: "/api/v1/exercises/card/verify", body: `{"html":"` + strings.Repeat("a", 2048) + `"}`, status: http.StatusRequestEntityTooLarge, code: "submission_too_large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, s, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestListAttempts(t *testing.T) {
	s, _ := newTestServer(t, config.AuthConfig{}, nil)

	for _, learner := range []string{"alice", "bob", "alice"} {
		rec, _ := do(t, s, http.MethodPost, "/api/v1/exercises/card/verify", `{"learner_id":"`+learner+`","html":"<div></div>"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, env := do(t, s, http.MethodGet, "/api/v1/exercises/card/attempts?learner_id=alice", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Attempts []models.Attempt `json:"attempts"`
		Total    int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 2, data.Total)

	rec, env = do(t, s, http.MethodGet, "/api/v1/exercises/card/attempts?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 1, data.Total)

	rec, _ = do(t, s, http.MethodGet, "/api/v1/exercises/nope/attempts", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuth(t *testing.T) {
	auth := config.AuthConfig{
		Enabled: true,
		Clients: []*models.ApiClient{
			{ID: 1, Name: "reader", ApiKey: "sk_reader_key", IsActive: true, Permissions: []string{models.PermExercisesRead}},
			{ID: 2, Name: "grader", ApiKey: "sk_grader_key", IsActive: true, Permissions: []string{"exercises:*", "attempts:*"}},
			{ID: 3, Name: "old", ApiKey: "sk_old_key_00", IsActive: false, Permissions: []string{"*"}},
		},
	}
	s, _ := newTestServer(t, auth, nil)

	rec, env := do(t, s, http.MethodGet, "/api/v1/exercises", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing_api_key", env.Error.Code)

	rec, env = do(t, s, http.MethodGet, "/api/v1/exercises", "", "X-API-Key", "sk_unknown")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_api_key", env.Error.Code)

	rec, env = do(t, s, http.MethodGet, "/api/v1/exercises", "", "Authorization", "Bearer sk_old_key_00")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "client_inactive", env.Error.Code)

	rec, _ = do(t, s, http.MethodGet, "/api/v1/exercises", "", "Authorization", "Bearer sk_reader_key")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, s, http.MethodPost, "/api/v1/exercises/card/verify", `{"html":""}`, "Authorization", "Bearer sk_reader_key")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "permission_denied", env.Error.Code)

	rec, env = do(t, s, http.MethodPost, "/api/v1/exercises/card/verify", `{"html":""}`, "Authorization", "sk_grader_key")
	require.Equal(t, http.StatusOK, rec.Code)
	var attempt models.Attempt
	require.NoError(t, json.Unmarshal(env.Data, &attempt))
	assert.Equal(t, "grader", attempt.LearnerID)

	// Health stays public
	rec, _ = do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthFallsBackToRepository(t *testing.T) {
	repo := storage.NewMemoryRepository(&models.ApiClient{
		ID: 7, Name: "lms", ApiKey: "sk_lms_secret", IsActive: true, Permissions: []string{"*"},
	})
	m := NewAuthMiddleware(repo)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, ClientFromContext(r.Context()).Name)
	})

	req := httptest.NewRequest(http.MethodGet, "/?api_key=sk_lms_secret", nil)
	rec := httptest.NewRecorder()
	m.Authenticate(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"lms"`)

	require.Eventually(t, func() bool {
		c, _ := repo.GetClientByApiKey(context.Background(), "sk_lms_secret")
		return c != nil && c.LastUsedAt != nil
	}, time.Second, 10*time.Millisecond)
}

func TestLiveVerify(t *testing.T) {
	s, repo := newTestServer(t, config.AuthConfig{}, nil)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/exercises/card/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg LiveMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "connected", msg.Type)

	html, css := cardHTML, cardCSS
	require.NoError(t, conn.WriteJSON(LiveMessage{Type: "submit", HTML: &html, CSS: &css}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "result", msg.Type)
	require.NotNil(t, msg.Result)
	assert.True(t, msg.Result.Passed)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg = LiveMessage{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)

	require.NoError(t, conn.WriteJSON(LiveMessage{Type: "submit"}))
	msg = LiveMessage{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)

	attempts, err := repo.ListAttempts(context.Background(), models.AttemptFilters{})
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestLiveVerifyUnknownExercise(t *testing.T) {
	s, _ := newTestServer(t, config.AuthConfig{}, nil)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/exercises/nope/live"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

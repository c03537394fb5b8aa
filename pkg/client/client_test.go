package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/exercise-engine/internal/api"
	"github.com/terra-clan/exercise-engine/internal/catalog"
	"github.com/terra-clan/exercise-engine/internal/config"
	"github.com/terra-clan/exercise-engine/internal/exercises"
	"github.com/terra-clan/exercise-engine/internal/grading"
	"github.com/terra-clan/exercise-engine/internal/models"
	"github.com/terra-clan/exercise-engine/internal/storage"
)

func newTestClient(t *testing.T, auth config.AuthConfig, apiKey string) *Client {
	t.Helper()

	c, err := catalog.Load(exercises.Content, exercises.ContentDir, exercises.Verifiers())
	require.NoError(t, err)

	repo := storage.NewMemoryRepository()
	grader := grading.NewGrader(c, nil, repo, grading.Options{})
	srv := api.NewServer(config.ServerConfig{}, auth, grader, nil, repo)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return NewClient(ts.URL, apiKey, WithTimeout(5*time.Second))
}

func TestClientExercises(t *testing.T) {
	cl := newTestClient(t, config.AuthConfig{}, "")
	ctx := context.Background()

	require.NoError(t, cl.Health(ctx))

	all, err := cl.ListExercises(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 5)

	markup, err := cl.ListExercises(ctx, models.KindMarkupStyle)
	require.NoError(t, err)
	assert.Len(t, markup, 2)

	ex, err := cl.GetExercise(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, models.KindComponent, ex.Kind)
	assert.Equal(t, "Greeting", ex.Starter.FunctionName)

	_, err = cl.GetExercise(ctx, "nope")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "exercise_not_found", apiErr.Code)
}

func TestClientVerifyAndAttempts(t *testing.T) {
	cl := newTestClient(t, config.AuthConfig{}, "")
	ctx := context.Background()

	a, err := cl.VerifyMarkup(ctx, "card", MarkupRequest{LearnerID: "alice", HTML: `<div class="card"></div>`})
	require.NoError(t, err)
	assert.False(t, a.Result.Passed)
	assert.Equal(t, models.StrategyFullChecklist, a.Result.Strategy)

	c, err := cl.VerifyComponent(ctx, "user-card", ComponentRequest{
		LearnerID: "alice",
		Name:      "UserCard",
		Tree: &models.Node{Type: "div", Children: []*models.Node{
			{Type: "img"},
			{Type: "h2", Text: "Ada"},
		}},
	})
	require.NoError(t, err)
	assert.True(t, c.Result.Passed)

	none, err := cl.VerifyComponent(ctx, "user-card", ComponentRequest{Name: "UserCard"})
	require.NoError(t, err)
	assert.Equal(t, []models.Message{models.Error("Component must return JSX")}, none.Result.Messages)

	attempts, err := cl.ListAttempts(ctx, "card", AttemptListOptions{LearnerID: "alice", Limit: 10})
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, a.ID, attempts[0].ID)

	got, err := cl.GetAttempt(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-card", got.Slug)
}

func TestClientAPIKey(t *testing.T) {
	auth := config.AuthConfig{
		Enabled: true,
		Clients: []*models.ApiClient{{ID: 1, Name: "web", ApiKey: "sk_web_12345", IsActive: true, Permissions: []string{"*"}}},
	}

	_, err := newTestClient(t, auth, "").ListExercises(context.Background(), "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	list, err := newTestClient(t, auth, "sk_web_12345").ListExercises(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, list)
}

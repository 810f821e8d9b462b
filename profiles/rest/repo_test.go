package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jrsteele09/learnpath/profiles"
	"github.com/jrsteele09/learnpath/profiles/rest"
	"github.com/stretchr/testify/require"
)

type fakeDataAPI struct {
	mu      sync.Mutex
	rows    map[string]map[string]any
	auth    []string
	prefers []string
	fail    bool
}

func newFakeDataAPI(t *testing.T) (*fakeDataAPI, *httptest.Server) {
	t.Helper()
	api := &fakeDataAPI{rows: make(map[string]map[string]any)}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/v1/profiles", api.get)
	mux.HandleFunc("POST /rest/v1/profiles", api.post)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeDataAPI) get(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.auth = append(a.auth, r.Header.Get("Authorization"))
	if a.fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
		return
	}
	id := r.URL.Query().Get("id")[len("eq."):]
	rows := []map[string]any{}
	if row, ok := a.rows[id]; ok {
		rows = append(rows, row)
	}
	_ = json.NewEncoder(w).Encode(rows)
}

func (a *fakeDataAPI) post(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prefers = append(a.prefers, r.Header.Get("Prefer"))
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	id := body["id"].(string)
	row, ok := a.rows[id]
	if !ok {
		row = map[string]any{}
	}
	for k, v := range body {
		row[k] = v
	}
	a.rows[id] = row
	w.WriteHeader(http.StatusCreated)
}

func staticToken(token string) rest.TokenFunc {
	return func(context.Context) (string, error) { return token, nil }
}

func TestGetNotFound(t *testing.T) {
	_, srv := newFakeDataAPI(t)
	repo := rest.New(srv.URL, "anon", staticToken("user-token"), nil)

	_, err := repo.Get(context.Background(), "user-1")
	require.ErrorIs(t, err, profiles.ErrNotFound)
}

func TestUpsertThenGet(t *testing.T) {
	api, srv := newFakeDataAPI(t)
	repo := rest.New(srv.URL, "anon", staticToken("user-token"), nil)
	ctx := context.Background()

	style := profiles.StyleKinesthetic
	done := true
	require.NoError(t, repo.Upsert(ctx, "user-1", profiles.Patch{LearningStyle: &style, EvaluationCompleted: &done}))

	xp := 40
	require.NoError(t, repo.Upsert(ctx, "user-1", profiles.Patch{XP: &xp}))

	p, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", p.ID)
	require.Equal(t, profiles.StyleKinesthetic, p.LearningStyle)
	require.True(t, p.EvaluationCompleted)
	require.Equal(t, 40, p.XP)
	require.False(t, p.UpdatedAt.IsZero())

	require.Equal(t, "Bearer user-token", api.auth[0])
	require.Contains(t, api.prefers[0], "resolution=merge-duplicates")
}

func TestGetFallsBackToAPIKey(t *testing.T) {
	api, srv := newFakeDataAPI(t)
	repo := rest.New(srv.URL, "anon", staticToken(""), nil)

	_, _ = repo.Get(context.Background(), "user-1")
	require.Equal(t, "Bearer anon", api.auth[0])
}

func TestGetServerError(t *testing.T) {
	api, srv := newFakeDataAPI(t)
	api.fail = true
	repo := rest.New(srv.URL, "anon", nil, nil)

	_, err := repo.Get(context.Background(), "user-1")
	require.Error(t, err)
	require.NotErrorIs(t, err, profiles.ErrNotFound)
}

func TestTokenErrorAbortsRequest(t *testing.T) {
	api, srv := newFakeDataAPI(t)
	repo := rest.New(srv.URL, "anon", func(context.Context) (string, error) {
		return "", errors.New("no session")
	}, nil)

	_, err := repo.Get(context.Background(), "user-1")
	require.Error(t, err)
	require.Empty(t, api.auth)
}

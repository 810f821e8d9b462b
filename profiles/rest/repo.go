// Package rest reads and writes profiles through the backend's PostgREST
// data API, authorised with the signed-in user's access token.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/learnpath/profiles"
)

const tableName = "profiles"

// TokenFunc returns the access token to send with a request. An empty token
// falls back to the API key alone.
type TokenFunc func(ctx context.Context) (string, error)

var _ profiles.Repo = (*Repo)(nil)

type Repo struct {
	endpoint string
	apiKey   string
	token    TokenFunc
	client   *http.Client
	now      func() time.Time
}

// New returns a Repo for the data API under baseURL (".../rest/v1" is
// appended).
func New(baseURL, apiKey string, token TokenFunc, client *http.Client) *Repo {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Repo{
		endpoint: strings.TrimSuffix(baseURL, "/") + "/rest/v1/" + tableName,
		apiKey:   apiKey,
		token:    token,
		client:   client,
		now:      time.Now,
	}
}

func (r *Repo) Get(ctx context.Context, id string) (*profiles.Profile, error) {
	q := url.Values{"id": {"eq." + id}, "select": {"*"}}
	req, err := r.newRequest(ctx, http.MethodGet, r.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var rows []profiles.Profile
	if err := r.do(req, &rows); err != nil {
		return nil, fmt.Errorf("[rest Get] %w", err)
	}
	if len(rows) == 0 {
		return nil, profiles.ErrNotFound
	}
	return &rows[0], nil
}

func (r *Repo) Upsert(ctx context.Context, id string, patch profiles.Patch) error {
	row := map[string]any{}
	raw, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, &row); err != nil {
		return err
	}
	row["id"] = id
	row["updated_at"] = r.now().UTC()

	body, err := json.Marshal(row)
	if err != nil {
		return err
	}
	req, err := r.newRequest(ctx, http.MethodPost, r.endpoint+"?on_conflict=id", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")
	if err := r.do(req, nil); err != nil {
		return fmt.Errorf("[rest Upsert] %w", err)
	}
	return nil
}

func (r *Repo) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Accept", "application/json")

	bearer := r.apiKey
	if r.token != nil {
		token, err := r.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("access token: %w", err)
		}
		if token != "" {
			bearer = token
		}
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	return req, nil
}

func (r *Repo) do(req *http.Request, out any) error {
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("data api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

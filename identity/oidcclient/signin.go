package oidcclient

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

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/jrsteele09/learnpath/identity"
	"github.com/jrsteele09/learnpath/identity/authflow"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// SignInWithPassword uses the resource owner password grant.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	token, err := c.oauth.PasswordCredentialsToken(c.oauthContext(ctx), email, password)
	if err != nil {
		if isRejected(err) {
			return nil, identity.ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "password sign-in")
	}
	return c.establish(ctx, token, "")
}

type signUpBody struct {
	Email      string         `json:"email"`
	Password   string         `json:"password"`
	Data       map[string]any `json:"data,omitempty"`
	RedirectTo string         `json:"redirect_to,omitempty"`
}

type tokenBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// SignUp implements identity.Provider.
func (c *Client) SignUp(ctx context.Context, req identity.SignUpRequest) (*identity.Session, error) {
	body := signUpBody{Email: req.Email, Password: req.Password, RedirectTo: req.RedirectTo}
	if req.DisplayName != "" {
		body.Data = map[string]any{"display_name": req.DisplayName}
	}

	var resp tokenBody
	if err := c.postJSON(ctx, c.cfg.SignUpURL, body, &resp); err != nil {
		return nil, errors.Wrap(err, "sign-up")
	}
	if resp.AccessToken == "" {
		// Email confirmation pending.
		return nil, nil
	}

	token := &oauth2.Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
	}
	if resp.ExpiresIn > 0 {
		token.Expiry = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return c.establish(ctx, token, "")
}

// SignInWithOAuth implements identity.Provider. The PKCE verifier and nonce
// are kept in the flow state repo until the matching ExchangeCodeForSession
// call.
func (c *Client) SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	if provider == "" {
		return "", errors.New("oauth provider is required")
	}
	state := uuid.NewString()
	flow := &authflow.AuthFlowState{
		CodeVerifier: oauth2.GenerateVerifier(),
		Nonce:        uuid.NewString(),
		Provider:     provider,
		RedirectTo:   redirectTo,
		CreatedAt:    c.now(),
	}
	if err := c.flows.Upsert(ctx, state, flow); err != nil {
		return "", errors.Wrap(err, "save oauth flow")
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(flow.CodeVerifier),
		oidc.Nonce(flow.Nonce),
		oauth2.SetAuthURLParam("provider", provider),
	}
	if redirectTo != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_to", redirectTo))
	}
	return c.oauth.AuthCodeURL(state, opts...), nil
}

// ExchangeCodeForSession implements identity.Provider.
func (c *Client) ExchangeCodeForSession(ctx context.Context, code, state string) (*identity.Session, error) {
	flow, err := c.flows.Take(ctx, state)
	if errors.Is(err, authflow.ErrNotFound) {
		return nil, identity.ErrInvalidState
	}
	if err != nil {
		return nil, errors.Wrap(err, "load oauth flow")
	}

	token, err := c.oauth.Exchange(c.oauthContext(ctx), code, oauth2.VerifierOption(flow.CodeVerifier))
	if err != nil {
		return nil, errors.Wrap(err, "code exchange")
	}
	return c.establish(ctx, token, flow.Nonce)
}

// establish verifies any ID token, persists the session and announces it.
func (c *Client) establish(ctx context.Context, token *oauth2.Token, nonce string) (*identity.Session, error) {
	if rawIDToken, ok := token.Extra("id_token").(string); ok && rawIDToken != "" {
		verifier := c.oidc.Verifier(&oidc.Config{ClientID: c.oauth.ClientID})
		idToken, err := verifier.Verify(oidc.ClientContext(ctx, c.httpClient), rawIDToken)
		if err != nil {
			return nil, errors.Wrap(err, "verify id token")
		}
		if nonce != "" && idToken.Nonce != nonce {
			return nil, errors.New("id token nonce mismatch")
		}
	}

	session, err := c.sessionFromToken(token, "")
	if err != nil {
		return nil, err
	}

	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	c.gen++
	if err := c.store.Save(ctx, session); err != nil {
		return nil, errors.Wrap(err, "save session")
	}
	c.announceLocked(identity.EventSignedIn, session)
	return session, nil
}

// SignOut removes the local session before attempting remote revocation,
// so a failed revocation still leaves this client signed out. Any refresh
// in flight is discarded.
func (c *Client) SignOut(ctx context.Context) error {
	c.sessionMu.Lock()
	c.gen++
	session, err := c.store.Load(ctx)
	if err != nil {
		log.Err(err).Msg("failed to load session for sign-out")
	}
	if err := c.store.Delete(ctx); err != nil {
		log.Err(err).Msg("failed to delete local session")
	}
	c.announceLocked(identity.EventSignedOut, nil)
	c.sessionMu.Unlock()

	if session == nil {
		return nil
	}
	return errors.Wrap(c.revoke(ctx, session.RefreshToken), "revoke session")
}

// revoke asks the provider to invalidate refreshToken.
func (c *Client) revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" || c.revokeURL == "" {
		return nil
	}
	form := url.Values{
		"token":           {refreshToken},
		"token_type_hint": {"refresh_token"},
		"client_id":       {c.oauth.ClientID},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, nil)
}

// ResetPasswordForEmail implements identity.Provider.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	body := map[string]string{"email": email}
	if redirectTo != "" {
		body["redirect_to"] = redirectTo
	}
	return errors.Wrap(c.postJSON(ctx, c.cfg.RecoverURL, body, nil), "password recovery")
}

// APIError is a non-2xx answer from one of the backend's JSON endpoints.
type APIError struct {
	StatusCode  int
	Code        string `json:"error"`
	Description string `json:"error_description"`
	Message     string `json:"msg"`
}

// UserMessage is the backend's human readable explanation, if any.
func (e *APIError) UserMessage() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Message
}

func (e *APIError) Error() string {
	msg := e.Description
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, msg)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		return apiErr
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

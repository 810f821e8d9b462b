package oidcclient

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/learnpath/identity"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// GetSession returns the stored session, refreshing it first when the access
// token is about to expire. A refresh token rejected by the provider ends the
// session.
func (c *Client) GetSession(ctx context.Context) (*identity.Session, error) {
	session, err := c.store.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load session")
	}
	if session == nil || !session.Expired(c.now(), c.cfg.RefreshMargin) {
		return session, nil
	}
	return c.refresh(ctx)
}

func (c *Client) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.GetSession(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("background session refresh failed")
			}
		}
	}
}

// refresh exchanges the stored refresh token. Concurrent callers share the
// outcome of the first refresh. A refresh overtaken by a sign-in, sign-out
// or external change is discarded and its new refresh token revoked.
func (c *Client) refresh(ctx context.Context) (*identity.Session, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.sessionMu.Lock()
	gen := c.gen
	c.sessionMu.Unlock()

	current, err := c.store.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load session")
	}
	if current == nil {
		return nil, nil
	}
	if !current.Expired(c.now(), c.cfg.RefreshMargin) {
		return current, nil
	}
	if current.RefreshToken == "" {
		c.dropSession(ctx, gen, "session expired without refresh token")
		return nil, nil
	}

	ts := c.oauth.TokenSource(c.oauthContext(ctx), &oauth2.Token{
		RefreshToken: current.RefreshToken,
		Expiry:       time.Unix(1, 0),
	})
	token, err := ts.Token()
	if err != nil {
		if isRejected(err) {
			c.dropSession(ctx, gen, "refresh token rejected")
			return nil, nil
		}
		return nil, errors.Wrap(err, "refresh session")
	}

	session, err := c.sessionFromToken(token, current.RefreshToken)
	if err != nil {
		return nil, err
	}

	c.sessionMu.Lock()
	if c.gen != gen {
		c.sessionMu.Unlock()
		log.Info().Msg("discarding refresh overtaken by a session change")
		if token.RefreshToken != "" && token.RefreshToken != current.RefreshToken {
			if err := c.revoke(ctx, token.RefreshToken); err != nil {
				log.Warn().Err(err).Msg("failed to revoke discarded refresh token")
			}
		}
		stored, err := c.store.Load(ctx)
		return stored, errors.Wrap(err, "load session")
	}
	defer c.sessionMu.Unlock()
	if err := c.store.Save(ctx, session); err != nil {
		return nil, errors.Wrap(err, "save session")
	}
	prev := c.user
	if prev == nil {
		prev = &current.User
	}
	c.announceLocked(changeEvent(prev, session), session)
	return session, nil
}

// dropSession ends the session unless it changed since gen was read.
func (c *Client) dropSession(ctx context.Context, gen uint64, reason string) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	if c.gen != gen {
		return
	}
	c.gen++
	log.Info().Str("reason", reason).Msg("ending session")
	if err := c.store.Delete(ctx); err != nil {
		log.Err(err).Msg("failed to delete session")
	}
	c.announceLocked(identity.EventSignedOut, nil)
}

// sessionFromToken converts an oauth2 token. Providers may omit the refresh
// token on refresh responses, in which case the previous one stays valid.
func (c *Client) sessionFromToken(token *oauth2.Token, previousRefresh string) (*identity.Session, error) {
	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = previousRefresh
	}
	idToken, _ := token.Extra("id_token").(string)
	return identity.NewSession(token.AccessToken, refreshToken, idToken, token.TokenType, token.Expiry)
}

// isRejected reports whether the token endpoint answered with a client
// error, as opposed to a transport failure or a server fault.
func isRejected(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		return false
	}
	return re.Response.StatusCode >= http.StatusBadRequest && re.Response.StatusCode < http.StatusInternalServerError
}

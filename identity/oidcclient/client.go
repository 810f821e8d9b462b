// Package oidcclient is the identity.Provider for the LearnPath backend's
// auth API. Password, authorization-code (PKCE) and refresh grants go
// through golang.org/x/oauth2 against endpoints discovered with go-oidc;
// sign-up and password recovery use the backend's JSON endpoints.
package oidcclient

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/learnpath/identity"
	"github.com/jrsteele09/learnpath/identity/authflow"
	"github.com/jrsteele09/learnpath/identity/tokenstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	defaultRefreshMargin   = time.Minute
	defaultRefreshInterval = 30 * time.Second
)

// Config configures the provider client.
type Config struct {
	IssuerURL    string // backend auth base URL, also the OIDC issuer
	APIKey       string // public API key; doubles as the OAuth client id
	ClientSecret string
	RedirectURL  string // OAuth callback on this server
	Scopes       []string

	// Override the endpoints derived from IssuerURL.
	SignUpURL  string
	RecoverURL string

	RefreshMargin   time.Duration // refresh this long before expiry
	RefreshInterval time.Duration // how often the background refresher checks
	HTTPClient      *http.Client

	// FlowStates holds in-progress OAuth flows; in memory when nil.
	FlowStates authflow.Repo
}

var _ identity.Provider = (*Client)(nil)

// Client implements identity.Provider.
type Client struct {
	cfg        Config
	httpClient *http.Client
	oidc       *oidc.Provider
	oauth      *oauth2.Config
	revokeURL  string
	store      tokenstore.Store
	flows      authflow.Repo
	now        func() time.Time

	refreshMu sync.Mutex

	// sessionMu orders writes of the stored session with the events that
	// announce them. gen counts sessions established or ended, and user is
	// the identity last announced.
	sessionMu sync.Mutex
	gen       uint64
	user      *identity.Identity

	mu        sync.Mutex
	listeners map[uint64]identity.Listener
	nextID    uint64
}

// New discovers the provider's endpoints and returns a client persisting its
// session in store.
func New(ctx context.Context, cfg Config, store tokenstore.Store) (*Client, error) {
	if cfg.IssuerURL == "" {
		return nil, errors.New("issuer url is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	cfg.IssuerURL = strings.TrimSuffix(cfg.IssuerURL, "/")
	if cfg.SignUpURL == "" {
		cfg.SignUpURL = cfg.IssuerURL + "/signup"
	}
	if cfg.RecoverURL == "" {
		cfg.RecoverURL = cfg.IssuerURL + "/recover"
	}
	if cfg.RefreshMargin <= 0 {
		cfg.RefreshMargin = defaultRefreshMargin
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.FlowStates == nil {
		cfg.FlowStates = authflow.NewInMemoryRepo(authflow.DefaultTTL)
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}

	base := http.DefaultTransport
	if cfg.HTTPClient != nil && cfg.HTTPClient.Transport != nil {
		base = cfg.HTTPClient.Transport
	}
	httpClient := &http.Client{Transport: &apiKeyTransport{base: base, key: cfg.APIKey}}
	if cfg.HTTPClient != nil {
		httpClient.Timeout = cfg.HTTPClient.Timeout
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), cfg.IssuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "oidc discovery")
	}

	var extra struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		return nil, errors.Wrap(err, "oidc discovery claims")
	}

	endpoint := provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		oidc:       provider,
		oauth: &oauth2.Config{
			ClientID:     cfg.APIKey,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
		},
		revokeURL: extra.RevocationEndpoint,
		store:     store,
		flows:     cfg.FlowStates,
		now:       time.Now,
		listeners: make(map[uint64]identity.Listener),
	}, nil
}

// Start runs the background refresher and the store watcher until ctx is
// done.
func (c *Client) Start(ctx context.Context) {
	go c.refreshLoop(ctx)
	go func() {
		if err := c.store.Watch(ctx, func() { c.onStoreChanged(ctx) }); err != nil {
			log.Err(err).Msg("session store watch stopped")
		}
	}()
}

// OnAuthStateChange implements identity.Provider.
func (c *Client) OnAuthStateChange(fn identity.Listener) identity.Unsubscribe {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) emit(event identity.EventType, session *identity.Session) {
	c.mu.Lock()
	listeners := make([]identity.Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	log.Debug().Str("event", string(event)).Msg("auth state change")
	for _, fn := range listeners {
		fn(event, session)
	}
}

// onStoreChanged relays a change made by another process as an auth event.
func (c *Client) onStoreChanged(ctx context.Context) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	session, err := c.store.Load(ctx)
	if err != nil {
		log.Err(err).Msg("failed to load session after external change")
		return
	}
	c.gen++
	c.announceLocked(changeEvent(c.user, session), session)
}

// changeEvent classifies a move from the identity last announced to next.
func changeEvent(prev *identity.Identity, next *identity.Session) identity.EventType {
	switch {
	case next == nil:
		return identity.EventSignedOut
	case prev == nil || prev.ID != next.User.ID:
		return identity.EventSignedIn
	case !sameClaims(*prev, next.User):
		return identity.EventUserUpdated
	default:
		return identity.EventTokenRefreshed
	}
}

func sameClaims(a, b identity.Identity) bool {
	return a.Email == b.Email &&
		a.DisplayName == b.DisplayName &&
		a.AvatarURL == b.AvatarURL &&
		a.Provider == b.Provider &&
		slices.Equal(a.Providers, b.Providers)
}

// announceLocked records the announced identity and emits event. Caller
// holds sessionMu.
func (c *Client) announceLocked(event identity.EventType, session *identity.Session) {
	if session == nil {
		c.user = nil
	} else {
		user := session.User
		c.user = &user
	}
	c.emit(event, session)
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// apiKeyTransport adds the backend's apikey header to every request.
type apiKeyTransport struct {
	base http.RoundTripper
	key  string
}

func (t *apiKeyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("apikey", t.key)
	return t.base.RoundTrip(r)
}

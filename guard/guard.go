package guard

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/learnpath/session"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds how long a signed-in user waits on loading before
// being sent back to login.
const DefaultTimeout = 15 * time.Second

// StateSource is the read side of the session store.
type StateSource interface {
	State() session.State
	Subscribe(fn func(session.State)) (unsubscribe func())
}

// Recorder receives guard telemetry.
type Recorder interface {
	RecordDecision(action string)
	RecordTimeout()
}

type nopRecorder struct{}

func (nopRecorder) RecordDecision(string) {}
func (nopRecorder) RecordTimeout()        {}

type Option func(*Guard)

func WithTimeout(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(g *Guard) { g.recorder = r }
}

// Guard tracks the source's state and owns the loading timer. Decisions
// are made against the last state it observed.
type Guard struct {
	routes   Routes
	timeout  time.Duration
	recorder Recorder

	mu          sync.Mutex
	state       session.State
	timer       *time.Timer
	timerGen    uint64
	timedOut    bool
	disposed    bool
	unsubscribe func()
}

func New(source StateSource, routes Routes, opts ...Option) *Guard {
	g := &Guard{
		routes:   routes,
		timeout:  DefaultTimeout,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(g)
	}

	unsubscribe := source.Subscribe(g.observe)
	g.mu.Lock()
	g.unsubscribe = unsubscribe
	g.mu.Unlock()
	g.observe(source.State())
	return g
}

// observe arms the timer when a signed-in user starts waiting and disarms
// it, clearing any timeout, once loading ends or the identity goes away.
func (g *Guard) observe(st session.State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return
	}
	g.state = st

	if !waiting(st) {
		g.stopTimerLocked()
		g.timedOut = false
		return
	}
	if g.timer != nil || g.timedOut {
		return
	}
	gen := g.timerGen
	g.timer = time.AfterFunc(g.timeout, func() { g.expire(gen) })
}

func (g *Guard) expire(gen uint64) {
	g.mu.Lock()
	if g.disposed || gen != g.timerGen || g.timer == nil {
		g.mu.Unlock()
		return
	}
	g.timer = nil
	g.timerGen++
	if !waiting(g.state) {
		g.mu.Unlock()
		return
	}
	g.timedOut = true
	userID := g.state.Identity.ID
	g.mu.Unlock()

	log.Warn().Str("identity_id", userID).Dur("timeout", g.timeout).Msg("auth loading timed out, redirecting to login")
	g.recorder.RecordTimeout()
}

func (g *Guard) stopTimerLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.timerGen++
}

func waiting(st session.State) bool {
	return st.Identity != nil && st.Loading
}

// Evaluate decides what to show at location.
func (g *Guard) Evaluate(location string) Decision {
	d, _ := g.decide(location)
	return d
}

func (g *Guard) decide(location string) (Decision, session.State) {
	g.mu.Lock()
	st, timedOut := g.state, g.timedOut
	g.mu.Unlock()

	d := Decide(st, location, timedOut, g.routes)
	g.recorder.RecordDecision(d.Action.String())
	return d, st
}

// TimedOut reports whether the current wait has exceeded the bound.
func (g *Guard) TimedOut() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timedOut
}

// Dispose stops the timer and detaches from the source.
func (g *Guard) Dispose() {
	g.mu.Lock()
	if g.disposed {
		g.mu.Unlock()
		return
	}
	g.disposed = true
	g.stopTimerLocked()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Middleware guards next. Redirects use 303; loading is served while the
// session settles. Rendered requests carry the state they were decided on,
// see StateFromContext.
func (g *Guard) Middleware(loading http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, st := g.decide(r.URL.Path)
			switch d.Action {
			case ActionRedirect:
				http.Redirect(w, r, d.Location, http.StatusSeeOther)
			case ActionLoading:
				w.Header().Set("Cache-Control", "no-store")
				loading.ServeHTTP(w, r)
			default:
				next.ServeHTTP(w, r.WithContext(WithState(r.Context(), st)))
			}
		})
	}
}

type contextKey string

const stateKey contextKey = "session_state"

func WithState(ctx context.Context, st session.State) context.Context {
	return context.WithValue(ctx, stateKey, st)
}

// StateFromContext returns the state a guarded request was admitted with.
func StateFromContext(ctx context.Context) (session.State, bool) {
	st, ok := ctx.Value(stateKey).(session.State)
	return st, ok
}

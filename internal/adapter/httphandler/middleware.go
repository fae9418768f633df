package httphandler

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/parentshop/internal/core/domain"
	"golang.org/x/time/rate"
)

const (
	SessionCookieName = "parentshop_sid"
	PageTitleHeader   = "X-Page-Title"
)

func AllowJSON(next http.Handler) http.Handler {
	hf := func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			http.Error(w, "invalid media type", http.StatusUnsupportedMediaType)
			return
		}

		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(hf)
}

type sessionKey struct{}

// Sessions binds every request to a visitor session kept in a cookie.
// A missing or malformed cookie starts a new session.
func Sessions(maxAge time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hf := func(w http.ResponseWriter, r *http.Request) {
			id, ok := sessionFromCookie(r)
			if !ok {
				id = uuid.NewString()
			}

			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(maxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := context.WithValue(r.Context(), sessionKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(hf)
	}
}

func sessionFromCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// visitor describes who sent r and from which page.
func visitor(r *http.Request) domain.Visitor {
	return domain.Visitor{
		SessionID: sessionID(r.Context()),
		Page: domain.PageContext{
			URL:   r.Referer(),
			Title: r.Header.Get(PageTitleHeader),
		},
	}
}

type sessionLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// A SessionRateLimiter limits requests per visitor session.
type SessionRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*sessionLimiter
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewSessionRateLimiter(perSecond float64, burst int) *SessionRateLimiter {
	return &SessionRateLimiter{
		limiters: make(map[string]*sessionLimiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

func (l *SessionRateLimiter) Allow(session string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	sl, ok := l.limiters[session]
	if !ok {
		sl = &sessionLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[session] = sl
	}
	sl.lastSeen = now
	return sl.limiter.AllowN(now, 1)
}

// sweep drops limiters of sessions idle for longer than l.idle.
func (l *SessionRateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	l.lastSweep = now
	for id, sl := range l.limiters {
		if now.Sub(sl.lastSeen) > l.idle {
			delete(l.limiters, id)
		}
	}
}

func (l *SessionRateLimiter) Middleware(next http.Handler) http.Handler {
	hf := func(w http.ResponseWriter, r *http.Request) {
		id := sessionID(r.Context())
		if !l.Allow(id) {
			slog.Warn("rate limit exceeded", "op", "SessionRateLimiter", "session", id)
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(hf)
}

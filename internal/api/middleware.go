package api

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/auth"
	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/core"
	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/observability"
)

// RequestLogger logs one line per request and records the HTTP metrics
// under the matched route pattern.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			observability.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			observability.HTTPDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", elapsed),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			switch {
			case status >= 500:
				log.Error("request completed", fields...)
			case status >= 400:
				log.Warn("request completed", fields...)
			default:
				log.Info("request completed", fields...)
			}
		})
	}
}

// Authenticate requires a valid bearer token and puts the session on the
// request context.
func (h *APIHandler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if header == "" || !ok || strings.TrimSpace(token) == "" {
			writeError(w, r, http.StatusUnauthorized, "Access token required")
			return
		}

		claims, err := h.tokens.ParseToken(strings.TrimSpace(token))
		if err != nil {
			h.log.Debug("rejected token",
				zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
			writeError(w, r, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		// Ids are reused after the memory store restarts, so the token must
		// still name the account it was issued for.
		user, err := h.svc.Users.Profile(r.Context(), claims.UserID)
		switch {
		case errors.Is(err, core.ErrNotFound):
			writeError(w, r, http.StatusUnauthorized, "User not found")
			return
		case err != nil:
			h.fail(w, r, err)
			return
		case !strings.EqualFold(user.Email, claims.Email):
			writeError(w, r, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := auth.WithSession(r.Context(), auth.Session{
			UserID:   user.ID,
			Email:    user.Email,
			Language: claims.Language,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSelf rejects requests whose {userId} path parameter is not the
// signed-in user.
func RequireSelf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "Invalid user id")
			return
		}
		sess, ok := auth.SessionFrom(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "Access token required")
			return
		}
		if sess.UserID != id {
			writeError(w, r, http.StatusForbidden, "Access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands every client its own token bucket. Clients are keyed
// by user id when signed in and by remote address otherwise.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time

	sweepEvery time.Duration
	lastSweep  time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,

		sweepEvery: time.Minute,
	}
}

func (l *RateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.sweepEvery {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.idle {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func clientKey(r *http.Request) string {
	if sess, ok := auth.SessionFrom(r.Context()); ok {
		return "user:" + strconv.FormatInt(sess.UserID, 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientKey(r)) {
			observability.RateLimited.Inc()
			w.Header().Set("Retry-After", "1")
			writeError(w, r, http.StatusTooManyRequests, "Too many requests, please slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"sickfits-be/internal/auth"
	"sickfits-be/internal/utils"

	"golang.org/x/time/rate"
)

// Rate Limit Tiers
const (
	// Sign-in, password reset, checkout and provider webhooks (Strict)
	limitStrict = rate.Limit(2)
	burstStrict = 5

	// General (Default)
	limitGeneral = rate.Limit(10)
	burstGeneral = 20

	// Internal / trusted services
	limitInternal = rate.Limit(100)
	burstInternal = 200
)

const (
	// WebhookPath is always limited on the strict tier.
	WebhookPath = "/webhooks/payment"

	visitorIdleTTL = 3 * time.Minute
)

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per caller and tier.
type Limiter struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	internalKey string
	now         func() time.Time
}

func NewLimiter(internalKey string) *Limiter {
	return &Limiter{
		visitors:    make(map[string]*visitor),
		internalKey: internalKey,
		now:         time.Now,
	}
}

// getVisitor retrieves or creates the limiter for key.
func (l *Limiter) getVisitor(key string, r rate.Limit, b int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		l.visitors[key] = &visitor{limiter, l.now()}
		return limiter
	}

	v.lastSeen = l.now()
	return v.limiter
}

// Cleanup drops visitors idle for longer than visitorIdleTTL.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, v := range l.visitors {
		if l.now().Sub(v.lastSeen) > visitorIdleTTL {
			delete(l.visitors, key)
		}
	}
}

// StartCleanup runs Cleanup every interval until ctx ends.
func (l *Limiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup()
			}
		}
	}()
}

// Middleware rejects requests over their tier's budget. It must run after
// Session so signed-in callers get a per-user bucket.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, burst, tier := l.resolveRateTier(r)

		// Anonymous callers are keyed by address only.
		var identity string
		if id := auth.IdentityFrom(r.Context()); id != nil {
			identity = "user:" + id.UserID
		} else {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			identity = "ip:" + ip
		}

		// Separate quotas per tier, e.g. "user:42:strict".
		if !l.getVisitor(identity+":"+tier, limit, burst).Allow() {
			utils.WriteGraphQLError(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), "RATE_LIMITED")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// resolveRateTier determines which rate limit policy applies to the request.
// The strict tier follows the operation itself, not what the client claims.
func (l *Limiter) resolveRateTier(r *http.Request) (rate.Limit, int, string) {
	if l.internalKey != "" && r.Header.Get("X-Service-Auth") == l.internalKey {
		return limitInternal, burstInternal, "internal"
	}

	if r.URL.Path == WebhookPath || hasStrictField(r) {
		return limitStrict, burstStrict, "strict"
	}

	return limitGeneral, burstGeneral, "general"
}

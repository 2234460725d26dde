package api

import (
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Yairkad/vaad-bayit-sub000/auth"
	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Authenticate verifies the bearer token and stores the caller's building
// scope in the request context. Admins may act on another building with
// ?building_id=.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
				return
			}

			claims, err := auth.ParseToken(strings.TrimSpace(token), secret)
			if err != nil {
				log.Printf("[Auth] rejected token: %v", err)
				writeError(w, http.StatusUnauthorized, "Invalid token", err)
				return
			}

			scope := claims.Scope()
			if override := r.URL.Query().Get("building_id"); override != "" && scope.Role == billing.RoleAdmin {
				scope.BuildingID = billing.BuildingID(override)
			}
			if err := scope.Validate(); err != nil && !allowsNoBuilding(r) {
				writeFailure(w, "Token has no building", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithScope(r.Context(), scope)))
		})
	}
}

// allowsNoBuilding lets admins list and create buildings before picking one.
func allowsNoBuilding(r *http.Request) bool {
	return strings.TrimSuffix(r.URL.Path, "/") == "/api/buildings"
}

// =============================================================================
// RATE LIMITING
// =============================================================================

// clientLimiter stores the rate limiter for a specific client.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter allows a fixed number of requests per minute per client IP.
type RateLimiter struct {
	clients     map[string]*clientLimiter
	mu          sync.Mutex
	limit       rate.Limit
	burst       int
	idle        time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

// NewRateLimiter creates a limiter allowing perMinute requests per client,
// all of which may arrive at once.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		idle:    30 * time.Minute,
		now:     time.Now,
	}
}

// getClientLimiter retrieves or creates the limiter for a client and drops
// entries not seen for a while.
func (rl *RateLimiter) getClientLimiter(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastCleanup) > rl.idle {
		for id, c := range rl.clients {
			if now.Sub(c.lastSeen) > rl.idle {
				delete(rl.clients, id)
			}
		}
		rl.lastCleanup = now
	}

	c, ok := rl.clients[client]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[client] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Limit is the chi middleware.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		if !rl.getClientLimiter(client).AllowN(rl.now(), 1) {
			log.Printf("[RateLimit] limit exceeded for %s on %s", client, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Too many attempts, try again later", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

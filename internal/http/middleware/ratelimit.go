package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/fernandoldf/representa/internal/http/response"
)

// RateLimiter guarda um token bucket por chave. Buckets parados há mais de
// idleTTL são descartados quando uma chave nova aparece.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter cria um limiter por chave com a taxa e o burst informados.
func NewRateLimiter(reqPerSec float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(reqPerSec),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// reserve consome um token da chave. Quando nega, devolve a espera até o
// próximo token.
func (r *RateLimiter) reserve(key string) (time.Duration, bool) {
	now := r.now()

	r.mu.Lock()
	b, ok := r.buckets[key]
	if !ok {
		for k, old := range r.buckets {
			if now.Sub(old.lastSeen) > r.idleTTL {
				delete(r.buckets, k)
			}
		}
		b = &bucket{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.buckets[key] = b
	}
	b.lastSeen = now
	r.mu.Unlock()

	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		return time.Second, false
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return delay, false
	}
	return 0, true
}

// Limit aplica o limiter na chave devolvida por keyFunc; chave vazia passa direto.
func (r *RateLimiter) Limit(keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			key := keyFunc(req)
			if key == "" {
				next.ServeHTTP(w, req)
				return
			}
			if wait, ok := r.reserve(key); !ok {
				response.Retry(w, wait, http.StatusTooManyRequests, "RATE_LIMIT", "Limite de requisições excedido")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// IPRateLimit usa o IP do cliente. Depende de chimiddleware.RealIP para que
// RemoteAddr reflita o proxy.
func IPRateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return limiter.Limit(func(r *http.Request) string {
		return "ip:" + clientIP(r)
	})
}

// UserRateLimit usa o email do representante da sessão, de modo que todas as
// sessões abertas com a mesma conta dividem o mesmo bucket. Sem sessão, passa.
func UserRateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return limiter.Limit(func(r *http.Request) string {
		subject := strings.ToLower(strings.TrimSpace(GetSubject(r.Context())))
		if subject == "" {
			return ""
		}
		return "rep:" + subject
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

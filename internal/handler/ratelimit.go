package handler

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitor лимитер одного IP и время последнего запроса
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	logged   bool
}

// IPLimiter ограничивает частоту запросов с одного IP.
// Хранится в памяти процесса и между экземплярами не делится.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	perSecond rate.Limit
	burst     int
	ttl       time.Duration

	logger *slog.Logger
	// OnDenied вызывается на каждый отклонённый запрос, например для метрик
	OnDenied func()
}

// NewIPLimiter создаёт лимитер и запускает очистку, которая живёт до отмены ctx.
func NewIPLimiter(ctx context.Context, perSecond float64, burst int, logger *slog.Logger) *IPLimiter {
	l := &IPLimiter{
		visitors:  make(map[string]*visitor),
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		ttl:       5 * time.Minute,
		logger:    logger,
	}
	go l.cleanup(ctx)
	return l
}

func (l *IPLimiter) allow(ip string) bool {
	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	allowed := v.limiter.Allow()
	first := !allowed && !v.logged
	if first {
		v.logged = true
	}
	l.mu.Unlock()

	if allowed {
		return true
	}
	// одна запись в лог на нарушителя, пока он не вытеснен из карты
	if first {
		l.logger.Warn("rate limit exceeded", "ip", ip)
	}
	if l.OnDenied != nil {
		l.OnDenied()
	}
	return false
}

func (l *IPLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for ip, v := range l.visitors {
				if now.Sub(v.lastSeen) > l.ttl {
					delete(l.visitors, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Middleware отвечает 429 при превышении лимита.
// IP берётся из RemoteAddr, который уже переписан middleware.RealIP.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "30")
			respondWithMessage(w, http.StatusTooManyRequests, "Слишком много попыток, повторите позже", l.logger)
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

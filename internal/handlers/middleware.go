package handlers

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sdko-org/get2put/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type ctxKey int

const (
	sessionKey ctxKey = iota
	outcomeKey
)

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	bytesSent  int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesSent += n
	return n, err
}

// LoggingMiddleware logs every request and, when db is non-nil, stores an
// access log row in the background.
func LoggingMiddleware(logger *logrus.Logger, db *gorm.DB, trustProxy bool) mux.MiddlewareFunc {
	logEntry := logger.WithField("component", "http_middleware")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			outcome := new(string)
			r = r.WithContext(context.WithValue(r.Context(), outcomeKey, outcome))

			defer func() {
				duration := time.Since(start)
				clientIP := getClientIP(r, trustProxy)
				fields := logrus.Fields{
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     lrw.statusCode,
					"duration":   duration,
					"client_ip":  clientIP,
					"bytes":      lrw.bytesSent,
					"user_agent": r.UserAgent(),
				}
				if *outcome != "" {
					fields["outcome"] = *outcome
				}

				logEntry.WithFields(fields).Info("Request processed")

				if db == nil {
					return
				}
				entry := models.AccessLog{
					Timestamp: start,
					Method:    r.Method,
					Path:      r.URL.Path,
					Status:    lrw.statusCode,
					Outcome:   *outcome,
					Duration:  duration,
					ClientIP:  clientIP,
					UserAgent: r.UserAgent(),
					BytesSent: lrw.bytesSent,
				}
				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()

					if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
						logEntry.WithError(err).Warn("Failed to save access log")
					}
				}()
			}()

			next.ServeHTTP(lrw, r)
		})
	}
}

func setOutcome(ctx context.Context, outcome string) {
	if p, ok := ctx.Value(outcomeKey).(*string); ok {
		*p = outcome
	}
}

// SessionMiddleware attaches a caller session id taken from the session
// cookie, issuing a new one when the cookie is absent or malformed.
func SessionMiddleware(cookieName string, ttl time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(cookieName); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(ttl.Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, id)))
		})
	}
}

func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey).(string)
	return id
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter is a token bucket per client address, applied in front of
// the per-session gate.
type IPRateLimiter struct {
	limit      rate.Limit
	burst      int
	trustProxy bool

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

func NewIPRateLimiter(requests int, window time.Duration, trustProxy bool) *IPRateLimiter {
	return &IPRateLimiter{
		limit:      rate.Limit(float64(requests) / window.Seconds()),
		burst:      requests,
		trustProxy: trustProxy,
		clients:    make(map[string]*clientLimiter),
	}
}

func (l *IPRateLimiter) Allow(clientIP string) bool {
	l.mu.Lock()
	c, exists := l.clients[clientIP]
	if !exists {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[clientIP] = c
	}
	c.lastSeen = time.Now()
	l.mu.Unlock()

	return c.limiter.Allow()
}

func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(getClientIP(r, l.trustProxy)) {
			setOutcome(r.Context(), "ip_rate_limited")
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start evicts idle clients until ctx is cancelled.
func (l *IPRateLimiter) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup(3 * time.Minute)
		case <-ctx.Done():
			return
		}
	}
}

func (l *IPRateLimiter) cleanup(idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, c := range l.clients {
		if time.Since(c.lastSeen) > idle {
			delete(l.clients, ip)
		}
	}
}

// getClientIP returns the connection's source address. Forwarding headers
// are honoured only behind a trusted proxy.
func getClientIP(r *http.Request, trustProxy bool) string {
	var ip string
	if trustProxy {
		ip = r.Header.Get("X-Forwarded-For")
		if ip == "" {
			ip = r.Header.Get("X-Real-IP")
		}
	}
	if ip == "" {
		var err error
		ip, _, err = net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
	}
	if strings.Contains(ip, ",") {
		parts := strings.Split(ip, ",")
		ip = strings.TrimSpace(parts[0])
	}
	return ip
}

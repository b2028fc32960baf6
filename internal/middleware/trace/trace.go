// Package trace assigns request IDs and logs every request's start and end.
package trace

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"studioledger/internal/log"
)

// HeaderRequestID is read from inbound requests and echoed on responses.
const HeaderRequestID = "X-Request-ID"

type ctxKey struct{}

// Inbound IDs are accepted only when they look like an opaque token.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Metrics is a snapshot of the request counters.
type Metrics struct {
	TotalRequests       int64
	ServerErrors        int64
	AverageResponseTime int64 // microseconds, exponentially smoothed
}

type Middleware struct {
	extractIP func(*http.Request) string

	total      atomic.Int64
	serverErrs atomic.Int64
	avgUS      atomic.Int64
}

// NewMiddleware builds the tracer. extractIP may be nil.
func NewMiddleware(extractIP func(*http.Request) string) *Middleware {
	return &Middleware{extractIP: extractIP}
}

// GenerateRequestID returns a fresh "req_" token.
func GenerateRequestID() string {
	id := uuid.New()
	return "req_" + strings.ReplaceAll(id.String(), "-", "")[:16]
}

// GetRequestID returns the ID assigned to the current request, if any.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func requestID(r *http.Request) string {
	if id := r.Header.Get(HeaderRequestID); validRequestID.MatchString(id) {
		return id
	}
	return GenerateRequestID()
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := requestID(r)
		w.Header().Set(HeaderRequestID, id)

		var clientIP string
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, id)
		ctx = log.WithContext(ctx, log.FromContext(ctx).With(log.FieldRequestID, id))
		r = r.WithContext(ctx)

		slog.DebugContext(ctx, "HTTP request started",
			log.FieldRequestID, id,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldQuery, r.URL.RawQuery,
			log.FieldClientIP, clientIP,
			log.FieldUserAgent, r.UserAgent())

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		m.record(status, elapsed)

		slog.Log(ctx, levelFor(status), "HTTP request completed",
			log.FieldRequestID, id,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, status,
			log.FieldDuration, elapsed.Milliseconds(),
			log.FieldDurationHuman, elapsed.String(),
			log.FieldClientIP, clientIP,
			log.FieldSuccess, status < 400)
	})
}

// record updates the counters; the average moves an eighth of the way
// towards each new sample.
func (m *Middleware) record(status int, d time.Duration) {
	m.total.Add(1)
	if status >= 500 {
		m.serverErrs.Add(1)
	}
	us := d.Microseconds()
	for {
		old := m.avgUS.Load()
		next := us
		if old > 0 {
			next = old + (us-old)/8
		}
		if m.avgUS.CompareAndSwap(old, next) {
			return
		}
	}
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:       m.total.Load(),
		ServerErrors:        m.serverErrs.Load(),
		AverageResponseTime: m.avgUS.Load(),
	}
}

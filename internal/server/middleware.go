package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/grandline/oracle/internal/metrics"
	"github.com/grandline/oracle/internal/ratelimit"
)

// slowRequestThreshold is the duration above which requests are logged at
// WARN level.
const slowRequestThreshold = 100 * time.Millisecond

const requestIDHeader = "X-Request-ID"

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestID tags every request with a UUID, honoring one supplied by the
// caller so IDs survive proxy hops.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// logging logs every request with timing. Slow requests (>100ms) are logged
// at WARN level; server errors at ERROR.
func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", duration.Milliseconds(),
			"request_id", r.Header.Get(requestIDHeader),
		}

		switch {
		case rec.status >= http.StatusInternalServerError:
			s.logger.Error("request failed", attrs...)
		case duration > slowRequestThreshold:
			s.logger.Warn("slow request", attrs...)
		default:
			s.logger.Debug("request completed", attrs...)
		}
	})
}

// apiRateLimit applies the coarse whole-API window to every request. The
// per-endpoint limits stack on top of it inside the route table.
func (s *Server) apiRateLimit(p ratelimit.Policy, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ratelimit.ClientIP(r)
		res := s.limiter.Check("api:"+ip, p)
		if !res.Allowed {
			s.rejectRateLimited(w, p, res)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit enforces an endpoint-scoped window keyed by client IP. Limit
// headers go out on every response, allowed or not, so clients can pace
// themselves before hitting the wall.
func (s *Server) rateLimit(scope string, p ratelimit.Policy, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := ratelimit.ClientIP(r)
		res := s.limiter.Check(scope+":"+ip, p)

		setLimitHeaders(w, p, res)
		if !res.Allowed {
			s.rejectRateLimited(w, p, res)
			return
		}
		next(w, r)
	}
}

func (s *Server) rejectRateLimited(w http.ResponseWriter, p ratelimit.Policy, res ratelimit.Result) {
	retryAfter := int(time.Until(res.ResetAt).Seconds()) + 1
	if retryAfter < 1 {
		retryAfter = 1
	}

	setLimitHeaders(w, p, res)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	s.metrics.RecordTiming(metrics.OpRateLimited, 0)

	writeJSON(w, http.StatusTooManyRequests, errorResponse{
		Error:      "rate limit exceeded",
		RetryAfter: retryAfter,
	})
}

func setLimitHeaders(w http.ResponseWriter, p ratelimit.Policy, res ratelimit.Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(p.Max))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
}

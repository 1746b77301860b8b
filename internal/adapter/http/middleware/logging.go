package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// AccessLog writes one structured line per request. Probe endpoints are
// logged at debug so orchestrator polling does not flood the output.
type AccessLog struct {
	logger zerolog.Logger
	quiet  map[string]struct{}
}

// NewAccessLog creates an AccessLog. Requests for any of quietPaths are
// logged at debug level when they succeed.
func NewAccessLog(logger zerolog.Logger, quietPaths ...string) *AccessLog {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}
	return &AccessLog{logger: logger, quiet: quiet}
}

// Wrap wraps an http.Handler with access logging.
func (a *AccessLog) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		a.event(r.URL.Path, wrapped.statusCode).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Int("bytes", wrapped.written).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("request completed")
	})
}

func (a *AccessLog) event(path string, status int) *zerolog.Event {
	switch {
	case status >= http.StatusInternalServerError:
		return a.logger.Error()
	case status >= http.StatusBadRequest:
		return a.logger.Warn()
	}
	if _, ok := a.quiet[path]; ok {
		return a.logger.Debug()
	}
	return a.logger.Info()
}

type statusRecorder struct {
	http.ResponseWriter

	statusCode int
	written    int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.written += n
	return n, err
}

package chi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	logpkg "github.com/kailas-cloud/omnisearch/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// quietPaths are probe endpoints logged at debug level.
var quietPaths = map[string]bool{"/health": true, "/metrics": true}

// requestLog attaches a request-scoped logger to the context, echoes the
// request ID and writes one log line per request once the handler returns.
func requestLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set(requestIDHeader, requestID)
			}
			reqLogger := logger.With(zap.String("request_id", requestID))

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logpkg.ContextWithLogger(r.Context(), reqLogger)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.Int("response_bytes", ww.BytesWritten()),
				zap.String("ip", r.RemoteAddr),
			}
			if rc := chirouter.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				fields = append(fields, zap.String("route", rc.RoutePattern()))
			}
			if strings.HasPrefix(r.URL.Path, "/api/v1/search") {
				if q := r.URL.Query().Get("q"); q != "" {
					fields = append(fields, zap.String("q", q))
				}
			}
			reqLogger.Log(logLevel(r.URL.Path, status), "http_request", fields...)
		})
	}
}

func logLevel(path string, status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case quietPaths[path]:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// recoverJSON turns handler panics into the JSON internal_error envelope.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func recoverJSON(fallback *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if err, ok := rvr.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rvr)
				}
				logpkg.FromContextOr(r.Context(), fallback).Error("Panic recovered",
					zap.Any("panic", rvr),
					zap.String("path", r.URL.Path),
					zap.Stack("stacktrace"),
				)
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

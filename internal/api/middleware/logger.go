package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// StructuredLogger writes one access log record per request. Server errors are
// logged at error level, client errors at warn.
func StructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			t1 := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				level := slog.LevelInfo
				switch {
				case status >= http.StatusInternalServerError:
					level = slog.LevelError
				case status >= http.StatusBadRequest:
					level = slog.LevelWarn
				}

				attrs := []slog.Attr{
					slog.String("proto", r.Proto),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("user_agent", r.UserAgent()),
					slog.Int("status", status),
					slog.Float64("latency_ms", float64(time.Since(t1).Nanoseconds())/1000000.0),
					slog.Int("bytes_written", ww.BytesWritten()),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				}
				if u, ok := UserFromContext(r.Context()); ok {
					attrs = append(attrs, slog.String("user", u.Username))
				}
				logger.LogAttrs(r.Context(), level, "Served request", attrs...)
			}()
			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

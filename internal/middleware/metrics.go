package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Oniqq60/grant_tracker/internal/metrics"
)

const unmatchedRoute = "unmatched"

// RouteFunc возвращает шаблон маршрута для запроса. Сырой путь в метку не
// попадает, иначе число серий не ограничено.
type RouteFunc func(r *http.Request) string

// MuxRoute берёт шаблон у ServeMux ("POST /upload-proof").
func MuxRoute(mux *http.ServeMux) RouteFunc {
	return func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return pattern
	}
}

func Metrics(c *metrics.Collectors, route RouteFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			label := ""
			if route != nil {
				label = route(r)
			}
			if label == "" {
				label = unmatchedRoute
			}
			c.HTTPRequests.WithLabelValues(r.Method, label, strconv.Itoa(rec.status)).Inc()
			c.HTTPDuration.WithLabelValues(r.Method, label).Observe(time.Since(start).Seconds())
		})
	}
}

package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts request outcomes and the domain events worth graphing.
// Counters live in a dedicated registry so several servers can coexist in
// one process.
type Metrics struct {
	Registry *prometheus.Registry

	SuccessfulRequests *prometheus.CounterVec
	BadRequests        *prometheus.CounterVec
	PostsCreated       *prometheus.CounterVec
	FollowRequests     *prometheus.CounterVec
	UnfollowRequests   *prometheus.CounterVec
}

// InitMetrics creates the registry and registers the counters.
func InitMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		SuccessfulRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microblog_successful_requests_total",
				Help: "Total number of successful (2xx) HTTP requests",
			},
			[]string{"path"},
		),
		BadRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microblog_bad_requests_total",
				Help: "Total number of unsuccessful (4xx) HTTP requests",
			},
			[]string{"path"},
		),
		PostsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microblog_posts_created_total",
				Help: "Total number of microposts created",
			},
			[]string{"path"},
		),
		FollowRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microblog_follows_total",
				Help: "Total number of successful follow requests",
			},
			[]string{"path"},
		),
		UnfollowRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microblog_unfollows_total",
				Help: "Total number of successful unfollow requests",
			},
			[]string{"path"},
		),
	}

	m.Registry.MustRegister(m.SuccessfulRequests)
	m.Registry.MustRegister(m.BadRequests)
	m.Registry.MustRegister(m.PostsCreated)
	m.Registry.MustRegister(m.FollowRequests)
	m.Registry.MustRegister(m.UnfollowRequests)

	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts 2xx and 4xx responses per path template.
func (s *HTTPServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		switch {
		case rec.status >= 200 && rec.status < 300:
			s.metrics.SuccessfulRequests.WithLabelValues(r.URL.Path).Inc()
		case rec.status >= 400 && rec.status < 500:
			s.metrics.BadRequests.WithLabelValues(r.URL.Path).Inc()
		}
	})
}

package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morris-shopline/shopline-tw-lab/internal/config"
	"github.com/morris-shopline/shopline-tw-lab/internal/logging"
)

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	if r.statusCode == 0 {
		r.statusCode = statusCode
	}
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) status() int {
	if r.statusCode == 0 {
		return http.StatusOK
	}
	return r.statusCode
}

func newServer(conf *config.Config, api http.Handler,
	promRegisterer prometheus.Registerer, promGatherer prometheus.Gatherer) *http.Server {

	promHandler := promhttp.HandlerFor(promGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	requestDurationSecs := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "http_request_duration_seconds",
		Help: "Duration of HTTP requests in seconds",
	}, []string{"host", "method", "path", "status"})
	promRegisterer.MustRegister(requestDurationSecs)

	return &http.Server{
		Addr:              conf.Server.Addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t := time.Now()
			sr := &statusRecorder{ResponseWriter: w}
			defer func() {
				status := fmt.Sprintf("%d", sr.status())
				requestDurationSecs.
					WithLabelValues(r.Host, r.Method, r.URL.Path, status).
					Observe(time.Since(t).Seconds())
			}()

			w = sr
			r = logging.IntoRequest(r, logging.NewRequestLogger(r))

			switch r.URL.Path {
			case "/readyz", "/healthz":
				w.WriteHeader(http.StatusOK)
			case "/metrics":
				promHandler.ServeHTTP(w, r)
			default:
				api.ServeHTTP(w, r)
			}
		}),
	}
}

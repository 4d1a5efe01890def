// ABOUTME: Request logging and metrics middleware for the site server in log.Printf key=value style.
// ABOUTME: Records the route kind, status, and byte count of every response.
package web

import (
	"log"
	"net/http"
	"time"

	"github.com/2389-research/siteview/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

// webRequestLogger logs one line per request and feeds m, which may be nil.
func webRequestLogger(m *metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			route := Classify(rawPath(r))

			m.ObserveResponse(route.String(), status)
			if route.IsAsset() && status == http.StatusOK {
				m.ObserveAssetBytes(route.String(), rec.bytes)
			}

			log.Printf("web request method=%s path=%s route=%s status=%d bytes=%d duration=%s remote=%s request_id=%s",
				r.Method,
				r.URL.EscapedPath(),
				route,
				status,
				rec.bytes,
				time.Since(start).Round(time.Microsecond),
				r.RemoteAddr,
				RequestID(r.Context()),
			)
		})
	}
}

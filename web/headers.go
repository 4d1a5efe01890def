// ABOUTME: Middleware that strips platform-identifying headers and sets baseline security headers.
// ABOUTME: Headers are scrubbed at WriteHeader time so handlers and proxies further in cannot leak them.
package web

import "net/http"

// platformHeaders name the server software and are never sent.
var platformHeaders = []string{"Server", "X-Powered-By", "X-AspNet-Version"}

type headerScrubber struct {
	http.ResponseWriter
	wroteHeader bool
}

func (s *headerScrubber) scrub() {
	if s.wroteHeader {
		return
	}
	s.wroteHeader = true
	h := s.ResponseWriter.Header()
	for _, name := range platformHeaders {
		h.Del(name)
	}
}

func (s *headerScrubber) WriteHeader(code int) {
	s.scrub()
	s.ResponseWriter.WriteHeader(code)
}

func (s *headerScrubber) Write(p []byte) (int, error) {
	s.scrub()
	return s.ResponseWriter.Write(p)
}

// scrubHeaders removes platform headers from every response and disables
// MIME sniffing so assets are interpreted only by their declared type.
func scrubHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(&headerScrubber{ResponseWriter: w}, r)
	})
}

// ABOUTME: Site HTTP server wrapping the static router in a chi middleware stack.
// ABOUTME: Handles listener setup, optional TLS, server timeouts, and graceful shutdown.
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/2389-research/siteview/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the site HTTP server. It serves every path through a Router.
type Server struct {
	site     *Router
	router   chi.Router
	addr     string
	certFile string
	keyFile  string
	timeouts Timeouts
}

// Timeouts bounds how long the server spends on slow clients and on shutdown.
type Timeouts struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
	Shutdown   time.Duration
}

// DefaultTimeouts returns the timeouts used when a ServerConfig leaves them zero.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		ReadHeader: 10 * time.Second,
		Read:       30 * time.Second,
		Write:      30 * time.Second,
		Idle:       2 * time.Minute,
		Shutdown:   10 * time.Second,
	}
}

// ServerConfig holds the configuration for the site server.
type ServerConfig struct {
	Addr     string // listen address (default: ":11400")
	ViewDir  string // asset root; pages are read from ViewDir/html
	CertFile string // TLS certificate chain; TLS is off when empty
	KeyFile  string
	Timeouts Timeouts
	Metrics  *metrics.Recorder // optional
}

// NewServer opens the view directory and builds the middleware stack.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = ":11400"
	}
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, fmt.Errorf("CertFile and KeyFile must be set together")
	}
	cfg.Timeouts = withDefaults(cfg.Timeouts)

	site, err := NewRouter(cfg.ViewDir)
	if err != nil {
		return nil, err
	}

	s := &Server{
		site:     site,
		addr:     cfg.Addr,
		certFile: cfg.CertFile,
		keyFile:  cfg.KeyFile,
		timeouts: cfg.Timeouts,
	}
	s.router = buildRouter(cfg.Metrics, s.site)
	return s, nil
}

func withDefaults(t Timeouts) Timeouts {
	d := DefaultTimeouts()
	if t.ReadHeader == 0 {
		t.ReadHeader = d.ReadHeader
	}
	if t.Read == 0 {
		t.Read = d.Read
	}
	if t.Write == 0 {
		t.Write = d.Write
	}
	if t.Idle == 0 {
		t.Idle = d.Idle
	}
	if t.Shutdown == 0 {
		t.Shutdown = d.Shutdown
	}
	return t
}

// buildRouter wraps h in the middleware stack. There is no route table: the
// catch-all hands every path to h.
func buildRouter(m *metrics.Recorder, h http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(withRequestID)
	r.Use(webRequestLogger(m))
	r.Use(scrubHeaders)
	r.Use(middleware.Recoverer)

	r.Handle("/", h)
	r.Handle("/*", h)

	return r
}

// Site returns the underlying static router.
func (s *Server) Site() *Router {
	return s.site
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// TLS reports whether the server terminates TLS itself.
func (s *Server) TLS() bool {
	return s.certFile != ""
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully within the shutdown timeout. It returns nil after a clean
// shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: s.timeouts.ReadHeader,
		ReadTimeout:       s.timeouts.Read,
		WriteTimeout:      s.timeouts.Write,
		IdleTimeout:       s.timeouts.Idle,
	}

	errCh := make(chan error, 1)
	go func() {
		if s.TLS() {
			errCh <- srv.ServeTLS(ln, s.certFile, s.keyFile)
			return
		}
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeouts.Shutdown)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("web shutdown err=%v", err)
		srv.Close()
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the router's asset root.
func (s *Server) Close() error {
	return s.site.Close()
}

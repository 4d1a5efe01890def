// ABOUTME: Tests for the site server: middleware stack, headers, logging, metrics, and lifecycle.
// ABOUTME: Exercises the chi stack end to end with httptest and a real loopback listener.
package web

import (
	"bytes"
	"context"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/2389-research/siteview/metrics"
)

func newTestServer(t *testing.T, m *metrics.Recorder) *Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		Addr:    "127.0.0.1:0",
		ViewDir: newTestView(t),
		Metrics: m,
	})
	if err != nil {
		t.Fatalf("unexpected error creating server: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

// captureLog redirects the standard logger for the duration of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})
	return &buf
}

func TestServerExampleScenarios(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		target      string
		status      int
		contentType string
		body        string
	}{
		{"/css/app.css", http.StatusOK, "text/css", "body { color: red; }"},
		{"/assets/missing.png", http.StatusNotFound, "", ""},
		{"/", http.StatusOK, "text/html", "<html>index page</html>"},
		{"/about", http.StatusOK, "text/html", "<html>error page</html>"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := serve(srv, http.MethodGet, tt.target)
			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			if tt.contentType != "" && rec.Header().Get("Content-Type") != tt.contentType {
				t.Errorf("expected Content-Type %q, got %q", tt.contentType, rec.Header().Get("Content-Type"))
			}
			if rec.Body.String() != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, rec.Body.String())
			}
		})
	}
}

func TestServerNeverSendsPlatformHeaders(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, target := range []string{"/", "/about", "/css/app.css", "/img/logo.png", "/css/missing.css"} {
		rec := serve(srv, http.MethodGet, target)
		for _, h := range platformHeaders {
			if v := rec.Header().Get(h); v != "" {
				t.Errorf("%s: expected no %s header, got %q", target, h, v)
			}
		}
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s: expected nosniff header", target)
		}
	}
}

func TestScrubHeadersRemovesHeadersSetByInnerHandler(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Powered-By", "PHP/8.2")
		w.Header().Set("Server", "nginx")
		w.Write([]byte("ok"))
	})

	rec := serve(scrubHeaders(inner), http.MethodGet, "/")

	if rec.Header().Get("X-Powered-By") != "" {
		t.Errorf("expected X-Powered-By to be removed, got %q", rec.Header().Get("X-Powered-By"))
	}
	if rec.Header().Get("Server") != "" {
		t.Errorf("expected Server to be removed, got %q", rec.Header().Get("Server"))
	}
	if rec.Body.String() != "ok" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestServerPanicIs500WithoutPlatformHeaders(t *testing.T) {
	logs := captureLog(t)
	m := metrics.New()
	boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "nginx")
		w.Header().Set("X-Powered-By", "PHP/8.2")
		panic("boom")
	})

	rec := serve(buildRouter(m, boom), http.MethodGet, "/css/app.css")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	for _, h := range platformHeaders {
		if v := rec.Header().Get(h); v != "" {
			t.Errorf("expected no %s header, got %q", h, v)
		}
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
	if !strings.Contains(logs.String(), "route=css status=500") {
		t.Errorf("expected the panic to be logged as a 500, got %q", logs.String())
	}
	scrape := serve(m.Handler(), http.MethodGet, "/metrics").Body.String()
	if !strings.Contains(scrape, `siteview_responses_total{route="css",status="500"} 1`) {
		t.Errorf("expected one css 500 response recorded, got:\n%s", scrape)
	}
}

func TestServerRequestID(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := serve(srv, http.MethodGet, "/")
	generated := rec.Header().Get(requestIDHeader)
	if len(generated) != 36 {
		t.Errorf("expected a generated UUID request id, got %q", generated)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec2 := httptest.NewRecorder()
	srv.ServeHTTP(rec2, req)
	if got := rec2.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("expected client request id to be echoed, got %q", got)
	}

	req3 := httptest.NewRequest(http.MethodGet, "/", nil)
	req3.Header.Set(requestIDHeader, strings.Repeat("x", maxRequestIDLen+1))
	rec3 := httptest.NewRecorder()
	srv.ServeHTTP(rec3, req3)
	if got := rec3.Header().Get(requestIDHeader); len(got) != 36 {
		t.Errorf("expected oversized request id to be replaced, got %q", got)
	}
}

func TestRequestIDOutsideRequest(t *testing.T) {
	if id := RequestID(context.Background()); id != "" {
		t.Errorf("expected empty request id, got %q", id)
	}
}

func TestServerLogsEachRequest(t *testing.T) {
	logs := captureLog(t)
	srv := newTestServer(t, nil)

	serve(srv, http.MethodGet, "/css/missing.css?v=3")

	out := logs.String()
	for _, want := range []string{
		"web request method=GET path=/css/missing.css",
		"route=css",
		"status=404",
		"bytes=0",
		"request_id=",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log to contain %q, got:\n%s", want, out)
		}
	}
}

func TestServerRecordsMetrics(t *testing.T) {
	m := metrics.New()
	srv := newTestServer(t, m)

	serve(srv, http.MethodGet, "/")
	serve(srv, http.MethodGet, "/css/app.css")
	serve(srv, http.MethodGet, "/img/none.png")

	rec := serve(m.Handler(), http.MethodGet, "/metrics")
	body := rec.Body.String()
	for _, want := range []string{
		`siteview_responses_total{route="index",status="200"} 1`,
		`siteview_responses_total{route="css",status="200"} 1`,
		`siteview_responses_total{route="png",status="404"} 1`,
		`siteview_asset_bytes_total{route="css"} 20`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics to contain %q, got:\n%s", want, body)
		}
	}
}

func TestServerEncodedTargetsRouteAndLabelAlike(t *testing.T) {
	m := metrics.New()
	srv := newTestServer(t, m)

	rec := serve(srv, http.MethodGet, "/css/app.css%3F.png")
	if rec.Code != http.StatusNotFound || rec.Body.Len() != 0 {
		t.Errorf("expected 404 with empty body, got %d %q", rec.Code, rec.Body.String())
	}
	rec = serve(srv, http.MethodGet, "/css/app%2Ecss")
	if rec.Code != http.StatusOK || rec.Body.String() != "<html>error page</html>" {
		t.Errorf("expected error document, got %d %q", rec.Code, rec.Body.String())
	}

	body := serve(m.Handler(), http.MethodGet, "/metrics").Body.String()
	for _, want := range []string{
		`siteview_responses_total{route="png",status="404"} 1`,
		`siteview_responses_total{route="error",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics to contain %q, got:\n%s", want, body)
		}
	}
	if strings.Contains(body, `route="css"`) {
		t.Errorf("expected no css responses, got:\n%s", body)
	}
}

func TestNewServerRequiresCertAndKeyTogether(t *testing.T) {
	_, err := NewServer(ServerConfig{ViewDir: newTestView(t), CertFile: "cert.pem"})
	if err == nil {
		t.Fatal("expected error when only CertFile is set")
	}
}

func TestNewServerDefaults(t *testing.T) {
	srv, err := NewServer(ServerConfig{ViewDir: newTestView(t)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer srv.Close()

	if srv.Addr() != ":11400" {
		t.Errorf("expected default addr :11400, got %q", srv.Addr())
	}
	if srv.TLS() {
		t.Error("expected TLS to be off without certificates")
	}
	if srv.timeouts != DefaultTimeouts() {
		t.Errorf("expected default timeouts, got %+v", srv.timeouts)
	}
}

func TestServerServeAndShutdown(t *testing.T) {
	srv := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/css/app.css?v=1")
	if err != nil {
		cancel()
		t.Fatalf("unexpected error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "body { color: red; }" {
		t.Errorf("unexpected body %q", body)
	}
	if resp.Header.Get("Server") != "" {
		t.Errorf("expected no Server header, got %q", resp.Header.Get("Server"))
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServerImplementsHandler(t *testing.T) {
	var _ http.Handler = newTestServer(t, nil)
}

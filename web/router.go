// ABOUTME: Static site router that serves CSS and PNG assets, the index page, and the error page.
// ABOUTME: Assets are read through an os.Root so request paths can never leave the asset root.
package web

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrAssetNotFound is returned when a CSS or PNG request has no matching file.
var ErrAssetNotFound = errors.New("asset not found")

// Router answers every request with one of four responses chosen by Classify.
// It holds no per-request state and is safe for concurrent use.
type Router struct {
	root  *os.Root
	pages *Pages
}

// NewRouter opens viewDir as the asset root and loads the fixed documents
// from viewDir/html. The returned Router must be closed to release the root.
func NewRouter(viewDir string) (*Router, error) {
	if viewDir == "" {
		return nil, fmt.Errorf("view directory must not be empty")
	}
	root, err := os.OpenRoot(viewDir)
	if err != nil {
		return nil, fmt.Errorf("opening view directory: %w", err)
	}

	pages, err := LoadPages(filepath.Join(viewDir, "html"))
	if err != nil {
		root.Close()
		return nil, fmt.Errorf("loading pages: %w", err)
	}

	return &Router{root: root, pages: pages}, nil
}

// Pages returns the documents served for the index and error routes.
func (rt *Router) Pages() *Pages {
	return rt.pages
}

// AssetRoot returns the directory assets are resolved against.
func (rt *Router) AssetRoot() string {
	return rt.root.Name()
}

// Close releases the asset root.
func (rt *Router) Close() error {
	return rt.root.Close()
}

// rawPath returns the request path as it appeared on the wire, still
// percent-encoded, so "%3F" and "%2E" never take part in routing.
func rawPath(r *http.Request) string {
	return requestPath(r.URL.EscapedPath())
}

// ServeHTTP dispatches on the raw request path. Every method is treated alike.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := rawPath(r)
	route := Classify(p)

	switch route {
	case RouteCSS, RoutePNG:
		rt.serveAsset(w, p, route)
	case RouteIndex:
		servePage(w, rt.pages.Index)
	default:
		servePage(w, rt.pages.Error)
	}
}

func (rt *Router) serveAsset(w http.ResponseWriter, p string, route Route) {
	body, err := rt.ReadAsset(p)
	if err != nil {
		log.Printf("web asset path=%s err=%v", p, err)
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", route.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func servePage(w http.ResponseWriter, page Page) {
	w.Header().Set("Content-Type", RouteIndex.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(page.Body)
}

// resolveAssetName decodes a raw request path into a name relative to the
// asset root. Dot segments are collapsed against "/" so they cannot climb
// above it.
func resolveAssetName(p string) (string, error) {
	decoded, err := url.PathUnescape(p)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(path.Clean("/"+decoded), "/"), nil
}

// ReadAsset returns the bytes of the asset at the raw (percent-encoded)
// request path p. Any failure, including a directory or an escaping symlink
// at that name, wraps ErrAssetNotFound.
func (rt *Router) ReadAsset(p string) ([]byte, error) {
	name, err := resolveAssetName(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", p, ErrAssetNotFound, err)
	}
	if name == "" {
		return nil, fmt.Errorf("%s: %w", p, ErrAssetNotFound)
	}

	info, err := rt.root.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", p, ErrAssetNotFound, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w: is a directory", p, ErrAssetNotFound)
	}

	f, err := rt.root.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", p, ErrAssetNotFound, err)
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", p, ErrAssetNotFound, err)
	}
	return body, nil
}

// Inventory summarizes the servable assets under the asset root.
type Inventory struct {
	CSS int
	PNG int
}

// Inventory walks the asset root and counts files each asset route would serve.
func (rt *Router) Inventory() (Inventory, error) {
	var inv Inventory
	err := fs.WalkDir(rt.root.FS(), ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch Classify("/" + name) {
		case RouteCSS:
			inv.CSS++
		case RoutePNG:
			inv.PNG++
		}
		return nil
	})
	if err != nil {
		return Inventory{}, fmt.Errorf("walking asset root: %w", err)
	}
	return inv, nil
}

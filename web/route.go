// ABOUTME: Classifies a request target into one of the four responses the site router emits.
// ABOUTME: The query string is dropped before matching; only the path suffix and the root path matter.
package web

import "strings"

// Route identifies which kind of response a request path receives.
type Route int

const (
	// RouteError covers every path that is not the root and not a known asset type.
	RouteError Route = iota
	// RouteIndex is the root path "/".
	RouteIndex
	// RouteCSS is any path ending in ".css".
	RouteCSS
	// RoutePNG is any path ending in ".png".
	RoutePNG
)

// String returns the short label used in logs and metric labels.
func (r Route) String() string {
	switch r {
	case RouteIndex:
		return "index"
	case RouteCSS:
		return "css"
	case RoutePNG:
		return "png"
	default:
		return "error"
	}
}

// IsAsset reports whether the route is served from the asset root.
func (r Route) IsAsset() bool {
	return r == RouteCSS || r == RoutePNG
}

// ContentType returns the Content-Type sent with a successful asset response.
// Page routes return the HTML content type.
func (r Route) ContentType() string {
	switch r {
	case RouteCSS:
		return "text/css"
	case RoutePNG:
		return "image/png"
	default:
		return "text/html"
	}
}

// requestPath returns the portion of a request target before the first '?'.
func requestPath(target string) string {
	p, _, _ := strings.Cut(target, "?")
	return p
}

// Classify maps a raw request target (path plus optional query) to its Route.
// Suffix checks run before the root check, and matching is case sensitive.
func Classify(target string) Route {
	p := requestPath(target)
	switch {
	case strings.HasSuffix(p, ".css"):
		return RouteCSS
	case strings.HasSuffix(p, ".png"):
		return RoutePNG
	case p == "/":
		return RouteIndex
	default:
		return RouteError
	}
}

package obs

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ServiceName identifies this service in logs and traces.
const ServiceName = "cart-calc"

type routePatternKey struct{}

// WithRoutePattern stores the matched router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext extracts the route pattern from context if present.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(routePatternKey{}).(string)
	return v
}

// matchedRoute returns the explicitly stored pattern or chi's matched pattern.
func matchedRoute(r *http.Request) (string, bool) {
	if route := RoutePatternFromContext(r.Context()); route != "" {
		return route, true
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern, true
		}
	}
	return "", false
}

// routeOf is matchedRoute falling back to the raw path.
func routeOf(r *http.Request) string {
	if route, ok := matchedRoute(r); ok {
		return route
	}
	return r.URL.Path
}

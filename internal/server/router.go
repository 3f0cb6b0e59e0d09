package server

import (
	"net/http"
	"strings"
)

// BasicRouter is a simple HTTP router implementing the [Router] interface.
//
// Uses [http.ServeMux] method patterns internally, so a request for a known path with the wrong
// method gets a 405 from the mux.
type BasicRouter struct {
	mux         *http.ServeMux
	prefix      string
	middlewares []Middleware
}

// NewBasicRouter creates a new [BasicRouter] mounting every route under prefix (may be "").
func NewBasicRouter(prefix string) *BasicRouter {
	return &BasicRouter{
		mux:         http.NewServeMux(),
		prefix:      strings.TrimSuffix(prefix, "/"),
		middlewares: []Middleware{},
	}
}

// Use adds [Middleware] to the [Router] instance's middleware stack, applied in the order it's added.
//
// Only routes registered after the call are wrapped.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers a handler for the specified HTTP method and path.
//
// The handler is wrapped with all registered middleware.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(r.pattern(method, path), r.Apply(handler))
}

// HandleFunc is [BasicRouter.Handle] for plain functions.
func (r *BasicRouter) HandleFunc(method, path string, fn http.HandlerFunc) {
	r.Handle(method, path, fn)
}

// Handler registers a custom [Handler] implementation.
//
// Every "METHOD /path" route returned by [Handler.Routes] is registered under the prefix.
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)

	for _, route := range handler.Routes() {
		method, path, ok := strings.Cut(route, " ")
		if !ok {
			method, path = "", route
		}
		r.mux.Handle(r.pattern(method, path), wrapped)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps a handler with all registered middleware.
//
// Middleware is applied in reverse order (last added wraps first).
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}

	return wrapped
}

func (r *BasicRouter) pattern(method, path string) string {
	if method == "" {
		return r.prefix + path
	}
	return strings.ToUpper(method) + " " + r.prefix + path
}

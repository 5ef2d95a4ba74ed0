// Package router layers middleware groups over http.ServeMux method patterns.
package router

import (
	"net/http"
	"slices"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Router registers routes on a shared ServeMux. Every route is wrapped in
// the router's chain, so middleware sees r.Pattern and path values.
type Router struct {
	mux    *http.ServeMux
	chain  []Middleware
	routes *[]string
}

// New returns a router whose routes all run through middleware, outermost
// first.
func New(middleware ...Middleware) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		chain:  middleware,
		routes: new([]string),
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Group returns a router on the same mux whose routes add middleware after
// the parent's chain.
func (r *Router) Group(middleware ...Middleware) *Router {
	chain := make([]Middleware, 0, len(r.chain)+len(middleware))
	chain = append(chain, r.chain...)
	chain = append(chain, middleware...)
	return &Router{mux: r.mux, chain: chain, routes: r.routes}
}

func (r *Router) Get(pattern string, h http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodGet, pattern, h, middleware...)
}

func (r *Router) Post(pattern string, h http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPost, pattern, h, middleware...)
}

func (r *Router) Put(pattern string, h http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPut, pattern, h, middleware...)
}

func (r *Router) Delete(pattern string, h http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodDelete, pattern, h, middleware...)
}

// Options registers a preflight route. CORS normally answers before the
// handler runs.
func (r *Router) Options(pattern string, h http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodOptions, pattern, h, middleware...)
}

// Handle registers h for "METHOD pattern". Route middleware runs inside the
// router's chain. Like ServeMux, it panics on a conflicting pattern.
func (r *Router) Handle(method, pattern string, h http.Handler, middleware ...Middleware) {
	key := method + " " + pattern
	r.mux.Handle(key, wrap(h, r.chain, middleware))
	*r.routes = append(*r.routes, key)
}

// Routes lists registered "METHOD pattern" keys in registration order.
func (r *Router) Routes() []string {
	return slices.Clone(*r.routes)
}

// wrap applies outer then inner so the first middleware listed runs first.
func wrap(h http.Handler, outer, inner []Middleware) http.Handler {
	for i := len(inner) - 1; i >= 0; i-- {
		h = inner[i](h)
	}
	for i := len(outer) - 1; i >= 0; i-- {
		h = outer[i](h)
	}
	return h
}

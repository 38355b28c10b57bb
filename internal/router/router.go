// Package router maps callback tokens to handlers
package router

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrUnknownToken is returned by Dispatch when no route matches
var ErrUnknownToken = errors.New("unknown callback token")

// Request is one button press
type Request struct {
	ChatID  int64
	Token   string
	Payload string // empty for exact routes
}

// Handler handles a matched request
type Handler func(ctx context.Context, req Request) error

// UnavailableHandler handles a request whose required feature is off
type UnavailableHandler func(ctx context.Context, req Request, feature string) error

type matchKind int

const (
	matchExact matchKind = iota
	matchPrefix
)

type route struct {
	kind    matchKind
	token   string // exact token or prefix
	pattern *regexp.Regexp
	handler Handler
	feature string
}

func (r *route) match(token string) (string, bool) {
	switch r.kind {
	case matchExact:
		return "", token == r.token
	case matchPrefix:
		m := r.pattern.FindStringSubmatch(token)
		if m == nil {
			return "", false
		}
		return m[1], true
	}
	return "", false
}

// RouteOption configures a route
type RouteOption func(*route)

// Requires marks a route as needing feature to be available
func Requires(feature string) RouteOption {
	return func(r *route) {
		r.feature = feature
	}
}

// Option configures a Router
type Option func(*Router)

// WithAvailability sets the feature check used by Requires routes
func WithAvailability(available func(ctx context.Context, feature string) bool) Option {
	return func(r *Router) {
		r.available = available
	}
}

// WithUnavailable sets the handler for routes whose feature is off
func WithUnavailable(h UnavailableHandler) Option {
	return func(r *Router) {
		r.unavailable = h
	}
}

// Router is an ordered table of routes. The first matching route wins.
// Routes are registered at start-up, before the first Dispatch.
type Router struct {
	routes      []*route
	exact       map[string]bool
	available   func(ctx context.Context, feature string) bool
	unavailable UnavailableHandler
}

// New creates an empty router
func New(opts ...Option) *Router {
	r := &Router{exact: make(map[string]bool)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Exact registers h for token
func (r *Router) Exact(token string, h Handler, opts ...RouteOption) {
	if r.exact[token] {
		panic(fmt.Sprintf("router: duplicate token %q", token))
	}
	r.exact[token] = true
	r.add(&route{kind: matchExact, token: token, handler: h}, opts)
}

// Prefix registers h for tokens of the form <prefix><payload>, where the
// payload matches [0-9A-Za-z_.-]+
func (r *Router) Prefix(prefix string, h Handler, opts ...RouteOption) {
	r.add(&route{
		kind:    matchPrefix,
		token:   prefix,
		pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `([0-9A-Za-z_.\-]+)$`),
		handler: h,
	}, opts)
}

func (r *Router) add(rt *route, opts []RouteOption) {
	for _, opt := range opts {
		opt(rt)
	}
	r.routes = append(r.routes, rt)
}

// Match returns the request token resolves to
func (r *Router) Match(token string) (Request, bool) {
	rt, payload := r.lookup(token)
	if rt == nil {
		return Request{}, false
	}
	return Request{Token: token, Payload: payload}, true
}

func (r *Router) lookup(token string) (*route, string) {
	for _, rt := range r.routes {
		if payload, ok := rt.match(token); ok {
			return rt, payload
		}
	}
	return nil, ""
}

// Dispatch runs the handler of the first route matching req.Token exactly
// once. Routes whose feature is unavailable go to the unavailable handler.
func (r *Router) Dispatch(ctx context.Context, req Request) error {
	rt, payload := r.lookup(req.Token)
	if rt == nil {
		return fmt.Errorf("%w: %q", ErrUnknownToken, req.Token)
	}
	req.Payload = payload

	if rt.feature != "" && r.available != nil && !r.available(ctx, rt.feature) {
		if r.unavailable == nil {
			return nil
		}
		return r.unavailable(ctx, req, rt.feature)
	}
	return rt.handler(ctx, req)
}

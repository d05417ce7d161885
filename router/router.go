// Package router implements the pattern-based dispatcher used by the http
// package: (method, path) -> handler, with named parameters, a catchall
// path wildcard, and handler-requested fallthrough ("yield").
//
// It is deliberately independent of the http package's Request/Response
// types so it can be reused by any caller shaped like RouteContext,
// rather than folding matching logic into the connection type.
package router

import "strings"

// Param is a single matched path parameter, e.g. {Key: "id", Value: "42"}
// for a route registered as "/users/:id".
type Param struct {
	Key   string
	Value string
}

// RouteContext is the constraint a router's per-request context type must
// satisfy. The router uses it to reset/read the yield flag and to deliver
// matched path parameters before invoking a handler.
type RouteContext interface {
	Yielded() bool
	ResetYield()
	SetParams(params []Param)
}

// Handler processes a matched request.
type Handler[T RouteContext] func(ctx T)

type segmentKind int

const (
	segmentLiteral segmentKind = iota
	segmentParam
	segmentWildcard
)

type segment struct {
	kind    segmentKind
	literal string
	name    string
}

type route[T RouteContext] struct {
	method   string
	segments []segment
	handler  Handler[T]
}

// Router is a method+pattern dispatcher. The zero value is an empty
// router, the same as what New returns.
type Router[T RouteContext] struct {
	routes []route[T]
}

// New creates an empty router.
func New[T RouteContext]() *Router[T] {
	return &Router[T]{}
}

// Handle registers a handler for method and pattern. Earlier registrations
// win ties within the same method; registration order is otherwise
// preserved. method may be "*" to match any method during the fallback
// pass (see Dispatch).
func (r *Router[T]) Handle(method, pattern string, h Handler[T]) {
	r.routes = append(r.routes, route[T]{
		method:   method,
		segments: splitPattern(pattern),
		handler:  h,
	})
}

// Dispatch finds the first non-yielding route matching method and path. If
// no route matches on the exact method, it retries with the wildcard
// method "*" before giving up. It returns true if some handler ultimately
// produced a non-yielded match.
func (r *Router[T]) Dispatch(method, path string, ctx T) bool {
	if r.dispatchPass(method, path, ctx) {
		return true
	}
	if method == "*" {
		return false
	}
	return r.dispatchPass("*", path, ctx)
}

func (r *Router[T]) dispatchPass(method, path string, ctx T) bool {
	pathSegs := splitPath(path)
	for _, rt := range r.routes {
		if rt.method != method {
			continue
		}
		params, ok := match(rt.segments, pathSegs)
		if !ok {
			continue
		}
		ctx.SetParams(params)
		ctx.ResetYield()
		rt.handler(ctx)
		if !ctx.Yielded() {
			return true
		}
	}
	return false
}

func splitPattern(pattern string) []segment {
	parts := splitPath(pattern)
	segments := make([]segment, 0, len(parts))
	for _, p := range parts {
		switch {
		case p == "*":
			segments = append(segments, segment{kind: segmentWildcard})
		case strings.HasPrefix(p, ":") && len(p) > 1:
			segments = append(segments, segment{kind: segmentParam, name: p[1:]})
		default:
			segments = append(segments, segment{kind: segmentLiteral, literal: p})
		}
	}
	return segments
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func match(patternSegs []segment, pathSegs []string) ([]Param, bool) {
	var params []Param
	for i, ps := range patternSegs {
		if ps.kind == segmentWildcard {
			rest := ""
			if i < len(pathSegs) {
				rest = strings.Join(pathSegs[i:], "/")
			}
			params = append(params, Param{Key: "*", Value: rest})
			return params, true
		}
		if i >= len(pathSegs) {
			return nil, false
		}
		switch ps.kind {
		case segmentParam:
			params = append(params, Param{Key: ps.name, Value: pathSegs[i]})
		case segmentLiteral:
			if ps.literal != pathSegs[i] {
				return nil, false
			}
		}
	}
	if len(patternSegs) != len(pathSegs) {
		return nil, false
	}
	return params, true
}

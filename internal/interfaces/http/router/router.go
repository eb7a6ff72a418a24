// Package router assembles the portal's HTTP routes from per-domain groups.
package router

import (
	"cmp"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts its routes on a parent group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Route is one endpoint as reported by Router.Routes.
type Route struct {
	Group  string
	Method string
	Path   string
}

// Router mounts domain groups under /api/<version> and root registrars
// (health, metrics, docs) directly on the engine.
type Router struct {
	engine     *gin.Engine
	apiVersion string
	domains    []*DomainGroup
	root       []RouteRegistrar
}

type RouterOption func(*Router)

// WithAPIVersion replaces the default "v1" prefix.
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Register(groups ...*DomainGroup) *Router {
	r.domains = append(r.domains, groups...)
	return r
}

func (r *Router) RegisterRoot(registrars ...RouteRegistrar) *Router {
	r.root = append(r.root, registrars...)
	return r
}

func (r *Router) BasePath() string { return "/api/" + r.apiVersion }

// Setup mounts everything on the engine. Call it once.
func (r *Router) Setup() {
	for _, reg := range r.root {
		reg.RegisterRoutes(&r.engine.RouterGroup)
	}
	api := r.engine.Group(r.BasePath())
	for _, g := range r.domains {
		g.RegisterRoutes(api)
	}
}

// Routes lists the versioned endpoints ordered by path, then method.
func (r *Router) Routes() []Route {
	var out []Route
	for _, g := range r.domains {
		out = g.collect(r.BasePath(), out)
	}
	slices.SortFunc(out, func(a, b Route) int {
		return cmp.Or(strings.Compare(a.Path, b.Path), strings.Compare(a.Method, b.Method))
	})
	return out
}

// DomainGroup collects the routes of one area of the API under a prefix.
// Middleware added with Use guards every route of the group and of its
// subgroups, including routes declared before the call.
type DomainGroup struct {
	name       string
	prefix     string
	routes     []Route
	handlers   [][]gin.HandlerFunc
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

func (dg *DomainGroup) Use(mw ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, mw...)
	return dg
}

// Handle declares a route relative to the group prefix.
func (dg *DomainGroup) Handle(method, relPath string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, Route{Group: dg.name, Method: method, Path: relPath})
	dg.handlers = append(dg.handlers, handlers)
	return dg
}

func (dg *DomainGroup) GET(p string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodGet, p, h...)
}
func (dg *DomainGroup) POST(p string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPost, p, h...)
}
func (dg *DomainGroup) PUT(p string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPut, p, h...)
}
func (dg *DomainGroup) PATCH(p string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPatch, p, h...)
}
func (dg *DomainGroup) DELETE(p string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodDelete, p, h...)
}

// Group nests a group that inherits this group's middleware.
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	sub := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, sub)
	return sub
}

func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix, dg.middleware...)
	for i, route := range dg.routes {
		group.Handle(route.Method, route.Path, dg.handlers[i]...)
	}
	for _, sub := range dg.subgroups {
		sub.RegisterRoutes(group)
	}
}

func (dg *DomainGroup) collect(base string, out []Route) []Route {
	prefix := joinPaths(base, dg.prefix)
	for _, route := range dg.routes {
		route.Path = joinPaths(prefix, route.Path)
		out = append(out, route)
	}
	for _, sub := range dg.subgroups {
		out = sub.collect(prefix, out)
	}
	return out
}

// joinPaths joins the way gin does, keeping a trailing slash from rel.
func joinPaths(base, rel string) string {
	if rel == "" {
		return base
	}
	joined := path.Join(base, rel)
	if strings.HasSuffix(rel, "/") && !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	return joined
}

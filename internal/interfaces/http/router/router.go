package router

import "github.com/gin-gonic/gin"

// Registrar attaches a handler's routes to a route group.
type Registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts handler routes under a versioned API prefix.
type Router struct {
	engine  *gin.Engine
	version string
	mounted []Registrar
}

func New(engine *gin.Engine) *Router {
	return &Router{engine: engine, version: "v1"}
}

// Version overrides the default "v1" path segment.
func (r *Router) Version(v string) *Router {
	r.version = v
	return r
}

func (r *Router) Register(regs ...Registrar) *Router {
	r.mounted = append(r.mounted, regs...)
	return r
}

// Setup mounts every registered handler under /api/<version>.
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.version)
	for _, reg := range r.mounted {
		reg.RegisterRoutes(api)
	}
}

package router

import (
	"github.com/gin-gonic/gin"
	"github.com/opsdash/purchasing/internal/infrastructure/config"
	"github.com/opsdash/purchasing/internal/infrastructure/logger"
	"github.com/opsdash/purchasing/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// HealthPath is served outside the API group and is neither traced nor logged
const HealthPath = "/health"

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// EngineConfig configures the middleware chain of NewEngine
type EngineConfig struct {
	HTTP         config.HTTPConfig
	Tracing      middleware.TracingConfig
	DefaultActor string
	BodyLimit    int64
	Logger       *zap.Logger
}

// NewEngine builds a gin engine with the standard middleware chain.
// Tracing runs before the logger so request logs carry the span context.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	limit := cfg.BodyLimit
	if limit <= 0 {
		limit = middleware.DefaultBodyLimit
	}

	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(cfg.Tracing),
		logger.GinMiddleware(log, HealthPath),
		middleware.Actor(cfg.DefaultActor),
		middleware.SpanAttributes(),
		middleware.SpanErrorMarker(),
		middleware.CORS(cfg.HTTP),
		middleware.Secure(),
		middleware.BodyLimit(limit),
	)
	if cfg.HTTP.GzipEnabled {
		engine.Use(middleware.Gzip(cfg.HTTP))
	}
	return engine, nil
}

type mount struct {
	prefix     string
	registrars []RouteRegistrar
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	mounts     []mount
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register queues registrars to be mounted under /api/<version><prefix>
func (r *Router) Register(prefix string, registrars ...RouteRegistrar) *Router {
	r.mounts = append(r.mounts, mount{prefix: prefix, registrars: registrars})
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)

	for _, m := range r.mounts {
		group := api
		if m.prefix != "" {
			group = api.Group(m.prefix)
		}
		for _, registrar := range m.registrars {
			registrar.RegisterRoutes(group)
		}
	}
}

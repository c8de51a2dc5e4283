// Package router 提供 HTTP 路由配置
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"content-factory-ai/internal/config"
	"content-factory-ai/internal/interfaces/http/handler"
	"content-factory-ai/internal/interfaces/http/middleware"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Project *handler.ProjectHandler
	Chapter *handler.ChapterHandler
	Health  *handler.HealthHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers Handlers
	limiter  middleware.RateLimiter
}

// New 创建新的路由器，limiter 为空时不限流
func New(cfg *config.Config, handlers Handlers, limiter middleware.RateLimiter) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
		limiter:  limiter,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置全局中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(r.cfg.Security.CORS))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics("/health", "/ready", "/live", r.metricsPath()))
	}
}

func (r *Router) metricsPath() string {
	if p := r.cfg.Observability.Metrics.Path; p != "" {
		return p
	}
	return "/metrics"
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	health := r.handlers.Health
	r.engine.GET("/health", health.Health)
	r.engine.GET("/ready", health.Ready)
	r.engine.GET("/live", health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.metricsPath(), gin.WrapH(promhttp.Handler()))
	}

	rl := r.cfg.Security.RateLimit
	v1 := r.engine.Group("/v1")
	v1.Use(middleware.Auth(middleware.AuthConfig{
		Enabled:    r.cfg.Security.Auth.Enabled,
		Secret:     r.cfg.Security.JWT.Secret,
		Issuer:     r.cfg.Security.JWT.Issuer,
		DemoUserID: r.cfg.App.DemoUserID,
	}))
	v1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:   rl.Enabled,
		Limit:     rl.RequestsPerSecond,
		Window:    time.Second,
		KeyPrefix: "ratelimit:api",
	}, r.limiter))

	// 触发模型调用的接口单独按分钟限流
	generation := middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:   rl.Enabled,
		Limit:     rl.GenerationPerMinute,
		Window:    time.Minute,
		KeyPrefix: "ratelimit:generation",
	}, r.limiter)

	v1.GET("/models", handler.ListModels)

	projects := r.handlers.Project
	chapters := r.handlers.Chapter
	p := v1.Group("/projects")
	{
		p.GET("", projects.ListProjects)
		p.POST("", projects.CreateProject)
		p.GET("/:pid", projects.GetProject)
		p.DELETE("/:pid", projects.DeleteProject)

		p.POST("/:pid/run", generation, projects.RunProject)
		p.POST("/:pid/pause", projects.PauseProject)
		p.POST("/:pid/resume", projects.ResumeProject)
		p.POST("/:pid/cancel", projects.CancelProject)
		p.GET("/:pid/analytics", projects.GetAnalytics)
		p.GET("/:pid/export", projects.ExportProject)

		p.GET("/:pid/chapters", chapters.ListChapters)
		p.POST("/:pid/chapters", chapters.AddChapter)
		p.GET("/:pid/chapters/:cid", chapters.GetChapter)
		p.POST("/:pid/chapters/:cid/regenerate", generation, chapters.RegenerateChapter)
	}
}

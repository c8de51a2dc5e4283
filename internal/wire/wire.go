// Package wire 组装应用依赖：存储、协调组件、模型客户端、应用服务与 HTTP 路由
package wire

import (
	"context"
	"fmt"

	"content-factory-ai/internal/application/generation"
	"content-factory-ai/internal/application/project"
	"content-factory-ai/internal/config"
	"content-factory-ai/internal/domain/repository"
	"content-factory-ai/internal/infrastructure/llm"
	"content-factory-ai/internal/infrastructure/persistence/memory"
	"content-factory-ai/internal/infrastructure/persistence/postgres"
	"content-factory-ai/internal/infrastructure/persistence/redis"
	"content-factory-ai/internal/infrastructure/storage"
	"content-factory-ai/internal/interfaces/http/handler"
	"content-factory-ai/internal/interfaces/http/middleware"
	"content-factory-ai/internal/interfaces/http/router"
	"content-factory-ai/internal/workflow/port"
	"content-factory-ai/pkg/logger"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DataLayer 存储依赖容器，Postgres 仅在 postgres 驱动下非空
type DataLayer struct {
	Projects repository.ProjectRepository
	Chapters repository.ChapterRepository
	Logs     repository.AgentLogRepository
	Tx       repository.Transactor
	Postgres *postgres.Client
}

// Coordination 项目锁、限流与缓存；未启用 Redis 时使用进程内实现，缓存为空
type Coordination struct {
	Locker  project.Locker
	Limiter middleware.RateLimiter
	Cache   project.AnalyticsCache
	Redis   *redis.Client
}

// Core 应用服务及其依赖，CLI 与 HTTP 共用
type Core struct {
	Config       *config.Config
	Data         *DataLayer
	Coordination *Coordination
	Service      *project.Service
}

// cleanups 逆序执行的清理函数
type cleanups []func()

func (c cleanups) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// InitializeDataLayer 按 database.driver 选择存储实现
func InitializeDataLayer(ctx context.Context, cfg *config.Config) (*DataLayer, func(), error) {
	switch cfg.Database.Driver {
	case DriverMemory:
		store := memory.NewStore()
		logger.Info(ctx, "using in-memory store")
		return &DataLayer{
			Projects: store.Projects(),
			Chapters: store.Chapters(),
			Logs:     store.AgentLogs(),
			Tx:       store,
		}, func() {}, nil
	case DriverPostgres, "":
		client, cleanup, err := ProvidePostgresClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		return &DataLayer{
			Projects: postgres.NewProjectRepository(client),
			Chapters: postgres.NewChapterRepository(client),
			Logs:     postgres.NewAgentLogRepository(client),
			Tx:       postgres.NewTxManager(client),
			Postgres: client,
		}, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// InitializePostgresOnly 仅初始化 PostgreSQL（用于 bootstrap 迁移）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	return ProvidePostgresClient(cfg)
}

// InitializeCoordination 启用 Redis 时使用分布式锁、限流与统计缓存
func InitializeCoordination(ctx context.Context, cfg *config.Config) (*Coordination, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return &Coordination{
			Locker:  memory.NewLocker(),
			Limiter: memory.NewRateLimiter(),
		}, func() {}, nil
	}
	client, cleanup, err := ProvideRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(ctx, "redis coordination enabled", "host", cfg.Cache.Redis.Host)
	return &Coordination{
		Locker:  redis.NewLocker(client),
		Limiter: redis.NewRateLimiter(client),
		Cache:   redis.NewCache(client),
		Redis:   client,
	}, cleanup, nil
}

// InitializeCore 组装应用服务
func InitializeCore(ctx context.Context, cfg *config.Config) (*Core, func(), error) {
	var cl cleanups

	data, cleanup, err := InitializeDataLayer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cl = append(cl, cleanup)

	coord, cleanup, err := InitializeCoordination(ctx, cfg)
	if err != nil {
		cl.run()
		return nil, nil, err
	}
	cl = append(cl, cleanup)

	publisher, err := ProvidePublisher(ctx, cfg)
	if err != nil {
		cl.run()
		return nil, nil, err
	}

	pipeline := ProvidePipeline(cfg, ProvideCompleter(cfg), data)
	deps := project.Deps{
		Projects: data.Projects,
		Chapters: data.Chapters,
		Logs:     data.Logs,
		Tx:       data.Tx,
		Pipeline: pipeline,
		Locker:   coord.Locker,
	}
	// 接口变量只在实现非空时赋值，避免 typed nil
	if coord.Cache != nil {
		deps.Cache = coord.Cache
	}
	if publisher != nil {
		deps.Publisher = publisher
	}

	svc := project.NewService(deps, ProvideServiceOptions(cfg))
	return &Core{Config: cfg, Data: data, Coordination: coord, Service: svc}, cl.run, nil
}

// InitializeApp 组装 HTTP 服务
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	core, cleanup, err := InitializeCore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var deps []handler.Dependency
	if core.Data.Postgres != nil {
		deps = append(deps, handler.Dependency{Name: "postgres", Checker: core.Data.Postgres, Required: true})
	}
	if core.Coordination.Redis != nil {
		deps = append(deps, handler.Dependency{Name: "redis", Checker: core.Coordination.Redis, Required: true})
	}

	r := router.New(cfg, router.Handlers{
		Project: handler.NewProjectHandler(core.Service),
		Chapter: handler.NewChapterHandler(core.Service),
		Health:  handler.NewHealthHandler(cfg.App.Version, deps...),
	}, core.Coordination.Limiter)
	return r, cleanup, nil
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(ctx, &cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvidePublisher 未启用 R2 时返回 nil
func ProvidePublisher(ctx context.Context, cfg *config.Config) (*storage.R2Client, error) {
	if !cfg.Storage.R2.Enabled {
		return nil, nil
	}
	return storage.NewR2Client(ctx, &cfg.Storage.R2)
}

// ProvideCompleter 基于 eino ChatModel 的补全客户端
func ProvideCompleter(cfg *config.Config) port.Completer {
	return llm.NewCompletionClient(llm.NewEinoFactory(&cfg.LLM), cfg.LLM.DefaultProvider)
}

// ProvidePipeline 章节流水线
func ProvidePipeline(cfg *config.Config, completer port.Completer, data *DataLayer) *generation.ChapterPipeline {
	gen := cfg.Features.Generation
	return generation.NewChapterPipeline(completer, data.Chapters, data.Logs, generation.Settings{
		WordsPerPage:         gen.WordsPerPage,
		DefaultTargetWords:   gen.DefaultTargetWords,
		PriorContextChapters: gen.PriorContextChapters,
	})
}

// ProvideServiceOptions 项目服务参数
func ProvideServiceOptions(cfg *config.Config) project.Options {
	gen := cfg.Features.Generation
	return project.Options{
		ContinueOnChapterFailure: gen.ContinueOnChapterFailure,
		LockTTL:                  gen.LockTTL,
		AnalyticsLogLimit:        gen.AnalyticsLogLimit,
		ExportPrefix:             cfg.Storage.R2.Prefix,
	}
}

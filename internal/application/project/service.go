// Package project 实现项目生命周期：创建、批量运行、暂停/恢复/取消、删除、重新生成、统计与导出
package project

import (
	"context"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"content-factory-ai/internal/application/generation"
	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/domain/repository"
	apperrors "content-factory-ai/pkg/errors"
	"content-factory-ai/pkg/logger"
)

// Locker 项目级互斥锁，Redis 与进程内实现均满足
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// AnalyticsCache 统计结果缓存
type AnalyticsCache interface {
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, out any, loader func(ctx context.Context) (any, error)) error
	Delete(ctx context.Context, keys ...string) error
}

// Publisher 导出文档发布，返回可访问的 URL
type Publisher interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// Options 服务行为参数
type Options struct {
	ContinueOnChapterFailure bool
	LockTTL                  time.Duration
	AnalyticsLogLimit        int
	AnalyticsCacheTTL        time.Duration
	// ExportPrefix 发布导出文件时的对象键前缀
	ExportPrefix string
}

// Deps 服务依赖，Cache 与 Publisher 可为空
type Deps struct {
	Projects  repository.ProjectRepository
	Chapters  repository.ChapterRepository
	Logs      repository.AgentLogRepository
	Tx        repository.Transactor
	Pipeline  *generation.ChapterPipeline
	Locker    Locker
	Cache     AnalyticsCache
	Publisher Publisher
}

// Service 项目应用服务
type Service struct {
	projects  repository.ProjectRepository
	chapters  repository.ChapterRepository
	logs      repository.AgentLogRepository
	tx        repository.Transactor
	pipeline  *generation.ChapterPipeline
	locker    Locker
	cache     AnalyticsCache
	publisher Publisher
	validate  *validator.Validate
	runs      singleflight.Group
	opts      Options
}

// NewService 创建项目服务
func NewService(deps Deps, opts Options) *Service {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	if opts.AnalyticsLogLimit <= 0 {
		opts.AnalyticsLogLimit = 50
	}
	if opts.AnalyticsCacheTTL <= 0 {
		opts.AnalyticsCacheTTL = 15 * time.Second
	}
	if opts.ExportPrefix == "" {
		opts.ExportPrefix = "exports"
	}
	return &Service{
		projects:  deps.Projects,
		chapters:  deps.Chapters,
		logs:      deps.Logs,
		tx:        deps.Tx,
		pipeline:  deps.Pipeline,
		locker:    deps.Locker,
		cache:     deps.Cache,
		publisher: deps.Publisher,
		validate:  validator.New(),
		opts:      opts,
	}
}

// Get 获取属于用户的项目
func (s *Service) Get(ctx context.Context, userID, projectID string) (*entity.Project, error) {
	return s.owned(ctx, userID, projectID)
}

// List 用户项目列表，按创建时间倒序
func (s *Service) List(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	result, err := s.projects.ListByOwner(ctx, userID, pagination)
	if err != nil {
		return nil, apperrors.Database(err, "failed to list projects")
	}
	return result, nil
}

// ListChapters 项目章节，按序号升序
func (s *Service) ListChapters(ctx context.Context, userID, projectID string) ([]*entity.Chapter, error) {
	if _, err := s.owned(ctx, userID, projectID); err != nil {
		return nil, err
	}
	chapters, err := s.chapters.ListByProject(ctx, projectID)
	if err != nil {
		return nil, apperrors.Database(err, "failed to list chapters")
	}
	return chapters, nil
}

// GetChapter 获取项目下的单个章节
func (s *Service) GetChapter(ctx context.Context, userID, projectID, chapterID string) (*entity.Chapter, error) {
	if _, err := s.owned(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.chapterOf(ctx, projectID, chapterID)
}

// owned 不存在与不属于该用户统一返回 not found
func (s *Service) owned(ctx context.Context, userID, projectID string) (*entity.Project, error) {
	project, err := s.projects.GetByIDAndOwner(ctx, projectID, userID)
	if err != nil {
		return nil, apperrors.Database(err, "failed to load project")
	}
	if project == nil {
		return nil, apperrors.ProjectNotFound(projectID)
	}
	return project, nil
}

func (s *Service) chapterOf(ctx context.Context, projectID, chapterID string) (*entity.Chapter, error) {
	chapter, err := s.chapters.GetByID(ctx, chapterID)
	if err != nil {
		return nil, apperrors.Database(err, "failed to load chapter")
	}
	if chapter == nil || chapter.ProjectID != projectID {
		return nil, apperrors.ChapterNotFound(chapterID)
	}
	return chapter, nil
}

// reload 重新读取项目最新状态
func (s *Service) reload(ctx context.Context, projectID string) (*entity.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, apperrors.Database(err, "failed to load project")
	}
	if project == nil {
		return nil, apperrors.ProjectNotFound(projectID)
	}
	return project, nil
}

// invalidateAnalytics 统计缓存失效，失败只记日志
func (s *Service) invalidateAnalytics(ctx context.Context, projectID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, analyticsKey(projectID)); err != nil {
		logger.Warn(ctx, "failed to invalidate analytics cache", "project_id", projectID, "error", err.Error())
	}
}

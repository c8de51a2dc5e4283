package project

import (
	"context"
	"time"

	"content-factory-ai/internal/application/generation"
	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/domain/repository"
	apperrors "content-factory-ai/pkg/errors"
	"content-factory-ai/pkg/logger"
	"content-factory-ai/pkg/metrics"
)

// ChapterFailure 批量运行中写作失败的章节
type ChapterFailure struct {
	ChapterID string `json:"chapter_id"`
	Order     int    `json:"order"`
	Error     string `json:"error"`
}

// RunResult 批量运行结果
type RunResult struct {
	Project   *entity.Project  `json:"project"`
	Processed int              `json:"processed"`
	Skipped   int              `json:"skipped"`
	Halted    bool             `json:"halted"`
	Failures  []ChapterFailure `json:"failures,omitempty"`
}

var (
	liveProjectStatuses = []entity.ProjectStatus{
		entity.ProjectStatusPlanning,
		entity.ProjectStatusInProgress,
		entity.ProjectStatusPaused,
	}
	settledChapterStatuses = []entity.ChapterStatus{
		entity.ChapterStatusCompleted,
		entity.ChapterStatusCancelled,
	}
)

func runLockName(projectID string) string {
	return "project-run:" + projectID
}

// RunPending 依次生成项目中所有 pending 章节
// 同一项目的并发调用在进程内合并，跨实例由项目锁互斥。
// 调用方取消（例如 HTTP 客户端断开）只在章节之间生效，进行中的章节总会跑完
func (s *Service) RunPending(ctx context.Context, userID, projectID string) (*RunResult, error) {
	if _, err := s.owned(ctx, userID, projectID); err != nil {
		return nil, err
	}
	ctx = logger.WithProject(ctx, projectID, "")

	v, err, shared := s.runs.Do(projectID, func() (any, error) {
		return s.runPending(context.WithoutCancel(ctx), ctx.Done(), projectID)
	})
	if shared {
		logger.Debug(ctx, "run request coalesced with an in-flight run")
	}
	if err != nil {
		return nil, err
	}
	return v.(*RunResult), nil
}

// runPending 在不可取消的 ctx 上执行；stop 关闭后不再开始新章节
func (s *Service) runPending(ctx context.Context, stop <-chan struct{}, projectID string) (result *RunResult, err error) {
	outcome := "success"
	defer func() {
		if err != nil {
			outcome = "error"
		}
		metrics.ProjectRunsTotal.WithLabelValues(outcome).Inc()
	}()

	release, err := s.acquire(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer release()

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	project, err := s.reload(ctx, projectID)
	if err != nil {
		return nil, err
	}
	switch project.Status {
	case entity.ProjectStatusCancelled:
		return nil, apperrors.InvalidState("cannot generate chapters for a cancelled project")
	case entity.ProjectStatusCompleted:
		outcome = "noop"
		return &RunResult{Project: project}, nil
	}

	ok, err := s.projects.CompareAndSetStatus(ctx, projectID, liveProjectStatuses, entity.ProjectStatusInProgress)
	if err != nil {
		return nil, apperrors.Database(err, "failed to start project")
	}
	if !ok {
		return nil, apperrors.InvalidState("project changed state before the run could start")
	}

	pending, err := s.chapters.ListByProjectAndStatus(ctx, projectID, entity.ChapterStatusPending)
	if err != nil {
		return nil, apperrors.Database(err, "failed to list pending chapters")
	}
	logger.Info(ctx, "running pending chapters", "pending", len(pending))

	result = &RunResult{}
	var runErr error
	for _, queued := range pending {
		select {
		case <-stop:
			logger.Info(ctx, "caller went away, stopping before next chapter")
			result.Halted = true
		default:
		}
		if result.Halted {
			break
		}

		current, err := s.reload(ctx, projectID)
		if err != nil {
			runErr = err
			break
		}
		if current.Status == entity.ProjectStatusPaused || current.Status == entity.ProjectStatusCancelled {
			logger.Info(ctx, "project halted during run, stopping", "status", string(current.Status))
			result.Halted = true
			break
		}

		chapter, err := s.chapters.GetByID(ctx, queued.ID)
		if err != nil {
			runErr = apperrors.Database(err, "failed to reload chapter")
			break
		}
		if chapter == nil || chapter.Status != entity.ChapterStatusPending {
			result.Skipped++
			continue
		}

		_, err = s.pipeline.Run(ctx, current, chapter, generation.RunOptions{})
		result.Processed++
		if err == nil {
			continue
		}
		if !s.opts.ContinueOnChapterFailure {
			runErr = err
			break
		}
		result.Failures = append(result.Failures, ChapterFailure{
			ChapterID: chapter.ID,
			Order:     chapter.Order,
			Error:     err.Error(),
		})
	}

	project, err = s.finalize(ctx, projectID)
	s.invalidateAnalytics(ctx, projectID)
	if runErr != nil {
		return nil, runErr
	}
	if err != nil {
		return nil, err
	}
	result.Project = project

	logger.Info(ctx, "run finished",
		"processed", result.Processed,
		"failures", len(result.Failures),
		"completed", project.CurrentChapter,
		"total", project.TotalChapters,
		"status", string(project.Status),
	)
	if len(result.Failures) > 0 {
		outcome = "partial"
	}
	return result, nil
}

// finalize 重算已完成章节数，全部完成时 in_progress -> completed
// 使用 CAS，避免覆盖运行期间发生的暂停或取消
func (s *Service) finalize(ctx context.Context, projectID string) (*entity.Project, error) {
	counts, err := s.chapters.CountByStatus(ctx, projectID)
	if err != nil {
		return nil, apperrors.Database(err, "failed to count chapters")
	}
	completed := counts[entity.ChapterStatusCompleted]
	if err := s.projects.UpdateProgress(ctx, projectID, completed); err != nil {
		return nil, apperrors.Database(err, "failed to update progress")
	}

	project, err := s.reload(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.TotalChapters > 0 && completed >= project.TotalChapters {
		if _, err := s.projects.CompareAndSetStatus(ctx, projectID,
			[]entity.ProjectStatus{entity.ProjectStatusInProgress}, entity.ProjectStatusCompleted); err != nil {
			return nil, apperrors.Database(err, "failed to complete project")
		}
		return s.reload(ctx, projectID)
	}
	return project, nil
}

// acquire 获取项目锁，已被占用时返回冲突
func (s *Service) acquire(ctx context.Context, projectID string) (func(), error) {
	unlock, ok, err := s.locker.TryLock(ctx, runLockName(projectID), s.opts.LockTTL)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to acquire project lock")
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeConflict, "project generation already in progress").WithDetail(projectID)
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := unlock(releaseCtx); err != nil {
			logger.Warn(ctx, "failed to release project lock", "error", err.Error())
		}
	}, nil
}

// Pause 暂停项目，未完成的章节全部置为 paused
func (s *Service) Pause(ctx context.Context, userID, projectID string) (*entity.Project, error) {
	return s.transition(ctx, userID, projectID, entity.ProjectStatusPaused, func(txCtx context.Context, p *entity.Project) error {
		if p.Status.IsTerminal() {
			return apperrors.InvalidState("cannot pause a %s project", p.Status)
		}
		_, err := s.chapters.BulkUpdateStatus(txCtx, projectID,
			repository.ChapterStatusFilter{NotIn: settledChapterStatuses}, entity.ChapterStatusPaused)
		return err
	})
}

// Resume 恢复暂停的项目，paused 章节回到 pending 等待下一次运行
func (s *Service) Resume(ctx context.Context, userID, projectID string) (*entity.Project, error) {
	return s.transition(ctx, userID, projectID, entity.ProjectStatusInProgress, func(txCtx context.Context, p *entity.Project) error {
		if p.Status != entity.ProjectStatusPaused {
			return apperrors.InvalidState("only paused projects can be resumed, project is %s", p.Status)
		}
		_, err := s.chapters.BulkUpdateStatus(txCtx, projectID,
			repository.ChapterStatusFilter{In: []entity.ChapterStatus{entity.ChapterStatusPaused}}, entity.ChapterStatusPending)
		return err
	})
}

// Cancel 取消项目；已取消时直接返回
func (s *Service) Cancel(ctx context.Context, userID, projectID string) (*entity.Project, error) {
	project, err := s.owned(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status == entity.ProjectStatusCancelled {
		return project, nil
	}
	return s.transition(ctx, userID, projectID, entity.ProjectStatusCancelled, func(txCtx context.Context, p *entity.Project) error {
		if p.Status == entity.ProjectStatusCompleted {
			return apperrors.InvalidState("cannot cancel a completed project")
		}
		_, err := s.chapters.BulkUpdateStatus(txCtx, projectID,
			repository.ChapterStatusFilter{NotIn: settledChapterStatuses}, entity.ChapterStatusCancelled)
		return err
	})
}

// transition 在事务中校验并迁移项目状态，随后执行章节批量更新
func (s *Service) transition(ctx context.Context, userID, projectID string, to entity.ProjectStatus, apply func(context.Context, *entity.Project) error) (*entity.Project, error) {
	var updated *entity.Project
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		project, err := s.owned(txCtx, userID, projectID)
		if err != nil {
			return err
		}
		if err := apply(txCtx, project); err != nil {
			return err
		}
		if !project.Status.CanTransitionTo(to) {
			return apperrors.InvalidState("illegal transition %s -> %s", project.Status, to)
		}
		ok, err := s.projects.CompareAndSetStatus(txCtx, projectID, []entity.ProjectStatus{project.Status}, to)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.InvalidState("project changed state concurrently")
		}
		updated, err = s.reload(txCtx, projectID)
		return err
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Database(err, "failed to update project status")
	}

	s.invalidateAnalytics(ctx, projectID)
	logger.Info(ctx, "project status changed", "project_id", projectID, "status", string(to))
	return updated, nil
}

// Delete 级联删除章节、流水与项目
func (s *Service) Delete(ctx context.Context, userID, projectID string) error {
	if _, err := s.owned(ctx, userID, projectID); err != nil {
		return err
	}
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.chapters.DeleteByProject(txCtx, projectID); err != nil {
			return err
		}
		if err := s.logs.DeleteByProject(txCtx, projectID); err != nil {
			return err
		}
		return s.projects.Delete(txCtx, projectID)
	})
	if err != nil {
		return apperrors.Database(err, "failed to delete project")
	}
	s.invalidateAnalytics(ctx, projectID)
	logger.Info(ctx, "project deleted", "project_id", projectID)
	return nil
}

// RegenerateChapter 不论章节当前状态，重新执行写作及后续阶段
// 插图提示词历史保留，正文被覆盖
func (s *Service) RegenerateChapter(ctx context.Context, userID, projectID, chapterID string) (*entity.Chapter, error) {
	project, err := s.owned(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	chapter, err := s.chapterOf(ctx, projectID, chapterID)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx = logger.WithProject(ctx, projectID, chapterID)
	logger.Info(ctx, "regenerating chapter", "order", chapter.Order, "status", string(chapter.Status))

	ctx = context.WithoutCancel(ctx)
	_, runErr := s.pipeline.Run(ctx, project, chapter, generation.RunOptions{Regenerate: true})

	counts, err := s.chapters.CountByStatus(ctx, projectID)
	if err == nil {
		err = s.projects.UpdateProgress(ctx, projectID, counts[entity.ChapterStatusCompleted])
	}
	if err != nil {
		logger.Warn(ctx, "failed to refresh progress after regeneration", "error", err.Error())
	}
	s.invalidateAnalytics(ctx, projectID)

	if runErr != nil {
		return nil, runErr
	}
	return s.chapterOf(ctx, projectID, chapterID)
}

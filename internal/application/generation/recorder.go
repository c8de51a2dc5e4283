// Package generation 实现单章节的生成流水线：写作、插图提示词、编辑审校
package generation

import (
	"context"
	"time"

	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/domain/repository"
	"content-factory-ai/internal/workflow/port"
	"content-factory-ai/pkg/logger"
	"content-factory-ai/pkg/metrics"
)

// Recorder 记录每次阶段调用的流水与指标
// 流水写入失败只记日志，不影响章节结果
type Recorder struct {
	logs repository.AgentLogRepository
	now  func() time.Time
}

// NewRecorder 创建调用记录器
func NewRecorder(logs repository.AgentLogRepository) *Recorder {
	return &Recorder{logs: logs, now: time.Now}
}

// Success 记录一次成功调用
func (r *Recorder) Success(ctx context.Context, chapter *entity.Chapter, role entity.AgentRole, res *port.CompletionResult) {
	metrics.GenerationStageTotal.WithLabelValues(string(role), "success").Inc()
	metrics.GenerationStageDuration.WithLabelValues(string(role)).Observe(res.Duration.Seconds())

	r.append(ctx, &entity.AgentLog{
		ProjectID:    chapter.ProjectID,
		ChapterID:    chapter.ID,
		Role:         role,
		Model:        res.Model,
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
		DurationMs:   res.DurationMs(),
		Status:       entity.AgentLogStatusSuccess,
	})
}

// Failure 记录一次失败调用，token 计为 0
func (r *Recorder) Failure(ctx context.Context, chapter *entity.Chapter, role entity.AgentRole, model string, elapsed time.Duration, cause error) {
	metrics.GenerationStageTotal.WithLabelValues(string(role), "error").Inc()
	metrics.GenerationStageDuration.WithLabelValues(string(role)).Observe(elapsed.Seconds())

	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	r.append(ctx, &entity.AgentLog{
		ProjectID:    chapter.ProjectID,
		ChapterID:    chapter.ID,
		Role:         role,
		Model:        model,
		DurationMs:   elapsed.Milliseconds(),
		Status:       entity.AgentLogStatusError,
		ErrorMessage: msg,
	})
}

func (r *Recorder) append(ctx context.Context, log *entity.AgentLog) {
	log.CreatedAt = r.now()
	if err := r.logs.Create(ctx, log); err != nil {
		logger.Error(ctx, "failed to append agent log", err,
			"role", string(log.Role),
			"status", string(log.Status),
		)
	}
}

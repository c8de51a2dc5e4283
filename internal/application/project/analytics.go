package project

import (
	"context"

	"content-factory-ai/internal/domain/agentmodel"
	"content-factory-ai/internal/domain/entity"
	apperrors "content-factory-ai/pkg/errors"
	"content-factory-ai/pkg/logger"
)

// ChapterStats 章节进度统计，InProgress 统计处于执行阶段的章节
type ChapterStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Pending    int `json:"pending"`
	Paused     int `json:"paused"`
	Cancelled  int `json:"cancelled"`
}

// TokenUsage 项目全部调用的用量汇总
type TokenUsage struct {
	Total            int64   `json:"total"`
	Input            int64   `json:"input"`
	Output           int64   `json:"output"`
	DurationMs       int64   `json:"duration_ms"`
	AgentCalls       int64   `json:"agent_calls"`
	FailedCalls      int64   `json:"failed_calls"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// Analytics 项目统计
type Analytics struct {
	ProjectID    string             `json:"project_id"`
	ChapterStats ChapterStats       `json:"chapter_stats"`
	TokenUsage   TokenUsage         `json:"token_usage"`
	RecentLogs   []*entity.AgentLog `json:"recent_logs"`
}

func analyticsKey(projectID string) string {
	return "analytics:" + projectID
}

// Analytics 返回章节统计、用量汇总与最近的调用流水；启用缓存时短暂缓存
func (s *Service) Analytics(ctx context.Context, userID, projectID string) (*Analytics, error) {
	if _, err := s.owned(ctx, userID, projectID); err != nil {
		return nil, err
	}

	if s.cache == nil {
		return s.computeAnalytics(ctx, projectID)
	}

	var out Analytics
	err := s.cache.GetOrLoad(ctx, analyticsKey(projectID), s.opts.AnalyticsCacheTTL, &out, func(ctx context.Context) (any, error) {
		return s.computeAnalytics(ctx, projectID)
	})
	if err == nil {
		return &out, nil
	}
	if apperrors.IsAppError(err) {
		return nil, err
	}
	logger.Warn(ctx, "analytics cache unavailable, computing directly", "project_id", projectID, "error", err.Error())
	return s.computeAnalytics(ctx, projectID)
}

func (s *Service) computeAnalytics(ctx context.Context, projectID string) (*Analytics, error) {
	counts, err := s.chapters.CountByStatus(ctx, projectID)
	if err != nil {
		return nil, apperrors.Database(err, "failed to count chapters")
	}
	agg, err := s.logs.AggregateByProject(ctx, projectID)
	if err != nil {
		return nil, apperrors.Database(err, "failed to aggregate agent logs")
	}
	usage, err := s.logs.UsageByModel(ctx, projectID)
	if err != nil {
		return nil, apperrors.Database(err, "failed to aggregate model usage")
	}
	recent, err := s.logs.ListRecentByProject(ctx, projectID, s.opts.AnalyticsLogLimit)
	if err != nil {
		return nil, apperrors.Database(err, "failed to list agent logs")
	}
	if recent == nil {
		recent = []*entity.AgentLog{}
	}

	var cost float64
	for _, u := range usage {
		cost += agentmodel.EstimateCost(u.Model, int(u.InputTokens), int(u.OutputTokens))
	}

	return &Analytics{
		ProjectID:    projectID,
		ChapterStats: chapterStats(counts),
		TokenUsage: TokenUsage{
			Total:            agg.InputTokens + agg.OutputTokens,
			Input:            agg.InputTokens,
			Output:           agg.OutputTokens,
			DurationMs:       agg.DurationMs,
			AgentCalls:       agg.Calls,
			FailedCalls:      agg.Errors,
			EstimatedCostUSD: cost,
		},
		RecentLogs: recent,
	}, nil
}

func chapterStats(counts map[entity.ChapterStatus]int) ChapterStats {
	var stats ChapterStats
	for status, n := range counts {
		stats.Total += n
		switch {
		case status == entity.ChapterStatusCompleted:
			stats.Completed += n
		case status == entity.ChapterStatusPending:
			stats.Pending += n
		case status == entity.ChapterStatusPaused:
			stats.Paused += n
		case status == entity.ChapterStatusCancelled:
			stats.Cancelled += n
		case status.IsRunning():
			stats.InProgress += n
		}
	}
	return stats
}

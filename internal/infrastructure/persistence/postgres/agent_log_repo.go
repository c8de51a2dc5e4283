// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/domain/repository"
)

// AgentLogRepository 智能体调用流水仓储实现
type AgentLogRepository struct {
	client *Client
}

var _ repository.AgentLogRepository = (*AgentLogRepository)(nil)

// NewAgentLogRepository 创建流水仓储
func NewAgentLogRepository(client *Client) *AgentLogRepository {
	return &AgentLogRepository{client: client}
}

// Create 追加流水
func (r *AgentLogRepository) Create(ctx context.Context, log *entity.AgentLog) error {
	ctx, span := tracer.Start(ctx, "postgres.AgentLogRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(log).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create agent log: %w", err)
	}
	return nil
}

// ListRecentByProject 最近的流水
func (r *AgentLogRepository) ListRecentByProject(ctx context.Context, projectID string, limit int) ([]*entity.AgentLog, error) {
	ctx, span := tracer.Start(ctx, "postgres.AgentLogRepository.ListRecentByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Where("project_id = ?", projectID).Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var logs []*entity.AgentLog
	if err := query.Find(&logs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list agent logs: %w", err)
	}
	return logs, nil
}

// ListByChapter 章节全部流水
func (r *AgentLogRepository) ListByChapter(ctx context.Context, chapterID string) ([]*entity.AgentLog, error) {
	ctx, span := tracer.Start(ctx, "postgres.AgentLogRepository.ListByChapter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var logs []*entity.AgentLog
	if err := db.Where("chapter_id = ?", chapterID).
		Order("created_at ASC").
		Find(&logs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapter agent logs: %w", err)
	}
	return logs, nil
}

// AggregateByProject 汇总项目全部流水
func (r *AgentLogRepository) AggregateByProject(ctx context.Context, projectID string) (*repository.AgentLogAggregate, error) {
	ctx, span := tracer.Start(ctx, "postgres.AgentLogRepository.AggregateByProject")
	defer span.End()

	var agg repository.AgentLogAggregate
	db := getDB(ctx, r.client.db)
	err := db.Model(&entity.AgentLog{}).
		Select(`COUNT(*) AS calls,
			COUNT(*) FILTER (WHERE status = ?) AS errors,
			COALESCE(SUM(input_tokens), 0) AS input_tokens,
			COALESCE(SUM(output_tokens), 0) AS output_tokens,
			COALESCE(SUM(duration_ms), 0) AS duration_ms`, entity.AgentLogStatusError).
		Where("project_id = ?", projectID).
		Scan(&agg).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to aggregate agent logs: %w", err)
	}
	return &agg, nil
}

// UsageByModel 按模型汇总 token 用量
func (r *AgentLogRepository) UsageByModel(ctx context.Context, projectID string) ([]repository.ModelUsage, error) {
	ctx, span := tracer.Start(ctx, "postgres.AgentLogRepository.UsageByModel")
	defer span.End()

	var usage []repository.ModelUsage
	db := getDB(ctx, r.client.db)
	err := db.Model(&entity.AgentLog{}).
		Select("model, COALESCE(SUM(input_tokens), 0) AS input_tokens, COALESCE(SUM(output_tokens), 0) AS output_tokens").
		Where("project_id = ?", projectID).
		Group("model").
		Order("model ASC").
		Scan(&usage).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to aggregate model usage: %w", err)
	}
	return usage, nil
}

// DeleteByProject 随项目级联删除
func (r *AgentLogRepository) DeleteByProject(ctx context.Context, projectID string) error {
	ctx, span := tracer.Start(ctx, "postgres.AgentLogRepository.DeleteByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Where("project_id = ?", projectID).Delete(&entity.AgentLog{}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete agent logs: %w", err)
	}
	return nil
}

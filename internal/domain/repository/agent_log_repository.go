// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"content-factory-ai/internal/domain/entity"
)

// AgentLogAggregate 项目维度的调用汇总
type AgentLogAggregate struct {
	Calls        int64 `json:"calls"`
	Errors       int64 `json:"errors"`
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	DurationMs   int64 `json:"duration_ms"`
}

// ModelUsage 按模型拆分的用量，用于成本估算
type ModelUsage struct {
	Model        string `json:"model"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// AgentLogRepository 智能体调用流水仓储，只追加
type AgentLogRepository interface {
	// Create 追加一条流水
	Create(ctx context.Context, log *entity.AgentLog) error

	// ListRecentByProject 最近的流水（按创建时间倒序）
	ListRecentByProject(ctx context.Context, projectID string, limit int) ([]*entity.AgentLog, error)

	// ListByChapter 章节的全部流水（按创建时间升序）
	ListByChapter(ctx context.Context, chapterID string) ([]*entity.AgentLog, error)

	// AggregateByProject 汇总项目全部流水
	AggregateByProject(ctx context.Context, projectID string) (*AgentLogAggregate, error)

	// UsageByModel 按模型汇总 token 用量
	UsageByModel(ctx context.Context, projectID string) ([]ModelUsage, error)

	// DeleteByProject 随项目级联删除
	DeleteByProject(ctx context.Context, projectID string) error
}

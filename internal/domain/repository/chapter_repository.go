// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"content-factory-ai/internal/domain/entity"
)

// ChapterStatusFilter 批量更新的状态条件，In 与 NotIn 同时为空时匹配全部
type ChapterStatusFilter struct {
	In    []entity.ChapterStatus
	NotIn []entity.ChapterStatus
}

// Matches 判断状态是否满足条件
func (f ChapterStatusFilter) Matches(s entity.ChapterStatus) bool {
	if len(f.In) > 0 && !containsStatus(f.In, s) {
		return false
	}
	if containsStatus(f.NotIn, s) {
		return false
	}
	return true
}

func containsStatus(list []entity.ChapterStatus, s entity.ChapterStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ChapterRepository 章节仓储接口
type ChapterRepository interface {
	// CreateBatch 批量创建章节
	CreateBatch(ctx context.Context, chapters []*entity.Chapter) error

	// GetByID 根据 ID 获取章节
	GetByID(ctx context.Context, id string) (*entity.Chapter, error)

	// ListByProject 获取项目全部章节（按 order 升序）
	ListByProject(ctx context.Context, projectID string) ([]*entity.Chapter, error)

	// ListByProjectAndStatus 获取指定状态的章节（按 order 升序）
	ListByProjectAndStatus(ctx context.Context, projectID string, status entity.ChapterStatus) ([]*entity.Chapter, error)

	// Update 整体保存章节
	Update(ctx context.Context, chapter *entity.Chapter) error

	// BulkUpdateStatus 按条件批量更新项目下章节状态，返回受影响行数
	BulkUpdateStatus(ctx context.Context, projectID string, filter ChapterStatusFilter, to entity.ChapterStatus) (int64, error)

	// CountByStatus 统计项目下各状态章节数量
	CountByStatus(ctx context.Context, projectID string) (map[entity.ChapterStatus]int, error)

	// NextOrder 返回下一个可用序号
	NextOrder(ctx context.Context, projectID string) (int, error)

	// DeleteByProject 删除项目下全部章节
	DeleteByProject(ctx context.Context, projectID string) error
}

// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"content-factory-ai/internal/domain/entity"
)

// ProjectRepository 项目仓储接口
// 未找到记录时 Get 系列方法返回 (nil, nil)
type ProjectRepository interface {
	// Create 创建项目
	Create(ctx context.Context, project *entity.Project) error

	// GetByID 根据 ID 获取项目
	GetByID(ctx context.Context, id string) (*entity.Project, error)

	// GetByIDAndOwner 获取属于指定用户的项目
	GetByIDAndOwner(ctx context.Context, id, userID string) (*entity.Project, error)

	// UpdateOutline 只更新大纲与章节总数，不触碰状态与进度
	UpdateOutline(ctx context.Context, id string, outline []entity.OutlineItem, totalChapters int) error

	// CompareAndSetStatus 当前状态属于 from 时才更新为 to，返回是否更新成功
	CompareAndSetStatus(ctx context.Context, id string, from []entity.ProjectStatus, to entity.ProjectStatus) (bool, error)

	// UpdateProgress 更新已完成章节计数
	UpdateProgress(ctx context.Context, id string, currentChapter int) error

	// Delete 删除项目
	Delete(ctx context.Context, id string) error

	// ListByOwner 获取用户项目列表（按创建时间倒序）
	ListByOwner(ctx context.Context, userID string, pagination Pagination) (*PagedResult[*entity.Project], error)
}

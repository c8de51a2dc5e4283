// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/domain/repository"
)

// ProjectRepository 项目仓储实现
type ProjectRepository struct {
	client *Client
}

var _ repository.ProjectRepository = (*ProjectRepository)(nil)

// NewProjectRepository 创建项目仓储
func NewProjectRepository(client *Client) *ProjectRepository {
	return &ProjectRepository{client: client}
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(project).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取项目
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var project entity.Project
	if err := db.First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

// GetByIDAndOwner 获取属于指定用户的项目
func (r *ProjectRepository) GetByIDAndOwner(ctx context.Context, id, userID string) (*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.GetByIDAndOwner")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var project entity.Project
	if err := db.First(&project, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

// UpdateOutline 列级更新，运行中并发写入的 status、current_chapter 不会被旧值覆盖
func (r *ProjectRepository) UpdateOutline(ctx context.Context, id string, outline []entity.OutlineItem, totalChapters int) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.UpdateOutline")
	defer span.End()

	db := getDB(ctx, r.client.db)
	// 结构体 + Select 才会经过 outline 的 json serializer
	result := db.Model(&entity.Project{}).
		Where("id = ?", id).
		Select("outline", "total_chapters").
		Updates(&entity.Project{Outline: outline, TotalChapters: totalChapters})
	if result.Error != nil {
		span.RecordError(result.Error)
		return fmt.Errorf("failed to update project outline: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update project outline: %s not found", id)
	}
	return nil
}

// CompareAndSetStatus 条件更新状态
func (r *ProjectRepository) CompareAndSetStatus(ctx context.Context, id string, from []entity.ProjectStatus, to entity.ProjectStatus) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.CompareAndSetStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Project{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if result.Error != nil {
		span.RecordError(result.Error)
		return false, fmt.Errorf("failed to update project status: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// UpdateProgress 更新已完成章节计数
func (r *ProjectRepository) UpdateProgress(ctx context.Context, id string, currentChapter int) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.UpdateProgress")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Project{}).Where("id = ?", id).Update("current_chapter", currentChapter).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update project progress: %w", err)
	}
	return nil
}

// Delete 删除项目
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Project{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// ListByOwner 获取用户项目列表
func (r *ProjectRepository) ListByOwner(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.ListByOwner")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Project{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	var projects []*entity.Project
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&projects).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return repository.NewPagedResult(projects, total, pagination), nil
}

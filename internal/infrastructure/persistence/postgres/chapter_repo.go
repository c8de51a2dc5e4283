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

// ChapterRepository 章节仓储实现
type ChapterRepository struct {
	client *Client
}

var _ repository.ChapterRepository = (*ChapterRepository)(nil)

// NewChapterRepository 创建章节仓储
func NewChapterRepository(client *Client) *ChapterRepository {
	return &ChapterRepository{client: client}
}

// CreateBatch 批量创建章节
func (r *ChapterRepository) CreateBatch(ctx context.Context, chapters []*entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.CreateBatch")
	defer span.End()

	if len(chapters) == 0 {
		return nil
	}
	db := getDB(ctx, r.client.db)
	if err := db.CreateInBatches(chapters, 100).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create chapters: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取章节
func (r *ChapterRepository) GetByID(ctx context.Context, id string) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.First(&chapter, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &chapter, nil
}

// ListByProject 获取项目的章节列表
func (r *ChapterRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.Chapter
	if err := db.Where("project_id = ?", projectID).
		Order("chapter_order ASC").
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	return chapters, nil
}

// ListByProjectAndStatus 获取指定状态的章节
func (r *ChapterRepository) ListByProjectAndStatus(ctx context.Context, projectID string, status entity.ChapterStatus) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListByProjectAndStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.Chapter
	if err := db.Where("project_id = ? AND status = ?", projectID, status).
		Order("chapter_order ASC").
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters by status: %w", err)
	}
	return chapters, nil
}

// Update 更新章节
func (r *ChapterRepository) Update(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(chapter).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update chapter: %w", err)
	}
	return nil
}

// BulkUpdateStatus 按条件批量更新章节状态
func (r *ChapterRepository) BulkUpdateStatus(ctx context.Context, projectID string, filter repository.ChapterStatusFilter, to entity.ChapterStatus) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.BulkUpdateStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Chapter{}).Where("project_id = ?", projectID)
	if len(filter.In) > 0 {
		query = query.Where("status IN ?", filter.In)
	}
	if len(filter.NotIn) > 0 {
		query = query.Where("status NOT IN ?", filter.NotIn)
	}

	result := query.Update("status", to)
	if result.Error != nil {
		span.RecordError(result.Error)
		return 0, fmt.Errorf("failed to bulk update chapter status: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountByStatus 统计各状态章节数量
func (r *ChapterRepository) CountByStatus(ctx context.Context, projectID string) (map[entity.ChapterStatus]int, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.CountByStatus")
	defer span.End()

	var rows []struct {
		Status entity.ChapterStatus
		Count  int
	}
	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Chapter{}).
		Select("status, COUNT(*) AS count").
		Where("project_id = ?", projectID).
		Group("status").
		Scan(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count chapters: %w", err)
	}

	counts := make(map[entity.ChapterStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// NextOrder 获取下一个序号
func (r *ChapterRepository) NextOrder(ctx context.Context, projectID string) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.NextOrder")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var maxOrder *int
	if err := db.Model(&entity.Chapter{}).
		Where("project_id = ?", projectID).
		Select("MAX(chapter_order)").
		Scan(&maxOrder).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to get next chapter order: %w", err)
	}
	if maxOrder == nil {
		return 1, nil
	}
	return *maxOrder + 1, nil
}

// DeleteByProject 删除项目下全部章节
func (r *ChapterRepository) DeleteByProject(ctx context.Context, projectID string) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.DeleteByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Where("project_id = ?", projectID).Delete(&entity.Chapter{}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chapters: %w", err)
	}
	return nil
}

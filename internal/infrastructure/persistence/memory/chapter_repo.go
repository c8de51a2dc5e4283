package memory

import (
	"context"
	"fmt"
	"sort"

	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/domain/repository"
)

// ChapterRepository 章节仓储内存实现
type ChapterRepository struct {
	s *Store
}

var _ repository.ChapterRepository = (*ChapterRepository)(nil)

// CreateBatch 批量创建章节，(project_id, order) 必须唯一
func (r *ChapterRepository) CreateBatch(ctx context.Context, chapters []*entity.Chapter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	taken := make(map[string]map[int]bool)
	for _, c := range r.s.chapters {
		if taken[c.ProjectID] == nil {
			taken[c.ProjectID] = make(map[int]bool)
		}
		taken[c.ProjectID][c.Order] = true
	}
	for _, c := range chapters {
		if taken[c.ProjectID][c.Order] {
			return fmt.Errorf("failed to create chapters: duplicate order %d in project %s", c.Order, c.ProjectID)
		}
		if taken[c.ProjectID] == nil {
			taken[c.ProjectID] = make(map[int]bool)
		}
		taken[c.ProjectID][c.Order] = true
	}

	now := r.s.now()
	ids := make([]string, 0, len(chapters))
	for _, c := range chapters {
		if c.ID == "" {
			c.ID = newID()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
		r.s.chapters[c.ID] = c.Clone()
		ids = append(ids, c.ID)
	}
	r.s.onRollback(ctx, func() {
		for _, id := range ids {
			delete(r.s.chapters, id)
		}
	})
	return nil
}

// GetByID 根据 ID 获取章节
func (r *ChapterRepository) GetByID(ctx context.Context, id string) (*entity.Chapter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.chapters[id].Clone(), nil
}

// ListByProject 获取项目全部章节
func (r *ChapterRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.Chapter, error) {
	return r.list(projectID, func(*entity.Chapter) bool { return true }), nil
}

// ListByProjectAndStatus 获取指定状态的章节
func (r *ChapterRepository) ListByProjectAndStatus(ctx context.Context, projectID string, status entity.ChapterStatus) ([]*entity.Chapter, error) {
	return r.list(projectID, func(c *entity.Chapter) bool { return c.Status == status }), nil
}

func (r *ChapterRepository) list(projectID string, keep func(*entity.Chapter) bool) []*entity.Chapter {
	r.s.mu.RLock()
	out := make([]*entity.Chapter, 0)
	for _, c := range r.s.chapters {
		if c.ProjectID == projectID && keep(c) {
			out = append(out, c.Clone())
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Update 整体保存章节
func (r *ChapterRepository) Update(ctx context.Context, chapter *entity.Chapter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.chapters[chapter.ID]
	if !ok {
		return fmt.Errorf("failed to update chapter: %s not found", chapter.ID)
	}
	chapter.UpdatedAt = r.s.now()
	r.s.chapters[chapter.ID] = chapter.Clone()
	r.s.onRollback(ctx, func() { r.s.chapters[prev.ID] = prev })
	return nil
}

// BulkUpdateStatus 按条件批量更新章节状态
func (r *ChapterRepository) BulkUpdateStatus(ctx context.Context, projectID string, filter repository.ChapterStatusFilter, to entity.ChapterStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	now := r.s.now()
	for _, c := range r.s.chapters {
		if c.ProjectID != projectID || !filter.Matches(c.Status) {
			continue
		}
		prevStatus, prevAt := c.Status, c.UpdatedAt
		c.Status = to
		c.UpdatedAt = now
		r.s.onRollback(ctx, func() { c.Status, c.UpdatedAt = prevStatus, prevAt })
		n++
	}
	return n, nil
}

// CountByStatus 统计各状态章节数量
func (r *ChapterRepository) CountByStatus(ctx context.Context, projectID string) (map[entity.ChapterStatus]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[entity.ChapterStatus]int)
	for _, c := range r.s.chapters {
		if c.ProjectID == projectID {
			counts[c.Status]++
		}
	}
	return counts, nil
}

// NextOrder 返回下一个可用序号
func (r *ChapterRepository) NextOrder(ctx context.Context, projectID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	max := 0
	for _, c := range r.s.chapters {
		if c.ProjectID == projectID && c.Order > max {
			max = c.Order
		}
	}
	return max + 1, nil
}

// DeleteByProject 删除项目下全部章节
func (r *ChapterRepository) DeleteByProject(ctx context.Context, projectID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	removed := make(map[string]*entity.Chapter)
	for id, c := range r.s.chapters {
		if c.ProjectID == projectID {
			removed[id] = c
			delete(r.s.chapters, id)
		}
	}
	r.s.onRollback(ctx, func() {
		for id, c := range removed {
			r.s.chapters[id] = c
		}
	})
	return nil
}

package memory

import (
	"context"
	"fmt"
	"sort"

	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/domain/repository"
)

// ProjectRepository 项目仓储内存实现
type ProjectRepository struct {
	s *Store
}

var _ repository.ProjectRepository = (*ProjectRepository)(nil)

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if project.ID == "" {
		project.ID = newID()
	}
	if _, exists := r.s.projects[project.ID]; exists {
		return fmt.Errorf("failed to create project: duplicate id %s", project.ID)
	}
	now := r.s.now()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now
	r.s.projects[project.ID] = project.Clone()
	id := project.ID
	r.s.onRollback(ctx, func() { delete(r.s.projects, id) })
	return nil
}

// GetByID 根据 ID 获取项目
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.projects[id].Clone(), nil
}

// GetByIDAndOwner 获取属于指定用户的项目
func (r *ProjectRepository) GetByIDAndOwner(ctx context.Context, id, userID string) (*entity.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.projects[id]
	if !ok || p.UserID != userID {
		return nil, nil
	}
	return p.Clone(), nil
}

// UpdateOutline 只更新大纲与章节总数
func (r *ProjectRepository) UpdateOutline(ctx context.Context, id string, outline []entity.OutlineItem, totalChapters int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[id]
	if !ok {
		return fmt.Errorf("failed to update project outline: %s not found", id)
	}
	prevOutline, prevTotal, prevAt := p.Outline, p.TotalChapters, p.UpdatedAt
	p.Outline = append([]entity.OutlineItem(nil), outline...)
	p.TotalChapters = totalChapters
	p.UpdatedAt = r.s.now()
	r.s.onRollback(ctx, func() { p.Outline, p.TotalChapters, p.UpdatedAt = prevOutline, prevTotal, prevAt })
	return nil
}

// CompareAndSetStatus 条件更新状态
func (r *ProjectRepository) CompareAndSetStatus(ctx context.Context, id string, from []entity.ProjectStatus, to entity.ProjectStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if p.Status == s {
			prevStatus, prevAt := p.Status, p.UpdatedAt
			p.Status = to
			p.UpdatedAt = r.s.now()
			r.s.onRollback(ctx, func() { p.Status, p.UpdatedAt = prevStatus, prevAt })
			return true, nil
		}
	}
	return false, nil
}

// UpdateProgress 更新已完成章节计数
func (r *ProjectRepository) UpdateProgress(ctx context.Context, id string, currentChapter int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[id]
	if !ok {
		return fmt.Errorf("failed to update project progress: %s not found", id)
	}
	prevChapter, prevAt := p.CurrentChapter, p.UpdatedAt
	p.CurrentChapter = currentChapter
	p.UpdatedAt = r.s.now()
	r.s.onRollback(ctx, func() { p.CurrentChapter, p.UpdatedAt = prevChapter, prevAt })
	return nil
}

// Delete 删除项目
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if prev, ok := r.s.projects[id]; ok {
		delete(r.s.projects, id)
		r.s.onRollback(ctx, func() { r.s.projects[id] = prev })
	}
	return nil
}

// ListByOwner 获取用户项目列表
func (r *ProjectRepository) ListByOwner(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	r.s.mu.RLock()
	var owned []*entity.Project
	for _, p := range r.s.projects {
		if p.UserID == userID {
			owned = append(owned, p.Clone())
		}
	}
	r.s.mu.RUnlock()

	sort.SliceStable(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID > owned[j].ID
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	start, end := pagination.Window(len(owned))
	return repository.NewPagedResult(owned[start:end], int64(len(owned)), pagination), nil
}

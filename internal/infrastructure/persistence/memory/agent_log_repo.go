package memory

import (
	"cmp"
	"context"
	"slices"
	"sort"

	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/domain/repository"
)

// AgentLogRepository 流水仓储内存实现
type AgentLogRepository struct {
	s *Store
}

var _ repository.AgentLogRepository = (*AgentLogRepository)(nil)

// Create 追加一条流水
func (r *AgentLogRepository) Create(ctx context.Context, log *entity.AgentLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if log.ID == "" {
		log.ID = newID()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = r.s.now()
	}
	cp := *log
	rec := &logRecord{seq: r.s.nextSeq(), log: &cp}
	r.s.logs = append(r.s.logs, rec)
	r.s.onRollback(ctx, func() {
		r.s.logs = slices.DeleteFunc(r.s.logs, func(x *logRecord) bool { return x == rec })
	})
	return nil
}

// ListRecentByProject 最近的流水，按创建时间倒序
func (r *AgentLogRepository) ListRecentByProject(ctx context.Context, projectID string, limit int) ([]*entity.AgentLog, error) {
	records := r.filter(func(l *entity.AgentLog) bool { return l.ProjectID == projectID })
	sort.Slice(records, func(i, j int) bool { return records[i].seq > records[j].seq })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return unwrap(records), nil
}

// ListByChapter 章节全部流水，按追加顺序
func (r *AgentLogRepository) ListByChapter(ctx context.Context, chapterID string) ([]*entity.AgentLog, error) {
	records := r.filter(func(l *entity.AgentLog) bool { return l.ChapterID == chapterID })
	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })
	return unwrap(records), nil
}

// AggregateByProject 汇总项目全部流水
func (r *AgentLogRepository) AggregateByProject(ctx context.Context, projectID string) (*repository.AgentLogAggregate, error) {
	agg := &repository.AgentLogAggregate{}
	for _, rec := range r.filter(func(l *entity.AgentLog) bool { return l.ProjectID == projectID }) {
		agg.Calls++
		if rec.log.Status == entity.AgentLogStatusError {
			agg.Errors++
		}
		agg.InputTokens += int64(rec.log.InputTokens)
		agg.OutputTokens += int64(rec.log.OutputTokens)
		agg.DurationMs += rec.log.DurationMs
	}
	return agg, nil
}

// UsageByModel 按模型汇总 token 用量
func (r *AgentLogRepository) UsageByModel(ctx context.Context, projectID string) ([]repository.ModelUsage, error) {
	byModel := make(map[string]*repository.ModelUsage)
	for _, rec := range r.filter(func(l *entity.AgentLog) bool { return l.ProjectID == projectID }) {
		u, ok := byModel[rec.log.Model]
		if !ok {
			u = &repository.ModelUsage{Model: rec.log.Model}
			byModel[rec.log.Model] = u
		}
		u.InputTokens += int64(rec.log.InputTokens)
		u.OutputTokens += int64(rec.log.OutputTokens)
	}

	out := make([]repository.ModelUsage, 0, len(byModel))
	for _, u := range byModel {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out, nil
}

// DeleteByProject 随项目级联删除
func (r *AgentLogRepository) DeleteByProject(ctx context.Context, projectID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var kept, removed []*logRecord
	for _, rec := range r.s.logs {
		if rec.log.ProjectID != projectID {
			kept = append(kept, rec)
		} else {
			removed = append(removed, rec)
		}
	}
	r.s.logs = kept
	r.s.onRollback(ctx, func() {
		r.s.logs = append(r.s.logs, removed...)
		slices.SortFunc(r.s.logs, func(a, b *logRecord) int { return cmp.Compare(a.seq, b.seq) })
	})
	return nil
}

func (r *AgentLogRepository) filter(keep func(*entity.AgentLog) bool) []*logRecord {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*logRecord
	for _, rec := range r.s.logs {
		if keep(rec.log) {
			out = append(out, rec)
		}
	}
	return out
}

func unwrap(records []*logRecord) []*entity.AgentLog {
	out := make([]*entity.AgentLog, 0, len(records))
	for _, rec := range records {
		cp := *rec.log
		out = append(out, &cp)
	}
	return out
}

// Package memory 提供进程内存储实现，用于本地开发、CLI 与测试
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/domain/repository"
)

// Store 进程内存储，所有仓储共享同一把锁
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	seq  int64

	projects map[string]*entity.Project
	chapters map[string]*entity.Chapter
	logs     []*logRecord

	now func() time.Time
}

type logRecord struct {
	seq int64
	log *entity.AgentLog
}

// NewStore 创建空存储
func NewStore() *Store {
	return &Store{
		projects: make(map[string]*entity.Project),
		chapters: make(map[string]*entity.Chapter),
		now:      time.Now,
	}
}

// Projects 项目仓储视图
func (s *Store) Projects() *ProjectRepository { return &ProjectRepository{s: s} }

// Chapters 章节仓储视图
func (s *Store) Chapters() *ChapterRepository { return &ChapterRepository{s: s} }

// AgentLogs 流水仓储视图
func (s *Store) AgentLogs() *AgentLogRepository { return &AgentLogRepository{s: s} }

// WithTransaction 串行执行 fn。fn 内经事务 Context 的写入记入撤销日志，出错时只回滚这些写入，
// 事务外的并发写入（例如运行中追加的流水）保持不变
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.journal(ctx) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	j := &txJournal{store: s}
	if err := fn(context.WithValue(ctx, repository.TxKey{}, j)); err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// txJournal 事务内写入的逆操作，按写入顺序追加
type txJournal struct {
	store *Store
	undo  []func()
}

func (s *Store) journal(ctx context.Context) *txJournal {
	if j, ok := ctx.Value(repository.TxKey{}).(*txJournal); ok && j.store == s {
		return j
	}
	return nil
}

// onRollback 登记逆操作；调用方须持有 s.mu 写锁，逆操作执行时同样持有
func (s *Store) onRollback(ctx context.Context, undo func()) {
	if j := s.journal(ctx); j != nil {
		j.undo = append(j.undo, undo)
	}
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func newID() string {
	return uuid.NewString()
}

package generation

import (
	"context"

	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/domain/repository"
	"content-factory-ai/internal/workflow/port"
	"content-factory-ai/internal/workflow/prompt"
	apperrors "content-factory-ai/pkg/errors"
	"content-factory-ai/pkg/logger"
)

// Settings 流水线参数
type Settings struct {
	WordsPerPage       int
	DefaultTargetWords int
	// PriorContextChapters 写作提示词携带的前序章节摘要数，0 表示不携带
	PriorContextChapters int
}

// DefaultSettings 默认参数：每页 500 词，未知时每章 800 词
func DefaultSettings() Settings {
	return Settings{WordsPerPage: 500, DefaultTargetWords: 800, PriorContextChapters: 3}
}

// StageOutcome 尽力而为阶段的执行结果
type StageOutcome struct {
	Role  entity.AgentRole
	Model string
	// Parsed 仅编辑阶段使用：模型输出是否成功解析为 JSON
	Parsed bool
	Err    error
}

// OK 阶段是否成功
func (o StageOutcome) OK() bool { return o.Err == nil }

// ChapterResult 单章节执行结果
type ChapterResult struct {
	Chapter     *entity.Chapter
	TargetWords int
	Illustrator StageOutcome
	Editor      StageOutcome
}

// RunOptions 单章节执行选项
type RunOptions struct {
	// Regenerate 为 true 时跳过 pending 状态检查，保留已有插图提示词
	Regenerate bool
}

// ChapterPipeline 写作 -> 插图 -> 编辑
// 写作失败会中止本章并向上返回，插图与编辑失败只记录日志
type ChapterPipeline struct {
	chapters    repository.ChapterRepository
	writer      *Writer
	illustrator *Illustrator
	editor      *Editor
	settings    Settings
}

// NewChapterPipeline 组装流水线
func NewChapterPipeline(completer port.Completer, chapters repository.ChapterRepository, logs repository.AgentLogRepository, settings Settings) *ChapterPipeline {
	prompts := prompt.NewRegistry()
	recorder := NewRecorder(logs)
	if settings.WordsPerPage <= 0 {
		settings.WordsPerPage = DefaultSettings().WordsPerPage
	}
	if settings.DefaultTargetWords <= 0 {
		settings.DefaultTargetWords = DefaultSettings().DefaultTargetWords
	}
	return &ChapterPipeline{
		chapters:    chapters,
		writer:      NewWriter(completer, prompts, chapters, recorder),
		illustrator: NewIllustrator(completer, prompts, chapters, recorder),
		editor:      NewEditor(completer, prompts, chapters, recorder),
		settings:    settings,
	}
}

// TargetWords 每章目标词数
func (p *ChapterPipeline) TargetWords(project *entity.Project) int {
	return project.TargetWordsPerChapter(p.settings.WordsPerPage, p.settings.DefaultTargetWords)
}

// Run 执行单章节流水线
func (p *ChapterPipeline) Run(ctx context.Context, project *entity.Project, chapter *entity.Chapter, opts RunOptions) (*ChapterResult, error) {
	if !opts.Regenerate && chapter.Status != entity.ChapterStatusPending {
		return nil, apperrors.InvalidState("chapter %d is %s, only pending chapters can start", chapter.Order, chapter.Status)
	}
	ctx = logger.WithProject(ctx, project.ID, chapter.ID)

	targetWords := p.TargetWords(project)
	prior, err := p.priorChapters(ctx, chapter)
	if err != nil {
		return nil, err
	}

	if err := p.writer.Run(ctx, WriterInput{
		Project:     project,
		Chapter:     chapter,
		TargetWords: targetWords,
		Prior:       prior,
	}); err != nil {
		return nil, err
	}

	result := &ChapterResult{Chapter: chapter, TargetWords: targetWords}

	result.Illustrator = p.illustrator.Run(ctx, project, chapter)
	if !result.Illustrator.OK() {
		logger.Error(ctx, "illustrator stage failed, continuing", result.Illustrator.Err, "order", chapter.Order)
	}

	result.Editor = p.editor.Run(ctx, project, chapter, targetWords)
	if !result.Editor.OK() {
		logger.Error(ctx, "editor stage failed, keeping writer text", result.Editor.Err, "order", chapter.Order)
	}

	return result, nil
}

// priorChapters 取序号更小、已完成且带摘要的最近几章
func (p *ChapterPipeline) priorChapters(ctx context.Context, chapter *entity.Chapter) ([]*entity.Chapter, error) {
	if p.settings.PriorContextChapters <= 0 {
		return nil, nil
	}
	all, err := p.chapters.ListByProject(ctx, chapter.ProjectID)
	if err != nil {
		return nil, err
	}
	var prior []*entity.Chapter
	for _, c := range all {
		if c.Order < chapter.Order && c.Status == entity.ChapterStatusCompleted && c.ContextSummary != "" {
			prior = append(prior, c)
		}
	}
	if n := len(prior) - p.settings.PriorContextChapters; n > 0 {
		prior = prior[n:]
	}
	return prior, nil
}

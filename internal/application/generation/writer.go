package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"content-factory-ai/internal/domain/agentmodel"
	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/domain/repository"
	"content-factory-ai/internal/workflow/node"
	"content-factory-ai/internal/workflow/port"
	"content-factory-ai/internal/workflow/prompt"
	"content-factory-ai/pkg/logger"
	"content-factory-ai/pkg/metrics"
)

const priorSummaryRunes = 400

// WriterInput 写作阶段输入
type WriterInput struct {
	Project     *entity.Project
	Chapter     *entity.Chapter
	TargetWords int
	// Prior 已完成的前序章节，用于提示词中的上下文摘要
	Prior []*entity.Chapter
}

// Writer 写作阶段：生成章节正文
type Writer struct {
	completer port.Completer
	prompts   *prompt.Registry
	chapters  repository.ChapterRepository
	recorder  *Recorder
	now       func() time.Time
}

// NewWriter 创建写作阶段
func NewWriter(completer port.Completer, prompts *prompt.Registry, chapters repository.ChapterRepository, recorder *Recorder) *Writer {
	return &Writer{
		completer: completer,
		prompts:   prompts,
		chapters:  chapters,
		recorder:  recorder,
		now:       time.Now,
	}
}

// Run 依次执行：置为 writing 并保存 -> 调用模型 -> 记流水 -> 写入正文并置为 completed。
// 调用或保存失败时章节置为 paused 并返回错误。
func (w *Writer) Run(ctx context.Context, in WriterInput) error {
	project, chapter := in.Project, in.Chapter
	modelID := agentmodel.Normalize(project.AgentConfig.ModelFor(entity.AgentRoleWriter))

	system, user, err := w.prompts.Render(ctx, prompt.PromptChapterWriterV1, writerVars(in))
	if err != nil {
		return err
	}

	chapter.Status = entity.ChapterStatusWriting
	if err := w.chapters.Update(ctx, chapter); err != nil {
		return err
	}

	logger.Info(ctx, "writing chapter",
		"order", chapter.Order,
		"model", modelID,
		"target_words", in.TargetWords,
	)

	start := w.now()
	res, callErr := w.completer.Complete(ctx, port.CompletionRequest{
		Workflow:     string(entity.AgentRoleWriter),
		Model:        modelID,
		SystemPrompt: system,
		UserPrompt:   user,
	})
	if callErr != nil {
		w.recorder.Failure(ctx, chapter, entity.AgentRoleWriter, modelID, w.now().Sub(start), callErr)
		logger.Error(ctx, "chapter writing failed", callErr, "order", chapter.Order, "model", modelID)

		chapter.Status = entity.ChapterStatusPaused
		if err := w.chapters.Update(ctx, chapter); err != nil {
			logger.Error(ctx, "failed to pause chapter after writer failure", err)
		}
		return callErr
	}

	// 调用已计费，先记流水再保存正文
	w.recorder.Success(ctx, chapter, entity.AgentRoleWriter, res)

	chapter.SetWriterOutput(res.Content)
	chapter.Status = entity.ChapterStatusCompleted
	if err := w.chapters.Update(ctx, chapter); err != nil {
		logger.Error(ctx, "failed to save written chapter", err, "order", chapter.Order)
		// 不能停留在 writing，否则 pending 扫描与恢复都无法再触达该章节
		chapter.Status = entity.ChapterStatusPaused
		if pauseErr := w.chapters.Update(ctx, chapter); pauseErr != nil {
			logger.Error(ctx, "failed to pause chapter after save failure", pauseErr)
		}
		return err
	}
	metrics.ChapterWordCount.Observe(float64(chapter.WordCount))

	logger.Info(ctx, "chapter written",
		"order", chapter.Order,
		"word_count", chapter.WordCount,
		"duration_ms", res.DurationMs(),
	)
	return nil
}

func writerVars(in WriterInput) map[string]any {
	p, c := in.Project, in.Chapter

	description := strings.TrimSpace(p.Description)
	if description == "" {
		description = "(sem descrição)"
	}

	var notes strings.Builder
	if item, ok := p.OutlineItemFor(c.ChapterKey); ok {
		if d := strings.TrimSpace(item.Description); d != "" {
			fmt.Fprintf(&notes, "- Descrição: %s\n", d)
		}
		if item.EstimatedWords > 0 {
			fmt.Fprintf(&notes, "- Palavras estimadas no esboço: %d\n", item.EstimatedWords)
		}
	}

	return map[string]any{
		"project_title":       p.Title,
		"project_type":        string(p.Type),
		"project_description": description,
		"target_pages":        p.TargetPages,
		"chapter_order":       c.Order,
		"chapter_title":       c.Title,
		"chapter_notes":       notes.String(),
		"prior_context":       priorContext(in.Prior),
		"target_words":        in.TargetWords,
	}
}

// priorContext 拼接前序章节摘要，保证与已写内容衔接
func priorContext(prior []*entity.Chapter) string {
	var b strings.Builder
	for _, c := range prior {
		summary := strings.TrimSpace(c.ContextSummary)
		if summary == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("Capítulos anteriores (mantenha a continuidade):\n")
		}
		fmt.Fprintf(&b, "- %d. %s: %s\n", c.Order, c.Title, node.TruncateByRunes(summary, priorSummaryRunes))
	}
	return b.String()
}

package generation

import (
	"context"
	"strings"
	"time"

	"content-factory-ai/internal/domain/agentmodel"
	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/domain/repository"
	"content-factory-ai/internal/workflow/node"
	"content-factory-ai/internal/workflow/port"
	"content-factory-ai/internal/workflow/prompt"
	"content-factory-ai/pkg/logger"
)

const (
	illustratorSnippetRunes = 800
	illustratorFallbackText = "Curso ou livro educativo."
)

// Illustrator 插图阶段：为章节生成一条图像提示词，尽力而为
type Illustrator struct {
	completer port.Completer
	prompts   *prompt.Registry
	chapters  repository.ChapterRepository
	recorder  *Recorder
	now       func() time.Time
}

// NewIllustrator 创建插图阶段
func NewIllustrator(completer port.Completer, prompts *prompt.Registry, chapters repository.ChapterRepository, recorder *Recorder) *Illustrator {
	return &Illustrator{
		completer: completer,
		prompts:   prompts,
		chapters:  chapters,
		recorder:  recorder,
		now:       time.Now,
	}
}

// Run 成功时追加一条提示词记录，不修改章节状态
func (il *Illustrator) Run(ctx context.Context, project *entity.Project, chapter *entity.Chapter) StageOutcome {
	modelID := agentmodel.Normalize(project.AgentConfig.ModelFor(entity.AgentRoleArtist))
	outcome := StageOutcome{Role: entity.AgentRoleArtist, Model: modelID}

	base := node.FirstNonEmpty(chapter.FinalContent, chapter.DraftContent, project.Description, illustratorFallbackText)
	system, user, err := il.prompts.Render(ctx, prompt.PromptChapterIllustratorV1, map[string]any{
		"chapter_order": chapter.Order,
		"chapter_title": chapter.Title,
		"snippet":       node.TruncateByRunes(base, illustratorSnippetRunes),
	})
	if err != nil {
		outcome.Err = err
		return outcome
	}

	start := il.now()
	res, err := il.completer.Complete(ctx, port.CompletionRequest{
		Workflow:     string(entity.AgentRoleArtist),
		Model:        modelID,
		SystemPrompt: system,
		UserPrompt:   user,
	})
	if err != nil {
		il.recorder.Failure(ctx, chapter, entity.AgentRoleArtist, modelID, il.now().Sub(start), err)
		outcome.Err = err
		return outcome
	}

	il.recorder.Success(ctx, chapter, entity.AgentRoleArtist, res)

	chapter.AppendImagePrompt(strings.TrimSpace(res.Content), res.Model, il.now())
	if err := il.chapters.Update(ctx, chapter); err != nil {
		outcome.Err = err
		return outcome
	}
	logger.Info(ctx, "image prompt generated", "order", chapter.Order, "images", len(chapter.Images))
	return outcome
}

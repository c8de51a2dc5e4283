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

// Editor 编辑阶段：审校、必要时扩写，并提取摘要与要点
type Editor struct {
	completer port.Completer
	prompts   *prompt.Registry
	chapters  repository.ChapterRepository
	recorder  *Recorder
	now       func() time.Time
}

// NewEditor 创建编辑阶段
func NewEditor(completer port.Completer, prompts *prompt.Registry, chapters repository.ChapterRepository, recorder *Recorder) *Editor {
	return &Editor{
		completer: completer,
		prompts:   prompts,
		chapters:  chapters,
		recorder:  recorder,
		now:       time.Now,
	}
}

// editorReview 编辑返回的结构，各字段按类型宽松读取
type editorReview struct {
	Summary      string
	KeyPoints    []string
	Suggestions  []string
	FinalContent string
}

// Run 模型输出无法解析时保留当前文本，调用本身仍记为成功
func (e *Editor) Run(ctx context.Context, project *entity.Project, chapter *entity.Chapter, targetWords int) StageOutcome {
	modelID := agentmodel.Normalize(project.AgentConfig.ModelFor(entity.AgentRoleEditor))
	outcome := StageOutcome{Role: entity.AgentRoleEditor, Model: modelID}

	current := node.FirstNonEmpty(chapter.FinalContent, chapter.ReviewedContent, chapter.DraftContent)
	system, user, err := e.prompts.Render(ctx, prompt.PromptChapterEditorV1, map[string]any{
		"project_type":  string(project.Type),
		"current_words": entity.CountWords(current),
		"target_words":  targetWords,
		"current_text":  current,
	})
	if err != nil {
		outcome.Err = err
		return outcome
	}

	start := e.now()
	res, err := e.completer.Complete(ctx, port.CompletionRequest{
		Workflow:     string(entity.AgentRoleEditor),
		Model:        modelID,
		SystemPrompt: system,
		UserPrompt:   user,
	})
	if err != nil {
		e.recorder.Failure(ctx, chapter, entity.AgentRoleEditor, modelID, e.now().Sub(start), err)
		outcome.Err = err
		return outcome
	}

	e.recorder.Success(ctx, chapter, entity.AgentRoleEditor, res)

	review, parseErr := parseEditorReview(res.Content)
	if parseErr != nil {
		logger.Warn(ctx, "editor response is not valid json, keeping current text",
			"order", chapter.Order,
			"error", parseErr.Error(),
		)
	} else {
		outcome.Parsed = true
	}

	chapter.ReviewedContent = node.FirstNonEmpty(review.FinalContent, current)
	if review.Summary != "" {
		chapter.ContextSummary = review.Summary
	}
	if len(review.KeyPoints) > 0 {
		chapter.KeyPoints = review.KeyPoints
	}
	if len(review.Suggestions) > 0 {
		chapter.Connections = review.Suggestions
	}
	chapter.RecountWords()

	if err := e.chapters.Update(ctx, chapter); err != nil {
		outcome.Err = err
		return outcome
	}
	logger.Info(ctx, "chapter reviewed",
		"order", chapter.Order,
		"word_count", chapter.WordCount,
		"target_words", targetWords,
		"parsed", outcome.Parsed,
	)
	return outcome
}

func parseEditorReview(content string) (editorReview, error) {
	var raw map[string]any
	if err := node.DecodeJSONObject(content, &raw); err != nil {
		return editorReview{}, err
	}
	return editorReview{
		Summary:      strings.TrimSpace(stringField(raw["summary"])),
		KeyPoints:    stringList(raw["keyPoints"]),
		Suggestions:  stringList(raw["suggestions"]),
		FinalContent: strings.TrimSpace(stringField(raw["finalContent"])),
	}, nil
}

func stringField(v any) string {
	s, _ := v.(string)
	return s
}

// stringList 只保留非空字符串元素
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

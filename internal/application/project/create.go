package project

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"content-factory-ai/internal/domain/entity"
	apperrors "content-factory-ai/pkg/errors"
	"content-factory-ai/pkg/logger"
)

// OutlineInput 大纲条目输入
type OutlineInput struct {
	Title          string `json:"title" yaml:"title" validate:"required,max=255"`
	Description    string `json:"description" yaml:"description" validate:"max=2000"`
	EstimatedWords int    `json:"estimated_words" yaml:"estimated_words" validate:"gte=0"`
	ChapterKey     string `json:"chapter_key" yaml:"chapter_key" validate:"omitempty,max=64"`
}

// CreateInput 创建项目输入
type CreateInput struct {
	Title       string             `json:"title" yaml:"title" validate:"required,max=200"`
	Description string             `json:"description" yaml:"description" validate:"max=2000"`
	Type        entity.ContentType `json:"type" yaml:"type" validate:"oneof=book course article"`
	TargetPages int                `json:"target_pages" yaml:"target_pages" validate:"gte=0,lte=5000"`
	Outline     []OutlineInput     `json:"outline" yaml:"outline" validate:"dive"`
	// ChapterCount 大纲为空时按此数量生成占位章节
	ChapterCount int                `json:"chapter_count" yaml:"chapter_count" validate:"gte=0,lte=200"`
	AgentConfig  entity.AgentConfig `json:"agent_config" yaml:"agent_config"`
}

// AddChapterInput 追加章节输入
type AddChapterInput struct {
	Title          string `json:"title" validate:"required,max=255"`
	Description    string `json:"description" validate:"max=2000"`
	EstimatedWords int    `json:"estimated_words" validate:"gte=0"`
}

// Create 创建项目并按大纲一次性创建全部章节
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*entity.Project, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Type == "" {
		in.Type = entity.ContentTypeBook
	}
	for i := range in.Outline {
		in.Outline[i].Title = strings.TrimSpace(in.Outline[i].Title)
	}
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	outline := buildOutline(in)
	if len(outline) == 0 {
		return nil, apperrors.InvalidParam("outline must contain at least one chapter")
	}

	project := entity.NewProject(userID, in.Title, in.Type)
	project.Description = in.Description
	project.TargetPages = in.TargetPages
	project.Outline = outline
	project.AgentConfig = in.AgentConfig
	project.TotalChapters = len(outline)

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.projects.Create(txCtx, project); err != nil {
			return err
		}
		chapters := make([]*entity.Chapter, 0, len(outline))
		for _, item := range outline {
			chapters = append(chapters, entity.NewChapter(project.ID, item))
		}
		return s.chapters.CreateBatch(txCtx, chapters)
	})
	if err != nil {
		return nil, apperrors.Database(err, "failed to create project")
	}

	logger.Info(ctx, "project created",
		"project_id", project.ID,
		"type", string(project.Type),
		"chapters", project.TotalChapters,
	)
	return project, nil
}

// buildOutline 按列表位置编号，缺失的章节键补 uuid；大纲为空时生成占位标题
func buildOutline(in CreateInput) []entity.OutlineItem {
	items := in.Outline
	if len(items) == 0 && in.ChapterCount > 0 {
		items = make([]OutlineInput, in.ChapterCount)
		for i := range items {
			items[i].Title = fmt.Sprintf("%s - Chapter %d", in.Title, i+1)
		}
	}

	outline := make([]entity.OutlineItem, 0, len(items))
	for i, item := range items {
		key := strings.TrimSpace(item.ChapterKey)
		if key == "" {
			key = uuid.NewString()
		}
		outline = append(outline, entity.OutlineItem{
			Order:          i + 1,
			Title:          item.Title,
			Description:    strings.TrimSpace(item.Description),
			EstimatedWords: item.EstimatedWords,
			ChapterKey:     key,
		})
	}
	return outline
}

// AddChapter 在大纲末尾追加一个待处理章节
func (s *Service) AddChapter(ctx context.Context, userID, projectID string, in AddChapterInput) (*entity.Chapter, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	var chapter *entity.Chapter
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		project, err := s.owned(txCtx, userID, projectID)
		if err != nil {
			return err
		}
		if project.Status.IsTerminal() {
			return apperrors.InvalidState("cannot add chapters to a %s project", project.Status)
		}

		order, err := s.chapters.NextOrder(txCtx, projectID)
		if err != nil {
			return apperrors.Database(err, "failed to allocate chapter order")
		}
		item := entity.OutlineItem{
			Order:          order,
			Title:          in.Title,
			Description:    strings.TrimSpace(in.Description),
			EstimatedWords: in.EstimatedWords,
			ChapterKey:     uuid.NewString(),
		}
		chapter = entity.NewChapter(projectID, item)
		if err := s.chapters.CreateBatch(txCtx, []*entity.Chapter{chapter}); err != nil {
			return apperrors.Database(err, "failed to create chapter")
		}

		outline := append(project.Outline, item)
		if err := s.projects.UpdateOutline(txCtx, projectID, outline, project.TotalChapters+1); err != nil {
			return apperrors.Database(err, "failed to update project")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAnalytics(ctx, projectID)
	logger.Info(ctx, "chapter added", "project_id", projectID, "order", chapter.Order)
	return chapter, nil
}

// validateInput 校验失败统一转为参数错误
func (s *Service) validateInput(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.InvalidParam("invalid input: %v", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s:%s", fe.Namespace(), fe.Tag()))
	}
	return apperrors.InvalidParam("invalid input (%s)", strings.Join(fields, ", "))
}

// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"content-factory-ai/internal/application/project"
	"content-factory-ai/internal/domain/entity"
)

// OutlineItemRequest 大纲条目
type OutlineItemRequest struct {
	Title          string `json:"title" binding:"required,max=255"`
	Description    string `json:"description" binding:"max=2000"`
	EstimatedWords int    `json:"estimated_words" binding:"gte=0"`
	ChapterKey     string `json:"chapter_key" binding:"max=64"`
}

// AgentConfigRequest 各角色模型
type AgentConfigRequest struct {
	Editor     string `json:"editor,omitempty"`
	Researcher string `json:"researcher,omitempty"`
	Writer     string `json:"writer,omitempty"`
	Reviewer   string `json:"reviewer,omitempty"`
	Artist     string `json:"artist,omitempty"`
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Title        string               `json:"title" binding:"required,max=200"`
	Description  string               `json:"description" binding:"max=2000"`
	Type         string               `json:"type" binding:"omitempty,oneof=book course article"`
	TargetPages  int                  `json:"target_pages" binding:"gte=0"`
	Outline      []OutlineItemRequest `json:"outline" binding:"dive"`
	ChapterCount int                  `json:"chapter_count" binding:"gte=0"`
	AgentConfig  *AgentConfigRequest  `json:"agent_config,omitempty"`
}

// ToInput 转为应用层输入
func (r *CreateProjectRequest) ToInput() project.CreateInput {
	in := project.CreateInput{
		Title:        r.Title,
		Description:  r.Description,
		Type:         entity.ContentType(r.Type),
		TargetPages:  r.TargetPages,
		ChapterCount: r.ChapterCount,
	}
	for _, item := range r.Outline {
		in.Outline = append(in.Outline, project.OutlineInput{
			Title:          item.Title,
			Description:    item.Description,
			EstimatedWords: item.EstimatedWords,
			ChapterKey:     item.ChapterKey,
		})
	}
	if r.AgentConfig != nil {
		in.AgentConfig = entity.AgentConfig{
			Editor:     r.AgentConfig.Editor,
			Researcher: r.AgentConfig.Researcher,
			Writer:     r.AgentConfig.Writer,
			Reviewer:   r.AgentConfig.Reviewer,
			Artist:     r.AgentConfig.Artist,
		}
	}
	return in
}

// ProjectResponse 项目响应
type ProjectResponse struct {
	ID             string               `json:"id"`
	UserID         string               `json:"user_id"`
	Title          string               `json:"title"`
	Description    string               `json:"description,omitempty"`
	Type           string               `json:"type"`
	TargetPages    int                  `json:"target_pages"`
	Status         string               `json:"status"`
	Outline        []entity.OutlineItem `json:"outline"`
	AgentConfig    entity.AgentConfig   `json:"agent_config"`
	CurrentChapter int                  `json:"current_chapter"`
	TotalChapters  int                  `json:"total_chapters"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// ProjectListResponse 项目列表响应
type ProjectListResponse struct {
	Projects []*ProjectResponse `json:"projects"`
}

// RunResponse 批量运行响应
type RunResponse struct {
	Project   *ProjectResponse         `json:"project"`
	Processed int                      `json:"processed"`
	Skipped   int                      `json:"skipped"`
	Halted    bool                     `json:"halted"`
	Failures  []project.ChapterFailure `json:"failures,omitempty"`
}

// ExportResponse 发布导出响应
type ExportResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// ToProjectResponse 将领域实体转换为响应 DTO
func ToProjectResponse(p *entity.Project) *ProjectResponse {
	if p == nil {
		return nil
	}
	outline := p.Outline
	if outline == nil {
		outline = []entity.OutlineItem{}
	}
	return &ProjectResponse{
		ID:             p.ID,
		UserID:         p.UserID,
		Title:          p.Title,
		Description:    p.Description,
		Type:           string(p.Type),
		TargetPages:    p.TargetPages,
		Status:         string(p.Status),
		Outline:        outline,
		AgentConfig:    p.AgentConfig,
		CurrentChapter: p.CurrentChapter,
		TotalChapters:  p.TotalChapters,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// ToProjectListResponse 转换项目列表
func ToProjectListResponse(projects []*entity.Project) *ProjectListResponse {
	out := make([]*ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, ToProjectResponse(p))
	}
	return &ProjectListResponse{Projects: out}
}

// ToRunResponse 转换批量运行结果
func ToRunResponse(r *project.RunResult) *RunResponse {
	if r == nil {
		return nil
	}
	return &RunResponse{
		Project:   ToProjectResponse(r.Project),
		Processed: r.Processed,
		Skipped:   r.Skipped,
		Halted:    r.Halted,
		Failures:  r.Failures,
	}
}

// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"content-factory-ai/internal/application/project"
	"content-factory-ai/internal/domain/entity"
)

// AddChapterRequest 追加章节请求
type AddChapterRequest struct {
	Title          string `json:"title" binding:"required,max=255"`
	Description    string `json:"description" binding:"max=2000"`
	EstimatedWords int    `json:"estimated_words" binding:"gte=0"`
}

// ToInput 转为应用层输入
func (r *AddChapterRequest) ToInput() project.AddChapterInput {
	return project.AddChapterInput{
		Title:          r.Title,
		Description:    r.Description,
		EstimatedWords: r.EstimatedWords,
	}
}

// ChapterResponse 章节响应
type ChapterResponse struct {
	ID              string               `json:"id"`
	ProjectID       string               `json:"project_id"`
	ChapterKey      string               `json:"chapter_key"`
	Order           int                  `json:"order"`
	Title           string               `json:"title"`
	Status          string               `json:"status"`
	DraftContent    string               `json:"draft_content,omitempty"`
	ReviewedContent string               `json:"reviewed_content,omitempty"`
	FinalContent    string               `json:"final_content,omitempty"`
	WordCount       int                  `json:"word_count"`
	Images          []entity.ImagePrompt `json:"images"`
	KeyPoints       []string             `json:"key_points"`
	Connections     []string             `json:"connections"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// ChapterListResponse 章节列表响应
type ChapterListResponse struct {
	Chapters []*ChapterResponse `json:"chapters"`
}

// ToChapterResponse 将领域实体转换为响应 DTO
func ToChapterResponse(c *entity.Chapter) *ChapterResponse {
	if c == nil {
		return nil
	}
	images := c.Images
	if images == nil {
		images = []entity.ImagePrompt{}
	}
	return &ChapterResponse{
		ID:              c.ID,
		ProjectID:       c.ProjectID,
		ChapterKey:      c.ChapterKey,
		Order:           c.Order,
		Title:           c.Title,
		Status:          string(c.Status),
		DraftContent:    c.DraftContent,
		ReviewedContent: c.ReviewedContent,
		FinalContent:    c.FinalContent,
		WordCount:       c.WordCount,
		Images:          images,
		KeyPoints:       nonNil(c.KeyPoints),
		Connections:     nonNil(c.Connections),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// ToChapterListResponse 转换章节列表
func ToChapterListResponse(chapters []*entity.Chapter) *ChapterListResponse {
	out := make([]*ChapterResponse, 0, len(chapters))
	for _, c := range chapters {
		out = append(out, ToChapterResponse(c))
	}
	return &ChapterListResponse{Chapters: out}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// ChapterStatus 章节状态
type ChapterStatus string

const (
	ChapterStatusPending          ChapterStatus = "pending"
	ChapterStatusResearching      ChapterStatus = "researching"
	ChapterStatusWriting          ChapterStatus = "writing"
	ChapterStatusReviewing        ChapterStatus = "reviewing"
	ChapterStatusGeneratingImages ChapterStatus = "generating_images"
	ChapterStatusPaused           ChapterStatus = "paused"
	ChapterStatusCancelled        ChapterStatus = "cancelled"
	ChapterStatusCompleted        ChapterStatus = "completed"
)

// chapterTransitions 章节状态迁移表。completed/cancelled 只允许通过重新生成回到 writing
var chapterTransitions = map[ChapterStatus][]ChapterStatus{
	ChapterStatusPending:          {ChapterStatusWriting, ChapterStatusResearching, ChapterStatusPaused, ChapterStatusCancelled},
	ChapterStatusResearching:      {ChapterStatusWriting, ChapterStatusPaused, ChapterStatusCancelled, ChapterStatusCompleted},
	ChapterStatusWriting:          {ChapterStatusCompleted, ChapterStatusReviewing, ChapterStatusPaused, ChapterStatusCancelled},
	ChapterStatusReviewing:        {ChapterStatusCompleted, ChapterStatusGeneratingImages, ChapterStatusPaused, ChapterStatusCancelled},
	ChapterStatusGeneratingImages: {ChapterStatusCompleted, ChapterStatusPaused, ChapterStatusCancelled},
	ChapterStatusPaused:           {ChapterStatusPending, ChapterStatusWriting, ChapterStatusCancelled},
	ChapterStatusCompleted:        {ChapterStatusWriting},
	ChapterStatusCancelled:        {ChapterStatusWriting},
}

// CanTransitionTo 检查章节状态迁移是否合法
func (s ChapterStatus) CanTransitionTo(next ChapterStatus) bool {
	for _, allowed := range chapterTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsRunning 是否处于某个执行阶段
func (s ChapterStatus) IsRunning() bool {
	switch s {
	case ChapterStatusResearching, ChapterStatusWriting, ChapterStatusReviewing, ChapterStatusGeneratingImages:
		return true
	}
	return false
}

// HaltableStatuses 暂停/取消时需要批量停止的章节状态（除 completed 与 cancelled 外）
var HaltableStatuses = []ChapterStatus{
	ChapterStatusPending,
	ChapterStatusResearching,
	ChapterStatusWriting,
	ChapterStatusReviewing,
	ChapterStatusGeneratingImages,
	ChapterStatusPaused,
}

// ImagePrompt 插图提示词记录
type ImagePrompt struct {
	Type      string    `json:"type"`
	Prompt    string    `json:"prompt"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// Chapter 章节实体
type Chapter struct {
	ID              string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID       string         `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_chapters_project_order,priority:1"`
	ChapterKey      string         `json:"chapter_key" gorm:"type:varchar(64);index"`
	Order           int            `json:"order" gorm:"column:chapter_order;not null;uniqueIndex:idx_chapters_project_order,priority:2"`
	Title           string         `json:"title" gorm:"type:varchar(255);not null"`
	Status          ChapterStatus  `json:"status" gorm:"type:varchar(32);index;not null;default:'pending'"`
	DraftContent    string         `json:"draft_content,omitempty" gorm:"type:text"`
	ReviewedContent string         `json:"reviewed_content,omitempty" gorm:"type:text"`
	FinalContent    string         `json:"final_content,omitempty" gorm:"type:text"`
	WordCount       int            `json:"word_count" gorm:"not null;default:0"`
	Images          []ImagePrompt  `json:"images" gorm:"type:jsonb;serializer:json"`
	ContextSummary  string         `json:"context_summary,omitempty" gorm:"type:text"`
	KeyPoints       pq.StringArray `json:"key_points" gorm:"type:text[]"`
	Connections     pq.StringArray `json:"connections" gorm:"type:text[]"`
	CreatedAt       time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Chapter) TableName() string {
	return "chapters"
}

// NewChapter 根据大纲条目创建待处理章节
func NewChapter(projectID string, item OutlineItem) *Chapter {
	now := time.Now()
	return &Chapter{
		ProjectID:  projectID,
		ChapterKey: item.ChapterKey,
		Order:      item.Order,
		Title:      item.Title,
		Status:     ChapterStatusPending,
		Images:     []ImagePrompt{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// AuthoritativeText 当前权威文本，优先级 reviewed > final > draft
func (c *Chapter) AuthoritativeText() string {
	switch {
	case c.ReviewedContent != "":
		return c.ReviewedContent
	case c.FinalContent != "":
		return c.FinalContent
	default:
		return c.DraftContent
	}
}

// RecountWords 按权威文本重算字数
func (c *Chapter) RecountWords() int {
	c.WordCount = CountWords(c.AuthoritativeText())
	return c.WordCount
}

// SetWriterOutput 写入作者阶段结果：draft = final = content，清空旧的审校稿
func (c *Chapter) SetWriterOutput(content string) {
	c.DraftContent = content
	c.FinalContent = content
	c.ReviewedContent = ""
	c.RecountWords()
}

// AppendImagePrompt 追加插图提示词，历史记录只增不减
func (c *Chapter) AppendImagePrompt(prompt, model string, at time.Time) {
	c.Images = append(c.Images, ImagePrompt{
		Type:      "prompt",
		Prompt:    prompt,
		Model:     model,
		CreatedAt: at,
	})
}

// Clone 深拷贝
func (c *Chapter) Clone() *Chapter {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Images = append([]ImagePrompt(nil), c.Images...)
	cp.KeyPoints = append(pq.StringArray(nil), c.KeyPoints...)
	cp.Connections = append(pq.StringArray(nil), c.Connections...)
	return &cp
}

// CountWords 按空白分隔统计词数
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Package entity 定义领域实体
package entity

import (
	"time"
)

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusPlanning   ProjectStatus = "planning"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusPaused     ProjectStatus = "paused"
	ProjectStatusCancelled  ProjectStatus = "cancelled"
	ProjectStatusCompleted  ProjectStatus = "completed"
)

// ContentType 内容类型
type ContentType string

const (
	ContentTypeBook    ContentType = "book"
	ContentTypeCourse  ContentType = "course"
	ContentTypeArticle ContentType = "article"
)

// Valid 是否为已知内容类型
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeBook, ContentTypeCourse, ContentTypeArticle:
		return true
	}
	return false
}

// projectTransitions 项目状态机，终态没有出边
var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectStatusPlanning:   {ProjectStatusInProgress, ProjectStatusPaused, ProjectStatusCancelled},
	ProjectStatusInProgress: {ProjectStatusInProgress, ProjectStatusPaused, ProjectStatusCompleted, ProjectStatusCancelled},
	ProjectStatusPaused:     {ProjectStatusPaused, ProjectStatusInProgress, ProjectStatusCancelled},
}

// IsTerminal 是否为终态
func (s ProjectStatus) IsTerminal() bool {
	return s == ProjectStatusCompleted || s == ProjectStatusCancelled
}

// CanTransitionTo 检查状态迁移是否合法
func (s ProjectStatus) CanTransitionTo(next ProjectStatus) bool {
	for _, allowed := range projectTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OutlineItem 大纲条目
type OutlineItem struct {
	Order          int    `json:"order" yaml:"order"`
	Title          string `json:"title" yaml:"title"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`
	EstimatedWords int    `json:"estimated_words,omitempty" yaml:"estimated_words,omitempty"`
	ChapterKey     string `json:"chapter_key" yaml:"chapter_key,omitempty"`
}

// AgentConfig 各角色使用的模型标识
type AgentConfig struct {
	Editor     string `json:"editor,omitempty" yaml:"editor,omitempty"`
	Researcher string `json:"researcher,omitempty" yaml:"researcher,omitempty"`
	Writer     string `json:"writer,omitempty" yaml:"writer,omitempty"`
	Reviewer   string `json:"reviewer,omitempty" yaml:"reviewer,omitempty"`
	Artist     string `json:"artist,omitempty" yaml:"artist,omitempty"`
}

// ModelFor 返回角色配置的模型，未配置时返回空串
func (c AgentConfig) ModelFor(role AgentRole) string {
	switch role {
	case AgentRoleEditor:
		return c.Editor
	case AgentRoleResearcher:
		return c.Researcher
	case AgentRoleWriter:
		return c.Writer
	case AgentRoleReviewer:
		return c.Reviewer
	case AgentRoleArtist:
		return c.Artist
	}
	return ""
}

// Project 内容项目实体
type Project struct {
	ID             string        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID         string        `json:"user_id" gorm:"type:varchar(128);index;not null"`
	Title          string        `json:"title" gorm:"type:varchar(255);not null"`
	Description    string        `json:"description,omitempty" gorm:"type:text"`
	Type           ContentType   `json:"type" gorm:"type:varchar(20);not null;default:'book'"`
	TargetPages    int           `json:"target_pages" gorm:"not null;default:0"`
	Status         ProjectStatus `json:"status" gorm:"type:varchar(20);index;not null;default:'planning'"`
	Outline        []OutlineItem `json:"outline" gorm:"type:jsonb;serializer:json"`
	AgentConfig    AgentConfig   `json:"agent_config" gorm:"type:jsonb;serializer:json"`
	CurrentChapter int           `json:"current_chapter" gorm:"not null;default:0"`
	TotalChapters  int           `json:"total_chapters" gorm:"not null;default:0"`
	CreatedAt      time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// NewProject 创建处于 planning 状态的新项目
func NewProject(userID, title string, contentType ContentType) *Project {
	now := time.Now()
	return &Project{
		UserID:    userID,
		Title:     title,
		Type:      contentType,
		Status:    ProjectStatusPlanning,
		Outline:   []OutlineItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsOwnedBy 所有权校验
func (p *Project) IsOwnedBy(userID string) bool {
	return p != nil && p.UserID == userID
}

// TargetWordsPerChapter 每章目标字数：floor(targetPages*wordsPerPage/totalChapters)
// 页数或章节数未知时返回 fallback
func (p *Project) TargetWordsPerChapter(wordsPerPage, fallback int) int {
	if p.TargetPages <= 0 || p.TotalChapters <= 0 {
		return fallback
	}
	words := p.TargetPages * wordsPerPage / p.TotalChapters
	if words <= 0 {
		return fallback
	}
	return words
}

// OutlineItemFor 根据章节键查找大纲条目
func (p *Project) OutlineItemFor(chapterKey string) (OutlineItem, bool) {
	for _, item := range p.Outline {
		if item.ChapterKey == chapterKey {
			return item, true
		}
	}
	return OutlineItem{}, false
}

// Clone 深拷贝
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Outline = append([]OutlineItem(nil), p.Outline...)
	return &cp
}

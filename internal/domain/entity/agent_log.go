// Package entity 定义领域实体
package entity

import "time"

// AgentRole 智能体角色
type AgentRole string

const (
	AgentRoleEditor     AgentRole = "editor"
	AgentRoleResearcher AgentRole = "researcher"
	AgentRoleWriter     AgentRole = "writer"
	AgentRoleReviewer   AgentRole = "reviewer"
	AgentRoleArtist     AgentRole = "artist"
)

// AgentLogStatus 调用结果
type AgentLogStatus string

const (
	AgentLogStatusSuccess AgentLogStatus = "success"
	AgentLogStatusError   AgentLogStatus = "error"
)

// AgentLog 智能体调用流水，只追加不修改
type AgentLog struct {
	ID           string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID    string         `json:"project_id" gorm:"type:uuid;index:idx_agent_logs_project_created,priority:1;not null"`
	ChapterID    string         `json:"chapter_id,omitempty" gorm:"type:uuid;index"`
	Role         AgentRole      `json:"role" gorm:"column:agent_role;type:varchar(20);not null"`
	Model        string         `json:"model" gorm:"type:varchar(128);not null"`
	InputTokens  int            `json:"input_tokens" gorm:"not null;default:0"`
	OutputTokens int            `json:"output_tokens" gorm:"not null;default:0"`
	DurationMs   int64          `json:"duration_ms" gorm:"not null;default:0"`
	Status       AgentLogStatus `json:"status" gorm:"type:varchar(10);not null"`
	ErrorMessage string         `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt    time.Time      `json:"created_at" gorm:"index:idx_agent_logs_project_created,priority:2;autoCreateTime"`
}

// TableName 指定表名
func (AgentLog) TableName() string {
	return "agent_logs"
}

// TotalTokens 输入加输出
func (l *AgentLog) TotalTokens() int {
	return l.InputTokens + l.OutputTokens
}

// Package port 定义生成阶段依赖的外部能力
package port

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
)

// ChatModelFactory 按提供商名获取 ChatModel，空名表示默认提供商
type ChatModelFactory interface {
	Get(ctx context.Context, provider string) (model.BaseChatModel, error)
}

// CompletionRequest 一次补全调用：模型 + system/user 两段提示词
type CompletionRequest struct {
	// Workflow 调用所属阶段，用于指标与追踪
	Workflow     string
	Model        string
	SystemPrompt string
	UserPrompt   string
}

// CompletionResult 补全结果，Content 保证非空
type CompletionResult struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

// DurationMs 调用耗时（毫秒）
func (r *CompletionResult) DurationMs() int64 {
	if r == nil {
		return 0
	}
	return r.Duration.Milliseconds()
}

// Completer 文本补全服务，实现方不做重试
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

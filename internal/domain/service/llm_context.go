// Package service 定义跨层共享的调用上下文
package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyWorkflow llmCtxKey = "llm_workflow"
	llmCtxKeyProvider llmCtxKey = "llm_provider"
)

const unknown = "unknown"

// WithWorkflow 标记当前调用所属的生成阶段（writer/artist/editor）
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	w := strings.TrimSpace(workflow)
	if w == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyWorkflow, w)
}

// WithProvider 标记当前调用使用的提供商
func WithProvider(ctx context.Context, provider string) context.Context {
	p := strings.TrimSpace(provider)
	if p == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyProvider, p)
}

// WorkflowFromContext 未设置时返回 unknown
func WorkflowFromContext(ctx context.Context) string {
	return stringFrom(ctx, llmCtxKeyWorkflow)
}

// ProviderFromContext 未设置时返回 unknown
func ProviderFromContext(ctx context.Context) string {
	return stringFrom(ctx, llmCtxKeyProvider)
}

func stringFrom(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return unknown
	}
	s, ok := ctx.Value(key).(string)
	if !ok || s == "" {
		return unknown
	}
	return s
}

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"content-factory-ai/internal/domain/agentmodel"
	"content-factory-ai/internal/domain/service"
	"content-factory-ai/internal/workflow/port"
	apperrors "content-factory-ai/pkg/errors"
)

var tracer = otel.Tracer("llm")

// CompletionClient 基于 ChatModel 的单次补全调用，不做重试
type CompletionClient struct {
	factory  port.ChatModelFactory
	provider string
	now      func() time.Time
}

var _ port.Completer = (*CompletionClient)(nil)

// NewCompletionClient 创建补全客户端，provider 为空时使用默认提供商
func NewCompletionClient(factory port.ChatModelFactory, provider string) *CompletionClient {
	return &CompletionClient{factory: factory, provider: provider, now: time.Now}
}

// Complete 归一化模型 ID 后发起一次调用
func (c *CompletionClient) Complete(ctx context.Context, req port.CompletionRequest) (*port.CompletionResult, error) {
	modelID := agentmodel.Normalize(req.Model)

	ctx, span := tracer.Start(ctx, "llm.CompletionClient.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.workflow", req.Workflow),
		attribute.String("llm.model", modelID),
	)

	ctx = service.WithProvider(service.WithWorkflow(ctx, req.Workflow), c.provider)
	chatModel, err := c.factory.Get(ctx, c.provider)
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Upstream(err, "llm provider unavailable")
	}

	msgs := []*schema.Message{
		schema.SystemMessage(req.SystemPrompt),
		schema.UserMessage(req.UserPrompt),
	}

	start := c.now()
	out, err := chatModel.Generate(ctx, msgs, model.WithModel(modelID))
	elapsed := c.now().Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, apperrors.Upstream(err, fmt.Sprintf("completion call failed for model %s", modelID))
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		err := fmt.Errorf("empty completion content from model %s", modelID)
		span.SetStatus(codes.Error, err.Error())
		return nil, apperrors.Upstream(err, "empty llm response")
	}

	in, outTokens := usageOf(out)
	span.SetAttributes(
		attribute.Int("llm.input_tokens", in),
		attribute.Int("llm.output_tokens", outTokens),
	)

	return &port.CompletionResult{
		Content:      out.Content,
		Model:        modelID,
		InputTokens:  in,
		OutputTokens: outTokens,
		Duration:     elapsed,
	}, nil
}

// usageOf 从响应元数据中取 token 用量，只有总数时计为输入
func usageOf(msg *schema.Message) (input, output int) {
	if msg == nil || msg.ResponseMeta == nil || msg.ResponseMeta.Usage == nil {
		return 0, 0
	}
	u := msg.ResponseMeta.Usage
	input, output = u.PromptTokens, u.CompletionTokens
	if input == 0 && output == 0 && u.TotalTokens > 0 {
		input = u.TotalTokens
	}
	return max(input, 0), max(output, 0)
}

// Package agentmodel 维护可选模型目录、模型标识规范化与成本估算
package agentmodel

import "strings"

// Default 默认模型，也是所有回退映射的目标
const Default = "deepseek/deepseek-v3.2-exp"

// Price 每百万 token 的美元价格
type Price struct {
	InputPerM  float64 `json:"input_per_m"`
	OutputPerM float64 `json:"output_per_m"`
}

// Model 目录中的模型
type Model struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Provider string `json:"provider"`
	Price    Price  `json:"price"`
}

var catalog = []Model{
	{Value: "deepseek/deepseek-v3.2-exp", Label: "DeepSeek V3.2 Exp", Provider: "DeepSeek", Price: Price{0.27, 0.4}},
	{Value: "deepseek/deepseek-v3", Label: "DeepSeek V3", Provider: "DeepSeek", Price: Price{0.14, 0.28}},
	{Value: "deepseek/deepseek-r1", Label: "DeepSeek R1 (Reasoner)", Provider: "DeepSeek", Price: Price{0.55, 1.1}},
	{Value: "anthropic/claude-3.5-sonnet", Label: "Claude 3.5 Sonnet", Provider: "Anthropic", Price: Price{3, 15}},
	{Value: "anthropic/claude-3.5-haiku", Label: "Claude 3.5 Haiku", Provider: "Anthropic", Price: Price{1.5, 5}},
	{Value: "openai/gpt-4o", Label: "GPT-4o", Provider: "OpenAI", Price: Price{5, 15}},
	{Value: "openai/gpt-4o-mini", Label: "GPT-4o Mini", Provider: "OpenAI", Price: Price{0.6, 2.4}},
	{Value: "mistralai/mistral-large", Label: "Mistral Large", Provider: "Mistral", Price: Price{2, 6}},
	{Value: "mistralai/mistral-small", Label: "Mistral Small", Provider: "Mistral", Price: Price{0.3, 0.9}},
	{Value: "meta-llama/llama-3.1-8b-instruct", Label: "Llama 3.1 8B", Provider: "Meta", Price: Price{0.15, 0.3}},
	{Value: "google/gemini-2.5-flash-image", Label: "Gemini 2.5 Flash Image", Provider: "Google", Price: Price{0.6, 2.0}},
	{Value: "google/gemini-2.5-flash-image-preview:free", Label: "Gemini 2.5 Flash Image Preview (Free)", Provider: "Google"},
	{Value: "nvidia/nemotron-nano-12b-v2-vl:free", Label: "Nemotron Nano 12B 2 VL (Free)", Provider: "NVIDIA"},
}

var byValue = func() map[string]Model {
	m := make(map[string]Model, len(catalog))
	for _, model := range catalog {
		m[model.Value] = model
	}
	return m
}()

// Catalog 返回目录副本
func Catalog() []Model {
	return append([]Model(nil), catalog...)
}

// Lookup 按标识查找
func Lookup(value string) (Model, bool) {
	m, ok := byValue[value]
	return m, ok
}

// retiredPrefixes 已下线的路由前缀，分发前剥离
var retiredPrefixes = []string{"openrouter/"}

// retiredFamilies 标识中包含这些片段的模型已不可用
var retiredFamilies = []string{"gpt-5-"}

// textIncapable 只能出图、不能用于文本补全的模型
var textIncapable = map[string]struct{}{
	"fal-ai/image-creation":                      {},
	"google/gemini-2.5-flash-image":              {},
	"google/gemini-2.5-flash-image-preview":      {},
	"google/gemini-2.5-flash-image-preview:free": {},
}

// Normalize 将配置中的模型标识规范化为可分发的标识
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return Default
	}
	for _, prefix := range retiredPrefixes {
		id = strings.TrimPrefix(id, prefix)
	}
	for _, family := range retiredFamilies {
		if strings.Contains(id, family) {
			return Default
		}
	}
	if _, ok := textIncapable[id]; ok {
		return Default
	}
	if id == "" {
		return Default
	}
	return id
}

// EstimateCost 按目录价格估算美元成本，未知模型返回 0
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	m, ok := byValue[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1e6*m.Price.InputPerM + float64(outputTokens)/1e6*m.Price.OutputPerM
}

// Package node 提供解析模型输出的小工具
package node

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSONObject 从模型输出中截取第一个 '{' 到最后一个 '}' 之间的片段。
// 模型常在 JSON 外包裹 ```json 代码块或说明文字。找不到对象时返回去空白后的原文。
func ExtractJSONObject(s string) string {
	raw := strings.TrimSpace(stripCodeFence(s))
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// DecodeJSONObject 提取并解码 JSON 对象到 out
func DecodeJSONObject(s string, out any) error {
	raw := ExtractJSONObject(s)
	if raw == "" {
		return fmt.Errorf("empty json payload")
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("invalid json payload: %w", err)
	}
	return nil
}

func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(t), "```")
}

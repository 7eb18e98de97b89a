package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	objectFragmentPattern = regexp.MustCompile(`(?s)\{.*?\}`)
	trailingCommaPattern  = regexp.MustCompile(`,\s*([}\]])`)
	controlCharPattern    = regexp.MustCompile(`[\x00-\x1F]`)
)

// StripCodeFence 去掉 ```json ... ``` 包裹
func StripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

// DecodeJSON 解析模型输出中的 JSON，容忍代码块和前后的说明文字
func DecodeJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}
	sanitized := sanitizePayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, SummarizeSnippet(trimmed))
	}
	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return fmt.Errorf("%w (sanitized payload snippet: %s)", err, SummarizeSnippet(sanitized))
	}
	return nil
}

func sanitizePayload(content string) string {
	trimmed := StripCodeFence(content)
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '[' || trimmed[0] == '{' {
		return trimmed
	}
	if start := strings.Index(trimmed, "["); start >= 0 {
		if end := strings.LastIndex(trimmed, "]"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

// DecodeObjects 先尝试把整段内容解析为对象数组，失败时逐个扫描 {...} 片段并修复后解析。
// 无法修复的片段被丢弃。
func DecodeObjects(content string) []map[string]any {
	var items []map[string]any
	if err := DecodeJSON(content, &items); err == nil {
		return items
	}
	var wrapped map[string]any
	if err := DecodeJSON(content, &wrapped); err == nil {
		for _, v := range wrapped {
			if list, ok := v.([]any); ok {
				return objectsOf(list)
			}
		}
	}
	return ScanObjects(content)
}

// ScanObjects 非贪婪匹配每个 {...} 片段，去掉尾逗号和控制字符后解析
func ScanObjects(content string) []map[string]any {
	fragments := objectFragmentPattern.FindAllString(StripCodeFence(content), -1)
	items := make([]map[string]any, 0, len(fragments))
	for _, fragment := range fragments {
		var item map[string]any
		if err := json.Unmarshal([]byte(RepairFragment(fragment)), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}

func RepairFragment(fragment string) string {
	fixed := trailingCommaPattern.ReplaceAllString(fragment, "$1")
	return controlCharPattern.ReplaceAllString(fixed, "")
}

func objectsOf(list []any) []map[string]any {
	items := make([]map[string]any, 0, len(list))
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}

// SummarizeSnippet 截断后的单行内容，用于日志
func SummarizeSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}

package learning

import (
	"math"
	"strconv"
	"strings"
)

// 模型输出先解析为 map，再按字段宽松取值

func stringField(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := item[key].(string); ok {
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func intField(item map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		switch v := item[key].(type) {
		case float64:
			if v == math.Trunc(v) {
				return int(v), true
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func stringSliceField(item map[string]any, key string) ([]string, bool) {
	list, ok := item[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out, true
}

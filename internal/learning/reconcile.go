package learning

import (
	"strings"
	"unicode"
)

func normalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// titleWords 按非字母数字切词，标点不计入词
func titleWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Reconcile 将模型给出的标题对齐到课程目录中的标题。
// 依次尝试：完全相同、互相包含、共享长度大于 2 的词；每一级按目录顺序取第一个命中。
func Reconcile(candidate string, canonical []string) (string, bool) {
	c := normalizeTitle(candidate)
	if c == "" {
		return "", false
	}

	for _, title := range canonical {
		if normalizeTitle(title) == c {
			return title, true
		}
	}

	for _, title := range canonical {
		t := normalizeTitle(title)
		if t == "" {
			continue
		}
		if strings.Contains(t, c) || strings.Contains(c, t) {
			return title, true
		}
	}

	words := make([]string, 0, 4)
	for _, w := range titleWords(c) {
		if len([]rune(w)) > 2 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return "", false
	}
	for _, title := range canonical {
		tokens := make(map[string]struct{})
		for _, tok := range titleWords(normalizeTitle(title)) {
			tokens[tok] = struct{}{}
		}
		for _, w := range words {
			if _, ok := tokens[w]; ok {
				return title, true
			}
		}
	}

	return "", false
}

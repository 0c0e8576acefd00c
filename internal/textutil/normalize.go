// Package textutil 提供训练与推理共用的文本清洗工具。
// 训练管道与推理服务必须使用完全相同的清洗逻辑，
// 否则特征空间会在无任何报错的情况下悄悄漂移。
package textutil

import (
	"regexp"
	"strings"
)

var (
	// 非法字符: 除字母/数字/下划线/空白/逗号以外的字符统一替换为空格
	nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s,]`)
	// 连续空白折叠为单个空格
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// MissingSentinel 数据集中表示缺失文本的哨兵值
const MissingSentinel = "N/A"

// Normalize 清洗并规范化文本。
// 空串与"N/A"哨兵返回空串，任何输入都不会报错。
// 该函数满足幂等性: Normalize(Normalize(x)) == Normalize(x)。
func Normalize(text string) string {
	if text == "" || text == MissingSentinel {
		return ""
	}
	text = strings.ToLower(text)
	text = nonWordPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ParseListString 解析形如 "['Python', 'Go', 'SQL']" 的列表字符串。
// 去掉方括号与引号后按逗号切分，空项被丢弃，顺序保持原样。
func ParseListString(text string) []string {
	if text == "" || text == MissingSentinel {
		return nil
	}
	text = strings.Trim(text, "[]")
	text = strings.NewReplacer("'", "", `"`, "").Replace(text)

	parts := strings.Split(text, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

// Truncate 按字符截断文本，超长时追加省略号标记。
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

package ml

import "sort"

// LabelEncoder 类别标签与整数编码的双向映射。
// 类别顺序固定为字典序(Excellent, High, Low, Medium)，
// 与数据集洗牌顺序无关，保证跨次训练产出一致的编码。
type LabelEncoder struct {
	Classes []string

	index map[string]int
}

// FitLabels 收集去重后的标签并按字典序排定编码
func FitLabels(labels []string) *LabelEncoder {
	seen := make(map[string]struct{})
	classes := make([]string, 0, 4)
	for _, l := range labels {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)

	le := &LabelEncoder{Classes: classes}
	le.buildIndex()
	return le
}

func (le *LabelEncoder) buildIndex() {
	le.index = make(map[string]int, len(le.Classes))
	for i, c := range le.Classes {
		le.index[c] = i
	}
}

// Encode 返回标签对应的整数编码
func (le *LabelEncoder) Encode(label string) (int, bool) {
	if le.index == nil {
		// 反序列化后index为空，按需重建
		le.buildIndex()
	}
	i, ok := le.index[label]
	return i, ok
}

// EncodeAll 批量编码，未知标签编码为-1
func (le *LabelEncoder) EncodeAll(labels []string) []int {
	out := make([]int, len(labels))
	for i, l := range labels {
		if code, ok := le.Encode(l); ok {
			out[i] = code
		} else {
			out[i] = -1
		}
	}
	return out
}

// Decode 返回编码对应的标签，越界返回false
func (le *LabelEncoder) Decode(code int) (string, bool) {
	if code < 0 || code >= len(le.Classes) {
		return "", false
	}
	return le.Classes[code], true
}

// NumClasses 返回类别数
func (le *LabelEncoder) NumClasses() int {
	return len(le.Classes)
}

package ml

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// 词元模式: 至少两个词字符的连续片段，与训练数据清洗规则配套
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// TFIDFVectorizer 把文本映射到固定的TF-IDF向量空间。
// Fit在训练时调用一次，之后词表与IDF权重全部冻结；
// Transform在任何阶段都不会报错，词表外的词被静默丢弃。
type TFIDFVectorizer struct {
	MaxFeatures int
	NgramMin    int
	NgramMax    int

	// Vocabulary 词项到列下标的映射，Fit后只读
	Vocabulary map[string]int
	// IDF 每列的逆文档频率权重，与词表等长
	IDF []float64
	// Terms 列下标到词项的反查表(特征名)
	Terms []string
}

// NewTFIDFVectorizer 创建一个unigram+bigram、词表上限为maxFeatures的向量器
func NewTFIDFVectorizer(maxFeatures int) *TFIDFVectorizer {
	return &TFIDFVectorizer{
		MaxFeatures: maxFeatures,
		NgramMin:    1,
		NgramMax:    2,
	}
}

// tokenize 切分词元并生成n-gram
func (t *TFIDFVectorizer) tokenize(doc string) []string {
	words := tokenPattern.FindAllString(doc, -1)
	if len(words) == 0 {
		return nil
	}

	var grams []string
	for n := t.NgramMin; n <= t.NgramMax; n++ {
		for i := 0; i+n <= len(words); i++ {
			grams = append(grams, strings.Join(words[i:i+n], " "))
		}
	}
	return grams
}

// Fit 在整个训练语料上拟合词表与IDF权重。
// 词表按语料文档频率取前MaxFeatures个词项(并列时按字典序优先)，
// 列下标按词项字典序分配，保证跨次训练完全确定。
func (t *TFIDFVectorizer) Fit(docs []string) {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, g := range t.tokenize(doc) {
			if _, ok := seen[g]; !ok {
				seen[g] = struct{}{}
				df[g]++
			}
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	// 文档频率降序，同频按字典序，截断到词表上限
	sort.Slice(terms, func(i, j int) bool {
		if df[terms[i]] != df[terms[j]] {
			return df[terms[i]] > df[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if t.MaxFeatures > 0 && len(terms) > t.MaxFeatures {
		terms = terms[:t.MaxFeatures]
	}
	sort.Strings(terms)

	t.Terms = terms
	t.Vocabulary = make(map[string]int, len(terms))
	t.IDF = make([]float64, len(terms))
	n := float64(len(docs))
	for i, term := range terms {
		t.Vocabulary[term] = i
		// 平滑IDF: ln((1+n)/(1+df)) + 1
		t.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
}

// Transform 将单个文档映射到冻结的向量空间并做L2归一化。
// 空文档或完全不含词表词项的文档得到零向量，不报错。
func (t *TFIDFVectorizer) Transform(doc string) Vector {
	counts := make(map[int]float64)
	for _, g := range t.tokenize(doc) {
		if col, ok := t.Vocabulary[g]; ok {
			counts[col]++
		}
	}

	vec := Vector{Dim: len(t.Terms)}
	if len(counts) == 0 {
		return vec
	}

	cols := make([]int, 0, len(counts))
	for col := range counts {
		cols = append(cols, col)
	}
	sort.Ints(cols)

	var normSq float64
	vec.Indices = cols
	vec.Values = make([]float64, len(cols))
	for i, col := range cols {
		w := counts[col] * t.IDF[col]
		vec.Values[i] = w
		normSq += w * w
	}

	norm := math.Sqrt(normSq)
	for i := range vec.Values {
		vec.Values[i] /= norm
	}
	return vec
}

// TransformAll 批量变换，返回按行排列的稀疏矩阵
func (t *TFIDFVectorizer) TransformAll(docs []string) Matrix {
	m := Matrix{
		RowVectors: make([]Vector, len(docs)),
		Cols:       len(t.Terms),
	}
	for i, doc := range docs {
		m.RowVectors[i] = t.Transform(doc)
	}
	return m
}

// NumFeatures 返回冻结后的词表大小
func (t *TFIDFVectorizer) NumFeatures() int {
	return len(t.Terms)
}

// FeatureNames 返回按列下标排列的特征名
func (t *TFIDFVectorizer) FeatureNames() []string {
	return t.Terms
}

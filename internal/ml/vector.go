// Package ml 实现推荐与质量评估所需的本地机器学习原语:
// 稀疏向量、TF-IDF特征抽取、标签编码与随机森林分类器。
// 所有类型在训练后视为只读，可被多个请求并发使用。
package ml

import "math"

// Vector 稀疏实数向量，Indices升序且与Values一一对应。
type Vector struct {
	Indices []int
	Values  []float64
	Dim     int
}

// NNZ 返回非零元素个数
func (v Vector) NNZ() int {
	return len(v.Indices)
}

// Dot 计算与另一个稀疏向量的点积
func (v Vector) Dot(other Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(other.Indices) {
		switch {
		case v.Indices[i] == other.Indices[j]:
			sum += v.Values[i] * other.Values[j]
			i++
			j++
		case v.Indices[i] < other.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Norm 返回L2范数
func (v Vector) Norm() float64 {
	var sum float64
	for _, val := range v.Values {
		sum += val * val
	}
	return math.Sqrt(sum)
}

// ToDense 展开为稠密表示
func (v Vector) ToDense() []float64 {
	dense := make([]float64, v.Dim)
	for i, idx := range v.Indices {
		dense[idx] = v.Values[i]
	}
	return dense
}

// CosineSimilarity 计算两个向量的余弦相似度。
// 任一向量范数为零时返回0而不是NaN。
func CosineSimilarity(a, b Vector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return a.Dot(b) / (na * nb)
}

// HStack 将两个稀疏向量水平拼接，b的维度索引整体右移a.Dim。
// 拼接顺序固定，分类器的特征宽度契约依赖该顺序。
func HStack(a, b Vector) Vector {
	out := Vector{
		Indices: make([]int, 0, len(a.Indices)+len(b.Indices)),
		Values:  make([]float64, 0, len(a.Values)+len(b.Values)),
		Dim:     a.Dim + b.Dim,
	}
	out.Indices = append(out.Indices, a.Indices...)
	out.Values = append(out.Values, a.Values...)
	for _, idx := range b.Indices {
		out.Indices = append(out.Indices, idx+a.Dim)
	}
	out.Values = append(out.Values, b.Values...)
	return out
}

// Matrix 稀疏矩阵，按行存储
type Matrix struct {
	RowVectors []Vector
	Cols       int
}

// NumRows 返回行数
func (m Matrix) NumRows() int {
	return len(m.RowVectors)
}

// Row 返回第i行
func (m Matrix) Row(i int) Vector {
	return m.RowVectors[i]
}

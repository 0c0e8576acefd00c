package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarityBounds(t *testing.T) {
	a := Vector{Indices: []int{0, 2}, Values: []float64{0.6, 0.8}, Dim: 4}
	b := Vector{Indices: []int{0, 3}, Values: []float64{1, 1}, Dim: 4}

	sim := CosineSimilarity(a, b)
	assert.GreaterOrEqual(t, sim, 0.0)
	assert.LessOrEqual(t, sim, 1.0)

	// 自身相似度为1(浮点容差内)
	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9)
}

func TestCosineSimilarityZeroNorm(t *testing.T) {
	zero := Vector{Dim: 4}
	a := Vector{Indices: []int{1}, Values: []float64{1}, Dim: 4}

	// 零向量相似度定义为0，不产生NaN
	assert.Equal(t, 0.0, CosineSimilarity(zero, a))
	assert.Equal(t, 0.0, CosineSimilarity(a, zero))
	assert.Equal(t, 0.0, CosineSimilarity(zero, zero))
}

func TestHStack(t *testing.T) {
	a := Vector{Indices: []int{1}, Values: []float64{0.5}, Dim: 3}
	b := Vector{Indices: []int{0, 2}, Values: []float64{0.3, 0.4}, Dim: 3}

	out := HStack(a, b)
	assert.Equal(t, 6, out.Dim)
	assert.Equal(t, []int{1, 3, 5}, out.Indices)
	assert.Equal(t, []float64{0.5, 0.3, 0.4}, out.Values)
}

func TestDotSparse(t *testing.T) {
	a := Vector{Indices: []int{0, 2, 5}, Values: []float64{1, 2, 3}, Dim: 6}
	b := Vector{Indices: []int{2, 5}, Values: []float64{4, 5}, Dim: 6}
	assert.Equal(t, 2*4.0+3*5.0, a.Dot(b))
}

package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSeparableData 构造两类线性可分的稀疏样本
func buildSeparableData() (Matrix, []int) {
	rows := make([]Vector, 0, 40)
	labels := make([]int, 0, 40)
	for i := 0; i < 20; i++ {
		// 类别0: 第0维取高值
		rows = append(rows, Vector{Indices: []int{0}, Values: []float64{1 + float64(i%5)*0.1}, Dim: 2})
		labels = append(labels, 0)
		// 类别1: 第1维取高值
		rows = append(rows, Vector{Indices: []int{1}, Values: []float64{1 + float64(i%5)*0.1}, Dim: 2})
		labels = append(labels, 1)
	}
	return Matrix{RowVectors: rows, Cols: 2}, labels
}

func TestTrainRandomForestSeparable(t *testing.T) {
	x, y := buildSeparableData()
	cfg := DefaultForestConfig()
	cfg.NumTrees = 20

	forest, err := TrainRandomForest(x, y, 2, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, forest.NFeaturesIn)
	assert.Len(t, forest.Trees, 20)

	// 可分数据上应完全分类正确
	assert.Equal(t, 0, forest.Predict(Vector{Indices: []int{0}, Values: []float64{1.2}, Dim: 2}))
	assert.Equal(t, 1, forest.Predict(Vector{Indices: []int{1}, Values: []float64{1.2}, Dim: 2}))
}

func TestPredictProbaSumsToOne(t *testing.T) {
	x, y := buildSeparableData()
	cfg := DefaultForestConfig()
	cfg.NumTrees = 10

	forest, err := TrainRandomForest(x, y, 2, cfg)
	require.NoError(t, err)

	proba := forest.PredictProba(Vector{Indices: []int{0}, Values: []float64{1.0}, Dim: 2})
	require.Len(t, proba, 2)
	var sum float64
	for _, p := range proba {
		assert.GreaterOrEqual(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9, "概率分布之和应为1")
}

func TestTrainRandomForestDeterministic(t *testing.T) {
	x, y := buildSeparableData()
	cfg := DefaultForestConfig()
	cfg.NumTrees = 5

	f1, err := TrainRandomForest(x, y, 2, cfg)
	require.NoError(t, err)
	f2, err := TrainRandomForest(x, y, 2, cfg)
	require.NoError(t, err)

	// 固定种子下两次训练的树结构完全一致
	assert.Equal(t, f1.Trees, f2.Trees)
}

func TestTrainRandomForestEmptyInput(t *testing.T) {
	_, err := TrainRandomForest(Matrix{}, nil, 2, DefaultForestConfig())
	assert.Error(t, err)
}

func TestStratifiedSplit(t *testing.T) {
	y := []int{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}
	train, test, err := StratifiedSplit(y, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, train, 8)
	assert.Len(t, test, 2)

	// 测试集每个类别各出一个
	classes := map[int]int{}
	for _, i := range test {
		classes[y[i]]++
	}
	assert.Equal(t, map[int]int{0: 1, 1: 1}, classes)
}

func TestStratifiedSplitTooFewSamples(t *testing.T) {
	// 类别1只有1个样本，分层不可行
	_, _, err := StratifiedSplit([]int{0, 0, 0, 1}, 0.2, 42)
	assert.Error(t, err)

	// 回退路径: 普通随机划分仍然可用
	train, test := ShuffleSplit(4, 0.25, 42)
	assert.Len(t, train, 3)
	assert.Len(t, test, 1)
}

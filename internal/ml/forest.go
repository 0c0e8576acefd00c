package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// ForestConfig 随机森林训练参数
type ForestConfig struct {
	NumTrees        int   // 树的数量
	MaxDepth        int   // 单棵树最大深度
	MinSamplesSplit int   // 继续分裂所需的最小样本数
	Seed            int64 // 随机种子，固定后训练结果完全可复现
}

// DefaultForestConfig 与离线训练管道一致的默认参数: 100棵树、深度10、种子42
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NumTrees:        100,
		MaxDepth:        10,
		MinSamplesSplit: 2,
		Seed:            42,
	}
}

// TreeNode 决策树节点。叶子节点Feature为-1且Proba非空。
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Proba     []float64
}

// DecisionTree 以节点数组形式存储的CART树，下标0为根
type DecisionTree struct {
	Nodes []TreeNode
}

// RandomForest 基于基尼不纯度的CART随机森林分类器。
// 训练后只读，可并发调用Predict/PredictProba。
type RandomForest struct {
	Config      ForestConfig
	NFeaturesIn int // 训练时的特征宽度契约，推理输入必须严格一致
	NumClasses  int
	Trees       []DecisionTree
}

// TrainRandomForest 在稀疏特征矩阵与编码标签上训练随机森林。
// 每棵树使用有放回的自助采样，每次分裂随机考察sqrt(特征数)个候选特征。
func TrainRandomForest(x Matrix, y []int, numClasses int, cfg ForestConfig) (*RandomForest, error) {
	n := x.NumRows()
	if n == 0 {
		return nil, fmt.Errorf("训练样本为空")
	}
	if len(y) != n {
		return nil, fmt.Errorf("标签数量 %d 与样本数量 %d 不一致", len(y), n)
	}

	// 稀疏矩阵展开为稠密训练视图，特征维度在本系统中不超过200
	dense := make([][]float64, n)
	for i := 0; i < n; i++ {
		dense[i] = x.Row(i).ToDense()
	}

	forest := &RandomForest{
		Config:      cfg,
		NFeaturesIn: x.Cols,
		NumClasses:  numClasses,
		Trees:       make([]DecisionTree, cfg.NumTrees),
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	for t := 0; t < cfg.NumTrees; t++ {
		// 自助采样
		samples := make([]int, n)
		for i := range samples {
			samples[i] = rng.Intn(n)
		}
		builder := &treeBuilder{
			x:          dense,
			y:          y,
			numClasses: numClasses,
			cfg:        cfg,
			rng:        rng,
		}
		builder.build(samples, 0)
		forest.Trees[t] = DecisionTree{Nodes: builder.nodes}
	}
	return forest, nil
}

// treeBuilder 单棵CART树的递归构建器
type treeBuilder struct {
	x          [][]float64
	y          []int
	numClasses int
	cfg        ForestConfig
	rng        *rand.Rand
	nodes      []TreeNode
}

// build 构建子树并返回其根节点下标
func (b *treeBuilder) build(samples []int, depth int) int {
	counts := make([]float64, b.numClasses)
	for _, s := range samples {
		counts[b.y[s]]++
	}

	if depth >= b.cfg.MaxDepth || len(samples) < b.cfg.MinSamplesSplit || isPure(counts) {
		return b.leaf(counts)
	}

	feature, threshold, ok := b.bestSplit(samples, counts)
	if !ok {
		return b.leaf(counts)
	}

	var left, right []int
	for _, s := range samples {
		if b.x[s][feature] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return b.leaf(counts)
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Feature: feature, Threshold: threshold})
	b.nodes[idx].Left = b.build(left, depth+1)
	b.nodes[idx].Right = b.build(right, depth+1)
	return idx
}

// leaf 追加叶子节点，Proba为归一化的类别分布
func (b *treeBuilder) leaf(counts []float64) int {
	var total float64
	for _, c := range counts {
		total += c
	}
	proba := make([]float64, len(counts))
	if total > 0 {
		for i, c := range counts {
			proba[i] = c / total
		}
	}
	idx := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Feature: -1, Proba: proba})
	return idx
}

// bestSplit 在随机抽取的候选特征上寻找基尼增益最大的分裂点
func (b *treeBuilder) bestSplit(samples []int, counts []float64) (int, float64, bool) {
	numFeatures := len(b.x[0])
	k := int(math.Ceil(math.Sqrt(float64(numFeatures))))
	if k < 1 {
		k = 1
	}
	candidates := b.rng.Perm(numFeatures)[:k]

	parentGini := gini(counts, float64(len(samples)))
	bestGain := 0.0
	bestFeature, bestThreshold := -1, 0.0

	type pair struct {
		value float64
		class int
	}
	for _, f := range candidates {
		pairs := make([]pair, len(samples))
		for i, s := range samples {
			pairs[i] = pair{b.x[s][f], b.y[s]}
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].value < pairs[j].value })

		leftCounts := make([]float64, b.numClasses)
		rightCounts := append([]float64(nil), counts...)
		total := float64(len(pairs))

		for i := 0; i < len(pairs)-1; i++ {
			leftCounts[pairs[i].class]++
			rightCounts[pairs[i].class]--
			if pairs[i].value == pairs[i+1].value {
				continue
			}
			nl := float64(i + 1)
			nr := total - nl
			weighted := (nl*gini(leftCounts, nl) + nr*gini(rightCounts, nr)) / total
			if gain := parentGini - weighted; gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (pairs[i].value + pairs[i+1].value) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

// gini 计算基尼不纯度 1 - Σp²
func gini(counts []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := c / total
		impurity -= p * p
	}
	return impurity
}

// isPure 判断节点是否只含单一类别
func isPure(counts []float64) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

// predictProbaDense 单棵树对稠密输入的叶子分布
func (t *DecisionTree) predictProbaDense(x []float64) []float64 {
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.Feature < 0 {
			return node.Proba
		}
		if x[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

// PredictProba 返回对全部类别的平均概率分布。
// 输入向量维度必须等于NFeaturesIn，调用方负责宽度校验。
func (f *RandomForest) PredictProba(v Vector) []float64 {
	dense := v.ToDense()
	proba := make([]float64, f.NumClasses)
	for i := range f.Trees {
		leaf := f.Trees[i].predictProbaDense(dense)
		for c := range proba {
			proba[c] += leaf[c]
		}
	}
	for c := range proba {
		proba[c] /= float64(len(f.Trees))
	}
	return proba
}

// Predict 返回概率最大的类别编码，并列时取编码较小者
func (f *RandomForest) Predict(v Vector) int {
	proba := f.PredictProba(v)
	best := 0
	for c := 1; c < len(proba); c++ {
		if proba[c] > proba[best] {
			best = c
		}
	}
	return best
}

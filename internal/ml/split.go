package ml

import (
	"fmt"
	"math/rand"
	"sort"
)

// StratifiedSplit 按类别分层的训练/测试集划分。
// 每个类别内部先洗牌再按比例切分，保证两侧的类别分布接近。
// 任一类别样本数不足2时返回错误，调用方应退化为普通随机划分。
func StratifiedSplit(y []int, testRatio float64, seed int64) (trainIdx, testIdx []int, err error) {
	byClass := make(map[int][]int)
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}

	labels := make([]int, 0, len(byClass))
	for label, members := range byClass {
		if len(members) < 2 {
			return nil, nil, fmt.Errorf("类别 %d 仅有 %d 个样本，无法分层划分", label, len(members))
		}
		labels = append(labels, label)
	}
	// 按类别编码排序遍历，保证划分结果与map遍历顺序无关
	sort.Ints(labels)

	rng := rand.New(rand.NewSource(seed))
	for _, label := range labels {
		members := byClass[label]
		rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})
		nTest := int(float64(len(members)) * testRatio)
		if nTest < 1 {
			nTest = 1
		}
		testIdx = append(testIdx, members[:nTest]...)
		trainIdx = append(trainIdx, members[nTest:]...)
	}
	return trainIdx, testIdx, nil
}

// ShuffleSplit 普通随机划分，分层不可行时的回退路径
func ShuffleSplit(n int, testRatio float64, seed int64) (trainIdx, testIdx []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(float64(n) * testRatio)
	if nTest < 1 && n > 1 {
		nTest = 1
	}
	return perm[nTest:], perm[:nTest]
}

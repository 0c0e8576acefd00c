package recommend

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"ai-interview-go/internal/training"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trainTestService 用合成数据集训练一个真实工件并构造推理服务
func trainTestService(t *testing.T) *Service {
	t.Helper()

	templates := []struct {
		title  string
		skills string
		resp   string
		score  float64
	}{
		{"Data Scientist", "python machine learning data analysis statistics", "built predictive models", 0.9},
		{"Backend Engineer", "java spring mysql redis", "designed backend services", 0.7},
		{"Frontend Developer", "javascript react css html", "implemented user interfaces", 0.5},
		{"Office Clerk", "excel word filing", "managed office paperwork", 0.2},
	}

	var rows []training.RawRow
	for _, tpl := range templates {
		for i := 0; i < 5; i++ {
			title := tpl.title
			if i > 0 {
				title = fmt.Sprintf("%s %d", tpl.title, i)
			}
			rows = append(rows, training.RawRow{
				JobTitle:         title,
				Skills:           tpl.skills,
				Positions:        fmt.Sprintf("['%s']", tpl.title),
				Responsibilities: tpl.resp,
				SkillsRequired:   tpl.skills,
				MatchedScore:     tpl.score,
			})
		}
	}

	opts := training.DefaultOptions()
	opts.OutputDir = t.TempDir()
	opts.Forest.NumTrees = 10
	result, err := training.Train(rows, opts)
	require.NoError(t, err)

	return NewService(result.ArtifactPath)
}

func TestGetJobRecommendationsScenario(t *testing.T) {
	svc := trainTestService(t)

	recs := svc.GetJobRecommendations("Python Machine Learning Data Analysis", 5)
	require.NotEmpty(t, recs)

	// 技能高度重合的岗位排第一且匹配分超过50
	assert.Equal(t, "Data Scientist", recs[0].JobTitle)
	assert.Greater(t, recs[0].MatchScore, 50.0)
}

func TestGetJobRecommendationsTopNContract(t *testing.T) {
	svc := trainTestService(t)

	recs := svc.GetJobRecommendations("python machine learning java react excel", 3)
	assert.LessOrEqual(t, len(recs), 3)

	// 严格降序排列，且全部高于最低阈值
	for i, r := range recs {
		assert.Greater(t, r.MatchScore, MinSimilarityThreshold*100)
		if i > 0 {
			assert.GreaterOrEqual(t, recs[i-1].MatchScore, r.MatchScore)
		}
	}
}

func TestGetJobRecommendationsEmptyInput(t *testing.T) {
	svc := trainTestService(t)
	assert.Empty(t, svc.GetJobRecommendations("", 5))
	assert.Empty(t, svc.GetJobRecommendations("N/A", 5))
}

func TestGetJobRecommendationsIrrelevantInput(t *testing.T) {
	svc := trainTestService(t)
	// 词表外的技能得到零向量，所有相似度为0，全部被过滤
	assert.Empty(t, svc.GetJobRecommendations("underwater basket weaving", 5))
}

func TestAnalyzeResumeQuality(t *testing.T) {
	svc := trainTestService(t)

	result := svc.AnalyzeResumeQuality("python machine learning data analysis built predictive models")
	assert.NotEqual(t, UnknownCategory, result.MatchCategory)
	assert.Contains(t, []string{"Low", "Medium", "High", "Excellent"}, result.MatchCategory)

	// 概率按类别给出且和为100(百分比)
	var sum float64
	for _, p := range result.Probabilities {
		sum += p
	}
	assert.InDelta(t, 100.0, sum, 0.1)
	assert.Equal(t, result.Score, result.Confidence)
	assert.NotEmpty(t, result.QualityAssessment)
}

func TestAnalyzeResumeQualityEmptyInput(t *testing.T) {
	svc := trainTestService(t)

	result := svc.AnalyzeResumeQuality("")
	assert.Equal(t, UnknownCategory, result.MatchCategory)
	assert.Zero(t, result.Confidence)
	assert.Empty(t, result.Probabilities)
}

func TestAnalyzeResumeQualityDimensionMismatch(t *testing.T) {
	svc := trainTestService(t)
	art := svc.current()
	require.NotNil(t, art)

	// 人为制造特征宽度漂移
	art.Classifier.NFeaturesIn++
	defer func() { art.Classifier.NFeaturesIn-- }()

	result := svc.AnalyzeResumeQuality("python machine learning")
	assert.Equal(t, UnknownCategory, result.MatchCategory)
	assert.Zero(t, result.Confidence)
	assert.Contains(t, result.QualityAssessment, "dimension mismatch")
}

func TestGetSkillInsights(t *testing.T) {
	svc := trainTestService(t)

	insights := svc.GetSkillInsights("python machine learning data analysis")
	require.NotEmpty(t, insights.TopSkills)
	assert.LessOrEqual(t, len(insights.TopSkills), 10)
	assert.GreaterOrEqual(t, insights.TotalSkillsIdentified, len(insights.TopSkills))

	// 权重降序排列
	for i := 1; i < len(insights.TopSkills); i++ {
		assert.GreaterOrEqual(t, insights.TopSkills[i-1].Relevance, insights.TopSkills[i].Relevance)
	}
}

func TestGetSkillInsightsEmptyInput(t *testing.T) {
	svc := trainTestService(t)
	assert.Equal(t, SkillInsights{}, svc.GetSkillInsights(""))
}

func TestGracefulDegradationWithoutArtifact(t *testing.T) {
	svc := NewService(filepath.Join(t.TempDir(), "missing.gob"))

	assert.False(t, svc.Available())
	assert.Empty(t, svc.GetJobRecommendations("python", 5))
	assert.Equal(t, SkillInsights{}, svc.GetSkillInsights("python"))

	result := svc.AnalyzeResumeQuality("python developer")
	assert.Equal(t, UnknownCategory, result.MatchCategory)
	assert.Zero(t, result.Score)
	assert.NotNil(t, result.Probabilities)
	assert.Empty(t, result.Probabilities)

	_, err := svc.ModelInfo()
	assert.True(t, errors.Is(err, ErrArtifactNotLoaded))
}

func TestReload(t *testing.T) {
	svc := trainTestService(t)
	require.True(t, svc.Available())

	// 指向不存在文件的热更新失败，但当前工件保持可用
	broken := NewService(svc.path)
	require.True(t, broken.Available())
	broken.path = filepath.Join(t.TempDir(), "gone.gob")
	err := broken.Reload()
	assert.True(t, errors.Is(err, ErrArtifactLoadFailed))
	assert.True(t, broken.Available())

	require.NoError(t, svc.Reload())
	assert.True(t, svc.Available())
}

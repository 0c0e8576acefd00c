package training

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"ai-interview-go/internal/artifact"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTrainingRows 构造四个类别各若干样本的合成数据集
func buildTrainingRows() []RawRow {
	templates := []struct {
		title  string
		skills string
		resp   string
		score  float64
	}{
		{"Data Scientist", "['Python', 'Machine Learning', 'SQL']", "built predictive models and dashboards", 0.9},
		{"Backend Engineer", "['Java', 'Spring', 'MySQL']", "designed and maintained backend services", 0.7},
		{"Frontend Developer", "['JavaScript', 'React', 'CSS']", "implemented user interfaces", 0.5},
		{"Office Clerk", "['Excel', 'Word']", "managed office paperwork", 0.2},
	}

	var rows []RawRow
	for _, tpl := range templates {
		for i := 0; i < 5; i++ {
			rows = append(rows, RawRow{
				JobTitle:         fmt.Sprintf("%s %d", tpl.title, i),
				Skills:           tpl.skills,
				Positions:        fmt.Sprintf("['%s']", tpl.title),
				Responsibilities: tpl.resp,
				SkillsRequired:   tpl.skills,
				MatchedScore:     tpl.score,
			})
		}
	}
	return rows
}

func testOptions(t *testing.T) Options {
	t.Helper()
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()
	opts.Forest.NumTrees = 10
	return opts
}

func TestTrainProducesValidArtifact(t *testing.T) {
	opts := testOptions(t)
	result, err := Train(buildTrainingRows(), opts)
	require.NoError(t, err)

	assert.True(t, result.Stratified, "每个类别都有足够样本时应分层划分")
	assert.GreaterOrEqual(t, result.TrainAccuracy, 0.0)
	assert.LessOrEqual(t, result.TrainAccuracy, 1.0)
	assert.Equal(t, 4, result.Artifact.LabelEncoder.NumClasses())

	// 类别编码固定为字典序
	assert.Equal(t, []string{"Excellent", "High", "Low", "Medium"}, result.Artifact.LabelEncoder.Classes)

	// 落盘的工件可以重新加载并通过校验
	loaded, err := artifact.Load(result.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, len(result.Artifact.JobProfiles), len(loaded.JobProfiles))
}

func TestTrainWritesAuxiliaryFiles(t *testing.T) {
	opts := testOptions(t)
	_, err := Train(buildTrainingRows(), opts)
	require.NoError(t, err)

	for _, name := range []string{ArtifactFileName, JobProfilesFileName, FeatureInfoFileName, AnalyticsFileName} {
		_, err := os.Stat(filepath.Join(opts.OutputDir, name))
		assert.NoError(t, err, "缺少产出文件 %s", name)
	}
}

func TestTrainJobCatalogDedup(t *testing.T) {
	rows := buildTrainingRows()
	// 重复岗位名称与无名称记录都不应扩大目录
	rows = append(rows,
		RawRow{JobTitle: "Data Scientist 0", Skills: "['Go']", Positions: "['Dev']",
			Responsibilities: "other duties", SkillsRequired: "go", MatchedScore: 0.9},
		RawRow{JobTitle: "N/A", Skills: "['Go']", Positions: "['Dev']",
			Responsibilities: "unnamed", SkillsRequired: "go", MatchedScore: 0.9},
	)

	opts := testOptions(t)
	result, err := Train(rows, opts)
	require.NoError(t, err)

	art := result.Artifact
	assert.Len(t, art.JobProfiles, 20)
	assert.Equal(t, len(art.JobProfiles), art.JobSkillsMatrix.NumRows(), "目录与矩阵必须行对齐")

	// 同名岗位保留首次出现的记录
	assert.Equal(t, "['Python', 'Machine Learning', 'SQL']", art.JobProfiles[0].RequiredSkills)
}

func TestTrainFallsBackWhenStratifyImpossible(t *testing.T) {
	rows := buildTrainingRows()[:6]
	// 仅剩两个类别且其中一个样本过少时回退为普通划分
	rows = rows[:5]
	rows = append(rows, RawRow{
		JobTitle: "Backend Engineer X", Skills: "['Java']", Positions: "['Engineer']",
		Responsibilities: "backend work", SkillsRequired: "java", MatchedScore: 0.7,
	})

	opts := testOptions(t)
	result, err := Train(rows, opts)
	require.NoError(t, err)
	assert.False(t, result.Stratified)
}

func TestTrainEmptyDataset(t *testing.T) {
	opts := testOptions(t)
	_, err := Train(nil, opts)
	assert.Error(t, err)
}

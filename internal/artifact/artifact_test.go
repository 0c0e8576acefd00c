package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ai-interview-go/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestArtifact 构造一个最小但内部一致的工件
func buildTestArtifact(t *testing.T) *Artifact {
	t.Helper()

	skills := ml.NewTFIDFVectorizer(100)
	skills.Fit([]string{"python machine learning", "java backend"})
	resp := ml.NewTFIDFVectorizer(100)
	resp.Fit([]string{"build models", "write services"})

	le := ml.FitLabels([]string{"Low", "High"})

	x := ml.Matrix{
		RowVectors: []ml.Vector{
			ml.HStack(skills.Transform("python machine learning"), resp.Transform("build models")),
			ml.HStack(skills.Transform("java backend"), resp.Transform("write services")),
			ml.HStack(skills.Transform("python"), resp.Transform("models")),
			ml.HStack(skills.Transform("java"), resp.Transform("services")),
		},
		Cols: skills.NumFeatures() + resp.NumFeatures(),
	}
	cfg := ml.DefaultForestConfig()
	cfg.NumTrees = 5
	forest, err := ml.TrainRandomForest(x, []int{0, 1, 0, 1}, le.NumClasses(), cfg)
	require.NoError(t, err)

	profiles := []JobProfile{{Title: "Data Scientist", RequiredSkills: "python machine learning"}}
	return &Artifact{
		SchemaVersion:              CurrentSchemaVersion,
		SkillsVectorizer:           skills,
		ResponsibilitiesVectorizer: resp,
		LabelEncoder:               le,
		Classifier:                 forest,
		JobProfiles:                profiles,
		JobSkillsMatrix: ml.Matrix{
			RowVectors: []ml.Vector{skills.Transform("python machine learning")},
			Cols:       skills.NumFeatures(),
		},
		Metadata: Metadata{
			ModelType:       "Random Forest Classifier",
			TrainingDate:    time.Now(),
			Classes:         le.Classes,
			JobProfileCount: len(profiles),
		},
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	a := buildTestArtifact(t)
	path := filepath.Join(t.TempDir(), "final_model.gob")

	require.NoError(t, Save(a, path))

	loaded, err := Load(path)
	require.NoError(t, err)

	// 向量器与分类器在反序列化后保持一致
	assert.Equal(t, a.SkillsVectorizer.Terms, loaded.SkillsVectorizer.Terms)
	assert.Equal(t, a.Classifier.Trees, loaded.Classifier.Trees)
	assert.Equal(t, a.LabelEncoder.Classes, loaded.LabelEncoder.Classes)
	assert.Equal(t, a.JobProfiles, loaded.JobProfiles)

	// 反序列化后的向量器变换结果与原始一致(序列化不破坏对称性)
	orig := a.SkillsVectorizer.Transform("python machine learning")
	back := loaded.SkillsVectorizer.Transform("python machine learning")
	assert.Equal(t, orig, back)
}

func TestSaveIsAtomic(t *testing.T) {
	a := buildTestArtifact(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "final_model.gob")

	require.NoError(t, Save(a, path))
	require.NoError(t, Save(a, path), "重复保存应原子替换而不报错")

	// 目录中不残留临时文件
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.gob"))
	assert.Error(t, err)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.gob")
	require.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRowAlignment(t *testing.T) {
	a := buildTestArtifact(t)
	// 打破岗位画像与矩阵的行对齐不变式
	a.JobProfiles = append(a.JobProfiles, JobProfile{Title: "Extra"})
	assert.Error(t, a.Validate())
}

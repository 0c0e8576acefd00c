// Package artifact 定义训练管道产出、推理服务消费的模型工件。
// 工件是唯一的跨进程契约: 训练端写，服务端只读，
// 重训练产出新文件后原子替换，绝不原地修改。
package artifact

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ai-interview-go/internal/ml"
)

// CurrentSchemaVersion 工件结构版本。结构变更时递增，
// 读写双方必须一起升级部署。
const CurrentSchemaVersion = 1

// JobProfile 去重后的岗位画像，一行对应一个独立岗位名称。
// 字段内容在训练期已清洗，服务端直接使用。
type JobProfile struct {
	Title              string
	RequiredSkills     string
	Responsibilities   string
	EducationRequired  string
	ExperienceRequired string
}

// Metadata 训练过程的描述性元数据，不参与推理
type Metadata struct {
	ModelType       string
	TrainingDate    time.Time
	TrainingSamples int
	TestSamples     int
	TrainAccuracy   float64
	TestAccuracy    float64
	NumFeatures     int
	NumClasses      int
	Classes         []string
	JobProfileCount int
}

// FeatureInfo 特征名清单，供离线分析与排障参考
type FeatureInfo struct {
	SkillsFeatures         []string
	ResponsibilityFeatures []string
	LabelClasses           []string
}

// Artifact 单一序列化单元，聚合全部冻结的模型组件。
// 不变式: JobSkillsMatrix第i行与JobProfiles[i]必须始终对齐，
// 行序就是两者之间的连接键。
type Artifact struct {
	SchemaVersion int

	SkillsVectorizer           *ml.TFIDFVectorizer
	ResponsibilitiesVectorizer *ml.TFIDFVectorizer
	LabelEncoder               *ml.LabelEncoder
	Classifier                 *ml.RandomForest

	JobProfiles     []JobProfile
	JobSkillsMatrix ml.Matrix

	Metadata Metadata
	Features FeatureInfo
}

// Validate 检查工件内部一致性
func (a *Artifact) Validate() error {
	if a.SchemaVersion != CurrentSchemaVersion {
		return fmt.Errorf("工件结构版本不匹配: 期望 %d, 实际 %d", CurrentSchemaVersion, a.SchemaVersion)
	}
	if a.SkillsVectorizer == nil || a.ResponsibilitiesVectorizer == nil {
		return fmt.Errorf("工件缺少向量器")
	}
	if a.Classifier == nil || a.LabelEncoder == nil {
		return fmt.Errorf("工件缺少分类器或标签编码器")
	}
	if len(a.JobProfiles) != a.JobSkillsMatrix.NumRows() {
		return fmt.Errorf("岗位画像数量 %d 与岗位技能矩阵行数 %d 不对齐",
			len(a.JobProfiles), a.JobSkillsMatrix.NumRows())
	}
	expected := a.SkillsVectorizer.NumFeatures() + a.ResponsibilitiesVectorizer.NumFeatures()
	if a.Classifier.NFeaturesIn != expected {
		return fmt.Errorf("分类器特征宽度 %d 与向量器总宽度 %d 不一致",
			a.Classifier.NFeaturesIn, expected)
	}
	return nil
}

// Save 原子写入工件: 先写同目录临时文件，再rename覆盖目标路径。
// 任何失败都不会留下半成品覆盖旧工件。
func Save(a *Artifact, path string) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("工件校验失败: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建工件目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("创建临时工件文件失败: %w", err)
	}
	tmpPath := tmp.Name()

	if err := gob.NewEncoder(tmp).Encode(a); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("序列化工件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("写入临时工件失败: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("替换工件文件失败: %w", err)
	}
	return nil
}

// Load 从磁盘加载并校验工件
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开工件文件失败: %w", err)
	}
	defer f.Close()

	var a Artifact
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("反序列化工件失败: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

package training

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ai-interview-go/internal/artifact"
	"ai-interview-go/internal/logger"
	"ai-interview-go/internal/ml"
	"ai-interview-go/internal/textutil"
)

// 管道产出的文件名，全部写入Options.OutputDir
const (
	ArtifactFileName    = "final_model.gob"
	JobProfilesFileName = "job_profiles.csv"
	FeatureInfoFileName = "feature_info.json"
	AnalyticsFileName   = "analytics_report.json"
)

// Options 训练管道配置
type Options struct {
	DatasetPath string
	OutputDir   string

	// MaxFeatures 每个向量器的词表上限
	MaxFeatures int
	TestRatio   float64
	Seed        int64
	Forest      ml.ForestConfig
}

// DefaultOptions 返回与历史训练保持一致的默认超参数
func DefaultOptions() Options {
	return Options{
		MaxFeatures: 100,
		TestRatio:   0.2,
		Seed:        42,
		Forest:      ml.DefaultForestConfig(),
	}
}

// Result 一次训练的产出汇总
type Result struct {
	Artifact     *artifact.Artifact
	ArtifactPath string

	TrainAccuracy   float64
	TestAccuracy    float64
	TrainingSamples int
	TestSamples     int
	// Stratified 划分是否成功按类别分层，false表示回退为普通随机划分
	Stratified bool
}

// Run 执行完整训练管道: 加载、清洗、特征抽取、训练、评估、产出工件。
// 任何阶段失败都立即返回错误终止训练，绝不产出半成品工件。
func Run(opts Options) (*Result, error) {
	logger.Info().Str("dataset", opts.DatasetPath).Msg("开始加载训练数据集")
	rows, err := LoadCSV(opts.DatasetPath)
	if err != nil {
		return nil, err
	}
	return Train(rows, opts)
}

// Train 在已加载的原始数据上执行训练管道的剩余阶段
func Train(rows []RawRow, opts Options) (*Result, error) {
	before := len(rows)
	rows = Deduplicate(rows)
	logger.Info().
		Int("loaded", before).
		Int("after_dedup", len(rows)).
		Msg("数据集加载完成")

	cleaned := CleanAll(rows)

	// 技能语料与经验语料分别拟合独立的向量器
	skillsCorpus := make([]string, len(cleaned))
	expCorpus := make([]string, len(cleaned))
	categories := make([]string, len(cleaned))
	for i, c := range cleaned {
		skillsCorpus[i] = c.AllSkills
		expCorpus[i] = c.AllExperience
		categories[i] = c.MatchCategory
	}

	skillsVec := ml.NewTFIDFVectorizer(opts.MaxFeatures)
	skillsVec.Fit(skillsCorpus)
	respVec := ml.NewTFIDFVectorizer(opts.MaxFeatures)
	respVec.Fit(expCorpus)
	logger.Info().
		Int("skills_features", skillsVec.NumFeatures()).
		Int("experience_features", respVec.NumFeatures()).
		Msg("TF-IDF向量器拟合完成")

	le := ml.FitLabels(categories)
	y := le.EncodeAll(categories)

	x := ml.Matrix{
		RowVectors: make([]ml.Vector, len(cleaned)),
		Cols:       skillsVec.NumFeatures() + respVec.NumFeatures(),
	}
	for i := range cleaned {
		x.RowVectors[i] = ml.HStack(
			skillsVec.Transform(skillsCorpus[i]),
			respVec.Transform(expCorpus[i]),
		)
	}

	trainIdx, testIdx, err := ml.StratifiedSplit(y, opts.TestRatio, opts.Seed)
	stratified := err == nil
	if err != nil {
		logger.Warn().Err(err).Msg("分层划分不可行，回退为普通随机划分")
		trainIdx, testIdx = ml.ShuffleSplit(len(y), opts.TestRatio, opts.Seed)
	}

	xTrain, yTrain := subset(x, y, trainIdx)
	xTest, yTest := subset(x, y, testIdx)

	logger.Info().
		Int("train_samples", len(trainIdx)).
		Int("test_samples", len(testIdx)).
		Bool("stratified", stratified).
		Msg("开始训练随机森林")
	forest, err := ml.TrainRandomForest(xTrain, yTrain, le.NumClasses(), opts.Forest)
	if err != nil {
		return nil, fmt.Errorf("训练随机森林失败: %w", err)
	}

	trainAcc := accuracy(forest, xTrain, yTrain)
	testAcc := accuracy(forest, xTest, yTest)
	logger.Info().
		Float64("train_accuracy", trainAcc).
		Float64("test_accuracy", testAcc).
		Msg("模型评估完成")

	profiles, matrix := buildJobCatalog(cleaned, skillsVec)
	logger.Info().Int("job_profiles", len(profiles)).Msg("岗位目录构建完成")

	art := &artifact.Artifact{
		SchemaVersion:              artifact.CurrentSchemaVersion,
		SkillsVectorizer:           skillsVec,
		ResponsibilitiesVectorizer: respVec,
		LabelEncoder:               le,
		Classifier:                 forest,
		JobProfiles:                profiles,
		JobSkillsMatrix:            matrix,
		Metadata: artifact.Metadata{
			ModelType:       "Random Forest Classifier",
			TrainingDate:    time.Now(),
			TrainingSamples: len(trainIdx),
			TestSamples:     len(testIdx),
			TrainAccuracy:   trainAcc,
			TestAccuracy:    testAcc,
			NumFeatures:     x.Cols,
			NumClasses:      le.NumClasses(),
			Classes:         le.Classes,
			JobProfileCount: len(profiles),
		},
		Features: artifact.FeatureInfo{
			SkillsFeatures:         skillsVec.FeatureNames(),
			ResponsibilityFeatures: respVec.FeatureNames(),
			LabelClasses:           le.Classes,
		},
	}

	artifactPath := filepath.Join(opts.OutputDir, ArtifactFileName)
	if err := artifact.Save(art, artifactPath); err != nil {
		return nil, err
	}
	if err := writeJobProfilesCSV(profiles, filepath.Join(opts.OutputDir, JobProfilesFileName)); err != nil {
		return nil, err
	}
	if err := writeJSON(art.Features, filepath.Join(opts.OutputDir, FeatureInfoFileName)); err != nil {
		return nil, err
	}
	if err := writeJSON(buildAnalytics(cleaned), filepath.Join(opts.OutputDir, AnalyticsFileName)); err != nil {
		return nil, err
	}
	logger.Info().Str("artifact", artifactPath).Msg("模型工件已写入")

	return &Result{
		Artifact:        art,
		ArtifactPath:    artifactPath,
		TrainAccuracy:   trainAcc,
		TestAccuracy:    testAcc,
		TrainingSamples: len(trainIdx),
		TestSamples:     len(testIdx),
		Stratified:      stratified,
	}, nil
}

// subset 按下标抽取样本子集
func subset(x ml.Matrix, y []int, idx []int) (ml.Matrix, []int) {
	sub := ml.Matrix{RowVectors: make([]ml.Vector, len(idx)), Cols: x.Cols}
	labels := make([]int, len(idx))
	for i, j := range idx {
		sub.RowVectors[i] = x.RowVectors[j]
		labels[i] = y[j]
	}
	return sub, labels
}

// accuracy 计算分类准确率
func accuracy(forest *ml.RandomForest, x ml.Matrix, y []int) float64 {
	if len(y) == 0 {
		return 0
	}
	correct := 0
	for i, vec := range x.RowVectors {
		if forest.Predict(vec) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y))
}

// buildJobCatalog 按岗位名称去重构建岗位目录与岗位技能矩阵。
// 同名岗位保留首次出现的记录，无名称的记录不进入目录。
// 返回的矩阵第i行就是profiles[i]要求技能的TF-IDF向量。
func buildJobCatalog(cleaned []CleanedRow, skillsVec *ml.TFIDFVectorizer) ([]artifact.JobProfile, ml.Matrix) {
	seen := make(map[string]struct{})
	var profiles []artifact.JobProfile
	var rows []ml.Vector

	for _, c := range cleaned {
		title := strings.TrimSpace(c.Raw.JobTitle)
		if title == "" || title == textutil.MissingSentinel {
			continue
		}
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}

		profiles = append(profiles, artifact.JobProfile{
			Title:              title,
			RequiredSkills:     c.Raw.SkillsRequired,
			Responsibilities:   c.Raw.Responsibilities,
			EducationRequired:  c.Raw.EducationRequirement,
			ExperienceRequired: c.Raw.ExperienceRequirement,
		})
		rows = append(rows, skillsVec.Transform(c.SkillsRequiredCleaned))
	}

	return profiles, ml.Matrix{RowVectors: rows, Cols: skillsVec.NumFeatures()}
}

// AnalyticsReport 数据集的离线统计报告，供人工分析参考
type AnalyticsReport struct {
	TotalRecords          int            `json:"total_records"`
	CategoryDistribution  map[string]int `json:"category_distribution"`
	ExperienceLevelCounts map[int]int    `json:"experience_level_counts"`
	TopSkills             []SkillCount   `json:"top_skills"`
}

// SkillCount 技能及其在数据集中的出现次数
type SkillCount struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

// buildAnalytics 统计类别分布、经验水平分布与高频技能
func buildAnalytics(cleaned []CleanedRow) AnalyticsReport {
	report := AnalyticsReport{
		TotalRecords:          len(cleaned),
		CategoryDistribution:  make(map[string]int),
		ExperienceLevelCounts: make(map[int]int),
	}

	skillCounts := make(map[string]int)
	for _, c := range cleaned {
		report.CategoryDistribution[c.MatchCategory]++
		report.ExperienceLevelCounts[c.ExperienceLevel]++
		for _, s := range c.SkillsList {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				skillCounts[s]++
			}
		}
	}

	skills := make([]SkillCount, 0, len(skillCounts))
	for s, n := range skillCounts {
		skills = append(skills, SkillCount{Skill: s, Count: n})
	}
	sort.Slice(skills, func(i, j int) bool {
		if skills[i].Count != skills[j].Count {
			return skills[i].Count > skills[j].Count
		}
		return skills[i].Skill < skills[j].Skill
	})
	if len(skills) > 20 {
		skills = skills[:20]
	}
	report.TopSkills = skills
	return report
}

// writeJobProfilesCSV 导出岗位目录，行序与工件内的矩阵保持一致
func writeJobProfilesCSV(profiles []artifact.JobProfile, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建岗位目录文件失败: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"job_title", "skills_required", "responsibilities",
		"education_requirement", "experience_requirement",
	}); err != nil {
		return fmt.Errorf("写入岗位目录表头失败: %w", err)
	}
	for _, p := range profiles {
		if err := w.Write([]string{
			p.Title, p.RequiredSkills, p.Responsibilities,
			p.EducationRequired, p.ExperienceRequired,
		}); err != nil {
			return fmt.Errorf("写入岗位目录记录失败: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// writeJSON 以缩进格式写出JSON文件
func writeJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", filepath.Base(path), err)
	}
	return nil
}

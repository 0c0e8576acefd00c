// Package recommend 实现基于模型工件的推理服务:
// 岗位推荐、简历质量评估与技能洞察。
// 对外契约是"永不抛错": 工件缺失、维度漂移、空输入
// 一律降级为空结果或Unknown哨兵，绝不影响请求处理。
package recommend

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"ai-interview-go/internal/artifact"
	"ai-interview-go/internal/logger"
	"ai-interview-go/internal/ml"
	"ai-interview-go/internal/textutil"
)

const (
	// UnknownCategory 无法评估时返回的类别哨兵
	UnknownCategory = "Unknown"
	// MinSimilarityThreshold 推荐结果的最低相关性阈值，低于则过滤
	MinSimilarityThreshold = 0.01
	// DefaultTopN 默认推荐数量
	DefaultTopN = 5

	// 职责描述在推荐结果中的预览长度
	responsibilitiesPreviewLimit = 200
)

// JobRecommendation 单条岗位推荐
type JobRecommendation struct {
	JobTitle           string  `json:"job_title"`
	MatchScore         float64 `json:"match_score"`
	RequiredSkills     string  `json:"required_skills"`
	Responsibilities   string  `json:"responsibilities"`
	EducationRequired  string  `json:"education_required"`
	ExperienceRequired string  `json:"experience_required"`
}

// QualityResult 简历质量评估结果
type QualityResult struct {
	MatchCategory     string             `json:"match_category"`
	Confidence        float64            `json:"confidence"`
	Probabilities     map[string]float64 `json:"probabilities"`
	Score             float64            `json:"score"`
	QualityAssessment string             `json:"quality_assessment"`
}

// SkillRelevance 单个技能词项及其TF-IDF权重
type SkillRelevance struct {
	Skill     string  `json:"skill"`
	Relevance float64 `json:"relevance"`
}

// SkillInsights 技能洞察结果
type SkillInsights struct {
	TopSkills             []SkillRelevance `json:"top_skills"`
	TotalSkillsIdentified int              `json:"total_skills_identified"`
}

// Service 推理服务。进程内单例，工件在首次访问时惰性加载，
// 加载失败只记录一次，后续调用直接走降级路径不再重试。
type Service struct {
	path string

	mu        sync.RWMutex
	art       *artifact.Artifact
	loadTried bool
}

// NewService 创建推理服务，artifactPath指向训练管道产出的工件文件
func NewService(artifactPath string) *Service {
	return &Service{path: artifactPath}
}

// current 返回已加载的工件，未加载时触发一次加载。
// 返回nil表示工件不可用，调用方必须走降级路径。
func (s *Service) current() *artifact.Artifact {
	s.mu.RLock()
	if s.art != nil || s.loadTried {
		art := s.art
		s.mu.RUnlock()
		return art
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.art == nil && !s.loadTried {
		s.loadTried = true
		art, err := artifact.Load(s.path)
		if err != nil {
			logger.Error().Err(err).Str("path", s.path).
				Msg("加载模型工件失败，推理服务进入降级模式")
		} else {
			s.art = art
			logger.Info().
				Str("path", s.path).
				Int("job_profiles", len(art.JobProfiles)).
				Float64("test_accuracy", art.Metadata.TestAccuracy).
				Time("trained_at", art.Metadata.TrainingDate).
				Msg("模型工件加载成功")
		}
	}
	return s.art
}

// Available 返回工件当前是否可用
func (s *Service) Available() bool {
	return s.current() != nil
}

// Reload 重新加载工件，供重训练后热更新。
// 加载失败时保留当前工件不变并返回错误。
func (s *Service) Reload() error {
	art, err := artifact.Load(s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactLoadFailed, err)
	}

	s.mu.Lock()
	s.art = art
	s.loadTried = true
	s.mu.Unlock()

	logger.Info().Str("path", s.path).Msg("模型工件热更新完成")
	return nil
}

// ModelInfo 返回当前工件的训练元数据，供模型信息接口使用
func (s *Service) ModelInfo() (artifact.Metadata, error) {
	art := s.current()
	if art == nil {
		return artifact.Metadata{}, ErrArtifactNotLoaded
	}
	return art.Metadata, nil
}

// GetJobRecommendations 根据候选人技能文本返回最多topN条岗位推荐。
// 按相似度严格降序排列，并列时保持岗位目录的原始行序；
// 相似度不高于阈值的结果被过滤，因此返回数量可能少于topN。
// 工件不可用或输入为空时返回空列表，永不报错。
func (s *Service) GetJobRecommendations(skillsText string, topN int) []JobRecommendation {
	art := s.current()
	if art == nil {
		return nil
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	cleaned := textutil.Normalize(skillsText)
	if cleaned == "" {
		return nil
	}

	candidate := art.SkillsVectorizer.Transform(cleaned)
	sims := make([]float64, art.JobSkillsMatrix.NumRows())
	order := make([]int, len(sims))
	for i := range sims {
		sims[i] = ml.CosineSimilarity(candidate, art.JobSkillsMatrix.Row(i))
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sims[order[a]] > sims[order[b]]
	})

	if len(order) > topN {
		order = order[:topN]
	}

	recs := make([]JobRecommendation, 0, len(order))
	for _, idx := range order {
		if sims[idx] <= MinSimilarityThreshold {
			continue
		}
		p := art.JobProfiles[idx]
		recs = append(recs, JobRecommendation{
			JobTitle:           p.Title,
			MatchScore:         round2(sims[idx] * 100),
			RequiredSkills:     textutil.Normalize(p.RequiredSkills),
			Responsibilities:   textutil.Truncate(p.Responsibilities, responsibilitiesPreviewLimit),
			EducationRequired:  p.EducationRequired,
			ExperienceRequired: p.ExperienceRequired,
		})
	}
	return recs
}

// AnalyzeResumeQuality 预测简历文本的质量类别与各类别概率。
// 特征宽度不匹配、空输入或工件不可用时返回Unknown哨兵结果。
func (s *Service) AnalyzeResumeQuality(resumeText string) QualityResult {
	art := s.current()
	if art == nil {
		return unknownResult("Unable to analyze resume quality")
	}

	cleaned := textutil.Normalize(resumeText)
	if cleaned == "" {
		return unknownResult("Unable to analyze - empty resume text")
	}

	feature := ml.HStack(
		art.SkillsVectorizer.Transform(cleaned),
		art.ResponsibilitiesVectorizer.Transform(cleaned),
	)
	if feature.Dim != art.Classifier.NFeaturesIn {
		logger.Warn().
			Int("expected", art.Classifier.NFeaturesIn).
			Int("actual", feature.Dim).
			Msg("特征宽度与分类器不匹配，返回Unknown结果")
		return unknownResult("Unable to analyze - feature dimension mismatch")
	}

	proba := art.Classifier.PredictProba(feature)
	pred := argmax(proba)
	// 预测下标越界时钳制到最后一个合法类别
	if pred >= art.LabelEncoder.NumClasses() {
		logger.Warn().Int("prediction", pred).
			Int("classes", art.LabelEncoder.NumClasses()).
			Msg("预测下标越界，钳制到最后一个类别")
		pred = art.LabelEncoder.NumClasses() - 1
	}
	category, ok := art.LabelEncoder.Decode(pred)
	if !ok {
		return unknownResult("Unable to analyze resume quality")
	}

	numProbs := len(proba)
	if n := art.LabelEncoder.NumClasses(); n < numProbs {
		numProbs = n
	}
	probabilities := make(map[string]float64, numProbs)
	var best float64
	for i := 0; i < numProbs; i++ {
		label, _ := art.LabelEncoder.Decode(i)
		probabilities[label] = round2(proba[i] * 100)
		if proba[i] > best {
			best = proba[i]
		}
	}
	score := round2(best * 100)

	return QualityResult{
		MatchCategory:     category,
		Confidence:        score,
		Probabilities:     probabilities,
		Score:             score,
		QualityAssessment: qualityMessage(category, score),
	}
}

// GetSkillInsights 返回输入文本中权重最高的前10个技能词项。
// 并列权重按词表下标升序，权重保留3位小数。
func (s *Service) GetSkillInsights(skillsText string) SkillInsights {
	art := s.current()
	if art == nil {
		return SkillInsights{}
	}

	vec := art.SkillsVectorizer.Transform(textutil.Normalize(skillsText))
	if vec.NNZ() == 0 {
		return SkillInsights{}
	}

	type weighted struct {
		col int
		val float64
	}
	entries := make([]weighted, 0, vec.NNZ())
	for i, col := range vec.Indices {
		if vec.Values[i] > 0 {
			entries = append(entries, weighted{col: col, val: vec.Values[i]})
		}
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].val > entries[b].val
	})

	total := len(entries)
	if len(entries) > 10 {
		entries = entries[:10]
	}

	names := art.SkillsVectorizer.FeatureNames()
	top := make([]SkillRelevance, len(entries))
	for i, e := range entries {
		top[i] = SkillRelevance{
			Skill:     names[e.col],
			Relevance: round3(e.val),
		}
	}
	return SkillInsights{TopSkills: top, TotalSkillsIdentified: total}
}

// unknownResult 构造Unknown哨兵结果，概率表为空但非nil
func unknownResult(assessment string) QualityResult {
	return QualityResult{
		MatchCategory:     UnknownCategory,
		Confidence:        0,
		Probabilities:     map[string]float64{},
		Score:             0,
		QualityAssessment: assessment,
	}
}

// qualityMessage 按类别生成面向候选人的评估文案
func qualityMessage(category string, score float64) string {
	switch category {
	case "Excellent":
		return fmt.Sprintf("Outstanding resume quality! Your profile shows %.2f%% match with top opportunities.", score)
	case "High":
		return fmt.Sprintf("Strong resume! You have a %.2f%% compatibility with available positions.", score)
	case "Medium":
		return fmt.Sprintf("Good foundation. Your resume shows %.2f%% match - consider highlighting more relevant skills.", score)
	case "Low":
		return fmt.Sprintf("Room for improvement. Current match is %.2f%% - focus on adding more relevant skills and experience.", score)
	default:
		return fmt.Sprintf("Resume quality score: %.2f%%", score)
	}
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

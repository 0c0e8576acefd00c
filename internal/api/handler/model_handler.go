package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ai-interview-go/internal/artifact"
	"ai-interview-go/internal/config"
	"ai-interview-go/internal/logger"
	"ai-interview-go/internal/recommend"
	"ai-interview-go/internal/storage"
)

// ModelHandler 本地模型的推荐、质量评估与技能洞察处理器
type ModelHandler struct {
	cfg     *config.Config
	svc     *recommend.Service
	storage *storage.Storage
}

// NewModelHandler 创建模型处理器
func NewModelHandler(cfg *config.Config, svc *recommend.Service, storage *storage.Storage) *ModelHandler {
	return &ModelHandler{cfg: cfg, svc: svc, storage: storage}
}

// RecommendRequest 岗位推荐请求
type RecommendRequest struct {
	Skills string `json:"skills"`
	TopN   int    `json:"top_n"`
}

// RecommendResponse 岗位推荐响应
type RecommendResponse struct {
	Recommendations []recommend.JobRecommendation `json:"recommendations"`
	Count           int                           `json:"count"`
}

// QualityRequest 简历质量评估请求
type QualityRequest struct {
	ResumeText string `json:"resume_text"`
}

// InsightsRequest 技能洞察请求
type InsightsRequest struct {
	Skills string `json:"skills"`
}

// ModelInfoResponse 模型元信息响应
type ModelInfoResponse struct {
	Available bool               `json:"available"`
	Metadata  *artifact.Metadata `json:"metadata,omitempty"`
}

// HandleRecommend 返回与技能最匹配的岗位列表
func (h *ModelHandler) HandleRecommend(req *RecommendRequest) (*RecommendResponse, error) {
	if strings.TrimSpace(req.Skills) == "" {
		return nil, fmt.Errorf("skills不能为空")
	}

	topN := req.TopN
	if topN <= 0 {
		topN = h.cfg.Model.TopN
	}

	recs := h.svc.GetJobRecommendations(req.Skills, topN)
	return &RecommendResponse{
		Recommendations: recs,
		Count:           len(recs),
	}, nil
}

// HandleQuality 评估简历文本质量。
// 推理层永不报错，模型缺失或文本为空时返回Unknown结果。
func (h *ModelHandler) HandleQuality(req *QualityRequest) recommend.QualityResult {
	return h.svc.AnalyzeResumeQuality(req.ResumeText)
}

// HandleInsights 返回技能文本中权重最高的词项
func (h *ModelHandler) HandleInsights(req *InsightsRequest) (recommend.SkillInsights, error) {
	if strings.TrimSpace(req.Skills) == "" {
		return recommend.SkillInsights{}, fmt.Errorf("skills不能为空")
	}
	return h.svc.GetSkillInsights(req.Skills), nil
}

// HandleModelInfo 返回当前模型元信息。
// 本地模型未加载时回退到Redis里缓存的元数据，此时Available为false，
// 调用方可据此区分"本实例可服务"与"仅有其他实例的训练记录"。
func (h *ModelHandler) HandleModelInfo(ctx context.Context) *ModelInfoResponse {
	meta, err := h.svc.ModelInfo()
	if err == nil {
		return &ModelInfoResponse{Available: true, Metadata: &meta}
	}

	if h.storage != nil && h.storage.Redis != nil {
		if data, cacheErr := h.storage.Redis.GetModelMeta(ctx); cacheErr == nil {
			var cached artifact.Metadata
			if json.Unmarshal(data, &cached) == nil {
				return &ModelInfoResponse{Available: false, Metadata: &cached}
			}
		}
	}
	return &ModelInfoResponse{Available: false}
}

// HandleReload 热加载最新的模型文件
func (h *ModelHandler) HandleReload(ctx context.Context) error {
	if err := h.svc.Reload(); err != nil {
		return err
	}
	h.CacheModelMeta(ctx)
	logger.Info().Str("artifact_path", h.cfg.Model.ArtifactPath).Msg("模型热加载完成")
	return nil
}

// CacheModelMeta 把当前模型元数据写入Redis缓存，失败只告警
func (h *ModelHandler) CacheModelMeta(ctx context.Context) {
	if h.storage == nil || h.storage.Redis == nil {
		return
	}
	meta, err := h.svc.ModelInfo()
	if err != nil {
		return
	}
	data, err := json.Marshal(&meta)
	if err != nil {
		return
	}
	if err := h.storage.Redis.SetModelMeta(ctx, data); err != nil {
		logger.Warn().Err(err).Msg("缓存模型元数据失败")
	}
}

package handler

import (
	"context"
	"path/filepath"
	"testing"

	"ai-interview-go/internal/config"
	"ai-interview-go/internal/recommend"
	"ai-interview-go/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDegradedModelHandler(t *testing.T) *ModelHandler {
	t.Helper()
	svc := recommend.NewService(filepath.Join(t.TempDir(), "missing_model.gob"))
	return NewModelHandler(&config.Config{Model: config.ModelConfig{TopN: 5}}, svc, &storage.Storage{})
}

// 模型文件缺失且Redis无缓存时返回不可用而不是报错
func TestHandleModelInfoDegraded(t *testing.T) {
	h := newDegradedModelHandler(t)

	resp := h.HandleModelInfo(context.Background())
	require.NotNil(t, resp)
	assert.False(t, resp.Available)
	assert.Nil(t, resp.Metadata)
}

func TestHandleRecommendEmptySkills(t *testing.T) {
	h := newDegradedModelHandler(t)

	_, err := h.HandleRecommend(&RecommendRequest{Skills: "   "})
	assert.Error(t, err)
}

func TestHandleQualityNeverErrors(t *testing.T) {
	h := newDegradedModelHandler(t)

	result := h.HandleQuality(&QualityRequest{ResumeText: "python sql dashboards"})
	assert.Equal(t, recommend.UnknownCategory, result.MatchCategory)
}

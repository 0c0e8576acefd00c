package handler

import (
	"context"
	"testing"

	"ai-interview-go/internal/interview"
	"ai-interview-go/internal/storage"

	"github.com/stretchr/testify/assert"
)

// Redis不可用时会话快照按不存在处理，不触碰空指针
func TestHandleGetSessionWithoutRedis(t *testing.T) {
	h := NewInterviewHandler(nil, &storage.Storage{})

	_, err := h.HandleGetSession(context.Background(), "some-session")
	assert.ErrorIs(t, err, interview.ErrSessionNotFound)
}

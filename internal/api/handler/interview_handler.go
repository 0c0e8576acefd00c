package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-interview-go/internal/constants"
	"ai-interview-go/internal/interview"
	"ai-interview-go/internal/parser"
	"ai-interview-go/internal/storage"
	"ai-interview-go/internal/storage/models"
)

// InterviewHandler 模拟面试处理器
type InterviewHandler struct {
	svc     *interview.Service
	storage *storage.Storage
}

// NewInterviewHandler 创建面试处理器
func NewInterviewHandler(svc *interview.Service, storage *storage.Storage) *InterviewHandler {
	return &InterviewHandler{svc: svc, storage: storage}
}

// StartInterviewRequest 开启面试请求
type StartInterviewRequest struct {
	SubmissionUUID string `json:"submission_uuid"`
	JobTitle       string `json:"job_title"`
}

// StartInterviewResponse 开启面试响应
type StartInterviewResponse struct {
	SessionID     string `json:"session_id"`
	FirstQuestion string `json:"first_question"`
}

// AnswerRequest 候选人回答请求
type AnswerRequest struct {
	Answer string `json:"answer"`
}

// AnswerResponse 面试官回复
type AnswerResponse struct {
	Reply    string `json:"reply"`
	Finished bool   `json:"finished"`
}

// HandleStart 基于已解析的简历提交开启模拟面试
func (h *InterviewHandler) HandleStart(ctx context.Context, req *StartInterviewRequest) (*StartInterviewResponse, error) {
	if req.SubmissionUUID == "" {
		return nil, fmt.Errorf("submission_uuid不能为空")
	}

	sub, err := h.storage.MySQL.GetResumeSubmission(ctx, req.SubmissionUUID)
	if err != nil {
		return nil, fmt.Errorf("查询提交 %s 失败: %w", req.SubmissionUUID, err)
	}
	if len(sub.LLMParsedProfile) == 0 {
		return nil, fmt.Errorf("提交 %s 尚未完成解析，当前状态 %s", req.SubmissionUUID, sub.ProcessingStatus)
	}

	var profile parser.ResumeProfile
	if err := json.Unmarshal(sub.LLMParsedProfile, &profile); err != nil {
		return nil, fmt.Errorf("解析简历档案失败: %w", err)
	}

	jobTitle := req.JobTitle
	if jobTitle == "" {
		jobTitle = "General Technical Role"
	}

	sessionID, firstQuestion, err := h.svc.StartInterview(ctx, &profile, jobTitle, &sub.SubmissionUUID)
	if err != nil {
		return nil, err
	}

	// 会话元信息写入Redis便于快速查询，失败不影响主流程
	if h.storage.Redis != nil {
		meta, err := models.MapToJSON(map[string]interface{}{
			"submission_uuid": sub.SubmissionUUID,
			"job_title":       jobTitle,
			"status":          constants.InterviewStatusActive,
		})
		if err == nil {
			_ = h.storage.Redis.SetSessionMeta(ctx, sessionID, meta, h.svc.SessionTTL())
		}
	}

	return &StartInterviewResponse{
		SessionID:     sessionID,
		FirstQuestion: firstQuestion,
	}, nil
}

// HandleAnswer 提交候选人回答
func (h *InterviewHandler) HandleAnswer(ctx context.Context, sessionID string, req *AnswerRequest) (*AnswerResponse, error) {
	if req.Answer == "" {
		return nil, fmt.Errorf("answer不能为空")
	}

	reply, finished, err := h.svc.SubmitAnswer(ctx, sessionID, req.Answer)
	if err != nil {
		return nil, err
	}
	if finished && h.storage.Redis != nil {
		_ = h.storage.Redis.DeleteSessionMeta(ctx, sessionID)
	}
	return &AnswerResponse{Reply: reply, Finished: finished}, nil
}

// HandleFinish 主动结束面试并返回评价
func (h *InterviewHandler) HandleFinish(ctx context.Context, sessionID string) (*interview.Evaluation, error) {
	evaluation, err := h.svc.FinishInterview(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if h.storage.Redis != nil {
		_ = h.storage.Redis.DeleteSessionMeta(ctx, sessionID)
	}
	return evaluation, nil
}

// HandleGetEvaluation 查询已结束会话的评价
func (h *InterviewHandler) HandleGetEvaluation(ctx context.Context, sessionID string) (*interview.Evaluation, error) {
	return h.svc.GetEvaluation(ctx, sessionID)
}

// HandleGetSession 查询进行中会话的元信息快照。
// 元信息只在会话进行期间缓存，结束或过期后按不存在处理。
func (h *InterviewHandler) HandleGetSession(ctx context.Context, sessionID string) (map[string]string, error) {
	if h.storage.Redis == nil {
		return nil, interview.ErrSessionNotFound
	}

	data, err := h.storage.Redis.GetSessionMeta(ctx, sessionID)
	if err != nil {
		return nil, interview.ErrSessionNotFound
	}

	var meta map[string]string
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("解析会话元信息失败: %w", err)
	}
	return meta, nil
}

// HistoryMessage 对外暴露的单条对话记录
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HandleGetHistory 查询会话对话历史
func (h *InterviewHandler) HandleGetHistory(ctx context.Context, sessionID string) ([]HistoryMessage, error) {
	history, err := h.svc.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages := make([]HistoryMessage, 0, len(history))
	for _, msg := range history {
		messages = append(messages, HistoryMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return messages, nil
}

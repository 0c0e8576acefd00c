package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-interview-go/internal/config"
	"ai-interview-go/internal/constants"
	"ai-interview-go/internal/logger"
	"ai-interview-go/internal/parser"
	"ai-interview-go/internal/storage/models"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// 定义基础错误类型
var (
	ErrSessionNotFound = errors.New("面试会话不存在")
	ErrSessionFinished = errors.New("面试会话已结束")
)

// SessionStore 面试会话的持久化接口，由MySQL存储实现
type SessionStore interface {
	CreateInterviewSession(ctx context.Context, session *models.InterviewSession) error
	GetInterviewSession(ctx context.Context, sessionID string) (*models.InterviewSession, error)
	UpdateInterviewTurnCount(ctx context.Context, sessionID string, turnCount int) error
	CompleteInterviewSession(ctx context.Context, sessionID, status string, evaluation datatypes.JSON) error
}

// Evaluation 面试结束后的综合评价
type Evaluation struct {
	OverallScore   int      `json:"overall_score"`
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	Recommendation string   `json:"recommendation"`
	Summary        string   `json:"summary"`
}

const interviewerPromptTemplate = `You are a professional technical interviewer conducting a text-based mock interview.

Candidate profile:
- Name: %s
- Target position: %s
- Skills: %s
- Experience: %s

Interview rules:
1. Ask exactly one question per turn, based on the candidate's profile and previous answers.
2. Ask about %d questions in total, going from general background to specific technical depth.
3. Keep each question concise. Do not answer for the candidate.
4. Stay in the interviewer role for the whole conversation.

Begin by greeting the candidate briefly and asking the first question.`

const evaluationPrompt = `The interview is over. Based on the full conversation above, evaluate the candidate.

RETURN ONLY A VALID JSON OBJECT. NO MARKDOWN, NO CODE BLOCKS, NO EXTRA TEXT.

The JSON structure must be exactly as follows:
{
    "overall_score": 75,
    "strengths": ["string"],
    "weaknesses": ["string"],
    "recommendation": "string",
    "summary": "string"
}

RULES:
- overall_score is an integer from 0 to 100.
- Include 2-4 strengths and 2-4 weaknesses.
- recommendation is one of: "Strong Hire", "Hire", "No Hire".
- Base the evaluation only on what the candidate actually said.`

// Service 面试服务，驱动提问、追问与最终评价
type Service struct {
	chatModel model.ChatModel
	memory    ChatMemory
	store     SessionStore
	cfg       config.InterviewConfig
}

// NewService 创建面试服务
func NewService(chatModel model.ChatModel, memory ChatMemory, store SessionStore, cfg config.InterviewConfig) *Service {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 20
	}
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = 5
	}
	return &Service{
		chatModel: chatModel,
		memory:    memory,
		store:     store,
		cfg:       cfg,
	}
}

// SessionTTL 返回会话元信息的过期时间
func (s *Service) SessionTTL() time.Duration {
	if s.cfg.SessionTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.cfg.SessionTTLHours) * time.Hour
}

// StartInterview 基于简历档案开启面试会话，返回会话ID与第一个问题。
// submissionUUID关联触发本场面试的简历提交，可为nil。
func (s *Service) StartInterview(ctx context.Context, profile *parser.ResumeProfile, jobTitle string, submissionUUID *string) (string, string, error) {
	if profile == nil {
		return "", "", fmt.Errorf("简历档案不能为空")
	}

	sessionID := uuid.NewString()

	name := profile.FullName()
	if name == "" {
		name = "Candidate"
	}
	systemPrompt := fmt.Sprintf(interviewerPromptTemplate,
		name, jobTitle, profile.SkillsText(), profile.ExperienceText(), s.cfg.QuestionCount)

	systemMsg := schema.SystemMessage(systemPrompt)
	reply, err := s.chatModel.Generate(ctx, []*schema.Message{systemMsg})
	if err != nil {
		return "", "", fmt.Errorf("生成面试开场失败: %w", err)
	}

	session := &models.InterviewSession{
		SessionID:      sessionID,
		SubmissionUUID: submissionUUID,
		CandidateName:  name,
		JobTitle:       jobTitle,
		Status:         constants.InterviewStatusActive,
		TurnCount:      0,
		StartedAt:      time.Now(),
	}
	if err := s.store.CreateInterviewSession(ctx, session); err != nil {
		return "", "", fmt.Errorf("创建面试会话失败: %w", err)
	}

	if err := s.memory.AddMessages(ctx, sessionID, []*schema.Message{systemMsg, reply}); err != nil {
		return "", "", fmt.Errorf("写入会话历史失败: %w", err)
	}

	logger.Info().
		Str("session_id", sessionID).
		Str("candidate", name).
		Str("job_title", jobTitle).
		Msg("面试会话已开启")
	return sessionID, reply.Content, nil
}

// SubmitAnswer 提交候选人回答，返回面试官的下一个问题。
// 达到最大轮数时自动结束面试并返回最终评价文本。
func (s *Service) SubmitAnswer(ctx context.Context, sessionID, answer string) (string, bool, error) {
	session, err := s.loadActiveSession(ctx, sessionID)
	if err != nil {
		return "", false, err
	}

	history, err := s.memory.GetHistory(ctx, sessionID)
	if err != nil {
		return "", false, fmt.Errorf("读取会话历史失败: %w", err)
	}
	if len(history) == 0 {
		return "", false, ErrSessionNotFound
	}

	userMsg := schema.UserMessage(answer)
	turnCount := session.TurnCount + 1

	// 轮数用尽，直接收尾
	if turnCount >= s.cfg.MaxTurns {
		if err := s.memory.AddMessages(ctx, sessionID, []*schema.Message{userMsg}); err != nil {
			return "", false, fmt.Errorf("写入会话历史失败: %w", err)
		}
		evaluation, err := s.finish(ctx, sessionID)
		if err != nil {
			return "", false, err
		}
		return evaluation.Summary, true, nil
	}

	reply, err := s.chatModel.Generate(ctx, append(history, userMsg))
	if err != nil {
		return "", false, fmt.Errorf("生成面试问题失败: %w", err)
	}

	if err := s.memory.AddMessages(ctx, sessionID, []*schema.Message{userMsg, reply}); err != nil {
		return "", false, fmt.Errorf("写入会话历史失败: %w", err)
	}
	if err := s.store.UpdateInterviewTurnCount(ctx, sessionID, turnCount); err != nil {
		return "", false, fmt.Errorf("更新会话轮数失败: %w", err)
	}

	return reply.Content, false, nil
}

// FinishInterview 主动结束面试并返回评价
func (s *Service) FinishInterview(ctx context.Context, sessionID string) (*Evaluation, error) {
	if _, err := s.loadActiveSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.finish(ctx, sessionID)
}

// History 返回会话的对话历史，system提示不对外暴露
func (s *Service) History(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	if _, err := s.store.GetInterviewSession(ctx, sessionID); err != nil {
		return nil, ErrSessionNotFound
	}

	history, err := s.memory.GetHistory(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("读取会话历史失败: %w", err)
	}

	visible := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		if msg.Role == schema.System {
			continue
		}
		visible = append(visible, msg)
	}
	return visible, nil
}

// GetEvaluation 查询已结束会话的评价
func (s *Service) GetEvaluation(ctx context.Context, sessionID string) (*Evaluation, error) {
	session, err := s.store.GetInterviewSession(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if len(session.EvaluationJSON) == 0 {
		return nil, fmt.Errorf("会话 %s 尚无评价", sessionID)
	}

	var evaluation Evaluation
	if err := json.Unmarshal(session.EvaluationJSON, &evaluation); err != nil {
		return nil, fmt.Errorf("解析会话评价失败: %w", err)
	}
	return &evaluation, nil
}

// loadActiveSession 加载并校验处于进行中状态的会话
func (s *Service) loadActiveSession(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	session, err := s.store.GetInterviewSession(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if session.Status != constants.InterviewStatusActive {
		return nil, ErrSessionFinished
	}
	return session, nil
}

// finish 生成最终评价并落库
func (s *Service) finish(ctx context.Context, sessionID string) (*Evaluation, error) {
	history, err := s.memory.GetHistory(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("读取会话历史失败: %w", err)
	}

	messages := append(history, schema.UserMessage(evaluationPrompt))
	reply, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("生成面试评价失败: %w", err)
	}

	var evaluation Evaluation
	jsonText := parser.StripJSONFences(reply.Content)
	if err := json.Unmarshal([]byte(jsonText), &evaluation); err != nil {
		// 模型输出不可解析时保底落一份摘要
		logger.Warn().Err(err).Str("session_id", sessionID).
			Msg("面试评价JSON解析失败，仅保留摘要文本")
		evaluation = Evaluation{Summary: strings.TrimSpace(reply.Content)}
	}

	evalJSON, err := json.Marshal(&evaluation)
	if err != nil {
		return nil, fmt.Errorf("序列化面试评价失败: %w", err)
	}
	if err := s.store.CompleteInterviewSession(ctx, sessionID, constants.InterviewStatusFinished, evalJSON); err != nil {
		return nil, fmt.Errorf("保存面试评价失败: %w", err)
	}

	// 评价已落库，对话历史可以清掉
	if err := s.memory.ClearHistory(ctx, sessionID); err != nil {
		logger.Warn().Err(err).Str("session_id", sessionID).Msg("清除会话历史失败")
	}

	logger.Info().
		Str("session_id", sessionID).
		Int("overall_score", evaluation.OverallScore).
		Msg("面试会话已结束")
	return &evaluation, nil
}

// Package processor 消费简历上传消息，驱动OCR、结构化解析与质量评估的异步管道。
// 状态沿 PENDING_OCR -> OCR_COMPLETED -> PENDING_PARSING -> PARSING_COMPLETED -> QUALITY_ASSESSED 推进，
// 任一阶段失败则落 PROCESSING_FAILED 并回滚MD5去重记录。
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"ai-interview-go/internal/config"
	"ai-interview-go/internal/constants"
	"ai-interview-go/internal/logger"
	"ai-interview-go/internal/parser"
	"ai-interview-go/internal/recommend"
	"ai-interview-go/internal/storage"
	"ai-interview-go/internal/storage/models"
	"ai-interview-go/internal/tracing"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
)

// ObjectStore 处理管道需要的对象存储能力
type ObjectStore interface {
	GetResumeFile(ctx context.Context, objectName string) ([]byte, error)
	UploadParsedText(ctx context.Context, submissionUUID, text string) (string, error)
}

// SubmissionStore 处理管道需要的数据库能力
type SubmissionStore interface {
	GetResumeSubmission(ctx context.Context, submissionUUID string) (*models.ResumeSubmission, error)
	UpdateSubmissionStatus(ctx context.Context, submissionUUID, status string) error
	MarkSubmissionFailed(ctx context.Context, submissionUUID, status, errMsg string) error
	SaveParsedProfile(ctx context.Context, submissionUUID string, profile datatypes.JSON, parsedTextPath, status string) error
	SaveQualityAssessment(ctx context.Context, submissionUUID, category string, score float64, detail datatypes.JSON, status string) error
	UpsertCandidate(ctx context.Context, candidate *models.Candidate) error
	GetCandidateByEmail(ctx context.Context, email string) (*models.Candidate, error)
	LinkSubmissionCandidate(ctx context.Context, submissionUUID, candidateID string) error
	ReplaceCandidateDetails(ctx context.Context, candidateID string, educations []models.CandidateEducation, skills []models.CandidateSkill) error
}

// DedupStore MD5去重记录的回滚能力
type DedupStore interface {
	RemoveFileMD5(ctx context.Context, fileMD5 string) error
}

// TextExtractor OCR文本提取能力
type TextExtractor interface {
	ExtractText(ctx context.Context, fileData []byte, mimeType string) (string, error)
}

// ProfileParser 简历结构化解析能力
type ProfileParser interface {
	Parse(ctx context.Context, extractedText string) (*parser.ResumeProfile, error)
}

// QualityAnalyzer 简历质量评估能力
type QualityAnalyzer interface {
	AnalyzeResumeQuality(resumeText string) recommend.QualityResult
}

// Processor 简历处理管道
type Processor struct {
	objects   ObjectStore
	db        SubmissionStore
	dedup     DedupStore
	extractor TextExtractor
	parser    ProfileParser
	quality   QualityAnalyzer
	mqCfg     config.RabbitMQConfig
}

// NewProcessor 创建简历处理管道
func NewProcessor(
	objects ObjectStore,
	db SubmissionStore,
	dedup DedupStore,
	extractor TextExtractor,
	profileParser ProfileParser,
	quality QualityAnalyzer,
	mqCfg config.RabbitMQConfig,
) *Processor {
	return &Processor{
		objects:   objects,
		db:        db,
		dedup:     dedup,
		extractor: extractor,
		parser:    profileParser,
		quality:   quality,
		mqCfg:     mqCfg,
	}
}

// Start 声明消息拓扑并启动上传消费者，返回停止信号通道
func (p *Processor) Start(mq storage.MessageQueue) (chan<- struct{}, error) {
	if err := mq.EnsureExchange(p.mqCfg.ResumeEventsExchange, "direct", true); err != nil {
		return nil, fmt.Errorf("声明简历事件交换机失败: %w", err)
	}
	if err := mq.EnsureQueue(p.mqCfg.RawResumeQueue, true); err != nil {
		return nil, fmt.Errorf("声明原始简历队列失败: %w", err)
	}
	if err := mq.BindQueue(p.mqCfg.RawResumeQueue, p.mqCfg.ResumeEventsExchange, p.mqCfg.UploadedRoutingKey); err != nil {
		return nil, fmt.Errorf("绑定原始简历队列失败: %w", err)
	}

	prefetch := p.mqCfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = 5
	}
	workers := p.mqCfg.ConsumerWorkers
	if workers <= 0 {
		workers = 1
	}
	return mq.StartConsumer(p.mqCfg.RawResumeQueue, prefetch, workers, p.HandleDelivery)
}

// HandleDelivery 消费一条上传消息。
// 返回true表示ack。业务失败已落库并回滚去重记录，
// 同样ack以免毒消息反复重投。
func (p *Processor) HandleDelivery(body []byte) bool {
	ctx := context.Background()

	var msg storage.ResumeUploadMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		logger.Error().Err(err).Msg("上传消息反序列化失败，丢弃")
		return true
	}
	if msg.SubmissionUUID == "" {
		logger.Error().Err(ErrInvalidUploadMessage).Msg("上传消息缺少提交UUID，丢弃")
		return true
	}

	if err := p.Process(ctx, &msg); err != nil {
		logger.Error().Err(err).
			Str("submission_uuid", msg.SubmissionUUID).
			Msg("简历处理失败")
		p.rollback(ctx, &msg, err)
	}
	return true
}

// Process 执行完整处理管道
func (p *Processor) Process(ctx context.Context, msg *storage.ResumeUploadMessage) error {
	tracer := otel.Tracer("resume-processor")
	ctx, span := tracer.Start(ctx, "resume.process")
	defer span.End()
	span.SetAttributes(
		attribute.String("resume.submission_uuid", msg.SubmissionUUID),
		attribute.String("resume.original_filename", msg.OriginalFilename),
	)

	if _, err := p.db.GetResumeSubmission(ctx, msg.SubmissionUUID); err != nil {
		wrapped := newProcessError(msg.SubmissionUUID, "lookup", ErrSubmissionNotFound, err.Error())
		tracing.RecordProcessingFailure(span, wrapped, tracing.ErrorTypeDB, msg.SubmissionUUID, "lookup")
		return wrapped
	}

	// 阶段一: 下载原始文件并OCR提取文本
	fileData, err := p.objects.GetResumeFile(ctx, msg.OriginalFilePathOSS)
	if err != nil {
		wrapped := newProcessError(msg.SubmissionUUID, "download", ErrResumeDownloadFailed, err.Error())
		tracing.RecordProcessingFailure(span, wrapped, tracing.ErrorTypeStorage, msg.SubmissionUUID, "download")
		return wrapped
	}

	extractedText, err := p.extractor.ExtractText(ctx, fileData, mimeTypeForFilename(msg.OriginalFilename))
	if err != nil {
		wrapped := newProcessError(msg.SubmissionUUID, "ocr", ErrOCRExtractFailed, err.Error())
		tracing.RecordProcessingFailure(span, wrapped, tracing.ErrorTypeOCR, msg.SubmissionUUID, "ocr")
		return wrapped
	}
	if err := p.db.UpdateSubmissionStatus(ctx, msg.SubmissionUUID, constants.StatusOCRCompleted); err != nil {
		return newProcessError(msg.SubmissionUUID, "ocr", ErrDatabaseFailed, err.Error())
	}

	parsedTextPath, err := p.objects.UploadParsedText(ctx, msg.SubmissionUUID, extractedText)
	if err != nil {
		wrapped := newProcessError(msg.SubmissionUUID, "store_text", ErrStoreTextFailed, err.Error())
		tracing.RecordProcessingFailure(span, wrapped, tracing.ErrorTypeStorage, msg.SubmissionUUID, "store_text")
		return wrapped
	}
	if err := p.db.UpdateSubmissionStatus(ctx, msg.SubmissionUUID, constants.StatusPendingParsing); err != nil {
		return newProcessError(msg.SubmissionUUID, "store_text", ErrDatabaseFailed, err.Error())
	}

	// 阶段二: LLM结构化解析与候选人落库
	profile, err := p.parser.Parse(ctx, extractedText)
	if err != nil {
		wrapped := newProcessError(msg.SubmissionUUID, "parse", ErrProfileParseFailed, err.Error())
		tracing.RecordProcessingFailure(span, wrapped, tracing.ErrorTypeLLM, msg.SubmissionUUID, "parse")
		return wrapped
	}

	if err := p.linkCandidate(ctx, msg.SubmissionUUID, profile); err != nil {
		return err
	}

	profileJSON, err := models.StructToJSON(profile)
	if err != nil {
		return newProcessError(msg.SubmissionUUID, "parse", ErrProfileParseFailed, err.Error())
	}
	if err := p.db.SaveParsedProfile(ctx, msg.SubmissionUUID, profileJSON, parsedTextPath, constants.StatusParsingCompleted); err != nil {
		return newProcessError(msg.SubmissionUUID, "parse", ErrDatabaseFailed, err.Error())
	}

	// 阶段三: 本地模型质量评估。模型未就绪时结果为Unknown，不阻断管道。
	result := p.quality.AnalyzeResumeQuality(extractedText)
	detailJSON, err := models.StructToJSON(&result)
	if err != nil {
		return newProcessError(msg.SubmissionUUID, "quality", ErrQualityAssessFailed, err.Error())
	}
	if err := p.db.SaveQualityAssessment(ctx, msg.SubmissionUUID, result.MatchCategory, result.Score, detailJSON, constants.StatusQualityAssessed); err != nil {
		return newProcessError(msg.SubmissionUUID, "quality", ErrDatabaseFailed, err.Error())
	}

	logger.Info().
		Str("submission_uuid", msg.SubmissionUUID).
		Str("quality_category", result.MatchCategory).
		Float64("quality_score", result.Score).
		Msg("简历处理完成")
	return nil
}

// linkCandidate 按邮箱幂等落候选人并关联到本次提交。
// 简历没有邮箱时跳过，提交保持未关联状态。
func (p *Processor) linkCandidate(ctx context.Context, submissionUUID string, profile *parser.ResumeProfile) error {
	email := strings.TrimSpace(profile.PersonalInfo.Email)
	if email == "" {
		logger.Debug().Str("submission_uuid", submissionUUID).Msg("简历无邮箱，跳过候选人关联")
		return nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return newProcessError(submissionUUID, "candidate", ErrDatabaseFailed, err.Error())
	}
	candidate := &models.Candidate{
		CandidateID:     id.String(),
		Name:            profile.FullName(),
		Email:           email,
		Phone:           profile.PersonalInfo.Phone,
		Location:        profile.PersonalInfo.Location,
		CareerObjective: profile.CareerObjective,
	}
	if err := p.db.UpsertCandidate(ctx, candidate); err != nil {
		return newProcessError(submissionUUID, "candidate", ErrDatabaseFailed, err.Error())
	}

	stored, err := p.db.GetCandidateByEmail(ctx, email)
	if err != nil {
		return newProcessError(submissionUUID, "candidate", ErrDatabaseFailed, err.Error())
	}
	if err := p.db.LinkSubmissionCandidate(ctx, submissionUUID, stored.CandidateID); err != nil {
		return newProcessError(submissionUUID, "candidate", ErrDatabaseFailed, err.Error())
	}

	educations := make([]models.CandidateEducation, 0, len(profile.Education))
	for _, e := range profile.Education {
		educations = append(educations, models.CandidateEducation{
			CandidateID: stored.CandidateID,
			Degree:      e.Degree,
			Institution: e.Institution,
			Major:       e.Major,
			StartDate:   e.StartDate,
			EndDate:     e.EndDate,
		})
	}
	skills := make([]models.CandidateSkill, 0, len(profile.Skills))
	for _, s := range profile.Skills {
		skills = append(skills, models.CandidateSkill{
			CandidateID: stored.CandidateID,
			Name:        s.Name,
			Category:    s.Category,
		})
	}
	if err := p.db.ReplaceCandidateDetails(ctx, stored.CandidateID, educations, skills); err != nil {
		return newProcessError(submissionUUID, "candidate", ErrDatabaseFailed, err.Error())
	}
	return nil
}

// rollback 失败时落失败状态并释放MD5去重记录，允许同一文件重新上传
func (p *Processor) rollback(ctx context.Context, msg *storage.ResumeUploadMessage, cause error) {
	if err := p.db.MarkSubmissionFailed(ctx, msg.SubmissionUUID, constants.StatusProcessingFailed, cause.Error()); err != nil {
		logger.Error().Err(err).
			Str("submission_uuid", msg.SubmissionUUID).
			Msg("标记提交失败状态时出错")
	}
	if msg.RawFileMD5 != "" {
		if err := p.dedup.RemoveFileMD5(ctx, msg.RawFileMD5); err != nil {
			logger.Error().Err(err).
				Str("submission_uuid", msg.SubmissionUUID).
				Msg("回滚MD5去重记录失败")
		}
	}
}

// mimeTypeForFilename 根据扩展名推断OCR上传用的MIME类型
func mimeTypeForFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

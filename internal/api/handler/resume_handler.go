// Package handler 实现API层的业务处理器。
// 处理器不感知HTTP框架，路由层负责参数绑定与响应编码。
package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"ai-interview-go/internal/config"
	"ai-interview-go/internal/constants"
	"ai-interview-go/internal/logger"
	"ai-interview-go/internal/storage"
	"ai-interview-go/internal/storage/models"

	"github.com/gofrs/uuid/v5"
)

// 上传响应状态
const (
	UploadStatusSubmitted = "SUBMITTED_FOR_PROCESSING"
	UploadStatusDuplicate = "DUPLICATE_FILE_SKIPPED"
)

// ErrStorageUnavailable 存储组件未就绪。
// 服务允许在部分依赖缺失时降级启动，依赖这些组件的接口必须拒绝而不是崩溃。
var ErrStorageUnavailable = errors.New("存储组件不可用，请稍后重试")

// ResumeHandler 简历上传与状态查询处理器
type ResumeHandler struct {
	cfg     *config.Config
	storage *storage.Storage
}

// NewResumeHandler 创建简历处理器
func NewResumeHandler(cfg *config.Config, storage *storage.Storage) *ResumeHandler {
	return &ResumeHandler{cfg: cfg, storage: storage}
}

// ResumeUploadResponse 简历上传响应
type ResumeUploadResponse struct {
	SubmissionUUID string `json:"submission_uuid"`
	Status         string `json:"status"`
}

// SubmissionStatusResponse 简历处理状态查询响应
type SubmissionStatusResponse struct {
	SubmissionUUID   string    `json:"submission_uuid"`
	ProcessingStatus string    `json:"processing_status"`
	OriginalFilename string    `json:"original_filename"`
	QualityCategory  string    `json:"quality_category,omitempty"`
	QualityScore     *float64  `json:"quality_score,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// HandleResumeUpload 处理简历上传。
// 文件流式上传到MinIO并顺带计算MD5，再用Redis SetNX做内容去重，
// 重复文件删除刚上传的对象并返回已有提交的UUID。
func (h *ResumeHandler) HandleResumeUpload(ctx context.Context, reader io.Reader, fileSize int64,
	filename, sourceChannel string) (*ResumeUploadResponse, error) {

	if fileSize <= 0 {
		return nil, fmt.Errorf("上传文件为空")
	}
	if fileSize > constants.MaxResumeFileSizeBytes {
		return nil, fmt.Errorf("文件大小 %d 超过上限 %d 字节", fileSize, constants.MaxResumeFileSizeBytes)
	}
	if sourceChannel == "" {
		sourceChannel = "web_upload"
	}
	// 上传管道需要全部四个存储组件
	if h.storage.MinIO == nil || h.storage.Redis == nil ||
		h.storage.MySQL == nil || h.storage.RabbitMQ == nil {
		return nil, ErrStorageUnavailable
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成提交UUID失败: %w", err)
	}
	submissionUUID := uuidV7.String()

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".pdf"
	}

	// 文件只读一次进内存，MD5由MinIO流式上传顺带计算
	fileBytes, err := io.ReadAll(io.LimitReader(reader, constants.MaxResumeFileSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("读取上传文件内容失败: %w", err)
	}
	if int64(len(fileBytes)) > constants.MaxResumeFileSizeBytes {
		return nil, fmt.Errorf("文件大小超过上限 %d 字节", constants.MaxResumeFileSizeBytes)
	}

	objectKey, fileMD5, err := h.storage.MinIO.UploadResumeFile(ctx, submissionUUID, ext, bytes.NewReader(fileBytes), int64(len(fileBytes)))
	if err != nil {
		return nil, fmt.Errorf("上传简历到MinIO失败: %w", err)
	}

	existingUUID, exists, err := h.storage.Redis.CheckAndSetFileMD5(ctx, fileMD5, submissionUUID)
	if err != nil {
		return nil, fmt.Errorf("检查文件MD5重复性失败: %w", err)
	}
	if exists {
		// 内容重复，清掉刚上传的对象
		if err := h.storage.MinIO.DeleteResumeFile(ctx, objectKey); err != nil {
			logger.Warn().Err(err).Str("object_key", objectKey).Msg("删除重复上传的对象失败")
		}
		logger.Info().
			Str("md5", fileMD5).
			Str("existing_uuid", existingUUID).
			Str("filename", filename).
			Msg("检测到重复的简历文件，跳过处理")
		return &ResumeUploadResponse{
			SubmissionUUID: existingUUID,
			Status:         UploadStatusDuplicate,
		}, nil
	}

	now := time.Now()
	submission := &models.ResumeSubmission{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: now,
		SourceChannel:       sourceChannel,
		OriginalFilename:    filename,
		OriginalFilePathOSS: objectKey,
		RawFileMD5:          fileMD5,
		ProcessingStatus:    constants.StatusPendingOCR,
	}
	if err := h.storage.MySQL.CreateResumeSubmission(ctx, submission); err != nil {
		return nil, fmt.Errorf("创建简历提交记录失败: %w", err)
	}

	message := storage.ResumeUploadMessage{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: now,
		SourceChannel:       sourceChannel,
		OriginalFilename:    filename,
		OriginalFilePathOSS: objectKey,
		RawFileMD5:          fileMD5,
	}
	if err := h.storage.RabbitMQ.PublishJSON(
		ctx,
		h.cfg.RabbitMQ.ResumeEventsExchange,
		h.cfg.RabbitMQ.UploadedRoutingKey,
		message,
		true,
	); err != nil {
		return nil, fmt.Errorf("发布上传消息到RabbitMQ失败: %w", err)
	}

	logger.Info().
		Str("submission_uuid", submissionUUID).
		Str("filename", filename).
		Int64("size", fileSize).
		Msg("简历上传已受理")
	return &ResumeUploadResponse{
		SubmissionUUID: submissionUUID,
		Status:         UploadStatusSubmitted,
	}, nil
}

// HandleGetSubmissionStatus 查询简历处理状态
func (h *ResumeHandler) HandleGetSubmissionStatus(ctx context.Context, submissionUUID string) (*SubmissionStatusResponse, error) {
	if h.storage.MySQL == nil {
		return nil, ErrStorageUnavailable
	}
	sub, err := h.storage.MySQL.GetResumeSubmission(ctx, submissionUUID)
	if err != nil {
		return nil, fmt.Errorf("查询提交 %s 失败: %w", submissionUUID, err)
	}

	return &SubmissionStatusResponse{
		SubmissionUUID:   sub.SubmissionUUID,
		ProcessingStatus: sub.ProcessingStatus,
		OriginalFilename: sub.OriginalFilename,
		QualityCategory:  sub.QualityCategory,
		QualityScore:     sub.QualityScore,
		ErrorMessage:     sub.ErrorMessage,
		SubmittedAt:      sub.SubmissionTimestamp,
	}, nil
}

// HandleGetParsedText 返回OCR抽取出的纯文本，OCR尚未完成时报错
func (h *ResumeHandler) HandleGetParsedText(ctx context.Context, submissionUUID string) (string, error) {
	if h.storage.MySQL == nil || h.storage.MinIO == nil {
		return "", ErrStorageUnavailable
	}
	sub, err := h.storage.MySQL.GetResumeSubmission(ctx, submissionUUID)
	if err != nil {
		return "", fmt.Errorf("查询提交 %s 失败: %w", submissionUUID, err)
	}
	if sub.ParsedTextPathOSS == "" {
		return "", fmt.Errorf("提交 %s 尚未完成文本抽取，当前状态 %s", submissionUUID, sub.ProcessingStatus)
	}
	return h.storage.MinIO.GetParsedText(ctx, sub.ParsedTextPathOSS)
}

// HandleGetResumeDownloadURL 生成原始简历的临时下载链接
func (h *ResumeHandler) HandleGetResumeDownloadURL(ctx context.Context, submissionUUID string) (string, error) {
	if h.storage.MySQL == nil || h.storage.MinIO == nil {
		return "", ErrStorageUnavailable
	}
	sub, err := h.storage.MySQL.GetResumeSubmission(ctx, submissionUUID)
	if err != nil {
		return "", fmt.Errorf("查询提交 %s 失败: %w", submissionUUID, err)
	}
	return h.storage.MinIO.GetPresignedResumeURL(ctx, sub.OriginalFilePathOSS, 15*time.Minute)
}

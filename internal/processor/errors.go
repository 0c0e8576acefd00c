package processor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrResumeDownloadFailed = errors.New("下载简历失败")
	ErrOCRExtractFailed     = errors.New("OCR提取简历文本失败")
	ErrStoreTextFailed      = errors.New("上传解析文本失败")
	ErrProfileParseFailed   = errors.New("LLM解析简历档案失败")
	ErrQualityAssessFailed  = errors.New("简历质量评估失败")
	ErrDatabaseFailed       = errors.New("数据库操作失败")
	ErrInvalidUploadMessage = errors.New("上传消息格式非法")
	ErrSubmissionNotFound   = errors.New("简历提交记录不存在")
)

// ProcessError 携带提交UUID与处理阶段的管道错误
type ProcessError struct {
	SubmissionUUID string
	Stage          string
	BaseErr        error
	Detail         string
}

func (e *ProcessError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (阶段:%s, UUID:%s): %s", e.BaseErr, e.Stage, e.SubmissionUUID, e.Detail)
	}
	return fmt.Sprintf("%s (阶段:%s, UUID:%s)", e.BaseErr, e.Stage, e.SubmissionUUID)
}

func (e *ProcessError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ProcessError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

func newProcessError(uuid, stage string, base error, detail string) error {
	return &ProcessError{
		SubmissionUUID: uuid,
		Stage:          stage,
		BaseErr:        base,
		Detail:         detail,
	}
}

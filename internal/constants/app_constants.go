package constants

// 简历提交处理状态流转
const (
	StatusPendingOCR       = "PENDING_OCR"       // 已上传，等待OCR提取
	StatusOCRCompleted     = "OCR_COMPLETED"     // OCR提取完成
	StatusPendingParsing   = "PENDING_PARSING"   // 等待LLM结构化解析
	StatusParsingCompleted = "PARSING_COMPLETED" // 结构化解析完成
	StatusQualityAssessed  = "QUALITY_ASSESSED"  // 质量评估完成
	StatusProcessingFailed = "PROCESSING_FAILED" // 处理失败
)

// 面试会话状态
const (
	InterviewStatusActive   = "ACTIVE"
	InterviewStatusFinished = "FINISHED"
)

// 上传限制
const (
	MaxResumeFileSizeBytes = 10 << 20 // 上传简历文件大小上限
)

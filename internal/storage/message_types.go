package storage

import "time"

// ResumeUploadMessage 简历上传事件，由API层发布、处理管道消费
type ResumeUploadMessage struct {
	SubmissionUUID      string    `json:"submission_uuid"`
	SubmissionTimestamp time.Time `json:"submission_timestamp"`
	SourceChannel       string    `json:"source_channel,omitempty"`
	OriginalFilename    string    `json:"original_filename"`
	OriginalFilePathOSS string    `json:"original_file_path_oss"`
	// RawFileMD5 原始文件MD5，处理失败时用于回滚去重记录
	RawFileMD5 string `json:"raw_file_md5,omitempty"`
}

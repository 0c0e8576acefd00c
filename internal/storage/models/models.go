// Package models 定义MySQL持久化模型
package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Candidate 候选人主表
type Candidate struct {
	CandidateID     string    `gorm:"type:char(36);primaryKey"`
	Name            string    `gorm:"type:varchar(255)"`
	Email           string    `gorm:"type:varchar(255);uniqueIndex:idx_candidates_email_unique"`
	Phone           string    `gorm:"type:varchar(50)"`
	Location        string    `gorm:"type:varchar(255)"`
	CareerObjective string    `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt       time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// CandidateEducation 候选人教育经历，解析完成后由档案展开写入
type CandidateEducation struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	CandidateID string `gorm:"type:char(36);index:idx_ce_candidate_id"`
	Degree      string `gorm:"type:varchar(255)"`
	Institution string `gorm:"type:varchar(255)"`
	Major       string `gorm:"type:varchar(255)"`
	StartDate   string `gorm:"type:varchar(50)"`
	EndDate     string `gorm:"type:varchar(50)"`
}

func (CandidateEducation) TableName() string {
	return "candidate_educations"
}

// CandidateSkill 候选人技能条目
type CandidateSkill struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	CandidateID string `gorm:"type:char(36);index:idx_cs_candidate_id"`
	Name        string `gorm:"type:varchar(255)"`
	Category    string `gorm:"type:varchar(100)"`
}

func (CandidateSkill) TableName() string {
	return "candidate_skills"
}

// ResumeSubmission 简历提交/处理状态表。
// 一次上传对应一行，ProcessingStatus跟踪异步管道的推进。
type ResumeSubmission struct {
	SubmissionUUID      string         `gorm:"type:char(36);primaryKey"`
	CandidateID         *string        `gorm:"type:char(36);index:idx_rs_candidate_id"`
	SubmissionTimestamp time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_rs_submission_timestamp"`
	SourceChannel       string         `gorm:"type:varchar(100)"`
	OriginalFilename    string         `gorm:"type:varchar(255)"`
	OriginalFilePathOSS string         `gorm:"type:varchar(1024)"`
	ParsedTextPathOSS   string         `gorm:"type:varchar(1024)"`
	RawFileMD5          string         `gorm:"type:char(32);index:idx_rs_raw_file_md5"`
	LLMParsedProfile    datatypes.JSON `gorm:"type:json"`
	// 质量评估结果，由本地分类模型产出
	QualityCategory  string         `gorm:"type:varchar(20)"`
	QualityScore     *float64       `gorm:"type:float"`
	QualityDetail    datatypes.JSON `gorm:"type:json"`
	ProcessingStatus string         `gorm:"type:varchar(50);default:'PENDING_OCR';index:idx_rs_processing_status"`
	ErrorMessage     string         `gorm:"type:text"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (ResumeSubmission) TableName() string {
	return "resume_submissions"
}

// InterviewSession 面试会话表。
// 对话历史在Redis中，这里只落会话元数据与最终评价。
type InterviewSession struct {
	SessionID      string         `gorm:"type:char(36);primaryKey"`
	SubmissionUUID *string        `gorm:"type:char(36);index:idx_is_submission_uuid"`
	CandidateName  string         `gorm:"type:varchar(255)"`
	JobTitle       string         `gorm:"type:varchar(255)"`
	Status         string         `gorm:"type:varchar(50);default:'ACTIVE';index:idx_is_status"`
	TurnCount      int            `gorm:"default:0"`
	EvaluationJSON datatypes.JSON `gorm:"type:json"`
	StartedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	EndedAt        *time.Time     `gorm:"type:datetime(6)"`
	CreatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	ResumeSubmission *ResumeSubmission `gorm:"foreignKey:SubmissionUUID;references:SubmissionUUID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (InterviewSession) TableName() string {
	return "interview_sessions"
}

// MapToJSON 把map转换为datatypes.JSON
func MapToJSON(m map[string]interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

// StructToJSON 把任意可序列化结构转换为datatypes.JSON
func StructToJSON(v interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

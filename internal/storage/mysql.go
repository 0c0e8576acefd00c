package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-interview-go/internal/config"
	"ai-interview-go/internal/storage/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("ai-interview-go/storage/mysql")

// ErrRecordNotFound 记录不存在
var ErrRecordNotFound = gorm.ErrRecordNotFound

type gormSpanKey struct{}

// GormTracingPlugin GORM插件，为数据库操作创建OpenTelemetry span
type GormTracingPlugin struct {
	tracer trace.Tracer
	dbName string
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册各类CRUD操作的前后回调
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}
	return nil
}

// before 在操作前开启span并挂到语句上下文
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		)
		db.Statement.Context = context.WithValue(newCtx, gormSpanKey{}, span)
	}
}

// after 在操作后补充结果属性并结束span
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(gormSpanKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.RecordError(db.Error)
			span.SetStatus(codes.Error, db.Error.Error())
		}
	}
}

// MySQL 关系型存储，承载候选人、简历提交与面试会话
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL连接并完成表结构迁移
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	connectTimeout := cfg.ConnectTimeoutSeconds
	if connectTimeout <= 0 {
		connectTimeout = 10
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, connectTimeout)

	logLevel := gormlogger.LogLevel(cfg.LogLevel)
	if cfg.LogLevel < 1 || cfg.LogLevel > 4 {
		logLevel = gormlogger.Warn
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	if err := db.Use(&GormTracingPlugin{tracer: mysqlTracer, dbName: cfg.Database}); err != nil {
		return nil, fmt.Errorf("注册GORM追踪插件失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层数据库连接失败: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	if err := db.AutoMigrate(
		&models.Candidate{},
		&models.CandidateEducation{},
		&models.CandidateSkill{},
		&models.ResumeSubmission{},
		&models.InterviewSession{},
	); err != nil {
		return nil, fmt.Errorf("迁移表结构失败: %w", err)
	}

	return &MySQL{db: db, cfg: cfg}, nil
}

// DB 返回底层GORM实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateResumeSubmission 新建简历提交记录
func (m *MySQL) CreateResumeSubmission(ctx context.Context, sub *models.ResumeSubmission) error {
	return m.db.WithContext(ctx).Create(sub).Error
}

// GetResumeSubmission 按UUID查询简历提交记录
func (m *MySQL) GetResumeSubmission(ctx context.Context, submissionUUID string) (*models.ResumeSubmission, error) {
	var sub models.ResumeSubmission
	err := m.db.WithContext(ctx).
		Where("submission_uuid = ?", submissionUUID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateSubmissionStatus 更新简历处理状态
func (m *MySQL) UpdateSubmissionStatus(ctx context.Context, submissionUUID, status string) error {
	return m.db.WithContext(ctx).
		Model(&models.ResumeSubmission{}).
		Where("submission_uuid = ?", submissionUUID).
		Update("processing_status", status).Error
}

// MarkSubmissionFailed 记录处理失败状态与原因
func (m *MySQL) MarkSubmissionFailed(ctx context.Context, submissionUUID, status, errMsg string) error {
	return m.db.WithContext(ctx).
		Model(&models.ResumeSubmission{}).
		Where("submission_uuid = ?", submissionUUID).
		Updates(map[string]interface{}{
			"processing_status": status,
			"error_message":     errMsg,
		}).Error
}

// SaveParsedProfile 保存LLM结构化解析结果与解析文本路径
func (m *MySQL) SaveParsedProfile(ctx context.Context, submissionUUID string, profile datatypes.JSON, parsedTextPath, status string) error {
	return m.db.WithContext(ctx).
		Model(&models.ResumeSubmission{}).
		Where("submission_uuid = ?", submissionUUID).
		Updates(map[string]interface{}{
			"llm_parsed_profile":   profile,
			"parsed_text_path_oss": parsedTextPath,
			"processing_status":    status,
		}).Error
}

// SaveQualityAssessment 保存本地模型的质量评估结果
func (m *MySQL) SaveQualityAssessment(ctx context.Context, submissionUUID, category string, score float64, detail datatypes.JSON, status string) error {
	return m.db.WithContext(ctx).
		Model(&models.ResumeSubmission{}).
		Where("submission_uuid = ?", submissionUUID).
		Updates(map[string]interface{}{
			"quality_category":  category,
			"quality_score":     score,
			"quality_detail":    detail,
			"processing_status": status,
		}).Error
}

// UpsertCandidate 按邮箱幂等写入候选人，重复时更新基础信息
func (m *MySQL) UpsertCandidate(ctx context.Context, candidate *models.Candidate) error {
	return m.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "phone", "location", "career_objective", "updated_at",
			}),
		}).
		Create(candidate).Error
}

// ReplaceCandidateDetails 以最新解析结果整体替换候选人的教育与技能明细。
// 同一候选人重复投递时明细以最后一次解析为准。
func (m *MySQL) ReplaceCandidateDetails(ctx context.Context, candidateID string, educations []models.CandidateEducation, skills []models.CandidateSkill) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("candidate_id = ?", candidateID).Delete(&models.CandidateEducation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("candidate_id = ?", candidateID).Delete(&models.CandidateSkill{}).Error; err != nil {
			return err
		}
		if len(educations) > 0 {
			if err := tx.Create(&educations).Error; err != nil {
				return err
			}
		}
		if len(skills) > 0 {
			if err := tx.Create(&skills).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetCandidateByEmail 按邮箱查询候选人。
// 邮箱冲突时Create回填的ID不可靠，关联提交前用这里拿库内真实ID。
func (m *MySQL) GetCandidateByEmail(ctx context.Context, email string) (*models.Candidate, error) {
	var candidate models.Candidate
	err := m.db.WithContext(ctx).
		Where("email = ?", email).
		First(&candidate).Error
	if err != nil {
		return nil, err
	}
	return &candidate, nil
}

// LinkSubmissionCandidate 把简历提交关联到候选人
func (m *MySQL) LinkSubmissionCandidate(ctx context.Context, submissionUUID, candidateID string) error {
	return m.db.WithContext(ctx).
		Model(&models.ResumeSubmission{}).
		Where("submission_uuid = ?", submissionUUID).
		Update("candidate_id", candidateID).Error
}

// CreateInterviewSession 新建面试会话
func (m *MySQL) CreateInterviewSession(ctx context.Context, session *models.InterviewSession) error {
	return m.db.WithContext(ctx).Create(session).Error
}

// GetInterviewSession 按会话ID查询面试会话
func (m *MySQL) GetInterviewSession(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	err := m.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateInterviewTurnCount 更新面试会话轮数
func (m *MySQL) UpdateInterviewTurnCount(ctx context.Context, sessionID string, turnCount int) error {
	return m.db.WithContext(ctx).
		Model(&models.InterviewSession{}).
		Where("session_id = ?", sessionID).
		Update("turn_count", turnCount).Error
}

// CompleteInterviewSession 结束面试会话并保存最终评价
func (m *MySQL) CompleteInterviewSession(ctx context.Context, sessionID, status string, evaluation datatypes.JSON) error {
	now := time.Now()
	return m.db.WithContext(ctx).
		Model(&models.InterviewSession{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"status":          status,
			"evaluation_json": evaluation,
			"ended_at":        &now,
		}).Error
}

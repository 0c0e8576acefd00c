package storage

import (
	"context"
	"fmt"
	"time"

	"ai-interview-go/internal/config"
	"ai-interview-go/internal/constants"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound 键不存在，包装redis.Nil便于上层判断
var ErrNotFound = redis.Nil

// Redis 键值存储，承载上传去重记录与面试会话缓存
type Redis struct {
	Client *redis.Client
	cfg    *config.RedisConfig
}

// NewRedis 创建Redis客户端并注册OpenTelemetry追踪钩子
func NewRedis(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("Redis配置不能为空")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("Redis地址不能为空")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("注册Redis追踪钩子失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接Redis失败: %w", err)
	}

	return &Redis{Client: client, cfg: cfg}, nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	return r.Client.Close()
}

// md5RecordTTL 去重记录过期时间
func (r *Redis) md5RecordTTL() time.Duration {
	days := r.cfg.MD5RecordExpireDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// CheckAndSetFileMD5 原子检查并登记文件MD5。
// 返回已存在的submissionUUID与exists标志；不存在时登记新UUID。
func (r *Redis) CheckAndSetFileMD5(ctx context.Context, fileMD5, submissionUUID string) (string, bool, error) {
	key := fmt.Sprintf(constants.KeyFileMD5ToSubmissionUUID, fileMD5)

	ok, err := r.Client.SetNX(ctx, key, submissionUUID, r.md5RecordTTL()).Result()
	if err != nil {
		return "", false, fmt.Errorf("登记文件MD5失败: %w", err)
	}
	if ok {
		return submissionUUID, false, nil
	}

	existing, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		return "", false, fmt.Errorf("查询文件MD5记录失败: %w", err)
	}
	return existing, true, nil
}

// RemoveFileMD5 删除去重记录，处理失败时回滚用
func (r *Redis) RemoveFileMD5(ctx context.Context, fileMD5 string) error {
	return r.Client.Del(ctx, fmt.Sprintf(constants.KeyFileMD5ToSubmissionUUID, fileMD5)).Err()
}

// SetModelMeta 缓存当前已加载模型的元数据(JSON)
func (r *Redis) SetModelMeta(ctx context.Context, data []byte) error {
	return r.Client.Set(ctx, constants.KeyModelMeta, data, 0).Err()
}

// GetModelMeta 读取缓存的模型元数据，未缓存时返回ErrNotFound
func (r *Redis) GetModelMeta(ctx context.Context) ([]byte, error) {
	return r.Client.Get(ctx, constants.KeyModelMeta).Bytes()
}

// SetSessionMeta 缓存面试会话元数据
func (r *Redis) SetSessionMeta(ctx context.Context, sessionID string, data []byte, ttl time.Duration) error {
	return r.Client.Set(ctx, fmt.Sprintf(constants.KeyInterviewSession, sessionID), data, ttl).Err()
}

// GetSessionMeta 读取面试会话元数据，不存在时返回ErrNotFound
func (r *Redis) GetSessionMeta(ctx context.Context, sessionID string) ([]byte, error) {
	return r.Client.Get(ctx, fmt.Sprintf(constants.KeyInterviewSession, sessionID)).Bytes()
}

// DeleteSessionMeta 删除面试会话缓存
func (r *Redis) DeleteSessionMeta(ctx context.Context, sessionID string) error {
	return r.Client.Del(ctx, fmt.Sprintf(constants.KeyInterviewSession, sessionID)).Err()
}

// Package interview 实现文本形式的AI模拟面试:
// 基于简历档案生成问题，多轮对话存Redis，结束时产出评价。
package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-interview-go/internal/constants"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
)

// ChatMemory 会话历史存储接口
type ChatMemory interface {
	// GetHistory 获取会话历史，会话不存在时返回空切片
	GetHistory(ctx context.Context, sessionID string) ([]*schema.Message, error)

	// AddMessages 批量追加消息
	AddMessages(ctx context.Context, sessionID string, messages []*schema.Message) error

	// ClearHistory 清除会话历史，会话不存在时静默成功
	ClearHistory(ctx context.Context, sessionID string) error
}

// RedisChatMemory 基于Redis LIST的会话历史存储
type RedisChatMemory struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ChatMemory = (*RedisChatMemory)(nil)

// NewRedisChatMemory 创建Redis会话历史存储。
// ttl为0时历史不过期。
func NewRedisChatMemory(client *redis.Client, ttl time.Duration) (*RedisChatMemory, error) {
	if client == nil {
		return nil, fmt.Errorf("redis客户端不能为空")
	}
	return &RedisChatMemory{client: client, ttl: ttl}, nil
}

func (m *RedisChatMemory) buildKey(sessionID string) string {
	return fmt.Sprintf(constants.KeyInterviewHistory, sessionID)
}

// GetHistory 实现 ChatMemory 接口
func (m *RedisChatMemory) GetHistory(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	serialized, err := m.client.LRange(ctx, m.buildKey(sessionID), 0, -1).Result()
	if errors.Is(err, redis.Nil) {
		return []*schema.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取会话 %s 历史失败: %w", sessionID, err)
	}

	messages := make([]*schema.Message, 0, len(serialized))
	for _, raw := range serialized {
		var msg schema.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("反序列化会话 %s 消息失败: %w", sessionID, err)
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

// AddMessages 实现 ChatMemory 接口。
// 用事务管道保证消息追加与TTL刷新的原子性。
func (m *RedisChatMemory) AddMessages(ctx context.Context, sessionID string, messages []*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}
	key := m.buildKey(sessionID)

	pipe := m.client.TxPipeline()
	for _, msg := range messages {
		if msg == nil {
			return fmt.Errorf("会话 %s 不能追加空消息", sessionID)
		}
		raw, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("序列化会话 %s 消息失败: %w", sessionID, err)
		}
		pipe.RPush(ctx, key, raw)
	}
	if m.ttl > 0 {
		pipe.Expire(ctx, key, m.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入会话 %s 历史失败: %w", sessionID, err)
	}
	return nil
}

// ClearHistory 实现 ChatMemory 接口
func (m *RedisChatMemory) ClearHistory(ctx context.Context, sessionID string) error {
	if err := m.client.Del(ctx, m.buildKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("清除会话 %s 历史失败: %w", sessionID, err)
	}
	return nil
}

// InMemoryChatMemory 内存实现，测试与单机场景使用
type InMemoryChatMemory struct {
	mu        sync.RWMutex
	histories map[string][]*schema.Message
}

var _ ChatMemory = (*InMemoryChatMemory)(nil)

// NewInMemoryChatMemory 创建内存会话历史存储
func NewInMemoryChatMemory() *InMemoryChatMemory {
	return &InMemoryChatMemory{histories: make(map[string][]*schema.Message)}
}

// GetHistory 实现 ChatMemory 接口
func (m *InMemoryChatMemory) GetHistory(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.histories[sessionID]
	cpy := make([]*schema.Message, len(history))
	copy(cpy, history)
	return cpy, nil
}

// AddMessages 实现 ChatMemory 接口
func (m *InMemoryChatMemory) AddMessages(ctx context.Context, sessionID string, messages []*schema.Message) error {
	for _, msg := range messages {
		if msg == nil {
			return fmt.Errorf("会话 %s 不能追加空消息", sessionID)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories[sessionID] = append(m.histories[sessionID], messages...)
	return nil
}

// ClearHistory 实现 ChatMemory 接口
func (m *InMemoryChatMemory) ClearHistory(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.histories, sessionID)
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipe-finder/internal/core/ai/cache"
	"recipe-finder/internal/core/ai/provider"
	"recipe-finder/internal/infrastructure/monitoring"
	"recipe-finder/internal/pkg/common"

	"go.uber.org/zap"
)

// Response AI 回應
type Response struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Cached  bool   `json:"cached"`
}

// Service AI 服務：在 provider 外加上快取與指標
type Service struct {
	provider provider.Provider
	cache    cache.Store
	metrics  *monitoring.Metrics
}

// NewService 創建 AI 服務；store 與 metrics 可為 nil
func NewService(p provider.Provider, store cache.Store, metrics *monitoring.Metrics) *Service {
	return &Service{
		provider: p,
		cache:    store,
		metrics:  metrics,
	}
}

// Model 回傳使用中的模型
func (s *Service) Model() string {
	return s.provider.GetModel()
}

// ProcessRequest 取得完整回應，相同對話內容會命中快取
func (s *Service) ProcessRequest(ctx context.Context, messages []provider.Message) (*Response, error) {
	key := cacheKey(s.provider.GetModel(), messages)

	if s.cache != nil {
		if val, err := s.cache.Get(ctx, key); err == nil {
			var cached Response
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				s.metrics.RecordCache("ai", true)
				common.LogCacheHit("ai")
				cached.Cached = true
				return &cached, nil
			}
		} else if !errors.Is(err, common.ErrCacheMiss) {
			common.LogWarn("讀取 AI 快取失敗", zap.Error(err))
		}
		s.metrics.RecordCache("ai", false)
		common.LogCacheMiss("ai")
	}

	start := time.Now()
	resp, err := s.provider.Generate(ctx, &provider.Request{Messages: messages})
	duration := time.Since(start)
	s.metrics.RecordAIRequest(s.provider.GetModel(), "complete", duration, err)
	common.LogAICall(s.provider.GetModel(), duration, err)
	if err != nil {
		return nil, common.ErrAIServiceError.Wrap(err)
	}

	result := &Response{Content: resp.Content, Model: resp.Model}

	if s.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, key, string(data)); err != nil {
				common.LogWarn("寫入 AI 快取失敗", zap.Error(err))
			}
		}
	}

	return result, nil
}

// StreamRequest 串流回應，不經過快取
func (s *Service) StreamRequest(ctx context.Context, messages []provider.Message, onDelta provider.DeltaFunc) error {
	start := time.Now()
	err := s.provider.Stream(ctx, &provider.Request{Messages: messages}, onDelta)
	duration := time.Since(start)
	s.metrics.RecordAIRequest(s.provider.GetModel(), "stream", duration, err)
	common.LogAICall(s.provider.GetModel(), duration, err)
	if err != nil {
		return fmt.Errorf("stream request: %w", err)
	}
	return nil
}

// Close 關閉 provider
func (s *Service) Close() error {
	return s.provider.Close()
}

// cacheKey 統一空白後雜湊，讓格式不同但內容相同的 prompt 共用快取
func cacheKey(model string, messages []provider.Message) string {
	parts := make([]string, 0, len(messages)*2+1)
	parts = append(parts, model)
	for _, m := range messages {
		parts = append(parts, m.Role, strings.Join(strings.Fields(m.Content), " "))
	}
	return cache.Key("ai", parts...)
}

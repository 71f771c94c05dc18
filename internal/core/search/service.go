package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"recipe-finder/internal/core/ai/provider"
	aiservice "recipe-finder/internal/core/ai/service"
	"recipe-finder/internal/core/extract"
	"recipe-finder/internal/core/recipe"
	"recipe-finder/internal/core/stream"
	"recipe-finder/internal/infrastructure/config"
	"recipe-finder/internal/infrastructure/monitoring"
	"recipe-finder/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	extractTool         = "extract_recipe"
	defaultFetchTimeout = 15 * time.Second
)

// Generator 搜尋需要的 AI 能力
type Generator interface {
	ProcessRequest(ctx context.Context, messages []provider.Message) (*aiservice.Response, error)
	StreamRequest(ctx context.Context, messages []provider.Message, onDelta provider.DeltaFunc) error
}

// PageExtractor 擷取單一網頁
type PageExtractor interface {
	ExtractWithPolicy(ctx context.Context, pageURL string, policy recipe.Policy) (*extract.Result, error)
}

// ImageChecker 確認圖片網址可用
type ImageChecker interface {
	Check(ctx context.Context, imageURL string) bool
}

// Service 食譜搜尋流程
type Service struct {
	ai        Generator
	extractor PageExtractor
	images    ImageChecker
	config    config.SearchConfig
	metrics   *monitoring.Metrics
}

// NewService 創建搜尋服務；images 與 metrics 可為 nil
func NewService(ai Generator, extractor PageExtractor, images ImageChecker, cfg config.SearchConfig, metrics *monitoring.Metrics) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxRecipes <= 0 {
		cfg.MaxRecipes = stream.DefaultRecipeLimit
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = cfg.MaxRecipes
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = ModeTools
	}
	return &Service{
		ai:        ai,
		extractor: extractor,
		images:    images,
		config:    cfg,
		metrics:   metrics,
	}
}

// Run 依請求的模式執行搜尋，結果以標記協定寫入 w。
// 上游錯誤會變成最後一行 [STATUS]Error:，只有寫入 w 失敗才回傳錯誤。
func (s *Service) Run(ctx context.Context, req Request, w io.Writer) error {
	mode := req.Mode
	if mode == "" {
		mode = s.config.DefaultMode
	}
	if mode == ModeNarrated {
		return s.Narrate(ctx, req, w)
	}
	return s.Stream(ctx, req, w)
}

// Stream 工具事件模式：模型只負責列出候選網頁，擷取與驗證都在服務端完成
func (s *Service) Stream(ctx context.Context, req Request, w io.Writer) (err error) {
	start := time.Now()
	collector := stream.NewCollector(s.config.MaxRecipes)
	outcome := "ok"

	defer func() {
		if ferr := collector.Finish(w); ferr != nil && err == nil {
			err = ferr
		}
		s.metrics.RecordSearch(ModeTools, outcome, collector.Count())
		common.LogInfo("食譜搜尋完成",
			zap.String("mode", ModeTools),
			zap.String("outcome", outcome),
			zap.Int("recipes", collector.Count()),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	if err := stream.WriteStatus(w, fmt.Sprintf("Searching for recipes with %s...", strings.Join(req.Ingredients, ", "))); err != nil {
		return err
	}

	candidates, err := s.findCandidates(ctx, req)
	if err != nil {
		outcome = "error"
		common.LogError("取得候選網頁失敗", zap.Error(err))
		return stream.WriteStatus(w, "Error: "+userMessage(err))
	}
	if len(candidates) == 0 {
		outcome = "empty"
		return stream.WriteStatus(w, "No recipe pages found for these ingredients")
	}
	if err := stream.WriteStatus(w, fmt.Sprintf("Found %d recipe pages, extracting details...", len(candidates))); err != nil {
		return err
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan stream.ToolResult)
	g, gctx := errgroup.WithContext(fetchCtx)
	g.SetLimit(s.config.Workers)
	go func() {
		for _, c := range candidates {
			c := c
			g.Go(func() error {
				ev := s.extractOne(gctx, c)
				select {
				case results <- ev:
				case <-gctx.Done():
				}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	for ev := range results {
		if !collector.Accept(ev) {
			if !ev.Success {
				common.LogDebug("候選網頁未取得食譜", zap.String("url", ev.URL), zap.String("error", ev.Error))
			}
			continue
		}

		recipes := collector.Recipes()
		latest := recipes[len(recipes)-1]
		if err := stream.WriteStatus(w, fmt.Sprintf("Found recipe %d: %s", len(recipes), latest.Name)); err != nil {
			outcome = "aborted"
			cancel()
			for range results {
			}
			return err
		}
		if collector.Full() {
			cancel()
		}
	}

	switch {
	case ctx.Err() != nil:
		outcome = "canceled"
		return stream.WriteStatus(w, "Error: search canceled")
	case collector.Count() == 0:
		outcome = "empty"
		return stream.WriteStatus(w, "No recipes could be extracted from the pages found")
	default:
		return stream.WriteStatus(w, fmt.Sprintf("Found %d recipes", collector.Count()))
	}
}

// extractOne 擷取單一候選網頁；錯誤只影響該網址
func (s *Service) extractOne(ctx context.Context, c recipe.SearchResult) stream.ToolResult {
	ev := stream.ToolResult{Tool: extractTool, URL: c.URL}

	fctx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	res, err := s.extractor.ExtractWithPolicy(fctx, c.URL, recipe.Strict)
	if err != nil {
		ev.Error = err.Error()
		return ev
	}
	if !res.Success {
		ev.Error = "no valid recipe found"
		return ev
	}
	if s.config.ValidateImages && s.images != nil && !s.images.Check(fctx, res.Recipe.Image) {
		ev.Error = "recipe image unavailable"
		return ev
	}

	ev.Success = true
	ev.Recipe = res.Candidate
	return ev
}

// findCandidates 請模型列出候選網頁，去除重複與無效網址
func (s *Service) findCandidates(ctx context.Context, req Request) ([]recipe.SearchResult, error) {
	resp, err := s.ai.ProcessRequest(ctx, candidateMessages(req, s.config.MaxCandidates))
	if err != nil {
		return nil, err
	}

	arr, ok := stream.FindCompleteJSONArray(common.StripCodeFence(resp.Content))
	if !ok {
		common.LogWarn("模型回應中沒有 JSON 陣列", zap.Int("length", len(resp.Content)))
		return nil, nil
	}

	var raw []recipe.SearchResult
	if err := common.ParseJSON(arr, &raw); err != nil {
		common.LogWarn("候選網頁 JSON 解析失敗", zap.Error(err))
		return nil, nil
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]recipe.SearchResult, 0, len(raw))
	for _, c := range raw {
		c.URL = strings.TrimSpace(c.URL)
		if !recipe.ValidURL(c.URL) {
			continue
		}
		if _, dup := seen[c.URL]; dup {
			continue
		}
		seen[c.URL] = struct{}{}
		out = append(out, c)
		if len(out) == s.config.MaxCandidates {
			break
		}
	}
	return out, nil
}

// Narrate 敘述模式：模型直接以標記協定回答，內容原樣轉送。
// 串流出錯或沒有出現 [RECIPES_START] 時，補上錯誤狀態與空陣列。
func (s *Service) Narrate(ctx context.Context, req Request, w io.Writer) error {
	start := time.Now()
	p := stream.NewParser(stream.Marked)

	var writeErr error
	err := s.ai.StreamRequest(ctx, narratedMessages(req, s.config.MaxRecipes), func(delta string) error {
		p.Feed(delta)
		if _, err := io.WriteString(w, delta); err != nil {
			writeErr = err
			return err
		}
		return nil
	})

	state := p.Finish()
	outcome := "ok"
	defer func() {
		s.metrics.RecordSearch(ModeNarrated, outcome, len(state.Recipes))
		common.LogInfo("食譜搜尋完成",
			zap.String("mode", ModeNarrated),
			zap.String("outcome", outcome),
			zap.Int("recipes", len(state.Recipes)),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	if writeErr != nil {
		outcome = "aborted"
		return writeErr
	}
	if err == nil && p.MarkerSeen() {
		if len(state.Recipes) == 0 {
			outcome = "empty"
		}
		return nil
	}

	outcome = "error"
	msg := "Error: the recipe stream ended before any recipes were sent"
	if err != nil {
		common.LogError("敘述模式串流失敗", zap.Error(err))
		msg = "Error: " + userMessage(err)
	}

	tail := "\n" + stream.StatusTag + msg + "\n\n"
	if !p.MarkerSeen() {
		tail += stream.RecipesMarker + "[]"
	}
	_, werr := io.WriteString(w, tail)
	return werr
}

// userMessage 給使用者看的錯誤訊息，不含內部細節
func userMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "search canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "search timed out"
	}
	var ce *common.CustomError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return "recipe search failed"
}

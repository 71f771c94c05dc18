package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"recipe-finder/internal/core/ai/cache"
	"recipe-finder/internal/core/recipe"
	"recipe-finder/internal/infrastructure/config"
	"recipe-finder/internal/infrastructure/monitoring"
	"recipe-finder/internal/pkg/common"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// 擷取方式
const (
	MethodSchemaOrg = "schema.org"
	MethodHTML      = "html-parsing"
)

// Debug 擷取過程的除錯資訊
type Debug struct {
	FoundJSONLD       bool          `json:"foundJsonLd"`
	RawData           *recipe.Value `json:"rawData,omitempty"`
	IngredientsFound  int           `json:"ingredientsFound"`
	InstructionsFound int           `json:"instructionsFound"`
}

// Result 單頁擷取結果
type Result struct {
	Success          bool           `json:"success"`
	Recipe           *recipe.Recipe `json:"recipe,omitempty"`
	ExtractionMethod string         `json:"extractionMethod"`
	LowConfidence    bool           `json:"lowConfidence,omitempty"`
	Debug            Debug          `json:"debug"`

	// Candidate 驗證前的候選物件，供工具事件流程重新驗證
	Candidate recipe.Value `json:"-"`
}

// page 從 HTML 找出的候選，與驗證策略無關，可直接快取
type page struct {
	Method    string        `json:"method"`
	Candidate recipe.Value  `json:"candidate"`
	Raw       *recipe.Value `json:"raw,omitempty"`
}

// ExtractHTML 先找 schema.org 資料，找不到再用 DOM 樣式擷取，最後依 policy 驗證
func ExtractHTML(html, pageURL string, policy recipe.Policy) *Result {
	pg, err := locate(html, pageURL)
	if err != nil {
		common.LogDebug("HTML 解析失敗", zap.String("url", pageURL), zap.Error(err))
		return &Result{ExtractionMethod: MethodHTML}
	}
	return evaluate(pg, policy)
}

func locate(html, pageURL string) (*page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	if node, ok := structuredRecipe(doc); ok {
		raw := node
		return &page{
			Method:    MethodSchemaOrg,
			Candidate: node.With("url", recipe.StringValue(pageURL)),
			Raw:       &raw,
		}, nil
	}

	return &page{
		Method:    MethodHTML,
		Candidate: scrapeRecipe(doc, pageURL),
	}, nil
}

// evaluate 依策略決定是否成功：
//   - Strict：通過完整驗證
//   - 其他策略的 schema.org 路徑：通過該策略驗證
//   - 其他策略的 DOM 路徑：另外需要至少一項食材或步驟
func evaluate(pg *page, policy recipe.Policy) *Result {
	res := &Result{
		ExtractionMethod: pg.Method,
		Candidate:        pg.Candidate,
		Debug: Debug{
			FoundJSONLD:       pg.Method == MethodSchemaOrg,
			RawData:           pg.Raw,
			IngredientsFound:  len(recipe.ParseIngredients(pg.Candidate.First("ingredients", "recipeIngredient"))),
			InstructionsFound: len(recipe.ParseInstructions(pg.Candidate.First("instructions", "recipeInstructions"))),
		},
	}

	strict, strictOK := recipe.Normalize(pg.Candidate, recipe.Strict)
	if policy == recipe.Strict {
		if strictOK {
			res.Success = true
			res.Recipe = &strict
		}
		return res
	}

	r, ok := recipe.Normalize(pg.Candidate, policy)
	if ok && pg.Method == MethodHTML {
		ok = len(r.Ingredients) > 0 || len(r.Instructions) > 0
	}
	if !ok {
		return res
	}

	res.Success = true
	res.Recipe = &r
	res.LowConfidence = !strictOK
	return res
}

// Extractor 抓取食譜網頁並擷取內容
type Extractor struct {
	client  *resty.Client
	config  config.ExtractConfig
	policy  recipe.Policy
	cache   cache.Store
	metrics *monitoring.Metrics
}

// NewExtractor 創建擷取器；store 與 metrics 可為 nil
func NewExtractor(cfg config.ExtractConfig, store cache.Store, metrics *monitoring.Metrics) *Extractor {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml")

	return &Extractor{
		client:  client,
		config:  cfg,
		policy:  recipe.PolicyByName(cfg.Policy),
		cache:   store,
		metrics: metrics,
	}
}

// Policy 預設的驗證策略
func (e *Extractor) Policy() recipe.Policy {
	return e.policy
}

// Extract 以預設策略擷取
func (e *Extractor) Extract(ctx context.Context, pageURL string) (*Result, error) {
	return e.ExtractWithPolicy(ctx, pageURL, e.policy)
}

// ExtractWithPolicy 抓取並擷取單一網頁；只有抓取失敗才回傳錯誤
func (e *Extractor) ExtractWithPolicy(ctx context.Context, pageURL string, policy recipe.Policy) (*Result, error) {
	pageURL = strings.TrimSpace(pageURL)
	if !recipe.ValidURL(pageURL) {
		return nil, common.ErrInvalidURL
	}

	start := time.Now()
	pg, err := e.load(ctx, pageURL)
	if err != nil {
		duration := time.Since(start)
		e.metrics.RecordExtraction("fetch", false, duration)
		common.LogExtraction(pageURL, "fetch", false, duration)
		return nil, err
	}

	res := evaluate(pg, policy)
	duration := time.Since(start)
	e.metrics.RecordExtraction(res.ExtractionMethod, res.Success, duration)
	common.LogExtraction(pageURL, res.ExtractionMethod, res.Success, duration)
	return res, nil
}

// load 先查快取，沒有再抓取網頁
func (e *Extractor) load(ctx context.Context, pageURL string) (*page, error) {
	key := cache.Key("extract", pageURL)

	if e.cache != nil {
		if val, err := e.cache.Get(ctx, key); err == nil {
			var pg page
			if err := json.Unmarshal([]byte(val), &pg); err == nil {
				e.metrics.RecordCache("extract", true)
				common.LogCacheHit("extract")
				return &pg, nil
			}
		} else if !errors.Is(err, common.ErrCacheMiss) {
			common.LogWarn("讀取擷取快取失敗", zap.Error(err))
		}
		e.metrics.RecordCache("extract", false)
		common.LogCacheMiss("extract")
	}

	html, err := e.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	pg, err := locate(html, pageURL)
	if err != nil {
		return nil, common.ErrFetchFailed.Wrap(err)
	}

	if e.cache != nil {
		if data, err := json.Marshal(pg); err == nil {
			if err := e.cache.Set(ctx, key, string(data)); err != nil {
				common.LogWarn("寫入擷取快取失敗", zap.Error(err))
			}
		}
	}
	return pg, nil
}

func (e *Extractor) fetch(ctx context.Context, pageURL string) (string, error) {
	resp, err := e.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(pageURL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", common.ErrGatewayTimeout.Wrap(fmt.Errorf("fetch %s: %w", pageURL, err))
		}
		return "", common.ErrFetchFailed.Wrap(fmt.Errorf("fetch %s: %w", pageURL, err))
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= 400 {
		return "", common.ErrFetchFailed.Wrap(fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode()))
	}

	var r io.Reader = body
	if e.config.MaxBodyBytes > 0 {
		r = io.LimitReader(body, e.config.MaxBodyBytes)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", common.ErrFetchFailed.Wrap(fmt.Errorf("read %s: %w", pageURL, err))
	}
	return string(data), nil
}

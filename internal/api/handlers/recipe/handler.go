package recipe

import (
	"context"
	"io"
	"net/http"

	"recipe-finder/internal/core/extract"
	"recipe-finder/internal/core/recipe"
	"recipe-finder/internal/core/search"

	"github.com/gin-gonic/gin"
)

// Searcher 執行食譜搜尋並以標記協定寫出結果
type Searcher interface {
	Run(ctx context.Context, req search.Request, w io.Writer) error
}

// PageExtractor 擷取單一食譜網頁
type PageExtractor interface {
	ExtractWithPolicy(ctx context.Context, pageURL string, policy recipe.Policy) (*extract.Result, error)
	Policy() recipe.Policy
}

// Handler 食譜相關處理程序
type Handler struct {
	searcher  Searcher
	extractor PageExtractor
}

// NewHandler 創建新的食譜處理程序
func NewHandler(searcher Searcher, extractor PageExtractor) *Handler {
	return &Handler{
		searcher:  searcher,
		extractor: extractor,
	}
}

// flushWriter 每次寫入後立即送出，讓用戶端逐段收到串流
type flushWriter struct {
	w gin.ResponseWriter
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	f.w.Flush()
	return n, nil
}

func startTextStream(c *gin.Context) io.Writer {
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	return &flushWriter{w: c.Writer}
}

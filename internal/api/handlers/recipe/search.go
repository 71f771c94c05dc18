package recipe

import (
	"io"
	"strings"

	"recipe-finder/internal/core/ai/provider"
	"recipe-finder/internal/core/search"
	"recipe-finder/internal/core/stream"
	"recipe-finder/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatRequest 聊天介面的搜尋請求；沒有 ingredients 時從最後一則使用者訊息取出
type ChatRequest struct {
	Messages    []provider.Message  `json:"messages"`
	Ingredients []string            `json:"ingredients,omitempty"`
	Preferences *search.Preferences `json:"preferences,omitempty"`
	Mode        string              `json:"mode,omitempty"`
}

// HandleSearch 以文字串流回傳 [STATUS] 與 [RECIPES_START] 標記的搜尋過程
func (h *Handler) HandleSearch(c *gin.Context) {
	req, ok := bindSearchRequest(c)
	if !ok {
		return
	}
	h.streamText(c, req)
}

// HandleChat 從對話內容取出食材後執行搜尋
func (h *Handler) HandleChat(c *gin.Context) {
	var body ChatRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		common.WriteErrorResponse(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	req := search.Request{
		Ingredients: body.Ingredients,
		Preferences: body.Preferences,
		Mode:        body.Mode,
	}
	if len(req.Ingredients) == 0 {
		req.Ingredients = search.IngredientsFromMessage(lastUserMessage(body.Messages))
	}
	if len(req.Ingredients) == 0 {
		common.WriteErrorResponse(c, common.NewValidationError("please provide ingredients to search for recipes"))
		return
	}
	if err := req.Validate(); err != nil {
		common.WriteErrorResponse(c, err)
		return
	}

	h.streamText(c, req)
}

// HandleSearchEvents 在服務端解析串流，以 SSE update 事件送出 {status, recipes}
func (h *Handler) HandleSearchEvents(c *gin.Context) {
	req, ok := bindSearchRequest(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	requestID := common.RequestID(c)

	pr, pw := io.Pipe()
	defer pr.Close()
	go func() {
		pw.CloseWithError(h.searcher.Run(ctx, req, pw))
	}()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	var last *stream.Update
	final := stream.Consume(ctx, pr, stream.NewParser(stream.Marked), func(u stream.Update) {
		if last != nil && sameUpdate(*last, u) {
			return
		}
		last = &u
		c.SSEvent("update", u)
		c.Writer.Flush()
	})

	c.SSEvent("done", final)
	c.Writer.Flush()

	common.LogInfo("SSE 搜尋結束",
		zap.String("request_id", requestID),
		zap.Int("recipes", len(final.Recipes)),
		zap.Bool("complete", final.Complete),
	)
}

func (h *Handler) streamText(c *gin.Context, req search.Request) {
	requestID := common.RequestID(c)
	common.LogInfo("開始食譜搜尋",
		zap.String("request_id", requestID),
		zap.Strings("ingredients", req.Ingredients),
		zap.String("mode", req.Mode),
	)

	w := startTextStream(c)
	if err := h.searcher.Run(c.Request.Context(), req, w); err != nil {
		common.LogWarn("串流寫入中斷",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}
}

func bindSearchRequest(c *gin.Context) (search.Request, bool) {
	var req search.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorResponse(c, common.ErrInvalidRequest.Wrap(err))
		return req, false
	}
	if err := req.Validate(); err != nil {
		common.WriteErrorResponse(c, err)
		return req, false
	}
	return req, true
}

func lastUserMessage(messages []provider.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.EqualFold(messages[i].Role, "user") {
			return messages[i].Content
		}
	}
	return ""
}

func sameUpdate(a, b stream.Update) bool {
	return a.Status == b.Status && a.Complete == b.Complete && len(a.Recipes) == len(b.Recipes)
}

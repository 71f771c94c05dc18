package recipe

import (
	"net/http"
	"strings"

	"recipe-finder/internal/core/extract"
	"recipe-finder/internal/core/recipe"
	"recipe-finder/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ExtractRequest 單頁擷取請求；policy 為 strict 或 lenient，預設依設定
type ExtractRequest struct {
	URL    string `json:"url" binding:"required"`
	Policy string `json:"policy,omitempty"`
}

// StepTimers 某個步驟中的計時片段
type StepTimers struct {
	Step int               `json:"step"`
	Cues []recipe.TimerCue `json:"cues"`
}

// ExtractResponse 擷取結果加上每個步驟的計時片段
type ExtractResponse struct {
	*extract.Result
	Timers []StepTimers `json:"timers"`
}

// HandleExtract 抓取網頁並擷取食譜
func (h *Handler) HandleExtract(c *gin.Context) {
	requestID := common.RequestID(c)

	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorResponse(c, common.NewValidationError("url is required"))
		return
	}

	policy := h.extractor.Policy()
	switch strings.ToLower(req.Policy) {
	case "":
	case recipe.Strict.Name, recipe.Lenient.Name:
		policy = recipe.PolicyByName(req.Policy)
	default:
		common.WriteErrorResponse(c, common.NewValidationError("policy must be strict or lenient"))
		return
	}

	common.LogInfo("開始擷取食譜",
		zap.String("request_id", requestID),
		zap.String("url", req.URL),
		zap.String("policy", policy.Name),
	)

	res, err := h.extractor.ExtractWithPolicy(c.Request.Context(), req.URL, policy)
	if err != nil {
		common.LogWarn("擷取食譜失敗",
			zap.String("request_id", requestID),
			zap.String("url", req.URL),
			zap.Error(err),
		)
		common.WriteErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, ExtractResponse{Result: res, Timers: stepTimers(res.Recipe)})
}

func stepTimers(r *recipe.Recipe) []StepTimers {
	out := []StepTimers{}
	if r == nil {
		return out
	}
	for i, step := range r.Instructions {
		if cues := recipe.FindTimerCues(step); len(cues) > 0 {
			out = append(out, StepTimers{Step: i, Cues: cues})
		}
	}
	return out
}

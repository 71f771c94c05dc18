package recipe

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"recipe-finder/internal/api/middleware"
	"recipe-finder/internal/core/recipe"
	"recipe-finder/internal/infrastructure/persistence"
	"recipe-finder/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FavoriteStore 收藏儲存
type FavoriteStore interface {
	List(ctx context.Context, userID string) ([]persistence.Favorite, error)
	Add(ctx context.Context, userID string, rec recipe.Recipe) (*persistence.Favorite, error)
	Remove(ctx context.Context, userID, name, url string) error
}

// FavoritesHandler 收藏處理程序，需搭配 middleware.Auth
type FavoritesHandler struct {
	store FavoriteStore
}

// NewFavoritesHandler 創建收藏處理程序
func NewFavoritesHandler(store FavoriteStore) *FavoritesHandler {
	return &FavoritesHandler{store: store}
}

// removeRequest 刪除收藏的識別欄位
type removeRequest struct {
	Name string `json:"name" form:"name"`
	URL  string `json:"url" form:"url"`
}

// List 列出目前使用者的收藏，以 Recipe 格式回傳
func (h *FavoritesHandler) List(c *gin.Context) {
	favorites, err := h.store.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		common.LogError("讀取收藏失敗", zap.String("request_id", common.RequestID(c)), zap.Error(err))
		common.WriteErrorResponse(c, common.ErrInternalError.Wrap(err))
		return
	}
	recipes := make([]recipe.Recipe, 0, len(favorites))
	for i := range favorites {
		recipes = append(recipes, favorites[i].Recipe())
	}
	c.JSON(http.StatusOK, gin.H{"favorites": recipes})
}

// Add 收藏一道食譜
func (h *FavoritesHandler) Add(c *gin.Context) {
	var rec recipe.Recipe
	if err := c.ShouldBindJSON(&rec); err != nil {
		common.WriteErrorResponse(c, common.ErrInvalidRequest.Wrap(err))
		return
	}
	rec.Name = strings.TrimSpace(rec.Name)
	rec.URL = strings.TrimSpace(rec.URL)
	if rec.Name == "" {
		common.WriteErrorResponse(c, common.NewValidationError("recipe name is required"))
		return
	}
	if !recipe.ValidURL(rec.URL) {
		common.WriteErrorResponse(c, common.ErrInvalidURL)
		return
	}

	fav, err := h.store.Add(c.Request.Context(), middleware.UserID(c), rec)
	if err != nil {
		if errors.Is(err, persistence.ErrFavoriteExists) {
			common.WriteErrorResponse(c, common.ErrConflict.Wrap(err))
			return
		}
		common.LogError("新增收藏失敗", zap.String("request_id", common.RequestID(c)), zap.Error(err))
		common.WriteErrorResponse(c, common.ErrInternalError.Wrap(err))
		return
	}
	c.JSON(http.StatusCreated, fav.Recipe())
}

// Remove 以名稱與網址刪除收藏，可放在 JSON 內容或查詢參數
func (h *FavoritesHandler) Remove(c *gin.Context) {
	var req removeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.WriteErrorResponse(c, common.ErrInvalidRequest.Wrap(err))
			return
		}
	} else if err := c.ShouldBindQuery(&req); err != nil {
		common.WriteErrorResponse(c, common.ErrInvalidRequest.Wrap(err))
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.URL) == "" {
		common.WriteErrorResponse(c, common.NewValidationError("name and url are required"))
		return
	}

	err := h.store.Remove(c.Request.Context(), middleware.UserID(c), strings.TrimSpace(req.Name), strings.TrimSpace(req.URL))
	if err != nil {
		if errors.Is(err, persistence.ErrFavoriteNotFound) {
			common.WriteErrorResponse(c, common.ErrNotFound.Wrap(err))
			return
		}
		common.WriteErrorResponse(c, common.ErrInternalError.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

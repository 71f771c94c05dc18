package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipe-finder/internal/core/recipe"

	"gorm.io/gorm"
)

var (
	// ErrFavoriteExists 同一使用者已收藏相同名稱與網址的食譜
	ErrFavoriteExists = errors.New("favorite already exists")
	// ErrFavoriteNotFound 找不到要刪除的收藏
	ErrFavoriteNotFound = errors.New("favorite not found")
)

// Favorite 使用者收藏的食譜；欄位名稱以 snake_case 儲存
type Favorite struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	UserID        string              `gorm:"type:varchar(255);not null;uniqueIndex:idx_favorite_user_recipe" json:"user_id"`
	Name          string              `gorm:"type:varchar(500);not null;uniqueIndex:idx_favorite_user_recipe" json:"name"`
	URL           string              `gorm:"type:varchar(2048);not null;uniqueIndex:idx_favorite_user_recipe" json:"url"`
	Image         string              `gorm:"type:text" json:"image,omitempty"`
	Description   string              `gorm:"type:text" json:"description,omitempty"`
	Ingredients   []recipe.Ingredient `gorm:"serializer:json" json:"ingredients"`
	Instructions  []string            `gorm:"serializer:json" json:"instructions"`
	PrepTime      string              `gorm:"type:varchar(50)" json:"prep_time,omitempty"`
	CookTime      string              `gorm:"type:varchar(50)" json:"cook_time,omitempty"`
	TotalTime     string              `gorm:"type:varchar(50)" json:"total_time,omitempty"`
	Servings      int                 `json:"servings,omitempty"`
	Nutrition     *recipe.Nutrition   `gorm:"serializer:json" json:"nutrition,omitempty"`
	Author        string              `gorm:"type:varchar(255)" json:"author,omitempty"`
	DatePublished string              `gorm:"type:varchar(50)" json:"date_published,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// TableName 資料表名稱
func (Favorite) TableName() string {
	return "favorite_recipes"
}

// FavoriteFromRecipe 轉為儲存格式
func FavoriteFromRecipe(userID string, r recipe.Recipe) *Favorite {
	return &Favorite{
		UserID:        userID,
		Name:          r.Name,
		URL:           r.URL,
		Image:         r.Image,
		Description:   r.Description,
		Ingredients:   r.Ingredients,
		Instructions:  r.Instructions,
		PrepTime:      r.PrepTime,
		CookTime:      r.CookTime,
		TotalTime:     r.TotalTime,
		Servings:      r.Servings,
		Nutrition:     r.Nutrition,
		Author:        r.Author,
		DatePublished: r.DatePublished,
	}
}

// Recipe 轉回標準的 Recipe
func (f *Favorite) Recipe() recipe.Recipe {
	return recipe.Recipe{
		Name:          f.Name,
		URL:           f.URL,
		Image:         f.Image,
		Description:   f.Description,
		Ingredients:   f.Ingredients,
		Instructions:  f.Instructions,
		PrepTime:      f.PrepTime,
		CookTime:      f.CookTime,
		TotalTime:     f.TotalTime,
		Servings:      f.Servings,
		Nutrition:     f.Nutrition,
		Author:        f.Author,
		DatePublished: f.DatePublished,
	}
}

// FavoriteRepository 收藏資料存取
type FavoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository 創建收藏資料存取
func NewFavoriteRepository(db *gorm.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// List 使用者的收藏，新的在前
func (r *FavoriteRepository) List(ctx context.Context, userID string) ([]Favorite, error) {
	var favorites []Favorite
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&favorites).Error
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return favorites, nil
}

// Add 新增收藏；名稱與網址相同時回傳 ErrFavoriteExists
func (r *FavoriteRepository) Add(ctx context.Context, userID string, rec recipe.Recipe) (*Favorite, error) {
	fav := FavoriteFromRecipe(userID, rec)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Favorite{}).
			Where("user_id = ? AND name = ? AND url = ?", userID, rec.Name, rec.URL).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrFavoriteExists
		}
		return tx.Create(fav).Error
	})
	if err != nil {
		if errors.Is(err, ErrFavoriteExists) || isDuplicateKey(err) {
			return nil, ErrFavoriteExists
		}
		return nil, fmt.Errorf("add favorite: %w", err)
	}
	return fav, nil
}

// Remove 以名稱與網址刪除收藏
func (r *FavoriteRepository) Remove(ctx context.Context, userID, name, url string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND name = ? AND url = ?", userID, name, url).
		Delete(&Favorite{})
	if result.Error != nil {
		return fmt.Errorf("remove favorite: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrFavoriteNotFound
	}
	return nil
}

// isDuplicateKey 並行新增時由唯一索引擋下的情況
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}

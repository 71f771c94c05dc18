package middleware

import (
	"errors"
	"strings"
	"time"

	"recipe-finder/internal/infrastructure/config"
	"recipe-finder/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextUserID 驗證後的使用者 ID 在 gin.Context 中的鍵
const ContextUserID = "user_id"

// Auth 驗證 Authorization: Bearer <JWT>，使用 HS256 與 sub 作為使用者 ID。
// 未設定密鑰時一律回傳 503。
func Auth(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.JWTSecret == "" {
			common.WriteErrorResponse(c, common.ErrAuthDisabled)
			return
		}

		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			common.WriteErrorResponse(c, common.ErrUnauthorized)
			return
		}

		userID, err := ParseToken(cfg, strings.TrimSpace(raw))
		if err != nil {
			common.WriteErrorResponse(c, common.ErrUnauthorized.Wrap(err))
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// ParseToken 驗證簽章、期限與簽發者，回傳 sub
func ParseToken(cfg config.AuthConfig, token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// IssueToken 簽發 HS256 權杖，供 CLI 與測試使用
func IssueToken(cfg config.AuthConfig, userID string, ttl time.Duration) (string, error) {
	if cfg.JWTSecret == "" {
		return "", common.ErrAuthDisabled
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

// UserID 取得驗證後的使用者 ID
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

package image

import (
	"context"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	_ "image/gif"  // 支援 GIF
	_ "image/jpeg" // 支援 JPEG
	_ "image/png"  // 支援 PNG

	"recipe-finder/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // 支援 WebP
)

// defaultProbeBytes 讀取圖片標頭時最多下載的位元組
const defaultProbeBytes = 64 << 10

// Service 圖片連結檢查：確認食譜圖片網址真的指向可用的圖片
type Service struct {
	client     *resty.Client
	probeBytes int64
}

// NewService 創建新的圖片檢查服務
func NewService(timeout time.Duration, userAgent string) *Service {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent)

	return &Service{
		client:     client,
		probeBytes: defaultProbeBytes,
	}
}

// ValidateImage 先送 HEAD；狀態碼 < 400 且 Content-Type 為 image/* 即通過。
// 伺服器不支援 HEAD 或沒有回報型別時，下載開頭的位元組解碼格式。
func (s *Service) ValidateImage(ctx context.Context, imageURL string) error {
	if !strings.HasPrefix(imageURL, "http://") && !strings.HasPrefix(imageURL, "https://") {
		return fmt.Errorf("invalid image url: %q", imageURL)
	}

	resp, err := s.client.R().SetContext(ctx).Head(imageURL)
	if err != nil {
		return fmt.Errorf("failed to probe image: %w", err)
	}

	status := resp.StatusCode()
	switch {
	case status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented:
		// 改用 GET
	case status >= 400:
		return fmt.Errorf("failed to probe image: status code %d", status)
	default:
		contentType := resp.Header().Get("Content-Type")
		if isImageType(contentType) {
			return nil
		}
		if contentType != "" && !isGenericType(contentType) {
			return fmt.Errorf("not an image: %s", contentType)
		}
	}

	return s.sniff(ctx, imageURL)
}

// sniff 下載圖片開頭並解碼設定，確認格式
func (s *Service) sniff(ctx context.Context, imageURL string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Range", fmt.Sprintf("bytes=0-%d", s.probeBytes-1)).
		SetDoNotParseResponse(true).
		Get(imageURL)
	if err != nil {
		return fmt.Errorf("failed to download image: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= 400 {
		return fmt.Errorf("failed to download image: status code %d", resp.StatusCode())
	}

	_, format, err := image.DecodeConfig(io.LimitReader(body, s.probeBytes))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	if !isSupportedFormat(format) {
		return fmt.Errorf("unsupported image format: %s", format)
	}
	return nil
}

// Check ValidateImage 的布林版本，失敗只記錄除錯訊息
func (s *Service) Check(ctx context.Context, imageURL string) bool {
	if err := s.ValidateImage(ctx, imageURL); err != nil {
		common.LogDebug("圖片檢查失敗", zap.String("image", imageURL), zap.Error(err))
		return false
	}
	return true
}

func isImageType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && strings.HasPrefix(mediaType, "image/")
}

// isGenericType 部分 CDN 對圖片回報的通用型別
func isGenericType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mediaType == "application/octet-stream" || mediaType == "binary/octet-stream")
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"webp": true,
	}
	return supportedFormats[format]
}

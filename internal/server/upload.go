package server

import (
	"bufio"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	uploadFormField   = "image"
	defaultUploadSize = 5 << 20
	// room for multipart boundaries and headers around the file
	multipartOverhead = 64 << 10
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/heic": ".heic",
	"image/heif": ".heif",
}

// unsniffedImageTypes are image formats the content sniffer reports as
// application/octet-stream, so only for these the declared type is trusted.
var unsniffedImageTypes = map[string]bool{
	"image/heic": true,
	"image/heif": true,
}

// imageContentType returns the image type of the upload, or "" when the
// bytes are not an image.
func imageContentType(sniff []byte, declared string) string {
	detected := http.DetectContentType(sniff)
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if detected == "application/octet-stream" && unsniffedImageTypes[declared] {
		return declared
	}
	return ""
}

func (s *Server) maxUploadBytes() int64 {
	if s.cfg.Upload.MaxBytes > 0 {
		return s.cfg.Upload.MaxBytes
	}
	return defaultUploadSize
}

func (s *Server) UploadProductImage(c *gin.Context) {
	limit := s.maxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	header, err := c.FormFile(uploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			AbortWithError(c, ErrPayloadTooLarge)
			return
		}
		AbortWithError(c, newValidationError(uploadFormField, "required", "image file is required"))
		return
	}
	if header.Size > limit {
		AbortWithError(c, ErrPayloadTooLarge)
		return
	}

	file, err := header.Open()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer file.Close()

	reader := bufio.NewReaderSize(file, 512)
	sniff, _ := reader.Peek(512)
	contentType := imageContentType(sniff, header.Header.Get("Content-Type"))
	if contentType == "" {
		AbortWithError(c, newValidationError(uploadFormField, "invalid_content_type", "only image files are allowed"))
		return
	}

	ext, ok := imageExtensions[contentType]
	if !ok {
		ext = strings.ToLower(filepath.Ext(header.Filename))
	}
	key := "products/" + uuid.NewString() + ext

	url, err := s.storage.Put(c.Request.Context(), key, reader)
	if err != nil {
		s.log.Error("store product image", zap.String("key", key), zap.Error(err))
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "url": url})
}

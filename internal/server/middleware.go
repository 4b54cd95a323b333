package server

import (
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	obsmiddleware "github.com/smallbiznis/shelflife/internal/observability/logger"
)

// HeaderDeviceID carries the caller's device id when the body does not.
const HeaderDeviceID = obsmiddleware.DeviceIDHeader

// deviceID prefers the value sent in the request body and falls back to the
// X-Device-ID header.
func deviceID(c *gin.Context, fromBody string) string {
	if trimmed := strings.TrimSpace(fromBody); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(c.GetHeader(HeaderDeviceID))
}

// bindOptionalJSON binds the body when one was sent. DELETE requests from the
// mobile client may or may not carry one.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

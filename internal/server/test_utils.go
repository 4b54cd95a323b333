package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type testCleanupRequest struct {
	Prefix string `json:"prefix"`
}

// TestCleanup removes everything created by devices whose id starts with the
// prefix. End-to-end suites use a per-run prefix.
func (s *Server) TestCleanup(c *gin.Context) {
	if s.cfg.IsProduction() {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req testCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		AbortWithError(c, newValidationError("prefix", "required", "prefix is required"))
		return
	}

	like := prefix + "%"
	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var storeIDs []int64
		if err := tx.Table("store_members").
			Select("store_id").
			Where("device_id LIKE ? AND role = ?", like, "OWNER").
			Scan(&storeIDs).Error; err != nil {
			return err
		}

		if len(storeIDs) > 0 {
			if err := tx.Exec(
				`DELETE FROM daily_check_items WHERE session_id IN (SELECT id FROM daily_check_sessions WHERE store_id IN ?)`, storeIDs,
			).Error; err != nil {
				return err
			}
			if err := tx.Exec(
				`DELETE FROM daily_check_sessions WHERE store_id IN ?`, storeIDs,
			).Error; err != nil {
				return err
			}
			if err := tx.Exec(
				`DELETE FROM product_entries WHERE store_id IN ?`, storeIDs,
			).Error; err != nil {
				return err
			}
			if err := tx.Exec(
				`DELETE FROM store_activity_logs WHERE store_id IN ?`, storeIDs,
			).Error; err != nil {
				return err
			}
			if err := tx.Exec(
				`DELETE FROM store_members WHERE store_id IN ?`, storeIDs,
			).Error; err != nil {
				return err
			}
			if err := tx.Exec(
				`DELETE FROM stores WHERE id IN ?`, storeIDs,
			).Error; err != nil {
				return err
			}
		}

		for _, stmt := range []string{
			`DELETE FROM batch_items WHERE batch_id IN (SELECT id FROM batch_sessions WHERE device_id LIKE ?)`,
			`DELETE FROM batch_sessions WHERE device_id LIKE ?`,
			`DELETE FROM product_entries WHERE device_id LIKE ?`,
			`DELETE FROM store_members WHERE device_id LIKE ?`,
			`DELETE FROM notification_schedules WHERE device_id LIKE ?`,
			`DELETE FROM push_receipts WHERE device_id LIKE ?`,
			`DELETE FROM push_tokens WHERE device_id LIKE ?`,
		} {
			if err := tx.Exec(stmt, like).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

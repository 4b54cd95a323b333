package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/shelflife/internal/audit/domain"
	"github.com/smallbiznis/shelflife/internal/authorization"
	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
	storedomain "github.com/smallbiznis/shelflife/internal/store/domain"
)

type createStoreRequest struct {
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	DeviceID string `json:"deviceId"`
}

type joinStoreRequest struct {
	Code     string `json:"code"`
	Nickname string `json:"nickname"`
	DeviceID string `json:"deviceId"`
}

type storeDeviceRequest struct {
	DeviceID string `json:"deviceId"`
}

type transferStoreRequest struct {
	DeviceID string `json:"deviceId"`
	MemberID string `json:"memberId"`
}

type updateNicknameRequest struct {
	DeviceID string `json:"deviceId"`
	Nickname string `json:"nickname"`
}

func (s *Server) CreateStore(c *gin.Context) {
	var req createStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	membership, err := s.storeSvc.Create(c.Request.Context(), storedomain.CreateStoreRequest{
		Name:     req.Name,
		Nickname: req.Nickname,
		DeviceID: deviceID(c, req.DeviceID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, membership)
}

func (s *Server) JoinStore(c *gin.Context) {
	var req joinStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	membership, err := s.storeSvc.Join(c.Request.Context(), storedomain.JoinStoreRequest{
		Code:      req.Code,
		Nickname:  req.Nickname,
		DeviceID:  deviceID(c, req.DeviceID),
		ClientKey: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, membership)
}

// ListStoresByDevice serves GET /:id where :id is a device id.
func (s *Server) ListStoresByDevice(c *gin.Context) {
	memberships, err := s.storeSvc.ListByDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, memberships)
}

func (s *Server) ListStoreMembers(c *gin.Context) {
	ctx := c.Request.Context()
	storeID := c.Param("id")
	if _, err := s.storeSvc.Get(ctx, storeID); err != nil {
		AbortWithError(c, err)
		return
	}
	if !s.authorizeStoreRead(c, storeID, authorization.ObjectMember, authorization.ActionMemberView) {
		return
	}

	members, err := s.storeSvc.Members(ctx, storeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, members)
}

func (s *Server) ListStoreEntries(c *gin.Context) {
	ctx := c.Request.Context()
	storeID := c.Param("id")
	if _, err := s.storeSvc.Get(ctx, storeID); err != nil {
		AbortWithError(c, err)
		return
	}
	if !s.authorizeStoreRead(c, storeID, authorization.ObjectEntry, authorization.ActionEntryView) {
		return
	}

	entries, err := s.entrySvc.List(ctx, entrydomain.ListEntryRequest{
		StoreID: storeID,
		Status:  c.Query("status"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.renderEntries(entries))
}

// ListStoreActivity pages the store's activity log, newest first. Pass the
// returned nextCursor as ?before= for the next page.
func (s *Server) ListStoreActivity(c *gin.Context) {
	ctx := c.Request.Context()
	storeID := c.Param("id")
	if _, err := s.storeSvc.Get(ctx, storeID); err != nil {
		AbortWithError(c, err)
		return
	}
	if !s.authorizeStoreRead(c, storeID, authorization.ObjectStore, authorization.ActionStoreView) {
		return
	}

	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be an integer"))
		return
	}
	req := auditdomain.ListRequest{
		StoreID: storeID,
		Action:  c.Query("action"),
		Before:  c.Query("before"),
	}
	if limit != nil {
		req.PageSize = *limit
	}

	page, err := s.activitySvc.List(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (s *Server) LeaveStore(c *gin.Context) {
	var req storeDeviceRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.storeSvc.Leave(c.Request.Context(), c.Param("id"), deviceID(c, req.DeviceID)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) DeleteStore(c *gin.Context) {
	var req storeDeviceRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.storeSvc.Delete(c.Request.Context(), c.Param("id"), deviceID(c, req.DeviceID)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) TransferStoreOwnership(c *gin.Context) {
	var req transferStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	member, err := s.storeSvc.TransferOwnership(c.Request.Context(), storedomain.TransferRequest{
		StoreID:           c.Param("id"),
		RequesterDeviceID: deviceID(c, req.DeviceID),
		TargetMemberID:    req.MemberID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, member)
}

func (s *Server) UpdateStoreNickname(c *gin.Context) {
	var req updateNicknameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	member, err := s.storeSvc.UpdateNickname(c.Request.Context(), c.Param("id"), deviceID(c, req.DeviceID), req.Nickname)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, member)
}

// authorizeStoreRead checks the caller's store role when the request names a
// device. Reads without a device id stay open.
func (s *Server) authorizeStoreRead(c *gin.Context, storeID, object, action string) bool {
	device := deviceID(c, "")
	if device == "" || s.authorizer == nil {
		return true
	}
	if err := s.authorizer.Authorize(c.Request.Context(), device, storeID, object, action); err != nil {
		AbortWithError(c, err)
		return false
	}
	return true
}

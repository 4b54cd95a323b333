package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	dailycheckdomain "github.com/smallbiznis/shelflife/internal/dailycheck/domain"
)

type startDailyCheckRequest struct {
	StoreID     string `json:"storeId"`
	MemberID    string `json:"memberId"`
	WarningDays *int   `json:"warningDays"`
	DeviceID    string `json:"deviceId"`
}

type recordActionRequest struct {
	EntryID  string `json:"entryId"`
	Action   string `json:"action"`
	MemberID string `json:"memberId"`
}

func (s *Server) StartDailyCheck(c *gin.Context) {
	var req startDailyCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	summary, err := s.dailyCheckSvc.Start(c.Request.Context(), dailycheckdomain.StartRequest{
		StoreID:     req.StoreID,
		MemberID:    req.MemberID,
		WarningDays: req.WarningDays,
		DeviceID:    deviceID(c, req.DeviceID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, summary)
}

func (s *Server) GetDailyCheck(c *gin.Context) {
	summary, err := s.dailyCheckSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetDailyCheckWorklist returns the entries still waiting for an action.
func (s *Server) GetDailyCheckWorklist(c *gin.Context) {
	entries, err := s.dailyCheckSvc.Worklist(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.renderEntries(entries))
}

func (s *Server) RecordDailyCheckAction(c *gin.Context) {
	var req recordActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	summary, err := s.dailyCheckSvc.RecordAction(c.Request.Context(), c.Param("id"), dailycheckdomain.RecordActionRequest{
		EntryID:  req.EntryID,
		Action:   req.Action,
		MemberID: req.MemberID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) CompleteDailyCheck(c *gin.Context) {
	summary, err := s.dailyCheckSvc.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) ListDailyChecksByStore(c *gin.Context) {
	sessions, err := s.dailyCheckSvc.ListByStore(c.Request.Context(), c.Param("storeId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	notificationdomain "github.com/smallbiznis/shelflife/internal/notification/domain"
)

type registerTokenRequest struct {
	DeviceID string `json:"deviceId"`
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type createScheduleRequest struct {
	DeviceID   string `json:"deviceId"`
	StoreID    string `json:"storeId"`
	Hour       int    `json:"hour"`
	Minute     int    `json:"minute"`
	Timezone   string `json:"timezone"`
	DaysBefore int    `json:"daysBefore"`
	Enabled    *bool  `json:"enabled"`
	Weekdays   []int  `json:"weekdays"`
}

type updateScheduleRequest struct {
	StoreID    *string `json:"storeId"`
	Hour       *int    `json:"hour"`
	Minute     *int    `json:"minute"`
	Timezone   *string `json:"timezone"`
	DaysBefore *int    `json:"daysBefore"`
	Enabled    *bool   `json:"enabled"`
	Weekdays   *[]int  `json:"weekdays"`
}

type sendRemindersRequest struct {
	DeviceIDs  []string `json:"deviceIds"`
	DaysBefore int      `json:"daysBefore"`
}

func (s *Server) RegisterPushToken(c *gin.Context) {
	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	token, err := s.notifySvc.RegisterToken(c.Request.Context(), notificationdomain.RegisterTokenRequest{
		DeviceID: deviceID(c, req.DeviceID),
		Token:    req.Token,
		Platform: req.Platform,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

func (s *Server) UnregisterPushToken(c *gin.Context) {
	var req storeDeviceRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.notifySvc.UnregisterToken(c.Request.Context(), deviceID(c, req.DeviceID)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) CreateSchedule(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	schedule, err := s.notifySvc.CreateSchedule(c.Request.Context(), notificationdomain.CreateScheduleRequest{
		DeviceID:   deviceID(c, req.DeviceID),
		StoreID:    req.StoreID,
		Hour:       req.Hour,
		Minute:     req.Minute,
		Timezone:   req.Timezone,
		DaysBefore: req.DaysBefore,
		Enabled:    req.Enabled,
		Weekdays:   req.Weekdays,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, schedule)
}

func (s *Server) ListSchedules(c *gin.Context) {
	schedules, err := s.notifySvc.ListSchedules(c.Request.Context(), deviceID(c, c.Query("deviceId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedules)
}

func (s *Server) GetSchedule(c *gin.Context) {
	schedule, err := s.notifySvc.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

func (s *Server) UpdateSchedule(c *gin.Context) {
	var req updateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	schedule, err := s.notifySvc.UpdateSchedule(c.Request.Context(), c.Param("id"), notificationdomain.UpdateScheduleRequest{
		StoreID:    req.StoreID,
		Hour:       req.Hour,
		Minute:     req.Minute,
		Timezone:   req.Timezone,
		DaysBefore: req.DaysBefore,
		Enabled:    req.Enabled,
		Weekdays:   req.Weekdays,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

func (s *Server) DeleteSchedule(c *gin.Context) {
	if err := s.notifySvc.DeleteSchedule(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SendExpirationReminders pushes reminders now. Delivery failures are counted
// in the result, never returned as an error.
func (s *Server) SendExpirationReminders(c *gin.Context) {
	var req sendRemindersRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.notifySvc.SendExpirationReminders(c.Request.Context(), notificationdomain.SendRequest{
		DeviceIDs:  req.DeviceIDs,
		DaysBefore: req.DaysBefore,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

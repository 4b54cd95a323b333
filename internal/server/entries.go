package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
	"github.com/smallbiznis/shelflife/internal/expiry"
)

type createEntryRequest struct {
	Barcode        string  `json:"barcode"`
	ProductName    string  `json:"productName"`
	Category       *string `json:"category"`
	ExpirationDate string  `json:"expirationDate"`
	Quantity       *int    `json:"quantity"`
	Location       *string `json:"location"`
	Notes          *string `json:"notes"`
	ImageURL       *string `json:"imageUrl"`
	StoreID        string  `json:"storeId"`
	MemberID       string  `json:"memberId"`
	DeviceID       string  `json:"deviceId"`
}

type updateEntryRequest struct {
	ProductName    *string `json:"productName"`
	Category       *string `json:"category"`
	ExpirationDate *string `json:"expirationDate"`
	Quantity       *int    `json:"quantity"`
	Location       *string `json:"location"`
	Notes          *string `json:"notes"`
	ImageURL       *string `json:"imageUrl"`
}

func (s *Server) entryPolicy() expiry.Policy {
	if s.expiry == nil {
		return expiry.DefaultPolicy()
	}
	return expiry.Policy{SoonWindowDays: s.expiry.Get().SoonWindowDays}
}

func (s *Server) renderEntry(entry entrydomain.Entry) entrydomain.Response {
	return entry.ToResponse(s.entryPolicy(), s.entrySvc.Today())
}

func (s *Server) renderEntries(entries []entrydomain.Entry) []entrydomain.Response {
	policy := s.entryPolicy()
	today := s.entrySvc.Today()
	out := make([]entrydomain.Response, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.ToResponse(policy, today))
	}
	return out
}

func listEntryRequestFromQuery(c *gin.Context) entrydomain.ListEntryRequest {
	return entrydomain.ListEntryRequest{
		StoreID:  strings.TrimSpace(c.Query("storeId")),
		DeviceID: strings.TrimSpace(c.Query("deviceId")),
		Status:   strings.TrimSpace(c.Query("status")),
	}
}

// ListEntries returns entries soonest-expiring first. withinDays switches to
// the expired-or-expiring view over one or more stores.
func (s *Server) ListEntries(c *gin.Context) {
	withinDays, err := parseOptionalInt(c.Query("withinDays"))
	if err != nil || (withinDays != nil && *withinDays < 0) {
		AbortWithError(c, newValidationError("withinDays", "invalid_within_days", "withinDays must be a non-negative integer"))
		return
	}

	var entries []entrydomain.Entry
	if withinDays != nil {
		scope, err := entryScopeFromQuery(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		entries, err = s.entrySvc.ListExpiring(c.Request.Context(), entrydomain.ExpiringRequest{
			Scope:      scope,
			WithinDays: *withinDays,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}
	} else {
		entries, err = s.entrySvc.List(c.Request.Context(), listEntryRequestFromQuery(c))
		if err != nil {
			AbortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, s.renderEntries(entries))
}

func entryScopeFromQuery(c *gin.Context) (entrydomain.Scope, error) {
	scope := entrydomain.Scope{DeviceID: strings.TrimSpace(c.Query("deviceId"))}
	for _, raw := range splitCSV(c.QueryArray("storeId")) {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return entrydomain.Scope{}, entrydomain.ErrInvalidStoreID
		}
		scope.StoreIDs = append(scope.StoreIDs, id)
	}
	return scope, nil
}

func (s *Server) GetEntryStats(c *gin.Context) {
	stats, err := s.entrySvc.Stats(c.Request.Context(), listEntryRequestFromQuery(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (s *Server) CreateEntry(c *gin.Context) {
	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	entry, err := s.entrySvc.Create(c.Request.Context(), entrydomain.CreateEntryRequest{
		Barcode:        req.Barcode,
		ProductName:    req.ProductName,
		Category:       req.Category,
		ExpirationDate: req.ExpirationDate,
		Quantity:       req.Quantity,
		Location:       req.Location,
		Notes:          req.Notes,
		ImageURL:       req.ImageURL,
		StoreID:        req.StoreID,
		MemberID:       req.MemberID,
		DeviceID:       deviceID(c, req.DeviceID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, s.renderEntry(entry))
}

func (s *Server) GetEntryByID(c *gin.Context) {
	entry, err := s.entrySvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.renderEntry(entry))
}

func (s *Server) UpdateEntry(c *gin.Context) {
	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	entry, err := s.entrySvc.Update(c.Request.Context(), c.Param("id"), entrydomain.UpdateEntryRequest{
		ProductName:    req.ProductName,
		Category:       req.Category,
		ExpirationDate: req.ExpirationDate,
		Quantity:       req.Quantity,
		Location:       req.Location,
		Notes:          req.Notes,
		ImageURL:       req.ImageURL,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.renderEntry(entry))
}

func (s *Server) DeleteEntry(c *gin.Context) {
	if err := s.entrySvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

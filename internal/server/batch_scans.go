package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	batchdomain "github.com/smallbiznis/shelflife/internal/batch/domain"
	entrydomain "github.com/smallbiznis/shelflife/internal/entry/domain"
)

type createBatchRequest struct {
	DeviceID string `json:"deviceId"`
	Name     string `json:"name"`
	StoreID  string `json:"storeId"`
	MemberID string `json:"memberId"`
}

type addBatchItemRequest struct {
	Barcode        string  `json:"barcode"`
	ProductName    string  `json:"productName"`
	Category       *string `json:"category"`
	ExpirationDate string  `json:"expirationDate"`
	Quantity       *int    `json:"quantity"`
	Location       *string `json:"location"`
	Notes          *string `json:"notes"`
	ImageURL       *string `json:"imageUrl"`
}

type addBatchItemResponse struct {
	Item           batchdomain.ItemResponse `json:"item"`
	BatchItemCount int                      `json:"batchItemCount"`
}

type completeBatchResponse struct {
	Batch          batchdomain.BatchSession `json:"batch"`
	EntriesCreated int                      `json:"entriesCreated"`
	Entries        []entrydomain.Response   `json:"entries"`
	Failed         []batchdomain.FailedItem `json:"failed"`
}

func (s *Server) CreateBatch(c *gin.Context) {
	var req createBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	batch, err := s.batchSvc.Create(c.Request.Context(), batchdomain.CreateBatchRequest{
		DeviceID: deviceID(c, req.DeviceID),
		Name:     req.Name,
		StoreID:  req.StoreID,
		MemberID: req.MemberID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, batch)
}

// ListBatchesByDevice serves GET /api/batch-scans/:id where :id is a device id.
func (s *Server) ListBatchesByDevice(c *gin.Context) {
	batches, err := s.batchSvc.ListByDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, batches)
}

func (s *Server) GetBatchByID(c *gin.Context) {
	batch, err := s.batchSvc.Get(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, batch)
}

func (s *Server) AddBatchItem(c *gin.Context) {
	var req addBatchItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.batchSvc.AddItem(c.Request.Context(), c.Param("id"), batchdomain.AddItemRequest{
		Barcode:        req.Barcode,
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

	c.JSON(http.StatusCreated, addBatchItemResponse{
		Item:           result.Item.ToResponse(),
		BatchItemCount: result.BatchItemCount,
	})
}

func (s *Server) ListBatchItems(c *gin.Context) {
	items, err := s.batchSvc.ListItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := make([]batchdomain.ItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, item.ToResponse())
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CompleteBatch(c *gin.Context) {
	result, err := s.batchSvc.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	failed := result.Failed
	if failed == nil {
		failed = []batchdomain.FailedItem{}
	}
	c.JSON(http.StatusOK, completeBatchResponse{
		Batch:          result.Batch,
		EntriesCreated: result.EntriesCreated,
		Entries:        s.renderEntries(result.Entries),
		Failed:         failed,
	})
}

func (s *Server) DeleteBatch(c *gin.Context) {
	if err := s.batchSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

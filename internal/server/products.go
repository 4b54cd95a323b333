package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/shelflife/internal/catalog/domain"
)

type upsertProductRequest struct {
	Barcode  string  `json:"barcode"`
	Name     string  `json:"name"`
	Category *string `json:"category"`
	ImageURL *string `json:"imageUrl"`
}

func (s *Server) UpsertProduct(c *gin.Context) {
	var req upsertProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	product, err := s.catalogSvc.Upsert(c.Request.Context(), catalogdomain.UpsertRequest{
		Barcode:  req.Barcode,
		Name:     req.Name,
		Category: req.Category,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (s *Server) GetProductByBarcode(c *gin.Context) {
	product, err := s.catalogSvc.GetByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (s *Server) ListProducts(c *gin.Context) {
	products, err := s.catalogSvc.List(c.Request.Context(), catalogdomain.ListProductRequest{
		Query:    strings.TrimSpace(c.Query("q")),
		Category: strings.TrimSpace(c.Query("category")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

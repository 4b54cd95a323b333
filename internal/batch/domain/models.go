package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelflife/internal/expiry"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type BatchSession struct {
	ID          snowflake.ID  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	DeviceID    string        `gorm:"size:128;not null;index" json:"deviceId"`
	Name        string        `gorm:"not null" json:"name"`
	Status      Status        `gorm:"size:32;not null" json:"status"`
	ItemCount   int           `gorm:"not null;default:0" json:"itemCount"`
	StoreID     *snowflake.ID `gorm:"index" json:"storeId"`
	MemberID    *snowflake.ID `json:"memberId"`
	CreatedAt   time.Time     `gorm:"not null" json:"createdAt"`
	CompletedAt *time.Time    `json:"completedAt"`
}

func (BatchSession) TableName() string { return "batch_sessions" }

type BatchItem struct {
	ID             snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	BatchID        snowflake.ID `gorm:"not null;index"`
	Barcode        string       `gorm:"size:128;not null"`
	ProductName    string       `gorm:"not null"`
	Category       *string
	ExpirationDate time.Time `gorm:"type:date;not null"`
	Quantity       int       `gorm:"not null;default:1"`
	Location       *string
	Notes          *string
	ImageURL       *string   `gorm:"column:image_url"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (BatchItem) TableName() string { return "batch_items" }

type ItemResponse struct {
	ID             snowflake.ID `json:"id"`
	BatchID        snowflake.ID `json:"batchId"`
	Barcode        string       `json:"barcode"`
	ProductName    string       `json:"productName"`
	Category       *string      `json:"category"`
	ExpirationDate string       `json:"expirationDate"`
	Quantity       int          `json:"quantity"`
	Location       *string      `json:"location"`
	Notes          *string      `json:"notes"`
	ImageURL       *string      `json:"imageUrl"`
	CreatedAt      time.Time    `json:"createdAt"`
}

func (i BatchItem) ToResponse() ItemResponse {
	return ItemResponse{
		ID:             i.ID,
		BatchID:        i.BatchID,
		Barcode:        i.Barcode,
		ProductName:    i.ProductName,
		Category:       i.Category,
		ExpirationDate: expiry.FormatDate(i.ExpirationDate),
		Quantity:       i.Quantity,
		Location:       i.Location,
		Notes:          i.Notes,
		ImageURL:       i.ImageURL,
		CreatedAt:      i.CreatedAt,
	}
}

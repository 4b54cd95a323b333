package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelflife/internal/expiry"
)

// Entry is one tracked product instance. Status is a cache of the
// classification at the last write; readers that care about "today"
// reclassify.
type Entry struct {
	ID             snowflake.ID  `gorm:"primaryKey;autoIncrement:false"`
	Barcode        string        `gorm:"size:128;not null;index"`
	ProductName    string        `gorm:"not null"`
	Category       *string       `gorm:"column:category"`
	ExpirationDate time.Time     `gorm:"type:date;not null;index"`
	Quantity       int           `gorm:"not null;default:1"`
	Location       *string       `gorm:"column:location"`
	Notes          *string       `gorm:"column:notes"`
	ImageURL       *string       `gorm:"column:image_url"`
	Status         expiry.Status `gorm:"size:32;not null"`
	StoreID        *snowflake.ID `gorm:"index"`
	MemberID       *snowflake.ID `gorm:"column:member_id"`
	DeviceID       string        `gorm:"size:128;index"`
	CreatedAt      time.Time     `gorm:"not null"`
	UpdatedAt      time.Time     `gorm:"not null"`
}

func (Entry) TableName() string { return "product_entries" }

type Response struct {
	ID                  snowflake.ID  `json:"id"`
	Barcode             string        `json:"barcode"`
	ProductName         string        `json:"productName"`
	Category            *string       `json:"category"`
	ExpirationDate      string        `json:"expirationDate"`
	DaysUntilExpiration int           `json:"daysUntilExpiration"`
	Quantity            int           `json:"quantity"`
	Location            *string       `json:"location"`
	Notes               *string       `json:"notes"`
	ImageURL            *string       `json:"imageUrl"`
	Status              expiry.Status `json:"status"`
	StoreID             *snowflake.ID `json:"storeId"`
	MemberID            *snowflake.ID `json:"memberId"`
	DeviceID            string        `json:"deviceId"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// ToResponse renders the entry as of today.
func (e Entry) ToResponse(policy expiry.Policy, today time.Time) Response {
	return Response{
		ID:                  e.ID,
		Barcode:             e.Barcode,
		ProductName:         e.ProductName,
		Category:            e.Category,
		ExpirationDate:      expiry.FormatDate(e.ExpirationDate),
		DaysUntilExpiration: expiry.DaysUntil(e.ExpirationDate, today),
		Quantity:            e.Quantity,
		Location:            e.Location,
		Notes:               e.Notes,
		ImageURL:            e.ImageURL,
		Status:              policy.Classify(e.ExpirationDate, today),
		StoreID:             e.StoreID,
		MemberID:            e.MemberID,
		DeviceID:            e.DeviceID,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}

type Stats struct {
	Total        int `json:"total"`
	Fresh        int `json:"fresh"`
	ExpiringSoon int `json:"expiringSoon"`
	Expired      int `json:"expired"`
}

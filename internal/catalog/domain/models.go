package domain

import "time"

// Product is the shared catalog record for a barcode.
type Product struct {
	Barcode   string    `gorm:"primaryKey;size:128" json:"barcode"`
	Name      string    `gorm:"not null" json:"name"`
	Category  *string   `gorm:"column:category" json:"category"`
	ImageURL  *string   `gorm:"column:image_url" json:"imageUrl"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (Product) TableName() string { return "products" }

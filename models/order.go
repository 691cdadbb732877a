package models

import (
	"time"
)

type Order struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID    string    `json:"userId" gorm:"type:uuid;not null;index"`
	SanityID  *string   `json:"sanityId" gorm:"index"`
	Status    string    `json:"status"`
	Total     int       `json:"total"`
	IsDeleted bool      `json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type OrderItem struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrderID   string    `json:"orderId" gorm:"type:uuid;not null;index"`
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	Price     int       `json:"price"`
	IsDeleted bool      `json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

package models

import (
	"time"
)

type Product struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"               json:"id"`
	Title       string    `gorm:"not null"                               json:"title"`
	Description string    `gorm:"not null"                               json:"description"`
	Price       int64     `gorm:"not null;check:price >= 0"              json:"price"`
	Category    Category  `gorm:"index;not null"                         json:"category"`
	Stock       int       `gorm:"not null;check:stock >= 0"              json:"stock"`
	ImageFileID string    `gorm:"not null"                               json:"image_file_id,omitempty"`
	VideoFileID string    `gorm:"not null"                               json:"video_file_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p Product) InStock() bool { return p.Stock > 0 }

type Order struct {
	ID            uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber   string      `gorm:"uniqueIndex;not null"     json:"order_number"`
	UserID        int64       `gorm:"index;not null"           json:"user_id"`
	ProductID     uint        `gorm:"index;not null"           json:"product_id"`
	FullName      string      `gorm:"not null"                 json:"full_name"`
	Phone         string      `gorm:"not null"                 json:"phone"`
	City          string      `gorm:"not null"                 json:"city"`
	Address       string      `gorm:"not null"                 json:"address"`
	Status        OrderStatus `gorm:"index;not null"           json:"status"`
	ReceiptFileID string      `gorm:"not null"                 json:"receipt_file_id,omitempty"`
	CheckoutKey   *string     `gorm:"uniqueIndex"              json:"-"`
	RemindedAt    *time.Time  `json:"reminded_at,omitempty"`
	CreatedAt     time.Time   `gorm:"index"                    json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// User is a chat-platform customer keyed by their platform id.
type User struct {
	ID          int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username    string    `gorm:"not null"                       json:"username"`
	FullName    string    `gorm:"not null"                       json:"full_name"`
	Lang        Lang      `gorm:"not null"                       json:"lang"`
	LastCity    string    `gorm:"not null"                       json:"last_city"`
	LastAddress string    `gorm:"not null"                       json:"last_address"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Favorite struct {
	ID        uint      `gorm:"primaryKey"                             json:"id"`
	UserID    int64     `gorm:"uniqueIndex:idx_fav_user_product;not null" json:"user_id"`
	ProductID uint      `gorm:"uniqueIndex:idx_fav_user_product;not null" json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey"     json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	OrderID   *uint     `gorm:"index"          json:"order_id,omitempty"`
	Text      string    `gorm:"not null"       json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type StockSubscription struct {
	ID        uint      `gorm:"primaryKey"                              json:"id"`
	UserID    int64     `gorm:"uniqueIndex:idx_sub_user_product;not null" json:"user_id"`
	ProductID uint      `gorm:"uniqueIndex:idx_sub_user_product;not null" json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

type AdminUser struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username   string    `gorm:"uniqueIndex;not null"     json:"username"`
	SecretHash string    `gorm:"not null"                 json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

type AIMessage struct {
	ID        uint      `gorm:"primaryKey"     json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	Role      string    `gorm:"not null"       json:"role"`
	Content   string    `gorm:"not null"       json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (AIMessage) TableName() string { return "ai_history" }

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&Product{}, &Order{}, &User{}, &Favorite{}, &Review{},
		&StockSubscription{}, &AdminUser{}, &AIMessage{},
	}
}

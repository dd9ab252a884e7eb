package service

import (
	"strconv"
	"time"

	"github.com/Skotchmaster/laptop_shop/internal/models"
)

const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
	EventOrderReceipt       = "order_receipt_received"
	EventOrderDeleted       = "order_deleted"
	EventProductCreated     = "product_created"
	EventProductUpdated     = "product_updated"
	EventProductDeleted     = "product_deleted"
)

// OrderEvent is the payload published on the order topic, keyed by order number.
func OrderEvent(typ string, o *models.Order) map[string]any {
	return map[string]any{
		"type":         typ,
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"user_id":      o.UserID,
		"product_id":   o.ProductID,
		"status":       o.Status,
		"at":           time.Now().UTC(),
	}
}

func ProductEvent(typ string, p *models.Product) map[string]any {
	return map[string]any{
		"type":       typ,
		"product_id": p.ID,
		"title":      p.Title,
		"category":   p.Category,
		"price":      p.Price,
		"stock":      p.Stock,
		"at":         time.Now().UTC(),
	}
}

func productKey(id uint) string { return strconv.FormatUint(uint64(id), 10) }

package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/laptop_shop/internal/models"
)

const orderNumberAttempts = 3

type OrderFilter struct {
	Status        models.OrderStatus
	ExcludeStatus models.OrderStatus
	Search        string
	From          *time.Time
	To            *time.Time // exclusive
	Asc           bool
	Offset        int
	Limit         int // 0 means no limit
}

// createWithNumber inserts order under a fresh order number, retrying on a number collision.
// Each attempt runs in a nested transaction so a failed insert does not abort the outer one.
func createWithNumber(tx *gorm.DB, order *models.Order) error {
	var err error
	for i := 0; i < orderNumberAttempts; i++ {
		order.ID = 0
		order.OrderNumber = models.NewOrderNumber(time.Now())
		err = tx.Transaction(func(inner *gorm.DB) error {
			return inner.Create(order).Error
		})
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}
	return err
}

// CreateOrder stores an order without touching stock. Used for manual orders.
func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createWithNumber(tx, order)
	}); err != nil {
		return nil, err
	}
	return order, nil
}

// PlaceOrder reserves one unit of the product and creates the order in a single
// transaction. When order.CheckoutKey matches an existing order that order is
// returned with created=false and stock is left alone.
func (r *GormRepo) PlaceOrder(ctx context.Context, order *models.Order) (*models.Order, bool, error) {
	created := false

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if order.CheckoutKey != nil {
			var existing models.Order
			err := tx.Where("checkout_key = ?", *order.CheckoutKey).First(&existing).Error
			if err == nil {
				*order = existing
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock > 0", order.ProductID).
			Update("stock", gorm.Expr("stock - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOutOfStock
		}

		if err := createWithNumber(tx, order); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return order, created, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, f OrderFilter) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ExcludeStatus != "" {
		q = q.Where("status <> ?", f.ExcludeStatus)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := likePattern(strings.ToLower(s))
		q = q.Where("LOWER(order_number) LIKE ? OR phone LIKE ? OR LOWER(full_name) LIKE ?", p, likePattern(s), p)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	if f.Asc {
		q = q.Order("created_at ASC, id ASC")
	} else {
		q = q.Order("created_at DESC, id DESC")
	}
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

func (r *GormRepo) ListUserOrders(ctx context.Context, userID int64, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// SetOrderStatus moves the order to status. changed is false when the order already had it.
func (r *GormRepo) SetOrderStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status <> ?", id, status).
		Update("status", status)
	if res.Error != nil {
		return nil, false, res.Error
	}

	order, err := r.GetOrder(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return order, res.RowsAffected > 0, nil
}

// AttachReceipt stores the receipt reference on the customer's order and marks it receipt_received.
func (r *GormRepo) AttachReceipt(ctx context.Context, orderID uint, userID int64, fileID string) (*models.Order, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND user_id = ?", orderID, userID).
		Updates(map[string]any{
			"receipt_file_id": fileID,
			"status":          models.StatusReceiptReceived,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetOrder(ctx, orderID)
}

// DeleteShippedOrder removes the order only when its status is shipped.
func (r *GormRepo) DeleteShippedOrder(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.StatusShipped).
		Delete(&models.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	if _, err := r.GetOrder(ctx, id); err != nil {
		return err
	}
	return ErrNotShipped
}

// OrdersForReminder returns orders still waiting for a receipt that were created before
// createdBefore and were not reminded since remindedBefore.
func (r *GormRepo) OrdersForReminder(ctx context.Context, createdBefore, remindedBefore time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Where("status IN ?", []models.OrderStatus{models.StatusNew, models.StatusAwaitingPayment}).
		Where("created_at < ?", createdBefore).
		Where("reminded_at IS NULL OR reminded_at < ?", remindedBefore).
		Order("id ASC").
		Find(&orders).Error
	return orders, err
}

func (r *GormRepo) MarkReminded(ctx context.Context, id uint, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("reminded_at", at).Error
}

func (r *GormRepo) CountOrdersByStatus(ctx context.Context) (map[models.OrderStatus]int64, error) {
	var rows []struct {
		Status models.OrderStatus
		N      int64
	}
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[models.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

func (r *GormRepo) CountOrdersSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Order{}).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}

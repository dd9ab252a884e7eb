package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/laptop_shop/internal/models"
	"github.com/Skotchmaster/laptop_shop/internal/notify"
	"github.com/Skotchmaster/laptop_shop/internal/repo"
	"github.com/Skotchmaster/laptop_shop/internal/transport"
	"github.com/Skotchmaster/laptop_shop/pkg/logging"
	"github.com/Skotchmaster/laptop_shop/pkg/mykafka"
)

type OrderService struct {
	Repo   *repo.GormRepo
	Notify *notify.Dispatcher
	Events mykafka.Publisher
}

// OrderView is an order together with its product, which may be gone.
type OrderView struct {
	models.Order
	StatusLabel string          `json:"status_label"`
	Product     *models.Product `json:"product"`
}

func (s *OrderService) Get(ctx context.Context, id uint) (*OrderView, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, translate(err, "order")
	}
	view := &OrderView{Order: *order, StatusLabel: order.Status.Label()}
	if p, err := s.Repo.GetProduct(ctx, order.ProductID); err == nil {
		view.Product = p
	}
	return view, nil
}

func (s *OrderService) List(ctx context.Context, f repo.OrderFilter) (int64, []models.Order, error) {
	return s.Repo.ListOrders(ctx, f)
}

// Create stores a manual order. Stock is left untouched.
func (s *OrderService) Create(ctx context.Context, req transport.CreateOrderRequest) (*models.Order, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.City = strings.TrimSpace(req.City)
	req.Address = strings.TrimSpace(req.Address)

	switch {
	case req.UserID == 0:
		return nil, fmt.Errorf("%w: user_id required", ErrValidation)
	case req.ProductID == 0:
		return nil, fmt.Errorf("%w: product_id required", ErrValidation)
	case req.FullName == "", req.Phone == "", req.City == "", req.Address == "":
		return nil, fmt.Errorf("%w: full_name, phone, city and address are required", ErrValidation)
	}

	if _, err := s.Repo.GetProduct(ctx, req.ProductID); err != nil {
		if err = translate(err, "product"); errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: product %d does not exist", ErrValidation, req.ProductID)
		}
		return nil, err
	}

	order, err := s.Repo.CreateOrder(ctx, &models.Order{
		UserID:    req.UserID,
		ProductID: req.ProductID,
		FullName:  req.FullName,
		Phone:     req.Phone,
		City:      req.City,
		Address:   req.Address,
		Status:    models.StatusNew,
	})
	if err != nil {
		return nil, err
	}

	mykafka.Publish(ctx, s.Events, mykafka.TopicOrderEvents, order.OrderNumber, OrderEvent(EventOrderCreated, order))
	return order, nil
}

// SetStatus parses raw and applies it. See SetStatusTo.
func (s *OrderService) SetStatus(ctx context.Context, id uint, raw string) (*models.Order, bool, error) {
	status, err := models.ParseStatus(strings.TrimSpace(raw))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.SetStatusTo(ctx, id, status)
}

// SetStatusTo moves the order to status. Side effects run only when the status actually changed.
func (s *OrderService) SetStatusTo(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, bool, error) {
	l := logging.FromContext(ctx).With("svc", "order.set_status", "order_id", id, "status", status)

	order, changed, err := s.Repo.SetOrderStatus(ctx, id, status)
	if err != nil {
		return nil, false, translate(err, "order")
	}
	if !changed {
		return order, false, nil
	}

	l.Info("order_status_changed")
	if s.Notify != nil {
		s.Notify.StatusChanged(ctx, order)
	}
	mykafka.Publish(ctx, s.Events, mykafka.TopicOrderEvents, order.OrderNumber, OrderEvent(EventOrderStatusChanged, order))
	return order, true, nil
}

// Delete removes a shipped order; any other status is a conflict.
func (s *OrderService) Delete(ctx context.Context, id uint) error {
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return translate(err, "order")
	}
	if err := s.Repo.DeleteShippedOrder(ctx, id); err != nil {
		return translate(err, "order")
	}
	mykafka.Publish(ctx, s.Events, mykafka.TopicOrderEvents, order.OrderNumber, OrderEvent(EventOrderDeleted, order))
	return nil
}

type Stats struct {
	OrdersTotal   int64                        `json:"orders_total"`
	OrdersToday   int64                        `json:"orders_today"`
	ByStatus      map[models.OrderStatus]int64 `json:"by_status"`
	ProductsTotal int64                        `json:"products_total"`
	LowStock      int64                        `json:"low_stock"`
	OutOfStock    int64                        `json:"out_of_stock"`
}

func (s *OrderService) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	byStatus, err := s.Repo.CountOrdersByStatus(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{ByStatus: make(map[models.OrderStatus]int64, len(models.Statuses()))}
	for _, status := range models.Statuses() {
		st.ByStatus[status] = byStatus[status]
		st.OrdersTotal += byStatus[status]
	}

	y, m, d := now.UTC().Date()
	if st.OrdersToday, err = s.Repo.CountOrdersSince(ctx, time.Date(y, m, d, 0, 0, 0, 0, time.UTC)); err != nil {
		return nil, err
	}
	if st.ProductsTotal, _, err = s.Repo.ListProducts(ctx, repo.ProductFilter{Limit: 1}); err != nil {
		return nil, err
	}
	if st.LowStock, err = s.Repo.CountLowStock(ctx); err != nil {
		return nil, err
	}
	if st.OutOfStock, err = s.Repo.CountOutOfStock(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

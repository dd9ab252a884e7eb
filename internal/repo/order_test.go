package repo_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/laptop_shop/internal/models"
	"github.com/Skotchmaster/laptop_shop/internal/repo"
	"github.com/Skotchmaster/laptop_shop/internal/repo/repotest"
)

func newOrder(userID int64, productID uint) *models.Order {
	return &models.Order{
		UserID:    userID,
		ProductID: productID,
		FullName:  "Ann Lee",
		Phone:     "+992901112233",
		City:      "Dushanbe",
		Address:   "Rudaki 1",
		Status:    models.StatusNew,
	}
}

func TestPlaceOrder_RoundTrip(t *testing.T) {
	r := repotest.NewRepo(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		repotest.Product(t, r, "filler", 100, 1)
	}
	p := repotest.Product(t, r, "ThinkPad", 3200, 5)
	require.EqualValues(t, 5, p.ID)

	order, created, err := r.PlaceOrder(ctx, newOrder(1, 5))
	require.NoError(t, err)
	require.True(t, created)

	got, err := r.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.UserID)
	assert.EqualValues(t, 5, got.ProductID)
	assert.Equal(t, "Ann Lee", got.FullName)
	assert.Equal(t, "+992901112233", got.Phone)
	assert.Equal(t, "Dushanbe", got.City)
	assert.Equal(t, "Rudaki 1", got.Address)
	assert.Equal(t, models.StatusNew, got.Status)
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{8}$`, got.OrderNumber)

	stock, err := r.ProductStock(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 4, stock)
}

func TestPlaceOrder_OutOfStock(t *testing.T) {
	r := repotest.NewRepo(t)
	ctx := context.Background()
	p := repotest.Product(t, r, "Vostro", 2800, 0)

	_, _, err := r.PlaceOrder(ctx, newOrder(1, p.ID))
	require.ErrorIs(t, err, repo.ErrOutOfStock)

	var n int64
	require.NoError(t, r.DB.Model(&models.Order{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestPlaceOrder_SameCheckoutKeyDecrementsOnce(t *testing.T) {
	r := repotest.NewRepo(t)
	ctx := context.Background()
	p := repotest.Product(t, r, "Legion", 4200, 3)

	key := "checkout-key-1"
	first := newOrder(7, p.ID)
	first.CheckoutKey = &key
	o1, created, err := r.PlaceOrder(ctx, first)
	require.NoError(t, err)
	require.True(t, created)

	retry := newOrder(7, p.ID)
	retry.CheckoutKey = &key
	o2, created, err := r.PlaceOrder(ctx, retry)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, o1.ID, o2.ID)
	assert.Equal(t, o1.OrderNumber, o2.OrderNumber)

	stock, err := r.ProductStock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stock)
}

func TestPlaceOrder_ConcurrentLastUnit(t *testing.T) {
	r := repotest.NewRepo(t)
	ctx := context.Background()
	p := repotest.Product(t, r, "Strix", 4500, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = r.PlaceOrder(ctx, newOrder(int64(i+1), p.ID))
		}(i)
	}
	wg.Wait()

	var ok, outOfStock int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, repo.ErrOutOfStock):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, outOfStock)

	stock, err := r.ProductStock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stock)
}

func TestDeleteShippedOrder(t *testing.T) {
	r := repotest.NewRepo(t)
	ctx := context.Background()
	p := repotest.Product(t, r, "Aspire", 1800, 2)

	order, err := r.CreateOrder(ctx, newOrder(1, p.ID))
	require.NoError(t, err)

	for _, st := range []models.OrderStatus{models.StatusNew, models.StatusAwaitingPayment, models.StatusReceiptReceived, models.StatusPaid} {
		_, _, err := r.SetOrderStatus(ctx, order.ID, st)
		require.NoError(t, err)
		assert.ErrorIs(t, r.DeleteShippedOrder(ctx, order.ID), repo.ErrNotShipped, st)
	}

	_, _, err = r.SetOrderStatus(ctx, order.ID, models.StatusShipped)
	require.NoError(t, err)
	require.NoError(t, r.DeleteShippedOrder(ctx, order.ID))

	assert.ErrorIs(t, r.DeleteShippedOrder(ctx, order.ID), gorm.ErrRecordNotFound)
}

func TestCreateOrder_DoesNotTouchStock(t *testing.T) {
	r := repotest.NewRepo(t)
	ctx := context.Background()
	p := repotest.Product(t, r, "Pavilion", 2200, 0)

	_, err := r.CreateOrder(ctx, newOrder(1, p.ID))
	require.NoError(t, err)

	stock, err := r.ProductStock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stock)
}

func TestSetOrderStatus_ChangedFlag(t *testing.T) {
	r := repotest.NewRepo(t)
	ctx := context.Background()
	p := repotest.Product(t, r, "Aspire", 1800, 2)
	order, err := r.CreateOrder(ctx, newOrder(1, p.ID))
	require.NoError(t, err)

	got, changed, err := r.SetOrderStatus(ctx, order.ID, models.StatusPaid)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.StatusPaid, got.Status)

	_, changed, err = r.SetOrderStatus(ctx, order.ID, models.StatusPaid)
	require.NoError(t, err)
	assert.False(t, changed)

	_, _, err = r.SetOrderStatus(ctx, 999, models.StatusPaid)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAttachReceipt(t *testing.T) {
	r := repotest.NewRepo(t)
	ctx := context.Background()
	p := repotest.Product(t, r, "Aspire", 1800, 2)
	order, err := r.CreateOrder(ctx, newOrder(11, p.ID))
	require.NoError(t, err)

	_, err = r.AttachReceipt(ctx, order.ID, 12, "file-x")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	got, err := r.AttachReceipt(ctx, order.ID, 11, "file-x")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReceiptReceived, got.Status)
	assert.Equal(t, "file-x", got.ReceiptFileID)
}

func TestOrdersForReminder(t *testing.T) {
	r := repotest.NewRepo(t)
	ctx := context.Background()
	p := repotest.Product(t, r, "Aspire", 1800, 9)
	now := time.Now().UTC()

	old, err := r.CreateOrder(ctx, newOrder(1, p.ID))
	require.NoError(t, err)
	require.NoError(t, r.DB.Model(old).Update("created_at", now.Add(-8*time.Hour)).Error)

	paid, err := r.CreateOrder(ctx, newOrder(2, p.ID))
	require.NoError(t, err)
	require.NoError(t, r.DB.Model(paid).Updates(map[string]any{"created_at": now.Add(-8 * time.Hour), "status": models.StatusPaid}).Error)

	_, err = r.CreateOrder(ctx, newOrder(3, p.ID))
	require.NoError(t, err)

	due, err := r.OrdersForReminder(ctx, now.Add(-6*time.Hour), now.Add(-6*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, old.ID, due[0].ID)

	require.NoError(t, r.MarkReminded(ctx, old.ID, now))
	due, err = r.OrdersForReminder(ctx, now.Add(-6*time.Hour), now.Add(-6*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestListOrders_Filters(t *testing.T) {
	r := repotest.NewRepo(t)
	ctx := context.Background()
	p := repotest.Product(t, r, "Aspire", 1800, 9)

	a := newOrder(1, p.ID)
	a.Phone = "+992900000001"
	_, err := r.CreateOrder(ctx, a)
	require.NoError(t, err)

	b := newOrder(2, p.ID)
	b.Phone = "+992900000002"
	b.Status = models.StatusShipped
	_, err = r.CreateOrder(ctx, b)
	require.NoError(t, err)

	total, items, err := r.ListOrders(ctx, repo.OrderFilter{Status: models.StatusShipped})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "+992900000002", items[0].Phone)

	total, _, err = r.ListOrders(ctx, repo.OrderFilter{ExcludeStatus: models.StatusShipped})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	total, items, err = r.ListOrders(ctx, repo.OrderFilter{Search: "0001"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, "+992900000001", items[0].Phone)

	total, items, err = r.ListOrders(ctx, repo.OrderFilter{Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 1)

	counts, err := r.CountOrdersByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[models.StatusNew])
	assert.EqualValues(t, 1, counts[models.StatusShipped])
}

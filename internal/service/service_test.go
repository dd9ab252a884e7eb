package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/laptop_shop/internal/callback"
	"github.com/Skotchmaster/laptop_shop/internal/messenger/messengertest"
	"github.com/Skotchmaster/laptop_shop/internal/models"
	"github.com/Skotchmaster/laptop_shop/internal/notify"
	"github.com/Skotchmaster/laptop_shop/internal/repo"
	"github.com/Skotchmaster/laptop_shop/internal/repo/repotest"
	"github.com/Skotchmaster/laptop_shop/internal/transport"
	"github.com/Skotchmaster/laptop_shop/pkg/mykafka"
	"github.com/Skotchmaster/laptop_shop/pkg/tokens"
)

type fixture struct {
	repo    *repo.GormRepo
	msg     *messengertest.Recorder
	events  *mykafka.Memory
	orders  *OrderService
	catalog *CatalogService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := repotest.NewRepo(t)
	rec := messengertest.New()
	ev := &mykafka.Memory{}
	d := &notify.Dispatcher{Msg: rec, Repo: r, AdminIDs: []int64{900}}
	return &fixture{
		repo:    r,
		msg:     rec,
		events:  ev,
		orders:  &OrderService{Repo: r, Notify: d, Events: ev},
		catalog: &CatalogService{Repo: r, Notify: d, Events: ev},
	}
}

func ptr[T any](v T) *T { return &v }

func TestSetStatus_NotifiesOnlyPaidAndShipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := repotest.Product(t, f.repo, "Aspire", 1800, 3)
	order, err := f.repo.CreateOrder(ctx, &models.Order{
		UserID: 55, ProductID: p.ID, FullName: "Ann Lee", Phone: "+992901112233",
		City: "Dushanbe", Address: "Rudaki 1", Status: models.StatusNew,
	})
	require.NoError(t, err)

	_, changed, err := f.orders.SetStatus(ctx, order.ID, "awaiting_payment")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, f.msg.To(55))

	_, changed, err = f.orders.SetStatus(ctx, order.ID, "paid")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, f.msg.To(55), 1)

	_, changed, err = f.orders.SetStatus(ctx, order.ID, "paid")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, f.msg.To(55), 1, "repeating a status must not notify again")

	_, _, err = f.orders.SetStatus(ctx, order.ID, "shipped")
	require.NoError(t, err)
	msgs := f.msg.To(55)
	require.Len(t, msgs, 2)
	assert.Equal(t, []string{callback.WithID(callback.Review, order.ID)}, messengertest.Buttons(msgs[1]))

	assert.Equal(t,
		[]string{EventOrderStatusChanged, EventOrderStatusChanged, EventOrderStatusChanged},
		f.events.Types(mykafka.TopicOrderEvents))
}

func TestSetStatus_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.orders.SetStatus(ctx, 1, "lost")
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = f.orders.SetStatus(ctx, 404, "paid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateManualOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := repotest.Product(t, f.repo, "Vostro", 2800, 0)

	tests := []struct {
		name string
		req  transport.CreateOrderRequest
		err  error
	}{
		{"missing user", transport.CreateOrderRequest{ProductID: p.ID, FullName: "a", Phone: "b", City: "c", Address: "d"}, ErrValidation},
		{"missing address", transport.CreateOrderRequest{UserID: 1, ProductID: p.ID, FullName: "a", Phone: "b", City: "c", Address: "  "}, ErrValidation},
		{"unknown product", transport.CreateOrderRequest{UserID: 1, ProductID: 99, FullName: "a", Phone: "b", City: "c", Address: "d"}, ErrValidation},
		{"ok", transport.CreateOrderRequest{UserID: 1, ProductID: p.ID, FullName: "Ann", Phone: "+992", City: "Khujand", Address: "Lenin 5"}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o, err := f.orders.Create(ctx, tc.req)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.StatusNew, o.Status)
			assert.NotEmpty(t, o.OrderNumber)
		})
	}

	stock, err := f.repo.ProductStock(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, stock, "manual orders never touch stock")
	assert.Equal(t, []string{EventOrderCreated}, f.events.Types(mykafka.TopicOrderEvents))
}

func TestDeleteOrder_Guard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := repotest.Product(t, f.repo, "Vostro", 2800, 1)
	o, err := f.orders.Create(ctx, transport.CreateOrderRequest{UserID: 1, ProductID: p.ID, FullName: "Ann", Phone: "+992", City: "Khujand", Address: "Lenin 5"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.orders.Delete(ctx, o.ID), ErrConflict)
	_, err = f.orders.Get(ctx, o.ID)
	require.NoError(t, err, "order must survive a rejected delete")

	_, _, err = f.orders.SetStatusTo(ctx, o.ID, models.StatusShipped)
	require.NoError(t, err)
	require.NoError(t, f.orders.Delete(ctx, o.ID))
	assert.ErrorIs(t, f.orders.Delete(ctx, o.ID), ErrNotFound)
}

func TestGetOrder_MissingProductDegrades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := repotest.Product(t, f.repo, "Vostro", 2800, 1)
	o, err := f.orders.Create(ctx, transport.CreateOrderRequest{UserID: 1, ProductID: p.ID, FullName: "Ann", Phone: "+992", City: "Khujand", Address: "Lenin 5"})
	require.NoError(t, err)
	require.NoError(t, f.catalog.Delete(ctx, p.ID))

	view, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Product)
	assert.Equal(t, "Новый", view.StatusLabel)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := repotest.Product(t, f.repo, "Vostro", 2800, 1)
	repotest.Product(t, f.repo, "Aspire", 1800, 0)
	_, err := f.orders.Create(ctx, transport.CreateOrderRequest{UserID: 1, ProductID: p.ID, FullName: "Ann", Phone: "+992", City: "Khujand", Address: "Lenin 5"})
	require.NoError(t, err)

	st, err := f.orders.Stats(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.OrdersTotal)
	assert.EqualValues(t, 1, st.OrdersToday)
	assert.EqualValues(t, 1, st.ByStatus[models.StatusNew])
	assert.EqualValues(t, 0, st.ByStatus[models.StatusShipped])
	assert.EqualValues(t, 2, st.ProductsTotal)
	assert.EqualValues(t, 1, st.LowStock)
	assert.EqualValues(t, 1, st.OutOfStock)
}

func TestCatalogCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  transport.CreateProductRequest
	}{
		{"empty title", transport.CreateProductRequest{Title: " ", Category: "work"}},
		{"negative price", transport.CreateProductRequest{Title: "x", Price: -1, Category: "work"}},
		{"negative stock", transport.CreateProductRequest{Title: "x", Stock: -1, Category: "work"}},
		{"bad category", transport.CreateProductRequest{Title: "x", Category: "phones"}},
	}
	for _, tc := range tests {
		_, err := f.catalog.Create(ctx, tc.req)
		assert.ErrorIs(t, err, ErrValidation, tc.name)
	}

	p, err := f.catalog.Create(ctx, transport.CreateProductRequest{Title: "MacBook Air", Price: 9000, Category: "work", Stock: 2})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, []string{EventProductCreated}, f.events.Types(mykafka.TopicProductEvents))
}

func TestCatalogPatch_RestockNotifiesSubscribers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := repotest.Product(t, f.repo, "Legion", 4200, 0)
	require.NoError(t, f.repo.SubscribeStock(ctx, 31, p.ID))

	_, err := f.catalog.Patch(ctx, transport.PatchProductRequest{Price: ptr(int64(4100))}, p.ID)
	require.NoError(t, err)
	assert.Empty(t, f.msg.To(31), "price change alone must not notify")

	_, err = f.catalog.Patch(ctx, transport.PatchProductRequest{Stock: ptr(-1)}, p.ID)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.catalog.Patch(ctx, transport.PatchProductRequest{Category: ptr("phones")}, p.ID)
	assert.ErrorIs(t, err, ErrValidation)

	got, err := f.catalog.Patch(ctx, transport.PatchProductRequest{Stock: ptr(4)}, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Stock)
	assert.Len(t, f.msg.To(31), 1)

	_, err = f.catalog.Patch(ctx, transport.PatchProductRequest{Stock: ptr(5)}, p.ID)
	require.NoError(t, err)
	assert.Len(t, f.msg.To(31), 1)

	_, err = f.catalog.Patch(ctx, transport.PatchProductRequest{Stock: ptr(5)}, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

type fakeIndex struct {
	indexed []uint
	removed []uint
	ids     []uint
	err     error
}

func (f *fakeIndex) IndexProduct(_ context.Context, p *models.Product) error {
	f.indexed = append(f.indexed, p.ID)
	return nil
}

func (f *fakeIndex) RemoveProduct(_ context.Context, id uint) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeIndex) SearchIDs(context.Context, string, int) ([]uint, error) {
	return f.ids, f.err
}

func TestCatalogSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := repotest.Product(t, f.repo, "Acer Aspire 5", 1800, 1)
	b := repotest.Product(t, f.repo, "Lenovo Legion 5", 4200, 1)

	_, err := f.catalog.Search(ctx, "a", 10)
	assert.ErrorIs(t, err, ErrValidation)

	items, err := f.catalog.Search(ctx, "legion", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)

	idx := &fakeIndex{ids: []uint{b.ID, 404, a.ID}}
	f.catalog.Index = idx
	items, err = f.catalog.Search(ctx, "laptop", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)

	idx.err = errors.New("cluster down")
	items, err = f.catalog.Search(ctx, "aspire", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, items[0].ID)

	require.NoError(t, f.catalog.Reindex(ctx))
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, idx.indexed)
	require.NoError(t, f.catalog.Delete(ctx, a.ID))
	assert.Equal(t, []uint{a.ID}, idx.removed)
}

func TestAdminLoginAndBootstrap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := &AdminService{Repo: f.repo, Secret: []byte("s3cret-shared"), TokenTTL: time.Hour}

	created, err := svc.Bootstrap(ctx)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = svc.Bootstrap(ctx)
	require.NoError(t, err)
	assert.False(t, created)

	res, err := svc.Login(ctx, transport.LoginRequest{Username: "admin", SecretKey: "s3cret-shared"})
	require.NoError(t, err)
	claims, err := tokens.AdminClaimsFromToken(res.Token, svc.Secret)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)

	_, err = svc.Login(ctx, transport.LoginRequest{Username: "admin", SecretKey: "wrong"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Login(ctx, transport.LoginRequest{Username: "ghost", SecretKey: "wrong"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Login(ctx, transport.LoginRequest{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAdminUsersCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := &AdminService{Repo: f.repo, Secret: []byte("x"), TokenTTL: time.Hour}

	_, err := svc.Create(ctx, transport.CreateAdminRequest{Username: "", SecretKey: "abcd"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Create(ctx, transport.CreateAdminRequest{Username: "kate", SecretKey: "abc"})
	assert.ErrorIs(t, err, ErrValidation)

	u, err := svc.Create(ctx, transport.CreateAdminRequest{Username: "kate", Password: "abcd"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, transport.CreateAdminRequest{Username: "kate", SecretKey: "efgh"})
	assert.ErrorIs(t, err, ErrConflict)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, u.ID))
	assert.ErrorIs(t, svc.Delete(ctx, u.ID), ErrNotFound)
}

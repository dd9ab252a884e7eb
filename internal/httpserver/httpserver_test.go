package httpserver

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/laptop_shop/internal/messenger"
	"github.com/Skotchmaster/laptop_shop/internal/messenger/messengertest"
	"github.com/Skotchmaster/laptop_shop/internal/models"
	"github.com/Skotchmaster/laptop_shop/internal/notify"
	"github.com/Skotchmaster/laptop_shop/internal/repo"
	"github.com/Skotchmaster/laptop_shop/internal/repo/repotest"
	"github.com/Skotchmaster/laptop_shop/internal/service"
	"github.com/Skotchmaster/laptop_shop/pkg/mykafka"
	"github.com/Skotchmaster/laptop_shop/pkg/tokens"
)

const testSecret = "s3cret-key"

type harness struct {
	e      *echo.Echo
	repo   *repo.GormRepo
	msg    *messengertest.Recorder
	events *mykafka.Memory
	auth   *AdminAuth
}

func newHarness(t *testing.T, withMessenger bool) *harness {
	t.Helper()
	r := repotest.NewRepo(t)
	rec := messengertest.New()
	ev := &mykafka.Memory{}
	d := &notify.Dispatcher{Msg: rec, Repo: r, AdminIDs: []int64{900}}

	media := &MediaProxy{}
	if withMessenger {
		media.Msg = rec
	}
	h := &harness{
		e:      echo.New(),
		repo:   r,
		msg:    rec,
		events: ev,
		auth:   &AdminAuth{Secret: []byte(testSecret)},
	}
	Register(h.e, &Deps{
		Repo:    r,
		Auth:    h.auth,
		Admins:  &AdminHTTP{Svc: &service.AdminService{Repo: r, Secret: []byte(testSecret), TokenTTL: time.Hour}},
		Orders:  &OrderHTTP{Svc: &service.OrderService{Repo: r, Notify: d, Events: ev}, Media: media},
		Catalog: &CatalogHTTP{Svc: &service.CatalogService{Repo: r, Notify: d, Events: ev}, Media: media},
	})
	return h
}

func (h *harness) do(method, target string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(HeaderAdminToken, testSecret)
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func (h *harness) order(t *testing.T, userID int64, p *models.Product, status models.OrderStatus) *models.Order {
	t.Helper()
	o, err := h.repo.CreateOrder(context.Background(), &models.Order{
		UserID: userID, ProductID: p.ID, FullName: "Ann Lee", Phone: "+992901112233",
		City: "Dushanbe", Address: "Rudaki 1", Status: status,
	})
	require.NoError(t, err)
	return o
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	h := newHarness(t, false)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		h.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestAdminAuth_TokenSources(t *testing.T) {
	h := newHarness(t, false)
	jwtTok, err := tokens.IssueAdminToken([]byte(testSecret), 1, "root", time.Hour)
	require.NoError(t, err)
	otherTok, err := tokens.IssueAdminToken([]byte("another"), 1, "root", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		setup  func(r *http.Request)
		target string
		want   int
	}{
		{"missing", func(r *http.Request) {}, "/api/stats", http.StatusUnauthorized},
		{"shared secret header", func(r *http.Request) { r.Header.Set(HeaderAdminToken, testSecret) }, "/api/stats", http.StatusOK},
		{"wrong secret", func(r *http.Request) { r.Header.Set(HeaderAdminToken, "nope") }, "/api/stats", http.StatusUnauthorized},
		{"bearer jwt", func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+jwtTok) }, "/api/stats", http.StatusOK},
		{"jwt signed elsewhere", func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+otherTok) }, "/api/stats", http.StatusUnauthorized},
		{"query token", func(r *http.Request) {}, "/api/stats?token=" + testSecret, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			h.e.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAdminAuth_EmptySecretDenies(t *testing.T) {
	a := &AdminAuth{}
	_, err := a.verify("")
	assert.ErrorIs(t, err, errNoSecret)
	_, err = a.verify("anything")
	assert.ErrorIs(t, err, errNoSecret)
}

func TestAdminAuth_AllowedIPs(t *testing.T) {
	h := newHarness(t, false)
	h.auth.AllowedIPs = []string{"10.0.0.7"}

	rec := h.do(http.MethodGet, "/api/stats", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set(HeaderAdminToken, testSecret)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	rec = httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_IssuesUsableTokenAndThrottles(t *testing.T) {
	h := newHarness(t, false)
	svc := &service.AdminService{Repo: h.repo, Secret: []byte(testSecret), TokenTTL: time.Hour}
	created, err := svc.Bootstrap(context.Background())
	require.NoError(t, err)
	require.True(t, created)

	login := func(secret string) *httptest.ResponseRecorder {
		b, _ := json.Marshal(map[string]string{"username": service.BootstrapAdminName, "secret_key": secret})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(b))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		h.e.ServeHTTP(rec, req)
		return rec
	}

	rec := login(testSecret)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[service.LoginResult](t, rec)
	assert.Equal(t, service.BootstrapAdminName, res.Username)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+res.Token)
	rec = httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")

	for i := 0; i < LoginAttemptsPerMinute-1; i++ {
		assert.Equal(t, http.StatusUnauthorized, login("wrong").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, login(testSecret).Code)
}

func TestAdminUsers_CRUD(t *testing.T) {
	h := newHarness(t, false)

	rec := h.do(http.MethodPost, "/api/admin/users", map[string]string{"username": "kate", "secret_key": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/admin/users", map[string]string{"username": "kate", "secret_key": "abcd"})
	require.Equal(t, http.StatusCreated, rec.Code)
	u := decode[models.AdminUser](t, rec)

	rec = h.do(http.MethodPost, "/api/admin/users", map[string]string{"username": "kate", "secret_key": "abcdef"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", u.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", u.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrders_FiltersAndMeta(t *testing.T) {
	h := newHarness(t, false)
	p := repotest.Product(t, h.repo, "Vostro", 2800, 5)
	first := h.order(t, 1, p, models.StatusNew)
	h.order(t, 2, p, models.StatusPaid)
	h.order(t, 3, p, models.StatusShipped)

	rec := h.do(http.MethodGet, "/api/orders?size=2&sort=asc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Data []OrderRow    `json:"data"`
		Meta map[string]any `json:"meta"`
	}](t, rec)
	require.Len(t, body.Data, 2)
	assert.Equal(t, first.ID, body.Data[0].ID)
	assert.Equal(t, "Vostro", body.Data[0].ProductTitle)
	assert.Equal(t, int64(2800), body.Data[0].ProductPrice)
	assert.Equal(t, "Новый", body.Data[0].StatusLabel)
	assert.EqualValues(t, 3, body.Meta["total"])
	assert.Equal(t, true, body.Meta["has_next"])

	rec = h.do(http.MethodGet, "/api/orders?exclude_status=shipped&period=today", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body.Data = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)

	rec = h.do(http.MethodGet, "/api/orders?date_from=2000-01-01&date_to=2000-01-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body.Data = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Data)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/orders?status=lost", nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/orders?date_from=01.01.2020", nil).Code)
}

func TestExportOrders_CSVWithBOM(t *testing.T) {
	h := newHarness(t, false)
	p := repotest.Product(t, h.repo, "Legion, 5", 4200, 5)
	o := h.order(t, 1, p, models.StatusPaid)

	rec := h.do(http.MethodGet, "/api/orders/export?status=paid", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get(echo.HeaderContentType))

	raw := rec.Body.String()
	require.True(t, strings.HasPrefix(raw, utf8BOM))
	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(raw, utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, o.OrderNumber, rows[1][1])
	assert.Equal(t, "Legion, 5", rows[1][6])
	assert.Equal(t, "Оплачен", rows[1][9])
}

func TestOrders_CreateGetStatusDelete(t *testing.T) {
	h := newHarness(t, false)
	p := repotest.Product(t, h.repo, "Pavilion", 2200, 4)

	rec := h.do(http.MethodPost, "/api/orders", map[string]any{"user_id": 77, "product_id": p.ID, "full_name": "Ann"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/orders", map[string]any{
		"user_id": 77, "product_id": p.ID, "full_name": "Ann Lee",
		"phone": "+992901112233", "city": "Khujand", "address": "Lenin 5",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	o := decode[models.Order](t, rec)
	stock, err := h.repo.ProductStock(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stock)

	rec = h.do(http.MethodGet, fmt.Sprintf("/api/orders/%d", o.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[service.OrderView](t, rec)
	assert.Equal(t, "Новый", view.StatusLabel)
	require.NotNil(t, view.Product)
	assert.Equal(t, "Pavilion", view.Product.Title)

	path := fmt.Sprintf("/api/orders/%d/status", o.ID)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPatch, path, map[string]string{"status": "lost"}).Code)
	rec = h.do(http.MethodPatch, path, map[string]string{"status": "paid"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, h.msg.To(77), 1)

	del := fmt.Sprintf("/api/orders/%d", o.ID)
	assert.Equal(t, http.StatusConflict, h.do(http.MethodDelete, del, nil).Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodPatch, path, map[string]string{"status": "shipped"}).Code)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, del, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, del, nil).Code)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/orders/abc", nil).Code)
}

func TestReceipt_ProxiesFile(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(echo.HeaderContentType, "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	t.Cleanup(upstream.Close)

	h := newHarness(t, true)
	p := repotest.Product(t, h.repo, "Aspire", 1800, 2)
	o := h.order(t, 5, p, models.StatusAwaitingPayment)

	path := fmt.Sprintf("/api/orders/%d/receipt", o.ID)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, path, nil).Code)

	_, err := h.repo.AttachReceipt(context.Background(), o.ID, 5, "rcpt-1")
	require.NoError(t, err)
	h.msg.Files["rcpt-1"] = upstream.URL + "/file/rcpt-1.jpg"

	rec := h.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "jpeg-bytes", rec.Body.String())

	delete(h.msg.Files, "rcpt-1")
	assert.Equal(t, http.StatusBadGateway, h.do(http.MethodGet, path, nil).Code)
}

func TestMedia_NoMessengerIs503(t *testing.T) {
	h := newHarness(t, false)
	p := repotest.Product(t, h.repo, "Aspire", 1800, 2)
	require.NoError(t, h.repo.SetProductMedia(context.Background(), p.ID, "img-1", false))

	assert.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodGet, fmt.Sprintf("/api/products/%d/image", p.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, fmt.Sprintf("/api/products/%d/video", p.ID), nil).Code)
}

func TestProducts_CRUD(t *testing.T) {
	h := newHarness(t, false)

	rec := h.do(http.MethodPost, "/api/products", map[string]any{"title": "Zen", "price": 10, "category": "toys"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/products", map[string]any{"title": "ZenBook", "price": 3000, "category": "work", "stock": 0})
	require.Equal(t, http.StatusCreated, rec.Code)
	p := decode[models.Product](t, rec)

	path := fmt.Sprintf("/api/products/%d", p.ID)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPatch, path, map[string]any{"stock": -1}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPut, path, map[string]any{"category": "toys"}).Code)

	rec = h.do(http.MethodGet, "/api/products?stock_filter=out", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Data []models.Product `json:"data"`
	}](t, rec)
	require.Len(t, list.Data, 1)
	assert.Equal(t, p.ID, list.Data[0].ID)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/products?stock_filter=all", nil).Code)

	rec = h.do(http.MethodPut, path, map[string]any{"stock": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[models.Product](t, rec).Stock)

	rec = h.do(http.MethodGet, "/api/products/search?q=zen", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ZenBook")
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/products/search?q=z", nil).Code)

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, path, nil).Code)
	assert.Equal(t, []string{service.EventProductCreated, service.EventProductUpdated, service.EventProductDeleted},
		h.events.Types(mykafka.TopicProductEvents))
}

func TestUploadImage_StoresFileID(t *testing.T) {
	h := newHarness(t, true)
	p := repotest.Product(t, h.repo, "ThinkPad", 3200, 5)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "thinkpad.jpg")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("image"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/products/%d/image", p.ID), &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(HeaderAdminToken, testSecret)
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[models.Product](t, rec)
	want := fmt.Sprintf("%s-thinkpad.jpg-1", messenger.Photo)
	assert.Equal(t, want, got.ImageFileID)
	assert.Equal(t, []string{want}, h.msg.Uploads)

	rec = h.do(http.MethodPost, fmt.Sprintf("/api/products/%d/video", p.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProduct_BadID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("-4")

	h := &CatalogHTTP{}
	err := h.GetProduct(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestPeriodRange(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)

	cases := []struct {
		period   string
		from, to string
	}{
		{"today", "2026-03-10", "2026-03-10"},
		{"week", "2026-03-03", "2026-03-10"},
		{"month", "2026-02-08", "2026-03-10"},
		{"year", "", ""},
	}
	for _, tc := range cases {
		from, to := periodRange(tc.period, now)
		assert.Equal(t, tc.from, from, tc.period)
		assert.Equal(t, tc.to, to, tc.period)
	}
}

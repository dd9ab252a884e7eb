package httpserver

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/laptop_shop/internal/models"
	"github.com/Skotchmaster/laptop_shop/internal/repo"
	"github.com/Skotchmaster/laptop_shop/internal/service"
	"github.com/Skotchmaster/laptop_shop/internal/transport"
	"github.com/Skotchmaster/laptop_shop/internal/util"
	"github.com/Skotchmaster/laptop_shop/pkg/logging"
)

const (
	dateLayout = "2006-01-02"
	utf8BOM    = "\uFEFF"
)

type OrderHTTP struct {
	Svc   *service.OrderService
	Media *MediaProxy
	Now   func() time.Time
}

// OrderRow is an order as listed in the admin panel.
type OrderRow struct {
	models.Order
	StatusLabel  string `json:"status_label"`
	ProductTitle string `json:"product_title"`
	ProductPrice int64  `json:"product_price"`
}

func (h *OrderHTTP) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// orderFilter reads status, exclude_status, search, period, date_from, date_to and sort.
// date_to is inclusive; period is ignored when date_from is given.
func (h *OrderHTTP) orderFilter(c echo.Context) (repo.OrderFilter, error) {
	var f repo.OrderFilter

	if s := strings.TrimSpace(c.QueryParam("status")); s != "" {
		st, err := models.ParseStatus(s)
		if err != nil {
			return f, fmt.Errorf("%w: %v", service.ErrValidation, err)
		}
		f.Status = st
	}
	if s := strings.TrimSpace(c.QueryParam("exclude_status")); s != "" {
		st, err := models.ParseStatus(s)
		if err != nil {
			return f, fmt.Errorf("%w: %v", service.ErrValidation, err)
		}
		f.ExcludeStatus = st
	}
	f.Search = strings.TrimSpace(c.QueryParam("search"))
	f.Asc = c.QueryParam("sort") == "asc"

	from, to := strings.TrimSpace(c.QueryParam("date_from")), strings.TrimSpace(c.QueryParam("date_to"))
	if from == "" {
		if p := strings.TrimSpace(c.QueryParam("period")); p != "" {
			from, to = periodRange(p, h.now())
		}
	}
	if from != "" {
		d, err := time.Parse(dateLayout, from)
		if err != nil {
			return f, fmt.Errorf("%w: date_from must be YYYY-MM-DD", service.ErrValidation)
		}
		f.From = &d
	}
	if to != "" {
		d, err := time.Parse(dateLayout, to)
		if err != nil {
			return f, fmt.Errorf("%w: date_to must be YYYY-MM-DD", service.ErrValidation)
		}
		end := d.AddDate(0, 0, 1)
		f.To = &end
	}
	return f, nil
}

// periodRange turns today|week|month into an inclusive UTC date range.
func periodRange(period string, now time.Time) (from, to string) {
	now = now.UTC()
	today := now.Format(dateLayout)
	switch period {
	case "today":
		return today, today
	case "week":
		return now.AddDate(0, 0, -7).Format(dateLayout), today
	case "month":
		return now.AddDate(0, 0, -30).Format(dateLayout), today
	}
	return "", ""
}

func (h *OrderHTTP) rows(c echo.Context, orders []models.Order) ([]OrderRow, error) {
	ids := make([]uint, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ProductID)
	}
	products, err := h.Svc.Repo.GetProductsByIDs(c.Request().Context(), ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	out := make([]OrderRow, 0, len(orders))
	for _, o := range orders {
		row := OrderRow{Order: o, StatusLabel: o.Status.Label()}
		if p, ok := byID[o.ProductID]; ok {
			row.ProductTitle = p.Title
			row.ProductPrice = p.Price
		}
		out = append(out, row)
	}
	return out, nil
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	f, err := h.orderFilter(c)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	f.Offset, f.Limit = util.Calculate(page, size)

	total, orders, err := h.Svc.List(ctx, f)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	items, err := h.rows(c, orders)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.Meta(page, f.Offset, f.Limit, total),
	})
}

var csvHeader = []string{
	"id", "order_number", "full_name", "phone", "city", "address",
	"product_title", "product_price", "status", "status_label",
	"created_at", "updated_at",
}

// ExportOrders writes every order matching the list filters as CSV with a UTF-8 BOM.
func (h *OrderHTTP) ExportOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.export")

	f, err := h.orderFilter(c)
	if err != nil {
		return fail(l, "export_orders_error", err)
	}
	_, orders, err := h.Svc.List(ctx, f)
	if err != nil {
		return fail(l, "export_orders_error", err)
	}
	items, err := h.rows(c, orders)
	if err != nil {
		return fail(l, "export_orders_error", err)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="orders.csv"`)
	res.WriteHeader(http.StatusOK)

	if _, err := res.Write([]byte(utf8BOM)); err != nil {
		return err
	}
	w := csv.NewWriter(res)
	_ = w.Write(csvHeader)
	for _, r := range items {
		_ = w.Write([]string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.OrderNumber, r.FullName, r.Phone, r.City, r.Address,
			r.ProductTitle, strconv.FormatInt(r.ProductPrice, 10),
			string(r.Status), r.StatusLabel,
			r.CreatedAt.UTC().Format(time.RFC3339), r.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()

	l.Info("export_orders_success", "count", len(items))
	return w.Error()
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	id, err := parseID(c)
	if err != nil {
		return err
	}
	view, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.Create(ctx, req)
	if err != nil {
		return fail(l, "create_order_error", err)
	}

	l.Info("create_order_success", "order_number", order.OrderNumber)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) SetStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.set_status")

	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req transport.SetStatusRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("set_status_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, changed, err := h.Svc.SetStatus(ctx, id, req.Status)
	if err != nil {
		return fail(l, "set_status_error", err)
	}

	l.Info("set_status_success", "order_id", id, "status", order.Status, "changed", changed)
	return c.JSON(http.StatusOK, map[string]any{
		"order":        order,
		"status_label": order.Status.Label(),
		"changed":      changed,
	})
}

func (h *OrderHTTP) DeleteOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.delete")

	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(l, "delete_order_error", err)
	}

	l.Info("delete_order_success", "order_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *OrderHTTP) Receipt(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.receipt")

	id, err := parseID(c)
	if err != nil {
		return err
	}
	view, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_receipt_error", err)
	}
	if view.ReceiptFileID == "" {
		l.Warn("get_receipt_error", "status", 404, "reason", "no receipt", "order_id", id)
		return echo.NewHTTPError(http.StatusNotFound, "order has no receipt")
	}
	return h.Media.Stream(c, view.ReceiptFileID)
}

func (h *OrderHTTP) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.stats")

	st, err := h.Svc.Stats(ctx, h.now())
	if err != nil {
		return fail(l, "stats_error", err)
	}
	return c.JSON(http.StatusOK, st)
}

package httpserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/laptop_shop/internal/messenger"
	"github.com/Skotchmaster/laptop_shop/internal/models"
	"github.com/Skotchmaster/laptop_shop/internal/repo"
	"github.com/Skotchmaster/laptop_shop/internal/service"
	"github.com/Skotchmaster/laptop_shop/internal/transport"
	"github.com/Skotchmaster/laptop_shop/internal/util"
	"github.com/Skotchmaster/laptop_shop/pkg/logging"
)

const searchLimit = 20

type CatalogHTTP struct {
	Svc   *service.CatalogService
	Media *MediaProxy
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.list")

	f := repo.ProductFilter{
		Search:      strings.TrimSpace(c.QueryParam("search")),
		Sort:        c.QueryParam("sort"),
		StockFilter: strings.TrimSpace(c.QueryParam("stock_filter")),
	}
	if s := strings.TrimSpace(c.QueryParam("category")); s != "" {
		cat, err := models.ParseCategory(s)
		if err != nil {
			return fail(l, "get_products_error", fmt.Errorf("%w: %v", service.ErrValidation, err))
		}
		f.Category = cat
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	f.Offset, f.Limit = util.Calculate(page, size)

	total, items, err := h.Svc.List(ctx, f)
	if err != nil {
		return fail(l, "get_products_error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.Meta(page, f.Offset, f.Limit, total),
	})
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	items, err := h.Svc.Search(ctx, c.QueryParam("q"), searchLimit)
	if err != nil {
		return fail(l, "search_products_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get")

	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_product_error", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_product_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	p, err := h.Svc.Create(ctx, req)
	if err != nil {
		return fail(l, "create_product_error", err)
	}

	l.Info("create_product_success", "product_id", p.ID)
	return c.JSON(http.StatusCreated, p)
}

// PatchProduct serves both PUT and PATCH; absent fields are left as they are.
func (h *CatalogHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.patch")

	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req transport.PatchProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("patch_product_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	p, err := h.Svc.Patch(ctx, req, id)
	if err != nil {
		return fail(l, "patch_product_error", err)
	}

	l.Info("patch_product_success", "product_id", id)
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete")

	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(l, "delete_product_error", err)
	}

	l.Info("delete_product_success", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHTTP) GetImage(c echo.Context) error { return h.getMedia(c, messenger.Photo) }
func (h *CatalogHTTP) GetVideo(c echo.Context) error { return h.getMedia(c, messenger.Video) }

func (h *CatalogHTTP) getMedia(c echo.Context, kind messenger.MediaKind) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_media", "kind", kind)

	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_media_error", err)
	}
	fileID := p.ImageFileID
	if kind == messenger.Video {
		fileID = p.VideoFileID
	}
	if fileID == "" {
		l.Warn("get_media_error", "status", 404, "reason", "no media", "product_id", id)
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("product has no %s", kind))
	}
	return h.Media.Stream(c, fileID)
}

func (h *CatalogHTTP) UploadImage(c echo.Context) error { return h.uploadMedia(c, messenger.Photo) }
func (h *CatalogHTTP) UploadVideo(c echo.Context) error { return h.uploadMedia(c, messenger.Video) }

func (h *CatalogHTTP) uploadMedia(c echo.Context, kind messenger.MediaKind) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.upload_media", "kind", kind)

	id, err := parseID(c)
	if err != nil {
		return err
	}
	if _, err := h.Svc.Get(ctx, id); err != nil {
		return fail(l, "upload_media_error", err)
	}

	fileID, err := h.Media.Upload(c, kind)
	if err != nil {
		return err
	}
	p, err := h.Svc.SetMedia(ctx, id, fileID, kind == messenger.Video)
	if err != nil {
		return fail(l, "upload_media_error", err)
	}

	l.Info("upload_media_success", "product_id", id)
	return c.JSON(http.StatusOK, p)
}

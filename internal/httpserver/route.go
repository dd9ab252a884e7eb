package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/laptop_shop/internal/repo"
	"github.com/Skotchmaster/laptop_shop/pkg/logging"
)

type Deps struct {
	Repo    *repo.GormRepo
	Auth    *AdminAuth
	Admins  *AdminHTTP
	Orders  *OrderHTTP
	Catalog *CatalogHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if err := d.Repo.Ping(c.Request().Context()); err != nil {
			logging.FromContext(c.Request().Context()).Error("ready_check_failed", "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	api := e.Group("/api")
	api.POST("/auth/login", d.Admins.Login, loginLimiter())

	admin := api.Group("", d.Auth.Require)

	admin.GET("/admin/users", d.Admins.ListAdmins)
	admin.POST("/admin/users", d.Admins.CreateAdmin)
	admin.DELETE("/admin/users/:id", d.Admins.DeleteAdmin)

	admin.GET("/stats", d.Orders.Stats)

	orders := admin.Group("/orders")
	orders.GET("", d.Orders.ListOrders)
	orders.POST("", d.Orders.CreateOrder)
	orders.GET("/export", d.Orders.ExportOrders)
	orders.GET("/:id", d.Orders.GetOrder)
	orders.PATCH("/:id/status", d.Orders.SetStatus)
	orders.GET("/:id/receipt", d.Orders.Receipt)
	orders.DELETE("/:id", d.Orders.DeleteOrder)

	products := admin.Group("/products")
	products.GET("", d.Catalog.GetProducts)
	products.GET("/search", d.Catalog.SearchProducts)
	products.GET("/:id", d.Catalog.GetProduct)
	products.POST("", d.Catalog.CreateProduct)
	products.PUT("/:id", d.Catalog.PatchProduct)
	products.PATCH("/:id", d.Catalog.PatchProduct)
	products.DELETE("/:id", d.Catalog.DeleteProduct)
	products.GET("/:id/image", d.Catalog.GetImage)
	products.GET("/:id/video", d.Catalog.GetVideo)
	products.POST("/:id/image", d.Catalog.UploadImage)
	products.POST("/:id/video", d.Catalog.UploadVideo)
}

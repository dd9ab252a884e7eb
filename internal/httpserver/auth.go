package httpserver

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/laptop_shop/internal/service"
	"github.com/Skotchmaster/laptop_shop/internal/transport"
	"github.com/Skotchmaster/laptop_shop/pkg/logging"
	"github.com/Skotchmaster/laptop_shop/pkg/tokens"
)

const (
	LoginAttemptsPerMinute = 5
	HeaderAdminToken       = "X-Admin-Token"

	ctxAdmin = "admin"
	// sharedSecretAdmin names requests authenticated with the static secret.
	sharedSecretAdmin = "shared-secret"
)

var (
	errNoSecret = errors.New("admin secret is not configured")
	errBadToken = errors.New("token does not match")
)

// AdminAuth guards the admin API. A token containing dots is an admin JWT,
// anything else is compared with the shared secret.
type AdminAuth struct {
	Secret     []byte
	AllowedIPs []string
}

func (a *AdminAuth) Require(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context()).With("middleware", "admin_auth")

		ip := c.RealIP()
		if len(a.AllowedIPs) > 0 && !slices.Contains(a.AllowedIPs, ip) {
			l.Warn("admin_auth_error", "status", 403, "reason", "ip not allowed", "ip", ip)
			return echo.NewHTTPError(http.StatusForbidden, "ip not allowed")
		}

		raw := tokenFromRequest(c.Request())
		if raw == "" {
			l.Warn("admin_auth_error", "status", 401, "reason", "missing token")
			return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
		}
		admin, err := a.verify(raw)
		if err != nil {
			l.Warn("admin_auth_error", "status", 401, "reason", "invalid token", "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		c.Set(ctxAdmin, admin)
		ctx := logging.IntoContext(c.Request().Context(), logging.FromContext(c.Request().Context()).With("admin", admin))
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func (a *AdminAuth) verify(raw string) (string, error) {
	if len(a.Secret) == 0 {
		return "", errNoSecret
	}
	if strings.Contains(raw, ".") {
		claims, err := tokens.AdminClaimsFromToken(raw, a.Secret)
		if err != nil {
			return "", err
		}
		return claims.Username, nil
	}
	if subtle.ConstantTimeCompare([]byte(raw), a.Secret) != 1 {
		return "", errBadToken
	}
	return sharedSecretAdmin, nil
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get(echo.HeaderAuthorization); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if h := strings.TrimSpace(r.Header.Get(HeaderAdminToken)); h != "" {
		return h
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// loginLimiter allows LoginAttemptsPerMinute login attempts per client ip.
func loginLimiter() echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Every(time.Minute / LoginAttemptsPerMinute),
		Burst:     LoginAttemptsPerMinute,
		ExpiresIn: 10 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "cannot identify client")
		},
		DenyHandler: func(c echo.Context, ip string, err error) error {
			logging.FromContext(c.Request().Context()).Warn("login_error", "status", 429, "reason", "too many attempts", "ip", ip)
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts")
		},
	})
}

type AdminHTTP struct {
	Svc *service.AdminService
}

func (h *AdminHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req)
	if err != nil {
		return fail(l, "login_error", err)
	}

	l.Info("login_success", "username", res.Username)
	return c.JSON(http.StatusOK, res)
}

func (h *AdminHTTP) ListAdmins(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list")

	items, err := h.Svc.List(ctx)
	if err != nil {
		return fail(l, "list_admins_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *AdminHTTP) CreateAdmin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create")

	var req transport.CreateAdminRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_admin_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	u, err := h.Svc.Create(ctx, req)
	if err != nil {
		return fail(l, "create_admin_error", err)
	}

	l.Info("create_admin_success", "username", u.Username)
	return c.JSON(http.StatusCreated, u)
}

func (h *AdminHTTP) DeleteAdmin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete")

	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(l, "delete_admin_error", err)
	}

	l.Info("delete_admin_success", "admin_id", id)
	return c.NoContent(http.StatusNoContent)
}

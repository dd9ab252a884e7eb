package httpserver

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/laptop_shop/internal/messenger"
	"github.com/Skotchmaster/laptop_shop/pkg/logging"
)

// MaxUploadBytes is the largest file the chat platform accepts from a bot.
const MaxUploadBytes = 50 << 20

// MediaProxy serves files stored on the chat platform. Without a messenger
// every media endpoint answers 503.
type MediaProxy struct {
	Msg    messenger.Messenger
	Client *http.Client
}

func (m *MediaProxy) available() bool { return m != nil && m.Msg != nil }

func (m *MediaProxy) client() *http.Client {
	if m.Client != nil {
		return m.Client
	}
	return http.DefaultClient
}

// Stream copies the file behind fileID to the response with the upstream content type.
func (m *MediaProxy) Stream(c echo.Context, fileID string) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "media.stream")

	if !m.available() {
		l.Warn("media_stream_error", "status", 503, "reason", "messenger not configured")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "messenger not configured")
	}

	url, err := m.Msg.FileURL(ctx, fileID)
	if err != nil {
		l.Error("media_stream_error", "status", 502, "reason", "cannot resolve file", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "cannot resolve file")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "cannot resolve file")
	}
	resp, err := m.client().Do(req)
	if err != nil {
		l.Error("media_stream_error", "status", 502, "reason", "download failed", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "download failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		l.Error("media_stream_error", "status", 502, "reason", "upstream status", "upstream_status", resp.StatusCode)
		return echo.NewHTTPError(http.StatusBadGateway, "download failed")
	}

	ct := resp.Header.Get(echo.HeaderContentType)
	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	return c.Stream(http.StatusOK, ct, resp.Body)
}

// Upload re-hosts the multipart "file" field on the chat platform and returns its file id.
func (m *MediaProxy) Upload(c echo.Context, kind messenger.MediaKind) (string, error) {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "media.upload", "kind", kind)

	if !m.available() {
		l.Warn("media_upload_error", "status", 503, "reason", "messenger not configured")
		return "", echo.NewHTTPError(http.StatusServiceUnavailable, "messenger not configured")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		l.Warn("media_upload_error", "status", 400, "reason", "missing file field", "error", err)
		return "", echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" required")
	}
	if fh.Size > MaxUploadBytes {
		l.Warn("media_upload_error", "status", 413, "reason", "file too large", "size", fh.Size)
		return "", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}
	f, err := fh.Open()
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "cannot read file")
	}
	defer f.Close()

	fileID, err := m.Msg.Upload(ctx, kind, fh.Filename, io.LimitReader(f, MaxUploadBytes))
	if err != nil {
		l.Error("media_upload_error", "status", 502, "reason", "upload failed", "error", err)
		return "", echo.NewHTTPError(http.StatusBadGateway, "upload failed")
	}
	return fileID, nil
}

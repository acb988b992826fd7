package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/infrastructure/db/mongo"
)

// ObjectOpener opens stored public objects.
type ObjectOpener interface {
	Open(ctx context.Context, bucket, path string) (*mongo.Object, error)
}

// ObjectHandler handles GET /storage/v1/object/public/:bucket/* for the
// self-hosted backend, where evidence photos live in GridFS.
type ObjectHandler struct {
	files ObjectOpener
}

func NewObjectHandler(files ObjectOpener) *ObjectHandler {
	return &ObjectHandler{files: files}
}

func (h *ObjectHandler) Serve(c echo.Context) error {
	bucket, path := c.Param("bucket"), c.Param("*")
	if path == "" {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	obj, err := h.files.Open(c.Request().Context(), bucket, path)
	if errors.Is(err, domain.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if err != nil {
		return err
	}
	defer obj.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, obj.ContentType)
	res.Header().Set(echo.HeaderContentLength, strconv.FormatInt(obj.Size, 10))
	res.Header().Set("Cache-Control", "public, max-age=86400")
	res.WriteHeader(http.StatusOK)
	_, err = io.Copy(res, obj)
	return err
}

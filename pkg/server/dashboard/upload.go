package dashboard

import (
	"context"
	"errors"
	"net/http"

	"parkvision/pkg/log"
	"parkvision/pkg/uploader"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
)

type uploadFunc func(ctx context.Context, file uploader.File) (*uploader.Result, error)

func (srv *Server) selectFile(ctx echo.Context) error {
	return srv.handleUpload(ctx, srv.uploads.Select)
}

func (srv *Server) dropFile(ctx echo.Context) error {
	return srv.handleUpload(ctx, srv.uploads.Drop)
}

func (srv *Server) handleUpload(ctx echo.Context, upload uploadFunc) error {
	header, err := ctx.FormFile("file")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "No file provided",
		})
	}

	src, err := header.Open()
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Failed to read uploaded file",
		})
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("file", header.Filename).Msg("Failed to close form file")
		}
	}()

	log.Debug().
		Str("file", header.Filename).
		Str("size", humanize.Bytes(uint64(max(header.Size, 0)))).
		Msg("Received file from dashboard")

	// A started upload runs to completion even if the browser goes away,
	// otherwise the shared counters would be reset for every viewer.
	uploadCtx := context.WithoutCancel(ctx.Request().Context())

	result, err := upload(uploadCtx, uploader.File{
		Name:        header.Filename,
		ContentType: header.Header.Get(echo.HeaderContentType),
		Size:        header.Size,
		Body:        src,
	})

	switch {
	case errors.Is(err, uploader.ErrNotImage):
		return ctx.JSON(http.StatusUnsupportedMediaType, map[string]interface{}{
			"success": false,
			"error":   "Only image files can be dropped",
		})
	case errors.Is(err, uploader.ErrNoFile):
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "No file provided",
		})
	case err != nil:
		status := ""
		if result != nil {
			status = result.Status
		}
		return ctx.JSON(http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"error":   status,
		})
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"id":       result.ID,
		"empty":    result.Stats.Empty,
		"occupied": result.Stats.Occupied,
		"total":    result.Stats.Total,
		"status":   result.Status,
	})
}

package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"parkvision/pkg/log"

	"github.com/labstack/echo/v4"
)

//go:embed web/index.html
var webFS embed.FS

func loadPage() (*template.Template, error) {
	tmpl, err := template.ParseFS(webFS, "web/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard page: %w", err)
	}
	return tmpl, nil
}

func (srv *Server) servePage(ctx echo.Context) error {
	ctx.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	ctx.Response().WriteHeader(http.StatusOK)

	if err := srv.page.Execute(ctx.Response().Writer, srv.pageData); err != nil {
		log.Error().Err(err).Msg("Failed to render dashboard page")
		return err
	}
	return nil
}

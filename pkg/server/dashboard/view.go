package dashboard

import (
	"net/http"
	"time"

	"parkvision/pkg/log"

	"github.com/labstack/echo/v4"
)

const wsWriteWait = 5 * time.Second

func (srv *Server) getView(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, srv.display.Snapshot())
}

func (srv *Server) getHealth(ctx echo.Context) error {
	health, err := srv.health.Health(ctx.Request().Context())
	if err != nil {
		return ctx.JSON(http.StatusBadGateway, map[string]string{
			"status": "unreachable",
			"error":  err.Error(),
		})
	}
	return ctx.JSON(http.StatusOK, health)
}

// streamView pushes the current state and every later one over a websocket.
func (srv *Server) streamView(ctx echo.Context) error {
	conn, err := srv.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return nil
	}
	defer func() { _ = conn.Close() }()

	updates, unsubscribe := srv.display.Subscribe()
	defer unsubscribe()

	// The page never sends anything; reading only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := srv.writeState(conn, srv.display.Snapshot()); err != nil {
		return nil
	}

	for {
		select {
		case <-closed:
			return nil
		case <-srv.done:
			return nil
		case state, ok := <-updates:
			if !ok {
				return nil
			}
			if err := srv.writeState(conn, state); err != nil {
				log.Debug().Err(err).Msg("Websocket client gone")
				return nil
			}
		}
	}
}

type jsonWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteJSON(v interface{}) error
}

func (srv *Server) writeState(conn jsonWriter, state interface{}) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(state)
}

package api

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"join-board/domain"
)

const streamHeartbeat = 30 * time.Second

// streamBoard pushes the rendered board as a server-sent event whenever the
// session's board changes.
func (s *Server) streamBoard() echo.HandlerFunc {
	return func(c echo.Context) error {
		b, id, err := s.resolve(c, authHeader(c))
		if b == nil {
			return err
		}
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}

		updates, cancel := s.broker.subscribe(id)
		defer cancel()

		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		c.Response().WriteHeader(http.StatusOK)

		if err := writeBoardEvent(c.Response(), flusher, b); err != nil {
			return nil
		}

		ctx := c.Request().Context()
		ticker := time.NewTicker(streamHeartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-updates:
				if err := writeBoardEvent(c.Response(), flusher, b); err != nil {
					return nil
				}
			case <-ticker.C:
				if _, err := c.Response().Write([]byte(":keepalive\n\n")); err != nil {
					return nil
				}
				flusher.Flush()
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func writeBoardEvent(w *echo.Response, flusher http.Flusher, b *domain.Board) error {
	data, err := sonic.Marshal(buildBoardView(b, b.Search()))
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := w.Write([]byte("\n\n")); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

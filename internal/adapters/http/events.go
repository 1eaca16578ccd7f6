package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dkeye/Call/internal/app/call"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

// frame is one message of the event stream. The first frame carries a
// snapshot, every later one an event.
type frame struct {
	Type     string         `json:"type"`
	Snapshot *call.Snapshot `json:"snapshot,omitempty"`
	Event    *call.Event    `json:"event,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *handler) events(c *gin.Context) {
	logger := log.With().Str("module", "adapters.http").Str("remote", c.ClientIP()).Logger()

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error().Err(err).Msg("ws upgrade")
		return
	}
	// subscribe before the snapshot so no event falls in between
	sub := h.svc.Subscribe()
	ctx, cancel := context.WithCancel(h.ctx)
	defer func() {
		cancel()
		sub.Close()
		_ = ws.Close()
		logger.Info().Msg("event stream closed")
	}()
	logger.Info().Msg("event stream opened")

	snap := h.svc.Snapshot()
	if err := writeJSON(ws, frame{Type: "snapshot", Snapshot: &snap}); err != nil {
		logger.Error().Err(err).Msg("write snapshot")
		return
	}

	go readPump(ws, cancel)
	if h.pingPeriod > 0 {
		go pingLoop(ctx, ws, h.pingPeriod, logger)
	}
	writePump(ctx, ws, sub, logger)
}

func writePump(ctx context.Context, ws *websocket.Conn, sub *call.Subscription, logger zerolog.Logger) {
	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			logger.Debug().Err(err).Msg("writePump done")
			return
		}
		if err := writeJSON(ws, frame{Type: "event", Event: &ev}); err != nil {
			logger.Error().Err(err).Msg("writePump write error")
			return
		}
	}
}

// readPump only watches for the client going away.
func readPump(ws *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func pingLoop(ctx context.Context, ws *websocket.Conn, period time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logger.Warn().Err(err).Msg("ping failed")
				return
			}
		}
	}
}

func writeJSON(ws *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, b)
}

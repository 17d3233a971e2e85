package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fairwaylabs/teesheet/internal/broadcast"
)

// One heartbeat event per interval keeps proxies from closing idle
// SSE connections.
const heartbeatInterval = 30 * time.Second

// LiveHandler streams slot snapshots to watching clients over
// server-sent events. Many clients multiplex onto one hub stream per
// event.
type LiveHandler struct {
	Hub *broadcast.Hub
	Log *zap.Logger
}

func NewLiveHandler(hub *broadcast.Hub, log *zap.Logger) *LiveHandler {
	if hub == nil || log == nil {
		panic("nil dependency passed to NewLiveHandler")
	}
	return &LiveHandler{Hub: hub, Log: log}
}

// Stream handles GET /v1/events/:id/live. The connection stays open
// until the client disconnects or the hub shuts down.
func (h *LiveHandler) Stream(c echo.Context) error {
	eventID, err := pathID(c)
	if err != nil || eventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	sub := h.Hub.Subscribe(eventID)
	defer sub.Close()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if err := writeEvent(res, "heartbeat", map[string]string{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			}); err != nil {
				return nil
			}
		case update, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			name := "update"
			if update.IsError() {
				name = "error"
			}
			if err := writeEvent(res, name, update); err != nil {
				h.Log.Debug("live stream write failed",
					zap.Int64("event_id", eventID), zap.Error(err))
				return nil
			}
		}
	}
}

func writeEvent(res *echo.Response, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	res.Flush()
	return nil
}

package api

import (
	"context"
	"time"

	"StockSense/internal/domain/models"
	"StockSense/internal/service/metrics"
	xhttp "StockSense/pkg/http"
	applogger "StockSense/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Stream message types.
const (
	StreamProgress = "progress"
	StreamResult   = "result"
	StreamError    = "error"
)

// StreamMessage is one frame of the progress stream.
type StreamMessage struct {
	Type   string                `json:"type"`
	Event  *models.ProgressEvent `json:"event,omitempty"`
	Run    *models.AnalysisRun   `json:"run,omitempty"`
	Status int                   `json:"status,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// Stream runs an analysis and pushes every progress event over a websocket,
// followed by a single result or error frame. Closing the socket cancels the run.
func (h *AnalysisHandler) Stream(c echo.Context) error {
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already replied
		h.debug("websocket upgrade failed", applogger.Error(err))
		return nil
	}
	defer conn.Close()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(msg StreamMessage) {
		if ctx.Err() != nil && msg.Type == StreamProgress {
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			h.debug("websocket write failed", applogger.String("type", msg.Type), applogger.Error(err))
			cancel()
		}
	}

	run, err := h.svc.Analysis.Run(ctx, req.Ticker, req.User, func(ev models.ProgressEvent) {
		send(StreamMessage{Type: StreamProgress, Event: &ev})
	})
	if err != nil {
		appErr := toAppError(err)
		send(StreamMessage{Type: StreamError, Run: run, Status: appErr.Status, Error: appErr.Message})
	} else {
		send(StreamMessage{Type: StreamResult, Run: run})
	}

	_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}

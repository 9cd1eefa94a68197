package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vivekchamoli/legion2go/internal/gpu"
	"github.com/vivekchamoli/legion2go/internal/ui"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	eventQueueSize    = 8
	eventWriteTimeout = 5 * time.Second
)

type killResult struct {
	Killed int `json:"killed"`
}

func registerGpuEndpoints(rest *echo.Echo, services Services) {
	if services.Gpu == nil {
		return
	}
	group := rest.Group("/gpu")

	group.GET("/", getGpuStatus(services.Gpu))
	group.POST("/refresh/", refreshGpuStatus(services.Gpu))
	group.POST("/restart/", restartGpu(services.Gpu))
	group.POST("/kill/", killGpuProcesses(services.Gpu))
	group.GET("/events/", streamGpuEvents(services.Gpu))
}

func getGpuStatus(service GpuService) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSONPretty(http.StatusOK, service.LastKnownStatus(), indentationChar)
	}
}

func refreshGpuStatus(service GpuService) echo.HandlerFunc {
	return func(c echo.Context) error {
		status, err := service.RefreshNow(c.Request().Context())
		if err != nil {
			return returnError(c, err)
		}
		return c.JSONPretty(http.StatusOK, status, indentationChar)
	}
}

// returnGpuError maps state errors of the gpu controller to a conflict
func returnGpuError(c echo.Context, err error) error {
	if errors.Is(err, gpu.ErrInvalidState) || errors.Is(err, gpu.ErrNoInstance) {
		return returnConflict(c, err)
	}
	return returnError(c, err)
}

func restartGpu(service GpuService) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := service.RestartDevice(c.Request().Context()); err != nil {
			return returnGpuError(c, err)
		}
		return c.NoContent(http.StatusAccepted)
	}
}

func killGpuProcesses(service GpuService) echo.HandlerFunc {
	return func(c echo.Context) error {
		killed, err := service.KillBoundProcesses(c.Request().Context())
		if err != nil {
			return returnGpuError(c, err)
		}
		return c.JSONPretty(http.StatusOK, killResult{Killed: killed}, indentationChar)
	}
}

// streams the gpu status as json text messages, starting with the last known one
func streamGpuEvents(service GpuService) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := websocket.Accept(c.Response(), c.Request(), nil)
		if err != nil {
			ui.Warning("GPU event stream: websocket accept failed: %v", err)
			return nil
		}
		defer func() {
			_ = conn.Close(websocket.StatusNormalClosure, "")
		}()

		events := make(chan gpu.Status, eventQueueSize)
		events <- service.LastKnownStatus()
		unsubscribe := service.Subscribe(func(status gpu.Status) {
			select {
			case events <- status:
			default:
				// slow client, drop the update
			}
		})
		defer unsubscribe()

		// the client is not expected to send anything, reading only handles close frames
		ctx := conn.CloseRead(c.Request().Context())
		for {
			select {
			case <-ctx.Done():
				return nil
			case status := <-events:
				writeCtx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
				err := wsjson.Write(writeCtx, conn, status)
				cancel()
				if err != nil {
					if websocket.CloseStatus(err) != websocket.StatusNormalClosure && ctx.Err() == nil {
						ui.Warning("GPU event stream: write failed: %v", err)
					}
					return nil
				}
			}
		}
	}
}

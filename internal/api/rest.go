package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/gpu"
	"github.com/vivekchamoli/legion2go/internal/learning"
	"github.com/vivekchamoli/legion2go/internal/power"
	"github.com/vivekchamoli/legion2go/internal/thermal"
)

const (
	queryParamLimit = "limit"
	queryParamMode  = "mode"
	indentationChar = "  "

	defaultHistoryLimit = 100
	maxHistoryLimit     = 10000
)

type (
	Result struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}

	ThermalService interface {
		Stats() thermal.Stats
	}

	HistoryService interface {
		Recent(limit int) ([]thermal.CycleResult, error)
	}

	LearningService interface {
		Stats() learning.Stats
		DataPoints() []learning.DataPoint
		GenerateCurve(mode configuration.PowerMode) ([]learning.CurvePoint, error)
	}

	SuggestionService interface {
		Suggest(mode configuration.PowerMode) learning.Suggestion
	}

	GpuService interface {
		LastKnownStatus() gpu.Status
		RefreshNow(ctx context.Context) (gpu.Status, error)
		RestartDevice(ctx context.Context) error
		KillBoundProcesses(ctx context.Context) (int, error)
		Subscribe(fn func(gpu.Status)) (unsubscribe func())
	}

	PowerService interface {
		Status() power.Status
		SetMode(ctx context.Context, mode configuration.PowerMode) error
		SetLimits(ctx context.Context, limits power.Limits) error
	}

	// Services are the components exposed by the REST api, endpoints
	// of a nil service are not registered
	Services struct {
		Thermal     ThermalService
		History     HistoryService
		Learning    LearningService
		Suggestions SuggestionService
		Gpu         GpuService
		Power       PowerService

		// power mode used when a request does not specify one
		DefaultMode configuration.PowerMode
		// registry for the request metrics, nil disables them
		Registerer prometheus.Registerer
	}
)

func CreateRestService(services Services) *echo.Echo {
	echoRest := echo.New()
	echoRest.HideBanner = true
	echoRest.HidePort = true

	// Root level middleware
	echoRest.Pre(middleware.AddTrailingSlash())

	echoRest.Use(middleware.Secure())

	echoRest.Use(middleware.Logger())
	echoRest.Use(middleware.Recover())

	if services.Registerer != nil {
		echoRest.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Subsystem:  "legion2go",
			Registerer: services.Registerer,
		}))
	}

	if services.DefaultMode == "" {
		services.DefaultMode = configuration.PowerModeBalanced
	}

	echoRest.GET("/alive/", isAlive)

	registerThermalEndpoints(echoRest, services)
	registerLearningEndpoints(echoRest, services)
	registerGpuEndpoints(echoRest, services)
	registerPowerEndpoints(echoRest, services)

	return echoRest
}

// returns an empty "ok" answer
func isAlive(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// return a "not found" message
func returnNotFound(c echo.Context, name string) (err error) {
	return c.JSONPretty(http.StatusNotFound, &Result{
		Name:    "Not found",
		Message: "'" + name + "' is not available",
	}, indentationChar)
}

// return a "bad request" message
func returnBadRequest(c echo.Context, e error) (err error) {
	return c.JSONPretty(http.StatusBadRequest, &Result{
		Name:    "Bad Request",
		Message: e.Error(),
	}, indentationChar)
}

// return a "conflict" message, used when the current state does not allow an operation
func returnConflict(c echo.Context, e error) (err error) {
	return c.JSONPretty(http.StatusConflict, &Result{
		Name:    "Conflict",
		Message: e.Error(),
	}, indentationChar)
}

// return the error message of an error
func returnError(c echo.Context, e error) (err error) {
	return c.JSONPretty(http.StatusInternalServerError, &Result{
		Name:    "Unknown Error",
		Message: e.Error(),
	}, indentationChar)
}

// powerMode reads the mode query parameter, falling back to the given default
func powerMode(c echo.Context, fallback configuration.PowerMode) (configuration.PowerMode, error) {
	value := c.QueryParam(queryParamMode)
	if value == "" {
		return fallback, nil
	}
	return configuration.ParsePowerMode(value)
}

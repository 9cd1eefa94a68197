package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/power"
)

func registerPowerEndpoints(rest *echo.Echo, services Services) {
	if services.Power == nil {
		return
	}
	group := rest.Group("/power")

	group.GET("/", getPowerStatus(services.Power))
	group.POST("/mode/", setPowerMode(services.Power))
	group.POST("/limits/", setPowerLimits(services.Power))
}

func getPowerStatus(service PowerService) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSONPretty(http.StatusOK, service.Status(), indentationChar)
	}
}

func setPowerMode(service PowerService) echo.HandlerFunc {
	return func(c echo.Context) error {
		mode, err := configuration.ParsePowerMode(c.QueryParam(queryParamMode))
		if err != nil {
			return returnBadRequest(c, err)
		}
		if err := service.SetMode(c.Request().Context(), mode); err != nil {
			return returnError(c, err)
		}
		return c.JSONPretty(http.StatusOK, service.Status(), indentationChar)
	}
}

// expects a json body of power.Limits, omitted limits are left unchanged
func setPowerLimits(service PowerService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var limits power.Limits
		if err := c.Bind(&limits); err != nil {
			return returnBadRequest(c, err)
		}
		if err := service.SetLimits(c.Request().Context(), limits); err != nil {
			if errors.Is(err, power.ErrOutOfRange) || errors.Is(err, power.ErrNoLimits) {
				return returnBadRequest(c, err)
			}
			return returnError(c, err)
		}
		return c.JSONPretty(http.StatusOK, service.Status(), indentationChar)
	}
}

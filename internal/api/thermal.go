package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/qdm12/reprint"
)

func registerThermalEndpoints(rest *echo.Echo, services Services) {
	group := rest.Group("/thermal")

	if services.Thermal != nil {
		group.GET("/", getThermalStats(services.Thermal))
	}
	group.GET("/history/", getThermalHistory(services.History))
}

// returns the counters, gains and last cycle result of the control agent
func getThermalStats(service ThermalService) echo.HandlerFunc {
	return func(c echo.Context) error {
		data := reprint.This(service.Stats())
		return c.JSONPretty(http.StatusOK, data, indentationChar)
	}
}

// returns the most recent recorded control cycles, newest first
func getThermalHistory(service HistoryService) echo.HandlerFunc {
	return func(c echo.Context) error {
		if service == nil {
			return returnNotFound(c, "history")
		}

		limit := defaultHistoryLimit
		if value := c.QueryParam(queryParamLimit); value != "" {
			parsed, err := strconv.Atoi(value)
			if err != nil || parsed <= 0 {
				return returnBadRequest(c, fmt.Errorf("invalid limit: %s", value))
			}
			limit = min(parsed, maxHistoryLimit)
		}

		data, err := service.Recent(limit)
		if err != nil {
			return returnError(c, err)
		}
		return c.JSONPretty(http.StatusOK, data, indentationChar)
	}
}

package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/qdm12/reprint"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/learning"
)

func registerLearningEndpoints(rest *echo.Echo, services Services) {
	group := rest.Group("/learning")

	if services.Learning != nil {
		group.GET("/", getLearningStats(services.Learning))
		group.GET("/points/", getLearningPoints(services.Learning))
		group.GET("/curve/", getLearnedCurve(services.Learning, services.DefaultMode))
	}
	if services.Suggestions != nil {
		group.GET("/suggest/", getSuggestion(services.Suggestions, services.DefaultMode))
	}
}

func getLearningStats(service LearningService) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSONPretty(http.StatusOK, service.Stats(), indentationChar)
	}
}

// returns the learned data of every temperature bucket
func getLearningPoints(service LearningService) echo.HandlerFunc {
	return func(c echo.Context) error {
		data := reprint.This(service.DataPoints())
		return c.JSONPretty(http.StatusOK, data, indentationChar)
	}
}

func getLearnedCurve(service LearningService, defaultMode configuration.PowerMode) echo.HandlerFunc {
	return func(c echo.Context) error {
		mode, err := powerMode(c, defaultMode)
		if err != nil {
			return returnBadRequest(c, err)
		}

		curve, err := service.GenerateCurve(mode)
		if errors.Is(err, learning.ErrInsufficientData) {
			return returnConflict(c, err)
		} else if err != nil {
			return returnError(c, err)
		}
		return c.JSONPretty(http.StatusOK, curve, indentationChar)
	}
}

// returns a fan speed suggestion for the latest observed temperature
func getSuggestion(service SuggestionService, defaultMode configuration.PowerMode) echo.HandlerFunc {
	return func(c echo.Context) error {
		mode, err := powerMode(c, defaultMode)
		if err != nil {
			return returnBadRequest(c, err)
		}
		return c.JSONPretty(http.StatusOK, service.Suggest(mode), indentationChar)
	}
}

package api

import (
	"context"
	"errors"
	"strconv"

	"StockSense/internal/domain/models"
	drepo "StockSense/internal/domain/repository"
	"StockSense/internal/service/metrics"
	"StockSense/internal/services/analytics"
	"StockSense/internal/usecase"
	xhttp "StockSense/pkg/http"
	applogger "StockSense/pkg/logger"

	"github.com/labstack/echo/v4"
)

// toAppError maps domain errors to HTTP errors. An ML failure keeps its own
// message; a timed out ML call reports 504, any other ML failure 502.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var statusErr *xhttp.StatusError
	switch {
	case errors.Is(err, usecase.ErrInvalidTicker), errors.Is(err, models.ErrNegativeWeight):
		return xhttp.BadRequestError(err.Error())
	case errors.Is(err, usecase.ErrRunInProgress):
		return xhttp.ConflictError(err.Error())
	case errors.Is(err, drepo.ErrNotFound):
		return xhttp.NotFoundError(err.Error())
	case errors.Is(err, usecase.ErrMLSource):
		if errors.Is(err, context.DeadlineExceeded) {
			return xhttp.GatewayTimeoutError(err.Error())
		}
		return xhttp.BadGatewayError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.GatewayTimeoutError("analysis timed out: " + err.Error())
	case errors.Is(err, analytics.ErrNotConfigured):
		return xhttp.ServiceUnavailableError(err.Error())
	case errors.Is(err, analytics.ErrMalformedFeed), errors.As(err, &statusErr):
		return xhttp.BadGatewayError(err.Error())
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}

func (h *AnalysisHandler) errorResponse(c echo.Context, endpoint string, err error) error {
	appErr := toAppError(err)
	metrics.EndpointErrors.WithLabelValues(endpoint, strconv.Itoa(appErr.Status)).Inc()

	if h.logger != nil {
		fields := []applogger.Field{applogger.String("endpoint", endpoint), applogger.Int("status", appErr.Status), applogger.Error(err)}
		if appErr.Status >= 500 {
			h.logger.Error(endpoint+" failed", fields...)
		} else {
			h.logger.Debug(endpoint+" rejected", fields...)
		}
	}
	return xhttp.AppErrorResponse(c, appErr)
}

package api

import (
	"StockSense/internal/domain/models"
	xhttp "StockSense/pkg/http"

	"github.com/labstack/echo/v4"
)

func (h *AnalysisHandler) Weights(c echo.Context) error {
	req := &models.WeightsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	w, err := h.svc.Preferences.Weights(c.Request().Context(), req.User)
	if err != nil {
		return h.errorResponse(c, "weights_get", err)
	}
	return xhttp.SuccessResponse(c, w)
}

// UpdateWeights applies a partial update. Omitted sources keep their weight.
func (h *AnalysisHandler) UpdateWeights(c echo.Context) error {
	req := &models.UpdateWeightsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	w, err := h.svc.Preferences.Update(c.Request().Context(), req.User, req)
	if err != nil {
		return h.errorResponse(c, "weights_update", err)
	}
	return xhttp.SuccessResponse(c, w)
}

func (h *AnalysisHandler) ResetWeights(c echo.Context) error {
	req := &models.WeightsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	w, err := h.svc.Preferences.Reset(c.Request().Context(), req.User)
	if err != nil {
		return h.errorResponse(c, "weights_reset", err)
	}
	return xhttp.SuccessResponse(c, w)
}

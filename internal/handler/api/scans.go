package api

import (
	"StockSense/internal/domain/models"
	xhttp "StockSense/pkg/http"

	"github.com/labstack/echo/v4"
)

// ScanResetResponse confirms a scan was returned to idle.
type ScanResetResponse struct {
	ID     string           `json:"id"`
	Status models.RunStatus `json:"status"`
}

// StartScan queues an asynchronous analysis and returns its scan id.
func (h *AnalysisHandler) StartScan(c echo.Context) error {
	req := &models.StartScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	scan, err := h.svc.Scans.Start(c.Request().Context(), req.Ticker, req.User)
	if err != nil {
		return h.errorResponse(c, "scan_start", err)
	}
	return xhttp.CreatedResponse(c, scan)
}

func (h *AnalysisHandler) ScanStatus(c echo.Context) error {
	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	scan, err := h.svc.Scans.Status(c.Request().Context(), req.ID)
	if err != nil {
		return h.errorResponse(c, "scan_status", err)
	}
	return xhttp.SuccessResponse(c, scan)
}

func (h *AnalysisHandler) ResetScan(c echo.Context) error {
	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.svc.Scans.Reset(c.Request().Context(), req.ID); err != nil {
		return h.errorResponse(c, "scan_reset", err)
	}
	return xhttp.SuccessResponse(c, &ScanResetResponse{ID: req.ID, Status: models.RunIdle})
}

package api

import (
	"time"

	"StockSense/internal/domain/models"
	"StockSense/internal/services/aggregator"
	xhttp "StockSense/pkg/http"
	"StockSense/pkg/util"

	"github.com/labstack/echo/v4"
)

// ClassifyResponse is the label lookup for a single score.
type ClassifyResponse struct {
	Score          int                   `json:"score"`
	Recommendation models.Recommendation `json:"recommendation"`
	Overall        string                `json:"overall"`
}

// Analyze runs one analysis synchronously.
func (h *AnalysisHandler) Analyze(c echo.Context) error {
	defer observe("analysis")()

	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	run, err := h.svc.Analysis.Run(c.Request().Context(), req.Ticker, req.User, nil)
	if err != nil {
		appErr := toAppError(err)
		if run != nil {
			appErr = appErr.WithParam("run_id", run.ID)
		}
		return h.errorResponse(c, "analysis", appErr.WithError(err))
	}
	return xhttp.SuccessResponse(c, run)
}

// Latest returns the last completed run for a ticker.
func (h *AnalysisHandler) Latest(c echo.Context) error {
	req := &models.LatestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	run, err := h.svc.Analysis.Latest(c.Request().Context(), req.Ticker)
	if err != nil {
		return h.errorResponse(c, "latest", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, run)
}

// History lists terminal runs for a ticker, newest first.
func (h *AnalysisHandler) History(c echo.Context) error {
	defer observe("history")()

	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	var since time.Time
	if req.From != "" {
		t, ok := util.ParseTime(req.From)
		if !ok {
			return h.errorResponse(c, "history", xhttp.BadRequestErrorf("invalid from: %q", req.From))
		}
		since = t
	}

	rows, err := h.svc.History.Recent(c.Request().Context(), req.Ticker, since, req.Limit)
	if err != nil {
		return h.errorResponse(c, "history", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Congress returns one page of congressional trades with the score they produce.
func (h *AnalysisHandler) Congress(c echo.Context) error {
	defer observe("congress")()

	req := &models.CongressRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.svc.Congress == nil {
		return h.errorResponse(c, "congress", xhttp.ServiceUnavailableError("congress feed not configured"))
	}

	ticker := util.NormalizeTicker(req.Ticker)
	trades, err := h.svc.Congress.Trades(c.Request().Context(), ticker, req.Page, req.Size)
	if err != nil {
		return h.errorResponse(c, "congress", err)
	}
	return xhttp.SuccessResponse(c, &models.CongressActivity{
		Ticker: ticker,
		Score:  aggregator.AnalyzeCongressActivity(trades),
		Trades: trades,
	})
}

// Classify maps a score to its per-source and overall labels.
func (h *AnalysisHandler) Classify(c echo.Context) error {
	req := &models.ClassifyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, &ClassifyResponse{
		Score:          req.Score,
		Recommendation: aggregator.Classify(req.Score),
		Overall:        aggregator.ClassifyOverall(req.Score),
	})
}

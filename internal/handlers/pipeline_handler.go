package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "valora/internal/errors"
	"valora/internal/services"
)

// PipelineHandler exposes the valuation pipeline phases to schedulers.
type PipelineHandler struct {
	pipeline services.PipelineServicer
	fetcher  services.PriceFetchServicer
	revaluer services.RevaluationServicer
	rates    services.ExchangeRateServicer
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(
	pipeline services.PipelineServicer,
	fetcher services.PriceFetchServicer,
	revaluer services.RevaluationServicer,
	rates services.ExchangeRateServicer,
) *PipelineHandler {
	return &PipelineHandler{pipeline: pipeline, fetcher: fetcher, revaluer: revaluer, rates: rates}
}

// RunRequest selects the valuation date and, optionally, the tickers to price.
type RunRequest struct {
	Date    string   `json:"date" binding:"omitempty,valuation_date" example:"2024-03-01"`
	Tickers []string `json:"tickers" binding:"omitempty,max=1000,dive,ticker"`
}

// RevalueRequest selects the valuation date to revalue.
type RevalueRequest struct {
	Date string `json:"date" binding:"omitempty,valuation_date" example:"2024-03-01"`
}

// RefreshRatesRequest selects the rate date and, optionally, the pairs to fetch.
type RefreshRatesRequest struct {
	Date  string   `json:"date" binding:"omitempty,valuation_date" example:"2024-03-01"`
	Pairs []string `json:"pairs" binding:"omitempty,dive,currency_pair" example:"USD/GBP"`
}

// bindOptionalJSON binds a JSON body; an empty body keeps the zero request.
func bindOptionalJSON(c *gin.Context, req any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(req); err != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	return nil
}

// RunValuation handles the combined price fetch and revaluation run.
// @Summary     Run the daily valuation
// @Description Fetch prices then revalue holdings for one date. 200 when everything succeeded, 207 when some instruments or a phase failed, 502 when nothing succeeded.
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key header   string                   true  "Pipeline API key"
// @Param       request   body     RunRequest               false "Valuation date (default today) and tickers (default held tickers)"
// @Success     200       {object} services.PipelineResult  "All phases succeeded"
// @Success     207       {object} services.PipelineResult  "Partial success"
// @Failure     400       {object} ErrorResponse            "Invalid input"
// @Failure     401       {object} ErrorResponse            "Invalid API key"
// @Failure     409       {object} services.PipelineResult  "No earlier holdings snapshot and no prices"
// @Failure     502       {object} services.PipelineResult  "Nothing succeeded"
// @Router      /pipeline/valuations [post]
func (h *PipelineHandler) RunValuation(c *gin.Context) {
	var req RunRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result := h.pipeline.Run(c.Request.Context(), date, req.Tickers)
	c.JSON(pipelineStatus(result), result)
}

// pipelineStatus maps a combined run to its HTTP status.
func pipelineStatus(r *services.PipelineResult) int {
	if r.OverallSuccess {
		if r.Partial() {
			return http.StatusMultiStatus
		}
		return http.StatusOK
	}
	switch {
	case r.HasErrorCode(apperrors.ErrCancelled.Code):
		return apperrors.ErrCancelled.StatusCode
	case r.HasErrorCode(apperrors.ErrPersistenceFailure.Code):
		return apperrors.ErrPersistenceFailure.StatusCode
	case r.HasErrorCode(apperrors.ErrNoSourceSnapshot.Code):
		return apperrors.ErrNoSourceSnapshot.StatusCode
	default:
		return http.StatusBadGateway
	}
}

// FetchPrices handles the price fetch phase on its own.
// @Summary     Fetch prices
// @Description Fetch and store closing prices for one date
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key header   string                     true  "Pipeline API key"
// @Param       request   body     RunRequest                 false "Valuation date and tickers"
// @Success     200       {object} services.PriceFetchResult  "All prices fetched"
// @Success     207       {object} services.PriceFetchResult  "Some prices failed"
// @Failure     400       {object} ErrorResponse              "Invalid input"
// @Failure     502       {object} services.PriceFetchResult  "No price fetched"
// @Failure     503       {object} ErrorResponse              "Cancelled"
// @Router      /pipeline/prices [post]
func (h *PipelineHandler) FetchPrices(c *gin.Context) {
	var req RunRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	if len(req.Tickers) == 0 {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "tickers is required"))
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.fetcher.FetchPrices(c.Request.Context(), date, req.Tickers)
	if result == nil {
		respondWithError(c, err)
		return
	}
	respondWithResult(c, countStatus(result.TotalTickers, result.SuccessfulCount), result, err)
}

// Revalue handles the holdings revaluation phase on its own.
// @Summary     Revalue holdings
// @Description Roll the latest earlier holdings snapshot forward to one date using stored prices
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key header   string                      true  "Pipeline API key"
// @Param       request   body     RevalueRequest              false "Valuation date"
// @Success     200       {object} services.RevaluationResult  "All holdings revalued"
// @Success     207       {object} services.RevaluationResult  "Some holdings left out"
// @Failure     409       {object} ErrorResponse               "No earlier holdings snapshot"
// @Failure     502       {object} services.RevaluationResult  "No holding revalued"
// @Router      /pipeline/revaluations [post]
func (h *PipelineHandler) Revalue(c *gin.Context) {
	var req RevalueRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.revaluer.Revalue(c.Request.Context(), date)
	if result == nil {
		respondWithError(c, err)
		return
	}
	respondWithResult(c, countStatus(result.TotalHoldings, result.SuccessfulRevaluations), result, err)
}

// RefreshRates handles the exchange-rate refresh.
// @Summary     Refresh exchange rates
// @Description Fetch and store exchange rates for one date. Without pairs the configured or held pairs are used.
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key header   string                      true  "Pipeline API key"
// @Param       request   body     RefreshRatesRequest         false "Rate date and pairs"
// @Success     200       {object} services.RateRefreshResult  "All rates fetched"
// @Success     207       {object} services.RateRefreshResult  "Some rates failed"
// @Failure     400       {object} ErrorResponse               "Invalid input"
// @Failure     502       {object} services.RateRefreshResult  "No rate fetched"
// @Router      /pipeline/exchange-rates [post]
func (h *PipelineHandler) RefreshRates(c *gin.Context) {
	var req RefreshRatesRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}
	pairs, err := services.ParseRatePairs(req.Pairs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.rates.Refresh(c.Request.Context(), date, pairs)
	if result == nil {
		respondWithError(c, err)
		return
	}
	respondWithResult(c, countStatus(result.TotalPairs, result.SuccessfulCount), result, err)
}

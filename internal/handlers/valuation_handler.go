package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "valora/internal/errors"
	"valora/internal/models"
	"valora/internal/money"
	"valora/internal/pagination"
	"valora/internal/services"
)

// ValuationHandler serves stored holdings, prices, rates and run history.
type ValuationHandler struct {
	queries services.ValuationQueryServicer
	runs    services.ValuationRunServicer
}

// NewValuationHandler creates a new ValuationHandler.
func NewValuationHandler(queries services.ValuationQueryServicer, runs services.ValuationRunServicer) *ValuationHandler {
	return &ValuationHandler{queries: queries, runs: runs}
}

type holdingsQuery struct {
	Date        string `form:"date" binding:"omitempty,valuation_date"`
	PortfolioID string `form:"portfolio_id" binding:"omitempty,uuid"`
}

// GetHoldings handles listing a holdings snapshot.
// @Summary     List holdings
// @Description Paginated holdings of one valuation date (default: latest snapshot)
// @Tags        valuations
// @Produce     json
// @Param       date         query string false "Valuation date (YYYY-MM-DD)"
// @Param       portfolio_id query string false "Limit to one portfolio"
// @Param       page         query int    false "Page number (default 1)"
// @Param       page_size    query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[store.HoldingView] "Paginated holdings"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /holdings [get]
func (h *ValuationHandler) GetHoldings(c *gin.Context) {
	var q holdingsQuery
	var page pagination.PageRequest
	if err := bindQuery(c, &q, &page); err != nil {
		respondWithError(c, err)
		return
	}
	date, err := parseOptionalDate(q.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.queries.GetHoldings(c.Request.Context(), date, q.PortfolioID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type pricesQuery struct {
	Date string `form:"date" binding:"omitempty,valuation_date"`
}

// GetPrices handles listing stored prices.
// @Summary     List prices
// @Description Paginated prices stored for one valuation date (default today)
// @Tags        valuations
// @Produce     json
// @Param       date      query string false "Valuation date (YYYY-MM-DD)"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.InstrumentPrice] "Paginated prices"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /prices [get]
func (h *ValuationHandler) GetPrices(c *gin.Context) {
	var q pricesQuery
	var page pagination.PageRequest
	if err := bindQuery(c, &q, &page); err != nil {
		respondWithError(c, err)
		return
	}
	date, err := parseDate(q.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.queries.GetPrices(c.Request.Context(), date, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type rateQuery struct {
	Base   string `form:"base" binding:"required,iso4217"`
	Target string `form:"target" binding:"required,iso4217"`
	Date   string `form:"date" binding:"omitempty,valuation_date"`
}

// GetLatestRate handles looking up the rate in effect on a date.
// @Summary     Latest exchange rate
// @Description The newest base->target rate dated on or before date (default today)
// @Tags        valuations
// @Produce     json
// @Param       base   query string true  "Base currency (ISO 4217)"
// @Param       target query string true  "Target currency (ISO 4217)"
// @Param       date   query string false "As-of date (YYYY-MM-DD)"
// @Success     200 {object} models.ExchangeRate "Exchange rate"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "No rate on or before date"
// @Router      /exchange-rates/latest [get]
func (h *ValuationHandler) GetLatestRate(c *gin.Context) {
	var q rateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	date, err := parseDate(q.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}
	base, err := money.ParseCurrency(q.Base)
	if err != nil {
		respondWithError(c, err)
		return
	}
	target, err := money.ParseCurrency(q.Target)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rate, err := h.queries.GetLatestRate(c.Request.Context(), base, target, date)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rate)
}

type runsQuery struct {
	Phase string `form:"phase" binding:"omitempty,run_phase"`
}

// GetRuns handles listing pipeline run history.
// @Summary     List valuation runs
// @Description Paginated pipeline run history, newest first
// @Tags        valuations
// @Produce     json
// @Param       phase     query string false "prices, revaluation, pipeline or exchange_rates"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.ValuationRun] "Paginated runs"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /valuation-runs [get]
func (h *ValuationHandler) GetRuns(c *gin.Context) {
	var q runsQuery
	var page pagination.PageRequest
	if err := bindQuery(c, &q, &page); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.runs.ListRuns(c.Request.Context(), models.RunPhase(q.Phase), page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func bindQuery(c *gin.Context, targets ...any) error {
	for _, t := range targets {
		if err := c.ShouldBindQuery(t); err != nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
		}
	}
	return nil
}

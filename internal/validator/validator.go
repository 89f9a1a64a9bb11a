// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"valora/internal/models"
	"valora/internal/money"
)

var (
	currencyPairRegex = regexp.MustCompile(`^[A-Za-z]{3}[/-]?[A-Za-z]{3}$`)
	tickerRegex       = regexp.MustCompile(`^[A-Za-z0-9.\-=^]{1,32}$`)
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom validators on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("iso4217", validateISO4217)
	_ = v.RegisterValidation("quote_unit", validateQuoteUnit)
	_ = v.RegisterValidation("currency_pair", validateCurrencyPair)
	_ = v.RegisterValidation("valuation_date", validateDate)
	_ = v.RegisterValidation("ticker", validateTicker)
	_ = v.RegisterValidation("run_phase", validateRunPhase)
}

func validateISO4217(fl validator.FieldLevel) bool {
	_, err := money.ParseCurrency(fl.Field().String())
	return err == nil
}

func validateQuoteUnit(fl validator.FieldLevel) bool {
	_, err := money.ParseQuoteUnit(fl.Field().String())
	return err == nil
}

func validateCurrencyPair(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if !currencyPairRegex.MatchString(s) {
		return false
	}
	base, target := s[:3], s[len(s)-3:]
	if _, err := money.ParseCurrency(base); err != nil {
		return false
	}
	_, err := money.ParseCurrency(target)
	return err == nil
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := models.ParseDay(fl.Field().String())
	return err == nil
}

func validateTicker(fl validator.FieldLevel) bool {
	return tickerRegex.MatchString(fl.Field().String())
}

func validateRunPhase(fl validator.FieldLevel) bool {
	switch models.RunPhase(fl.Field().String()) {
	case models.RunPhasePrices, models.RunPhaseRevaluation, models.RunPhasePipeline, models.RunPhaseExchangeRates:
		return true
	}
	return false
}

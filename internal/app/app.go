// Package app wires configuration, storage, market-data clients and services
// into the components the binaries serve.
package app

import (
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"valora/internal/config"
	"valora/internal/database"
	"valora/internal/money"
	"valora/internal/provider"
	"valora/internal/services"
	"valora/internal/store"
)

// Services is the full set of valuation services over one database.
type Services struct {
	Runs     services.ValuationRunServicer
	Fetcher  services.PriceFetchServicer
	Revaluer services.RevaluationServicer
	Pipeline services.PipelineServicer
	Rates    services.ExchangeRateServicer
	Queries  services.ValuationQueryServicer
}

// Clients are the market-data sources the pipeline fetches from.
type Clients struct {
	Prices provider.PriceProviderClient
	Rates  provider.RateProviderClient
}

// OpenDatabase connects to the configured database and migrates it.
func OpenDatabase(cfg *config.Config) (*database.Manager, error) {
	manager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := manager.RunMigrations(); err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	return manager, nil
}

// NewClients builds the configured price provider and the FX client.
func NewClients(cfg *config.Config) (*Clients, error) {
	httpClient := &http.Client{Timeout: cfg.ProviderTimeout}

	var prices provider.PriceProviderClient
	switch cfg.Provider {
	case "", "yahoo":
		prices = provider.NewYahooChartClient(httpClient, cfg.ProviderBaseURL)
	case "jsonpath":
		if cfg.JSONPathURLTemplate == "" {
			return nil, fmt.Errorf("PROVIDER=jsonpath needs JSONPATH_URL_TEMPLATE")
		}
		prices = provider.NewJSONPathClient(httpClient, provider.JSONPathConfig{
			URLTemplate:   cfg.JSONPathURLTemplate,
			PricePath:     cfg.JSONPathPrice,
			CurrencyPath:  cfg.JSONPathCurrency,
			TimestampPath: cfg.JSONPathTimestamp,
		})
	default:
		return nil, fmt.Errorf("unsupported PROVIDER %q (use yahoo or jsonpath)", cfg.Provider)
	}

	return &Clients{
		Prices: prices,
		Rates:  provider.NewYahooForexClient(httpClient, cfg.FXBaseURL),
	}, nil
}

// NewServices builds every valuation service over db.
func NewServices(db *gorm.DB, cfg *config.Config, clients *Clients) (*Services, error) {
	fallback, err := money.ParseCurrency(cfg.ValuationCurrency)
	if err != nil {
		return nil, fmt.Errorf("invalid VALUATION_CURRENCY: %w", err)
	}
	pairs, err := services.ParseRatePairs(cfg.FXPairs)
	if err != nil {
		return nil, fmt.Errorf("invalid FX_PAIRS: %w", err)
	}

	instrumentStore := store.NewInstruments(db)
	priceStore := store.NewPrices(db)
	rateStore := store.NewRates(db)
	holdingStore := store.NewHoldings(db)

	runs := services.NewValuationRunService(db)
	fetcher := services.NewPriceFetchService(instrumentStore, priceStore, clients.Prices, runs, cfg.FetchConcurrency)
	revaluer := services.NewRevaluationService(holdingStore, priceStore, rateStore, runs, fallback)

	return &Services{
		Runs:     runs,
		Fetcher:  fetcher,
		Revaluer: revaluer,
		Pipeline: services.NewValuationPipelineService(instrumentStore, fetcher, revaluer, runs),
		Rates:    services.NewExchangeRateService(rateStore, holdingStore, priceStore, clients.Rates, runs, pairs, cfg.FetchConcurrency),
		Queries:  services.NewValuationQueryService(holdingStore, priceStore, rateStore),
	}, nil
}

package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "valora/internal/errors"
	"valora/internal/models"
	"valora/internal/money"
	"valora/internal/store"
	"valora/internal/testutil"
)

func newTestRevaluation(db *gorm.DB, runs RunRecorder) RevaluationServicer {
	return NewRevaluationService(store.NewHoldings(db), store.NewPrices(db), store.NewRates(db), runs, money.MustCurrency("USD"))
}

func TestRevalue(t *testing.T) {
	ctx := context.Background()
	source := testutil.Day(t, "2024-02-29")
	target := testutil.Day(t, "2024-03-01")

	t.Run("rolls_snapshot_forward", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		portfolio := testutil.CreateTestPortfolio(t, db, "USD")
		platform := testutil.CreateTestPlatform(t, db)
		inst := testutil.CreateTestInstrument(t, db, "AAPL", "USD")
		testutil.CreateTestHolding(t, db, portfolio, inst, platform, source, "10", "900", "1000")
		testutil.CreateTestPrice(t, db, inst, target, "105", "USD")

		result, err := newTestRevaluation(db, nil).Revalue(ctx, target)
		require.NoError(t, err)

		assert.Equal(t, 1, result.TotalHoldings)
		assert.Equal(t, 1, result.SuccessfulRevaluations)
		assert.Equal(t, 0, result.FailedRevaluations)
		assert.Equal(t, int64(0), result.ReplacedHoldings)
		require.NotNil(t, result.SourceValuationDate)
		assert.True(t, result.SourceValuationDate.Equal(source))
		testutil.AssertDecimal(t, result.TotalValue["USD"], "1050", "total value")

		rows, err := store.NewHoldings(db).GetByDate(ctx, target)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		h := rows[0]
		testutil.AssertDecimal(t, h.CurrentValue, "1050", "current value")
		testutil.AssertDecimal(t, h.DailyProfitLoss, "50", "daily P&L")
		testutil.AssertDecimal(t, h.DailyProfitLossPercentage, "5", "daily P&L %")
		testutil.AssertDecimal(t, h.BoughtValue, "900", "bought value")
		testutil.AssertDecimal(t, h.UnitAmount, "10", "units")
		assert.Equal(t, inst.ID, h.InstrumentID)
		assert.Equal(t, platform.ID, h.PlatformID)

		old, err := store.NewHoldings(db).GetByDate(ctx, source)
		require.NoError(t, err)
		require.Len(t, old, 1)
		testutil.AssertDecimal(t, old[0].CurrentValue, "1000", "source snapshot untouched")
	})

	t.Run("no_source_snapshot", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		portfolio := testutil.CreateTestPortfolio(t, db, "USD")
		platform := testutil.CreateTestPlatform(t, db)
		inst := testutil.CreateTestInstrument(t, db, "AAPL", "USD")
		testutil.CreateTestHolding(t, db, portfolio, inst, platform, target, "10", "900", "1000")
		testutil.CreateTestPrice(t, db, inst, target, "105", "USD")

		result, err := newTestRevaluation(db, nil).Revalue(ctx, target)
		testutil.AssertAppError(t, err, apperrors.ErrNoSourceSnapshot.Code)
		assert.Nil(t, result.SourceValuationDate)
		assert.False(t, result.Persisted)

		rows, err := store.NewHoldings(db).GetByDate(ctx, target)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		testutil.AssertDecimal(t, rows[0].CurrentValue, "1000", "target snapshot untouched")
	})

	t.Run("uses_latest_earlier_snapshot", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		portfolio := testutil.CreateTestPortfolio(t, db, "USD")
		platform := testutil.CreateTestPlatform(t, db)
		inst := testutil.CreateTestInstrument(t, db, "AAPL", "USD")
		testutil.CreateTestHolding(t, db, portfolio, inst, platform, testutil.Day(t, "2024-02-20"), "5", "400", "500")
		testutil.CreateTestHolding(t, db, portfolio, inst, platform, testutil.Day(t, "2024-02-26"), "10", "900", "1000")
		testutil.CreateTestHolding(t, db, portfolio, inst, platform, target, "99", "1", "1")
		testutil.CreateTestPrice(t, db, inst, target, "110", "USD")

		result, err := newTestRevaluation(db, nil).Revalue(ctx, target)
		require.NoError(t, err)
		assert.True(t, result.SourceValuationDate.Equal(testutil.Day(t, "2024-02-26")))
		assert.Equal(t, int64(1), result.ReplacedHoldings)

		rows, err := store.NewHoldings(db).GetByDate(ctx, target)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		testutil.AssertDecimal(t, rows[0].UnitAmount, "10", "units from 2024-02-26")
		testutil.AssertDecimal(t, rows[0].CurrentValue, "1100", "current value")
		testutil.AssertDecimal(t, rows[0].DailyProfitLossPercentage, "10", "daily P&L %")
	})

	t.Run("missing_price_excluded", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		portfolio := testutil.CreateTestPortfolio(t, db, "USD")
		platform := testutil.CreateTestPlatform(t, db)
		priced := testutil.CreateTestInstrument(t, db, "AAA", "USD")
		unpriced := testutil.CreateTestInstrument(t, db, "BBB", "USD")
		testutil.CreateTestHolding(t, db, portfolio, priced, platform, source, "1", "10", "10")
		testutil.CreateTestHolding(t, db, portfolio, unpriced, platform, source, "1", "20", "20")
		testutil.CreateTestPrice(t, db, priced, target, "11", "USD")
		testutil.CreateTestPrice(t, db, unpriced, source, "20", "USD")

		result, err := newTestRevaluation(db, nil).Revalue(ctx, target)
		require.NoError(t, err)
		assert.Equal(t, 2, result.TotalHoldings)
		assert.Equal(t, 1, result.SuccessfulRevaluations)
		assert.Equal(t, 1, result.FailedRevaluations)
		require.Len(t, result.FailedInstruments, 1)
		f := result.FailedInstruments[0]
		assert.Equal(t, "BBB", f.Ticker)
		assert.Equal(t, "BBB plc", f.Name)
		assert.Equal(t, apperrors.ErrPriceNotFound.Code, f.Code)

		rows, err := store.NewHoldings(db).GetByDate(ctx, target)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, priced.ID, rows[0].InstrumentID)
	})

	t.Run("converts_with_rolled_forward_rate", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		portfolio := testutil.CreateTestPortfolio(t, db, "GBP")
		platform := testutil.CreateTestPlatform(t, db)
		inst := testutil.CreateTestInstrument(t, db, "MSFT", "USD")
		testutil.CreateTestHolding(t, db, portfolio, inst, platform, source, "10", "700", "790")
		testutil.CreateTestPrice(t, db, inst, target, "100", "USD")
		testutil.CreateTestRate(t, db, "USD", "GBP", testutil.Day(t, "2024-02-27"), "0.80")
		testutil.CreateTestRate(t, db, "USD", "GBP", testutil.Day(t, "2024-03-04"), "0.90")

		result, err := newTestRevaluation(db, nil).Revalue(ctx, target)
		require.NoError(t, err)
		testutil.AssertDecimal(t, result.TotalValue["GBP"], "800", "GBP total")

		rows, err := store.NewHoldings(db).GetByDate(ctx, target)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		testutil.AssertDecimal(t, rows[0].CurrentValue, "800", "current value")
		testutil.AssertDecimal(t, rows[0].DailyProfitLoss, "10", "daily P&L")
		testutil.AssertDecimal(t, rows[0].DailyProfitLossPercentage, "1.27", "daily P&L %")
		assert.Equal(t, "GBP", rows[0].Currency.Code())
	})

	t.Run("missing_rate_excluded", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		portfolio := testutil.CreateTestPortfolio(t, db, "GBP")
		platform := testutil.CreateTestPlatform(t, db)
		inst := testutil.CreateTestInstrument(t, db, "MSFT", "USD")
		testutil.CreateTestHolding(t, db, portfolio, inst, platform, source, "10", "700", "790")
		testutil.CreateTestPrice(t, db, inst, target, "100", "USD")
		// Inverse direction only; never used.
		testutil.CreateTestRate(t, db, "GBP", "USD", source, "1.25")

		result, err := newTestRevaluation(db, nil).Revalue(ctx, target)
		require.NoError(t, err)
		assert.Equal(t, 0, result.SuccessfulRevaluations)
		require.Len(t, result.FailedInstruments, 1)
		assert.Equal(t, apperrors.ErrNoRateAvailable.Code, result.FailedInstruments[0].Code)
	})

	t.Run("minor_unit_prices", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		portfolio := testutil.CreateTestPortfolio(t, db, "GBP")
		platform := testutil.CreateTestPlatform(t, db)
		inst := testutil.CreateTestInstrumentWithUnit(t, db, "SHEL.L", "GBP", "GBX")
		testutil.CreateTestHolding(t, db, portfolio, inst, platform, source, "10", "1400", "1500")
		testutil.CreateTestPrice(t, db, inst, target, "15025", "GBP")

		_, err := newTestRevaluation(db, nil).Revalue(ctx, target)
		require.NoError(t, err)

		rows, err := store.NewHoldings(db).GetByDate(ctx, target)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		testutil.AssertDecimal(t, rows[0].CurrentValue, "1502.5", "current value")
		testutil.AssertDecimal(t, rows[0].DailyProfitLoss, "2.5", "daily P&L")
		testutil.AssertDecimal(t, rows[0].DailyProfitLossPercentage, "0.17", "daily P&L %")
	})

	t.Run("instrument_minor_unit_ignored_for_other_currency", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		portfolio := testutil.CreateTestPortfolio(t, db, "USD")
		platform := testutil.CreateTestPlatform(t, db)
		inst := testutil.CreateTestInstrumentWithUnit(t, db, "VOD.L", "GBP", "GBX")
		testutil.CreateTestHolding(t, db, portfolio, inst, platform, source, "10", "900", "950")
		price := &models.InstrumentPrice{
			InstrumentID:  inst.ID,
			ValuationDate: target,
			Price:         testutil.Dec(t, "100"),
			Currency:      money.MustCurrency("USD"),
			Source:        "test",
			MarketTime:    target,
		}
		require.NoError(t, db.Create(price).Error)

		_, err := newTestRevaluation(db, nil).Revalue(ctx, target)
		require.NoError(t, err)

		rows, err := store.NewHoldings(db).GetByDate(ctx, target)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		testutil.AssertDecimal(t, rows[0].CurrentValue, "1000", "current value")
		testutil.AssertDecimal(t, rows[0].DailyProfitLoss, "50", "daily P&L")
	})

	t.Run("instrument_minor_unit_applied_to_unitless_price", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		portfolio := testutil.CreateTestPortfolio(t, db, "GBP")
		platform := testutil.CreateTestPlatform(t, db)
		inst := testutil.CreateTestInstrumentWithUnit(t, db, "SHEL.L", "GBP", "GBX")
		testutil.CreateTestHolding(t, db, portfolio, inst, platform, source, "10", "1400", "1500")
		price := &models.InstrumentPrice{
			InstrumentID:  inst.ID,
			ValuationDate: target,
			Price:         testutil.Dec(t, "15025"),
			Currency:      money.MustCurrency("GBP"),
			Source:        "seed",
			MarketTime:    target,
		}
		require.NoError(t, db.Create(price).Error)

		_, err := newTestRevaluation(db, nil).Revalue(ctx, target)
		require.NoError(t, err)

		rows, err := store.NewHoldings(db).GetByDate(ctx, target)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		testutil.AssertDecimal(t, rows[0].CurrentValue, "1502.5", "current value")
	})

	t.Run("rerun_replaces_previous_result", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		portfolio := testutil.CreateTestPortfolio(t, db, "USD")
		platform := testutil.CreateTestPlatform(t, db)
		a := testutil.CreateTestInstrument(t, db, "AAA", "USD")
		b := testutil.CreateTestInstrument(t, db, "BBB", "USD")
		testutil.CreateTestHolding(t, db, portfolio, a, platform, source, "1", "10", "10")
		testutil.CreateTestHolding(t, db, portfolio, b, platform, source, "2", "10", "10")
		testutil.CreateTestPrice(t, db, a, target, "12", "USD")
		testutil.CreateTestPrice(t, db, b, target, "6", "USD")
		svc := newTestRevaluation(db, nil)

		first, err := svc.Revalue(ctx, target)
		require.NoError(t, err)
		assert.Equal(t, int64(0), first.ReplacedHoldings)

		second, err := svc.Revalue(ctx, target)
		require.NoError(t, err)
		assert.Equal(t, int64(2), second.ReplacedHoldings)

		rows, err := store.NewHoldings(db).GetByDate(ctx, target)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("cancelled_run_writes_nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		portfolio := testutil.CreateTestPortfolio(t, db, "USD")
		platform := testutil.CreateTestPlatform(t, db)
		inst := testutil.CreateTestInstrument(t, db, "AAPL", "USD")
		testutil.CreateTestHolding(t, db, portfolio, inst, platform, source, "10", "900", "1000")
		testutil.CreateTestPrice(t, db, inst, target, "105", "USD")

		runCtx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := newTestRevaluation(db, nil).Revalue(runCtx, target)
		testutil.AssertAppError(t, err, apperrors.ErrCancelled.Code)

		var count int64
		db.Model(&models.Holding{}).Where("valuation_date = ?", target).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("records_run", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		rec := &fakeRecorder{}

		_, err := newTestRevaluation(db, rec).Revalue(ctx, target)
		testutil.AssertAppError(t, err, apperrors.ErrNoSourceSnapshot.Code)

		require.Len(t, rec.runs, 1)
		assert.Equal(t, models.RunPhaseRevaluation, rec.runs[0].Phase)
		assert.False(t, rec.runs[0].Success)
		assert.Equal(t, apperrors.ErrNoSourceSnapshot.Code, rec.runs[0].ErrorCode)
	})
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name    string
		pl      string
		current string
		want    string
	}{
		{"gain", "50", "1050", "5"},
		{"loss", "-50", "950", "-5"},
		{"rounded", "1", "301", "0.33"},
		{"zero_previous", "100", "100", "0"},
		{"no_change", "0", "100", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := percentChange(decimal.RequireFromString(tt.pl), decimal.RequireFromString(tt.current))
			testutil.AssertDecimal(t, got, tt.want, "percent change")
		})
	}
}

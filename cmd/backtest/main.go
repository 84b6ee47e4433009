package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/backtest"
	"github.com/dafibh/fortuna/fortuna-backend/internal/config"
	"github.com/dafibh/fortuna/fortuna-backend/internal/forecast"
	"github.com/dafibh/fortuna/fortuna-backend/internal/repository/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ledgerFixture is the on-disk shape of a -ledger-file JSON fixture: just
// enough of domain.Ledger to seed a backtest without a database.
type ledgerFixture struct {
	OpeningBalance decimal.Decimal        `json:"openingBalance"`
	Transactions   []forecast.Transaction `json:"transactions"`
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ledgerFile := flag.String("ledger-file", "", "path to a JSON ledger fixture ({openingBalance, transactions})")
	ledgerID := flag.String("ledger-id", "", "UUID of a ledger to load from the database instead of -ledger-file")
	windowDays := flag.Int("window-days", 30, "forecast horizon evaluated at each slide (spec.md §8 scenarios use 30)")
	stepDays := flag.Int("step-days", 30, "days to advance the forecast origin between slides")
	minHistoryDays := flag.Int("min-history-days", 60, "seed history required before the first evaluation window")
	method := flag.String("method", "", "forecast method passed to every window (default: engine default, \"prophet\")")
	flag.Parse()

	if *ledgerFile == "" && *ledgerID == "" {
		log.Fatal().Msg("one of -ledger-file or -ledger-id is required")
	}

	openingBalance, transactions := loadLedger(*ledgerFile, *ledgerID)

	cfg := backtest.Config{
		WindowDays:     *windowDays,
		StepDays:       *stepDays,
		MinHistoryDays: *minHistoryDays,
		Method:         *method,
	}

	engine := forecast.NewEngine()
	report := backtest.Run(engine, openingBalance, transactions, cfg)

	printReport(report)
}

func loadLedger(ledgerFile string, ledgerID string) (decimal.Decimal, []forecast.Transaction) {
	if ledgerFile != "" {
		raw, err := os.ReadFile(ledgerFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", ledgerFile).Msg("failed to read ledger fixture")
		}
		var fixture ledgerFixture
		if err := json.Unmarshal(raw, &fixture); err != nil {
			log.Fatal().Err(err).Str("file", ledgerFile).Msg("failed to parse ledger fixture")
		}
		return fixture.OpeningBalance, fixture.Transactions
	}

	id, err := uuid.Parse(ledgerID)
	if err != nil {
		log.Fatal().Err(err).Str("ledger_id", ledgerID).Msg("ledger-id is not a valid UUID")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	repo := postgres.NewLedgerRepository(pool)
	ledger, err := repo.GetByID(id)
	if err != nil {
		log.Fatal().Err(err).Str("ledger_id", ledgerID).Msg("failed to load ledger")
	}

	return ledger.OpeningBalance, ledger.Transactions
}

func printReport(report backtest.Report) {
	log.Info().
		Int("windows", len(report.Windows)).
		Int("skipped_windows", report.SkippedWindows).
		Str("mae", report.MAE.StringFixed(2)).
		Float64("mape", report.MAPE).
		Str("bias", report.Bias.StringFixed(2)).
		Msg("backtest aggregate")

	for _, w := range report.Windows {
		log.Info().
			Time("origin", w.OriginDate).
			Str("predicted_net", w.PredictedNet.StringFixed(2)).
			Str("actual_net", w.ActualNet.StringFixed(2)).
			Str("absolute_error", w.AbsoluteError.StringFixed(2)).
			Msg("backtest window")
	}

	for cat, mae := range report.CategoryMAE {
		log.Info().
			Str("category", string(cat)).
			Str("mae", mae.StringFixed(2)).
			Str("bias", report.CategoryBias[cat].StringFixed(2)).
			Msg("backtest category")
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/tradestate/internal/logger"
	"github.com/rxtech-lab/tradestate/internal/trading"
)

// runAction resolves the configuration into a trading context and drives the
// step loop until the feed ends or the process is interrupted.
func runAction(mode trading.TradingMode) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		config, err := trading.LoadConfig(cmd.String("config"))
		if err != nil {
			return err
		}

		// Credentials come from the environment when the config leaves them out.
		if config.Exchange.APIKey == "" {
			config.Exchange.APIKey = os.Getenv("BINANCE_API_KEY")
		}

		if config.Exchange.SecretKey == "" {
			config.Exchange.SecretKey = os.Getenv("BINANCE_SECRET_KEY")
		}

		// The run logs next to its snapshots so an experiment leaves an
		// audit trail under its own directory.
		logPath := filepath.Join(config.Root, config.Experiment, "run.log")
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return fmt.Errorf("failed to create experiment directory: %w", err)
		}

		log, err := logger.NewExperimentLogger(logPath)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer log.Sync()

		tradingCtx, err := trading.NewContext(config, mode, log)
		if err != nil {
			return err
		}
		defer tradingCtx.Close()

		runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		return trading.NewRunner(tradingCtx, log).Run(runCtx)
	}
}

// schemaAction prints the JSON schema of the run configuration.
func schemaAction(_ context.Context, _ *cli.Command) error {
	var config trading.Config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func main() {
	// Missing .env is fine, credentials may come from the config file.
	godotenv.Load()

	configFlag := &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Path to the run configuration YAML file",
		Required: true,
	}

	cmd := &cli.Command{
		Name:  "trader",
		Usage: "Run a trading experiment",
		Commands: []*cli.Command{
			{
				Name:   "backtest",
				Usage:  "Replay historical bars against the paper exchange",
				Flags:  []cli.Flag{configFlag},
				Action: runAction(trading.ModeBacktest),
			},
			{
				Name:   "simulate",
				Usage:  "Pull live bars but execute against the paper exchange",
				Flags:  []cli.Flag{configFlag},
				Action: runAction(trading.ModeSimulation),
			},
			{
				Name:   "live",
				Usage:  "Pull live bars and execute real orders",
				Flags:  []cli.Flag{configFlag},
				Action: runAction(trading.ModeLive),
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the run configuration",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

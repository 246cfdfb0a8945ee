package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/akozadaev/go_farm_assist/internal/codec"
	"github.com/akozadaev/go_farm_assist/internal/config"
	"github.com/akozadaev/go_farm_assist/internal/dataset"
	"github.com/akozadaev/go_farm_assist/internal/logging"
	"github.com/spf13/cobra"
)

type options struct {
	configFile  string
	input       string
	target      string
	output      string
	batchSize   int
	encodersOut string
	appendRows  bool
}

func main() {
	var opts options

	rootCmd := &cobra.Command{
		Use:   "indexer",
		Short: "Load the price dataset into Elasticsearch, PostgreSQL, SQLite or an XLSX workbook",
		Long: `indexer reads historical market prices from a CSV/XLSX file (or the configured
dataset source) and writes them to the chosen target in batches, preserving row order.
Optionally it writes the label encoders fitted on the dataset.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "YAML config file (environment variables take precedence)")
	flags.StringVar(&opts.input, "input", "", "CSV or XLSX dataset (default: configured dataset source)")
	flags.StringVar(&opts.target, "target", "elasticsearch", "target: elasticsearch, postgres, sqlite, xlsx")
	flags.StringVar(&opts.output, "output", "", "output file for sqlite/xlsx targets")
	flags.IntVar(&opts.batchSize, "batch-size", 1000, "records per batch")
	flags.BoolVar(&opts.appendRows, "append", false, "append to the postgres/sqlite table instead of replacing its rows")
	flags.StringVar(&opts.encodersOut, "encoders-out", "", "write fitted label encoders to this YAML file")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.LoadFile(opts.configFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	src, err := openInput(opts.input, cfg)
	if err != nil {
		return err
	}
	records, err := src.LoadRecords(ctx)
	src.Close()
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	logger.Info("dataset_loaded", "records", len(records))

	if opts.encodersOut != "" {
		c, err := codec.Fit(dataset.Vocabulary(records))
		if err != nil {
			return fmt.Errorf("fit encoders: %w", err)
		}
		if err := c.Save(opts.encodersOut); err != nil {
			return err
		}
		logger.Info("encoders_written", "path", opts.encodersOut)
	}

	w, err := openWriter(opts.target, opts.output, opts.appendRows, cfg)
	if err != nil {
		return err
	}
	if err := indexRecords(ctx, records, w, opts.batchSize, os.Stderr); err != nil {
		if abortErr := w.abort(); abortErr != nil {
			logger.Warn("target_abort_failed", "target", opts.target, "error", abortErr.Error())
		}
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close target: %w", err)
	}

	logger.Info("indexing_completed", "target", opts.target, "records", len(records))
	return nil
}

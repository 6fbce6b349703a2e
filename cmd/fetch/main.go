package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"optionflow/internal/app"
	"optionflow/internal/board"
	"optionflow/internal/config"
	"optionflow/internal/logger"
)

type options struct {
	configPath string
	exchange   string
	currency   string
	expiration string
	format     string
	timeout    time.Duration
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "fetch",
		Short:         "Fetch and aggregate option listings from Deribit or OKX",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.yaml (optional)")
	pf.StringVarP(&opts.exchange, "exchange", "x", "deribit", "exchange: deribit or okx")
	pf.StringVarP(&opts.currency, "currency", "c", "BTC", "underlying: BTC or ETH")
	pf.StringVarP(&opts.format, "format", "f", formatTable, "output format: table, csv or json")
	pf.DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall deadline")

	root.AddCommand(
		&cobra.Command{
			Use:   "expirations",
			Short: "List expiration dates",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, opts, func(ctx context.Context, b *board.Board) board.Result {
					return b.Expirations(ctx, opts.exchange, opts.currency)
				})
			},
		},
		withExpiration(opts, &cobra.Command{
			Use:   "view",
			Short: "Show call and put volume by strike for one expiration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, opts, func(ctx context.Context, b *board.Board) board.Result {
					return b.View(ctx, opts.exchange, opts.currency, opts.expiration)
				})
			},
		}),
		withExpiration(opts, &cobra.Command{
			Use:   "quotes",
			Short: "Show the normalized quotes of one expiration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, opts, func(ctx context.Context, b *board.Board) board.Result {
					return b.Quotes(ctx, opts.exchange, opts.currency, opts.expiration)
				})
			},
		}),
	)
	return root
}

func withExpiration(opts *options, cmd *cobra.Command) *cobra.Command {
	cmd.Flags().StringVarP(&opts.expiration, "expiration", "e", "", "expiration date YYYY-MM-DD (default: earliest)")
	return cmd
}

func run(cmd *cobra.Command, opts *options, call func(context.Context, *board.Board) board.Result) error {
	if err := validFormat(opts.format); err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// Logs go to stderr so stdout stays machine-readable.
	l := logger.GetLogger()
	if err := l.Configure(cfg.Log.Level, "text", "stderr", 0); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer a.Close()

	res := call(ctx, a.Board)
	if res.Error != nil {
		return fmt.Errorf("%s: %s", res.Error.Kind, res.Error.Message)
	}
	if res.Notice != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "note: %s\n", res.Notice.Message)
	}
	return render(cmd.OutOrStdout(), opts.format, res)
}

// futterwatch scans five pet-shop storefronts for wet cat food offers,
// reconciles them into a cheapest-offer view, and persists price history.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/futterwatch/futterwatch/internal/config"
	"github.com/futterwatch/futterwatch/internal/extract"
	"github.com/futterwatch/futterwatch/internal/fetch"
	"github.com/futterwatch/futterwatch/internal/run"
	"github.com/futterwatch/futterwatch/internal/scrape"
	"github.com/futterwatch/futterwatch/internal/sink"
	"github.com/futterwatch/futterwatch/internal/sites"
)

var (
	flagConfig   string
	flagBrands   []string
	flagCeiling  float64
	flagMaxPages int
	flagDefaults bool
	flagNoStore  bool
)

func main() {
	root := &cobra.Command{
		Use:           "futterwatch",
		Short:         "Wet cat food price tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file (default: futterwatch.yaml)")

	for _, cmd := range []*cobra.Command{newRunCmd(), newReducedCmd(), newBrandsCmd(), newConfigCmd(), newVersionCmd()} {
		root.AddCommand(cmd)
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&flagBrands, "brands", "b", nil, "watched brands (comma separated)")
	cmd.Flags().Float64VarP(&flagCeiling, "max-price", "p", 0, "price ceiling in €/kg (0: config default)")
	cmd.Flags().IntVar(&flagMaxPages, "max-pages", 0, "page budget per site (0: config default)")
	cmd.Flags().BoolVar(&flagDefaults, "include-default-brands", true, "always scan the built-in quality brands")
	cmd.Flags().BoolVar(&flagNoStore, "no-store", false, "skip persistence, log results only")
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Full scan: brand scan plus discount scan, match, persist, alert",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeScan(cmd.Context(), false)
		},
	}
	addScanFlags(cmd)
	return cmd
}

func newReducedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reduced",
		Short: "Scan confirmed-discounted offers only",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeScan(cmd.Context(), true)
		},
	}
	addScanFlags(cmd)
	return cmd
}

func executeScan(ctx context.Context, reducedOnly bool) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapters, cleanup, err := buildAdapters(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	store, err := buildSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	var alerter sink.Alerter
	if cfg.Alerts.Enabled {
		alerter = sink.NewLogAlerter(logger)
	}

	coordinator := run.NewCoordinator(adapters, scrape.New(logger), store, alerter, cfg, logger)
	summary, err := coordinator.Run(ctx, run.Request{
		WatchedBrands:        flagBrands,
		PriceCeilingPerKg:    flagCeiling,
		IncludeDefaultBrands: flagDefaults,
		MaxPages:             flagMaxPages,
		ReducedOnly:          reducedOnly,
	})
	if err != nil {
		return err
	}

	fmt.Printf("offers: %d  new: %d  on sale: %d  alerts: %d\n",
		summary.Total, summary.NewProducts, summary.OnSale, summary.AlertsSent)
	return nil
}

// buildAdapters constructs the enabled adapters and the fetch layers they
// share. The returned cleanup closes the browser.
func buildAdapters(cfg *config.Config, logger *slog.Logger) ([]sites.Adapter, func(), error) {
	needBrowser := cfg.Sites.Zooplus || cfg.Sites.Bitiba || cfg.Sites.Zooroyal || cfg.Sites.Fressnapf

	var session *fetch.Session
	cleanup := func() {}
	if needBrowser {
		var err error
		session, err = fetch.NewSession(cfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("start browser: %w", err)
		}
		cleanup = func() {
			if err := session.Close(); err != nil {
				logger.Warn("browser close failed", "error", err)
			}
		}
	}

	var adapters []sites.Adapter
	if cfg.Sites.Zooplus {
		adapters = append(adapters, sites.NewZooplus(session, cfg, logger))
	}
	if cfg.Sites.Bitiba {
		adapters = append(adapters, sites.NewBitiba(session, cfg, logger))
	}
	if cfg.Sites.Zooroyal {
		adapters = append(adapters, sites.NewZooroyal(session, cfg, logger))
	}
	if cfg.Sites.Fressnapf {
		adapters = append(adapters, sites.NewFressnapf(session, cfg, logger))
	}
	if cfg.Sites.Zoo24 {
		adapters = append(adapters, sites.NewZoo24(fetch.NewHTTPClient(cfg, logger), cfg, logger))
	}
	if len(adapters) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("no sites enabled")
	}
	return adapters, cleanup, nil
}

func buildSink(ctx context.Context, cfg *config.Config) (sink.Sink, error) {
	if flagNoStore || cfg.Storage.Type == "none" {
		return sink.NewNoopSink(), nil
	}
	return sink.NewMongoSink(ctx, cfg.Storage)
}

func newBrandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "brands",
		Short: "List the built-in brand tables",
		Run: func(_ *cobra.Command, _ []string) {
			quality := make(map[string]bool, len(extract.QualityBrands))
			for _, b := range extract.QualityBrands {
				quality[strings.ToLower(b)] = true
			}
			brands := append([]string(nil), extract.KnownBrands...)
			sort.Slice(brands, func(i, j int) bool {
				return strings.ToLower(brands[i]) < strings.ToLower(brands[j])
			})
			for _, b := range brands {
				marker := " "
				if quality[strings.ToLower(b)] {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, b)
			}
			fmt.Printf("\n%d brands, * = always scanned\n", len(brands))
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println("futterwatch", config.Version)
		},
	}
}

func newLogger(cfg config.Logging) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

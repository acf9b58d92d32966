// Package main is the entry point for httpmap.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/httpmap/httpmap/internal/api"
	"github.com/httpmap/httpmap/internal/config"
	"github.com/httpmap/httpmap/internal/netenum"
	"github.com/httpmap/httpmap/internal/output"
	"github.com/httpmap/httpmap/internal/publisher"
	"github.com/httpmap/httpmap/internal/scanner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile         string
	flagConcurrency int
	flagRateLimit   int
	flagTimeout     time.Duration
	flagNoColor     bool
	flagQuiet       bool
)

var rootCmd = &cobra.Command{
	Use:   "httpmap [subnet_size]",
	Short: "Discover HTTP(S) endpoints on the local network",
	Long: `httpmap scans the local subnet for reachable HTTP(S) endpoints over a
fixed set of common web ports and reports each responder's status code
and page title. The subnet size argument is the prefix length of the
range to scan, derived from the host's own address (default 24).`,
	Example: `  httpmap
  httpmap 16
  httpmap 24 --concurrency 50 --timeout 2s
  httpmap serve`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runScan,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run httpmap as a long-lived service with a REST control API",
	RunE:  runServe,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file path (default: ./httpmap.yaml)")

	f := rootCmd.Flags()
	f.IntVarP(&flagConcurrency, "concurrency", "c", 0, "Max simultaneous in-flight probes")
	f.IntVar(&flagRateLimit, "rate-limit", 0, "Max probes started per second")
	f.DurationVarP(&flagTimeout, "timeout", "t", 0, "Per-probe timeout")
	f.BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	f.BoolVarP(&flagQuiet, "quiet", "q", false, "Only print results")

	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if len(args) == 1 {
		prefix, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid subnet size %q: %w", args[0], err)
		}
		cfg.Scan.SubnetPrefix = prefix
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Scan.Concurrency = flagConcurrency
	}
	if cmd.Flags().Changed("rate-limit") {
		cfg.Scan.RateLimit = flagRateLimit
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Scan.Timeout = int(flagTimeout.Milliseconds())
	}

	if err := cfg.Scan.Validate(); err != nil {
		return err
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	base, err := netenum.LocalIPv4()
	if err != nil {
		return fmt.Errorf("determining local address: %w", err)
	}

	subnet, err := netenum.New(base, cfg.Scan.SubnetPrefix)
	if err != nil {
		return err
	}

	pub, err := newPublisher(cfg, sugar)
	if err != nil {
		return err
	}
	if pub != nil {
		defer func() { _ = pub.Close() }()
	}

	scan, err := scanner.New(cfg.Scan, pub, sugar).Start(context.Background(), subnet)
	if err != nil {
		return err
	}

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "Scanning %s (%d targets)\n",
			subnet.String(), scan.Progress.Total())
	}

	presenter := output.NewPresenter(flagNoColor, flagQuiet)
	renderer := output.NewProgressRenderer(scan.Progress, flagQuiet)
	renderer.Start()

	for r := range scan.Results() {
		presenter.WriteResult(r)
	}

	scan.Wait()
	renderer.Stop()
	presenter.WriteSummary(scan.Progress)

	// Zero responders is a successful scan, not an error.
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	sugar.Infow("Starting httpmap service",
		"port", cfg.Server.Port,
		"subnet_prefix", cfg.Scan.SubnetPrefix,
		"rate_limit", cfg.Scan.RateLimit,
	)

	pub, err := newPublisher(cfg, sugar)
	if err != nil {
		return err
	}
	if pub != nil {
		defer func() { _ = pub.Close() }()
	}

	scan := scanner.New(cfg.Scan, pub, sugar)
	server := api.New(*cfg, scan, sugar)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sugar.Infof("HTTP server listening on port %d", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		sugar.Errorf("Server forced to shutdown: %v", err)
	}

	sugar.Info("Server stopped")
	return nil
}

func newPublisher(cfg *config.Config, sugar *zap.SugaredLogger) (*publisher.Publisher, error) {
	if cfg.AMQP.URL == "" {
		return nil, nil
	}
	pub, err := publisher.New(cfg.AMQP.URL, cfg.AMQP.Exchange, sugar)
	if err != nil {
		return nil, fmt.Errorf("initializing publisher: %w", err)
	}
	return pub, nil
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.WarnLevel
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build()
}

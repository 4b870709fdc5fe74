package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/warp/society-engine/api"
	"github.com/warp/society-engine/config"
	"github.com/warp/society-engine/society"
	"github.com/warp/society-engine/store"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
	EnvFile    string
	Driver     string
	DBPath     string
	KeyPrefix  string
	LogLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "society",
		Short:         "Society administration store",
		Long:          "Houses, residents, vehicles, maintenance payments and expenses over a durable key-value medium.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before SOCIETY_* variables")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "storage driver (sqlite|postgres|s3|memory)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "SQLite database path")
	cmd.PersistentFlags().StringVar(&opts.KeyPrefix, "key-prefix", "", "prefix for every collection key")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")

	serve := newServeCommand(opts)
	cmd.RunE = serve.RunE
	cmd.Flags().AddFlagSet(serve.Flags())

	cmd.AddCommand(serve)
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newGenerateCommand(opts))
	cmd.AddCommand(newResetCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))

	return cmd
}

// load assembles the config: file, dotenv, environment, then any flag the
// user set explicitly.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath, o.EnvFile)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.Storage.Driver = o.Driver
	}
	if flags.Changed("db") {
		cfg.Storage.SQLite.Path = o.DBPath
	}
	if flags.Changed("key-prefix") {
		cfg.Storage.KeyPrefix = o.KeyPrefix
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// session is an opened store plus the resources behind it.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	store  *society.Store
	close  func() error
}

func (o *rootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, err := o.load(cmd)
	if err != nil {
		return nil, err
	}
	logger := cfg.Log.NewLogger(cmd.ErrOrStderr())
	slog.SetDefault(logger)

	kv, closeKV, err := store.Open(cmd.Context(), cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}
	logger.Debug("storage opened", "driver", cfg.Storage.Driver)

	st := society.NewStore(kv,
		society.WithLogger(logger),
		society.WithKeyPrefix(cfg.Storage.KeyPrefix),
		society.WithCurrency(cfg.Billing.Currency),
		society.WithDueDay(cfg.Billing.DueDay),
		society.WithLateAfterDay(cfg.Billing.LateAfterDay),
	)
	return &session{cfg: cfg, logger: logger, store: st, close: closeKV}, nil
}

// =============================================================================
// SERVE
// =============================================================================

type serveOptions struct {
	Addr         string
	AutoGenerate bool
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&opts.AutoGenerate, "auto-generate", false, "bill occupied houses automatically each month")
	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions, opts *serveOptions) error {
	s, err := root.open(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if opts.Addr != "" {
		s.cfg.HTTP.Addr = opts.Addr
	}
	if opts.AutoGenerate {
		s.cfg.Billing.AutoGenerate = true
	}
	amount, err := s.cfg.Billing.Amount()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := api.NewMetrics(reg)

	handler := api.NewHandler(s.store, amount)
	handler.Metrics = metrics
	handler.Logger = s.logger
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: s.cfg.HTTP.AllowedOrigins})

	var scheduler *api.BillingScheduler
	if s.cfg.Billing.AutoGenerate {
		scheduler = api.NewBillingScheduler(s.store, amount)
		scheduler.CheckInterval = s.cfg.Billing.CheckInterval
		scheduler.Metrics = metrics
		scheduler.Logger = s.logger
		scheduler.Start()
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:         s.cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.cfg.HTTP.Addr, "driver", s.cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-quit:
	}

	s.logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// =============================================================================
// BULK OPERATIONS
// =============================================================================

func newExportCommand(root *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot of all collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			snap, err := s.store.ExportSnapshot(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newImportCommand(root *rootOptions) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Apply a snapshot document",
		Long: `Apply a snapshot document produced by export.

replace overwrites every collection. merge appends only records whose
house number, member id, vehicle number, payment id or expenditure id is
not already present. Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			snap, err := society.DecodeSnapshot(r)
			if err != nil {
				return err
			}

			s, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			counts, err := s.store.ImportSnapshot(cmd.Context(), snap, society.ImportOptions{Mode: society.ImportMode(mode)})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported (%s): %d houses, %d members, %d vehicles, %d payments, %d expenditures\n",
				mode, counts.Houses, counts.Members, counts.Vehicles, counts.Payments, counts.Expenditures)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(society.ImportReplace), "import mode (replace|merge)")
	return cmd
}

func newGenerateCommand(root *rootOptions) *cobra.Command {
	var amount string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Bill every occupied house for the current month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			value, err := s.cfg.Billing.Amount()
			if err != nil {
				return err
			}
			if amount != "" {
				if value, err = decimal.NewFromString(amount); err != nil {
					return fmt.Errorf("--amount: %w", err)
				}
			}
			n, err := s.store.GenerateMonthlyPayments(cmd.Context(), value)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d payments\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "amount per house (default billing.default_amount)")
	return cmd
}

func newResetCommand(root *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear houses, members, vehicles, payments and expenditures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes all records; pass --yes to confirm")
			}
			s, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.store.ResetAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all collections cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func newSeedCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write demo houses, members and vehicles into empty collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			counts, err := s.store.SeedDemo(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d houses, %d members, %d vehicles\n",
				counts.Houses, counts.Members, counts.Vehicles)
			return nil
		},
	}
}

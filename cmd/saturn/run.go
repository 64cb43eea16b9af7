package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/auth"
	"mercator-hq/saturn/pkg/backend"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/deployments"
	"mercator-hq/saturn/pkg/gateway"
	"mercator-hq/saturn/pkg/registry"
	"mercator-hq/saturn/pkg/routing"
	"mercator-hq/saturn/pkg/server"
	"mercator-hq/saturn/pkg/telemetry/logging"
	"mercator-hq/saturn/pkg/telemetry/metrics"
	"mercator-hq/saturn/pkg/token"
	"mercator-hq/saturn/pkg/usage"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Saturn gateway",
	Long: `Start the Saturn gateway with the specified configuration.

The gateway listens on the configured address, discovers the model
deployments of every configured provider, and serves the OpenAI,
Anthropic, and Gemini compatible endpoints.

Examples:
  # Start with the default config
  saturn run

  # Start with a custom config
  saturn run --config /etc/saturn/config.yaml

  # Override the listen address
  saturn run --listen 0.0.0.0:8080

  # Validate the config without starting the server
  saturn run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger := logging.Setup(cfg.Telemetry.Logging)
	config.WarnDanglingFallbacks(cfg, logger)

	if runFlags.dryRun {
		fmt.Printf("configuration valid: %d provider(s), %d model(s)\n",
			len(cfg.Providers), len(cfg.Models))
		return nil
	}

	logger.Info("starting saturn",
		"version", Version,
		"providers", len(cfg.Providers),
		"strategy", cfg.LoadBalancing,
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	m := metrics.New(cfg.Telemetry.Metrics.Namespace)
	tokens := token.NewManager(cfg.Providers, logger,
		token.WithRefreshObserver(m.ObserveTokenRefresh))
	directory := deployments.NewDirectory(deployments.NewClient(tokens, nil), cfg.Providers, logger,
		deployments.WithRefreshObserver(func(provider string, models int, err error) {
			if err == nil {
				m.SetDeployments(provider, models)
			}
		}))
	reg := registry.New(cfg.Models, cfg.FallbackModels)
	validator := auth.NewValidator(cfg.APIKeys)
	invokers := backend.NewInvokers(backend.NewClient(cfg.Backend))

	pool, err := routing.NewPool(cfg.Providers, cfg.LoadBalancing, logger)
	if err != nil {
		return err
	}

	recorder, err := usage.NewRecorder(cfg.Usage, logger)
	if err != nil {
		return fmt.Errorf("failed to open usage recorder: %w", err)
	}
	defer recorder.Close()

	refresher := deployments.NewRefresher(directory, cfg.RefreshInterval, logger,
		deployments.WithCycleObserver(m.ObserveRefreshCycle))
	if err := refresher.Start(ctx); err != nil {
		return err
	}
	defer refresher.Stop()

	// Hot reload: API keys and the model table swap in place; provider
	// and server changes need a restart.
	watcher, err := config.NewWatcher(cfgFile, logger)
	if err != nil {
		logger.Warn("config watcher unavailable, hot reload disabled", "error", err)
	} else {
		go watcher.Watch(ctx, func(next *config.Config) {
			config.WarnDanglingFallbacks(next, logger)
			validator.Swap(next.APIKeys)
			reg.Swap(next.Models, next.FallbackModels)
		})
		defer watcher.Stop()
	}

	dispatcher := gateway.NewDispatcher(reg, pool, tokens, directory, invokers, m, logger)
	gw := gateway.New(cfg, gateway.Deps{
		Dispatcher: dispatcher,
		Validator:  validator,
		Recorder:   recorder,
		Metrics:    m,
		Registry:   reg,
		Directory:  directory,
		Pool:       pool,
		Logger:     logger,
	})

	return server.New(cfg.Server, gw.Handler(), logger).Start(ctx)
}

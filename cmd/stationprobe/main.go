package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loykin/stationprobe"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds the HTTP drain once the scheduler has stopped.
const shutdownTimeout = 10 * time.Second

func main() {
	root := buildRoot(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the root command. Running it without a subcommand serves.
func buildRoot(stdout, stderr io.Writer) *cobra.Command {
	globalFlags := &GlobalFlags{}
	checkFlags := &CheckFlags{}

	root := createRootCommand(globalFlags, stderr)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(
		createServeCommand(globalFlags, stderr),
		createCheckCommand(globalFlags, checkFlags, stdout, stderr),
		createValidateCommand(globalFlags, stdout),
	)
	return root
}

func createRootCommand(flags *GlobalFlags, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "stationprobe",
		Short: "WiFi station probe exporting Prometheus metrics",
		Long: `stationprobe associates with each configured access point in turn,
acquires a DHCP lease and pings a host through it, then exposes the
results as Prometheus metrics.

Runtime tunables come from the environment (PORT, CONFIG_FILE, INTERVAL,
WIFI_CONNECT_TIMEOUT, DHCP_RETRIEVAL_TIMEOUT, PING_TIMEOUT); .env.local and
.env are loaded first.

Examples:
  stationprobe                            # serve, same as "stationprobe serve"
  stationprobe check --config=stations.json
  stationprobe validate --config=stations.yaml`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags, stderr)
		},
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to the station file (overrides CONFIG_FILE)")
	root.PersistentFlags().IntVar(&flags.Port, "port", 0, "HTTP listen port (overrides PORT)")
	root.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "debug, info, warn or error (overrides log.level)")
	return root
}

func createServeCommand(flags *GlobalFlags, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Probe stations on an interval and serve metrics",
		Long: `Run a probe cycle immediately and then every INTERVAL, serving /metrics,
/api/stations and /healthz. SIGINT or SIGTERM lets the station in flight
finish and shuts down.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags, stderr)
		},
	}
}

func createCheckCommand(flags *GlobalFlags, checkFlags *CheckFlags, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one probe cycle and print the results as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			log, closer := stationprobe.NewLogger(c, stderr)
			defer func() { _ = closer.Close() }()

			p, err := stationprobe.New(c, log)
			if err != nil {
				return err
			}
			defer func() { _ = p.Shutdown(context.Background()) }()

			snap := p.RunOnce(cmd.Context())
			enc := json.NewEncoder(stdout)
			if !checkFlags.Compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(snap)
		},
	}
	cmd.Flags().BoolVar(&checkFlags.Compact, "compact", false, "print single-line JSON")
	return cmd
}

func createValidateCommand(flags *GlobalFlags, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(stdout, "config %s ok: %d station(s) on %s\n", c.ConfigFile, len(c.Stations), c.Interface)
			return err
		},
	}
}

// loadConfig applies the flags that were set on top of the environment.
func loadConfig(cmd *cobra.Command, flags *GlobalFlags) (stationprobe.Config, error) {
	c, err := stationprobe.LoadConfig(flags.ConfigPath)
	if err != nil {
		return c, fmt.Errorf("error loading config: %w", err)
	}
	if cmd.Flags().Changed("port") {
		if flags.Port <= 0 || flags.Port > 65535 {
			return c, fmt.Errorf("invalid --port %d", flags.Port)
		}
		c.Port = flags.Port
	}
	if flags.LogLevel != "" {
		c.Log.Level = flags.LogLevel
	}
	return c, nil
}

func runServe(cmd *cobra.Command, flags *GlobalFlags, stderr io.Writer) error {
	c, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}
	log, closer := stationprobe.NewLogger(c, stderr)
	defer func() { _ = closer.Close() }()

	p, err := stationprobe.New(c, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// cycles keep an uncancelled context so the station in flight completes its stages
	if err := p.Start(context.WithoutCancel(ctx)); err != nil {
		_ = p.Shutdown(context.Background())
		return err
	}

	<-ctx.Done()
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return p.Shutdown(sctx)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/syslogexporter/internal/agent"
	"github.com/ethpandaops/syslogexporter/internal/version"
)

var (
	cfgFile  string
	logLevel string
)

var errConfigRequired = errors.New(`required flag "config" not set`)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "syslogexporter",
		Short: "Export collectd metric samples as syslog lines",
		Long: `syslogexporter receives metric samples from a collection daemon and
writes one text line per sample and configured target to the local
system log, so metrics live alongside the rest of the host's logs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	cmd.PersistentFlags().StringVar(
		&cfgFile, "config", "",
		"path to config file (required)",
	)
	cmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "",
		"override log level (debug, info, warn, error)",
	)

	cmd.AddCommand(versionCmd())
	cmd.AddCommand(checkConfigCmd())

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Get().Detailed())
		},
	}
}

func checkConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the config file and every target block",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile == "" {
				return errConfigRequired
			}

			log := newLogger()

			cfg, err := agent.LoadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			parsed := agent.ParseTargets(log, cfg.TargetBlocks())

			names := make([]string, 0, len(parsed.Settings))
			for name := range parsed.Settings {
				names = append(names, name)
			}

			sort.Strings(names)

			out := cmd.OutOrStdout()
			for _, name := range names {
				fmt.Fprintf(out, "ok      %s\n", name)
			}

			failed := make([]string, 0, len(parsed.Failed))
			for name := range parsed.Failed {
				failed = append(failed, name)
			}

			sort.Strings(failed)

			for _, name := range failed {
				fmt.Fprintf(out, "invalid %s: %v\n", name, parsed.Failed[name])
			}

			if len(parsed.Failed) > 0 {
				return fmt.Errorf("%d invalid target block(s)", len(parsed.Failed))
			}

			return nil
		},
	}
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return log
}

func run(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return errConfigRequired
	}

	log := newLogger()

	cfg, err := agent.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flag overrides config file.
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level %q: %w", cfg.LogLevel, err)
	}

	log.SetLevel(level)

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer cancel()

	a, err := agent.New(log, cfgFile, cfg)
	if err != nil {
		return fmt.Errorf("creating agent: %w", err)
	}

	log.WithField("version", version.Get().String()).Info("Starting syslogexporter")

	if err := a.Start(ctx); err != nil {
		if stopErr := a.Stop(); stopErr != nil {
			log.WithError(stopErr).Error("Error during cleanup")
		}

		return fmt.Errorf("starting agent: %w", err)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case <-hup:
			log.Info("Received SIGHUP, reloading config")

			if err := a.Reload(); err != nil {
				log.WithError(err).Error("Config reload failed")
			}
		}
	}

	log.Info("Shutting down syslogexporter")

	if err := a.Stop(); err != nil {
		log.WithError(err).Error("Error during shutdown")
		return fmt.Errorf("stopping agent: %w", err)
	}

	log.Info("Shutdown complete")

	return nil
}

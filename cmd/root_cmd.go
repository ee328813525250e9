package cmd

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/supabase/siwx/internal/conf"
	"github.com/supabase/siwx/internal/observability"
	"github.com/supabase/siwx/internal/utilities"
)

var configFile = ""

// RootCommand will setup and return the root command
func RootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "siwx",
		Short:         "Create, verify and store Sign-In-With-X sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(messageCmd(), verifyCmd(), sessionsCmd(), versionCmd())
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "the config file to use")

	return rootCmd
}

func execWithConfig(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	config, err := conf.LoadGlobal(configFile)
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	if err := observability.ConfigureLogging(&config.Logging); err != nil {
		return errors.Wrap(err, "unable to configure logging")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer func() {
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		observability.WaitForCleanup(shutdownCtx)
	}()

	if err := observability.ConfigureMetrics(ctx, &config.Metrics); err != nil {
		return errors.Wrap(err, "unable to configure metrics")
	}

	if err := utilities.InitVersionMetrics(ctx); err != nil {
		logrus.WithError(err).Warn("unable to publish version metrics")
	}

	a, err := newApp(config)
	if err != nil {
		return err
	}

	return fn(ctx, a)
}

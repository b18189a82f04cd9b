package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"quarterly-status/internal/core"
	"quarterly-status/internal/features/status"
	"quarterly-status/internal/features/status/models"
	"quarterly-status/internal/server"
)

const shutdownTimeout = 30 * time.Second

// app is everything a command needs, built from the environment
type app struct {
	config   *core.Config
	logger   *core.Logger
	registry *core.Registry
	status   *status.Feature
}

func newApp() (*app, error) {
	config, err := core.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := core.ParseLogLevel(config.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger := core.NewLoggerWithOptions(os.Stdout, level)

	registry := core.NewRegistry(logger)
	feature := status.NewFeature(logger, status.NewConfig(config), status.Options{})
	if err := registry.Register(feature); err != nil {
		return nil, err
	}

	return &app{
		config:   config,
		logger:   logger,
		registry: registry,
		status:   feature,
	}, nil
}

// initFeatures prepares features for a one-shot command
func (a *app) initFeatures(ctx context.Context) error {
	if !a.config.IsFeatureEnabled("status") {
		return errors.New("status feature is disabled (STATUS_ENABLE_AGGREGATOR=false)")
	}
	return a.registry.InitAll(ctx)
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.registry.ShutdownAll(ctx)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run scheduled refreshes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(a.config, a.logger, a.registry)
			if err := srv.Init(ctx); err != nil {
				a.close()
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(ctx)
			}()

			select {
			case err = <-errCh:
			case <-ctx.Done():
				a.logger.Info("Shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
				err = shutdownErr
			}
			return err
		},
	}
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Run a single refresh cycle and exit",
		Long:  "Fetches every source once, merges new activities into the history and republishes the status view. Intended for an external cron runner.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.initFeatures(cmd.Context()); err != nil {
				return err
			}

			job, ok := a.registry.FindJob("refresh")
			if !ok {
				return errors.New("no refresh job registered")
			}
			return job.Run(cmd.Context())
		},
	}
}

func newLocationCmd() *cobra.Command {
	locationCmd := &cobra.Command{
		Use:   "location",
		Short: "Manage the current location",
	}

	var (
		lat      float64
		lng      float64
		activity string
	)

	setCmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Set the current location and republish the status view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := models.LocationUpdate{
				Location: strings.TrimSpace(args[0]),
				Activity: activity,
			}

			latSet, lngSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
			if latSet != lngSet {
				return errors.New("--lat and --lng must be given together")
			}
			if latSet {
				coords, err := models.NewCoordinates(lat, lng)
				if err != nil {
					return err
				}
				update.Coordinates = &coords
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.initFeatures(cmd.Context()); err != nil {
				return err
			}

			loc, err := a.status.SetLocation(cmd.Context(), update)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Location set to %s (%.4f, %.4f)\n", loc.Name, loc.Coordinates.Lat(), loc.Coordinates.Lng())
			return nil
		},
	}

	setCmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	setCmd.Flags().Float64Var(&lng, "lng", 0, "longitude")
	setCmd.Flags().StringVar(&activity, "activity", "", "what you are doing there")

	locationCmd.AddCommand(setCmd)
	return locationCmd
}

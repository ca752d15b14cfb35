package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/EternisAI/silo-device/internal/device"
	"github.com/EternisAI/silo-device/internal/discovery"
	"github.com/EternisAI/silo-device/internal/provisioning"
	"github.com/EternisAI/silo-device/internal/radio/sim"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var AppVersion string

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	runCmd := newRunCommand()

	rootCmd := &cobra.Command{
		Use:           "silo-device-agent",
		Short:         "Silo device agent: provisioning and network join",
		Version:       AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return InitConfig(configPath)
		},
		RunE: runCmd.RunE,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newResetCommand())
	rootCmd.AddCommand(newProvisionCommand())

	return rootCmd
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Boot the device: provision if unconfigured, otherwise join the network",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context())
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the device holds network credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore(cmd.Context(), config.Storage)
			if err != nil {
				return err
			}
			defer closeStore()

			status := "no"
			if store.IsProvisioned() {
				status = "yes"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "provisioned: %s\n", status)
			return nil
		},
	}
}

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Erase stored credentials so the next boot enters setup mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore(cmd.Context(), config.Storage)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Clear(); err != nil {
				return fmt.Errorf("failed to clear credentials: %w", err)
			}
			slog.Info("Credentials cleared")
			fmt.Fprintln(cmd.OutOrStdout(), "credentials cleared")
			return nil
		},
	}
}

func runAgent(ctx context.Context) error {
	slog.Info("Silo Device Agent", "version", AppVersion)
	gin.SetMode(gin.ReleaseMode)

	var (
		closeOnce  sync.Once
		closeStore = func() {}
	)
	release := func() { closeOnce.Do(func() { closeStore() }) }
	defer release()

	restarter := newExecRestarter(release)

	store, closeFn, err := openStore(ctx, config.Storage)
	if err != nil {
		return restartAfterFailure(ctx, restarter, err)
	}
	closeStore = closeFn

	r := sim.New(config.Radio)

	provCfg := config.Provisioning
	if provCfg.DeviceName == "" {
		provCfg.DeviceName = defaultDeviceName()
	}

	var advertiser discovery.Advertiser = discovery.Nop{}
	if config.Discovery.Enabled {
		advertiser = discovery.NewMDNSAdvertiser(config.Discovery)
	}

	server := provisioning.NewServer(provCfg, config.Http, provisioning.Deps{
		Radio:      r,
		Store:      store,
		Restarter:  restarter,
		Advertiser: advertiser,
	})

	flow := &device.Flow{
		Store:       store,
		Radio:       r,
		Provisioner: server,
		JoinOptions: config.WiFi,
	}

	conn, err := flow.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			slog.Info("Shutdown requested during boot")
			return nil
		}
		return restartAfterFailure(ctx, restarter, err)
	}
	release()

	slog.Info("Device online", "ssid", conn.SSID(), "ip", conn.IPInfo().IP)

	<-ctx.Done()
	slog.Info("Received shutdown signal")

	if err := conn.Close(); err != nil {
		slog.Error("Failed to close WiFi connection", "error", err)
	}
	slog.Info("Shutdown complete")
	return nil
}

// restartAfterFailure logs a failed boot, waits restart.delay and restarts.
// It only returns if the wait is interrupted or the restart fails.
func restartAfterFailure(ctx context.Context, restarter provisioning.Restarter, cause error) error {
	slog.Error("Boot failed, restarting", "error", cause, "delay", config.Restart.Delay)

	t := time.NewTimer(config.Restart.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil
	case <-t.C:
	}

	if err := restarter.Restart(); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func defaultDeviceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "silo-device"
	}
	return host
}

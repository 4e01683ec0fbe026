package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Atlas-Launcher/runner/internal/backup"
	"github.com/Atlas-Launcher/runner/internal/cache"
	"github.com/Atlas-Launcher/runner/internal/config"
	"github.com/Atlas-Launcher/runner/internal/fetch"
	"github.com/Atlas-Launcher/runner/internal/ipc"
	"github.com/Atlas-Launcher/runner/internal/launch"
	"github.com/Atlas-Launcher/runner/internal/lock"
	"github.com/Atlas-Launcher/runner/internal/logging"
	"github.com/Atlas-Launcher/runner/internal/loader"
	"github.com/Atlas-Launcher/runner/internal/rcon"
	"github.com/Atlas-Launcher/runner/internal/runtimepaths"
	"github.com/Atlas-Launcher/runner/internal/stage"
	"github.com/Atlas-Launcher/runner/internal/supervisor"
)

// Version is set at build time.
var Version = "dev"

var (
	flagServerRoot string
	flagRuntimeDir string
	flagLogLevel   string
	flagConfigFile string
)

var rootCmd = &cobra.Command{
	Use:   "runnerd",
	Short: "runnerd supervises a provisioned Minecraft server",
	Long: `runnerd provisions a modpack into a server root, supervises the
resulting Java child process, and exposes status/control over a local
stream socket.

With no subcommand it runs "serve" directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon loop (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServerRoot, "server-root", "", "server root directory (required)")
	rootCmd.PersistentFlags().StringVar(&flagRuntimeDir, "runtime-dir", "", "override the runtime directory for the socket and lock file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "RUST_LOG-style level filter, e.g. \"info,supervisor=debug\"")
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "path to a runnerd.yaml config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "runnerd %s\n", Version)
		},
	})
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags(), flagConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagServerRoot != "" {
		cfg.ServerRoot = flagServerRoot
	}
	if cfg.ServerRoot == "" {
		return fmt.Errorf("--server-root is required")
	}
	if flagRuntimeDir != "" {
		cfg.RuntimeDir = flagRuntimeDir
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	logger := logging.New(logging.ParseFilter(cfg.LogLevel), "daemon")

	paths := runtimepaths.Resolve()
	if cfg.RuntimeDir != "" {
		paths = runtimepaths.Paths{
			RuntimeDir: cfg.RuntimeDir,
			SocketPath: filepath.Join(cfg.RuntimeDir, "runnerd.sock"),
			LockPath:   filepath.Join(cfg.RuntimeDir, "runnerd.lock"),
		}
	}
	if err := paths.EnsureDir(); err != nil {
		return fmt.Errorf("create runtime dir: %w", err)
	}

	inst, err := lock.Acquire(paths.LockPath)
	if err != nil {
		if err == lock.ErrHeld {
			logger.Info("another daemon instance already holds the lock, exiting")
			return nil
		}
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	defer inst.Release()

	ctx := context.Background()
	if err := lock.RemoveStaleSocket(ctx, paths.SocketPath); err != nil {
		logger.Warn("failed to remove stale socket", "error", err)
	}

	if err := stage.Recover(cfg.ServerRoot); err != nil {
		logger.Error("startup recovery failed", "error", err)
		return fmt.Errorf("recover server root: %w", err)
	}

	cacheDir := filepath.Join(cfg.ServerRoot, ".runner", "cache")
	artifactCache, err := cache.New(cacheDir)
	if err != nil {
		return fmt.Errorf("open artifact cache: %w", err)
	}
	fetcher := fetch.New(artifactCache, httpProvider{})

	state := supervisor.New(cfg.ServerRoot)
	backupEngine := backup.Engine{
		ServerRoot:         cfg.ServerRoot,
		Quiescer:           rcon.Quiescer{Logger: logger},
		Logger:             logger,
		KeepWorldBackups:   cfg.Backup.KeepWorldBackups,
		KeepCurrentBackups: cfg.Backup.KeepCurrentBackups,
	}

	registry := loader.NewMapRegistry()
	if cfg.Loader.RegistryFile != "" {
		loaded, err := loader.LoadRegistryFile(cfg.Loader.RegistryFile)
		if err != nil {
			return fmt.Errorf("load loader registry: %w", err)
		}
		registry = loaded
	} else {
		logger.Warn("no loader registry file configured (loader.registry_file); Start/Update will fail at the loader-install step until one is set")
	}

	stageConfig := stage.Config{
		ServerRoot:    cfg.ServerRoot,
		Fetcher:       fetcher,
		Registry:      registry,
		LoaderVersion: cfg.Launch.LoaderVersion,
		Launch: launch.Options{
			MemoryMB:          cfg.Launch.MemoryMB,
			JVMArgs:           cfg.Launch.JVMArgs,
			JavaBin:           cfg.Launch.JavaBin,
			JavaHome:          cfg.Launch.JavaHome,
			JavaMajorOverride: cfg.Launch.JavaMajorOverride,
		},
		Logger: logger,
	}

	listener, err := net.Listen("unix", paths.SocketPath)
	if err != nil {
		return fmt.Errorf("bind ipc socket: %w", err)
	}
	defer listener.Close()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	serveCtx, cancelServe := context.WithCancel(sigCtx)
	defer cancelServe()

	dispatcher := ipc.NewDispatcher(logger)
	server := ipc.NewServer(listener, dispatcher, logger)
	ipc.RegisterHandlers(dispatcher, server, state, backupEngine, func() supervisor.StartDeps {
		return supervisor.StartDeps{
			StageConfig:  stageConfig,
			BackupEngine: backupEngine,
			OnLifecycle: func(event string) {
				server.Broadcast(ipc.TopicLifecycle, ipc.LifecycleEvent{Kind: ipc.KindLifecycle, Event: event})
			},
			OnLog: func(line supervisor.LogLine) {
				server.Broadcast(ipc.TopicLogs, ipc.LogEvent{Kind: ipc.KindLog, Line: line})
			},
		}
	}, cancelServe)

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(serveCtx) }()

	logger.Info("runnerd listening", "socket", paths.SocketPath, "server_root", cfg.ServerRoot)

	select {
	case <-serveCtx.Done():
		server.Broadcast(ipc.TopicLifecycle, ipc.LifecycleEvent{Kind: ipc.KindLifecycle, Event: "DaemonShuttingDown"})
		if _, err := state.Stop(context.Background(), cfg.Launch.Grace(30*time.Second), false); err != nil {
			logger.Warn("stop on shutdown failed", "error", err)
		}
		<-serveErr
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve ipc: %w", err)
		}
	}

	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cuemby/keyd/pkg/command"
	"github.com/cuemby/keyd/pkg/config"
	"github.com/cuemby/keyd/pkg/log"
	"github.com/cuemby/keyd/pkg/metrics"
	"github.com/cuemby/keyd/pkg/monitor"
	"github.com/cuemby/keyd/pkg/persistence"
	"github.com/cuemby/keyd/pkg/server"
	"github.com/cuemby/keyd/pkg/store"
	"github.com/cuemby/keyd/pkg/ttl"
	"github.com/cuemby/keyd/pkg/watch"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build).
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "keyd",
	Short:   "keyd - a single-node in-memory key/value server",
	Long:    `keyd speaks a RESP-like wire protocol over TCP and persists its state through an append log plus periodic snapshots.`,
	Version: Version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the key/value server",
	RunE:  runServe,
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Load the configuration file (writing a default if absent) and print it",
	RunE:  runCheckConfig,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("keyd version %s\nCommit: %s\n", Version, Commit))
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "./keyd.json", "Path to the JSON configuration file")

	serveCmd.Flags().String("listen", "127.0.0.1:6380", "Address to listen on")
	serveCmd.Flags().String("db-path", "./keyd-data/keyd.db", "Ordered store file path")
	serveCmd.Flags().String("aof-path", "./keyd-data/keyd.aof", "Append-log file path")
	serveCmd.Flags().String("rdb-path", "./keyd-data/keyd.rdb", "Snapshot file path")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkConfigCmd)

	cobra.OnInitialize(initLogging)
}

// runCheckConfig loads (or writes the default) config file and prints it,
// a quick way to validate a deployment's JSON before running serve.
func runCheckConfig(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
}

// runServe wires config, storage, persistence, the command dispatcher
// and the connection loop together, then blocks until a shutdown signal
// or a fatal server error arrives. Startup failures (config parse, store
// open, log replay I/O) are returned and exit the process non-zero per
// spec.md §6; everything reachable afterward is a normal shutdown.
func runServe(cmd *cobra.Command, args []string) error {
	listen, _ := cmd.Flags().GetString("listen")
	configPath, _ := cmd.Flags().GetString("config")
	dbPath, _ := cmd.Flags().GetString("db-path")
	aofPath, _ := cmd.Flags().GetString("aof-path")
	rdbPath, _ := cmd.Flags().GetString("rdb-path")

	for _, p := range []string{dbPath, aofPath, rdbPath, configPath} {
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create directory for %s: %w", p, err)
			}
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := log.WithComponent("main")

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	wm := watch.NewManager()
	clients := monitor.NewClientRegistry()
	stats := monitor.NewStats()
	slowlog := monitor.NewSlowLog(time.Duration(cfg.SlowlogThresholdMs) * time.Millisecond)
	info := monitor.NewProvider(Version, clients, stats, dbSizeFunc(st), cfg.AOF, cfg.RDB)

	rec, aofLog, err := buildRecorder(cfg, aofPath, rdbPath, st)
	if err != nil {
		return err
	}
	if aofLog != nil {
		defer aofLog.Close()
	}

	// Replay must run through a dispatcher with no AOF appender wired,
	// even though aofLog is already open (in append mode) at this point:
	// if the live appender were attached, every replayed line would be
	// re-appended to the very file Replay's scanner is still reading,
	// turning a bounded one-time replay into unbounded self-reingestion.
	// Only once replay has finished do we build the dispatcher that
	// actually serves connections, with the real appender wired in.
	if aofLog != nil {
		replayDisp := command.NewDispatcher(st, wm, info, clients, slowlog, stats, nil)
		replayed, err := persistence.Replay(aofPath, replayDisp)
		if err != nil {
			return fmt.Errorf("replay append log: %w", err)
		}
		logger.Info().Int("commands", replayed).Msg("append log replayed")
	}

	// rec is only handed to the dispatcher as a non-nil AOFAppender when
	// persistence is actually enabled; a nil *persistence.Recorder boxed
	// into the interface would satisfy the dispatcher's own nil check
	// incorrectly (a non-nil interface wrapping a nil pointer).
	var appender command.AOFAppender
	if rec != nil {
		appender = rec
	}
	disp := command.NewDispatcher(st, wm, info, clients, slowlog, stats, appender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := ttl.NewSweeper(st.Direct(wm.NotifyKeyChange), command.PurgeLogicalKey, 30*time.Second)
	go sweeper.Run(ctx)

	if rec != nil && rec.Snap != nil {
		go rec.Snap.Run(ctx)
	}

	if cfg.MetricsEnabled {
		go serveMetrics(cfg.MetricsPort, logger)
	}

	srv := server.New(listen, disp, clients)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	cancel()
	if aofLog != nil {
		if err := aofLog.Sync(); err != nil {
			logger.Warn().Err(err).Msg("final append-log fsync failed")
		}
	}

	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("server did not shut down within grace period")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

// buildRecorder wires the append log and snapshotter per the independent
// aof/rdb config flags (spec.md §6), returning the composed
// command.AOFAppender plus the raw *persistence.Log for the final
// shutdown fsync (nil if aof is disabled).
func buildRecorder(cfg config.Config, aofPath, rdbPath string, st *store.BoltStore) (*persistence.Recorder, *persistence.Log, error) {
	if !cfg.AOF && !cfg.RDB {
		return nil, nil, nil
	}

	var aofLog *persistence.Log
	if cfg.AOF {
		l, err := persistence.OpenLog(aofPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open append log: %w", err)
		}
		aofLog = l
	}

	var snap *persistence.Snapshotter
	if cfg.RDB {
		interval := time.Duration(cfg.SnapshotIntervalSecs) * time.Second
		snap = persistence.NewSnapshotter(st, rdbPath, interval, cfg.SnapshotThreshold, aofLog)
	}

	return &persistence.Recorder{Log: aofLog, Snap: snap}, aofLog, nil
}

func dbSizeFunc(st *store.BoltStore) func() (int, error) {
	return func() (int, error) {
		count := 0
		err := st.Each(func(key, value []byte) error {
			count++
			return nil
		})
		return count, err
	}
}

// serveMetrics runs the Prometheus HTTP exporter (spec.md §6
// metrics_enabled/metrics_port). Listen errors are logged, not fatal:
// the KV server itself is already accepting connections.
func serveMetrics(port uint16, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	logger.Info().Str("addr", addr).Msg("metrics endpoint listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn().Err(err).Msg("metrics server stopped")
	}
}

// Maestro resilience core entry point.
//
// Usage:
//
//	maestro run                        # run the demo workload
//	maestro run --config config.yaml   # with a config file
//	maestro config                     # print the effective config
//	maestro version                    # show version info
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	maestro "github.com/kulbirminhas-aiinitiative/maestro-platform-sub023"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/config"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/internal/metrics"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/persistence"
	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/types"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		if err := runCmd(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "maestro: %v\n", err)
			os.Exit(1)
		}
	case "config":
		if err := configCmd(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "maestro: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("maestro %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: maestro <command> [flags]

commands:
  run       run the demo workload through the retry ladder
  config    print the effective config
  version   show version info`)
}

func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	return loader.Load()
}

func configCmd(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg.ToMap(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	personas := fs.Int("personas", 3, "number of concurrent personas")
	tasksPer := fs.Int("tasks", 5, "tasks per persona")
	failRate := fs.Float64("fail-rate", 0.3, "per-attempt simulated failure probability")
	stateDir := fs.String("state-dir", "", "override the checkpoint directory (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *stateDir != "" {
		cfg.State.StateDir = *stateDir
		cfg.State.CheckpointDir = *stateDir + "/checkpoints"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector("maestro", logger)
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	store, err := persistence.NewFileStore(cfg.State, logger)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer store.Close()

	logger.Info("starting demo workload",
		zap.Int("personas", *personas),
		zap.Int("tasks_per_persona", *tasksPer),
		zap.Float64("fail_rate", *failRate),
	)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < *personas; i++ {
		personaID := fmt.Sprintf("persona-%d", i+1)
		g.Go(func() error {
			return runPersona(ctx, logger, cfg, collector, store, personaID, *tasksPer, *failRate)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("demo workload finished")
	return nil
}

func runPersona(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	collector *metrics.Collector,
	store persistence.Store,
	personaID string,
	tasks int,
	failRate float64,
) error {
	rt, err := maestro.New(personaID,
		maestro.WithConfig(cfg),
		maestro.WithLogger(logger),
		maestro.WithMetrics(collector),
		maestro.WithStore(store),
		maestro.WithTokenEstimate(demoEstimate(cfg)),
	)
	if err != nil {
		return fmt.Errorf("wire %s: %w", personaID, err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; i < tasks; i++ {
		taskName := fmt.Sprintf("%s-task-%d", personaID, i+1)

		result, err := rt.ExecuteSafe(ctx, taskName, func(ctx context.Context) (any, error) {
			if rng.Float64() < failRate {
				return nil, errors.New("simulated transient failure")
			}
			return fmt.Sprintf("output of %s", taskName), nil
		})

		switch {
		case err == nil:
			logger.Info("task succeeded",
				zap.String("task_name", taskName),
				zap.Int("level2_attempts", result.Level2Attempts),
			)
		case types.IsHelpNeeded(err):
			logger.Warn("task needs help", zap.String("task_name", taskName))
		case types.IsCircuitBreakerOpen(err):
			logger.Warn("breaker open, backing off",
				zap.String("task_name", taskName),
			)
			// Give the breaker its cooldown before the next task.
			select {
			case <-time.After(cfg.Level2.CircuitBreakerCooldown):
			case <-ctx.Done():
				return ctx.Err()
			}
		case types.IsTokenBudgetExceeded(err):
			logger.Warn("persona out of budget, stopping",
				zap.String("persona_id", personaID),
			)
			return nil
		default:
			return err
		}
	}
	return nil
}

// demoEstimate prices a demo attempt at 1% of the persona budget so the
// workload exercises the guard without exhausting it.
func demoEstimate(cfg *config.Config) uint64 {
	return cfg.Token.MaxTokensPerPersona / 100
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics", zap.String("addr", addr))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/integrii/flaggy"
	"golang.org/x/sync/errgroup"

	"github.com/leslobov/ameba/internal/engine"
	"github.com/leslobov/ameba/internal/infrastructure/storage"
	"github.com/leslobov/ameba/internal/remote"
	"github.com/leslobov/ameba/internal/sched"
	"github.com/leslobov/ameba/internal/server"
	"github.com/leslobov/ameba/internal/store"
	"github.com/leslobov/ameba/internal/version"
	"github.com/leslobov/ameba/internal/view"
	"github.com/leslobov/ameba/pkg/logger"
	"github.com/leslobov/ameba/pkg/utils"
)

func init() {
	logger.Init()
}

// RunOptions параметры запуска клиента
type RunOptions struct {
	engineURL  string
	listen     string
	interval   time.Duration
	timeout    time.Duration
	seed       int64
	seedPhrase string
	headless   bool
	steps      int
	batch      int
	snapshot   string
	printBoard bool
}

func main() {
	ro, co, configCmd := initOptions()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := remote.NewHTTPClient(ro.engineURL, ro.timeout)
	snapshots := storage.NewSnapshotStore(ro.snapshot)

	if configCmd.Used {
		if err := runConfig(ctx, os.Stdout, client, snapshots, co); err != nil {
			logger.Log.Fatal("Config command failed: ", remote.UserMessage(err))
		}
		return
	}

	// Терминальный интерфейс занимает экран, логи уходят в файл
	if !ro.headless && ro.batch == 0 && os.Getenv("LOG_FILE") == "" {
		if err := logger.ToFile("ameba.log"); err != nil {
			logger.Log.WithError(err).Warn("failed to redirect log to ameba.log")
		}
	}

	logger.Log.Info("Starting Ameba client...")
	logger.Log.Info(version.String())

	if err := run(ctx, ro, client, snapshots); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.WithError(err).Fatal("Ameba client stopped with error")
	}
	logger.Log.Info("Done.")
}

func run(ctx context.Context, ro *RunOptions, client *remote.HTTPClient, snapshots *storage.SnapshotStore) error {
	cfg := engine.NewConfig()
	cfg.Interval = ro.interval
	cfg.Seed = ro.seed
	if ro.seedPhrase != "" {
		cfg.Seed = utils.StringToSeed(ro.seedPhrase)
	}
	if cfg.Seed != 0 {
		logger.Log.Infof("Using explicit seed: %d", cfg.Seed)
	}
	if ro.batch > 0 {
		cfg.BatchSize = ro.batch
	}

	game, source := loadGameConfig(ctx, client, snapshots)
	logger.Log.WithField("source", source).Info("Game configuration loaded")

	ctrl := engine.NewController(client, store.New(), sched.NewReal(), cfg)
	defer ctrl.Close()
	if err := ctrl.Configure(remote.ToDomainConfig(game)); err != nil {
		return err
	}

	if err := client.Health(ctx); err != nil {
		logger.Log.WithError(err).Warn("Engine is not reachable yet")
	} else if st, err := ctrl.EngineStatus(ctx); err != nil {
		logger.Log.WithError(err).Warn("Engine status is unavailable")
	} else {
		logger.Log.WithField("loaded", st.Loaded).Info("Engine is up")
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	// Graceful Shutdown
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)
		select {
		case <-sig:
			logger.Log.Info("Shutting down...")
			stop()
		case <-gctx.Done():
		}
		return nil
	})

	if ro.listen != "" {
		srv := server.New(ctrl, ro.listen)
		g.Go(func() error { return srv.Run(gctx) })
	}

	g.Go(func() error {
		defer stop()
		return present(gctx, ro, ctrl)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// present выбирает режим: пакет, headless или терминальный интерфейс.
func present(ctx context.Context, ro *RunOptions, ctrl *engine.Controller) error {
	switch {
	case ro.batch > 0:
		out := view.NewConsoleOut(ctrl, os.Stdout)
		out.Register(ro.engineURL)
		rep, err := ctrl.RunBatch(ctx, ro.batch)
		if err != nil {
			return err
		}
		if rep != nil {
			out.Batch(rep)
		}
		if ro.printBoard {
			b, _ := ctrl.Store().Current()
			out.Board(b)
		}
		return nil

	case ro.headless:
		out := view.NewConsoleOut(ctrl, os.Stdout)
		out.Register(ro.engineURL)
		err := out.Run(ctx, ro.steps)
		if ro.printBoard {
			b, _ := ctrl.Store().Current()
			out.Board(b)
		}
		return err

	default:
		ui, err := view.NewConsoleUI(ctrl, ro.engineURL)
		if err != nil {
			return err
		}
		return ui.Run(ctx)
	}
}

func initOptions() (ro *RunOptions, co *ConfigOptions, configCmd *flaggy.Subcommand) {
	ro = &RunOptions{
		engineURL: remote.DefaultBaseURL,
		interval:  time.Second,
		timeout:   remote.DefaultTimeout,
		snapshot:  storage.DefaultPath(),
	}
	if v := os.Getenv("AMEBA_ENGINE_URL"); v != "" {
		ro.engineURL = v
	}
	ro.listen = os.Getenv("AMEBA_LISTEN")

	flaggy.SetName("ameba")
	flaggy.SetDescription("Client for the remote ameba simulation engine")
	flaggy.SetVersion(version.String())
	flaggy.DefaultParser.ShowHelpOnUnexpected = true

	flaggy.String(&ro.engineURL, "e", "engine", "Base URL of the simulation engine")
	flaggy.Duration(&ro.interval, "i", "interval", "Auto-step interval, for example 500ms")
	flaggy.Duration(&ro.timeout, "t", "timeout", "Timeout of a single engine request")
	flaggy.Int64(&ro.seed, "s", "seed", "Seed of the initial placement (0 for random)")
	flaggy.String(&ro.seedPhrase, "", "seed-phrase", "Phrase to derive the placement seed from")
	flaggy.Bool(&ro.headless, "", "headless", "Run without the terminal UI")
	flaggy.Int(&ro.steps, "n", "steps", "Stop headless auto-step after this many iterations (0 for no limit)")
	flaggy.Int(&ro.batch, "b", "batch", "Run one batch simulation of this many iterations and exit")
	flaggy.String(&ro.listen, "l", "listen", "Address of the viewer server, for example :8080 (empty to disable)")
	flaggy.String(&ro.snapshot, "", "snapshot", "Path of the local configuration snapshot")
	flaggy.Bool(&ro.printBoard, "", "board", "Print the final board in headless and batch modes")

	co = &ConfigOptions{}
	configCmd = flaggy.NewSubcommand("config")
	configCmd.Description = "Show, update or reset the game configuration in the config store"
	configCmd.Bool(&co.reset, "", "reset", "Reset the configuration to the engine defaults")
	configCmd.Int(&co.rows, "", "rows", "Board rows")
	configCmd.Int(&co.columns, "", "columns", "Board columns")
	configCmd.Float64(&co.totalEnergy, "", "total-energy", "Total food energy on the board")
	configCmd.Float64(&co.energyPerFood, "", "energy-per-food", "Energy of one food cell")
	configCmd.Float64(&co.initialEnergy, "", "initial-energy", "Initial energy of an ameba")
	flaggy.AttachSubcommand(configCmd, 1)

	flaggy.Parse()

	if ro.interval < engine.MinInterval {
		flaggy.ShowHelpAndExit("interval must be at least " + engine.MinInterval.String())
	}
	if ro.steps < 0 || ro.batch < 0 {
		flaggy.ShowHelpAndExit("steps and batch must not be negative")
	}
	if !strings.HasPrefix(ro.engineURL, "http://") && !strings.HasPrefix(ro.engineURL, "https://") {
		flaggy.ShowHelpAndExit("engine must be an http(s) URL")
	}
	return
}

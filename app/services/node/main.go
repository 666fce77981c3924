package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/blocktree/app/services/node/handlers"
	"github.com/ardanlabs/blocktree/foundation/blocktree/cluster"
	"github.com/ardanlabs/blocktree/foundation/blocktree/consensus"
	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
	"github.com/ardanlabs/blocktree/foundation/blocktree/ledger"
	"github.com/ardanlabs/blocktree/foundation/blocktree/network"
	"github.com/ardanlabs/blocktree/foundation/blocktree/reward"
	"github.com/ardanlabs/blocktree/foundation/blocktree/storage/disk"
	"github.com/ardanlabs/blocktree/foundation/blocktree/storage/memory"
	"github.com/ardanlabs/blocktree/foundation/events"
	"github.com/ardanlabs/blocktree/foundation/logger"
	"github.com/ardanlabs/blocktree/foundation/nameservice"
	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:60s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			CORSOrigins     []string      `conf:"default:*"`
		}
		Ledger struct {
			Difficulty      uint          `conf:"default:2"`
			TargetBlockTime time.Duration `conf:"default:200ms"`
			SplitInterval   int           `conf:"default:5"`
			Nodes           int           `conf:"default:10"`
			Storage         string        `conf:"default:memory,help:memory or disk"`
			DBPath          string        `conf:"default:zblock/branches/"`
			BroadcastQueue  int           `conf:"default:100"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/wallets/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "blocktree node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides names for the addresses of the wallets
	// found in the configured folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	for address, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "address", address)
	}

	// =========================================================================
	// Blocktree Support

	// The blocktree packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	var store database.Storage
	switch cfg.Ledger.Storage {
	case "memory":
		store = memory.New()

	case "disk":
		dsk, err := disk.New(cfg.Ledger.DBPath)
		if err != nil {
			return fmt.Errorf("opening disk storage: %w", err)
		}
		store = dsk

	default:
		return fmt.Errorf("unknown storage %q", cfg.Ledger.Storage)
	}

	// Mined blocks are handed to the queue and delivered to the websocket
	// viewers without holding up the miner.
	sink := func(block database.Block) {
		evts.Send(fmt.Sprintf("network: delivered: branch[%s]: blk[%d]: hash[%s]", block.Header.BranchID, block.Header.Number, block.Hash))
	}
	queue := network.NewQueue(cfg.Ledger.BroadcastQueue, sink, ev)
	defer queue.Shutdown()

	// The partition is computed over the latency the network reports
	// between the nodes.
	clustering, err := cluster.LatencyFromNetwork(cfg.Ledger.Nodes, queue)
	if err != nil {
		return fmt.Errorf("building node graph: %w", err)
	}

	ldg, err := ledger.New(ledger.Config{
		Storage:       store,
		Engine:        consensus.New(cfg.Ledger.Difficulty, cfg.Ledger.TargetBlockTime, ev),
		Clustering:    clustering,
		Broadcaster:   queue,
		Reward:        reward.New(),
		SplitInterval: cfg.Ledger.SplitInterval,
		EvHandler:     ev,
	})
	if err != nil {
		return err
	}
	defer ldg.Shutdown()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, ldg)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Ledger:   ldg,
		NS:       ns,
		Evts:     evts,
		Origins:  cfg.Web.CORSOrigins,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

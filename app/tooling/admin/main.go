// This program performs administrative tasks for the blocktree.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/blocktree/app/tooling/admin/commands"
	"github.com/ardanlabs/blocktree/foundation/logger"
	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		if !errors.Is(err, commands.ErrHelp) {
			log.Errorw("startup", "ERROR", err)
		}
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Args   conf.Args
		Ledger struct {
			Difficulty      uint          `conf:"default:2"`
			TargetBlockTime time.Duration `conf:"default:200ms"`
			SplitInterval   int           `conf:"default:5"`
			Nodes           int           `conf:"default:10"`
			DBPath          string        `conf:"default:zblock/branches/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "blocktree admin",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	lcfg := commands.LedgerConfig{
		Difficulty:      cfg.Ledger.Difficulty,
		TargetBlockTime: cfg.Ledger.TargetBlockTime,
		SplitInterval:   cfg.Ledger.SplitInterval,
		Nodes:           cfg.Ledger.Nodes,
		DBPath:          cfg.Ledger.DBPath,
	}

	return processCommands(cfg.Args, log, lcfg)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, log *zap.SugaredLogger, cfg commands.LedgerConfig) error {
	switch args.Num(0) {
	case "demo":
		if err := commands.Demo(os.Stdout, log, cfg, args.Num(1) == "disk"); err != nil {
			return fmt.Errorf("running demo: %w", err)
		}

	case "branches":
		if err := commands.Branches(os.Stdout, cfg.DBPath); err != nil {
			return fmt.Errorf("listing branches: %w", err)
		}

	case "branch":
		if err := commands.Branch(os.Stdout, cfg.DBPath, args.Num(1)); err != nil {
			return fmt.Errorf("showing branch: %w", err)
		}

	default:
		fmt.Println("demo [disk]: grow and split an in-process blocktree")
		fmt.Println("branches:    list the branches stored at the db path")
		fmt.Println("branch <id>: show the blocks of a branch stored at the db path")
		fmt.Println("provide a command to get more help.")
		return commands.ErrHelp
	}

	return nil
}

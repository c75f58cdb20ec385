// Command fmf is the minimal CLI surface over the engine package: a
// single "run" subcommand that loads a chain file and a runtime
// config, executes the chain, and reports the run's exit code per the
// taxonomy in errs.ExitCode.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bonehead-labs/fmf/chain"
	"github.com/bonehead-labs/fmf/connector"
	"github.com/bonehead-labs/fmf/engine"
	"github.com/bonehead-labs/fmf/errs"
	"github.com/bonehead-labs/fmf/logging"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: fmf run --chain <path> [--config <path>] [--profile <name>] [--connector name=dir]")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runCommand(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}

func runCommand(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	chainPath := fs.String("chain", "", "path to the chain YAML file")
	configPath := fs.String("config", "", "path to the runtime config YAML file")
	profile := fs.String("profile", "", "named profile overlay within the config file")
	connectorFlag := fs.String("connector", "", "name=dir binding for the local connector the chain's inputs.connector references")
	fs.Parse(args)

	if *chainPath == "" {
		fmt.Fprintln(os.Stderr, "run requires --chain")
		return 1
	}

	cfg, err := chain.Load(*chainPath)
	if err != nil {
		logging.Error("loading chain file", "err", err)
		return errs.ExitCode(err)
	}

	opts := []engine.Option{engine.WithConfigPath(*configPath), engine.WithProfile(*profile)}
	if *connectorFlag != "" {
		name, dir, ok := splitConnectorFlag(*connectorFlag)
		if !ok {
			fmt.Fprintln(os.Stderr, "--connector must be name=dir")
			return 1
		}
		opts = append(opts, engine.WithConnector(name, connector.NewLocal(name, dir)))
	}

	e, err := engine.New(opts...)
	if err != nil {
		logging.Error("initialising engine", "err", err)
		return errs.ExitCode(err)
	}

	result, err := e.Run(context.Background(), cfg)
	if err != nil {
		logging.Error("run failed", "err", err)
		return errs.ExitCode(err)
	}

	fmt.Printf("run %s complete: %d records, artefacts in %s\n", result.RunID, result.RecordsProcessed, result.RunDir)
	return 0
}

func splitConnectorFlag(s string) (name, dir string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"appdocu/src"
	"appdocu/src/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const usage = `appdocu exports the documentation of Qlik Cloud apps.

Usage:
  appdocu <command> [flags]

Commands:
  docu         app info, master dimensions, measures and variables of one app
  masteritems  merged master item list of one app
  apps         all apps, or the apps of one space
  users        tenant users, or one user with --id
  glossaries   glossaries, one glossary with --id, or one term with --term

Credentials are read from QLIK_TENANT and QLIK_API_KEY. A .env file in the
working directory is loaded first. Run "appdocu <command> --help" for the
flags of a command.
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(stdout, usage)
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q, run \"appdocu help\"", args[0])
	}

	// Load environment variables from .env file
	envErr := godotenv.Load()

	config, err := src.LoadConfig()
	if err != nil {
		return err
	}
	closer, err := logger.InitLogger(config.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer closer.Close()
	if envErr != nil {
		log.Warn().Err(envErr).Msg("⚠️ no .env file loaded, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return cmd(ctx, &env{config: config, logger: logger.GetLogger(), stdout: stdout}, args[1:])
}

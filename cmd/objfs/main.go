// Command objfs manages an objfs storage from the shell: one filesystem
// operation per invocation, against the index and object backend described
// by the configuration file.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/objfs/internal/logger"
	"github.com/marmos91/objfs/pkg/config"
	"github.com/marmos91/objfs/pkg/objfs"
	"github.com/spf13/pflag"
)

// app carries the global flags and standard streams shared by all commands.
type app struct {
	configPath string
	logLevel   string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "objfs: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// run parses the global flags and dispatches the rest of args.
func (a *app) run(ctx context.Context, args []string) error {
	global := pflag.NewFlagSet("objfs", pflag.ContinueOnError)
	global.SetOutput(io.Discard)
	global.SetInterspersed(false)
	global.StringVarP(&a.configPath, "config", "c", "", "Path to config file (default: $XDG_CONFIG_HOME/objfs/config.yaml)")
	global.StringVar(&a.logLevel, "log-level", "", "Override the configured log level (DEBUG, INFO, WARN, ERROR)")
	if err := global.Parse(args); err != nil {
		return err
	}

	return rootCommand().Execute(ctx, a, global.Args())
}

// withStorage loads the configuration, opens the storage it describes, runs
// fn and releases the storage.
func (a *app) withStorage(ctx context.Context, fn func(s *objfs.Storage) error) (err error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	rt, err := config.CreateStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(rt.Storage)
}

// exitCode maps storage error codes to distinct process exit statuses.
func exitCode(err error) int {
	switch objfs.CodeOf(err) {
	case objfs.ErrNotFound:
		return 2
	case objfs.ErrConflict:
		return 3
	case objfs.ErrInvalidState:
		return 4
	case objfs.ErrBackendFailure:
		return 5
	default:
		return 1
	}
}

func rootCommand() *Command {
	return &Command{
		Name:    "objfs",
		Summary: "objfs - a filesystem on top of an object store",
		Subcommands: []*Command{
			infoCommand(),
			statCommand(),
			lsCommand(),
			mkdirCommand(),
			rmdirCommand(),
			rmCommand(),
			putCommand(),
			getCommand(),
			catCommand(),
			writeCommand(),
			touchCommand(),
			mvCommand(),
			cpCommand(),
			urnCommand(),
			versionsCommand(),
			configCommand(),
		},
	}
}

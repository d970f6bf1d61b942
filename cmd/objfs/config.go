package main

import (
	"context"
	"fmt"

	"github.com/marmos91/objfs/pkg/config"
	"github.com/spf13/pflag"
)

func configCommand() *Command {
	return &Command{
		Name:    "config",
		Summary: "Create or inspect the configuration file",
		Subcommands: []*Command{
			{
				Name:    "init",
				Summary: "Write a sample configuration file",
				Usage:   "[--force]",
				NArgs:   0,
				Flags: func(fs *pflag.FlagSet) {
					fs.BoolP("force", "f", false, "Overwrite an existing file")
				},
				Run: func(_ context.Context, a *app, fs *pflag.FlagSet, _ []string) error {
					force, _ := fs.GetBool("force")

					path := a.configPath
					if path == "" {
						path = config.GetDefaultConfigPath()
					}
					if err := config.InitConfigToPath(path, force); err != nil {
						return err
					}
					fmt.Fprintf(a.stdout, "Configuration written to %s\n", path)
					return nil
				},
			},
			{
				Name:    "show",
				Summary: "Print the effective configuration",
				NArgs:   0,
				Run: func(_ context.Context, a *app, _ *pflag.FlagSet, _ []string) error {
					cfg, err := config.Load(a.configPath)
					if err != nil {
						return err
					}
					out, err := config.Render(cfg)
					if err != nil {
						return err
					}
					_, err = fmt.Fprint(a.stdout, out)
					return err
				},
			},
		},
	}
}

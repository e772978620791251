package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	api "Scrumble"
	"Scrumble/config"
)

// commandContext defers loading the environment until a command needs the store.
type commandContext struct {
	newServices func(ctx context.Context) (*api.Services, error)
}

func defaultServices(ctx context.Context) (*api.Services, error) {
	config.LoadDotenv()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := api.NewLogger(cfg)
	slog.SetDefault(logger)
	return api.NewServices(ctx, cfg, logger)
}

func (c *commandContext) withServices(ctx context.Context, fn func(*api.Services) error) error {
	svc, err := c.newServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}

func newRootCommand() *cobra.Command {
	return newRootCommandWith(&commandContext{newServices: defaultServices})
}

func newRootCommandWith(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "scrumblectl",
		Short:         "Scrumble admin and tooling CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newSeedCommand(ctx))
	rootCmd.AddCommand(newArchiveCommand(ctx))
	rootCmd.AddCommand(newLoadCommand())

	return rootCmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return api.Run()
		},
	}
}

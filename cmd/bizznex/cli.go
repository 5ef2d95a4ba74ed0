package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

func buildCLI() *cli.Command {
	migrateFlag := &cli.BoolFlag{
		Name:  "migrate",
		Value: true,
		Usage: "apply pending database migrations before starting",
	}

	concurrencyFlag := &cli.IntFlag{
		Name:  "concurrency",
		Usage: "maximum jobs processed at once (overrides WORKER_MAX_CONCURRENCY)",
	}

	serveCmd := &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API together with the background worker and scheduler",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "listen port (overrides PORT)",
			},
			migrateFlag,
			concurrencyFlag,
			&cli.BoolFlag{
				Name:  "no-worker",
				Usage: "serve HTTP only; run the worker as a separate process",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := setup(ctx, c)
			if err != nil {
				return err
			}
			defer a.Close()
			if c.Int("port") > 0 {
				a.cfg.Port = uint16(c.Int("port"))
			}
			return a.serve(ctx, !c.Bool("no-worker"))
		},
	}

	migrateCmd := &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations and exit",
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := setup(ctx, c)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.migrate(ctx)
		},
	}

	workerCmd := &cli.Command{
		Name:  "worker",
		Usage: "Run the background worker and scheduler without the HTTP API",
		Flags: []cli.Flag{migrateFlag, concurrencyFlag},
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := setup(ctx, c)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.work(ctx)
		},
	}

	return &cli.Command{
		Name:     "bizznex",
		Usage:    "Invoicing, client and expense tracking for service businesses",
		Commands: []*cli.Command{serveCmd, migrateCmd, workerCmd},
	}
}

// setup loads configuration and connects everything a command needs.
// Migrations run first unless --migrate=false.
func setup(ctx context.Context, c *cli.Command) (*app, error) {
	a, err := newApp(ctx)
	if err != nil {
		return nil, err
	}
	if c.Int("concurrency") > 0 {
		a.cfg.Worker.MaxConcurrency = c.Int("concurrency")
	}
	if c.Name != "migrate" && c.Bool("migrate") {
		if err := a.migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

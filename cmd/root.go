package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "quill",
		Usage: "A tiny blog with a token-gated admin area",
		Description: `Quill keeps blog posts as a single JSON document in a local
		key-value slot and serves them over HTTP.

		Anyone can read posts. Creating, editing and deleting posts requires
		the shared admin token.

		Flags can generally be set via environment variables, e.g.:

		--database => QUILL_DATABASE=quill.db
		--admin-token => QUILL_ADMIN_TOKEN=...
		`,
		Flags:  globalFlags(),
		Before: setupLogging,
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			loginCmd(),
			logoutCmd(),
			postsCmd(),
			tidyCmd(),
			exportCmd(),
			importCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return cli.ShowAppHelp(ctx)
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogging(ctx *cli.Context) error {
	level, err := log.ParseLevel(ctx.String("log-level"))
	if err != nil {
		return err
	}
	log.SetLevel(level)
	if ctx.Bool("log-json") {
		log.SetFormatter(&log.JSONFormatter{})
	}
	// stdout belongs to command output
	log.SetOutput(os.Stderr)
	return nil
}

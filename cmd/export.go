package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the posts blob as JSON",
		Description: `Writes every post as the same JSON array quill stores, to stdout
		or to --output.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "File to write to instead of stdout",
			},
		},
		Action: func(ctx *cli.Context) error {
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			raw, err := e.store.Export(ctx.Context)
			if err != nil {
				return err
			}

			output := ctx.String("output")
			if output == "" {
				fmt.Println(string(raw))
				return nil
			}
			if err := os.WriteFile(output, raw, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			log.WithField("file", output).Info("Exported posts")
			return nil
		},
	}
}

func importCmd() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Replace all posts with a JSON export",
		ArgsUsage: "<file>",
		Description: `Reads a JSON array of posts, as written by export, and replaces
		the stored collection with it. Every post needs a unique id and a title.`,
		Flags: []cli.Flag{tokenFlag()},
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() != 1 {
				return fmt.Errorf("expected exactly one file, got %d arguments", ctx.NArg())
			}
			raw, err := os.ReadFile(ctx.Args().First())
			if err != nil {
				return fmt.Errorf("failed to read import: %w", err)
			}

			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := authorize(ctx, e); err != nil {
				return err
			}

			n, err := e.store.Import(ctx.Context, raw)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d posts\n", n)
			return nil
		},
	}
}

package cmd

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Delete old posts",
		Description: `Tidy up the blog by removing posts that are old.

		Removes posts dated more than --days days ago. Posts with a date that
		cannot be parsed are left alone.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "days",
				Value:   90,
				Usage:   "Delete posts older than this many days",
				EnvVars: []string{"QUILL_TIDY_DAYS"},
			},
			tokenFlag(),
		},
		Action: func(ctx *cli.Context) error {
			days := ctx.Int("days")
			if days < 1 {
				return fmt.Errorf("--days must be at least 1, got %d", days)
			}
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := authorize(ctx, e); err != nil {
				return err
			}

			cutoff := time.Now().AddDate(0, 0, -days)
			removed, err := e.store.Prune(ctx.Context, cutoff)
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{
				"removed": removed,
				"days":    days,
			}).Info("Tidied posts")
			return nil
		},
	}
}

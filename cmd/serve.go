package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"quill/server"
	"quill/store"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the blog over HTTP",
		Description: `Starts the quill HTTP server.

		Serves the reading page, the public post API and the token-gated admin
		API. Post changes are pushed to connected readers as server-sent events.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				EnvVars: []string{"QUILL_PORT"},
			},
			&cli.StringSliceFlag{
				Name:    "cors-origin",
				Usage:   "Origin allowed to call the API from a browser, can be repeated",
				EnvVars: []string{"QUILL_CORS_ORIGINS"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			if ctx.IsSet("port") {
				cfg.Server.Port = ctx.Int("port")
			}
			if ctx.IsSet("cors-origin") {
				cfg.Server.CorsOrigins = ctx.StringSlice("cors-origin")
			}

			bc := server.NewBroadcaster()
			e, err := openEnv(ctx.Context, cfg, store.WithPublisher(bc))
			if err != nil {
				return err
			}
			defer e.Close()

			if !e.gate.Configured() {
				log.Warn("No admin token configured, admin routes will answer 503")
			}

			app := server.Server(&server.ServerConfig{
				Site:        cfg.Site,
				Store:       e.store,
				Gate:        e.gate,
				Broadcaster: bc,
				CorsOrigins: cfg.Server.CorsOrigins,
			})

			// Graceful shutdown
			sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-sigCtx.Done()
				log.Info("Gracefully shutting down...")
				bc.Shutdown()
				if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
					log.Errorf("Error shutting down server: %v", err)
				}
			}()

			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			log.WithFields(log.Fields{
				"addr":    addr,
				"backend": cfg.Storage.Backend,
			}).Info("Starting server")
			if err := app.Listen(addr); err != nil {
				stop()
				wg.Wait()
				return fmt.Errorf("server stopped: %w", err)
			}

			wg.Wait()
			log.Info("Done!")
			return nil
		},
	}
}

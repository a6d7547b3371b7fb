package server

import (
	"bufio"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"quill/auth"
	"quill/config"
	"quill/models"
	"quill/store"
)

//go:embed dist/*
var dist embed.FS

type ServerConfig struct {

	// Site metadata shown by the reading page
	Site config.TomlSite

	// The post store backing every route
	Store *store.Store

	// Gate guarding the admin routes
	Gate *auth.Gate

	// Broadcast channels to pass post events to SSE clients
	Broadcaster *Broadcaster

	// Origins allowed to call the API from a browser. Empty disables CORS.
	CorsOrigins []string
}

// Returns a fiber.App instance to be used as the quill HTTP server
func Server(config *ServerConfig) *fiber.App {
	h := &handlers{
		store:    config.Store,
		validate: validator.New(),
	}
	bc := config.Broadcaster

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// Posts outlive the request in the store and on the event channels
		Immutable: true,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			// Compression buffers the body, which would hold back SSE events
			return strings.HasSuffix(c.Path(), "/sse")
		},
	}))

	if len(config.CorsOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(config.CorsOrigins, ","),
			AllowHeaders:     "Authorization, Content-Type, Cache-Control",
			AllowCredentials: true,
		}))
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	api.Get("/site", func(c *fiber.Ctx) error {
		return c.JSON(config.Site)
	})

	api.Get("/stats/posts-per-time", h.postsPerTime)

	api.Get("/posts", h.listPosts)
	api.Get("/posts/sse", streamEvents(bc))
	api.Delete("/posts/sse", func(c *fiber.Ctx) error {
		bc.RemoveClient(c.Query("key", ""))
		return c.Status(fiber.StatusOK).SendString("OK")
	})
	api.Get("/posts/:id", h.getPost)

	admin := api.Group("/admin", requireConfigured(config.Gate), keyauth.New(keyauth.Config{
		KeyLookup:  "header:" + fiber.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if err := config.Gate.Check(key); err != nil {
				log.WithFields(log.Fields{
					"ip":    c.IP(),
					"route": c.Path(),
				}).Warn("Rejected admin token")
				return false, keyauth.ErrMissingOrMalformedAPIKey
			}
			return true, nil
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": auth.ErrInvalidToken.Error()})
		},
	}))

	admin.Post("/login", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	admin.Get("/posts", h.listPosts)
	admin.Post("/posts", h.createPost)
	admin.Put("/posts/:id", h.updatePost)
	admin.Delete("/posts/:id", h.deletePost)

	// Serve the reading page
	app.Use("/", filesystem.New(filesystem.Config{
		Browse:     false,
		Index:      "index.html",
		Root:       http.FS(dist),
		PathPrefix: "dist",
	}))

	return app
}

// requireConfigured answers 503 on every admin route while no token is set
func requireConfigured(gate *auth.Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !gate.Configured() {
			log.Error("Admin route requested but no admin token is configured")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": auth.ErrNotConfigured.Error()})
		}
		return c.Next()
	}
}

func eventName(event interface{}) (string, models.Post, bool) {
	switch e := event.(type) {
	case models.CreatePostEvent:
		return "create-post", e.Post, true
	case models.UpdatePostEvent:
		return "update-post", e.Post, true
	case models.DeletePostEvent:
		return "delete-post", e.Post, true
	}
	return "", models.Post{}, false
}

func streamEvents(bc *Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("Transfer-Encoding", "chunked")

		// Unique client key
		key := uuid.New().String()
		events := make(chan interface{}, 10)

		bc.AddClient(key, events)

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			alive := time.NewTicker(5 * time.Second)
			defer alive.Stop()
			defer bc.RemoveClient(key)

			fmt.Fprintf(w, "event: init\ndata: %s\n\n", key)
			if err := w.Flush(); err != nil {
				log.Errorf("Failed to send init event: %v", err)
				return
			}

			for {
				select {
				case <-alive.C:
					if _, err := fmt.Fprintf(w, "event: ping\ndata: \n\n"); err != nil {
						log.Warnf("Failed to send ping to client %s: %v", key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush ping for client %s: %v", key, err)
						return
					}

				case event, ok := <-events:
					if !ok {
						log.Infof("Event channel closed for client %s", key)
						return
					}
					name, post, known := eventName(event)
					if !known {
						continue
					}
					payload, err := json.Marshal(post)
					if err != nil {
						log.Errorf("Error marshalling post for client %s: %v", key, err)
						continue
					}
					if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
						log.Warnf("Failed to send %s event to client %s: %v", name, key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush %s event for client %s: %v", name, key, err)
						return
					}
				}
			}
		}))

		return nil
	}
}

func storeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	if errors.Is(err, store.ErrUnavailable) {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

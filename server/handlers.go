package server

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"quill/models"
	"quill/store"
)

type handlers struct {
	store    *store.Store
	validate *validator.Validate
}

func (h *handlers) listPosts(c *fiber.Ctx) error {
	posts := h.store.List(c.UserContext())
	models.SortByRecency(posts)
	return c.JSON(posts)
}

func (h *handlers) getPost(c *fiber.Ctx) error {
	post, ok := h.store.Get(c.UserContext(), c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "post not found"})
	}
	return c.JSON(post)
}

func (h *handlers) createPost(c *fiber.Ctx) error {
	in, err := h.bind(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	post, err := h.store.Create(c.UserContext(), in)
	if err != nil {
		return storeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *handlers) updatePost(c *fiber.Ctx) error {
	in, err := h.bind(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	post, found, err := h.store.Update(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return storeError(c, err)
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "post not found"})
	}
	return c.JSON(post)
}

func (h *handlers) deletePost(c *fiber.Ctx) error {
	removed, err := h.store.Delete(c.UserContext(), c.Params("id"))
	if err != nil {
		return storeError(c, err)
	}
	if !removed {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "post not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) postsPerTime(c *fiber.Ctx) error {
	agg := c.Query("time", "hour")
	if agg != "hour" && agg != "day" && agg != "week" {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid time")
	}

	counts := h.store.CountPerTime(c.UserContext(), agg)
	log.WithFields(log.Fields{
		"time":  agg,
		"count": len(counts),
	}).Info("Get posts per time")

	return c.JSON(counts)
}

// bind parses and validates a post body
func (h *handlers) bind(c *fiber.Ctx) (models.PostInput, error) {
	var in models.PostInput
	if err := c.BodyParser(&in); err != nil {
		return in, errors.New("invalid request body")
	}
	in.Title = strings.TrimSpace(in.Title)
	return in, models.ValidateInput(h.validate, in)
}

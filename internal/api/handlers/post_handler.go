package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/glevi2004/organically-sub001/internal/service"
	"github.com/glevi2004/organically-sub001/internal/transfer"
)

type PostHandler struct {
	s  service.PostService
	ps service.PublishService
}

func NewPostHandler(s service.PostService, ps service.PublishService) *PostHandler {
	return &PostHandler{s: s, ps: ps}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	orgID := GetOrganizationID(c)

	var pc transfer.PostCreation
	if err := c.BodyParser(&pc); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	postID, err := h.s.CreatePost(c.Context(), orgID, &pc)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post created",
		"post_id": postID,
	})
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	orgID := GetOrganizationID(c)

	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	scheduledDate, err := time.Parse(time.RFC3339, req.ScheduledDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid scheduled date format, expected RFC3339",
		})
	}

	if err := h.s.Schedule(c.Context(), req.PostID, orgID, scheduledDate); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post scheduled successfully",
	})
}

func (h *PostHandler) CancelSchedule(c *fiber.Ctx) error {
	orgID := GetOrganizationID(c)
	postID := int64(c.QueryInt("id", 0))

	if err := h.s.Cancel(c.Context(), postID, orgID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Schedule cancelled",
	})
}

func (h *PostHandler) PublishNow(c *fiber.Ctx) error {
	orgID := GetOrganizationID(c)
	postID := int64(c.QueryInt("id", 0))

	result := h.ps.PublishNow(c.Context(), postID, orgID)
	if !result.Success {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": result.Message,
		})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	orgID := GetOrganizationID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postID), orgID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to get post",
			})
		}

		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), orgID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	orgID := GetOrganizationID(c)
	postID := int64(c.QueryInt("id", 0))

	if err := h.s.Remove(c.Context(), postID, orgID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

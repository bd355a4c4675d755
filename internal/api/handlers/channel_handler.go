package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/glevi2004/organically-sub001/internal/repository"
)

// ChannelHandler exposes the connected channels read-only; connecting and
// disconnecting accounts happens in the OAuth flow owned by the main app.
type ChannelHandler struct {
	cr repository.ChannelRepository
}

func NewChannelHandler(cr repository.ChannelRepository) *ChannelHandler {
	return &ChannelHandler{cr: cr}
}

func (h *ChannelHandler) ListChannels(c *fiber.Ctx) error {
	orgID := GetOrganizationID(c)

	channels, err := h.cr.ListByOrganizationID(c.Context(), orgID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list channels",
		})
	}

	return c.Status(fiber.StatusOK).JSON(channels)
}

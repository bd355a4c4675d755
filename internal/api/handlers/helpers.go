package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// GetOrganizationID reads the acting organization from the request header.
// Authentication happens upstream of this service; the header is trusted.
func GetOrganizationID(c *fiber.Ctx) int64 {
	orgID, _ := strconv.ParseInt(c.Get("X-Organization-ID"), 10, 64)
	return orgID
}

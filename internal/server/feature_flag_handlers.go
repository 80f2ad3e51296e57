package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags lists every known flag with its value, where the value
// comes from, and whether it is on for the calling admin.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(uint)

	raw := s.featureFlags.Raw()
	sources := make(map[string]string, len(raw))
	for name := range raw {
		sources[name] = s.featureFlags.Source(name)
	}

	return c.JSON(fiber.Map{
		"raw":       raw,
		"sources":   sources,
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}

package handler

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/derxankvs/dataai-api/internal/lookup"
)

// Lookup proxies one public API call for the (tipo, dado) pair in the path.
func Lookup(svc lookup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tipo := c.Params("tipo")
		dado := c.Params("dado")

		data, err := svc.Lookup(c.UserContext(), tipo, dado)
		if err != nil {
			if errors.Is(err, lookup.ErrUnsupportedType) {
				return writeFailure(c, fiber.StatusBadRequest, lookup.UnsupportedTypeMessage())
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"origem":  tipo,
			"data":    json.RawMessage(data),
		})
	}
}

package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/derxankvs/dataai-api/internal/ledger"
)

// GenerateKey creates and persists a new user record with a fresh API key.
func GenerateKey(reg *ledger.UserRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Nome string `json:"nome"`
		}
		// An empty or non-JSON body falls back to the default name
		_ = c.BodyParser(&body)

		user, err := reg.Create(body.Nome)
		if err != nil {
			if errors.Is(err, ledger.ErrKeyTaken) {
				return writeFailure(c, fiber.StatusConflict, "Erro ao gerar key, tente novamente.")
			}
			return writeFailure(c, fiber.StatusInternalServerError, "falha ao gerar a key")
		}

		baseURL := c.Protocol() + "://" + c.Hostname()
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Key gerada com sucesso",
			"usuario": user,
			"exemplos": fiber.Map{
				"armazenar":  baseURL + "/a/key=" + user.Key + "/json",
				"visualizar": baseURL + "/a/key=" + user.Key + "/json/view",
				"download":   baseURL + "/a/key=" + user.Key + "/json/download",
			},
		})
	}
}

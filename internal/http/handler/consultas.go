package handler

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/derxankvs/dataai-api/internal/ledger"
	"github.com/derxankvs/dataai-api/internal/model"
)

// AppendConsultation records an arbitrary JSON body at the front of the
// consultation ledger.
func AppendConsultation(led *ledger.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var data json.RawMessage
		if err := json.Unmarshal(c.Body(), &data); err != nil {
			return writeFailure(c, fiber.StatusBadRequest, "corpo da requisição não é JSON válido")
		}

		item := model.ConsultationRecord{
			ID:        uuid.NewString(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Data:      data,
		}
		if err := led.Prepend(item); err != nil {
			return writeFailure(c, fiber.StatusInternalServerError, "falha ao registrar a consulta")
		}

		return c.JSON(fiber.Map{"success": true, "item": item})
	}
}

// ViewConsultations returns the full consultation ledger.
func ViewConsultations(led *ledger.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := led.ReadAll()
		if err != nil {
			return writeFailure(c, fiber.StatusInternalServerError, "falha ao ler o histórico")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	}
}

// DownloadConsultations returns the ledger as an attachment.
func DownloadConsultations(led *ledger.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := led.ReadAll()
		if err != nil {
			return writeFailure(c, fiber.StatusInternalServerError, "falha ao ler o histórico")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+ledger.ConsultationsFile+`"`)
		return c.Send(data)
	}
}

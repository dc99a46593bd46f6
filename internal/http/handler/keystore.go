package handler

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/derxankvs/dataai-api/internal/keystore"
	"github.com/derxankvs/dataai-api/internal/ledger"
)

// storeRequest is the optional wrapper accepted by StoreDocument. A body
// without a "data" field is stored as-is.
type storeRequest struct {
	User string          `json:"user"`
	Data json.RawMessage `json:"data"`
}

// StoreDocument persists the request body as the JSON document for
// (user, key) and returns the canonical view/download URLs.
func StoreDocument(store *keystore.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")

		var body json.RawMessage
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return writeFailure(c, fiber.StatusBadRequest, "corpo da requisição não é JSON válido")
		}

		user := keystore.DefaultOwner
		payload := body
		var wrapper storeRequest
		if err := json.Unmarshal(body, &wrapper); err == nil {
			if wrapper.User != "" {
				user = wrapper.User
			}
			if len(wrapper.Data) > 0 {
				payload = wrapper.Data
			}
		}

		loc, err := store.Write(user, key, payload)
		if err != nil {
			return writeFailure(c, fiber.StatusInternalServerError, "falha ao salvar o arquivo")
		}

		baseURL := c.Protocol() + "://" + c.Hostname()
		return c.JSON(fiber.Map{
			"success":  true,
			"message":  "Arquivo salvo na pasta do usuário!",
			"file":     "/a/key=" + loc.Key + "/json",
			"view":     baseURL + "/a/key=" + loc.Key + "/json/view?user=" + loc.Owner,
			"download": baseURL + "/a/key=" + loc.Key + "/json/download?user=" + loc.Owner,
		})
	}
}

// ViewDocument returns the stored JSON for (user, key), 404 when absent.
func ViewDocument(store *keystore.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Query("user", keystore.DefaultOwner)

		data, err := store.Read(user, c.Params("key"))
		if err != nil {
			if errors.Is(err, keystore.ErrNotFound) {
				return writeFailure(c, fiber.StatusNotFound, "Arquivo não encontrado")
			}
			return writeFailure(c, fiber.StatusInternalServerError, "falha ao ler o arquivo")
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	}
}

// DownloadDocument returns the same content as an attachment named
// <key>.json.
func DownloadDocument(store *keystore.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")
		user := c.Query("user", keystore.DefaultOwner)

		data, err := store.Read(user, key)
		if err != nil {
			if errors.Is(err, keystore.ErrNotFound) {
				return writeFailure(c, fiber.StatusNotFound, "Arquivo não encontrado")
			}
			return writeFailure(c, fiber.StatusInternalServerError, "falha ao ler o arquivo")
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+keystore.Filename(key)+`"`)
		return c.Send(data)
	}
}

// ListDataFiles enumerates top-level data files, hiding the consultation
// ledger. Errors degrade to an empty list, matching the historical contract.
func ListDataFiles(store *keystore.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		files, err := store.ListTopLevel(ledger.ConsultationsFile)
		if err != nil {
			return c.JSON([]string{})
		}
		return c.JSON(files)
	}
}

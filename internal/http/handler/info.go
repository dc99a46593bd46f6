package handler

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

// Info returns the static capability/version descriptor.
func Info() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"api":     "DataAI",
			"version": "3.0",
			"endpoints": fiber.Map{
				"armazenamento":        "/a/key={key}/json",
				"consultas":            "/tipo/dado/json",
				"historico_consultas":  "/a/consultas/json",
				"pagamento":            "/pagar",
				"obrigado":             "/obrigado",
				"webhook":              "/webhook",
			},
			"criador": "Kaio.kvs — Owner of DataAI",
		})
	}
}

// LivenessProbe is a simple liveness check.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// Dashboard serves the static landing page.
func Dashboard(publicDir string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendFile(filepath.Join(publicDir, "index.html"))
	}
}

// NotFound serves the fixed not-found page for every unmatched route.
func NotFound(publicDir string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Status(fiber.StatusNotFound).SendFile(filepath.Join(publicDir, "404.html")); err != nil {
			return c.Status(fiber.StatusNotFound).Type("html").
				SendString("<html><body><h1>404 - Página não encontrada</h1></body></html>")
		}
		return nil
	}
}

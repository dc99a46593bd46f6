package handler

import (
	"errors"
	"html"

	"github.com/gofiber/fiber/v2"

	"github.com/derxankvs/dataai-api/internal/payment"
)

// CreateCheckout builds a checkout link through the payment provider.
func CreateCheckout(svc payment.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req payment.CheckoutRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return writeFailure(c, fiber.StatusBadRequest, "corpo da requisição não é JSON válido")
			}
		}

		res, err := svc.CreateCheckout(c.UserContext(), c.Hostname(), req)
		if err != nil {
			if errors.Is(err, payment.ErrHandleMissing) {
				return writeFailure(c, fiber.StatusBadRequest, "Configure sua InfiniteTag em config.json.")
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"success":       true,
			"pagamento_url": res.PaymentURL,
			"order_nsu":     res.OrderNSU,
		})
	}
}

// Webhook records a payment-provider callback. When a webhook secret is
// configured the delivery signature is verified before anything is trusted.
func Webhook(svc payment.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := svc.ReceiveWebhook(c.Body(), c.Get(payment.SignatureHeader))
		if err != nil {
			if errors.Is(err, payment.ErrBadSignature) {
				return writeFailure(c, fiber.StatusUnauthorized, "assinatura do webhook inválida")
			}
			return writeFailure(c, fiber.StatusBadRequest, "falha ao registrar o webhook")
		}
		return c.JSON(fiber.Map{"success": true, "message": nil})
	}
}

// ThankYou renders the human-readable payment confirmation page from query
// parameters. Nothing is persisted; values are escaped before rendering.
func ThankYou() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderNSU := html.EscapeString(c.Query("order_nsu", "N/A"))
		method := html.EscapeString(c.Query("capture_method", "Pix/Cartão"))
		receiptURL := c.Query("receipt_url")

		receipt := ""
		if receiptURL != "" {
			receipt = `<p><a href="` + html.EscapeString(receiptURL) + `" target="_blank">Ver comprovante</a></p>`
		}

		page := `<html><head><title>Pagamento Concluído - DataAI</title></head>
<body style="font-family:sans-serif;text-align:center;margin-top:50px;">
  <h1>✅ Pagamento Concluído!</h1>
  <p>Pedido: <b>` + orderNSU + `</b></p>
  <p>Método: <b>` + method + `</b></p>
  ` + receipt + `
  <p>Obrigado por comprar com a <b>DataAI</b> 💚</p>
</body></html>`

		return c.Type("html").SendString(page)
	}
}

package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/derxankvs/dataai-api/internal/keystore"
	"github.com/derxankvs/dataai-api/internal/ledger"
	"github.com/derxankvs/dataai-api/internal/lookup"
	"github.com/derxankvs/dataai-api/internal/payment"
)

// Deps bundles the services the HTTP surface dispatches to.
type Deps struct {
	Store         *keystore.Store
	Consultations *ledger.Ledger
	Users         *ledger.UserRegistry
	Lookup        lookup.Service
	Payment       payment.Service
	PublicDir     string
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Handlers
// stay minimal; business logic lives in the service packages.
//
// Route order matters: the /:tipo/:dado/json wildcard must come after every
// named route it could otherwise shadow.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/", Dashboard(d.PublicDir))
	app.Get("/info", Info())
	app.Get("/healthz", LivenessProbe())

	// Keyed JSON store
	app.Post("/a/key=:key/json", StoreDocument(d.Store))
	app.Get("/a/key=:key/json/view", ViewDocument(d.Store))
	app.Get("/a/key=:key/json/download", DownloadDocument(d.Store))
	app.Get("/data-files.json", ListDataFiles(d.Store))

	// User key generation
	app.Post("/gerar-key", GenerateKey(d.Users))

	// Consultation history
	app.Post("/a/consultas/json", AppendConsultation(d.Consultations))
	app.Get("/a/consultas/json/view", ViewConsultations(d.Consultations))
	app.Get("/a/consultas/json/download", DownloadConsultations(d.Consultations))

	// Payments
	app.Post("/pagar", CreateCheckout(d.Payment))
	app.Get("/obrigado", ThankYou())
	app.Post("/webhook", Webhook(d.Payment))

	// Public lookup proxy (registered last among GETs so named routes win)
	app.Get("/:tipo/:dado/json", Lookup(d.Lookup))

	// Fixed not-found page for everything else
	app.Use(NotFound(d.PublicDir))
}

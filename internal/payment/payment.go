// Package payment creates checkout links through the InfinitePay provider
// and records both outbound requests and inbound webhook callbacks in the
// payments ledger.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/derxankvs/dataai-api/internal/ledger"
	"github.com/derxankvs/dataai-api/internal/model"
)

const defaultCheckoutURL = "https://api.infinitepay.io/invoices/public/checkout/links"

var (
	// ErrHandleMissing means no merchant handle is configured.
	ErrHandleMissing = errors.New("infinitepay handle not configured")
	// ErrUpstream means the provider call failed.
	ErrUpstream = errors.New("payment provider request failed")
	// ErrBadSignature means a webhook delivery failed HMAC verification.
	ErrBadSignature = errors.New("invalid webhook signature")
)

// Item is one checkout line item, in cents.
type Item struct {
	Quantity    int    `json:"quantity"`
	Price       int    `json:"price"`
	Description string `json:"description"`
}

// CheckoutRequest is the client-supplied portion of a checkout link.
type CheckoutRequest struct {
	Amount      int             `json:"amount"`
	Items       []Item          `json:"items"`
	Customer    json.RawMessage `json:"customer,omitempty"`
	Address     json.RawMessage `json:"address,omitempty"`
	OrderNSU    string          `json:"order_nsu"`
	RedirectURL string          `json:"redirect_url"`
	WebhookURL  string          `json:"webhook_url"`
}

// CheckoutResult carries the provider's payment URL and the order identifier.
type CheckoutResult struct {
	PaymentURL string `json:"pagamento_url"`
	OrderNSU   string `json:"order_nsu"`
}

// checkoutPayload is the request body sent to the provider.
type checkoutPayload struct {
	Handle      string          `json:"handle"`
	RedirectURL string          `json:"redirect_url"`
	WebhookURL  string          `json:"webhook_url"`
	OrderNSU    string          `json:"order_nsu"`
	Customer    json.RawMessage `json:"customer,omitempty"`
	Address     json.RawMessage `json:"address,omitempty"`
	Items       []Item          `json:"items"`
}

// Service defines the payment gateway use cases.
type Service interface {
	// CreateCheckout builds the provider payload (defaulting redirect and
	// webhook URLs to the given host), posts it and logs request and
	// response to the payments ledger before returning.
	CreateCheckout(ctx context.Context, host string, req CheckoutRequest) (CheckoutResult, error)

	// ReceiveWebhook verifies the delivery signature when a secret is
	// configured and appends the payload to the payments ledger.
	ReceiveWebhook(body []byte, signature string) error
}

type service struct {
	handle      string
	secret      string
	checkoutURL string
	client      *http.Client
	log         *ledger.Ledger
}

// NewService constructs the gateway adapter. handle may be empty; checkout
// creation then fails with ErrHandleMissing. secret may be empty; webhook
// verification is then skipped, preserving the historical trust-everything
// behavior.
func NewService(handle, secret string, log *ledger.Ledger) Service {
	return &service{
		handle:      handle,
		secret:      secret,
		checkoutURL: defaultCheckoutURL,
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log,
	}
}

func (s *service) CreateCheckout(ctx context.Context, host string, req CheckoutRequest) (CheckoutResult, error) {
	if s.handle == "" {
		return CheckoutResult{}, ErrHandleMissing
	}

	payload := checkoutPayload{
		Handle:      s.handle,
		RedirectURL: req.RedirectURL,
		WebhookURL:  req.WebhookURL,
		OrderNSU:    req.OrderNSU,
		Customer:    req.Customer,
		Address:     req.Address,
		Items:       req.Items,
	}
	if payload.RedirectURL == "" {
		payload.RedirectURL = "https://" + host + "/obrigado"
	}
	if payload.WebhookURL == "" {
		payload.WebhookURL = "https://" + host + "/webhook"
	}
	if payload.OrderNSU == "" {
		payload.OrderNSU = uuid.NewString()
	}
	if len(payload.Items) == 0 {
		price := req.Amount
		if price == 0 {
			price = 1000
		}
		payload.Items = []Item{{Quantity: 1, Price: price, Description: "Produto Padrão"}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("encode checkout payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.checkoutURL, bytes.NewReader(body))
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return CheckoutResult{}, fmt.Errorf("%w: status %d: %s",
			ErrUpstream, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	entry := model.PaymentEntry{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
		Resposta:  respBody,
	}
	if err := s.log.Prepend(entry); err != nil {
		return CheckoutResult{}, fmt.Errorf("log payment: %w", err)
	}

	var providerResp struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(respBody, &providerResp); err != nil {
		return CheckoutResult{}, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}

	return CheckoutResult{PaymentURL: providerResp.URL, OrderNSU: payload.OrderNSU}, nil
}

func (s *service) ReceiveWebhook(body []byte, signature string) error {
	if s.secret != "" {
		if !VerifySignature(s.secret, body, signature) {
			return ErrBadSignature
		}
	}

	entry := model.WebhookEntry{
		ID:       uuid.NewString(),
		Tipo:     "webhook",
		Recebido: time.Now().UTC().Format(time.RFC3339),
		Dados:    body,
	}
	return s.log.Prepend(entry)
}

package model

import "encoding/json"

// ConsultationRecord is one entry of the consultation history ledger.
type ConsultationRecord struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// PaymentEntry records an outbound checkout creation: the payload sent to the
// provider and the provider's response.
type PaymentEntry struct {
	ID        string          `json:"id"`
	CreatedAt string          `json:"created_at"`
	Payload   any             `json:"payload"`
	Resposta  json.RawMessage `json:"resposta,omitempty"`
}

// WebhookEntry records an inbound provider callback. It shares the payment
// ledger with PaymentEntry but carries its own field names plus the "tipo"
// marker, matching the historical wire format.
type WebhookEntry struct {
	ID       string          `json:"id"`
	Tipo     string          `json:"tipo"`
	Recebido string          `json:"recebido"`
	Dados    json.RawMessage `json:"dados"`
}

// User is a generated API key holder.
type User struct {
	ID       string `json:"id"`
	Nome     string `json:"nome"`
	Key      string `json:"key"`
	CriadoEm string `json:"criado_em"`
}

// Package lookup proxies a fixed set of public lookup APIs. Each request is
// attempted exactly once with no caching and a bounded client timeout.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	ErrUnsupportedType = errors.New("unsupported lookup type")
	ErrUpstream        = errors.New("upstream request failed")
)

// maximum upstream body relayed back to the caller
const maxBodyBytes = 4 << 20

// Service resolves (type, datum) pairs against the upstream registry.
type Service interface {
	// Lookup relays one upstream call and returns the raw upstream body.
	Lookup(ctx context.Context, tipo, dado string) (json.RawMessage, error)
}

type service struct {
	client   *http.Client
	registry map[string]Endpoint
}

// NewService builds a Service over the default registry, validating every
// endpoint. The HTTP client carries a 15 second timeout and an otel-traced
// transport.
func NewService() (Service, error) {
	reg := defaultRegistry()
	if err := validateRegistry(reg); err != nil {
		return nil, err
	}
	return &service{
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		registry: reg,
	}, nil
}

// UnsupportedTypeMessage enumerates the accepted lookup types for 400 responses.
func UnsupportedTypeMessage() string {
	return "Tipo de consulta não suportado. Use: " + strings.Join(SupportedTypes, ", ")
}

func (s *service) Lookup(ctx context.Context, tipo, dado string) (json.RawMessage, error) {
	ep, ok := s.registry[strings.ToLower(tipo)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, tipo)
	}

	req, err := http.NewRequestWithContext(ctx, ep.Method, ep.expand(dado), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned status %d: %s",
			ErrUpstream, req.URL.Host, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

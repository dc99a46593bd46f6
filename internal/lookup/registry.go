package lookup

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Endpoint describes one upstream lookup API. The URL template carries a
// single {dado} placeholder standing in for the queried datum; endpoints
// whose datum lands in the query string mark InQuery so it gets
// query-escaped instead of path-escaped.
type Endpoint struct {
	URLTemplate string
	Method      string
	InQuery     bool
}

// placeholder substituted by the queried datum.
const placeholder = "{dado}"

// SupportedTypes is the canonical list surfaced in error messages, in the
// order the public API has always advertised.
var SupportedTypes = []string{
	"cep", "cnpj", "ip", "dominio", "bin", "ddd", "placa", "cpf", "nome", "clima", "pokemon", "bitcoin",
}

// defaultRegistry maps every accepted lookup type (aliases included) to its
// upstream endpoint.
func defaultRegistry() map[string]Endpoint {
	return map[string]Endpoint{
		"cep":     {URLTemplate: "https://viacep.com.br/ws/{dado}/json/", Method: http.MethodGet},
		"cnpj":    {URLTemplate: "https://publica.cnpj.ws/cnpj/{dado}", Method: http.MethodGet},
		"ip":      {URLTemplate: "https://ipapi.co/{dado}/json/", Method: http.MethodGet},
		"dominio": {URLTemplate: "https://api.domainsdb.info/v1/domains/search?domain={dado}", Method: http.MethodGet, InQuery: true},
		"domain":  {URLTemplate: "https://api.domainsdb.info/v1/domains/search?domain={dado}", Method: http.MethodGet, InQuery: true},
		"bin":     {URLTemplate: "https://lookup.binlist.net/{dado}", Method: http.MethodGet},
		"ddd":     {URLTemplate: "https://brasilapi.com.br/api/ddd/v1/{dado}", Method: http.MethodGet},
		"placa":   {URLTemplate: "https://brasilapi.com.br/api/fipe/preco/v1/{dado}", Method: http.MethodGet},
		"cpf":     {URLTemplate: "https://api.invertexto.com/v1/validator?value={dado}&type=cpf", Method: http.MethodGet, InQuery: true},
		"nome":    {URLTemplate: "https://api.agify.io/?name={dado}", Method: http.MethodGet, InQuery: true},
		"clima":   {URLTemplate: "https://wttr.in/{dado}?format=j1", Method: http.MethodGet},
		"btc":     {URLTemplate: "https://api.coindesk.com/v1/bpi/currentprice/BRL.json", Method: http.MethodGet},
		"bitcoin": {URLTemplate: "https://api.coindesk.com/v1/bpi/currentprice/BRL.json", Method: http.MethodGet},
		"pokemon": {URLTemplate: "https://pokeapi.co/api/v2/pokemon/{dado}", Method: http.MethodGet},
	}
}

// validateRegistry checks every endpoint at startup: the method must be a
// known HTTP verb and the template must produce a parseable absolute URL.
func validateRegistry(reg map[string]Endpoint) error {
	for tipo, ep := range reg {
		switch ep.Method {
		case http.MethodGet, http.MethodPost:
		default:
			return fmt.Errorf("lookup type %q: unsupported method %q", tipo, ep.Method)
		}

		probe := strings.ReplaceAll(ep.URLTemplate, placeholder, "probe")
		u, err := url.Parse(probe)
		if err != nil {
			return fmt.Errorf("lookup type %q: invalid URL template: %w", tipo, err)
		}
		if !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("lookup type %q: URL template must be absolute", tipo)
		}
	}
	return nil
}

// expand substitutes the datum into the endpoint's template with the
// appropriate escaping.
func (ep Endpoint) expand(dado string) string {
	escaped := url.PathEscape(dado)
	if ep.InQuery {
		escaped = url.QueryEscape(dado)
	}
	return strings.ReplaceAll(ep.URLTemplate, placeholder, escaped)
}

package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/derxankvs/dataai-api/internal/keystore"
	"github.com/derxankvs/dataai-api/internal/ledger"
	"github.com/derxankvs/dataai-api/internal/lookup"
	lookupMocks "github.com/derxankvs/dataai-api/internal/lookup/mocks"
	"github.com/derxankvs/dataai-api/internal/model"
	"github.com/derxankvs/dataai-api/internal/payment"
	paymentMocks "github.com/derxankvs/dataai-api/internal/payment/mocks"
)

func newTestApp(t *testing.T, d Deps) *fiber.App {
	t.Helper()
	if d.Store == nil {
		d.Store = keystore.New(t.TempDir())
	}
	if d.Consultations == nil {
		d.Consultations = ledger.New(filepath.Join(t.TempDir(), ledger.ConsultationsFile))
	}
	if d.Users == nil {
		d.Users = ledger.NewUserRegistry(ledger.New(filepath.Join(t.TempDir(), ledger.UsersFile)))
	}
	if d.Lookup == nil {
		d.Lookup = new(lookupMocks.MockService)
	}
	if d.Payment == nil {
		d.Payment = new(paymentMocks.MockService)
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	RegisterRoutes(app, d)
	return app
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestStoreAndViewDocument(t *testing.T) {
	store := keystore.New(t.TempDir())
	app := newTestApp(t, Deps{Store: store})

	req := httptest.NewRequest(http.MethodPost, "/a/key=report/json",
		bytes.NewReader([]byte(`{"data":{"x":1}}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "/a/key=report/json", body["file"])
	assert.Contains(t, body["view"], "/a/key=report/json/view?user=guest")
	assert.Contains(t, body["download"], "/a/key=report/json/download?user=guest")

	// Round-trip through view
	viewReq := httptest.NewRequest(http.MethodGet, "/a/key=report/json/view?user=guest", nil)
	viewResp, err := app.Test(viewReq)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, viewResp.StatusCode)

	raw, err := io.ReadAll(viewResp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(raw))
}

func TestStoreDocumentRawBody(t *testing.T) {
	app := newTestApp(t, Deps{})

	// No "data" wrapper: the whole body is the document
	req := httptest.NewRequest(http.MethodPost, "/a/key=plain/json",
		bytes.NewReader([]byte(`{"answer":42}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	viewResp, err := app.Test(httptest.NewRequest(http.MethodGet, "/a/key=plain/json/view", nil))
	require.NoError(t, err)
	raw, _ := io.ReadAll(viewResp.Body)
	assert.JSONEq(t, `{"answer":42}`, string(raw))
}

func TestStoreDocumentOwnerFromBody(t *testing.T) {
	store := keystore.New(t.TempDir())
	app := newTestApp(t, Deps{Store: store})

	req := httptest.NewRequest(http.MethodPost, "/a/key=notes/json",
		bytes.NewReader([]byte(`{"user":"ana","data":{"ok":true}}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := store.Read("ana", "notes")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))

	// guest has no copy
	_, err = store.Read("guest", "notes")
	assert.ErrorIs(t, err, keystore.ErrNotFound)
}

func TestStoreDocumentInvalidJSON(t *testing.T) {
	app := newTestApp(t, Deps{})

	req := httptest.NewRequest(http.MethodPost, "/a/key=bad/json",
		bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestViewDocumentNotFound(t *testing.T) {
	app := newTestApp(t, Deps{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/a/key=missing/json/view", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Arquivo não encontrado", body["message"])
}

func TestDownloadDocument(t *testing.T) {
	store := keystore.New(t.TempDir())
	_, err := store.Write("guest", "report", map[string]int{"x": 1})
	require.NoError(t, err)

	app := newTestApp(t, Deps{Store: store})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/a/key=report/json/download", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), `filename="report.json"`)
}

func TestListDataFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alpha.json"), []byte("[]"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ledger.ConsultationsFile), []byte("[]"), 0o644))

	app := newTestApp(t, Deps{Store: keystore.New(dir)})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/data-files.json", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var files []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&files))
	assert.Equal(t, []string{"alpha.json"}, files)
}

func TestGenerateKey(t *testing.T) {
	app := newTestApp(t, Deps{})

	req := httptest.NewRequest(http.MethodPost, "/gerar-key",
		bytes.NewReader([]byte(`{"nome":"Ana"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	usuario := body["usuario"].(map[string]any)
	assert.Equal(t, "Ana", usuario["nome"])
	assert.Regexp(t, `^dataai_`, usuario["key"])
	assert.Contains(t, body["exemplos"].(map[string]any)["armazenar"], usuario["key"])
}

func TestGenerateKeyTwiceDistinct(t *testing.T) {
	app := newTestApp(t, Deps{})

	keys := map[string]bool{}
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/gerar-key",
			bytes.NewReader([]byte(`{"nome":"Ana"}`)))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		body := decodeBody(t, resp)
		keys[body["usuario"].(map[string]any)["key"].(string)] = true
	}
	assert.Len(t, keys, 2)
}

func TestAppendAndViewConsultations(t *testing.T) {
	led := ledger.New(filepath.Join(t.TempDir(), ledger.ConsultationsFile))
	app := newTestApp(t, Deps{Consultations: led})

	for _, payload := range []string{`{"q":"first"}`, `{"q":"second"}`} {
		req := httptest.NewRequest(http.MethodPost, "/a/consultas/json",
			bytes.NewReader([]byte(payload)))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/a/consultas/json/view", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var records []model.ConsultationRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 2)
	assert.JSONEq(t, `{"q":"second"}`, string(records[0].Data))
	assert.JSONEq(t, `{"q":"first"}`, string(records[1].Data))
}

func TestLookupHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockSvc := new(lookupMocks.MockService)
		mockSvc.On("Lookup", mock.Anything, "cep", "01001-000").
			Return(json.RawMessage(`{"uf":"SP"}`), nil).Once()

		app := newTestApp(t, Deps{Lookup: mockSvc})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/cep/01001-000/json", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "cep", body["origem"])
		assert.Equal(t, "SP", body["data"].(map[string]any)["uf"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("unsupported type", func(t *testing.T) {
		mockSvc := new(lookupMocks.MockService)
		mockSvc.On("Lookup", mock.Anything, "foo", "bar").
			Return(nil, lookup.ErrUnsupportedType).Once()

		app := newTestApp(t, Deps{Lookup: mockSvc})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/foo/bar/json", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Contains(t, body["message"], "cep")
		assert.Contains(t, body["message"], "pokemon")
	})

	t.Run("upstream failure", func(t *testing.T) {
		mockSvc := new(lookupMocks.MockService)
		mockSvc.On("Lookup", mock.Anything, "ip", "8.8.8.8").
			Return(nil, errors.New("upstream request failed: status 500")).Once()

		app := newTestApp(t, Deps{Lookup: mockSvc})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ip/8.8.8.8/json", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Contains(t, body["error"], "upstream request failed")
	})
}

func TestCreateCheckoutHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockSvc := new(paymentMocks.MockService)
		mockSvc.On("CreateCheckout", mock.Anything, "example.com", mock.MatchedBy(func(r payment.CheckoutRequest) bool {
			return r.Amount == 2500
		})).Return(payment.CheckoutResult{
			PaymentURL: "https://checkout.example/abc",
			OrderNSU:   "nsu-1",
		}, nil).Once()

		app := newTestApp(t, Deps{Payment: mockSvc})

		req := httptest.NewRequest(http.MethodPost, "/pagar",
			bytes.NewReader([]byte(`{"amount":2500}`)))
		req.Header.Set("Content-Type", "application/json")
		req.Host = "example.com"
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "https://checkout.example/abc", body["pagamento_url"])
		assert.Equal(t, "nsu-1", body["order_nsu"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing handle", func(t *testing.T) {
		mockSvc := new(paymentMocks.MockService)
		mockSvc.On("CreateCheckout", mock.Anything, mock.Anything, mock.Anything).
			Return(payment.CheckoutResult{}, payment.ErrHandleMissing).Once()

		app := newTestApp(t, Deps{Payment: mockSvc})

		req := httptest.NewRequest(http.MethodPost, "/pagar",
			bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Contains(t, body["message"], "InfiniteTag")
	})
}

func TestWebhookHandler(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		payload := []byte(`{"order_nsu":"nsu-1"}`)
		mockSvc := new(paymentMocks.MockService)
		mockSvc.On("ReceiveWebhook", payload, "").Return(nil).Once()

		app := newTestApp(t, Deps{Payment: mockSvc})

		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("bad signature", func(t *testing.T) {
		mockSvc := new(paymentMocks.MockService)
		mockSvc.On("ReceiveWebhook", mock.Anything, "deadbeef").
			Return(payment.ErrBadSignature).Once()

		app := newTestApp(t, Deps{Payment: mockSvc})

		req := httptest.NewRequest(http.MethodPost, "/webhook",
			bytes.NewReader([]byte(`{}`)))
		req.Header.Set(payment.SignatureHeader, "deadbeef")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestThankYouPage(t *testing.T) {
	app := newTestApp(t, Deps{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet,
		"/obrigado?order_nsu=nsu-7&capture_method=pix", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	page := string(raw)
	assert.Contains(t, page, "nsu-7")
	assert.Contains(t, page, "pix")
}

func TestThankYouEscapesParams(t *testing.T) {
	app := newTestApp(t, Deps{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet,
		"/obrigado?order_nsu=%3Cscript%3Ealert(1)%3C/script%3E", nil))
	require.NoError(t, err)

	raw, _ := io.ReadAll(resp.Body)
	assert.NotContains(t, string(raw), "<script>")
}

func TestInfo(t *testing.T) {
	app := newTestApp(t, Deps{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/info", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "DataAI", body["api"])
	assert.Equal(t, "3.0", body["version"])
}

func TestUnmatchedRouteServesNotFoundPage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "404.html"),
		[]byte("<html><body>custom 404</body></html>"), 0o644))

	app := newTestApp(t, Deps{PublicDir: dir})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "custom 404")
}

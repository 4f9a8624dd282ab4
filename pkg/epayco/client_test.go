package epayco

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andresvelasquez/ganaderia-backend/pkg/config"
	pkgerrors "github.com/andresvelasquez/ganaderia-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

type gatewayStub struct {
	t           *testing.T
	logins      int
	chargeBody  map[string]any
	chargeResp  string
	chargeCode  int
	detailResp  string
	banksResp   string
	failedLogin bool
}

func (g *gatewayStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		g.logins++
		if g.failedLogin {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "pub-key" || pass != "priv-key" {
			g.t.Errorf("unexpected login credentials %q/%q", user, pass)
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "test-token"})
	})
	mux.HandleFunc("/payment/process/pse", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			g.t.Errorf("unexpected authorization header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&g.chargeBody); err != nil {
			g.t.Errorf("decode charge body: %v", err)
		}
		if g.chargeCode != 0 {
			w.WriteHeader(g.chargeCode)
		}
		w.Write([]byte(g.chargeResp))
	})
	mux.HandleFunc("/transaction/detail", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(g.detailResp))
	})
	mux.HandleFunc("/payment/pse/banks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(g.banksResp))
	})
	return mux
}

func newTestClient(t *testing.T, stub *gatewayStub) (*Client, *httptest.Server) {
	t.Helper()
	stub.t = t
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	client, err := NewClient(config.EpaycoConfig{
		BaseURL:         server.URL,
		PublicKey:       "pub-key",
		PrivateKey:      "priv-key",
		CustomerID:      "12345",
		PKey:            "p-key",
		ResponseURL:     "https://pay.example.com/payments/response",
		ConfirmationURL: "https://pay.example.com/webhooks/epayco",
		Test:            true,
		Timeout:         5 * time.Second,
	})
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	return client, server
}

func TestNewClientRequiresKeys(t *testing.T) {
	_, err := NewClient(config.EpaycoConfig{BaseURL: "https://apify.epayco.co"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreatePSECharge(t *testing.T) {
	stub := &gatewayStub{
		chargeResp: `{"success":true,"data":{"ref_payco":123456789,"transactionID":"987654","urlbanco":"https://bank.example.com/pse/123","bankName":"BANCO DE PRUEBA","estado":"Pendiente","respuesta":"Pendiente"}}`,
	}
	client, _ := newTestClient(t, stub)

	result, err := client.CreatePSECharge(context.Background(), PSEChargeParams{
		InvoiceNumber: "INV-2026-0001",
		Description:   "Pajillas lote 7",
		TaxBase:       decimal.NewFromInt(100000),
		Tax:           decimal.NewFromInt(19000),
		BankCode:      "1007",
		DocType:       "CC",
		DocNumber:     "1020304050",
		FirstName:     "Andres",
		LastName:      "Velasquez",
		Email:         "andres@example.com",
		Phone:         "3001234567",
		ClientIP:      "190.0.0.1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProviderRef != "123456789" {
		t.Fatalf("unexpected ref %q", result.ProviderRef)
	}
	if result.BankRedirectURL != "https://bank.example.com/pse/123" {
		t.Fatalf("unexpected redirect %q", result.BankRedirectURL)
	}
	if result.Outcome != OutcomePendingAtBank {
		t.Fatalf("unexpected outcome %s", result.Outcome)
	}

	if stub.chargeBody["value"] != "119000" {
		t.Fatalf("unexpected wire value %v", stub.chargeBody["value"])
	}
	if stub.chargeBody["taxBase"] != "100000" || stub.chargeBody["tax"] != "19000" {
		t.Fatalf("unexpected wire tax fields %v / %v", stub.chargeBody["taxBase"], stub.chargeBody["tax"])
	}
	if stub.chargeBody["currency"] != "COP" || stub.chargeBody["country"] != "CO" {
		t.Fatalf("unexpected locale fields %v / %v", stub.chargeBody["currency"], stub.chargeBody["country"])
	}
	if stub.chargeBody["urlConfirmation"] != "https://pay.example.com/webhooks/epayco" {
		t.Fatalf("unexpected confirmation url %v", stub.chargeBody["urlConfirmation"])
	}
	if stub.logins != 1 {
		t.Fatalf("expected single login, got %d", stub.logins)
	}
}

func TestCreatePSEChargeCachesToken(t *testing.T) {
	stub := &gatewayStub{
		chargeResp: `{"success":true,"data":{"ref_payco":1,"urlbanco":"https://bank.example.com/pse/1"}}`,
	}
	client, _ := newTestClient(t, stub)

	params := PSEChargeParams{
		InvoiceNumber: "INV-2026-0002",
		TaxBase:       decimal.NewFromInt(50000),
		Tax:           decimal.NewFromInt(9500),
		BankCode:      "1007",
	}
	for i := 0; i < 3; i++ {
		if _, err := client.CreatePSECharge(context.Background(), params); err != nil {
			t.Fatalf("charge %d: %v", i, err)
		}
	}
	if stub.logins != 1 {
		t.Fatalf("expected token reuse across calls, got %d logins", stub.logins)
	}
}

func TestCreatePSEChargeProviderRejected(t *testing.T) {
	stub := &gatewayStub{
		chargeResp: `{"success":false,"textResponse":"documento invalido"}`,
	}
	client, _ := newTestClient(t, stub)

	_, err := client.CreatePSECharge(context.Background(), PSEChargeParams{
		InvoiceNumber: "INV-2026-0003",
		TaxBase:       decimal.NewFromInt(1000),
		Tax:           decimal.Zero,
		BankCode:      "1007",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeProviderRejected {
		t.Fatalf("expected provider rejection, got %v", err)
	}
}

func TestCreatePSEChargeServerError(t *testing.T) {
	stub := &gatewayStub{
		chargeCode: http.StatusInternalServerError,
		chargeResp: `{"success":false}`,
	}
	client, _ := newTestClient(t, stub)

	_, err := client.CreatePSECharge(context.Background(), PSEChargeParams{
		InvoiceNumber: "INV-2026-0004",
		TaxBase:       decimal.NewFromInt(1000),
		Tax:           decimal.Zero,
		BankCode:      "1007",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCreatePSEChargeRequiresBank(t *testing.T) {
	client, _ := newTestClient(t, &gatewayStub{})
	_, err := client.CreatePSECharge(context.Background(), PSEChargeParams{
		TaxBase: decimal.NewFromInt(1000),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQueryTransaction(t *testing.T) {
	stub := &gatewayStub{
		detailResp: `{"success":true,"data":{"x_ref_payco":123456789,"x_transaction_id":"987654","x_transaction_state":"Aceptada","x_cod_response":1,"x_response":"Aprobada","x_bank_name":"BANCO DE PRUEBA","x_amount":119000,"x_currency_code":"COP"}}`,
	}
	client, _ := newTestClient(t, stub)

	detail, err := client.QueryTransaction(context.Background(), "123456789")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.Outcome != OutcomeAccepted || !detail.Recognized {
		t.Fatalf("unexpected outcome %s/%t", detail.Outcome, detail.Recognized)
	}
	if detail.ProviderRef != "123456789" || detail.Currency != "COP" {
		t.Fatalf("unexpected detail %+v", detail)
	}
}

func TestQueryTransactionUnknownState(t *testing.T) {
	stub := &gatewayStub{
		detailResp: `{"success":true,"data":{"x_ref_payco":123456789,"x_transaction_state":"EnRevision"}}`,
	}
	client, _ := newTestClient(t, stub)

	detail, err := client.QueryTransaction(context.Background(), "123456789")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.Outcome != OutcomePendingAtBank || detail.Recognized {
		t.Fatalf("unexpected outcome %s/%t", detail.Outcome, detail.Recognized)
	}
}

func TestQueryTransactionNotFound(t *testing.T) {
	stub := &gatewayStub{
		detailResp: `{"success":false,"data":null}`,
	}
	client, _ := newTestClient(t, stub)

	_, err := client.QueryTransaction(context.Background(), "42")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestQueryTransactionRejectsNonNumericRef(t *testing.T) {
	client, _ := newTestClient(t, &gatewayStub{})
	_, err := client.QueryTransaction(context.Background(), "not-a-ref")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListBanks(t *testing.T) {
	stub := &gatewayStub{
		banksResp: `{"success":true,"data":[{"bankCode":"1007","bankName":"BANCOLOMBIA"},{"bankCode":"1051","bankName":"DAVIVIENDA"}]}`,
	}
	client, _ := newTestClient(t, stub)

	banks, err := client.ListBanks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(banks) != 2 || banks[0].Code != "1007" || banks[1].Name != "DAVIVIENDA" {
		t.Fatalf("unexpected banks %+v", banks)
	}
}

func TestLoginFailureIsDependencyError(t *testing.T) {
	stub := &gatewayStub{failedLogin: true}
	client, _ := newTestClient(t, stub)

	_, err := client.ListBanks(context.Background())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

package epayco

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/andresvelasquez/ganaderia-backend/pkg/config"
	pkgerrors "github.com/andresvelasquez/ganaderia-backend/pkg/errors"
)

const (
	loginPath       = "/login"
	pseChargePath   = "/payment/process/pse"
	transactionPath = "/transaction/detail"
	banksPath       = "/payment/pse/banks"

	// Apify tokens last longer than this; refreshing early avoids using
	// a token that expires mid-request.
	tokenTTL = 10 * time.Minute

	defaultTimeout = 15 * time.Second
)

// Client talks to the ePayco Apify gateway. Safe for concurrent use.
type Client struct {
	cfg        config.EpaycoConfig
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient validates credentials and returns a gateway client.
func NewClient(cfg config.EpaycoConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.PublicKey) == "" || strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "epayco api keys are required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "epayco base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ChargeResult is the normalized response to a PSE charge creation.
type ChargeResult struct {
	ProviderRef     string
	TransactionID   string
	BankRedirectURL string
	BankName        string
	ResponseCode    string
	ResponseMessage string
	Outcome         OutcomeKind
}

// TransactionDetail is the normalized response to a status query.
type TransactionDetail struct {
	ProviderRef     string
	TransactionID   string
	Outcome         OutcomeKind
	Recognized      bool
	RawState        string
	ResponseCode    string
	ResponseMessage string
	BankName        string
	Amount          string
	Currency        string
}

// Bank is a PSE participant institution.
type Bank struct {
	Code string `json:"bankCode"`
	Name string `json:"bankName"`
}

type apiEnvelope struct {
	Success       bool            `json:"success"`
	TitleResponse string          `json:"titleResponse"`
	TextResponse  string          `json:"textResponse"`
	Data          json.RawMessage `json:"data"`
}

// CreatePSECharge opens a PSE transaction and returns the bank redirect
// handle. Amounts cross the wire as reconciled integers.
func (c *Client) CreatePSECharge(ctx context.Context, params PSEChargeParams) (*ChargeResult, error) {
	if strings.TrimSpace(params.BankCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank code is required")
	}
	value, taxBase, tax := TaxBreakdown(params.TaxBase, params.Tax)
	if value <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}

	body := map[string]any{
		"bank":               params.BankCode,
		"value":              strconv.FormatInt(value, 10),
		"docType":            params.DocType,
		"docNumber":          params.DocNumber,
		"name":               params.FirstName,
		"lastName":           params.LastName,
		"email":              params.Email,
		"cellPhone":          params.Phone,
		"phone":              params.Phone,
		"address":            params.Address,
		"city":               params.City,
		"ip":                 params.ClientIP,
		"urlResponse":        c.cfg.ResponseURL,
		"urlConfirmation":    c.cfg.ConfirmationURL,
		"methodConfirmation": "POST",
		"invoice":            params.InvoiceNumber,
		"description":        params.Description,
		"currency":           "COP",
		"tax":                strconv.FormatInt(tax, 10),
		"taxBase":            strconv.FormatInt(taxBase, 10),
		"ico":                "0",
		"country":            "CO",
		"indCountry":         "57",
		"testMode":           c.cfg.Test,
	}
	for key, val := range params.ExtraData {
		if _, exists := body[key]; !exists {
			body[key] = val
		}
	}

	envelope, err := c.doAuthorized(ctx, http.MethodPost, pseChargePath, body)
	if err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, pkgerrors.New(pkgerrors.CodeProviderRejected, providerMessage(envelope)).
			WithDetails(map[string]string{"provider_message": providerMessage(envelope)})
	}

	var data struct {
		RefPayco      json.Number `json:"ref_payco"`
		TransactionID string      `json:"transactionID"`
		URLBank       string      `json:"urlbanco"`
		BankName      string      `json:"bankName"`
		State         string      `json:"estado"`
		Response      string      `json:"respuesta"`
		CodResponse   json.Number `json:"cod_respuesta"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to decode epayco charge response")
	}
	ref := data.RefPayco.String()
	if ref == "" || c.emptyRef(ref) {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "epayco charge response missing ref_payco")
	}
	if data.URLBank == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "epayco charge response missing bank redirect url")
	}

	outcome, _ := NormalizeState(data.State)
	return &ChargeResult{
		ProviderRef:     ref,
		TransactionID:   data.TransactionID,
		BankRedirectURL: data.URLBank,
		BankName:        data.BankName,
		ResponseCode:    data.CodResponse.String(),
		ResponseMessage: data.Response,
		Outcome:         outcome,
	}, nil
}

// QueryTransaction fetches the provider-side state for a known reference.
func (c *Client) QueryTransaction(ctx context.Context, providerRef string) (*TransactionDetail, error) {
	ref, err := strconv.ParseInt(strings.TrimSpace(providerRef), 10, 64)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider reference must be numeric")
	}

	body := map[string]any{
		"filter": map[string]any{"referencePayco": ref},
	}
	envelope, err := c.doAuthorized(ctx, http.MethodPost, transactionPath, body)
	if err != nil {
		return nil, err
	}
	if !envelope.Success || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found at provider")
	}

	var data struct {
		RefPayco      json.Number `json:"x_ref_payco"`
		TransactionID string      `json:"x_transaction_id"`
		State         string      `json:"x_transaction_state"`
		Response      string      `json:"x_response"`
		ResponseText  string      `json:"x_response_reason_text"`
		CodResponse   json.Number `json:"x_cod_response"`
		BankName      string      `json:"x_bank_name"`
		Amount        json.Number `json:"x_amount"`
		Currency      string      `json:"x_currency_code"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to decode epayco transaction detail")
	}
	if c.emptyRef(data.RefPayco.String()) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found at provider")
	}

	outcome, recognized := NormalizeState(data.State)
	message := data.ResponseText
	if message == "" {
		message = data.Response
	}
	return &TransactionDetail{
		ProviderRef:     data.RefPayco.String(),
		TransactionID:   data.TransactionID,
		Outcome:         outcome,
		Recognized:      recognized,
		RawState:        data.State,
		ResponseCode:    data.CodResponse.String(),
		ResponseMessage: message,
		BankName:        data.BankName,
		Amount:          data.Amount.String(),
		Currency:        data.Currency,
	}, nil
}

// ListBanks returns the PSE bank directory.
func (c *Client) ListBanks(ctx context.Context) ([]Bank, error) {
	envelope, err := c.doAuthorized(ctx, http.MethodPost, banksPath, map[string]any{})
	if err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, providerMessage(envelope))
	}
	var banks []Bank
	if err := json.Unmarshal(envelope.Data, &banks); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to decode epayco bank directory")
	}
	return banks, nil
}

func (c *Client) doAuthorized(ctx context.Context, method, path string, body any) (*apiEnvelope, error) {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return nil, err
	}
	envelope, status, err := c.do(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		// Token expired server-side before our TTL; refresh once and retry.
		c.invalidateToken()
		token, err = c.bearerToken(ctx)
		if err != nil {
			return nil, err
		}
		envelope, status, err = c.do(ctx, method, path, body, token)
		if err != nil {
			return nil, err
		}
	}
	switch {
	case status >= http.StatusInternalServerError:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("epayco returned status %d", status))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "epayco rejected gateway credentials")
	case status >= http.StatusBadRequest:
		return nil, pkgerrors.New(pkgerrors.CodeProviderRejected, providerMessage(envelope)).
			WithDetails(map[string]string{"provider_message": providerMessage(envelope)})
	}
	return envelope, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string) (*apiEnvelope, int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to encode epayco request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, reader)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to build epayco request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "epayco request failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to read epayco response")
	}

	envelope := &apiEnvelope{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, envelope); err != nil && resp.StatusCode < http.StatusBadRequest {
			return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to decode epayco response")
		}
	}
	return envelope, resp.StatusCode, nil
}

func (c *Client) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+loginPath, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to build epayco login request")
	}
	req.SetBasicAuth(c.cfg.PublicKey, c.cfg.PrivateKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "epayco login request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("epayco login returned status %d", resp.StatusCode))
	}

	var login struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&login); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to decode epayco login response")
	}
	if strings.TrimSpace(login.Token) == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "epayco login returned empty token")
	}

	c.token = login.Token
	c.tokenExpiry = c.now().Add(tokenTTL)
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

func (c *Client) emptyRef(ref string) bool {
	trimmed := strings.TrimSpace(ref)
	return trimmed == "" || trimmed == "0"
}

func providerMessage(envelope *apiEnvelope) string {
	if envelope == nil {
		return "payment provider rejected the request"
	}
	if envelope.TextResponse != "" {
		return envelope.TextResponse
	}
	if envelope.TitleResponse != "" {
		return envelope.TitleResponse
	}
	return "payment provider rejected the request"
}

package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sickfits-be/internal/apperr"
	"sickfits-be/internal/logger"

	"go.uber.org/zap"
)

const defaultStripeBaseURL = "https://api.stripe.com"

// searchQuoter escapes a value for a quoted Stripe search term.
var searchQuoter = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

type stripeGateway struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// ----------------- Constructor -----------------

func NewStripeGateway(secretKey, baseURL string) Gateway {
	if secretKey == "" {
		logger.L().Warn("payment secret key is empty")
	}
	if baseURL == "" {
		baseURL = defaultStripeBaseURL
	}

	return &stripeGateway{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type stripeErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ----------------- Charge -----------------

func (g *stripeGateway) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("idempotency_key", req.IdempotencyKey),
		zap.Int("amount", req.Amount),
	)

	currency := req.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	form := url.Values{}
	form.Set("amount", strconv.Itoa(req.Amount))
	form.Set("currency", strings.ToLower(currency))
	form.Set("source", req.Source)
	form.Set("metadata[checkout_key]", req.IdempotencyKey)
	if req.Description != "" {
		form.Set("description", req.Description)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/charges", strings.NewReader(form.Encode()))
	if err != nil {
		log.Error("failed creating charge request", zap.Error(err))
		return nil, err
	}
	httpReq.SetBasicAuth(g.secretKey, "")
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	log.Info("sending charge request")

	bodyBytes, status, err := g.do(httpReq)
	if err != nil {
		log.Error("charge request failed", zap.Error(err))
		return nil, err
	}

	if status == http.StatusPaymentRequired || (status == http.StatusBadRequest && isCardError(bodyBytes)) {
		msg := declineMessage(bodyBytes)
		log.Info("charge declined", zap.String("reason", msg))
		return nil, apperr.Wrap(apperr.KindValidation, msg, ErrPaymentDeclined)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		log.Error("payment provider returned non-success status",
			zap.Int("status", status),
			zap.ByteString("response", bodyBytes),
		)
		return nil, fmt.Errorf("payment provider error: status %d", status)
	}

	var charge Charge
	if err := json.Unmarshal(bodyBytes, &charge); err != nil {
		log.Error("failed decoding charge", zap.Error(err))
		return nil, err
	}
	if !charge.Succeeded() {
		return nil, apperr.Wrap(apperr.KindValidation, "payment was not completed", ErrPaymentDeclined)
	}

	log.Info("charge captured", zap.String("charge_id", charge.ID))
	return &charge, nil
}

// ----------------- FindCharge -----------------

func (g *stripeGateway) FindCharge(ctx context.Context, idempotencyKey string) (*Charge, error) {
	log := logger.FromCtx(ctx).With(zap.String("idempotency_key", idempotencyKey))

	q := url.Values{}
	q.Set("query", fmt.Sprintf("metadata['checkout_key']:'%s'", searchQuoter.Replace(idempotencyKey)))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/charges/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(g.secretKey, "")

	bodyBytes, status, err := g.do(httpReq)
	if err != nil {
		log.Error("charge search failed", zap.Error(err))
		return nil, err
	}
	if status != http.StatusOK {
		log.Error("charge search returned error",
			zap.Int("status", status),
			zap.ByteString("response", bodyBytes),
		)
		return nil, fmt.Errorf("payment provider error: status %d", status)
	}

	var res struct {
		Data []*Charge `json:"data"`
	}
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		return nil, err
	}

	for _, c := range res.Data {
		if c.Succeeded() {
			return c, nil
		}
	}
	return nil, nil
}

func (g *stripeGateway) do(req *http.Request) ([]byte, int, error) {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read payment response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func isCardError(body []byte) bool {
	var e stripeErrorBody
	return json.Unmarshal(body, &e) == nil && e.Error.Type == "card_error"
}

func declineMessage(body []byte) string {
	var e stripeErrorBody
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return "your card was declined"
}

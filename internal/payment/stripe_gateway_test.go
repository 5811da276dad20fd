package payment

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"sickfits-be/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRoundTripper allows us to mock the HTTP response
type MockRoundTripper func(req *http.Request) *http.Response

func (f MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

type MockRoundTripperWithError func(req *http.Request) (*http.Response, error)

func (f MockRoundTripperWithError) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func TestStripeGateway_Charge(t *testing.T) {
	secret := "sk_test_123"
	gw := NewStripeGateway(secret, "https://payments.test/").(*stripeGateway)
	ctx := context.Background()

	req := ChargeRequest{Amount: 4500, Source: "tok_visa", IdempotencyKey: "key-1"}

	t.Run("Success", func(t *testing.T) {
		gw.httpClient.Transport = MockRoundTripper(func(r *http.Request) *http.Response {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "https://payments.test/v1/charges", r.URL.String())
			assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))

			user, _, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, secret, user)

			require.NoError(t, r.ParseForm())
			assert.Equal(t, "4500", r.PostForm.Get("amount"))
			assert.Equal(t, "usd", r.PostForm.Get("currency"))
			assert.Equal(t, "tok_visa", r.PostForm.Get("source"))
			assert.Equal(t, "key-1", r.PostForm.Get("metadata[checkout_key]"))

			return response(http.StatusOK, `{"id":"ch_1","amount":4500,"currency":"usd","status":"succeeded","paid":true}`)
		})

		charge, err := gw.Charge(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "ch_1", charge.ID)
		assert.Equal(t, 4500, charge.Amount)
	})

	t.Run("Declined", func(t *testing.T) {
		gw.httpClient.Transport = MockRoundTripper(func(r *http.Request) *http.Response {
			return response(http.StatusPaymentRequired,
				`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`)
		})

		_, err := gw.Charge(ctx, req)
		assert.ErrorIs(t, err, ErrPaymentDeclined)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.Equal(t, "Your card was declined.", apperr.Public(err))
	})

	t.Run("NotPaid", func(t *testing.T) {
		gw.httpClient.Transport = MockRoundTripper(func(r *http.Request) *http.Response {
			return response(http.StatusOK, `{"id":"ch_2","status":"pending","paid":false}`)
		})

		_, err := gw.Charge(ctx, req)
		assert.ErrorIs(t, err, ErrPaymentDeclined)
	})

	t.Run("ServerError", func(t *testing.T) {
		gw.httpClient.Transport = MockRoundTripper(func(r *http.Request) *http.Response {
			return response(http.StatusInternalServerError, `oops`)
		})

		_, err := gw.Charge(ctx, req)
		assert.EqualError(t, err, "payment provider error: status 500")
		assert.NotErrorIs(t, err, ErrPaymentDeclined)
	})

	t.Run("NetworkError", func(t *testing.T) {
		gw.httpClient.Transport = MockRoundTripperWithError(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		})

		_, err := gw.Charge(ctx, req)
		assert.Error(t, err)
	})
}

func TestStripeGateway_FindCharge(t *testing.T) {
	gw := NewStripeGateway("sk", "").(*stripeGateway)
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		gw.httpClient.Transport = MockRoundTripper(func(r *http.Request) *http.Response {
			assert.Equal(t, "/v1/charges/search", r.URL.Path)
			assert.Equal(t, "api.stripe.com", r.URL.Host)
			assert.Equal(t, "metadata['checkout_key']:'key-1'", r.URL.Query().Get("query"))
			return response(http.StatusOK, `{"data":[
				{"id":"ch_failed","status":"failed","paid":false},
				{"id":"ch_ok","amount":900,"status":"succeeded","paid":true}
			]}`)
		})

		charge, err := gw.FindCharge(ctx, "key-1")
		require.NoError(t, err)
		assert.Equal(t, "ch_ok", charge.ID)
	})

	t.Run("QuotesAreEscaped", func(t *testing.T) {
		gw.httpClient.Transport = MockRoundTripper(func(r *http.Request) *http.Response {
			assert.Equal(t, `metadata['checkout_key']:'a\' OR status:\'succeeded'`, r.URL.Query().Get("query"))
			return response(http.StatusOK, `{"data":[]}`)
		})

		charge, err := gw.FindCharge(ctx, `a' OR status:'succeeded`)
		assert.NoError(t, err)
		assert.Nil(t, charge)
	})

	t.Run("NotFound", func(t *testing.T) {
		gw.httpClient.Transport = MockRoundTripper(func(r *http.Request) *http.Response {
			return response(http.StatusOK, `{"data":[]}`)
		})

		charge, err := gw.FindCharge(ctx, "key-2")
		assert.NoError(t, err)
		assert.Nil(t, charge)
	})

	t.Run("Error", func(t *testing.T) {
		gw.httpClient.Transport = MockRoundTripper(func(r *http.Request) *http.Response {
			return response(http.StatusUnauthorized, `{}`)
		})

		_, err := gw.FindCharge(ctx, "key-3")
		assert.Error(t, err)
	})
}

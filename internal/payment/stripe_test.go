package payment

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"
)

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		name   string
		amount float64
		want   int64
	}{
		{"entier", 500, 50000},
		{"deux décimales", 19.99, 1999},
		{"arrondi flottant", 0.29, 29},
		{"une roupie", 1, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ToMinorUnits(tc.amount)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestToMinorUnits_Invalid(t *testing.T) {
	for _, amount := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, err := ToMinorUnits(amount)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func testAdapter(createFn func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)) *Adapter {
	return &Adapter{
		Currency:  "inr",
		PublicKey: "pk_test_velours",
		Timeout:   time.Second,
		createFn:  createFn,
	}
}

func TestCreateIntent(t *testing.T) {
	var captured *stripe.PaymentIntentParams
	adapter := testAdapter(func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		captured = params
		return &stripe.PaymentIntent{ID: "pi_test_123", ClientSecret: "pi_test_123_secret"}, nil
	})

	intent, err := adapter.CreateIntent(context.Background(), 19.99, map[string]string{"user_id": "u1"})
	require.NoError(t, err)

	assert.Equal(t, "pi_test_123", intent.ID)
	assert.Equal(t, int64(1999), intent.Amount)
	assert.Equal(t, "inr", intent.Currency)
	assert.Equal(t, "pi_test_123_secret", intent.ClientSecret)
	assert.Equal(t, "pk_test_velours", intent.PublicKey)

	require.NotNil(t, captured)
	assert.Equal(t, int64(1999), *captured.Amount)
	assert.Equal(t, "inr", *captured.Currency)
	assert.Equal(t, "u1", captured.Metadata["user_id"])
}

func TestCreateIntent_InvalidAmount(t *testing.T) {
	adapter := testAdapter(func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		t.Fatal("le prestataire ne doit pas être appelé pour un montant invalide")
		return nil, nil
	})

	_, err := adapter.CreateIntent(context.Background(), -10, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCreateIntent_GatewayFailure(t *testing.T) {
	cause := errors.New("card_declined")
	adapter := testAdapter(func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		return nil, cause
	})

	_, err := adapter.CreateIntent(context.Background(), 100, nil)
	require.Error(t, err)

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.ErrorIs(t, err, cause)
}

// Package payment enveloppe le prestataire de paiement (Stripe) : création
// d'un payment intent pour un montant donné et exposition de la clé publique
// nécessaire au paiement côté client. Aucune écriture catalogue ou commande.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
)

var ErrInvalidAmount = errors.New("montant invalide")

// GatewayError : échec côté prestataire, message transmis tel quel au log,
// jamais avalé silencieusement
type GatewayError struct {
	Message string
	Cause   error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("erreur passerelle de paiement: %s", e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// Intent est la référence que le système conserve : l'état complet du
// paiement reste chez le prestataire, qui fait foi.
type Intent struct {
	ID           string `json:"intent_id"`
	Amount       int64  `json:"amount"` // unités mineures (paise)
	Currency     string `json:"currency"`
	ClientSecret string `json:"client_secret"`
	PublicKey    string `json:"key"`
}

// Adapter crée des payment intents dans la devise de la boutique.
// createFn est remplaçable en test pour travailler hors ligne.
type Adapter struct {
	Currency  string
	PublicKey string
	Timeout   time.Duration

	createFn func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

func NewAdapter() *Adapter {
	currency := os.Getenv("STORE_CURRENCY")
	if currency == "" {
		currency = "inr"
	}
	return &Adapter{
		Currency:  currency,
		PublicKey: os.Getenv("STRIPE_PUBLIC_KEY"),
		Timeout:   15 * time.Second,
		createFn:  paymentintent.New,
	}
}

// ToMinorUnits convertit un montant en unités majeures (roupies) vers les
// unités mineures du prestataire (paise, ×100).
//
// Règle d'arrondi : arrondi à l'entier le plus proche, demi vers l'extérieur
// (math.Round). La multiplication flottante n'est pas exacte (19.99×100
// donne 1998.999…), l'arrondi garantit 1999 pour tout montant à deux
// décimales.
func ToMinorUnits(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return int64(math.Round(amount * 100)), nil
}

// CreateIntent crée un payment intent pour un montant en unités majeures.
// Le montant doit être strictement positif et fini ; l'appel prestataire est
// borné par a.Timeout et tout échec remonte en GatewayError.
func (a *Adapter) CreateIntent(ctx context.Context, amount float64, metadata map[string]string) (*Intent, error) {
	minor, err := ToMinorUnits(amount)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minor),
		Currency: stripe.String(a.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: metadata,
	}
	params.Context = ctx

	pi, err := a.createFn(params)
	if err != nil {
		return nil, &GatewayError{Message: err.Error(), Cause: err}
	}

	return &Intent{
		ID:           pi.ID,
		Amount:       minor,
		Currency:     a.Currency,
		ClientSecret: pi.ClientSecret,
		PublicKey:    a.PublicKey,
	}, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"salon/pkg/utils"
)

// MetadataUserID is the payment metadata key naming the account a payment
// was made for.
const MetadataUserID = "user_id"

const PaymentStatusSucceeded = "succeeded"

// Payment is the gateway's authoritative view of a payment. Amounts are in
// the currency's minor units.
type Payment struct {
	ID                  string
	Status              string
	AmountMinor         int64
	AmountReceivedMinor int64
	Currency            string
	Metadata            map[string]string
}

func (p *Payment) Succeeded() bool {
	return p.Status == PaymentStatusSucceeded
}

// Owner returns the account id recorded on the payment, if any.
func (p *Payment) Owner() string {
	return strings.TrimSpace(p.Metadata[MetadataUserID])
}

// CapturedMinor is the amount actually received; Stripe leaves
// amount_received at zero for some legacy flows, so fall back to amount.
func (p *Payment) CapturedMinor() int64 {
	if p.AmountReceivedMinor > 0 {
		return p.AmountReceivedMinor
	}
	return p.AmountMinor
}

type PaymentGateway interface {
	GetPayment(ctx context.Context, paymentReferenceID string) (*Payment, error)
	IsSucceeded(ctx context.Context, paymentReferenceID string) (bool, error)
}

type StripeConfig struct {
	SecretKey string
	APIBase   string        // optional override, e.g. a local Stripe twin
	Timeout   time.Duration // whole request budget, retries included
}

type paymentIntentGetter interface {
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeGateway struct {
	intents paymentIntentGetter
	timeout time.Duration
}

func NewStripeGateway(cfg StripeConfig) (PaymentGateway, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("missing stripe secret key")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(1),
	}
	if cfg.APIBase != "" {
		backendCfg.URL = stripe.String(cfg.APIBase)
	}

	return &stripeGateway{
		intents: paymentintent.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		timeout: cfg.Timeout,
	}, nil
}

func (g *stripeGateway) GetPayment(ctx context.Context, paymentReferenceID string) (*Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.intents.Get(paymentReferenceID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: payment %s not found", utils.ErrPaymentNotSucceeded, paymentReferenceID)
		}
		return nil, fmt.Errorf("%w: %v", utils.ErrPaymentGateway, err)
	}

	return &Payment{
		ID:                  pi.ID,
		Status:              string(pi.Status),
		AmountMinor:         pi.Amount,
		AmountReceivedMinor: pi.AmountReceived,
		Currency:            strings.ToLower(string(pi.Currency)),
		Metadata:            pi.Metadata,
	}, nil
}

func (g *stripeGateway) IsSucceeded(ctx context.Context, paymentReferenceID string) (bool, error) {
	payment, err := g.GetPayment(ctx, paymentReferenceID)
	if err != nil {
		return false, err
	}
	return payment.Succeeded(), nil
}

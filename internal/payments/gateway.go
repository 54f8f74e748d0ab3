// Package payments talks to the card processor.
package payments

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrIntentNotFound = errors.New("payment intent not found")

type IntentStatus string

const (
	IntentSucceeded             IntentStatus = "succeeded"
	IntentProcessing            IntentStatus = "processing"
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentCanceled              IntentStatus = "canceled"
)

// Intent is the subset of a processor payment intent the services need.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       decimal.Decimal
	Currency     string
	Status       IntentStatus
	Metadata     map[string]string
}

type RefundResult struct {
	ID     string
	Status string
}

// Gateway is implemented by StripeGateway and OfflineGateway.
type Gateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
	Refund(ctx context.Context, intentID string, amount decimal.Decimal) (*RefundResult, error)
}

// ToMinorUnits converts an amount in kroner to øre.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromMinorUnits converts øre to kroner.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

package payments

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OfflineGateway keeps intents in memory. It backs local development when no
// Stripe key is configured, and the HTTP tests.
type OfflineGateway struct {
	mu      sync.Mutex
	intents map[string]*Intent
	refunds []RefundResult
	// AutoSucceed marks new intents as succeeded immediately.
	AutoSucceed bool
}

func NewOfflineGateway(autoSucceed bool) *OfflineGateway {
	return &OfflineGateway{intents: make(map[string]*Intent), AutoSucceed: autoSucceed}
}

func (g *OfflineGateway) CreateIntent(_ context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := "pi_" + uuid.NewString()
	status := IntentRequiresPaymentMethod
	if g.AutoSucceed {
		status = IntentSucceeded
	}
	intent := &Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Amount:       amount,
		Currency:     currency,
		Status:       status,
		Metadata:     metadata,
	}
	g.intents[id] = intent
	cp := *intent
	return &cp, nil
}

func (g *OfflineGateway) GetIntent(_ context.Context, id string) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}
	cp := *intent
	return &cp, nil
}

// SetStatus changes the status of a stored intent.
func (g *OfflineGateway) SetStatus(id string, status IntentStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[id]
	if !ok {
		return ErrIntentNotFound
	}
	intent.Status = status
	return nil
}

func (g *OfflineGateway) Refund(_ context.Context, intentID string, amount decimal.Decimal) (*RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[intentID]
	if !ok {
		return nil, ErrIntentNotFound
	}
	if amount.GreaterThan(intent.Amount) {
		return nil, fmt.Errorf("refund amount %s exceeds intent amount %s", amount, intent.Amount)
	}
	result := RefundResult{ID: "re_" + uuid.NewString(), Status: "succeeded"}
	g.refunds = append(g.refunds, result)
	return &result, nil
}

// Refunds returns the refunds issued so far.
func (g *OfflineGateway) Refunds() []RefundResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]RefundResult(nil), g.refunds...)
}

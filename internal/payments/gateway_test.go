package payments

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(150000), ToMinorUnits(decimal.NewFromInt(1500)))
	assert.Equal(t, int64(1999), ToMinorUnits(decimal.RequireFromString("19.99")))
	assert.True(t, decimal.RequireFromString("19.99").Equal(FromMinorUnits(1999)))
}

func TestOfflineGateway(t *testing.T) {
	ctx := context.Background()
	g := NewOfflineGateway(false)

	intent, err := g.CreateIntent(ctx, decimal.NewFromInt(1500), "nok", map[string]string{"tenantId": "t1"})
	require.NoError(t, err)
	assert.Equal(t, IntentRequiresPaymentMethod, intent.Status)
	assert.NotEmpty(t, intent.ClientSecret)

	require.NoError(t, g.SetStatus(intent.ID, IntentSucceeded))
	got, err := g.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, IntentSucceeded, got.Status)

	_, err = g.GetIntent(ctx, "pi_missing")
	assert.ErrorIs(t, err, ErrIntentNotFound)

	_, err = g.Refund(ctx, intent.ID, decimal.NewFromInt(2000))
	assert.Error(t, err)
	res, err := g.Refund(ctx, intent.ID, decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.Equal(t, "succeeded", res.Status)
	assert.Len(t, g.Refunds(), 1)
}

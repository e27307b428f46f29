package subscription_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/paygate/pkg/subscription"
)

func TestLoadPlansYAML(t *testing.T) {
	t.Parallel()

	t.Run("valid catalog", func(t *testing.T) {
		t.Parallel()
		plans, err := subscription.LoadPlansYAML(strings.NewReader(`
plans:
  - id: basico
    name: Basico
    monthly_price: 0
    yearly_price: 0
  - id: pro
    name: Pro
    description: Desbloquea caracteristicas avanzadas
    monthly_price: 60000
    yearly_price: "576000.50"
    benefits:
      - Hasta 500 posts mensuales
    limitations:
      - No branding personalizado
  - id: legacy
    name: Legacy
    monthly_price: 10
    active: false
`))
		require.NoError(t, err)
		require.Len(t, plans, 3)

		assert.True(t, plans[0].Active)
		assert.True(t, plans[0].MonthlyPrice.IsZero())

		pro := plans[1]
		assert.Equal(t, "pro", pro.ID)
		assert.True(t, decimal.NewFromInt(60000).Equal(pro.MonthlyPrice))
		assert.True(t, decimal.RequireFromString("576000.50").Equal(pro.YearlyPrice))
		assert.True(t, pro.PriceFor(subscription.Yearly).Equal(pro.YearlyPrice))
		assert.True(t, pro.PriceFor(subscription.Monthly).Equal(pro.MonthlyPrice))
		assert.Equal(t, []string{"Hasta 500 posts mensuales"}, pro.Benefits)

		assert.False(t, plans[2].Active)
	})

	tests := map[string]string{
		"bad yaml":     "plans: [",
		"bad price":    "plans:\n  - {id: x, name: X, monthly_price: abc}",
		"negative":     "plans:\n  - {id: x, name: X, monthly_price: -1}",
		"missing id":   "plans:\n  - {name: X}",
		"missing name": "plans:\n  - {id: x}",
		"pipe in id":   "plans:\n  - {id: 'a|b', name: X}",
		"duplicate":    "plans:\n  - {id: x, name: X}\n  - {id: x, name: Y}",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := subscription.LoadPlansYAML(strings.NewReader(doc))
			require.ErrorIs(t, err, subscription.ErrLoadPlans)
		})
	}
}

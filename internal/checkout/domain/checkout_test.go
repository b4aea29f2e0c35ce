package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartdomain "github.com/dkarlss/storefront/internal/cart/domain"
)

func testPricing() Pricing {
	return Pricing{FreeShippingThreshold: 5000, FlatShippingFee: 999, TaxRate: 0.08}
}

func TestComputeQuote_BelowThreshold(t *testing.T) {
	q := testPricing().ComputeQuote(4000, "usd")

	assert.Equal(t, int64(4000), q.Subtotal)
	assert.Equal(t, int64(999), q.Shipping)
	assert.Equal(t, int64(320), q.Tax)
	assert.Equal(t, int64(5319), q.Total)
}

func TestComputeQuote_AboveThreshold(t *testing.T) {
	q := testPricing().ComputeQuote(6000, "usd")

	assert.Equal(t, int64(0), q.Shipping)
	assert.Equal(t, int64(480), q.Tax)
	assert.Equal(t, int64(6480), q.Total)
}

func TestComputeQuote_AtThresholdPaysShipping(t *testing.T) {
	q := testPricing().ComputeQuote(5000, "usd")

	assert.Equal(t, int64(999), q.Shipping)
}

func TestComputeQuote_TaxRounds(t *testing.T) {
	// 131 * 0.08 = 10.48 -> 10; 119 * 0.08 = 9.52 -> 10.
	assert.Equal(t, int64(10), testPricing().ComputeQuote(131, "usd").Tax)
	assert.Equal(t, int64(10), testPricing().ComputeQuote(119, "usd").Tax)
}

func TestShippingAddress_Validate(t *testing.T) {
	addr := ShippingAddress{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		Phone: "555-0100", Address: "1 Main St", City: "Springfield",
		State: "IL", ZipCode: "62701",
	}

	require.NoError(t, addr.Validate())
	assert.Equal(t, "US", addr.Country)
}

func TestShippingAddress_Validate_MissingField(t *testing.T) {
	addr := ShippingAddress{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		Phone: "555-0100", Address: "1 Main St", City: "Springfield",
		State: "IL",
	}

	err := addr.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip_code")
}

func TestShippingAddress_Validate_KeepsExplicitCountry(t *testing.T) {
	addr := ShippingAddress{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		Phone: "555-0100", Address: "1 Main St", City: "Springfield",
		State: "IL", ZipCode: "62701", Country: "CA",
	}

	require.NoError(t, addr.Validate())
	assert.Equal(t, "CA", addr.Country)
}

func TestSession_IntentCopiesLines(t *testing.T) {
	s := &Session{
		UserID: "u1",
		Lines: []cartdomain.Line{
			{ProductID: "p1", UnitPrice: 2000, Quantity: 2},
		},
		Quote:         Quote{Subtotal: 4000, Shipping: 999, Tax: 320, Total: 5319, Currency: "usd"},
		PaymentMethod: "card",
	}

	intent := s.Intent()
	intent.Lines[0].Quantity = 99

	assert.Equal(t, 2, s.Lines[0].Quantity)
	assert.Equal(t, int64(5319), intent.Total)
	assert.Equal(t, "u1", intent.OwnerID)
}

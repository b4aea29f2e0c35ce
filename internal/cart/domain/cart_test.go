package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariantKey(t *testing.T) {
	assert.Equal(t, "p1-M-blue", VariantKey("p1", "M", "blue"))
	assert.Equal(t, "p1--", VariantKey("p1", "", ""))
	assert.Equal(t, "p1-M-", VariantKey("p1", "M", ""))
}

func TestVariantKey_DistinguishesVariants(t *testing.T) {
	assert.NotEqual(t, VariantKey("p1", "M", "blue"), VariantKey("p1", "L", "blue"))
	assert.NotEqual(t, VariantKey("p1", "M", "blue"), VariantKey("p1", "M", "red"))
	assert.NotEqual(t, VariantKey("p1", "", ""), VariantKey("p2", "", ""))
}

func TestCart_Totals(t *testing.T) {
	c := &Cart{
		Lines: []Line{
			{ProductID: "p1", UnitPrice: 1500, Quantity: 2},
			{ProductID: "p2", UnitPrice: 1000, Quantity: 1},
		},
	}

	assert.Equal(t, int64(4000), c.TotalAmount())
	assert.Equal(t, 3, c.TotalItems())
}

func TestCart_TotalsEmpty(t *testing.T) {
	c := &Cart{}

	assert.Equal(t, int64(0), c.TotalAmount())
	assert.Equal(t, 0, c.TotalItems())
}

func TestCart_FindLine(t *testing.T) {
	c := &Cart{
		Lines: []Line{
			{ProductID: "p1", Size: "M", Color: "blue"},
			{ProductID: "p2"},
		},
	}

	assert.Equal(t, 0, c.FindLine("p1-M-blue"))
	assert.Equal(t, 1, c.FindLine("p2--"))
	assert.Equal(t, -1, c.FindLine("p3--"))
}

func TestCart_SnapshotIsDetached(t *testing.T) {
	c := &Cart{
		UserID: "u1",
		Lines: []Line{
			{ProductID: "p1", UnitPrice: 2000, Quantity: 2},
		},
		Currency: "usd",
	}

	snap := c.Snapshot()
	assert.Equal(t, int64(4000), snap.TotalAmount)
	assert.Equal(t, 2, snap.TotalItems)

	snap.Lines[0].Quantity = 99
	assert.Equal(t, 2, c.Lines[0].Quantity)
}

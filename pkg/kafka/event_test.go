package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	type payload struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	}

	ev, err := NewEvent("order.status_changed", "ord-1", "order", "storefront", payload{
		OrderID: "ord-1",
		Status:  "shipped",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "order.status_changed", ev.Type)
	assert.Equal(t, "ord-1", ev.EntityID)
	assert.Equal(t, "order", ev.EntityType)
	assert.WithinDuration(t, time.Now().UTC(), ev.OccurredAt, time.Minute)

	var got payload
	require.NoError(t, ev.UnmarshalPayload(&got))
	assert.Equal(t, "shipped", got.Status)
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	_, err := UnmarshalEvent([]byte("{not json"))
	require.Error(t, err)
}

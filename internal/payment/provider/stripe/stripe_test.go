package stripe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntentIDFromSecret(t *testing.T) {
	assert.Equal(t, "pi_3ABC", intentIDFromSecret("pi_3ABC_secret_xyz"))
	assert.Equal(t, "", intentIDFromSecret("pi_3ABC"))
	assert.Equal(t, "", intentIDFromSecret(""))
}

package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "cafe de paris", Fold("  Café   DE Paris "))
	assert.Equal(t, "netflix.com", Fold("NETFLIX.COM"))
	assert.Equal(t, "", Fold("   "))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "bookingdate", Key("Booking Date"))
	assert.Equal(t, "bookingdate", Key(" booking\tdate "))
	assert.Equal(t, "descripcion", Key("Descripción"))
	assert.Equal(t, "date", Key("\ufeffDate"))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"invoice", "2025", "09", "acme", "gmbh"}, Tokens("Invoice 2025/09 - ACME GmbH"))
	assert.Empty(t, Tokens("--"))
}

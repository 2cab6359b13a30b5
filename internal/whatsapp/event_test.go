package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "qr", EventQR.String())
	assert.Equal(t, "pairing_code", EventPairingCode.String())
	assert.Equal(t, "connected", EventConnected.String())
	assert.Equal(t, "disconnected", EventDisconnected.String())
	assert.Equal(t, "error", EventError.String())
	assert.Equal(t, "unknown", EventType(99).String())
}

package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gdbrns/whatsapp-manager-bot/internal/whatsapp"
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		name string
		data string
		want callbackData
	}{
		{
			"action only",
			"back_to_main",
			callbackData{Action: "back_to_main"},
		},
		{
			"action with session",
			"account:sess-1",
			callbackData{Action: "account", SessionID: "sess-1"},
		},
		{
			"action with session and group",
			"group:sess-1:12345-67890@g.us",
			callbackData{Action: "group", SessionID: "sess-1", GroupID: "12345-67890@g.us"},
		},
		{
			"action with extra",
			"toggle_announce:sess-1:12345@g.us:on",
			callbackData{Action: "toggle_announce", SessionID: "sess-1", GroupID: "12345@g.us", Extra: "on"},
		},
		{
			"empty string",
			"",
			callbackData{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCallback(tt.data))
		})
	}
}

func TestToggleButtonsCarryDesiredValue(t *testing.T) {
	group := whatsapp.Group{JID: "12345@g.us", Name: "Ops", IsAnnounce: true, IsLocked: false}
	_, keyboard := groupSettingsMenu("sess-1", group)

	var payloads []string
	for _, row := range keyboard.InlineKeyboard {
		for _, button := range row {
			payloads = append(payloads, *button.CallbackData)
		}
	}

	// The button encodes the state it will apply, not the current one.
	assert.Contains(t, payloads, "toggle_announce:sess-1:12345@g.us:off")
	assert.Contains(t, payloads, "toggle_restrict:sess-1:12345@g.us:on")

	cb := parseCallback("toggle_announce:sess-1:12345@g.us:off")
	assert.Equal(t, "off", cb.Extra)
}

func TestCallbackPayloadRoundTrip(t *testing.T) {
	payload := callbackPayload("group", "sess-1", "12345@g.us")
	assert.Equal(t, "group:sess-1:12345@g.us", payload)

	cb := parseCallback(payload)
	assert.Equal(t, "group", cb.Action)
	assert.Equal(t, "sess-1", cb.SessionID)
	assert.Equal(t, "12345@g.us", cb.GroupID)
}

package whatsapp

// EventType enumerates the lifecycle notifications a connection delivers
// on its event channel.
type EventType int

const (
	EventQR EventType = iota
	EventPairingCode
	EventConnected
	EventDisconnected
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventQR:
		return "qr"
	case EventPairingCode:
		return "pairing_code"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a single lifecycle notification. Code carries the QR payload or
// pairing code, Reason carries the disconnect cause or error message.
type Event struct {
	Type   EventType
	Code   string
	Reason string
}

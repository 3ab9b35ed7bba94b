package entities

// Connection status values written by the bot backend.
const (
	BotStatusOpen       = "open"
	BotStatusClose      = "close"
	BotStatusAwaitingQR = "AGUARDANDO_QRCODE"
)

// BotConnection is the transient connection row of a WhatsApp bot instance.
type BotConnection struct {
	Token       string  `json:"token"`
	Status      *string `json:"status"`
	QRCode      *string `json:"qrcode"` // Base64 image or data URI
	PhoneNumber *string `json:"numero"`
	Name        *string `json:"nome"`
}

// StatusValue returns the raw status or "" when absent.
func (b *BotConnection) StatusValue() string {
	if b == nil || b.Status == nil {
		return ""
	}
	return *b.Status
}

// StringValue dereferences an optional column.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
